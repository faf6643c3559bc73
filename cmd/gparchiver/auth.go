package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gparchiver/pkg/auth"
	"gparchiver/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Google Photos authorization",
	Long: `Manage the OAuth authorization used to read the Google Photos library.

The user token is stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation (GPARCHIVER_PASSPHRASE)
  - Plain JSON file in the archive root

The OAuth client credentials JSON must be downloaded from the Google Cloud
console for a client with the photoslibrary.readonly scope enabled.`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorize access to the Google Photos library",
	Long: `Walk the OAuth consent flow and store the resulting token.

You will be shown a consent URL to open in a browser. After approving
read-only library access, paste the displayed code back here.`,
	Example: `  # Authorize with the default credentials file
  gparchiver auth login --dir ~/PhotosArchive

  # Authorize with an explicit credentials file and encrypted token storage
  gparchiver auth login --dir ~/PhotosArchive --credentials ./client.json`,
	Run: runAuthLogin,
}

// statusCmd represents the auth status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a stored token exists",
	Run:   runAuthStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(statusCmd)

	authCmd.PersistentFlags().StringVarP(&archiveDir, "dir", "d", "", "archive root directory")
	authCmd.PersistentFlags().StringVar(&credentialsFile, "credentials", "", "OAuth client credentials JSON file")
}

func runAuthLogin(cmd *cobra.Command, args []string) {
	cfg := loadConfigOrExit()

	promptPassphraseIfNeeded(cfg.Auth.TokenStore)

	store, err := auth.NewStore(cfg.Auth.TokenStore, cfg.Archive.Directory)
	if err != nil {
		ui.PrintError("Failed to initialize token store", err.Error())
		os.Exit(1)
	}

	manager, err := auth.NewManager(cfg.Auth.CredentialsFile, store)
	if err != nil {
		ui.PrintError("Failed to load OAuth credentials", err.Error())
		os.Exit(1)
	}

	if manager.HasToken() {
		ui.PrintSuccess("A stored token already exists; nothing to do")
		return
	}

	if err := runConsentFlow(manager); err != nil {
		ui.PrintError("Authorization failed", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Authorization complete")
}

func runAuthStatus(cmd *cobra.Command, args []string) {
	cfg := loadConfigOrExit()

	store, err := auth.NewStore(cfg.Auth.TokenStore, cfg.Archive.Directory)
	if err != nil {
		ui.PrintError("Failed to initialize token store", err.Error())
		os.Exit(1)
	}

	if store.Exists() {
		ui.PrintSuccess("Token stored; archive runs need no interaction")
	} else {
		ui.PrintWarning("No stored token", "run 'gparchiver auth login' first")
	}
}

// runConsentFlow prints the consent URL and exchanges the pasted code for a
// token, which the manager persists through its store.
func runConsentFlow(manager *auth.Manager) error {
	ui.PrintHighlight("\n[AUTHORIZATION REQUIRED]")
	fmt.Println("Open the following URL in a browser and approve read-only access:")
	fmt.Printf("\n  %s\n\n", manager.AuthCodeURL())
	fmt.Print("Paste the authorization code: ")

	reader := bufio.NewReader(os.Stdin)
	code, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read authorization code: %w", err)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("empty authorization code")
	}

	if _, err := manager.Exchange(context.Background(), code); err != nil {
		return err
	}
	return nil
}

// promptPassphraseIfNeeded asks for the encryption passphrase when the
// encrypted token store is selected and none is set in the environment.
func promptPassphraseIfNeeded(backend string) {
	if !strings.EqualFold(backend, "encrypted") || os.Getenv(auth.PassphraseEnvVar) != "" {
		return
	}
	if !term.IsTerminal(int(syscall.Stdin)) {
		return
	}

	fmt.Print("Token encryption passphrase: ")
	passphrase, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil || len(passphrase) == 0 {
		return
	}
	os.Setenv(auth.PassphraseEnvVar, string(passphrase))
}
