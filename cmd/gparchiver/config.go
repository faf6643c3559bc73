package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"gparchiver/pkg/config"
	"gparchiver/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage GP Archiver configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (GPARCHIVER_*)
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as 'gparchiver.yaml'
unless a different path is specified with the --config flag.`,
	Run: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the effective configuration after merging all sources:
  - Command line flags
  - Environment variables
  - Configuration file
  - Default values`,
	Run: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate a configuration file for syntax errors and invalid values.

This command checks:
  - YAML syntax
  - Required fields
  - Value types and ranges`,
	Run: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

const exampleConfig = `# GP Archiver Configuration File
#
# Environment variables prefixed with GPARCHIVER_ override these values.
# For example: GPARCHIVER_DIRECTORY, GPARCHIVER_CONCURRENT_DOWNLOADS

# Archive location and layout
archive:
  # Archive root directory (required). Library, Albums, Shared Albums and
  # Favorites subdirectories plus the index database live under it.
  directory: "~/PhotosArchive"

  # Dump raw API listing pages as JSON under <directory>/debug
  debug: false

# Authentication settings
auth:
  # OAuth client credentials JSON downloaded from the Google Cloud console
  credentials_file: "credentials.json"

  # Token storage backend: auto, keyring, encrypted or file
  token_store: "auto"

# Download settings
download:
  # Number of parallel download workers (1-16)
  concurrent_downloads: 3

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: "info"

  # Optional log file; empty logs to the console
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) {
	configPath := configFile
	if configPath == "" {
		configPath = "gparchiver.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		os.Exit(1)
	}

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0600); err != nil {
		ui.PrintError("Failed to write configuration file", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Created " + configPath)
	fmt.Println("\nEdit the file and set the archive directory, then run:")
	fmt.Println("  gparchiver auth login")
	fmt.Println("  gparchiver archive")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		ui.PrintError("Failed to render configuration", err.Error())
		os.Exit(1)
	}

	ui.PrintHighlight("Effective configuration:")
	fmt.Println(string(data))
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	path := configFile
	if path == "" {
		ui.PrintError("No configuration file specified", "use --config <path>")
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	if err := cfg.LoadFromFile(path); err != nil {
		ui.PrintError("Configuration file is invalid", err.Error())
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		ui.PrintError("Configuration file is invalid", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Configuration file is valid")
}
