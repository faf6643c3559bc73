package main

import (
	"context"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"gparchiver/internal/downloader"
	"gparchiver/pkg/archiver"
	"gparchiver/pkg/auth"
	"gparchiver/pkg/config"
	"gparchiver/pkg/index"
	"gparchiver/pkg/logger"
	"gparchiver/pkg/metadata"
	"gparchiver/pkg/photos"
	"gparchiver/pkg/storage"
	"gparchiver/pkg/ui"
)

var (
	// Archive command flags
	archiveDir      string
	credentialsFile string
	concurrent      int
	debugDumps      bool
	noMetadata      bool
	onlyLibrary     bool
	onlyAlbums      bool
	onlyShared      bool
	onlyFavorites   bool
)

// archiveCmd represents the archive command
var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Download the remote library into the local archive",
	Long: `Download the Google Photos library into the local archive directory.

By default every collection is archived: the full library, all albums, all
shared albums and the favorites. Use the collection flags to restrict a run.

Runs are idempotent. Items recorded in the archive index whose files are
still on disk are skipped without any network traffic; failed items are
simply retried on the next run.`,
	Example: `  # Archive everything
  gparchiver archive --dir ~/PhotosArchive

  # Only albums and shared albums, five parallel downloads
  gparchiver archive --dir ~/PhotosArchive --albums --shared-albums --concurrent 5

  # Keep raw API pages for inspection
  gparchiver archive --dir ~/PhotosArchive --debug`,
	RunE: func(cmd *cobra.Command, args []string) error {
		runArchive(cmd, args)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)

	archiveCmd.Flags().StringVarP(&archiveDir, "dir", "d", "", "archive root directory (required unless configured)")
	archiveCmd.Flags().StringVar(&credentialsFile, "credentials", "", "OAuth client credentials JSON file")
	archiveCmd.Flags().IntVar(&concurrent, "concurrent", 3, "number of concurrent downloads")
	archiveCmd.Flags().BoolVar(&debugDumps, "debug", false, "dump raw API listing pages under <dir>/debug")
	archiveCmd.Flags().BoolVar(&noMetadata, "no-metadata", false, "skip XMP metadata embedding")
	archiveCmd.Flags().BoolVar(&onlyLibrary, "library", false, "archive the library collection")
	archiveCmd.Flags().BoolVar(&onlyAlbums, "albums", false, "archive albums")
	archiveCmd.Flags().BoolVar(&onlyShared, "shared-albums", false, "archive shared albums")
	archiveCmd.Flags().BoolVar(&onlyFavorites, "favorites", false, "archive favorites")
}

func runArchive(cmd *cobra.Command, args []string) {
	cfg := loadConfigOrExit()

	logger.Initialize(&cfg.Logging)
	log := logger.GetLogger()
	log.WithField("version", version).Info("GP Archiver starting")

	client := authenticatedClientOrExit(cfg)

	store, err := storage.NewManager(cfg.Archive.Directory, cfg.Archive.Debug)
	if err != nil {
		ui.PrintError("Failed to prepare archive directory", err.Error())
		os.Exit(1)
	}

	ix, err := index.Open(cfg.Archive.Directory)
	if err != nil {
		ui.PrintError("Failed to open archive index", err.Error())
		os.Exit(1)
	}
	defer ix.Close()

	apiClient := photos.NewClient(client, cfg.Download.DownloadTimeout, log)

	var dump photos.PageDump
	if cfg.Archive.Debug {
		dump = archiver.NewDebugDump(store.DebugDir(), log)
	}
	fetcher := photos.NewFetcher(apiClient, dump, log)

	var embedder downloader.MetadataWriter
	if !noMetadata {
		embedder = metadata.NewEmbedder(log)
	}

	arch := archiver.New(fetcher, apiClient, embedder, store, ix, cfg, log)

	tracker := ui.NewStatusTracker()
	tracker.SetQuiet(quiet)
	arch.SetTracker(tracker)

	stats, err := arch.Run(archiver.Options{
		Library:      onlyLibrary,
		Albums:       onlyAlbums,
		SharedAlbums: onlyShared,
		Favorites:    onlyFavorites,
	})
	if err != nil {
		ui.PrintError("\nArchival run failed", err.Error())
		os.Exit(1)
	}

	if !quiet {
		ui.PrintSuccess("\n\nArchive up to date")
		ui.PrintInfo("Result", tracker.Summary())
		if stats.Failed > 0 {
			ui.PrintWarning("Some items failed and will be retried on the next run", stats.Failed)
		}
	}
}

// loadConfigOrExit loads configuration from all sources and exits on error.
func loadConfigOrExit() *config.Config {
	flags := make(map[string]interface{})
	if archiveDir != "" {
		flags["directory"] = archiveDir
	}
	if credentialsFile != "" {
		flags["credentials"] = credentialsFile
	}
	if concurrent != 3 {
		flags["concurrent"] = concurrent
	}
	if debugDumps {
		flags["debug"] = true
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}
	return cfg
}

// authenticatedClientOrExit builds the OAuth-authenticated HTTP client,
// walking the consent flow first when no token is stored yet.
func authenticatedClientOrExit(cfg *config.Config) *http.Client {
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

	ctx := context.Background()

	if !manager.HasToken() {
		if err := runConsentFlow(manager); err != nil {
			ui.PrintError("Authorization failed", err.Error())
			os.Exit(1)
		}
	}

	client, err := manager.Client(ctx)
	if err != nil {
		ui.PrintError("Failed to build authorized client", err.Error())
		os.Exit(1)
	}
	return client
}
