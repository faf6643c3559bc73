package archiver

import (
	"fmt"
	"path/filepath"
	"time"

	"gparchiver/internal/downloader"
	"gparchiver/pkg/config"
	"gparchiver/pkg/index"
	"gparchiver/pkg/logger"
	"gparchiver/pkg/photos"
	"gparchiver/pkg/storage"
	"gparchiver/pkg/ui"
)

// UnnamedAlbumTitle is used for albums the API returns without a title.
const UnnamedAlbumTitle = "Unnamed Album"

// Library is the listing surface the archiver consumes. *photos.Fetcher
// satisfies it.
type Library interface {
	ListLibrary() ([]photos.MediaItem, error)
	ListAlbums() ([]photos.Album, error)
	ListSharedAlbums() ([]photos.Album, error)
	SearchAlbumItems(albumID string) ([]photos.MediaItem, error)
	SearchFavorites() ([]photos.MediaItem, error)
}

// Options selects which collections a run covers. The zero value means
// everything.
type Options struct {
	Library      bool
	Albums       bool
	SharedAlbums bool
	Favorites    bool
}

func (o Options) none() bool {
	return !o.Library && !o.Albums && !o.SharedAlbums && !o.Favorites
}

// Stats summarizes one archival run.
type Stats struct {
	Downloaded     int
	AlreadyPresent int
	Failed         int
	Bytes          int64
	Albums         int
	Elapsed        time.Duration
}

// Archiver mirrors the remote library into the local archive. Collections
// are processed strictly in sequence; within a collection, downloads run on
// a bounded worker pool while index writes stay on the draining goroutine.
type Archiver struct {
	library  Library
	client   downloader.MediaFetcher
	embedder downloader.MetadataWriter
	store    *storage.Manager
	index    *index.Index
	proc     *Processor
	workers  int
	tracker  *ui.StatusTracker
	logger   logger.Logger
}

// SetTracker attaches a terminal progress tracker. Optional.
func (a *Archiver) SetTracker(tracker *ui.StatusTracker) {
	a.tracker = tracker
}

// New wires an Archiver from its collaborators. embedder may be nil to skip
// metadata embedding.
func New(lib Library, client downloader.MediaFetcher, embedder downloader.MetadataWriter,
	store *storage.Manager, ix *index.Index, cfg *config.Config, log logger.Logger) *Archiver {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Archiver{
		library:  lib,
		client:   client,
		embedder: embedder,
		store:    store,
		index:    ix,
		proc:     NewProcessor(ix, log),
		workers:  cfg.Download.ConcurrentDownloads,
		logger:   log,
	}
}

// Run archives the selected collections and returns the run's stats. A
// listing failure aborts the run; individual download failures do not.
func (a *Archiver) Run(opts Options) (*Stats, error) {
	if opts.none() {
		opts = Options{Library: true, Albums: true, SharedAlbums: true, Favorites: true}
	}

	start := time.Now()
	stats := &Stats{}

	if opts.Library {
		a.logger.Info("archiving library")
		a.beginCollection("Library")
		items, err := a.library.ListLibrary()
		if err != nil {
			return nil, err
		}
		if err := a.runBatch(items, a.store.LibraryDir(), "", stats); err != nil {
			return nil, err
		}
	}

	if opts.Albums {
		a.logger.Info("archiving albums")
		a.beginCollection("Albums")
		albums, err := a.library.ListAlbums()
		if err != nil {
			return nil, err
		}
		if err := a.archiveAlbums(albums, a.store.AlbumsDir(), false, stats); err != nil {
			return nil, err
		}
	}

	if opts.SharedAlbums {
		a.logger.Info("archiving shared albums")
		a.beginCollection("Shared Albums")
		albums, err := a.library.ListSharedAlbums()
		if err != nil {
			return nil, err
		}
		if err := a.archiveAlbums(albums, a.store.SharedAlbumsDir(), true, stats); err != nil {
			return nil, err
		}
	}

	if opts.Favorites {
		a.logger.Info("archiving favorites")
		a.beginCollection("Favorites")
		items, err := a.library.SearchFavorites()
		if err != nil {
			return nil, err
		}
		if err := a.runBatch(items, a.store.FavoritesDir(), "", stats); err != nil {
			return nil, err
		}
	}

	stats.Elapsed = time.Since(start)

	a.logger.InfoWithFields("run complete", map[string]interface{}{
		"downloaded":      stats.Downloaded,
		"already_present": stats.AlreadyPresent,
		"failed":          stats.Failed,
		"bytes":           stats.Bytes,
		"albums":          stats.Albums,
		"elapsed":         stats.Elapsed.Round(time.Millisecond).String(),
	})

	return stats, nil
}

func (a *Archiver) beginCollection(name string) {
	if a.tracker != nil {
		a.tracker.BeginCollection(name)
	}
}

// archiveAlbums processes each album in listing order.
func (a *Archiver) archiveAlbums(albums []photos.Album, parentDir string, shared bool, stats *Stats) error {
	for i := range albums {
		album := &albums[i]

		// Albums without an item count come back from the API in a
		// state that cannot be listed; skip them.
		if album.MediaItemsCount == "" {
			a.logger.WarnWithFields("skipping album without item count", map[string]interface{}{
				"album_id": album.ID,
				"title":    album.Title,
			})
			continue
		}

		dir, err := a.albumDir(album, parentDir, shared)
		if err != nil {
			return err
		}

		items, err := a.library.SearchAlbumItems(album.ID)
		if err != nil {
			return err
		}

		if err := a.runBatch(items, dir, album.ID, stats); err != nil {
			return err
		}
		stats.Albums++
	}
	return nil
}

// albumDir resolves the album's directory. First sight creates the directory
// and the album record before any of the album's items are downloaded; later
// runs reuse the recorded path even if the album was renamed upstream.
func (a *Archiver) albumDir(album *photos.Album, parentDir string, shared bool) (string, error) {
	rec, err := a.index.LookupAlbum(album.ID)
	if err != nil {
		return "", err
	}
	if rec != nil {
		return rec.Path, nil
	}

	title := album.Title
	if title == "" {
		title = UnnamedAlbumTitle
	}

	dir, err := storage.EnsureDir(filepath.Join(parentDir, storage.SanitizeFilename(title)))
	if err != nil {
		return "", fmt.Errorf("failed to create album directory: %w", err)
	}

	if err := a.index.RecordAlbum(album.ID, dir, title, shared); err != nil {
		return "", err
	}

	a.logger.InfoWithFields("new album", map[string]interface{}{
		"album_id": album.ID,
		"title":    title,
		"path":     dir,
	})
	return dir, nil
}

// runBatch downloads one collection's items through the worker pool and
// drains the outcomes. All index writes happen here, on the draining
// goroutine, so inserts are never concurrent.
func (a *Archiver) runBatch(items []photos.MediaItem, dir, albumID string, stats *Stats) error {
	tasks, err := a.proc.Process(items, dir, albumID)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		return nil
	}

	pool := downloader.NewWorkerPool(a.workers, a.client, a.embedder, a.logger)
	pool.Start()

	go func() {
		for _, task := range tasks {
			if err := pool.Submit(task); err != nil {
				break
			}
		}
		pool.Stop()
	}()

	for outcome := range pool.Results() {
		switch outcome.Kind {
		case downloader.OutcomeDownloaded:
			stats.Downloaded++
			stats.Bytes += outcome.Size
			if a.tracker != nil {
				a.tracker.RecordDownloaded(outcome.Size)
			}
			if err := a.recordOutcome(outcome); err != nil {
				return err
			}
		case downloader.OutcomeAlreadyPresent:
			stats.AlreadyPresent++
			if a.tracker != nil {
				a.tracker.RecordPresent()
			}
			// The file may predate its index record when an earlier
			// run died between write and insert.
			if err := a.recordOutcome(outcome); err != nil {
				return err
			}
		case downloader.OutcomeFailed:
			stats.Failed++
			if a.tracker != nil {
				a.tracker.RecordFailed()
			}
			a.logger.WarnWithFields("item failed, will retry next run", map[string]interface{}{
				"item_id": outcome.Task.ItemID,
				"error":   outcome.Err.Error(),
			})
		}
	}

	return nil
}

// recordOutcome inserts the item's record unless one already exists.
func (a *Archiver) recordOutcome(outcome downloader.Outcome) error {
	rec, err := a.index.LookupItem(outcome.Task.ItemID)
	if err != nil {
		return err
	}
	if rec != nil {
		return nil
	}
	return a.index.RecordItem(outcome.Task.ItemID, outcome.Path, outcome.Task.AlbumID)
}
