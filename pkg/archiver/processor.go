package archiver

import (
	"path/filepath"

	"gparchiver/internal/downloader"
	"gparchiver/pkg/index"
	"gparchiver/pkg/logger"
	"gparchiver/pkg/photos"
	"gparchiver/pkg/storage"
)

// Processor turns listed media items into download tasks. It consults the
// index so that previously archived items keep their recorded path; the
// worker's on-disk check then decides whether any bytes move.
type Processor struct {
	index  *index.Index
	logger logger.Logger
}

// NewProcessor creates a task processor over the given index.
func NewProcessor(ix *index.Index, log logger.Logger) *Processor {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Processor{index: ix, logger: log}
}

// Process builds one task per usable item in the batch. dir is the directory
// new files go into; albumID is empty for library and favorites batches.
//
// Items without an ID, base URL, or filename are dropped, as are items whose
// MIME type is neither image nor video. Indexed items stay in the batch with
// their recorded path, so a deleted file is restored on the next run.
func (p *Processor) Process(items []photos.MediaItem, dir, albumID string) ([]downloader.DownloadTask, error) {
	tasks := make([]downloader.DownloadTask, 0, len(items))

	for i := range items {
		item := &items[i]

		if item.ID == "" || item.BaseURL == "" || item.Filename == "" {
			p.logger.DebugWithFields("skipping malformed media item", map[string]interface{}{
				"item_id":  item.ID,
				"filename": item.Filename,
			})
			continue
		}
		if !item.IsImage() && !item.IsVideo() {
			p.logger.DebugWithFields("skipping unsupported media type", map[string]interface{}{
				"item_id":   item.ID,
				"mime_type": item.MimeType,
			})
			continue
		}

		target := ""
		rec, err := p.index.LookupItem(item.ID)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			target = rec.Path
		} else {
			target = filepath.Join(dir, storage.SanitizeFilename(item.Filename))
		}

		tasks = append(tasks, downloader.DownloadTask{
			ItemID:       item.ID,
			AlbumID:      albumID,
			URL:          photos.DownloadURL(item),
			TargetPath:   target,
			Description:  item.Description,
			CreationTime: item.MediaMetadata.CreationTime,
		})
	}

	return tasks, nil
}
