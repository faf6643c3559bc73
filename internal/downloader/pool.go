package downloader

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"gparchiver/pkg/logger"
	"gparchiver/pkg/metadata"
	"gparchiver/pkg/storage"
)

// DownloadTask fully specifies one media download. Tasks are derived per run
// and never persisted.
type DownloadTask struct {
	ItemID       string
	AlbumID      string // empty for library and favorites items
	URL          string
	TargetPath   string
	Description  string
	CreationTime string
}

// OutcomeKind is the terminal result classification of one task.
type OutcomeKind string

const (
	// OutcomeDownloaded means the item's bytes were fetched and written.
	OutcomeDownloaded OutcomeKind = "downloaded"

	// OutcomeAlreadyPresent means a file already existed at the target
	// path; no network call was made.
	OutcomeAlreadyPresent OutcomeKind = "already_present"

	// OutcomeFailed means the fetch or write failed; the task is dropped
	// without retry and reconsidered on the next full run.
	OutcomeFailed OutcomeKind = "failed"
)

// Outcome is the result of one task. Path carries the final local path for
// OutcomeDownloaded; it can differ from the task's target when a numeric
// suffix was needed at write time.
type Outcome struct {
	Task     DownloadTask
	Kind     OutcomeKind
	Path     string
	Err      error
	Size     int64
	Duration time.Duration
}

// MediaFetcher streams a media item's bytes.
type MediaFetcher interface {
	Download(url string) (io.ReadCloser, error)
}

// MetadataWriter embeds descriptive metadata into a downloaded file.
type MetadataWriter interface {
	Embed(path, description, creationTime string) (metadata.Mode, error)
}

// WorkerPool runs download tasks over a bounded set of concurrent workers.
// It is per-batch: construct, Start, Submit every task, Stop, and consume
// Results in completion order.
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan DownloadTask
	resultQueue chan Outcome
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	client      MediaFetcher
	embedder    MetadataWriter
	logger      logger.Logger
}

// NewWorkerPool creates a download worker pool. embedder may be nil when no
// metadata should be written.
func NewWorkerPool(numWorkers int, client MediaFetcher, embedder MetadataWriter, log logger.Logger) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	if log == nil {
		log = logger.GetLogger()
	}

	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan DownloadTask, numWorkers*2),
		resultQueue: make(chan Outcome, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		client:      client,
		embedder:    embedder,
		logger:      log,
	}
}

// Start launches the workers.
func (wp *WorkerPool) Start() {
	wp.logger.DebugWithFields("starting worker pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop signals that no more tasks will be submitted, waits for the workers
// to drain the queue, and closes the result channel.
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()
}

// Submit adds a task to the queue.
func (wp *WorkerPool) Submit(task DownloadTask) error {
	select {
	case wp.jobQueue <- task:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down")
	}
}

// Results returns the channel on which outcomes arrive in completion order.
func (wp *WorkerPool) Results() <-chan Outcome {
	return wp.resultQueue
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for task := range wp.jobQueue {
		outcome := wp.runTask(task, id)

		select {
		case wp.resultQueue <- outcome:
		case <-wp.ctx.Done():
			return
		}
	}
}

// runTask executes one task. A panic anywhere inside is converted to a
// Failed outcome so one broken task can never abort its siblings.
func (wp *WorkerPool) runTask(task DownloadTask, workerID int) (outcome Outcome) {
	start := time.Now()
	outcome = Outcome{Task: task, Kind: OutcomeFailed}

	defer func() {
		if r := recover(); r != nil {
			outcome.Kind = OutcomeFailed
			outcome.Err = fmt.Errorf("unexpected panic: %v", r)
			outcome.Duration = time.Since(start)
			wp.logger.ErrorWithFields("worker recovered from panic", map[string]interface{}{
				"worker_id": workerID,
				"item_id":   task.ItemID,
				"panic":     fmt.Sprint(r),
			})
		}
	}()

	// Primary idempotence guard: a file at the target path means the item
	// was archived before, possibly by a run whose index insert never
	// happened. No network call is made.
	if _, err := os.Stat(task.TargetPath); err == nil {
		outcome.Kind = OutcomeAlreadyPresent
		outcome.Path = task.TargetPath
		outcome.Duration = time.Since(start)
		return outcome
	}

	body, err := wp.client.Download(task.URL)
	if err != nil {
		outcome.Err = fmt.Errorf("download failed: %w", err)
		outcome.Duration = time.Since(start)
		wp.logger.ErrorWithFields("worker failed to download media item", map[string]interface{}{
			"worker_id": workerID,
			"item_id":   task.ItemID,
			"error":     err.Error(),
		})
		return outcome
	}
	defer body.Close()

	// Re-resolve the name at write time: a sibling worker may have created
	// a same-named file since the check above.
	finalPath, err := storage.EnsureFilename(task.TargetPath)
	if err != nil {
		outcome.Err = fmt.Errorf("path resolution failed: %w", err)
		outcome.Duration = time.Since(start)
		return outcome
	}

	size, err := storage.SaveStream(body, finalPath)
	if err != nil {
		outcome.Err = fmt.Errorf("save failed: %w", err)
		outcome.Duration = time.Since(start)
		wp.logger.ErrorWithFields("worker failed to save media item", map[string]interface{}{
			"worker_id": workerID,
			"item_id":   task.ItemID,
			"error":     err.Error(),
		})
		return outcome
	}

	// Metadata is best effort; the file is kept either way.
	if wp.embedder != nil && (task.Description != "" || task.CreationTime != "") {
		if _, err := wp.embedder.Embed(finalPath, task.Description, task.CreationTime); err != nil {
			wp.logger.WarnWithFields("failed to embed metadata", map[string]interface{}{
				"worker_id": workerID,
				"item_id":   task.ItemID,
				"path":      finalPath,
				"error":     err.Error(),
			})
		}
	}

	outcome.Kind = OutcomeDownloaded
	outcome.Path = finalPath
	outcome.Size = size
	outcome.Duration = time.Since(start)

	wp.logger.DebugWithFields("worker completed task", map[string]interface{}{
		"worker_id": workerID,
		"item_id":   task.ItemID,
		"path":      finalPath,
		"size":      size,
		"duration":  outcome.Duration,
	})

	return outcome
}

// QueueSize returns the number of queued tasks. Used for progress reporting.
func (wp *WorkerPool) QueueSize() int {
	return len(wp.jobQueue)
}
