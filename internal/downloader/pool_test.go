package downloader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"gparchiver/pkg/metadata"
)

// MockFetcher is a mock implementation of the media fetcher
type MockFetcher struct {
	data            []byte
	downloadDelay   time.Duration
	downloadError   error
	failForURL      string
	downloadCounter int32
}

func (m *MockFetcher) Download(url string) (io.ReadCloser, error) {
	atomic.AddInt32(&m.downloadCounter, 1)
	if m.downloadDelay > 0 {
		time.Sleep(m.downloadDelay)
	}
	if m.downloadError != nil {
		return nil, m.downloadError
	}
	if m.failForURL != "" && url == m.failForURL {
		return nil, errors.New("simulated download failure")
	}
	data := m.data
	if data == nil {
		data = []byte("mock media data")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MockFetcher) GetDownloadCount() int {
	return int(atomic.LoadInt32(&m.downloadCounter))
}

// MockEmbedder records embed calls
type MockEmbedder struct {
	embedded   int32
	embedError error
}

func (m *MockEmbedder) Embed(path, description, creationTime string) (metadata.Mode, error) {
	atomic.AddInt32(&m.embedded, 1)
	if m.embedError != nil {
		return "", m.embedError
	}
	return metadata.ModeSidecar, nil
}

func makeTask(dir, id string) DownloadTask {
	return DownloadTask{
		ItemID:     id,
		URL:        "https://example.com/" + id + "=d",
		TargetPath: filepath.Join(dir, id+".jpg"),
	}
}

func collectOutcomes(pool *WorkerPool) []Outcome {
	var outcomes []Outcome
	for outcome := range pool.Results() {
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

func TestWorkerPoolDownloadsAllTasks(t *testing.T) {
	dir := t.TempDir()
	client := &MockFetcher{downloadDelay: 5 * time.Millisecond}

	pool := NewWorkerPool(3, client, nil, nil)
	pool.Start()

	numTasks := 10
	go func() {
		for i := 0; i < numTasks; i++ {
			pool.Submit(makeTask(dir, fmt.Sprintf("item%d", i)))
		}
		pool.Stop()
	}()

	outcomes := collectOutcomes(pool)

	if len(outcomes) != numTasks {
		t.Fatalf("expected %d outcomes, got %d", numTasks, len(outcomes))
	}
	for _, outcome := range outcomes {
		if outcome.Kind != OutcomeDownloaded {
			t.Errorf("item %s: expected downloaded, got %s (err=%v)",
				outcome.Task.ItemID, outcome.Kind, outcome.Err)
		}
		if outcome.Size == 0 {
			t.Errorf("item %s: expected nonzero size", outcome.Task.ItemID)
		}
		if _, err := os.Stat(outcome.Path); err != nil {
			t.Errorf("item %s: file missing at %s", outcome.Task.ItemID, outcome.Path)
		}
	}
	if client.GetDownloadCount() != numTasks {
		t.Errorf("expected %d downloads, got %d", numTasks, client.GetDownloadCount())
	}
}

func TestWorkerPoolSkipsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	client := &MockFetcher{}

	task := makeTask(dir, "existing")
	if err := os.WriteFile(task.TargetPath, []byte("old bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	pool := NewWorkerPool(1, client, nil, nil)
	pool.Start()
	go func() {
		pool.Submit(task)
		pool.Stop()
	}()

	outcomes := collectOutcomes(pool)

	if len(outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(outcomes))
	}
	if outcomes[0].Kind != OutcomeAlreadyPresent {
		t.Errorf("expected already_present, got %s", outcomes[0].Kind)
	}
	if outcomes[0].Path != task.TargetPath {
		t.Errorf("expected path %s, got %s", task.TargetPath, outcomes[0].Path)
	}
	if client.GetDownloadCount() != 0 {
		t.Errorf("expected no network calls, got %d", client.GetDownloadCount())
	}

	// The existing file is left untouched.
	data, err := os.ReadFile(task.TargetPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "old bytes" {
		t.Errorf("existing file was modified")
	}
}

func TestWorkerPoolFailureDoesNotAffectSiblings(t *testing.T) {
	dir := t.TempDir()
	client := &MockFetcher{failForURL: "https://example.com/item3=d"}

	pool := NewWorkerPool(3, client, nil, nil)
	pool.Start()

	numTasks := 8
	go func() {
		for i := 0; i < numTasks; i++ {
			pool.Submit(makeTask(dir, fmt.Sprintf("item%d", i)))
		}
		pool.Stop()
	}()

	outcomes := collectOutcomes(pool)

	if len(outcomes) != numTasks {
		t.Fatalf("expected %d outcomes, got %d", numTasks, len(outcomes))
	}

	downloaded, failed := 0, 0
	for _, outcome := range outcomes {
		switch outcome.Kind {
		case OutcomeDownloaded:
			downloaded++
		case OutcomeFailed:
			failed++
			if outcome.Task.ItemID != "item3" {
				t.Errorf("unexpected failure for %s: %v", outcome.Task.ItemID, outcome.Err)
			}
			if outcome.Err == nil {
				t.Error("failed outcome carries no error")
			}
		}
	}
	if downloaded != numTasks-1 || failed != 1 {
		t.Errorf("expected %d downloaded and 1 failed, got %d/%d", numTasks-1, downloaded, failed)
	}
}

func TestWorkerPoolEmbedsMetadata(t *testing.T) {
	dir := t.TempDir()
	client := &MockFetcher{}
	embedder := &MockEmbedder{}

	pool := NewWorkerPool(2, client, embedder, nil)
	pool.Start()
	go func() {
		withMeta := makeTask(dir, "described")
		withMeta.Description = "a description"
		pool.Submit(withMeta)
		pool.Submit(makeTask(dir, "plain"))
		pool.Stop()
	}()

	outcomes := collectOutcomes(pool)

	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	for _, outcome := range outcomes {
		if outcome.Kind != OutcomeDownloaded {
			t.Errorf("item %s: expected downloaded, got %s", outcome.Task.ItemID, outcome.Kind)
		}
	}
	// Only the task with a description triggers an embed.
	if n := atomic.LoadInt32(&embedder.embedded); n != 1 {
		t.Errorf("expected 1 embed call, got %d", n)
	}
}

func TestWorkerPoolEmbedFailureKeepsFile(t *testing.T) {
	dir := t.TempDir()
	client := &MockFetcher{}
	embedder := &MockEmbedder{embedError: errors.New("no xmp support")}

	pool := NewWorkerPool(1, client, embedder, nil)
	pool.Start()
	go func() {
		task := makeTask(dir, "item")
		task.Description = "desc"
		pool.Submit(task)
		pool.Stop()
	}()

	outcomes := collectOutcomes(pool)

	if len(outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(outcomes))
	}
	if outcomes[0].Kind != OutcomeDownloaded {
		t.Errorf("expected downloaded despite embed failure, got %s", outcomes[0].Kind)
	}
	if _, err := os.Stat(outcomes[0].Path); err != nil {
		t.Errorf("file missing after embed failure: %v", err)
	}
}
