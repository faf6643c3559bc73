package ui

import (
	"fmt"
	"time"
)

// StatusTracker accumulates per-run archival counters and renders them as a
// single rewriting terminal line.
type StatusTracker struct {
	Downloaded int
	Present    int
	Failed     int
	Bytes      int64
	StartTime  time.Time

	collection string
	quiet      bool
}

// NewStatusTracker creates a new status tracker
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{
		StartTime: time.Now(),
	}
}

// SetQuiet suppresses all terminal output from the tracker.
func (st *StatusTracker) SetQuiet(quiet bool) {
	st.quiet = quiet
}

// BeginCollection announces the collection whose items are being archived.
func (st *StatusTracker) BeginCollection(name string) {
	st.collection = name
	if !st.quiet {
		fmt.Printf("\n%s %s\n", Magenta("[ARCHIVING]"), Yellow(name))
	}
}

// RecordDownloaded counts one downloaded item.
func (st *StatusTracker) RecordDownloaded(size int64) {
	st.Downloaded++
	st.Bytes += size
	st.printProgress()
}

// RecordPresent counts one item whose file already existed.
func (st *StatusTracker) RecordPresent() {
	st.Present++
	st.printProgress()
}

// RecordFailed counts one failed item.
func (st *StatusTracker) RecordFailed() {
	st.Failed++
	st.printProgress()
}

// GetElapsedTime returns the elapsed time since tracking started
func (st *StatusTracker) GetElapsedTime() time.Duration {
	return time.Since(st.StartTime)
}

// Summary renders the end-of-run totals.
func (st *StatusTracker) Summary() string {
	return fmt.Sprintf("%d downloaded (%s), %d already present, %d failed in %s",
		st.Downloaded,
		formatBytes(st.Bytes),
		st.Present,
		st.Failed,
		st.GetElapsedTime().Round(time.Second))
}

func (st *StatusTracker) printProgress() {
	if st.quiet {
		return
	}
	fmt.Printf("\r%s %d new | %d present | %d failed",
		Green("[ARCHIVED]"),
		st.Downloaded,
		st.Present,
		st.Failed)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGT"[exp])
}
