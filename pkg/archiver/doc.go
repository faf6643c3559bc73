// Package archiver orchestrates full archival runs.
//
// A run walks the selected collections in a fixed order (library, albums,
// shared albums, favorites), lists each one to completion, and feeds the
// resulting download tasks through a bounded worker pool. Runs are
// idempotent by design: the archive index and the on-disk files act as two
// independent guards, so repeating a run downloads only what is missing and
// a run killed at any point leaves the archive in a state the next run
// repairs.
package archiver
