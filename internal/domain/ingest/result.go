// Package ingest holds the per-file outcome type for batch document ingestion.
package ingest

// FileStatus is the processing outcome of a single file in an ingestion batch.
type FileStatus string

// File status values.
const (
	StatusOK    FileStatus = "ok"
	StatusError FileStatus = "error"
)

// Result is the outcome of ingesting one file. A failed file never aborts
// the rest of the batch, so callers receive one Result per submitted file.
type Result struct {
	file   string
	status FileStatus
	chunks int
	err    error
}

// NewOK creates a successful ingestion result with the number of chunks indexed.
func NewOK(file string, chunks int) Result {
	return Result{file: file, status: StatusOK, chunks: chunks}
}

// NewError creates a failed ingestion result.
func NewError(file string, err error) Result {
	return Result{file: file, status: StatusError, err: err}
}

// File returns the source file name.
func (r Result) File() string { return r.file }

// Status returns the processing outcome.
func (r Result) Status() FileStatus { return r.status }

// Chunks returns the number of chunks indexed from this file.
func (r Result) Chunks() int { return r.chunks }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }
