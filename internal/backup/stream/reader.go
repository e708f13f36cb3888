package stream

import (
	"archive/zip"
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
)

// ErrFileNotFound indicates a file was not found in the backup archive.
var ErrFileNotFound = errors.New("file not found in backup")

// maxLine bounds a single JSONL record. Blob records carry base64 file
// contents, so this is well above the default scanner buffer.
const maxLine = 256 << 20

// OpenFile finds and opens a file from a zip archive.
func OpenFile(zr *zip.Reader, path string) (io.ReadCloser, error) {
	for _, f := range zr.File {
		if f.Name == path {
			return f.Open()
		}
	}
	return nil, ErrFileNotFound
}

// Reader decodes records of type T from a JSON Lines member.
type Reader[T any] struct {
	rc      io.ReadCloser
	scanner *bufio.Scanner
}

// NewReader wraps rc. All closes rc when iteration ends.
func NewReader[T any](rc io.ReadCloser) *Reader[T] {
	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	return &Reader[T]{
		rc:      rc,
		scanner: scanner,
	}
}

// All yields each record in file order. Blank lines are skipped. A line that
// does not decode yields an error naming its line number and iteration moves
// on to the next line, so the caller decides whether one bad record is fatal.
func (r *Reader[T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		defer r.rc.Close()

		var zero T
		line := 0
		for r.scanner.Scan() {
			line++
			raw := r.scanner.Bytes()
			if len(raw) == 0 {
				continue
			}

			var rec T
			if err := json.Unmarshal(raw, &rec); err != nil {
				if !yield(zero, fmt.Errorf("line %d: %w", line, err)) {
					return
				}
				continue
			}
			if !yield(rec, nil) {
				return
			}
		}

		if err := r.scanner.Err(); err != nil {
			yield(zero, fmt.Errorf("line %d: %w", line+1, err))
		}
	}
}
