// Package stream reads and writes JSON Lines files inside backup archives.
package stream

import (
	"archive/zip"
	"encoding/json"
)

// Writer appends records of type T, one JSON document per line, to a single
// archive member.
type Writer[T any] struct {
	enc   *json.Encoder
	count int
}

// NewWriter creates the member path in zw. The member stays open until the
// next Create on zw or zw.Close.
func NewWriter[T any](zw *zip.Writer, path string) (*Writer[T], error) {
	w, err := zw.Create(path)
	if err != nil {
		return nil, err
	}
	return &Writer[T]{enc: json.NewEncoder(w)}, nil
}

// Write appends rec as one line.
func (w *Writer[T]) Write(rec T) error {
	if err := w.enc.Encode(rec); err != nil {
		return err
	}
	w.count++
	return nil
}

// Count returns the number of records written.
func (w *Writer[T]) Count() int {
	return w.count
}
