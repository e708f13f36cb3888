package stream

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEntity struct {
	ID   string `json:"id"`
	Data []byte `json:"data"`
}

func TestWriterReader_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	w, err := NewWriter[testEntity](zw, "blobs.jsonl")
	require.NoError(t, err)

	entities := []testEntity{
		{ID: "1", Data: []byte("first")},
		{ID: "2", Data: []byte{0x00, 0xff, 0x10}},
		{ID: "3", Data: bytes.Repeat([]byte("x"), 200_000)},
	}
	for _, e := range entities {
		require.NoError(t, w.Write(e))
	}
	assert.Equal(t, 3, w.Count())
	require.NoError(t, zw.Close())

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	rc, err := OpenFile(zr, "blobs.jsonl")
	require.NoError(t, err)

	var got []testEntity
	for entity, err := range NewReader[testEntity](rc).All() {
		require.NoError(t, err)
		got = append(got, entity)
	}
	assert.Equal(t, entities, got)
}

func TestOpenFile_NotFound(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, zip.NewWriter(&buf).Close())

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	_, err = OpenFile(zr, "nonexistent.jsonl")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestReader_ContinuesOnParseError(t *testing.T) {
	jsonl := `{"id":"1"}
{bad json}

{"id":"2"}
`
	reader := NewReader[testEntity](io.NopCloser(strings.NewReader(jsonl)))

	var good []string
	var errs []error
	for entity, err := range reader.All() {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		good = append(good, entity.ID)
	}

	assert.Equal(t, []string{"1", "2"}, good)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "line 2:")
}
