package blob

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/marginalia/internal/domain"
)

func TestMemory_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	data := []byte{0x00, 0xff, 0x10, 0x80}

	require.NoError(t, m.Put(ctx, &Record{ID: "file-1", Name: "a.bin", Size: 4, Data: data, CreatedAt: time.Now()}))

	got, ok, err := m.Get(ctx, "file-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, data, got.Data)

	got.Data[0] = 0x01
	again, _, _ := m.Get(ctx, "file-1")
	assert.Equal(t, byte(0x00), again.Data[0], "callers get copies")

	require.NoError(t, m.Delete(ctx, "file-1"))
	require.NoError(t, m.Delete(ctx, "file-1"))

	_, ok, err = m.Get(ctx, "file-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_PutOverwrites(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Put(ctx, &Record{ID: "file-1", Data: []byte("one")}))
	require.NoError(t, m.Put(ctx, &Record{ID: "file-1", Data: []byte("two")}))

	got, ok, err := m.Get(ctx, "file-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "two", string(got.Data))
	assert.Equal(t, 1, m.Len())
}

func TestClassify(t *testing.T) {
	pdf := []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\n")

	tests := []struct {
		name     string
		file     string
		declared string
		data     []byte
		wantMIME string
		wantType domain.FileType
	}{
		{"declared pdf", "x.bin", "application/pdf", nil, "application/pdf", domain.FileTypePDF},
		{"sniffed pdf", "paper", "", pdf, "application/pdf", domain.FileTypePDF},
		{"declared with params", "a.txt", "text/plain; charset=utf-8", nil, "text/plain", domain.FileTypeText},
		{"markdown by extension", "notes.md", "application/octet-stream", []byte{0x00, 0x01}, "application/octet-stream", domain.FileTypeText},
		{"image", "c.png", "image/png", nil, "image/png", domain.FileTypeImage},
		{"other", "d.zip", "application/zip", nil, "application/zip", domain.FileTypeOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mime, ft := Classify(tt.file, tt.declared, tt.data)
			assert.Equal(t, tt.wantMIME, mime)
			assert.Equal(t, tt.wantType, ft)
		})
	}
}
