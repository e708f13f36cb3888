package blob

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/listenupapp/marginalia/internal/domain"
)

const defaultMIME = "application/octet-stream"

// Classify resolves the MIME type and logical file type of an upload.
// A declared MIME type wins; otherwise the content is sniffed. Text files
// are recognised by extension as well, since sniffing plain text is
// unreliable for short or non-UTF-8 inputs.
func Classify(name, declared string, data []byte) (string, domain.FileType) {
	mime := strings.TrimSpace(strings.ToLower(declared))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if mime == "" || mime == defaultMIME {
		mime = mimetype.Detect(data).String()
		if i := strings.IndexByte(mime, ';'); i >= 0 {
			mime = mime[:i]
		}
	}
	return mime, fileTypeOf(name, mime)
}

func fileTypeOf(name, mime string) domain.FileType {
	switch ext := strings.ToLower(filepath.Ext(name)); {
	case mime == "application/pdf" || ext == ".pdf":
		return domain.FileTypePDF
	case strings.HasPrefix(mime, "text/") || ext == ".txt" || ext == ".md":
		return domain.FileTypeText
	case strings.HasPrefix(mime, "image/"):
		return domain.FileTypeImage
	default:
		return domain.FileTypeOther
	}
}
