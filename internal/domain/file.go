package domain

// FileType is the logical classification of an attached file, independent of
// its declared MIME type.
type FileType string

// FileType values.
const (
	FileTypePDF   FileType = "pdf"
	FileTypeText  FileType = "text"
	FileTypeImage FileType = "image"
	FileTypeOther FileType = "other"
)

// Readable reports whether the reader views can open files of this type.
func (t FileType) Readable() bool {
	return t == FileTypePDF || t == FileTypeText
}
