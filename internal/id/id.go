// Package id generates the identifiers used by the library: prefixed entity
// ids, device ids, and the short codes devices use to find each other's
// published snapshots.
package id

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Entity id prefixes.
const (
	PrefixBook          = "book"
	PrefixCategory      = "cat"
	PrefixProject       = "proj"
	PrefixNote          = "note"
	PrefixPDFAnnotation = "pdfa"
	PrefixAnnotation    = "ann"
	PrefixKnowledge     = "know"
	PrefixLesson        = "lesson"
	PrefixProjectFile   = "pfile"
	PrefixBlob          = "file"
)

// CodeLength is the number of characters in a sync code.
const CodeLength = 6

// CodeAlphabet excludes characters that are easy to confuse when read aloud
// or typed from another screen (0/O, 1/I/L).
const CodeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// Generate creates a prefixed unique ID using NanoID.
// Format: prefix-nanoid (e.g., "book-V1StGXR8_Z5jdHi6B-myT").
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// NewDeviceID returns a random identifier for this installation.
// It is generated once and persisted with the sync state.
func NewDeviceID() string {
	return "device-" + uuid.NewString()
}

// NewSyncCode returns a fresh CodeLength-character sync code.
func NewSyncCode() (string, error) {
	code, err := gonanoid.Generate(CodeAlphabet, CodeLength)
	if err != nil {
		return "", fmt.Errorf("generate sync code: %w", err)
	}
	return code, nil
}

// NormalizeCode trims and upper-cases a user-entered code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidCode reports whether a normalized code has the expected length and
// only uses characters from CodeAlphabet.
func ValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for _, r := range code {
		if !strings.ContainsRune(CodeAlphabet, r) {
			return false
		}
	}
	return true
}
