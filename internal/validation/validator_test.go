package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/marginalia/internal/domain"
	"github.com/listenupapp/marginalia/internal/errors"
	"github.com/listenupapp/marginalia/internal/validation"
)

func intPtr(v int) *int { return &v }

func details(t *testing.T, err error) map[string]string {
	t.Helper()
	var e *errors.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, errors.CodeValidation, e.Code)
	d, ok := e.Details.(map[string]string)
	require.True(t, ok)
	return d
}

func TestValidator_ValidBook(t *testing.T) {
	v := validation.New()

	err := v.Validate(domain.BookInput{Title: "Dune", Rating: intPtr(5), Type: domain.BookTypePaper})
	assert.NoError(t, err)
}

func TestValidator_BookErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name  string
		in    domain.BookInput
		field string
		msg   string
	}{
		{"missing title", domain.BookInput{}, "title", "is required"},
		{"rating too high", domain.BookInput{Title: "x", Rating: intPtr(6)}, "rating", "must be at most 5"},
		{"rating too low", domain.BookInput{Title: "x", Rating: intPtr(-1)}, "rating", "must be at least 1"},
		{"bad status", domain.BookInput{Title: "x", Status: "shelved"}, "status", "must be one of: unread reading completed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrValidation)
			assert.Equal(t, tt.msg, details(t, err)[tt.field])
		})
	}
}

func TestValidator_NestedPaths(t *testing.T) {
	v := validation.New()

	err := v.Validate(domain.PDFAnnotationInput{
		BookID: "book-1",
		Page:   1,
		Rects:  []domain.Rect{{X: 0.1, Y: 0.2, Width: 1.5, Height: 0.1}},
	})

	require.Error(t, err)
	assert.Equal(t, "must be less than or equal to 1", details(t, err)["rects[0].width"])
}

func TestValidator_FormatTags(t *testing.T) {
	v := validation.New()

	err := v.Validate(domain.CategoryInput{Name: "Poetry", Color: "blue"})
	require.Error(t, err)
	assert.Contains(t, details(t, err)["color"], "hex color")

	err = v.Validate(domain.ProjectInput{Name: "Thesis", StartDate: "03/01/2024"})
	require.Error(t, err)
	assert.Equal(t, "must be a date formatted as 2006-01-02", details(t, err)["startDate"])
}
