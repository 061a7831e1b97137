package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRectValidate(t *testing.T) {
	tests := []struct {
		name    string
		rect    Rect
		wantErr bool
	}{
		{"full image", Rect{0, 0, 100, 50}, false},
		{"interior", Rect{10, 10, 20, 20}, false},
		{"zero width", Rect{10, 10, 10, 20}, true},
		{"zero height", Rect{10, 10, 20, 10}, true},
		{"inverted", Rect{20, 10, 10, 20}, true},
		{"negative origin", Rect{-1, 0, 10, 10}, true},
		{"past right edge", Rect{0, 0, 101, 10}, true},
		{"past bottom edge", Rect{0, 0, 10, 51}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rect.Validate(100, 50)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFormatFromMime(t *testing.T) {
	f, ok := FormatFromMime("application/pdf")
	require.True(t, ok)
	assert.Equal(t, FormatPDF, f)

	f, ok = FormatFromMime(MimeDOCX)
	require.True(t, ok)
	assert.Equal(t, FormatDOCX, f)

	f, ok = FormatFromMime("text/plain; charset=utf-8")
	require.True(t, ok)
	assert.Equal(t, FormatTXT, f)

	_, ok = FormatFromMime("image/png")
	assert.False(t, ok)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(".DOCX")
	require.NoError(t, err)
	assert.Equal(t, FormatDOCX, f)
	assert.Equal(t, ".docx", f.Extension())
	assert.Equal(t, MimeDOCX, f.ContentType())

	_, err = ParseFormat("odt")
	assert.Error(t, err)
}

func TestPixelSize(t *testing.T) {
	// US Letter at 150 dpi
	w, h := PixelSize(612, 792, 150)
	assert.Equal(t, 1275, w)
	assert.Equal(t, 1650, h)

	w, h = PixelSize(595.28, 841.89, 150)
	assert.Equal(t, 1240, w)
	assert.Equal(t, 1754, h)
}
