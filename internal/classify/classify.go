// Package classify derives a content-type tag and a bounded preview
// from raw clipboard text. It is pure and holds no state.
package classify

import (
	"strings"

	"foreverclip/pkg/types"
)

// DefaultPreviewLength is the preview budget used at write time.
const DefaultPreviewLength = 50

// previewMarker is appended whenever a preview is truncated.
const previewMarker = "..."

// DetectContentType classifies content by shape. Checks run in
// priority order: url, file, multiline, text; first match wins.
func DetectContentType(content string) string {
	switch {
	case strings.HasPrefix(content, "http://") || strings.HasPrefix(content, "https://"):
		return types.TypeURL
	case strings.HasPrefix(content, "file://"):
		return types.TypeFile
	case isMultiline(content):
		return types.TypeMultiline
	default:
		return types.TypeText
	}
}

// isMultiline reports whether content spans more than one line. A
// single trailing newline does not make a second line.
func isMultiline(content string) bool {
	idx := strings.IndexByte(content, '\n')
	return idx >= 0 && idx < len(content)-1
}

// CreatePreview returns content unchanged when it fits in maxLength.
// Otherwise it takes the first maxLength characters, backs up to the
// last space when that space sits past 70% of maxLength, and appends
// the truncation marker. Lengths count code points, not bytes, so
// multibyte content is never cut mid-rune.
func CreatePreview(content string, maxLength int) string {
	runes := []rune(content)
	if len(runes) <= maxLength {
		return content
	}

	preview := runes[:maxLength]
	idx := -1
	for i := len(preview) - 1; i >= 0; i-- {
		if preview[i] == ' ' {
			idx = i
			break
		}
	}
	if float64(idx) > float64(maxLength)*0.7 {
		preview = preview[:idx]
	}

	return string(preview) + previewMarker
}
