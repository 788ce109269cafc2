// Package clipboard wraps the OS clipboard behind a small interface
// and provides a polling monitor that detects content changes.
package clipboard

import "github.com/atotto/clipboard"

// Clipboard is the platform read/write primitive the monitor and the
// re-copy path depend on.
type Clipboard interface {
	// Read returns the current text payload of the system clipboard,
	// empty when the clipboard holds no text.
	Read() (string, error)

	// Write replaces the system clipboard with content.
	Write(content string) error
}

// System is the real clipboard, backed by the platform commands the
// atotto library shells out to (pbcopy/pbpaste, xclip/xsel, etc.).
type System struct{}

func NewSystem() *System {
	return &System{}
}

func (*System) Read() (string, error) {
	return clipboard.ReadAll()
}

func (*System) Write(content string) error {
	return clipboard.WriteAll(content)
}
