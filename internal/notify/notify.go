// Package notify sends best-effort desktop notifications. Failures
// are logged and never propagate: a missing notification daemon must
// not affect capture.
package notify

import (
	"log/slog"

	"github.com/gen2brain/beeep"
)

const appTitle = "ForeverClipboard"

// Notifier posts desktop notifications when enabled.
type Notifier struct {
	enabled bool
}

func New(enabled bool) *Notifier {
	return &Notifier{enabled: enabled}
}

// Captured announces a newly stored clipboard entry with its preview.
func (n *Notifier) Captured(preview string) {
	if !n.enabled {
		return
	}
	if err := beeep.Notify(appTitle, "Copied: "+preview, ""); err != nil {
		slog.Debug("desktop notification failed", "error", err)
	}
}
