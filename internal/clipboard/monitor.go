package clipboard

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultPollInterval is the latency/CPU tradeoff for change
	// detection; the OS clipboard has no portable change notification.
	DefaultPollInterval = 500 * time.Millisecond

	// errorBackoff is slept after a failed clipboard read before the
	// loop retries.
	errorBackoff = time.Second

	// stopGrace bounds how long Stop waits for the loop to exit.
	stopGrace = 2 * time.Second
)

// Monitor polls the clipboard on its own goroutine and emits the new
// content to registered handlers whenever it changes. Handlers run on
// the monitor goroutine in registration order; consumers that do slow
// work must hand it off.
type Monitor struct {
	clip     Clipboard
	interval time.Duration

	mu       sync.Mutex
	handlers []func(content string)
	running  bool
	stopChan chan struct{}
	done     chan struct{}

	// lastContent is only touched by the polling goroutine once
	// Start has seeded it.
	lastContent string
}

// NewMonitor creates a monitor over clip. interval <= 0 selects
// DefaultPollInterval.
func NewMonitor(clip Clipboard, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Monitor{
		clip:     clip,
		interval: interval,
	}
}

// OnChange registers a handler for clipboard changes. Delivery to a
// single handler is FIFO per emission.
func (m *Monitor) OnChange(handler func(content string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, handler)
}

// Start reads the current clipboard as a baseline (never emitted) and
// begins polling.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return fmt.Errorf("monitor is already running")
	}

	baseline, err := m.clip.Read()
	if err != nil {
		// Not fatal: the loop retries, the baseline stays empty.
		slog.Warn("failed to read clipboard baseline", "error", err)
	}
	m.lastContent = baseline
	m.stopChan = make(chan struct{})
	m.done = make(chan struct{})
	m.running = true

	go m.loop(m.stopChan, m.done)

	slog.Debug("clipboard monitor started", "interval", m.interval)
	return nil
}

// Stop requests a cooperative shutdown and waits up to a bounded
// grace period for the loop to observe it.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	stopChan, done := m.stopChan, m.done
	m.mu.Unlock()

	close(stopChan)

	select {
	case <-done:
		slog.Debug("clipboard monitor stopped")
		return nil
	case <-time.After(stopGrace):
		return fmt.Errorf("monitor did not stop within %s", stopGrace)
	}
}

func (m *Monitor) loop(stopChan <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	timer := time.NewTimer(m.interval)
	defer timer.Stop()

	for {
		select {
		case <-stopChan:
			return
		case <-timer.C:
			timer.Reset(m.poll())
		}
	}
}

// poll samples the clipboard once and returns how long to sleep
// before the next sample.
func (m *Monitor) poll() time.Duration {
	current, err := m.clip.Read()
	if err != nil {
		slog.Error("clipboard read failed", "error", err)
		return errorBackoff
	}

	if current != m.lastContent {
		// Track empty values too, so a later transition away from
		// empty is still seen as a change.
		m.lastContent = current
		if strings.TrimSpace(current) != "" {
			m.emit(current)
		}
	}

	return m.interval
}

func (m *Monitor) emit(content string) {
	m.mu.Lock()
	handlers := make([]func(string), len(m.handlers))
	copy(handlers, m.handlers)
	m.mu.Unlock()

	for _, handler := range handlers {
		handler(content)
	}
}
