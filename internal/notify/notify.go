// Package notify reports build failures to the developer: on the desktop via
// beeep and always through the logger. A failed notification never fails the
// task that triggered it.
package notify

import (
	"context"
	"sync"

	"github.com/gen2brain/beeep"

	"github.com/conneroisu/assetry/internal/logging"
)

// Notifier delivers a short title/message pair to the developer.
type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, title, message string) error

// Notify calls f.
func (f Func) Notify(ctx context.Context, title, message string) error {
	return f(ctx, title, message)
}

// Desktop shows a desktop notification.
type Desktop struct {
	// AppIcon is an optional icon path passed to the OS.
	AppIcon string

	send func(title, message, icon string) error
}

// NewDesktop returns a notifier backed by beeep.
func NewDesktop() *Desktop {
	return &Desktop{
		send: func(title, message, icon string) error {
			return beeep.Notify(title, message, icon)
		},
	}
}

// Notify implements Notifier.
func (d *Desktop) Notify(_ context.Context, title, message string) error {
	return d.send(title, message, d.AppIcon)
}

// Log writes notifications to a logger at error level.
type Log struct {
	Logger logging.Logger
}

// Notify implements Notifier.
func (l Log) Notify(ctx context.Context, title, message string) error {
	l.Logger.Error(ctx, nil, message, "title", title)
	return nil
}

// Multi fans a notification out to several notifiers. Delivery failures are
// logged and swallowed.
type Multi struct {
	logger    logging.Logger
	notifiers []Notifier
}

// NewMulti combines notifiers. logger receives delivery failures.
func NewMulti(logger logging.Logger, notifiers ...Notifier) *Multi {
	return &Multi{logger: logger, notifiers: notifiers}
}

// Notify implements Notifier and always returns nil.
func (m *Multi) Notify(ctx context.Context, title, message string) error {
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, title, message); err != nil {
			m.logger.Warn(ctx, err, "Notification could not be delivered", "title", title)
		}
	}
	return nil
}

// New builds the notifier used by the CLI: log output, plus desktop
// notifications when enabled.
func New(logger logging.Logger, desktop bool) Notifier {
	notifiers := []Notifier{Log{Logger: logger.WithComponent("notify")}}
	if desktop {
		notifiers = append(notifiers, NewDesktop())
	}
	return NewMulti(logger, notifiers...)
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

// Entry is one recorded notification.
type Entry struct {
	Title   string
	Message string
}

// Notify implements Notifier.
func (r *Recorder) Notify(_ context.Context, title, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Title: title, Message: message})
	return nil
}

// Entries returns a copy of everything recorded so far.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}
