// Package notify shows desktop notifications for captures and remote
// updates.
package notify

import (
	"log/slog"
	"sync"

	"github.com/gen2brain/beeep"
)

// AppName is the title prefix of every notification.
const AppName = "ClipSon"

// Notifier displays a short message to the user. Implementations never fail
// the caller: a notification that cannot be shown is logged and dropped.
type Notifier interface {
	Notify(title, message string)
}

// Desktop sends native notifications through beeep (libnotify / D-Bus on
// Linux).
type Desktop struct{}

func (Desktop) Notify(title, message string) {
	if err := beeep.Notify(title, message, ""); err != nil {
		slog.Debug("notification failed", "title", title, "err", err)
	}
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Notify(string, string) {}

// Recorder keeps notifications in memory. Tests use it to assert on what the
// user would have seen.
type Recorder struct {
	mu       sync.Mutex
	Messages []Message
}

// Message is one recorded notification.
type Message struct {
	Title, Body string
}

func (r *Recorder) Notify(title, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, Message{Title: title, Body: message})
}

// Bodies returns the recorded message bodies in order.
func (r *Recorder) Bodies() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Messages))
	for i, m := range r.Messages {
		out[i] = m.Body
	}
	return out
}

// New returns Desktop when enabled and Nop otherwise.
func New(enabled bool) Notifier {
	if enabled {
		return Desktop{}
	}
	return Nop{}
}
