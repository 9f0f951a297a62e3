// Package reconcile runs the polling loop that keeps the local clipboard and
// the shared remote folder converged.
//
// Each tick pulls the newest peer content (rate-limited by the remote
// client), applies it, and then looks for a local change to capture and push.
// The loop is single-threaded; every blocking call below it carries its own
// timeout.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"go.klb.dev/clipson/internal/capture"
	"go.klb.dev/clipson/internal/fingerprint"
	"go.klb.dev/clipson/internal/notify"
	"go.klb.dev/clipson/internal/remote"
	"go.klb.dev/clipson/internal/snapshot"
)

const (
	// DefaultTick is the time between two reconciliation cycles.
	DefaultTick = 500 * time.Millisecond
	// PanicBackoff is how long the loop pauses after a cycle panics.
	PanicBackoff = time.Second

	previewLen = 50
)

// Clipboard is the local clipboard as seen by the loop.
type Clipboard interface {
	fingerprint.Reader
	Apply(s snapshot.Snapshot) bool
}

// Remote is the shared folder as seen by the loop.
type Remote interface {
	PollForUpdates() *remote.Update
	Push(jsonPath string) bool
}

// Captures persists local snapshots.
type Captures interface {
	Save(s snapshot.Snapshot) (capture.Capture, error)
}

// Loop owns the "last known" fingerprint and drives one cycle per tick.
type Loop struct {
	clipboard Clipboard
	engine    *fingerprint.Engine
	captures  Captures
	remote    Remote
	notifier  notify.Notifier
	tick      time.Duration
	backoff   time.Duration

	last fingerprint.Fingerprint
}

// New wires a Loop. A nil notifier disables notifications; a zero tick means
// DefaultTick.
func New(cb Clipboard, captures Captures, r Remote, n notify.Notifier, tick time.Duration) *Loop {
	if n == nil {
		n = notify.Nop{}
	}
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Loop{
		clipboard: cb,
		engine:    fingerprint.NewEngine(cb),
		captures:  captures,
		remote:    r,
		notifier:  n,
		tick:      tick,
		backoff:   PanicBackoff,
	}
}

// Last returns the last known fingerprint.
func (l *Loop) Last() fingerprint.Fingerprint { return l.last }

// Run ticks until ctx is cancelled. A panicking cycle is logged and the loop
// resumes after PanicBackoff.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("reconciliation loop stopped")
			return nil
		case <-ticker.C:
			if err := l.safeTick(); err != nil {
				slog.Error("reconciliation cycle failed", "err", err)
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(l.backoff):
				}
			}
		}
	}
}

func (l *Loop) safeTick() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	l.Tick()
	return nil
}

// Tick runs one reconciliation cycle.
func (l *Loop) Tick() {
	l.Pull()

	snap, cur := l.engine.Current()
	if !fingerprint.Changed(l.last, cur) {
		return
	}
	l.capture(snap, cur)
}

// Pull applies the newest peer update, if any, and reports whether the
// clipboard changed. The last known fingerprint is taken from what the
// clipboard reports after the write, since backends may keep only some
// formats or normalise content.
func (l *Loop) Pull() bool {
	u := l.remote.PollForUpdates()
	if u == nil {
		return false
	}
	if !l.clipboard.Apply(u.Snapshot) {
		slog.Warn("remote update not applied", "peer", u.Peer)
		return false
	}
	_, l.last = l.engine.Current()
	logSnapshot("remote update applied", u.Peer, u.Snapshot)
	l.notifier.Notify(notify.AppName,
		fmt.Sprintf("Remote update from %s: %s", u.Peer, snapshot.Preview(u.Snapshot, previewLen)))
	return true
}

func (l *Loop) capture(snap snapshot.Snapshot, cur fingerprint.Fingerprint) {
	c, err := l.captures.Save(snap)
	if err != nil {
		slog.Warn("capture failed", "kind", snap.Kind(), "err", err)
		return
	}
	l.last = cur
	logSnapshot("clipboard captured", c.SyncFile, snap)
	slog.Debug("capture written", "number", c.Number, "paths", c.Paths)

	if c.First {
		slog.Info("first capture after startup, not pushing", "kind", c.Kind)
	} else {
		l.remote.Push(c.SyncFile)
	}
	l.notifier.Notify(notify.AppName, captureMessage(c, snap))
}

func captureMessage(c capture.Capture, snap snapshot.Snapshot) string {
	switch snap.Kind() {
	case snapshot.KindImage:
		return "Image captured: " + filepath.Base(c.Paths[0])
	case snapshot.KindRich:
		return fmt.Sprintf("Rich content captured: %d formats", len(c.Paths))
	default:
		return "Captured: " + snapshot.Preview(snap, previewLen)
	}
}
