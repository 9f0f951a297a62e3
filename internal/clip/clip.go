// Package clip provides access to the system clipboard through interchangeable
// backends:
//
//	copyq.go   CopyQ daemon, atomic multi-format writes
//	xclip.go   xclip, one target per write
//	native.go  golang.design/x/clipboard, text and PNG only
//	memory.go  in-process clipboard used by tests
//
// Backends return errors. The Adapter in adapter.go turns every failure into
// "absent" so the polling loop never stops on a clipboard error.
package clip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"slices"
	"strings"
	"time"
)

// Backend kinds accepted by Open.
const (
	KindCopyQ  = "copyq"
	KindXClip  = "xclip"
	KindNative = "native"
)

// MIME types and X11 targets clipson cares about.
const (
	MIMEText = "text/plain"
	MIMEHTML = "text/html"
	MIMERTF  = "text/rtf"
	MIMEPNG  = "image/png"
)

// ProbeTimeout bounds the responsiveness check run before trusting a backend.
const ProbeTimeout = 3 * time.Second

var (
	// ErrUnsupportedTarget is returned by backends that cannot handle a MIME type.
	ErrUnsupportedTarget = errors.New("clip: unsupported target")
	// ErrNoMultiFormat is returned by WriteFormats on single-format backends.
	ErrNoMultiFormat = errors.New("clip: backend cannot write several formats at once")
)

// ImageTargets are the MIME types that mark the clipboard as holding an image.
var ImageTargets = []string{"image/png", "image/jpeg", "image/gif", "image/bmp", "image/tiff"}

// RichTargets are the MIME types that mark the clipboard as holding rich content.
var RichTargets = []string{
	"text/html", "text/rtf", "text/richtext",
	"application/rtf", "application/x-rtf",
	"text/x-moz-url", "text/uri-list",
	"application/x-color",
}

// FormatPriority is the order in which rich clipboard formats are read and
// written. text/plain comes first for cross-platform peers.
var FormatPriority = []string{
	"text/plain",
	"text/html",
	"text/rtf",
	"application/rtf",
	"application/x-rtf",
	"text/richtext",
	"text/uri-list",
	"text/x-moz-url",
	"UTF8_STRING",
	"STRING",
	"TEXT",
}

// singleFormatPriority picks the one format a single-format backend keeps.
var singleFormatPriority = []string{
	"text/html",
	"text/rtf",
	"application/rtf",
	"application/x-rtf",
	"text/richtext",
	"text/plain",
	"UTF8_STRING",
	"STRING",
	"TEXT",
}

// Backend is the interface all clipboard implementations satisfy.
type Backend interface {
	// Name returns a human-readable name for the backend.
	Name() string

	// Probe performs a real clipboard read to prove the backend responds.
	Probe(ctx context.Context) error

	// Targets lists the MIME types / X11 targets currently offered.
	Targets() ([]string, error)

	// ReadTarget returns the raw clipboard content for one target.
	ReadTarget(mime string) ([]byte, error)

	// WriteTarget replaces the clipboard with a single representation.
	WriteTarget(mime string, data []byte) error

	// WriteFormats replaces the clipboard with every representation in one
	// operation. Only valid when SupportsMultiFormat reports true.
	WriteFormats(formats map[string]string) error

	// SupportsMultiFormat reports whether WriteFormats is available.
	SupportsMultiFormat() bool

	// Executables lists the external programs the backend shells out to.
	Executables() []string
}

// New constructs the backend of the given kind without probing it.
func New(kind string, timeout time.Duration) (Backend, error) {
	switch strings.ToLower(kind) {
	case KindCopyQ:
		return NewCopyQ(timeout), nil
	case KindXClip, "":
		return NewXClip(timeout), nil
	case KindNative:
		return NewNative(), nil
	default:
		return nil, fmt.Errorf("clip: unknown backend %q (want copyq, xclip or native)", kind)
	}
}

// Open constructs the configured backend. Backends that depend on a daemon
// or a display connection are probed first; if the probe fails Open falls back
// to xclip and reports it through the second return value.
func Open(ctx context.Context, kind string, timeout time.Duration) (Backend, bool, error) {
	b, err := New(kind, timeout)
	if err != nil {
		return nil, false, err
	}
	if _, ok := b.(*XClip); ok {
		return b, false, nil
	}
	sel, fellBack := Select(ctx, b, NewXClip(timeout))
	return sel, fellBack, nil
}

// Select returns preferred if it answers a probe within ProbeTimeout, and
// fallback otherwise.
func Select(ctx context.Context, preferred, fallback Backend) (Backend, bool) {
	pctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()
	if err := preferred.Probe(pctx); err != nil {
		slog.Warn("clipboard backend not responding, falling back",
			"backend", preferred.Name(),
			"fallback", fallback.Name(),
			"err", err,
		)
		return fallback, true
	}
	return preferred, false
}

// CheckExecutables reports every program b needs that is missing from PATH.
func CheckExecutables(b Backend) error {
	var missing []string
	for _, name := range b.Executables() {
		if _, err := exec.LookPath(name); err != nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing dependencies: %s", strings.Join(missing, " "))
	}
	return nil
}

// HasImage reports whether targets include an image type.
func HasImage(targets []string) bool { return containsAny(targets, ImageTargets) }

// HasRichText reports whether targets include a rich-text or URI type.
func HasRichText(targets []string) bool { return containsAny(targets, RichTargets) }

// PreferredFormat picks the single representation to keep when a backend can
// only hold one: HTML, then RTF variants, then plain text, then anything else
// in lexical order.
func PreferredFormat(formats map[string]string) (string, string, bool) {
	for _, m := range singleFormatPriority {
		if v, ok := formats[m]; ok {
			return m, v, true
		}
	}
	rest := make([]string, 0, len(formats))
	for m := range formats {
		rest = append(rest, m)
	}
	if len(rest) == 0 {
		return "", "", false
	}
	slices.Sort(rest)
	return rest[0], formats[rest[0]], true
}

// orderedFormats returns the MIME types of formats in FormatPriority order,
// followed by any others in lexical order.
func orderedFormats(formats map[string]string) []string {
	out := make([]string, 0, len(formats))
	for _, m := range FormatPriority {
		if _, ok := formats[m]; ok {
			out = append(out, m)
		}
	}
	var rest []string
	for m := range formats {
		if !slices.Contains(FormatPriority, m) {
			rest = append(rest, m)
		}
	}
	slices.Sort(rest)
	return append(out, rest...)
}

func containsAny(targets, want []string) bool {
	for _, t := range targets {
		if slices.Contains(want, strings.TrimSpace(t)) {
			return true
		}
	}
	return false
}

func splitTargets(out []byte) []string {
	var targets []string
	for _, line := range strings.Split(string(out), "\n") {
		if t := strings.TrimSpace(line); t != "" {
			targets = append(targets, t)
		}
	}
	return targets
}
