package clip

import (
	"fmt"
	"log/slog"
	"strings"

	"go.klb.dev/clipson/internal/snapshot"
)

// Adapter applies clipson's best-effort policy on top of a Backend: any
// failure is logged at debug level and reported as absent content or a failed
// write, never as an error. The next poll is the retry.
type Adapter struct {
	b Backend
}

// NewAdapter wraps b.
func NewAdapter(b Backend) *Adapter { return &Adapter{b: b} }

// Name returns the backend name.
func (a *Adapter) Name() string { return a.b.Name() }

// SupportsMultiFormat reports whether the backend writes several formats at once.
func (a *Adapter) SupportsMultiFormat() bool { return a.b.SupportsMultiFormat() }

// Formats lists the targets currently offered, or nil.
func (a *Adapter) Formats() []string {
	targets, err := a.b.Targets()
	if err != nil {
		slog.Debug("clipboard targets unavailable", "backend", a.b.Name(), "err", err)
		return nil
	}
	return targets
}

// HasImage reports whether the clipboard offers an image type.
func (a *Adapter) HasImage() bool { return HasImage(a.Formats()) }

// HasRichText reports whether the clipboard offers a rich-text or URI type.
func (a *Adapter) HasRichText() bool { return HasRichText(a.Formats()) }

// ReadText returns the plain-text clipboard if it holds any non-blank text.
func (a *Adapter) ReadText() (string, bool) {
	return a.readString(MIMEText, false)
}

// ReadFormat returns one format, trimmed, if it is non-empty. Invalid UTF-8
// is replaced rather than rejected.
func (a *Adapter) ReadFormat(mime string) (string, bool) {
	return a.readString(mime, true)
}

// ReadImage returns the clipboard PNG bytes.
func (a *Adapter) ReadImage() ([]byte, bool) {
	data, err := a.b.ReadTarget(MIMEPNG)
	if err != nil {
		slog.Debug("clipboard image read failed", "backend", a.b.Name(), "err", err)
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}
	return data, true
}

func (a *Adapter) readString(mime string, trim bool) (string, bool) {
	data, err := a.b.ReadTarget(mime)
	if err != nil {
		slog.Debug("clipboard read failed", "backend", a.b.Name(), "target", mime, "err", err)
		return "", false
	}
	s := strings.ToValidUTF8(string(data), "\uFFFD")
	if strings.TrimSpace(s) == "" {
		return "", false
	}
	if trim {
		s = strings.TrimSpace(s)
	}
	return s, true
}

// WriteText sets the clipboard to plain text.
func (a *Adapter) WriteText(s string) bool {
	return a.report("text", a.b.WriteTarget(MIMEText, []byte(s)))
}

// WriteImage sets the clipboard to a PNG image.
func (a *Adapter) WriteImage(png []byte) bool {
	return a.report("image", a.b.WriteTarget(MIMEPNG, png))
}

// WriteFormats sets every format at once on multi-format backends. Other
// backends keep the single most expressive format (HTML > RTF > plain text).
func (a *Adapter) WriteFormats(formats map[string]string) bool {
	if len(formats) == 0 {
		return false
	}
	if a.b.SupportsMultiFormat() {
		return a.report("formats", a.b.WriteFormats(formats))
	}
	mime, value, _ := PreferredFormat(formats)
	slog.Debug("backend holds one format, reducing",
		"backend", a.b.Name(),
		"kept", mime,
		"offered", len(formats),
	)
	if mime == MIMEText {
		return a.WriteText(value)
	}
	return a.report(mime, a.b.WriteTarget(mime, []byte(value)))
}

// Apply writes a snapshot to the clipboard.
func (a *Adapter) Apply(s snapshot.Snapshot) bool {
	switch v := s.(type) {
	case snapshot.PlainText:
		return a.WriteText(v.Content)
	case snapshot.Image:
		return a.WriteImage(v.Data)
	case snapshot.MultiFormat:
		return a.WriteFormats(v.Formats)
	default:
		return a.report("snapshot", fmt.Errorf("unknown snapshot %T", s))
	}
}

func (a *Adapter) report(what string, err error) bool {
	if err != nil {
		slog.Warn("clipboard write failed", "backend", a.b.Name(), "kind", what, "err", err)
		return false
	}
	return true
}
