// Package fingerprint reduces clipboard content to a comparable value used to
// detect local changes and to suppress feedback after a remote apply.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"maps"
	"slices"
	"strings"

	"go.klb.dev/clipson/internal/clip"
	"go.klb.dev/clipson/internal/snapshot"
)

// StableFormats serialize deterministically; identical copies always produce
// identical values.
var StableFormats = []string{"text/plain", "UTF8_STRING", "STRING", "TEXT"}

// VolatileFormats vary cosmetically between copies of the same content
// (regenerated markup, timestamps, whitespace). They are compared by a hash of
// their whitespace-collapsed value.
var VolatileFormats = []string{"text/html", "text/rtf", "application/rtf", "application/x-rtf"}

// Fingerprint is the canonical digest of one clipboard state. The zero value
// means "no content".
type Fingerprint struct {
	Kind snapshot.Kind

	// Digest is the sha256 of the text or image bytes.
	Digest string
	// Format and Size describe an image.
	Format string
	Size   int

	// Formats maps MIME type to the raw value, or to "sha256:<hex>" for
	// volatile formats.
	Formats map[string]string
}

// Empty reports whether f represents no content.
func (f Fingerprint) Empty() bool { return f.Kind == "" }

// Equal reports whether two fingerprints describe identical content.
func (f Fingerprint) Equal(o Fingerprint) bool {
	return f.Kind == o.Kind &&
		f.Digest == o.Digest &&
		f.Format == o.Format &&
		f.Size == o.Size &&
		maps.Equal(f.Formats, o.Formats)
}

func (f Fingerprint) String() string {
	switch f.Kind {
	case "":
		return "empty"
	case snapshot.KindImage:
		return fmt.Sprintf("image(%s, %d bytes, %s)", f.Format, f.Size, short(f.Digest))
	case snapshot.KindRich:
		return fmt.Sprintf("rich(%s)", strings.Join(slices.Sorted(maps.Keys(f.Formats)), ","))
	default:
		return fmt.Sprintf("%s(%s)", f.Kind, short(f.Digest))
	}
}

// Of computes the fingerprint of s. A nil or invalid snapshot yields the
// empty fingerprint.
func Of(s snapshot.Snapshot) Fingerprint {
	if s == nil || snapshot.Validate(s) != nil {
		return Fingerprint{}
	}
	switch v := s.(type) {
	case snapshot.PlainText:
		return Fingerprint{Kind: snapshot.KindText, Digest: digest([]byte(v.Content))}
	case snapshot.Image:
		format := v.Format
		if format == "" {
			format = snapshot.ImageFormat
		}
		return Fingerprint{
			Kind:   snapshot.KindImage,
			Digest: digest(v.Data),
			Format: format,
			Size:   len(v.Data),
		}
	case snapshot.MultiFormat:
		formats := make(map[string]string, len(v.Formats))
		for mime, value := range v.Formats {
			if slices.Contains(VolatileFormats, mime) {
				value = "sha256:" + digest([]byte(collapse(value)))
			}
			formats[mime] = value
		}
		return Fingerprint{Kind: snapshot.KindRich, Formats: formats}
	}
	return Fingerprint{}
}

// Changed reports whether cur is a meaningful change from last.
//
// An empty current state is never a change. Two multi-format states that carry
// stable formats are compared on those alone, so re-copying the same text from
// an application that regenerates its HTML does not count. Multi-format states
// with no stable format at all fall back to comparing every format.
func Changed(last, cur Fingerprint) bool {
	if cur.Empty() {
		return false
	}
	if last.Kind != cur.Kind {
		return true
	}
	if cur.Kind == snapshot.KindRich {
		ls, cs := stableSubset(last.Formats), stableSubset(cur.Formats)
		if len(ls) > 0 || len(cs) > 0 {
			return !maps.Equal(ls, cs)
		}
		return !maps.Equal(last.Formats, cur.Formats)
	}
	return !last.Equal(cur)
}

func stableSubset(formats map[string]string) map[string]string {
	out := make(map[string]string)
	for _, m := range StableFormats {
		if v, ok := formats[m]; ok {
			out[m] = v
		}
	}
	return out
}

func digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// collapse trims s and folds every whitespace run into a single space.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func short(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

// Reader is the part of the clipboard adapter the engine reads from.
type Reader interface {
	Formats() []string
	ReadImage() ([]byte, bool)
	ReadFormat(mime string) (string, bool)
	ReadText() (string, bool)
}

// Engine reads the clipboard and fingerprints what it finds.
type Engine struct {
	r Reader
}

// NewEngine returns an Engine reading from r.
func NewEngine(r Reader) *Engine { return &Engine{r: r} }

// Current returns the snapshot the clipboard holds right now and its
// fingerprint. An image wins over rich content, and rich content wins over
// plain text, because rich entries also expose a text target but the richer
// form is authoritative. A nil snapshot means no content.
func (e *Engine) Current() (snapshot.Snapshot, Fingerprint) {
	targets := e.r.Formats()

	if clip.HasImage(targets) {
		if data, ok := e.r.ReadImage(); ok {
			s := snapshot.Image{Data: data, Format: snapshot.ImageFormat}
			return s, Of(s)
		}
	}

	if clip.HasRichText(targets) {
		if formats := e.readRich(targets); len(formats) > 0 {
			s := snapshot.MultiFormat{Formats: formats}
			return s, Of(s)
		}
	}

	if text, ok := e.r.ReadText(); ok {
		s := snapshot.PlainText{Content: text}
		return s, Of(s)
	}
	return nil, Fingerprint{}
}

// readRich reads every offered format in clip.FormatPriority order. Plain
// text is always attempted since X11 owners often advertise it only as
// UTF8_STRING. Values identical to one already read are skipped.
func (e *Engine) readRich(targets []string) map[string]string {
	formats := make(map[string]string)
	var seen []string
	for _, mime := range clip.FormatPriority {
		if mime != clip.MIMEText && !slices.Contains(targets, mime) {
			continue
		}
		value, ok := e.r.ReadFormat(mime)
		if !ok || slices.Contains(seen, value) {
			continue
		}
		formats[mime] = value
		seen = append(seen, value)
	}
	return formats
}
