// Package snapshot defines the unit of synchronised clipboard state and its
// on-disk / on-the-wire envelope.
//
// A Snapshot is exactly one of PlainText, Image or MultiFormat. The envelope
// is a small JSON document tagged by "type":
//
//	{ "type": "PLAIN_TEXT", "content": "..." }
//	{ "type": "CLIPBOARD_IMAGE", "data": "<base64>", "format": "png", "size": 123 }
//	{ "type": "MULTI_FORMAT_CLIPBOARD", "formats": { "text/plain": "...", ... } }
//
// Envelopes are gzip-compressed before they are uploaded.
package snapshot

import (
	"errors"
	"fmt"
	"sort"
)

// Kind identifies the active variant of a Snapshot.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindRich  Kind = "rich"
)

// ImageFormat is the only image encoding clipson moves around.
const ImageFormat = "png"

var (
	// ErrEmptyFormats is returned for a MultiFormat snapshot with no entries.
	ErrEmptyFormats = errors.New("snapshot: multi-format snapshot has no formats")
	// ErrEmptyImage is returned for an Image snapshot with no bytes.
	ErrEmptyImage = errors.New("snapshot: image has no data")
)

// Snapshot is a captured clipboard state. The interface is sealed: the only
// implementations are PlainText, Image and MultiFormat.
type Snapshot interface {
	Kind() Kind
	isSnapshot()
}

// PlainText is a text-only clipboard.
type PlainText struct {
	Content string
}

// Image is a PNG image clipboard.
type Image struct {
	Data   []byte
	Format string
}

// MultiFormat carries several simultaneous representations keyed by MIME type.
type MultiFormat struct {
	Formats map[string]string
}

func (PlainText) Kind() Kind   { return KindText }
func (Image) Kind() Kind       { return KindImage }
func (MultiFormat) Kind() Kind { return KindRich }

func (PlainText) isSnapshot()   {}
func (Image) isSnapshot()       {}
func (MultiFormat) isSnapshot() {}

// Validate reports whether s satisfies the invariants of its variant.
func Validate(s Snapshot) error {
	switch v := s.(type) {
	case PlainText:
		return nil
	case Image:
		if len(v.Data) == 0 {
			return ErrEmptyImage
		}
		return nil
	case MultiFormat:
		if len(v.Formats) == 0 {
			return ErrEmptyFormats
		}
		return nil
	case nil:
		return errors.New("snapshot: nil snapshot")
	default:
		return fmt.Errorf("snapshot: unknown variant %T", s)
	}
}

// MIMETypes returns the sorted MIME types a snapshot carries.
func MIMETypes(s Snapshot) []string {
	switch v := s.(type) {
	case PlainText:
		return []string{"text/plain"}
	case Image:
		return []string{"image/" + formatOf(v)}
	case MultiFormat:
		out := make([]string, 0, len(v.Formats))
		for m := range v.Formats {
			out = append(out, m)
		}
		sort.Strings(out)
		return out
	default:
		return nil
	}
}

// Preview returns a short human-readable description of s, used in
// notifications and log lines.
func Preview(s Snapshot, limit int) string {
	switch v := s.(type) {
	case PlainText:
		return truncate(v.Content, limit)
	case Image:
		return fmt.Sprintf("%s image, %d bytes", formatOf(v), len(v.Data))
	case MultiFormat:
		if t, ok := v.Formats["text/plain"]; ok {
			return truncate(t, limit)
		}
		return fmt.Sprintf("rich content: %d formats", len(v.Formats))
	default:
		return ""
	}
}

func formatOf(img Image) string {
	if img.Format == "" {
		return ImageFormat
	}
	return img.Format
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if limit <= 0 || len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "…"
}
