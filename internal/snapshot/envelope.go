package snapshot

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

// Type is the "type" tag of an envelope.
type Type string

const (
	TypePlainText   Type = "PLAIN_TEXT"
	TypeImage       Type = "CLIPBOARD_IMAGE"
	TypeMultiFormat Type = "MULTI_FORMAT_CLIPBOARD"
)

// ErrUnknownType is returned when an envelope carries an unrecognised type tag.
var ErrUnknownType = errors.New("snapshot: unknown envelope type")

// utf8BOM is stripped from the head of downloaded payloads.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Envelope is the JSON document exchanged through the remote store.
type Envelope struct {
	Type    Type              `json:"type"`
	Content *string           `json:"content,omitempty"`
	Data    string            `json:"data,omitempty"`
	Format  string            `json:"format,omitempty"`
	Size    int               `json:"size,omitempty"`
	Formats map[string]string `json:"formats,omitempty"`
}

// ToEnvelope converts a snapshot into its envelope form.
func ToEnvelope(s Snapshot) (Envelope, error) {
	if err := Validate(s); err != nil {
		return Envelope{}, err
	}
	switch v := s.(type) {
	case PlainText:
		content := v.Content
		return Envelope{Type: TypePlainText, Content: &content}, nil
	case Image:
		return Envelope{
			Type:   TypeImage,
			Data:   base64.StdEncoding.EncodeToString(v.Data),
			Format: formatOf(v),
			Size:   len(v.Data),
		}, nil
	case MultiFormat:
		formats := make(map[string]string, len(v.Formats))
		for k, val := range v.Formats {
			formats[k] = val
		}
		return Envelope{Type: TypeMultiFormat, Formats: formats}, nil
	default:
		return Envelope{}, fmt.Errorf("snapshot: unknown variant %T", s)
	}
}

// Snapshot converts the envelope back into a snapshot.
func (e Envelope) Snapshot() (Snapshot, error) {
	switch e.Type {
	case TypePlainText:
		if e.Content == nil {
			return PlainText{}, nil
		}
		return PlainText{Content: *e.Content}, nil
	case TypeImage:
		data, err := base64.StdEncoding.DecodeString(e.Data)
		if err != nil {
			return nil, fmt.Errorf("image data: %w", err)
		}
		img := Image{Data: data, Format: e.Format}
		if img.Format == "" {
			img.Format = ImageFormat
		}
		if err := Validate(img); err != nil {
			return nil, err
		}
		return img, nil
	case TypeMultiFormat:
		mf := MultiFormat{Formats: e.Formats}
		if err := Validate(mf); err != nil {
			return nil, err
		}
		return mf, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, e.Type)
	}
}

// Encode serialises s as an indented JSON envelope. HTML characters are kept
// literal so the file stays readable.
func Encode(s Snapshot) ([]byte, error) {
	env, err := ToEnvelope(s)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(env); err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Decode parses a JSON envelope. A leading byte-order mark is ignored and
// \uXXXX escapes are resolved by the JSON decoder.
func Decode(b []byte) (Snapshot, error) {
	b = bytes.TrimPrefix(b, utf8BOM)
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, errors.New("snapshot: empty payload")
	}
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("envelope decode: %w", err)
	}
	return env.Snapshot()
}

// Compress gzips b at the fastest level.
func Compress(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(b); err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress.
func Decompress(b []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("gunzip: %w", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("gunzip: %w", err)
	}
	return out, nil
}

// legacyRichHeader prefixes text payloads written by early releases that
// carried a single rich format as text.
const legacyRichHeader = "RICH_CONTENT_FORMATS:"

// DecodeLegacyText interprets a legacy clipboard-<host>.txt payload.
//
// The rich form is a header line listing format names, a separator line and
// then the content. HTML wins over RTF; anything else is plain text.
func DecodeLegacyText(b []byte) (Snapshot, error) {
	text := string(bytes.TrimPrefix(b, utf8BOM))
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("snapshot: empty payload")
	}
	if !strings.HasPrefix(text, legacyRichHeader) {
		return PlainText{Content: text}, nil
	}

	lines := strings.SplitN(text, "\n", 3)
	if len(lines) < 3 {
		return PlainText{Content: text}, nil
	}
	var names []string
	for _, n := range strings.Split(strings.TrimPrefix(lines[0], legacyRichHeader), ",") {
		names = append(names, strings.TrimSpace(n))
	}
	content := lines[2]
	switch {
	case slices.Contains(names, "HTML"):
		return MultiFormat{Formats: map[string]string{"text/html": content}}, nil
	case slices.Contains(names, "RTF"):
		return MultiFormat{Formats: map[string]string{"text/rtf": content}}, nil
	default:
		return PlainText{Content: content}, nil
	}
}

// DecodeLegacyImage wraps a legacy clipboard-<host>.png payload.
func DecodeLegacyImage(b []byte) (Snapshot, error) {
	img := Image{Data: b, Format: ImageFormat}
	if err := Validate(img); err != nil {
		return nil, err
	}
	return img, nil
}
