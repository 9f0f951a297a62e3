package reconcile

import (
	"context"
	"log/slog"

	"go.klb.dev/clipson/internal/snapshot"
)

// logSnapshot logs a clipboard event at INFO (origin, kind, mime types) and
// DEBUG (text preview up to 120 chars, or byte size for binary content).
func logSnapshot(event, origin string, s snapshot.Snapshot) {
	slog.Info(event, "origin", origin, "kind", s.Kind(), "types", snapshot.MIMETypes(s))

	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	switch v := s.(type) {
	case snapshot.Image:
		slog.Debug("clipboard item", "mime", "image/png", "size_bytes", len(v.Data))
	case snapshot.MultiFormat:
		for mime, value := range v.Formats {
			slog.Debug("clipboard item", "mime", mime, "size_bytes", len(value))
		}
		slog.Debug("clipboard preview", "preview", snapshot.Preview(s, 120))
	default:
		slog.Debug("clipboard item", "mime", "text/plain", "preview", snapshot.Preview(s, 120))
	}
}
