package clip

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// MaxArgsSize is the largest total argument length passed to one copyq
// invocation. Larger multi-format writes keep only the plain-text form.
const MaxArgsSize = 2 * 1024 * 1024

// CopyQ talks to a running CopyQ daemon through its command line client.
type CopyQ struct {
	r   runner
	bin string
}

// NewCopyQ returns a CopyQ backend whose calls time out after timeout.
func NewCopyQ(timeout time.Duration) *CopyQ {
	return &CopyQ{r: newRunner(timeout), bin: "copyq"}
}

func (c *CopyQ) Name() string              { return "copyq" }
func (c *CopyQ) SupportsMultiFormat() bool { return true }
func (c *CopyQ) Executables() []string     { return []string{c.bin} }

// Probe reads text from the clipboard. copyq exits non-zero when the server
// is not running, which is the case an installed-but-idle CopyQ produces.
func (c *CopyQ) Probe(ctx context.Context) error {
	_, err := c.r.output(ctx, c.bin, "clipboard", MIMEText)
	return err
}

func (c *CopyQ) Targets() ([]string, error) {
	out, err := c.r.output(context.Background(), c.bin, "clipboard", "?")
	if err != nil {
		return nil, err
	}
	return splitTargets(out), nil
}

func (c *CopyQ) ReadTarget(mime string) ([]byte, error) {
	return c.r.output(context.Background(), c.bin, "clipboard", mime)
}

func (c *CopyQ) WriteTarget(mime string, data []byte) error {
	if strings.HasPrefix(mime, "image/") {
		return c.r.input(context.Background(), data, c.bin, "copy", mime, "-")
	}
	return c.r.run(context.Background(), c.bin, "copy", mime, string(data))
}

// WriteFormats sets every format in a single "copyq copy" call so that other
// applications observe one clipboard change.
func (c *CopyQ) WriteFormats(formats map[string]string) error {
	args := c.formatArgs(formats)
	total := 0
	for _, a := range args {
		total += len(a)
	}
	if total > MaxArgsSize {
		slog.Debug("copyq arguments too long, keeping plain text only",
			"bytes", total,
			"limit", MaxArgsSize,
		)
		mime := MIMEText
		value, ok := formats[MIMEText]
		if !ok {
			ordered := orderedFormats(formats)
			mime, value = ordered[0], formats[ordered[0]]
		}
		return c.WriteTarget(mime, []byte(value))
	}
	return c.r.run(context.Background(), c.bin, args...)
}

func (c *CopyQ) formatArgs(formats map[string]string) []string {
	args := make([]string, 0, 1+2*len(formats))
	args = append(args, "copy")
	for _, m := range orderedFormats(formats) {
		args = append(args, m, formats[m])
	}
	return args
}
