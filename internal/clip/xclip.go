package clip

import (
	"context"
	"time"
)

// XClip drives the X11 CLIPBOARD selection with xclip. It holds one target
// per write, so multi-format content is reduced by the Adapter.
type XClip struct {
	r   runner
	bin string
}

// NewXClip returns an xclip backend whose calls time out after timeout.
func NewXClip(timeout time.Duration) *XClip {
	return &XClip{r: newRunner(timeout), bin: "xclip"}
}

func (x *XClip) Name() string              { return "xclip" }
func (x *XClip) SupportsMultiFormat() bool { return false }
func (x *XClip) Executables() []string     { return []string{x.bin} }

func (x *XClip) Probe(ctx context.Context) error {
	_, err := x.r.output(ctx, x.bin, x.targetArgs("TARGETS")...)
	return err
}

func (x *XClip) Targets() ([]string, error) {
	out, err := x.r.output(context.Background(), x.bin, x.targetArgs("TARGETS")...)
	if err != nil {
		return nil, err
	}
	return splitTargets(out), nil
}

func (x *XClip) ReadTarget(mime string) ([]byte, error) {
	return x.r.output(context.Background(), x.bin, x.targetArgs(mime)...)
}

func (x *XClip) WriteTarget(mime string, data []byte) error {
	args := []string{"-selection", "clipboard"}
	if mime != MIMEText {
		args = append(args, "-t", mime)
	}
	return x.r.input(context.Background(), data, x.bin, args...)
}

func (x *XClip) WriteFormats(map[string]string) error { return ErrNoMultiFormat }

// targetArgs builds the read arguments for one target. Plain text uses
// xclip's default target, which negotiates UTF8_STRING or STRING with the
// selection owner.
func (x *XClip) targetArgs(target string) []string {
	args := []string{"-selection", "clipboard"}
	if target != MIMEText {
		args = append(args, "-t", target)
	}
	return append(args, "-o")
}
