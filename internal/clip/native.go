package clip

import (
	"context"
	"fmt"
	"sync"

	"golang.design/x/clipboard"
)

// Native uses golang.design/x/clipboard, which talks to the platform
// clipboard in-process. It only knows UTF-8 text and PNG images.
//
// clipboard.Init is deferred to Probe so that CLI sub-commands that never
// touch the clipboard don't need a display connection.
type Native struct {
	once    sync.Once
	initErr error
}

// NewNative returns the in-process clipboard backend.
func NewNative() *Native { return &Native{} }

func (n *Native) Name() string              { return "native" }
func (n *Native) SupportsMultiFormat() bool { return false }
func (n *Native) Executables() []string     { return nil }

func (n *Native) init() error {
	n.once.Do(func() { n.initErr = clipboard.Init() })
	return n.initErr
}

func (n *Native) Probe(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		if err := n.init(); err != nil {
			done <- err
			return
		}
		clipboard.Read(clipboard.FmtText)
		done <- nil
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("native clipboard: %w", ctx.Err())
	}
}

// Targets reports text/plain and image/png depending on what is readable.
func (n *Native) Targets() ([]string, error) {
	if err := n.init(); err != nil {
		return nil, err
	}
	var targets []string
	if clipboard.Read(clipboard.FmtText) != nil {
		targets = append(targets, MIMEText, "UTF8_STRING")
	}
	if clipboard.Read(clipboard.FmtImage) != nil {
		targets = append(targets, MIMEPNG)
	}
	return targets, nil
}

func (n *Native) ReadTarget(mime string) ([]byte, error) {
	f, err := nativeFormat(mime)
	if err != nil {
		return nil, err
	}
	if err := n.init(); err != nil {
		return nil, err
	}
	data := clipboard.Read(f)
	if data == nil {
		return nil, fmt.Errorf("native clipboard: no %s content", mime)
	}
	return data, nil
}

func (n *Native) WriteTarget(mime string, data []byte) error {
	f, err := nativeFormat(mime)
	if err != nil {
		return err
	}
	if err := n.init(); err != nil {
		return err
	}
	clipboard.Write(f, data)
	return nil
}

func (n *Native) WriteFormats(map[string]string) error { return ErrNoMultiFormat }

func nativeFormat(mime string) (clipboard.Format, error) {
	switch mime {
	case MIMEText, "UTF8_STRING", "STRING", "TEXT":
		return clipboard.FmtText, nil
	case MIMEPNG:
		return clipboard.FmtImage, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedTarget, mime)
	}
}
