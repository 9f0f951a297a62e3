package clip

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func TestRunnerOutput(t *testing.T) {
	skipWithoutShell(t)
	r := newRunner(time.Second)

	out, err := r.output(context.Background(), "echo", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(out))

	_, err = r.output(context.Background(), "sh", "-c", "echo oops >&2; exit 3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "code 3")
	assert.Contains(t, err.Error(), "oops")

	_, err = r.output(context.Background(), "clipson-no-such-command")
	assert.Error(t, err)
}

func TestRunnerTimeout(t *testing.T) {
	skipWithoutShell(t)
	r := newRunner(100 * time.Millisecond)
	_, err := r.output(context.Background(), "sleep", "5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestRunnerInput(t *testing.T) {
	skipWithoutShell(t)
	out := filepath.Join(t.TempDir(), "stdin")
	r := newRunner(time.Second)
	require.NoError(t, r.input(context.Background(), []byte("piped"), "sh", "-c", "cat > "+out))

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "piped", string(got))
}

// fakeTool writes a shell script that records its arguments, one per line,
// next to itself and prints stdout for reads.
func fakeTool(t *testing.T, stdout string) (bin, log string) {
	t.Helper()
	skipWithoutShell(t)
	dir := t.TempDir()
	bin = filepath.Join(dir, "tool")
	log = bin + ".log"
	script := "#!/bin/sh\n" +
		"for a in \"$@\"; do printf '%s\\n' \"$a\"; done > \"$0.log\"\n" +
		"printf '%s' '" + stdout + "'\n"
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))
	return bin, log
}

func readArgs(t *testing.T, log string) []string {
	t.Helper()
	b, err := os.ReadFile(log)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
}

func TestCopyQCommands(t *testing.T) {
	bin, log := fakeTool(t, "text/plain\ntext/html\n")
	c := NewCopyQ(time.Second)
	c.bin = bin

	targets, err := c.Targets()
	require.NoError(t, err)
	assert.Equal(t, []string{"text/plain", "text/html"}, targets)
	assert.Equal(t, []string{"clipboard", "?"}, readArgs(t, log))

	require.NoError(t, c.WriteFormats(map[string]string{
		"x-custom":    "c",
		MIMEHTML:      "<b>b</b>",
		MIMEText:      "a",
		"UTF8_STRING": "a",
	}))
	assert.Equal(t,
		[]string{"copy", "text/plain", "a", "text/html", "<b>b</b>", "UTF8_STRING", "a", "x-custom", "c"},
		readArgs(t, log),
		"formats follow the priority order, unknown ones last",
	)

	require.NoError(t, c.WriteTarget(MIMEPNG, []byte{1}))
	assert.Equal(t, []string{"copy", "image/png", "-"}, readArgs(t, log))
}

func TestCopyQOversizedWriteKeepsPlainText(t *testing.T) {
	bin, log := fakeTool(t, "")
	c := NewCopyQ(time.Second)
	c.bin = bin

	require.NoError(t, c.WriteFormats(map[string]string{
		MIMEText: "short",
		MIMEHTML: strings.Repeat("x", MaxArgsSize+1),
	}))
	assert.Equal(t, []string{"copy", "text/plain", "short"}, readArgs(t, log))
}

func TestXClipCommands(t *testing.T) {
	bin, log := fakeTool(t, "TARGETS\nUTF8_STRING\n")
	x := NewXClip(time.Second)
	x.bin = bin

	targets, err := x.Targets()
	require.NoError(t, err)
	assert.Equal(t, []string{"TARGETS", "UTF8_STRING"}, targets)
	assert.Equal(t, []string{"-selection", "clipboard", "-t", "TARGETS", "-o"}, readArgs(t, log))

	_, err = x.ReadTarget(MIMEText)
	require.NoError(t, err)
	assert.Equal(t, []string{"-selection", "clipboard", "-o"}, readArgs(t, log))

	require.NoError(t, x.WriteTarget(MIMEHTML, []byte("<b>x</b>")))
	assert.Equal(t, []string{"-selection", "clipboard", "-t", "text/html"}, readArgs(t, log))

	assert.ErrorIs(t, x.WriteFormats(map[string]string{MIMEText: "x"}), ErrNoMultiFormat)
}

func TestOpenProbesCopyQ(t *testing.T) {
	skipWithoutShell(t)
	t.Setenv("PATH", t.TempDir())

	b, fellBack, err := Open(context.Background(), KindCopyQ, time.Second)
	require.NoError(t, err)
	assert.True(t, fellBack, "copyq is not on PATH so the probe fails")
	assert.Equal(t, "xclip", b.Name())

	b, fellBack, err = Open(context.Background(), KindXClip, time.Second)
	require.NoError(t, err)
	assert.False(t, fellBack)
	assert.Equal(t, "xclip", b.Name())
}
