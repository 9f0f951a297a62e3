package clip

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/clipson/internal/snapshot"
)

func TestAdapterReads(t *testing.T) {
	m := NewMemory(true)
	a := NewAdapter(m)

	_, ok := a.ReadText()
	assert.False(t, ok, "empty clipboard has no text")

	m.Set(map[string]string{MIMEText: "  \n"})
	_, ok = a.ReadText()
	assert.False(t, ok, "blank text is absent")

	m.Set(map[string]string{MIMEText: "hello\n", MIMEHTML: "  <b>hello</b>\n"})
	text, ok := a.ReadText()
	require.True(t, ok)
	assert.Equal(t, "hello\n", text, "plain text is returned as copied")

	html, ok := a.ReadFormat(MIMEHTML)
	require.True(t, ok)
	assert.Equal(t, "<b>hello</b>", html, "formats are trimmed")

	assert.True(t, a.HasRichText())
	assert.False(t, a.HasImage())

	m.SetBytes(MIMEPNG, []byte{1, 2, 3})
	assert.True(t, a.HasImage())
	img, ok := a.ReadImage()
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, img)
}

func TestAdapterInvalidUTF8IsReplaced(t *testing.T) {
	m := NewMemory(true)
	m.SetBytes(MIMEHTML, []byte{'a', 0xff, 'b'})
	got, ok := NewAdapter(m).ReadFormat(MIMEHTML)
	require.True(t, ok)
	assert.Equal(t, "a\uFFFDb", got)
}

func TestAdapterFailuresAreAbsent(t *testing.T) {
	m := NewMemory(true)
	m.Set(map[string]string{MIMEText: "x"})
	m.Fail(errors.New("backend gone"))
	a := NewAdapter(m)

	assert.Nil(t, a.Formats())
	_, ok := a.ReadText()
	assert.False(t, ok)
	_, ok = a.ReadImage()
	assert.False(t, ok)
	assert.False(t, a.WriteText("y"))
	assert.False(t, a.WriteFormats(map[string]string{MIMEText: "y"}))
}

func TestAdapterWriteFormats(t *testing.T) {
	formats := map[string]string{
		MIMEText: "hi",
		MIMEHTML: "<i>hi</i>",
		MIMERTF:  "{\\rtf1 hi}",
	}

	t.Run("multi-format backend keeps everything", func(t *testing.T) {
		m := NewMemory(true)
		require.True(t, NewAdapter(m).WriteFormats(formats))
		targets, err := m.Targets()
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{MIMEText, MIMEHTML, MIMERTF}, targets)
		assert.Equal(t, 1, m.Writes(), "formats are written atomically")
	})

	t.Run("single-format backend keeps html", func(t *testing.T) {
		m := NewMemory(false)
		require.True(t, NewAdapter(m).WriteFormats(formats))
		targets, err := m.Targets()
		require.NoError(t, err)
		assert.Equal(t, []string{MIMEHTML}, targets)
	})

	t.Run("empty formats fail", func(t *testing.T) {
		assert.False(t, NewAdapter(NewMemory(true)).WriteFormats(nil))
	})
}

func TestAdapterApply(t *testing.T) {
	m := NewMemory(true)
	a := NewAdapter(m)

	require.True(t, a.Apply(snapshot.PlainText{Content: "text"}))
	got, _ := a.ReadText()
	assert.Equal(t, "text", got)

	require.True(t, a.Apply(snapshot.Image{Data: []byte{9}, Format: "png"}))
	img, _ := a.ReadImage()
	assert.Equal(t, []byte{9}, img)

	require.True(t, a.Apply(snapshot.MultiFormat{Formats: map[string]string{MIMEHTML: "<p>x</p>"}}))
	assert.True(t, a.HasRichText())
}

func TestPreferredFormat(t *testing.T) {
	tests := []struct {
		name    string
		formats map[string]string
		want    string
	}{
		{"html wins", map[string]string{MIMEText: "a", MIMERTF: "b", MIMEHTML: "c"}, MIMEHTML},
		{"rtf over text", map[string]string{MIMEText: "a", "application/rtf": "b"}, "application/rtf"},
		{"plain text", map[string]string{MIMEText: "a", "text/uri-list": "b"}, MIMEText},
		{"unknown formats sort", map[string]string{"x/b": "1", "x/a": "2"}, "x/a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, ok := PreferredFormat(tt.formats)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, _, ok := PreferredFormat(nil)
	assert.False(t, ok)
}

func TestSelectFallsBack(t *testing.T) {
	healthy := NewMemory(true)
	broken := NewMemory(true)
	broken.Fail(errors.New("copyq server not running"))
	fallback := NewMemory(false)

	got, fellBack := Select(context.Background(), healthy, fallback)
	assert.Same(t, healthy, got)
	assert.False(t, fellBack)

	got, fellBack = Select(context.Background(), broken, fallback)
	assert.Same(t, fallback, got)
	assert.True(t, fellBack)
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	_, err := New("pbcopy", 0)
	assert.Error(t, err)

	b, err := New("", 0)
	require.NoError(t, err)
	assert.Equal(t, "xclip", b.Name())
}

func TestCheckExecutables(t *testing.T) {
	x := NewXClip(0)
	x.bin = "clipson-definitely-not-installed"
	err := CheckExecutables(x)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clipson-definitely-not-installed")

	assert.NoError(t, CheckExecutables(NewMemory(false)))
}

func TestHasImageAndRichText(t *testing.T) {
	assert.True(t, HasImage([]string{"TARGETS", " image/png "}))
	assert.False(t, HasImage([]string{"text/plain"}))
	assert.True(t, HasRichText([]string{"text/uri-list"}))
	assert.False(t, HasRichText([]string{"UTF8_STRING", "STRING"}))
}
