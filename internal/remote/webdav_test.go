package remote

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/webdav"

	"go.klb.dev/clipson/internal/snapshot"
)

func newWebDAVServer(t *testing.T) *httptest.Server {
	t.Helper()
	h := &webdav.Handler{
		FileSystem: webdav.NewMemFS(),
		LockSystem: webdav.NewMemLS(),
	}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func newWebDAVStore(t *testing.T, rootURL string) *WebDAVStore {
	t.Helper()
	s, err := NewWebDAVStore(WebDAVOptions{
		RootURL:  rootURL,
		Username: "alice",
		Password: "secret",
		Folder:   "Clipboard/",
		Timeout:  5 * time.Second,
	})
	require.NoError(t, err)
	return s
}

func TestWebDAVStore(t *testing.T) {
	srv := newWebDAVServer(t)
	s := newWebDAVStore(t, srv.URL+"/")

	require.NoError(t, s.Probe())
	require.NoError(t, s.EnsureFolder())
	require.NoError(t, s.EnsureFolder(), "creating an existing folder is fine")

	require.NoError(t, s.Put("clipboard-a.json.gz", []byte("payload")))
	files, err := s.List()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "clipboard-a.json.gz", files[0].Name)
	assert.True(t, files[0].Known())

	got, err := s.Get("clipboard-a.json.gz")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))

	_, err = s.Get("clipboard-missing.json.gz")
	assert.Error(t, err)
}

func TestWebDAVProbeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("WWW-Authenticate", `Basic realm="nextcloud"`)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(newWebDAVStore(t, srv.URL+"/"), Options{Hostname: "a"})
	require.NoError(t, err)
	assert.False(t, c.TestConnection())
}

func TestWebDAVSyncBetweenHosts(t *testing.T) {
	srv := newWebDAVServer(t)

	laptop, err := NewClient(newWebDAVStore(t, srv.URL+"/"), Options{Hostname: "laptop"})
	require.NoError(t, err)
	desktop, err := NewClient(newWebDAVStore(t, srv.URL+"/"), Options{Hostname: "desktop"})
	require.NoError(t, err)

	require.True(t, laptop.TestConnection())
	require.True(t, desktop.TestConnection())
	assert.Empty(t, desktop.DiscoverPeers())

	sent := snapshot.MultiFormat{Formats: map[string]string{
		"text/plain": "hello",
		"text/html":  "<b>hello</b>",
	}}
	raw, err := snapshot.Encode(sent)
	require.NoError(t, err)
	jsonPath := filepath.Join(t.TempDir(), "clipboard-laptop.json")
	require.NoError(t, os.WriteFile(jsonPath, raw, 0o644))
	require.True(t, laptop.Push(jsonPath))

	u := desktop.PollForUpdates()
	require.NotNil(t, u)
	assert.Equal(t, "clipboard-laptop.json.gz", u.Peer)
	assert.Equal(t, sent, u.Snapshot)

	assert.Nil(t, laptop.PollForUpdates(), "a host never reads its own file")
}

func TestNextcloudRoot(t *testing.T) {
	assert.Equal(t,
		"https://cloud.example.com/remote.php/dav/files/alice%20b/",
		NextcloudRoot("https://cloud.example.com/", "alice b"),
	)
}
