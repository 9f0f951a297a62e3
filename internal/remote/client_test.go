package remote

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/clipson/internal/crypto"
	"go.klb.dev/clipson/internal/snapshot"
)

// fakeStore is an in-memory Store with controllable modification times.
type fakeStore struct {
	order    []string
	files    map[string][]byte
	mod      map[string]time.Time
	listErr  error
	probeErr error
	getErr   map[string]error
	lists    int
	gets     []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		files:  make(map[string][]byte),
		mod:    make(map[string]time.Time),
		getErr: make(map[string]error),
	}
}

func (f *fakeStore) set(name string, data []byte, mod time.Time) {
	if _, ok := f.files[name]; !ok {
		f.order = append(f.order, name)
	}
	f.files[name] = data
	f.mod[name] = mod
}

func (f *fakeStore) Probe() error        { return f.probeErr }
func (f *fakeStore) EnsureFolder() error { return nil }

func (f *fakeStore) List() ([]PeerFile, error) {
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]PeerFile, 0, len(f.order))
	for _, n := range f.order {
		out = append(out, PeerFile{Name: n, LastModified: f.mod[n]})
	}
	return out, nil
}

func (f *fakeStore) Get(name string) ([]byte, error) {
	f.gets = append(f.gets, name)
	if err := f.getErr[name]; err != nil {
		return nil, err
	}
	data, ok := f.files[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return data, nil
}

func (f *fakeStore) Put(name string, data []byte) error {
	f.set(name, data, time.Now())
	return nil
}

// envelope builds a compressed plain-text payload.
func envelope(t *testing.T, text string) []byte {
	t.Helper()
	raw, err := snapshot.Encode(snapshot.PlainText{Content: text})
	require.NoError(t, err)
	gz, err := snapshot.Compress(raw)
	require.NoError(t, err)
	return gz
}

// clock is a settable time source.
type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClient(t *testing.T, store Store, clk *clock) *Client {
	t.Helper()
	c, err := NewClient(store, Options{Hostname: "self", Interval: 5 * time.Second, Now: clk.now})
	require.NoError(t, err)
	return c
}

func at(sec int64) time.Time { return time.Unix(sec, 0) }

func TestDiscoverPeers(t *testing.T) {
	store := newFakeStore()
	store.set("clipboard-self.json.gz", envelope(t, "mine"), at(5))
	store.set("clipboard-a.json.gz", envelope(t, "a"), at(10))
	store.set("clipboard-b.json.gz", envelope(t, "b"), time.Time{})
	store.set("notes.txt", []byte("unrelated"), at(1))

	c := newClient(t, store, &clock{t: at(100)})
	peers := c.DiscoverPeers()

	require.Len(t, peers, 2)
	assert.Equal(t, "a", peers[0].Host())
	assert.Equal(t, map[string]int64{
		"clipboard-a.json.gz": 10,
		"clipboard-b.json.gz": 0,
	}, c.Timestamps())
	assert.Empty(t, store.gets, "discovery does not download")
}

func TestPollPicksNewestPeer(t *testing.T) {
	store := newFakeStore()
	store.set("clipboard-a.json.gz", envelope(t, "from a"), at(10))
	store.set("clipboard-b.json.gz", envelope(t, "from b"), at(20))

	c := newClient(t, store, &clock{t: at(100)})
	u := c.PollForUpdates()

	require.NotNil(t, u)
	assert.Equal(t, "clipboard-b.json.gz", u.Peer)
	assert.Equal(t, snapshot.PlainText{Content: "from b"}, u.Snapshot)
	assert.Equal(t, map[string]int64{
		"clipboard-a.json.gz": 10,
		"clipboard-b.json.gz": 20,
	}, c.Timestamps(), "every downloaded peer advances, even the one not applied")
}

func TestPollTieGoesToFirstSeen(t *testing.T) {
	store := newFakeStore()
	store.set("clipboard-a.json.gz", envelope(t, "a"), at(30))
	store.set("clipboard-b.json.gz", envelope(t, "b"), at(30))

	u := newClient(t, store, &clock{t: at(100)}).PollForUpdates()
	require.NotNil(t, u)
	assert.Equal(t, "clipboard-a.json.gz", u.Peer)
}

func TestPollIsRateLimited(t *testing.T) {
	store := newFakeStore()
	store.set("clipboard-a.json.gz", envelope(t, "a"), at(10))
	clk := &clock{t: at(100)}
	c := newClient(t, store, clk)

	require.NotNil(t, c.PollForUpdates(), "the first poll always runs")
	before := c.Timestamps()

	store.set("clipboard-a.json.gz", envelope(t, "a2"), at(50))
	clk.advance(2 * time.Second)
	assert.Nil(t, c.PollForUpdates())
	assert.Equal(t, 1, store.lists, "a poll inside the interval does not list")
	assert.Equal(t, before, c.Timestamps())

	clk.advance(3 * time.Second)
	u := c.PollForUpdates()
	require.NotNil(t, u)
	assert.Equal(t, snapshot.PlainText{Content: "a2"}, u.Snapshot)
}

func TestPollSkipsSeenContent(t *testing.T) {
	store := newFakeStore()
	store.set("clipboard-a.json.gz", envelope(t, "a"), at(10))
	clk := &clock{t: at(100)}
	c := newClient(t, store, clk)
	c.DiscoverPeers()

	assert.Nil(t, c.PollForUpdates(), "content older than the process is not applied")
	assert.Empty(t, store.gets)

	store.set("clipboard-a.json.gz", envelope(t, "newer"), at(11))
	clk.advance(5 * time.Second)
	u := c.PollForUpdates()
	require.NotNil(t, u)
	assert.Equal(t, snapshot.PlainText{Content: "newer"}, u.Snapshot)
}

func TestPollNewPeerWithoutTimestamp(t *testing.T) {
	store := newFakeStore()
	store.set("clipboard-a.json.gz", envelope(t, "a"), time.Time{})
	clk := &clock{t: at(100)}
	c := newClient(t, store, clk)

	assert.Nil(t, c.PollForUpdates())
	assert.Equal(t, map[string]int64{"clipboard-a.json.gz": 0}, c.Timestamps())
	assert.Empty(t, store.gets)

	store.mod["clipboard-a.json.gz"] = at(40)
	clk.advance(5 * time.Second)
	require.NotNil(t, c.PollForUpdates())
	assert.Equal(t, int64(40), c.Timestamps()["clipboard-a.json.gz"])
}

func TestPollFailures(t *testing.T) {
	store := newFakeStore()
	store.set("clipboard-a.json.gz", envelope(t, "a"), at(10))
	store.set("clipboard-b.json.gz", []byte("not gzip"), at(20))
	store.getErr["clipboard-a.json.gz"] = errors.New("503")

	clk := &clock{t: at(100)}
	c := newClient(t, store, clk)
	assert.Nil(t, c.PollForUpdates())
	assert.Equal(t, map[string]int64{
		"clipboard-a.json.gz": 0,
		"clipboard-b.json.gz": 20,
	}, c.Timestamps(), "failed downloads retry, undecodable payloads do not")

	delete(store.getErr, "clipboard-a.json.gz")
	clk.advance(5 * time.Second)
	u := c.PollForUpdates()
	require.NotNil(t, u)
	assert.Equal(t, "clipboard-a.json.gz", u.Peer)

	store.listErr = errors.New("offline")
	clk.advance(5 * time.Second)
	assert.Nil(t, c.PollForUpdates())
}

func TestPollLegacyPeers(t *testing.T) {
	store := newFakeStore()
	store.set("clipboard-old.txt", []byte("RICH_CONTENT_FORMATS: HTML\n\n<b>hi</b>"), at(10))
	store.set("clipboard-older.png", []byte{0x89, 'P', 'N', 'G'}, at(20))
	store.set("clipboard-self.txt", []byte("own legacy file"), at(30))

	c := newClient(t, store, &clock{t: at(100)})
	u := c.PollForUpdates()
	require.NotNil(t, u)
	assert.Equal(t, snapshot.Image{Data: []byte{0x89, 'P', 'N', 'G'}, Format: "png"}, u.Snapshot)
	assert.Equal(t, int64(10), c.Timestamps()["clipboard-old.txt"])
	assert.NotContains(t, c.Timestamps(), "clipboard-self.txt")
}

func TestPush(t *testing.T) {
	store := newFakeStore()
	c := newClient(t, store, &clock{t: at(100)})

	jsonPath := filepath.Join(t.TempDir(), "clipboard-self.json")
	raw, err := snapshot.Encode(snapshot.PlainText{Content: "pushed"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(jsonPath, raw, 0o644))

	require.True(t, c.Push(jsonPath))
	assert.FileExists(t, jsonPath+".gz")

	uploaded := store.files["clipboard-self.json.gz"]
	require.NotEmpty(t, uploaded)
	got, err := snapshot.Decompress(uploaded)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	assert.False(t, c.Push(filepath.Join(t.TempDir(), "missing.json")))
}

func TestSealedRoundTrip(t *testing.T) {
	key, err := crypto.DeriveKey("shared secret")
	require.NoError(t, err)

	store := newFakeStore()
	sender, err := NewClient(store, Options{Hostname: "a", Key: key})
	require.NoError(t, err)

	jsonPath := filepath.Join(t.TempDir(), "clipboard-a.json")
	raw, err := snapshot.Encode(snapshot.PlainText{Content: "secret"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(jsonPath, raw, 0o644))
	require.True(t, sender.Push(jsonPath))
	assert.True(t, crypto.IsSealed(store.files["clipboard-a.json.gz"]))

	receiver, err := NewClient(store, Options{Hostname: "b", Key: key})
	require.NoError(t, err)
	u := receiver.PollForUpdates()
	require.NotNil(t, u)
	assert.Equal(t, snapshot.PlainText{Content: "secret"}, u.Snapshot)

	stranger, err := NewClient(store, Options{Hostname: "c"})
	require.NoError(t, err)
	assert.Nil(t, stranger.PollForUpdates(), "sealed payloads need a key")
}

func TestTestConnection(t *testing.T) {
	store := newFakeStore()
	c := newClient(t, store, &clock{t: at(0)})
	assert.True(t, c.TestConnection())

	store.probeErr = errors.New("401 Unauthorized")
	assert.False(t, c.TestConnection())
}

func TestParseName(t *testing.T) {
	tests := []struct {
		name string
		host string
		ok   bool
	}{
		{"clipboard-laptop.json.gz", "laptop", true},
		{"clipboard-my.host.name.json.gz", "my.host.name", true},
		{"clipboard-desk.txt", "desk", true},
		{"clipboard-desk.png", "desk", true},
		{"clipboard-desk.json", "", false},
		{"clipboard-.json.gz", "", false},
		{"other-desk.json.gz", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, ok := ParseName(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.host, host)
		})
	}
}
