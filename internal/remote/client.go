package remote

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"go.klb.dev/clipson/internal/crypto"
	"go.klb.dev/clipson/internal/snapshot"
)

// DefaultInterval is the minimum time between two polls of the shared folder.
const DefaultInterval = 5 * time.Second

// ErrSealedNoKey is returned for a sealed peer payload when no passphrase is
// configured locally.
var ErrSealedNoKey = errors.New("remote: payload is sealed but no passphrase is configured")

// Options configures a Client.
type Options struct {
	// Hostname identifies this host's file in the shared folder.
	Hostname string
	// Interval rate-limits PollForUpdates. Zero means DefaultInterval.
	Interval time.Duration
	// Key seals uploads and opens sealed downloads. Nil disables sealing.
	Key *crypto.Key
	// Now replaces time.Now in tests.
	Now func() time.Time
}

// Update is the newest peer content found by one poll.
type Update struct {
	Peer     string
	Modified time.Time
	Snapshot snapshot.Snapshot
}

// Client tracks peer files and moves envelopes to and from a Store. All of
// its operations are best-effort: failures are logged and reported through
// the return value, and the next call retries. It is not safe for concurrent
// use.
type Client struct {
	store    Store
	host     string
	interval time.Duration
	key      *crypto.Key
	now      func() time.Time

	polled   bool
	lastPoll time.Time

	// timestamps maps peer file name to the unix seconds of the last
	// modification acted upon; 0 means never or unknown.
	timestamps map[string]int64
	peers      []PeerFile
}

// NewClient returns a Client for store.
func NewClient(store Store, opts Options) (*Client, error) {
	if opts.Hostname == "" {
		return nil, errors.New("remote: hostname is required")
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Client{
		store:      store,
		host:       opts.Hostname,
		interval:   opts.Interval,
		key:        opts.Key,
		now:        opts.Now,
		timestamps: make(map[string]int64),
	}, nil
}

// FileName returns the name this host uploads to.
func (c *Client) FileName() string { return FileName(c.host) }

// TestConnection probes the server and makes sure the shared folder exists.
func (c *Client) TestConnection() bool {
	if err := c.store.Probe(); err != nil {
		slog.Error("remote connection failed", "err", err)
		return false
	}
	if err := c.store.EnsureFolder(); err != nil {
		slog.Warn("remote folder unavailable", "err", err)
	}
	return true
}

// DiscoverPeers lists the peer files present at startup and records their
// current modification times, so content that predates this process is not
// applied. Peers with an unknown modification time are recorded as 0.
func (c *Client) DiscoverPeers() []PeerFile {
	files, err := c.store.List()
	if err != nil {
		slog.Warn("remote peer discovery failed", "err", err)
		return nil
	}
	c.peers = peerFiles(files, c.host)
	for _, p := range c.peers {
		c.timestamps[p.Name] = unixOrZero(p)
	}
	slog.Debug("remote peers discovered",
		"peers", len(c.peers),
		"files", len(files),
		"self", c.FileName(),
	)
	return slices.Clone(c.peers)
}

// PollForUpdates returns the newest peer content written since the last
// poll, or nil. It does nothing if called again within the interval.
//
// Every peer whose modification time advanced is downloaded and its recorded
// timestamp moves forward, but only the single newest payload is returned
// (the first seen wins a tie). An older update from another peer in the same
// poll is therefore dropped: last writer wins per poll, not per peer.
func (c *Client) PollForUpdates() *Update {
	now := c.now()
	if c.polled && now.Sub(c.lastPoll) < c.interval {
		return nil
	}
	c.polled = true
	c.lastPoll = now

	files, err := c.store.List()
	if err != nil {
		slog.Warn("remote poll failed", "err", err)
		return nil
	}
	c.peers = peerFiles(files, c.host)

	var (
		best   *Update
		bestTS int64
	)
	for _, p := range c.peers {
		last, seen := c.timestamps[p.Name]
		if !seen {
			c.timestamps[p.Name] = 0
			if !p.Known() {
				continue
			}
			slog.Info("new remote peer", "peer", p.Name)
		}
		if !p.Known() {
			continue
		}
		ts := p.LastModified.Unix()
		if ts <= last {
			continue
		}
		if seen {
			slog.Info("remote peer updated", "peer", p.Name)
		}

		data, err := c.store.Get(p.Name)
		if err != nil {
			slog.Warn("remote download failed", "peer", p.Name, "err", err)
			continue
		}
		c.timestamps[p.Name] = ts

		snap, err := c.decode(p.Name, data)
		if err != nil {
			slog.Warn("remote payload rejected", "peer", p.Name, "err", err)
			continue
		}
		if ts > bestTS {
			best = &Update{Peer: p.Name, Modified: p.LastModified, Snapshot: snap}
			bestTS = ts
		}
	}
	return best
}

// Push compresses the envelope at jsonPath to jsonPath+".gz" and uploads it
// as this host's file.
func (c *Client) Push(jsonPath string) bool {
	raw, err := os.ReadFile(jsonPath)
	if err != nil {
		slog.Warn("remote push: read sync file", "path", jsonPath, "err", err)
		return false
	}
	payload, err := snapshot.Compress(raw)
	if err != nil {
		slog.Warn("remote push: compress", "path", jsonPath, "err", err)
		return false
	}
	if err := os.WriteFile(jsonPath+".gz", payload, 0o644); err != nil {
		slog.Warn("remote push: write compressed sync file", "path", jsonPath+".gz", "err", err)
		return false
	}
	if c.key != nil {
		if payload, err = crypto.Seal(payload, c.key); err != nil {
			slog.Warn("remote push: seal", "err", err)
			return false
		}
	}
	if err := c.store.Put(c.FileName(), payload); err != nil {
		slog.Warn("remote upload failed", "file", c.FileName(), "err", err)
		return false
	}
	slog.Info("uploaded to remote", "file", c.FileName(), "bytes", len(payload))
	return true
}

// Timestamps returns a copy of the peer timestamp table.
func (c *Client) Timestamps() map[string]int64 { return maps.Clone(c.timestamps) }

// Peers returns the peer files seen by the last discovery or poll.
func (c *Client) Peers() []PeerFile { return slices.Clone(c.peers) }

// decode turns a downloaded peer file into a snapshot according to its
// extension.
func (c *Client) decode(name string, data []byte) (snapshot.Snapshot, error) {
	switch {
	case strings.HasSuffix(name, ExtEnvelope):
		if crypto.IsSealed(data) {
			if c.key == nil {
				return nil, ErrSealedNoKey
			}
			plain, err := crypto.Open(data, c.key)
			if err != nil {
				return nil, err
			}
			data = plain
		}
		raw, err := snapshot.Decompress(data)
		if err != nil {
			return nil, err
		}
		return snapshot.Decode(raw)
	case strings.HasSuffix(name, extText):
		return snapshot.DecodeLegacyText(data)
	case strings.HasSuffix(name, extImage):
		return snapshot.DecodeLegacyImage(data)
	default:
		return nil, fmt.Errorf("remote: unsupported peer file %q", name)
	}
}

func unixOrZero(p PeerFile) int64 {
	if !p.Known() {
		return 0
	}
	return p.LastModified.Unix()
}
