// Package capture persists clipboard snapshots to rotating numbered files and
// maintains the per-host sync file that is pushed to peers.
package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"time"

	"go.klb.dev/clipson/internal/snapshot"
)

// MaxSlots is the number of numbered capture slots. The counter wraps from
// MaxSlots back to 1, overwriting the oldest files.
const MaxSlots = 999

// extensions maps each format to the suffix of its capture file.
var extensions = map[string]string{
	"text/plain":        ".txt",
	"text/html":         ".html",
	"text/rtf":          ".rtf",
	"application/rtf":   ".app-rtf",
	"application/x-rtf": ".x-rtf",
	"text/richtext":     ".richtext",
	"text/uri-list":     ".uri",
	"text/x-moz-url":    ".url",
	"UTF8_STRING":       ".utf8",
	"STRING":            ".string",
	"TEXT":              ".text",
}

var slotPattern = regexp.MustCompile(`^clipboard_(?:text|image|rich)_(\d{3})\.`)

// Options configures a Store.
type Options struct {
	// Dir receives the numbered capture files.
	Dir string
	// SyncDir receives clipboard-<host>.json.
	SyncDir  string
	Hostname string
	// MaxHistory bounds the number of slots kept on disk. Values outside
	// 1..MaxSlots mean MaxSlots.
	MaxHistory int
}

// Capture describes one saved snapshot.
type Capture struct {
	Number   int
	Kind     snapshot.Kind
	Paths    []string
	SyncFile string
	// First is set for the first successful save of the process. Content
	// found on the clipboard at startup is recorded locally but not pushed.
	First bool
}

// Store writes snapshots to disk. It is not safe for concurrent use; the
// reconciliation loop is its only caller.
type Store struct {
	dir        string
	syncFile   string
	maxHistory int
	counter    int
	saved      bool
}

// New creates the capture directories if needed.
func New(opts Options) (*Store, error) {
	if opts.Hostname == "" {
		return nil, errors.New("capture: hostname is required")
	}
	if opts.SyncDir == "" {
		opts.SyncDir = "."
	}
	for _, d := range []string{opts.Dir, opts.SyncDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("capture: create %s: %w", d, err)
		}
	}
	limit := opts.MaxHistory
	if limit <= 0 || limit > MaxSlots {
		limit = MaxSlots
	}
	return &Store{
		dir:        opts.Dir,
		syncFile:   filepath.Join(opts.SyncDir, SyncFileName(opts.Hostname)),
		maxHistory: limit,
	}, nil
}

// SyncFileName returns the name of a host's uncompressed sync file.
func SyncFileName(host string) string { return "clipboard-" + host + ".json" }

// SyncFile returns the path of this host's sync file.
func (s *Store) SyncFile() string { return s.syncFile }

// Dir returns the capture directory.
func (s *Store) Dir() string { return s.dir }

// Save writes snap to the next numbered slot and refreshes the sync file.
func (s *Store) Save(snap snapshot.Snapshot) (Capture, error) {
	if err := snapshot.Validate(snap); err != nil {
		return Capture{}, fmt.Errorf("capture: %w", err)
	}
	n := s.next()
	c := Capture{Number: n, Kind: snap.Kind(), SyncFile: s.syncFile}

	switch v := snap.(type) {
	case snapshot.PlainText:
		p := s.slotPath("text", n, ".txt")
		if err := os.WriteFile(p, []byte(v.Content), 0o644); err != nil {
			return Capture{}, fmt.Errorf("capture: write %s: %w", p, err)
		}
		c.Paths = []string{p}
	case snapshot.Image:
		p := s.slotPath("image", n, ".png")
		if err := os.WriteFile(p, v.Data, 0o644); err != nil {
			return Capture{}, fmt.Errorf("capture: write %s: %w", p, err)
		}
		c.Paths = []string{p}
	case snapshot.MultiFormat:
		paths, err := s.writeFormats(n, v.Formats)
		if err != nil {
			return Capture{}, err
		}
		c.Paths = paths
	}

	data, err := snapshot.Encode(snap)
	if err != nil {
		return Capture{}, fmt.Errorf("capture: %w", err)
	}
	if err := writeFileAtomic(s.syncFile, data); err != nil {
		return Capture{}, fmt.Errorf("capture: sync file: %w", err)
	}

	if s.maxHistory < MaxSlots {
		s.prune(n)
	}

	c.First = !s.saved
	s.saved = true
	return c, nil
}

// next advances the rotating counter.
func (s *Store) next() int {
	s.counter++
	if s.counter > MaxSlots {
		s.counter = 1
	}
	return s.counter
}

func (s *Store) slotPath(kind string, n int, ext string) string {
	return filepath.Join(s.dir, fmt.Sprintf("clipboard_%s_%03d%s", kind, n, ext))
}

func (s *Store) writeFormats(n int, formats map[string]string) ([]string, error) {
	mimes := make([]string, 0, len(formats))
	for m := range formats {
		mimes = append(mimes, m)
	}
	slices.Sort(mimes)

	used := make(map[string]bool)
	paths := make([]string, 0, len(mimes))
	for _, m := range mimes {
		ext, ok := extensions[m]
		if !ok {
			ext = ".dat"
		}
		for i := 2; used[ext]; i++ {
			ext = ".dat" + strconv.Itoa(i)
		}
		used[ext] = true

		p := s.slotPath("rich", n, ext)
		if err := os.WriteFile(p, []byte(formats[m]), 0o644); err != nil {
			return nil, fmt.Errorf("capture: write %s: %w", p, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// prune removes whole slots, oldest first, until at most maxHistory remain.
// The slot just written is never removed. Failures are logged; they never
// fail the capture.
func (s *Store) prune(current int) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		slog.Warn("capture history scan failed", "dir", s.dir, "err", err)
		return
	}

	type slot struct {
		files   []string
		modTime time.Time
	}
	slots := make(map[int]*slot)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := slotPattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		info, err := e.Info()
		if err != nil {
			continue
		}
		sl := slots[n]
		if sl == nil {
			sl = &slot{}
			slots[n] = sl
		}
		sl.files = append(sl.files, filepath.Join(s.dir, e.Name()))
		if info.ModTime().After(sl.modTime) {
			sl.modTime = info.ModTime()
		}
	}

	excess := len(slots) - s.maxHistory
	if excess <= 0 {
		return
	}
	numbers := make([]int, 0, len(slots))
	for n := range slots {
		if n != current {
			numbers = append(numbers, n)
		}
	}
	slices.SortFunc(numbers, func(a, b int) int {
		if c := slots[a].modTime.Compare(slots[b].modTime); c != 0 {
			return c
		}
		return a - b
	})
	for _, n := range numbers[:min(excess, len(numbers))] {
		for _, f := range slots[n].files {
			if err := os.Remove(f); err != nil && !errors.Is(err, os.ErrNotExist) {
				slog.Warn("capture history prune failed", "path", f, "err", err)
				continue
			}
			slog.Debug("pruned capture", "path", f)
		}
	}
}

// writeFileAtomic replaces path so readers never observe a partial file.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
