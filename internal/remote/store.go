// Package remote mirrors the local clipboard to a shared WebDAV folder and
// pulls the newest content written there by other hosts.
//
// Each host owns exactly one file in the folder, named after its hostname:
//
//	clipboard-<host>.json.gz   gzip'd JSON envelope (optionally sealed)
//	clipboard-<host>.txt       legacy plain or rich text
//	clipboard-<host>.png       legacy image
//
// A host never reads its own file. Convergence is last-writer-wins on the
// server's modification time.
package remote

import (
	"strings"
	"time"
)

const (
	filePrefix = "clipboard-"

	// ExtEnvelope marks the current compressed envelope format.
	ExtEnvelope = ".json.gz"
	extText     = ".txt"
	extImage    = ".png"
)

var peerExtensions = []string{ExtEnvelope, extText, extImage}

// PeerFile is one file in the shared folder.
type PeerFile struct {
	Name string
	// LastModified is the server's modification time; zero when the server
	// did not report one.
	LastModified time.Time
}

// Known reports whether the modification time is available.
func (p PeerFile) Known() bool { return !p.LastModified.IsZero() }

// Host returns the hostname encoded in the file name.
func (p PeerFile) Host() string {
	h, _ := ParseName(p.Name)
	return h
}

// Store is the transport under a Client. Implementations return errors; the
// Client decides which of them are soft.
type Store interface {
	// Probe checks that the server answers and the credentials are accepted.
	Probe() error
	// EnsureFolder creates the shared folder if it does not exist.
	EnsureFolder() error
	// List returns the files in the shared folder.
	List() ([]PeerFile, error)
	// Get downloads one file from the shared folder.
	Get(name string) ([]byte, error)
	// Put uploads one file to the shared folder, replacing it.
	Put(name string, data []byte) error
}

// FileName returns the name of host's current-format file.
func FileName(host string) string { return filePrefix + host + ExtEnvelope }

// ParseName extracts the hostname from a peer file name. It reports false for
// names that do not follow the clipboard-<host>.<ext> convention.
func ParseName(name string) (string, bool) {
	if !strings.HasPrefix(name, filePrefix) {
		return "", false
	}
	rest := strings.TrimPrefix(name, filePrefix)
	for _, ext := range peerExtensions {
		if host, ok := strings.CutSuffix(rest, ext); ok && host != "" {
			return host, true
		}
	}
	return "", false
}

// peerFiles keeps the files that belong to other hosts.
func peerFiles(files []PeerFile, self string) []PeerFile {
	var out []PeerFile
	for _, f := range files {
		host, ok := ParseName(f.Name)
		if !ok || host == self {
			continue
		}
		out = append(out, f)
	}
	return out
}
