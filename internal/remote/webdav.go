package remote

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/studio-b12/gowebdav"
)

// DefaultHTTPTimeout bounds every WebDAV request.
const DefaultHTTPTimeout = 10 * time.Second

// NextcloudRoot returns the per-user WebDAV root of a Nextcloud server.
func NextcloudRoot(serverURL, username string) string {
	return strings.TrimRight(serverURL, "/") + "/remote.php/dav/files/" + url.PathEscape(username) + "/"
}

// WebDAVOptions configures a WebDAVStore.
type WebDAVOptions struct {
	// RootURL is the WebDAV collection all paths are relative to.
	RootURL  string
	Username string
	Password string
	// Folder is the shared folder below RootURL.
	Folder  string
	Timeout time.Duration
}

// WebDAVStore is a Store backed by a WebDAV server using Basic Auth.
type WebDAVStore struct {
	c      *gowebdav.Client
	folder string
}

// NewWebDAVStore returns a store for opts. It does not contact the server.
func NewWebDAVStore(opts WebDAVOptions) (*WebDAVStore, error) {
	if opts.RootURL == "" {
		return nil, errors.New("remote: webdav root url is required")
	}
	if _, err := url.Parse(opts.RootURL); err != nil {
		return nil, fmt.Errorf("remote: webdav root url: %w", err)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	c := gowebdav.NewClient(opts.RootURL, opts.Username, opts.Password)
	c.SetTimeout(timeout)
	return &WebDAVStore{c: c, folder: "/" + strings.Trim(opts.Folder, "/")}, nil
}

// Probe issues a depth-0 PROPFIND on the root.
func (s *WebDAVStore) Probe() error {
	if _, err := s.c.Stat("/"); err != nil {
		return fmt.Errorf("webdav probe: %w", err)
	}
	return nil
}

func (s *WebDAVStore) EnsureFolder() error {
	if s.folder == "/" {
		return nil
	}
	if err := s.c.MkdirAll(s.folder, 0o755); err != nil {
		return fmt.Errorf("webdav mkdir %s: %w", s.folder, err)
	}
	return nil
}

// List issues a depth-1 PROPFIND on the shared folder.
func (s *WebDAVStore) List() ([]PeerFile, error) {
	infos, err := s.c.ReadDir(s.folder)
	if err != nil {
		return nil, fmt.Errorf("webdav list %s: %w", s.folder, err)
	}
	files := make([]PeerFile, 0, len(infos))
	for _, fi := range infos {
		if fi.IsDir() {
			continue
		}
		files = append(files, PeerFile{Name: fi.Name(), LastModified: fi.ModTime()})
	}
	return files, nil
}

func (s *WebDAVStore) Get(name string) ([]byte, error) {
	data, err := s.c.Read(s.path(name))
	if err != nil {
		return nil, fmt.Errorf("webdav get %s: %w", name, err)
	}
	return data, nil
}

func (s *WebDAVStore) Put(name string, data []byte) error {
	if err := s.c.Write(s.path(name), data, 0o644); err != nil {
		return fmt.Errorf("webdav put %s: %w", name, err)
	}
	return nil
}

func (s *WebDAVStore) path(name string) string { return path.Join(s.folder, name) }
