// Package config holds clipson's settings as read from viper.
//
// The file layout matches the config.json that earlier releases shipped:
//
//	{
//	  "nextcloud": { "server_url": "...", "username": "...", "password": "", "remote_folder": "Clipboard/" },
//	  "app": { "debug_enabled": false, "max_history": 999, "remote_check_interval_seconds": 5, "use_copyq": true }
//	}
//
// Every key can also be set as CLIPSON_<SECTION>_<KEY>, e.g.
// CLIPSON_NEXTCLOUD_PASSWORD.
package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/term"

	"go.klb.dev/clipson/internal/capture"
	"go.klb.dev/clipson/internal/clip"
	"go.klb.dev/clipson/internal/remote"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "CLIPSON"

var (
	// ErrMissingKey is returned by Validate for an unset required key.
	ErrMissingKey = errors.New("missing required config key")
	// ErrEmptyPassword is returned when the password prompt gets no input.
	ErrEmptyPassword = errors.New("password cannot be empty")
)

type Nextcloud struct {
	ServerURL    string `mapstructure:"server_url"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	RemoteFolder string `mapstructure:"remote_folder"`
}

type WebDAV struct {
	// RootURL replaces the Nextcloud-derived root for other WebDAV servers.
	RootURL string `mapstructure:"root_url"`
}

type App struct {
	DebugEnabled               bool          `mapstructure:"debug_enabled"`
	MaxHistory                 int           `mapstructure:"max_history"`
	RemoteCheckIntervalSeconds int           `mapstructure:"remote_check_interval_seconds"`
	TickInterval               time.Duration `mapstructure:"tick_interval"`
	Backend                    string        `mapstructure:"backend"`
	UseCopyQ                   bool          `mapstructure:"use_copyq"`
	CaptureDir                 string        `mapstructure:"capture_dir"`
	SyncDir                    string        `mapstructure:"sync_dir"`
	Hostname                   string        `mapstructure:"hostname"`
	Notify                     bool          `mapstructure:"notify"`
	Passphrase                 string        `mapstructure:"passphrase"`
	CommandTimeout             time.Duration `mapstructure:"command_timeout"`
	HTTPTimeout                time.Duration `mapstructure:"http_timeout"`
}

// Config is the complete clipson configuration.
type Config struct {
	Nextcloud Nextcloud `mapstructure:"nextcloud"`
	WebDAV    WebDAV    `mapstructure:"webdav"`
	App       App       `mapstructure:"app"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

// SetDefaults registers every key so that environment variables are picked
// up for keys absent from the config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("nextcloud.server_url", "")
	v.SetDefault("nextcloud.username", "")
	v.SetDefault("nextcloud.password", "")
	v.SetDefault("nextcloud.remote_folder", "")
	v.SetDefault("webdav.root_url", "")
	v.SetDefault("app.debug_enabled", false)
	v.SetDefault("app.max_history", capture.MaxSlots)
	v.SetDefault("app.remote_check_interval_seconds", int(remote.DefaultInterval/time.Second))
	v.SetDefault("app.tick_interval", "500ms")
	v.SetDefault("app.backend", "")
	v.SetDefault("app.use_copyq", true)
	v.SetDefault("app.capture_dir", "./clipboard-captures")
	v.SetDefault("app.sync_dir", ".")
	v.SetDefault("app.hostname", "")
	v.SetDefault("app.notify", true)
	v.SetDefault("app.passphrase", "")
	v.SetDefault("app.command_timeout", clip.DefaultCommandTimeout.String())
	v.SetDefault("app.http_timeout", remote.DefaultHTTPTimeout.String())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes v into a Config. SetDefaults must have been called on v.
func Load(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	c.File = v.ConfigFileUsed()
	if c.App.Hostname == "" {
		h, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("config: hostname: %w", err)
		}
		c.App.Hostname = h
	}
	return &c, nil
}

// Validate checks the keys needed to reach the remote store. The password is
// not checked here; PromptPassword fills it in interactively.
func (c *Config) Validate() error {
	var missing []string
	if c.WebDAV.RootURL == "" {
		if c.Nextcloud.ServerURL == "" {
			missing = append(missing, "nextcloud.server_url")
		}
		if c.Nextcloud.Username == "" {
			missing = append(missing, "nextcloud.username")
		}
	}
	if len(missing) > 0 {
		where := "no config file found"
		if c.File != "" {
			where = c.File
		}
		return fmt.Errorf("%w: %s (%s)", ErrMissingKey, strings.Join(missing, ", "), where)
	}

	root := c.WebDAVRoot()
	if u, err := url.Parse(root); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: invalid WebDAV root %q", root)
	}
	if strings.ContainsAny(c.App.Hostname, "/\\") {
		return fmt.Errorf("config: hostname %q must not contain path separators", c.App.Hostname)
	}
	if _, err := clip.New(c.BackendKind(), c.App.CommandTimeout); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.App.MaxHistory < 1 {
		return fmt.Errorf("config: app.max_history must be at least 1, got %d", c.App.MaxHistory)
	}
	if c.App.RemoteCheckIntervalSeconds < 0 {
		return fmt.Errorf("config: app.remote_check_interval_seconds must not be negative")
	}
	return nil
}

// WebDAVRoot returns the WebDAV collection all remote paths are relative to.
func (c *Config) WebDAVRoot() string {
	if c.WebDAV.RootURL != "" {
		return c.WebDAV.RootURL
	}
	return remote.NextcloudRoot(c.Nextcloud.ServerURL, c.Nextcloud.Username)
}

// BackendKind resolves app.backend, falling back to the legacy app.use_copyq
// switch when it is unset.
func (c *Config) BackendKind() string {
	if c.App.Backend != "" {
		return strings.ToLower(c.App.Backend)
	}
	if c.App.UseCopyQ {
		return clip.KindCopyQ
	}
	return clip.KindXClip
}

// RemoteInterval returns the minimum time between two remote polls.
func (c *Config) RemoteInterval() time.Duration {
	return time.Duration(c.App.RemoteCheckIntervalSeconds) * time.Second
}

// WebDAVOptions builds the options of the remote store.
func (c *Config) WebDAVOptions() remote.WebDAVOptions {
	return remote.WebDAVOptions{
		RootURL:  c.WebDAVRoot(),
		Username: c.Nextcloud.Username,
		Password: c.Nextcloud.Password,
		Folder:   c.Nextcloud.RemoteFolder,
		Timeout:  c.App.HTTPTimeout,
	}
}

// CaptureOptions builds the options of the local capture store.
func (c *Config) CaptureOptions() capture.Options {
	return capture.Options{
		Dir:        c.App.CaptureDir,
		SyncDir:    c.App.SyncDir,
		Hostname:   c.App.Hostname,
		MaxHistory: c.App.MaxHistory,
	}
}

// PromptPassword asks for the password on in when none is configured. It
// does nothing if a password is set, and fails if in is not a terminal.
func (c *Config) PromptPassword(in *os.File, out io.Writer) error {
	if strings.TrimSpace(c.Nextcloud.Password) != "" {
		return nil
	}
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("%w: nextcloud.password (stdin is not a terminal)", ErrMissingKey)
	}
	fmt.Fprintf(out, "No password configured for user: %s\n", c.Nextcloud.Username)
	fmt.Fprint(out, "Please enter your password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	if strings.TrimSpace(string(pw)) == "" {
		return ErrEmptyPassword
	}
	c.Nextcloud.Password = string(pw)
	return nil
}
