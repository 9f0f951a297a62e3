package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.klb.dev/clipson/internal/clip"
	"go.klb.dev/clipson/internal/config"
	"go.klb.dev/clipson/internal/crypto"
	"go.klb.dev/clipson/internal/remote"
)

func isContainerID(s string) bool {
	if len(s) < 12 || len(s) > 64 {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}

// defaultHostname returns the name this host syncs under. Container IDs are
// shortened so peer files stay readable.
func defaultHostname() string {
	for _, env := range []string{"CONTAINER_NAME", "COMPOSE_SERVICE", "HOSTNAME_FRIENDLY"} {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	if isContainerID(h) {
		return "container-" + h[:8]
	}
	return h
}

// openClipboard selects, probes and checks the configured backend.
func openClipboard(ctx context.Context, cfg *config.Config) (*clip.Adapter, error) {
	b, fellBack, err := clip.Open(ctx, cfg.BackendKind(), cfg.App.CommandTimeout)
	if err != nil {
		return nil, err
	}
	if err := clip.CheckExecutables(b); err != nil {
		return nil, fmt.Errorf("%w (install with: sudo apt install %s)", err, b.Name())
	}
	slog.Info("clipboard backend ready",
		"backend", b.Name(),
		"fallback", fellBack,
		"multi_format", b.SupportsMultiFormat(),
	)
	return clip.NewAdapter(b), nil
}

// openRemote builds the remote client. It prompts for the password when
// none is configured and stdin is a terminal.
func openRemote(cfg *config.Config) (*remote.Client, error) {
	if err := cfg.PromptPassword(os.Stdin, os.Stderr); err != nil {
		return nil, err
	}

	var key *crypto.Key
	if cfg.App.Passphrase != "" {
		var err error
		if key, err = crypto.DeriveKey(cfg.App.Passphrase); err != nil {
			return nil, err
		}
	}

	store, err := remote.NewWebDAVStore(cfg.WebDAVOptions())
	if err != nil {
		return nil, err
	}
	return remote.NewClient(store, remote.Options{
		Hostname: cfg.App.Hostname,
		Interval: cfg.RemoteInterval(),
		Key:      key,
	})
}

// connect opens the remote client and checks the server answers.
func connect(cfg *config.Config) (*remote.Client, error) {
	client, err := openRemote(cfg)
	if err != nil {
		return nil, err
	}
	if !client.TestConnection() {
		return nil, fmt.Errorf("cannot reach WebDAV server at %s, check the nextcloud settings", cfg.WebDAVRoot())
	}
	return client, nil
}
