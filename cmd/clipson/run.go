package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipson/internal/capture"
	"go.klb.dev/clipson/internal/notify"
	"go.klb.dev/clipson/internal/reconcile"
	"go.klb.dev/clipson/internal/remote"
)

func newRunCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the clipboard sync daemon",
		Long: `Watches the local clipboard and the shared WebDAV folder until interrupted.

Every local change is saved to a numbered file in app.capture_dir and uploaded
as clipboard-<hostname>.json.gz. Newer files from other hosts are applied to
the local clipboard. Content already on the clipboard at startup is saved but
not uploaded.

Precedence (lowest → highest): defaults → config file → CLIPSON_* env vars → flags`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runDaemon(cmd, v) },
	}

	cmd.Flags().Bool("no-notify", false, "disable desktop notifications")
	addClipboardFlags(cmd)
	addHostFlag(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runDaemon(cmd *cobra.Command, v *viper.Viper) error {
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	adapter, err := openClipboard(ctx, cfg)
	if err != nil {
		return err
	}
	client, err := connect(cfg)
	if err != nil {
		return err
	}
	peers := client.DiscoverPeers()

	store, err := capture.New(cfg.CaptureOptions())
	if err != nil {
		return err
	}

	slog.Info("clipson started",
		"version", Version,
		"config", cfg.File,
		"remote", cfg.WebDAVRoot()+cfg.Nextcloud.RemoteFolder,
		"upload_file", remote.FileName(cfg.App.Hostname),
		"capture_dir", store.Dir(),
		"sync_file", store.SyncFile(),
		"max_history", cfg.App.MaxHistory,
		"remote_interval", cfg.RemoteInterval(),
		"encrypted", cfg.App.Passphrase != "",
	)
	if len(peers) == 0 {
		slog.Info("no remote peers yet, only uploading", "file", client.FileName())
	}
	for _, p := range peers {
		slog.Info("remote peer", "peer", p.Name, "modified", p.LastModified)
	}

	n := notify.New(cfg.App.Notify && !v.GetBool("no-notify"))
	loop := reconcile.New(adapter, store, client, n, cfg.App.TickInterval)
	return loop.Run(ctx)
}
