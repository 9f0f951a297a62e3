// clipson: clipboard sync through a shared WebDAV folder.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "clipson",
		Short: "Clipboard sync through a shared WebDAV folder",
		Long: `clipson watches the local clipboard, keeps numbered copies of everything
captured, and mirrors the latest content to a WebDAV folder (Nextcloud by
default). Every machine sharing the folder converges on the newest clipboard.

Run "clipson run" on each host. Use "clipson peers" to see who else is
syncing, and "clipson pull" to fetch the newest peer clipboard once.

Config file search order (first found wins):
  path supplied via --config
  ./clipson.{json,toml,yaml} or ./config.json
  $HOME/.config/clipson/
  /etc/clipson/

All keys can be set via CLIPSON_<SECTION>_<KEY> env vars, e.g.
CLIPSON_NEXTCLOUD_PASSWORD.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newRunCmd(),
		newPeersCmd(),
		newPullCmd(),
		newCopyCmd(),
		newPasteCmd(),
		newVersionCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("clipson %s\n", Version)
		},
	}
}
