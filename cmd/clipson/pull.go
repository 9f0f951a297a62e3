package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipson/internal/notify"
	"go.klb.dev/clipson/internal/reconcile"
)

func newPullCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Apply the newest peer clipboard once",
		Long: `Polls the shared folder once and writes the newest clipboard from another host
to the local clipboard. Nothing is captured or uploaded.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runPull(cmd, v) },
	}

	addClipboardFlags(cmd)
	addHostFlag(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runPull(cmd *cobra.Command, v *viper.Viper) error {
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}
	adapter, err := openClipboard(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	client, err := connect(cfg)
	if err != nil {
		return err
	}

	loop := reconcile.New(adapter, nil, client, notify.Nop{}, 0)
	if !loop.Pull() {
		fmt.Fprintln(cmd.OutOrStdout(), "No newer clipboard from other machines.")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Applied %s\n", loop.Last())
	return nil
}
