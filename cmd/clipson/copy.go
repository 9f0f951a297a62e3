package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipson/internal/capture"
	"go.klb.dev/clipson/internal/snapshot"
)

const (
	mimeText = "text/plain"
	mimePNG  = "image/png"
)

func newCopyCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "copy",
		Short: "Publish stdin to the shared folder",
		Long: `Reads content from stdin, saves it as a numbered capture and uploads it as this
host's clipboard file, without touching the local clipboard.

  echo hello | clipson copy
  clipson copy --mime image/png < shot.png`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runCopy(cmd, v) },
	}

	cmd.Flags().String("mime", mimeText, "content type of stdin: text/plain|image/png")
	addHostFlag(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runCopy(cmd *cobra.Command, v *viper.Viper) error {
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}

	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	snap, err := stdinSnapshot(v.GetString("mime"), data)
	if err != nil {
		return err
	}

	client, err := connect(cfg)
	if err != nil {
		return err
	}
	store, err := capture.New(cfg.CaptureOptions())
	if err != nil {
		return err
	}
	c, err := store.Save(snap)
	if err != nil {
		return err
	}
	if !client.Push(c.SyncFile) {
		return fmt.Errorf("upload of %s failed", client.FileName())
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Published %s as %s\n", snapshot.Preview(snap, 50), client.FileName())
	return nil
}

func stdinSnapshot(mime string, data []byte) (snapshot.Snapshot, error) {
	switch mime {
	case mimeText:
		text := strings.TrimRight(string(data), "\n")
		if text == "" {
			return nil, fmt.Errorf("nothing to copy: stdin is empty")
		}
		return snapshot.PlainText{Content: text}, nil
	case mimePNG:
		if len(data) == 0 {
			return nil, fmt.Errorf("nothing to copy: stdin is empty")
		}
		return snapshot.Image{Data: data, Format: snapshot.ImageFormat}, nil
	default:
		return nil, fmt.Errorf("unsupported --mime %q (want %s or %s)", mime, mimeText, mimePNG)
	}
}
