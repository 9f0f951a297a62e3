package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipson/internal/snapshot"
)

func newPasteCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "paste",
		Short: "Print the newest peer clipboard to stdout",
		Long: `Fetches the newest clipboard file written by another host and prints it to
stdout. Rich clipboards print the format named by --mime, falling back to
plain text.

  clipson paste > note.txt
  clipson paste --mime text/html`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runPaste(cmd, v) },
	}

	cmd.Flags().String("mime", mimeText, "format to print from a rich clipboard")
	addHostFlag(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runPaste(cmd *cobra.Command, v *viper.Viper) error {
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}
	client, err := connect(cfg)
	if err != nil {
		return err
	}

	u := client.PollForUpdates()
	if u == nil {
		return fmt.Errorf("no clipboard from other machines found")
	}
	return writeSnapshot(cmd.OutOrStdout(), u.Snapshot, v.GetString("mime"))
}

// writeSnapshot prints the representation of s closest to mime.
func writeSnapshot(w io.Writer, s snapshot.Snapshot, mime string) error {
	var err error
	switch v := s.(type) {
	case snapshot.PlainText:
		_, err = fmt.Fprintln(w, v.Content)
	case snapshot.Image:
		_, err = w.Write(v.Data)
	case snapshot.MultiFormat:
		out, ok := v.Formats[mime]
		if !ok {
			out, ok = v.Formats[mimeText]
		}
		if !ok {
			return fmt.Errorf("clipboard has no %s or %s format (has %v)", mime, mimeText, snapshot.MIMETypes(s))
		}
		_, err = fmt.Fprintln(w, out)
	default:
		return fmt.Errorf("unsupported clipboard kind %q", s.Kind())
	}
	return err
}
