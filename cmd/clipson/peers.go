package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipson/internal/config"
	"go.klb.dev/clipson/internal/remote"
)

func newPeersCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "peers",
		Short: "List the hosts syncing through the shared folder",
		Long: `Connects to the WebDAV server and lists the clipboard files written by other
hosts, with the time each was last updated.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runPeers(v) },
	}

	cmd.Flags().Bool("json", false, "output raw JSON")
	addHostFlag(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

type peerJSON struct {
	Name     string     `json:"name"`
	Host     string     `json:"host"`
	Modified *time.Time `json:"modified,omitempty"`
}

func runPeers(v *viper.Viper) error {
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}
	client, err := connect(cfg)
	if err != nil {
		return err
	}
	peers := client.DiscoverPeers()

	if v.GetBool("json") {
		out := make([]peerJSON, 0, len(peers))
		for _, p := range peers {
			pj := peerJSON{Name: p.Name, Host: p.Host()}
			if p.Known() {
				t := p.LastModified.UTC()
				pj.Modified = &t
			}
			out = append(out, pj)
		}
		enc, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(enc))
		return nil
	}

	printPeers(os.Stdout, cfg, client.FileName(), peers)
	return nil
}

func printPeers(out io.Writer, cfg *config.Config, self string, peers []remote.PeerFile) {
	w := tabwriter.NewWriter(out, 1, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Remote:\t%s%s\n", cfg.WebDAVRoot(), cfg.Nextcloud.RemoteFolder)
	fmt.Fprintf(w, "Uploads as:\t%s\n", self)
	fmt.Fprintln(w)
	_ = w.Flush()

	if len(peers) == 0 {
		fmt.Fprintln(out, "No remote clipboard files from other machines found.")
		return
	}

	tw := tabwriter.NewWriter(out, 1, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "HOST\tFILE\tMODIFIED\tAGE\n")
	_, _ = fmt.Fprintf(tw, "----\t----\t--------\t---\n")
	for _, p := range peers {
		modified, age := "unknown", "-"
		if p.Known() {
			modified = p.LastModified.Local().Format("2006-01-02 15:04:05")
			age = fmtAge(p.LastModified)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Host(), p.Name, modified, age)
	}
	_ = tw.Flush()
}

func fmtAge(t time.Time) string {
	age := time.Since(t).Round(time.Second)
	if age < time.Minute {
		return fmt.Sprintf("%ds ago", int(age.Seconds()))
	}
	if age < time.Hour {
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	}
	if age < 24*time.Hour {
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	}
	return t.Format("2006-01-02")
}
