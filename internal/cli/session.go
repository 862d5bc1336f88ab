package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newSessionCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect and change daemon settings",
	}

	var all bool
	get := &cobra.Command{
		Use:   "get",
		Short: "Show session settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if all {
				resp, err := a.client.SessionGet(ctx)
				if err != nil {
					return err
				}
				return a.render(cmd, resp.Arguments, func(w io.Writer) error {
					return printTree(w, resp.Arguments)
				})
			}

			info, err := a.client.GetSessionInfo(ctx)
			if err != nil {
				return err
			}
			return a.render(cmd, info, func(w io.Writer) error {
				fmt.Fprintf(w, "Version:       %s\n", info.Version)
				fmt.Fprintf(w, "RPC version:   %d (minimum %d)\n", info.RPCVersion, info.RPCVersionMinimum)
				fmt.Fprintf(w, "Download dir:  %s\n", info.DownloadDir)
				fmt.Fprintf(w, "Peer limit:    %d global, %d per torrent\n", info.PeerLimitGlobal, info.PeerLimitPerTorrent)
				fmt.Fprintf(w, "Speed limits:  down %d kB/s (%s), up %d kB/s (%s)\n",
					info.SpeedLimitDown, enabled(info.SpeedLimitDownEnabled),
					info.SpeedLimitUp, enabled(info.SpeedLimitUpEnabled))
				return nil
			})
		},
	}
	get.Flags().BoolVarP(&all, "all", "a", false, "Show every setting reported by the daemon")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show transfer statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := a.client.GetSessionStats(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(cmd, stats, func(w io.Writer) error {
				fmt.Fprintf(w, "Torrents:    %d (%d active, %d paused)\n", stats.TorrentCount, stats.ActiveTorrentCount, stats.PausedTorrentCount)
				fmt.Fprintf(w, "Speed:       down %d B/s, up %d B/s\n", stats.DownloadSpeed, stats.UploadSpeed)
				fmt.Fprintf(w, "Session:     down %d B, up %d B\n", stats.CurrentStats.DownloadedBytes, stats.CurrentStats.UploadedBytes)
				fmt.Fprintf(w, "Cumulative:  down %d B, up %d B\n", stats.CumulativeStats.DownloadedBytes, stats.CumulativeStats.UploadedBytes)
				return nil
			})
		},
	}

	set := &cobra.Command{
		Use:   "set KEY=VALUE...",
		Short: "Change session settings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := parsePairs(args)
			if err != nil {
				return err
			}
			resp, err := a.client.SessionSet(cmd.Context(), settings)
			if err != nil {
				return err
			}
			return a.renderResult(cmd, "SET SESSION", resp)
		},
	}

	cmd.AddCommand(get, stats, set)
	return cmd
}

func enabled(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}
