package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	transmission "github.com/jfxdev/go-transmission"
)

func newTorrentCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "torrent",
		Aliases: []string{"t"},
		Short:   "Manage torrents",
	}

	cmd.AddCommand(
		newTorrentListCommand(a),
		newTorrentGetCommand(a),
		newTorrentAddCommand(a),
		newTorrentActionCommand(a, "start", "START TORRENTS", (*transmission.Client).StartTorrents),
		newTorrentActionCommand(a, "stop", "STOP TORRENTS", (*transmission.Client).StopTorrents),
		newTorrentActionCommand(a, "verify", "VERIFY TORRENTS", (*transmission.Client).VerifyTorrents),
		newTorrentActionCommand(a, "reannounce", "REANNOUNCE TORRENTS", (*transmission.Client).ReannounceTorrents),
		newTorrentRemoveCommand(a),
		newTorrentMoveCommand(a),
		newTorrentSetCommand(a),
		newTorrentStatusCommand(a),
	)
	return cmd
}

func newTorrentListCommand(a *app) *cobra.Command {
	var fields []string
	cmd := &cobra.Command{
		Use:     "list [ID...]",
		Aliases: []string{"ls"},
		Short:   "List torrents",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			torrents, err := a.client.ListTorrents(ctx, transmission.ListOptions{IDs: ids, Fields: fields})
			if err != nil {
				return err
			}

			return a.render(cmd, torrents, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tDONE")
				for _, t := range torrents {
					status, err := a.client.TorrentStatusMessage(ctx, t.Status)
					if err != nil {
						return err
					}
					fmt.Fprintf(tw, "%d\t%s\t%s\t%.0f%%\n", t.ID, t.Name, status, t.PercentDone*100)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringSliceVar(&fields, "fields", nil, "Fields to request (default id,name,status,...)")
	return cmd
}

func newTorrentGetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show a single torrent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid torrent id %q", args[0])
			}
			ctx := cmd.Context()
			t, err := a.client.GetTorrent(ctx, id)
			if err != nil {
				return err
			}

			return a.render(cmd, t, func(w io.Writer) error {
				status, err := a.client.TorrentStatusMessage(ctx, t.Status)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "ID:          %d\n", t.ID)
				fmt.Fprintf(w, "Name:        %s\n", t.Name)
				fmt.Fprintf(w, "Hash:        %s\n", t.HashString)
				fmt.Fprintf(w, "Status:      %s\n", status)
				fmt.Fprintf(w, "Location:    %s\n", t.DownloadDir)
				fmt.Fprintf(w, "Size:        %d B (%d B verified)\n", t.TotalSize, t.HaveValid)
				fmt.Fprintf(w, "Upload limit: %d kB/s\n", t.UploadLimit)
				if t.ErrorString != "" {
					fmt.Fprintf(w, "Error:       %s\n", t.ErrorString)
				}
				if t.MagnetLink != nil {
					fmt.Fprintf(w, "Magnet:      %s\n", t.MagnetURI)
					if len(t.MagnetLink.Trackers) > 0 {
						fmt.Fprintf(w, "Trackers:    %s\n", strings.Join(t.MagnetLink.Trackers, ", "))
					}
				}
				return nil
			})
		},
	}
}

func newTorrentAddCommand(a *app) *cobra.Command {
	var (
		downloadDir string
		paused      bool
		metainfo    bool
	)
	cmd := &cobra.Command{
		Use:   "add LOCATION",
		Short: "Add a torrent from a URL, magnet link, daemon-side path or local .torrent file",
		Long: "Add a torrent. LOCATION is passed to the daemon as is unless --metainfo is\n" +
			"given, in which case the local file is read and uploaded.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			location := args[0]

			extra := transmission.TorrentOptions{}
			if cmd.Flags().Changed("paused") {
				extra.Paused = &paused
			}

			var (
				resp *transmission.Response
				err  error
			)
			switch {
			case metainfo:
				content, readErr := os.ReadFile(location)
				if readErr != nil {
					return fmt.Errorf("failed to read torrent file: %w", readErr)
				}
				resp, err = a.client.AddTorrentMetainfo(ctx, content, downloadDir, extra)
			case strings.HasPrefix(location, "magnet:"):
				resp, err = a.client.AddMagnet(ctx, location, downloadDir, extra)
			default:
				resp, err = a.client.AddTorrentFile(ctx, location, downloadDir, extra)
			}
			if err != nil {
				return err
			}

			added, duplicate, err := resp.AddedTorrent()
			if err != nil {
				return err
			}
			return a.render(cmd, added, func(w io.Writer) error {
				label := "added"
				if duplicate {
					label = "duplicate"
				}
				fmt.Fprintf(w, "%s torrent %d: %s\n", label, added.ID, added.Name)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&downloadDir, "download-dir", "d", "", "Download directory, daemon default when empty")
	cmd.Flags().BoolVar(&paused, "paused", false, "Add the torrent without starting it")
	cmd.Flags().BoolVar(&metainfo, "metainfo", false, "Upload LOCATION as a local .torrent file")
	return cmd
}

// torrentAction is one of the id-only methods, e.g. (*Client).StartTorrents.
type torrentAction func(*transmission.Client, context.Context, ...int) (*transmission.Response, error)

func newTorrentActionCommand(a *app, name, label string, action torrentAction) *cobra.Command {
	return &cobra.Command{
		Use:   name + " [ID...]",
		Short: strings.ToUpper(name[:1]) + name[1:] + " torrents, all of them when no id is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			resp, err := action(a.client, cmd.Context(), ids...)
			if err != nil {
				return err
			}
			return a.renderResult(cmd, label, resp)
		},
	}
}

func newTorrentRemoveCommand(a *app) *cobra.Command {
	var deleteLocalData bool
	cmd := &cobra.Command{
		Use:     "remove ID...",
		Aliases: []string{"rm"},
		Short:   "Remove torrents",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			resp, err := a.client.RemoveTorrents(cmd.Context(), ids, deleteLocalData)
			if err != nil {
				return err
			}
			return a.renderResult(cmd, "REMOVE TORRENTS", resp)
		},
	}
	cmd.Flags().BoolVar(&deleteLocalData, "delete-local-data", false, "Also delete downloaded data")
	return cmd
}

func newTorrentMoveCommand(a *app) *cobra.Command {
	var (
		location string
		move     bool
	)
	cmd := &cobra.Command{
		Use:   "move ID...",
		Short: "Set the storage location of torrents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			resp, err := a.client.MoveTorrents(cmd.Context(), ids, location, move)
			if err != nil {
				return err
			}
			return a.renderResult(cmd, "MOVE TORRENTS", resp)
		},
	}
	cmd.Flags().StringVarP(&location, "location", "l", "", "New location")
	cmd.Flags().BoolVar(&move, "move", true, "Move the data, otherwise look for it at the new location")
	_ = cmd.MarkFlagRequired("location")
	return cmd
}

func newTorrentSetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set ID[,ID...] KEY=VALUE...",
		Short: "Change torrent properties, e.g. uploadLimit=10",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args[:1])
			if err != nil {
				return err
			}
			props, err := parsePairs(args[1:])
			if err != nil {
				return err
			}
			resp, err := a.client.SetTorrents(cmd.Context(), ids, props)
			if err != nil {
				return err
			}
			return a.renderResult(cmd, "SET TORRENTS", resp)
		},
	}
}

func newTorrentStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status CODE",
		Short: "Translate a status code for the daemon's RPC version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid status code %q", args[0])
			}
			msg, err := a.client.TorrentStatusMessage(cmd.Context(), code)
			if err != nil {
				return err
			}
			return a.render(cmd, map[string]any{"code": code, "status": msg}, func(w io.Writer) error {
				fmt.Fprintln(w, msg)
				return nil
			})
		},
	}
}
