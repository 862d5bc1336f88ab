package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	transmission "github.com/jfxdev/go-transmission"
)

// DefaultDemoTorrent is the torrent added by the demo command.
const DefaultDemoTorrent = "http://www.slackware.com/torrents/slackware64-13.1-install-dvd.torrent"

const demoUploadLimit = 10

type demoOptions struct {
	torrent     string
	downloadDir string
	moveTo      string
	pause       time.Duration
	keep        bool
}

func newDemoCommand(a *app) *cobra.Command {
	var opts demoOptions
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Exercise every torrent operation against the daemon",
		Long: "Adds a torrent, changes and reads back its upload limit, stops, verifies,\n" +
			"starts, reannounces, moves and finally removes it, printing one line per step.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d := &demo{client: a.client, w: cmd.OutOrStdout(), opts: opts}
			return d.run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&opts.torrent, "torrent", DefaultDemoTorrent, "Torrent URL to add")
	cmd.Flags().StringVar(&opts.downloadDir, "download-dir", "/tmp", "Download directory")
	cmd.Flags().StringVar(&opts.moveTo, "move-to", "/tmp/torrent-test", "Location used by the move step")
	cmd.Flags().DurationVar(&opts.pause, "pause", 2*time.Second, "Pause between steps")
	cmd.Flags().BoolVar(&opts.keep, "keep", false, "Skip the final remove step")
	return cmd
}

type demoStep struct {
	label string
	call  func() (*transmission.Response, error)
}

type demo struct {
	client *transmission.Client
	w      io.Writer
	opts   demoOptions
}

func (d *demo) run(ctx context.Context) error {
	resp, err := d.client.SessionStats(ctx)
	if err := d.report(ctx, "GET SESSION STATS", resp, err); err != nil {
		return err
	}

	resp, err = d.client.AddTorrentFile(ctx, d.opts.torrent, d.opts.downloadDir, nil)
	if err != nil {
		return d.fail("ADD TORRENT TEST", err)
	}
	added, _, err := resp.AddedTorrent()
	if err != nil {
		return d.fail("ADD TORRENT TEST", err)
	}
	id := added.ID
	printResult(d.w, "ADD TORRENT TEST", resp.Result)
	fmt.Fprintf(d.w, "  id=%d name=%s\n", id, added.Name)
	if err := d.sleep(ctx); err != nil {
		return err
	}

	resp, err = d.client.SetTorrents(ctx, []int{id}, transmission.Args{"uploadLimit": demoUploadLimit})
	if err := d.report(ctx, "SET TORRENT INFO TEST", resp, err); err != nil {
		return err
	}

	raw, err := d.client.CallRaw(ctx, transmission.MethodTorrentGet, transmission.Args{
		"ids":    []int{id},
		"fields": []string{"uploadLimit"},
	})
	if err != nil {
		return d.fail("GET TORRENT INFO AS ARRAY TEST", err)
	}
	result, _ := raw["result"].(string)
	printResult(d.w, "GET TORRENT INFO AS ARRAY TEST", result)
	if err := d.sleep(ctx); err != nil {
		return err
	}

	torrents, err := d.client.ListTorrents(ctx, transmission.ListOptions{IDs: []int{id}, Fields: []string{"uploadLimit"}})
	if err != nil {
		return d.fail("GET TORRENT INFO AS OBJECT TEST", err)
	}
	printResult(d.w, "GET TORRENT INFO AS OBJECT TEST", transmission.ResultSuccess)

	verified, limit := "failed", int64(-1)
	if len(torrents) > 0 {
		limit = torrents[0].UploadLimit
		if limit == demoUploadLimit {
			verified = transmission.ResultSuccess
		}
	}
	printResult(d.w, "VERIFY TORRENT INFO SET/GET", verified)
	fmt.Fprintf(d.w, "  uploadLimit=%d\n", limit)

	steps := []demoStep{
		{"STOP TORRENT TEST", func() (*transmission.Response, error) { return d.client.StopTorrents(ctx, id) }},
		{"VERIFY TORRENT TEST", func() (*transmission.Response, error) { return d.client.VerifyTorrents(ctx, id) }},
		{"START TORRENT TEST", func() (*transmission.Response, error) { return d.client.StartTorrents(ctx, id) }},
		{"REANNOUNCE TORRENT TEST", func() (*transmission.Response, error) { return d.client.ReannounceTorrents(ctx, id) }},
		{"MOVE TORRENT TEST", func() (*transmission.Response, error) {
			return d.client.MoveTorrents(ctx, []int{id}, d.opts.moveTo, true)
		}},
	}
	if !d.opts.keep {
		steps = append(steps, demoStep{"REMOVE TORRENT TEST", func() (*transmission.Response, error) {
			return d.client.RemoveTorrents(ctx, []int{id}, false)
		}})
	}

	for _, step := range steps {
		resp, err := step.call()
		if err := d.report(ctx, step.label, resp, err); err != nil {
			return err
		}
	}
	return nil
}

// report prints the outcome of a step and pauses before the next one.
func (d *demo) report(ctx context.Context, label string, resp *transmission.Response, err error) error {
	if err != nil {
		return d.fail(label, err)
	}
	printResult(d.w, label, resp.Result)
	return d.sleep(ctx)
}

func (d *demo) fail(label string, err error) error {
	printResult(d.w, label, "failed")
	return fmt.Errorf("%s: %w", label, err)
}

func (d *demo) sleep(ctx context.Context) error {
	if d.opts.pause <= 0 {
		return nil
	}
	timer := time.NewTimer(d.opts.pause)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
