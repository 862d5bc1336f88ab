// Package cli implements the transmission-cli command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	transmission "github.com/jfxdev/go-transmission"
	"github.com/jfxdev/go-transmission/internal/config"
	"github.com/jfxdev/go-transmission/internal/logs"
)

// Version is set at build time with -ldflags "-X .../internal/cli.Version=...".
var Version = "v0.0.0-dev"

type app struct {
	v          *viper.Viper
	configPath string

	cfg       *config.Config
	logger    *slog.Logger
	logWriter io.Closer
	client    *transmission.Client
}

// NewRootCommand builds the command tree. Every call returns an independent
// tree with its own configuration.
func NewRootCommand() *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:               "transmission-cli",
		Short:             "Transmission RPC client",
		Long:              "Command line client for the RPC interface of the Transmission BitTorrent daemon",
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: a.teardown,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Path to a TOML configuration file")
	flags.String("url", transmission.DefaultURL, "RPC endpoint")
	flags.StringP("username", "u", "", "RPC username")
	flags.StringP("password", "p", "", "RPC password")
	flags.Duration("timeout", transmission.DefaultRequestTimeout, "Request timeout")
	flags.Bool("retry-on-conflict", true, "Re-send a call once when the session id expired")
	flags.Float64("rate-limit", 0, "Maximum calls per second, 0 disables limiting")
	flags.Int("rate-burst", transmission.DefaultRateBurst, "Burst size of the rate limiter")
	flags.Int("rpc-version", 0, "Assume this RPC version instead of asking the daemon")
	flags.Bool("log-json", false, "Write logs as JSON")
	flags.String("log-level", "info", "Log level: debug or info")
	flags.String("log-output", "stderr", "stdout, stderr or a directory for rotated log files")
	flags.StringP("output", "o", config.OutputText, "Output format: text, json or yaml")
	flags.Bool("color", true, "Colorize results on terminals")

	root.AddCommand(
		newSessionCommand(a),
		newTorrentCommand(a),
		newCallCommand(a),
		newDemoCommand(a),
		newConfigCommand(a),
		newVersionCommand(),
	)
	return root
}

// Execute runs the command line and exits non-zero on failure. An interrupt
// cancels the running call.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	if err := config.BindFlags(a.v, cmd.Flags()); err != nil {
		return err
	}

	cfg, err := config.Load(a.v, a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.logger, a.logWriter = logs.SetupLogger(cfg.Log)
	log.SetFlags(0)
	log.SetOutput(&logs.SlogWriter{Logger: a.logger, Level: slog.LevelWarn})

	color.NoColor = !cfg.Color || !isTerminal(cmd.OutOrStdout())

	clientConfig := cfg.ClientConfig()
	clientConfig.Logger = a.logger
	a.client, err = transmission.New(clientConfig)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	a.logger.Debug("client ready", "url", cfg.RPC.URL, "command", cmd.CommandPath())
	return nil
}

func (a *app) teardown(cmd *cobra.Command, args []string) {
	if a.client != nil {
		a.client.Close()
	}
	if a.logWriter != nil {
		a.logWriter.Close()
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
