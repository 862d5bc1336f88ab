// Package logs builds the slog logger of transmission-cli from the log
// section of the configuration.
package logs

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jfxdev/go-transmission/internal/config"
)

// FileName is the log file created inside a log directory.
const FileName = "transmission-cli.log"

// SlogWriter adapts a logger to io.Writer, one record per write.
type SlogWriter struct {
	Logger *slog.Logger
	Level  slog.Level
}

func (w *SlogWriter) Write(p []byte) (n int, err error) {
	msg := string(bytes.TrimSpace(p))
	w.Logger.Log(context.TODO(), w.Level, msg)
	return len(p), nil
}

// SetupLogger returns the logger and the writer behind it. The writer must
// be closed when it is a rotated file.
func SetupLogger(o config.Log) (*slog.Logger, io.WriteCloser) {
	var handlerOpts = slog.HandlerOptions{}

	switch o.Level {
	case "debug":
		handlerOpts.Level = slog.LevelDebug
	default:
		handlerOpts.Level = slog.LevelInfo
	}

	var writer io.WriteCloser
	switch o.Output {
	case "", "stderr":
		writer = nopCloser{os.Stderr}
	case "stdout":
		writer = nopCloser{os.Stdout}
	default:
		writer = &lumberjack.Logger{
			Filename:   filepath.Join(o.Output, FileName),
			MaxSize:    10,
			MaxBackups: 5,
			MaxAge:     28,
			Compress:   true,
		}
	}

	if o.JSON {
		return slog.New(slog.NewJSONHandler(writer, &handlerOpts)), writer
	}
	return slog.New(slog.NewTextHandler(writer, &handlerOpts)), writer
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
