// Package logging builds the process logger from configuration.
package logging

import (
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/mattn/go-isatty"

	"media-transcoder/internal/config"
)

// New returns the root logger. A nil writer logs to stderr. Console output is
// colorized only when the writer is a terminal.
func New(cfg config.Logging, w io.Writer) hclog.Logger {
	if w == nil {
		w = os.Stderr
	}

	level := hclog.LevelFromString(cfg.Level)
	if level == hclog.NoLevel {
		level = hclog.Info
	}

	color := hclog.ColorOff
	if cfg.Format != "json" && isTerminal(w) {
		color = hclog.AutoColor
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       "media-transcoder",
		Level:      level,
		Output:     w,
		JSONFormat: cfg.Format == "json",
		Color:      color,
	})
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
