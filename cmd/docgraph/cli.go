package main

import (
	"context"
	"io"
	"log/slog"
)

// Dependencies holds what commands need at run time. Kong binds it into
// every command's Run method.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer

	// CachePath is the fallback graph cache location.
	CachePath string
}

// logger returns a text logger on stderr. Without verbose only warnings
// are shown.
func (d *Dependencies) logger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(d.Stderr, &slog.HandlerOptions{Level: level}))
}

// CLI defines the command-line interface structure.
type CLI struct {
	Parse   ParseCmd   `cmd:"" help:"Parse documents into content graphs"`
	Configs ConfigsCmd `cmd:"" help:"Show parsing parameter presets"`
}
