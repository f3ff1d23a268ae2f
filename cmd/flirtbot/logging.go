package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"flirtbot/internal/config"
)

var logLevel = new(slog.LevelVar)

// configureLogging installs the process-wide slog handler described by cfg.
func configureLogging(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	lvl, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	logLevel.Set(lvl)
	opts := &slog.HandlerOptions{Level: logLevel}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	l := slog.New(handler)
	slog.SetDefault(l)
	return l, nil
}

func chatLogOutput() (io.Writer, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return io.Discard, nil
	}
	dir = filepath.Join(dir, "flirtbot")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(dir, "chat.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
