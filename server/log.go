package main

import (
	"io"
	"log/slog"
	"strings"

	charmlog "github.com/charmbracelet/log"

	"taskflow/server/config"
)

// newLogger returns a slog logger backed by a charmbracelet handler.
func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := charmlog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, err
	}
	logger := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      cfg.TimeFormat,
	})
	switch strings.ToLower(cfg.Format) {
	case "json":
		logger.SetFormatter(charmlog.JSONFormatter)
	case "logfmt":
		logger.SetFormatter(charmlog.LogfmtFormatter)
	default:
		logger.SetFormatter(charmlog.TextFormatter)
	}
	return slog.New(logger), nil
}
