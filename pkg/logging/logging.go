// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package logging configures the process-wide zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/go-core-stack/perfrec-auth/pkg/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup installs the global logger. Outside production it writes
// human-readable lines to stderr; in production it writes JSON to stderr and
// appends the same lines to the error log file. The returned closer releases
// that file.
func Setup(cfg config.Common) (io.Closer, error) {
	return setup(cfg, os.Stderr)
}

func setup(cfg config.Common, stderr io.Writer) (io.Closer, error) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	var (
		out    io.Writer = zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.RFC3339}
		closer io.Closer = nopCloser{}
	)
	if cfg.Production {
		file, err := os.OpenFile(cfg.ErrorLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open error log: %w", err)
		}
		out = zerolog.MultiLevelWriter(stderr, file)
		closer = file
	}

	log.Logger = zerolog.New(out).Level(level).With().Timestamp().Logger()
	return closer, nil
}
