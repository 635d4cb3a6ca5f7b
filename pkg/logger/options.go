package logger

import (
	"io"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	formatText = "text"
	formatJSON = "json"
)

type options struct {
	format string
	writer io.Writer
	file   *lumberjack.Logger
}

// Option configures Init.
type Option func(*options)

// WithFormat selects "text" (default) or "json" output.
func WithFormat(format string) Option {
	return func(o *options) {
		if strings.EqualFold(strings.TrimSpace(format), formatJSON) {
			o.format = formatJSON
		}
	}
}

// WithWriter replaces stdout as the primary sink.
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.writer = w
		}
	}
}

// WithFile additionally writes logs to a size-rotated file.
// An empty path leaves file output disabled.
func WithFile(path string, maxSizeMB, maxBackups, maxAgeDays int) Option {
	return func(o *options) {
		if path == "" {
			return
		}
		o.file = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
			Compress:   true,
		}
	}
}
