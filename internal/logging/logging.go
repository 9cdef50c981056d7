// Package logging builds the structured logger of the command line tools.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/natefinch/lumberjack"
	"github.com/pkg/errors"
)

// Config is the [log] section of the stage settings.
type Config struct {
	// Logfile receives log records when set, rotated by size. Records go to
	// stderr otherwise.
	Logfile string `toml:"logfile"`
	// MaxSize is the size in megabytes at which the log file is rotated.
	MaxSize int `toml:"max_log_size"`
	// MaxAge is the number of days rotated files are kept.
	MaxAge int    `toml:"max_log_age"`
	Level  string `toml:"level"`
	// Format is text or json.
	Format string `toml:"format"`
}

// ParseLevel converts debug, info, warn or error to a slog level. An empty
// level is info.
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if strings.TrimSpace(level) == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return l, errors.Wrapf(err, "invalid log level %q", level)
	}

	return l, nil
}

// New returns a logger configured by c and the closer of its output. stderr
// is used when c names no file.
func New(c Config) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(c.Level)
	if err != nil {
		return nil, nil, err
	}

	var out io.WriteCloser = nopCloser{os.Stderr}
	if c.Logfile != "" {
		out = &lumberjack.Logger{
			Filename: c.Logfile,
			MaxSize:  c.MaxSize, // megabytes
			MaxAge:   c.MaxAge,  // days
		}
	}

	logger, err := NewWithWriter(out, c.Format, level)
	if err != nil {
		return nil, nil, err
	}

	return logger, out, nil
}

// NewWithWriter returns a text or JSON logger writing to w.
func NewWithWriter(w io.Writer, format string, level slog.Level) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, errors.Errorf("invalid log format %q", format)
	}
}

// Discard returns a logger dropping every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error {
	return nil
}
