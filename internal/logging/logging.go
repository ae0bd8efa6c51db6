package logging

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options select the level and the optional rotating log file
type Options struct {
	Name  string // binary name, used for the default file name
	Level string
	File  string // "" writes <Name>.log, "-" disables the file
}

// Setup builds a text logger writing to stdout and a rotating file, installs it
// as the slog default and points the standard log package at the same writer.
// The returned closer flushes the file.
func Setup(opts Options) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	var w io.Writer = os.Stdout
	var closer io.Closer = io.NopCloser(nil)

	if opts.File != "-" {
		filename := opts.File
		if filename == "" {
			filename = opts.Name + ".log"
		}
		lj := &lumberjack.Logger{
			Filename:   filename,
			MaxSize:    32, // MB
			MaxBackups: 3,
			MaxAge:     14,
			Compress:   true,
		}
		w = io.MultiWriter(os.Stdout, lj)
		closer = lj
	}

	logger := New(w, level)
	slog.SetDefault(logger)

	// gin, gorm and the standard library keep using log
	log.SetOutput(w)
	log.SetFlags(log.LstdFlags)

	logger.Info("logging started",
		slog.String("name", opts.Name),
		slog.String("level", level.String()),
		slog.String("GOOS", runtime.GOOS),
		slog.Int("NumCPUs", runtime.NumCPU()))

	return logger, closer, nil
}

// New returns a text logger at level writing to w
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Discard is a logger for tests
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
}
