// Package logging configures the process logger. Console output always goes
// to stderr because stdout carries the stdio transport.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LevelEnv is consulted when no explicit level is given.
const LevelEnv = "LOG_LEVEL"

const (
	defaultMaxSizeMB = 100
	fileTimeLayout   = "2006_01_02_15_04_05"
)

// Config controls logger initialization.
type Config struct {
	Level     string // explicit level; empty falls back to LOG_LEVEL, then info
	Format    string // "console" or "json"
	File      bool   // also write to a timestamped file under Dir
	Dir       string
	MaxSizeMB int
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

var nowFn = time.Now

// Init builds the process logger, installs it as the zerolog global and
// returns it with a closer for the optional log file.
func Init(cfg Config) (zerolog.Logger, io.Closer) {
	level := ParseLevel(ResolveLevel(cfg.Level))
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var writer io.Writer = os.Stderr
	if !strings.EqualFold(cfg.Format, "json") {
		writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"}
	}

	var closer io.Closer = nopCloser{}
	if cfg.File {
		rolling, err := newFileWriter(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "logging: unable to configure file output: %v\n", err)
		} else {
			writer = io.MultiWriter(writer, rolling)
			closer = rolling
		}
	}

	logger := zerolog.New(writer).Level(level).With().Timestamp().Logger()
	log.Logger = logger
	return logger, closer
}

// ResolveLevel applies the precedence explicit value, LOG_LEVEL, info.
func ResolveLevel(explicit string) string {
	if v := strings.TrimSpace(explicit); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv(LevelEnv)); v != "" {
		return v
	}
	return "info"
}

// ParseLevel maps a level name, case-insensitively, to a zerolog level.
// "warning" and "critical" are accepted as aliases.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return zerolog.InfoLevel
	case "debug":
		return zerolog.DebugLevel
	case "trace":
		return zerolog.TraceLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "critical", "fatal":
		return zerolog.FatalLevel
	case "disabled":
		return zerolog.Disabled
	default:
		fmt.Fprintf(os.Stderr, "logging: invalid level %q; using %q\n", level, "info")
		return zerolog.InfoLevel
	}
}

// FileName returns the timestamped log file path for t under dir.
func FileName(dir string, t time.Time) string {
	if dir == "" {
		dir = "log"
	}
	return filepath.Join(dir, t.Format(fileTimeLayout)+".log")
}

func newFileWriter(cfg Config) (*lumberjack.Logger, error) {
	path := FileName(cfg.Dir, nowFn())
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = defaultMaxSizeMB
	}
	return &lumberjack.Logger{
		Filename: path,
		MaxSize:  maxSize,
	}, nil
}
