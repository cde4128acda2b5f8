package logging

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// structured logger used across the CLI and the pipeline
type Logger struct {
	*zap.SugaredLogger
	closers []func() error
}

// output settings for New
type Options struct {
	Level  string // debug, info, warn, error
	Format string // console or json
	File   string // empty writes to stderr
}

// console logger for interactive commands
func NewLogger(verbose bool) *Logger {
	level := "info"
	if verbose {
		level = "debug"
	}
	logger, err := New(Options{Level: level, Format: "console"})
	if err != nil {
		return Nop()
	}
	return logger
}

func New(opts Options) (*Logger, error) {
	level := zapcore.InfoLevel
	if strings.TrimSpace(opts.Level) != "" {
		parsed, err := zapcore.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	var (
		sink    zapcore.WriteSyncer
		closers []func() error
		tty     bool
	)
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		sink = zapcore.AddSync(f)
		closers = append(closers, f.Close)
	} else {
		sink = zapcore.Lock(os.Stderr)
		tty = isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	}

	var encoder zapcore.Encoder
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "json":
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	case "", "console":
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		if tty {
			encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		encoder = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, fmt.Errorf("invalid log format %q: use console or json", opts.Format)
	}

	core := zapcore.NewCore(encoder, sink, level)
	return &Logger{
		SugaredLogger: zap.New(core).Sugar(),
		closers:       closers,
	}, nil
}

// discards everything
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// child logger carrying extra key/value pairs
func (l *Logger) With(args ...any) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(args...)}
}

// flushes buffered entries and releases the log file, if any
func (l *Logger) Close() error {
	_ = l.Sync()
	var lastErr error
	for _, closeFn := range l.closers {
		if err := closeFn(); err != nil {
			lastErr = err
		}
	}
	l.closers = nil
	return lastErr
}
