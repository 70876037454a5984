// Package logger provides structured logging for the scanner.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Level represents log levels.
type Level = zerolog.Level

// Log levels.
const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
)

// Logger wraps zerolog. Components get child loggers via WithComponent.
type Logger struct {
	zl zerolog.Logger
}

// Config holds logger configuration.
type Config struct {
	Level      Level
	Pretty     bool // console writer with colors
	Output     io.Writer
	TimeFormat string
	Component  string
}

// New creates a logger. Output defaults to stderr.
func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.RFC3339
	}
	zerolog.TimeFieldFormat = cfg.TimeFormat

	out := cfg.Output
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: "15:04:05"}
	}

	ctx := zerolog.New(out).Level(cfg.Level).With().Timestamp()
	if cfg.Component != "" {
		ctx = ctx.Str("component", cfg.Component)
	}
	return &Logger{zl: ctx.Logger()}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// LevelFor maps the debug and verbose switches to a level: debug wins,
// verbose means info, and warnings only otherwise.
func LevelFor(debug, verbose bool) Level {
	switch {
	case debug:
		return DebugLevel
	case verbose:
		return InfoLevel
	default:
		return WarnLevel
	}
}

// WithComponent returns a child logger tagged with component.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{zl: l.zl.With().Str("component", component).Logger()}
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.zl.Debug().Msgf(format, args...)
}

func (l *Logger) Info(msg string) {
	l.zl.Info().Msg(msg)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.zl.Info().Msgf(format, args...)
}

func (l *Logger) Warn(msg string) {
	l.zl.Warn().Msg(msg)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.zl.Warn().Msgf(format, args...)
}

func (l *Logger) Error(msg string) {
	l.zl.Error().Msg(msg)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.zl.Error().Msgf(format, args...)
}

// RequestEvent logs one injection request at debug.
func (l *Logger) RequestEvent(method, url string, statusCode int, duration time.Duration) {
	l.zl.Debug().
		Str("method", method).
		Str("url", url).
		Int("status_code", statusCode).
		Dur("duration", duration).
		Msg("request")
}

// SkipEvent logs a URL or task that was dropped, with its error category.
func (l *Logger) SkipEvent(url, category string, err error) {
	l.zl.Debug().
		Str("url", url).
		Str("category", category).
		Err(err).
		Msg("skipped")
}

// FindingEvent logs a reflected payload. Vulnerable or executed payloads
// are logged at warn, plain reflections at info.
func (l *Logger) FindingEvent(url, parameter, payload string, vulnerable, executed bool) {
	e := l.zl.Info()
	if vulnerable || executed {
		e = l.zl.Warn()
	}
	e.Str("url", url).
		Str("parameter", parameter).
		Str("payload", payload).
		Bool("vulnerable", vulnerable).
		Bool("executed", executed).
		Msg("payload reflected")
}

// StoredEvent logs a stored-content finding.
func (l *Logger) StoredEvent(url, pattern string, line int) {
	l.zl.Warn().
		Str("url", url).
		Str("pattern", pattern).
		Int("line", line).
		Msg("stored XSS pattern")
}

// StatsEvent logs the end-of-scan counters.
func (l *Logger) StatsEvent(stats map[string]interface{}) {
	e := l.zl.Info()
	for k, v := range stats {
		e = e.Interface(k, v)
	}
	e.Msg("scan statistics")
}
