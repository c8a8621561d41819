// Package logging provides structured logging for the transfer engine.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger wraps zerolog with console-formatted output.
type Logger struct {
	zlog   zerolog.Logger
	output io.Writer
}

// New creates a logger writing console-formatted records to w.
func New(w io.Writer) *Logger {
	output := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	return &Logger{
		zlog:   zerolog.New(output).With().Timestamp().Logger(),
		output: output,
	}
}

// Default creates a logger writing to stderr, leaving stdout free for any
// caller-owned progress rendering.
func Default() *Logger {
	return New(os.Stderr)
}

func (l *Logger) Info() *zerolog.Event  { return l.zlog.Info() }
func (l *Logger) Error() *zerolog.Event { return l.zlog.Error() }
func (l *Logger) Debug() *zerolog.Event { return l.zlog.Debug() }
func (l *Logger) Warn() *zerolog.Event  { return l.zlog.Warn() }

func (l *Logger) With() zerolog.Context { return l.zlog.With() }

// SetOutput redirects the logger, useful when a progress renderer temporarily
// owns the terminal.
func (l *Logger) SetOutput(w io.Writer) {
	l.output = w
	l.zlog = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}).With().Timestamp().Logger()
}

func (l *Logger) Output() io.Writer { return l.output }

func (l *Logger) Debugf(format string, args ...interface{}) { l.zlog.Debug().Msgf(format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.zlog.Info().Msgf(format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.zlog.Error().Msgf(format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.zlog.Warn().Msgf(format, args...) }

func SetGlobalLevel(level zerolog.Level) { zerolog.SetGlobalLevel(level) }

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
}
