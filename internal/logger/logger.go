// Package logger wraps zerolog behind a small key-value logging surface.
package logger

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Log is the process-wide logger.
var Log *Logger

type Logger struct {
	z zerolog.Logger
}

func init() {
	Log = &Logger{z: consoleLogger()}
}

func consoleLogger() zerolog.Logger {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(output).With().Timestamp().Logger()
}

// Setup configures the global logger level and output format ("json" or console).
func Setup(level, format string) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "WARN":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "ERROR":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if strings.ToLower(format) == "json" {
		Log = &Logger{z: zerolog.New(os.Stderr).With().Timestamp().Logger()}
	} else {
		Log = &Logger{z: consoleLogger()}
	}
}

// With returns a child logger tagged with a component name.
func (l *Logger) With(component string) *Logger {
	return &Logger{z: l.z.With().Str("component", component).Logger()}
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.emit(l.z.Debug(), msg, args...) }
func (l *Logger) Info(msg string, args ...interface{})  { l.emit(l.z.Info(), msg, args...) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.emit(l.z.Warn(), msg, args...) }
func (l *Logger) Error(msg string, args ...interface{}) { l.emit(l.z.Error(), msg, args...) }

// emit attaches variadic key-value pairs to the event. Odd trailing
// arguments are dropped.
func (l *Logger) emit(e *zerolog.Event, msg string, args ...interface{}) {
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", args[i])
		}
		e.Interface(key, args[i+1])
	}
	e.Msg(msg)
}
