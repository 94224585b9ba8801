package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	mu     sync.RWMutex
	logger = newLogger(os.Stderr, "text").Level(zerolog.InfoLevel)

	// file is the log file opened by Configure, nil for stdout/stderr
	file io.Closer
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// ParseLevel converts a case-insensitive level name into a Level.
// Unknown names map to LevelInfo.
func ParseLevel(level string) Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return LevelDebug
	case "WARN":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

func SetLevel(level string) {
	mu.Lock()
	defer mu.Unlock()
	logger = logger.Level(ParseLevel(level).zerolog())
}

// Configure replaces the global logger.
//
// format is "text" (human readable console output) or "json". output is
// "stderr" (the default), "stdout" or a file path opened in append mode. A
// file opened by a previous call is closed.
func Configure(level, format, output string) error {
	w, err := openOutput(output)
	if err != nil {
		return err
	}

	mu.Lock()
	prev := file
	file = nil
	if c, ok := w.(io.Closer); ok && w != os.Stdout && w != os.Stderr {
		file = c
	}
	logger = newLogger(w, format).Level(ParseLevel(level).zerolog())
	mu.Unlock()

	return closeFile(prev)
}

// Close releases the log file opened by Configure, if any, and sends further
// output to stderr.
func Close() error {
	mu.Lock()
	prev := file
	file = nil
	logger = newLogger(os.Stderr, "text").Level(logger.GetLevel())
	mu.Unlock()

	return closeFile(prev)
}

func closeFile(c io.Closer) error {
	if c == nil {
		return nil
	}
	if err := c.Close(); err != nil {
		return fmt.Errorf("failed to close log output: %w", err)
	}
	return nil
}

// SetOutput redirects log output, keeping the current level. Used by tests.
func SetOutput(w io.Writer, format string) {
	mu.Lock()
	defer mu.Unlock()
	logger = newLogger(w, format).Level(logger.GetLevel())
}

func openOutput(output string) (io.Writer, error) {
	switch output {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log output %q: %w", output, err)
		}
		return f, nil
	}
}

func newLogger(w io.Writer, format string) zerolog.Logger {
	if strings.EqualFold(format, "json") {
		return zerolog.New(w).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		TimeFormat: "2006-01-02 15:04:05",
	}).With().Timestamp().Logger()
}

func log(level Level, format string, v ...any) {
	mu.RLock()
	l := logger
	mu.RUnlock()

	event := l.WithLevel(level.zerolog())
	if event == nil {
		return
	}
	event.Msg(fmt.Sprintf(format, v...))
}

func Debug(format string, v ...any) {
	log(LevelDebug, format, v...)
}

func Info(format string, v ...any) {
	log(LevelInfo, format, v...)
}

func Warn(format string, v ...any) {
	log(LevelWarn, format, v...)
}

func Error(format string, v ...any) {
	log(LevelError, format, v...)
}
