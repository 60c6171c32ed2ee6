package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	// Logger is the general purpose logger (debug and warnings).
	Logger = newLogger(os.Stderr, logrus.InfoLevel)
	// InfoLogger receives informational messages.
	InfoLogger = newLogger(os.Stderr, logrus.InfoLevel)
	// ErrorLogger receives errors.
	ErrorLogger = newLogger(os.Stderr, logrus.InfoLevel)
)

// LogConfig configures the package loggers.
type LogConfig struct {
	ErrorLogPath string
	InfoLogPath  string
	LogLevel     string
}

// CustomFormatter renders "[time] [LEVL] (caller) message k=v ...".
type CustomFormatter struct {
	TimestampFormat string
}

// Format implements logrus.Formatter.
func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	timestamp := entry.Time.Format(f.TimestampFormat)

	level := strings.ToUpper(entry.Level.String())
	if len(level) > 4 {
		level = level[:4]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s] (%s) %s", timestamp, level, getCaller(), entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

// getCaller finds the first stack frame outside logrus and this package.
func getCaller() string {
	for i := 2; i < 20; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		if strings.Contains(file, "sirupsen") ||
			strings.Contains(file, "/logger/logger.go") {
			continue
		}
		name := runtime.FuncForPC(pc).Name()
		if idx := strings.LastIndex(name, "/"); idx >= 0 {
			name = name[idx+1:]
		}
		return fmt.Sprintf("%s:%s:%d", filepath.Base(file), name, line)
	}
	return "unknown:unknown:0"
}

// ParseLevel converts a level name to a logrus level, defaulting to info.
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "info", "":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.InfoLevel
	}
}

func newLogger(out io.Writer, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(level)
	l.SetFormatter(&CustomFormatter{TimestampFormat: "15:04:05 MST 2006/01/02"})
	return l
}

// InitLogger configures the package loggers. Log files are opened in append
// mode and mirrored to stderr. A file that cannot be opened is an error and
// leaves the loggers unchanged.
func InitLogger(config LogConfig) error {
	level := ParseLevel(config.LogLevel)

	infoOut, err := openOutput(config.InfoLogPath)
	if err != nil {
		return fmt.Errorf("open info log %s: %w", config.InfoLogPath, err)
	}
	errorOut, err := openOutput(config.ErrorLogPath)
	if err != nil {
		return fmt.Errorf("open error log %s: %w", config.ErrorLogPath, err)
	}

	InfoLogger = newLogger(infoOut, level)
	ErrorLogger = newLogger(errorOut, level)
	Logger = newLogger(infoOut, level)
	return nil
}

// SetOutput redirects every package logger to w.
func SetOutput(w io.Writer) {
	Logger.SetOutput(w)
	InfoLogger.SetOutput(w)
	ErrorLogger.SetOutput(w)
}

func openOutput(path string) (io.Writer, error) {
	if path == "" {
		return os.Stderr, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return io.MultiWriter(os.Stderr, f), nil
}

// WithFields returns an entry on the general logger carrying fields.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return Logger.WithFields(fields)
}

// Debugf logs a formatted debug message.
func Debugf(format string, args ...interface{}) {
	Logger.Debugf(format, args...)
}

// Infof logs a formatted informational message.
func Infof(format string, args ...interface{}) {
	InfoLogger.Infof(format, args...)
}

// Warnf logs a formatted warning.
func Warnf(format string, args ...interface{}) {
	Logger.Warnf(format, args...)
}

// Errorf logs a formatted error.
func Errorf(format string, args ...interface{}) {
	ErrorLogger.Errorf(format, args...)
}
