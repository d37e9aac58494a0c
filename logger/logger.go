// Package logger holds the process-wide logrus logger shared by the daemons
// and the CLI.
package logger

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger is the global logger instance
var Logger = logrus.New()

type LoggerLogLevel string

const (
	logLevelDebug LoggerLogLevel = "debug"
	logLevelInfo  LoggerLogLevel = "info"
	logLevelWarn  LoggerLogLevel = "warn"
	logLevelError LoggerLogLevel = "error"
)

// Format selects the log line layout.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatLine Format = "line"
)

// LogWriter adapts the logger to io.Writer, one Info entry per write.
type LogWriter struct {
	logger *logrus.Logger
}

func NewLogWriter() *LogWriter {
	return &LogWriter{logger: Logger}
}

func (lw *LogWriter) Write(p []byte) (n int, err error) {
	lw.logger.Info(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// Initialize replaces Logger with a text logger at logLevel. A non-empty
// toFile appends to that file instead of stderr.
func Initialize(logLevel LoggerLogLevel, toFile string) error {
	return InitializeFormat(logLevel, FormatText, toFile)
}

// InitializeFormat is Initialize with an explicit format.
func InitializeFormat(logLevel LoggerLogLevel, format Format, toFile string) error {
	l := logrus.New()
	l.SetFormatter(formatter(format))
	l.SetLevel(logrusLogLevel(logLevel))

	if toFile != "" {
		if dir := filepath.Dir(toFile); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		logFile, err := os.OpenFile(toFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return err
		}
		l.SetOutput(logFile)
	}

	Logger = l
	return nil
}

// SetOutput redirects the global logger, used by tests.
func SetOutput(w io.Writer) {
	Logger.SetOutput(w)
}

// DailyFileName returns <dir>/<prefix>_YYYYMMDD.log for t.
func DailyFileName(dir, prefix string, t time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.log", prefix, t.Format("20060102")))
}

func formatter(format Format) logrus.Formatter {
	switch format {
	case FormatJSON:
		return &logrus.JSONFormatter{}
	case FormatLine:
		return &LineFormatter{Title: "gowinsvc"}
	default:
		return &logrus.TextFormatter{
			FullTimestamp: true,
		}
	}
}

func logrusLogLevel(logLevel LoggerLogLevel) logrus.Level {
	var lvl logrus.Level

	switch LoggerLogLevel(strings.ToLower(string(logLevel))) {
	case logLevelDebug:
		lvl = logrus.DebugLevel
	case logLevelInfo:
		lvl = logrus.InfoLevel
	case logLevelWarn:
		lvl = logrus.WarnLevel
	case logLevelError:
		lvl = logrus.ErrorLevel
	default:
		lvl = logrus.InfoLevel
	}
	return lvl
}

// LineFormatter writes "[2006/01/02 15:04:05][level]Title: message k=v".
type LineFormatter struct {
	Title string
}

func (f *LineFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	fmt.Fprintf(&b, "[%s][%s]", e.Time.Format("2006/01/02 15:04:05"), e.Level)
	if f.Title != "" {
		b.WriteString(f.Title)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}
