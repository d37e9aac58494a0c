package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevel(t *testing.T) {
	tests := []struct {
		in   LoggerLogLevel
		want logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"INFO", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"verbose", logrus.InfoLevel},
		{"", logrus.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, logrusLogLevel(tt.in), string(tt.in))
	}
}

func TestLineFormatter(t *testing.T) {
	e := &logrus.Entry{
		Time:    time.Date(2024, 3, 5, 7, 8, 9, 0, time.Local),
		Level:   logrus.WarnLevel,
		Message: "service stopped",
		Data:    logrus.Fields{"service": "Spooler", "attempt": 2},
	}
	out, err := (&LineFormatter{Title: "gowinsvc"}).Format(e)
	require.NoError(t, err)
	assert.Equal(t, "[2024/03/05 07:08:09][warning]gowinsvc: service stopped attempt=2 service=Spooler\n", string(out))
}

func TestDailyFileName(t *testing.T) {
	ts := time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, filepath.Join("Logs", "WindowsService_20241231.log"), DailyFileName("Logs", "WindowsService", ts))
}

func TestInitializeToFile(t *testing.T) {
	old := Logger
	defer func() { Logger = old }()

	path := filepath.Join(t.TempDir(), "logs", "svc.log")
	require.NoError(t, InitializeFormat("debug", FormatLine, path))
	Logger.Debug("hello")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[debug]gowinsvc: hello")
}

func TestLogWriter(t *testing.T) {
	old := Logger
	defer func() { Logger = old }()

	var buf bytes.Buffer
	Logger = logrus.New()
	Logger.SetFormatter(&LineFormatter{})
	Logger.SetOutput(&buf)

	n, err := NewLogWriter().Write([]byte("from writer\n"))
	require.NoError(t, err)
	assert.Equal(t, 12, n)
	assert.Contains(t, buf.String(), "[info]from writer\n")
}
