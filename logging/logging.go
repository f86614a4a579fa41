package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu     sync.Mutex
	logger *logrus.Logger
)

// Levels understood by SetLevel.
var Levels = []string{"Off", "Error", "Warn", "Info", "Debug", "Trace"}

// GetLogger returns the process wide logger. Logs go to stderr so
// they never mix with the JSON records on stdout.
func GetLogger() *logrus.Logger {
	mu.Lock()
	defer mu.Unlock()

	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(os.Stderr)
		logger.SetLevel(logrus.WarnLevel)

		// Honor the same switch the parser has always used for
		// debug output.
		if os.Getenv("NTFS_DEBUG") != "" {
			logger.SetLevel(logrus.DebugLevel)
		}
	}
	return logger
}

func SetLevel(level string) error {
	l := GetLogger()

	switch strings.ToLower(level) {
	case "off":
		l.SetOutput(io.Discard)
		return nil
	case "error":
		l.SetLevel(logrus.ErrorLevel)
	case "warn", "warning":
		l.SetLevel(logrus.WarnLevel)
	case "info":
		l.SetLevel(logrus.InfoLevel)
	case "debug":
		l.SetLevel(logrus.DebugLevel)
	case "trace":
		l.SetLevel(logrus.TraceLevel)
	default:
		return fmt.Errorf("Unknown log level %v", level)
	}

	l.SetOutput(os.Stderr)
	return nil
}

// SetFormat switches between logrus text and json output.
func SetFormat(format string) error {
	l := GetLogger()

	switch strings.ToLower(format) {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("Unknown log format %v", format)
	}
	return nil
}
