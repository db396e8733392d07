package contract

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the diagnostic logger. It stays quiet unless --verbose is set.
var Logger = NewLogger(os.Stderr, false)

// NewLogger returns a text logger writing to w at warn level, or debug level when verbose.
func NewLogger(w io.Writer, verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: !verbose, FullTimestamp: true})
	logger.SetLevel(logrus.WarnLevel)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

// SetVerbose reconfigures the package logger.
func SetVerbose(verbose bool) {
	Logger = NewLogger(os.Stderr, verbose)
}

// NewRequestLogger returns a JSON logger used for the per-request API log.
func NewRequestLogger(w io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)
	return logger
}
