// Package log builds the ambient structured logger, adapted from the
// teacher's two-mode (development/production) logrus setup: debug mode
// logs everything to a file under the configured directory, non-debug mode
// logs errors only.
package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hillu/laurel/pkg/config"
	"github.com/sirupsen/logrus"
)

// NewLogger returns the process-wide logger entry, tagged with the run's
// debug mode so every subsequent log line carries it.
func NewLogger(cfg *config.Config, debug bool) *logrus.Entry {
	var log *logrus.Logger
	if debug || os.Getenv("DEBUG") == "TRUE" {
		log = newDevelopmentLogger(cfg)
	} else {
		log = newProductionLogger()
	}

	log.Formatter = &logrus.JSONFormatter{}

	return log.WithFields(logrus.Fields{
		"debug": debug,
	})
}

func getLogLevel() logrus.Level {
	strLevel := os.Getenv("LOG_LEVEL")
	level, err := logrus.ParseLevel(strLevel)
	if err != nil {
		return logrus.DebugLevel
	}
	return level
}

func newDevelopmentLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetLevel(getLogLevel())
	file, err := os.OpenFile(filepath.Join(cfg.Directory, "laurel-debug.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		fmt.Fprintln(os.Stderr, "unable to log to file, falling back to stderr:", err)
		log.SetOutput(os.Stderr)
		return log
	}
	log.SetOutput(file)
	return log
}

func newProductionLogger() *logrus.Logger {
	log := logrus.New()
	log.Out = io.Discard
	log.SetLevel(logrus.ErrorLevel)
	log.AddHook(&stderrOnErrorHook{})
	return log
}

// stderrOnErrorHook mirrors error-level-and-above entries to stderr even
// in production mode, so a fatal startup error is still visible when
// nothing is tailing the debug log.
type stderrOnErrorHook struct{}

func (h *stderrOnErrorHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel}
}

func (h *stderrOnErrorHook) Fire(entry *logrus.Entry) error {
	line, err := entry.String()
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(os.Stderr, line)
	return err
}
