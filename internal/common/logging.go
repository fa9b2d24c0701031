package common

import (
	"os"

	"github.com/sirupsen/logrus"
)

// SetupLogging configures the shared logrus logger. verbose forces debug level.
func SetupLogging(level string, verbose bool) {
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006/01/02 15:04:05",
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	if verbose {
		lvl = logrus.DebugLevel
	}
	logrus.SetLevel(lvl)
}

// Banner prints the header block every tool starts with.
func Banner(title string) {
	logrus.Info("=========================================================")
	logrus.Info(title)
	logrus.Info("=========================================================")
}
