package main

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// newLogger writes text logs to out at the named level. An empty or
// unknown level falls back to info.
func newLogger(level string, out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		if level != "" {
			log.WithField("log_level", level).Warn("unknown log level, using info")
		}
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}
