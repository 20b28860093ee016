// Package logging wraps logrus with the field conventions used throughout
// the relay and tracker: one *logrus.Entry threaded through the call graph
// rather than a package-level global, so a test can inject a discard logger
// without touching shared state.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Config controls the two dials §6 exposes: log/level and log/format.
type Config struct {
	Level  string
	Format string
}

// New builds a *logrus.Entry writing to out (os.Stderr in production,
// io.Discard in tests) configured per cfg. An unrecognized level falls back
// to info; an unrecognized format falls back to text, matching the
// forgiving-parse style the config loader uses for every other key.
func New(cfg Config, out io.Writer) *logrus.Entry {
	if out == nil {
		out = os.Stderr
	}

	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(parseLevel(cfg.Level))

	if strings.EqualFold(cfg.Format, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logrus.NewEntry(log)
}

func parseLevel(s string) logrus.Level {
	lvl, err := logrus.ParseLevel(s)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}
