// Package logger configures the process-wide logrus logger.
package logger

import (
	log "github.com/sirupsen/logrus"
)

// Setup applies the configured level and a timestamped text format to the
// global logger. Unknown levels fall back to info.
func Setup(level string) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
}
