package logutils

import (
	"time"

	"github.com/sirupsen/logrus"
)

var log = logrus.StandardLogger()

func SetLoggerLevel(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
}

// SetLoggerFormat switches between the default text output and JSON, for
// log collectors. Unknown formats keep the text formatter.
func SetLoggerFormat(format string) {
	switch format {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	default:
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}
