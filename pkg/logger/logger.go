package logger

import (
	"strings"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

// Init configures the process-wide logger (called once from main).
func Init(level string) {
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	parsed, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)
}

func Infof(format string, v ...any) {
	log.Infof(format, v...)
}

func Warnf(format string, v ...any) {
	log.Warnf(format, v...)
}

func Errorf(format string, v ...any) {
	log.Errorf(format, v...)
}

func Debugf(format string, v ...any) {
	log.Debugf(format, v...)
}

func Fatalf(format string, v ...any) {
	log.Fatalf(format, v...)
}
