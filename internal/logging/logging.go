// Package logging builds the JSON logrus loggers every package uses and keeps their
// level in line with LOG_LEVEL and APP_ENV.
package logging

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu      sync.Mutex
	loggers []*logrus.Logger
)

// New returns a JSON logger at the level the environment asks for.
func New() *logrus.Logger {
	l := logrus.New()
	Configure(l)
	return l
}

// Configure applies the JSON formatter and environment level to l and remembers it,
// so Reload can follow a later .env load.
func Configure(l *logrus.Logger) {
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(LevelFromEnv())

	mu.Lock()
	defer mu.Unlock()
	for _, known := range loggers {
		if known == l {
			return
		}
	}
	loggers = append(loggers, l)
}

// Reload re-reads the environment and sets the level on every configured logger.
func Reload() logrus.Level {
	level := LevelFromEnv()

	mu.Lock()
	defer mu.Unlock()
	for _, l := range loggers {
		l.SetLevel(level)
	}
	return level
}

// LevelFromEnv prefers a valid LOG_LEVEL. Otherwise APP_ENV decides: development logs
// debug, production only errors, anything else info.
func LevelFromEnv() logrus.Level {
	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		return level
	}

	environment := os.Getenv("APP_ENV")
	if environment == "" {
		environment = "development"
	}
	switch environment {
	case "development":
		return logrus.DebugLevel
	case "production":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
