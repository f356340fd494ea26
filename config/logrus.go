package config

import (
	"os"

	"github.com/sirupsen/logrus"
)

var (
	logg *logrus.Logger
)

func GetLogger() *logrus.Logger {
	return logg
}

func init() {
	logg = logrus.New()
	logg.SetFormatter(&logrus.JSONFormatter{})
	logg.SetOutput(os.Stdout)
	logg.SetLevel(logLevelFromEnv())
}

// logLevelFromEnv defaults to warn: sync workers log per-record failures and
// anything noisier drowns Cloud Logging.
func logLevelFromEnv() logrus.Level {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if level, err := logrus.ParseLevel(v); err == nil {
			return level
		}
	}
	return logrus.WarnLevel
}

func LogError(logger *logrus.Logger, moduleName string, funcName string, context string, data any, err error) {
	fields := logrus.Fields{
		"module":   moduleName,
		"funcName": funcName,
		"context":  context,
	}
	if data != nil {
		fields["data"] = data
	}
	logger.WithFields(fields).Error(err.Error())
}
