package pool

import (
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// newDefaultLogger writes to stderr at defaultLogLevel unless
// PROCPOOL_LOG_LEVEL names another level.
func newDefaultLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(defaultLogLevel)

	if name, ok := os.LookupEnv(EnvLogLevel); ok {
		if lvl, err := logrus.ParseLevel(name); err == nil {
			logger.SetLevel(lvl)
		}
	}
	return logger
}

func workerFields(info WorkerInfo) logrus.Fields {
	fields := logrus.Fields{
		"pid":  info.PID,
		"item": info.Index,
	}
	if info.ID != uuid.Nil {
		fields["worker"] = info.ID.String()
	}
	return fields
}
