package scheduler

import (
	"fmt"

	"github.com/polishtutor/polishtutor/internal/logger"
)

// cronLogger routes cron's own logging into the application logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug("cron: "+msg, toFields(keysAndValues))
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := toFields(keysAndValues)
	if err != nil {
		fields["error"] = err.Error()
	}
	logger.Error("cron: "+msg, fields)
}

func toFields(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2+1)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
