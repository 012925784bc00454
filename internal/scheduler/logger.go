package scheduler

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// cronLogger routes cron's own messages to zerolog
type cronLogger struct {
	logger zerolog.Logger
}

func newCronLogger(logger zerolog.Logger) cron.Logger {
	return &cronLogger{logger: logger}
}

// Info is used by cron for routine events such as wake-ups and skipped runs
func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(fields(keysAndValues)).Msg(msg)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(fields(keysAndValues)).Msg(msg)
}

// fields turns cron's key/value pairs into a map; a dangling key is kept under "extra"
func fields(keysAndValues []interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		if i+1 >= len(keysAndValues) {
			out["extra"] = keysAndValues[i]
			break
		}
		out[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return out
}
