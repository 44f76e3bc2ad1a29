package scheduler

import (
	"fmt"

	logx "kron/pkg/logx"
)

// cronLogger routes robfig/cron's logr-style calls into logx. Info is very
// chatty (one line per wake-up) so it is logged at debug. The caller field
// points at the cron code that logged, not at this adapter.
type cronLogger struct {
	log logx.Logger
}

func newCronLogger(log logx.Logger) cronLogger {
	return cronLogger{log: log.AddCallerSkip(1)}
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error("cron: "+msg, append(kvFields(keysAndValues), logx.Err(err))...)
}

func kvFields(kv []interface{}) []logx.Field {
	out := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, logx.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return out
}
