package temporal

import (
	"fmt"

	"github.com/rs/zerolog"
	"go.temporal.io/sdk/log"
)

// TemporalAdapter routes SDK log lines into zerolog.
type TemporalAdapter struct {
	logger zerolog.Logger
}

var (
	_ log.Logger     = (*TemporalAdapter)(nil)
	_ log.WithLogger = (*TemporalAdapter)(nil)
)

func NewTemporalAdapter(logger zerolog.Logger) *TemporalAdapter {
	return &TemporalAdapter{
		logger: logger.With().Str("component", "temporal").Logger(),
	}
}

func pairs(keyvals []interface{}) map[string]interface{} {
	if len(keyvals)%2 != 0 {
		keyvals = append(keyvals, "MISSING_VALUE")
	}
	fields := make(map[string]interface{}, len(keyvals)/2)
	for i := 0; i < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			key = fmt.Sprint(keyvals[i])
		}
		fields[key] = keyvals[i+1]
	}
	return fields
}

func (a *TemporalAdapter) withKeyvals(event *zerolog.Event, keyvals ...interface{}) *zerolog.Event {
	if len(keyvals) == 0 {
		return event
	}
	return event.Fields(pairs(keyvals))
}

// With returns a child adapter carrying keyvals on every line.
func (a *TemporalAdapter) With(keyvals ...interface{}) log.Logger {
	return &TemporalAdapter{logger: a.logger.With().Fields(pairs(keyvals)).Logger()}
}

// Debug logs a debug message.
func (a *TemporalAdapter) Debug(msg string, keyvals ...interface{}) {
	a.withKeyvals(a.logger.Debug(), keyvals...).Msg(msg)
}

// Info logs an info message.
func (a *TemporalAdapter) Info(msg string, keyvals ...interface{}) {
	a.withKeyvals(a.logger.Info(), keyvals...).Msg(msg)
}

// Warn logs a warning message.
func (a *TemporalAdapter) Warn(msg string, keyvals ...interface{}) {
	a.withKeyvals(a.logger.Warn(), keyvals...).Msg(msg)
}

// Error logs an error message.
func (a *TemporalAdapter) Error(msg string, keyvals ...interface{}) {
	a.withKeyvals(a.logger.Error(), keyvals...).Msg(msg)
}
