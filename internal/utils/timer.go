// Package utils holds small helpers shared across stockdesk.
package utils

import (
	"time"

	"github.com/rs/zerolog"
)

// Timer measures the duration of an operation
type Timer struct {
	start time.Time
	name  string
	log   zerolog.Logger
	slow  time.Duration // 0 never warns
}

// NewTimer starts a timer. Durations above slow are logged as warnings.
func NewTimer(name string, log zerolog.Logger, slow time.Duration) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
		log:   log,
		slow:  slow,
	}
}

// Stop logs the duration with the given fields and returns it
func (t *Timer) Stop(fields map[string]interface{}) time.Duration {
	duration := time.Since(t.start)

	event := t.log.Debug()
	msg := "Operation completed"
	if t.slow > 0 && duration > t.slow {
		event = t.log.Warn()
		msg = "Slow operation detected"
	}

	event = event.
		Str("operation", t.name).
		Dur("duration_ms", duration)

	for key, value := range fields {
		switch v := value.(type) {
		case string:
			event = event.Str(key, v)
		case int:
			event = event.Int(key, v)
		case int64:
			event = event.Int64(key, v)
		case bool:
			event = event.Bool(key, v)
		default:
			event = event.Interface(key, v)
		}
	}

	event.Msg(msg)
	return duration
}

// MeasureDBQuery provides a defer-friendly way to log a query with the rows it touched.
//
//	done := utils.MeasureDBQuery("delete_expired", log)
//	...
//	done(rows)
func MeasureDBQuery(queryName string, log zerolog.Logger) func(rowsAffected int64) {
	start := time.Now()

	return func(rowsAffected int64) {
		duration := time.Since(start)

		log.Debug().
			Str("query", queryName).
			Dur("duration_ms", duration).
			Int64("rows_affected", rowsAffected).
			Msg("Database query completed")

		if duration > 5*time.Second {
			log.Warn().
				Str("query", queryName).
				Dur("duration", duration).
				Int64("rows_affected", rowsAffected).
				Msg("Slow database query detected")
		}
	}
}
