package payment

import (
	"time"

	"github.com/rs/zerolog"
)

// MetricsCollector receives engine outcomes.
type MetricsCollector interface {
	RecordOperationDuration(operation string, duration time.Duration)
	RecordOperationResult(operation, result string)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector
type NoopMetricsCollector struct{}

func (n *NoopMetricsCollector) RecordOperationDuration(string, time.Duration) {}
func (n *NoopMetricsCollector) RecordOperationResult(string, string)          {}

// LogMetricsCollector writes outcomes as debug log events.
type LogMetricsCollector struct {
	Log zerolog.Logger
}

func (l *LogMetricsCollector) RecordOperationDuration(op string, d time.Duration) {
	l.Log.Debug().Str("operation", op).Dur("duration", d).Msg("operation timing")
}

func (l *LogMetricsCollector) RecordOperationResult(op, result string) {
	l.Log.Debug().Str("operation", op).Str("result", result).Msg("operation result")
}
