package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobsearch-aggregator/internal/progress"
)

// LogSink writes one structured log line per event.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event. Failed strategies log at warn level.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.Stringer("search_id", evt.SearchUUID()),
			zap.String("stage", string(evt.Stage)),
			zap.Int("records", evt.Records),
			zap.Duration("dur", evt.Dur),
		}
		if evt.Portal != "" {
			fields = append(fields,
				zap.String("portal", evt.Portal),
				zap.String("technique", evt.Technique),
				zap.Int("attempts", evt.Attempts),
			)
		}
		if evt.Outcome != "" {
			fields = append(fields, zap.String("outcome", evt.Outcome))
		}
		if evt.Note != "" {
			fields = append(fields, zap.String("note", evt.Note))
		}
		if evt.Stage == progress.StageStrategyDone && evt.Outcome != progress.OutcomeOK {
			s.logger.Warn("strategy failed", fields...)
			continue
		}
		s.logger.Info("search progress", fields...)
	}
	return nil
}

// Close implements progress.Sink.
func (s *LogSink) Close(context.Context) error {
	return nil
}
