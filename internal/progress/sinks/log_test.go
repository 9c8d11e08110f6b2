package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/jobsearch-aggregator/internal/progress"
)

func TestLogSinkLevels(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	sink := NewLogSink(zap.New(core))

	id := progress.UUIDToBytes(uuid.New())
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		{SearchID: id, TS: time.Now(), Stage: progress.StageStrategyDone, Portal: "glassdoor",
			Technique: "browser", Outcome: "render_timeout"},
		{SearchID: id, TS: time.Now(), Stage: progress.StageSearchDone, Outcome: "live", Records: 3},
	}))

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, zapcore.WarnLevel, entries[0].Level)
	require.Equal(t, "glassdoor", entries[0].ContextMap()["portal"])
	require.Equal(t, "render_timeout", entries[0].ContextMap()["outcome"])
	require.Equal(t, zapcore.InfoLevel, entries[1].Level)
	require.NotContains(t, entries[1].ContextMap(), "portal")
}
