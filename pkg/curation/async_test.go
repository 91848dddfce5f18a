package curation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petroagent/memcurator-go/pkg/curation"
	"github.com/petroagent/memcurator-go/pkg/optimizer"
)

func newAsyncTestEngine(t *testing.T) *curation.AsyncEngine {
	t.Helper()
	engine, err := curation.NewAsyncEngine(&curation.Config{
		Backend: curation.BackendConfig{Provider: "memory"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close() })
	return engine
}

func TestAsyncRememberAndCurate(t *testing.T) {
	engine := newAsyncTestEngine(t)
	ctx := context.Background()

	stored := <-engine.RememberAsync(ctx, "user_001", "reservoir_engineering",
		"waterflood pattern optimization improved sweep efficiency in block A7",
		curation.WithImportance(0.8))
	require.NoError(t, stored.Error)
	assert.NotZero(t, stored.ID)

	result := <-engine.CurateAsync(ctx, "user_001", "reservoir_engineering",
		"waterflood pattern optimization")
	require.NoError(t, result.Error)
	require.NotNil(t, result.Memories)
	assert.NotEmpty(t, result.Memories.Items)
}

func TestAsyncRecordFeedback(t *testing.T) {
	engine := newAsyncTestEngine(t)

	result := <-engine.RecordFeedbackAsync(optimizer.FeedbackEvent{
		AgentRole: "reservoir_engineering",
		Type:      "relevance_rating",
		Signal:    optimizer.SignalPositive,
		Score:     0.8,
	})
	require.NoError(t, result.Error)
	assert.Nil(t, result.Optimization)
}

func TestAsyncWaitDrainsInFlightWork(t *testing.T) {
	engine := newAsyncTestEngine(t)
	ctx := context.Background()

	channels := make([]<-chan *curation.RememberResult, 0, 5)
	for i := 0; i < 5; i++ {
		channels = append(channels, engine.RememberAsync(ctx, "user_001",
			"drilling_operations", "mud weight raised ahead of the pressured zone"))
	}
	engine.Wait()

	for _, ch := range channels {
		result := <-ch
		assert.NoError(t, result.Error)
	}
}
