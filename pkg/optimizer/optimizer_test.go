package optimizer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petroagent/memcurator-go/pkg/namespace"
	"github.com/petroagent/memcurator-go/pkg/optimizer"
	"github.com/petroagent/memcurator-go/pkg/preference"
)

func feedback(role namespace.AgentRole, score float64) optimizer.FeedbackEvent {
	signal := optimizer.SignalPositive
	if score < 0.5 {
		signal = optimizer.SignalNegative
	}
	return optimizer.FeedbackEvent{
		SessionID: "session_001",
		AgentRole: role,
		Type:      "relevance_rating",
		Signal:    signal,
		Score:     score,
		Source:    "test",
	}
}

func TestLearningStateLifecycle(t *testing.T) {
	prefs := preference.NewStore()
	opt := optimizer.NewOptimizer(prefs, 0, 0)

	_, state := opt.LearningStateFor(namespace.RoleGeophysics)
	assert.Equal(t, optimizer.StateCold, state)

	for i := 0; i < 5; i++ {
		_, err := opt.RecordFeedback(feedback(namespace.RoleGeophysics, 0.8))
		require.NoError(t, err)
	}
	ls, state := opt.LearningStateFor(namespace.RoleGeophysics)
	assert.Equal(t, optimizer.StateWarming, state)
	assert.Equal(t, 5, ls.ExperienceCount)

	for i := 0; i < 5; i++ {
		_, err := opt.RecordFeedback(feedback(namespace.RoleGeophysics, 0.8))
		require.NoError(t, err)
	}
	_, state = opt.LearningStateFor(namespace.RoleGeophysics)
	assert.Equal(t, optimizer.StateActive, state)
}

func TestLearningRateStaysClamped(t *testing.T) {
	prefs := preference.NewStore()
	opt := optimizer.NewOptimizer(prefs, 0, 0)

	// Alternating extremes keep variance high; steady values shrink it.
	scores := []float64{1, 0, 1, 0, 1, 0, 1, 0, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5}
	for _, s := range scores {
		_, err := opt.RecordFeedback(feedback(namespace.RoleProduction, s))
		require.NoError(t, err)
	}

	ls, _ := opt.LearningStateFor(namespace.RoleProduction)
	assert.GreaterOrEqual(t, ls.LearningRate, 0.01)
	assert.LessOrEqual(t, ls.LearningRate, 0.3)
	assert.GreaterOrEqual(t, ls.StabilityScore, 0.0)
	assert.LessOrEqual(t, ls.StabilityScore, 1.0)
}

func TestOptimizeRequiresExperience(t *testing.T) {
	prefs := preference.NewStore()
	opt := optimizer.NewOptimizer(prefs, 0, 0)

	for i := 0; i < 3; i++ {
		_, err := opt.RecordFeedback(feedback(namespace.RoleDrilling, 0.7))
		require.NoError(t, err)
	}

	before := prefs.Get(namespace.RoleDrilling)
	_, err := opt.OptimizeParameters(namespace.RoleDrilling, optimizer.StrategyBalanced)
	assert.ErrorIs(t, err, optimizer.ErrInsufficientFeedback)
	// The failed request mutates nothing.
	assert.Equal(t, before, prefs.Get(namespace.RoleDrilling))
}

func TestOptimizeRaisesThresholdsOnPoorFeedback(t *testing.T) {
	prefs := preference.NewStore()
	opt := optimizer.NewOptimizer(prefs, 0, 0)

	// Six good sessions followed by six bad ones. The degrading tail
	// trips the trigger policy on its own.
	scores := []float64{0.9, 0.9, 0.9, 0.9, 0.9, 0.9, 0.2, 0.2, 0.2, 0.2, 0.2, 0.2}
	var triggered *optimizer.OptimizationResult
	for _, s := range scores {
		result, err := opt.RecordFeedback(feedback(namespace.RoleReservoir, s))
		require.NoError(t, err)
		if result != nil && triggered == nil {
			triggered = result
		}
	}
	require.NotNil(t, triggered, "degraded performance should trigger an optimization proposal")

	// With the full degraded window in view, the proposal tightens toward
	// precision: higher relevance cutoff, smaller per-type quotas.
	result, err := opt.OptimizeParameters(namespace.RoleReservoir, optimizer.StrategyBalanced)
	require.NoError(t, err)
	assert.Greater(t, result.ParamsAfter.MinRelevance, result.ParamsBefore.MinRelevance)
	for memType, before := range result.ParamsBefore.MaxCountByType {
		assert.Less(t, result.ParamsAfter.MaxCountByType[memType], before)
	}
	assert.Contains(t, result.ProblemAreas, "poor_relevance")
	assert.Contains(t, result.ProblemAreas, "declining_performance")
}

func TestOptimizeGateNeverAppliesLowConfidence(t *testing.T) {
	prefs := preference.NewStore()
	opt := optimizer.NewOptimizer(prefs, 0, 0)

	for i := 0; i < 12; i++ {
		_, err := opt.RecordFeedback(feedback(namespace.RoleEconomics, 0.2))
		require.NoError(t, err)
	}

	for _, result := range opt.History(namespace.RoleEconomics) {
		if result.Confidence < 0.6 || result.EstimatedImprovement < 0.05 {
			assert.False(t, result.Applied)
			assert.False(t, result.RollbackAvailable)
		}
		if result.Applied {
			assert.GreaterOrEqual(t, result.Confidence, 0.6)
			assert.GreaterOrEqual(t, result.EstimatedImprovement, 0.05)
			assert.True(t, result.RollbackAvailable)
		}
	}
}

func TestHighScoresRelaxLimits(t *testing.T) {
	prefs := preference.NewStore()
	opt := optimizer.NewOptimizer(prefs, 0, 0)

	for i := 0; i < 12; i++ {
		_, err := opt.RecordFeedback(feedback(namespace.RoleGeneral, 0.9))
		require.NoError(t, err)
	}

	result, err := opt.OptimizeParameters(namespace.RoleGeneral, optimizer.StrategyBalanced)
	require.NoError(t, err)
	assert.LessOrEqual(t, result.ParamsAfter.MinRelevance, result.ParamsBefore.MinRelevance)
	for memType, before := range result.ParamsBefore.MaxCountByType {
		assert.GreaterOrEqual(t, result.ParamsAfter.MaxCountByType[memType], before)
	}
}

func TestRollbackRestoresExactSnapshot(t *testing.T) {
	prefs := preference.NewStore()
	opt := optimizer.NewOptimizer(prefs, 0, 0)

	role := namespace.RoleProduction
	before := prefs.Get(role)

	// A long, steady run of middling scores builds enough experience and
	// consistency for the proposal to clear the confidence gate.
	for i := 0; i < 100; i++ {
		_, err := opt.RecordFeedback(feedback(role, 0.5))
		require.NoError(t, err)
	}
	result, err := opt.OptimizeParameters(role, optimizer.StrategyConservative)
	require.NoError(t, err)
	require.True(t, result.Applied, "confidence %.2f improvement %.2f", result.Confidence, result.EstimatedImprovement)

	// The applied change is visible in the store before rollback.
	assert.Greater(t, prefs.Get(role).MinRelevance, before.MinRelevance)

	require.NoError(t, opt.Rollback(result.ID, "test rollback"))
	restored := prefs.Get(role)
	assert.Equal(t, before.MinRelevance, restored.MinRelevance)
	assert.Equal(t, before.MinImportance, restored.MinImportance)
	assert.Equal(t, before.MaxCountByType, restored.MaxCountByType)
	assert.Equal(t, before.MaxAgeDays, restored.MaxAgeDays)

	// A second rollback of the same id is rejected.
	assert.ErrorIs(t, opt.Rollback(result.ID, "again"), optimizer.ErrRollbackUnavailable)
}

func TestRollbackStateErrors(t *testing.T) {
	prefs := preference.NewStore()
	opt := optimizer.NewOptimizer(prefs, 0, 0)

	assert.ErrorIs(t, opt.Rollback("no-such-id", "test"), optimizer.ErrUnknownOptimization)

	for i := 0; i < 12; i++ {
		_, err := opt.RecordFeedback(feedback(namespace.RoleGeophysics, 0.2))
		require.NoError(t, err)
	}
	for _, result := range opt.History(namespace.RoleGeophysics) {
		if !result.Applied {
			assert.ErrorIs(t, opt.Rollback(result.ID, "test"), optimizer.ErrRollbackUnavailable)
		}
	}
}

func TestOptimizationResultRecordsSnapshots(t *testing.T) {
	prefs := preference.NewStore()
	opt := optimizer.NewOptimizer(prefs, 0, 0)

	role := namespace.RoleReservoir
	before := prefs.Get(role)

	for i := 0; i < 12; i++ {
		_, err := opt.RecordFeedback(feedback(role, 0.3))
		require.NoError(t, err)
	}
	result, err := opt.OptimizeParameters(role, optimizer.StrategyConservative)
	require.NoError(t, err)

	assert.NotEmpty(t, result.ID)
	assert.Equal(t, role, result.AgentRole)
	assert.Equal(t, before.MinRelevance, result.ParamsBefore.MinRelevance)
	// The proposal itself respects the bounds table.
	assert.LessOrEqual(t, result.ParamsAfter.MinRelevance, 0.9)
	assert.GreaterOrEqual(t, result.ParamsAfter.MinRelevance, 0.05)
}
