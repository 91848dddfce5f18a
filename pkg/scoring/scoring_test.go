package scoring_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petroagent/memcurator-go/pkg/backend"
	"github.com/petroagent/memcurator-go/pkg/namespace"
	"github.com/petroagent/memcurator-go/pkg/preference"
	"github.com/petroagent/memcurator-go/pkg/scoring"
)

func testItem() *backend.MemoryItem {
	return &backend.MemoryItem{
		ID:      42,
		Content: "Waterflood pattern in block A7 responds best to 5-spot injection at a voidage replacement ratio of 0.8",
		Type:    namespace.TypeSemantic,
		Namespace: namespace.Namespace{
			UserID: "user_001",
			Role:   namespace.RoleReservoir,
			Domain: namespace.DomainReservoirSim,
			Type:   namespace.TypeSemantic,
		},
		CreatedAt:   time.Now().Add(-24 * time.Hour),
		AccessCount: 3,
		Importance:  0.7,
	}
}

func testContext() *scoring.Context {
	return &scoring.Context{
		Query:     "waterflood injection pattern",
		AgentRole: namespace.RoleReservoir,
	}
}

func TestScoreProducesAllFactors(t *testing.T) {
	scorer := scoring.NewScorer(nil, 0, 0)
	pref := preference.DefaultPreference(namespace.RoleReservoir)

	score := scorer.Score(context.Background(), testItem(), testContext(),
		scoring.GetStrategy(scoring.StrategyBalanced), &pref)

	require.NotNil(t, score)
	assert.Len(t, score.PerFactor, len(scoring.AllFactors))
	for _, factor := range scoring.AllFactors {
		v, ok := score.PerFactor[factor]
		assert.True(t, ok, "missing factor %s", factor)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
	assert.GreaterOrEqual(t, score.Total, 0.0)
	assert.LessOrEqual(t, score.Total, 1.0)
	assert.Greater(t, score.Confidence, 0.0)
}

func TestScoreIsPureUnderCaching(t *testing.T) {
	scorer := scoring.NewScorer(nil, time.Minute, 100)
	pref := preference.DefaultPreference(namespace.RoleReservoir)
	strategy := scoring.GetStrategy(scoring.StrategyBalanced)

	first := scorer.Score(context.Background(), testItem(), testContext(), strategy, &pref)
	second := scorer.Score(context.Background(), testItem(), testContext(), strategy, &pref)

	assert.Equal(t, first, second)
}

func TestScoreAdjustmentTags(t *testing.T) {
	scorer := scoring.NewScorer(nil, 0, 0)
	pref := preference.DefaultPreference(namespace.RoleReservoir)
	strategy := scoring.GetStrategy(scoring.StrategyBalanced)

	item := testItem()
	item.Importance = 0.9
	item.AccessCount = 10
	item.CreatedAt = time.Now().Add(-60 * 24 * time.Hour)

	score := scorer.Score(context.Background(), item, testContext(), strategy, &pref)

	assert.Contains(t, score.Boosts, "high_importance")
	assert.Contains(t, score.Boosts, "frequently_accessed")
	assert.Contains(t, score.Boosts, "agent_role_match")
	assert.Contains(t, score.Penalties, "stale_memory")
}

func TestScoreRoleMismatchPenalty(t *testing.T) {
	scorer := scoring.NewScorer(nil, 0, 0)
	pref := preference.DefaultPreference(namespace.RoleDrilling)
	strategy := scoring.GetStrategy(scoring.StrategyBalanced)

	item := testItem() // owned by reservoir_engineering
	sctx := testContext()
	sctx.AgentRole = namespace.RoleDrilling

	score := scorer.Score(context.Background(), item, sctx, strategy, &pref)
	assert.Contains(t, score.Penalties, "agent_role_mismatch")
}

func TestScoreDomainFocusBoost(t *testing.T) {
	scorer := scoring.NewScorer(nil, 0, 0)
	pref := preference.DefaultPreference(namespace.RoleReservoir)
	strategy := scoring.GetStrategy(scoring.StrategyDomainFocused)

	sctx := testContext()
	sctx.DomainFocus = namespace.DomainReservoirSim

	score := scorer.Score(context.Background(), testItem(), sctx, strategy, &pref)
	assert.Contains(t, score.Boosts, "domain_focus_match")
	assert.Equal(t, 1.0, score.PerFactor[scoring.FactorDomain])
}

func TestScoreFallbackOnPanic(t *testing.T) {
	scorer := scoring.NewScorer(nil, 0, 0)
	pref := preference.DefaultPreference(namespace.RoleGeneral)
	strategy := scoring.GetStrategy(scoring.StrategyBalanced)

	// A nil item makes internal scoring panic; the caller still gets the
	// fixed fallback score.
	score := scorer.Score(context.Background(), nil, testContext(), strategy, &pref)

	require.NotNil(t, score)
	assert.Equal(t, 0.3, score.Total)
	assert.Equal(t, 0.2, score.Confidence)
	assert.Contains(t, score.Penalties, "scoring_error")
}

func TestTemporalDecayHalfLife(t *testing.T) {
	scorer := scoring.NewScorer(nil, 0, 0)
	pref := preference.DefaultPreference(namespace.RoleReservoir)
	strategy := scoring.GetStrategy(scoring.StrategyTemporalFocused)

	fresh := testItem()
	fresh.CreatedAt = time.Now()
	old := testItem()
	old.ID = 43
	old.CreatedAt = time.Now().Add(-30 * 24 * time.Hour)

	freshScore := scorer.Score(context.Background(), fresh, testContext(), strategy, &pref)
	oldScore := scorer.Score(context.Background(), old, testContext(), strategy, &pref)

	assert.InDelta(t, 1.0, freshScore.PerFactor[scoring.FactorTemporal], 0.01)
	assert.InDelta(t, 0.5, oldScore.PerFactor[scoring.FactorTemporal], 0.02)
}

func TestGetStrategyFallback(t *testing.T) {
	s := scoring.GetStrategy("no_such_strategy")
	assert.Equal(t, scoring.StrategyBalanced, s.Name)
}

func TestContextLastTurns(t *testing.T) {
	sctx := &scoring.Context{ConversationHistory: []string{"a", "b", "c", "d", "e"}}
	assert.Equal(t, []string{"c", "d", "e"}, sctx.LastTurns(3))
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, sctx.LastTurns(10))
}

func TestJaccardSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, scoring.JaccardSimilarity("lost circulation event", "lost circulation event"))
	assert.Equal(t, 0.0, scoring.JaccardSimilarity("mud weight", "seismic horizon"))
	mixed := scoring.JaccardSimilarity("mud weight increase", "mud weight schedule")
	assert.Greater(t, mixed, 0.0)
	assert.Less(t, mixed, 1.0)
}
