package monitor_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petroagent/memcurator-go/pkg/backend"
	"github.com/petroagent/memcurator-go/pkg/monitor"
	"github.com/petroagent/memcurator-go/pkg/namespace"
)

func usedItem(id int64, owner namespace.AgentRole, ageDays int) *backend.MemoryItem {
	return &backend.MemoryItem{
		ID:      id,
		Content: "choke size adjustment restored flow on well P-12",
		Type:    namespace.TypeEpisodic,
		Namespace: namespace.Namespace{
			UserID: "user_001",
			Role:   owner,
			Domain: namespace.DomainArtificialLift,
			Type:   namespace.TypeEpisodic,
		},
		CreatedAt: time.Now().Add(-time.Duration(ageDays) * 24 * time.Hour),
	}
}

func score(v float64) *float64 { return &v }

func anyContains(lines []string, substr string) bool {
	for _, line := range lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

func TestRecordUsageAssignsIDsAndTracksIncrementally(t *testing.T) {
	m, err := monitor.NewMonitor(0)
	require.NoError(t, err)

	id1 := m.RecordUsage("s1", namespace.RoleProduction, usedItem(1, namespace.RoleProduction, 0),
		monitor.EventHit, "flow review", score(0.8), monitor.ResultSuccess)
	id2 := m.RecordUsage("s1", namespace.RoleProduction, usedItem(2, namespace.RoleProduction, 0),
		monitor.EventHit, "flow review", score(0.6), monitor.ResultSuccess)

	assert.NotZero(t, id1)
	assert.NotEqual(t, id1, id2)

	metrics := m.Metrics(namespace.RoleProduction)
	require.NotNil(t, metrics)
	assert.Equal(t, 2, metrics.AccessCount)
	assert.InDelta(t, 0.7, metrics.AvgRelevance, 1e-9)
}

func TestUnscoredEventsDoNotDiluteAvgRelevance(t *testing.T) {
	m, err := monitor.NewMonitor(0)
	require.NoError(t, err)

	// Misses without a score interleave with scored hits; the running
	// average must divide by scored events only, even between the
	// periodic full recomputes.
	role := namespace.RoleDrilling
	m.RecordUsage("s1", role, usedItem(1, role, 0), monitor.EventHit, "", score(0.8), monitor.ResultSuccess)
	m.RecordUsage("s1", role, nil, monitor.EventMiss, "", nil, "")
	m.RecordUsage("s1", role, nil, monitor.EventMiss, "", nil, "")
	m.RecordUsage("s1", role, usedItem(2, role, 0), monitor.EventHit, "", score(0.6), monitor.ResultSuccess)

	metrics := m.Metrics(role)
	require.NotNil(t, metrics)
	assert.Equal(t, 4, metrics.AccessCount)
	assert.InDelta(t, 0.7, metrics.AvgRelevance, 1e-9)
}

func TestMetricsNilForUnknownRole(t *testing.T) {
	m, err := monitor.NewMonitor(0)
	require.NoError(t, err)
	assert.Nil(t, m.Metrics(namespace.RoleEconomics))
}

func TestFullRecomputeOnTenthEvent(t *testing.T) {
	m, err := monitor.NewMonitor(0)
	require.NoError(t, err)

	role := namespace.RoleReservoir
	// 7 hits and 3 misses; the 10th event triggers the full recompute
	// that derives the hit rate.
	for i := 0; i < 7; i++ {
		m.RecordUsage("s1", role, usedItem(int64(i+1), role, 0),
			monitor.EventHit, "", score(0.8), monitor.ResultSuccess)
	}
	for i := 0; i < 3; i++ {
		m.RecordUsage("s1", role, nil, monitor.EventMiss, "", nil, "")
	}

	metrics := m.Metrics(role)
	require.NotNil(t, metrics)
	assert.Equal(t, 10, metrics.AccessCount)
	assert.Equal(t, 7, metrics.UniqueMemoriesUsed)
	assert.InDelta(t, 0.7, metrics.HitRate, 1e-9)
	assert.InDelta(t, 0.8, metrics.AvgRelevance, 1e-9)
}

func TestCrossAgentRatio(t *testing.T) {
	m, err := monitor.NewMonitor(0)
	require.NoError(t, err)

	role := namespace.RoleDrilling
	for i := 0; i < 5; i++ {
		m.RecordUsage("s1", role, usedItem(int64(i+1), role, 0),
			monitor.EventHit, "", score(0.7), monitor.ResultSuccess)
	}
	// Shared-pool access is not cross-agent; another role's memory is.
	for i := 0; i < 3; i++ {
		m.RecordUsage("s1", role, usedItem(int64(i+10), namespace.RoleShared, 0),
			monitor.EventHit, "", score(0.7), monitor.ResultSuccess)
	}
	for i := 0; i < 2; i++ {
		m.RecordUsage("s1", role, usedItem(int64(i+20), namespace.RoleReservoir, 0),
			monitor.EventHit, "", score(0.7), monitor.ResultSuccess)
	}

	metrics := m.Metrics(role)
	require.NotNil(t, metrics)
	assert.InDelta(t, 0.2, metrics.CrossAgentRatio, 1e-9)
}

func TestRelevanceTrendImproving(t *testing.T) {
	m, err := monitor.NewMonitor(0)
	require.NoError(t, err)

	role := namespace.RoleGeophysics
	for i := 0; i < 5; i++ {
		m.RecordUsage("s1", role, usedItem(int64(i+1), role, 0),
			monitor.EventHit, "", score(0.2), monitor.ResultSuccess)
	}
	for i := 0; i < 5; i++ {
		m.RecordUsage("s1", role, usedItem(int64(i+6), role, 0),
			monitor.EventHit, "", score(0.9), monitor.ResultSuccess)
	}

	metrics := m.Metrics(role)
	require.NotNil(t, metrics)
	assert.Equal(t, monitor.TrendImproving, metrics.Trend)
}

func TestPerformanceReportWindowAndInsights(t *testing.T) {
	m, err := monitor.NewMonitor(0)
	require.NoError(t, err)

	for i := 0; i < 12; i++ {
		m.RecordUsage("s1", namespace.RoleReservoir, usedItem(int64(i+1), namespace.RoleReservoir, 0),
			monitor.EventHit, "", score(0.9), monitor.ResultSuccess)
	}
	for i := 0; i < 12; i++ {
		m.RecordUsage("s1", namespace.RoleEconomics, usedItem(int64(i+100), namespace.RoleEconomics, 0),
			monitor.EventHit, "", score(0.3), monitor.ResultSuccess)
	}

	report := m.PerformanceReport(time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.Contains(t, report.Metrics, namespace.RoleReservoir)
	require.Contains(t, report.Metrics, namespace.RoleEconomics)

	assert.True(t, anyContains(report.Insights, "best performer: reservoir_engineering"))
	assert.True(t, anyContains(report.Insights, "worst performer: economic_evaluation"))
	assert.True(t, anyContains(report.Recommendations, "economic_evaluation"))

	// Role filter narrows the report.
	filtered := m.PerformanceReport(time.Now().Add(-time.Hour), time.Now().Add(time.Hour), namespace.RoleReservoir)
	assert.Contains(t, filtered.Metrics, namespace.RoleReservoir)
	assert.NotContains(t, filtered.Metrics, namespace.RoleEconomics)

	// A window that excludes everything yields an empty report, no matter
	// what the incremental rollups say.
	past := m.PerformanceReport(time.Now().Add(-48*time.Hour), time.Now().Add(-24*time.Hour))
	assert.Empty(t, past.Metrics)
	assert.Empty(t, past.Insights)
}

func TestDetectAnomaliesSeverity(t *testing.T) {
	m, err := monitor.NewMonitor(0)
	require.NoError(t, err)

	// All misses with terrible relevance: hit rate 0 and avg relevance
	// 0.1, both far outside range at the default threshold.
	role := namespace.RoleProduction
	for i := 0; i < 10; i++ {
		m.RecordUsage("s1", role, nil, monitor.EventMiss, "", score(0.1), monitor.ResultSuccess)
	}

	anomalies := m.DetectAnomalies(role, 0)
	byMetric := map[string]monitor.Anomaly{}
	for _, a := range anomalies {
		byMetric[a.Metric] = a
	}

	relevance, ok := byMetric["avg_relevance"]
	require.True(t, ok)
	assert.Equal(t, monitor.SeverityHigh, relevance.Severity)
	assert.InDelta(t, 0.4, relevance.Deviation, 1e-9)

	hitRate, ok := byMetric["hit_rate"]
	require.True(t, ok)
	assert.Equal(t, monitor.SeverityHigh, hitRate.Severity)
}

func TestDetectAnomaliesMediumSeverity(t *testing.T) {
	m, err := monitor.NewMonitor(0)
	require.NoError(t, err)

	// avg relevance 0.2 deviates by 0.3: above a 0.2 threshold but not
	// past twice it, so severity stays medium.
	role := namespace.RoleGeophysics
	for i := 0; i < 10; i++ {
		m.RecordUsage("s1", role, usedItem(int64(i+1), role, 0),
			monitor.EventHit, "", score(0.2), monitor.ResultSuccess)
	}

	for _, a := range m.DetectAnomalies(role, 0.2) {
		if a.Metric == "avg_relevance" {
			assert.Equal(t, monitor.SeverityMedium, a.Severity)
			return
		}
	}
	t.Fatal("expected an avg_relevance anomaly")
}

func TestDetectAnomaliesSuppressedForThinData(t *testing.T) {
	m, err := monitor.NewMonitor(0)
	require.NoError(t, err)

	// Fewer than ten events is not enough evidence, however bad they look.
	for i := 0; i < 5; i++ {
		m.RecordUsage("s1", namespace.RoleEconomics, nil, monitor.EventMiss, "", score(0.05), "")
	}

	assert.Empty(t, m.DetectAnomalies(namespace.RoleEconomics, 0))
}
