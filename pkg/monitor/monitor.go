// Package monitor records memory-usage telemetry and rolls it up into
// per-agent-role performance metrics, reports and anomaly flags.
//
// Events append to a bounded ring buffer under a buffer-scoped lock;
// readers work from point-in-time snapshots. Metrics update
// incrementally on every event, with a full recompute over the recent
// window every tenth event per role.
package monitor

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/petroagent/memcurator-go/pkg/backend"
	"github.com/petroagent/memcurator-go/pkg/namespace"
)

const (
	defaultEventCapacity = 5000
	recomputeEvery       = 10
	recomputeWindow      = 1000
)

// normalRanges is the fixed table anomaly detection checks against.
// Error rate is bad when high; every other metric is bad when low.
var normalRanges = map[string][2]float64{
	"avg_relevance":        {0.5, 1.0},
	"hit_rate":             {0.5, 1.0},
	"task_completion_rate": {0.5, 1.0},
	"error_rate":           {0.0, 0.1},
	"freshness":            {0.4, 1.0},
}

// Monitor owns the bounded usage-event log and the incremental metric
// rollups. It is safe for concurrent use.
type Monitor struct {
	node *snowflake.Node
	now  func() time.Time

	mu      sync.Mutex
	events  []UsageEvent
	cap     int
	metrics map[namespace.AgentRole]*AgentMetrics
	counts  map[namespace.AgentRole]int
}

// NewMonitor creates a monitor. eventCapacity bounds the event ring; a
// non-positive value selects the default of 5000 events.
func NewMonitor(eventCapacity int) (*Monitor, error) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %w", err)
	}
	if eventCapacity <= 0 {
		eventCapacity = defaultEventCapacity
	}
	return &Monitor{
		node:    node,
		now:     time.Now,
		cap:     eventCapacity,
		metrics: make(map[namespace.AgentRole]*AgentMetrics),
		counts:  make(map[namespace.AgentRole]int),
	}, nil
}

// RecordUsage appends one usage event and updates the role's metrics
// incrementally. The item may be nil for misses and errors. Returns the
// assigned event id.
func (m *Monitor) RecordUsage(sessionID string, role namespace.AgentRole, item *backend.MemoryItem, eventType, context string, relevanceScore *float64, usageResult string) int64 {
	now := m.now()
	event := UsageEvent{
		ID:          m.node.Generate().Int64(),
		Timestamp:   now,
		SessionID:   sessionID,
		AgentRole:   role,
		EventType:   eventType,
		Context:     context,
		UsageResult: usageResult,
	}
	if relevanceScore != nil {
		event.RelevanceScore = *relevanceScore
		event.Scored = true
	}
	if item != nil {
		event.MemoryID = item.ID
		event.MemoryAgeDays = item.AgeDays(now)
		event.CrossAgent = item.OwnerRole() != role && item.OwnerRole() != namespace.RoleShared
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, event)
	if len(m.events) > m.cap {
		m.events = m.events[len(m.events)-m.cap:]
	}

	m.counts[role]++
	metrics, ok := m.metrics[role]
	if !ok {
		metrics = &AgentMetrics{AgentRole: role, Trend: TrendStable}
		m.metrics[role] = metrics
	}

	// Incremental update: running average relevance plus the raw count.
	metrics.AccessCount++
	if event.Scored {
		metrics.scoredCount++
		n := float64(metrics.scoredCount)
		metrics.AvgRelevance += (event.RelevanceScore - metrics.AvgRelevance) / n
	}

	if m.counts[role]%recomputeEvery == 0 {
		recent := m.recentEventsLocked(role, recomputeWindow)
		m.metrics[role] = computeMetrics(role, recent)
	}
	return event.ID
}

// Metrics returns a copy of the role's current rollup, or nil if the
// role has no recorded events.
func (m *Monitor) Metrics(role namespace.AgentRole) *AgentMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	metrics, ok := m.metrics[role]
	if !ok {
		return nil
	}
	out := *metrics
	return &out
}

// recentEventsLocked returns up to the last n events for one role.
func (m *Monitor) recentEventsLocked(role namespace.AgentRole, n int) []UsageEvent {
	out := make([]UsageEvent, 0, n)
	for i := len(m.events) - 1; i >= 0 && len(out) < n; i-- {
		if m.events[i].AgentRole == role {
			out = append(out, m.events[i])
		}
	}
	// Restore chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// computeMetrics derives the full rollup from a chronological event
// slice.
func computeMetrics(role namespace.AgentRole, events []UsageEvent) *AgentMetrics {
	metrics := &AgentMetrics{AgentRole: role, Trend: TrendStable}
	if len(events) == 0 {
		return metrics
	}

	unique := make(map[int64]bool)
	var relevanceSum, freshnessSum float64
	var scored, hits, misses, errors, completed, outcomes, crossAgent int

	for _, e := range events {
		metrics.AccessCount++
		if e.MemoryID != 0 {
			unique[e.MemoryID] = true
		}
		if e.Scored {
			relevanceSum += e.RelevanceScore
			scored++
		}
		freshnessSum += math.Exp(-math.Ln2 / 30.0 * e.MemoryAgeDays)
		if e.CrossAgent {
			crossAgent++
		}
		switch e.EventType {
		case EventHit:
			hits++
		case EventMiss:
			misses++
		case EventError:
			errors++
		case EventTaskCompleted:
			completed++
		}
		if e.UsageResult != "" {
			outcomes++
		}
	}

	metrics.UniqueMemoriesUsed = len(unique)
	metrics.scoredCount = scored
	if scored > 0 {
		metrics.AvgRelevance = relevanceSum / float64(scored)
	}
	if hits+misses > 0 {
		metrics.HitRate = float64(hits) / float64(hits+misses)
	}
	if outcomes > 0 {
		successes := 0
		for _, e := range events {
			if e.UsageResult == ResultSuccess {
				successes++
			}
		}
		metrics.TaskCompletionRate = float64(successes) / float64(outcomes)
	} else if completed > 0 {
		metrics.TaskCompletionRate = float64(completed) / float64(len(events))
	}
	metrics.ErrorRate = float64(errors) / float64(len(events))
	metrics.Freshness = freshnessSum / float64(len(events))
	metrics.CrossAgentRatio = float64(crossAgent) / float64(len(events))
	metrics.Trend = relevanceTrend(events)
	return metrics
}

// relevanceTrend compares average relevance between the first and second
// half of the window.
func relevanceTrend(events []UsageEvent) string {
	var scored []float64
	for _, e := range events {
		if e.Scored {
			scored = append(scored, e.RelevanceScore)
		}
	}
	if len(scored) < 4 {
		return TrendStable
	}
	half := len(scored) / 2
	var first, second float64
	for _, s := range scored[:half] {
		first += s
	}
	for _, s := range scored[half:] {
		second += s
	}
	delta := second/float64(len(scored)-half) - first/float64(half)
	switch {
	case delta > 0.05:
		return TrendImproving
	case delta < -0.05:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// PerformanceReport recomputes metrics strictly from events inside the
// window, ignoring the incremental rollups, and derives insights and
// threshold-based recommendations. An empty roles list means all roles.
func (m *Monitor) PerformanceReport(from, to time.Time, roles ...namespace.AgentRole) *Report {
	m.mu.Lock()
	snapshot := make([]UsageEvent, len(m.events))
	copy(snapshot, m.events)
	m.mu.Unlock()

	wanted := make(map[namespace.AgentRole]bool, len(roles))
	for _, r := range roles {
		wanted[r] = true
	}

	byRole := make(map[namespace.AgentRole][]UsageEvent)
	for _, e := range snapshot {
		if e.Timestamp.Before(from) || e.Timestamp.After(to) {
			continue
		}
		if len(wanted) > 0 && !wanted[e.AgentRole] {
			continue
		}
		byRole[e.AgentRole] = append(byRole[e.AgentRole], e)
	}

	report := &Report{
		From:    from,
		To:      to,
		Metrics: make(map[namespace.AgentRole]*AgentMetrics, len(byRole)),
	}
	for role, events := range byRole {
		report.Metrics[role] = computeMetrics(role, events)
	}

	report.Insights = buildInsights(report.Metrics)
	report.Recommendations = buildRecommendations(report.Metrics)
	return report
}

func buildInsights(metrics map[namespace.AgentRole]*AgentMetrics) []string {
	if len(metrics) == 0 {
		return nil
	}

	roles := make([]namespace.AgentRole, 0, len(metrics))
	for role := range metrics {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })

	best, worst := roles[0], roles[0]
	var insights []string
	for _, role := range roles {
		m := metrics[role]
		if m.AvgRelevance > metrics[best].AvgRelevance {
			best = role
		}
		if m.AvgRelevance < metrics[worst].AvgRelevance {
			worst = role
		}
		if m.HitRate > 0.7 && m.AccessCount >= 10 {
			insights = append(insights, fmt.Sprintf("%s operates at high efficiency (hit rate %.2f)", role, m.HitRate))
		}
	}
	insights = append(insights, fmt.Sprintf("best performer: %s (avg relevance %.2f)", best, metrics[best].AvgRelevance))
	if worst != best {
		insights = append(insights, fmt.Sprintf("worst performer: %s (avg relevance %.2f)", worst, metrics[worst].AvgRelevance))
	}
	return insights
}

func buildRecommendations(metrics map[namespace.AgentRole]*AgentMetrics) []string {
	roles := make([]namespace.AgentRole, 0, len(metrics))
	for role := range metrics {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })

	var recs []string
	for _, role := range roles {
		m := metrics[role]
		if m.AvgRelevance < 0.6 {
			recs = append(recs, fmt.Sprintf("%s: raise relevance thresholds or revisit scoring strategy (avg relevance %.2f)", role, m.AvgRelevance))
		}
		if m.ErrorRate > 0.1 {
			recs = append(recs, fmt.Sprintf("%s: investigate elevated error rate (%.2f)", role, m.ErrorRate))
		}
		if m.HitRate < 0.5 && m.AccessCount >= 10 {
			recs = append(recs, fmt.Sprintf("%s: low hit rate (%.2f), consider widening retrieval scope", role, m.HitRate))
		}
	}
	return recs
}

// DetectAnomalies checks current rollups against the fixed normal-range
// table. An empty role checks every known role. threshold is the
// tolerated deviation outside the range; severity is high once the
// deviation exceeds twice the threshold.
func (m *Monitor) DetectAnomalies(role namespace.AgentRole, threshold float64) []Anomaly {
	if threshold <= 0 {
		threshold = 0.05
	}

	m.mu.Lock()
	rollups := make(map[namespace.AgentRole]AgentMetrics, len(m.metrics))
	for r, metrics := range m.metrics {
		if role == "" || r == role {
			rollups[r] = *metrics
		}
	}
	m.mu.Unlock()

	roles := make([]namespace.AgentRole, 0, len(rollups))
	for r := range rollups {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })

	var anomalies []Anomaly
	for _, r := range roles {
		metrics := rollups[r]
		// Too little evidence to call anything anomalous.
		if metrics.AccessCount < recomputeEvery {
			continue
		}
		values := map[string]float64{
			"avg_relevance":        metrics.AvgRelevance,
			"hit_rate":             metrics.HitRate,
			"task_completion_rate": metrics.TaskCompletionRate,
			"error_rate":           metrics.ErrorRate,
			"freshness":            metrics.Freshness,
		}
		for _, metric := range []string{"avg_relevance", "hit_rate", "task_completion_rate", "error_rate", "freshness"} {
			bounds := normalRanges[metric]
			value := values[metric]

			var deviation float64
			if metric == "error_rate" {
				deviation = value - bounds[1]
			} else {
				deviation = bounds[0] - value
			}
			if deviation <= threshold {
				continue
			}

			severity := SeverityMedium
			if deviation > 2*threshold {
				severity = SeverityHigh
			}
			anomalies = append(anomalies, Anomaly{
				AgentRole: r,
				Metric:    metric,
				Value:     value,
				Expected:  bounds,
				Deviation: deviation,
				Severity:  severity,
			})
		}
	}
	return anomalies
}
