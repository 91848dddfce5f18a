package monitor

import (
	"time"

	"github.com/petroagent/memcurator-go/pkg/namespace"
)

// Usage event types.
const (
	EventRetrieval     = "retrieval"
	EventHit           = "hit"
	EventMiss          = "miss"
	EventError         = "error"
	EventTaskCompleted = "task_completed"
)

// Usage outcomes attached by the host runtime.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// UsageEvent is append-only telemetry of one memory access.
type UsageEvent struct {
	// ID is the snowflake-assigned event identifier.
	ID int64 `json:"id"`

	// Timestamp is when the access happened.
	Timestamp time.Time `json:"timestamp"`

	// SessionID ties the event to a host-runtime session.
	SessionID string `json:"session_id"`

	// AgentRole is the role that accessed the memory.
	AgentRole namespace.AgentRole `json:"agent_role"`

	// MemoryID identifies the accessed memory (zero for misses).
	MemoryID int64 `json:"memory_id,omitempty"`

	// EventType classifies the access (retrieval, hit, miss, error,
	// task_completed).
	EventType string `json:"event_type"`

	// Context optionally describes what the agent was doing.
	Context string `json:"context,omitempty"`

	// RelevanceScore is the blended score at access time; valid only
	// when Scored is true.
	RelevanceScore float64 `json:"relevance_score,omitempty"`
	Scored         bool    `json:"scored,omitempty"`

	// MemoryAgeDays is the memory's age at access time, for freshness.
	MemoryAgeDays float64 `json:"memory_age_days,omitempty"`

	// CrossAgent marks accesses to memories owned by another role.
	CrossAgent bool `json:"cross_agent,omitempty"`

	// UsageResult reports the downstream outcome (success, failure).
	UsageResult string `json:"usage_result,omitempty"`
}

// Performance trends.
const (
	TrendImproving = "improving"
	TrendDeclining = "declining"
	TrendStable    = "stable"
)

// AgentMetrics is the derived per-role rollup. It is recomputed
// periodically from the event log, never stored durably.
type AgentMetrics struct {
	AgentRole          namespace.AgentRole `json:"agent_role"`
	AccessCount        int                 `json:"access_count"`
	UniqueMemoriesUsed int                 `json:"unique_memories_used"`
	AvgRelevance       float64             `json:"avg_relevance"`
	HitRate            float64             `json:"hit_rate"`
	TaskCompletionRate float64             `json:"task_completion_rate"`
	ErrorRate          float64             `json:"error_rate"`
	Freshness          float64             `json:"freshness"`
	CrossAgentRatio    float64             `json:"cross_agent_ratio"`
	Trend              string              `json:"trend"`

	// scoredCount is the denominator for the incremental AvgRelevance
	// update; unscored events must not dilute the average.
	scoredCount int
}

// Report is the output of a performance-report query.
type Report struct {
	// From and To bound the reporting window.
	From time.Time `json:"from"`
	To   time.Time `json:"to"`

	// Metrics holds the window-scoped rollup per role.
	Metrics map[namespace.AgentRole]*AgentMetrics `json:"metrics"`

	// Insights are derived textual observations.
	Insights []string `json:"insights,omitempty"`

	// Recommendations are threshold-based suggested actions.
	Recommendations []string `json:"recommendations,omitempty"`
}

// Anomaly severities.
const (
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Anomaly flags one metric outside its normal range.
type Anomaly struct {
	AgentRole namespace.AgentRole `json:"agent_role"`
	Metric    string              `json:"metric"`
	Value     float64             `json:"value"`
	Expected  [2]float64          `json:"expected"`
	Deviation float64             `json:"deviation"`
	Severity  string              `json:"severity"`
}
