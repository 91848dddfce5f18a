package optimizer

import (
	"time"

	"github.com/petroagent/memcurator-go/pkg/namespace"
)

// Signal classifies the direction of a feedback event.
type Signal string

const (
	SignalPositive Signal = "positive"
	SignalNegative Signal = "negative"
	SignalNeutral  Signal = "neutral"
	SignalMixed    Signal = "mixed"
)

// FeedbackEvent is one observation about how useful curated memories
// were. Events are append-only and retained in a bounded ring buffer per
// role; the newest evicts the oldest beyond capacity.
type FeedbackEvent struct {
	// ID uniquely identifies the event.
	ID int64 `json:"id"`

	// Timestamp is when the feedback was observed.
	Timestamp time.Time `json:"timestamp"`

	// SessionID ties the event to a host-runtime session.
	SessionID string `json:"session_id"`

	// AgentRole is the role the feedback concerns.
	AgentRole namespace.AgentRole `json:"agent_role"`

	// MemoryIDs lists the memories the feedback refers to.
	MemoryIDs []int64 `json:"memory_ids,omitempty"`

	// Type names the kind of feedback, e.g. "relevance_rating" or
	// "freshness_rating".
	Type string `json:"type"`

	// Signal is the direction of the feedback.
	Signal Signal `json:"signal"`

	// Score is the observed quality in [0,1].
	Score float64 `json:"score"`

	// Details carries free-form supplementary data.
	Details map[string]interface{} `json:"details,omitempty"`

	// Source identifies who reported the feedback.
	Source string `json:"source"`
}

// feedbackRing is a bounded append-only buffer of feedback events.
type feedbackRing struct {
	events []FeedbackEvent
	cap    int
}

func newFeedbackRing(capacity int) *feedbackRing {
	if capacity <= 0 {
		capacity = defaultFeedbackCapacity
	}
	return &feedbackRing{cap: capacity}
}

func (r *feedbackRing) append(e FeedbackEvent) {
	r.events = append(r.events, e)
	if len(r.events) > r.cap {
		r.events = r.events[len(r.events)-r.cap:]
	}
}

// recent returns up to the last n events, newest last.
func (r *feedbackRing) recent(n int) []FeedbackEvent {
	if len(r.events) <= n {
		return r.events
	}
	return r.events[len(r.events)-n:]
}

// snapshot copies the buffer for lock-free analysis.
func (r *feedbackRing) snapshot() []FeedbackEvent {
	out := make([]FeedbackEvent, len(r.events))
	copy(out, r.events)
	return out
}
