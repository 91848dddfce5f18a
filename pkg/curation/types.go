package curation

import (
	"github.com/petroagent/memcurator-go/pkg/backend"
	"github.com/petroagent/memcurator-go/pkg/namespace"
)

// CurationRequest is the host runtime's input to one curation pass.
type CurationRequest struct {
	// UserID identifies the user whose memories are curated.
	UserID string `json:"user_id"`

	// AgentRole names the requesting specialist role. Unknown strings
	// fall back to the general role.
	AgentRole string `json:"agent_role"`

	// Query is the retrieval query text.
	Query string `json:"query"`

	// CurrentTask optionally names what the agent is working on.
	CurrentTask string `json:"current_task,omitempty"`

	// DomainHint optionally narrows curation to one domain.
	DomainHint string `json:"domain_hint,omitempty"`

	// ConversationHistory holds recent conversation turns, newest last.
	ConversationHistory []string `json:"conversation_history,omitempty"`

	// AvailableTools lists tool names available to the agent.
	AvailableTools []string `json:"available_tools,omitempty"`

	// QualityRequirement expresses how strict the request is about
	// candidate quality, in [0,1].
	QualityRequirement float64 `json:"quality_requirement,omitempty"`

	// Strategy selects the scoring strategy; empty picks agent_adaptive.
	Strategy string `json:"strategy,omitempty"`

	// MemoryTypes restricts curation to the given types; empty means all.
	MemoryTypes []namespace.MemoryType `json:"memory_types,omitempty"`
}

// CuratedMemories is the complete, possibly degraded, output of one
// curation pass.
type CuratedMemories struct {
	// Items is the final ranked selection, each annotated with its
	// blended relevance score.
	Items []*backend.MemoryItem `json:"items"`

	// Confidence is the selection confidence, reduced when backend
	// failures degraded the evidence.
	Confidence float64 `json:"confidence"`

	// Summary is a one-line description of the result.
	Summary string `json:"summary"`

	// PerTypeCounts counts selected items per memory type.
	PerTypeCounts map[namespace.MemoryType]int `json:"per_type_counts"`

	// Domains lists the distinct domains represented.
	Domains []namespace.Domain `json:"domains,omitempty"`

	// Degraded reports that one or more backend scopes failed or timed
	// out and the result was built from partial evidence.
	Degraded bool `json:"degraded,omitempty"`
}
