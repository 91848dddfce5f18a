// Package scoring computes multi-factor relevance scores for
// (memory, query, agent role) triples.
//
// A score combines eight independent factors under a named strategy's
// weight vector, applies deterministic adjustment multipliers, and carries
// a confidence estimate. Scoring is pure over its inputs plus a read-only
// preference snapshot and never raises to the caller: any internal failure
// yields a fixed fallback score.
package scoring

import (
	"github.com/petroagent/memcurator-go/pkg/namespace"
)

// Context is the read-only per-request input to scoring. It is never
// persisted.
type Context struct {
	// Query is the retrieval query text.
	Query string

	// AgentRole is the requesting role.
	AgentRole namespace.AgentRole

	// CurrentTask optionally names what the agent is working on.
	CurrentTask string

	// DomainFocus optionally narrows scoring to one domain.
	DomainFocus namespace.Domain

	// ConversationHistory holds recent conversation turns, newest last.
	// Only the last three turns influence contextual relevance.
	ConversationHistory []string

	// AvailableTools lists tool names available to the agent.
	AvailableTools []string

	// QualityRequirement expresses how strict the request is about
	// candidate quality, in [0,1]. Zero means no requirement.
	QualityRequirement float64
}

// LastTurns returns up to the last n conversation turns.
func (c *Context) LastTurns(n int) []string {
	if len(c.ConversationHistory) <= n {
		return c.ConversationHistory
	}
	return c.ConversationHistory[len(c.ConversationHistory)-n:]
}
