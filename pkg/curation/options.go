package curation

import (
	"github.com/petroagent/memcurator-go/pkg/namespace"
)

// CurateOption is a function type for configuring Curate operations.
//
// Options are applied using the functional options pattern, allowing
// flexible configuration without requiring all parameters.
type CurateOption func(*CurationRequest)

// WithCurrentTask sets the task the agent is working on; it feeds the
// task-relevance scoring factor.
//
// Example:
//
//	result, _ := engine.Curate(ctx, "user_001", "reservoir_engineering",
//	    "history matching workflow", curation.WithCurrentTask("calibrate simulation model"))
func WithCurrentTask(task string) CurateOption {
	return func(req *CurationRequest) {
		req.CurrentTask = task
	}
}

// WithDomainHint narrows curation toward one professional domain.
//
// Example:
//
//	result, _ := engine.Curate(ctx, "user_001", "geophysics_analysis",
//	    "fault interpretation", curation.WithDomainHint("seismic_data"))
func WithDomainHint(domain string) CurateOption {
	return func(req *CurationRequest) {
		req.DomainHint = domain
	}
}

// WithConversationHistory supplies recent conversation turns, newest
// last; the last three influence contextual relevance.
func WithConversationHistory(turns ...string) CurateOption {
	return func(req *CurationRequest) {
		req.ConversationHistory = turns
	}
}

// WithAvailableTools lists the tool names available to the agent.
func WithAvailableTools(tools ...string) CurateOption {
	return func(req *CurationRequest) {
		req.AvailableTools = tools
	}
}

// WithQualityRequirement sets how strict the request is about candidate
// quality, in [0,1]. Values of 0.5 and above impose importance floors.
func WithQualityRequirement(requirement float64) CurateOption {
	return func(req *CurationRequest) {
		req.QualityRequirement = requirement
	}
}

// WithStrategy selects a scoring strategy by name (semantic_focused,
// task_focused, temporal_focused, domain_focused, balanced,
// agent_adaptive). Unknown names fall back to balanced.
func WithStrategy(name string) CurateOption {
	return func(req *CurationRequest) {
		req.Strategy = name
	}
}

// WithMemoryTypes restricts curation to the given memory types.
//
// Example:
//
//	result, _ := engine.Curate(ctx, "user_001", "drilling_operations",
//	    "stuck pipe procedures", curation.WithMemoryTypes(namespace.TypeProcedural))
func WithMemoryTypes(types ...namespace.MemoryType) CurateOption {
	return func(req *CurationRequest) {
		req.MemoryTypes = types
	}
}

// RememberOption is a function type for configuring Remember operations.
type RememberOption func(*rememberOptions)

type rememberOptions struct {
	memoryType namespace.MemoryType
	domainHint string
	importance float64
	metadata   map[string]interface{}
	shared     bool
}

// WithMemoryType sets the stored memory's type; the default is semantic.
func WithMemoryType(t namespace.MemoryType) RememberOption {
	return func(opts *rememberOptions) {
		opts.memoryType = t
	}
}

// WithDomain hints which domain the memory belongs to; without it the
// domain is inferred from the content's keywords.
func WithDomain(domain string) RememberOption {
	return func(opts *rememberOptions) {
		opts.domainHint = domain
	}
}

// WithImportance sets the stored importance in [0,1]; the default is 0.5.
func WithImportance(importance float64) RememberOption {
	return func(opts *rememberOptions) {
		opts.importance = importance
	}
}

// WithMetadata attaches structured metadata to the stored memory.
func WithMetadata(metadata map[string]interface{}) RememberOption {
	return func(opts *rememberOptions) {
		opts.metadata = metadata
	}
}

// AsShared stores the memory in the cross-role shared pool instead of
// the writing role's own namespace.
func AsShared() RememberOption {
	return func(opts *rememberOptions) {
		opts.shared = true
	}
}
