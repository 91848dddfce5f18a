// Package preference holds the per-agent-role configuration that controls
// memory curation: type weights, per-type quotas, thresholds and boosts.
//
// Preferences are read by the scorer and selector on every request and
// mutated only by the adaptive optimizer or an explicit operator update.
// Every mutation passes through a bounds clamp so preferences can never
// drift outside the ParameterBounds table.
package preference

import (
	"math"

	"github.com/petroagent/memcurator-go/pkg/namespace"
)

// Preference is the per-role curation configuration.
type Preference struct {
	// Role is the agent role this preference belongs to.
	Role namespace.AgentRole `json:"role"`

	// TypeWeights weights each memory type when computing inclusion weight.
	TypeWeights map[namespace.MemoryType]float64 `json:"type_weights"`

	// MaxCountByType caps how many memories of each type a curated result
	// may contain.
	MaxCountByType map[namespace.MemoryType]int `json:"max_count_by_type"`

	// MinImportance is the hard importance cutoff; items below it are
	// always excluded.
	MinImportance float64 `json:"min_importance"`

	// MinRelevance is the hard relevance cutoff; items below it are
	// always excluded.
	MinRelevance float64 `json:"min_relevance"`

	// MaxAgeDays is the hard age cutoff in days.
	MaxAgeDays float64 `json:"max_age_days"`

	// RecencyWeight scales how strongly age reduces the computed weight.
	RecencyWeight float64 `json:"recency_weight"`

	// PreferredDomains lists domains that receive DomainBoost.
	PreferredDomains []namespace.Domain `json:"preferred_domains"`

	// DomainBoost is the multiplier applied to preferred domains.
	DomainBoost float64 `json:"domain_boost"`

	// CrossAgentEnabled allows memories owned by other roles into results.
	CrossAgentEnabled bool `json:"cross_agent_enabled"`

	// CrossAgentWeight discounts cross-role memories when enabled.
	CrossAgentWeight float64 `json:"cross_agent_weight"`

	// LearningRate is the optimizer's step size for this role.
	LearningRate float64 `json:"learning_rate"`

	// AdjustmentWindow is how many feedback samples the optimizer
	// considers when proposing changes.
	AdjustmentWindow int `json:"adjustment_window"`
}

// clone returns a deep copy so callers get a point-in-time snapshot that
// later mutations cannot touch.
func (p *Preference) clone() Preference {
	out := *p
	out.TypeWeights = make(map[namespace.MemoryType]float64, len(p.TypeWeights))
	for k, v := range p.TypeWeights {
		out.TypeWeights[k] = v
	}
	out.MaxCountByType = make(map[namespace.MemoryType]int, len(p.MaxCountByType))
	for k, v := range p.MaxCountByType {
		out.MaxCountByType[k] = v
	}
	out.PreferredDomains = make([]namespace.Domain, len(p.PreferredDomains))
	copy(out.PreferredDomains, p.PreferredDomains)
	return out
}

// PrefersDomain reports whether d is in the preference's preferred set.
func (p *Preference) PrefersDomain(d namespace.Domain) bool {
	for _, pd := range p.PreferredDomains {
		if pd == d {
			return true
		}
	}
	return false
}

// TypeWeight returns the weight for a memory type, defaulting to 1.0 for
// types the preference does not mention.
func (p *Preference) TypeWeight(t namespace.MemoryType) float64 {
	if w, ok := p.TypeWeights[t]; ok {
		return w
	}
	return 1.0
}

// MaxCount returns the quota for a memory type, defaulting to 3.
func (p *Preference) MaxCount(t namespace.MemoryType) int {
	if c, ok := p.MaxCountByType[t]; ok {
		return c
	}
	return 3
}

// defaultPreferences seeds the store. Each specialist role weights the
// memory type its workflow leans on and prefers its own domains.
var defaultPreferences = map[namespace.AgentRole]Preference{
	namespace.RoleGeophysics: {
		Role: namespace.RoleGeophysics,
		TypeWeights: map[namespace.MemoryType]float64{
			namespace.TypeSemantic:   1.2,
			namespace.TypeEpisodic:   0.8,
			namespace.TypeProcedural: 1.0,
		},
		MaxCountByType: map[namespace.MemoryType]int{
			namespace.TypeSemantic:   5,
			namespace.TypeEpisodic:   3,
			namespace.TypeProcedural: 3,
		},
		MinImportance:     0.3,
		MinRelevance:      0.4,
		MaxAgeDays:        180,
		RecencyWeight:     0.5,
		PreferredDomains:  []namespace.Domain{namespace.DomainSeismicData, namespace.DomainWellLogs},
		DomainBoost:       1.3,
		CrossAgentEnabled: true,
		CrossAgentWeight:  0.7,
		LearningRate:      0.1,
		AdjustmentWindow:  10,
	},
	namespace.RoleReservoir: {
		Role: namespace.RoleReservoir,
		TypeWeights: map[namespace.MemoryType]float64{
			namespace.TypeSemantic:   1.2,
			namespace.TypeEpisodic:   0.9,
			namespace.TypeProcedural: 1.1,
		},
		MaxCountByType: map[namespace.MemoryType]int{
			namespace.TypeSemantic:   5,
			namespace.TypeEpisodic:   3,
			namespace.TypeProcedural: 4,
		},
		MinImportance:     0.3,
		MinRelevance:      0.4,
		MaxAgeDays:        365,
		RecencyWeight:     0.4,
		PreferredDomains:  []namespace.Domain{namespace.DomainReservoirSim, namespace.DomainPVTAnalysis},
		DomainBoost:       1.3,
		CrossAgentEnabled: true,
		CrossAgentWeight:  0.8,
		LearningRate:      0.1,
		AdjustmentWindow:  10,
	},
	namespace.RoleDrilling: {
		Role: namespace.RoleDrilling,
		TypeWeights: map[namespace.MemoryType]float64{
			namespace.TypeSemantic:   0.9,
			namespace.TypeEpisodic:   1.0,
			namespace.TypeProcedural: 1.3,
		},
		MaxCountByType: map[namespace.MemoryType]int{
			namespace.TypeSemantic:   3,
			namespace.TypeEpisodic:   4,
			namespace.TypeProcedural: 5,
		},
		MinImportance:     0.35,
		MinRelevance:      0.45,
		MaxAgeDays:        90,
		RecencyWeight:     0.7,
		PreferredDomains:  []namespace.Domain{namespace.DomainWellPlanning, namespace.DomainDrillingFluids},
		DomainBoost:       1.4,
		CrossAgentEnabled: false,
		CrossAgentWeight:  0.5,
		LearningRate:      0.1,
		AdjustmentWindow:  10,
	},
	namespace.RoleProduction: {
		Role: namespace.RoleProduction,
		TypeWeights: map[namespace.MemoryType]float64{
			namespace.TypeSemantic:   1.0,
			namespace.TypeEpisodic:   1.1,
			namespace.TypeProcedural: 1.2,
		},
		MaxCountByType: map[namespace.MemoryType]int{
			namespace.TypeSemantic:   4,
			namespace.TypeEpisodic:   4,
			namespace.TypeProcedural: 4,
		},
		MinImportance:     0.3,
		MinRelevance:      0.4,
		MaxAgeDays:        120,
		RecencyWeight:     0.6,
		PreferredDomains:  []namespace.Domain{namespace.DomainArtificialLift, namespace.DomainFlowAssurance},
		DomainBoost:       1.3,
		CrossAgentEnabled: true,
		CrossAgentWeight:  0.7,
		LearningRate:      0.1,
		AdjustmentWindow:  10,
	},
	namespace.RoleEconomics: {
		Role: namespace.RoleEconomics,
		TypeWeights: map[namespace.MemoryType]float64{
			namespace.TypeSemantic:   1.3,
			namespace.TypeEpisodic:   0.8,
			namespace.TypeProcedural: 0.9,
		},
		MaxCountByType: map[namespace.MemoryType]int{
			namespace.TypeSemantic:   6,
			namespace.TypeEpisodic:   2,
			namespace.TypeProcedural: 3,
		},
		MinImportance:     0.3,
		MinRelevance:      0.4,
		MaxAgeDays:        365,
		RecencyWeight:     0.3,
		PreferredDomains:  []namespace.Domain{namespace.DomainNPVCalculation, namespace.DomainRiskAssessment},
		DomainBoost:       1.3,
		CrossAgentEnabled: true,
		CrossAgentWeight:  0.8,
		LearningRate:      0.1,
		AdjustmentWindow:  10,
	},
	namespace.RoleGeneral: {
		Role: namespace.RoleGeneral,
		TypeWeights: map[namespace.MemoryType]float64{
			namespace.TypeSemantic:   1.0,
			namespace.TypeEpisodic:   1.0,
			namespace.TypeProcedural: 1.0,
		},
		MaxCountByType: map[namespace.MemoryType]int{
			namespace.TypeSemantic:   4,
			namespace.TypeEpisodic:   4,
			namespace.TypeProcedural: 4,
		},
		MinImportance:     0.2,
		MinRelevance:      0.3,
		MaxAgeDays:        180,
		RecencyWeight:     0.5,
		PreferredDomains:  []namespace.Domain{namespace.DomainGeneralKnowledge},
		DomainBoost:       1.1,
		CrossAgentEnabled: true,
		CrossAgentWeight:  0.6,
		LearningRate:      0.1,
		AdjustmentWindow:  10,
	},
}

// heavyUsage records the memory type each role leans on most heavily.
// A matching type lowers the dynamic inclusion threshold by 20%.
var heavyUsage = map[namespace.AgentRole]namespace.MemoryType{
	namespace.RoleGeophysics: namespace.TypeSemantic,
	namespace.RoleReservoir:  namespace.TypeSemantic,
	namespace.RoleDrilling:   namespace.TypeProcedural,
	namespace.RoleProduction: namespace.TypeProcedural,
	namespace.RoleEconomics:  namespace.TypeSemantic,
	namespace.RoleGeneral:    namespace.TypeEpisodic,
}

// DefaultPreference returns the default preference for a role. Unknown
// roles receive RoleGeneral's defaults.
func DefaultPreference(role namespace.AgentRole) Preference {
	if p, ok := defaultPreferences[role]; ok {
		return p.clone()
	}
	def := defaultPreferences[namespace.RoleGeneral]
	p := def.clone()
	p.Role = role
	return p
}

// ComputeWeight combines type weight, domain boost, importance, relevance
// and recency into a single inclusion weight.
//
// The blend ratios are fixed: type weight 30%, domain boost 20%,
// importance 20%, relevance 20%, recency 10%. Importance and relevance are
// floored at their minimum thresholds, and the recency factor never drops
// below 0.1.
func ComputeWeight(p *Preference, memType namespace.MemoryType, domain namespace.Domain, importance, relevance, ageDays float64) float64 {
	typeWeight := p.TypeWeight(memType)

	domainFactor := 1.0
	if p.PrefersDomain(domain) {
		domainFactor = p.DomainBoost
	}

	imp := math.Max(importance, p.MinImportance)
	rel := math.Max(relevance, p.MinRelevance)

	recency := 1.0
	if p.MaxAgeDays > 0 {
		recency = 1.0 - (ageDays/p.MaxAgeDays)*p.RecencyWeight
	}
	recency = math.Max(0.1, recency)

	return 0.3*typeWeight + 0.2*domainFactor + 0.2*imp + 0.2*rel + 0.1*recency
}

// ShouldInclude decides whether a memory passes the preference's hard
// cutoffs and dynamic weight threshold.
//
// Hard cutoffs exclude first, regardless of computed weight:
// importance < MinImportance, relevance < MinRelevance, or age > MaxAgeDays.
// Surviving items must then reach a role/type-specific threshold: base 0.5,
// reduced 20% when the role's heavy-usage memory type matches.
func ShouldInclude(p *Preference, memType namespace.MemoryType, domain namespace.Domain, importance, relevance, ageDays float64) bool {
	if importance < p.MinImportance {
		return false
	}
	if relevance < p.MinRelevance {
		return false
	}
	if p.MaxAgeDays > 0 && ageDays > p.MaxAgeDays {
		return false
	}

	threshold := 0.5
	if heavy, ok := heavyUsage[p.Role]; ok && heavy == memType {
		threshold *= 0.8
	}

	return ComputeWeight(p, memType, domain, importance, relevance, ageDays) >= threshold
}
