package namespace

import "strings"

// AgentRole names a specialist consumer of memories.
//
// The role set is closed: unknown role strings parse to RoleGeneral so the
// access policy stays total. Two roles are reserved: RoleShared is the
// always-readable cross-role pool and RoleSystem is the operator role.
type AgentRole string

const (
	// RoleGeneral is the default role for unscoped or legacy memories.
	RoleGeneral AgentRole = "general"

	// RoleShared is the reserved cross-role pool. Every role can read and
	// write it.
	RoleShared AgentRole = "shared"

	// RoleSystem is the reserved operator role with full read access.
	RoleSystem AgentRole = "system"

	// RoleGeophysics covers seismic interpretation and subsurface imaging.
	RoleGeophysics AgentRole = "geophysics_analysis"

	// RoleReservoir covers reservoir engineering and simulation.
	RoleReservoir AgentRole = "reservoir_engineering"

	// RoleDrilling covers drilling operations and well planning.
	RoleDrilling AgentRole = "drilling_operations"

	// RoleProduction covers production optimization and artificial lift.
	RoleProduction AgentRole = "production_optimization"

	// RoleEconomics covers economic evaluation and NPV analysis.
	RoleEconomics AgentRole = "economic_evaluation"
)

// Domain is a professional topic tag used for access scoping and boosting.
type Domain string

const (
	DomainGeneralKnowledge Domain = "general_knowledge"
	DomainCrossDomain      Domain = "cross_domain"

	DomainSeismicData    Domain = "seismic_data"
	DomainWellLogs       Domain = "well_logs"
	DomainReservoirSim   Domain = "reservoir_simulation"
	DomainPVTAnalysis    Domain = "pvt_analysis"
	DomainWellPlanning   Domain = "well_planning"
	DomainDrillingFluids Domain = "drilling_fluids"
	DomainArtificialLift Domain = "artificial_lift"
	DomainFlowAssurance  Domain = "flow_assurance"
	DomainNPVCalculation Domain = "npv_calculation"
	DomainRiskAssessment Domain = "risk_assessment"
)

// roleDomains maps each role to its own domains. Declaration order matters:
// domain inference breaks keyword-count ties by first-declared domain, and
// a role with no keyword match falls back to its first declared domain.
var roleDomains = map[AgentRole][]Domain{
	RoleGeophysics: {DomainSeismicData, DomainWellLogs},
	RoleReservoir:  {DomainReservoirSim, DomainPVTAnalysis},
	RoleDrilling:   {DomainWellPlanning, DomainDrillingFluids},
	RoleProduction: {DomainArtificialLift, DomainFlowAssurance},
	RoleEconomics:  {DomainNPVCalculation, DomainRiskAssessment},
	RoleGeneral:    {DomainGeneralKnowledge},
	RoleShared:     {DomainGeneralKnowledge, DomainCrossDomain},
	RoleSystem:     {DomainGeneralKnowledge, DomainCrossDomain},
}

// roleLevels maps each role to its access level. Roles with level >= 3 may
// read other roles' general_knowledge and cross_domain scopes.
var roleLevels = map[AgentRole]int{
	RoleGeophysics: 2,
	RoleReservoir:  3,
	RoleDrilling:   2,
	RoleProduction: 2,
	RoleEconomics:  3,
	RoleGeneral:    1,
	RoleShared:     1,
	RoleSystem:     5,
}

// domainKeywords drives keyword-based domain inference in ResolveNamespace.
var domainKeywords = map[Domain][]string{
	DomainSeismicData:    {"seismic", "survey", "migration", "amplitude", "horizon", "fault", "velocity"},
	DomainWellLogs:       {"log", "gamma", "resistivity", "porosity", "density", "sonic", "caliper"},
	DomainReservoirSim:   {"simulation", "grid", "history match", "saturation", "permeability", "aquifer"},
	DomainPVTAnalysis:    {"pvt", "fluid", "bubble point", "viscosity", "gor", "formation volume"},
	DomainWellPlanning:   {"trajectory", "casing", "cement", "kickoff", "azimuth", "dogleg"},
	DomainDrillingFluids: {"mud", "weight", "rheology", "lost circulation", "ecd", "cuttings"},
	DomainArtificialLift: {"esp", "gas lift", "rod pump", "plunger", "lift", "pump"},
	DomainFlowAssurance:  {"hydrate", "wax", "asphaltene", "slugging", "corrosion", "scale"},
	DomainNPVCalculation: {"npv", "discount", "cash flow", "capex", "opex", "irr"},
	DomainRiskAssessment: {"risk", "uncertainty", "probability", "monte carlo", "sensitivity"},
	DomainGeneralKnowledge: {},
	DomainCrossDomain:      {},
}

// ParseRole maps a string to an AgentRole, falling back to RoleGeneral for
// unknown input so role lookups never fail.
func ParseRole(s string) AgentRole {
	role := AgentRole(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := roleDomains[role]; ok {
		return role
	}
	return RoleGeneral
}

// ParseDomain maps a string to a Domain, falling back to
// DomainGeneralKnowledge for unknown input.
func ParseDomain(s string) Domain {
	d := Domain(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := domainKeywords[d]; ok {
		return d
	}
	return DomainGeneralKnowledge
}

// DomainsFor returns the domains a role owns, in declaration order.
// Unknown roles resolve to RoleGeneral's domains.
func DomainsFor(role AgentRole) []Domain {
	if domains, ok := roleDomains[role]; ok {
		out := make([]Domain, len(domains))
		copy(out, domains)
		return out
	}
	return []Domain{DomainGeneralKnowledge}
}

// Level returns the access level of a role. Unknown roles get level 1.
func Level(role AgentRole) int {
	if level, ok := roleLevels[role]; ok {
		return level
	}
	return 1
}

// KnownRoles returns every declared role except the reserved shared and
// system roles, in stable order.
func KnownRoles() []AgentRole {
	return []AgentRole{
		RoleGeophysics,
		RoleReservoir,
		RoleDrilling,
		RoleProduction,
		RoleEconomics,
		RoleGeneral,
	}
}

// domainGroups clusters domains for the scorer's domain-match factor:
// same group scores 0.8, exact match 1.0, anything else 0.2.
var domainGroups = map[Domain]string{
	DomainSeismicData:      "subsurface",
	DomainWellLogs:         "subsurface",
	DomainReservoirSim:     "subsurface",
	DomainPVTAnalysis:      "subsurface",
	DomainWellPlanning:     "wellsite",
	DomainDrillingFluids:   "wellsite",
	DomainArtificialLift:   "operations",
	DomainFlowAssurance:    "operations",
	DomainNPVCalculation:   "commercial",
	DomainRiskAssessment:   "commercial",
	DomainGeneralKnowledge: "general",
	DomainCrossDomain:      "general",
}

// DomainGroup returns the topical group a domain belongs to. Unknown
// domains group as "general".
func DomainGroup(d Domain) string {
	if g, ok := domainGroups[d]; ok {
		return g
	}
	return "general"
}
