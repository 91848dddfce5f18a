package namespace_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/petroagent/memcurator-go/pkg/namespace"
)

func TestPrefixRoundTrip(t *testing.T) {
	ns := namespace.Namespace{
		UserID: "user_001",
		Role:   namespace.RoleReservoir,
		Domain: namespace.DomainReservoirSim,
		Type:   namespace.TypeSemantic,
	}

	parsed := namespace.Parse(ns.Prefix())
	assert.Equal(t, ns, parsed)
}

func TestParseLegacyPrefix(t *testing.T) {
	// Legacy 2-field form upgrades with role=general, domain=general_knowledge.
	ns := namespace.Parse("user_001/episodic")
	assert.Equal(t, "user_001", ns.UserID)
	assert.Equal(t, namespace.RoleGeneral, ns.Role)
	assert.Equal(t, namespace.DomainGeneralKnowledge, ns.Domain)
	assert.Equal(t, namespace.TypeEpisodic, ns.Type)
}

func TestParseMemoryTypeFallback(t *testing.T) {
	assert.Equal(t, namespace.TypeSemantic, namespace.ParseMemoryType("semantic"))
	assert.Equal(t, namespace.TypeProcedural, namespace.ParseMemoryType("procedural"))
	assert.Equal(t, namespace.TypeSemantic, namespace.ParseMemoryType("bogus"))
	assert.Equal(t, namespace.TypeSemantic, namespace.ParseMemoryType(""))
}

func TestParseRoleFallback(t *testing.T) {
	assert.Equal(t, namespace.RoleDrilling, namespace.ParseRole("drilling_operations"))
	assert.Equal(t, namespace.RoleGeneral, namespace.ParseRole("unknown_role"))
	assert.Equal(t, namespace.RoleGeneral, namespace.ParseRole(""))
}

func TestResolveNamespaceDomainHint(t *testing.T) {
	ns := namespace.ResolveNamespace("user_001", namespace.RoleGeophysics,
		namespace.TypeSemantic, "anything at all", "well_logs")
	assert.Equal(t, namespace.DomainWellLogs, ns.Domain)

	// An unknown hint falls through to keyword inference.
	ns = namespace.ResolveNamespace("user_001", namespace.RoleGeophysics,
		namespace.TypeSemantic, "resistivity and gamma log readings", "not_a_domain")
	assert.Equal(t, namespace.DomainWellLogs, ns.Domain)
}

func TestResolveNamespaceKeywordInference(t *testing.T) {
	tests := []struct {
		name    string
		role    namespace.AgentRole
		content string
		want    namespace.Domain
	}{
		{
			name:    "seismic keywords win",
			role:    namespace.RoleGeophysics,
			content: "seismic survey shows a fault near the horizon",
			want:    namespace.DomainSeismicData,
		},
		{
			name:    "pvt keywords win",
			role:    namespace.RoleReservoir,
			content: "bubble point and viscosity from the pvt report",
			want:    namespace.DomainPVTAnalysis,
		},
		{
			name:    "no match falls back to first declared domain",
			role:    namespace.RoleDrilling,
			content: "completely unrelated text",
			want:    namespace.DomainWellPlanning,
		},
		{
			name:    "tie breaks to first declared domain",
			role:    namespace.RoleProduction,
			content: "pump scale", // one hit each for artificial_lift and flow_assurance
			want:    namespace.DomainArtificialLift,
		},
		{
			name:    "unknown role falls back to general",
			role:    namespace.AgentRole("nonsense"),
			content: "anything",
			want:    namespace.DomainGeneralKnowledge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ns := namespace.ResolveNamespace("user_001", tt.role, namespace.TypeSemantic, tt.content, "")
			assert.Equal(t, tt.want, ns.Domain)
		})
	}
}

func TestAccessibleNamespacesOwnAndShared(t *testing.T) {
	scopes := namespace.AccessibleNamespaces(namespace.RoleDrilling, "user_001", namespace.TypeSemantic)

	// Own domains plus the two shared-pool domains, one type each.
	assert.Len(t, scopes, 4)
	for _, ns := range scopes {
		assert.Equal(t, "user_001", ns.UserID)
		assert.Equal(t, namespace.TypeSemantic, ns.Type)
	}
	assert.Equal(t, namespace.RoleDrilling, scopes[0].Role)
	assert.Equal(t, namespace.RoleShared, scopes[2].Role)
}

func TestAccessibleNamespacesCrossRole(t *testing.T) {
	// Level 2 roles never see other roles' scopes.
	for _, ns := range namespace.AccessibleNamespaces(namespace.RoleDrilling, "user_001") {
		assert.Contains(t, []namespace.AgentRole{namespace.RoleDrilling, namespace.RoleShared}, ns.Role)
	}

	// Level 3 roles see other roles' general scopes but never their
	// specialized domains.
	sawOtherRole := false
	for _, ns := range namespace.AccessibleNamespaces(namespace.RoleReservoir, "user_001") {
		if ns.Role != namespace.RoleReservoir && ns.Role != namespace.RoleShared {
			sawOtherRole = true
			assert.Contains(t,
				[]namespace.Domain{namespace.DomainGeneralKnowledge, namespace.DomainCrossDomain},
				ns.Domain)
		}
	}
	assert.True(t, sawOtherRole)
}

func TestAccessibleNamespacesUnknownInput(t *testing.T) {
	// Unknown role and type strings fail closed to general defaults.
	scopes := namespace.AccessibleNamespaces("not_a_role", "user_001", namespace.MemoryType("not_a_type"))
	assert.NotEmpty(t, scopes)
	assert.Equal(t, namespace.RoleGeneral, scopes[0].Role)
	assert.Equal(t, namespace.TypeSemantic, scopes[0].Type)
}

func TestCanRead(t *testing.T) {
	own := namespace.Namespace{Role: namespace.RoleDrilling, Domain: namespace.DomainWellPlanning}
	shared := namespace.Namespace{Role: namespace.RoleShared, Domain: namespace.DomainCrossDomain}
	otherSpecial := namespace.Namespace{Role: namespace.RoleGeophysics, Domain: namespace.DomainSeismicData}
	otherGeneral := namespace.Namespace{Role: namespace.RoleGeophysics, Domain: namespace.DomainGeneralKnowledge}

	assert.True(t, namespace.CanRead(namespace.RoleDrilling, own))
	assert.True(t, namespace.CanRead(namespace.RoleDrilling, shared))
	assert.False(t, namespace.CanRead(namespace.RoleDrilling, otherSpecial))
	assert.False(t, namespace.CanRead(namespace.RoleDrilling, otherGeneral))

	// Level >= 3 may read other roles' general scopes only.
	assert.True(t, namespace.CanRead(namespace.RoleReservoir, otherGeneral))
	assert.False(t, namespace.CanRead(namespace.RoleReservoir, otherSpecial))
}

func TestDomainGroup(t *testing.T) {
	assert.Equal(t, namespace.DomainGroup(namespace.DomainSeismicData), namespace.DomainGroup(namespace.DomainWellLogs))
	assert.NotEqual(t, namespace.DomainGroup(namespace.DomainSeismicData), namespace.DomainGroup(namespace.DomainNPVCalculation))
	assert.Equal(t, "general", namespace.DomainGroup(namespace.Domain("unknown")))
}
