package preference_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petroagent/memcurator-go/pkg/namespace"
	"github.com/petroagent/memcurator-go/pkg/preference"
)

func TestDefaultPreferencePerRole(t *testing.T) {
	drilling := preference.DefaultPreference(namespace.RoleDrilling)
	assert.Equal(t, namespace.RoleDrilling, drilling.Role)
	assert.False(t, drilling.CrossAgentEnabled)
	assert.Greater(t, drilling.TypeWeight(namespace.TypeProcedural), drilling.TypeWeight(namespace.TypeSemantic))

	// Unknown roles get the general defaults under their own name.
	unknown := preference.DefaultPreference(namespace.AgentRole("mystery"))
	assert.Equal(t, namespace.AgentRole("mystery"), unknown.Role)
	assert.Equal(t, preference.DefaultPreference(namespace.RoleGeneral).MinImportance, unknown.MinImportance)
}

func TestHardCutoffsAlwaysExclude(t *testing.T) {
	p := preference.DefaultPreference(namespace.RoleGeophysics)

	tests := []struct {
		name       string
		importance float64
		relevance  float64
		ageDays    float64
	}{
		{"importance below cutoff", p.MinImportance - 0.01, 0.9, 1},
		{"relevance below cutoff", 0.9, p.MinRelevance - 0.01, 1},
		{"age above cutoff", 0.9, 0.9, p.MaxAgeDays + 1},
		{"tiny importance excluded regardless of everything else", 0.05, 1.0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok := preference.ShouldInclude(&p, namespace.TypeSemantic,
				namespace.DomainSeismicData, tt.importance, tt.relevance, tt.ageDays)
			assert.False(t, ok)
		})
	}
}

func TestShouldIncludeHeavyUsageThreshold(t *testing.T) {
	// A preference tuned so the computed weight lands between the reduced
	// (0.4) and base (0.5) thresholds: only the role's heavy-usage type
	// (procedural, for drilling) passes.
	p := preference.Preference{
		Role: namespace.RoleDrilling,
		TypeWeights: map[namespace.MemoryType]float64{
			namespace.TypeEpisodic:   0.4,
			namespace.TypeProcedural: 0.4,
		},
		MinImportance: 0.1,
		MinRelevance:  0.1,
		MaxAgeDays:    365,
		RecencyWeight: 1.0,
		DomainBoost:   1.0,
	}

	importance, relevance, age := 0.1, 0.1, 200.0
	weight := preference.ComputeWeight(&p, namespace.TypeEpisodic,
		namespace.DomainGeneralKnowledge, importance, relevance, age)
	require.Greater(t, weight, 0.4)
	require.Less(t, weight, 0.5)

	assert.False(t, preference.ShouldInclude(&p, namespace.TypeEpisodic,
		namespace.DomainGeneralKnowledge, importance, relevance, age))
	assert.True(t, preference.ShouldInclude(&p, namespace.TypeProcedural,
		namespace.DomainGeneralKnowledge, importance, relevance, age))
}

func TestComputeWeightBlend(t *testing.T) {
	p := preference.DefaultPreference(namespace.RoleGeneral)

	// With unit type weight, no domain boost, floored factors and fresh
	// age the blend is exactly 0.3 + 0.2 + 0.2*imp + 0.2*rel + 0.1.
	weight := preference.ComputeWeight(&p, namespace.TypeSemantic,
		namespace.DomainCrossDomain, 0.5, 0.5, 0)
	assert.InDelta(t, 0.3*1.0+0.2*1.0+0.2*0.5+0.2*0.5+0.1*1.0, weight, 1e-9)

	// Preferred domains multiply in the domain boost.
	boosted := preference.ComputeWeight(&p, namespace.TypeSemantic,
		namespace.DomainGeneralKnowledge, 0.5, 0.5, 0)
	assert.Greater(t, boosted, weight)
}

func TestClampBounds(t *testing.T) {
	p := preference.DefaultPreference(namespace.RoleGeneral)
	p.MinImportance = 2.0
	p.MinRelevance = -1.0
	p.MaxAgeDays = 10000
	p.LearningRate = 0.9
	p.DomainBoost = 5
	p.AdjustmentWindow = 1000
	p.MaxCountByType[namespace.TypeSemantic] = 500

	preference.Clamp(&p)

	assert.Equal(t, 0.9, p.MinImportance)
	assert.Equal(t, 0.05, p.MinRelevance)
	assert.Equal(t, 730.0, p.MaxAgeDays)
	assert.Equal(t, 0.3, p.LearningRate)
	assert.Equal(t, 2.0, p.DomainBoost)
	assert.Equal(t, 100, p.AdjustmentWindow)
	assert.Equal(t, 20, p.MaxCountByType[namespace.TypeSemantic])
}

func TestClampTypeWeightSum(t *testing.T) {
	p := preference.DefaultPreference(namespace.RoleGeneral)
	p.TypeWeights[namespace.TypeSemantic] = 1.5
	p.TypeWeights[namespace.TypeEpisodic] = 1.5
	p.TypeWeights[namespace.TypeProcedural] = 1.5

	preference.Clamp(&p)

	var sum float64
	for _, w := range p.TypeWeights {
		sum += w
	}
	assert.InDelta(t, 3.0, sum, 1e-9)
	// Proportional scale-down keeps the weights equal.
	assert.InDelta(t, 1.0, p.TypeWeights[namespace.TypeSemantic], 1e-9)
}

func TestStoreLazyDefaultAndSnapshot(t *testing.T) {
	store := preference.NewStore()

	p := store.Get(namespace.RoleEconomics)
	assert.Equal(t, namespace.RoleEconomics, p.Role)

	// Mutating the snapshot must not leak into the store.
	p.MinImportance = 0.88
	p.TypeWeights[namespace.TypeSemantic] = 0.11
	again := store.Get(namespace.RoleEconomics)
	assert.NotEqual(t, 0.88, again.MinImportance)
	assert.NotEqual(t, 0.11, again.TypeWeights[namespace.TypeSemantic])
}

func TestStoreUpdateClamps(t *testing.T) {
	store := preference.NewStore()

	p := store.Get(namespace.RoleProduction)
	p.MinRelevance = 3.0
	updated := store.Update(namespace.RoleProduction, p)

	assert.Equal(t, 0.9, updated.MinRelevance)
	assert.Equal(t, 0.9, store.Get(namespace.RoleProduction).MinRelevance)
}

func TestStoreApply(t *testing.T) {
	store := preference.NewStore()

	result := store.Apply(namespace.RoleGeophysics, func(p *preference.Preference) {
		p.MinImportance = 0.5
	})
	assert.Equal(t, 0.5, result.MinImportance)
	assert.Equal(t, 0.5, store.Get(namespace.RoleGeophysics).MinImportance)
}
