package budget_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petroagent/memcurator-go/pkg/budget"
)

func block(words int) string {
	return strings.TrimSpace(strings.Repeat("reservoir pressure decline ", words/3+1))
}

func sections(coreLen, summaryLen, supportingLen, metadataLen int) []budget.Section {
	return []budget.Section{
		{Kind: budget.KindCoreMemories, Content: block(coreLen / 9), Confidence: 0.9},
		{Kind: budget.KindSummary, Content: block(summaryLen / 9), Confidence: 0.8},
		{Kind: budget.KindSupporting, Content: block(supportingLen / 9), Confidence: 0.6},
		{Kind: budget.KindMetadata, Content: block(metadataLen / 9), Confidence: 0.3},
	}
}

func totalLength(sections []budget.Section) int {
	total := 0
	for _, s := range sections {
		total += len(s.Content)
	}
	return total
}

func TestPriorityDerivation(t *testing.T) {
	tests := []struct {
		name    string
		section budget.Section
		want    budget.Priority
	}{
		{"core is always critical", budget.Section{Kind: budget.KindCoreMemories, Confidence: 0.1}, budget.PriorityCritical},
		{"summary is high", budget.Section{Kind: budget.KindSummary, Confidence: 0.5}, budget.PriorityHigh},
		{"high confidence promotes", budget.Section{Kind: budget.KindSupporting, Confidence: 0.9}, budget.PriorityMedium},
		{"oversized low confidence demotes", budget.Section{Kind: budget.KindContext, Confidence: 0.2, Content: strings.Repeat("x", 2500)}, budget.PriorityLow},
		{"unknown kind defaults to medium", budget.Section{Kind: "mystery", Confidence: 0.5}, budget.PriorityMedium},
		{"metadata never demotes below optional", budget.Section{Kind: budget.KindMetadata, Confidence: 0.1, Content: strings.Repeat("x", 2500)}, budget.PriorityOptional},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.section.Priority())
		})
	}
}

func TestFitNoOpUnderBudget(t *testing.T) {
	c := budget.NewController(false)
	in := sections(500, 300, 200, 100)

	out, report := c.Fit(in, 10000)

	assert.Equal(t, in, out)
	assert.Equal(t, budget.LevelNone, report.Level)
	assert.Equal(t, 1.0, report.PreservationRatio)
	assert.Equal(t, len(in), report.SectionsKept)
	assert.Zero(t, report.SectionsDropped)
}

func TestFitZeroBudgetMeansUnlimited(t *testing.T) {
	c := budget.NewController(false)
	in := sections(5000, 3000, 2000, 2000)

	out, report := c.Fit(in, 0)
	assert.Equal(t, in, out)
	assert.Equal(t, budget.LevelNone, report.Level)
}

func TestFitExtremeKeepsCriticalWithinBudget(t *testing.T) {
	c := budget.NewController(false)
	in := sections(4000, 3000, 3000, 2000) // 3x over a 4000 budget

	out, report := c.Fit(in, 4000)

	assert.Equal(t, budget.LevelExtreme, report.Level)
	assert.LessOrEqual(t, totalLength(out), 4000)
	require.NotEmpty(t, out)

	var core string
	for _, s := range out {
		if s.Kind == budget.KindCoreMemories {
			core = s.Content
		}
	}
	assert.NotEmpty(t, core, "critical section must survive extreme compression")
	assert.Less(t, report.PreservationRatio, 1.0)
	assert.Greater(t, report.QualityScore, 0.0)
}

func TestFitPreserveQualityDowngradesLevel(t *testing.T) {
	in := sections(2000, 1500, 1500, 1000) // ratio ~1.36 -> moderate

	_, plain := budget.NewController(false).Fit(sections(2000, 1500, 1500, 1000), 4500)
	_, gentle := budget.NewController(true).Fit(in, 4500)

	assert.Equal(t, budget.LevelModerate, plain.Level)
	assert.Equal(t, budget.LevelLight, gentle.Level)
}

func TestFitDropsLowestPriorityFirst(t *testing.T) {
	c := budget.NewController(false)
	in := sections(1000, 800, 600, 600) // ratio ~1.1 -> light

	out, report := c.Fit(in, 2700)

	assert.Equal(t, budget.LevelLight, report.Level)
	for _, s := range out {
		assert.NotEqual(t, budget.KindMetadata, s.Kind, "optional metadata drops first")
	}
	assert.Greater(t, report.SectionsDropped, 0)
}

func TestFitOnlyCriticalTruncatesNeverDrops(t *testing.T) {
	c := budget.NewController(false)
	in := []budget.Section{
		{Kind: budget.KindCoreMemories, Content: block(400), Confidence: 0.9},
	}

	out, _ := c.Fit(in, 100)

	require.Len(t, out, 1)
	assert.NotEmpty(t, out[0].Content)
	assert.LessOrEqual(t, len(out[0].Content), 100)
}

func TestQualityScoreTracksLevelAndPreservation(t *testing.T) {
	c := budget.NewController(false)

	_, light := c.Fit(sections(1000, 800, 600, 400), 2600)   // ~1.08 -> light
	_, extreme := c.Fit(sections(4000, 3000, 3000, 2000), 3000) // 4x -> extreme

	assert.Equal(t, budget.LevelLight, light.Level)
	assert.Equal(t, budget.LevelExtreme, extreme.Level)
	assert.Greater(t, light.QualityScore, extreme.QualityScore)
	assert.LessOrEqual(t, light.QualityScore, 1.0)
}
