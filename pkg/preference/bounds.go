package preference

import "math"

// Bound is an inclusive [Min, Max] range for one preference field.
type Bound struct {
	Min float64
	Max float64
}

// clamp forces v into the bound.
func (b Bound) clamp(v float64) float64 {
	return math.Min(b.Max, math.Max(b.Min, v))
}

// ParameterBounds is the per-field bounds table every preference mutation
// is clamped against. The keys are stable identifiers also used by the
// optimizer when naming adjusted parameters.
var ParameterBounds = map[string]Bound{
	"type_weight":        {Min: 0.1, Max: 1.5},
	"max_count_per_type": {Min: 1, Max: 20},
	"min_importance":     {Min: 0.05, Max: 0.9},
	"min_relevance":      {Min: 0.05, Max: 0.9},
	"max_age_days":       {Min: 1, Max: 730},
	"recency_weight":     {Min: 0.0, Max: 1.0},
	"domain_boost":       {Min: 1.0, Max: 2.0},
	"cross_agent_weight": {Min: 0.0, Max: 1.0},
	"learning_rate":      {Min: 0.01, Max: 0.3},
	"adjustment_window":  {Min: 5, Max: 100},
}

// maxTypeWeightSum caps the total of all type weights; exceeding it scales
// every weight down proportionally.
const maxTypeWeightSum = 3.0

// Clamp forces every bounded field of p into its ParameterBounds range and
// then normalizes the type weights so their sum does not exceed 3.0.
//
// Clamp is applied after every mutation, whether it came from the optimizer
// or an operator update, so the invariant holds unconditionally.
func Clamp(p *Preference) {
	tw := ParameterBounds["type_weight"]
	var sum float64
	for t, w := range p.TypeWeights {
		w = tw.clamp(w)
		p.TypeWeights[t] = w
		sum += w
	}
	if sum > maxTypeWeightSum {
		scale := maxTypeWeightSum / sum
		for t, w := range p.TypeWeights {
			p.TypeWeights[t] = w * scale
		}
	}

	mc := ParameterBounds["max_count_per_type"]
	for t, c := range p.MaxCountByType {
		p.MaxCountByType[t] = int(mc.clamp(float64(c)))
	}

	p.MinImportance = ParameterBounds["min_importance"].clamp(p.MinImportance)
	p.MinRelevance = ParameterBounds["min_relevance"].clamp(p.MinRelevance)
	p.MaxAgeDays = ParameterBounds["max_age_days"].clamp(p.MaxAgeDays)
	p.RecencyWeight = ParameterBounds["recency_weight"].clamp(p.RecencyWeight)
	p.DomainBoost = ParameterBounds["domain_boost"].clamp(p.DomainBoost)
	p.CrossAgentWeight = ParameterBounds["cross_agent_weight"].clamp(p.CrossAgentWeight)
	p.LearningRate = ParameterBounds["learning_rate"].clamp(p.LearningRate)
	p.AdjustmentWindow = int(ParameterBounds["adjustment_window"].clamp(float64(p.AdjustmentWindow)))
}
