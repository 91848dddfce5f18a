package scoring

// Factor names one of the eight independent scoring factors. Every factor
// is computed in [0,1].
type Factor string

const (
	// FactorSemantic is similarity between the query and the content.
	FactorSemantic Factor = "semantic_similarity"

	// FactorTask is keyword overlap between the current task and content.
	FactorTask Factor = "task_relevance"

	// FactorTemporal is exponential age decay with a 30-day half-life.
	FactorTemporal Factor = "temporal_decay"

	// FactorDomain is domain match (exact / same group / other).
	FactorDomain Factor = "domain_match"

	// FactorAgentPreference is the role preference's type weight.
	FactorAgentPreference Factor = "agent_preference"

	// FactorFrequency is a log-scaled access-count boost.
	FactorFrequency Factor = "frequency_boost"

	// FactorImportance is the item's stored importance.
	FactorImportance Factor = "importance_weight"

	// FactorContextual is similarity against recent conversation turns
	// and available tool mentions.
	FactorContextual Factor = "contextual_relevance"
)

// AllFactors lists the factors in their canonical order.
var AllFactors = []Factor{
	FactorSemantic,
	FactorTask,
	FactorTemporal,
	FactorDomain,
	FactorAgentPreference,
	FactorFrequency,
	FactorImportance,
	FactorContextual,
}

// Aggregation is how a strategy folds weighted factor scores into one
// total.
type Aggregation string

const (
	// AggregationWeightedAverage is the weighted mean of factor scores.
	AggregationWeightedAverage Aggregation = "weighted_average"

	// AggregationMax takes the maximum weighted factor score.
	AggregationMax Aggregation = "max"

	// AggregationMin takes the minimum weighted factor score.
	AggregationMin Aggregation = "min"
)

// Strategy is a named weight vector over the eight factors plus an
// aggregation rule.
type Strategy struct {
	// Name identifies the strategy; it is part of the score cache key.
	Name string

	// Weights assigns each factor its weight. Missing factors weigh zero.
	Weights map[Factor]float64

	// Aggregation is the folding rule.
	Aggregation Aggregation
}

// Predefined strategy names.
const (
	StrategySemanticFocused = "semantic_focused"
	StrategyTaskFocused     = "task_focused"
	StrategyTemporalFocused = "temporal_focused"
	StrategyDomainFocused   = "domain_focused"
	StrategyBalanced        = "balanced"
	StrategyAgentAdaptive   = "agent_adaptive"
)

// strategies holds the six predefined strategies.
var strategies = map[string]Strategy{
	StrategySemanticFocused: {
		Name:        StrategySemanticFocused,
		Aggregation: AggregationWeightedAverage,
		Weights: map[Factor]float64{
			FactorSemantic:        0.35,
			FactorTask:            0.10,
			FactorTemporal:        0.05,
			FactorDomain:          0.10,
			FactorAgentPreference: 0.10,
			FactorFrequency:       0.05,
			FactorImportance:      0.15,
			FactorContextual:      0.10,
		},
	},
	StrategyTaskFocused: {
		Name:        StrategyTaskFocused,
		Aggregation: AggregationWeightedAverage,
		Weights: map[Factor]float64{
			FactorSemantic:        0.15,
			FactorTask:            0.35,
			FactorTemporal:        0.05,
			FactorDomain:          0.10,
			FactorAgentPreference: 0.10,
			FactorFrequency:       0.05,
			FactorImportance:      0.10,
			FactorContextual:      0.10,
		},
	},
	StrategyTemporalFocused: {
		Name:        StrategyTemporalFocused,
		Aggregation: AggregationWeightedAverage,
		Weights: map[Factor]float64{
			FactorSemantic:        0.15,
			FactorTask:            0.10,
			FactorTemporal:        0.35,
			FactorDomain:          0.10,
			FactorAgentPreference: 0.05,
			FactorFrequency:       0.10,
			FactorImportance:      0.10,
			FactorContextual:      0.05,
		},
	},
	StrategyDomainFocused: {
		Name:        StrategyDomainFocused,
		Aggregation: AggregationWeightedAverage,
		Weights: map[Factor]float64{
			FactorSemantic:        0.15,
			FactorTask:            0.10,
			FactorTemporal:        0.05,
			FactorDomain:          0.35,
			FactorAgentPreference: 0.10,
			FactorFrequency:       0.05,
			FactorImportance:      0.10,
			FactorContextual:      0.10,
		},
	},
	StrategyBalanced: {
		Name:        StrategyBalanced,
		Aggregation: AggregationWeightedAverage,
		Weights: map[Factor]float64{
			FactorSemantic:        0.125,
			FactorTask:            0.125,
			FactorTemporal:        0.125,
			FactorDomain:          0.125,
			FactorAgentPreference: 0.125,
			FactorFrequency:       0.125,
			FactorImportance:      0.125,
			FactorContextual:      0.125,
		},
	},
	StrategyAgentAdaptive: {
		Name:        StrategyAgentAdaptive,
		Aggregation: AggregationWeightedAverage,
		Weights: map[Factor]float64{
			FactorSemantic:        0.15,
			FactorTask:            0.10,
			FactorTemporal:        0.05,
			FactorDomain:          0.10,
			FactorAgentPreference: 0.30,
			FactorFrequency:       0.05,
			FactorImportance:      0.20,
			FactorContextual:      0.05,
		},
	},
}

// GetStrategy returns a predefined strategy by name, falling back to
// balanced for unknown names so strategy lookups never fail.
func GetStrategy(name string) Strategy {
	if s, ok := strategies[name]; ok {
		return s
	}
	return strategies[StrategyBalanced]
}

// aggregate folds weighted factor scores per the strategy's rule.
func (s Strategy) aggregate(factors map[Factor]float64) float64 {
	switch s.Aggregation {
	case AggregationMax:
		best := 0.0
		for f, score := range factors {
			if w := s.Weights[f]; w > 0 && score*w > best {
				best = score * w
			}
		}
		return best
	case AggregationMin:
		worst := 1.0
		found := false
		for f, score := range factors {
			if w := s.Weights[f]; w > 0 {
				found = true
				if score*w < worst {
					worst = score * w
				}
			}
		}
		if !found {
			return 0
		}
		return worst
	default:
		var sum, weightSum float64
		for f, score := range factors {
			w := s.Weights[f]
			sum += score * w
			weightSum += w
		}
		if weightSum == 0 {
			return 0
		}
		return sum / weightSum
	}
}
