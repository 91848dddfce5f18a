package scoring

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/petroagent/memcurator-go/pkg/backend"
	"github.com/petroagent/memcurator-go/pkg/embedder"
	"github.com/petroagent/memcurator-go/pkg/namespace"
	"github.com/petroagent/memcurator-go/pkg/preference"
)

// RelevanceScore is the derived, per-request score of one memory item.
// It is recomputed (or served from cache) on every request and never
// persisted.
type RelevanceScore struct {
	// Total is the final aggregated and adjusted score in [0,1].
	Total float64 `json:"total"`

	// PerFactor holds the raw factor scores that produced Total.
	PerFactor map[Factor]float64 `json:"per_factor"`

	// Confidence estimates how trustworthy Total is, in [0,1].
	Confidence float64 `json:"confidence"`

	// Boosts names the adjustment multipliers that raised the score.
	Boosts []string `json:"boosts,omitempty"`

	// Penalties names the adjustment multipliers that lowered it.
	Penalties []string `json:"penalties,omitempty"`
}

// Fallback tags.
const penaltyScoringError = "scoring_error"

// fallbackScore is returned whenever scoring fails internally. Scoring
// must never raise to the caller; a single bad item cannot fail a request.
func fallbackScore() *RelevanceScore {
	return &RelevanceScore{
		Total:      0.3,
		PerFactor:  map[Factor]float64{},
		Confidence: 0.2,
		Penalties:  []string{penaltyScoringError},
	}
}

// Scorer computes relevance scores. It holds an optional embedding
// provider for the semantic factor and a TTL cache of computed scores.
//
// Scoring is a pure function of (item, context, strategy, preference), so
// the Scorer is safe for concurrent use across requests and roles.
type Scorer struct {
	embedder embedder.Provider
	cache    *scoreCache
	now      func() time.Time
}

// NewScorer creates a scorer. The embedding provider may be nil, in which
// case semantic similarity falls back to lexical Jaccard. cacheTTL and
// cacheCap bound the score cache; zero values select the defaults
// (5 minutes, 10000 entries).
func NewScorer(provider embedder.Provider, cacheTTL time.Duration, cacheCap int) *Scorer {
	return &Scorer{
		embedder: provider,
		cache:    newScoreCache(cacheTTL, cacheCap),
		now:      time.Now,
	}
}

// Score computes the relevance of an item for the given context under the
// named strategy, using the preference snapshot for the agent-preference
// factor.
//
// Results are cached by (itemID, agentRole, truncated query, domainFocus,
// strategy) with a fixed TTL; identical inputs return an identical score
// until the entry expires. On any internal failure Score returns the
// fixed fallback score and never panics.
func (s *Scorer) Score(ctx context.Context, item *backend.MemoryItem, sctx *Context, strategy Strategy, pref *preference.Preference) (score *RelevanceScore) {
	defer func() {
		if r := recover(); r != nil {
			score = fallbackScore()
		}
	}()

	key := cacheKey(item.ID, sctx.AgentRole, sctx.Query, sctx.DomainFocus, strategy.Name)
	if cached, ok := s.cache.get(key); ok {
		return cached
	}

	now := s.now()
	factors := s.computeFactors(ctx, item, sctx, pref, now)

	total := strategy.aggregate(factors)
	total, boosts, penalties := applyAdjustments(total, item, sctx, now)

	score = &RelevanceScore{
		Total:      clamp01(total),
		PerFactor:  factors,
		Confidence: confidence(factors, item),
		Boosts:     boosts,
		Penalties:  penalties,
	}

	s.cache.put(key, score)
	return score
}

// computeFactors evaluates all eight factors in [0,1].
func (s *Scorer) computeFactors(ctx context.Context, item *backend.MemoryItem, sctx *Context, pref *preference.Preference, now time.Time) map[Factor]float64 {
	ageDays := item.AgeDays(now)

	factors := map[Factor]float64{
		FactorSemantic:   s.semanticSimilarity(ctx, sctx.Query, item.Content),
		FactorTask:       taskRelevance(sctx.CurrentTask, item.Content),
		FactorTemporal:   temporalDecay(ageDays),
		FactorDomain:     domainMatch(sctx.DomainFocus, item.Domain()),
		FactorFrequency:  frequencyBoost(item.AccessCount),
		FactorImportance: clamp01(item.Importance),
		FactorContextual: contextualRelevance(sctx, item.Content),
	}

	// Agent preference: the role's type weight normalized by its upper
	// bound so the factor stays in [0,1].
	typeWeight := 1.0
	if pref != nil {
		typeWeight = pref.TypeWeight(item.Type)
	}
	factors[FactorAgentPreference] = clamp01(typeWeight / preference.ParameterBounds["type_weight"].Max)

	return factors
}

// semanticSimilarity compares query and content. With an embedding
// provider present it uses cosine similarity; otherwise (or on provider
// failure) it falls back to length-scaled lexical Jaccard.
func (s *Scorer) semanticSimilarity(ctx context.Context, query, content string) float64 {
	if s.embedder != nil {
		vectors, err := s.embedder.EmbedBatch(ctx, []string{query, content})
		if err == nil && len(vectors) == 2 {
			return clamp01(embedder.CosineSimilarity(vectors[0], vectors[1]))
		}
	}
	return lexicalSimilarity(query, content)
}

// lexicalSimilarity is token-set Jaccard scaled by the min/max text
// length ratio, so a short query matching inside a huge document scores
// below an equally matching short one.
func lexicalSimilarity(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	jaccard := float64(intersection) / float64(union)

	lenA, lenB := float64(len(a)), float64(len(b))
	shorter, longer := math.Min(lenA, lenB), math.Max(lenA, lenB)
	if longer == 0 {
		return 0
	}
	// Dampen the penalty for length mismatch with a square root.
	return clamp01(jaccard * math.Sqrt(shorter/longer) * 2)
}

// taskRelevance is the fraction of current-task keywords present in the
// content.
func taskRelevance(task, content string) float64 {
	taskWords := wordSet(task)
	if len(taskWords) == 0 {
		return 0.5 // No task given: neutral.
	}
	contentLower := strings.ToLower(content)

	matches := 0
	for w := range taskWords {
		if strings.Contains(contentLower, w) {
			matches++
		}
	}
	return float64(matches) / float64(len(taskWords))
}

// temporalDecay halves every 30 days: exp(-ln2/30 * ageDays).
func temporalDecay(ageDays float64) float64 {
	if ageDays <= 0 {
		return 1.0
	}
	return math.Exp(-math.Ln2 / 30.0 * ageDays)
}

// domainMatch scores 1.0 for exact match, 0.8 within the same domain
// group, 0.2 otherwise. With no domain focus the factor is neutral.
func domainMatch(focus, itemDomain namespace.Domain) float64 {
	if focus == "" {
		return 0.5
	}
	if focus == itemDomain {
		return 1.0
	}
	if namespace.DomainGroup(focus) == namespace.DomainGroup(itemDomain) {
		return 0.8
	}
	return 0.2
}

// frequencyBoost is log10(accessCount+1), capped at 1.0 (9+ accesses).
func frequencyBoost(accessCount int) float64 {
	if accessCount <= 0 {
		return 0
	}
	return math.Min(1.0, math.Log(float64(accessCount)+1)/math.Log(10))
}

// contextualRelevance is the best lexical similarity against the last
// three conversation turns, raised to at least 0.8 when any available
// tool name appears in the content.
func contextualRelevance(sctx *Context, content string) float64 {
	best := 0.0
	for _, turn := range sctx.LastTurns(3) {
		if sim := lexicalSimilarity(turn, content); sim > best {
			best = sim
		}
	}

	contentLower := strings.ToLower(content)
	for _, tool := range sctx.AvailableTools {
		if tool != "" && strings.Contains(contentLower, strings.ToLower(tool)) {
			best = math.Max(best, 0.8)
			break
		}
	}
	return best
}

// Adjustment tags, applied in fixed order after aggregation.
const (
	boostHighImportance     = "high_importance"
	boostFrequentlyAccessed = "frequently_accessed"
	penaltyStale            = "stale_memory"
	boostRoleMatch          = "agent_role_match"
	penaltyRoleMismatch     = "agent_role_mismatch"
	boostDomainFocus        = "domain_focus_match"
)

// applyAdjustments runs the deterministic multiplier ladder and records
// each applied adjustment as a boost or penalty tag.
func applyAdjustments(total float64, item *backend.MemoryItem, sctx *Context, now time.Time) (float64, []string, []string) {
	var boosts, penalties []string

	if item.Importance > 0.8 {
		total *= 1.2
		boosts = append(boosts, boostHighImportance)
	}
	if item.AccessCount > 5 {
		total *= 1.1
		boosts = append(boosts, boostFrequentlyAccessed)
	}
	if age := item.AgeDays(now); age > 30 {
		total *= math.Exp(-0.1 * age / 30.0)
		penalties = append(penalties, penaltyStale)
	}
	if owner := item.OwnerRole(); owner == sctx.AgentRole || owner == namespace.RoleShared {
		total *= 1.15
		boosts = append(boosts, boostRoleMatch)
	} else {
		total *= 0.9
		penalties = append(penalties, penaltyRoleMismatch)
	}
	if sctx.DomainFocus != "" && sctx.DomainFocus == item.Domain() {
		total *= 1.1
		boosts = append(boosts, boostDomainFocus)
	}

	return total, boosts, penalties
}

// confidence blends factor consistency, importance, access evidence and a
// content-length sweet spot into [0,1].
func confidence(factors map[Factor]float64, item *backend.MemoryItem) float64 {
	consistency := 1.0 - factorVariance(factors)

	accessConf := math.Min(1.0, math.Log(float64(item.AccessCount)+1)/math.Log(100))

	length := len(item.Content)
	var lengthScore float64
	switch {
	case length >= 50 && length <= 1000:
		lengthScore = 1.0
	case length < 50:
		lengthScore = float64(length) / 50.0
	default:
		lengthScore = math.Max(0.2, 1000.0/float64(length))
	}

	return clamp01((consistency + clamp01(item.Importance) + accessConf + lengthScore) / 4.0)
}

// factorVariance is the population variance of the factor scores.
func factorVariance(factors map[Factor]float64) float64 {
	if len(factors) == 0 {
		return 0
	}
	var sum float64
	for _, v := range factors {
		sum += v
	}
	mean := sum / float64(len(factors))

	var variance float64
	for _, v := range factors {
		variance += (v - mean) * (v - mean)
	}
	return variance / float64(len(factors))
}

// wordSet lowercases and splits text into a set of words.
func wordSet(text string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func clamp01(v float64) float64 {
	return math.Min(1.0, math.Max(0.0, v))
}

// JaccardSimilarity exposes plain word-set Jaccard for other curation
// stages (the selector's diversity guard and duplicate detection).
func JaccardSimilarity(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}
