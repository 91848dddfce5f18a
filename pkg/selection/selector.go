// Package selection turns scored candidate memories into a bounded,
// deduplicated, diverse result set.
//
// The pipeline is strictly ordered: basic threshold filtering, blended
// re-scoring, per-type quota selection with a diversity guard, and a
// final optimization pass (fingerprint dedup, global trim, type
// interleaving). Re-running the pipeline on its own output performs no
// further drops.
package selection

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/petroagent/memcurator-go/pkg/backend"
	"github.com/petroagent/memcurator-go/pkg/namespace"
	"github.com/petroagent/memcurator-go/pkg/preference"
	"github.com/petroagent/memcurator-go/pkg/scoring"
)

// Blend ratios applied on top of the scorer's own weighting.
const (
	blendScorer     = 0.40
	blendContext    = 0.25
	blendLexical    = 0.25
	blendImportance = 0.10
)

// diversityThreshold is the lexical-similarity ceiling between two
// selected items of the same type.
const diversityThreshold = 0.8

// Result is the output of one selection pass.
type Result struct {
	// Items is the final ranked, type-interleaved selection. Each item
	// carries its blended relevance score.
	Items []*backend.MemoryItem `json:"items"`

	// TotalScore is the sum of the selected items' blended scores.
	TotalScore float64 `json:"total_score"`

	// Confidence estimates how well the selection serves the request.
	Confidence float64 `json:"confidence"`

	// Domains lists the distinct domains represented, in selection order.
	Domains []namespace.Domain `json:"domains"`

	// Distribution counts selected items per memory type.
	Distribution map[namespace.MemoryType]int `json:"distribution"`

	// Summary is a one-line human-readable description.
	Summary string `json:"summary"`
}

// Selector runs the filtering and selection pipeline. It is stateless
// apart from the shared scorer and safe for concurrent use.
type Selector struct {
	scorer *scoring.Scorer
	now    func() time.Time
}

// NewSelector creates a selector on top of the given scorer.
func NewSelector(scorer *scoring.Scorer) *Selector {
	return &Selector{scorer: scorer, now: time.Now}
}

// Select runs the four-stage pipeline over the candidates under the
// given context, preference snapshot and strategy name.
func (s *Selector) Select(ctx context.Context, candidates []*backend.MemoryItem, sctx *scoring.Context, pref *preference.Preference, strategyName string) *Result {
	now := s.now()

	normalizeTypes(candidates)
	survivors := s.basicFilter(candidates, sctx, pref, now)
	scored := s.scoreCandidates(ctx, survivors, sctx, pref, strategyName)
	selected := s.selectByType(scored, pref)
	final := s.optimize(selected, pref)

	return s.buildResult(final)
}

// normalizeTypes collapses non-canonical memory types to their parse
// defaults. Backends are not required to return canonical types, and the
// quota and interleaving passes assume them.
func normalizeTypes(items []*backend.MemoryItem) {
	for _, item := range items {
		if item != nil {
			item.Type = namespace.ParseMemoryType(string(item.Type))
		}
	}
}

// basicFilter drops items failing the preference's hard cutoffs, the
// request's quality tier, or the cross-agent policy.
func (s *Selector) basicFilter(candidates []*backend.MemoryItem, sctx *scoring.Context, pref *preference.Preference, now time.Time) []*backend.MemoryItem {
	floor := qualityFloor(sctx.QualityRequirement)

	out := make([]*backend.MemoryItem, 0, len(candidates))
	for _, item := range candidates {
		if item == nil || item.Content == "" {
			continue
		}
		if item.Importance < pref.MinImportance || item.Importance < floor {
			continue
		}
		if item.AgeDays(now) > pref.MaxAgeDays {
			continue
		}
		owner := item.OwnerRole()
		if !pref.CrossAgentEnabled && owner != sctx.AgentRole && owner != namespace.RoleShared {
			continue
		}
		out = append(out, item)
	}
	return out
}

// qualityFloor maps the request's quality requirement to a minimum
// importance tier.
func qualityFloor(requirement float64) float64 {
	switch {
	case requirement >= 0.8:
		return 0.5
	case requirement >= 0.5:
		return 0.3
	default:
		return 0
	}
}

// scoreCandidates computes the blended score for each survivor and drops
// those below the preference's relevance cutoff. The blend re-weights
// the scorer's total with a lighter context-relevance term, naive
// lexical similarity, and stored importance.
func (s *Selector) scoreCandidates(ctx context.Context, items []*backend.MemoryItem, sctx *scoring.Context, pref *preference.Preference, strategyName string) []*backend.MemoryItem {
	strategy := scoring.GetStrategy(strategyName)
	contextText := contextText(sctx)

	out := make([]*backend.MemoryItem, 0, len(items))
	for _, item := range items {
		base := s.scorer.Score(ctx, item, sctx, strategy, pref)

		// Scoring is pure and cached, so re-running the pipeline on its
		// own output reproduces identical blended scores.
		item.RelevanceScore = blendScorer*base.Total +
			blendContext*scoring.JaccardSimilarity(contextText, item.Content) +
			blendLexical*backend.LexicalScore(sctx.Query, item.Content) +
			blendImportance*item.Importance

		if item.RelevanceScore < pref.MinRelevance {
			continue
		}
		out = append(out, item)
	}
	return out
}

// contextText joins the current task and recent turns into one blob for
// the lightweight context-relevance term.
func contextText(sctx *scoring.Context) string {
	parts := append([]string{sctx.CurrentTask}, sctx.LastTurns(3)...)
	return strings.TrimSpace(strings.Join(parts, " "))
}

// selectByType fills per-type quotas in descending score order, applying
// the diversity guard: a candidate too similar to an already selected
// item is rejected unless dropping it would lose its domain entirely.
func (s *Selector) selectByType(items []*backend.MemoryItem, pref *preference.Preference) []*backend.MemoryItem {
	sortByScore(items)

	counts := make(map[namespace.MemoryType]int)
	seenDomains := make(map[namespace.Domain]bool)
	selected := make([]*backend.MemoryItem, 0, len(items))

	for _, item := range items {
		if counts[item.Type] >= pref.MaxCount(item.Type) {
			continue
		}

		tooSimilar := false
		for _, prev := range selected {
			if prev.Type != item.Type {
				continue
			}
			if scoring.JaccardSimilarity(prev.Content, item.Content) > diversityThreshold {
				tooSimilar = true
				break
			}
		}
		if tooSimilar && seenDomains[item.Domain()] {
			continue
		}

		selected = append(selected, item)
		counts[item.Type]++
		seenDomains[item.Domain()] = true
	}
	return selected
}

// optimize removes exact duplicates by content fingerprint, trims to the
// global quota keeping the highest scores, and interleaves types
// round-robin so the final ordering avoids single-type runs.
func (s *Selector) optimize(items []*backend.MemoryItem, pref *preference.Preference) []*backend.MemoryItem {
	seen := make(map[string]bool, len(items))
	deduped := make([]*backend.MemoryItem, 0, len(items))
	for _, item := range items {
		fp := Fingerprint(item.Content)
		if seen[fp] {
			continue
		}
		seen[fp] = true
		deduped = append(deduped, item)
	}

	quota := 0
	for _, t := range namespace.AllMemoryTypes {
		quota += pref.MaxCount(t)
	}
	sortByScore(deduped)
	if len(deduped) > quota {
		deduped = deduped[:quota]
	}

	return interleaveByType(deduped)
}

// interleaveByType reorders items round-robin over the canonical type
// order, preserving descending score within each type.
func interleaveByType(items []*backend.MemoryItem) []*backend.MemoryItem {
	buckets := make(map[namespace.MemoryType][]*backend.MemoryItem)
	for _, item := range items {
		// Collapse any stray non-canonical type so every bucket is
		// visited by the drain loop below.
		t := namespace.ParseMemoryType(string(item.Type))
		buckets[t] = append(buckets[t], item)
	}

	out := make([]*backend.MemoryItem, 0, len(items))
	for len(out) < len(items) {
		for _, t := range namespace.AllMemoryTypes {
			if len(buckets[t]) > 0 {
				out = append(out, buckets[t][0])
				buckets[t] = buckets[t][1:]
			}
		}
	}
	return out
}

// buildResult aggregates the final items into a Result with its
// confidence blend: count sufficiency (saturating at 5 items), mean
// relevance, and type/domain diversity.
func (s *Selector) buildResult(items []*backend.MemoryItem) *Result {
	result := &Result{
		Items:        items,
		Distribution: make(map[namespace.MemoryType]int),
	}

	seenDomains := make(map[namespace.Domain]bool)
	var scoreSum float64
	for _, item := range items {
		result.Distribution[item.Type]++
		if d := item.Domain(); !seenDomains[d] {
			seenDomains[d] = true
			result.Domains = append(result.Domains, d)
		}
		scoreSum += item.RelevanceScore
	}
	result.TotalScore = scoreSum

	if len(items) == 0 {
		result.Summary = "no memories matched the current filters"
		return result
	}

	meanRelevance := scoreSum / float64(len(items))
	countSufficiency := float64(len(items)) / 5.0
	if countSufficiency > 1 {
		countSufficiency = 1
	}
	typeDiversity := float64(len(result.Distribution)) / float64(len(namespace.AllMemoryTypes))
	domainDiversity := float64(len(result.Domains)) / 3.0
	if domainDiversity > 1 {
		domainDiversity = 1
	}
	diversity := (typeDiversity + domainDiversity) / 2.0

	result.Confidence = 0.4*countSufficiency + 0.4*meanRelevance + 0.2*diversity
	result.Summary = fmt.Sprintf("%d memories selected across %d domain(s), avg relevance %.2f",
		len(items), len(result.Domains), meanRelevance)
	return result
}

// Fingerprint builds a content fingerprint from the sorted first ten
// unique words, used for exact-duplicate removal.
func Fingerprint(content string) string {
	words := strings.Fields(strings.ToLower(content))
	seen := make(map[string]bool, 10)
	unique := make([]string, 0, 10)
	for _, w := range words {
		if !seen[w] {
			seen[w] = true
			unique = append(unique, w)
			if len(unique) == 10 {
				break
			}
		}
	}
	sort.Strings(unique)
	return strings.Join(unique, " ")
}

// sortByScore orders items by descending blended score with the item ID
// as a deterministic tie-break.
func sortByScore(items []*backend.MemoryItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].RelevanceScore != items[j].RelevanceScore {
			return items[i].RelevanceScore > items[j].RelevanceScore
		}
		return items[i].ID < items[j].ID
	})
}
