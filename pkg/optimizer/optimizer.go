// Package optimizer closes the learning loop: it consumes feedback
// events, maintains per-role learning state, and proposes bounded,
// confidence-gated adjustments to the preference store, with rollback.
//
// All mutation is serialized per agent role; different roles never
// contend.
package optimizer

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/petroagent/memcurator-go/pkg/namespace"
	"github.com/petroagent/memcurator-go/pkg/preference"
)

// Typed state failures. They are reported to the caller and never mutate
// state.
var (
	// ErrInsufficientFeedback means a role has fewer than ten recorded
	// experiences.
	ErrInsufficientFeedback = errors.New("insufficient feedback for optimization")

	// ErrUnknownOptimization means no optimization with the given id exists.
	ErrUnknownOptimization = errors.New("unknown optimization id")

	// ErrRollbackUnavailable means the optimization was never applied or
	// has already been rolled back.
	ErrRollbackUnavailable = errors.New("rollback not available for optimization")
)

// Adjustment strategies and their delta multipliers.
const (
	StrategyConservative = "conservative"
	StrategyBalanced     = "balanced"
	StrategyAggressive   = "aggressive"
	StrategyAdaptive     = "adaptive"
)

// Problem areas named by feedback analysis.
const (
	problemPoorRelevance = "poor_relevance"
	problemPoorFreshness = "poor_freshness"
	problemDeclining     = "declining_performance"
)

// Gate thresholds: an optimization only applies when all three hold.
const (
	gateMinConfidence  = 0.6
	gateMinImprovement = 0.05
	gateMaxApplied     = 3
	gateWindow         = 6 * time.Hour
)

const (
	defaultCooldown         = 2 * time.Hour
	defaultFeedbackCapacity = 200
	defaultHistoryCapacity  = 100
	periodicInterval        = 50
)

// OptimizationResult records one optimization attempt. It is immutable
// once created and retained in a bounded history used for rollback.
type OptimizationResult struct {
	// ID uniquely identifies the optimization.
	ID string `json:"id"`

	// Timestamp is when the optimization ran.
	Timestamp time.Time `json:"timestamp"`

	// AgentRole is the role whose preferences were analyzed.
	AgentRole namespace.AgentRole `json:"agent_role"`

	// ParamsBefore is the exact preference snapshot before any change.
	ParamsBefore preference.Preference `json:"params_before"`

	// ParamsAfter is the proposed (and, if applied, active) preference.
	ParamsAfter preference.Preference `json:"params_after"`

	// EstimatedImprovement is the heuristic expected score gain.
	EstimatedImprovement float64 `json:"estimated_improvement"`

	// Confidence is how trustworthy the proposal is, in [0,1].
	Confidence float64 `json:"confidence"`

	// Applied reports whether the proposal passed the gate and was
	// written to the preference store.
	Applied bool `json:"applied"`

	// RollbackAvailable reports whether Rollback can restore
	// ParamsBefore. Always true for applied optimizations.
	RollbackAvailable bool `json:"rollback_available"`

	// ProblemAreas names the weaknesses the analysis identified.
	ProblemAreas []string `json:"problem_areas,omitempty"`
}

// Optimizer owns the per-role learning state and optimization history.
type Optimizer struct {
	prefs *preference.Store
	now   func() time.Time

	cooldown    time.Duration
	feedbackCap int

	mu    sync.Mutex
	roles map[namespace.AgentRole]*roleState

	historyMu  sync.Mutex
	history    []*OptimizationResult
	historyCap int
	rolledBack map[string]bool
}

// roleState serializes all mutation for one agent role.
type roleState struct {
	mu       sync.Mutex
	feedback *feedbackRing
	learning *LearningState
}

// NewOptimizer creates an optimizer over the given preference store.
// cooldown and feedbackCapacity select the optimization cool-down window
// and per-role feedback-log capacity; zero values pick the defaults
// (2 hours, 200 events).
func NewOptimizer(prefs *preference.Store, cooldown time.Duration, feedbackCapacity int) *Optimizer {
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	if feedbackCapacity <= 0 {
		feedbackCapacity = defaultFeedbackCapacity
	}
	return &Optimizer{
		prefs:       prefs,
		now:         time.Now,
		cooldown:    cooldown,
		feedbackCap: feedbackCapacity,
		roles:       make(map[namespace.AgentRole]*roleState),
		historyCap:  defaultHistoryCapacity,
		rolledBack:  make(map[string]bool),
	}
}

func (o *Optimizer) roleState(role namespace.AgentRole) *roleState {
	o.mu.Lock()
	defer o.mu.Unlock()
	rs, ok := o.roles[role]
	if !ok {
		pref := o.prefs.Get(role)
		rs = &roleState{
			feedback: newFeedbackRing(o.feedbackCap),
			learning: newLearningState(pref.LearningRate),
		}
		o.roles[role] = rs
	}
	return rs
}

// RecordFeedback appends the event to the role's feedback log, updates
// its learning state, and evaluates the trigger policy. When the policy
// fires, an adaptive optimization runs immediately and its result is
// returned; otherwise the result is nil.
func (o *Optimizer) RecordFeedback(event FeedbackEvent) (*OptimizationResult, error) {
	if event.AgentRole == "" {
		event.AgentRole = namespace.RoleGeneral
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = o.now()
	}
	event.Score = math.Min(1, math.Max(0, event.Score))

	rs := o.roleState(event.AgentRole)
	rs.mu.Lock()
	rs.feedback.append(event)
	rs.learning.observe(event.Score)
	triggered := o.shouldOptimizeLocked(rs.learning)
	rs.mu.Unlock()

	if !triggered {
		return nil, nil
	}
	return o.OptimizeParameters(event.AgentRole, StrategyAdaptive)
}

// shouldOptimizeLocked implements the trigger policy: enough experience,
// past the cool-down, and either degraded recent performance or a
// periodic checkpoint.
func (o *Optimizer) shouldOptimizeLocked(ls *LearningState) bool {
	if ls.ExperienceCount < experienceMinimum {
		return false
	}
	if ls.LastOptimizationAt != nil && o.now().Sub(*ls.LastOptimizationAt) < o.cooldown {
		return false
	}
	return ls.recentAverage(5) < 0.6 || ls.ExperienceCount%periodicInterval == 0
}

// LearningStateFor returns a snapshot of the role's learning state and
// its lifecycle state.
func (o *Optimizer) LearningStateFor(role namespace.AgentRole) (LearningState, State) {
	rs := o.roleState(role)
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.learning.clone(), rs.learning.State()
}

// feedbackAnalysis summarizes a role's recent feedback.
type feedbackAnalysis struct {
	avgScore      float64
	trend         float64 // positive improving, negative declining
	positiveRatio float64
	negativeRatio float64
	sampleCount   int
	problemAreas  []string
}

// analyzeFeedback derives average score, signal mix, moving-average
// trend, and named problem areas from the role's recent window.
func analyzeFeedback(events []FeedbackEvent, window int) feedbackAnalysis {
	if len(events) > window {
		events = events[len(events)-window:]
	}
	a := feedbackAnalysis{sampleCount: len(events)}
	if len(events) == 0 {
		return a
	}

	var sum, freshSum float64
	var positives, negatives, freshCount int
	for _, e := range events {
		sum += e.Score
		switch e.Signal {
		case SignalPositive:
			positives++
		case SignalNegative:
			negatives++
		}
		if e.Type == "freshness_rating" {
			freshSum += e.Score
			freshCount++
		}
	}
	a.avgScore = sum / float64(len(events))
	a.positiveRatio = float64(positives) / float64(len(events))
	a.negativeRatio = float64(negatives) / float64(len(events))

	// Trend: second-half moving average minus first-half.
	if len(events) >= 4 {
		half := len(events) / 2
		var first, second float64
		for _, e := range events[:half] {
			first += e.Score
		}
		for _, e := range events[half:] {
			second += e.Score
		}
		a.trend = second/float64(len(events)-half) - first/float64(half)
	}

	if a.avgScore < 0.6 {
		a.problemAreas = append(a.problemAreas, problemPoorRelevance)
	}
	if freshCount > 0 && freshSum/float64(freshCount) < 0.5 {
		a.problemAreas = append(a.problemAreas, problemPoorFreshness)
	}
	if a.trend < -0.1 {
		a.problemAreas = append(a.problemAreas, problemDeclining)
	}
	return a
}

// strategyMultiplier scales parameter deltas. The adaptive strategy
// derives its multiplier from stability and experience: small steps once
// stable and experienced, large steps while unstable.
func strategyMultiplier(strategy string, ls *LearningState) float64 {
	switch strategy {
	case StrategyConservative:
		return 0.5
	case StrategyAggressive:
		return 1.5
	case StrategyAdaptive:
		switch {
		case ls.StabilityScore > 0.7 && ls.ExperienceCount > 100:
			return 0.3
		case ls.StabilityScore < 0.3:
			return 1.5
		default:
			return 1.0
		}
	default:
		return 1.0
	}
}

// OptimizeParameters analyzes the role's feedback, derives signed
// preference deltas scaled by the strategy multiplier and learning rate,
// and applies them if and only if the confidence gate passes. The result
// is recorded either way.
//
// Returns ErrInsufficientFeedback when the role has fewer than ten
// experiences; no state is mutated in that case.
func (o *Optimizer) OptimizeParameters(role namespace.AgentRole, strategy string) (*OptimizationResult, error) {
	rs := o.roleState(role)
	rs.mu.Lock()
	defer rs.mu.Unlock()

	ls := rs.learning
	if ls.ExperienceCount < experienceMinimum {
		return nil, fmt.Errorf("optimize %s: %w (have %d, need %d)",
			role, ErrInsufficientFeedback, ls.ExperienceCount, experienceMinimum)
	}

	before := o.prefs.Get(role)
	analysis := analyzeFeedback(rs.feedback.snapshot(), before.AdjustmentWindow)

	multiplier := strategyMultiplier(strategy, ls)
	step := ls.LearningRate * multiplier

	after, magnitude := deriveAdjustments(before, analysis, step)
	preference.Clamp(&after)

	improvement := estimateImprovement(analysis)
	conf := optimizationConfidence(analysis, ls, magnitude)

	now := o.now()
	result := &OptimizationResult{
		ID:                   uuid.NewString(),
		Timestamp:            now,
		AgentRole:            role,
		ParamsBefore:         before,
		ParamsAfter:          after,
		EstimatedImprovement: improvement,
		Confidence:           conf,
		ProblemAreas:         analysis.problemAreas,
	}

	if conf >= gateMinConfidence && improvement >= gateMinImprovement && o.appliedInWindow(role, now) < gateMaxApplied {
		result.ParamsAfter = o.prefs.Update(role, after)
		result.Applied = true
		result.RollbackAvailable = true
	}

	ls.LastOptimizationAt = &now
	o.recordResult(result)
	return result, nil
}

// deriveAdjustments maps the analysis to signed preference deltas. Low
// average scores favor precision: raise cutoffs, shrink counts. High
// scores relax toward recall. Returns the adjusted preference and the
// total relative adjustment magnitude.
func deriveAdjustments(p preference.Preference, a feedbackAnalysis, step float64) (preference.Preference, float64) {
	// Copy the maps so the caller's snapshot stays untouched.
	weights := make(map[namespace.MemoryType]float64, len(p.TypeWeights))
	for t, w := range p.TypeWeights {
		weights[t] = w
	}
	p.TypeWeights = weights
	counts := make(map[namespace.MemoryType]int, len(p.MaxCountByType))
	for t, c := range p.MaxCountByType {
		counts[t] = c
	}
	p.MaxCountByType = counts

	var magnitude float64
	bump := func(delta float64) float64 {
		magnitude += math.Abs(delta)
		return delta
	}

	switch {
	case a.avgScore < 0.6:
		p.MinRelevance += bump(0.5 * step)
		p.MinImportance += bump(0.3 * step)
		for t, c := range p.MaxCountByType {
			if c > 1 {
				p.MaxCountByType[t] = c - 1
			}
		}
		magnitude += 0.1
	case a.avgScore > 0.75:
		p.MinRelevance -= bump(0.2 * step)
		for t, c := range p.MaxCountByType {
			p.MaxCountByType[t] = c + 1
		}
		magnitude += 0.1
	}

	for _, area := range a.problemAreas {
		switch area {
		case problemPoorFreshness:
			p.RecencyWeight += bump(0.5 * step)
			ageDelta := 30 * step
			p.MaxAgeDays -= ageDelta
			magnitude += ageDelta / 365
		case problemDeclining:
			p.LearningRate += bump(0.1 * step)
		}
	}
	return p, magnitude
}

// estimateImprovement is the heuristic expected gain: proportional to
// the gap below the 0.75 target, damped for small samples.
func estimateImprovement(a feedbackAnalysis) float64 {
	gap := 0.75 - a.avgScore
	if gap <= 0 {
		return 0.02 // already performing well; little to gain
	}
	sampleFactor := math.Min(1, float64(a.sampleCount)/20.0)
	return math.Min(0.3, gap*0.4*sampleFactor+0.02)
}

// optimizationConfidence blends feedback volume, score moderateness,
// experience, and adjustment magnitude. Extreme scores and oversized
// adjustments lower confidence.
func optimizationConfidence(a feedbackAnalysis, ls *LearningState, magnitude float64) float64 {
	volume := math.Min(1, float64(a.sampleCount)/20.0)
	moderateness := 1 - math.Abs(a.avgScore-0.5)*1.2
	if moderateness < 0 {
		moderateness = 0
	}
	experience := math.Min(1, float64(ls.ExperienceCount)/100.0)
	restraint := 1 - math.Min(1, magnitude*2)

	conf := 0.3*volume + 0.2*moderateness + 0.25*experience + 0.25*restraint
	return math.Min(1, math.Max(0, conf))
}

// appliedInWindow counts applied optimizations for the role within the
// gate window ending at now.
func (o *Optimizer) appliedInWindow(role namespace.AgentRole, now time.Time) int {
	o.historyMu.Lock()
	defer o.historyMu.Unlock()
	count := 0
	for _, r := range o.history {
		if r.AgentRole == role && r.Applied && now.Sub(r.Timestamp) < gateWindow {
			count++
		}
	}
	return count
}

func (o *Optimizer) recordResult(r *OptimizationResult) {
	o.historyMu.Lock()
	defer o.historyMu.Unlock()
	o.history = append(o.history, r)
	if len(o.history) > o.historyCap {
		evicted := o.history[0]
		delete(o.rolledBack, evicted.ID)
		o.history = o.history[1:]
	}
}

// History returns a snapshot of recorded optimization results, oldest
// first, optionally filtered by role.
func (o *Optimizer) History(role namespace.AgentRole) []*OptimizationResult {
	o.historyMu.Lock()
	defer o.historyMu.Unlock()
	out := make([]*OptimizationResult, 0, len(o.history))
	for _, r := range o.history {
		if role == "" || r.AgentRole == role {
			out = append(out, r)
		}
	}
	return out
}

// Rollback restores the exact ParamsBefore snapshot of an applied
// optimization. It fails with ErrUnknownOptimization for unknown ids and
// ErrRollbackUnavailable for unapplied or already rolled back results;
// neither failure mutates state.
func (o *Optimizer) Rollback(id, reason string) error {
	o.historyMu.Lock()
	var target *OptimizationResult
	for _, r := range o.history {
		if r.ID == id {
			target = r
			break
		}
	}
	if target == nil {
		o.historyMu.Unlock()
		return fmt.Errorf("rollback %s: %w", id, ErrUnknownOptimization)
	}
	if !target.RollbackAvailable || o.rolledBack[id] {
		o.historyMu.Unlock()
		return fmt.Errorf("rollback %s: %w", id, ErrRollbackUnavailable)
	}
	o.rolledBack[id] = true
	o.historyMu.Unlock()

	rs := o.roleState(target.AgentRole)
	rs.mu.Lock()
	defer rs.mu.Unlock()
	o.prefs.Update(target.AgentRole, target.ParamsBefore)
	return nil
}
