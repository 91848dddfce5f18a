package optimizer

import (
	"math"
	"time"
)

// Lifecycle states of a role's learning process.
type State string

const (
	// StateCold means no feedback has been observed yet.
	StateCold State = "cold"

	// StateWarming means feedback exists but is below the optimization
	// minimum of ten experiences.
	StateWarming State = "warming"

	// StateActive means the role has enough feedback to optimize.
	StateActive State = "active"
)

// experienceMinimum is the feedback count required before any
// optimization may run.
const experienceMinimum = 10

// LearningState tracks per-role learning progress. It is created lazily
// on first feedback and mutated only under the role's writer lock.
type LearningState struct {
	// LearningRate is the current step size, clamped to [0.01, 0.3].
	LearningRate float64 `json:"learning_rate"`

	// Momentum smooths successive adjustments.
	Momentum float64 `json:"momentum"`

	// ExperienceCount is the total number of feedback events observed.
	ExperienceCount int `json:"experience_count"`

	// PerformanceHistory is a bounded window of recent feedback scores,
	// newest last.
	PerformanceHistory []float64 `json:"performance_history"`

	// LastOptimizationAt is when the last optimization ran for the role.
	LastOptimizationAt *time.Time `json:"last_optimization_at,omitempty"`

	// StabilityScore is an EMA of recent performance consistency in [0,1].
	StabilityScore float64 `json:"stability_score"`
}

const (
	performanceWindowCap = 50
	varianceWindow       = 10
	stabilityAlpha       = 0.1

	minLearningRate = 0.01
	maxLearningRate = 0.3
)

func newLearningState(learningRate float64) *LearningState {
	if learningRate <= 0 {
		learningRate = 0.1
	}
	return &LearningState{
		LearningRate:   learningRate,
		Momentum:       0.9,
		StabilityScore: 0.5,
	}
}

// State derives the lifecycle state from the experience count.
func (ls *LearningState) State() State {
	switch {
	case ls.ExperienceCount == 0:
		return StateCold
	case ls.ExperienceCount < experienceMinimum:
		return StateWarming
	default:
		return StateActive
	}
}

// observe folds one feedback score into the learning state: it extends
// the rolling window, adapts the learning rate to recent variance, and
// updates the stability EMA.
func (ls *LearningState) observe(score float64) {
	ls.ExperienceCount++
	ls.PerformanceHistory = append(ls.PerformanceHistory, score)
	if len(ls.PerformanceHistory) > performanceWindowCap {
		ls.PerformanceHistory = ls.PerformanceHistory[len(ls.PerformanceHistory)-performanceWindowCap:]
	}

	variance := ls.recentVariance(varianceWindow)
	switch {
	case variance > 0.1:
		ls.LearningRate *= 0.9
	case variance < 0.02:
		ls.LearningRate *= 1.05
	}
	ls.LearningRate = math.Min(maxLearningRate, math.Max(minLearningRate, ls.LearningRate))

	consistency := math.Max(0, 1-5*variance)
	ls.StabilityScore = (1-stabilityAlpha)*ls.StabilityScore + stabilityAlpha*consistency
}

// recentAverage is the mean of the last n scores (or all, if fewer).
func (ls *LearningState) recentAverage(n int) float64 {
	window := ls.recentWindow(n)
	if len(window) == 0 {
		return 0
	}
	var sum float64
	for _, s := range window {
		sum += s
	}
	return sum / float64(len(window))
}

// recentVariance is the population variance of the last n scores.
func (ls *LearningState) recentVariance(n int) float64 {
	window := ls.recentWindow(n)
	if len(window) < 2 {
		return 0
	}
	var sum float64
	for _, s := range window {
		sum += s
	}
	mean := sum / float64(len(window))

	var variance float64
	for _, s := range window {
		variance += (s - mean) * (s - mean)
	}
	return variance / float64(len(window))
}

func (ls *LearningState) recentWindow(n int) []float64 {
	if len(ls.PerformanceHistory) <= n {
		return ls.PerformanceHistory
	}
	return ls.PerformanceHistory[len(ls.PerformanceHistory)-n:]
}

// clone returns a point-in-time copy for reporting.
func (ls *LearningState) clone() LearningState {
	out := *ls
	out.PerformanceHistory = append([]float64(nil), ls.PerformanceHistory...)
	if ls.LastOptimizationAt != nil {
		t := *ls.LastOptimizationAt
		out.LastOptimizationAt = &t
	}
	return out
}
