// Package budget fits rendered curation output into a hard content
// budget by prioritized dropping and compression of sections.
//
// Each section carries a priority derived from its kind, length and
// confidence. Compression escalates with the overage ratio; critical
// sections are only ever lightly compressed and never dropped, so at
// least one non-empty section always survives.
package budget

import (
	"strings"
)

// Priority orders sections from most to least protected.
type Priority int

const (
	PriorityOptional Priority = iota
	PriorityLow
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

// String returns the priority name.
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return "optional"
	}
}

// Section kinds of a rendered curation result.
const (
	KindCoreMemories = "core_memories"
	KindSummary      = "summary"
	KindContext      = "context"
	KindSupporting   = "supporting"
	KindMetadata     = "metadata"
)

// kindPriorities assigns the base priority per section kind. Unknown
// kinds default to medium.
var kindPriorities = map[string]Priority{
	KindCoreMemories: PriorityCritical,
	KindSummary:      PriorityHigh,
	KindContext:      PriorityMedium,
	KindSupporting:   PriorityLow,
	KindMetadata:     PriorityOptional,
}

// Section is one rendered block of curated content.
type Section struct {
	// Kind names what the section holds (see the Kind constants).
	Kind string `json:"kind"`

	// Content is the rendered text.
	Content string `json:"content"`

	// Confidence is the mean confidence of the memories the section was
	// rendered from, in [0,1].
	Confidence float64 `json:"confidence"`
}

// Priority derives the section's effective priority: the kind's base
// priority, raised one level for high-confidence content and lowered one
// for oversized low-confidence content. Critical never moves.
func (s Section) Priority() Priority {
	base, ok := kindPriorities[s.Kind]
	if !ok {
		base = PriorityMedium
	}
	if base == PriorityCritical {
		return base
	}
	if s.Confidence > 0.8 && base < PriorityHigh {
		base++
	}
	if len(s.Content) > 2000 && s.Confidence < 0.5 && base > PriorityOptional {
		base--
	}
	return base
}

// Level is how hard the controller compresses.
type Level string

const (
	LevelNone       Level = "none"
	LevelLight      Level = "light"
	LevelModerate   Level = "moderate"
	LevelAggressive Level = "aggressive"
	LevelExtreme    Level = "extreme"
)

// levelForRatio maps the overage ratio to a compression level, optionally
// downgraded one step when quality preservation is requested.
func levelForRatio(ratio float64, preserveQuality bool) Level {
	var level Level
	switch {
	case ratio <= 1.0:
		return LevelNone
	case ratio <= 1.2:
		level = LevelLight
	case ratio <= 1.5:
		level = LevelModerate
	case ratio <= 2.0:
		level = LevelAggressive
	default:
		level = LevelExtreme
	}
	if preserveQuality {
		switch level {
		case LevelExtreme:
			level = LevelAggressive
		case LevelAggressive:
			level = LevelModerate
		case LevelModerate:
			level = LevelLight
		}
	}
	return level
}

// CompressionReport describes what one Fit call did.
type CompressionReport struct {
	// Level is the chosen compression level.
	Level Level `json:"level"`

	// OriginalLength and CompressedLength are total content lengths in
	// characters.
	OriginalLength   int `json:"original_length"`
	CompressedLength int `json:"compressed_length"`

	// SectionsKept and SectionsDropped count the outcome per section.
	SectionsKept    int `json:"sections_kept"`
	SectionsDropped int `json:"sections_dropped"`

	// PreservationRatio is CompressedLength / OriginalLength.
	PreservationRatio float64 `json:"preservation_ratio"`

	// QualityScore estimates how much value the output retains, in [0,1].
	QualityScore float64 `json:"quality_score"`
}

// levelBaseScores feed the quality-score formula.
var levelBaseScores = map[Level]float64{
	LevelNone:       1.0,
	LevelLight:      0.9,
	LevelModerate:   0.75,
	LevelAggressive: 0.6,
	LevelExtreme:    0.4,
}

// Controller fits rendered sections into a character budget.
type Controller struct {
	// PreserveQuality downgrades the chosen compression level one step.
	PreserveQuality bool
}

// NewController creates a budget controller.
func NewController(preserveQuality bool) *Controller {
	return &Controller{PreserveQuality: preserveQuality}
}

// Fit compresses sections to the budget. Already-fitting input is
// returned untouched. Dropping proceeds from optional upward; critical
// sections are only lightly compressed and never dropped.
func (c *Controller) Fit(sections []Section, budget int) ([]Section, *CompressionReport) {
	original := totalLength(sections)
	report := &CompressionReport{
		Level:          LevelNone,
		OriginalLength: original,
	}

	if budget <= 0 || original <= budget {
		report.CompressedLength = original
		report.SectionsKept = len(sections)
		report.PreservationRatio = 1.0
		report.QualityScore = qualityScore(report.Level, 1.0, len(sections))
		return sections, report
	}

	ratio := float64(original) / float64(budget)
	level := levelForRatio(ratio, c.PreserveQuality)
	report.Level = level

	kept := applyLevel(sections, level)
	kept = enforceBudget(kept, budget)

	compressed := totalLength(kept)
	report.CompressedLength = compressed
	report.SectionsKept = len(kept)
	report.SectionsDropped = len(sections) - len(kept)
	if original > 0 {
		report.PreservationRatio = float64(compressed) / float64(original)
	}
	report.QualityScore = qualityScore(level, report.PreservationRatio, len(kept))
	return kept, report
}

// applyLevel performs the per-level drop/compress schedule.
func applyLevel(sections []Section, level Level) []Section {
	out := make([]Section, 0, len(sections))
	for _, s := range sections {
		p := s.Priority()
		switch level {
		case LevelLight:
			if p == PriorityOptional {
				continue
			}
			if p == PriorityLow {
				s.Content = shorten(s.Content, 7, 10)
			}
		case LevelModerate:
			if p == PriorityOptional {
				continue
			}
			if p == PriorityLow {
				s.Content = shorten(s.Content, 1, 2)
			}
			if p == PriorityMedium {
				s.Content = shorten(s.Content, 7, 10)
			}
		case LevelAggressive:
			if p <= PriorityLow {
				continue
			}
			if p == PriorityMedium {
				s.Content = shorten(s.Content, 2, 5)
			}
			if p == PriorityHigh {
				s.Content = shorten(s.Content, 7, 10)
			}
		case LevelExtreme:
			if p <= PriorityMedium {
				continue
			}
			if p == PriorityHigh {
				s.Content = shorten(s.Content, 1, 4)
			}
		}
		if p == PriorityCritical {
			// Critical content is only ever lightly compressed.
			s.Content = shorten(s.Content, 9, 10)
		}
		if s.Content == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

// enforceBudget drops or truncates remaining sections, lowest priority
// first, until the total fits. A lone critical section is truncated to
// the budget but never emptied.
func enforceBudget(sections []Section, budget int) []Section {
	for totalLength(sections) > budget {
		idx := lowestNonCritical(sections)
		if idx < 0 {
			// Only critical sections remain.
			for i := range sections {
				share := budget / len(sections)
				if share < 1 {
					share = 1
				}
				sections[i].Content = truncate(sections[i].Content, share)
			}
			return sections
		}
		sections = append(sections[:idx], sections[idx+1:]...)
	}
	return sections
}

func lowestNonCritical(sections []Section) int {
	idx := -1
	lowest := PriorityCritical
	for i, s := range sections {
		if p := s.Priority(); p < PriorityCritical && (idx < 0 || p < lowest) {
			idx = i
			lowest = p
		}
	}
	return idx
}

func qualityScore(level Level, preservation float64, kept int) float64 {
	score := levelBaseScores[level] * (0.5 + 0.5*preservation)
	if kept >= 3 {
		score *= 1.1
	}
	if score > 1 {
		score = 1
	}
	return score
}

func totalLength(sections []Section) int {
	total := 0
	for _, s := range sections {
		total += len(s.Content)
	}
	return total
}

// shorten keeps roughly num/den of the content, cutting at a word
// boundary.
func shorten(content string, num, den int) string {
	target := len(content) * num / den
	return truncate(content, target)
}

// truncate cuts content to at most n characters at a word boundary,
// keeping at least one word.
func truncate(content string, n int) string {
	if len(content) <= n {
		return content
	}
	if n <= 0 {
		n = 1
	}
	cut := content[:n]
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut)
}
