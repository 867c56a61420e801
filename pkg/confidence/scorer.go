package confidence

import (
	"fmt"

	"evidence-intel-be/internal/entity"
)

// Factor weights for a single category score.
const (
	WeightCompleteness = 0.30
	WeightRecency      = 0.25
	WeightDiversity    = 0.20
	WeightRelevance    = 0.15
	WeightQuality      = 0.10
)

// Aggregate weights across the four evidence categories.
const (
	AggregateLiterature = 0.30
	AggregateTrials     = 0.30
	AggregateRegistry   = 0.25
	AggregateRegulatory = 0.15
)

// Level thresholds.
const (
	ThresholdHigh     = 0.80
	ThresholdModerate = 0.60
	ThresholdLow      = 0.40
)

const methodology = "weighted factors: completeness 30%, recency 25%, diversity 20%, relevance 15%, quality 10%"

// Input carries the per-category counts the heuristics run on. Zero values are
// legal: absent input produces low factor values, never an error.
type Input struct {
	Category    entity.SourceType
	Found       int
	MinExpected int // minimum count considered sufficient
	MaxExpected int // count at which completeness saturates
	RecentCount int // items within the recent-year window
	Kinds       []string
	TargetKinds int // distinct sub-kinds expected for full diversity
	Relevance   []float64
	HighQuality int
}

// FromItems fills the item-derived fields of an Input from evidence items.
// recentSince is the first year still counted as recent.
func (in *Input) FromItems(items []entity.EvidenceItem, recentSince int) {
	in.Found = len(items)
	for _, item := range items {
		if item.Year >= recentSince {
			in.RecentCount++
		}
		if item.Kind != "" {
			in.Kinds = append(in.Kinds, item.Kind)
		}
		in.Relevance = append(in.Relevance, item.Relevance)
		if item.HighQuality {
			in.HighQuality++
		}
	}
}

// Score computes the multi-factor confidence for one category. Pure and
// I/O-free; the caller owns gathering the counts.
func Score(in Input) *entity.Score {
	factors := entity.Factors{
		Completeness: completeness(in),
		Recency:      fraction(in.RecentCount, in.Found),
		Diversity:    diversity(in),
		Relevance:    mean(in.Relevance),
		Quality:      fraction(in.HighQuality, in.Found),
	}

	overall := clamp(factors.Completeness*WeightCompleteness +
		factors.Recency*WeightRecency +
		factors.Diversity*WeightDiversity +
		factors.Relevance*WeightRelevance +
		factors.Quality*WeightQuality)

	return &entity.Score{
		Overall:     overall,
		Level:       levelFor(overall),
		Factors:     factors,
		Explanation: explain(in, factors, overall),
		Methodology: methodology,
	}
}

// Combine aggregates the four category scores with the aggregate weights.
// Missing categories contribute zero, which pulls the aggregate down rather
// than erroring out.
func Combine(literature, trials, registry, regulatory *entity.Score) *entity.Score {
	overall := clamp(overallOf(literature)*AggregateLiterature +
		overallOf(trials)*AggregateTrials +
		overallOf(registry)*AggregateRegistry +
		overallOf(regulatory)*AggregateRegulatory)

	return &entity.Score{
		Overall: overall,
		Level:   levelFor(overall),
		Explanation: fmt.Sprintf(
			"Aggregate evidence confidence %.2f (%s) across literature %.2f, trials %.2f, registry %.2f, regulatory %.2f.",
			overall, levelFor(overall), overallOf(literature), overallOf(trials), overallOf(registry), overallOf(regulatory)),
		Methodology: "weighted mean of category scores: literature 30%, trials 30%, registry 25%, regulatory 15%",
	}
}

func overallOf(s *entity.Score) float64 {
	if s == nil {
		return 0
	}
	return s.Overall
}

// completeness = min(found/minExpected*0.7 + found/maxExpected*0.3, 1)
func completeness(in Input) float64 {
	if in.Found <= 0 {
		return 0
	}
	minPart := 1.0
	if in.MinExpected > 0 {
		minPart = float64(in.Found) / float64(in.MinExpected)
		if minPart > 1 {
			minPart = 1
		}
	}
	maxPart := 1.0
	if in.MaxExpected > 0 {
		maxPart = float64(in.Found) / float64(in.MaxExpected)
		if maxPart > 1 {
			maxPart = 1
		}
	}
	return clamp(minPart*0.7 + maxPart*0.3)
}

func diversity(in Input) float64 {
	if in.TargetKinds <= 0 {
		return 0
	}
	distinct := make(map[string]struct{}, len(in.Kinds))
	for _, k := range in.Kinds {
		distinct[k] = struct{}{}
	}
	return clamp(float64(len(distinct)) / float64(in.TargetKinds))
}

func fraction(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return clamp(float64(part) / float64(whole))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return clamp(sum / float64(len(values)))
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func levelFor(overall float64) entity.ConfidenceLevel {
	switch {
	case overall >= ThresholdHigh:
		return entity.ConfidenceHigh
	case overall >= ThresholdModerate:
		return entity.ConfidenceModerate
	case overall >= ThresholdLow:
		return entity.ConfidenceLow
	default:
		return entity.ConfidenceInsufficient
	}
}

func explain(in Input, f entity.Factors, overall float64) string {
	return fmt.Sprintf(
		"%s confidence %.2f (%s): %d items found (completeness %.2f), %d recent (recency %.2f), diversity %.2f across %d expected kinds, mean relevance %.2f, %d high-quality (quality %.2f).",
		in.Category, overall, levelFor(overall),
		in.Found, f.Completeness,
		in.RecentCount, f.Recency,
		f.Diversity, in.TargetKinds,
		f.Relevance,
		in.HighQuality, f.Quality,
	)
}
