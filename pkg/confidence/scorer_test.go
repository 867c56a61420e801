package confidence

import (
	"testing"

	"evidence-intel-be/internal/entity"

	"github.com/stretchr/testify/assert"
)

func TestScoreEmptyInputIsInsufficient(t *testing.T) {
	score := Score(Input{
		Category:    entity.SourceLiterature,
		Found:       0,
		MinExpected: 10,
		MaxExpected: 50,
		TargetKinds: 5,
	})

	assert.Equal(t, entity.ConfidenceInsufficient, score.Level)
	assert.Less(t, score.Overall, ThresholdLow)
	assert.Zero(t, score.Factors.Completeness)
	assert.Zero(t, score.Factors.Recency)
	assert.NotEmpty(t, score.Explanation)
	assert.NotEmpty(t, score.Methodology)
}

func TestScoreRichLiteratureIsHigh(t *testing.T) {
	relevance := make([]float64, 150)
	for i := range relevance {
		relevance[i] = 0.9
	}

	score := Score(Input{
		Category:    entity.SourceLiterature,
		Found:       150,
		MinExpected: 10,
		MaxExpected: 100,
		RecentCount: 120,
		Kinds:       []string{"rct", "meta_analysis", "cohort", "case_series", "systematic_review"},
		TargetKinds: 5,
		Relevance:   relevance,
		HighQuality: 90,
	})

	assert.Equal(t, entity.ConfidenceHigh, score.Level)
	assert.GreaterOrEqual(t, score.Overall, ThresholdHigh)
}

func TestScoreFactorsStayClamped(t *testing.T) {
	score := Score(Input{
		Category:    entity.SourceTrials,
		Found:       500,
		MinExpected: 1,
		MaxExpected: 1,
		RecentCount: 500,
		Kinds:       []string{"a", "b", "c", "d", "e", "f"},
		TargetKinds: 2,
		Relevance:   []float64{1.5, 0.9}, // dirty upstream value must not escape [0,1]
		HighQuality: 500,
	})

	assert.LessOrEqual(t, score.Overall, 1.0)
	assert.LessOrEqual(t, score.Factors.Diversity, 1.0)
	assert.LessOrEqual(t, score.Factors.Relevance, 1.0)
}

func TestScoreModerateBand(t *testing.T) {
	score := Score(Input{
		Category:    entity.SourceRegulatory,
		Found:       8,
		MinExpected: 10,
		MaxExpected: 40,
		RecentCount: 6,
		Kinds:       []string{"recall", "adverse_event"},
		TargetKinds: 4,
		Relevance:   []float64{0.7, 0.6, 0.8, 0.7, 0.6, 0.7, 0.8, 0.6},
		HighQuality: 4,
	})

	assert.Equal(t, entity.ConfidenceModerate, score.Level)
	assert.GreaterOrEqual(t, score.Overall, ThresholdModerate)
	assert.Less(t, score.Overall, ThresholdHigh)
}

func TestCombineWeightsCategories(t *testing.T) {
	high := &entity.Score{Overall: 0.9}
	low := &entity.Score{Overall: 0.2}

	agg := Combine(high, high, high, high)
	assert.InDelta(t, 0.9, agg.Overall, 1e-9)
	assert.Equal(t, entity.ConfidenceHigh, agg.Level)

	mixed := Combine(high, low, low, nil)
	// 0.9*0.3 + 0.2*0.3 + 0.2*0.25 + 0*0.15
	assert.InDelta(t, 0.38, mixed.Overall, 1e-9)
	assert.Equal(t, entity.ConfidenceInsufficient, mixed.Level)

	t.Run("nil categories never panic", func(t *testing.T) {
		agg := Combine(nil, nil, nil, nil)
		assert.Zero(t, agg.Overall)
		assert.Equal(t, entity.ConfidenceInsufficient, agg.Level)
	})
}

func TestFromItemsDerivesCounts(t *testing.T) {
	items := []entity.EvidenceItem{
		{Kind: "rct", Year: 2025, Relevance: 0.8, HighQuality: true},
		{Kind: "rct", Year: 2018, Relevance: 0.6},
		{Kind: "cohort", Year: 2024, Relevance: 0.7},
	}

	in := Input{Category: entity.SourceLiterature, TargetKinds: 4}
	in.FromItems(items, 2021)

	assert.Equal(t, 3, in.Found)
	assert.Equal(t, 2, in.RecentCount)
	assert.Equal(t, 1, in.HighQuality)
	assert.Len(t, in.Relevance, 3)

	score := Score(in)
	assert.InDelta(t, 0.5, score.Factors.Diversity, 1e-9) // 2 of 4 kinds
}
