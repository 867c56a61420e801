package entity

// ConfidenceLevel is the qualitative bucket derived from a numeric score.
type ConfidenceLevel string

const (
	ConfidenceHigh         ConfidenceLevel = "HIGH"
	ConfidenceModerate     ConfidenceLevel = "MODERATE"
	ConfidenceLow          ConfidenceLevel = "LOW"
	ConfidenceInsufficient ConfidenceLevel = "INSUFFICIENT"
)

// Factors holds the five weighted factor values, each in [0,1].
type Factors struct {
	Completeness float64 `json:"completeness"`
	Recency      float64 `json:"recency"`
	Diversity    float64 `json:"diversity"`
	Relevance    float64 `json:"relevance"`
	Quality      float64 `json:"quality"`
}

// Score is a multi-factor confidence assessment for one evidence category, or
// an aggregate across categories.
type Score struct {
	Overall     float64         `json:"overall"`
	Level       ConfidenceLevel `json:"level"`
	Factors     Factors         `json:"factors"`
	Explanation string          `json:"explanation"`
	Methodology string          `json:"methodology"`
}
