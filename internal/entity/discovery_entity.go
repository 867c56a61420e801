package entity

import "time"

// SourceType identifies one discovery category / evidence source family.
type SourceType string

const (
	SourceLiterature  SourceType = "literature"
	SourceRegulatory  SourceType = "regulatory"
	SourceRegistry    SourceType = "registry"
	SourceCompetitive SourceType = "competitive"
	SourceTrials      SourceType = "trials"
	SourcePhaseIntel  SourceType = "phase_intelligence"
	SourceClinical    SourceType = "clinical_study"
)

// SourceStatus classifies the outcome of one discovery task.
type SourceStatus string

const (
	SourceCompleted SourceStatus = "completed"
	SourcePartial   SourceStatus = "partial"
	SourceFailed    SourceStatus = "failed"
	SourceTimeout   SourceStatus = "timeout"
)

// EvidenceItem is one unit of evidence returned by a collector (a paper, a
// trial record, an adverse-event report, a registry annual report entry).
type EvidenceItem struct {
	Id          string  `json:"id"`
	Title       string  `json:"title"`
	Kind        string  `json:"kind"` // sub-kind inside a category, feeds diversity scoring
	Year        int     `json:"year"`
	Relevance   float64 `json:"relevance"` // 0..1 keyword-match ratio
	HighQuality bool    `json:"high_quality"`
	URL         string  `json:"url,omitempty"`
}

// SourcePayload is what a collector hands back on success. Partial means some
// sub-queries inside the collector failed while others returned data.
type SourcePayload struct {
	Items   []EvidenceItem `json:"items"`
	Partial bool           `json:"partial"`
	Notes   []string       `json:"notes,omitempty"`
}

// SourceResult is the classified outcome of one discovery category after the
// join barrier.
type SourceResult struct {
	Source     SourceType     `json:"source"`
	Status     SourceStatus   `json:"status"`
	Items      []EvidenceItem `json:"items,omitempty"`
	ItemsFound int            `json:"items_found"`
	Error      string         `json:"error,omitempty"`
	ElapsedMs  int64          `json:"elapsed_ms"`
}

// DiscoveryResult aggregates every category after all tasks reached a terminal
// state. Success is always true: partial data plus an errors list is preferred
// over an all-or-nothing failure.
type DiscoveryResult struct {
	Status      string          `json:"status"` // completed | partial
	Sources     []*SourceResult `json:"sources"`
	Errors      []string        `json:"errors"`
	Progress    int             `json:"progress"`
	CompletedAt time.Time       `json:"completed_at"`
}

// SourceByType looks a category up in the aggregate. Nil when the category
// never ran (e.g. phase intelligence without a study phase).
func (d *DiscoveryResult) SourceByType(t SourceType) *SourceResult {
	for _, s := range d.Sources {
		if s.Source == t {
			return s
		}
	}
	return nil
}

// RecommendedSource is one evidence source proposed to the steward.
type RecommendedSource struct {
	Type            SourceType     `json:"type"`
	Id              string         `json:"id"`
	Name            string         `json:"name"`
	Rationale       string         `json:"rationale"`
	ExclusionReason string         `json:"exclusion_reason,omitempty"` // non-empty seeds a rejected approval
	Confidence      *Score         `json:"confidence,omitempty"`
	Items           []EvidenceItem `json:"items,omitempty"`
}

// RecommendationSet is the output of the recommendations phase.
type RecommendationSet struct {
	Sources     []*RecommendedSource `json:"sources"`
	Overall     *Score               `json:"overall"`
	GeneratedAt time.Time            `json:"generated_at"`
}
