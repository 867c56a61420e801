package entity

import (
	"time"

	"github.com/google/uuid"
)

// Phase is one step of the profile configuration lifecycle.
type Phase string

const (
	PhaseContextCapture  Phase = "context_capture"
	PhaseDiscovery       Phase = "discovery"
	PhaseRecommendations Phase = "recommendations"
	PhaseDeepResearch    Phase = "deep_research"
	PhaseComplete        Phase = "complete"
)

// PhaseOrder is the only legal progression. Index comparisons are used to
// reject backward transitions.
var PhaseOrder = []Phase{
	PhaseContextCapture,
	PhaseDiscovery,
	PhaseRecommendations,
	PhaseDeepResearch,
	PhaseComplete,
}

// PhaseIndex returns the position of p in PhaseOrder, or -1 for unknown phases.
func PhaseIndex(p Phase) int {
	for i, candidate := range PhaseOrder {
		if candidate == p {
			return i
		}
	}
	return -1
}

// PhaseStatus tracks per-phase completion independent of the current phase.
type PhaseStatus struct {
	Completed bool `json:"completed"`
	Percent   int  `json:"percent"`
}

// ProductDescriptor is the steward-supplied description of the data product
// being profiled.
type ProductDescriptor struct {
	Name         string   `json:"name"`
	Indication   string   `json:"indication"`
	Technologies []string `json:"technologies"`
	ProtocolId   string   `json:"protocol_id"`
	StudyPhase   string   `json:"study_phase"` // empty when no trial protocol applies
}

// FeedbackEntry is free-text steward feedback. It never changes approvals.
type FeedbackEntry struct {
	Text              string    `json:"text"`
	RequestReanalysis bool      `json:"request_reanalysis"`
	Actor             string    `json:"actor"`
	SubmittedAt       time.Time `json:"submitted_at"`
}

// Session is the evidence-profile configuration session. It is created at
// configuration start, mutated by every operation and persisted after each
// mutation. The store stays authoritative; the in-process cache is a front.
type Session struct {
	Id              uuid.UUID
	Owner           string
	Product         ProductDescriptor
	CurrentPhase    Phase
	PhaseProgress   map[Phase]*PhaseStatus
	Cancelled       bool
	Discovery       *DiscoveryResult
	Recommendations *RecommendationSet
	ResearchReports map[string]string // stage name -> report text
	Brief           string            // final intelligence brief
	SourceApprovals map[string]*SourceApproval
	AuditLog        []AuditEntry
	Feedback        []FeedbackEntry
	CreatedAt       time.Time
	UpdatedAt       *time.Time
}

// NewSession initializes a session at the start of configuration with every
// phase pending.
func NewSession(owner string, product ProductDescriptor) *Session {
	progress := make(map[Phase]*PhaseStatus, len(PhaseOrder))
	for _, p := range PhaseOrder {
		progress[p] = &PhaseStatus{}
	}
	return &Session{
		Id:              uuid.New(),
		Owner:           owner,
		Product:         product,
		CurrentPhase:    PhaseContextCapture,
		PhaseProgress:   progress,
		SourceApprovals: make(map[string]*SourceApproval),
		AuditLog:        make([]AuditEntry, 0),
		Feedback:        make([]FeedbackEntry, 0),
		ResearchReports: make(map[string]string),
		CreatedAt:       time.Now(),
	}
}

// SetPhaseProgress records progress for a phase. A phase is completed only at
// 100 percent.
func (s *Session) SetPhaseProgress(phase Phase, percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	status := s.PhaseProgress[phase]
	if status == nil {
		status = &PhaseStatus{}
		s.PhaseProgress[phase] = status
	}
	status.Percent = percent
	status.Completed = percent == 100
}

// AdvanceTo moves the current phase forward. Backward transitions are ignored:
// the phase never regresses, re-invoking an operation just re-runs it.
func (s *Session) AdvanceTo(phase Phase) {
	if PhaseIndex(phase) > PhaseIndex(s.CurrentPhase) {
		s.CurrentPhase = phase
	}
}

// IsTerminal reports whether the session reached its final phase.
func (s *Session) IsTerminal() bool {
	return s.CurrentPhase == PhaseComplete
}

func (s *Session) Touch() {
	now := time.Now()
	s.UpdatedAt = &now
}
