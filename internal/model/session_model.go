package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ProfileSession persists one evidence-profile configuration session. The
// composite fields live as jsonb: the store contract is atomic per record and
// the core never queries inside them.
type ProfileSession struct {
	Id              uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Owner           string         `gorm:"type:varchar(255);not null;index"`
	CurrentPhase    string         `gorm:"type:varchar(32);not null;index"`
	Cancelled       bool           `gorm:"default:false"`
	Product         datatypes.JSON `gorm:"type:jsonb;not null"`
	PhaseProgress   datatypes.JSON `gorm:"type:jsonb"`
	Discovery       datatypes.JSON `gorm:"type:jsonb"`
	Recommendations datatypes.JSON `gorm:"type:jsonb"`
	ResearchReports datatypes.JSON `gorm:"type:jsonb"`
	Brief           string         `gorm:"type:text"`
	SourceApprovals datatypes.JSON `gorm:"type:jsonb"`
	AuditLog        datatypes.JSON `gorm:"type:jsonb"`
	Feedback        datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt       time.Time      `gorm:"autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime"`
}

func (ProfileSession) TableName() string {
	return "profile_sessions"
}
