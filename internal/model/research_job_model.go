package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ResearchJob persists one background synthesis run.
type ResearchJob struct {
	Id           uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId    uuid.UUID      `gorm:"type:uuid;not null;index"`
	TargetId     string         `gorm:"type:varchar(255)"`
	Status       string         `gorm:"type:varchar(16);not null;index"`
	Progress     int            `gorm:"default:0"`
	CurrentStage string         `gorm:"type:varchar(64)"`
	Stages       datatypes.JSON `gorm:"type:jsonb"`
	Error        string         `gorm:"type:text"`
	Result       datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt    time.Time      `gorm:"autoCreateTime;index"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime"`
	CompletedAt  *time.Time
}

func (ResearchJob) TableName() string {
	return "research_jobs"
}
