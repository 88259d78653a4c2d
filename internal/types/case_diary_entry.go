package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CaseDiaryEntry struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CaseID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"case_id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	BriefID   *uuid.UUID     `gorm:"type:uuid;index" json:"brief_id,omitempty"`
	EntryType string         `gorm:"column:entry_type;not null;index" json:"entry_type"` // analysis|deep_dive
	Payload   datatypes.JSON `gorm:"type:jsonb;column:payload" json:"payload"`
	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (CaseDiaryEntry) TableName() string { return "case_diary_entry" }
