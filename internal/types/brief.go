package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Brief struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	CaseID    *uuid.UUID     `gorm:"type:uuid;index" json:"case_id,omitempty"`
	Text      string         `gorm:"column:text;type:text;not null" json:"text"`
	Analysis  datatypes.JSON `gorm:"type:jsonb;column:analysis" json:"analysis,omitempty"`
	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;index" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Brief) TableName() string { return "brief" }
