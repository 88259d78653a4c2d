package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DeepDiveRun struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	BriefID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"brief_id"`
	CaseID      *uuid.UUID     `gorm:"type:uuid;index" json:"case_id,omitempty"`
	Status      string         `gorm:"column:status;not null;index" json:"status"` // queued|running|complete|error
	Pass        string         `gorm:"column:pass;not null" json:"pass"`           // issues|citations|synthesis|done
	Progress    int            `gorm:"column:progress;not null;default:0" json:"progress"`
	Attempts    int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	Error       string         `gorm:"column:error" json:"error"`
	LastErrorAt *time.Time     `gorm:"column:last_error_at" json:"last_error_at,omitempty"`
	LockedAt    *time.Time     `gorm:"column:locked_at;index" json:"locked_at,omitempty"`
	HeartbeatAt *time.Time     `gorm:"column:heartbeat_at;index" json:"heartbeat_at,omitempty"`
	Analysis    datatypes.JSON `gorm:"type:jsonb;column:analysis" json:"analysis,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;index" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (DeepDiveRun) TableName() string { return "deep_dive_run" }
