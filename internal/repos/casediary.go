package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ComplianceRelish/lexassist-backend/internal/logger"
	"github.com/ComplianceRelish/lexassist-backend/internal/types"
)

type CaseDiaryRepo interface {
	Create(ctx context.Context, tx *gorm.DB, entries []*types.CaseDiaryEntry) ([]*types.CaseDiaryEntry, error)
	GetByCaseID(ctx context.Context, tx *gorm.DB, caseID uuid.UUID) ([]*types.CaseDiaryEntry, error)
}

type caseDiaryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCaseDiaryRepo(db *gorm.DB, baseLog *logger.Logger) CaseDiaryRepo {
	return &caseDiaryRepo{
		db:  db,
		log: baseLog.With("repo", "CaseDiaryRepo"),
	}
}

func (r *caseDiaryRepo) Create(ctx context.Context, tx *gorm.DB, entries []*types.CaseDiaryEntry) ([]*types.CaseDiaryEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(entries) == 0 {
		return []*types.CaseDiaryEntry{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *caseDiaryRepo) GetByCaseID(ctx context.Context, tx *gorm.DB, caseID uuid.UUID) ([]*types.CaseDiaryEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.CaseDiaryEntry
	if caseID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
