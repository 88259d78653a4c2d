package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ComplianceRelish/lexassist-backend/internal/logger"
	"github.com/ComplianceRelish/lexassist-backend/internal/types"
)

type BriefRepo interface {
	Create(ctx context.Context, tx *gorm.DB, briefs []*types.Brief) ([]*types.Brief, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Brief, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
}

type briefRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBriefRepo(db *gorm.DB, baseLog *logger.Logger) BriefRepo {
	return &briefRepo{
		db:  db,
		log: baseLog.With("repo", "BriefRepo"),
	}
}

func (r *briefRepo) Create(ctx context.Context, tx *gorm.DB, briefs []*types.Brief) ([]*types.Brief, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(briefs) == 0 {
		return []*types.Brief{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&briefs).Error; err != nil {
		return nil, err
	}
	return briefs, nil
}

func (r *briefRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Brief, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Brief
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *briefRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Brief{}).
		Where("id = ?", id).
		Updates(updates).Error
}
