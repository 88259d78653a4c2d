package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ComplianceRelish/lexassist-backend/internal/logger"
	"github.com/ComplianceRelish/lexassist-backend/internal/repos"
	"github.com/ComplianceRelish/lexassist-backend/internal/requestdata"
	"github.com/ComplianceRelish/lexassist-backend/internal/types"
)

// CaseDiaryService stores reconciled analysis results as case timeline
// entries. Invoked only after a session settles, never mid-flight.
type CaseDiaryService interface {
	AddEntry(ctx context.Context, caseID, userID uuid.UUID, briefID *uuid.UUID, entryType string, payload any) error
	GetTimeline(ctx context.Context, caseID uuid.UUID) ([]*types.CaseDiaryEntry, error)
}

type caseDiaryService struct {
	db   *gorm.DB
	log  *logger.Logger
	repo repos.CaseDiaryRepo
}

func NewCaseDiaryService(db *gorm.DB, baseLog *logger.Logger, repo repos.CaseDiaryRepo) CaseDiaryService {
	return &caseDiaryService{
		db:   db,
		log:  baseLog.With("service", "CaseDiaryService"),
		repo: repo,
	}
}

func (s *caseDiaryService) AddEntry(ctx context.Context, caseID, userID uuid.UUID, briefID *uuid.UUID, entryType string, payload any) error {
	if caseID == uuid.Nil || userID == uuid.Nil {
		return fmt.Errorf("missing case or user id")
	}
	entry := &types.CaseDiaryEntry{
		ID:        uuid.New(),
		CaseID:    caseID,
		UserID:    userID,
		BriefID:   briefID,
		EntryType: entryType,
		Payload:   datatypes.JSON(mustJSON(payload)),
		CreatedAt: time.Now(),
	}
	if _, err := s.repo.Create(ctx, nil, []*types.CaseDiaryEntry{entry}); err != nil {
		return fmt.Errorf("create diary entry: %w", err)
	}
	return nil
}

func (s *caseDiaryService) GetTimeline(ctx context.Context, caseID uuid.UUID) ([]*types.CaseDiaryEntry, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("not authenticated")
	}
	if caseID == uuid.Nil {
		return nil, fmt.Errorf("missing case id")
	}
	entries, err := s.repo.GetByCaseID(ctx, nil, caseID)
	if err != nil {
		return nil, err
	}
	out := make([]*types.CaseDiaryEntry, 0, len(entries))
	for _, e := range entries {
		if e != nil && e.UserID == rd.UserID {
			out = append(out, e)
		}
	}
	return out, nil
}
