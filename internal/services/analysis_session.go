package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ComplianceRelish/lexassist-backend/internal/analysis"
	"github.com/ComplianceRelish/lexassist-backend/internal/logger"
	"github.com/ComplianceRelish/lexassist-backend/internal/repos"
	"github.com/ComplianceRelish/lexassist-backend/internal/requestdata"
	"github.com/ComplianceRelish/lexassist-backend/internal/sse"
	"github.com/ComplianceRelish/lexassist-backend/internal/types"
)

// AnalysisSessionService binds one orchestrator to each open brief and wires
// its side effects: SSE broadcast of progress and settlement, persistence of
// the reconciled result on the brief row, and case-diary entries once a
// result settles against a case.
type AnalysisSessionService interface {
	CreateBrief(ctx context.Context, caseID *uuid.UUID, text string) (*types.Brief, error)
	SetText(ctx context.Context, briefID uuid.UUID, text string) error
	AppendText(ctx context.Context, briefID uuid.UUID, text string, source analysis.Source) (string, error)
	Submit(ctx context.Context, briefID uuid.UUID, mode analysis.Mode) (analysis.Snapshot, error)
	Snapshot(ctx context.Context, briefID uuid.UUID) (analysis.Snapshot, error)
	StartDeepDive(ctx context.Context, briefID uuid.UUID) error
	Cancel(ctx context.Context, briefID uuid.UUID) error
	CloseSession(briefID uuid.UUID)
}

type analysisSession struct {
	userID uuid.UUID
	caseID *uuid.UUID
	buffer *analysis.Buffer
	orch   *analysis.Orchestrator
}

type analysisSessionService struct {
	db  *gorm.DB
	log *logger.Logger

	sseHub sse.Broadcaster

	briefRepo repos.BriefRepo
	basic     BasicAnalysisService
	ai        AIAnalysisService
	deepDive  DeepDiveService
	diary     CaseDiaryService

	pollInterval time.Duration

	mu       sync.Mutex
	sessions map[uuid.UUID]*analysisSession
}

func NewAnalysisSessionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	sseHub sse.Broadcaster,
	briefRepo repos.BriefRepo,
	basic BasicAnalysisService,
	ai AIAnalysisService,
	deepDive DeepDiveService,
	diary CaseDiaryService,
	pollInterval time.Duration,
) AnalysisSessionService {
	return &analysisSessionService{
		db:           db,
		log:          baseLog.With("service", "AnalysisSessionService"),
		sseHub:       sseHub,
		briefRepo:    briefRepo,
		basic:        basic,
		ai:           ai,
		deepDive:     deepDive,
		diary:        diary,
		pollInterval: pollInterval,
		sessions:     make(map[uuid.UUID]*analysisSession),
	}
}

func (s *analysisSessionService) CreateBrief(ctx context.Context, caseID *uuid.UUID, text string) (*types.Brief, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("not authenticated")
	}

	now := time.Now()
	brief := &types.Brief{
		ID:        uuid.New(),
		UserID:    rd.UserID,
		CaseID:    caseID,
		Text:      text,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.briefRepo.Create(ctx, nil, []*types.Brief{brief}); err != nil {
		return nil, fmt.Errorf("create brief: %w", err)
	}

	s.mu.Lock()
	s.sessions[brief.ID] = s.newSession(brief)
	s.mu.Unlock()

	return brief, nil
}

func (s *analysisSessionService) SetText(ctx context.Context, briefID uuid.UUID, text string) error {
	sess, err := s.session(ctx, briefID)
	if err != nil {
		return err
	}
	sess.buffer.SetText(text)
	return s.briefRepo.UpdateFields(ctx, nil, briefID, map[string]interface{}{
		"text":       text,
		"updated_at": time.Now(),
	})
}

// AppendText is the entry point for the transcription and document
// producers. Producer output is appended, never overwritten, and is treated
// exactly like manual typing from then on.
func (s *analysisSessionService) AppendText(ctx context.Context, briefID uuid.UUID, text string, source analysis.Source) (string, error) {
	sess, err := s.session(ctx, briefID)
	if err != nil {
		return "", err
	}
	sess.buffer.Append(text, source)
	full := sess.buffer.Text()
	if err := s.briefRepo.UpdateFields(ctx, nil, briefID, map[string]interface{}{
		"text":       full,
		"updated_at": time.Now(),
	}); err != nil {
		return "", err
	}
	return full, nil
}

func (s *analysisSessionService) Submit(ctx context.Context, briefID uuid.UUID, mode analysis.Mode) (analysis.Snapshot, error) {
	sess, err := s.session(ctx, briefID)
	if err != nil {
		return analysis.Snapshot{}, err
	}

	_, done, err := sess.orch.Submit(ctx, sess.buffer.Text(), mode)
	if err != nil {
		return analysis.Snapshot{}, err
	}

	if mode == analysis.ModeBasic {
		// The basic pass is synchronous request/response.
		select {
		case <-done:
		case <-ctx.Done():
			return analysis.Snapshot{}, ctx.Err()
		}
	}
	return sess.orch.Snapshot(), nil
}

func (s *analysisSessionService) Snapshot(ctx context.Context, briefID uuid.UUID) (analysis.Snapshot, error) {
	sess, err := s.session(ctx, briefID)
	if err != nil {
		return analysis.Snapshot{}, err
	}
	return sess.orch.Snapshot(), nil
}

func (s *analysisSessionService) StartDeepDive(ctx context.Context, briefID uuid.UUID) error {
	sess, err := s.session(ctx, briefID)
	if err != nil {
		return err
	}
	return sess.orch.StartDeepDive(ctx)
}

func (s *analysisSessionService) Cancel(ctx context.Context, briefID uuid.UUID) error {
	sess, err := s.session(ctx, briefID)
	if err != nil {
		return err
	}
	sess.orch.CancelActive()
	return nil
}

func (s *analysisSessionService) CloseSession(briefID uuid.UUID) {
	s.mu.Lock()
	sess, ok := s.sessions[briefID]
	if ok {
		delete(s.sessions, briefID)
	}
	s.mu.Unlock()
	if ok {
		sess.orch.CancelActive()
	}
}

// session returns the live session for briefID, restoring it from the brief
// row if the server restarted since the brief was created.
func (s *analysisSessionService) session(ctx context.Context, briefID uuid.UUID) (*analysisSession, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("not authenticated")
	}
	if briefID == uuid.Nil {
		return nil, fmt.Errorf("missing brief id")
	}

	s.mu.Lock()
	sess, ok := s.sessions[briefID]
	s.mu.Unlock()
	if ok {
		if sess.userID != rd.UserID {
			return nil, fmt.Errorf("brief not found")
		}
		return sess, nil
	}

	briefs, err := s.briefRepo.GetByIDs(ctx, nil, []uuid.UUID{briefID})
	if err != nil {
		return nil, fmt.Errorf("load brief: %w", err)
	}
	if len(briefs) == 0 || briefs[0] == nil || briefs[0].UserID != rd.UserID {
		return nil, fmt.Errorf("brief not found")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[briefID]; ok {
		return existing, nil
	}
	sess = s.newSession(briefs[0])
	s.sessions[briefID] = sess
	return sess, nil
}

func (s *analysisSessionService) newSession(brief *types.Brief) *analysisSession {
	userID := brief.UserID
	briefID := brief.ID
	caseID := brief.CaseID

	hooks := analysis.Hooks{
		OnProgress: func(gen uint64, p types.AnalysisProgress) {
			s.broadcast(userID, sse.SSEEventBriefAnalysisProgress, map[string]any{
				"brief_id":         briefID,
				"generation":       gen,
				"step":             p.Step,
				"message":          p.Message,
				"percent_complete": p.PercentComplete,
			})
		},
		OnSettled: func(state analysis.State, result *types.AnalysisResult) {
			s.persistResult(briefID, userID, caseID, state, result)
			s.broadcast(userID, sse.SSEEventBriefAnalysisSettled, map[string]any{
				"brief_id": briefID,
				"state":    state,
				"result":   result,
			})
		},
		OnError: func(state analysis.State, err error) {
			event := sse.SSEEventBriefAnalysisFailed
			if state == analysis.StateDeepDiveRunning {
				event = sse.SSEEventDeepDiveFailed
			}
			s.broadcast(userID, event, map[string]any{
				"brief_id": briefID,
				"error":    err.Error(),
			})
		},
	}

	controller := analysis.NewDeepDiveController(
		s.log,
		&sessionDeepDiveAPI{svc: s.deepDive, userID: userID},
		s.pollInterval,
	)
	orch := analysis.NewOrchestrator(
		s.log,
		s.basic,
		&sessionAIAnalyzer{svc: s.ai, briefID: briefID, caseID: caseID},
		controller,
		hooks,
	)

	return &analysisSession{
		userID: userID,
		caseID: caseID,
		buffer: analysis.NewBuffer(brief.Text),
		orch:   orch,
	}
}

func (s *analysisSessionService) persistResult(briefID, userID uuid.UUID, caseID *uuid.UUID, state analysis.State, result *types.AnalysisResult) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := s.briefRepo.UpdateFields(ctx, nil, briefID, map[string]interface{}{
		"analysis":   datatypes.JSON(mustJSON(result)),
		"updated_at": time.Now(),
	}); err != nil {
		s.log.Warn("failed to persist analysis on brief", "briefID", briefID, "error", err)
	}

	if caseID == nil || *caseID == uuid.Nil {
		return
	}
	entryType := "analysis"
	if state == analysis.StateDeepDiveSettled {
		entryType = "deep_dive"
	}
	if err := s.diary.AddEntry(ctx, *caseID, userID, &briefID, entryType, result); err != nil {
		s.log.Warn("failed to add case diary entry", "caseID", *caseID, "error", err)
	}
}

func (s *analysisSessionService) broadcast(userID uuid.UUID, event sse.SSEEvent, data map[string]any) {
	if s.sseHub == nil {
		return
	}
	s.sseHub.Broadcast(sse.SSEMessage{
		Channel: userID.String(),
		Event:   event,
		Data:    data,
	})
}

// sessionAIAnalyzer binds the shared AI analysis service to one brief so a
// successful AI pass carries the brief id the deep dive needs.
type sessionAIAnalyzer struct {
	svc     AIAnalysisService
	briefID uuid.UUID
	caseID  *uuid.UUID
}

func (a *sessionAIAnalyzer) Analyze(ctx context.Context, text string, onProgress func(types.AnalysisProgress)) (*analysis.AIOutcome, error) {
	outcome, err := a.svc.Analyze(ctx, text, onProgress)
	if err != nil {
		return nil, err
	}
	if outcome.AI != nil {
		id := a.briefID
		outcome.AI.BriefID = &id
		if a.caseID != nil {
			cid := *a.caseID
			outcome.AI.CaseID = &cid
		}
	}
	return outcome, nil
}

// sessionDeepDiveAPI adapts the server-side deep-dive service to the
// controller's collaborator contract.
type sessionDeepDiveAPI struct {
	svc    DeepDiveService
	userID uuid.UUID
}

func (a *sessionDeepDiveAPI) Trigger(ctx context.Context, briefID uuid.UUID, caseID *uuid.UUID) error {
	_, err := a.svc.Trigger(ctx, a.userID, briefID, caseID)
	return err
}

func (a *sessionDeepDiveAPI) Status(ctx context.Context, briefID uuid.UUID) (*types.DeepDiveStatus, error) {
	return a.svc.Status(ctx, briefID)
}
