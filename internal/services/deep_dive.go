package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	redisclients "github.com/ComplianceRelish/lexassist-backend/internal/clients/redis"
	"github.com/ComplianceRelish/lexassist-backend/internal/logger"
	"github.com/ComplianceRelish/lexassist-backend/internal/repos"
	"github.com/ComplianceRelish/lexassist-backend/internal/sse"
	"github.com/ComplianceRelish/lexassist-backend/internal/types"
)

// DeepDiveService owns the server side of the deep-dive job: triggering a
// run, reporting its status, and the worker loop that executes the
// multi-pass re-analysis in the background.
type DeepDiveService interface {
	Trigger(ctx context.Context, userID, briefID uuid.UUID, caseID *uuid.UUID) (*types.DeepDiveRun, error)
	Status(ctx context.Context, briefID uuid.UUID) (*types.DeepDiveStatus, error)
	StartWorker(ctx context.Context)
}

type deepDiveService struct {
	db  *gorm.DB
	log *logger.Logger

	sseHub sse.Broadcaster

	briefRepo repos.BriefRepo
	runRepo   repos.DeepDiveRunRepo

	ai   OpenAIClient
	lock redisclients.TriggerLock
}

func NewDeepDiveService(
	db *gorm.DB,
	baseLog *logger.Logger,
	sseHub sse.Broadcaster,
	briefRepo repos.BriefRepo,
	runRepo repos.DeepDiveRunRepo,
	ai OpenAIClient,
	lock redisclients.TriggerLock,
) DeepDiveService {
	return &deepDiveService{
		db:        db,
		log:       baseLog.With("service", "DeepDiveService"),
		sseHub:    sseHub,
		briefRepo: briefRepo,
		runRepo:   runRepo,
		ai:        ai,
		lock:      lock,
	}
}

// triggerLockTTL bounds how long a duplicate trigger is refused after the
// first one. Long enough to cover a normal run, short enough to self-heal
// if a run is lost.
const triggerLockTTL = 10 * time.Minute

func (s *deepDiveService) Trigger(ctx context.Context, userID, briefID uuid.UUID, caseID *uuid.UUID) (*types.DeepDiveRun, error) {
	if briefID == uuid.Nil {
		return nil, fmt.Errorf("missing brief id")
	}

	briefs, err := s.briefRepo.GetByIDs(ctx, nil, []uuid.UUID{briefID})
	if err != nil {
		return nil, fmt.Errorf("load brief: %w", err)
	}
	if len(briefs) == 0 || briefs[0] == nil || briefs[0].UserID != userID {
		return nil, fmt.Errorf("brief not found")
	}

	// Server-side dedup: the client guards against double triggers, but two
	// tabs or two replicas can still race the same brief.
	if s.lock != nil {
		acquired, lockErr := s.lock.Acquire(ctx, briefID, triggerLockTTL)
		if lockErr != nil {
			s.log.Warn("trigger lock unavailable, relying on run lookup", "error", lockErr)
		} else if !acquired {
			existing, exErr := s.runRepo.GetLatestByBriefID(ctx, nil, briefID)
			if exErr == nil && existing != nil && (existing.Status == "queued" || existing.Status == "running") {
				return existing, nil
			}
		}
	}

	existing, err := s.runRepo.GetLatestByBriefID(ctx, nil, briefID)
	if err != nil {
		return nil, fmt.Errorf("load latest run: %w", err)
	}
	if existing != nil && (existing.Status == "queued" || existing.Status == "running") {
		return existing, nil
	}

	now := time.Now()
	run := &types.DeepDiveRun{
		ID:        uuid.New(),
		UserID:    userID,
		BriefID:   briefID,
		CaseID:    caseID,
		Status:    "queued",
		Pass:      "issues",
		Progress:  0,
		Analysis:  datatypes.JSON([]byte(`{}`)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.runRepo.Create(ctx, nil, []*types.DeepDiveRun{run}); err != nil {
		return nil, fmt.Errorf("create deep dive run: %w", err)
	}

	s.broadcast(userID, sse.SSEEventDeepDiveStarted, map[string]any{
		"run_id":   run.ID,
		"brief_id": briefID,
	})
	return run, nil
}

func (s *deepDiveService) Status(ctx context.Context, briefID uuid.UUID) (*types.DeepDiveStatus, error) {
	if briefID == uuid.Nil {
		return nil, fmt.Errorf("missing brief id")
	}
	run, err := s.runRepo.GetLatestByBriefID(ctx, nil, briefID)
	if err != nil {
		return nil, fmt.Errorf("load latest run: %w", err)
	}
	if run == nil {
		return &types.DeepDiveStatus{Status: "idle"}, nil
	}

	st := &types.DeepDiveStatus{
		Progress: run.Progress,
		Pass:     run.Pass,
		Error:    run.Error,
	}
	switch run.Status {
	case "queued", "running":
		st.Status = "running"
	case "complete":
		st.Status = "complete"
		var payload types.DeepDiveAnalysis
		if err := json.Unmarshal(run.Analysis, &payload); err != nil {
			return nil, fmt.Errorf("decode run analysis: %w", err)
		}
		st.Analysis = &payload
	default:
		st.Status = "error"
	}
	return st, nil
}

func (s *deepDiveService) StartWorker(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()

		// Worker policy
		const maxAttempts = 3
		retryDelay := 30 * time.Second
		staleRunning := 5 * time.Minute

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				run, err := s.runRepo.ClaimNextRunnable(ctx, s.db, maxAttempts, retryDelay, staleRunning)
				if err != nil {
					s.log.Warn("ClaimNextRunnable failed", "error", err)
					continue
				}
				if run == nil {
					continue
				}
				s.processRun(ctx, run)
			}
		}
	}()
}

type issuesPassPayload struct {
	Issues    []string `json:"issues"`
	Arguments []string `json:"arguments"`
	Risks     []string `json:"risks"`
}

type citationPassPayload struct {
	Statutes []struct {
		Act        string   `json:"act"`
		Section    string   `json:"section"`
		Verified   bool     `json:"verified"`
		Note       string   `json:"note"`
		Confidence *float64 `json:"confidence"`
	} `json:"statutes"`
	Precedents []struct {
		Citation   string   `json:"citation"`
		CaseName   string   `json:"case_name"`
		Court      string   `json:"court"`
		Year       int      `json:"year"`
		Verified   bool     `json:"verified"`
		Note       string   `json:"note"`
		Confidence *float64 `json:"confidence"`
	} `json:"precedents"`
}

type synthesisPassPayload struct {
	Summary            string `json:"summary"`
	CaseTypeConfidence string `json:"case_type_confidence"`
}

func (s *deepDiveService) processRun(ctx context.Context, run *types.DeepDiveRun) {
	userID := run.UserID
	runID := run.ID

	fail := func(pass string, err error) {
		now := time.Now()
		_ = s.runRepo.UpdateFields(ctx, nil, runID, map[string]any{
			"status":        "error",
			"pass":          pass,
			"error":         err.Error(),
			"last_error_at": now,
			"locked_at":     nil,
		})
		if s.lock != nil {
			_ = s.lock.Release(ctx, run.BriefID)
		}
		s.broadcast(userID, sse.SSEEventDeepDiveFailed, map[string]any{
			"run_id":   runID,
			"brief_id": run.BriefID,
			"pass":     pass,
			"error":    err.Error(),
		})
		s.log.Warn("deep dive run failed", "runID", runID, "pass", pass, "error", err)
	}

	progress := func(pass string, pct int) {
		now := time.Now()
		_ = s.runRepo.UpdateFields(ctx, nil, runID, map[string]any{
			"pass":         pass,
			"progress":     pct,
			"heartbeat_at": now,
		})
		s.broadcast(userID, sse.SSEEventDeepDiveProgress, map[string]any{
			"run_id":   runID,
			"brief_id": run.BriefID,
			"pass":     pass,
			"progress": pct,
		})
	}

	briefs, err := s.briefRepo.GetByIDs(ctx, nil, []uuid.UUID{run.BriefID})
	if err != nil {
		fail("issues", fmt.Errorf("load brief: %w", err))
		return
	}
	if len(briefs) == 0 || briefs[0] == nil {
		fail("issues", fmt.Errorf("brief %s not found", run.BriefID))
		return
	}
	brief := briefs[0]

	var prior types.AnalysisResult
	if len(brief.Analysis) > 0 {
		_ = json.Unmarshal(brief.Analysis, &prior)
	}

	// Pass 1: issue spotting over the raw brief.
	progress("issues", 10)
	var issues issuesPassPayload
	issuesPrompt := `You are re-examining a case brief in depth for Indian law.
Respond with JSON {issues:[], arguments:[], risks:[]}: every distinct legal issue the
brief raises, the strongest arguments for the client, and the principal risks.`
	if err := s.ai.CompleteJSON(ctx, issuesPrompt, brief.Text, &issues); err != nil {
		fail("issues", err)
		return
	}

	// Pass 2: verify the citations already on display. Annotate, never drop.
	progress("citations", 45)
	var citations citationPassPayload
	citationsPrompt := `You verify statute and precedent citations for Indian law.
For each entry in the provided JSON, confirm the act/section or citation exists and is
relevant to the brief. Respond with JSON {statutes:[{act,section,verified,note,confidence}],
precedents:[{citation,case_name,court,year,verified,note,confidence}]}. Keep every entry;
mark doubtful ones verified=false with a note rather than omitting them.`
	citationInput := map[string]any{
		"brief":      brief.Text,
		"statutes":   prior.Statutes,
		"precedents": prior.Precedents,
	}
	if err := s.ai.CompleteJSON(ctx, citationsPrompt, string(mustJSON(citationInput)), &citations); err != nil {
		fail("citations", err)
		return
	}

	// Pass 3: synthesis across both passes.
	progress("synthesis", 80)
	var synthesis synthesisPassPayload
	synthesisPrompt := `Synthesize the deep analysis of a case brief.
Respond with JSON {summary: "4-8 sentence considered legal position",
case_type_confidence: "verified"|"classified"|"uncertain"}.`
	synthesisInput := map[string]any{
		"brief":  brief.Text,
		"issues": issues,
	}
	if err := s.ai.CompleteJSON(ctx, synthesisPrompt, string(mustJSON(synthesisInput)), &synthesis); err != nil {
		fail("synthesis", err)
		return
	}

	payload := types.DeepDiveAnalysis{
		Narrative: types.NarrativeAnalysis{
			Summary:   synthesis.Summary,
			Arguments: issues.Arguments,
			Risks:     issues.Risks,
		},
		CaseTypeConfidence: synthesis.CaseTypeConfidence,
	}
	for _, st := range citations.Statutes {
		payload.VerifiedStatutes = append(payload.VerifiedStatutes, types.StatuteRef{
			Act:        st.Act,
			Section:    st.Section,
			Source:     "ai",
			Verified:   st.Verified,
			Note:       st.Note,
			Confidence: st.Confidence,
		})
	}
	for _, p := range citations.Precedents {
		payload.VerifiedPrecedents = append(payload.VerifiedPrecedents, types.PrecedentRef{
			Citation:   p.Citation,
			CaseName:   p.CaseName,
			Court:      p.Court,
			Year:       p.Year,
			Source:     "ai",
			Verified:   p.Verified,
			Note:       p.Note,
			Confidence: p.Confidence,
		})
	}

	if err := s.runRepo.UpdateFields(ctx, nil, runID, map[string]any{
		"status":    "complete",
		"pass":      "done",
		"progress":  100,
		"locked_at": nil,
		"analysis":  datatypes.JSON(mustJSON(payload)),
	}); err != nil {
		fail("synthesis", fmt.Errorf("store analysis: %w", err))
		return
	}
	if s.lock != nil {
		_ = s.lock.Release(ctx, run.BriefID)
	}

	s.broadcast(userID, sse.SSEEventDeepDiveComplete, map[string]any{
		"run_id":   runID,
		"brief_id": run.BriefID,
	})
	s.log.Info("deep dive run complete", "runID", runID, "briefID", run.BriefID)
}

func (s *deepDiveService) broadcast(userID uuid.UUID, event sse.SSEEvent, data map[string]any) {
	if s.sseHub == nil {
		return
	}
	s.sseHub.Broadcast(sse.SSEMessage{
		Channel: userID.String(),
		Event:   event,
		Data:    data,
	})
}
