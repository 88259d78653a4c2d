package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ComplianceRelish/lexassist-backend/internal/analysis"
	"github.com/ComplianceRelish/lexassist-backend/internal/logger"
	"github.com/ComplianceRelish/lexassist-backend/internal/services"
)

type BriefAnalysisHandler struct {
	log      *logger.Logger
	sessions services.AnalysisSessionService
	deepDive services.DeepDiveService
}

func NewBriefAnalysisHandler(
	log *logger.Logger,
	sessions services.AnalysisSessionService,
	deepDive services.DeepDiveService,
) *BriefAnalysisHandler {
	return &BriefAnalysisHandler{
		log:      log.With("handler", "BriefAnalysisHandler"),
		sessions: sessions,
		deepDive: deepDive,
	}
}

type snapshotView struct {
	State       string `json:"state"`
	Generation  uint64 `json:"generation"`
	Result      any    `json:"result,omitempty"`
	Progress    any    `json:"progress,omitempty"`
	Error       string `json:"error,omitempty"`
	DeepDiveErr string `json:"deep_dive_error,omitempty"`
}

func viewSnapshot(snap analysis.Snapshot) snapshotView {
	v := snapshotView{
		State:      string(snap.State),
		Generation: snap.Generation,
	}
	if snap.Result != nil {
		v.Result = snap.Result
	}
	if snap.Progress != nil {
		v.Progress = snap.Progress
	}
	if snap.Err != nil {
		v.Error = snap.Err.Error()
	}
	if snap.DeepDiveErr != nil {
		v.DeepDiveErr = snap.DeepDiveErr.Error()
	}
	return v
}

// POST /api/briefs/:id/analyze
// Basic mode settles inline; AI mode returns the accepted generation and
// streams progress over SSE.
func (h *BriefAnalysisHandler) Analyze(c *gin.Context) {
	briefID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", errors.New("invalid brief id"))
		return
	}

	var req struct {
		Mode string `json:"mode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	mode := analysis.Mode(req.Mode)
	if mode == "" {
		mode = analysis.ModeAI
	}
	if mode != analysis.ModeBasic && mode != analysis.ModeAI {
		RespondError(c, http.StatusBadRequest, "invalid_mode", errors.New("mode must be basic or ai"))
		return
	}

	snap, err := h.sessions.Submit(c.Request.Context(), briefID, mode)
	if err != nil {
		if errors.Is(err, analysis.ErrValidation) {
			RespondError(c, http.StatusUnprocessableEntity, "empty_brief", err)
			return
		}
		RespondError(c, http.StatusBadRequest, "submit_failed", err)
		return
	}

	if mode == analysis.ModeBasic {
		RespondOK(c, gin.H{"analysis": viewSnapshot(snap)})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"generation": snap.Generation, "state": string(snap.State)})
}

// GET /api/briefs/:id/analysis
func (h *BriefAnalysisHandler) GetAnalysis(c *gin.Context) {
	briefID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", errors.New("invalid brief id"))
		return
	}

	snap, err := h.sessions.Snapshot(c.Request.Context(), briefID)
	if err != nil {
		RespondError(c, http.StatusNotFound, "not_found", err)
		return
	}
	RespondOK(c, gin.H{"analysis": viewSnapshot(snap)})
}

// DELETE /api/briefs/:id/analysis
func (h *BriefAnalysisHandler) CancelAnalysis(c *gin.Context) {
	briefID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", errors.New("invalid brief id"))
		return
	}

	if err := h.sessions.Cancel(c.Request.Context(), briefID); err != nil {
		RespondError(c, http.StatusBadRequest, "cancel_failed", err)
		return
	}
	RespondOK(c, gin.H{"brief_id": briefID, "cancelled": true})
}

// POST /api/briefs/:id/deep-dive
func (h *BriefAnalysisHandler) StartDeepDive(c *gin.Context) {
	briefID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", errors.New("invalid brief id"))
		return
	}

	if err := h.sessions.StartDeepDive(c.Request.Context(), briefID); err != nil {
		if errors.Is(err, analysis.ErrDeepDiveActive) {
			RespondError(c, http.StatusConflict, "deep_dive_active", err)
			return
		}
		RespondError(c, http.StatusBadRequest, "deep_dive_failed", err)
		return
	}

	// An ineligible session (nothing settled yet) is a quiet no-op, not an error.
	snap, err := h.sessions.Snapshot(c.Request.Context(), briefID)
	if err == nil && snap.State != analysis.StateDeepDiveRunning {
		RespondOK(c, gin.H{"brief_id": briefID, "status": "not_started", "state": string(snap.State)})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"brief_id": briefID, "status": "running"})
}

// GET /api/briefs/:id/deep-dive
func (h *BriefAnalysisHandler) GetDeepDiveStatus(c *gin.Context) {
	briefID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", errors.New("invalid brief id"))
		return
	}

	status, err := h.deepDive.Status(c.Request.Context(), briefID)
	if err != nil {
		RespondError(c, http.StatusNotFound, "not_found", err)
		return
	}
	RespondOK(c, gin.H{"deep_dive": status})
}
