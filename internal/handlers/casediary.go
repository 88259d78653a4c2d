package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ComplianceRelish/lexassist-backend/internal/logger"
	"github.com/ComplianceRelish/lexassist-backend/internal/services"
)

type CaseDiaryHandler struct {
	log   *logger.Logger
	diary services.CaseDiaryService
}

func NewCaseDiaryHandler(log *logger.Logger, diary services.CaseDiaryService) *CaseDiaryHandler {
	return &CaseDiaryHandler{
		log:   log.With("handler", "CaseDiaryHandler"),
		diary: diary,
	}
}

// GET /api/cases/:id/diary
func (h *CaseDiaryHandler) GetTimeline(c *gin.Context) {
	caseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", errors.New("invalid case id"))
		return
	}

	entries, err := h.diary.GetTimeline(c.Request.Context(), caseID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "timeline_failed", err)
		return
	}
	RespondOK(c, gin.H{"entries": entries})
}
