package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ComplianceRelish/lexassist-backend/internal/analysis"
	"github.com/ComplianceRelish/lexassist-backend/internal/logger"
	"github.com/ComplianceRelish/lexassist-backend/internal/services"
)

const maxUploadBytes = 25 << 20

type BriefHandler struct {
	log      *logger.Logger
	sessions services.AnalysisSessionService
	speech   services.SpeechProviderService
	docs     services.DocumentExtractService
}

func NewBriefHandler(
	log *logger.Logger,
	sessions services.AnalysisSessionService,
	speech services.SpeechProviderService,
	docs services.DocumentExtractService,
) *BriefHandler {
	return &BriefHandler{
		log:      log.With("handler", "BriefHandler"),
		sessions: sessions,
		speech:   speech,
		docs:     docs,
	}
}

// POST /api/briefs
func (h *BriefHandler) CreateBrief(c *gin.Context) {
	var req struct {
		CaseID *uuid.UUID `json:"case_id"`
		Text   string     `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	brief, err := h.sessions.CreateBrief(c.Request.Context(), req.CaseID, req.Text)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "create_failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"brief": brief})
}

// PUT /api/briefs/:id/text
func (h *BriefHandler) SetText(c *gin.Context) {
	briefID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", errors.New("invalid brief id"))
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	if err := h.sessions.SetText(c.Request.Context(), briefID, req.Text); err != nil {
		RespondError(c, http.StatusBadRequest, "update_failed", err)
		return
	}
	RespondOK(c, gin.H{"brief_id": briefID, "text": req.Text})
}

// POST /api/briefs/:id/transcription
// Audio upload; the transcript is appended to the brief text.
func (h *BriefHandler) UploadTranscription(c *gin.Context) {
	briefID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", errors.New("invalid brief id"))
		return
	}
	if h.speech == nil {
		RespondError(c, http.StatusServiceUnavailable, "transcription_unavailable",
			errors.New("speech provider not configured"))
		return
	}

	data, mimeType, err := readUpload(c, "audio")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_upload", err)
		return
	}

	tr, err := h.speech.TranscribeAudio(c.Request.Context(), data, mimeType)
	if err != nil {
		h.log.Error("transcription failed", "brief_id", briefID, "error", err)
		RespondError(c, http.StatusBadGateway, "transcription_failed", err)
		return
	}

	text, err := h.sessions.AppendText(c.Request.Context(), briefID, tr.Text, analysis.SourceTranscription)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "append_failed", err)
		return
	}
	RespondOK(c, gin.H{
		"brief_id":   briefID,
		"text":       text,
		"transcript": tr.Text,
		"confidence": tr.Confidence,
		"language":   tr.Language,
	})
}

// POST /api/briefs/:id/document
// Scanned document upload; extracted text is appended to the brief text.
func (h *BriefHandler) UploadDocument(c *gin.Context) {
	briefID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", errors.New("invalid brief id"))
		return
	}
	if h.docs == nil {
		RespondError(c, http.StatusServiceUnavailable, "extraction_unavailable",
			errors.New("document extraction not configured"))
		return
	}

	data, mimeType, err := readUpload(c, "document")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_upload", err)
		return
	}

	ex, err := h.docs.ExtractDocument(c.Request.Context(), data, mimeType)
	if err != nil {
		h.log.Error("document extraction failed", "brief_id", briefID, "error", err)
		RespondError(c, http.StatusBadGateway, "extraction_failed", err)
		return
	}

	text, err := h.sessions.AppendText(c.Request.Context(), briefID, ex.Text, analysis.SourceDocument)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "append_failed", err)
		return
	}
	RespondOK(c, gin.H{
		"brief_id":       briefID,
		"text":           text,
		"extracted":      ex.Text,
		"classification": ex.Classification,
		"pages":          ex.Pages,
	})
}

func readUpload(c *gin.Context, field string) ([]byte, string, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		return nil, "", fmt.Errorf("missing %q file field: %w", field, err)
	}
	if fileHeader.Size > maxUploadBytes {
		return nil, "", fmt.Errorf("upload exceeds %d bytes", maxUploadBytes)
	}
	f, err := fileHeader.Open()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		return nil, "", err
	}
	if len(data) > maxUploadBytes {
		return nil, "", fmt.Errorf("upload exceeds %d bytes", maxUploadBytes)
	}
	return data, fileHeader.Header.Get("Content-Type"), nil
}
