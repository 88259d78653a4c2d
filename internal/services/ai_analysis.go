package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ComplianceRelish/lexassist-backend/internal/analysis"
	"github.com/ComplianceRelish/lexassist-backend/internal/logger"
	"github.com/ComplianceRelish/lexassist-backend/internal/types"
)

// AIAnalysisService runs the full AI pass: the regex pass and the LLM pass
// execute concurrently, progress is reported step by step, and both halves
// are returned so the reconciler decides the merge.
type AIAnalysisService interface {
	Analyze(ctx context.Context, text string, onProgress func(types.AnalysisProgress)) (*analysis.AIOutcome, error)
}

type aiAnalysisService struct {
	log   *logger.Logger
	basic BasicAnalysisService
	ai    OpenAIClient
}

func NewAIAnalysisService(baseLog *logger.Logger, basic BasicAnalysisService, ai OpenAIClient) AIAnalysisService {
	return &aiAnalysisService{
		log:   baseLog.With("service", "AIAnalysisService"),
		basic: basic,
		ai:    ai,
	}
}

const analysisSystemPrompt = `You are a legal research assistant for Indian law.
Given a case brief, respond with a single JSON object with these keys:
  case_type: one of criminal|civil|family|property|tenancy|labour|constitutional|other
  jurisdiction: the Indian state or court most likely to have jurisdiction, or ""
  entities: object mapping party/date/location/amount to arrays of strings found in the brief
  statutes: array of {act, section, title, confidence} for provisions that apply (confidence 0..1)
  precedents: array of {citation, case_name, court, year, confidence} for relevant decisions
  summary: 2-4 sentence synthesis of the legal position
  arguments: array of strings, the strongest arguments available to the client
  risks: array of strings, the principal risks and weaknesses
Only cite real Indian statutes and reported decisions. Do not invent citations.`

type aiAnalysisPayload struct {
	CaseType     string              `json:"case_type"`
	Jurisdiction string              `json:"jurisdiction"`
	Entities     map[string][]string `json:"entities"`
	Statutes     []struct {
		Act        string   `json:"act"`
		Section    string   `json:"section"`
		Title      string   `json:"title"`
		Confidence *float64 `json:"confidence"`
	} `json:"statutes"`
	Precedents []struct {
		Citation   string   `json:"citation"`
		CaseName   string   `json:"case_name"`
		Court      string   `json:"court"`
		Year       int      `json:"year"`
		Confidence *float64 `json:"confidence"`
	} `json:"precedents"`
	Summary   string   `json:"summary"`
	Arguments []string `json:"arguments"`
	Risks     []string `json:"risks"`
}

func (s *aiAnalysisService) Analyze(ctx context.Context, text string, onProgress func(types.AnalysisProgress)) (*analysis.AIOutcome, error) {
	progress := func(step, msg string, pct int) {
		if onProgress != nil {
			onProgress(types.AnalysisProgress{Step: step, Message: msg, PercentComplete: pct})
		}
	}

	progress("extract_entities", "Extracting entities and statutory references", 20)

	var regexResult *types.AnalysisResult
	var payload aiAnalysisPayload

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := s.basic.Analyze(gctx, text)
		if err != nil {
			return fmt.Errorf("regex pass: %w", err)
		}
		regexResult = res
		return nil
	})
	g.Go(func() error {
		if err := s.ai.CompleteJSON(gctx, analysisSystemPrompt, text, &payload); err != nil {
			return fmt.Errorf("ai pass: %w", err)
		}
		return nil
	})

	progress("search_precedents", "Searching statutes and precedents", 60)

	if err := g.Wait(); err != nil {
		return nil, err
	}

	progress("synthesize", "Synthesizing legal analysis", 100)

	aiResult := payloadToResult(&payload)
	s.log.Debug("ai analysis complete",
		"caseType", aiResult.CaseType,
		"statutes", len(aiResult.Statutes),
		"precedents", len(aiResult.Precedents),
	)
	return &analysis.AIOutcome{Regex: regexResult, AI: aiResult}, nil
}

func payloadToResult(p *aiAnalysisPayload) *types.AnalysisResult {
	res := &types.AnalysisResult{
		CaseType:     strings.TrimSpace(p.CaseType),
		Jurisdiction: strings.TrimSpace(p.Jurisdiction),
	}
	for _, s := range p.Statutes {
		if strings.TrimSpace(s.Act) == "" {
			continue
		}
		res.Statutes = append(res.Statutes, types.StatuteRef{
			Act:        strings.TrimSpace(s.Act),
			Section:    strings.TrimSpace(s.Section),
			Title:      strings.TrimSpace(s.Title),
			Source:     "ai",
			Confidence: s.Confidence,
		})
	}
	for _, c := range p.Precedents {
		if strings.TrimSpace(c.Citation) == "" && strings.TrimSpace(c.CaseName) == "" {
			continue
		}
		res.Precedents = append(res.Precedents, types.PrecedentRef{
			Citation:   strings.TrimSpace(c.Citation),
			CaseName:   strings.TrimSpace(c.CaseName),
			Court:      strings.TrimSpace(c.Court),
			Year:       c.Year,
			Source:     "ai",
			Confidence: c.Confidence,
		})
	}
	if len(p.Entities) > 0 {
		res.Entities = types.Entities(p.Entities)
	}
	if p.Summary != "" || len(p.Arguments) > 0 || len(p.Risks) > 0 {
		res.Narrative = &types.NarrativeAnalysis{
			Summary:   p.Summary,
			Arguments: p.Arguments,
			Risks:     p.Risks,
		}
	}
	return res
}

// mustJSON is a convenience for building jsonb columns from known-good values.
func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte(`{}`)
	}
	return b
}
