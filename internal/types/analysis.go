package types

import (
	"github.com/google/uuid"
)

// StatuteRef is one statutory provision surfaced by an analysis pass.
type StatuteRef struct {
	Act        string   `json:"act"`
	Section    string   `json:"section,omitempty"`
	Title      string   `json:"title,omitempty"`
	Source     string   `json:"source"` // regex|ai
	Confidence *float64 `json:"confidence,omitempty"`
	Verified   bool     `json:"verified,omitempty"`
	Note       string   `json:"note,omitempty"`
}

// PrecedentRef is one cited decision surfaced by an analysis pass.
type PrecedentRef struct {
	Citation   string   `json:"citation"`
	CaseName   string   `json:"case_name,omitempty"`
	Court      string   `json:"court,omitempty"`
	Year       int      `json:"year,omitempty"`
	Source     string   `json:"source"` // regex|ai
	Confidence *float64 `json:"confidence,omitempty"`
	Verified   bool     `json:"verified,omitempty"`
	Note       string   `json:"note,omitempty"`
}

// Entities groups named entities extracted from the brief, keyed by kind
// (party, date, location, amount).
type Entities map[string][]string

// NarrativeAnalysis holds the free-text reasoning produced by the AI and
// deep-dive passes. Empty after a basic pass.
type NarrativeAnalysis struct {
	Summary   string   `json:"summary,omitempty"`
	Arguments []string `json:"arguments,omitempty"`
	Risks     []string `json:"risks,omitempty"`
}

// AnalysisResult is the reconciled, display-ready view of every pass run so
// far over one brief. Fields populated by a basic pass are a strict subset of
// what an AI pass can populate.
type AnalysisResult struct {
	Statutes           []StatuteRef       `json:"statutes"`
	Precedents         []PrecedentRef     `json:"precedents"`
	Entities           Entities           `json:"entities,omitempty"`
	CaseType           string             `json:"case_type,omitempty"`
	CaseTypeConfidence string             `json:"case_type_confidence,omitempty"` // heuristic|classified|verified
	Jurisdiction       string             `json:"jurisdiction,omitempty"`
	Narrative          *NarrativeAnalysis `json:"narrative,omitempty"`
	BriefID            *uuid.UUID         `json:"brief_id,omitempty"`
	CaseID             *uuid.UUID         `json:"case_id,omitempty"`
}

// AnalysisProgress is a transient progress event emitted during an AI pass.
// Never persisted.
type AnalysisProgress struct {
	Step            string `json:"step"`
	Message         string `json:"message,omitempty"`
	PercentComplete int    `json:"percent_complete"`
}

// DeepDiveAnalysis is the payload of a completed deep-dive run.
type DeepDiveAnalysis struct {
	Narrative          NarrativeAnalysis `json:"narrative"`
	VerifiedStatutes   []StatuteRef      `json:"verified_statutes,omitempty"`
	VerifiedPrecedents []PrecedentRef    `json:"verified_precedents,omitempty"`
	CaseTypeConfidence string            `json:"case_type_confidence,omitempty"`
}

// DeepDiveStatus is what the status endpoint reports for a brief's latest run.
type DeepDiveStatus struct {
	Status   string            `json:"status"` // idle|running|complete|error
	Progress int               `json:"progress,omitempty"`
	Pass     string            `json:"pass,omitempty"`
	Error    string            `json:"error,omitempty"`
	Analysis *DeepDiveAnalysis `json:"analysis,omitempty"`
}
