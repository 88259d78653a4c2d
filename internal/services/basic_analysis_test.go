package services

import (
	"context"
	"testing"

	"github.com/ComplianceRelish/lexassist-backend/internal/logger"
	"github.com/ComplianceRelish/lexassist-backend/internal/types"
)

func newBasicForTest() BasicAnalysisService {
	return NewBasicAnalysisService(logger.NewNop())
}

func hasStatute(list []types.StatuteRef, act, section string) bool {
	for _, s := range list {
		if s.Act == act && s.Section == section {
			return true
		}
	}
	return false
}

func TestBasicAnalysis_ExplicitSectionReferences(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		act     string
		section string
	}{
		{
			name:    "section of named act",
			text:    "Notice issued under section 106 of the Transfer of Property Act, 1882.",
			act:     "Transfer of Property Act, 1882",
			section: "106",
		},
		{
			name:    "ipc shorthand",
			text:    "FIR registered under Section 420 IPC against the accused.",
			act:     "Indian Penal Code, 1860",
			section: "420",
		},
		{
			name:    "ipc full name",
			text:    "Charged under section 302 of the Indian Penal Code.",
			act:     "Indian Penal Code, 1860",
			section: "302",
		},
		{
			name:    "constitutional article",
			text:    "Petition under Article 226 before the High Court.",
			act:     "Constitution of India",
			section: "Article 226",
		},
		{
			name:    "alphanumeric section",
			text:    "Proceedings under section 138A of the Negotiable Instruments Act, 1881.",
			act:     "Negotiable Instruments Act, 1881",
			section: "138A",
		},
	}

	svc := newBasicForTest()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := svc.Analyze(context.Background(), tc.text)
			if err != nil {
				t.Fatalf("analyze failed: %v", err)
			}
			if !hasStatute(res.Statutes, tc.act, tc.section) {
				t.Fatalf("missing %s s.%s in %+v", tc.act, tc.section, res.Statutes)
			}
		})
	}
}

func TestBasicAnalysis_KeywordStatutesForDictatedBriefs(t *testing.T) {
	svc := newBasicForTest()
	res, err := svc.Analyze(context.Background(),
		"Client is a tenant facing eviction. The landlord served a notice demanding vacant possession.")
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	if !hasStatute(res.Statutes, "Delhi Rent Control Act, 1958", "14") {
		t.Fatalf("rent control provision not suggested: %+v", res.Statutes)
	}
	if !hasStatute(res.Statutes, "Transfer of Property Act, 1882", "106") {
		t.Fatalf("notice-to-quit provision not suggested: %+v", res.Statutes)
	}
	if res.CaseType != "tenancy" || res.CaseTypeConfidence != "heuristic" {
		t.Fatalf("unexpected case type %q/%q", res.CaseType, res.CaseTypeConfidence)
	}
}

func TestBasicAnalysis_CitationsAndCaseNames(t *testing.T) {
	svc := newBasicForTest()
	res, err := svc.Analyze(context.Background(),
		"Reliance placed on AIR 1979 SC 1745 and (2005) 5 SCC 705. See also Kesavananda Bharati v. State of Kerala.")
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	var air, scc, named bool
	for _, p := range res.Precedents {
		switch {
		case p.Citation == "AIR 1979 SC 1745":
			air = true
			if p.Year != 1979 || p.Court != "Supreme Court of India" {
				t.Fatalf("AIR citation not enriched: %+v", p)
			}
		case p.Citation == "(2005) 5 SCC 705":
			scc = true
			if p.Court != "Supreme Court of India" {
				t.Fatalf("SCC citation not attributed to Supreme Court: %+v", p)
			}
		case p.CaseName == "Kesavananda Bharati v. State of Kerala":
			named = true
		}
	}
	if !air || !scc || !named {
		t.Fatalf("missing precedents (air=%v scc=%v named=%v): %+v", air, scc, named, res.Precedents)
	}
}

func TestBasicAnalysis_EntityExtraction(t *testing.T) {
	svc := newBasicForTest()
	res, err := svc.Analyze(context.Background(),
		"On 12 March 2024 the landlord demanded Rs. 40,000 as arrears. Suit filed on 01/04/2024.")
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	if got := res.Entities["date"]; len(got) != 2 {
		t.Fatalf("expected 2 dates, got %v", got)
	}
	if got := res.Entities["amount"]; len(got) != 1 {
		t.Fatalf("expected 1 amount, got %v", got)
	}
}

func TestBasicAnalysis_DuplicateMatchesDeduped(t *testing.T) {
	svc := newBasicForTest()
	res, err := svc.Analyze(context.Background(),
		"Section 420 IPC applies. The complaint repeats section 420 of the Indian Penal Code twice.")
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	count := 0
	for _, s := range res.Statutes {
		if s.Act == "Indian Penal Code, 1860" && s.Section == "420" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("duplicate statute entries: %+v", res.Statutes)
	}
}

func TestBasicAnalysis_JurisdictionGuess(t *testing.T) {
	svc := newBasicForTest()
	res, err := svc.Analyze(context.Background(),
		"Writ pending before the Bombay High Court.")
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if res.Jurisdiction != "Maharashtra" {
		t.Fatalf("unexpected jurisdiction %q", res.Jurisdiction)
	}
}

func TestBasicAnalysis_NoMatchesYieldsEmptySections(t *testing.T) {
	svc := newBasicForTest()
	res, err := svc.Analyze(context.Background(), "completely unrelated grocery list text")
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if len(res.Statutes) != 0 || len(res.Precedents) != 0 || res.Entities != nil {
		t.Fatalf("expected empty result, got %+v", res)
	}
	if res.Narrative != nil {
		t.Fatalf("basic pass must never produce narrative")
	}
}

func TestBasicAnalysis_CancelledContext(t *testing.T) {
	svc := newBasicForTest()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Analyze(ctx, "anything"); err == nil {
		t.Fatalf("expected context error")
	}
}
