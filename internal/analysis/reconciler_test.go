package analysis

import (
	"testing"

	"github.com/ComplianceRelish/lexassist-backend/internal/types"
)

func f64(v float64) *float64 { return &v }

func regexResult() *types.AnalysisResult {
	return &types.AnalysisResult{
		Statutes: []types.StatuteRef{
			{Act: "Delhi Rent Control Act, 1958", Section: "14", Source: "regex"},
			{Act: "Transfer of Property Act, 1882", Section: "106", Source: "regex"},
		},
		Precedents: []types.PrecedentRef{
			{Citation: "AIR 1979 SC 1745", Source: "regex"},
		},
		Entities: types.Entities{
			"party": {"Sharma"},
			"date":  {"12 March 2024"},
		},
		CaseType:           "tenancy",
		CaseTypeConfidence: "heuristic",
	}
}

func TestMergeAI_RetainsRegexMatchesAndAddsAIPicks(t *testing.T) {
	ai := &types.AnalysisResult{
		Statutes: []types.StatuteRef{
			{Act: "Delhi Rent Control Act, 1958", Section: "14", Source: "ai", Confidence: f64(0.92)},
			{Act: "Code of Civil Procedure, 1908", Section: "Order 37", Source: "ai", Confidence: f64(0.6)},
		},
		CaseType:     "tenancy",
		Jurisdiction: "Delhi",
	}

	out := MergeAI(regexResult(), ai)

	if len(out.Statutes) != 3 {
		t.Fatalf("expected 3 statutes, got %d: %+v", len(out.Statutes), out.Statutes)
	}
	// The shared entry is annotated, not duplicated.
	if out.Statutes[0].Confidence == nil || *out.Statutes[0].Confidence != 0.92 {
		t.Fatalf("expected annotated confidence on shared statute, got %+v", out.Statutes[0])
	}
	if out.Statutes[0].Source != "regex" {
		t.Fatalf("annotation must not replace the regex entry: %+v", out.Statutes[0])
	}
}

func TestMergeAI_ClassificationOverridesHeuristic(t *testing.T) {
	ai := &types.AnalysisResult{CaseType: "property", Jurisdiction: "Maharashtra"}

	out := MergeAI(regexResult(), ai)

	if out.CaseType != "property" {
		t.Fatalf("case type not overridden: %q", out.CaseType)
	}
	if out.CaseTypeConfidence != "classified" {
		t.Fatalf("expected confidence classified, got %q", out.CaseTypeConfidence)
	}
	if out.Jurisdiction != "Maharashtra" {
		t.Fatalf("jurisdiction not overridden: %q", out.Jurisdiction)
	}
}

func TestMergeAI_EmptyAIFieldsDoNotClobber(t *testing.T) {
	out := MergeAI(regexResult(), &types.AnalysisResult{})

	if out.CaseType != "tenancy" || out.CaseTypeConfidence != "heuristic" {
		t.Fatalf("empty AI payload changed case type: %q/%q", out.CaseType, out.CaseTypeConfidence)
	}
	if len(out.Statutes) != 2 || len(out.Precedents) != 1 {
		t.Fatalf("empty AI payload changed match counts: %d/%d", len(out.Statutes), len(out.Precedents))
	}
}

func TestMergeAI_EntitiesUnionCaseInsensitive(t *testing.T) {
	ai := &types.AnalysisResult{
		Entities: types.Entities{
			"party": {"sharma", "Gupta"},
		},
	}

	out := MergeAI(regexResult(), ai)

	if got := out.Entities["party"]; len(got) != 2 {
		t.Fatalf("expected deduped union of parties, got %v", got)
	}
	if got := out.Entities["date"]; len(got) != 1 {
		t.Fatalf("regex-only entity kind lost: %v", got)
	}
}

func TestMergeAI_DoesNotMutateInputs(t *testing.T) {
	regex := regexResult()
	ai := &types.AnalysisResult{
		Statutes: []types.StatuteRef{
			{Act: "Delhi Rent Control Act, 1958", Section: "14", Source: "ai", Confidence: f64(0.9)},
		},
	}

	_ = MergeAI(regex, ai)

	if regex.Statutes[0].Confidence != nil {
		t.Fatalf("input result was mutated: %+v", regex.Statutes[0])
	}
}

func TestMergeDeepDive_NeverDropsSections(t *testing.T) {
	prev := MergeAI(regexResult(), &types.AnalysisResult{
		CaseType: "tenancy",
		Narrative: &types.NarrativeAnalysis{
			Summary: "Tenant has a statutory defence under section 14.",
		},
	})

	dd := &types.DeepDiveAnalysis{
		Narrative: types.NarrativeAnalysis{
			Summary:   "Refined multi-pass summary.",
			Arguments: []string{"Notice defective under s.106 TPA"},
		},
		VerifiedStatutes: []types.StatuteRef{
			{Act: "Delhi Rent Control Act, 1958", Section: "14", Verified: true, Confidence: f64(0.99)},
		},
		CaseTypeConfidence: "verified",
	}

	out := MergeDeepDive(prev, dd)

	if len(out.Statutes) < len(prev.Statutes) {
		t.Fatalf("deep dive dropped statutes: %d -> %d", len(prev.Statutes), len(out.Statutes))
	}
	if len(out.Precedents) < len(prev.Precedents) {
		t.Fatalf("deep dive dropped precedents: %d -> %d", len(prev.Precedents), len(out.Precedents))
	}
	if out.Narrative == nil || out.Narrative.Summary != "Refined multi-pass summary." {
		t.Fatalf("narrative not replaced: %+v", out.Narrative)
	}
	if !out.Statutes[0].Verified {
		t.Fatalf("verified statute not annotated: %+v", out.Statutes[0])
	}
	if out.CaseTypeConfidence != "verified" {
		t.Fatalf("expected verified confidence, got %q", out.CaseTypeConfidence)
	}
	// The case type itself is never changed by a deep dive.
	if out.CaseType != prev.CaseType {
		t.Fatalf("deep dive changed case type: %q -> %q", prev.CaseType, out.CaseType)
	}
}

func TestMergeDeepDive_UnknownVerifiedEntriesAreAppended(t *testing.T) {
	prev := regexResult()
	dd := &types.DeepDiveAnalysis{
		VerifiedPrecedents: []types.PrecedentRef{
			{Citation: "(2005) 5 SCC 705", CaseName: "Iridium v. Motorola", Source: "ai", Verified: true},
		},
	}

	out := MergeDeepDive(prev, dd)

	if len(out.Precedents) != 2 {
		t.Fatalf("expected appended precedent, got %+v", out.Precedents)
	}
	added := out.Precedents[1]
	if !added.Verified || added.Citation != "(2005) 5 SCC 705" {
		t.Fatalf("appended precedent not marked verified: %+v", added)
	}
}

func TestMergeDeepDive_DoubtfulEntriesStayUnverified(t *testing.T) {
	prev := regexResult()
	dd := &types.DeepDiveAnalysis{
		VerifiedStatutes: []types.StatuteRef{
			{Act: "Delhi Rent Control Act, 1958", Section: "14", Verified: true, Confidence: f64(0.99)},
			{Act: "Transfer of Property Act, 1882", Section: "106", Verified: false, Note: "could not confirm applicability to this tenancy"},
			{Act: "Fictitious Act, 1999", Section: "7", Source: "ai", Verified: false, Note: "no such act found"},
		},
		VerifiedPrecedents: []types.PrecedentRef{
			{Citation: "AIR 1979 SC 1745", Verified: false, Note: "citation does not match the reported decision"},
		},
	}

	out := MergeDeepDive(prev, dd)

	if !out.Statutes[0].Verified {
		t.Fatalf("confirmed statute not marked verified: %+v", out.Statutes[0])
	}
	if out.Statutes[1].Verified {
		t.Fatalf("doubtful statute displayed as verified: %+v", out.Statutes[1])
	}
	if out.Statutes[1].Note == "" {
		t.Fatalf("doubtful statute lost its note: %+v", out.Statutes[1])
	}
	if len(out.Statutes) != 3 {
		t.Fatalf("doubtful entries must still be kept: %+v", out.Statutes)
	}
	if appended := out.Statutes[2]; appended.Verified || appended.Note != "no such act found" {
		t.Fatalf("appended doubtful statute promoted to verified: %+v", appended)
	}
	if out.Precedents[0].Verified {
		t.Fatalf("doubtful precedent displayed as verified: %+v", out.Precedents[0])
	}
}

func TestMergeDeepDive_EmptyNarrativeKeepsPrevious(t *testing.T) {
	prev := regexResult()
	prev.Narrative = &types.NarrativeAnalysis{Summary: "keep me"}

	out := MergeDeepDive(prev, &types.DeepDiveAnalysis{CaseTypeConfidence: "verified"})

	if out.Narrative == nil || out.Narrative.Summary != "keep me" {
		t.Fatalf("empty deep-dive narrative clobbered previous: %+v", out.Narrative)
	}
}

func TestMergeDeepDive_NilInputs(t *testing.T) {
	if out := MergeDeepDive(nil, nil); out == nil {
		t.Fatalf("expected empty result, got nil")
	}
	prev := regexResult()
	out := MergeDeepDive(prev, nil)
	if len(out.Statutes) != len(prev.Statutes) {
		t.Fatalf("nil payload changed result")
	}
}
