package analysis

import (
	"strings"

	"github.com/ComplianceRelish/lexassist-backend/internal/types"
)

// The reconciler is the single merge point for every analysis pass. All
// functions here are pure: inputs are never mutated, a new result is
// returned for the orchestrator to commit atomically. Merges are monotonic
// in information content: a merged result never has fewer populated
// sections than its predecessor.

// MergeAI combines the regex pass with the AI payload. Regex matches are
// retained; the AI may add confidence-ranked picks or annotate entries it
// agrees with. AI classification overrides the heuristic case type and
// jurisdiction guesses.
func MergeAI(regex, ai *types.AnalysisResult) *types.AnalysisResult {
	out := cloneResult(regex)
	if out == nil {
		out = &types.AnalysisResult{}
	}
	if ai == nil {
		return out
	}

	out.Statutes = mergeStatutes(out.Statutes, ai.Statutes)
	out.Precedents = mergePrecedents(out.Precedents, ai.Precedents)
	out.Entities = mergeEntities(out.Entities, ai.Entities)

	if ai.CaseType != "" {
		out.CaseType = ai.CaseType
		out.CaseTypeConfidence = "classified"
	}
	if ai.Jurisdiction != "" {
		out.Jurisdiction = ai.Jurisdiction
	}
	if ai.Narrative != nil {
		narrative := *ai.Narrative
		out.Narrative = &narrative
	}
	if ai.BriefID != nil {
		id := *ai.BriefID
		out.BriefID = &id
	}
	if ai.CaseID != nil {
		id := *ai.CaseID
		out.CaseID = &id
	}
	return out
}

// MergeDeepDive folds a completed deep-dive payload into the result already
// on display. The multi-pass narrative replaces the AI narrative wholesale;
// citation verdicts annotate existing statute/precedent entries but never
// remove them; the case-type confidence label is refined, the case type
// itself is not.
func MergeDeepDive(prev *types.AnalysisResult, dd *types.DeepDiveAnalysis) *types.AnalysisResult {
	out := cloneResult(prev)
	if out == nil {
		out = &types.AnalysisResult{}
	}
	if dd == nil {
		return out
	}

	if !narrativeEmpty(dd.Narrative) {
		narrative := dd.Narrative
		out.Narrative = &narrative
	}

	// The verdict travels with the entry: the citation pass keeps doubtful
	// entries with Verified=false and a note, and the merge must not promote
	// them.
	for _, vs := range dd.VerifiedStatutes {
		idx := findStatute(out.Statutes, vs)
		if idx < 0 {
			out.Statutes = append(out.Statutes, vs)
			continue
		}
		out.Statutes[idx].Verified = vs.Verified
		if vs.Note != "" {
			out.Statutes[idx].Note = vs.Note
		}
		if vs.Confidence != nil {
			c := *vs.Confidence
			out.Statutes[idx].Confidence = &c
		}
	}
	for _, vp := range dd.VerifiedPrecedents {
		idx := findPrecedent(out.Precedents, vp)
		if idx < 0 {
			out.Precedents = append(out.Precedents, vp)
			continue
		}
		out.Precedents[idx].Verified = vp.Verified
		if vp.Note != "" {
			out.Precedents[idx].Note = vp.Note
		}
		if vp.Confidence != nil {
			c := *vp.Confidence
			out.Precedents[idx].Confidence = &c
		}
	}

	if dd.CaseTypeConfidence != "" {
		out.CaseTypeConfidence = dd.CaseTypeConfidence
	}
	return out
}

func mergeStatutes(base, add []types.StatuteRef) []types.StatuteRef {
	out := base
	for _, s := range add {
		idx := findStatute(out, s)
		if idx < 0 {
			out = append(out, s)
			continue
		}
		if s.Confidence != nil {
			c := *s.Confidence
			out[idx].Confidence = &c
		}
		if out[idx].Title == "" && s.Title != "" {
			out[idx].Title = s.Title
		}
	}
	return out
}

func mergePrecedents(base, add []types.PrecedentRef) []types.PrecedentRef {
	out := base
	for _, p := range add {
		idx := findPrecedent(out, p)
		if idx < 0 {
			out = append(out, p)
			continue
		}
		if p.Confidence != nil {
			c := *p.Confidence
			out[idx].Confidence = &c
		}
		if out[idx].CaseName == "" && p.CaseName != "" {
			out[idx].CaseName = p.CaseName
		}
		if out[idx].Court == "" && p.Court != "" {
			out[idx].Court = p.Court
		}
	}
	return out
}

func mergeEntities(base, add types.Entities) types.Entities {
	if len(add) == 0 {
		return base
	}
	out := types.Entities{}
	for kind, vals := range base {
		out[kind] = append([]string(nil), vals...)
	}
	for kind, vals := range add {
		for _, v := range vals {
			if !containsFold(out[kind], v) {
				out[kind] = append(out[kind], v)
			}
		}
	}
	return out
}

func findStatute(list []types.StatuteRef, s types.StatuteRef) int {
	for i := range list {
		if strings.EqualFold(list[i].Act, s.Act) && strings.EqualFold(list[i].Section, s.Section) {
			return i
		}
	}
	return -1
}

func findPrecedent(list []types.PrecedentRef, p types.PrecedentRef) int {
	for i := range list {
		if p.Citation != "" && strings.EqualFold(list[i].Citation, p.Citation) {
			return i
		}
		if p.Citation == "" && p.CaseName != "" && strings.EqualFold(list[i].CaseName, p.CaseName) {
			return i
		}
	}
	return -1
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

func narrativeEmpty(n types.NarrativeAnalysis) bool {
	return n.Summary == "" && len(n.Arguments) == 0 && len(n.Risks) == 0
}

func cloneResult(r *types.AnalysisResult) *types.AnalysisResult {
	if r == nil {
		return nil
	}
	out := &types.AnalysisResult{
		CaseType:           r.CaseType,
		CaseTypeConfidence: r.CaseTypeConfidence,
		Jurisdiction:       r.Jurisdiction,
	}
	out.Statutes = append([]types.StatuteRef(nil), r.Statutes...)
	out.Precedents = append([]types.PrecedentRef(nil), r.Precedents...)
	if len(r.Entities) > 0 {
		out.Entities = types.Entities{}
		for kind, vals := range r.Entities {
			out.Entities[kind] = append([]string(nil), vals...)
		}
	}
	if r.Narrative != nil {
		narrative := types.NarrativeAnalysis{
			Summary:   r.Narrative.Summary,
			Arguments: append([]string(nil), r.Narrative.Arguments...),
			Risks:     append([]string(nil), r.Narrative.Risks...),
		}
		out.Narrative = &narrative
	}
	if r.BriefID != nil {
		id := *r.BriefID
		out.BriefID = &id
	}
	if r.CaseID != nil {
		id := *r.CaseID
		out.CaseID = &id
	}
	return out
}
