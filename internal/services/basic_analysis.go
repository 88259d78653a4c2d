package services

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/ComplianceRelish/lexassist-backend/internal/logger"
	"github.com/ComplianceRelish/lexassist-backend/internal/types"
)

// BasicAnalysisService is the synchronous pattern-matching pass: statute and
// precedent extraction over Indian legal text, plus heuristic case-type and
// jurisdiction guesses. It never produces narrative analysis.
type BasicAnalysisService interface {
	Analyze(ctx context.Context, text string) (*types.AnalysisResult, error)
}

type basicAnalysisService struct {
	log *logger.Logger
}

func NewBasicAnalysisService(baseLog *logger.Logger) BasicAnalysisService {
	return &basicAnalysisService{
		log: baseLog.With("service", "BasicAnalysisService"),
	}
}

var (
	sectionOfActRe = regexp.MustCompile(`(?i)\bsection\s+(\d+[A-Za-z]?)\s+(?:of\s+(?:the\s+)?)?([A-Z][A-Za-z ,']*?Act(?:,?\s*\d{4})?)`)
	ipcSectionRe   = regexp.MustCompile(`(?i)\bsection\s+(\d+[A-Za-z]?)\s+(?:of\s+(?:the\s+)?)?(?:IPC|Indian Penal Code)`)
	articleRe      = regexp.MustCompile(`(?i)\barticle\s+(\d+[A-Za-z]?)\b`)

	airCitationRe = regexp.MustCompile(`\bAIR\s+(\d{4})\s+([A-Za-z]+)\s+\d+\b`)
	sccCitationRe = regexp.MustCompile(`\((\d{4})\)\s+\d+\s+SCC\s+\d+\b`)
	caseNameRe    = regexp.MustCompile(`\b([A-Z][A-Za-z']+(?:\s+(?:of|and|the|[A-Z][A-Za-z']+)){0,4})\s+vs?\.?\s+([A-Z][A-Za-z']+(?:\s+(?:of|and|the|[A-Z][A-Za-z']+)){0,4})`)

	dateRe   = regexp.MustCompile(`\b\d{1,2}[./-]\d{1,2}[./-]\d{2,4}\b|\b\d{1,2}(?:st|nd|rd|th)?\s+(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{4}\b`)
	amountRe = regexp.MustCompile(`(?:₹|Rs\.?\s?)\s?[\d,]+(?:\.\d+)?(?:\s?(?:lakhs?|crores?))?`)
)

// keywordStatutes maps plain-language phrases to the provisions they almost
// always implicate. Briefs are usually dictated in everyday language, so
// explicit section references are the exception.
var keywordStatutes = []struct {
	keywords []string
	refs     []types.StatuteRef
}{
	{
		keywords: []string{"eviction", "tenant", "landlord", "rent"},
		refs: []types.StatuteRef{
			{Act: "Delhi Rent Control Act, 1958", Section: "14", Title: "Protection of tenant against eviction", Source: "regex"},
			{Act: "Transfer of Property Act, 1882", Section: "106", Title: "Duration of certain leases; notice to quit", Source: "regex"},
		},
	},
	{
		keywords: []string{"cheque bounce", "cheque dishonour", "cheque dishonor", "dishonoured cheque"},
		refs: []types.StatuteRef{
			{Act: "Negotiable Instruments Act, 1881", Section: "138", Title: "Dishonour of cheque for insufficiency of funds", Source: "regex"},
		},
	},
	{
		keywords: []string{"divorce", "maintenance", "alimony"},
		refs: []types.StatuteRef{
			{Act: "Hindu Marriage Act, 1955", Section: "13", Title: "Divorce", Source: "regex"},
		},
	},
	{
		keywords: []string{"cheating", "fraud", "misrepresentation"},
		refs: []types.StatuteRef{
			{Act: "Indian Penal Code, 1860", Section: "420", Title: "Cheating and dishonestly inducing delivery of property", Source: "regex"},
		},
	},
	{
		keywords: []string{"breach of contract", "contract breach", "damages for breach"},
		refs: []types.StatuteRef{
			{Act: "Indian Contract Act, 1872", Section: "73", Title: "Compensation for loss caused by breach", Source: "regex"},
		},
	},
	{
		keywords: []string{"defamation"},
		refs: []types.StatuteRef{
			{Act: "Indian Penal Code, 1860", Section: "499", Title: "Defamation", Source: "regex"},
		},
	},
}

var caseTypeKeywords = []struct {
	keywords []string
	caseType string
}{
	{[]string{"eviction", "tenant", "landlord", "lease", "rent"}, "tenancy"},
	{[]string{"murder", "theft", "assault", "cheating", "fir", "bail", "accused"}, "criminal"},
	{[]string{"divorce", "custody", "maintenance", "alimony", "marriage"}, "family"},
	{[]string{"property", "land", "title deed", "partition", "possession"}, "property"},
	{[]string{"contract", "agreement", "breach", "damages", "arbitration"}, "civil"},
	{[]string{"salary", "termination", "dismissal", "gratuity", "employer"}, "labour"},
}

var jurisdictionKeywords = []struct {
	keywords     []string
	jurisdiction string
}{
	{[]string{"supreme court"}, "Supreme Court of India"},
	{[]string{"delhi high court", "delhi"}, "Delhi"},
	{[]string{"bombay high court", "mumbai", "bombay"}, "Maharashtra"},
	{[]string{"madras high court", "chennai", "madras"}, "Tamil Nadu"},
	{[]string{"calcutta high court", "kolkata", "calcutta"}, "West Bengal"},
	{[]string{"karnataka high court", "bengaluru", "bangalore"}, "Karnataka"},
	{[]string{"kerala high court", "kochi", "ernakulam"}, "Kerala"},
}

func (s *basicAnalysisService) Analyze(ctx context.Context, text string) (*types.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &types.AnalysisResult{
		Statutes:   s.extractStatutes(text),
		Precedents: s.extractPrecedents(text),
		Entities:   s.extractEntities(text),
	}

	lower := strings.ToLower(text)
	if ct := guessCaseType(lower); ct != "" {
		res.CaseType = ct
		res.CaseTypeConfidence = "heuristic"
	}
	res.Jurisdiction = guessJurisdiction(lower)

	s.log.Debug("basic analysis complete",
		"statutes", len(res.Statutes),
		"precedents", len(res.Precedents),
		"caseType", res.CaseType,
	)
	return res, nil
}

func (s *basicAnalysisService) extractStatutes(text string) []types.StatuteRef {
	var out []types.StatuteRef
	seen := map[string]bool{}

	add := func(ref types.StatuteRef) {
		key := strings.ToLower(ref.Act + "|" + ref.Section)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, ref)
	}

	for _, m := range ipcSectionRe.FindAllStringSubmatch(text, -1) {
		add(types.StatuteRef{Act: "Indian Penal Code, 1860", Section: m[1], Source: "regex"})
	}
	for _, m := range sectionOfActRe.FindAllStringSubmatch(text, -1) {
		act := strings.TrimSpace(m[2])
		if strings.EqualFold(act, "Act") {
			continue
		}
		add(types.StatuteRef{Act: act, Section: m[1], Source: "regex"})
	}
	for _, m := range articleRe.FindAllStringSubmatch(text, -1) {
		add(types.StatuteRef{Act: "Constitution of India", Section: "Article " + m[1], Source: "regex"})
	}

	lower := strings.ToLower(text)
	for _, entry := range keywordStatutes {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				for _, ref := range entry.refs {
					add(ref)
				}
				break
			}
		}
	}
	return out
}

func (s *basicAnalysisService) extractPrecedents(text string) []types.PrecedentRef {
	var out []types.PrecedentRef
	seen := map[string]bool{}

	add := func(ref types.PrecedentRef) {
		key := strings.ToLower(ref.Citation + "|" + ref.CaseName)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, ref)
	}

	for _, m := range airCitationRe.FindAllStringSubmatch(text, -1) {
		year, _ := strconv.Atoi(m[1])
		add(types.PrecedentRef{Citation: m[0], Year: year, Court: expandCourtAbbrev(m[2]), Source: "regex"})
	}
	for _, m := range sccCitationRe.FindAllStringSubmatch(text, -1) {
		year, _ := strconv.Atoi(m[1])
		add(types.PrecedentRef{Citation: m[0], Year: year, Court: "Supreme Court of India", Source: "regex"})
	}
	for _, m := range caseNameRe.FindAllStringSubmatch(text, -1) {
		add(types.PrecedentRef{CaseName: m[1] + " v. " + m[2], Source: "regex"})
	}
	return out
}

func (s *basicAnalysisService) extractEntities(text string) types.Entities {
	ents := types.Entities{}
	if dates := dateRe.FindAllString(text, -1); len(dates) > 0 {
		ents["date"] = dedupeStrings(dates)
	}
	if amounts := amountRe.FindAllString(text, -1); len(amounts) > 0 {
		ents["amount"] = dedupeStrings(amounts)
	}
	var parties []string
	for _, m := range caseNameRe.FindAllStringSubmatch(text, -1) {
		parties = append(parties, m[1], m[2])
	}
	if len(parties) > 0 {
		ents["party"] = dedupeStrings(parties)
	}
	if len(ents) == 0 {
		return nil
	}
	return ents
}

func guessCaseType(lower string) string {
	best := ""
	bestHits := 0
	for _, entry := range caseTypeKeywords {
		hits := 0
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		if hits > bestHits {
			bestHits = hits
			best = entry.caseType
		}
	}
	return best
}

func guessJurisdiction(lower string) string {
	for _, entry := range jurisdictionKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.jurisdiction
			}
		}
	}
	return ""
}

func expandCourtAbbrev(abbrev string) string {
	switch strings.ToUpper(abbrev) {
	case "SC":
		return "Supreme Court of India"
	case "DEL":
		return "Delhi High Court"
	case "BOM":
		return "Bombay High Court"
	case "MAD":
		return "Madras High Court"
	case "CAL":
		return "Calcutta High Court"
	default:
		return abbrev
	}
}

func dedupeStrings(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		key := strings.ToLower(strings.TrimSpace(s))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, strings.TrimSpace(s))
	}
	return out
}
