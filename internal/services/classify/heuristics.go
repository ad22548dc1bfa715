package classify

import (
	"strings"

	"github.com/auroraseo/clinicgraph/internal/domain/page"
)

// pathRule maps a URL path segment to a page type with a confidence score.
type pathRule struct {
	segment    string
	pageType   page.Type
	confidence float64
}

// Segment rules are checked in order; first hit wins. Confidence >= 0.9
// short-circuits the LLM pass.
var pathRules = []pathRule{
	{"blog", page.TypeBlogPost, 0.95},
	{"news", page.TypeBlogPost, 0.9},
	{"articles", page.TypeBlogPost, 0.9},
	{"team", page.TypeTeamMember, 0.9},
	{"staff", page.TypeTeamMember, 0.9},
	{"providers", page.TypeTeamMember, 0.9},
	{"doctors", page.TypeTeamMember, 0.9},
	{"our-team", page.TypeTeamMember, 0.9},
	{"meet-the-team", page.TypeTeamMember, 0.9},
	{"contact", page.TypeContact, 0.95},
	{"contact-us", page.TypeContact, 0.95},
	{"about", page.TypeAbout, 0.9},
	{"about-us", page.TypeAbout, 0.9},
	{"faq", page.TypeFAQ, 0.95},
	{"faqs", page.TypeFAQ, 0.95},
	{"locations", page.TypeLocation, 0.9},
	{"location", page.TypeLocation, 0.85},
	{"office", page.TypeLocation, 0.7},
	{"services", page.TypeService, 0.8},
	{"treatments", page.TypeProcedure, 0.8},
	{"procedures", page.TypeProcedure, 0.8},
}

// Procedure keywords for the medical/aesthetic vertical. A path segment
// matching one of these is a strong PROCEDURE signal even without a
// /treatments/ prefix.
var procedureKeywords = []string{
	"botox", "filler", "fillers", "juvederm", "restylane", "dysport",
	"laser", "microneedling", "coolsculpting", "kybella", "sculptra",
	"hydrafacial", "chemical-peel", "prp", "morpheus8", "ultherapy",
	"emsculpt", "lip-filler", "rhinoplasty", "liposuction", "facelift",
	"blepharoplasty", "breast-augmentation", "tummy-tuck", "hair-restoration",
	"dermaplaning", "ipl", "co2-laser", "thread-lift",
}

// heuristicResult is a pre-LLM classification guess.
type heuristicResult struct {
	PageType   page.Type
	Confidence float64
}

// classifyByPath applies the URL heuristics. ok is false when no rule fires.
func classifyByPath(path string) (heuristicResult, bool) {
	trimmed := strings.Trim(strings.ToLower(path), "/")
	if trimmed == "" || trimmed == "index" || trimmed == "home" {
		return heuristicResult{PageType: page.TypeHomepage, Confidence: 1.0}, true
	}

	segments := strings.Split(trimmed, "/")
	for _, rule := range pathRules {
		for _, seg := range segments {
			if seg == rule.segment {
				return heuristicResult{PageType: rule.pageType, Confidence: rule.confidence}, true
			}
		}
	}

	for _, seg := range segments {
		for _, kw := range procedureKeywords {
			if seg == kw || strings.Contains(seg, kw) {
				return heuristicResult{PageType: page.TypeProcedure, Confidence: 0.9}, true
			}
		}
	}

	return heuristicResult{}, false
}
