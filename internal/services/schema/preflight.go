package schema

import (
	"fmt"
	"strings"

	"github.com/auroraseo/clinicgraph/internal/domain/account"
	"github.com/auroraseo/clinicgraph/internal/domain/location"
	"github.com/auroraseo/clinicgraph/internal/domain/page"
)

// placeholderValues are strings that look filled-in but carry no real
// content. Matching is case-insensitive on the trimmed value.
var placeholderValues = map[string]struct{}{
	"": {}, "tbd": {}, "todo": {}, "n/a": {}, "na": {}, "none": {},
	"coming soon": {}, "placeholder": {}, "xxx": {}, "-": {},
}

// isPlaceholder reports whether a field value is effectively empty.
func isPlaceholder(v string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(v))
	if _, hit := placeholderValues[trimmed]; hit {
		return true
	}
	if strings.Contains(trimmed, "lorem ipsum") {
		return true
	}
	if strings.Contains(trimmed, "{{") || strings.Contains(trimmed, "}}") {
		return true
	}
	return false
}

// preflight checks that the source data carries what the page type's builder
// needs. A non-empty return blocks generation.
func preflight(p page.Page, acct account.Account, locs []location.Location) []string {
	var issues []string

	if isPlaceholder(acct.Name) {
		issues = append(issues, "account name is missing")
	}
	if isPlaceholder(acct.Domain) {
		issues = append(issues, "account domain is missing")
	}

	switch p.PageType {
	case page.TypeHomepage, page.TypeContact, page.TypeLocation:
		if len(completeLocations(locs)) == 0 {
			issues = append(issues, "no location with a complete address")
		}
	case page.TypeProcedure, page.TypeService, page.TypeBlogPost:
		if isPlaceholder(p.Title) {
			issues = append(issues, "page title is missing")
		}
	case page.TypeTeamMember:
		if isPlaceholder(p.Title) {
			issues = append(issues, "team member page has no title to derive a name from")
		}
	case page.TypeFAQ:
		if pairs := extractFAQs(p.Headings, p.Excerpt); len(pairs) < minFAQPairs {
			issues = append(issues, fmt.Sprintf("found %d question/answer pairs, need at least %d", len(pairs), minFAQPairs))
		}
	}

	return issues
}

func completeLocations(locs []location.Location) []location.Location {
	var out []location.Location
	for _, l := range locs {
		if l.Complete() {
			out = append(out, l)
		}
	}
	return out
}
