package page

import (
	"strings"
	"time"
)

// Type classifies a crawled page's content category.
type Type string

const (
	TypeHomepage   Type = "HOMEPAGE"
	TypeProcedure  Type = "PROCEDURE"
	TypeService    Type = "SERVICE"
	TypeTeamMember Type = "TEAM_MEMBER"
	TypeAbout      Type = "ABOUT"
	TypeContact    Type = "CONTACT"
	TypeBlogPost   Type = "BLOG_POST"
	TypeFAQ        Type = "FAQ"
	TypeLocation   Type = "LOCATION_PAGE"
	TypeOther      Type = "OTHER"
)

// Types lists every known page type.
var Types = []Type{
	TypeHomepage, TypeProcedure, TypeService, TypeTeamMember, TypeAbout,
	TypeContact, TypeBlogPost, TypeFAQ, TypeLocation, TypeOther,
}

// ParseType resolves free-form input (LLM output included) to a known type.
// Unknown values resolve to TypeOther with ok=false.
func ParseType(raw string) (Type, bool) {
	normalized := Type(strings.ToUpper(strings.TrimSpace(raw)))
	for _, t := range Types {
		if t == normalized {
			return t, true
		}
	}
	return TypeOther, false
}

// Page lifecycle statuses.
const (
	StatusDiscovered  = "discovered"
	StatusFetched     = "fetched"
	StatusClassified  = "classified"
	StatusGenerated   = "generated"
	StatusNeedsReview = "needs_review"
	StatusFailed      = "failed"
)

// ClassifierSource records which pass assigned the page type.
const (
	SourceHeuristic = "heuristic"
	SourceLLM       = "llm"
)

// Page is a crawled page row.
type Page struct {
	ID              string
	AccountID       string
	URL             string
	Path            string
	Title           string
	MetaDescription string
	Headings        []string
	Excerpt         string
	Status          string
	PageType        Type
	Confidence      float64
	ClassifiedBy    string
	HTTPStatus      int
	ContentHash     string
	Depth           int
	FetchedAt       time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
