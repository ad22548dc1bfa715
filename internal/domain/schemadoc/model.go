package schemadoc

import (
	"time"

	"github.com/auroraseo/clinicgraph/internal/domain/page"
)

// Tier controls whether structured-data generation runs automatically, on
// request, or never, for a given page type.
type Tier string

const (
	TierHigh   Tier = "HIGH"
	TierMedium Tier = "MEDIUM"
	TierLow    Tier = "LOW"
)

// ValidTier reports whether t is a known tier.
func ValidTier(t Tier) bool {
	return t == TierHigh || t == TierMedium || t == TierLow
}

// DefaultTiers maps each page type to its built-in generation tier. Accounts
// may override individual entries.
var DefaultTiers = map[page.Type]Tier{
	page.TypeHomepage:   TierHigh,
	page.TypeProcedure:  TierHigh,
	page.TypeService:    TierHigh,
	page.TypeLocation:   TierHigh,
	page.TypeFAQ:        TierHigh,
	page.TypeTeamMember: TierMedium,
	page.TypeBlogPost:   TierMedium,
	page.TypeAbout:      TierMedium,
	page.TypeContact:    TierMedium,
	page.TypeOther:      TierLow,
}

// TierOverride is a per-account tier override for one page type.
type TierOverride struct {
	ID        string
	AccountID string
	PageType  page.Type
	Tier      Tier
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Doc statuses.
const (
	StatusDraft    = "draft"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusStale    = "stale"
)

// Doc is a generated JSON-LD document for a page.
type Doc struct {
	ID               string
	PageID           string
	AccountID        string
	PageType         page.Type
	Payload          string // JSON-LD, always a single @context+@graph object
	Status           string
	Issues           []string
	LLMFields        []string
	GeneratorVersion string
	ContentHash      string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
