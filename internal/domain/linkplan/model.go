package linkplan

import "time"

// Link statuses.
const (
	StatusProposed = "proposed"
	StatusApplied  = "applied"
	StatusRejected = "rejected"
)

// Link is one proposed internal link from a source page to a target page.
type Link struct {
	ID         string
	AccountID  string
	SourcePage string
	TargetPage string
	AnchorText string
	Status     string
	Note       string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
