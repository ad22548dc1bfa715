package review

import "time"

// Item states.
const (
	StateOpen      = "open"
	StateResolved  = "resolved"
	StateDismissed = "dismissed"
)

// Well-known reasons the pipeline enqueues review items.
const (
	ReasonClassifyUnknown = "classify_unknown_type"
	ReasonClassifyParse   = "classify_parse_failure"
	ReasonPreflight       = "schema_preflight_failed"
	ReasonValidation      = "schema_validation_failed"
	ReasonLLMFill         = "schema_llm_fill_rejected"
)

// Item is a review-queue entry referencing a page or schema doc.
type Item struct {
	ID        string
	AccountID string
	PageID    string
	SchemaID  string
	Reason    string
	Detail    string
	State     string
	Note      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
