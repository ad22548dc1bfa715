package prompt

import "time"

// Purpose identifies where a prompt template is used in the pipeline.
type Purpose string

const (
	PurposeSiteSummary Purpose = "site_summary"
	PurposeClassify    Purpose = "classify"
	PurposeSchemaFill  Purpose = "schema_fill"
)

// ValidPurpose reports whether p is a known purpose.
func ValidPurpose(p Purpose) bool {
	switch p {
	case PurposeSiteSummary, PurposeClassify, PurposeSchemaFill:
		return true
	}
	return false
}

// Prompt is a named, versioned prompt template. Body uses {{name}}
// placeholders substituted at call time.
type Prompt struct {
	ID        string
	AccountID string // empty for global defaults
	Name      string
	Purpose   Purpose
	Body      string
	System    string
	Version   int
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
