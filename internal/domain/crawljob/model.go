package crawljob

import "time"

// Job statuses.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Job is one crawl run over an account's site.
type Job struct {
	ID        string
	AccountID string
	SeedURL   string
	MaxPages  int
	MaxDepth  int
	DelayMS   int
	Status    string
	Fetched   int
	Failed    int
	Skipped   int
	Error     string
	StartedAt time.Time
	EndedAt   time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
