package account

import "time"

// Account represents a client practice (tenant). Every other aggregate hangs
// off an account.
type Account struct {
	ID        string
	Name      string
	Domain    string
	Vertical  string
	Status    string
	Metadata  map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Statuses an account can be in.
const (
	StatusActive   = "active"
	StatusPaused   = "paused"
	StatusArchived = "archived"
)

// Role controls what a user may do through the admin API.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// ValidRole reports whether r is a known role.
func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// CanWrite reports whether the role may perform mutations.
func (r Role) CanWrite() bool { return r == RoleAdmin || r == RoleEditor }

// User is a dashboard user scoped to an account.
type User struct {
	ID        string
	AccountID string
	Email     string
	Name      string
	Role      Role
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
