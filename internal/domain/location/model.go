package location

import "time"

// Location is a physical practice location belonging to an account.
type Location struct {
	ID         string
	AccountID  string
	Name       string
	Street     string
	City       string
	Region     string
	PostalCode string
	Country    string
	Phone      string
	Latitude   float64
	Longitude  float64
	BookingURL string
	Primary    bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Complete reports whether the location carries the address fields schema
// generation needs for a LocalBusiness node.
func (l Location) Complete() bool {
	return l.Name != "" && l.Street != "" && l.City != "" && l.Region != "" && l.PostalCode != ""
}
