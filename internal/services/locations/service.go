// Package locations manages the physical practice locations of an account.
package locations

import (
	"context"
	"fmt"

	"github.com/auroraseo/clinicgraph/internal/domain/location"
	"github.com/auroraseo/clinicgraph/internal/storage"
	"github.com/auroraseo/clinicgraph/pkg/logger"
)

// Service manages practice locations.
type Service struct {
	accounts storage.AccountStore
	store    storage.LocationStore
	log      *logger.Logger
}

// New constructs a location service.
func New(accounts storage.AccountStore, store storage.LocationStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("locations")
	}
	return &Service{accounts: accounts, store: store, log: log}
}

// Create registers a location. The first location of an account becomes the
// primary automatically.
func (s *Service) Create(ctx context.Context, loc location.Location) (location.Location, error) {
	if loc.AccountID == "" {
		return location.Location{}, fmt.Errorf("account_id is required")
	}
	if loc.Name == "" {
		return location.Location{}, fmt.Errorf("name is required")
	}
	if s.accounts != nil {
		if _, err := s.accounts.GetAccount(ctx, loc.AccountID); err != nil {
			return location.Location{}, fmt.Errorf("account validation failed: %w", err)
		}
	}

	existing, err := s.store.ListLocations(ctx, loc.AccountID)
	if err != nil {
		return location.Location{}, err
	}
	if len(existing) == 0 {
		loc.Primary = true
	}
	if loc.Primary {
		if err := s.demoteOthers(ctx, loc.AccountID, ""); err != nil {
			return location.Location{}, err
		}
	}

	created, err := s.store.CreateLocation(ctx, loc)
	if err != nil {
		return location.Location{}, err
	}
	s.log.WithField("account", loc.AccountID).Infof("location %s created", created.ID)
	return created, nil
}

// Update overwrites mutable fields of a location.
func (s *Service) Update(ctx context.Context, loc location.Location) (location.Location, error) {
	existing, err := s.store.GetLocation(ctx, loc.ID)
	if err != nil {
		return location.Location{}, err
	}
	loc.AccountID = existing.AccountID
	if loc.Name == "" {
		loc.Name = existing.Name
	}

	if loc.Primary && !existing.Primary {
		if err := s.demoteOthers(ctx, loc.AccountID, loc.ID); err != nil {
			return location.Location{}, err
		}
	}

	updated, err := s.store.UpdateLocation(ctx, loc)
	if err != nil {
		return location.Location{}, err
	}
	s.log.Infof("location %s updated", loc.ID)
	return updated, nil
}

// Get retrieves a location by identifier.
func (s *Service) Get(ctx context.Context, id string) (location.Location, error) {
	return s.store.GetLocation(ctx, id)
}

// List returns locations belonging to an account.
func (s *Service) List(ctx context.Context, accountID string) ([]location.Location, error) {
	return s.store.ListLocations(ctx, accountID)
}

// Delete removes a location. The primary location cannot be deleted while
// others remain, since schema generation needs a primary to anchor on.
func (s *Service) Delete(ctx context.Context, id string) error {
	loc, err := s.store.GetLocation(ctx, id)
	if err != nil {
		return err
	}
	if loc.Primary {
		others, err := s.store.ListLocations(ctx, loc.AccountID)
		if err != nil {
			return err
		}
		if len(others) > 1 {
			return fmt.Errorf("cannot delete primary location while others exist")
		}
	}
	if err := s.store.DeleteLocation(ctx, id); err != nil {
		return err
	}
	s.log.Infof("location %s deleted", id)
	return nil
}

// Primary returns the primary location of an account, or the only location
// when no explicit primary is set.
func (s *Service) Primary(ctx context.Context, accountID string) (location.Location, error) {
	locs, err := s.store.ListLocations(ctx, accountID)
	if err != nil {
		return location.Location{}, err
	}
	for _, loc := range locs {
		if loc.Primary {
			return loc, nil
		}
	}
	if len(locs) == 1 {
		return locs[0], nil
	}
	return location.Location{}, fmt.Errorf("account %s has no primary location", accountID)
}

func (s *Service) demoteOthers(ctx context.Context, accountID, keepID string) error {
	locs, err := s.store.ListLocations(ctx, accountID)
	if err != nil {
		return err
	}
	for _, other := range locs {
		if other.ID == keepID || !other.Primary {
			continue
		}
		other.Primary = false
		if _, err := s.store.UpdateLocation(ctx, other); err != nil {
			return err
		}
	}
	return nil
}
