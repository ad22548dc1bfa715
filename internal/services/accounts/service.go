// Package accounts manages tenants and their dashboard users.
package accounts

import (
	"context"
	"fmt"
	"strings"

	"github.com/auroraseo/clinicgraph/internal/domain/account"
	"github.com/auroraseo/clinicgraph/internal/storage"
	"github.com/auroraseo/clinicgraph/pkg/logger"
)

// Service manages accounts and users.
type Service struct {
	store storage.AccountStore
	log   *logger.Logger
}

// New constructs an account service.
func New(store storage.AccountStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("accounts")
	}
	return &Service{store: store, log: log}
}

// CreateAccount registers a new tenant.
func (s *Service) CreateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	if acct.Name == "" {
		return account.Account{}, fmt.Errorf("name is required")
	}
	if acct.Domain == "" {
		return account.Account{}, fmt.Errorf("domain is required")
	}
	acct.Domain = normalizeDomain(acct.Domain)
	if acct.Status == "" {
		acct.Status = account.StatusActive
	}
	switch acct.Status {
	case account.StatusActive, account.StatusPaused, account.StatusArchived:
	default:
		return account.Account{}, fmt.Errorf("unknown status %q", acct.Status)
	}

	created, err := s.store.CreateAccount(ctx, acct)
	if err != nil {
		return account.Account{}, err
	}
	s.log.WithField("account", created.ID).Infof("account %s created for %s", created.ID, created.Domain)
	return created, nil
}

// UpdateAccount overwrites mutable fields of an account.
func (s *Service) UpdateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	existing, err := s.store.GetAccount(ctx, acct.ID)
	if err != nil {
		return account.Account{}, err
	}

	if acct.Name == "" {
		acct.Name = existing.Name
	}
	if acct.Domain == "" {
		acct.Domain = existing.Domain
	} else {
		acct.Domain = normalizeDomain(acct.Domain)
	}
	if acct.Vertical == "" {
		acct.Vertical = existing.Vertical
	}
	if acct.Status == "" {
		acct.Status = existing.Status
	}
	switch acct.Status {
	case account.StatusActive, account.StatusPaused, account.StatusArchived:
	default:
		return account.Account{}, fmt.Errorf("unknown status %q", acct.Status)
	}
	if acct.Metadata == nil {
		acct.Metadata = existing.Metadata
	}

	updated, err := s.store.UpdateAccount(ctx, acct)
	if err != nil {
		return account.Account{}, err
	}
	s.log.Infof("account %s updated", acct.ID)
	return updated, nil
}

// GetAccount retrieves an account by identifier.
func (s *Service) GetAccount(ctx context.Context, id string) (account.Account, error) {
	return s.store.GetAccount(ctx, id)
}

// ListAccounts returns every account.
func (s *Service) ListAccounts(ctx context.Context) ([]account.Account, error) {
	return s.store.ListAccounts(ctx)
}

// ArchiveAccount marks an account archived. Archived accounts keep their data
// but are skipped by the background pipelines.
func (s *Service) ArchiveAccount(ctx context.Context, id string) (account.Account, error) {
	existing, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return account.Account{}, err
	}
	existing.Status = account.StatusArchived
	updated, err := s.store.UpdateAccount(ctx, existing)
	if err != nil {
		return account.Account{}, err
	}
	s.log.Infof("account %s archived", id)
	return updated, nil
}

// CreateUser adds a dashboard user to an account.
func (s *Service) CreateUser(ctx context.Context, u account.User) (account.User, error) {
	if u.AccountID == "" {
		return account.User{}, fmt.Errorf("account_id is required")
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Email == "" || !strings.Contains(u.Email, "@") {
		return account.User{}, fmt.Errorf("valid email is required")
	}
	if u.Role == "" {
		u.Role = account.RoleViewer
	}
	if !account.ValidRole(u.Role) {
		return account.User{}, fmt.Errorf("unknown role %q", u.Role)
	}
	if _, err := s.store.GetAccount(ctx, u.AccountID); err != nil {
		return account.User{}, fmt.Errorf("account validation failed: %w", err)
	}
	if existing, err := s.store.GetUserByEmail(ctx, u.Email); err == nil {
		return account.User{}, fmt.Errorf("email already in use by user %s", existing.ID)
	}
	u.Active = true

	created, err := s.store.CreateUser(ctx, u)
	if err != nil {
		return account.User{}, err
	}
	s.log.WithField("account", u.AccountID).Infof("user %s created", created.ID)
	return created, nil
}

// UpdateUser overwrites mutable fields of a user. The account binding is
// immutable.
func (s *Service) UpdateUser(ctx context.Context, u account.User) (account.User, error) {
	existing, err := s.store.GetUser(ctx, u.ID)
	if err != nil {
		return account.User{}, err
	}

	if u.Email == "" {
		u.Email = existing.Email
	} else {
		u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	}
	if u.Name == "" {
		u.Name = existing.Name
	}
	if u.Role == "" {
		u.Role = existing.Role
	}
	if !account.ValidRole(u.Role) {
		return account.User{}, fmt.Errorf("unknown role %q", u.Role)
	}
	u.AccountID = existing.AccountID

	updated, err := s.store.UpdateUser(ctx, u)
	if err != nil {
		return account.User{}, err
	}
	s.log.Infof("user %s updated", u.ID)
	return updated, nil
}

// GetUser retrieves a user by identifier.
func (s *Service) GetUser(ctx context.Context, id string) (account.User, error) {
	return s.store.GetUser(ctx, id)
}

// GetUserByEmail retrieves a user by email, used by the auth layer.
func (s *Service) GetUserByEmail(ctx context.Context, email string) (account.User, error) {
	return s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// ListUsers returns users belonging to an account.
func (s *Service) ListUsers(ctx context.Context, accountID string) ([]account.User, error) {
	return s.store.ListUsers(ctx, accountID)
}

// DeactivateUser flips a user inactive so tokens stop resolving.
func (s *Service) DeactivateUser(ctx context.Context, id string) (account.User, error) {
	existing, err := s.store.GetUser(ctx, id)
	if err != nil {
		return account.User{}, err
	}
	existing.Active = false
	updated, err := s.store.UpdateUser(ctx, existing)
	if err != nil {
		return account.User{}, err
	}
	s.log.Infof("user %s deactivated", id)
	return updated, nil
}

func normalizeDomain(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "www.")
	return strings.TrimSuffix(d, "/")
}
