// Package linkplans manages proposed internal links between crawled pages.
package linkplans

import (
	"context"
	"fmt"

	"github.com/auroraseo/clinicgraph/internal/domain/linkplan"
	"github.com/auroraseo/clinicgraph/internal/storage"
	"github.com/auroraseo/clinicgraph/pkg/logger"
)

// Service manages internal-link plans.
type Service struct {
	pages storage.PageStore
	store storage.LinkPlanStore
	log   *logger.Logger
}

// New constructs a link-plan service.
func New(pages storage.PageStore, store storage.LinkPlanStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("linkplans")
	}
	return &Service{pages: pages, store: store, log: log}
}

// Propose records a proposed link. Source and target must be distinct pages
// of the same account.
func (s *Service) Propose(ctx context.Context, l linkplan.Link) (linkplan.Link, error) {
	if l.AccountID == "" {
		return linkplan.Link{}, fmt.Errorf("account_id is required")
	}
	if l.SourcePage == "" || l.TargetPage == "" {
		return linkplan.Link{}, fmt.Errorf("source and target pages are required")
	}
	if l.SourcePage == l.TargetPage {
		return linkplan.Link{}, fmt.Errorf("source and target must differ")
	}
	if l.AnchorText == "" {
		return linkplan.Link{}, fmt.Errorf("anchor text is required")
	}

	if s.pages != nil {
		for _, id := range []string{l.SourcePage, l.TargetPage} {
			p, err := s.pages.GetPage(ctx, id)
			if err != nil {
				return linkplan.Link{}, fmt.Errorf("page validation failed: %w", err)
			}
			if p.AccountID != l.AccountID {
				return linkplan.Link{}, fmt.Errorf("page %s belongs to another account", id)
			}
		}
	}

	l.Status = linkplan.StatusProposed
	created, err := s.store.CreateLink(ctx, l)
	if err != nil {
		return linkplan.Link{}, err
	}
	s.log.WithField("account", l.AccountID).Infof("link %s proposed", created.ID)
	return created, nil
}

// SetStatus transitions a link between proposed, applied and rejected.
func (s *Service) SetStatus(ctx context.Context, id, status, note string) (linkplan.Link, error) {
	switch status {
	case linkplan.StatusProposed, linkplan.StatusApplied, linkplan.StatusRejected:
	default:
		return linkplan.Link{}, fmt.Errorf("unknown status %q", status)
	}
	existing, err := s.store.GetLink(ctx, id)
	if err != nil {
		return linkplan.Link{}, err
	}
	existing.Status = status
	if note != "" {
		existing.Note = note
	}
	updated, err := s.store.UpdateLink(ctx, existing)
	if err != nil {
		return linkplan.Link{}, err
	}
	s.log.Infof("link %s marked %s", id, status)
	return updated, nil
}

// Get retrieves a link by identifier.
func (s *Service) Get(ctx context.Context, id string) (linkplan.Link, error) {
	return s.store.GetLink(ctx, id)
}

// List returns links belonging to an account.
func (s *Service) List(ctx context.Context, accountID string) ([]linkplan.Link, error) {
	return s.store.ListLinks(ctx, accountID)
}

// Delete removes a link proposal.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.DeleteLink(ctx, id)
}
