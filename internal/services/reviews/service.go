// Package reviews manages the human review queue fed by the classification
// and schema-generation pipelines.
package reviews

import (
	"context"
	"fmt"

	"github.com/auroraseo/clinicgraph/internal/domain/review"
	"github.com/auroraseo/clinicgraph/internal/storage"
	"github.com/auroraseo/clinicgraph/pkg/logger"
)

// Service manages review items.
type Service struct {
	store storage.ReviewStore
	log   *logger.Logger
}

// New constructs a review service.
func New(store storage.ReviewStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("reviews")
	}
	return &Service{store: store, log: log}
}

// Enqueue records a new open review item. The pipelines call this whenever
// they hit something a human must look at.
func (s *Service) Enqueue(ctx context.Context, item review.Item) (review.Item, error) {
	if item.AccountID == "" {
		return review.Item{}, fmt.Errorf("account_id is required")
	}
	if item.PageID == "" && item.SchemaID == "" {
		return review.Item{}, fmt.Errorf("a page or schema reference is required")
	}
	if item.Reason == "" {
		return review.Item{}, fmt.Errorf("reason is required")
	}
	item.State = review.StateOpen

	created, err := s.store.CreateReviewItem(ctx, item)
	if err != nil {
		return review.Item{}, err
	}
	s.log.WithField("account", item.AccountID).
		WithField("reason", item.Reason).
		Info("review item enqueued")
	return created, nil
}

// Resolve closes an item with a note.
func (s *Service) Resolve(ctx context.Context, id, note string) (review.Item, error) {
	return s.transition(ctx, id, review.StateResolved, note)
}

// Dismiss closes an item without action.
func (s *Service) Dismiss(ctx context.Context, id, note string) (review.Item, error) {
	return s.transition(ctx, id, review.StateDismissed, note)
}

func (s *Service) transition(ctx context.Context, id, state, note string) (review.Item, error) {
	existing, err := s.store.GetReviewItem(ctx, id)
	if err != nil {
		return review.Item{}, err
	}
	if existing.State != review.StateOpen {
		return review.Item{}, fmt.Errorf("review item %s is already %s", id, existing.State)
	}
	existing.State = state
	existing.Note = note

	updated, err := s.store.UpdateReviewItem(ctx, existing)
	if err != nil {
		return review.Item{}, err
	}
	s.log.Infof("review item %s %s", id, state)
	return updated, nil
}

// Get retrieves a review item by identifier.
func (s *Service) Get(ctx context.Context, id string) (review.Item, error) {
	return s.store.GetReviewItem(ctx, id)
}

// List returns review items for an account, optionally filtered by state.
func (s *Service) List(ctx context.Context, accountID, state string) ([]review.Item, error) {
	return s.store.ListReviewItems(ctx, accountID, state)
}
