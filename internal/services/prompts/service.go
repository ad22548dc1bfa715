// Package prompts manages the versioned prompt templates used by the
// classification and schema-fill pipelines.
package prompts

import (
	"context"
	"fmt"

	"github.com/auroraseo/clinicgraph/internal/domain/prompt"
	"github.com/auroraseo/clinicgraph/internal/llm"
	"github.com/auroraseo/clinicgraph/internal/storage"
	"github.com/auroraseo/clinicgraph/pkg/logger"
)

// Service manages prompt templates.
type Service struct {
	accounts storage.AccountStore
	store    storage.PromptStore
	log      *logger.Logger
}

// New constructs a prompt service.
func New(accounts storage.AccountStore, store storage.PromptStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("prompts")
	}
	return &Service{accounts: accounts, store: store, log: log}
}

// Create registers a new prompt template.
func (s *Service) Create(ctx context.Context, p prompt.Prompt) (prompt.Prompt, error) {
	if p.Name == "" {
		return prompt.Prompt{}, fmt.Errorf("name is required")
	}
	if p.Body == "" {
		return prompt.Prompt{}, fmt.Errorf("body is required")
	}
	if !prompt.ValidPurpose(p.Purpose) {
		return prompt.Prompt{}, fmt.Errorf("unknown purpose %q", p.Purpose)
	}
	if p.AccountID != "" && s.accounts != nil {
		if _, err := s.accounts.GetAccount(ctx, p.AccountID); err != nil {
			return prompt.Prompt{}, fmt.Errorf("account validation failed: %w", err)
		}
	}
	if p.Version <= 0 {
		p.Version = 1
	}

	created, err := s.store.CreatePrompt(ctx, p)
	if err != nil {
		return prompt.Prompt{}, err
	}
	s.log.WithField("purpose", string(p.Purpose)).Infof("prompt %s created", created.ID)
	return created, nil
}

// Update stores a new body as a bumped version of the prompt.
func (s *Service) Update(ctx context.Context, p prompt.Prompt) (prompt.Prompt, error) {
	existing, err := s.store.GetPrompt(ctx, p.ID)
	if err != nil {
		return prompt.Prompt{}, err
	}

	p.AccountID = existing.AccountID
	p.Purpose = existing.Purpose
	if p.Name == "" {
		p.Name = existing.Name
	}
	if p.Body == "" {
		p.Body = existing.Body
	}
	if p.Body != existing.Body {
		p.Version = existing.Version + 1
	} else {
		p.Version = existing.Version
	}

	updated, err := s.store.UpdatePrompt(ctx, p)
	if err != nil {
		return prompt.Prompt{}, err
	}
	s.log.Infof("prompt %s updated to v%d", p.ID, updated.Version)
	return updated, nil
}

// Get retrieves a prompt by identifier.
func (s *Service) Get(ctx context.Context, id string) (prompt.Prompt, error) {
	return s.store.GetPrompt(ctx, id)
}

// List returns prompts visible to an account, including globals.
func (s *Service) List(ctx context.Context, accountID string) ([]prompt.Prompt, error) {
	return s.store.ListPrompts(ctx, accountID)
}

// Render resolves the active prompt for a purpose and substitutes values.
// Account-scoped prompts shadow globals.
func (s *Service) Render(ctx context.Context, accountID string, purpose prompt.Purpose, values map[string]string) (prompt.Prompt, llm.Request, error) {
	p, err := s.store.ActivePrompt(ctx, accountID, purpose)
	if err != nil {
		return prompt.Prompt{}, llm.Request{}, fmt.Errorf("no active %s prompt: %w", purpose, err)
	}
	body, err := llm.RenderTemplate(p.Body, values)
	if err != nil {
		return prompt.Prompt{}, llm.Request{}, fmt.Errorf("render prompt %s: %w", p.ID, err)
	}
	return p, llm.Request{System: p.System, Prompt: body}, nil
}
