// Package schema generates schema.org JSON-LD documents for classified
// pages, gated by the account's tier policy.
package schema

import (
	"context"
	"errors"
	"fmt"

	"github.com/auroraseo/clinicgraph/internal/domain/page"
	"github.com/auroraseo/clinicgraph/internal/domain/review"
	"github.com/auroraseo/clinicgraph/internal/domain/schemadoc"
	"github.com/auroraseo/clinicgraph/internal/llm"
	"github.com/auroraseo/clinicgraph/internal/metrics"
	"github.com/auroraseo/clinicgraph/internal/services/prompts"
	"github.com/auroraseo/clinicgraph/internal/services/reviews"
	"github.com/auroraseo/clinicgraph/internal/storage"
	"github.com/auroraseo/clinicgraph/pkg/logger"
)

// generatorVersion is stamped on every emitted document so payloads can be
// regenerated wholesale after builder changes.
const generatorVersion = "v3"

// ErrPreflightFailed is returned when the source data is too thin to build a
// document; the missing fields land in a review item.
var ErrPreflightFailed = errors.New("schema preflight failed")

// Service generates and manages schema documents.
type Service struct {
	accounts  storage.AccountStore
	locations storage.LocationStore
	pages     storage.PageStore
	schemas   storage.SchemaStore
	prompts   *prompts.Service
	reviews   *reviews.Service
	client    llm.Client
	log       *logger.Logger
}

// New constructs a schema-generation service. The LLM client may be nil; the
// fill-in step is skipped then.
func New(
	accounts storage.AccountStore,
	locations storage.LocationStore,
	pages storage.PageStore,
	schemas storage.SchemaStore,
	promptSvc *prompts.Service,
	reviewSvc *reviews.Service,
	client llm.Client,
	log *logger.Logger,
) *Service {
	if log == nil {
		log = logger.NewDefault("schema")
	}
	return &Service{
		accounts:  accounts,
		locations: locations,
		pages:     pages,
		schemas:   schemas,
		prompts:   promptSvc,
		reviews:   reviewSvc,
		client:    client,
		log:       log,
	}
}

// Generate builds the JSON-LD document for one page. requested marks an
// explicit API call, which unlocks MEDIUM-tier page types; LOW is always
// refused.
func (s *Service) Generate(ctx context.Context, pageID string, requested bool) (schemadoc.Doc, error) {
	p, err := s.pages.GetPage(ctx, pageID)
	if err != nil {
		return schemadoc.Doc{}, err
	}
	// needs_review pages keep their classification, so a retry after the
	// underlying data is fixed goes straight back through generation
	classified := p.Status == page.StatusClassified ||
		p.Status == page.StatusGenerated ||
		p.Status == page.StatusNeedsReview
	if p.PageType == "" || !classified {
		return schemadoc.Doc{}, fmt.Errorf("page %s is not classified", pageID)
	}

	tier, err := s.EffectiveTier(ctx, p.AccountID, p.PageType)
	if err != nil {
		return schemadoc.Doc{}, err
	}
	switch tier {
	case schemadoc.TierHigh:
	case schemadoc.TierMedium:
		if !requested {
			return schemadoc.Doc{}, fmt.Errorf("%w: %s is MEDIUM tier, generation must be requested", ErrTierBlocked, p.PageType)
		}
	default:
		return schemadoc.Doc{}, fmt.Errorf("%w: %s is LOW tier", ErrTierBlocked, p.PageType)
	}

	acct, err := s.accounts.GetAccount(ctx, p.AccountID)
	if err != nil {
		return schemadoc.Doc{}, err
	}
	locs, err := s.locations.ListLocations(ctx, p.AccountID)
	if err != nil {
		return schemadoc.Doc{}, err
	}

	if issues := preflight(p, acct, locs); len(issues) > 0 {
		s.enqueueReview(ctx, p, "", review.ReasonPreflight, joinIssues(issues))
		metrics.RecordSchemaGeneration(string(p.PageType), "preflight_failed")
		return schemadoc.Doc{}, fmt.Errorf("%w: %s", ErrPreflightFailed, joinIssues(issues))
	}

	in := builderInput{Page: p, Account: acct, Locations: locs}

	var llmFields []string
	description, fromLLM, err := s.resolveDescription(ctx, in)
	if err != nil && !errors.Is(err, errFillRejected) {
		return schemadoc.Doc{}, err
	}
	if errors.Is(err, errFillRejected) {
		s.enqueueReview(ctx, p, "", review.ReasonLLMFill, err.Error())
	}
	if fromLLM && len(llmFields) < maxFillFields {
		llmFields = append(llmFields, "description")
	}
	in.Description = description

	graph, err := buildGraph(in)
	if err != nil {
		metrics.RecordSchemaGeneration(string(p.PageType), "error")
		return schemadoc.Doc{}, err
	}

	issues := validateGraph(graph)
	payload, err := marshalGraph(graph)
	if err != nil {
		return schemadoc.Doc{}, err
	}

	doc := schemadoc.Doc{
		PageID:           p.ID,
		AccountID:        p.AccountID,
		PageType:         p.PageType,
		Payload:          payload,
		Status:           schemadoc.StatusDraft,
		Issues:           issues,
		LLMFields:        llmFields,
		GeneratorVersion: generatorVersion,
		ContentHash:      p.ContentHash,
	}
	saved, err := s.upsertDoc(ctx, doc)
	if err != nil {
		return schemadoc.Doc{}, err
	}

	if len(issues) > 0 {
		s.enqueueReview(ctx, p, saved.ID, review.ReasonValidation, joinIssues(issues))
		p.Status = page.StatusNeedsReview
		metrics.RecordSchemaGeneration(string(p.PageType), "validation_failed")
	} else {
		p.Status = page.StatusGenerated
		metrics.RecordSchemaGeneration(string(p.PageType), "ok")
	}
	if _, err := s.pages.UpdatePage(ctx, p); err != nil {
		return schemadoc.Doc{}, err
	}

	s.log.WithField("account", p.AccountID).
		WithField("page_type", string(p.PageType)).
		Infof("schema doc %s generated for page %s", saved.ID, p.ID)
	return saved, nil
}

// GenerateBatch generates documents for an account's classified HIGH-tier
// pages. Tier-blocked and preflight-blocked pages are skipped, not fatal.
func (s *Service) GenerateBatch(ctx context.Context, accountID string, limit int) (int, error) {
	if limit <= 0 {
		limit = 10
	}
	pending, err := s.pages.ListPagesByStatus(ctx, accountID, page.StatusClassified, limit)
	if err != nil {
		return 0, err
	}

	generated := 0
	for _, p := range pending {
		if ctx.Err() != nil {
			return generated, ctx.Err()
		}
		_, err := s.Generate(ctx, p.ID, false)
		switch {
		case err == nil:
			generated++
		case errors.Is(err, ErrTierBlocked), errors.Is(err, ErrPreflightFailed):
			// skipped; preflight failures already queued a review item
		default:
			s.log.WithError(err).Warnf("generate for page %s failed", p.ID)
		}
	}
	return generated, nil
}

// MarkStale flags approved or draft docs whose page content changed since
// generation, so the runner regenerates them.
func (s *Service) MarkStale(ctx context.Context, accountID string) (int, error) {
	docs, err := s.schemas.ListSchemaDocs(ctx, accountID)
	if err != nil {
		return 0, err
	}
	stale := 0
	for _, doc := range docs {
		if doc.Status == schemadoc.StatusStale || doc.Status == schemadoc.StatusRejected {
			continue
		}
		p, err := s.pages.GetPage(ctx, doc.PageID)
		if err != nil {
			continue
		}
		if p.ContentHash == doc.ContentHash {
			continue
		}
		doc.Status = schemadoc.StatusStale
		if _, err := s.schemas.UpdateSchemaDoc(ctx, doc); err != nil {
			return stale, err
		}
		p.Status = page.StatusClassified
		if _, err := s.pages.UpdatePage(ctx, p); err != nil {
			return stale, err
		}
		stale++
	}
	return stale, nil
}

// Approve marks a draft document approved for publication.
func (s *Service) Approve(ctx context.Context, docID string) (schemadoc.Doc, error) {
	return s.transition(ctx, docID, schemadoc.StatusApproved)
}

// Reject marks a document rejected.
func (s *Service) Reject(ctx context.Context, docID string) (schemadoc.Doc, error) {
	return s.transition(ctx, docID, schemadoc.StatusRejected)
}

func (s *Service) transition(ctx context.Context, docID, status string) (schemadoc.Doc, error) {
	doc, err := s.schemas.GetSchemaDoc(ctx, docID)
	if err != nil {
		return schemadoc.Doc{}, err
	}
	if status == schemadoc.StatusApproved && len(doc.Issues) > 0 {
		return schemadoc.Doc{}, fmt.Errorf("doc %s has unresolved validation issues", docID)
	}
	doc.Status = status
	updated, err := s.schemas.UpdateSchemaDoc(ctx, doc)
	if err != nil {
		return schemadoc.Doc{}, err
	}
	s.log.Infof("schema doc %s marked %s", docID, status)
	return updated, nil
}

// Get retrieves a schema doc by identifier.
func (s *Service) Get(ctx context.Context, id string) (schemadoc.Doc, error) {
	return s.schemas.GetSchemaDoc(ctx, id)
}

// GetByPage retrieves the schema doc for a page.
func (s *Service) GetByPage(ctx context.Context, pageID string) (schemadoc.Doc, error) {
	return s.schemas.GetSchemaDocByPage(ctx, pageID)
}

// List returns schema docs belonging to an account.
func (s *Service) List(ctx context.Context, accountID string) ([]schemadoc.Doc, error) {
	return s.schemas.ListSchemaDocs(ctx, accountID)
}

func (s *Service) upsertDoc(ctx context.Context, doc schemadoc.Doc) (schemadoc.Doc, error) {
	existing, err := s.schemas.GetSchemaDocByPage(ctx, doc.PageID)
	if err != nil {
		return s.schemas.CreateSchemaDoc(ctx, doc)
	}
	doc.ID = existing.ID
	return s.schemas.UpdateSchemaDoc(ctx, doc)
}

func (s *Service) enqueueReview(ctx context.Context, p page.Page, schemaID, reason, detail string) {
	if s.reviews == nil {
		return
	}
	if _, err := s.reviews.Enqueue(ctx, review.Item{
		AccountID: p.AccountID,
		PageID:    p.ID,
		SchemaID:  schemaID,
		Reason:    reason,
		Detail:    detail,
	}); err != nil {
		s.log.WithError(err).Warnf("enqueue review for page %s", p.ID)
	}
}

func joinIssues(issues []string) string {
	out := ""
	for i, issue := range issues {
		if i > 0 {
			out += "; "
		}
		out += issue
	}
	return out
}
