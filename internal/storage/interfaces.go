package storage

import (
	"context"

	"github.com/auroraseo/clinicgraph/internal/domain/account"
	"github.com/auroraseo/clinicgraph/internal/domain/crawljob"
	"github.com/auroraseo/clinicgraph/internal/domain/linkplan"
	"github.com/auroraseo/clinicgraph/internal/domain/location"
	"github.com/auroraseo/clinicgraph/internal/domain/page"
	"github.com/auroraseo/clinicgraph/internal/domain/prompt"
	"github.com/auroraseo/clinicgraph/internal/domain/review"
	"github.com/auroraseo/clinicgraph/internal/domain/schemadoc"
)

// AccountStore persists accounts and their users.
type AccountStore interface {
	CreateAccount(ctx context.Context, acct account.Account) (account.Account, error)
	UpdateAccount(ctx context.Context, acct account.Account) (account.Account, error)
	GetAccount(ctx context.Context, id string) (account.Account, error)
	ListAccounts(ctx context.Context) ([]account.Account, error)
	DeleteAccount(ctx context.Context, id string) error

	CreateUser(ctx context.Context, u account.User) (account.User, error)
	UpdateUser(ctx context.Context, u account.User) (account.User, error)
	GetUser(ctx context.Context, id string) (account.User, error)
	GetUserByEmail(ctx context.Context, email string) (account.User, error)
	ListUsers(ctx context.Context, accountID string) ([]account.User, error)
}

// LocationStore persists practice locations.
type LocationStore interface {
	CreateLocation(ctx context.Context, loc location.Location) (location.Location, error)
	UpdateLocation(ctx context.Context, loc location.Location) (location.Location, error)
	GetLocation(ctx context.Context, id string) (location.Location, error)
	ListLocations(ctx context.Context, accountID string) ([]location.Location, error)
	DeleteLocation(ctx context.Context, id string) error
}

// PageStore persists crawled pages.
type PageStore interface {
	UpsertPage(ctx context.Context, p page.Page) (page.Page, error)
	UpdatePage(ctx context.Context, p page.Page) (page.Page, error)
	GetPage(ctx context.Context, id string) (page.Page, error)
	GetPageByURL(ctx context.Context, accountID, url string) (page.Page, error)
	ListPages(ctx context.Context, accountID string) ([]page.Page, error)
	ListPagesByStatus(ctx context.Context, accountID, status string, limit int) ([]page.Page, error)
}

// PromptStore persists prompt templates.
type PromptStore interface {
	CreatePrompt(ctx context.Context, p prompt.Prompt) (prompt.Prompt, error)
	UpdatePrompt(ctx context.Context, p prompt.Prompt) (prompt.Prompt, error)
	GetPrompt(ctx context.Context, id string) (prompt.Prompt, error)
	ListPrompts(ctx context.Context, accountID string) ([]prompt.Prompt, error)
	ActivePrompt(ctx context.Context, accountID string, purpose prompt.Purpose) (prompt.Prompt, error)
}

// SchemaStore persists generated schema docs and tier overrides.
type SchemaStore interface {
	CreateSchemaDoc(ctx context.Context, doc schemadoc.Doc) (schemadoc.Doc, error)
	UpdateSchemaDoc(ctx context.Context, doc schemadoc.Doc) (schemadoc.Doc, error)
	GetSchemaDoc(ctx context.Context, id string) (schemadoc.Doc, error)
	GetSchemaDocByPage(ctx context.Context, pageID string) (schemadoc.Doc, error)
	ListSchemaDocs(ctx context.Context, accountID string) ([]schemadoc.Doc, error)

	SetTierOverride(ctx context.Context, ov schemadoc.TierOverride) (schemadoc.TierOverride, error)
	ListTierOverrides(ctx context.Context, accountID string) ([]schemadoc.TierOverride, error)
	DeleteTierOverride(ctx context.Context, accountID string, pt page.Type) error
}

// LinkPlanStore persists internal-link plans.
type LinkPlanStore interface {
	CreateLink(ctx context.Context, l linkplan.Link) (linkplan.Link, error)
	UpdateLink(ctx context.Context, l linkplan.Link) (linkplan.Link, error)
	GetLink(ctx context.Context, id string) (linkplan.Link, error)
	ListLinks(ctx context.Context, accountID string) ([]linkplan.Link, error)
	DeleteLink(ctx context.Context, id string) error
}

// ReviewStore persists the review queue.
type ReviewStore interface {
	CreateReviewItem(ctx context.Context, item review.Item) (review.Item, error)
	UpdateReviewItem(ctx context.Context, item review.Item) (review.Item, error)
	GetReviewItem(ctx context.Context, id string) (review.Item, error)
	ListReviewItems(ctx context.Context, accountID, state string) ([]review.Item, error)
}

// CrawlJobStore persists crawl jobs.
type CrawlJobStore interface {
	CreateCrawlJob(ctx context.Context, job crawljob.Job) (crawljob.Job, error)
	UpdateCrawlJob(ctx context.Context, job crawljob.Job) (crawljob.Job, error)
	GetCrawlJob(ctx context.Context, id string) (crawljob.Job, error)
	ListCrawlJobs(ctx context.Context, accountID string) ([]crawljob.Job, error)
	ListPendingCrawlJobs(ctx context.Context) ([]crawljob.Job, error)
}
