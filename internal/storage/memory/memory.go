package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/auroraseo/clinicgraph/internal/domain/account"
	"github.com/auroraseo/clinicgraph/internal/domain/crawljob"
	"github.com/auroraseo/clinicgraph/internal/domain/linkplan"
	"github.com/auroraseo/clinicgraph/internal/domain/location"
	"github.com/auroraseo/clinicgraph/internal/domain/page"
	"github.com/auroraseo/clinicgraph/internal/domain/prompt"
	"github.com/auroraseo/clinicgraph/internal/domain/review"
	"github.com/auroraseo/clinicgraph/internal/domain/schemadoc"
	"github.com/auroraseo/clinicgraph/internal/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu            sync.RWMutex
	nextID        int64
	accounts      map[string]account.Account
	users         map[string]account.User
	locations     map[string]location.Location
	pages         map[string]page.Page
	pagesByURL    map[string]string
	prompts       map[string]prompt.Prompt
	schemaDocs    map[string]schemadoc.Doc
	schemaByPage  map[string]string
	tierOverrides map[string]schemadoc.TierOverride
	links         map[string]linkplan.Link
	reviews       map[string]review.Item
	crawlJobs     map[string]crawljob.Job
}

var _ storage.AccountStore = (*Store)(nil)
var _ storage.LocationStore = (*Store)(nil)
var _ storage.PageStore = (*Store)(nil)
var _ storage.PromptStore = (*Store)(nil)
var _ storage.SchemaStore = (*Store)(nil)
var _ storage.LinkPlanStore = (*Store)(nil)
var _ storage.ReviewStore = (*Store)(nil)
var _ storage.CrawlJobStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:        1,
		accounts:      make(map[string]account.Account),
		users:         make(map[string]account.User),
		locations:     make(map[string]location.Location),
		pages:         make(map[string]page.Page),
		pagesByURL:    make(map[string]string),
		prompts:       make(map[string]prompt.Prompt),
		schemaDocs:    make(map[string]schemadoc.Doc),
		schemaByPage:  make(map[string]string),
		tierOverrides: make(map[string]schemadoc.TierOverride),
		links:         make(map[string]linkplan.Link),
		reviews:       make(map[string]review.Item),
		crawlJobs:     make(map[string]crawljob.Job),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

func pageURLKey(accountID, url string) string {
	return accountID + "|" + strings.TrimRight(url, "/")
}

func tierKey(accountID string, pt page.Type) string {
	return accountID + "|" + string(pt)
}

func cloneMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

// AccountStore implementation -------------------------------------------------

func (s *Store) CreateAccount(_ context.Context, acct account.Account) (account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if acct.ID == "" {
		acct.ID = s.nextIDLocked()
	} else if _, exists := s.accounts[acct.ID]; exists {
		return account.Account{}, fmt.Errorf("account %s already exists", acct.ID)
	}

	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now
	acct.Metadata = cloneMap(acct.Metadata)

	s.accounts[acct.ID] = acct
	return acct, nil
}

func (s *Store) UpdateAccount(_ context.Context, acct account.Account) (account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.accounts[acct.ID]
	if !ok {
		return account.Account{}, fmt.Errorf("account %s not found", acct.ID)
	}

	acct.CreatedAt = original.CreatedAt
	acct.UpdatedAt = time.Now().UTC()
	acct.Metadata = cloneMap(acct.Metadata)

	s.accounts[acct.ID] = acct
	return acct, nil
}

func (s *Store) GetAccount(_ context.Context, id string) (account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[id]
	if !ok {
		return account.Account{}, fmt.Errorf("account %s not found", id)
	}
	return acct, nil
}

func (s *Store) ListAccounts(_ context.Context) ([]account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]account.Account, 0, len(s.accounts))
	for _, acct := range s.accounts {
		result = append(result, acct)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) DeleteAccount(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[id]; !ok {
		return fmt.Errorf("account %s not found", id)
	}
	delete(s.accounts, id)
	return nil
}

func (s *Store) CreateUser(_ context.Context, u account.User) (account.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == "" {
		u.ID = s.nextIDLocked()
	} else if _, exists := s.users[u.ID]; exists {
		return account.User{}, fmt.Errorf("user %s already exists", u.ID)
	}
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return account.User{}, fmt.Errorf("user email %s already registered", u.Email)
		}
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	s.users[u.ID] = u
	return u, nil
}

func (s *Store) UpdateUser(_ context.Context, u account.User) (account.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.users[u.ID]
	if !ok {
		return account.User{}, fmt.Errorf("user %s not found", u.ID)
	}

	u.AccountID = original.AccountID
	u.CreatedAt = original.CreatedAt
	u.UpdatedAt = time.Now().UTC()

	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (account.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return account.User{}, fmt.Errorf("user %s not found", id)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (account.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return account.User{}, fmt.Errorf("user %s not found", email)
}

func (s *Store) ListUsers(_ context.Context, accountID string) ([]account.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]account.User, 0)
	for _, u := range s.users {
		if accountID == "" || u.AccountID == accountID {
			result = append(result, u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

// LocationStore implementation ------------------------------------------------

func (s *Store) CreateLocation(_ context.Context, loc location.Location) (location.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if loc.ID == "" {
		loc.ID = s.nextIDLocked()
	} else if _, exists := s.locations[loc.ID]; exists {
		return location.Location{}, fmt.Errorf("location %s already exists", loc.ID)
	}

	now := time.Now().UTC()
	loc.CreatedAt = now
	loc.UpdatedAt = now

	s.locations[loc.ID] = loc
	return loc, nil
}

func (s *Store) UpdateLocation(_ context.Context, loc location.Location) (location.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.locations[loc.ID]
	if !ok {
		return location.Location{}, fmt.Errorf("location %s not found", loc.ID)
	}

	loc.AccountID = original.AccountID
	loc.CreatedAt = original.CreatedAt
	loc.UpdatedAt = time.Now().UTC()

	s.locations[loc.ID] = loc
	return loc, nil
}

func (s *Store) GetLocation(_ context.Context, id string) (location.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loc, ok := s.locations[id]
	if !ok {
		return location.Location{}, fmt.Errorf("location %s not found", id)
	}
	return loc, nil
}

func (s *Store) ListLocations(_ context.Context, accountID string) ([]location.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]location.Location, 0)
	for _, loc := range s.locations {
		if accountID == "" || loc.AccountID == accountID {
			result = append(result, loc)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) DeleteLocation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.locations[id]; !ok {
		return fmt.Errorf("location %s not found", id)
	}
	delete(s.locations, id)
	return nil
}

// PageStore implementation ----------------------------------------------------

func (s *Store) UpsertPage(_ context.Context, p page.Page) (page.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pageURLKey(p.AccountID, p.URL)
	now := time.Now().UTC()

	if existingID, ok := s.pagesByURL[key]; ok {
		// refetch of a known URL: classification fields survive, matching
		// the postgres ON CONFLICT column list
		existing := s.pages[existingID]
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
		p.PageType = existing.PageType
		p.Confidence = existing.Confidence
		p.ClassifiedBy = existing.ClassifiedBy
		p.UpdatedAt = now
		p.Headings = cloneStrings(p.Headings)
		s.pages[p.ID] = p
		return p, nil
	}

	if p.ID == "" {
		p.ID = s.nextIDLocked()
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	p.Headings = cloneStrings(p.Headings)

	s.pages[p.ID] = p
	s.pagesByURL[key] = p.ID
	return p, nil
}

func (s *Store) UpdatePage(_ context.Context, p page.Page) (page.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.pages[p.ID]
	if !ok {
		return page.Page{}, fmt.Errorf("page %s not found", p.ID)
	}

	p.AccountID = original.AccountID
	p.URL = original.URL
	p.CreatedAt = original.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	p.Headings = cloneStrings(p.Headings)

	s.pages[p.ID] = p
	return p, nil
}

func (s *Store) GetPage(_ context.Context, id string) (page.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pages[id]
	if !ok {
		return page.Page{}, fmt.Errorf("page %s not found", id)
	}
	return p, nil
}

func (s *Store) GetPageByURL(_ context.Context, accountID, url string) (page.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.pagesByURL[pageURLKey(accountID, url)]
	if !ok {
		return page.Page{}, fmt.Errorf("page %s not found", url)
	}
	return s.pages[id], nil
}

func (s *Store) ListPages(_ context.Context, accountID string) ([]page.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]page.Page, 0)
	for _, p := range s.pages {
		if accountID == "" || p.AccountID == accountID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) ListPagesByStatus(_ context.Context, accountID, status string, limit int) ([]page.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]page.Page, 0)
	for _, p := range s.pages {
		if accountID != "" && p.AccountID != accountID {
			continue
		}
		if p.Status != status {
			continue
		}
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// PromptStore implementation --------------------------------------------------

func (s *Store) CreatePrompt(_ context.Context, p prompt.Prompt) (prompt.Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = s.nextIDLocked()
	} else if _, exists := s.prompts[p.ID]; exists {
		return prompt.Prompt{}, fmt.Errorf("prompt %s already exists", p.ID)
	}

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	s.prompts[p.ID] = p
	return p, nil
}

func (s *Store) UpdatePrompt(_ context.Context, p prompt.Prompt) (prompt.Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.prompts[p.ID]
	if !ok {
		return prompt.Prompt{}, fmt.Errorf("prompt %s not found", p.ID)
	}

	p.AccountID = original.AccountID
	p.CreatedAt = original.CreatedAt
	p.UpdatedAt = time.Now().UTC()

	s.prompts[p.ID] = p
	return p, nil
}

func (s *Store) GetPrompt(_ context.Context, id string) (prompt.Prompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.prompts[id]
	if !ok {
		return prompt.Prompt{}, fmt.Errorf("prompt %s not found", id)
	}
	return p, nil
}

func (s *Store) ListPrompts(_ context.Context, accountID string) ([]prompt.Prompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]prompt.Prompt, 0)
	for _, p := range s.prompts {
		if accountID == "" || p.AccountID == accountID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

// ActivePrompt prefers an account-scoped active prompt and falls back to the
// global default (empty account id).
func (s *Store) ActivePrompt(_ context.Context, accountID string, purpose prompt.Purpose) (prompt.Prompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var global prompt.Prompt
	var haveGlobal bool
	for _, p := range s.prompts {
		if !p.Active || p.Purpose != purpose {
			continue
		}
		if p.AccountID == accountID && accountID != "" {
			return p, nil
		}
		if p.AccountID == "" && (!haveGlobal || p.Version > global.Version) {
			global = p
			haveGlobal = true
		}
	}
	if haveGlobal {
		return global, nil
	}
	return prompt.Prompt{}, fmt.Errorf("no active %s prompt", purpose)
}

// SchemaStore implementation --------------------------------------------------

func (s *Store) CreateSchemaDoc(_ context.Context, doc schemadoc.Doc) (schemadoc.Doc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.ID == "" {
		doc.ID = s.nextIDLocked()
	} else if _, exists := s.schemaDocs[doc.ID]; exists {
		return schemadoc.Doc{}, fmt.Errorf("schema doc %s already exists", doc.ID)
	}

	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	doc.Issues = cloneStrings(doc.Issues)
	doc.LLMFields = cloneStrings(doc.LLMFields)

	s.schemaDocs[doc.ID] = doc
	s.schemaByPage[doc.PageID] = doc.ID
	return doc, nil
}

func (s *Store) UpdateSchemaDoc(_ context.Context, doc schemadoc.Doc) (schemadoc.Doc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.schemaDocs[doc.ID]
	if !ok {
		return schemadoc.Doc{}, fmt.Errorf("schema doc %s not found", doc.ID)
	}

	doc.PageID = original.PageID
	doc.AccountID = original.AccountID
	doc.CreatedAt = original.CreatedAt
	doc.UpdatedAt = time.Now().UTC()
	doc.Issues = cloneStrings(doc.Issues)
	doc.LLMFields = cloneStrings(doc.LLMFields)

	s.schemaDocs[doc.ID] = doc
	return doc, nil
}

func (s *Store) GetSchemaDoc(_ context.Context, id string) (schemadoc.Doc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.schemaDocs[id]
	if !ok {
		return schemadoc.Doc{}, fmt.Errorf("schema doc %s not found", id)
	}
	return doc, nil
}

func (s *Store) GetSchemaDocByPage(_ context.Context, pageID string) (schemadoc.Doc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.schemaByPage[pageID]
	if !ok {
		return schemadoc.Doc{}, fmt.Errorf("schema doc for page %s not found", pageID)
	}
	return s.schemaDocs[id], nil
}

func (s *Store) ListSchemaDocs(_ context.Context, accountID string) ([]schemadoc.Doc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]schemadoc.Doc, 0)
	for _, doc := range s.schemaDocs {
		if accountID == "" || doc.AccountID == accountID {
			result = append(result, doc)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) SetTierOverride(_ context.Context, ov schemadoc.TierOverride) (schemadoc.TierOverride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tierKey(ov.AccountID, ov.PageType)
	now := time.Now().UTC()
	if existing, ok := s.tierOverrides[key]; ok {
		ov.ID = existing.ID
		ov.CreatedAt = existing.CreatedAt
	} else {
		if ov.ID == "" {
			ov.ID = s.nextIDLocked()
		}
		ov.CreatedAt = now
	}
	ov.UpdatedAt = now

	s.tierOverrides[key] = ov
	return ov, nil
}

func (s *Store) ListTierOverrides(_ context.Context, accountID string) ([]schemadoc.TierOverride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]schemadoc.TierOverride, 0)
	for _, ov := range s.tierOverrides {
		if accountID == "" || ov.AccountID == accountID {
			result = append(result, ov)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PageType < result[j].PageType })
	return result, nil
}

func (s *Store) DeleteTierOverride(_ context.Context, accountID string, pt page.Type) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tierKey(accountID, pt)
	if _, ok := s.tierOverrides[key]; !ok {
		return fmt.Errorf("tier override for %s not found", pt)
	}
	delete(s.tierOverrides, key)
	return nil
}

// LinkPlanStore implementation ------------------------------------------------

func (s *Store) CreateLink(_ context.Context, l linkplan.Link) (linkplan.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.ID == "" {
		l.ID = s.nextIDLocked()
	} else if _, exists := s.links[l.ID]; exists {
		return linkplan.Link{}, fmt.Errorf("link %s already exists", l.ID)
	}

	now := time.Now().UTC()
	l.CreatedAt = now
	l.UpdatedAt = now

	s.links[l.ID] = l
	return l, nil
}

func (s *Store) UpdateLink(_ context.Context, l linkplan.Link) (linkplan.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.links[l.ID]
	if !ok {
		return linkplan.Link{}, fmt.Errorf("link %s not found", l.ID)
	}

	l.AccountID = original.AccountID
	l.CreatedAt = original.CreatedAt
	l.UpdatedAt = time.Now().UTC()

	s.links[l.ID] = l
	return l, nil
}

func (s *Store) GetLink(_ context.Context, id string) (linkplan.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.links[id]
	if !ok {
		return linkplan.Link{}, fmt.Errorf("link %s not found", id)
	}
	return l, nil
}

func (s *Store) ListLinks(_ context.Context, accountID string) ([]linkplan.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]linkplan.Link, 0)
	for _, l := range s.links {
		if accountID == "" || l.AccountID == accountID {
			result = append(result, l)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) DeleteLink(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.links[id]; !ok {
		return fmt.Errorf("link %s not found", id)
	}
	delete(s.links, id)
	return nil
}

// ReviewStore implementation --------------------------------------------------

func (s *Store) CreateReviewItem(_ context.Context, item review.Item) (review.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ID == "" {
		item.ID = s.nextIDLocked()
	} else if _, exists := s.reviews[item.ID]; exists {
		return review.Item{}, fmt.Errorf("review item %s already exists", item.ID)
	}

	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now

	s.reviews[item.ID] = item
	return item, nil
}

func (s *Store) UpdateReviewItem(_ context.Context, item review.Item) (review.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.reviews[item.ID]
	if !ok {
		return review.Item{}, fmt.Errorf("review item %s not found", item.ID)
	}

	item.AccountID = original.AccountID
	item.PageID = original.PageID
	item.SchemaID = original.SchemaID
	item.CreatedAt = original.CreatedAt
	item.UpdatedAt = time.Now().UTC()

	s.reviews[item.ID] = item
	return item, nil
}

func (s *Store) GetReviewItem(_ context.Context, id string) (review.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.reviews[id]
	if !ok {
		return review.Item{}, fmt.Errorf("review item %s not found", id)
	}
	return item, nil
}

func (s *Store) ListReviewItems(_ context.Context, accountID, state string) ([]review.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]review.Item, 0)
	for _, item := range s.reviews {
		if accountID != "" && item.AccountID != accountID {
			continue
		}
		if state != "" && item.State != state {
			continue
		}
		result = append(result, item)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

// CrawlJobStore implementation ------------------------------------------------

func (s *Store) CreateCrawlJob(_ context.Context, job crawljob.Job) (crawljob.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job.ID == "" {
		job.ID = s.nextIDLocked()
	} else if _, exists := s.crawlJobs[job.ID]; exists {
		return crawljob.Job{}, fmt.Errorf("crawl job %s already exists", job.ID)
	}

	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now

	s.crawlJobs[job.ID] = job
	return job, nil
}

func (s *Store) UpdateCrawlJob(_ context.Context, job crawljob.Job) (crawljob.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.crawlJobs[job.ID]
	if !ok {
		return crawljob.Job{}, fmt.Errorf("crawl job %s not found", job.ID)
	}

	job.AccountID = original.AccountID
	job.CreatedAt = original.CreatedAt
	job.UpdatedAt = time.Now().UTC()

	s.crawlJobs[job.ID] = job
	return job, nil
}

func (s *Store) GetCrawlJob(_ context.Context, id string) (crawljob.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.crawlJobs[id]
	if !ok {
		return crawljob.Job{}, fmt.Errorf("crawl job %s not found", id)
	}
	return job, nil
}

func (s *Store) ListCrawlJobs(_ context.Context, accountID string) ([]crawljob.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]crawljob.Job, 0)
	for _, job := range s.crawlJobs {
		if accountID == "" || job.AccountID == accountID {
			result = append(result, job)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) ListPendingCrawlJobs(_ context.Context) ([]crawljob.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]crawljob.Job, 0)
	for _, job := range s.crawlJobs {
		if job.Status == crawljob.StatusPending {
			result = append(result, job)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}
