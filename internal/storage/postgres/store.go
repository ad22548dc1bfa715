package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

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

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.AccountStore = (*Store)(nil)
var _ storage.LocationStore = (*Store)(nil)
var _ storage.PageStore = (*Store)(nil)
var _ storage.PromptStore = (*Store)(nil)
var _ storage.SchemaStore = (*Store)(nil)
var _ storage.LinkPlanStore = (*Store)(nil)
var _ storage.ReviewStore = (*Store)(nil)
var _ storage.CrawlJobStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// --- AccountStore -----------------------------------------------------------

func (s *Store) CreateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	if acct.ID == "" {
		acct.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now
	if acct.Status == "" {
		acct.Status = account.StatusActive
	}

	metadataJSON, err := json.Marshal(acct.Metadata)
	if err != nil {
		return account.Account{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO seo_accounts (id, name, domain, vertical, status, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, acct.ID, acct.Name, acct.Domain, acct.Vertical, acct.Status, metadataJSON, acct.CreatedAt, acct.UpdatedAt)
	if err != nil {
		return account.Account{}, err
	}
	return acct, nil
}

func (s *Store) UpdateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	existing, err := s.GetAccount(ctx, acct.ID)
	if err != nil {
		return account.Account{}, err
	}

	acct.CreatedAt = existing.CreatedAt
	acct.UpdatedAt = time.Now().UTC()

	metadataJSON, err := json.Marshal(acct.Metadata)
	if err != nil {
		return account.Account{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE seo_accounts
		SET name = $2, domain = $3, vertical = $4, status = $5, metadata = $6, updated_at = $7
		WHERE id = $1
	`, acct.ID, acct.Name, acct.Domain, acct.Vertical, acct.Status, metadataJSON, acct.UpdatedAt)
	if err != nil {
		return account.Account{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return account.Account{}, sql.ErrNoRows
	}
	return acct, nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (account.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, domain, vertical, status, metadata, created_at, updated_at
		FROM seo_accounts
		WHERE id = $1
	`, id)
	return scanAccount(row)
}

func (s *Store) ListAccounts(ctx context.Context) ([]account.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, domain, vertical, status, metadata, created_at, updated_at
		FROM seo_accounts
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []account.Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, acct)
	}
	return result, rows.Err()
}

func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM seo_accounts WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (account.Account, error) {
	var (
		acct        account.Account
		metadataRaw []byte
	)
	if err := row.Scan(&acct.ID, &acct.Name, &acct.Domain, &acct.Vertical, &acct.Status, &metadataRaw, &acct.CreatedAt, &acct.UpdatedAt); err != nil {
		return account.Account{}, err
	}
	if len(metadataRaw) > 0 {
		_ = json.Unmarshal(metadataRaw, &acct.Metadata)
	}
	return acct, nil
}

func (s *Store) CreateUser(ctx context.Context, u account.User) (account.User, error) {
	if u.AccountID == "" {
		return account.User{}, errors.New("account_id required")
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO seo_users (id, account_id, email, name, role, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, u.ID, u.AccountID, u.Email, u.Name, string(u.Role), u.Active, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return account.User{}, err
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u account.User) (account.User, error) {
	existing, err := s.GetUser(ctx, u.ID)
	if err != nil {
		return account.User{}, err
	}

	u.AccountID = existing.AccountID
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE seo_users
		SET email = $2, name = $3, role = $4, active = $5, updated_at = $6
		WHERE id = $1
	`, u.ID, u.Email, u.Name, string(u.Role), u.Active, u.UpdatedAt)
	if err != nil {
		return account.User{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return account.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (account.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, email, name, role, active, created_at, updated_at
		FROM seo_users
		WHERE id = $1
	`, id)
	return scanUser(row)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (account.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, email, name, role, active, created_at, updated_at
		FROM seo_users
		WHERE lower(email) = lower($1)
	`, email)
	return scanUser(row)
}

func (s *Store) ListUsers(ctx context.Context, accountID string) ([]account.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, email, name, role, active, created_at, updated_at
		FROM seo_users
		WHERE $1 = '' OR account_id = $1
		ORDER BY created_at
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []account.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

func scanUser(row rowScanner) (account.User, error) {
	var (
		u    account.User
		role string
	)
	if err := row.Scan(&u.ID, &u.AccountID, &u.Email, &u.Name, &role, &u.Active, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return account.User{}, err
	}
	u.Role = account.Role(role)
	return u, nil
}

// --- LocationStore ----------------------------------------------------------

func (s *Store) CreateLocation(ctx context.Context, loc location.Location) (location.Location, error) {
	if loc.AccountID == "" {
		return location.Location{}, errors.New("account_id required")
	}
	if loc.ID == "" {
		loc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	loc.CreatedAt = now
	loc.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO seo_locations (id, account_id, name, street, city, region, postal_code, country, phone, latitude, longitude, booking_url, is_primary, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, loc.ID, loc.AccountID, loc.Name, loc.Street, loc.City, loc.Region, loc.PostalCode, loc.Country, loc.Phone, loc.Latitude, loc.Longitude, loc.BookingURL, loc.Primary, loc.CreatedAt, loc.UpdatedAt)
	if err != nil {
		return location.Location{}, err
	}
	return loc, nil
}

func (s *Store) UpdateLocation(ctx context.Context, loc location.Location) (location.Location, error) {
	existing, err := s.GetLocation(ctx, loc.ID)
	if err != nil {
		return location.Location{}, err
	}

	loc.AccountID = existing.AccountID
	loc.CreatedAt = existing.CreatedAt
	loc.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE seo_locations
		SET name = $2, street = $3, city = $4, region = $5, postal_code = $6, country = $7, phone = $8, latitude = $9, longitude = $10, booking_url = $11, is_primary = $12, updated_at = $13
		WHERE id = $1
	`, loc.ID, loc.Name, loc.Street, loc.City, loc.Region, loc.PostalCode, loc.Country, loc.Phone, loc.Latitude, loc.Longitude, loc.BookingURL, loc.Primary, loc.UpdatedAt)
	if err != nil {
		return location.Location{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return location.Location{}, sql.ErrNoRows
	}
	return loc, nil
}

func (s *Store) GetLocation(ctx context.Context, id string) (location.Location, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, name, street, city, region, postal_code, country, phone, latitude, longitude, booking_url, is_primary, created_at, updated_at
		FROM seo_locations
		WHERE id = $1
	`, id)
	return scanLocation(row)
}

func (s *Store) ListLocations(ctx context.Context, accountID string) ([]location.Location, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, name, street, city, region, postal_code, country, phone, latitude, longitude, booking_url, is_primary, created_at, updated_at
		FROM seo_locations
		WHERE $1 = '' OR account_id = $1
		ORDER BY created_at
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []location.Location
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, loc)
	}
	return result, rows.Err()
}

func (s *Store) DeleteLocation(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM seo_locations WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scanLocation(row rowScanner) (location.Location, error) {
	var loc location.Location
	if err := row.Scan(&loc.ID, &loc.AccountID, &loc.Name, &loc.Street, &loc.City, &loc.Region, &loc.PostalCode, &loc.Country, &loc.Phone, &loc.Latitude, &loc.Longitude, &loc.BookingURL, &loc.Primary, &loc.CreatedAt, &loc.UpdatedAt); err != nil {
		return location.Location{}, err
	}
	return loc, nil
}

// --- PageStore --------------------------------------------------------------

func (s *Store) UpsertPage(ctx context.Context, p page.Page) (page.Page, error) {
	if p.AccountID == "" {
		return page.Page{}, errors.New("account_id required")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	headingsJSON, err := json.Marshal(p.Headings)
	if err != nil {
		return page.Page{}, err
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO seo_pages (id, account_id, url, path, title, meta_description, headings, excerpt, status, page_type, confidence, classified_by, http_status, content_hash, depth, fetched_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (account_id, url) DO UPDATE
		SET title = EXCLUDED.title, meta_description = EXCLUDED.meta_description, headings = EXCLUDED.headings,
		    excerpt = EXCLUDED.excerpt, status = EXCLUDED.status, http_status = EXCLUDED.http_status,
		    content_hash = EXCLUDED.content_hash, depth = EXCLUDED.depth, fetched_at = EXCLUDED.fetched_at,
		    updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`, p.ID, p.AccountID, p.URL, p.Path, p.Title, p.MetaDescription, headingsJSON, p.Excerpt, p.Status, string(p.PageType), p.Confidence, p.ClassifiedBy, p.HTTPStatus, p.ContentHash, p.Depth, toNullTime(p.FetchedAt), p.CreatedAt, p.UpdatedAt)
	if err := row.Scan(&p.ID, &p.CreatedAt); err != nil {
		return page.Page{}, err
	}
	return p, nil
}

func (s *Store) UpdatePage(ctx context.Context, p page.Page) (page.Page, error) {
	existing, err := s.GetPage(ctx, p.ID)
	if err != nil {
		return page.Page{}, err
	}

	p.AccountID = existing.AccountID
	p.URL = existing.URL
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()

	headingsJSON, err := json.Marshal(p.Headings)
	if err != nil {
		return page.Page{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE seo_pages
		SET path = $2, title = $3, meta_description = $4, headings = $5, excerpt = $6, status = $7,
		    page_type = $8, confidence = $9, classified_by = $10, http_status = $11, content_hash = $12,
		    depth = $13, fetched_at = $14, updated_at = $15
		WHERE id = $1
	`, p.ID, p.Path, p.Title, p.MetaDescription, headingsJSON, p.Excerpt, p.Status, string(p.PageType), p.Confidence, p.ClassifiedBy, p.HTTPStatus, p.ContentHash, p.Depth, toNullTime(p.FetchedAt), p.UpdatedAt)
	if err != nil {
		return page.Page{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return page.Page{}, sql.ErrNoRows
	}
	return p, nil
}

func (s *Store) GetPage(ctx context.Context, id string) (page.Page, error) {
	row := s.db.QueryRowContext(ctx, pageSelect+` WHERE id = $1`, id)
	return scanPage(row)
}

func (s *Store) GetPageByURL(ctx context.Context, accountID, url string) (page.Page, error) {
	row := s.db.QueryRowContext(ctx, pageSelect+` WHERE account_id = $1 AND url = $2`, accountID, url)
	return scanPage(row)
}

func (s *Store) ListPages(ctx context.Context, accountID string) ([]page.Page, error) {
	rows, err := s.db.QueryContext(ctx, pageSelect+`
		WHERE $1 = '' OR account_id = $1
		ORDER BY created_at
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPages(rows)
}

func (s *Store) ListPagesByStatus(ctx context.Context, accountID, status string, limit int) ([]page.Page, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, pageSelect+`
		WHERE ($1 = '' OR account_id = $1) AND status = $2
		ORDER BY created_at
		LIMIT $3
	`, accountID, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPages(rows)
}

const pageSelect = `
	SELECT id, account_id, url, path, title, meta_description, headings, excerpt, status, page_type, confidence, classified_by, http_status, content_hash, depth, fetched_at, created_at, updated_at
	FROM seo_pages`

func scanPage(row rowScanner) (page.Page, error) {
	var (
		p           page.Page
		headingsRaw []byte
		pageType    string
		fetchedAt   sql.NullTime
	)
	if err := row.Scan(&p.ID, &p.AccountID, &p.URL, &p.Path, &p.Title, &p.MetaDescription, &headingsRaw, &p.Excerpt, &p.Status, &pageType, &p.Confidence, &p.ClassifiedBy, &p.HTTPStatus, &p.ContentHash, &p.Depth, &fetchedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return page.Page{}, err
	}
	if len(headingsRaw) > 0 {
		_ = json.Unmarshal(headingsRaw, &p.Headings)
	}
	p.PageType = page.Type(pageType)
	if fetchedAt.Valid {
		p.FetchedAt = fetchedAt.Time.UTC()
	}
	return p, nil
}

func collectPages(rows *sql.Rows) ([]page.Page, error) {
	var result []page.Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// --- PromptStore ------------------------------------------------------------

func (s *Store) CreatePrompt(ctx context.Context, p prompt.Prompt) (prompt.Prompt, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO seo_prompts (id, account_id, name, purpose, body, system, version, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, p.ID, p.AccountID, p.Name, string(p.Purpose), p.Body, p.System, p.Version, p.Active, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return prompt.Prompt{}, err
	}
	return p, nil
}

func (s *Store) UpdatePrompt(ctx context.Context, p prompt.Prompt) (prompt.Prompt, error) {
	existing, err := s.GetPrompt(ctx, p.ID)
	if err != nil {
		return prompt.Prompt{}, err
	}

	p.AccountID = existing.AccountID
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE seo_prompts
		SET name = $2, purpose = $3, body = $4, system = $5, version = $6, active = $7, updated_at = $8
		WHERE id = $1
	`, p.ID, p.Name, string(p.Purpose), p.Body, p.System, p.Version, p.Active, p.UpdatedAt)
	if err != nil {
		return prompt.Prompt{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return prompt.Prompt{}, sql.ErrNoRows
	}
	return p, nil
}

func (s *Store) GetPrompt(ctx context.Context, id string) (prompt.Prompt, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, name, purpose, body, system, version, active, created_at, updated_at
		FROM seo_prompts
		WHERE id = $1
	`, id)
	return scanPrompt(row)
}

func (s *Store) ListPrompts(ctx context.Context, accountID string) ([]prompt.Prompt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, name, purpose, body, system, version, active, created_at, updated_at
		FROM seo_prompts
		WHERE $1 = '' OR account_id = $1
		ORDER BY created_at
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []prompt.Prompt
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// ActivePrompt prefers an account-scoped active prompt over the global default.
func (s *Store) ActivePrompt(ctx context.Context, accountID string, purpose prompt.Purpose) (prompt.Prompt, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, name, purpose, body, system, version, active, created_at, updated_at
		FROM seo_prompts
		WHERE active AND purpose = $2 AND (account_id = $1 OR account_id = '')
		ORDER BY (account_id = $1) DESC, version DESC
		LIMIT 1
	`, accountID, string(purpose))
	return scanPrompt(row)
}

func scanPrompt(row rowScanner) (prompt.Prompt, error) {
	var (
		p       prompt.Prompt
		purpose string
	)
	if err := row.Scan(&p.ID, &p.AccountID, &p.Name, &purpose, &p.Body, &p.System, &p.Version, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return prompt.Prompt{}, err
	}
	p.Purpose = prompt.Purpose(purpose)
	return p, nil
}

// --- SchemaStore ------------------------------------------------------------

func (s *Store) CreateSchemaDoc(ctx context.Context, doc schemadoc.Doc) (schemadoc.Doc, error) {
	if doc.PageID == "" {
		return schemadoc.Doc{}, errors.New("page_id required")
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	issuesJSON, err := json.Marshal(doc.Issues)
	if err != nil {
		return schemadoc.Doc{}, err
	}
	fieldsJSON, err := json.Marshal(doc.LLMFields)
	if err != nil {
		return schemadoc.Doc{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO seo_schema_docs (id, page_id, account_id, page_type, payload, status, issues, llm_fields, generator_version, content_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, doc.ID, doc.PageID, doc.AccountID, string(doc.PageType), doc.Payload, doc.Status, issuesJSON, fieldsJSON, doc.GeneratorVersion, doc.ContentHash, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return schemadoc.Doc{}, err
	}
	return doc, nil
}

func (s *Store) UpdateSchemaDoc(ctx context.Context, doc schemadoc.Doc) (schemadoc.Doc, error) {
	existing, err := s.GetSchemaDoc(ctx, doc.ID)
	if err != nil {
		return schemadoc.Doc{}, err
	}

	doc.PageID = existing.PageID
	doc.AccountID = existing.AccountID
	doc.CreatedAt = existing.CreatedAt
	doc.UpdatedAt = time.Now().UTC()

	issuesJSON, err := json.Marshal(doc.Issues)
	if err != nil {
		return schemadoc.Doc{}, err
	}
	fieldsJSON, err := json.Marshal(doc.LLMFields)
	if err != nil {
		return schemadoc.Doc{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE seo_schema_docs
		SET page_type = $2, payload = $3, status = $4, issues = $5, llm_fields = $6, generator_version = $7, content_hash = $8, updated_at = $9
		WHERE id = $1
	`, doc.ID, string(doc.PageType), doc.Payload, doc.Status, issuesJSON, fieldsJSON, doc.GeneratorVersion, doc.ContentHash, doc.UpdatedAt)
	if err != nil {
		return schemadoc.Doc{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return schemadoc.Doc{}, sql.ErrNoRows
	}
	return doc, nil
}

func (s *Store) GetSchemaDoc(ctx context.Context, id string) (schemadoc.Doc, error) {
	row := s.db.QueryRowContext(ctx, schemaDocSelect+` WHERE id = $1`, id)
	return scanSchemaDoc(row)
}

func (s *Store) GetSchemaDocByPage(ctx context.Context, pageID string) (schemadoc.Doc, error) {
	row := s.db.QueryRowContext(ctx, schemaDocSelect+` WHERE page_id = $1 ORDER BY created_at DESC LIMIT 1`, pageID)
	return scanSchemaDoc(row)
}

func (s *Store) ListSchemaDocs(ctx context.Context, accountID string) ([]schemadoc.Doc, error) {
	rows, err := s.db.QueryContext(ctx, schemaDocSelect+`
		WHERE $1 = '' OR account_id = $1
		ORDER BY created_at
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []schemadoc.Doc
	for rows.Next() {
		doc, err := scanSchemaDoc(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, doc)
	}
	return result, rows.Err()
}

const schemaDocSelect = `
	SELECT id, page_id, account_id, page_type, payload, status, issues, llm_fields, generator_version, content_hash, created_at, updated_at
	FROM seo_schema_docs`

func scanSchemaDoc(row rowScanner) (schemadoc.Doc, error) {
	var (
		doc       schemadoc.Doc
		pageType  string
		issuesRaw []byte
		fieldsRaw []byte
	)
	if err := row.Scan(&doc.ID, &doc.PageID, &doc.AccountID, &pageType, &doc.Payload, &doc.Status, &issuesRaw, &fieldsRaw, &doc.GeneratorVersion, &doc.ContentHash, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return schemadoc.Doc{}, err
	}
	doc.PageType = page.Type(pageType)
	if len(issuesRaw) > 0 {
		_ = json.Unmarshal(issuesRaw, &doc.Issues)
	}
	if len(fieldsRaw) > 0 {
		_ = json.Unmarshal(fieldsRaw, &doc.LLMFields)
	}
	return doc, nil
}

func (s *Store) SetTierOverride(ctx context.Context, ov schemadoc.TierOverride) (schemadoc.TierOverride, error) {
	if ov.ID == "" {
		ov.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	ov.CreatedAt = now
	ov.UpdatedAt = now

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO seo_tier_overrides (id, account_id, page_type, tier, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (account_id, page_type) DO UPDATE
		SET tier = EXCLUDED.tier, updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`, ov.ID, ov.AccountID, string(ov.PageType), string(ov.Tier), ov.CreatedAt, ov.UpdatedAt)
	if err := row.Scan(&ov.ID, &ov.CreatedAt); err != nil {
		return schemadoc.TierOverride{}, err
	}
	return ov, nil
}

func (s *Store) ListTierOverrides(ctx context.Context, accountID string) ([]schemadoc.TierOverride, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, page_type, tier, created_at, updated_at
		FROM seo_tier_overrides
		WHERE $1 = '' OR account_id = $1
		ORDER BY page_type
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []schemadoc.TierOverride
	for rows.Next() {
		var (
			ov       schemadoc.TierOverride
			pageType string
			tier     string
		)
		if err := rows.Scan(&ov.ID, &ov.AccountID, &pageType, &tier, &ov.CreatedAt, &ov.UpdatedAt); err != nil {
			return nil, err
		}
		ov.PageType = page.Type(pageType)
		ov.Tier = schemadoc.Tier(tier)
		result = append(result, ov)
	}
	return result, rows.Err()
}

func (s *Store) DeleteTierOverride(ctx context.Context, accountID string, pt page.Type) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM seo_tier_overrides WHERE account_id = $1 AND page_type = $2
	`, accountID, string(pt))
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// --- LinkPlanStore ----------------------------------------------------------

func (s *Store) CreateLink(ctx context.Context, l linkplan.Link) (linkplan.Link, error) {
	if l.AccountID == "" {
		return linkplan.Link{}, errors.New("account_id required")
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	l.CreatedAt = now
	l.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO seo_link_plans (id, account_id, source_page, target_page, anchor_text, status, note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, l.ID, l.AccountID, l.SourcePage, l.TargetPage, l.AnchorText, l.Status, l.Note, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return linkplan.Link{}, err
	}
	return l, nil
}

func (s *Store) UpdateLink(ctx context.Context, l linkplan.Link) (linkplan.Link, error) {
	existing, err := s.GetLink(ctx, l.ID)
	if err != nil {
		return linkplan.Link{}, err
	}

	l.AccountID = existing.AccountID
	l.CreatedAt = existing.CreatedAt
	l.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE seo_link_plans
		SET source_page = $2, target_page = $3, anchor_text = $4, status = $5, note = $6, updated_at = $7
		WHERE id = $1
	`, l.ID, l.SourcePage, l.TargetPage, l.AnchorText, l.Status, l.Note, l.UpdatedAt)
	if err != nil {
		return linkplan.Link{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return linkplan.Link{}, sql.ErrNoRows
	}
	return l, nil
}

func (s *Store) GetLink(ctx context.Context, id string) (linkplan.Link, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, source_page, target_page, anchor_text, status, note, created_at, updated_at
		FROM seo_link_plans
		WHERE id = $1
	`, id)

	var l linkplan.Link
	if err := row.Scan(&l.ID, &l.AccountID, &l.SourcePage, &l.TargetPage, &l.AnchorText, &l.Status, &l.Note, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return linkplan.Link{}, err
	}
	return l, nil
}

func (s *Store) ListLinks(ctx context.Context, accountID string) ([]linkplan.Link, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, source_page, target_page, anchor_text, status, note, created_at, updated_at
		FROM seo_link_plans
		WHERE $1 = '' OR account_id = $1
		ORDER BY created_at
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []linkplan.Link
	for rows.Next() {
		var l linkplan.Link
		if err := rows.Scan(&l.ID, &l.AccountID, &l.SourcePage, &l.TargetPage, &l.AnchorText, &l.Status, &l.Note, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

func (s *Store) DeleteLink(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM seo_link_plans WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// --- ReviewStore ------------------------------------------------------------

func (s *Store) CreateReviewItem(ctx context.Context, item review.Item) (review.Item, error) {
	if item.AccountID == "" {
		return review.Item{}, errors.New("account_id required")
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	if item.State == "" {
		item.State = review.StateOpen
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO seo_review_items (id, account_id, page_id, schema_id, reason, detail, state, note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, item.ID, item.AccountID, item.PageID, item.SchemaID, item.Reason, item.Detail, item.State, item.Note, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return review.Item{}, err
	}
	return item, nil
}

func (s *Store) UpdateReviewItem(ctx context.Context, item review.Item) (review.Item, error) {
	existing, err := s.GetReviewItem(ctx, item.ID)
	if err != nil {
		return review.Item{}, err
	}

	item.AccountID = existing.AccountID
	item.PageID = existing.PageID
	item.SchemaID = existing.SchemaID
	item.CreatedAt = existing.CreatedAt
	item.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE seo_review_items
		SET reason = $2, detail = $3, state = $4, note = $5, updated_at = $6
		WHERE id = $1
	`, item.ID, item.Reason, item.Detail, item.State, item.Note, item.UpdatedAt)
	if err != nil {
		return review.Item{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return review.Item{}, sql.ErrNoRows
	}
	return item, nil
}

func (s *Store) GetReviewItem(ctx context.Context, id string) (review.Item, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, page_id, schema_id, reason, detail, state, note, created_at, updated_at
		FROM seo_review_items
		WHERE id = $1
	`, id)

	var item review.Item
	if err := row.Scan(&item.ID, &item.AccountID, &item.PageID, &item.SchemaID, &item.Reason, &item.Detail, &item.State, &item.Note, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return review.Item{}, err
	}
	return item, nil
}

func (s *Store) ListReviewItems(ctx context.Context, accountID, state string) ([]review.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, page_id, schema_id, reason, detail, state, note, created_at, updated_at
		FROM seo_review_items
		WHERE ($1 = '' OR account_id = $1) AND ($2 = '' OR state = $2)
		ORDER BY created_at
	`, accountID, state)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []review.Item
	for rows.Next() {
		var item review.Item
		if err := rows.Scan(&item.ID, &item.AccountID, &item.PageID, &item.SchemaID, &item.Reason, &item.Detail, &item.State, &item.Note, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

// --- CrawlJobStore ----------------------------------------------------------

func (s *Store) CreateCrawlJob(ctx context.Context, job crawljob.Job) (crawljob.Job, error) {
	if job.AccountID == "" {
		return crawljob.Job{}, errors.New("account_id required")
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = crawljob.StatusPending
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO seo_crawl_jobs (id, account_id, seed_url, max_pages, max_depth, delay_ms, status, fetched, failed, skipped, error, started_at, ended_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, job.ID, job.AccountID, job.SeedURL, job.MaxPages, job.MaxDepth, job.DelayMS, job.Status, job.Fetched, job.Failed, job.Skipped, job.Error, toNullTime(job.StartedAt), toNullTime(job.EndedAt), job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return crawljob.Job{}, err
	}
	return job, nil
}

func (s *Store) UpdateCrawlJob(ctx context.Context, job crawljob.Job) (crawljob.Job, error) {
	existing, err := s.GetCrawlJob(ctx, job.ID)
	if err != nil {
		return crawljob.Job{}, err
	}

	job.AccountID = existing.AccountID
	job.CreatedAt = existing.CreatedAt
	job.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE seo_crawl_jobs
		SET seed_url = $2, max_pages = $3, max_depth = $4, delay_ms = $5, status = $6, fetched = $7,
		    failed = $8, skipped = $9, error = $10, started_at = $11, ended_at = $12, updated_at = $13
		WHERE id = $1
	`, job.ID, job.SeedURL, job.MaxPages, job.MaxDepth, job.DelayMS, job.Status, job.Fetched, job.Failed, job.Skipped, job.Error, toNullTime(job.StartedAt), toNullTime(job.EndedAt), job.UpdatedAt)
	if err != nil {
		return crawljob.Job{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return crawljob.Job{}, sql.ErrNoRows
	}
	return job, nil
}

func (s *Store) GetCrawlJob(ctx context.Context, id string) (crawljob.Job, error) {
	row := s.db.QueryRowContext(ctx, crawlJobSelect+` WHERE id = $1`, id)
	return scanCrawlJob(row)
}

func (s *Store) ListCrawlJobs(ctx context.Context, accountID string) ([]crawljob.Job, error) {
	rows, err := s.db.QueryContext(ctx, crawlJobSelect+`
		WHERE $1 = '' OR account_id = $1
		ORDER BY created_at DESC
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCrawlJobs(rows)
}

func (s *Store) ListPendingCrawlJobs(ctx context.Context) ([]crawljob.Job, error) {
	rows, err := s.db.QueryContext(ctx, crawlJobSelect+`
		WHERE status = 'pending'
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCrawlJobs(rows)
}

const crawlJobSelect = `
	SELECT id, account_id, seed_url, max_pages, max_depth, delay_ms, status, fetched, failed, skipped, error, started_at, ended_at, created_at, updated_at
	FROM seo_crawl_jobs`

func scanCrawlJob(row rowScanner) (crawljob.Job, error) {
	var (
		job       crawljob.Job
		startedAt sql.NullTime
		endedAt   sql.NullTime
	)
	if err := row.Scan(&job.ID, &job.AccountID, &job.SeedURL, &job.MaxPages, &job.MaxDepth, &job.DelayMS, &job.Status, &job.Fetched, &job.Failed, &job.Skipped, &job.Error, &startedAt, &endedAt, &job.CreatedAt, &job.UpdatedAt); err != nil {
		return crawljob.Job{}, err
	}
	if startedAt.Valid {
		job.StartedAt = startedAt.Time.UTC()
	}
	if endedAt.Valid {
		job.EndedAt = endedAt.Time.UTC()
	}
	return job, nil
}

func collectCrawlJobs(rows *sql.Rows) ([]crawljob.Job, error) {
	var result []crawljob.Job
	for rows.Next() {
		job, err := scanCrawlJob(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, job)
	}
	return result, rows.Err()
}

func toNullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
