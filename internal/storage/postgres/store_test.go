package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/auroraseo/clinicgraph/internal/domain/account"
	"github.com/auroraseo/clinicgraph/internal/domain/page"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func TestCreateAccountInsertsRow(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO seo_accounts").
		WithArgs(sqlmock.AnyArg(), "Lakeside Dermatology", "lakesidederm.com", "dermatology",
			account.StatusActive, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	acct, err := store.CreateAccount(context.Background(), account.Account{
		Name:     "Lakeside Dermatology",
		Domain:   "lakesidederm.com",
		Vertical: "dermatology",
	})
	require.NoError(t, err)
	require.NotEmpty(t, acct.ID)
	require.Equal(t, account.StatusActive, acct.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAccountScansMetadata(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, name, domain, vertical, status, metadata, created_at, updated_at").
		WithArgs("acct-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "domain", "vertical", "status", "metadata", "created_at", "updated_at",
		}).AddRow("acct-1", "Lakeside", "lakesidederm.com", "dermatology", "active",
			[]byte(`{"plan":"pro"}`), now, now))

	acct, err := store.GetAccount(context.Background(), "acct-1")
	require.NoError(t, err)
	require.Equal(t, "pro", acct.Metadata["plan"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAccountMissingReturnsNoRows(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, name, domain").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetAccount(context.Background(), "missing")
	require.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestUpdateAccountMissingRow(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, name, domain").
		WithArgs("acct-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "domain", "vertical", "status", "metadata", "created_at", "updated_at",
		}).AddRow("acct-1", "Lakeside", "lakesidederm.com", "dermatology", "active", nil, now, now))
	mock.ExpectExec("UPDATE seo_accounts").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := store.UpdateAccount(context.Background(), account.Account{ID: "acct-1", Name: "Renamed"})
	require.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListPagesByStatusAppliesLimit(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("FROM seo_pages").
		WithArgs("acct-1", page.StatusFetched, 5).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "account_id", "url", "path", "title", "meta_description", "headings",
			"excerpt", "status", "page_type", "confidence", "classified_by", "http_status",
			"content_hash", "depth", "fetched_at", "created_at", "updated_at",
		}))

	pages, err := store.ListPagesByStatus(context.Background(), "acct-1", page.StatusFetched, 5)
	require.NoError(t, err)
	require.Empty(t, pages)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateAppliesSchemaInTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, Migrate(context.Background(), db))
	require.NoError(t, mock.ExpectationsWereMet())
}
