package memory

import (
	"context"
	"testing"

	"github.com/auroraseo/clinicgraph/internal/domain/page"
)

func TestUpsertPagePreservesClassificationOnRefetch(t *testing.T) {
	store := New()

	first, err := store.UpsertPage(context.Background(), page.Page{
		AccountID:   "acct-1",
		URL:         "https://c.com/botox",
		Path:        "/botox",
		Title:       "Botox",
		Status:      page.StatusFetched,
		ContentHash: "hash-1",
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	first.Status = page.StatusClassified
	first.PageType = page.TypeProcedure
	first.Confidence = 0.9
	first.ClassifiedBy = page.SourceHeuristic
	if _, err := store.UpdatePage(context.Background(), first); err != nil {
		t.Fatalf("update: %v", err)
	}

	refetched, err := store.UpsertPage(context.Background(), page.Page{
		AccountID:   "acct-1",
		URL:         "https://c.com/botox",
		Path:        "/botox",
		Title:       "Botox Injections",
		Status:      page.StatusFetched,
		ContentHash: "hash-2",
	})
	if err != nil {
		t.Fatalf("refetch upsert: %v", err)
	}

	if refetched.ID != first.ID {
		t.Fatalf("refetch created a new row: %s != %s", refetched.ID, first.ID)
	}
	if refetched.PageType != page.TypeProcedure || refetched.Confidence != 0.9 ||
		refetched.ClassifiedBy != page.SourceHeuristic {
		t.Fatalf("classification lost on refetch: %+v", refetched)
	}
	if refetched.Status != page.StatusFetched || refetched.ContentHash != "hash-2" {
		t.Fatalf("refetch should take new crawl fields: %+v", refetched)
	}
	if refetched.Title != "Botox Injections" {
		t.Fatalf("title not updated: %q", refetched.Title)
	}
}
