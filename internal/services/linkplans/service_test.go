package linkplans

import (
	"context"
	"testing"

	"github.com/auroraseo/clinicgraph/internal/domain/account"
	"github.com/auroraseo/clinicgraph/internal/domain/linkplan"
	"github.com/auroraseo/clinicgraph/internal/domain/page"
	"github.com/auroraseo/clinicgraph/internal/storage/memory"
)

func setup(t *testing.T) (*Service, string, page.Page, page.Page) {
	t.Helper()
	store := memory.New()
	acct, err := store.CreateAccount(context.Background(), account.Account{Name: "c", Domain: "c.com"})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	src, err := store.UpsertPage(context.Background(), page.Page{
		AccountID: acct.ID, URL: "https://c.com/botox", Status: page.StatusClassified,
	})
	if err != nil {
		t.Fatalf("upsert src: %v", err)
	}
	dst, err := store.UpsertPage(context.Background(), page.Page{
		AccountID: acct.ID, URL: "https://c.com/fillers", Status: page.StatusClassified,
	})
	if err != nil {
		t.Fatalf("upsert dst: %v", err)
	}
	return New(store, store, nil), acct.ID, src, dst
}

func TestProposeAndTransition(t *testing.T) {
	svc, accountID, src, dst := setup(t)

	link, err := svc.Propose(context.Background(), linkplan.Link{
		AccountID:  accountID,
		SourcePage: src.ID,
		TargetPage: dst.ID,
		AnchorText: "dermal fillers",
	})
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if link.Status != linkplan.StatusProposed {
		t.Fatalf("status = %q", link.Status)
	}

	applied, err := svc.SetStatus(context.Background(), link.ID, linkplan.StatusApplied, "added to nav")
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if applied.Status != linkplan.StatusApplied || applied.Note != "added to nav" {
		t.Fatalf("link = %+v", applied)
	}

	if _, err := svc.SetStatus(context.Background(), link.ID, "archived", ""); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestProposeRejectsSelfLink(t *testing.T) {
	svc, accountID, src, _ := setup(t)
	_, err := svc.Propose(context.Background(), linkplan.Link{
		AccountID:  accountID,
		SourcePage: src.ID,
		TargetPage: src.ID,
		AnchorText: "x",
	})
	if err == nil {
		t.Fatal("expected error for self link")
	}
}

func TestProposeRejectsForeignPage(t *testing.T) {
	store := memory.New()
	a, _ := store.CreateAccount(context.Background(), account.Account{Name: "a", Domain: "a.com"})
	b, _ := store.CreateAccount(context.Background(), account.Account{Name: "b", Domain: "b.com"})
	srcA, _ := store.UpsertPage(context.Background(), page.Page{AccountID: a.ID, URL: "https://a.com/x"})
	dstB, _ := store.UpsertPage(context.Background(), page.Page{AccountID: b.ID, URL: "https://b.com/y"})

	svc := New(store, store, nil)
	_, err := svc.Propose(context.Background(), linkplan.Link{
		AccountID:  a.ID,
		SourcePage: srcA.ID,
		TargetPage: dstB.ID,
		AnchorText: "x",
	})
	if err == nil {
		t.Fatal("expected error for cross-account link")
	}
}
