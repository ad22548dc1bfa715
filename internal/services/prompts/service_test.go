package prompts

import (
	"context"
	"strings"
	"testing"

	"github.com/auroraseo/clinicgraph/internal/domain/account"
	"github.com/auroraseo/clinicgraph/internal/domain/prompt"
	"github.com/auroraseo/clinicgraph/internal/storage/memory"
)

func setup(t *testing.T) (*Service, string) {
	t.Helper()
	store := memory.New()
	acct, err := store.CreateAccount(context.Background(), account.Account{Name: "c", Domain: "c.com"})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return New(store, store, nil), acct.ID
}

func TestCreateValidatesPurpose(t *testing.T) {
	svc, _ := setup(t)
	_, err := svc.Create(context.Background(), prompt.Prompt{
		Name: "x", Body: "y", Purpose: "summarize",
	})
	if err == nil {
		t.Fatal("expected error for unknown purpose")
	}
}

func TestUpdateBumpsVersionOnBodyChange(t *testing.T) {
	svc, _ := setup(t)
	created, err := svc.Create(context.Background(), prompt.Prompt{
		Name: "classify-v1", Body: "Classify {{title}}.", Purpose: prompt.PurposeClassify, Active: true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Version != 1 {
		t.Fatalf("version = %d", created.Version)
	}

	created.Body = "Classify {{title}} carefully."
	updated, err := svc.Update(context.Background(), created)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Version != 2 {
		t.Fatalf("version = %d, want 2", updated.Version)
	}

	// name-only change keeps the version
	updated.Name = "classify-renamed"
	again, err := svc.Update(context.Background(), updated)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if again.Version != 2 {
		t.Fatalf("version = %d, want 2", again.Version)
	}
}

func TestRenderPrefersAccountPrompt(t *testing.T) {
	svc, accountID := setup(t)

	if _, err := svc.Create(context.Background(), prompt.Prompt{
		Name: "global", Body: "global {{title}}", Purpose: prompt.PurposeClassify, Active: true,
	}); err != nil {
		t.Fatalf("create global: %v", err)
	}
	if _, err := svc.Create(context.Background(), prompt.Prompt{
		AccountID: accountID,
		Name:      "scoped", Body: "scoped {{title}}", Purpose: prompt.PurposeClassify, Active: true,
	}); err != nil {
		t.Fatalf("create scoped: %v", err)
	}

	p, req, err := svc.Render(context.Background(), accountID, prompt.PurposeClassify, map[string]string{"title": "Botox"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if p.Name != "scoped" {
		t.Fatalf("resolved prompt = %q", p.Name)
	}
	if !strings.HasPrefix(req.Prompt, "scoped") {
		t.Fatalf("rendered = %q", req.Prompt)
	}
}

func TestRenderFailsOnMissingPlaceholder(t *testing.T) {
	svc, accountID := setup(t)
	if _, err := svc.Create(context.Background(), prompt.Prompt{
		Name: "g", Body: "needs {{summary}}", Purpose: prompt.PurposeSiteSummary, Active: true,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, _, err := svc.Render(context.Background(), accountID, prompt.PurposeSiteSummary, nil); err == nil {
		t.Fatal("expected error for unresolved placeholder")
	}
}

func TestRenderFailsWithoutActivePrompt(t *testing.T) {
	svc, accountID := setup(t)
	if _, _, err := svc.Render(context.Background(), accountID, prompt.PurposeSchemaFill, nil); err == nil {
		t.Fatal("expected error when no prompt exists")
	}
}
