package accounts

import (
	"context"
	"testing"

	"github.com/auroraseo/clinicgraph/internal/domain/account"
	"github.com/auroraseo/clinicgraph/internal/storage/memory"
)

func newService() *Service {
	return New(memory.New(), nil)
}

func TestCreateAccountNormalizesDomain(t *testing.T) {
	svc := newService()
	created, err := svc.CreateAccount(context.Background(), account.Account{
		Name:   "Lakeside Dermatology",
		Domain: "https://www.LakesideDerm.com/",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Domain != "lakesidederm.com" {
		t.Fatalf("domain = %q", created.Domain)
	}
	if created.Status != account.StatusActive {
		t.Fatalf("status = %q", created.Status)
	}
}

func TestCreateAccountRequiresFields(t *testing.T) {
	svc := newService()
	if _, err := svc.CreateAccount(context.Background(), account.Account{Domain: "x.com"}); err == nil {
		t.Fatal("expected error for missing name")
	}
	if _, err := svc.CreateAccount(context.Background(), account.Account{Name: "x"}); err == nil {
		t.Fatal("expected error for missing domain")
	}
}

func TestUpdateAccountKeepsUnsetFields(t *testing.T) {
	svc := newService()
	created, err := svc.CreateAccount(context.Background(), account.Account{
		Name: "Clinic", Domain: "clinic.com", Vertical: "dermatology",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.UpdateAccount(context.Background(), account.Account{
		ID:   created.ID,
		Name: "Clinic Group",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Clinic Group" {
		t.Fatalf("name = %q", updated.Name)
	}
	if updated.Domain != "clinic.com" || updated.Vertical != "dermatology" {
		t.Fatalf("unset fields were not preserved: %+v", updated)
	}
}

func TestArchiveAccount(t *testing.T) {
	svc := newService()
	created, err := svc.CreateAccount(context.Background(), account.Account{Name: "c", Domain: "c.com"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	archived, err := svc.ArchiveAccount(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if archived.Status != account.StatusArchived {
		t.Fatalf("status = %q", archived.Status)
	}
}

func TestCreateUser(t *testing.T) {
	svc := newService()
	acct, err := svc.CreateAccount(context.Background(), account.Account{Name: "c", Domain: "c.com"})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	u, err := svc.CreateUser(context.Background(), account.User{
		AccountID: acct.ID,
		Email:     "Admin@Clinic.com",
		Name:      "Practice Admin",
		Role:      account.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.Email != "admin@clinic.com" {
		t.Fatalf("email = %q", u.Email)
	}
	if !u.Active {
		t.Fatal("new user should be active")
	}

	if _, err := svc.CreateUser(context.Background(), account.User{
		AccountID: acct.ID,
		Email:     "admin@clinic.com",
	}); err == nil {
		t.Fatal("expected error for duplicate email")
	}
}

func TestCreateUserRejectsUnknownAccount(t *testing.T) {
	svc := newService()
	if _, err := svc.CreateUser(context.Background(), account.User{
		AccountID: "missing",
		Email:     "x@y.com",
	}); err == nil {
		t.Fatal("expected error for unknown account")
	}
}

func TestDeactivateUser(t *testing.T) {
	svc := newService()
	acct, _ := svc.CreateAccount(context.Background(), account.Account{Name: "c", Domain: "c.com"})
	u, err := svc.CreateUser(context.Background(), account.User{AccountID: acct.ID, Email: "e@c.com"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	deactivated, err := svc.DeactivateUser(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if deactivated.Active {
		t.Fatal("user should be inactive")
	}
}
