package users

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"anoud-backend/internal/shared/auth"
	"anoud-backend/internal/shared/validate"
)

func newTestService(t *testing.T) (*Service, User) {
	t.Helper()
	svc := NewService(NewMemoryRepo())
	admin, err := svc.CreateAccount(context.Background(), NewAccount{Email: "Admin@Anoud.test", Name: "Amal", Role: auth.RoleAdmin})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	return svc, admin
}

func TestCreateAccountLowercasesAndRejectsDuplicates(t *testing.T) {
	svc, admin := newTestService(t)
	if admin.Email != "admin@anoud.test" {
		t.Fatalf("expected lowercased email, got %s", admin.Email)
	}
	_, err := svc.CreateAccount(context.Background(), NewAccount{Email: "ADMIN@anoud.test"})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	_, err = svc.CreateAccount(context.Background(), NewAccount{Email: "nope"})
	var verrs validate.Errors
	if !errors.Is(err, ErrInvalidInput) || !errors.As(err, &verrs) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateAccountDefaults(t *testing.T) {
	svc, _ := newTestService(t)
	user, err := svc.CreateAccount(context.Background(), NewAccount{Email: "sara.k@mail.com"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if user.Role != auth.RoleUser || user.Name != "sara.k" {
		t.Fatalf("unexpected defaults: %+v", user)
	}
}

func TestSaveCustomColumnsFillsDefaults(t *testing.T) {
	svc, admin := newTestService(t)
	raw := json.RawMessage(`[{"id":"c1","title":"Budget","order":5},{"title":""},{"id":7}]`)
	cols, err := svc.SaveCustomColumns(context.Background(), admin.Admin(), raw)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(cols) != 3 {
		t.Fatalf("expected 3 columns, got %d", len(cols))
	}
	if cols[0] != (CustomColumn{ID: "c1", Title: "Budget", Order: 5}) {
		t.Fatalf("unexpected first column: %+v", cols[0])
	}
	if cols[1].Title != "Column 2" || cols[1].Order != 1 || cols[1].ID == "" {
		t.Fatalf("unexpected defaulted column: %+v", cols[1])
	}
	if cols[2].ID != "7" || cols[2].Title != "Column 3" || cols[2].Order != 2 {
		t.Fatalf("unexpected third column: %+v", cols[2])
	}

	stored, err := svc.CustomColumns(context.Background(), admin.Admin())
	if err != nil || len(stored) != 3 {
		t.Fatalf("expected stored columns, got %v %v", stored, err)
	}
}

func TestSaveCustomColumnsRequiresArray(t *testing.T) {
	svc, admin := newTestService(t)
	for _, raw := range []string{`{"id":"c1"}`, `"x"`, `null`, ``} {
		_, err := svc.SaveCustomColumns(context.Background(), admin.Admin(), json.RawMessage(raw))
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%q: expected ErrInvalidInput, got %v", raw, err)
		}
	}
}

func TestDeleteCustomColumn(t *testing.T) {
	svc, admin := newTestService(t)
	ctx := context.Background()
	if _, err := svc.SaveCustomColumns(ctx, admin.Admin(), json.RawMessage(`[{"id":"a"},{"id":"b"}]`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	cols, err := svc.DeleteCustomColumn(ctx, admin.Admin(), "a")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(cols) != 1 || cols[0].ID != "b" {
		t.Fatalf("unexpected remaining columns: %+v", cols)
	}
	cols, err = svc.DeleteCustomColumn(ctx, admin.Admin(), "missing")
	if err != nil || len(cols) != 1 {
		t.Fatalf("expected no-op delete, got %v %v", cols, err)
	}
}

func TestListFiltersByRole(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.CreateAccount(ctx, NewAccount{Email: "u@x.co"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	admins, err := svc.List(ctx, ListFilter{Role: "admin"})
	if err != nil || len(admins) != 1 {
		t.Fatalf("expected 1 admin, got %v %v", admins, err)
	}
	if _, err := svc.List(ctx, ListFilter{Role: "root"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid role error, got %v", err)
	}
}
