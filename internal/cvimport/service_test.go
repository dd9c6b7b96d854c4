package cvimport

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"anoud-backend/internal/shared/auth"
	"anoud-backend/internal/shared/telemetry"
	"anoud-backend/internal/users"
)

var superadmin = auth.Admin{ID: "super-1", Email: "root@anoud.sa", Name: "Root", Role: auth.RoleSuperadmin}

type zipEntry struct {
	name string
	body string
}

func buildZip(t *testing.T, entries ...zipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		if err != nil {
			t.Fatalf("create %s: %v", e.name, err)
		}
		if _, err := io.WriteString(w, e.body); err != nil {
			t.Fatalf("write %s: %v", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func newTestService(t *testing.T) (*Service, *users.Service) {
	t.Helper()
	t.Cleanup(telemetry.SetOutput(io.Discard))
	accounts := users.NewService(users.NewMemoryRepo())
	return NewService(accounts), accounts
}

func TestParseManifest(t *testing.T) {
	svc, _ := newTestService(t)
	data := buildZip(t,
		zipEntry{name: "cvs/"},
		zipEntry{name: "cvs/Sara_CV.txt", body: "Sara Khalid\nsara@example.com\nSkills: Go, SQL\n"},
		zipEntry{name: "__MACOSX/cvs/._Sara_CV.txt", body: "junk"},
		zipEntry{name: "cvs/notes.rtf", body: "{\\rtf1}"},
		zipEntry{name: "cvs/blank.txt", body: "   \n"},
	)

	m, err := svc.Parse(context.Background(), data, superadmin)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m.Total != 3 || m.Succeeded != 1 || m.Failed != 2 {
		t.Fatalf("unexpected counts %+v", m)
	}
	first := m.Files[0]
	if first.FileName != "Sara_CV.txt" || !first.Success || first.Profile == nil {
		t.Fatalf("unexpected first entry %+v", first)
	}
	if first.Profile.Email != "sara@example.com" || first.Profile.Name != "Sara Khalid" {
		t.Fatalf("unexpected profile %+v", first.Profile)
	}
	if m.Files[1].FileName != "notes.rtf" || m.Files[1].Success || m.Files[1].Error == "" {
		t.Fatalf("unsupported entry should fail, got %+v", m.Files[1])
	}
	if m.Files[2].Success || m.Files[2].Error != "no text could be extracted" {
		t.Fatalf("blank entry should fail, got %+v", m.Files[2])
	}
}

func TestParseRejectsBadArchives(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Parse(ctx, []byte("not a zip"), superadmin); !errors.Is(err, ErrInvalidArchive) {
		t.Fatalf("expected ErrInvalidArchive, got %v", err)
	}
	if _, err := svc.Parse(ctx, buildZip(t, zipEntry{name: "empty/"}), superadmin); !errors.Is(err, ErrEmptyArchive) {
		t.Fatalf("expected ErrEmptyArchive, got %v", err)
	}

	entries := make([]zipEntry, MaxEntries+1)
	for i := range entries {
		entries[i] = zipEntry{name: fmt.Sprintf("cv-%03d.txt", i), body: "x"}
	}
	if _, err := svc.Parse(ctx, buildZip(t, entries...), superadmin); !errors.Is(err, ErrTooManyEntries) {
		t.Fatalf("expected ErrTooManyEntries, got %v", err)
	}
}

func TestCreateAccounts(t *testing.T) {
	svc, accounts := newTestService(t)
	ctx := context.Background()
	if _, err := accounts.CreateAccount(ctx, users.NewAccount{Email: "taken@example.com", Name: "Taken"}); err != nil {
		t.Fatalf("seed account: %v", err)
	}

	res, err := svc.CreateAccounts(ctx, []Profile{
		{Name: "Sara", Email: " Sara@Example.com ", Phone: "+966500000000", Skills: []string{"Go"}},
		{Name: "No Mail"},
		{Name: "Taken", Email: "TAKEN@example.com"},
		{Name: "Broken", Email: "not-an-email"},
	}, superadmin)
	if err != nil {
		t.Fatalf("create accounts: %v", err)
	}
	if len(res.Created) != 1 || len(res.Skipped) != 1 || len(res.Errors) != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	created := res.Created[0]
	if created.Email != "sara@example.com" || created.Role != auth.RoleUser || len(created.Skills) != 1 {
		t.Fatalf("unexpected account %+v", created)
	}
	if res.Skipped[0].Email != "taken@example.com" {
		t.Fatalf("unexpected skipped %+v", res.Skipped)
	}
	if res.Errors[0].Error != "missing email" || res.Errors[1].Email != "not-an-email" {
		t.Fatalf("unexpected errors %+v", res.Errors)
	}
}
