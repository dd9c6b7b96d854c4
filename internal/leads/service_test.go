package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"anoud-backend/internal/queue"
	"anoud-backend/internal/shared/auth"
	"anoud-backend/internal/shared/query"
	"anoud-backend/internal/shared/telemetry"
	"anoud-backend/internal/shared/validate"
)

var (
	adminA = auth.Admin{ID: "admin-a", Email: "a@anoud.example", Name: "Admin A", Role: auth.RoleAdmin}
	adminB = auth.Admin{ID: "admin-b", Email: "b@anoud.example", Name: "Admin B", Role: auth.RoleAdmin}
	super  = auth.Admin{ID: "root", Email: "root@anoud.example", Name: "Root", Role: auth.RoleSuperadmin}
)

type recordingQueue struct {
	mu     sync.Mutex
	msgs   []queue.Message
	failTo string
}

func (q *recordingQueue) Send(_ context.Context, msg queue.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if msg.To == q.failTo {
		return errors.New("queue unavailable")
	}
	q.msgs = append(q.msgs, msg)
	return nil
}

func newTestService(t *testing.T) (*Service, *MemoryRepo, *recordingQueue) {
	t.Helper()
	t.Cleanup(telemetry.SetOutput(io.Discard))
	repo := NewMemoryRepo()
	q := &recordingQueue{}
	svc := NewService(repo, q)
	tick := time.Date(2025, 3, 7, 9, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}
	return svc, repo, q
}

func createLead(t *testing.T, svc *Service, admin auth.Admin, company string) Lead {
	t.Helper()
	lead, err := svc.Create(context.Background(), CreateLeadRequest{
		CompanyName: company, ContactPerson: "Jane Doe", Email: strings.ToLower(company) + "@example.com", Phone: "+966500000000",
	}, admin)
	if err != nil {
		t.Fatalf("create %s: %v", company, err)
	}
	return lead
}

func strPtr(s string) *string { return &s }

func TestCreateValidatesAndDefaults(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateLeadRequest{CompanyName: "Acme", Email: "bad", Status: "Maybe"}, adminA)
	var verrs validate.Errors
	if !errors.Is(err, ErrInvalidInput) || !errors.As(err, &verrs) {
		t.Fatalf("expected validation error, got %v", err)
	}
	fields := map[string]bool{}
	for _, fe := range verrs {
		fields[fe.Field] = true
	}
	for _, f := range []string{"contactPerson", "email", "phone", "status"} {
		if !fields[f] {
			t.Fatalf("expected error for %s, got %v", f, verrs)
		}
	}

	lead := createLead(t, svc, adminA, "Acme")
	if lead.Status != StatusNew || lead.LeadSource != SourceManual || lead.FollowUpStatus != FollowUpPending {
		t.Fatalf("unexpected defaults %+v", lead)
	}
	if lead.CreatedBy.ID != adminA.ID || lead.LastModifiedBy.ID != adminA.ID {
		t.Fatalf("unexpected ownership %+v", lead)
	}
	if len(lead.AuditHistory) != 1 || lead.AuditHistory[0].Action != ActionCreated ||
		lead.AuditHistory[0].Details != "Lead created by Admin A: Acme" {
		t.Fatalf("unexpected audit %+v", lead.AuditHistory)
	}
}

func TestUpdateOwnershipEnforced(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	lead := createLead(t, svc, adminA, "Acme")

	if _, err := svc.Update(ctx, lead.ID, UpdateLeadRequest{Status: strPtr("Contacted")}, adminB); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := svc.Delete(ctx, lead.ID, adminB); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden on delete, got %v", err)
	}
	stored, _ := repo.Get(ctx, lead.ID)
	if stored.Status != StatusNew || len(stored.AuditHistory) != 1 {
		t.Fatalf("record changed by forbidden update: %+v", stored)
	}

	updated, err := svc.Update(ctx, lead.ID, UpdateLeadRequest{Status: strPtr("Contacted")}, super)
	if err != nil {
		t.Fatalf("superadmin update: %v", err)
	}
	if updated.Status != StatusContacted || updated.LastModifiedBy.ID != super.ID || updated.CreatedBy.ID != adminA.ID {
		t.Fatalf("unexpected update %+v", updated)
	}
}

func TestUpdateAuditIsAppendOnly(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	lead := createLead(t, svc, adminA, "Acme")
	firstEntry, _ := json.Marshal(lead.AuditHistory[0])

	updated, err := svc.Update(ctx, lead.ID, UpdateLeadRequest{
		Status: strPtr("Contacted"),
		Notes:  strPtr("call back"),
		Phone:  strPtr("+966500000000"),
	}, adminA)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	entry := updated.AuditHistory[1]
	if entry.Action != ActionUpdated || entry.Details != "status: New → Contacted, notes:  → call back" {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if string(entry.NewValue) != `{"phone":"+966500000000","status":"Contacted","notes":"call back"}` {
		t.Fatalf("unexpected patch %s", entry.NewValue)
	}
	var prev Lead
	if err := json.Unmarshal(entry.PreviousValue, &prev); err != nil || prev.Status != StatusNew {
		t.Fatalf("unexpected previous value %s", entry.PreviousValue)
	}

	if _, err := svc.Update(ctx, lead.ID, UpdateLeadRequest{Status: strPtr("Contacted")}, adminA); err != nil {
		t.Fatalf("no-op update: %v", err)
	}
	if _, err := svc.Update(ctx, lead.ID, UpdateLeadRequest{Email: strPtr("nope")}, adminA); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	stored, _ := repo.Get(ctx, lead.ID)
	if len(stored.AuditHistory) != 3 {
		t.Fatalf("expected 3 audit entries, got %d", len(stored.AuditHistory))
	}
	if stored.AuditHistory[2].Details != "Lead updated" {
		t.Fatalf("expected generic no-op entry, got %q", stored.AuditHistory[2].Details)
	}
	again, _ := json.Marshal(stored.AuditHistory[0])
	if string(again) != string(firstEntry) {
		t.Fatalf("first audit entry mutated:\n%s\n%s", firstEntry, again)
	}
}

func TestUpdateFollowUpDate(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	lead := createLead(t, svc, adminA, "Acme")

	updated, err := svc.Update(ctx, lead.ID, UpdateLeadRequest{FollowUpDate: strPtr("2025-04-01")}, adminA)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if formatDate(updated.FollowUpDate) != "2025-04-01" || updated.AuditHistory[1].Details != "followUpDate:  → 2025-04-01" {
		t.Fatalf("unexpected follow-up update %+v", updated.AuditHistory[1])
	}
	cleared, err := svc.Update(ctx, lead.ID, UpdateLeadRequest{FollowUpDate: strPtr("")}, adminA)
	if err != nil || cleared.FollowUpDate != nil {
		t.Fatalf("expected cleared date, got %v %v", cleared.FollowUpDate, err)
	}
}

func TestDeleteTombstonesAndKeepsTrail(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	lead := createLead(t, svc, adminA, "Acme")

	if err := svc.Delete(ctx, lead.ID, adminA); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, lead.ID, adminA); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	res, _ := svc.List(ctx, query.Params{}, super)
	if res.Total != 0 {
		t.Fatalf("tombstoned lead listed")
	}
	trail := repo.AuditTrail(lead.ID)
	if len(trail) != 2 || trail[1].Action != ActionDeleted || len(trail[1].PreviousValue) == 0 {
		t.Fatalf("unexpected trail %+v", trail)
	}
	if err := svc.Delete(ctx, lead.ID, adminA); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestListScopesAndPaginates(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	createLead(t, svc, adminA, "Acme")
	createLead(t, svc, adminA, "Beta")
	createLead(t, svc, adminB, "Gamma")

	res, err := svc.List(ctx, query.Params{}, adminA)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if res.Total != 2 || res.Page != 1 || res.Limit != 20 || res.TotalPages != 1 {
		t.Fatalf("unexpected admin page %+v", res)
	}
	if res.Leads[0].CompanyName != "Beta" {
		t.Fatalf("expected newest first, got %s", res.Leads[0].CompanyName)
	}

	res, _ = svc.List(ctx, query.Params{AdminID: adminA.ID}, adminB)
	if res.Total != 1 || res.Leads[0].CompanyName != "Gamma" {
		t.Fatalf("admin escaped ownership scope: %+v", res)
	}

	res, _ = svc.List(ctx, query.Params{Limit: "1", Page: "2"}, super)
	if res.Total != 3 || res.TotalPages != 3 || len(res.Leads) != 1 || res.Leads[0].CompanyName != "Beta" {
		t.Fatalf("unexpected superadmin page %+v", res)
	}
	res, _ = svc.List(ctx, query.Params{AdminID: adminB.ID}, super)
	if res.Total != 1 {
		t.Fatalf("expected adminId filter, got %+v", res)
	}
	res, _ = svc.List(ctx, query.Params{Search: "BET"}, super)
	if res.Total != 1 {
		t.Fatalf("expected search match, got %+v", res)
	}
}

func TestImportCSV(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.ImportCSV(ctx, "Company,Contact,Email\nAcme,Jane,jane@acme.com\nBeta,Omar,bad\n", adminA)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Imported != 1 || len(res.Errors) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	list, _, _ := repo.List(ctx, query.Spec{})
	if len(list) != 1 || list[0].CreatedBy.ID != adminA.ID {
		t.Fatalf("unexpected stored leads %+v", list)
	}
	full, _ := repo.Get(ctx, list[0].ID)
	if len(full.AuditHistory) != 1 || full.AuditHistory[0].Action != ActionCreated {
		t.Fatalf("expected created audit entry, got %+v", full.AuditHistory)
	}

	_, err = svc.ImportCSV(ctx, "Company,Contact,Email\n,Jane,jane@acme.com\n", adminA)
	var noValid *NoValidRowsError
	if !errors.Is(err, ErrNoValidRows) || !errors.As(err, &noValid) || len(noValid.Errors) != 1 {
		t.Fatalf("expected NoValidRowsError, got %v", err)
	}
}

func TestListPagesImportedBatchWithoutOverlap(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	var b strings.Builder
	b.WriteString("Company Name,Contact Person,Email,Phone\n")
	for i := range 40 {
		fmt.Fprintf(&b, "Company %02d,Contact %02d,lead%02d@example.com,+9665000000%02d\n", i, i, i, i)
	}
	res, err := svc.ImportCSV(ctx, b.String(), adminA)
	if err != nil || res.Imported != 40 {
		t.Fatalf("import: %+v %v", res, err)
	}

	seen := map[string]bool{}
	for _, page := range []string{"1", "2"} {
		list, err := svc.List(ctx, query.Params{Page: page, Limit: "20"}, adminA)
		if err != nil {
			t.Fatalf("list page %s: %v", page, err)
		}
		if len(list.Leads) != 20 {
			t.Fatalf("page %s: expected 20 leads, got %d", page, len(list.Leads))
		}
		for _, lead := range list.Leads {
			if seen[lead.ID] {
				t.Fatalf("lead %s returned on more than one page", lead.ID)
			}
			seen[lead.ID] = true
		}
	}
	if len(seen) != 40 {
		t.Fatalf("expected 40 distinct leads across pages, got %d", len(seen))
	}
}

func TestImportCSVFileRemovesUpload(t *testing.T) {
	svc, _, _ := newTestService(t)
	path := filepath.Join(t.TempDir(), "leads-1.csv")
	if err := os.WriteFile(path, []byte("Company,Contact,Email\nAcme,Jane,jane@acme.com\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := svc.ImportCSVFile(context.Background(), path, adminA); err != nil {
		t.Fatalf("import: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected temp file removed, got %v", err)
	}
}

func TestExport(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Export(ctx, ExportRequest{}, adminA); !errors.Is(err, ErrNoRecords) {
		t.Fatalf("expected ErrNoRecords, got %v", err)
	}

	a := createLead(t, svc, adminA, "Acme")
	b := createLead(t, svc, adminB, "Beta")

	table, err := svc.Export(ctx, ExportRequest{}, adminA)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if table.Len() != 1 || table.Rows[0][0] != "Acme" || table.Rows[0][8] != "2025-03-07" || table.Rows[0][9] != "You" {
		t.Fatalf("unexpected admin export %+v", table.Rows)
	}

	table, _ = svc.Export(ctx, ExportRequest{LeadIDs: []string{a.ID, b.ID}}, super)
	if table.Len() != 2 {
		t.Fatalf("expected both leads for superadmin, got %d", table.Len())
	}
	for _, row := range table.Rows {
		if row[9] != "Admin A" && row[9] != "Admin B" {
			t.Fatalf("expected creator names, got %q", row[9])
		}
	}

	if _, err := svc.Export(ctx, ExportRequest{LeadIDs: []string{b.ID}}, adminA); !errors.Is(err, ErrNoRecords) {
		t.Fatalf("explicit ids must stay ownership scoped, got %v", err)
	}
}

func TestSendEmailCampaign(t *testing.T) {
	svc, repo, q := newTestService(t)
	ctx := context.Background()
	a := createLead(t, svc, adminA, "Acme")
	b := createLead(t, svc, adminA, "Beta")
	other := createLead(t, svc, adminB, "Gamma")
	q.failTo = "beta@example.com"

	res, err := svc.SendEmailCampaign(ctx, SendEmailRequest{
		LeadIDs: []string{a.ID, b.ID, other.ID}, Subject: " Spring hiring ", Body: "Hello",
	}, adminA, "req-1")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.Targeted != 2 || res.Queued != 1 || res.Failed != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(q.msgs) != 1 || q.msgs[0].LeadID != a.ID || q.msgs[0].Subject != "Spring hiring" || q.msgs[0].RequestID != "req-1" {
		t.Fatalf("unexpected messages %+v", q.msgs)
	}

	stored, _ := repo.Get(ctx, a.ID)
	if len(stored.EmailHistory) != 1 || stored.EmailHistory[0].Subject != "Spring hiring" {
		t.Fatalf("unexpected email history %+v", stored.EmailHistory)
	}
	if len(stored.AuditHistory) != 1 || stored.Status != StatusNew {
		t.Fatalf("campaign must not touch audit or status")
	}
	untouched, _ := repo.Get(ctx, other.ID)
	if len(untouched.EmailHistory) != 0 {
		t.Fatalf("other admin's lead received email")
	}

	if _, err := svc.SendEmailCampaign(ctx, SendEmailRequest{LeadIDs: []string{other.ID}, Subject: "x", Body: "y"}, adminA, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
