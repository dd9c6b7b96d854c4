package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"anoud-backend/internal/export"
	"anoud-backend/internal/queue"
	"anoud-backend/internal/shared/auth"
	"anoud-backend/internal/shared/metrics"
	"anoud-backend/internal/shared/query"
	"anoud-backend/internal/shared/telemetry"
	"anoud-backend/internal/shared/util"
	"anoud-backend/internal/shared/validate"
)

const maxConcurrentSends = 8

type Service struct {
	Repo  Repo
	Queue queue.Client
	Now   func() time.Time
}

func NewService(repo Repo, q queue.Client) *Service {
	if q == nil {
		q = queue.LogClient{}
	}
	return &Service{Repo: repo, Queue: q, Now: func() time.Time { return time.Now().UTC() }}
}

// Create stores a new lead owned by admin with its "created" audit entry.
func (s *Service) Create(ctx context.Context, req CreateLeadRequest, admin auth.Admin) (Lead, error) {
	req.CompanyName = strings.TrimSpace(req.CompanyName)
	req.ContactPerson = strings.TrimSpace(req.ContactPerson)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)

	verrs := validate.Errors{}
	if err := validate.Struct(req); err != nil {
		if !errors.As(err, &verrs) {
			return Lead{}, err
		}
	}
	status := StatusNew
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status = Status(raw)
		if !status.Valid() {
			verrs.Add("status", "must be one of: New, Contacted, In Discussion, Converted, Lost")
		}
	}
	source := SourceManual
	if raw := strings.TrimSpace(req.LeadSource); raw != "" {
		source = Source(raw)
		if !source.Valid() {
			verrs.Add("leadSource", "must be one of: Website Form, Manual, Referral, Other")
		}
	}
	followUpStatus := FollowUpPending
	if raw := strings.TrimSpace(req.FollowUpStatus); raw != "" {
		followUpStatus = FollowUpStatus(raw)
		if !followUpStatus.Valid() {
			verrs.Add("followUpStatus", "must be one of: Pending, Completed, Overdue")
		}
	}
	var followUp *time.Time
	if raw := strings.TrimSpace(req.FollowUpDate); raw != "" {
		t, err := parseFollowUpDate(raw)
		if err != nil {
			verrs.Add("followUpDate", "must be a valid date")
		} else {
			followUp = &t
		}
	}
	if err := verrs.Err(); err != nil {
		return Lead{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	now := s.Now()
	lead := s.newLead(admin, now)
	lead.CompanyName = req.CompanyName
	lead.ContactPerson = req.ContactPerson
	lead.Email = req.Email
	lead.Phone = req.Phone
	lead.Status = status
	lead.LeadSource = source
	lead.Notes = strings.TrimSpace(req.Notes)
	lead.FollowUpDate = followUp
	lead.FollowUpStatus = followUpStatus
	lead.AuditHistory = []AuditEntry{createdEntry(lead, admin, now, "Lead created by %s: %s")}

	if err := s.Repo.Create(ctx, []Lead{lead}); err != nil {
		return Lead{}, err
	}
	telemetry.Info("lead.created", map[string]any{"lead_id": lead.ID, "admin_id": admin.ID})
	return lead, nil
}

// Get returns one lead with its histories.
func (s *Service) Get(ctx context.Context, id string, admin auth.Admin) (Lead, error) {
	lead, err := s.get(ctx, id)
	if err != nil {
		return Lead{}, err
	}
	if !canAccess(lead, admin) {
		return Lead{}, ErrForbidden
	}
	return lead, nil
}

// List returns one page of the leads visible to admin.
func (s *Service) List(ctx context.Context, params query.Params, admin auth.Admin) (ListResult, error) {
	spec := query.Build(params, listOptions)
	scope(&spec, params.AdminID, admin)
	items, total, err := s.Repo.List(ctx, spec)
	if err != nil {
		return ListResult{}, err
	}
	if items == nil {
		items = []Lead{}
	}
	return ListResult{
		Leads:      items,
		Total:      total,
		Page:       spec.Page,
		Limit:      spec.Limit,
		TotalPages: query.TotalPages(total, spec.Limit),
	}, nil
}

// Update applies a partial patch. Exactly one "updated" audit entry is
// appended, even when nothing changed.
func (s *Service) Update(ctx context.Context, id string, req UpdateLeadRequest, admin auth.Admin) (Lead, error) {
	current, err := s.get(ctx, id)
	if err != nil {
		return Lead{}, err
	}
	if !canAccess(current, admin) {
		return Lead{}, ErrForbidden
	}

	next := current
	var (
		changes []string
		verrs   validate.Errors
	)
	setText := func(field string, patch *string, dst *string, check func(string) string) {
		if patch == nil {
			return
		}
		v := strings.TrimSpace(*patch)
		if check != nil {
			if msg := check(v); msg != "" {
				verrs.Add(field, msg)
				return
			}
		}
		if v != *dst {
			changes = append(changes, fmt.Sprintf("%s: %s → %s", field, *dst, v))
			*dst = v
		}
	}
	required := func(v string) string {
		if v == "" {
			return "is required"
		}
		return ""
	}

	setText("companyName", req.CompanyName, &next.CompanyName, required)
	setText("contactPerson", req.ContactPerson, &next.ContactPerson, required)
	setText("email", req.Email, &next.Email, func(v string) string {
		if !validate.Email(v) {
			return "must be a valid email address"
		}
		return ""
	})
	setText("phone", req.Phone, &next.Phone, required)

	status := string(next.Status)
	setText("status", req.Status, &status, func(v string) string {
		if !Status(v).Valid() {
			return "must be one of: New, Contacted, In Discussion, Converted, Lost"
		}
		return ""
	})
	next.Status = Status(status)

	source := string(next.LeadSource)
	setText("leadSource", req.LeadSource, &source, func(v string) string {
		if !Source(v).Valid() {
			return "must be one of: Website Form, Manual, Referral, Other"
		}
		return ""
	})
	next.LeadSource = Source(source)

	setText("notes", req.Notes, &next.Notes, nil)

	if req.FollowUpDate != nil {
		var (
			date    *time.Time
			invalid bool
		)
		if raw := strings.TrimSpace(*req.FollowUpDate); raw != "" {
			t, err := parseFollowUpDate(raw)
			if err != nil {
				verrs.Add("followUpDate", "must be a valid date")
				invalid = true
			}
			date = &t
		}
		if before, after := formatDate(current.FollowUpDate), formatDate(date); !invalid && before != after {
			changes = append(changes, fmt.Sprintf("followUpDate: %s → %s", before, after))
			next.FollowUpDate = date
		}
	}

	followUpStatus := string(next.FollowUpStatus)
	setText("followUpStatus", req.FollowUpStatus, &followUpStatus, func(v string) string {
		if !FollowUpStatus(v).Valid() {
			return "must be one of: Pending, Completed, Overdue"
		}
		return ""
	})
	next.FollowUpStatus = FollowUpStatus(followUpStatus)

	if err := verrs.Err(); err != nil {
		return Lead{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	details := strings.Join(changes, ", ")
	if details == "" {
		details = "Lead updated"
	}
	patch, err := json.Marshal(req)
	if err != nil {
		return Lead{}, fmt.Errorf("encode patch: %w", err)
	}
	now := s.Now()
	entry := AuditEntry{
		Action:        ActionUpdated,
		AdminID:       admin.ID,
		AdminEmail:    admin.Email,
		AdminName:     admin.Name,
		Timestamp:     now,
		Details:       details,
		PreviousValue: current.snapshot(),
		NewValue:      patch,
	}
	next.UpdatedAt = now
	next.LastModifiedBy = Modification{Actor: actorOf(admin), At: now}
	if err := s.Repo.Update(ctx, next, entry); err != nil {
		return Lead{}, err
	}
	next.AuditHistory = append(append([]AuditEntry(nil), current.AuditHistory...), entry)
	return next, nil
}

// Delete appends the "deleted" audit entry, then tombstones the lead so the
// trail stays readable.
func (s *Service) Delete(ctx context.Context, id string, admin auth.Admin) error {
	current, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if !canAccess(current, admin) {
		return ErrForbidden
	}
	now := s.Now()
	entry := AuditEntry{
		Action:        ActionDeleted,
		AdminID:       admin.ID,
		AdminEmail:    admin.Email,
		AdminName:     admin.Name,
		Timestamp:     now,
		Details:       fmt.Sprintf("Lead deleted by %s: %s", admin.Name, current.CompanyName),
		PreviousValue: current.snapshot(),
	}
	if err := s.Repo.AppendAudit(ctx, id, entry); err != nil {
		return err
	}
	if err := s.Repo.Tombstone(ctx, id, now); err != nil {
		return err
	}
	telemetry.Info("lead.deleted", map[string]any{"lead_id": id, "admin_id": admin.ID})
	return nil
}

// CampaignResult reports a bulk email send.
type CampaignResult struct {
	Targeted int `json:"targeted"`
	Queued   int `json:"queued"`
	Failed   int `json:"failed"`
}

// SendEmailCampaign records the email on every targeted lead visible to
// admin and queues one message per lead. Status and audit are untouched.
func (s *Service) SendEmailCampaign(ctx context.Context, req SendEmailRequest, admin auth.Admin, requestID string) (CampaignResult, error) {
	req.Subject = strings.TrimSpace(req.Subject)
	if err := validate.Struct(req); err != nil {
		return CampaignResult{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	found, err := s.Repo.GetMany(ctx, filterIDs(req.LeadIDs))
	if err != nil {
		return CampaignResult{}, err
	}
	targets := make([]Lead, 0, len(found))
	for _, l := range found {
		if canAccess(l, admin) {
			targets = append(targets, l)
		}
	}
	if len(targets) == 0 {
		return CampaignResult{}, ErrNotFound
	}

	now := s.Now()
	ids := make([]string, len(targets))
	for i, l := range targets {
		ids[i] = l.ID
	}
	if err := s.Repo.AppendEmail(ctx, ids, EmailRecord{Subject: req.Subject, Body: req.Body, SentAt: now}); err != nil {
		return CampaignResult{}, err
	}

	failed := make([]bool, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSends)
	for i, l := range targets {
		g.Go(func() error {
			msg := queue.Message{
				LeadID:      l.ID,
				To:          l.Email,
				ContactName: l.ContactPerson,
				CompanyName: l.CompanyName,
				Subject:     req.Subject,
				Body:        req.Body,
				SentBy:      admin.Email,
				RequestID:   requestID,
				EnqueuedAt:  now.Format(time.RFC3339),
				Version:     queue.MessageVersion,
			}
			if err := s.Queue.Send(gctx, msg); err != nil {
				failed[i] = true
				telemetry.Warn("lead.email_enqueue_failed", map[string]any{"lead_id": l.ID, "request_id": requestID, "error": err.Error()})
			}
			return nil
		})
	}
	_ = g.Wait()

	res := CampaignResult{Targeted: len(targets)}
	for _, f := range failed {
		if f {
			res.Failed++
		}
	}
	res.Queued = res.Targeted - res.Failed
	metrics.AddCampaignEmailsQueued(res.Queued)
	return res, nil
}

// ImportCSV creates one lead per valid row in a single batch. Invalid rows
// are reported, never fatal, unless no row is valid.
func (s *Service) ImportCSV(ctx context.Context, contents string, admin auth.Admin) (ImportResult, error) {
	start := time.Now()
	rows, rowErrs := ParseImport(contents)
	metrics.AddImportRowErrors(len(rowErrs))
	if len(rows) == 0 {
		return ImportResult{}, &NoValidRowsError{Errors: rowErrs}
	}

	now := s.Now()
	batch := make([]Lead, 0, len(rows))
	for _, row := range rows {
		lead := s.newLead(admin, now)
		lead.CompanyName = row.CompanyName
		lead.ContactPerson = row.ContactPerson
		lead.Email = row.Email
		lead.Phone = row.Phone
		lead.Status = row.Status
		lead.LeadSource = row.LeadSource
		lead.Notes = row.Notes
		lead.FollowUpDate = row.FollowUpDate
		lead.AuditHistory = []AuditEntry{createdEntry(lead, admin, now, "Lead imported from CSV by %s: %s")}
		batch = append(batch, lead)
	}
	if err := s.Repo.Create(ctx, batch); err != nil {
		return ImportResult{}, err
	}

	metrics.AddLeadsImported(len(batch))
	metrics.ObserveImportDurationMs(float64(time.Since(start).Milliseconds()))
	telemetry.Info("lead.imported", map[string]any{"admin_id": admin.ID, "imported": len(batch), "row_errors": len(rowErrs)})
	if rowErrs == nil {
		rowErrs = []string{}
	}
	return ImportResult{Imported: len(batch), Errors: rowErrs}, nil
}

// ImportCSVFile imports an uploaded temp file and removes it afterwards
// whatever the outcome.
func (s *Service) ImportCSVFile(ctx context.Context, path string, admin auth.Admin) (ImportResult, error) {
	defer util.BestEffort("lead.import_cleanup", map[string]any{"path": path}, func() error {
		return os.Remove(path)
	})
	data, err := os.ReadFile(path)
	if err != nil {
		return ImportResult{}, fmt.Errorf("read upload: %w", err)
	}
	return s.ImportCSV(ctx, string(data), admin)
}

// Export renders the selected leads. Explicit ids bypass the filter but
// stay scoped to what admin may see.
func (s *Service) Export(ctx context.Context, req ExportRequest, admin auth.Admin) (export.Table, error) {
	var spec query.Spec
	if len(req.LeadIDs) > 0 {
		spec.In(query.FieldID, filterIDs(req.LeadIDs))
		spec.Sort = query.Sort{Field: listOptions.DefaultSort, Desc: true}
	} else {
		spec = query.Build(req.Params, listOptions)
		spec.Page, spec.Limit = 0, 0
	}
	scope(&spec, req.AdminID, admin)

	list, _, err := s.Repo.List(ctx, spec)
	if err != nil {
		return export.Table{}, err
	}
	if len(list) == 0 {
		return export.Table{}, ErrNoRecords
	}

	table := export.Table{
		Sheet: "Leads",
		Headers: []string{
			"Company Name", "Contact Person", "Email", "Phone", "Status", "Lead Source",
			"Notes", "Follow-Up Date", "Date Added", "Created By",
		},
		Rows: make([][]string, 0, len(list)),
	}
	for _, l := range list {
		createdBy := "You"
		if admin.IsSuper() {
			createdBy = l.CreatedBy.Name
		}
		table.Rows = append(table.Rows, []string{
			l.CompanyName,
			l.ContactPerson,
			l.Email,
			l.Phone,
			string(l.Status),
			string(l.LeadSource),
			l.Notes,
			formatDate(l.FollowUpDate),
			l.CreatedAt.Format("2006-01-02"),
			createdBy,
		})
	}
	metrics.ObserveExportRows(table.Len())
	return table, nil
}

func (s *Service) get(ctx context.Context, id string) (Lead, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Lead{}, ErrNotFound
	}
	return s.Repo.Get(ctx, id)
}

func (s *Service) newLead(admin auth.Admin, now time.Time) Lead {
	return Lead{
		ID:             uuid.NewString(),
		Status:         StatusNew,
		LeadSource:     SourceManual,
		FollowUpStatus: FollowUpPending,
		CreatedBy:      actorOf(admin),
		LastModifiedBy: Modification{Actor: actorOf(admin), At: now},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func createdEntry(lead Lead, admin auth.Admin, now time.Time, format string) AuditEntry {
	return AuditEntry{
		Action:     ActionCreated,
		AdminID:    admin.ID,
		AdminEmail: admin.Email,
		AdminName:  admin.Name,
		Timestamp:  now,
		Details:    fmt.Sprintf(format, admin.Name, lead.CompanyName),
		NewValue:   lead.snapshot(),
	}
}

// canAccess reports whether admin owns lead or is a superadmin.
func canAccess(lead Lead, admin auth.Admin) bool {
	return admin.IsSuper() || (admin.ID != "" && lead.CreatedBy.ID == admin.ID)
}

// scope restricts admins to their own leads. Superadmins may narrow to one
// owner with adminID.
func scope(spec *query.Spec, adminID string, admin auth.Admin) {
	if !admin.IsSuper() {
		spec.Eq(query.FieldCreatedBy, admin.ID)
		return
	}
	if id := strings.TrimSpace(adminID); id != "" {
		spec.Eq(query.FieldCreatedBy, id)
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func filterIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			out = append(out, id)
		}
	}
	return out
}
