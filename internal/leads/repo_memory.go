package leads

import (
	"context"
	"sync"
	"time"

	"anoud-backend/internal/shared/query"
)

type memoryLead struct {
	lead      Lead
	deletedAt *time.Time
}

type MemoryRepo struct {
	mu   sync.RWMutex
	rows map[string]*memoryLead
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{rows: make(map[string]*memoryLead)}
}

func (r *MemoryRepo) Create(ctx context.Context, leads []Lead) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range leads {
		l.AuditHistory = append([]AuditEntry(nil), l.AuditHistory...)
		l.EmailHistory = append([]EmailRecord(nil), l.EmailHistory...)
		r.rows[l.ID] = &memoryLead{lead: l}
	}
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Lead, error) {
	if err := ctx.Err(); err != nil {
		return Lead{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.live(id)
	if !ok {
		return Lead{}, ErrNotFound
	}
	return cloneLead(row.lead), nil
}

func (r *MemoryRepo) GetMany(ctx context.Context, ids []string) ([]Lead, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Lead, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if row, ok := r.live(id); ok {
			out = append(out, listView(row.lead))
		}
	}
	return out, nil
}

func (r *MemoryRepo) List(ctx context.Context, spec query.Spec) ([]Lead, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.mu.RLock()
	matched := make([]Lead, 0)
	for _, row := range r.rows {
		if row.deletedAt == nil && spec.Match(row.lead) {
			matched = append(matched, listView(row.lead))
		}
	}
	r.mu.RUnlock()
	query.SortRecords(matched, spec)
	return query.Window(matched, spec), len(matched), nil
}

func (r *MemoryRepo) Update(ctx context.Context, lead Lead, entry AuditEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.live(lead.ID)
	if !ok {
		return ErrNotFound
	}
	history := append(row.lead.AuditHistory, entry)
	emails := row.lead.EmailHistory
	row.lead = lead
	row.lead.AuditHistory = history
	row.lead.EmailHistory = emails
	return nil
}

func (r *MemoryRepo) AppendAudit(ctx context.Context, id string, entry AuditEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.live(id)
	if !ok {
		return ErrNotFound
	}
	row.lead.AuditHistory = append(row.lead.AuditHistory, entry)
	return nil
}

func (r *MemoryRepo) Tombstone(ctx context.Context, id string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.live(id)
	if !ok {
		return ErrNotFound
	}
	row.deletedAt = &at
	return nil
}

func (r *MemoryRepo) AppendEmail(ctx context.Context, ids []string, rec EmailRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if row, ok := r.live(id); ok {
			row.lead.EmailHistory = append(row.lead.EmailHistory, rec)
		}
	}
	return nil
}

// AuditTrail returns the audit history of a lead, tombstoned or not.
func (r *MemoryRepo) AuditTrail(id string) []AuditEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[id]
	if !ok {
		return nil
	}
	return append([]AuditEntry(nil), row.lead.AuditHistory...)
}

func (r *MemoryRepo) live(id string) (*memoryLead, bool) {
	row, ok := r.rows[id]
	if !ok || row.deletedAt != nil {
		return nil, false
	}
	return row, true
}

func cloneLead(l Lead) Lead {
	l.AuditHistory = append([]AuditEntry(nil), l.AuditHistory...)
	l.EmailHistory = append([]EmailRecord(nil), l.EmailHistory...)
	return l
}

func listView(l Lead) Lead {
	l.AuditHistory = nil
	l.EmailHistory = nil
	return l
}
