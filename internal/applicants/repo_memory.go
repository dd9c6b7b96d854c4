package applicants

import (
	"context"
	"sync"

	"anoud-backend/internal/shared/query"
)

type MemoryRepo struct {
	mu   sync.RWMutex
	rows map[string]Applicant
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{rows: make(map[string]Applicant)}
}

func (r *MemoryRepo) Create(ctx context.Context, a Applicant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[a.ID] = a
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Applicant, error) {
	if err := ctx.Err(); err != nil {
		return Applicant{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.rows[id]
	if !ok {
		return Applicant{}, ErrNotFound
	}
	return a, nil
}

func (r *MemoryRepo) GetMany(ctx context.Context, ids []string) ([]Applicant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Applicant, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if a, ok := r.rows[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *MemoryRepo) List(ctx context.Context, spec query.Spec) ([]Applicant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Applicant, 0)
	for _, a := range r.rows {
		if spec.Match(a) {
			out = append(out, a)
		}
	}
	r.mu.RUnlock()
	query.SortRecords(out, spec)
	return query.Window(out, spec), nil
}

func (r *MemoryRepo) SetStatus(ctx context.Context, id string, status Status) (Applicant, error) {
	return r.update(ctx, id, func(a *Applicant) { a.Status = status })
}

func (r *MemoryRepo) SetFlagged(ctx context.Context, id string, flagged bool) error {
	_, err := r.update(ctx, id, func(a *Applicant) { a.IsFlagged = flagged })
	return err
}

func (r *MemoryRepo) SetStarred(ctx context.Context, id string, starred bool) error {
	_, err := r.update(ctx, id, func(a *Applicant) { a.IsStarred = starred })
	return err
}

func (r *MemoryRepo) SetNotes(ctx context.Context, id string, notes string) (Applicant, error) {
	return r.update(ctx, id, func(a *Applicant) { a.Notes = notes })
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *MemoryRepo) DeleteMany(ctx context.Context, ids []string) ([]Applicant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []Applicant
	for _, id := range ids {
		if a, ok := r.rows[id]; ok {
			removed = append(removed, a)
			delete(r.rows, id)
		}
	}
	return removed, nil
}

func (r *MemoryRepo) update(ctx context.Context, id string, fn func(*Applicant)) (Applicant, error) {
	if err := ctx.Err(); err != nil {
		return Applicant{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[id]
	if !ok {
		return Applicant{}, ErrNotFound
	}
	fn(&a)
	r.rows[id] = a
	return a, nil
}
