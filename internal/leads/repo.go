package leads

import (
	"context"
	"time"

	"anoud-backend/internal/shared/query"
)

// Repo persists leads and their append-only histories. Tombstoned leads
// are invisible to every read.
type Repo interface {
	// Create inserts leads together with their initial audit entries as
	// one batch.
	Create(ctx context.Context, leads []Lead) error
	// Get returns a lead with its audit and email histories.
	Get(ctx context.Context, id string) (Lead, error)
	GetMany(ctx context.Context, ids []string) ([]Lead, error)
	// List returns one window of matching leads and the total match count.
	List(ctx context.Context, spec query.Spec) ([]Lead, int, error)
	// Update stores the mutable fields of lead and appends entry.
	Update(ctx context.Context, lead Lead, entry AuditEntry) error
	AppendAudit(ctx context.Context, id string, entry AuditEntry) error
	Tombstone(ctx context.Context, id string, at time.Time) error
	AppendEmail(ctx context.Context, ids []string, rec EmailRecord) error
}

var searchFields = []string{"companyName", "contactPerson", "email", "phone", "notes"}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

var listOptions = query.Options{
	SearchFields: searchFields,
	SortFields:   []string{"createdAt", "updatedAt", "companyName", "contactPerson", "status", "followUpDate"},
	DefaultSort:  "createdAt",
	DateField:    "updatedAt",
	Paginate:     true,
	DefaultLimit: defaultPageSize,
	MaxLimit:     maxPageSize,
}

var columns = map[string]string{
	query.FieldID:        "id",
	"companyName":        "company_name",
	"contactPerson":      "contact_person",
	"email":              "email",
	"phone":              "phone",
	"notes":              "notes",
	query.FieldStatus:    "status",
	query.FieldCreatedBy: "created_by_id",
	"createdAt":          "created_at",
	"updatedAt":          "updated_at",
	"followUpDate":       "follow_up_date",
}
