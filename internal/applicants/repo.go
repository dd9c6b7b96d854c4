package applicants

import (
	"context"

	"anoud-backend/internal/shared/query"
)

// Repo persists applicants. Single-record mutations return ErrNotFound for
// unknown ids.
type Repo interface {
	Create(ctx context.Context, a Applicant) error
	Get(ctx context.Context, id string) (Applicant, error)
	GetMany(ctx context.Context, ids []string) ([]Applicant, error)
	List(ctx context.Context, spec query.Spec) ([]Applicant, error)
	SetStatus(ctx context.Context, id string, status Status) (Applicant, error)
	SetFlagged(ctx context.Context, id string, flagged bool) error
	SetStarred(ctx context.Context, id string, starred bool) error
	SetNotes(ctx context.Context, id string, notes string) (Applicant, error)
	Delete(ctx context.Context, id string) error
	// DeleteMany removes the listed applicants and returns the removed
	// records. Unknown ids are ignored.
	DeleteMany(ctx context.Context, ids []string) ([]Applicant, error)
}

var searchFields = []string{"name", "email", "education", "selfIntro", "resumeText"}

var listOptions = query.Options{
	SearchFields: searchFields,
	SortFields:   []string{"appliedAt", "name", "email", "status"},
	DefaultSort:  "appliedAt",
	Flags:        true,
}

var columns = map[string]string{
	query.FieldID:        "id",
	"jobId":              "job_id",
	"name":               "name",
	"email":              "email",
	"education":          "education",
	"selfIntro":          "self_intro",
	"resumeText":         "resume_text",
	query.FieldStatus:    "status",
	query.FieldIsFlagged: "is_flagged",
	query.FieldIsStarred: "is_starred",
	"appliedAt":          "applied_at",
}
