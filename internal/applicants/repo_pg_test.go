package applicants

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"anoud-backend/internal/shared/query"
)

var applicantRowColumns = []string{"id", "job_id", "name", "email", "phone", "education", "self_intro", "resume_key", "resume_name", "resume_text", "status", "is_flagged", "is_starred", "notes", "applied_at"}

func TestPGRepoListRendersFilters(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows(applicantRowColumns).
		AddRow("a1", "j1", "Sara", "sara@example.com", "1", "BSc", "intro", "j1/x_cv.pdf", "cv.pdf", nil, "New", true, false, "", now)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE (COALESCE(name, '') ILIKE $1 OR COALESCE(email, '') ILIKE $1 OR COALESCE(education, '') ILIKE $1 OR COALESCE(self_intro, '') ILIKE $1 OR COALESCE(resume_text, '') ILIKE $1) AND is_flagged = $2 AND job_id = $3 ORDER BY applied_at DESC NULLS LAST, id DESC`)).
		WithArgs("%50\\%%", true, "j1").
		WillReturnRows(rows)

	spec := query.Build(query.Params{Search: "50%", Flagged: "true"}, listOptions)
	spec.Eq("jobId", "j1")
	repo := &PGRepo{DB: db}
	out, err := repo.List(context.Background(), spec)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 1 || !out[0].HasResume() || !out[0].IsFlagged || out[0].ResumeText != "" {
		t.Fatalf("unexpected rows %+v", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoSetFlaggedNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE applicants SET is_flagged").
		WithArgs(true, "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := &PGRepo{DB: db}
	if err := repo.SetFlagged(context.Background(), "missing", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoDeleteManyReturnsRemoved(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows(applicantRowColumns).
		AddRow("a1", "j1", "Sara", "s@x.co", "1", "BSc", "intro", nil, nil, nil, "Hired", false, false, "", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta(`DELETE FROM applicants WHERE id IN ($1, $2) RETURNING`)).
		WithArgs("a1", "a2").
		WillReturnRows(rows)

	repo := &PGRepo{DB: db}
	out, err := repo.DeleteMany(context.Background(), []string{"a1", "a2"})
	if err != nil {
		t.Fatalf("delete many: %v", err)
	}
	if len(out) != 1 || out[0].Status != StatusHired || out[0].HasResume() {
		t.Fatalf("unexpected removed %+v", out)
	}
}
