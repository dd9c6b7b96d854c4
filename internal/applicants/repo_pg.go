package applicants

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"anoud-backend/internal/shared/query"
)

type PGRepo struct {
	DB *sql.DB
}

const applicantColumns = `id, job_id, name, email, phone, education, self_intro, resume_key, resume_name, resume_text, status, is_flagged, is_starred, notes, applied_at`

func (r *PGRepo) Create(ctx context.Context, a Applicant) error {
	const q = `
INSERT INTO applicants (id, job_id, name, email, phone, education, self_intro, resume_key, resume_name, resume_text, status, is_flagged, is_starred, notes, applied_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.DB.ExecContext(ctx, q,
		a.ID,
		a.JobID,
		a.Name,
		a.Email,
		a.Phone,
		a.Education,
		a.SelfIntro,
		nullableString(a.ResumeKey),
		nullableString(a.ResumeName),
		nullableString(a.ResumeText),
		string(a.Status),
		a.IsFlagged,
		a.IsStarred,
		a.Notes,
		a.AppliedAt,
	)
	return err
}

func (r *PGRepo) Get(ctx context.Context, id string) (Applicant, error) {
	a, err := scanApplicant(r.DB.QueryRowContext(ctx, `SELECT `+applicantColumns+` FROM applicants WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Applicant{}, ErrNotFound
		}
		return Applicant{}, err
	}
	return a, nil
}

func (r *PGRepo) GetMany(ctx context.Context, ids []string) ([]Applicant, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var spec query.Spec
	spec.In(query.FieldID, ids)
	return r.List(ctx, spec)
}

func (r *PGRepo) List(ctx context.Context, spec query.Spec) ([]Applicant, error) {
	rendered, err := spec.SQL(columns, 1)
	if err != nil {
		return nil, err
	}
	q := `SELECT ` + applicantColumns + ` FROM applicants`
	if rendered.Where != "" {
		q += ` WHERE ` + rendered.Where
	}
	if rendered.OrderBy != "" {
		q += ` ORDER BY ` + rendered.OrderBy
	}
	args := rendered.Args
	if spec.Limit > 0 {
		q += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, rendered.NextArg, rendered.NextArg+1)
		args = append(args, spec.Limit, spec.Offset())
	}

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Applicant
	for rows.Next() {
		a, err := scanApplicant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PGRepo) SetStatus(ctx context.Context, id string, status Status) (Applicant, error) {
	return r.updateReturning(ctx, `UPDATE applicants SET status = $1 WHERE id = $2 RETURNING `+applicantColumns, string(status), id)
}

func (r *PGRepo) SetFlagged(ctx context.Context, id string, flagged bool) error {
	return r.exec(ctx, `UPDATE applicants SET is_flagged = $1 WHERE id = $2`, flagged, id)
}

func (r *PGRepo) SetStarred(ctx context.Context, id string, starred bool) error {
	return r.exec(ctx, `UPDATE applicants SET is_starred = $1 WHERE id = $2`, starred, id)
}

func (r *PGRepo) SetNotes(ctx context.Context, id string, notes string) (Applicant, error) {
	return r.updateReturning(ctx, `UPDATE applicants SET notes = $1 WHERE id = $2 RETURNING `+applicantColumns, notes, id)
}

func (r *PGRepo) Delete(ctx context.Context, id string) error {
	return r.exec(ctx, `DELETE FROM applicants WHERE id = $1`, id)
}

func (r *PGRepo) DeleteMany(ctx context.Context, ids []string) ([]Applicant, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	rows, err := r.DB.QueryContext(ctx,
		`DELETE FROM applicants WHERE id IN (`+strings.Join(placeholders, ", ")+`) RETURNING `+applicantColumns, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Applicant
	for rows.Next() {
		a, err := scanApplicant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PGRepo) exec(ctx context.Context, q string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) updateReturning(ctx context.Context, q string, args ...any) (Applicant, error) {
	a, err := scanApplicant(r.DB.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Applicant{}, ErrNotFound
		}
		return Applicant{}, err
	}
	return a, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanApplicant(row scanner) (Applicant, error) {
	var (
		a          Applicant
		status     string
		resumeKey  sql.NullString
		resumeName sql.NullString
		resumeText sql.NullString
	)
	err := row.Scan(
		&a.ID,
		&a.JobID,
		&a.Name,
		&a.Email,
		&a.Phone,
		&a.Education,
		&a.SelfIntro,
		&resumeKey,
		&resumeName,
		&resumeText,
		&status,
		&a.IsFlagged,
		&a.IsStarred,
		&a.Notes,
		&a.AppliedAt,
	)
	if err != nil {
		return Applicant{}, err
	}
	a.Status = Status(status)
	a.ResumeKey = resumeKey.String
	a.ResumeName = resumeName.String
	a.ResumeText = resumeText.String
	return a, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
