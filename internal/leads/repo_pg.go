package leads

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"anoud-backend/internal/shared/query"
	"anoud-backend/internal/shared/storage/db"
)

type PGRepo struct {
	DB *sql.DB
}

const leadColumns = `id, company_name, contact_person, email, phone, status, lead_source, notes, follow_up_date, follow_up_status,
created_by_id, created_by_email, created_by_name,
last_modified_by_id, last_modified_by_email, last_modified_by_name, last_modified_at,
created_at, updated_at`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *PGRepo) Create(ctx context.Context, leads []Lead) error {
	if len(leads) == 0 {
		return nil
	}
	return db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		for _, l := range leads {
			if err := insertLead(ctx, tx, l); err != nil {
				return fmt.Errorf("insert lead %s: %w", l.ID, err)
			}
			for _, entry := range l.AuditHistory {
				if err := insertAudit(ctx, tx, l.ID, entry); err != nil {
					return fmt.Errorf("insert audit %s: %w", l.ID, err)
				}
			}
		}
		return nil
	})
}

func insertLead(ctx context.Context, ex execer, l Lead) error {
	const q = `
INSERT INTO leads (id, company_name, contact_person, email, phone, status, lead_source, notes, follow_up_date, follow_up_status,
  created_by_id, created_by_email, created_by_name,
  last_modified_by_id, last_modified_by_email, last_modified_by_name, last_modified_at,
  created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`
	_, err := ex.ExecContext(ctx, q,
		l.ID,
		l.CompanyName,
		l.ContactPerson,
		l.Email,
		l.Phone,
		string(l.Status),
		string(l.LeadSource),
		l.Notes,
		nullableTime(l.FollowUpDate),
		string(l.FollowUpStatus),
		l.CreatedBy.ID,
		l.CreatedBy.Email,
		l.CreatedBy.Name,
		l.LastModifiedBy.ID,
		l.LastModifiedBy.Email,
		l.LastModifiedBy.Name,
		l.LastModifiedBy.At,
		l.CreatedAt,
		l.UpdatedAt,
	)
	return err
}

func insertAudit(ctx context.Context, ex execer, leadID string, e AuditEntry) error {
	const q = `
INSERT INTO lead_audit_entries (lead_id, action, changed_by_id, changed_by_email, changed_by_name, changed_at, changes, previous_value, new_value)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := ex.ExecContext(ctx, q, leadID, string(e.Action), e.AdminID, e.AdminEmail, e.AdminName, e.Timestamp, e.Details,
		nullableJSON(e.PreviousValue), nullableJSON(e.NewValue))
	return err
}

func (r *PGRepo) Get(ctx context.Context, id string) (Lead, error) {
	l, err := scanLead(r.DB.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1 AND deleted_at IS NULL`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Lead{}, ErrNotFound
		}
		return Lead{}, err
	}
	if l.AuditHistory, err = r.auditHistory(ctx, id); err != nil {
		return Lead{}, err
	}
	if l.EmailHistory, err = r.emailHistory(ctx, id); err != nil {
		return Lead{}, err
	}
	return l, nil
}

func (r *PGRepo) auditHistory(ctx context.Context, id string) ([]AuditEntry, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT action, changed_by_id, changed_by_email, changed_by_name, changed_at, changes, previous_value, new_value
FROM lead_audit_entries WHERE lead_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AuditEntry
	for rows.Next() {
		var (
			e             AuditEntry
			action        string
			previousValue []byte
			newValue      []byte
		)
		if err := rows.Scan(&action, &e.AdminID, &e.AdminEmail, &e.AdminName, &e.Timestamp, &e.Details, &previousValue, &newValue); err != nil {
			return nil, err
		}
		e.Action = AuditAction(action)
		e.PreviousValue = previousValue
		e.NewValue = newValue
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PGRepo) emailHistory(ctx context.Context, id string) ([]EmailRecord, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT subject, body, sent_at FROM lead_email_history WHERE lead_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []EmailRecord
	for rows.Next() {
		var rec EmailRecord
		if err := rows.Scan(&rec.Subject, &rec.Body, &rec.SentAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *PGRepo) GetMany(ctx context.Context, ids []string) ([]Lead, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var spec query.Spec
	spec.In(query.FieldID, ids)
	out, _, err := r.list(ctx, spec, false)
	return out, err
}

func (r *PGRepo) List(ctx context.Context, spec query.Spec) ([]Lead, int, error) {
	return r.list(ctx, spec, true)
}

func (r *PGRepo) list(ctx context.Context, spec query.Spec, count bool) ([]Lead, int, error) {
	rendered, err := spec.SQL(columns, 1)
	if err != nil {
		return nil, 0, err
	}
	where := ` WHERE deleted_at IS NULL`
	if rendered.Where != "" {
		where += ` AND ` + rendered.Where
	}

	total := 0
	if count {
		if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads`+where, rendered.Args...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count leads: %w", err)
		}
	}

	q := `SELECT ` + leadColumns + ` FROM leads` + where
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
		return nil, 0, err
	}
	defer rows.Close()
	var out []Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, l)
	}
	if !count {
		total = len(out)
	}
	return out, total, rows.Err()
}

func (r *PGRepo) Update(ctx context.Context, l Lead, entry AuditEntry) error {
	return db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		const q = `
UPDATE leads SET company_name = $2, contact_person = $3, email = $4, phone = $5, status = $6, lead_source = $7,
  notes = $8, follow_up_date = $9, follow_up_status = $10,
  last_modified_by_id = $11, last_modified_by_email = $12, last_modified_by_name = $13, last_modified_at = $14,
  updated_at = $15
WHERE id = $1 AND deleted_at IS NULL`
		res, err := tx.ExecContext(ctx, q,
			l.ID,
			l.CompanyName,
			l.ContactPerson,
			l.Email,
			l.Phone,
			string(l.Status),
			string(l.LeadSource),
			l.Notes,
			nullableTime(l.FollowUpDate),
			string(l.FollowUpStatus),
			l.LastModifiedBy.ID,
			l.LastModifiedBy.Email,
			l.LastModifiedBy.Name,
			l.LastModifiedBy.At,
			l.UpdatedAt,
		)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrNotFound
		}
		return insertAudit(ctx, tx, l.ID, entry)
	})
}

func (r *PGRepo) AppendAudit(ctx context.Context, id string, e AuditEntry) error {
	const q = `
INSERT INTO lead_audit_entries (lead_id, action, changed_by_id, changed_by_email, changed_by_name, changed_at, changes, previous_value, new_value)
SELECT id, $2, $3, $4, $5, $6, $7, $8, $9 FROM leads WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.DB.ExecContext(ctx, q, id, string(e.Action), e.AdminID, e.AdminEmail, e.AdminName, e.Timestamp, e.Details,
		nullableJSON(e.PreviousValue), nullableJSON(e.NewValue))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) Tombstone(ctx context.Context, id string, at time.Time) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE leads SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`, id, at)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) AppendEmail(ctx context.Context, ids []string, rec EmailRecord) error {
	if len(ids) == 0 {
		return nil
	}
	args := []any{rec.Subject, rec.Body, rec.SentAt}
	placeholders := make([]string, len(ids))
	for i, id := range ids {
		args = append(args, id)
		placeholders[i] = fmt.Sprintf("$%d", i+4)
	}
	_, err := r.DB.ExecContext(ctx, `
INSERT INTO lead_email_history (lead_id, subject, body, sent_at)
SELECT id, $1, $2, $3 FROM leads WHERE id IN (`+strings.Join(placeholders, ", ")+`) AND deleted_at IS NULL`, args...)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLead(row scanner) (Lead, error) {
	var (
		l              Lead
		status         string
		source         string
		followUpStatus string
		followUp       sql.NullTime
	)
	err := row.Scan(
		&l.ID,
		&l.CompanyName,
		&l.ContactPerson,
		&l.Email,
		&l.Phone,
		&status,
		&source,
		&l.Notes,
		&followUp,
		&followUpStatus,
		&l.CreatedBy.ID,
		&l.CreatedBy.Email,
		&l.CreatedBy.Name,
		&l.LastModifiedBy.ID,
		&l.LastModifiedBy.Email,
		&l.LastModifiedBy.Name,
		&l.LastModifiedBy.At,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return Lead{}, err
	}
	l.Status = Status(status)
	l.LeadSource = Source(source)
	l.FollowUpStatus = FollowUpStatus(followUpStatus)
	if followUp.Valid {
		t := followUp.Time
		l.FollowUpDate = &t
	}
	return l, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
