package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

type PGRepo struct {
	DB *sql.DB
}

const selectUser = `
SELECT id, email, name, phone, role, skills, custom_columns, created_at, updated_at
FROM users`

func (r *PGRepo) Create(ctx context.Context, user User) (User, error) {
	skills, err := json.Marshal(nonNilStrings(user.Skills))
	if err != nil {
		return User{}, err
	}
	cols, err := json.Marshal(nonNilColumns(user.CustomColumns))
	if err != nil {
		return User{}, err
	}
	const query = `
INSERT INTO users (id, email, name, phone, role, skills, custom_columns, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
RETURNING created_at, updated_at`
	err = r.DB.QueryRowContext(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.Phone,
		string(user.Role),
		skills,
		cols,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, ErrEmailTaken
		}
		return User{}, err
	}
	user.Skills = nonNilStrings(user.Skills)
	user.CustomColumns = nonNilColumns(user.CustomColumns)
	return user, nil
}

func (r *PGRepo) GetByID(ctx context.Context, userID string) (User, error) {
	return r.getOne(ctx, selectUser+"\nWHERE id = $1\nLIMIT 1", userID)
}

func (r *PGRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.getOne(ctx, selectUser+"\nWHERE lower(email) = lower($1)\nLIMIT 1", email)
}

func (r *PGRepo) List(ctx context.Context, filter ListFilter) ([]User, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Role != "" {
		args = append(args, filter.Role)
		conds = append(conds, fmt.Sprintf("role = $%d", len(args)))
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		args = append(args, "%"+term+"%")
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", len(args), len(args)))
	}
	query := selectUser
	if len(conds) > 0 {
		query += "\nWHERE " + strings.Join(conds, " AND ")
	}
	query += "\nORDER BY created_at DESC"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, user)
	}
	return out, rows.Err()
}

func (r *PGRepo) SetCustomColumns(ctx context.Context, userID string, cols []CustomColumn) error {
	raw, err := json.Marshal(nonNilColumns(cols))
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET custom_columns = $1, updated_at = now() WHERE id = $2`, raw, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) getOne(ctx context.Context, query string, arg string) (User, error) {
	user, err := scanUser(r.DB.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (User, error) {
	var (
		user   User
		role   string
		phone  sql.NullString
		skills []byte
		cols   []byte
	)
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &phone, &role, &skills, &cols, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return User{}, err
	}
	user.Phone = phone.String
	user.Role = roleOf(role)
	if len(skills) > 0 {
		if err := json.Unmarshal(skills, &user.Skills); err != nil {
			return User{}, fmt.Errorf("decode skills: %w", err)
		}
	}
	if len(cols) > 0 {
		if err := json.Unmarshal(cols, &user.CustomColumns); err != nil {
			return User{}, fmt.Errorf("decode custom columns: %w", err)
		}
	}
	user.CustomColumns = nonNilColumns(user.CustomColumns)
	return user, nil
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func nonNilColumns(v []CustomColumn) []CustomColumn {
	if v == nil {
		return []CustomColumn{}
	}
	return v
}
