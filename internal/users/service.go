package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"anoud-backend/internal/shared/auth"
	"anoud-backend/internal/shared/validate"
)

type Service struct {
	Repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// NewAccount is the input to CreateAccount.
type NewAccount struct {
	Email  string    `json:"email" validate:"required,email"`
	Name   string    `json:"name"`
	Phone  string    `json:"phone"`
	Role   auth.Role `json:"role"`
	Skills []string  `json:"skills"`
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return User{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, userID)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	if strings.TrimSpace(email) == "" {
		return User{}, ErrNotFound
	}
	return s.Repo.GetByEmail(ctx, strings.TrimSpace(email))
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]User, error) {
	if filter.Role != "" && !auth.Role(filter.Role).Valid() {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, validate.Errors{{Field: "role", Message: "must be one of: user admin superadmin"}})
	}
	out, err := s.Repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []User{}
	}
	return out, nil
}

// CreateAccount registers a new account. Emails are stored lowercased and
// must be unique.
func (s *Service) CreateAccount(ctx context.Context, in NewAccount) (User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validate.Struct(in); err != nil {
		return User{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	role := in.Role
	if role == "" {
		role = auth.RoleUser
	}
	if !role.Valid() {
		return User{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = strings.SplitN(in.Email, "@", 2)[0]
	}
	return s.Repo.Create(ctx, User{
		ID:     uuid.NewString(),
		Email:  in.Email,
		Name:   name,
		Phone:  strings.TrimSpace(in.Phone),
		Role:   role,
		Skills: in.Skills,
	})
}

// EnsureAccount returns the account for email, creating it when missing.
func (s *Service) EnsureAccount(ctx context.Context, in NewAccount) (User, error) {
	existing, err := s.GetByEmail(ctx, in.Email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}
	return s.CreateAccount(ctx, in)
}

// CustomColumns returns the acting admin's column definitions.
func (s *Service) CustomColumns(ctx context.Context, admin auth.Admin) ([]CustomColumn, error) {
	user, err := s.Repo.GetByID(ctx, admin.ID)
	if err != nil {
		return nil, err
	}
	return user.CustomColumns, nil
}

// SaveCustomColumns replaces the admin's columns with raw, which must be a
// JSON array. Missing ids are generated, missing titles become "Column N"
// and missing orders take the array index.
func (s *Service) SaveCustomColumns(ctx context.Context, admin auth.Admin, raw json.RawMessage) ([]CustomColumn, error) {
	cols, err := normalizeColumns(raw)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.SetCustomColumns(ctx, admin.ID, cols); err != nil {
		return nil, err
	}
	return cols, nil
}

// DeleteCustomColumn removes one column by id and returns the remainder.
// Removing an unknown id leaves the list unchanged.
func (s *Service) DeleteCustomColumn(ctx context.Context, admin auth.Admin, columnID string) ([]CustomColumn, error) {
	user, err := s.Repo.GetByID(ctx, admin.ID)
	if err != nil {
		return nil, err
	}
	kept := make([]CustomColumn, 0, len(user.CustomColumns))
	for _, col := range user.CustomColumns {
		if col.ID != columnID {
			kept = append(kept, col)
		}
	}
	if len(kept) == len(user.CustomColumns) {
		return kept, nil
	}
	if err := s.Repo.SetCustomColumns(ctx, admin.ID, kept); err != nil {
		return nil, err
	}
	return kept, nil
}

func normalizeColumns(raw json.RawMessage) ([]CustomColumn, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, validate.Errors{{Field: "columns", Message: "must be an array"}})
	}
	cols := make([]CustomColumn, 0, len(items))
	for i, item := range items {
		var fields map[string]any
		_ = json.Unmarshal(item, &fields)

		col := CustomColumn{ID: stringField(fields["id"]), Title: stringField(fields["title"]), Order: i}
		if col.ID == "" {
			col.ID = uuid.NewString()
		}
		if strings.TrimSpace(col.Title) == "" {
			col.Title = fmt.Sprintf("Column %d", i+1)
		}
		if order, ok := fields["order"].(float64); ok {
			col.Order = int(order)
		}
		cols = append(cols, col)
	}
	return cols, nil
}

func stringField(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

func roleOf(raw string) auth.Role {
	role := auth.Role(raw)
	if !role.Valid() {
		return auth.RoleUser
	}
	return role
}
