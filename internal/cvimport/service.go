package cvimport

import (
	"context"
	"errors"
	"strings"
	"time"

	"anoud-backend/internal/shared/auth"
	"anoud-backend/internal/shared/metrics"
	"anoud-backend/internal/shared/telemetry"
	"anoud-backend/internal/users"
)

// AccountCreator is the slice of the users service the importer needs.
type AccountCreator interface {
	CreateAccount(ctx context.Context, in users.NewAccount) (users.User, error)
}

type Service struct {
	Users AccountCreator
	Now   func() time.Time
}

func NewService(accounts AccountCreator) *Service {
	return &Service{Users: accounts, Now: time.Now}
}

// SkippedAccount is a profile whose email already has an account.
type SkippedAccount struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// AccountError is a profile that could not become an account.
type AccountError struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Error string `json:"error"`
}

// CreateResult reports a partial-success account import.
type CreateResult struct {
	Created []users.User     `json:"created"`
	Skipped []SkippedAccount `json:"skipped"`
	Errors  []AccountError   `json:"errors"`
}

// Parse reads a ZIP of CVs and returns a per-file manifest.
func (s *Service) Parse(ctx context.Context, data []byte, admin auth.Admin) (Manifest, error) {
	start := s.now()
	m, err := Parse(ctx, data)
	if err != nil {
		return Manifest{}, err
	}
	metrics.AddCVFilesParsed(m.Succeeded)
	metrics.ObserveImportDurationMs(float64(s.now().Sub(start).Milliseconds()))
	telemetry.Info("cvimport.parsed", map[string]any{
		"total":     m.Total,
		"succeeded": m.Succeeded,
		"failed":    m.Failed,
		"admin_id":  admin.ID,
	})
	return m, nil
}

// CreateAccounts turns profiles into role=user accounts. Profiles are
// handled in order and never abort the batch.
func (s *Service) CreateAccounts(ctx context.Context, profiles []Profile, admin auth.Admin) (CreateResult, error) {
	res := CreateResult{Created: []users.User{}, Skipped: []SkippedAccount{}, Errors: []AccountError{}}
	for _, p := range profiles {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		email := strings.ToLower(strings.TrimSpace(p.Email))
		if email == "" {
			res.Errors = append(res.Errors, AccountError{Name: p.Name, Error: "missing email"})
			continue
		}
		user, err := s.Users.CreateAccount(ctx, users.NewAccount{
			Email:  email,
			Name:   strings.TrimSpace(p.Name),
			Phone:  strings.TrimSpace(p.Phone),
			Role:   auth.RoleUser,
			Skills: p.Skills,
		})
		switch {
		case errors.Is(err, users.ErrEmailTaken):
			res.Skipped = append(res.Skipped, SkippedAccount{Email: email, Name: p.Name, Reason: "account already exists"})
		case errors.Is(err, users.ErrInvalidInput):
			res.Errors = append(res.Errors, AccountError{Name: p.Name, Email: email, Error: "invalid email"})
		case err != nil:
			return res, err
		default:
			res.Created = append(res.Created, user)
		}
	}
	metrics.AddCVAccountsCreated(len(res.Created))
	telemetry.Info("cvimport.accounts_created", map[string]any{
		"created":  len(res.Created),
		"skipped":  len(res.Skipped),
		"errors":   len(res.Errors),
		"admin_id": admin.ID,
	})
	return res, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
