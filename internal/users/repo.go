package users

import "context"

// Repo persists accounts.
type Repo interface {
	Create(ctx context.Context, user User) (User, error)
	GetByID(ctx context.Context, userID string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context, filter ListFilter) ([]User, error)
	SetCustomColumns(ctx context.Context, userID string, cols []CustomColumn) error
}
