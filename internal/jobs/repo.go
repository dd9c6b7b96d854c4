package jobs

import (
	"context"
	"errors"
)

var (
	ErrNotFound     = errors.New("job not found")
	ErrInvalidInput = errors.New("invalid input")
)

type Repo interface {
	Create(ctx context.Context, job Job) error
	Get(ctx context.Context, id string) (Job, error)
	GetMany(ctx context.Context, ids []string) (map[string]Job, error)
	List(ctx context.Context, includeInactive bool) ([]Job, error)
	SetActive(ctx context.Context, id string, active bool) error
}
