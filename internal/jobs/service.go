package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"anoud-backend/internal/shared/validate"
)

type Service struct {
	Repo Repo
	Now  func() time.Time
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo, Now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) Create(ctx context.Context, req CreateJobRequest) (Job, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Company = strings.TrimSpace(req.Company)
	if err := validate.Struct(req); err != nil {
		return Job{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	job := Job{
		ID:             uuid.NewString(),
		Title:          req.Title,
		TitleAr:        strings.TrimSpace(req.TitleAr),
		Company:        req.Company,
		Location:       strings.TrimSpace(req.Location),
		EmploymentType: strings.TrimSpace(req.EmploymentType),
		Description:    req.Description,
		DescriptionAr:  req.DescriptionAr,
		IsActive:       true,
		CreatedAt:      s.Now(),
	}
	if err := s.Repo.Create(ctx, job); err != nil {
		return Job{}, err
	}
	return job, nil
}

func (s *Service) Get(ctx context.Context, id string) (Job, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Job{}, ErrNotFound
	}
	return s.Repo.Get(ctx, id)
}

// Summaries resolves job summaries for a set of ids. Unknown ids are absent.
func (s *Service) Summaries(ctx context.Context, ids []string) (map[string]Summary, error) {
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		if _, err := uuid.Parse(id); err != nil {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	found, err := s.Repo.GetMany(ctx, unique)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Summary, len(found))
	for id, job := range found {
		out[id] = job.Summary()
	}
	return out, nil
}

func (s *Service) List(ctx context.Context, includeInactive bool) ([]Job, error) {
	out, err := s.Repo.List(ctx, includeInactive)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Job{}
	}
	return out, nil
}

// Close takes a posting off the public board. Existing applicants stay.
func (s *Service) Close(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	return s.Repo.SetActive(ctx, id, false)
}
