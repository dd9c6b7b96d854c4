package applicants

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"anoud-backend/internal/export"
	"anoud-backend/internal/extract"
	"anoud-backend/internal/jobs"
	"anoud-backend/internal/shared/metrics"
	"anoud-backend/internal/shared/query"
	"anoud-backend/internal/shared/storage/object"
	"anoud-backend/internal/shared/telemetry"
	"anoud-backend/internal/shared/util"
	"anoud-backend/internal/shared/validate"
)

// MaxResumeBytes is the largest accepted résumé upload.
const MaxResumeBytes = 5 << 20

var resumeExtensions = map[string]bool{".pdf": true, ".doc": true, ".docx": true}

// JobLookup resolves the jobs applicants refer to.
type JobLookup interface {
	Get(ctx context.Context, id string) (jobs.Job, error)
	Summaries(ctx context.Context, ids []string) (map[string]jobs.Summary, error)
}

type Service struct {
	Repo  Repo
	Store object.ObjectStore
	Jobs  JobLookup
	Now   func() time.Time
}

func NewService(repo Repo, store object.ObjectStore, jobLookup JobLookup) *Service {
	return &Service{Repo: repo, Store: store, Jobs: jobLookup, Now: func() time.Time { return time.Now().UTC() }}
}

// Submit records a public application. The résumé is optional; its text is
// extracted on a best-effort basis and never fails the submission.
func (s *Service) Submit(ctx context.Context, req SubmitRequest, resume *Upload) (View, error) {
	req = trimSubmit(req)
	verrs := validate.Errors{}
	if err := validate.Struct(req); err != nil {
		if !errors.As(err, &verrs) {
			return View{}, err
		}
	}
	var data []byte
	if resume != nil {
		var err error
		data, err = readResume(resume, &verrs)
		if err != nil {
			return View{}, err
		}
	}
	if err := verrs.Err(); err != nil {
		return View{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	job, err := s.lookupJob(ctx, req.JobID)
	if err != nil {
		return View{}, err
	}
	if !job.IsActive {
		return View{}, ErrJobNotFound
	}

	a := Applicant{
		ID:        uuid.NewString(),
		JobID:     job.ID,
		Name:      req.Name,
		Email:     strings.ToLower(req.Email),
		Phone:     req.Phone,
		Education: req.Education,
		SelfIntro: req.SelfIntro,
		Status:    StatusNew,
		AppliedAt: s.Now(),
	}
	if data != nil {
		saved, err := s.Store.Save(ctx, job.ID, resume.FileName, bytes.NewReader(data))
		if err != nil {
			return View{}, fmt.Errorf("store resume: %w", err)
		}
		a.ResumeKey = saved.Key
		a.ResumeName = filepath.Base(resume.FileName)
		util.BestEffort("applicant.resume_extract", map[string]any{"applicant_id": a.ID, "file": a.ResumeName}, func() error {
			text, err := extract.Text(ctx, data, resume.FileName)
			a.ResumeText = text
			return err
		})
	}

	if err := s.Repo.Create(ctx, a); err != nil {
		if a.HasResume() {
			s.removeResume(a)
		}
		return View{}, err
	}
	metrics.IncApplicationsSubmitted()
	telemetry.Info("applicant.submitted", map[string]any{"applicant_id": a.ID, "job_id": a.JobID, "has_resume": a.HasResume()})
	summary := job.Summary()
	return View{Applicant: a, HasResume: a.HasResume(), Job: &summary}, nil
}

// ListForJob returns every applicant of a job matching params.
func (s *Service) ListForJob(ctx context.Context, jobID string, params query.Params) ([]View, error) {
	job, err := s.lookupJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	spec := query.Build(params, listOptions)
	spec.Eq("jobId", job.ID)
	list, err := s.Repo.List(ctx, spec)
	if err != nil {
		return nil, err
	}
	summary := job.Summary()
	out := make([]View, 0, len(list))
	for _, a := range list {
		out = append(out, View{Applicant: a, HasResume: a.HasResume(), Job: &summary})
	}
	return out, nil
}

// SetStatus moves an applicant to any valid status.
func (s *Service) SetStatus(ctx context.Context, id string, status string) (View, error) {
	st := Status(strings.TrimSpace(status))
	if !st.Valid() {
		return View{}, fmt.Errorf("%w: %w", ErrInvalidInput, validate.Errors{{Field: "status", Message: "must be one of: New, Shortlisted, Interviewed, Rejected, Hired"}})
	}
	if !validID(id) {
		return View{}, ErrNotFound
	}
	a, err := s.Repo.SetStatus(ctx, id, st)
	if err != nil {
		return View{}, err
	}
	return s.view(ctx, a)
}

// ToggleFlag inverts the flag with a single write and returns the new value.
// Concurrent toggles are last-write-wins.
func (s *Service) ToggleFlag(ctx context.Context, id string) (bool, error) {
	a, err := s.get(ctx, id)
	if err != nil {
		return false, err
	}
	next := !a.IsFlagged
	if err := s.Repo.SetFlagged(ctx, id, next); err != nil {
		return false, err
	}
	return next, nil
}

// ToggleStar inverts the star with a single write and returns the new value.
func (s *Service) ToggleStar(ctx context.Context, id string) (bool, error) {
	a, err := s.get(ctx, id)
	if err != nil {
		return false, err
	}
	next := !a.IsStarred
	if err := s.Repo.SetStarred(ctx, id, next); err != nil {
		return false, err
	}
	return next, nil
}

// SetNotes replaces the notes wholesale. Empty clears them.
func (s *Service) SetNotes(ctx context.Context, id string, notes string) (View, error) {
	if !validID(id) {
		return View{}, ErrNotFound
	}
	a, err := s.Repo.SetNotes(ctx, id, notes)
	if err != nil {
		return View{}, err
	}
	return s.view(ctx, a)
}

// Delete removes an applicant permanently, then its résumé file best-effort.
func (s *Service) Delete(ctx context.Context, id string) error {
	a, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	if a.HasResume() {
		s.removeResume(a)
	}
	return nil
}

// BulkDelete removes every listed applicant and returns how many existed.
// Résumé cleanup runs concurrently and never fails the call.
func (s *Service) BulkDelete(ctx context.Context, ids []string) (int, error) {
	if err := validate.Struct(IDsRequest{ApplicantIDs: ids}); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	removed, err := s.Repo.DeleteMany(ctx, filterIDs(ids))
	if err != nil {
		return 0, err
	}

	var g errgroup.Group
	g.SetLimit(8)
	for _, a := range removed {
		if !a.HasResume() {
			continue
		}
		a := a
		g.Go(func() error {
			s.removeResume(a)
			return nil
		})
	}
	_ = g.Wait()
	return len(removed), nil
}

// BulkDownloadResumes opens the résumés of the listed applicants. Applicants
// without a résumé, or whose file cannot be opened, are skipped. When nothing
// remains ErrNoResumes is returned and no archive is produced.
func (s *Service) BulkDownloadResumes(ctx context.Context, ids []string) (*ResumeArchive, error) {
	if err := validate.Struct(IDsRequest{ApplicantIDs: ids}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	list, err := s.Repo.GetMany(ctx, filterIDs(ids))
	if err != nil {
		return nil, err
	}
	archive := &ResumeArchive{}
	for _, a := range list {
		if !a.HasResume() {
			continue
		}
		body, err := s.Store.Open(ctx, a.ResumeKey)
		if err != nil {
			telemetry.Warn("applicant.resume_open_failed", map[string]any{"applicant_id": a.ID, "key": a.ResumeKey, "error": err.Error()})
			continue
		}
		archive.add(ResumeEntryName(a.Name, a.Email, a.ResumeName), body)
	}
	if archive.Len() == 0 {
		return nil, ErrNoResumes
	}
	return archive, nil
}

// ExportFiltered renders the applicants matching req as a table. An empty
// result is ErrNoRecords.
func (s *Service) ExportFiltered(ctx context.Context, req ExportRequest) (export.Table, error) {
	spec := query.Build(req.Params, listOptions)
	if id := strings.TrimSpace(req.JobID); id != "" {
		if !validID(id) {
			return export.Table{}, ErrJobNotFound
		}
		spec.Eq("jobId", id)
	}
	list, err := s.Repo.List(ctx, spec)
	if err != nil {
		return export.Table{}, err
	}
	if len(list) == 0 {
		return export.Table{}, ErrNoRecords
	}

	jobIDs := make([]string, 0, len(list))
	for _, a := range list {
		jobIDs = append(jobIDs, a.JobID)
	}
	summaries, err := s.Jobs.Summaries(ctx, jobIDs)
	if err != nil {
		return export.Table{}, err
	}

	table := export.Table{
		Sheet: "Applicants",
		Headers: []string{
			"Name", "Email", "Phone", "Education", "Job Title", "Company", "Status",
			"Flagged", "Starred", "Date Applied", "Notes", "Self Introduction",
		},
		Rows: make([][]string, 0, len(list)),
	}
	for _, a := range list {
		job := summaries[a.JobID]
		table.Rows = append(table.Rows, []string{
			a.Name,
			a.Email,
			a.Phone,
			a.Education,
			job.Title,
			job.Company,
			string(a.Status),
			export.YesNo(a.IsFlagged),
			export.YesNo(a.IsStarred),
			a.AppliedAt.Format("1/2/2006"),
			a.Notes,
			a.SelfIntro,
		})
	}
	metrics.ObserveExportRows(table.Len())
	return table, nil
}

func (s *Service) get(ctx context.Context, id string) (Applicant, error) {
	if !validID(id) {
		return Applicant{}, ErrNotFound
	}
	return s.Repo.Get(ctx, id)
}

func (s *Service) lookupJob(ctx context.Context, jobID string) (jobs.Job, error) {
	job, err := s.Jobs.Get(ctx, jobID)
	if errors.Is(err, jobs.ErrNotFound) {
		return jobs.Job{}, ErrJobNotFound
	}
	return job, err
}

func (s *Service) view(ctx context.Context, a Applicant) (View, error) {
	summaries, err := s.Jobs.Summaries(ctx, []string{a.JobID})
	if err != nil {
		return View{}, err
	}
	v := View{Applicant: a, HasResume: a.HasResume()}
	if summary, ok := summaries[a.JobID]; ok {
		v.Job = &summary
	}
	return v, nil
}

func (s *Service) removeResume(a Applicant) {
	util.BestEffort("applicant.resume_delete", map[string]any{"applicant_id": a.ID, "key": a.ResumeKey}, func() error {
		return s.Store.Delete(context.Background(), a.ResumeKey)
	})
}

func readResume(resume *Upload, verrs *validate.Errors) ([]byte, error) {
	if !resumeExtensions[strings.ToLower(filepath.Ext(resume.FileName))] {
		verrs.Add("resume", "must be a .pdf, .doc or .docx file")
		return nil, nil
	}
	if resume.Size > MaxResumeBytes {
		verrs.Add("resume", "must be 5MB or smaller")
		return nil, nil
	}
	data, err := io.ReadAll(io.LimitReader(resume.Body, MaxResumeBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read resume: %w", err)
	}
	if len(data) > MaxResumeBytes {
		verrs.Add("resume", "must be 5MB or smaller")
		return nil, nil
	}
	if len(data) == 0 {
		verrs.Add("resume", "is empty")
		return nil, nil
	}
	return data, nil
}

func trimSubmit(req SubmitRequest) SubmitRequest {
	req.JobID = strings.TrimSpace(req.JobID)
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Education = strings.TrimSpace(req.Education)
	req.SelfIntro = strings.TrimSpace(req.SelfIntro)
	return req
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func filterIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			out = append(out, id)
		}
	}
	return out
}
