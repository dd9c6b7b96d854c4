package applicants

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"anoud-backend/internal/jobs"
	"anoud-backend/internal/shared/query"
	"anoud-backend/internal/shared/storage/object/local"
	"anoud-backend/internal/shared/telemetry"
	"anoud-backend/internal/shared/validate"
)

const validIntro = "I have five years of Go backend experience."

type countingRepo struct {
	*MemoryRepo
	writes int
}

func (r *countingRepo) SetStarred(ctx context.Context, id string, starred bool) error {
	r.writes++
	return r.MemoryRepo.SetStarred(ctx, id, starred)
}

func (r *countingRepo) SetFlagged(ctx context.Context, id string, flagged bool) error {
	r.writes++
	return r.MemoryRepo.SetFlagged(ctx, id, flagged)
}

type fixture struct {
	svc  *Service
	repo *countingRepo
	jobs *jobs.Service
	job  jobs.Job
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	t.Cleanup(telemetry.SetOutput(io.Discard))
	jobSvc := jobs.NewService(jobs.NewMemoryRepo())
	job, err := jobSvc.Create(context.Background(), jobs.CreateJobRequest{Title: "Backend Engineer", Company: "Anoud", Description: "Go services"})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	repo := &countingRepo{MemoryRepo: NewMemoryRepo()}
	svc := NewService(repo, local.New(t.TempDir()), jobSvc)
	return fixture{svc: svc, repo: repo, jobs: jobSvc, job: job}
}

func (f fixture) submit(t *testing.T, name, email string, resume *Upload) View {
	t.Helper()
	v, err := f.svc.Submit(context.Background(), SubmitRequest{
		JobID: f.job.ID, Name: name, Email: email, Phone: "+966500000000", Education: "BSc", SelfIntro: validIntro,
	}, resume)
	if err != nil {
		t.Fatalf("submit %s: %v", name, err)
	}
	return v
}

func resumeUpload(name, body string) *Upload {
	return &Upload{FileName: name, Size: int64(len(body)), Body: strings.NewReader(body)}
}

func TestSubmitSelfIntroBoundary(t *testing.T) {
	f := newFixture(t)
	req := SubmitRequest{JobID: f.job.ID, Name: "Sara", Email: "sara@example.com", Phone: "1", Education: "BSc"}

	req.SelfIntro = strings.Repeat("a", 29)
	_, err := f.svc.Submit(context.Background(), req, nil)
	var verrs validate.Errors
	if !errors.Is(err, ErrInvalidInput) || !errors.As(err, &verrs) || verrs[0].Field != "selfIntro" {
		t.Fatalf("expected selfIntro validation error, got %v", err)
	}

	req.SelfIntro = strings.Repeat("a", 30)
	v, err := f.svc.Submit(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if v.Status != StatusNew || v.IsFlagged || v.IsStarred || v.HasResume || v.Job == nil || v.Job.Title != "Backend Engineer" {
		t.Fatalf("unexpected defaults: %+v", v)
	}
}

func TestSubmitRejectsUnknownAndClosedJob(t *testing.T) {
	f := newFixture(t)
	req := SubmitRequest{JobID: "00000000-0000-0000-0000-000000000000", Name: "Sara", Email: "sara@example.com", Phone: "1", Education: "BSc", SelfIntro: validIntro}
	if _, err := f.svc.Submit(context.Background(), req, nil); !errors.Is(err, ErrJobNotFound) || !IsNotFound(err) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}

	if err := f.jobs.Close(context.Background(), f.job.ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	req.JobID = f.job.ID
	if _, err := f.svc.Submit(context.Background(), req, nil); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound for closed job, got %v", err)
	}
}

func TestSubmitResumeRules(t *testing.T) {
	f := newFixture(t)
	req := SubmitRequest{JobID: f.job.ID, Name: "Sara", Email: "sara@example.com", Phone: "1", Education: "BSc", SelfIntro: validIntro}

	_, err := f.svc.Submit(context.Background(), req, resumeUpload("cv.exe", "MZ"))
	var verrs validate.Errors
	if !errors.As(err, &verrs) || verrs[0].Field != "resume" {
		t.Fatalf("expected resume validation error, got %v", err)
	}

	big := &Upload{FileName: "cv.pdf", Size: MaxResumeBytes + 1, Body: strings.NewReader("x")}
	if _, err := f.svc.Submit(context.Background(), req, big); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected size rejection, got %v", err)
	}

	// Unparseable content still submits; extraction is best-effort.
	v, err := f.svc.Submit(context.Background(), req, resumeUpload("My CV.pdf", "not really a pdf"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !v.HasResume || v.ResumeName != "My CV.pdf" {
		t.Fatalf("expected stored resume, got %+v", v)
	}
	rc, err := f.svc.Store.Open(context.Background(), v.ResumeKey)
	if err != nil {
		t.Fatalf("open stored resume: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != "not really a pdf" {
		t.Fatalf("unexpected stored body %q", body)
	}
}

func TestSetStatusEnumClosure(t *testing.T) {
	f := newFixture(t)
	a := f.submit(t, "Sara", "sara@example.com", nil)
	ctx := context.Background()

	for _, s1 := range Statuses {
		for _, s2 := range Statuses {
			if _, err := f.svc.SetStatus(ctx, a.ID, string(s1)); err != nil {
				t.Fatalf("set %s: %v", s1, err)
			}
			v, err := f.svc.SetStatus(ctx, a.ID, string(s2))
			if err != nil {
				t.Fatalf("set %s: %v", s2, err)
			}
			if v.Status != s2 || v.Job == nil {
				t.Fatalf("expected %s with job summary, got %+v", s2, v)
			}
		}
	}

	_, err := f.svc.SetStatus(ctx, a.ID, "Pending")
	var verrs validate.Errors
	if !errors.Is(err, ErrInvalidInput) || !errors.As(err, &verrs) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if len(verrs) != 1 || verrs[0].Message != "must be one of: New, Shortlisted, Interviewed, Rejected, Hired" {
		t.Fatalf("unexpected status message %+v", verrs)
	}
	got, _ := f.repo.Get(ctx, a.ID)
	if got.Status != StatusHired {
		t.Fatalf("status changed by rejected update: %s", got.Status)
	}
	if _, err := f.svc.SetStatus(ctx, "not-a-uuid", "New"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestToggleStarTwiceRestoresAndWritesTwice(t *testing.T) {
	f := newFixture(t)
	a := f.submit(t, "Sara", "sara@example.com", nil)
	ctx := context.Background()

	first, err := f.svc.ToggleStar(ctx, a.ID)
	if err != nil || !first {
		t.Fatalf("first toggle: %v %v", first, err)
	}
	second, err := f.svc.ToggleStar(ctx, a.ID)
	if err != nil || second {
		t.Fatalf("second toggle: %v %v", second, err)
	}
	got, _ := f.repo.Get(ctx, a.ID)
	if got.IsStarred != a.IsStarred {
		t.Fatalf("expected original star value")
	}
	if f.repo.writes != 2 {
		t.Fatalf("expected 2 writes, got %d", f.repo.writes)
	}
}

func TestToggleFlagTwiceRestores(t *testing.T) {
	f := newFixture(t)
	a := f.submit(t, "Sara", "sara@example.com", nil)
	ctx := context.Background()
	_, _ = f.svc.ToggleFlag(ctx, a.ID)
	if v, _ := f.svc.ToggleFlag(ctx, a.ID); v {
		t.Fatalf("expected flag back to false")
	}
	if _, err := f.svc.ToggleFlag(ctx, "7f1b7a0e-0000-4000-8000-000000000000"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetNotesReplacesAndClears(t *testing.T) {
	f := newFixture(t)
	a := f.submit(t, "Sara", "sara@example.com", nil)
	ctx := context.Background()
	if v, err := f.svc.SetNotes(ctx, a.ID, "strong candidate"); err != nil || v.Notes != "strong candidate" {
		t.Fatalf("set notes: %+v %v", v, err)
	}
	if v, err := f.svc.SetNotes(ctx, a.ID, ""); err != nil || v.Notes != "" {
		t.Fatalf("clear notes: %+v %v", v, err)
	}
}

func TestBulkDeleteIgnoresUnknownAndRemovesResumes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.submit(t, "Sara", "sara@example.com", resumeUpload("cv.pdf", "pdf bytes"))
	b := f.submit(t, "Omar", "omar@example.com", nil)
	keep := f.submit(t, "Lina", "lina@example.com", nil)

	n, err := f.svc.BulkDelete(ctx, []string{a.ID, b.ID, "00000000-0000-0000-0000-000000000000", "junk"})
	if err != nil {
		t.Fatalf("bulk delete: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 deleted, got %d", n)
	}
	if _, err := f.repo.Get(ctx, keep.ID); err != nil {
		t.Fatalf("unrelated applicant removed: %v", err)
	}
	if _, err := f.svc.Store.Open(ctx, a.ResumeKey); err == nil {
		t.Fatalf("expected resume file removed")
	}

	if _, err := f.svc.BulkDelete(ctx, nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty ids, got %v", err)
	}
}

func TestDeleteIsPermanent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.submit(t, "Sara", "sara@example.com", resumeUpload("cv.docx", "docx bytes"))
	if err := f.svc.Delete(ctx, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := f.svc.Delete(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestBulkDownloadWithoutResumesIsNotFound(t *testing.T) {
	f := newFixture(t)
	a := f.submit(t, "Sara", "sara@example.com", nil)
	archive, err := f.svc.BulkDownloadResumes(context.Background(), []string{a.ID})
	if !errors.Is(err, ErrNoResumes) || archive != nil {
		t.Fatalf("expected ErrNoResumes, got %v", err)
	}
}

func TestBulkDownloadBuildsArchive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.submit(t, "Sara Al-Amri", "sara@example.com", resumeUpload("CV.PDF", "first"))
	b := f.submit(t, "Omar", "omar@example.com", resumeUpload("omar.docx", "second"))
	noResume := f.submit(t, "Lina", "lina@example.com", nil)
	missing := f.submit(t, "Gone", "gone@example.com", resumeUpload("gone.pdf", "third"))
	if err := f.svc.Store.Delete(ctx, missing.ResumeKey); err != nil {
		t.Fatalf("remove file: %v", err)
	}

	archive, err := f.svc.BulkDownloadResumes(ctx, []string{a.ID, b.ID, noResume.ID, missing.ID})
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer archive.Close()

	var buf bytes.Buffer
	if _, err := archive.WriteTo(&buf); err != nil {
		t.Fatalf("write zip: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("read zip: %v", err)
	}
	var names []string
	for _, file := range zr.File {
		names = append(names, file.Name)
		if file.Method != zip.Deflate {
			t.Fatalf("expected deflate for %s", file.Name)
		}
	}
	sort.Strings(names)
	want := []string{"Omar_omar@example.com.docx", "Sara_Al_Amri_sara@example.com.PDF"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected entries %v", names)
	}
}

func TestResumeArchiveDeduplicatesNames(t *testing.T) {
	a := &ResumeArchive{}
	a.add("x_a@b.co.pdf", io.NopCloser(strings.NewReader("1")))
	a.add("x_a@b.co.pdf", io.NopCloser(strings.NewReader("2")))
	got := a.Names()
	if len(got) != 2 || got[1] != "x_a@b.co_2.pdf" {
		t.Fatalf("unexpected names %v", got)
	}
}

func TestExportFiltered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.Now = func() time.Time { return time.Date(2025, 3, 7, 10, 0, 0, 0, time.UTC) }

	if _, err := f.svc.ExportFiltered(ctx, ExportRequest{JobID: f.job.ID}); !errors.Is(err, ErrNoRecords) {
		t.Fatalf("expected ErrNoRecords, got %v", err)
	}

	a := f.submit(t, "Sara", "sara@example.com", nil)
	f.submit(t, "Omar", "omar@example.com", nil)
	if _, err := f.svc.ToggleFlag(ctx, a.ID); err != nil {
		t.Fatalf("flag: %v", err)
	}

	table, err := f.svc.ExportFiltered(ctx, ExportRequest{JobID: f.job.ID, Params: query.Params{Flagged: "true"}})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if table.Len() != 1 || len(table.Headers) != 12 {
		t.Fatalf("unexpected table: %+v", table)
	}
	row := table.Rows[0]
	if row[0] != "Sara" || row[4] != "Backend Engineer" || row[5] != "Anoud" || row[7] != "Yes" || row[8] != "No" || row[9] != "3/7/2025" {
		t.Fatalf("unexpected row %v", row)
	}

	if _, err := f.svc.ExportFiltered(ctx, ExportRequest{JobID: f.job.ID, Params: query.Params{Search: "nobody"}}); !errors.Is(err, ErrNoRecords) {
		t.Fatalf("expected ErrNoRecords for empty filter, got %v", err)
	}
}

func TestListForJobSearchAndSort(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.submit(t, "Sara", "sara@example.com", nil)
	f.submit(t, "Omar", "omar@example.com", nil)

	out, err := f.svc.ListForJob(ctx, f.job.ID, query.Params{SortBy: "name", SortOrder: "asc"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 2 || out[0].Name != "Omar" || out[0].Job == nil {
		t.Fatalf("unexpected order %+v", out)
	}
	out, _ = f.svc.ListForJob(ctx, f.job.ID, query.Params{Search: "SARA@"})
	if len(out) != 1 {
		t.Fatalf("expected one match, got %d", len(out))
	}
	if _, err := f.svc.ListForJob(ctx, "missing", query.Params{}); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestResumeEntryNameKeepsExtensionCase(t *testing.T) {
	cases := map[string]string{
		"CV.PDF":       "Omar_Ali_omar@example.com.PDF",
		"resume.Docx":  "Omar_Ali_omar@example.com.Docx",
		"no-extension": "Omar_Ali_omar@example.com",
	}
	for file, want := range cases {
		if got := ResumeEntryName("Omar Ali", "omar@example.com", file); got != want {
			t.Fatalf("%s: expected %s, got %s", file, want, got)
		}
	}
}
