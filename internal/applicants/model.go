package applicants

import (
	"io"
	"time"

	"anoud-backend/internal/jobs"
	"anoud-backend/internal/shared/query"
)

// Status is the triage stage of an application. Any status may move to any other.
type Status string

const (
	StatusNew         Status = "New"
	StatusShortlisted Status = "Shortlisted"
	StatusInterviewed Status = "Interviewed"
	StatusRejected    Status = "Rejected"
	StatusHired       Status = "Hired"
)

// Statuses lists every valid status.
var Statuses = []Status{StatusNew, StatusShortlisted, StatusInterviewed, StatusRejected, StatusHired}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Applicant is one job application.
type Applicant struct {
	ID         string    `json:"id"`
	JobID      string    `json:"jobId"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Education  string    `json:"education"`
	SelfIntro  string    `json:"selfIntro"`
	ResumeKey  string    `json:"-"`
	ResumeName string    `json:"resumeName,omitempty"`
	ResumeText string    `json:"-"`
	Status     Status    `json:"status"`
	IsFlagged  bool      `json:"isFlagged"`
	IsStarred  bool      `json:"isStarred"`
	Notes      string    `json:"notes"`
	AppliedAt  time.Time `json:"appliedAt"`
}

// HasResume reports whether a résumé file was stored.
func (a Applicant) HasResume() bool { return a.ResumeKey != "" }

// FieldValue exposes fields to in-memory query evaluation.
func (a Applicant) FieldValue(name string) any {
	switch name {
	case query.FieldID:
		return a.ID
	case "jobId":
		return a.JobID
	case "name":
		return a.Name
	case "email":
		return a.Email
	case "education":
		return a.Education
	case "selfIntro":
		return a.SelfIntro
	case "resumeText":
		return a.ResumeText
	case query.FieldStatus:
		return string(a.Status)
	case query.FieldIsFlagged:
		return a.IsFlagged
	case query.FieldIsStarred:
		return a.IsStarred
	case "appliedAt":
		return a.AppliedAt
	}
	return nil
}

// View is an applicant joined with its job summary.
type View struct {
	Applicant
	HasResume bool          `json:"hasResume"`
	Job       *jobs.Summary `json:"job,omitempty"`
}

// SubmitRequest is the public application form.
type SubmitRequest struct {
	JobID     string `form:"jobId" json:"jobId" validate:"required"`
	Name      string `form:"name" json:"name" validate:"required"`
	Email     string `form:"email" json:"email" validate:"required,email"`
	Phone     string `form:"phone" json:"phone" validate:"required"`
	Education string `form:"education" json:"education" validate:"required"`
	SelfIntro string `form:"selfIntro" json:"selfIntro" validate:"required,min=30"`
}

// Upload is an optional résumé attached to a submission.
type Upload struct {
	FileName string
	Size     int64
	Body     io.Reader
}

// ExportRequest selects applicants for a tabular export.
type ExportRequest struct {
	JobID string `json:"jobId"`
	query.Params
	Format string `json:"format"`
}

// IDsRequest carries a list of applicant ids.
type IDsRequest struct {
	ApplicantIDs []string `json:"applicantIds" validate:"required,min=1,dive,required"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type notesRequest struct {
	Notes *string `json:"notes" validate:"required"`
}
