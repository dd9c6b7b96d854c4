package jobs

import "time"

// Job is a bilingual posting applicants apply to.
type Job struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	TitleAr        string    `json:"titleAr"`
	Company        string    `json:"company"`
	Location       string    `json:"location"`
	EmploymentType string    `json:"employmentType"`
	Description    string    `json:"description"`
	DescriptionAr  string    `json:"descriptionAr"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Summary is the slice of a job shown next to applicants.
type Summary struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	TitleAr string `json:"titleAr,omitempty"`
	Company string `json:"company"`
}

func (j Job) Summary() Summary {
	return Summary{ID: j.ID, Title: j.Title, TitleAr: j.TitleAr, Company: j.Company}
}

// CreateJobRequest is the body of POST /jobs.
type CreateJobRequest struct {
	Title          string `json:"title" validate:"required"`
	TitleAr        string `json:"titleAr"`
	Company        string `json:"company" validate:"required"`
	Location       string `json:"location"`
	EmploymentType string `json:"employmentType"`
	Description    string `json:"description" validate:"required"`
	DescriptionAr  string `json:"descriptionAr"`
}
