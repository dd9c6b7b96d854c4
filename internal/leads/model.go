package leads

import (
	"encoding/json"
	"time"

	"anoud-backend/internal/shared/auth"
	"anoud-backend/internal/shared/query"
)

type Status string

const (
	StatusNew          Status = "New"
	StatusContacted    Status = "Contacted"
	StatusInDiscussion Status = "In Discussion"
	StatusConverted    Status = "Converted"
	StatusLost         Status = "Lost"
)

var Statuses = []Status{StatusNew, StatusContacted, StatusInDiscussion, StatusConverted, StatusLost}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

type Source string

const (
	SourceWebsiteForm Source = "Website Form"
	SourceManual      Source = "Manual"
	SourceReferral    Source = "Referral"
	SourceOther       Source = "Other"
)

var Sources = []Source{SourceWebsiteForm, SourceManual, SourceReferral, SourceOther}

func (s Source) Valid() bool {
	for _, v := range Sources {
		if s == v {
			return true
		}
	}
	return false
}

type FollowUpStatus string

const (
	FollowUpPending   FollowUpStatus = "Pending"
	FollowUpCompleted FollowUpStatus = "Completed"
	FollowUpOverdue   FollowUpStatus = "Overdue"
)

func (s FollowUpStatus) Valid() bool {
	return s == FollowUpPending || s == FollowUpCompleted || s == FollowUpOverdue
}

// Actor is a snapshot of the admin who performed an action.
type Actor struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func actorOf(a auth.Admin) Actor {
	return Actor{ID: a.ID, Email: a.Email, Name: a.Name}
}

// Modification records the latest mutator of a lead.
type Modification struct {
	Actor
	At time.Time `json:"at"`
}

type AuditAction string

const (
	ActionCreated AuditAction = "created"
	ActionUpdated AuditAction = "updated"
	ActionDeleted AuditAction = "deleted"
)

// AuditEntry is one append-only record of a lead mutation.
type AuditEntry struct {
	Action        AuditAction     `json:"action"`
	AdminID       string          `json:"adminId"`
	AdminEmail    string          `json:"adminEmail"`
	AdminName     string          `json:"adminName"`
	Timestamp     time.Time       `json:"timestamp"`
	Details       string          `json:"details"`
	PreviousValue json.RawMessage `json:"previousValue,omitempty"`
	NewValue      json.RawMessage `json:"newValue,omitempty"`
}

// EmailRecord is one campaign email sent to a lead.
type EmailRecord struct {
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	SentAt  time.Time `json:"sentAt"`
}

// Lead is a sales contact owned by the admin who created it.
type Lead struct {
	ID             string         `json:"id"`
	CompanyName    string         `json:"companyName"`
	ContactPerson  string         `json:"contactPerson"`
	Email          string         `json:"email"`
	Phone          string         `json:"phone"`
	Status         Status         `json:"status"`
	LeadSource     Source         `json:"leadSource"`
	Notes          string         `json:"notes"`
	FollowUpDate   *time.Time     `json:"followUpDate"`
	FollowUpStatus FollowUpStatus `json:"followUpStatus"`
	CreatedBy      Actor          `json:"createdBy"`
	LastModifiedBy Modification   `json:"lastModifiedBy"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	AuditHistory   []AuditEntry   `json:"auditHistory,omitempty"`
	EmailHistory   []EmailRecord  `json:"emailHistory,omitempty"`
}

// snapshot is the lead without its histories, stored in audit values.
func (l Lead) snapshot() json.RawMessage {
	l.AuditHistory = nil
	l.EmailHistory = nil
	b, _ := json.Marshal(l)
	return b
}

// FieldValue exposes fields to in-memory query evaluation.
func (l Lead) FieldValue(name string) any {
	switch name {
	case query.FieldID:
		return l.ID
	case "companyName":
		return l.CompanyName
	case "contactPerson":
		return l.ContactPerson
	case "email":
		return l.Email
	case "phone":
		return l.Phone
	case "notes":
		return l.Notes
	case query.FieldStatus:
		return string(l.Status)
	case query.FieldCreatedBy:
		return l.CreatedBy.ID
	case "createdAt":
		return l.CreatedAt
	case "updatedAt":
		return l.UpdatedAt
	case "followUpDate":
		if l.FollowUpDate == nil {
			return nil
		}
		return *l.FollowUpDate
	}
	return nil
}

// CreateLeadRequest is the body of POST /leads.
type CreateLeadRequest struct {
	CompanyName    string `json:"companyName" validate:"required"`
	ContactPerson  string `json:"contactPerson" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	Phone          string `json:"phone" validate:"required"`
	Status         string `json:"status"`
	LeadSource     string `json:"leadSource"`
	Notes          string `json:"notes"`
	FollowUpDate   string `json:"followUpDate"`
	FollowUpStatus string `json:"followUpStatus"`
}

// UpdateLeadRequest is a partial update. Nil fields are left untouched;
// an empty FollowUpDate clears the date.
type UpdateLeadRequest struct {
	CompanyName    *string `json:"companyName,omitempty"`
	ContactPerson  *string `json:"contactPerson,omitempty"`
	Email          *string `json:"email,omitempty"`
	Phone          *string `json:"phone,omitempty"`
	Status         *string `json:"status,omitempty"`
	LeadSource     *string `json:"leadSource,omitempty"`
	Notes          *string `json:"notes,omitempty"`
	FollowUpDate   *string `json:"followUpDate,omitempty"`
	FollowUpStatus *string `json:"followUpStatus,omitempty"`
}

// ListResult is one page of leads.
type ListResult struct {
	Leads      []Lead `json:"leads"`
	Total      int    `json:"total"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	TotalPages int    `json:"totalPages"`
}

// ExportRequest selects leads either by explicit ids or by filter.
type ExportRequest struct {
	LeadIDs []string `json:"leadIds"`
	query.Params
	Format string `json:"format"`
}

// SendEmailRequest is the body of POST /leads/send-email.
type SendEmailRequest struct {
	LeadIDs []string `json:"leadIds" validate:"required,min=1,dive,required"`
	Subject string   `json:"subject" validate:"required"`
	Body    string   `json:"body" validate:"required"`
}

// ImportResult reports a CSV import.
type ImportResult struct {
	Imported int      `json:"imported"`
	Errors   []string `json:"errors"`
}
