package admission

import (
	"strings"
	"time"

	"github.com/trezcool/backoffice/core"
)

// Status is the workflow state of an Application.
type Status string

const (
	StatusPending     Status = "pending"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
	StatusWaitlisted  Status = "waitlisted"
	StatusArchived    Status = "archived"
)

// Statuses lists every Status in workflow order.
var Statuses = []Status{
	StatusPending,
	StatusUnderReview,
	StatusApproved,
	StatusRejected,
	StatusWaitlisted,
	StatusArchived,
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusUnderReview, StatusApproved, StatusRejected, StatusWaitlisted, StatusArchived:
		return true
	}
	return false
}

// IsDecision reports whether s is an outcome a reviewer decides on.
func (s Status) IsDecision() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusWaitlisted:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

// ProgramType is the kind of program an Application targets.
type ProgramType string

const (
	ProgramUniversity ProgramType = "university"
	ProgramFormation  ProgramType = "formation"
	ProgramFablab     ProgramType = "fablab"
)

var ProgramTypes = []ProgramType{ProgramUniversity, ProgramFormation, ProgramFablab}

func (pt ProgramType) IsValid() bool {
	switch pt {
	case ProgramUniversity, ProgramFormation, ProgramFablab:
		return true
	}
	return false
}

func (pt ProgramType) String() string { return string(pt) }

// PaymentStatus is derived from the fees of an Application.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPartial  PaymentStatus = "partial"
	PaymentComplete PaymentStatus = "complete"
)

// Reviewer is the authenticated staff member acting on an Application.
type Reviewer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (r Reviewer) IsAuthenticated() bool { return strings.TrimSpace(r.ID) != "" }

// Applicant holds the facts captured at intake; they are read-only here.
type Applicant struct {
	Name        string    `json:"name" validate:"required,notblank"`
	Email       string    `json:"email" validate:"required,email"`
	Phone       string    `json:"phone"`
	DateOfBirth time.Time `json:"date_of_birth"`
	Nationality string    `json:"nationality"`
	Address     string    `json:"address"`
}

// FileRef points to a file owned by the storage service.
type FileRef struct {
	URL        string    `json:"url"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type DocumentRecord struct {
	DocumentTypeID string   `json:"document_type_id"`
	Label          string   `json:"label"`
	Required       bool     `json:"required"`
	Submitted      bool     `json:"submitted"`
	FileRef        *FileRef `json:"file_ref"`
	Verified       bool     `json:"verified"`
	ReviewNotes    string   `json:"review_notes"`
}

type Application struct {
	ID              string           `json:"id"`
	ReferenceNumber string           `json:"reference_number"`
	Applicant       Applicant        `json:"applicant"`
	ProgramID       string           `json:"program_id"`
	ProgramName     string           `json:"program_name"`
	ProgramType     ProgramType      `json:"program_type"`
	AcademicYear    string           `json:"academic_year"`
	Status          Status           `json:"status"`
	SubmittedAt     time.Time        `json:"submitted_at"`  // UTC
	LastModified    time.Time        `json:"last_modified"` // UTC
	ProcessedBy     string           `json:"processed_by"`
	ProcessedAt     *time.Time       `json:"processed_at"`
	Score           *int             `json:"score"`
	Notes           string           `json:"notes"`
	RejectionReason string           `json:"rejection_reason"`
	FeeTotal        int64            `json:"fee_total"`
	FeePaid         int64            `json:"fee_paid"`
	Documents       []DocumentRecord `json:"documents"`
	Version         int              `json:"version"`
}

func (app Application) PaymentStatus() PaymentStatus {
	switch {
	case app.FeePaid >= app.FeeTotal:
		return PaymentComplete
	case app.FeePaid <= 0:
		return PaymentPending
	default:
		return PaymentPartial
	}
}

// Completeness of the application's required documents, in percent.
func (app Application) Completeness() int {
	return Completeness(app.Documents)
}

// Clone returns a copy of app that shares no mutable state with it.
func (app Application) Clone() Application {
	cp := app
	if app.Documents != nil {
		cp.Documents = make([]DocumentRecord, len(app.Documents))
		for i, doc := range app.Documents {
			if doc.FileRef != nil {
				ref := *doc.FileRef
				doc.FileRef = &ref
			}
			cp.Documents[i] = doc
		}
	}
	if app.ProcessedAt != nil {
		t := *app.ProcessedAt
		cp.ProcessedAt = &t
	}
	if app.Score != nil {
		s := *app.Score
		cp.Score = &s
	}
	return cp
}

// Find returns the application with the given id from apps.
func Find(apps []Application, id string) (Application, error) {
	for _, app := range apps {
		if app.ID == id {
			return app.Clone(), nil
		}
	}
	return Application{}, core.NewNotFoundError("application", id)
}

// NewApplication contains the intake information needed to create an Application.
type NewApplication struct {
	ReferenceNumber string      `json:"reference_number"`
	Applicant       Applicant   `json:"applicant"`
	ProgramID       string      `json:"program_id" validate:"required"`
	ProgramName     string      `json:"program_name" validate:"required"`
	ProgramType     ProgramType `json:"program_type" validate:"required,program_type"`
	AcademicYear    string      `json:"academic_year" validate:"required"`
	FeeTotal        int64       `json:"fee_total" validate:"gte=0"`
}
