package admission

import (
	"fmt"
	"strings"
	"time"

	"github.com/trezcool/backoffice/core"
)

// NowFunc is the clock of the package.
var NowFunc = time.Now // mockable

// Warning codes
const (
	WarnIncompleteDocuments = "incomplete_documents"
	WarnUnverifiedDocuments = "unverified_documents"
	WarnOutstandingFees     = "outstanding_fees"
)

// Policy holds the deployment-specific review rules.
type Policy struct {
	RequireComment     bool
	StrictCompleteness bool // refuse approvals while required documents are missing
}

// ReviewDecision is a reviewer's verdict on an application.
type ReviewDecision struct {
	TargetStatus    Status    `json:"status" validate:"required,decision_status"`
	Comment         string    `json:"comment"`
	RejectionReason string    `json:"rejection_reason"`
	Reviewer        Reviewer  `json:"-"`
	Timestamp       time.Time `json:"-"`
}

// Warning is informational; it never blocks a decision.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Decision is the outcome of SubmitDecision.
type Decision struct {
	Application  Application
	Notification NotificationIntent
	Warnings     []Warning
}

type Engine struct {
	Policy Policy
}

func NewEngine(policy Policy) Engine {
	return Engine{Policy: policy}
}

// SubmitDecision applies a reviewer's decision and returns the notification the applicant should receive.
func (e Engine) SubmitDecision(app Application, d ReviewDecision) (Decision, error) {
	if !d.TargetStatus.IsDecision() {
		return Decision{Application: app}, core.NewFieldValidationError(
			"status", fmt.Sprintf("%q is not a decision; use approved, rejected or waitlisted", d.TargetStatus))
	}
	if e.Policy.RequireComment && strings.TrimSpace(d.Comment) == "" {
		return Decision{Application: app}, core.NewFieldValidationError("comment", "a comment is required for decisions")
	}

	var warnings []Warning
	if d.TargetStatus == StatusApproved {
		if missing := MissingDocuments(app.Documents); len(missing) > 0 {
			ids := make([]string, 0, len(missing))
			for _, doc := range missing {
				ids = append(ids, doc.DocumentTypeID)
			}
			msg := fmt.Sprintf("documents are %d%% complete, missing: %s", Completeness(app.Documents), strings.Join(ids, ", "))
			if e.Policy.StrictCompleteness {
				return Decision{Application: app}, core.NewFieldValidationError("documents", msg)
			}
			warnings = append(warnings, Warning{Code: WarnIncompleteDocuments, Message: msg})
		}
		if unverified := unverifiedDocuments(app.Documents); len(unverified) > 0 {
			warnings = append(warnings, Warning{
				Code:    WarnUnverifiedDocuments,
				Message: "submitted documents not verified yet: " + strings.Join(unverified, ", "),
			})
		}
		if app.PaymentStatus() != PaymentComplete {
			warnings = append(warnings, Warning{
				Code:    WarnOutstandingFees,
				Message: fmt.Sprintf("fees paid %d of %d", app.FeePaid, app.FeeTotal),
			})
		}
	}

	now := d.Timestamp
	if now.IsZero() {
		now = NowFunc()
	}
	updated, err := Transition(app, d.TargetStatus, d.Reviewer, TransitionOptions{
		Comment:         d.Comment,
		RejectionReason: d.RejectionReason,
	}, now)
	if err != nil {
		return Decision{Application: app}, err
	}

	intent, _ := NewNotificationIntent(updated, d.TargetStatus, strings.TrimSpace(d.Comment), now)
	return Decision{
		Application:  updated,
		Notification: intent,
		Warnings:     warnings,
	}, nil
}

func unverifiedDocuments(docs []DocumentRecord) []string {
	var ids []string
	for _, doc := range docs {
		if doc.Required && doc.Submitted && !doc.Verified {
			ids = append(ids, doc.DocumentTypeID)
		}
	}
	return ids
}
