package admission

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/backoffice/core"
)

var referencePrefixes = map[ProgramType]string{
	ProgramUniversity: "UNI",
	ProgramFormation:  "FOR",
	ProgramFablab:     "FAB",
}

// New creates a pending application with its documents seeded from reqs.
// A reference number is generated when intake did not provide one.
func New(na NewApplication, reqs []DocumentRequirement, now time.Time) Application {
	now = now.UTC()
	ref := core.CleanString(na.ReferenceNumber)
	if ref == "" {
		ref = NewReferenceNumber(na.ProgramType, now)
	}
	return Application{
		ReferenceNumber: ref,
		Applicant: Applicant{
			Name:        core.CleanString(na.Applicant.Name),
			Email:       core.CleanString(na.Applicant.Email, true /* lower */),
			Phone:       core.CleanString(na.Applicant.Phone),
			DateOfBirth: na.Applicant.DateOfBirth,
			Nationality: core.CleanString(na.Applicant.Nationality),
			Address:     core.CleanString(na.Applicant.Address),
		},
		ProgramID:    core.CleanString(na.ProgramID),
		ProgramName:  core.CleanString(na.ProgramName),
		ProgramType:  na.ProgramType,
		AcademicYear: core.CleanString(na.AcademicYear),
		Status:       StatusPending,
		SubmittedAt:  now,
		LastModified: now,
		FeeTotal:     na.FeeTotal,
		Documents:    SeedDocuments(reqs),
	}
}

// NewReferenceNumber returns a human-facing reference such as "UNI-2026-4F2A91C0".
func NewReferenceNumber(pt ProgramType, now time.Time) string {
	prefix, ok := referencePrefixes[pt]
	if !ok {
		prefix = "APP"
	}
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("%s-%d-%s", prefix, now.Year(), suffix)
}

// RecordPayment adds amount to the fees paid by the applicant.
func RecordPayment(app Application, amount int64, reviewer Reviewer, now time.Time) (Application, error) {
	if !reviewer.IsAuthenticated() {
		return app, core.NewFieldValidationError("reviewer", "an authenticated reviewer is required")
	}
	if amount <= 0 {
		return app, core.NewFieldValidationError("amount", "amount must be greater than 0")
	}
	if amount > math.MaxInt64-app.FeePaid {
		return app, core.NewFieldValidationError("amount", "amount exceeds the fees that can be recorded")
	}
	if app.Status == StatusArchived {
		return app, core.NewFieldValidationError("amount", "archived applications cannot take payments")
	}

	updated := app.Clone()
	updated.FeePaid += amount
	updated.LastModified = now.UTC()
	updated.Notes = appendNote(updated.Notes, now, reviewer,
		fmt.Sprintf("payment of %d recorded (%d/%d, %s)", amount, updated.FeePaid, updated.FeeTotal, updated.PaymentStatus()))
	return updated, nil
}

// SetScore records the evaluation score of the application.
func SetScore(app Application, score int, reviewer Reviewer, now time.Time) (Application, error) {
	if !reviewer.IsAuthenticated() {
		return app, core.NewFieldValidationError("reviewer", "an authenticated reviewer is required")
	}
	if score < 0 || score > 100 {
		return app, core.NewFieldValidationError("score", "score must be between 0 and 100")
	}
	if app.Status == StatusArchived {
		return app, core.NewFieldValidationError("score", "archived applications cannot be scored")
	}

	updated := app.Clone()
	updated.Score = &score
	updated.LastModified = now.UTC()
	updated.Notes = appendNote(updated.Notes, now, reviewer, fmt.Sprintf("score set to %d", score))
	return updated, nil
}
