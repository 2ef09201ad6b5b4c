package admission

import (
	"context"
	"fmt"
	"net/mail"
	"time"
)

// NotificationKind is the family of message sent to an applicant after a decision.
type NotificationKind string

const (
	KindAcceptance NotificationKind = "acceptance"
	KindRejection  NotificationKind = "rejection"
	KindWaitlist   NotificationKind = "waitlist"
)

var (
	decisionKinds = map[Status]NotificationKind{
		StatusApproved:   KindAcceptance,
		StatusRejected:   KindRejection,
		StatusWaitlisted: KindWaitlist,
	}

	subjects = map[NotificationKind]string{
		KindAcceptance: "Votre candidature à %s a été acceptée",
		KindRejection:  "Réponse à votre candidature à %s",
		KindWaitlist:   "Votre candidature à %s est sur liste d'attente",
	}
	fablabSubjects = map[NotificationKind]string{
		KindAcceptance: "Bienvenue au FabLab : votre adhésion à %s est validée",
		KindRejection:  "Réponse à votre demande d'adhésion à %s",
		KindWaitlist:   "Votre demande d'adhésion à %s est sur liste d'attente",
	}
)

// MergeData is what templates may reference.
type MergeData struct {
	ApplicantName   string `json:"applicant_name"`
	ProgramName     string `json:"program_name"`
	ProgramType     string `json:"program_type"`
	AcademicYear    string `json:"academic_year"`
	ReferenceNumber string `json:"reference_number"`
	SubmittedDate   string `json:"submitted_date"`
	DecisionDate    string `json:"decision_date"`
	RejectionReason string `json:"rejection_reason,omitempty"`
	Comment         string `json:"comment,omitempty"`
}

// NotificationIntent describes the message an applicant should receive; it sends nothing by itself.
type NotificationIntent struct {
	Kind             NotificationKind `json:"kind"`
	ProgramType      ProgramType      `json:"program_type"`
	ApplicationID    string           `json:"application_id"`
	To               mail.Address     `json:"to"`
	Subject          string           `json:"subject"`
	TemplateName     string           `json:"template_name"`
	FallbackTemplate string           `json:"fallback_template"`
	Data             MergeData        `json:"data"`
}

// Notifier delivers notification intents to applicants.
type Notifier interface {
	Notify(ctx context.Context, intents ...NotificationIntent) error
}

// TemplateName is the template key of a (program type, decision) pair.
func TemplateName(kind NotificationKind, pt ProgramType) string {
	return fmt.Sprintf("%s_%s", kind, pt)
}

// NewNotificationIntent selects the notification matching the decision that moved app to status.
func NewNotificationIntent(app Application, status Status, comment string, decidedAt time.Time) (NotificationIntent, bool) {
	kind, ok := decisionKinds[status]
	if !ok {
		return NotificationIntent{}, false
	}

	subject := subjects[kind]
	if app.ProgramType == ProgramFablab {
		subject = fablabSubjects[kind]
	}

	return NotificationIntent{
		Kind:             kind,
		ProgramType:      app.ProgramType,
		ApplicationID:    app.ID,
		To:               mail.Address{Name: app.Applicant.Name, Address: app.Applicant.Email},
		Subject:          fmt.Sprintf(subject, app.ProgramName),
		TemplateName:     TemplateName(kind, app.ProgramType),
		FallbackTemplate: string(kind),
		Data: MergeData{
			ApplicantName:   app.Applicant.Name,
			ProgramName:     app.ProgramName,
			ProgramType:     string(app.ProgramType),
			AcademicYear:    app.AcademicYear,
			ReferenceNumber: app.ReferenceNumber,
			SubmittedDate:   formatDate(app.SubmittedAt),
			DecisionDate:    formatDate(decidedAt),
			RejectionReason: app.RejectionReason,
			Comment:         comment,
		},
	}, true
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("02/01/2006")
}
