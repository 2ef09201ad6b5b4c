package admission_test

import (
	"net/mail"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/backoffice/core"
	"github.com/trezcool/backoffice/core/admission"
	"github.com/trezcool/backoffice/core/admission/admissiontest"
)

func decide(status admission.Status, opts ...func(*admission.ReviewDecision)) admission.ReviewDecision {
	d := admission.ReviewDecision{
		TargetStatus: status,
		Reviewer:     admissiontest.Reviewer,
		Timestamp:    now,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func warningCodes(warnings []admission.Warning) []string {
	codes := make([]string, 0, len(warnings))
	for _, w := range warnings {
		codes = append(codes, w.Code)
	}
	return codes
}

func TestEngine_SubmitDecision_warnings(t *testing.T) {
	engine := admission.NewEngine(admission.Policy{})

	tests := []struct {
		name      string
		app       admission.Application
		wantCodes []string
	}{
		{
			name:      "nothing submitted, nothing paid",
			app:       admissiontest.NewApplication(),
			wantCodes: []string{admission.WarnIncompleteDocuments, admission.WarnOutstandingFees},
		},
		{
			name: "submitted but not verified",
			app: admissiontest.NewApplication(
				admissiontest.AllSubmitted(false),
				admissiontest.WithFees(50000, 50000),
			),
			wantCodes: []string{admission.WarnUnverifiedDocuments},
		},
		{
			name: "partially paid",
			app: admissiontest.NewApplication(
				admissiontest.AllSubmitted(true),
				admissiontest.WithFees(10000, 50000),
			),
			wantCodes: []string{admission.WarnOutstandingFees},
		},
		{
			name: "complete file",
			app: admissiontest.NewApplication(
				admissiontest.AllSubmitted(true),
				admissiontest.WithFees(50000, 50000),
			),
			wantCodes: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec, err := engine.SubmitDecision(tt.app, decide(admission.StatusApproved))
			require.NoError(t, err)
			assert.Equal(t, admission.StatusApproved, dec.Application.Status)
			assert.Equal(t, tt.wantCodes, warningCodes(dec.Warnings))
		})
	}
}

func TestEngine_SubmitDecision_warningMessages(t *testing.T) {
	dec, err := admission.NewEngine(admission.Policy{}).SubmitDecision(admissiontest.NewApplication(), decide(admission.StatusApproved))
	require.NoError(t, err)
	require.Len(t, dec.Warnings, 2)
	assert.Equal(t, "documents are 0% complete, missing: id_document, birth_certificate, diploma, transcript, photo", dec.Warnings[0].Message)
	assert.Equal(t, "fees paid 0 of 50000", dec.Warnings[1].Message)
}

func TestEngine_SubmitDecision_onlyApprovalsWarn(t *testing.T) {
	engine := admission.NewEngine(admission.Policy{StrictCompleteness: true})

	dec, err := engine.SubmitDecision(admissiontest.NewApplication(), decide(admission.StatusWaitlisted))
	require.NoError(t, err)
	assert.Empty(t, dec.Warnings)
	assert.Equal(t, admission.StatusWaitlisted, dec.Application.Status)
}

func TestEngine_SubmitDecision_policy(t *testing.T) {
	app := admissiontest.NewApplication()

	t.Run("strict completeness", func(t *testing.T) {
		dec, err := admission.NewEngine(admission.Policy{StrictCompleteness: true}).SubmitDecision(app, decide(admission.StatusApproved))
		require.Error(t, err)
		verr, ok := errors.Cause(err).(*core.ValidationError)
		require.True(t, ok)
		assert.Equal(t, "documents", verr.Fields[0].Field)
		assert.Equal(t, app, dec.Application)
	})

	t.Run("strict completeness, complete file", func(t *testing.T) {
		complete := admissiontest.NewApplication(admissiontest.AllSubmitted(true))
		_, err := admission.NewEngine(admission.Policy{StrictCompleteness: true}).SubmitDecision(complete, decide(admission.StatusApproved))
		assert.NoError(t, err)
	})

	t.Run("comment required", func(t *testing.T) {
		_, err := admission.NewEngine(admission.Policy{RequireComment: true}).SubmitDecision(app, decide(admission.StatusWaitlisted))
		require.Error(t, err)
		verr, ok := errors.Cause(err).(*core.ValidationError)
		require.True(t, ok)
		assert.Equal(t, "comment", verr.Fields[0].Field)
	})
}

func TestEngine_SubmitDecision_errors(t *testing.T) {
	engine := admission.NewEngine(admission.Policy{})
	approved := admissiontest.NewApplication(admissiontest.WithStatus(admission.StatusApproved))

	_, err := engine.SubmitDecision(admissiontest.NewApplication(), decide(admission.StatusArchived))
	assert.True(t, core.IsValidation(err), "archived is not a decision")

	_, err = engine.SubmitDecision(admissiontest.NewApplication(), decide(admission.StatusRejected))
	assert.True(t, core.IsValidation(err), "rejections need a reason")

	_, err = engine.SubmitDecision(approved, decide(admission.StatusRejected, func(d *admission.ReviewDecision) {
		d.RejectionReason = "late"
	}))
	assert.True(t, admission.IsInvalidTransition(err))

	_, err = engine.SubmitDecision(admissiontest.NewApplication(), decide(admission.StatusApproved, func(d *admission.ReviewDecision) {
		d.Reviewer = admission.Reviewer{}
	}))
	assert.True(t, core.IsValidation(err), "anonymous reviewer")
}

func TestEngine_SubmitDecision_notification(t *testing.T) {
	engine := admission.NewEngine(admission.Policy{})
	fablab := admissiontest.NewApplication(
		admissiontest.WithProgram("fablab", "FabLab Kinshasa", admission.ProgramFablab),
	)

	tests := []struct {
		name string
		app  admission.Application
		d    admission.ReviewDecision
		want admission.NotificationIntent
	}{
		{
			name: "acceptance",
			app:  admissiontest.NewApplication(),
			d: decide(admission.StatusApproved, func(d *admission.ReviewDecision) {
				d.Comment = " Excellent dossier "
			}),
			want: admission.NotificationIntent{
				Kind:             admission.KindAcceptance,
				ProgramType:      admission.ProgramUniversity,
				ApplicationID:    "app-1",
				To:               mail.Address{Name: "Jean Mukendi", Address: "jean.mukendi@example.com"},
				Subject:          "Votre candidature à Licence Informatique a été acceptée",
				TemplateName:     "acceptance_university",
				FallbackTemplate: "acceptance",
				Data: admission.MergeData{
					ApplicantName:   "Jean Mukendi",
					ProgramName:     "Licence Informatique",
					ProgramType:     "university",
					AcademicYear:    "2026-2027",
					ReferenceNumber: "UNI-2026-0001",
					SubmittedDate:   "02/03/2026",
					DecisionDate:    "03/03/2026",
					Comment:         "Excellent dossier",
				},
			},
		},
		{
			name: "fablab rejection",
			app:  fablab,
			d: decide(admission.StatusRejected, func(d *admission.ReviewDecision) {
				d.RejectionReason = "Atelier complet"
			}),
			want: admission.NotificationIntent{
				Kind:             admission.KindRejection,
				ProgramType:      admission.ProgramFablab,
				ApplicationID:    "app-1",
				To:               mail.Address{Name: "Jean Mukendi", Address: "jean.mukendi@example.com"},
				Subject:          "Réponse à votre demande d'adhésion à FabLab Kinshasa",
				TemplateName:     "rejection_fablab",
				FallbackTemplate: "rejection",
				Data: admission.MergeData{
					ApplicantName:   "Jean Mukendi",
					ProgramName:     "FabLab Kinshasa",
					ProgramType:     "fablab",
					AcademicYear:    "2026-2027",
					ReferenceNumber: "UNI-2026-0001",
					SubmittedDate:   "02/03/2026",
					DecisionDate:    "03/03/2026",
					RejectionReason: "Atelier complet",
				},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec, err := engine.SubmitDecision(tt.app, tt.d)
			require.NoError(t, err)
			assert.Equal(t, tt.want, dec.Notification)
		})
	}
}

func TestNewNotificationIntent(t *testing.T) {
	app := admissiontest.NewApplication(admissiontest.WithProgram("prog-web", "Développement Web", admission.ProgramFormation))

	intent, ok := admission.NewNotificationIntent(app, admission.StatusWaitlisted, "", now)
	require.True(t, ok)
	assert.Equal(t, admission.KindWaitlist, intent.Kind)
	assert.Equal(t, "waitlist_formation", intent.TemplateName)
	assert.Equal(t, "Votre candidature à Développement Web est sur liste d'attente", intent.Subject)

	for _, s := range []admission.Status{admission.StatusPending, admission.StatusUnderReview, admission.StatusArchived} {
		if _, ok := admission.NewNotificationIntent(app, s, "", now); ok {
			t.Errorf("failed! NewNotificationIntent(%s) ok = true; want false", s)
		}
	}
}
