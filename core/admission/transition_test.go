package admission_test

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/backoffice/core"
	"github.com/trezcool/backoffice/core/admission"
	"github.com/trezcool/backoffice/core/admission/admissiontest"
)

var now = admissiontest.Epoch.Add(24 * time.Hour)

func TestCanTransition(t *testing.T) {
	legal := map[admission.Status][]admission.Status{
		admission.StatusPending:     {admission.StatusUnderReview, admission.StatusApproved, admission.StatusRejected, admission.StatusWaitlisted, admission.StatusArchived},
		admission.StatusUnderReview: {admission.StatusApproved, admission.StatusRejected, admission.StatusWaitlisted, admission.StatusArchived},
		admission.StatusWaitlisted:  {admission.StatusApproved, admission.StatusRejected, admission.StatusArchived},
		admission.StatusApproved:    {admission.StatusUnderReview, admission.StatusWaitlisted, admission.StatusArchived},
		admission.StatusRejected:    {admission.StatusUnderReview, admission.StatusWaitlisted, admission.StatusArchived},
		admission.StatusArchived:    {},
	}

	for _, from := range admission.Statuses {
		for _, to := range admission.Statuses {
			want := false
			for _, s := range legal[from] {
				if s == to {
					want = true
				}
			}
			if got := admission.CanTransition(from, to); got != want {
				t.Errorf("failed! CanTransition(%s, %s) = %v; want %v", from, to, got, want)
			}
		}
		assert.ElementsMatch(t, legal[from], admission.LegalTargets(from), "LegalTargets(%s)", from)
	}
}

func TestLegalTargets_returnsCopy(t *testing.T) {
	targets := admission.LegalTargets(admission.StatusPending)
	targets[0] = admission.StatusArchived
	assert.Equal(t, admission.StatusUnderReview, admission.LegalTargets(admission.StatusPending)[0])
}

func TestTransition(t *testing.T) {
	app := admissiontest.NewApplication()

	got, err := admission.Transition(app, admission.StatusUnderReview, admissiontest.Reviewer,
		admission.TransitionOptions{Comment: "  dossier reçu "}, now)
	require.NoError(t, err)

	assert.Equal(t, admission.StatusUnderReview, got.Status)
	assert.Equal(t, admissiontest.Reviewer.ID, got.ProcessedBy)
	if assert.NotNil(t, got.ProcessedAt) {
		assert.Equal(t, now, *got.ProcessedAt)
	}
	assert.Equal(t, now, got.LastModified)
	assert.Equal(t, "[2026-03-03T09:00:00Z] Amani Bisimwa (rev-1): pending -> under_review: dossier reçu", got.Notes)

	// the input is left untouched
	assert.Equal(t, admission.StatusPending, app.Status)
	assert.Empty(t, app.Notes)
	assert.Nil(t, app.ProcessedAt)
}

func TestTransition_notesAreAppended(t *testing.T) {
	app := admissiontest.NewApplication()
	app, err := admission.Transition(app, admission.StatusUnderReview, admissiontest.Reviewer, admission.TransitionOptions{}, now)
	require.NoError(t, err)
	app, err = admission.Transition(app, admission.StatusRejected, admission.Reviewer{ID: "rev-2"},
		admission.TransitionOptions{RejectionReason: "Dossier incomplet"}, now.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t,
		"[2026-03-03T09:00:00Z] Amani Bisimwa (rev-1): pending -> under_review\n"+
			"[2026-03-03T10:00:00Z] rev-2: under_review -> rejected (reason: Dossier incomplet)",
		app.Notes)
	assert.Equal(t, "Dossier incomplet", app.RejectionReason)
}

func TestTransition_rejectionReason(t *testing.T) {
	rejected := admissiontest.NewApplication(
		admissiontest.WithStatus(admission.StatusRejected),
		admissiontest.WithRejectionReason("Quota atteint"),
	)

	t.Run("required", func(t *testing.T) {
		app := admissiontest.NewApplication()
		_, err := admission.Transition(app, admission.StatusRejected, admissiontest.Reviewer,
			admission.TransitionOptions{RejectionReason: "   "}, now)
		require.Error(t, err)
		verr, ok := errors.Cause(err).(*core.ValidationError)
		require.True(t, ok)
		assert.Equal(t, "rejection_reason", verr.Fields[0].Field)
	})

	t.Run("stored as given", func(t *testing.T) {
		got, err := admission.Transition(admissiontest.NewApplication(), admission.StatusRejected, admissiontest.Reviewer,
			admission.TransitionOptions{RejectionReason: "  quota  "}, now)
		require.NoError(t, err)
		assert.Equal(t, "  quota  ", got.RejectionReason)
	})

	t.Run("cleared when leaving rejected", func(t *testing.T) {
		got, err := admission.Transition(rejected, admission.StatusUnderReview, admissiontest.Reviewer, admission.TransitionOptions{}, now)
		require.NoError(t, err)
		assert.Empty(t, got.RejectionReason)
	})

	t.Run("kept when archived", func(t *testing.T) {
		got, err := admission.Transition(rejected, admission.StatusArchived, admissiontest.Reviewer, admission.TransitionOptions{}, now)
		require.NoError(t, err)
		assert.Equal(t, "Quota atteint", got.RejectionReason)
	})
}

func TestTransition_errors(t *testing.T) {
	pending := admissiontest.NewApplication()
	archived := admissiontest.NewApplication(admissiontest.WithStatus(admission.StatusArchived))
	approved := admissiontest.NewApplication(admissiontest.WithStatus(admission.StatusApproved))

	tests := []struct {
		name       string
		app        admission.Application
		target     admission.Status
		actor      admission.Reviewer
		wantField  string
		wantErrStr string
	}{
		{name: "unknown status", app: pending, target: "done", actor: admissiontest.Reviewer, wantField: "status"},
		{name: "anonymous reviewer", app: pending, target: admission.StatusUnderReview, actor: admission.Reviewer{Name: "x"}, wantField: "reviewer"},
		{name: "self transition", app: pending, target: admission.StatusPending, actor: admissiontest.Reviewer,
			wantErrStr: `cannot move an application from "pending" to "pending"`},
		{name: "approved to rejected", app: approved, target: admission.StatusRejected, actor: admissiontest.Reviewer,
			wantErrStr: `cannot move an application from "approved" to "rejected"`},
		{name: "back to pending", app: approved, target: admission.StatusPending, actor: admissiontest.Reviewer,
			wantErrStr: `cannot move an application from "approved" to "pending"`},
		{name: "out of archived", app: archived, target: admission.StatusUnderReview, actor: admissiontest.Reviewer,
			wantErrStr: `cannot move an archived application to "under_review"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := admission.Transition(tt.app, tt.target, tt.actor, admission.TransitionOptions{RejectionReason: "r"}, now)
			require.Error(t, err)
			assert.Equal(t, tt.app, got)

			if tt.wantField != "" {
				verr, ok := errors.Cause(err).(*core.ValidationError)
				require.True(t, ok, "want a *core.ValidationError, got %T", err)
				assert.Equal(t, tt.wantField, verr.Fields[0].Field)
				return
			}
			assert.True(t, admission.IsInvalidTransition(err))
			assert.Equal(t, tt.wantErrStr, err.Error())
		})
	}
}
