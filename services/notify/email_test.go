package notifysvc_test

import (
	"context"
	"net/mail"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/backoffice/core"
	"github.com/trezcool/backoffice/core/admission"
	"github.com/trezcool/backoffice/core/admission/admissiontest"
	emailsvc "github.com/trezcool/backoffice/services/email"
	notifysvc "github.com/trezcool/backoffice/services/notify"
)

var conf = &core.Config{AppName: "Back Office", TestMode: true}

func intent(t *testing.T, app admission.Application, status admission.Status) admission.NotificationIntent {
	in, ok := admission.NewNotificationIntent(app, status, "", admissiontest.Epoch)
	require.True(t, ok)
	return in
}

func newNotifier(t *testing.T, templatesDir string) *notifysvc.EmailNotifier {
	require.NoError(t, core.ParseEmailTemplatesDir(templatesDir, "https://admissions.example.com", true))
	emailsvc.ResetSentMessages()
	return notifysvc.NewEmailNotifier(emailsvc.NewConsoleServiceMock(conf))
}

func TestEmailNotifier_withoutTemplates(t *testing.T) {
	notifier := newNotifier(t, t.TempDir())
	app := admissiontest.NewApplication(admissiontest.WithRejectionReason("Dossier incomplet"))

	require.NoError(t, notifier.Notify(context.Background(), intent(t, app, admission.StatusRejected)))

	msgs := emailsvc.GetSentMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, []mail.Address{{Name: "Jean Mukendi", Address: "jean.mukendi@example.com"}}, msgs[0].To)
	assert.Equal(t, "Réponse à votre candidature à Licence Informatique", msgs[0].Subject)
	assert.Equal(t, "Bonjour Jean Mukendi,\n\n"+
		"Réponse à votre candidature à Licence Informatique.\n"+
		"Référence : UNI-2026-0001\n"+
		"Motif : Dossier incomplet\n", msgs[0].TextContent)
	assert.Empty(t, msgs[0].HTMLContent)
}

func TestEmailNotifier_templates(t *testing.T) {
	notifier := newNotifier(t, filepath.Join(core.Getwd(), "assets", "templates", "email"))

	university := admissiontest.NewApplication()
	fablab := admissiontest.NewApplication(
		admissiontest.WithID("app-2"),
		admissiontest.WithProgram("fablab", "FabLab Kinshasa", admission.ProgramFablab),
		admissiontest.WithRejectionReason("Atelier complet"),
	)

	require.NoError(t, notifier.Notify(context.Background(),
		intent(t, university, admission.StatusApproved),
		intent(t, fablab, admission.StatusRejected),
		intent(t, university, admission.StatusWaitlisted),
	))

	msgs := emailsvc.GetSentMessages()
	require.Len(t, msgs, 3)

	// acceptance_university falls back to acceptance
	assert.Contains(t, msgs[0].TextContent, "Bonjour Jean Mukendi,")
	assert.Contains(t, msgs[0].TextContent, "votre candidature à Licence Informatique pour l'année 2026-2027 a été acceptée")
	assert.Contains(t, msgs[0].TextContent, "Suivez votre dossier sur https://admissions.example.com")
	assert.Contains(t, msgs[0].HTMLContent, "<strong>Licence Informatique</strong>")

	assert.Contains(t, msgs[1].TextContent, "demande d'adhésion au FabLab Kinshasa")
	assert.Contains(t, msgs[1].TextContent, "Motif : Atelier complet")
	assert.Contains(t, msgs[1].HTMLContent, "<p>Motif : Atelier complet</p>")

	assert.True(t, strings.Contains(msgs[2].TextContent, "liste d'attente"))
}

func TestEmailNotifier_errors(t *testing.T) {
	notifier := newNotifier(t, t.TempDir())
	app := admissiontest.NewApplication(admissiontest.WithApplicant("Jean Mukendi", " "))

	err := notifier.Notify(context.Background(), intent(t, app, admission.StatusApproved))
	assert.True(t, core.IsValidation(err))
	assert.Empty(t, emailsvc.GetSentMessages())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = notifier.Notify(ctx, intent(t, admissiontest.NewApplication(), admission.StatusApproved))
	assert.ErrorIs(t, err, context.Canceled)
}
