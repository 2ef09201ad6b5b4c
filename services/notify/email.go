package notifysvc

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/backoffice/core"
	"github.com/trezcool/backoffice/core/admission"
)

// EmailNotifier delivers notification intents as templated emails.
type EmailNotifier struct {
	mailSvc core.EmailService
}

var _ admission.Notifier = (*EmailNotifier)(nil)

func NewEmailNotifier(mailSvc core.EmailService) *EmailNotifier {
	return &EmailNotifier{mailSvc: mailSvc}
}

func (n *EmailNotifier) Notify(ctx context.Context, intents ...admission.NotificationIntent) error {
	msgs := make([]*core.EmailMessage, 0, len(intents))
	for _, intent := range intents {
		msg, err := newEmailMessage(intent)
		if err != nil {
			return errors.Wrapf(err, "preparing %s email", intent.Kind)
		}
		msgs = append(msgs, msg)
	}
	return errors.Wrap(n.mailSvc.SendMessages(ctx, msgs...), "sending emails")
}

func newEmailMessage(intent admission.NotificationIntent) (*core.EmailMessage, error) {
	if strings.TrimSpace(intent.To.Address) == "" {
		return nil, core.NewFieldValidationError("email", "the applicant has no email address")
	}
	msg := &core.EmailMessage{
		To:               []mail.Address{intent.To},
		Subject:          intent.Subject,
		TemplateName:     intent.TemplateName,
		FallbackTemplate: intent.FallbackTemplate,
		TemplateData:     intent.Data,
	}

	// without a parsed template, the applicant still gets a plain text message
	if err := msg.Render(); err != nil {
		return nil, err
	}
	if !msg.HasContent() {
		msg.BodyStr = plainBody(intent)
	}
	return msg, nil
}

func plainBody(intent admission.NotificationIntent) string {
	body := new(strings.Builder)
	_, _ = fmt.Fprintf(body, "Bonjour %s,\n\n", intent.Data.ApplicantName)
	_, _ = fmt.Fprintf(body, "%s.\n", intent.Subject)
	_, _ = fmt.Fprintf(body, "Référence : %s\n", intent.Data.ReferenceNumber)
	if intent.Data.RejectionReason != "" {
		_, _ = fmt.Fprintf(body, "Motif : %s\n", intent.Data.RejectionReason)
	}
	if intent.Data.Comment != "" {
		_, _ = fmt.Fprintf(body, "\n%s\n", intent.Data.Comment)
	}
	return body.String()
}
