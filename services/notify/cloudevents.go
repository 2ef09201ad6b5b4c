package notifysvc

import (
	"context"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	cehttp "github.com/cloudevents/sdk-go/v2/protocol/http"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/backoffice/core/admission"
)

// EventTypePrefix prefixes the type of every published event, e.g. "org.backoffice.admission.acceptance".
const EventTypePrefix = "org.backoffice.admission."

// CloudEventsNotifier publishes notification intents as CloudEvents over HTTP,
// leaving delivery to the subscriber (a mailer, a CRM, a workflow).
type CloudEventsNotifier struct {
	client cloudevents.Client
	target string
	source string
}

var _ admission.Notifier = (*CloudEventsNotifier)(nil)

func NewCloudEventsNotifier(target, source string) (*CloudEventsNotifier, error) {
	if target == "" {
		return nil, errors.New("cloudevents target is required")
	}
	client, err := cloudevents.NewClientHTTP()
	if err != nil {
		return nil, errors.Wrap(err, "creating cloudevents client")
	}
	return &CloudEventsNotifier{client: client, target: target, source: source}, nil
}

func (n *CloudEventsNotifier) Notify(ctx context.Context, intents ...admission.NotificationIntent) error {
	ctx = cloudevents.ContextWithTarget(ctx, n.target)
	for _, intent := range intents {
		event, err := newEvent(intent, n.source)
		if err != nil {
			return err
		}
		if err = checkResult(n.client.Send(ctx, event)); err != nil {
			return errors.Wrapf(err, "publishing %s event", intent.Kind)
		}
	}
	return nil
}

func newEvent(intent admission.NotificationIntent, source string) (cloudevents.Event, error) {
	event := cloudevents.NewEvent()
	event.SetID(uuid.New().String())
	event.SetSource(source)
	event.SetType(EventTypePrefix + string(intent.Kind))
	event.SetSubject(intent.ApplicationID)
	event.SetTime(admission.NowFunc())
	if err := event.SetData(cloudevents.ApplicationJSON, intent); err != nil {
		return event, errors.Wrap(err, "encoding event data")
	}
	return event, nil
}

// checkResult turns anything but an acknowledgement into an error.
func checkResult(result cloudevents.Result) error {
	if cloudevents.IsACK(result) {
		return nil
	}
	var httpResult *cehttp.Result
	if cloudevents.ResultAs(result, &httpResult) {
		return errors.Errorf("subscriber answered %d", httpResult.StatusCode)
	}
	return result
}
