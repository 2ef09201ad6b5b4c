package admission

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/backoffice/core"
)

type (
	Repository interface {
		// QueryApplications applies an AND operation on the set QueryFilter fields (nil: all applications).
		// Results are ordered by submission date unless ordering is provided.
		QueryApplications(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Application, error)
		// GetApplication returns a *core.NotFoundError for unknown ids.
		GetApplication(ctx context.Context, id string) (Application, error)
		// SaveApplication inserts app when its Version is 0, otherwise it replaces the stored application
		// as long as the stored version still equals app.Version (core.ErrConflict if not).
		// The returned application carries its new Version.
		SaveApplication(ctx context.Context, app Application) (Application, error)
	}

	// FileResolver turns an uploaded object's name into a FileRef.
	FileResolver interface {
		Resolve(ctx context.Context, object string) (FileRef, error)
	}

	// DocumentSubmission identifies the file of a submitted document,
	// either directly or by the name of an object in the file storage.
	DocumentSubmission struct {
		Object  string   `json:"object"`
		FileRef *FileRef `json:"file_ref"`
	}

	// DecisionOutcome is a saved decision. NotificationErr reports a failed delivery;
	// the decision stays saved in that case.
	DecisionOutcome struct {
		Application     Application        `json:"application"`
		Notification    NotificationIntent `json:"notification"`
		Warnings        []Warning          `json:"warnings"`
		NotificationErr error              `json:"-"`
	}

	Service interface {
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Application, error)
		Get(ctx context.Context, id string) (Application, error)
		Create(ctx context.Context, na NewApplication) (Application, error)
		Transition(ctx context.Context, id string, version int, target Status, reviewer Reviewer, opts TransitionOptions) (Application, error)
		SubmitDecision(ctx context.Context, id string, version int, decision ReviewDecision) (DecisionOutcome, error)
		SubmitDocument(ctx context.Context, id string, version int, docTypeID string, sub DocumentSubmission) (Application, error)
		VerifyDocument(ctx context.Context, id string, version int, docTypeID string, verified bool, notes string, reviewer Reviewer) (Application, error)
		RecordPayment(ctx context.Context, id string, version int, amount int64, reviewer Reviewer) (Application, error)
		SetScore(ctx context.Context, id string, version int, score int, reviewer Reviewer) (Application, error)
		Export(ctx context.Context, w io.Writer, filter *QueryFilter, ordering []core.DBOrdering) (int, error)
		Statistics(ctx context.Context, filter *QueryFilter) (Statistics, error)
		Requirements(pt ProgramType) ([]DocumentRequirement, error)
	}

	ServiceDeps struct {
		Repo     Repository
		Notifier Notifier     // optional
		Files    FileResolver // optional
		Catalog  Catalog
		Policy   Policy
		Logger   core.Logger
	}

	service struct {
		repo     Repository
		notifier Notifier
		files    FileResolver
		catalog  Catalog
		engine   Engine
		logger   core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(deps ServiceDeps) Service {
	cat := deps.Catalog
	if cat == nil {
		cat = DefaultCatalog
	}
	return &service{
		repo:     deps.Repo,
		notifier: deps.Notifier,
		files:    deps.Files,
		catalog:  cat,
		engine:   NewEngine(deps.Policy),
		logger:   deps.Logger,
	}
}

// mutate loads an application, applies fn and saves the result.
// A non-zero version must match the stored one.
func (svc *service) mutate(ctx context.Context, id string, version int, fn func(Application) (Application, error)) (Application, error) {
	app, err := svc.repo.GetApplication(ctx, id)
	if err != nil {
		return Application{}, errors.Wrap(err, "getting application")
	}
	if version != 0 && app.Version != version {
		return Application{}, core.ErrConflict
	}

	updated, err := fn(app)
	if err != nil {
		return Application{}, err
	}

	saved, err := svc.repo.SaveApplication(ctx, updated)
	if err != nil {
		return Application{}, errors.Wrap(err, "saving application")
	}
	return saved, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Application, error) {
	if err := ValidateOrdering(ordering); err != nil {
		return nil, err
	}
	return svc.repo.QueryApplications(ctx, filter, ordering)
}

func (svc *service) Get(ctx context.Context, id string) (Application, error) {
	return svc.repo.GetApplication(ctx, id)
}

func (svc *service) Create(ctx context.Context, na NewApplication) (Application, error) {
	reqs, err := svc.Requirements(na.ProgramType)
	if err != nil {
		return Application{}, err
	}
	app, err := svc.repo.SaveApplication(ctx, New(na, reqs, NowFunc()))
	if err != nil {
		return Application{}, errors.Wrap(err, "saving application")
	}
	return app, nil
}

func (svc *service) Transition(ctx context.Context, id string, version int, target Status, reviewer Reviewer, opts TransitionOptions) (Application, error) {
	return svc.mutate(ctx, id, version, func(app Application) (Application, error) {
		return Transition(app, target, reviewer, opts, NowFunc())
	})
}

func (svc *service) SubmitDecision(ctx context.Context, id string, version int, decision ReviewDecision) (DecisionOutcome, error) {
	var dec Decision
	app, err := svc.mutate(ctx, id, version, func(app Application) (Application, error) {
		var err error
		dec, err = svc.engine.SubmitDecision(app, decision)
		return dec.Application, err
	})
	if err != nil {
		return DecisionOutcome{}, err
	}

	outcome := DecisionOutcome{
		Application:  app,
		Notification: dec.Notification,
		Warnings:     dec.Warnings,
	}
	for _, w := range dec.Warnings {
		svc.logger.Warn(fmt.Sprintf("decision on %s: %s", app.ReferenceNumber, w.Message), decision.Reviewer)
	}

	if svc.notifier != nil && dec.Notification.Kind != "" {
		if err := svc.notifier.Notify(ctx, dec.Notification); err != nil {
			outcome.NotificationErr = err
			svc.logger.Error(
				fmt.Sprintf("notifying applicant of %s: %v", app.ReferenceNumber, err),
				errors.Wrap(err, "notifying applicant"),
				decision.Reviewer,
			)
		}
	}
	return outcome, nil
}

func (svc *service) SubmitDocument(ctx context.Context, id string, version int, docTypeID string, sub DocumentSubmission) (Application, error) {
	var ref FileRef
	switch {
	case sub.FileRef != nil:
		ref = *sub.FileRef
	case strings.TrimSpace(sub.Object) != "":
		if svc.files == nil {
			return Application{}, core.NewFieldValidationError("object", "file storage is not configured, provide a file_ref")
		}
		var err error
		if ref, err = svc.files.Resolve(ctx, strings.TrimSpace(sub.Object)); err != nil {
			return Application{}, errors.Wrap(err, "resolving file")
		}
	default:
		return Application{}, core.NewFieldValidationError("file_ref", "one of object or file_ref is required")
	}

	return svc.mutate(ctx, id, version, func(app Application) (Application, error) {
		return SubmitDocument(app, docTypeID, ref, NowFunc())
	})
}

func (svc *service) VerifyDocument(ctx context.Context, id string, version int, docTypeID string, verified bool, notes string, reviewer Reviewer) (Application, error) {
	return svc.mutate(ctx, id, version, func(app Application) (Application, error) {
		return VerifyDocument(app, docTypeID, verified, notes, reviewer, NowFunc())
	})
}

func (svc *service) RecordPayment(ctx context.Context, id string, version int, amount int64, reviewer Reviewer) (Application, error) {
	return svc.mutate(ctx, id, version, func(app Application) (Application, error) {
		return RecordPayment(app, amount, reviewer, NowFunc())
	})
}

func (svc *service) SetScore(ctx context.Context, id string, version int, score int, reviewer Reviewer) (Application, error) {
	return svc.mutate(ctx, id, version, func(app Application) (Application, error) {
		return SetScore(app, score, reviewer, NowFunc())
	})
}

// Export writes the matching applications as CSV and returns how many rows were written.
func (svc *service) Export(ctx context.Context, w io.Writer, filter *QueryFilter, ordering []core.DBOrdering) (int, error) {
	apps, err := svc.Query(ctx, filter, ordering)
	if err != nil {
		return 0, errors.Wrap(err, "querying applications")
	}
	if err = WriteCSV(w, apps); err != nil {
		return 0, errors.Wrap(err, "writing csv")
	}
	return len(apps), nil
}

func (svc *service) Statistics(ctx context.Context, filter *QueryFilter) (Statistics, error) {
	apps, err := svc.repo.QueryApplications(ctx, filter, nil)
	if err != nil {
		return Statistics{}, errors.Wrap(err, "querying applications")
	}
	return Aggregate(apps), nil
}

func (svc *service) Requirements(pt ProgramType) ([]DocumentRequirement, error) {
	if !pt.IsValid() {
		return nil, core.NewFieldValidationError("program_type", fmt.Sprintf("unknown program type %q", pt))
	}
	return svc.catalog.Requirements(pt), nil
}
