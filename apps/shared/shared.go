// Package shared builds the dependencies the api and admin apps have in common.
package shared

import (
	"context"
	"log"
	"os"
	"sync"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/backoffice/core"
	"github.com/trezcool/backoffice/core/admission"
	emailsvc "github.com/trezcool/backoffice/services/email"
	filesvc "github.com/trezcool/backoffice/services/filestore"
	logsvc "github.com/trezcool/backoffice/services/logger"
	notifysvc "github.com/trezcool/backoffice/services/notify"
	ratelimitsvc "github.com/trezcool/backoffice/services/ratelimit"
	"github.com/trezcool/backoffice/storage/database"
	firestorerepos "github.com/trezcool/backoffice/storage/database/firestore"
	inmemdb "github.com/trezcool/backoffice/storage/database/inmem"
	sqlxrepos "github.com/trezcool/backoffice/storage/database/sqlx"
)

// Notification channels
const (
	ChannelEmail       = "email"
	ChannelCloudEvents = "cloudevents"
	ChannelNone        = "none"
)

const exportLimiterPrefix = "backoffice:ratelimit"

// Closers collects the release functions of opened resources; they run in reverse order.
type Closers struct {
	mu  sync.Mutex
	fns []func() error
}

func (c *Closers) Add(fn func() error) {
	c.mu.Lock()
	c.fns = append(c.fns, fn)
	c.mu.Unlock()
}

// Close runs every release function and returns the first error.
func (c *Closers) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var first error
	for i := len(c.fns) - 1; i >= 0; i-- {
		if err := c.fns[i](); err != nil && first == nil {
			first = err
		}
	}
	c.fns = nil
	return first
}

// NewLogger returns a rollbar logger echoing to stdout with the given prefix.
func NewLogger(conf *core.Config, prefix string) core.Logger {
	std := log.New(os.Stdout, prefix+" : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(std, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func NewTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// NewValidator returns a validator with every custom tag registered.
func NewValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	admission.InitValidators(validate, translator)
	return validate
}

// OpenRepository opens the application store selected by conf.Database.Engine.
// SQL databases are created (postgres only) and migrated first.
func OpenRepository(ctx context.Context, conf *core.Config, closers *Closers) (admission.Repository, error) {
	switch conf.Database.Engine {
	case database.EngineMemory:
		return inmemdb.NewApplicationRepository(inmemdb.Open()), nil

	case database.EngineFirestore:
		if conf.Database.GCPProject == "" {
			return nil, errors.New("firestore: gcpProject is required")
		}
		client, err := firestore.NewClient(ctx, conf.Database.GCPProject)
		if err != nil {
			return nil, errors.Wrap(err, "creating firestore client")
		}
		closers.Add(client.Close)
		return firestorerepos.NewApplicationRepository(client, conf.Database.Collection), nil

	case database.EnginePostgres, database.EngineSQLite:
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, errors.Wrap(err, "creating database")
		}
		db, err := database.Open(conf)
		if err != nil {
			return nil, errors.Wrap(err, "opening database")
		}
		closers.Add(db.Close)
		if err = database.Migrate(db); err != nil {
			return nil, errors.Wrap(err, "migrating database")
		}
		return sqlxrepos.NewApplicationRepository(db), nil
	}
	return nil, errors.Errorf("unknown database engine %q", conf.Database.Engine)
}

func NewEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridApiKey == "" {
		return emailsvc.NewConsoleService(conf)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

// NewNotifier returns the notifier of the configured channel; "none" returns nil.
func NewNotifier(conf *core.Config, mailSvc core.EmailService) (admission.Notifier, error) {
	switch conf.Notifications.Channel {
	case "", ChannelEmail:
		return notifysvc.NewEmailNotifier(mailSvc), nil
	case ChannelCloudEvents:
		notifier, err := notifysvc.NewCloudEventsNotifier(conf.Notifications.CloudEventsTarget, conf.Notifications.CloudEventsSource)
		if err != nil {
			return nil, err
		}
		return notifier, nil
	case ChannelNone:
		return nil, nil
	}
	return nil, errors.Errorf("unknown notification channel %q", conf.Notifications.Channel)
}

// NewFileResolver returns a Cloud Storage resolver; nil when no bucket is configured.
func NewFileResolver(ctx context.Context, conf *core.Config, closers *Closers) (admission.FileResolver, error) {
	if conf.Storage.Bucket == "" {
		return nil, nil
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "creating storage client")
	}
	closers.Add(client.Close)
	return filesvc.NewGCSResolver(client, conf.Storage.Bucket), nil
}

// NewLimiter returns the export rate limiter; nil when Redis is not configured.
func NewLimiter(conf *core.Config, closers *Closers) (ratelimitsvc.Limiter, error) {
	client, err := ratelimitsvc.NewRedisClient(conf.Redis.URL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing redis url")
	}
	if client == nil {
		return nil, nil
	}
	closers.Add(client.Close)
	return ratelimitsvc.NewRedisLimiter(client, conf.Redis.ExportLimit, conf.Redis.ExportWindow, exportLimiterPrefix), nil
}

// NewAdmissionService builds the service with the configured document catalogue and review policy.
func NewAdmissionService(
	conf *core.Config,
	repo admission.Repository,
	notifier admission.Notifier,
	files admission.FileResolver,
	logger core.Logger,
) (admission.Service, error) {
	catalog, err := admission.NewCatalog(conf.Documents)
	if err != nil {
		return nil, errors.Wrap(err, "loading document catalogue")
	}
	return admission.NewService(admission.ServiceDeps{
		Repo:     repo,
		Notifier: notifier,
		Files:    files,
		Catalog:  catalog,
		Policy: admission.Policy{
			RequireComment:     conf.Review.RequireDecisionComment,
			StrictCompleteness: conf.Review.StrictCompleteness,
		},
		Logger: logger,
	}), nil
}
