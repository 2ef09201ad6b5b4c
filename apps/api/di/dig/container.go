package dig_container

import (
	"context"
	"fmt"
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/backoffice/apps/api/echo"
	"github.com/trezcool/backoffice/apps/shared"
	"github.com/trezcool/backoffice/core"
	"github.com/trezcool/backoffice/core/admission"
	ratelimitsvc "github.com/trezcool/backoffice/services/ratelimit"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type serviceParams struct {
	dig.In
	Conf     *core.Config
	Repo     admission.Repository
	Notifier admission.Notifier   `optional:"true"`
	Files    admission.FileResolver `optional:"true"`
	Logger   core.Logger
}

func newLogger(conf *core.Config) core.Logger {
	return shared.NewLogger(conf, "API")
}

func newDBLogger(conf *core.Config) core.Logger {
	return shared.NewLogger(conf, "DB")
}

func newRepository(conf *core.Config, closers *shared.Closers, loggerParam DBLoggerParam) admission.Repository {
	repo, err := shared.OpenRepository(context.Background(), conf, closers)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return repo
}

func newNotifier(conf *core.Config, mailSvc core.EmailService, logger core.Logger) admission.Notifier {
	notifier, err := shared.NewNotifier(conf, mailSvc)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up notifications: %v", err), err)
	}
	return notifier
}

func newFileResolver(conf *core.Config, closers *shared.Closers, logger core.Logger) admission.FileResolver {
	files, err := shared.NewFileResolver(context.Background(), conf, closers)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up file storage: %v", err), err)
	}
	return files
}

func newLimiter(conf *core.Config, closers *shared.Closers, logger core.Logger) ratelimitsvc.Limiter {
	limiter, err := shared.NewLimiter(conf, closers)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up rate limiting: %v", err), err)
	}
	return limiter
}

func newAdmissionService(p serviceParams) admission.Service {
	svc, err := shared.NewAdmissionService(p.Conf, p.Repo, p.Notifier, p.Files, p.Logger)
	if err != nil {
		p.Logger.Fatal(fmt.Sprintf("setting up admission service: %v", err), err)
	}
	return svc
}

func newServer(
	conf *core.Config,
	logger core.Logger,
	svc admission.Service,
	limiter ratelimitsvc.Limiter,
	validate *validator.Validate,
	translator ut.Translator,
) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:         conf,
		Logger:       logger,
		AdmissionSvc: svc,
		Limiter:      limiter,
		Validate:     validate,
		Translator:   translator,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(func() *shared.Closers { return new(shared.Closers) }))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newRepository))
	must(c.Provide(shared.NewEmailService))
	must(c.Provide(newNotifier))
	must(c.Provide(newFileResolver))
	must(c.Provide(newLimiter))
	must(c.Provide(shared.NewTranslator))
	must(c.Provide(shared.NewValidator))
	must(c.Provide(newAdmissionService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
