package echoapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/backoffice/core"
	"github.com/trezcool/backoffice/core/admission"
	"github.com/trezcool/backoffice/core/auth"
)

const exportAction = "export"

type admissionApi struct {
	svc        admission.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerAdmissionAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := admissionApi{
		svc:        deps.AdmissionSvc,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	reviewers := roleMiddleware(auth.RoleReviewer)

	ag := g.Group("/applications", jwt, reviewers)
	ag.GET("", api.query)
	ag.POST("", api.create, roleMiddleware(auth.RoleAdmin))
	ag.GET("/stats", api.stats)
	ag.GET("/export", api.export, rateLimitMiddleware(deps.Limiter, exportAction))

	// detail endpoints
	dg := ag.Group("/:id")
	dg.GET("", api.retrieve)
	dg.POST("/transition", api.transition)
	dg.POST("/decision", api.decide)
	dg.PUT("/documents/:type", api.submitDocument)
	dg.POST("/documents/:type/verification", api.verifyDocument)
	dg.POST("/payments", api.recordPayment)
	dg.PUT("/score", api.setScore)

	g.GET("/document-requirements/:program_type", api.requirements, jwt, reviewers)
}

// Handlers

func bindFilter(ctx echo.Context) (*admission.QueryFilter, []core.DBOrdering) {
	filter := new(admission.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		filter = new(admission.QueryFilter)
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)
	return filter, ordering.Orderings
}

func (api *admissionApi) query(ctx echo.Context) error {
	filter, ordering := bindFilter(ctx)

	apps, err := api.svc.Query(ctx.Request().Context(), filter, ordering)
	if err != nil {
		return errors.Wrap(err, "querying applications")
	}
	resp := make([]ApplicationResponse, 0, len(apps))
	for _, app := range apps {
		resp = append(resp, NewApplicationResponse(app))
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *admissionApi) create(ctx echo.Context) error {
	var data admission.NewApplication
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewApplication")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	app, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating application")
	}
	return ctx.JSON(http.StatusCreated, NewApplicationResponse(app))
}

func (api *admissionApi) stats(ctx echo.Context) error {
	filter, _ := bindFilter(ctx)

	stats, err := api.svc.Statistics(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "computing statistics")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *admissionApi) export(ctx echo.Context) error {
	filter, ordering := bindFilter(ctx)

	var buf bytes.Buffer
	n, err := api.svc.Export(ctx.Request().Context(), &buf, filter, ordering)
	if err != nil {
		return errors.Wrap(err, "exporting applications")
	}

	filename := fmt.Sprintf("candidatures-%s.csv", admission.NowFunc().Format("20060102-150405"))
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	ctx.Response().Header().Set("X-Total-Count", strconv.Itoa(n))
	return ctx.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (api *admissionApi) retrieve(ctx echo.Context) error {
	app, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting application")
	}
	return ctx.JSON(http.StatusOK, NewApplicationResponse(app))
}

func (api *admissionApi) transition(ctx echo.Context) error {
	reviewer, err := getContextReviewer(ctx)
	if err != nil {
		return err
	}
	var data TransitionRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TransitionRequest")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	app, err := api.svc.Transition(ctx.Request().Context(), ctx.Param("id"), data.Version, data.Status, reviewer,
		admission.TransitionOptions{Comment: data.Comment, RejectionReason: data.RejectionReason})
	if err != nil {
		return errors.Wrap(err, "transitioning application")
	}
	return ctx.JSON(http.StatusOK, NewApplicationResponse(app))
}

func (api *admissionApi) decide(ctx echo.Context) error {
	reviewer, err := getContextReviewer(ctx)
	if err != nil {
		return err
	}
	var data DecisionRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DecisionRequest")
	}
	if err = data.ReviewDecision.Validate(api.validate); err != nil {
		return err
	}
	data.Reviewer = reviewer

	outcome, err := api.svc.SubmitDecision(ctx.Request().Context(), ctx.Param("id"), data.Version, data.ReviewDecision)
	if err != nil {
		return errors.Wrap(err, "submitting decision")
	}
	return ctx.JSON(http.StatusOK, NewDecisionResponse(outcome))
}

func (api *admissionApi) submitDocument(ctx echo.Context) error {
	var data DocumentRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DocumentRequest")
	}

	app, err := api.svc.SubmitDocument(ctx.Request().Context(), ctx.Param("id"), data.Version, ctx.Param("type"), data.DocumentSubmission)
	if err != nil {
		return errors.Wrap(err, "submitting document")
	}
	return ctx.JSON(http.StatusOK, NewApplicationResponse(app))
}

func (api *admissionApi) verifyDocument(ctx echo.Context) error {
	reviewer, err := getContextReviewer(ctx)
	if err != nil {
		return err
	}
	var data VerificationRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to VerificationRequest")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	app, err := api.svc.VerifyDocument(ctx.Request().Context(), ctx.Param("id"), data.Version, ctx.Param("type"),
		*data.Verified, data.Notes, reviewer)
	if err != nil {
		return errors.Wrap(err, "verifying document")
	}
	return ctx.JSON(http.StatusOK, NewApplicationResponse(app))
}

func (api *admissionApi) recordPayment(ctx echo.Context) error {
	reviewer, err := getContextReviewer(ctx)
	if err != nil {
		return err
	}
	var data PaymentRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PaymentRequest")
	}
	if err = api.validate.Struct(&data); err != nil {
		return err
	}

	app, err := api.svc.RecordPayment(ctx.Request().Context(), ctx.Param("id"), data.Version, data.Amount, reviewer)
	if err != nil {
		return errors.Wrap(err, "recording payment")
	}
	return ctx.JSON(http.StatusOK, NewApplicationResponse(app))
}

func (api *admissionApi) setScore(ctx echo.Context) error {
	reviewer, err := getContextReviewer(ctx)
	if err != nil {
		return err
	}
	var data ScoreRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ScoreRequest")
	}
	if err = api.validate.Struct(&data); err != nil {
		return err
	}

	app, err := api.svc.SetScore(ctx.Request().Context(), ctx.Param("id"), data.Version, *data.Score, reviewer)
	if err != nil {
		return errors.Wrap(err, "setting score")
	}
	return ctx.JSON(http.StatusOK, NewApplicationResponse(app))
}

func (api *admissionApi) requirements(ctx echo.Context) error {
	pt := admission.ProgramType(core.CleanString(ctx.Param("program_type"), true /* lower */))
	reqs, err := api.svc.Requirements(pt)
	if err != nil {
		return errors.Wrap(err, "listing requirements")
	}
	return ctx.JSON(http.StatusOK, reqs)
}

type (
	ApplicationResponse struct {
		admission.Application
		Completeness     int                     `json:"completeness"`
		PaymentStatus    admission.PaymentStatus `json:"payment_status"`
		MissingDocuments []string                `json:"missing_documents"`
		LegalTargets     []admission.Status      `json:"legal_targets"`
	}

	DecisionResponse struct {
		Application       ApplicationResponse          `json:"application"`
		Notification      admission.NotificationIntent `json:"notification"`
		Warnings          []admission.Warning          `json:"warnings"`
		NotificationError string                       `json:"notification_error,omitempty"`
	}

	TransitionRequest struct {
		Status          admission.Status `json:"status" validate:"required,status"`
		Comment         string           `json:"comment"`
		RejectionReason string           `json:"rejection_reason"`
		Version         int              `json:"version"`
	}

	DecisionRequest struct {
		admission.ReviewDecision
		Version int `json:"version"`
	}

	DocumentRequest struct {
		admission.DocumentSubmission
		Version int `json:"version"`
	}

	VerificationRequest struct {
		Verified *bool  `json:"verified" validate:"required"`
		Notes    string `json:"notes"`
		Version  int    `json:"version"`
	}

	PaymentRequest struct {
		Amount  int64 `json:"amount" validate:"gt=0"`
		Version int   `json:"version"`
	}

	ScoreRequest struct {
		Score   *int `json:"score" validate:"required,gte=0,lte=100"`
		Version int  `json:"version"`
	}
)

func NewApplicationResponse(app admission.Application) ApplicationResponse {
	missing := make([]string, 0)
	for _, doc := range admission.MissingDocuments(app.Documents) {
		missing = append(missing, doc.DocumentTypeID)
	}
	if app.Documents == nil {
		app.Documents = []admission.DocumentRecord{}
	}
	return ApplicationResponse{
		Application:      app,
		Completeness:     app.Completeness(),
		PaymentStatus:    app.PaymentStatus(),
		MissingDocuments: missing,
		LegalTargets:     admission.LegalTargets(app.Status),
	}
}

func NewDecisionResponse(outcome admission.DecisionOutcome) DecisionResponse {
	resp := DecisionResponse{
		Application:  NewApplicationResponse(outcome.Application),
		Notification: outcome.Notification,
		Warnings:     outcome.Warnings,
	}
	if resp.Warnings == nil {
		resp.Warnings = []admission.Warning{}
	}
	if outcome.NotificationErr != nil {
		resp.NotificationError = outcome.NotificationErr.Error()
	}
	return resp
}

func (tr *TransitionRequest) Validate(validate *validator.Validate) error {
	tr.Status = admission.Status(core.CleanString(string(tr.Status), true /* lower */))
	tr.Comment = core.CleanString(tr.Comment)
	tr.RejectionReason = core.CleanString(tr.RejectionReason)
	return validate.Struct(tr)
}

func (vr *VerificationRequest) Validate(validate *validator.Validate) error {
	vr.Notes = core.CleanString(vr.Notes)
	return validate.Struct(vr)
}
