package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/backoffice/apps/api/echo"
	"github.com/trezcool/backoffice/core"
	"github.com/trezcool/backoffice/core/admission"
	"github.com/trezcool/backoffice/core/admission/admissiontest"
	"github.com/trezcool/backoffice/core/auth"
	"github.com/trezcool/backoffice/storage/database/inmem"
)

var (
	conf = &core.Config{
		AppName:   "Back Office",
		SecretKey: "secret",
		TestMode:  true,
		Server: core.ServerConfig{
			Addr:               ":0",
			DisableReqLogs:     true,
			JWTExpirationDelta: time.Hour,
		},
	}

	reviewer = admissiontest.Reviewer
	admin    = admission.Reviewer{ID: "adm-1", Name: "Grace Mbuyi", Email: "grace@example.com"}

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

type env struct {
	server   *Server
	repo     admission.Repository
	notifier *admissiontest.Notifier
	limiter  *limiter
	logger   *admissiontest.Logger
}

// limiter allows the first `limit` calls of each key.
type limiter struct {
	mu    sync.Mutex
	limit int
	calls map[string]int
}

func (l *limiter) Allow(_ context.Context, key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls[key]++
	return l.calls[key] <= l.limit
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func setup(t *testing.T, apps ...admission.Application) *env {
	now := admissiontest.Epoch.Add(24 * time.Hour)
	admission.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { admission.NowFunc = time.Now })

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	admission.InitValidators(validate, translator)

	e := &env{
		repo:     inmemdb.NewApplicationRepository(inmemdb.Open()),
		notifier: new(admissiontest.Notifier),
		limiter:  &limiter{limit: 2, calls: make(map[string]int)},
		logger:   new(admissiontest.Logger),
	}
	for _, app := range apps {
		if _, err := e.repo.SaveApplication(context.Background(), app); err != nil {
			t.Fatalf("SaveApplication() failed: %v", err)
		}
	}

	svc := admission.NewService(admission.ServiceDeps{
		Repo:     e.repo,
		Notifier: e.notifier,
		Files:    admissiontest.Files{"uploads/app-1/photo.jpg": {URL: "gs://uploads/app-1/photo.jpg", Size: 2048, UploadedAt: admissiontest.Epoch}},
		Logger:   e.logger,
	})
	e.server = NewServer(ServerDeps{
		Conf:         conf,
		Logger:       e.logger,
		AdmissionSvc: svc,
		Limiter:      e.limiter,
		Validate:     validate,
		Translator:   translator,
	})
	return e
}

func (e *env) get(t *testing.T, id string) admission.Application {
	app, err := e.repo.GetApplication(context.Background(), id)
	if err != nil {
		t.Fatalf("GetApplication() failed: %v", err)
	}
	return app
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func getToken(t *testing.T, rev admission.Reviewer, roles ...string) string {
	token, err := auth.GenerateToken(auth.NewClaims(conf, rev, roles...), conf.SecretKey)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		assert.JSONEq(t, string(tt.wantData), rec.Body.String())
	}
}

func runTests(t *testing.T, e *env, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			e.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func jsonUnmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}
