// Package admissiontest provides fixtures and recording doubles for tests of admission consumers.
package admissiontest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/trezcool/backoffice/core"
	"github.com/trezcool/backoffice/core/admission"
)

// Epoch is the reference time of fixtures.
var Epoch = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

var Reviewer = admission.Reviewer{ID: "rev-1", Name: "Amani Bisimwa", Email: "amani@example.com"}

type Option func(*admission.Application)

// NewApplication returns a pending university application seeded with the default documents.
func NewApplication(opts ...Option) admission.Application {
	app := admission.New(admission.NewApplication{
		ReferenceNumber: "UNI-2026-0001",
		Applicant: admission.Applicant{
			Name:  "Jean Mukendi",
			Email: "jean.mukendi@example.com",
			Phone: "+243 810 000 001",
		},
		ProgramID:    "prog-info",
		ProgramName:  "Licence Informatique",
		ProgramType:  admission.ProgramUniversity,
		AcademicYear: "2026-2027",
		FeeTotal:     50000,
	}, admission.DefaultCatalog.Requirements(admission.ProgramUniversity), Epoch)
	app.ID = "app-1"

	for _, opt := range opts {
		opt(&app)
	}
	return app
}

func WithID(id string) Option { return func(app *admission.Application) { app.ID = id } }

func WithReference(ref string) Option {
	return func(app *admission.Application) { app.ReferenceNumber = ref }
}

func WithStatus(s admission.Status) Option { return func(app *admission.Application) { app.Status = s } }

func WithApplicant(name, email string) Option {
	return func(app *admission.Application) {
		app.Applicant.Name = name
		app.Applicant.Email = email
	}
}

func WithProgram(id, name string, pt admission.ProgramType) Option {
	return func(app *admission.Application) {
		app.ProgramID = id
		app.ProgramName = name
		if app.ProgramType != pt {
			app.ProgramType = pt
			app.Documents = admission.SeedDocuments(admission.DefaultCatalog.Requirements(pt))
		}
	}
}

func WithYear(year string) Option { return func(app *admission.Application) { app.AcademicYear = year } }

func WithFees(paid, total int64) Option {
	return func(app *admission.Application) {
		app.FeePaid = paid
		app.FeeTotal = total
	}
}

func WithSubmittedAt(t time.Time) Option {
	return func(app *admission.Application) {
		app.SubmittedAt = t.UTC()
		app.LastModified = t.UTC()
	}
}

func WithRejectionReason(reason string) Option {
	return func(app *admission.Application) { app.RejectionReason = reason }
}

// WithDocuments replaces the documents of the application.
func WithDocuments(docs ...admission.DocumentRecord) Option {
	return func(app *admission.Application) { app.Documents = docs }
}

// AllSubmitted marks every document as submitted, and verified when verified is true.
func AllSubmitted(verified bool) Option {
	return func(app *admission.Application) {
		for i := range app.Documents {
			app.Documents[i].Submitted = true
			app.Documents[i].Verified = verified
			app.Documents[i].FileRef = &admission.FileRef{
				URL:        fmt.Sprintf("gs://uploads/%s/%s.pdf", app.ID, app.Documents[i].DocumentTypeID),
				Size:       1024,
				UploadedAt: Epoch,
			}
		}
	}
}

// Documents builds n required documents of which the first submitted ones are submitted.
func Documents(required, submitted int) []admission.DocumentRecord {
	docs := make([]admission.DocumentRecord, 0, required)
	for i := 0; i < required; i++ {
		docs = append(docs, admission.DocumentRecord{
			DocumentTypeID: fmt.Sprintf("doc-%d", i+1),
			Label:          fmt.Sprintf("Document %d", i+1),
			Required:       true,
			Submitted:      i < submitted,
		})
	}
	return docs
}

// Notifier records the intents it is asked to deliver and fails with Err when set.
type Notifier struct {
	mu   sync.Mutex
	Err  error
	sent []admission.NotificationIntent
}

var _ admission.Notifier = (*Notifier)(nil)

func (n *Notifier) Notify(_ context.Context, intents ...admission.NotificationIntent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.sent = append(n.sent, intents...)
	return nil
}

func (n *Notifier) Sent() []admission.NotificationIntent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]admission.NotificationIntent, len(n.sent))
	copy(out, n.sent)
	return out
}

// Files is an in-memory FileResolver keyed by object name.
type Files map[string]admission.FileRef

var _ admission.FileResolver = (Files)(nil)

func (f Files) Resolve(_ context.Context, object string) (admission.FileRef, error) {
	if ref, ok := f[object]; ok {
		return ref, nil
	}
	return admission.FileRef{}, core.NewNotFoundError("file", object)
}

// Entry is a message recorded by Logger.
type Entry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// Logger records every message instead of printing it.
type Logger struct {
	mu      sync.Mutex
	entries []Entry
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	l.entries = append(l.entries, Entry{Level: level, Msg: msg, Args: args})
	l.mu.Unlock()
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("debug", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("info", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("warn", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("error", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("fatal", msg, args) }

// Entries returns the recorded messages of the given level, or all of them when level is empty.
func (l *Logger) Entries(level string) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Entry
	for _, e := range l.entries {
		if level == "" || e.Level == level {
			out = append(out, e)
		}
	}
	return out
}
