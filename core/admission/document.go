package admission

import (
	"fmt"
	"strings"
	"time"

	"github.com/trezcool/backoffice/core"
)

var (
	errVerifyUnsubmitted = "a document must be submitted before it can be verified"
	errArchivedDocuments = "documents of archived applications cannot change"
)

// SeedDocuments creates the unsubmitted document records of a new application.
func SeedDocuments(reqs []DocumentRequirement) []DocumentRecord {
	docs := make([]DocumentRecord, 0, len(reqs))
	for _, req := range reqs {
		docs = append(docs, DocumentRecord{
			DocumentTypeID: req.ID,
			Label:          req.Label,
			Required:       req.Required,
		})
	}
	return docs
}

func documentIndex(app Application, docTypeID string) (int, error) {
	for i, doc := range app.Documents {
		if doc.DocumentTypeID == docTypeID {
			return i, nil
		}
	}
	return -1, core.NewNotFoundError("document", docTypeID)
}

// SubmitDocument records a file for one of the application's documents.
// A resubmitted document has to be verified again.
func SubmitDocument(app Application, docTypeID string, ref FileRef, now time.Time) (Application, error) {
	idx, err := documentIndex(app, docTypeID)
	if err != nil {
		return app, err
	}
	if app.Status == StatusArchived {
		return app, core.NewFieldValidationError("documents", errArchivedDocuments)
	}
	if strings.TrimSpace(ref.URL) == "" {
		return app, core.NewFieldValidationError("url", "this field is required")
	}
	if ref.Size < 0 {
		return app, core.NewFieldValidationError("size", "size cannot be negative")
	}
	if ref.UploadedAt.IsZero() {
		ref.UploadedAt = now.UTC()
	}

	updated := app.Clone()
	doc := &updated.Documents[idx]
	doc.Submitted = true
	doc.Verified = false
	doc.FileRef = &ref
	updated.LastModified = now.UTC()
	return updated, nil
}

// VerifyDocument sets the reviewer's verdict on a submitted document.
func VerifyDocument(app Application, docTypeID string, verified bool, notes string, reviewer Reviewer, now time.Time) (Application, error) {
	if !reviewer.IsAuthenticated() {
		return app, core.NewFieldValidationError("reviewer", "an authenticated reviewer is required")
	}
	idx, err := documentIndex(app, docTypeID)
	if err != nil {
		return app, err
	}
	if app.Status == StatusArchived {
		return app, core.NewFieldValidationError("documents", errArchivedDocuments)
	}
	if verified && !app.Documents[idx].Submitted {
		return app, core.NewFieldValidationError("verified", errVerifyUnsubmitted)
	}

	updated := app.Clone()
	doc := &updated.Documents[idx]
	doc.Verified = verified
	doc.ReviewNotes = strings.TrimSpace(notes)
	updated.LastModified = now.UTC()

	verdict := "rejected"
	if verified {
		verdict = "verified"
	}
	entry := fmt.Sprintf("document %s %s", docTypeID, verdict)
	if doc.ReviewNotes != "" {
		entry += ": " + doc.ReviewNotes
	}
	updated.Notes = appendNote(updated.Notes, now, reviewer, entry)
	return updated, nil
}
