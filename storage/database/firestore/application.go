package firestorerepos

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/trezcool/backoffice/core"
	"github.com/trezcool/backoffice/core/admission"
)

type (
	applicantRecord struct {
		Name        string    `firestore:"name"`
		Email       string    `firestore:"email"`
		Phone       string    `firestore:"phone"`
		DateOfBirth time.Time `firestore:"date_of_birth"`
		Nationality string    `firestore:"nationality"`
		Address     string    `firestore:"address"`
	}

	fileRecord struct {
		URL        string    `firestore:"url"`
		Size       int64     `firestore:"size"`
		UploadedAt time.Time `firestore:"uploaded_at"`
	}

	documentRecord struct {
		DocumentTypeID string      `firestore:"document_type_id"`
		Label          string      `firestore:"label"`
		Required       bool        `firestore:"required"`
		Submitted      bool        `firestore:"submitted"`
		File           *fileRecord `firestore:"file"`
		Verified       bool        `firestore:"verified"`
		ReviewNotes    string      `firestore:"review_notes"`
	}

	applicationRecord struct {
		ReferenceNumber string           `firestore:"reference_number"`
		Applicant       applicantRecord  `firestore:"applicant"`
		ProgramID       string           `firestore:"program_id"`
		ProgramName     string           `firestore:"program_name"`
		ProgramType     string           `firestore:"program_type"`
		AcademicYear    string           `firestore:"academic_year"`
		Status          string           `firestore:"status"`
		SubmittedAt     time.Time        `firestore:"submitted_at"`
		LastModified    time.Time        `firestore:"last_modified"`
		ProcessedBy     string           `firestore:"processed_by"`
		ProcessedAt     *time.Time       `firestore:"processed_at"`
		Score           *int64           `firestore:"score"`
		Notes           string           `firestore:"notes"`
		RejectionReason string           `firestore:"rejection_reason"`
		FeeTotal        int64            `firestore:"fee_total"`
		FeePaid         int64            `firestore:"fee_paid"`
		Documents       []documentRecord `firestore:"documents"`
		Version         int64            `firestore:"version"`
	}
)

type applicationRepository struct {
	client *firestore.Client
	coll   *firestore.CollectionRef
}

var _ admission.Repository = (*applicationRepository)(nil) // interface compliance check

// NewApplicationRepository stores one document per application, keyed by the application ID.
func NewApplicationRepository(client *firestore.Client, collection string) admission.Repository {
	return &applicationRepository{client: client, coll: client.Collection(collection)}
}

// QueryApplications pushes the equality filters down to Firestore;
// search and ordering run in memory since Firestore has no substring matching.
func (repo *applicationRepository) QueryApplications(ctx context.Context, filter *admission.QueryFilter, ordering []core.DBOrdering) ([]admission.Application, error) {
	q := repo.coll.Query
	if filter != nil {
		if filter.Status != "" {
			q = q.Where("status", "==", string(filter.Status))
		}
		if filter.ProgramID != "" {
			q = q.Where("program_id", "==", filter.ProgramID)
		}
		if filter.ProgramType != "" {
			q = q.Where("program_type", "==", string(filter.ProgramType))
		}
		if filter.AcademicYear != "" {
			q = q.Where("academic_year", "==", filter.AcademicYear)
		}
	}

	apps := make([]admission.Application, 0)
	iter := q.Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "iterating applications")
		}
		app, err := unboil(snap)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}

	if filter != nil && filter.Search != "" {
		apps = admission.Filter(apps, admission.SearchPredicate(filter.Search))
	}
	// stable base order before the requested one
	admission.Sort(apps, admission.DefaultOrdering)
	admission.Sort(apps, ordering)
	return apps, nil
}

func (repo *applicationRepository) GetApplication(ctx context.Context, id string) (admission.Application, error) {
	snap, err := repo.coll.Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return admission.Application{}, core.NewNotFoundError("application", id)
		}
		return admission.Application{}, errors.Wrap(err, "getting application")
	}
	return unboil(snap)
}

func (repo *applicationRepository) SaveApplication(ctx context.Context, app admission.Application) (admission.Application, error) {
	if app.Version == 0 && app.ID == "" {
		app.ID = uuid.New().String()
	}
	ref := repo.coll.Doc(app.ID)

	err := repo.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		found := err == nil
		if err != nil && status.Code(err) != codes.NotFound {
			return errors.Wrap(err, "getting application")
		}

		if app.Version == 0 {
			if found {
				return core.ErrConflict
			}
			taken, err := repo.referenceTaken(tx, app.ReferenceNumber)
			if err != nil {
				return err
			}
			if taken {
				return core.NewFieldValidationError("reference_number", "an application with this reference number already exists")
			}
		} else {
			if !found {
				return core.NewNotFoundError("application", app.ID)
			}
			var stored applicationRecord
			if err = snap.DataTo(&stored); err != nil {
				return errors.Wrap(err, "decoding application")
			}
			if int(stored.Version) != app.Version {
				return core.ErrConflict
			}
		}

		rec := boil(app)
		rec.Version = int64(app.Version) + 1
		return tx.Set(ref, rec)
	})
	if err != nil {
		return admission.Application{}, err
	}

	app.Version++
	return app, nil
}

func (repo *applicationRepository) referenceTaken(tx *firestore.Transaction, refNumber string) (bool, error) {
	iter := tx.Documents(repo.coll.Where("reference_number", "==", refNumber).Limit(1))
	defer iter.Stop()
	_, err := iter.Next()
	if err == iterator.Done {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "checking reference number")
	}
	return true, nil
}

func boil(app admission.Application) applicationRecord {
	rec := applicationRecord{
		ReferenceNumber: app.ReferenceNumber,
		Applicant: applicantRecord{
			Name:        app.Applicant.Name,
			Email:       app.Applicant.Email,
			Phone:       app.Applicant.Phone,
			DateOfBirth: app.Applicant.DateOfBirth,
			Nationality: app.Applicant.Nationality,
			Address:     app.Applicant.Address,
		},
		ProgramID:       app.ProgramID,
		ProgramName:     app.ProgramName,
		ProgramType:     string(app.ProgramType),
		AcademicYear:    app.AcademicYear,
		Status:          string(app.Status),
		SubmittedAt:     app.SubmittedAt,
		LastModified:    app.LastModified,
		ProcessedBy:     app.ProcessedBy,
		ProcessedAt:     app.ProcessedAt,
		Notes:           app.Notes,
		RejectionReason: app.RejectionReason,
		FeeTotal:        app.FeeTotal,
		FeePaid:         app.FeePaid,
		Documents:       make([]documentRecord, 0, len(app.Documents)),
	}
	if app.Score != nil {
		score := int64(*app.Score)
		rec.Score = &score
	}
	for _, doc := range app.Documents {
		d := documentRecord{
			DocumentTypeID: doc.DocumentTypeID,
			Label:          doc.Label,
			Required:       doc.Required,
			Submitted:      doc.Submitted,
			Verified:       doc.Verified,
			ReviewNotes:    doc.ReviewNotes,
		}
		if doc.FileRef != nil {
			d.File = &fileRecord{URL: doc.FileRef.URL, Size: doc.FileRef.Size, UploadedAt: doc.FileRef.UploadedAt}
		}
		rec.Documents = append(rec.Documents, d)
	}
	return rec
}

func unboil(snap *firestore.DocumentSnapshot) (admission.Application, error) {
	var rec applicationRecord
	if err := snap.DataTo(&rec); err != nil {
		return admission.Application{}, errors.Wrapf(err, "decoding application %s", snap.Ref.ID)
	}

	app := admission.Application{
		ID:              snap.Ref.ID,
		ReferenceNumber: rec.ReferenceNumber,
		Applicant: admission.Applicant{
			Name:        rec.Applicant.Name,
			Email:       rec.Applicant.Email,
			Phone:       rec.Applicant.Phone,
			DateOfBirth: utc(rec.Applicant.DateOfBirth),
			Nationality: rec.Applicant.Nationality,
			Address:     rec.Applicant.Address,
		},
		ProgramID:       rec.ProgramID,
		ProgramName:     rec.ProgramName,
		ProgramType:     admission.ProgramType(rec.ProgramType),
		AcademicYear:    rec.AcademicYear,
		Status:          admission.Status(rec.Status),
		SubmittedAt:     utc(rec.SubmittedAt),
		LastModified:    utc(rec.LastModified),
		ProcessedBy:     rec.ProcessedBy,
		Notes:           rec.Notes,
		RejectionReason: rec.RejectionReason,
		FeeTotal:        rec.FeeTotal,
		FeePaid:         rec.FeePaid,
		Documents:       make([]admission.DocumentRecord, 0, len(rec.Documents)),
		Version:         int(rec.Version),
	}
	if rec.ProcessedAt != nil {
		t := utc(*rec.ProcessedAt)
		app.ProcessedAt = &t
	}
	if rec.Score != nil {
		score := int(*rec.Score)
		app.Score = &score
	}
	for _, d := range rec.Documents {
		doc := admission.DocumentRecord{
			DocumentTypeID: d.DocumentTypeID,
			Label:          d.Label,
			Required:       d.Required,
			Submitted:      d.Submitted,
			Verified:       d.Verified,
			ReviewNotes:    d.ReviewNotes,
		}
		if d.File != nil {
			doc.FileRef = &admission.FileRef{URL: d.File.URL, Size: d.File.Size, UploadedAt: utc(d.File.UploadedAt)}
		}
		app.Documents = append(app.Documents, doc)
	}
	return app, nil
}

func utc(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return t.UTC()
}
