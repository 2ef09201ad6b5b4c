package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/backoffice/core"
	"github.com/trezcool/backoffice/core/admission"
)

type (
	applicationRow struct {
		ID                   string      `db:"id"`
		ReferenceNumber      string      `db:"reference_number"`
		ApplicantName        string      `db:"applicant_name"`
		ApplicantEmail       string      `db:"applicant_email"`
		ApplicantPhone       string      `db:"applicant_phone"`
		ApplicantDateOfBirth null.Time   `db:"applicant_date_of_birth"`
		ApplicantNationality string      `db:"applicant_nationality"`
		ApplicantAddress     string      `db:"applicant_address"`
		ProgramID            string      `db:"program_id"`
		ProgramName          string      `db:"program_name"`
		ProgramType          string      `db:"program_type"`
		AcademicYear         string      `db:"academic_year"`
		Status               string      `db:"status"`
		SubmittedAt          null.Time   `db:"submitted_at"`
		LastModified         null.Time   `db:"last_modified"`
		ProcessedBy          string      `db:"processed_by"`
		ProcessedAt          null.Time   `db:"processed_at"`
		Score                null.Int    `db:"score"`
		Notes                string      `db:"notes"`
		RejectionReason      string      `db:"rejection_reason"`
		FeeTotal             int64       `db:"fee_total"`
		FeePaid              int64       `db:"fee_paid"`
		Version              int         `db:"version"`
	}

	documentRow struct {
		ApplicationID  string      `db:"application_id"`
		Position       int         `db:"position"`
		DocumentTypeID string      `db:"document_type_id"`
		Label          string      `db:"label"`
		Required       bool        `db:"required"`
		Submitted      bool        `db:"submitted"`
		FileURL        null.String `db:"file_url"`
		FileSize       null.Int64  `db:"file_size"`
		FileUploadedAt null.Time   `db:"file_uploaded_at"`
		Verified       bool        `db:"verified"`
		ReviewNotes    string      `db:"review_notes"`
	}
)

const (
	applicationColumns = `id, reference_number, applicant_name, applicant_email, applicant_phone, applicant_date_of_birth,
	applicant_nationality, applicant_address, program_id, program_name, program_type, academic_year, status,
	submitted_at, last_modified, processed_by, processed_at, score, notes, rejection_reason, fee_total, fee_paid, version`

	insertApplication = `INSERT INTO applications (` + applicationColumns + `) VALUES (
	:id, :reference_number, :applicant_name, :applicant_email, :applicant_phone, :applicant_date_of_birth,
	:applicant_nationality, :applicant_address, :program_id, :program_name, :program_type, :academic_year, :status,
	:submitted_at, :last_modified, :processed_by, :processed_at, :score, :notes, :rejection_reason, :fee_total, :fee_paid, 1)`

	updateApplication = `UPDATE applications SET
	reference_number = :reference_number, applicant_name = :applicant_name, applicant_email = :applicant_email,
	applicant_phone = :applicant_phone, applicant_date_of_birth = :applicant_date_of_birth,
	applicant_nationality = :applicant_nationality, applicant_address = :applicant_address,
	program_id = :program_id, program_name = :program_name, program_type = :program_type,
	academic_year = :academic_year, status = :status, submitted_at = :submitted_at, last_modified = :last_modified,
	processed_by = :processed_by, processed_at = :processed_at, score = :score, notes = :notes,
	rejection_reason = :rejection_reason, fee_total = :fee_total, fee_paid = :fee_paid, version = version + 1
	WHERE id = :id AND version = :version`

	insertDocument = `INSERT INTO application_documents (application_id, position, document_type_id, label, required,
	submitted, file_url, file_size, file_uploaded_at, verified, review_notes) VALUES (:application_id, :position,
	:document_type_id, :label, :required, :submitted, :file_url, :file_size, :file_uploaded_at, :verified, :review_notes)`
)

var orderingColumns = map[string]string{
	admission.OrderSubmittedAt:     "submitted_at",
	admission.OrderLastModified:    "last_modified",
	admission.OrderName:            "LOWER(applicant_name)",
	admission.OrderReferenceNumber: "reference_number",
	admission.OrderStatus:          "status",
	admission.OrderProgramName:     "LOWER(program_name)",
	admission.OrderID:              "id",
}

type applicationRepository struct {
	db *sqlx.DB
}

var _ admission.Repository = (*applicationRepository)(nil) // interface compliance check

func NewApplicationRepository(db *sqlx.DB) admission.Repository {
	return &applicationRepository{db: db}
}

func (repo *applicationRepository) QueryApplications(ctx context.Context, filter *admission.QueryFilter, ordering []core.DBOrdering) ([]admission.Application, error) {
	query, args := buildQuery(filter, ordering)

	var rows []applicationRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "selecting applications")
	}
	if len(rows) == 0 {
		return []admission.Application{}, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	docs, err := repo.documents(ctx, repo.db, ids...)
	if err != nil {
		return nil, err
	}

	apps := make([]admission.Application, 0, len(rows))
	for _, row := range rows {
		apps = append(apps, row.unboil(docs[row.ID]))
	}
	return apps, nil
}

func buildQuery(filter *admission.QueryFilter, ordering []core.DBOrdering) (string, []interface{}) {
	var conds []string
	var args []interface{}
	if filter != nil {
		if filter.Status != "" {
			conds = append(conds, "status = ?")
			args = append(args, string(filter.Status))
		}
		if filter.ProgramID != "" {
			conds = append(conds, "program_id = ?")
			args = append(args, filter.ProgramID)
		}
		if filter.ProgramType != "" {
			conds = append(conds, "program_type = ?")
			args = append(args, string(filter.ProgramType))
		}
		if filter.AcademicYear != "" {
			conds = append(conds, "academic_year = ?")
			args = append(args, filter.AcademicYear)
		}
		if filter.Search != "" {
			conds = append(conds, `(LOWER(applicant_name) LIKE ? ESCAPE '\' OR LOWER(applicant_email) LIKE ? ESCAPE '\'
	OR LOWER(reference_number) LIKE ? ESCAPE '\' OR LOWER(id) LIKE ? ESCAPE '\')`)
			pattern := "%" + escapeLike(strings.ToLower(filter.Search)) + "%"
			args = append(args, pattern, pattern, pattern, pattern)
		}
	}

	query := "SELECT " + applicationColumns + " FROM applications"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	terms := make([]string, 0, len(ordering)+2)
	for _, ord := range ordering {
		if col, ok := orderingColumns[ord.Field]; ok {
			terms = append(terms, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
		}
	}
	terms = append(terms, "submitted_at ASC", "id ASC")
	return query + " ORDER BY " + strings.Join(terms, ", "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (repo *applicationRepository) documents(ctx context.Context, q sqlx.QueryerContext, ids ...string) (map[string][]admission.DocumentRecord, error) {
	query, args, err := sqlx.In(`SELECT application_id, position, document_type_id, label, required, submitted, file_url,
	file_size, file_uploaded_at, verified, review_notes FROM application_documents
	WHERE application_id IN (?) ORDER BY application_id, position`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "building documents query")
	}

	var rows []documentRow
	if err = sqlx.SelectContext(ctx, q, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "selecting documents")
	}
	docs := make(map[string][]admission.DocumentRecord, len(ids))
	for _, row := range rows {
		docs[row.ApplicationID] = append(docs[row.ApplicationID], row.unboil())
	}
	return docs, nil
}

func (repo *applicationRepository) GetApplication(ctx context.Context, id string) (admission.Application, error) {
	var row applicationRow
	query := repo.db.Rebind("SELECT " + applicationColumns + " FROM applications WHERE id = ?")
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return admission.Application{}, core.NewNotFoundError("application", id)
		}
		return admission.Application{}, errors.Wrap(err, "selecting application")
	}

	docs, err := repo.documents(ctx, repo.db, id)
	if err != nil {
		return admission.Application{}, err
	}
	return row.unboil(docs[id]), nil
}

func (repo *applicationRepository) SaveApplication(ctx context.Context, app admission.Application) (saved admission.Application, err error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return admission.Application{}, errors.Wrap(err, "starting transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if app.Version == 0 {
		app, err = repo.insert(ctx, tx, app)
	} else {
		app, err = repo.update(ctx, tx, app)
	}
	if err != nil {
		return admission.Application{}, err
	}

	if err = repo.replaceDocuments(ctx, tx, app); err != nil {
		return admission.Application{}, err
	}
	if err = tx.Commit(); err != nil {
		return admission.Application{}, errors.Wrap(err, "committing transaction")
	}
	return app, nil
}

func (repo *applicationRepository) count(ctx context.Context, tx *sqlx.Tx, where string, arg string) (int, error) {
	var n int
	err := tx.GetContext(ctx, &n, tx.Rebind("SELECT COUNT(*) FROM applications WHERE "+where), arg)
	return n, err
}

func (repo *applicationRepository) insert(ctx context.Context, tx *sqlx.Tx, app admission.Application) (admission.Application, error) {
	if app.ID == "" {
		app.ID = uuid.New().String()
	}

	n, err := repo.count(ctx, tx, "id = ?", app.ID)
	if err != nil {
		return app, errors.Wrap(err, "checking id")
	}
	if n > 0 {
		return app, core.ErrConflict
	}
	if n, err = repo.count(ctx, tx, "reference_number = ?", app.ReferenceNumber); err != nil {
		return app, errors.Wrap(err, "checking reference number")
	}
	if n > 0 {
		return app, core.NewFieldValidationError("reference_number", "an application with this reference number already exists")
	}

	if _, err = tx.NamedExecContext(ctx, insertApplication, boilApplication(app)); err != nil {
		return app, errors.Wrap(err, "inserting application")
	}
	app.Version = 1
	return app, nil
}

func (repo *applicationRepository) update(ctx context.Context, tx *sqlx.Tx, app admission.Application) (admission.Application, error) {
	res, err := tx.NamedExecContext(ctx, updateApplication, boilApplication(app))
	if err != nil {
		return app, errors.Wrap(err, "updating application")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return app, errors.Wrap(err, "updating application")
	}
	if affected == 0 {
		n, err := repo.count(ctx, tx, "id = ?", app.ID)
		if err != nil {
			return app, errors.Wrap(err, "checking id")
		}
		if n == 0 {
			return app, core.NewNotFoundError("application", app.ID)
		}
		return app, core.ErrConflict
	}
	app.Version++
	return app, nil
}

func (repo *applicationRepository) replaceDocuments(ctx context.Context, tx *sqlx.Tx, app admission.Application) error {
	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM application_documents WHERE application_id = ?"), app.ID); err != nil {
		return errors.Wrap(err, "deleting documents")
	}
	for i, doc := range app.Documents {
		if _, err := tx.NamedExecContext(ctx, insertDocument, boilDocument(app.ID, i, doc)); err != nil {
			return errors.Wrapf(err, "inserting document %s", doc.DocumentTypeID)
		}
	}
	return nil
}

func nullTime(t *time.Time) null.Time {
	if t == nil || t.IsZero() {
		return null.Time{}
	}
	return null.TimeFrom(t.UTC())
}

func boilApplication(app admission.Application) applicationRow {
	row := applicationRow{
		ID:                   app.ID,
		ReferenceNumber:      app.ReferenceNumber,
		ApplicantName:        app.Applicant.Name,
		ApplicantEmail:       app.Applicant.Email,
		ApplicantPhone:       app.Applicant.Phone,
		ApplicantDateOfBirth: nullTime(&app.Applicant.DateOfBirth),
		ApplicantNationality: app.Applicant.Nationality,
		ApplicantAddress:     app.Applicant.Address,
		ProgramID:            app.ProgramID,
		ProgramName:          app.ProgramName,
		ProgramType:          string(app.ProgramType),
		AcademicYear:         app.AcademicYear,
		Status:               string(app.Status),
		SubmittedAt:          null.TimeFrom(app.SubmittedAt.UTC()),
		LastModified:         null.TimeFrom(app.LastModified.UTC()),
		ProcessedBy:          app.ProcessedBy,
		ProcessedAt:          nullTime(app.ProcessedAt),
		Notes:                app.Notes,
		RejectionReason:      app.RejectionReason,
		FeeTotal:             app.FeeTotal,
		FeePaid:              app.FeePaid,
		Version:              app.Version,
	}
	if app.Score != nil {
		row.Score = null.IntFrom(*app.Score)
	}
	return row
}

func (row applicationRow) unboil(docs []admission.DocumentRecord) admission.Application {
	app := admission.Application{
		ID:              row.ID,
		ReferenceNumber: row.ReferenceNumber,
		Applicant: admission.Applicant{
			Name:        row.ApplicantName,
			Email:       row.ApplicantEmail,
			Phone:       row.ApplicantPhone,
			Nationality: row.ApplicantNationality,
			Address:     row.ApplicantAddress,
		},
		ProgramID:       row.ProgramID,
		ProgramName:     row.ProgramName,
		ProgramType:     admission.ProgramType(row.ProgramType),
		AcademicYear:    row.AcademicYear,
		Status:          admission.Status(row.Status),
		SubmittedAt:     row.SubmittedAt.Time.UTC(),
		LastModified:    row.LastModified.Time.UTC(),
		ProcessedBy:     row.ProcessedBy,
		Notes:           row.Notes,
		RejectionReason: row.RejectionReason,
		FeeTotal:        row.FeeTotal,
		FeePaid:         row.FeePaid,
		Documents:       docs,
		Version:         row.Version,
	}
	if row.ApplicantDateOfBirth.Valid {
		app.Applicant.DateOfBirth = row.ApplicantDateOfBirth.Time.UTC()
	}
	if row.ProcessedAt.Valid {
		t := row.ProcessedAt.Time.UTC()
		app.ProcessedAt = &t
	}
	if row.Score.Valid {
		score := row.Score.Int
		app.Score = &score
	}
	if app.Documents == nil {
		app.Documents = []admission.DocumentRecord{}
	}
	return app
}

func boilDocument(appID string, position int, doc admission.DocumentRecord) documentRow {
	row := documentRow{
		ApplicationID:  appID,
		Position:       position,
		DocumentTypeID: doc.DocumentTypeID,
		Label:          doc.Label,
		Required:       doc.Required,
		Submitted:      doc.Submitted,
		Verified:       doc.Verified,
		ReviewNotes:    doc.ReviewNotes,
	}
	if ref := doc.FileRef; ref != nil {
		row.FileURL = null.StringFrom(ref.URL)
		row.FileSize = null.Int64From(ref.Size)
		row.FileUploadedAt = nullTime(&ref.UploadedAt)
	}
	return row
}

func (row documentRow) unboil() admission.DocumentRecord {
	doc := admission.DocumentRecord{
		DocumentTypeID: row.DocumentTypeID,
		Label:          row.Label,
		Required:       row.Required,
		Submitted:      row.Submitted,
		Verified:       row.Verified,
		ReviewNotes:    row.ReviewNotes,
	}
	if row.FileURL.Valid {
		doc.FileRef = &admission.FileRef{
			URL:        row.FileURL.String,
			Size:       row.FileSize.Int64,
			UploadedAt: row.FileUploadedAt.Time.UTC(),
		}
	}
	return doc
}
