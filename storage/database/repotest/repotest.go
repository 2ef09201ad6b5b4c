// Package repotest holds the behaviour every admission.Repository implementation must share.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/backoffice/core"
	"github.com/trezcool/backoffice/core/admission"
	"github.com/trezcool/backoffice/core/admission/admissiontest"
)

// Run exercises repo; newRepo must return an empty repository.
func Run(t *testing.T, newRepo func(t *testing.T) admission.Repository) {
	t.Run("SaveAndGet", func(t *testing.T) { testSaveAndGet(t, newRepo(t)) })
	t.Run("GenerateID", func(t *testing.T) { testGenerateID(t, newRepo(t)) })
	t.Run("DuplicateReference", func(t *testing.T) { testDuplicateReference(t, newRepo(t)) })
	t.Run("GetUnknown", func(t *testing.T) { testGetUnknown(t, newRepo(t)) })
	t.Run("Update", func(t *testing.T) { testUpdate(t, newRepo(t)) })
	t.Run("StaleVersion", func(t *testing.T) { testStaleVersion(t, newRepo(t)) })
	t.Run("UpdateUnknown", func(t *testing.T) { testUpdateUnknown(t, newRepo(t)) })
	t.Run("Query", func(t *testing.T) { testQuery(t, newRepo(t)) })
	t.Run("QueryOrdering", func(t *testing.T) { testQueryOrdering(t, newRepo(t)) })
	t.Run("DefaultOrderingTies", func(t *testing.T) { testDefaultOrderingTies(t, newRepo(t)) })
}

func save(t *testing.T, repo admission.Repository, app admission.Application) admission.Application {
	saved, err := repo.SaveApplication(context.Background(), app)
	if err != nil {
		t.Fatalf("SaveApplication() failed: %v", err)
	}
	return saved
}

func testSaveAndGet(t *testing.T, repo admission.Repository) {
	score := 72
	processed := admissiontest.Epoch.Add(time.Hour)
	app := admissiontest.NewApplication(admissiontest.AllSubmitted(true))
	app.Score = &score
	app.ProcessedAt = &processed
	app.ProcessedBy = admissiontest.Reviewer.ID
	app.Applicant.DateOfBirth = time.Date(2004, time.May, 17, 0, 0, 0, 0, time.UTC)
	app.Documents[1].Verified = false
	app.Documents[1].ReviewNotes = "illisible"
	app.Version = 0

	saved := save(t, repo, app)
	assert.Equal(t, 1, saved.Version)
	assert.Equal(t, app.ID, saved.ID)

	got, err := repo.GetApplication(context.Background(), app.ID)
	require.NoError(t, err)
	assert.Equal(t, saved, got)
	assert.Equal(t, app.Documents, got.Documents)
	if assert.NotNil(t, got.Score) {
		assert.Equal(t, 72, *got.Score)
	}
	assert.True(t, got.SubmittedAt.Equal(admissiontest.Epoch))
	assert.Equal(t, 100, got.Completeness())
}

func testGenerateID(t *testing.T, repo admission.Repository) {
	app := admissiontest.NewApplication(admissiontest.WithID(""))
	saved := save(t, repo, app)
	assert.NotEmpty(t, saved.ID)

	got, err := repo.GetApplication(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.ReferenceNumber, got.ReferenceNumber)
}

func testDuplicateReference(t *testing.T, repo admission.Repository) {
	save(t, repo, admissiontest.NewApplication())
	_, err := repo.SaveApplication(context.Background(), admissiontest.NewApplication(admissiontest.WithID("app-2")))
	if !core.IsValidation(err) {
		t.Errorf("failed! err = %v; want a validation error", err)
	}
}

func testGetUnknown(t *testing.T, repo admission.Repository) {
	_, err := repo.GetApplication(context.Background(), "nope")
	if !core.IsNotFound(err) {
		t.Errorf("failed! err = %v; want a not found error", err)
	}
}

func testUpdate(t *testing.T, repo admission.Repository) {
	saved := save(t, repo, admissiontest.NewApplication())

	updated, err := admission.Transition(saved, admission.StatusUnderReview, admissiontest.Reviewer,
		admission.TransitionOptions{Comment: "dossier reçu"}, admissiontest.Epoch.Add(time.Hour))
	require.NoError(t, err)
	updated, err = admission.SubmitDocument(updated, "photo", admission.FileRef{URL: "gs://uploads/photo.jpg", Size: 42}, admissiontest.Epoch)
	require.NoError(t, err)

	second := save(t, repo, updated)
	assert.Equal(t, 2, second.Version)

	got, err := repo.GetApplication(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.Equal(t, admission.StatusUnderReview, got.Status)
	assert.Equal(t, updated.Notes, got.Notes)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, len(saved.Documents), len(got.Documents))
	for _, doc := range got.Documents {
		if doc.DocumentTypeID == "photo" {
			assert.True(t, doc.Submitted)
			if assert.NotNil(t, doc.FileRef) {
				assert.Equal(t, int64(42), doc.FileRef.Size)
			}
		}
	}
}

func testStaleVersion(t *testing.T, repo admission.Repository) {
	saved := save(t, repo, admissiontest.NewApplication())

	first := saved
	first.Notes = "first"
	save(t, repo, first)

	second := saved
	second.Notes = "second"
	_, err := repo.SaveApplication(context.Background(), second)
	if err != core.ErrConflict {
		t.Errorf("failed! err = %v; want %v", err, core.ErrConflict)
	}

	got, err := repo.GetApplication(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Notes)
}

func testUpdateUnknown(t *testing.T, repo admission.Repository) {
	app := admissiontest.NewApplication()
	app.Version = 3
	_, err := repo.SaveApplication(context.Background(), app)
	if !core.IsNotFound(err) {
		t.Errorf("failed! err = %v; want a not found error", err)
	}
}

func seed(t *testing.T, repo admission.Repository) []admission.Application {
	apps := []admission.Application{
		admissiontest.NewApplication(
			admissiontest.WithID("a1"), admissiontest.WithReference("UNI-2026-0001"),
			admissiontest.WithApplicant("Jean Mukendi", "jean@example.com"),
			admissiontest.WithSubmittedAt(admissiontest.Epoch),
		),
		admissiontest.NewApplication(
			admissiontest.WithID("a2"), admissiontest.WithReference("FOR-2026-0002"),
			admissiontest.WithApplicant("Aline Kabila", "aline@example.com"),
			admissiontest.WithProgram("prog-web", "Développement Web", admission.ProgramFormation),
			admissiontest.WithStatus(admission.StatusApproved),
			admissiontest.WithSubmittedAt(admissiontest.Epoch.Add(2*time.Hour)),
		),
		admissiontest.NewApplication(
			admissiontest.WithID("a3"), admissiontest.WithReference("UNI-2026-0003"),
			admissiontest.WithApplicant("Patrick Ilunga", "p.ilunga@example.com"),
			admissiontest.WithStatus(admission.StatusApproved),
			admissiontest.WithYear("2025-2026"),
			admissiontest.WithSubmittedAt(admissiontest.Epoch.Add(time.Hour)),
		),
	}
	for i := range apps {
		apps[i] = save(t, repo, apps[i])
	}
	return apps
}

func ids(apps []admission.Application) []string {
	out := make([]string, 0, len(apps))
	for _, app := range apps {
		out = append(out, app.ID)
	}
	return out
}

func testQuery(t *testing.T, repo admission.Repository) {
	seed(t, repo)

	tests := []struct {
		name    string
		filter  *admission.QueryFilter
		wantIDs []string
	}{
		{name: "nil filter", filter: nil, wantIDs: []string{"a1", "a3", "a2"}},
		{name: "empty filter", filter: &admission.QueryFilter{}, wantIDs: []string{"a1", "a3", "a2"}},
		{name: "status", filter: &admission.QueryFilter{Status: admission.StatusApproved}, wantIDs: []string{"a3", "a2"}},
		{name: "program type", filter: &admission.QueryFilter{ProgramType: admission.ProgramFormation}, wantIDs: []string{"a2"}},
		{name: "program id", filter: &admission.QueryFilter{ProgramID: "prog-info"}, wantIDs: []string{"a1", "a3"}},
		{name: "year", filter: &admission.QueryFilter{AcademicYear: "2025-2026"}, wantIDs: []string{"a3"}},
		{name: "search name", filter: &admission.QueryFilter{Search: "KABILA"}, wantIDs: []string{"a2"}},
		{name: "search email", filter: &admission.QueryFilter{Search: "p.ilunga@"}, wantIDs: []string{"a3"}},
		{name: "search reference", filter: &admission.QueryFilter{Search: "uni-2026"}, wantIDs: []string{"a1", "a3"}},
		{name: "combined", filter: &admission.QueryFilter{Status: admission.StatusApproved, ProgramID: "prog-info"}, wantIDs: []string{"a3"}},
		{name: "no match", filter: &admission.QueryFilter{Search: "100%"}, wantIDs: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apps, err := repo.QueryApplications(context.Background(), tt.filter, nil)
			require.NoError(t, err)
			if got := ids(apps); !assert.Equal(t, tt.wantIDs, got) {
				t.Errorf("failed! ids = %v; want %v", got, tt.wantIDs)
			}
		})
	}
}

func testQueryOrdering(t *testing.T, repo admission.Repository) {
	seed(t, repo)

	tests := []struct {
		name     string
		ordering []core.DBOrdering
		wantIDs  []string
	}{
		{name: "name asc", ordering: []core.DBOrdering{{Field: admission.OrderName, Ascending: true}}, wantIDs: []string{"a2", "a1", "a3"}},
		{name: "submitted desc", ordering: []core.DBOrdering{{Field: admission.OrderSubmittedAt}}, wantIDs: []string{"a2", "a3", "a1"}},
		{
			name: "status then reference",
			ordering: []core.DBOrdering{
				{Field: admission.OrderStatus, Ascending: true},
				{Field: admission.OrderReferenceNumber},
			},
			wantIDs: []string{"a3", "a2", "a1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apps, err := repo.QueryApplications(context.Background(), nil, tt.ordering)
			require.NoError(t, err)
			assert.Equal(t, tt.wantIDs, ids(apps))
		})
	}
}

func testDefaultOrderingTies(t *testing.T, repo admission.Repository) {
	// same submission time, inserted out of ID order
	for _, id := range []string{"t3", "t1", "t2"} {
		save(t, repo, admissiontest.NewApplication(
			admissiontest.WithID(id),
			admissiontest.WithReference("UNI-2026-"+id),
			admissiontest.WithSubmittedAt(admissiontest.Epoch),
		))
	}

	apps, err := repo.QueryApplications(context.Background(), nil, nil)
	require.NoError(t, err)
	if got, want := ids(apps), []string{"t1", "t2", "t3"}; !assert.Equal(t, want, got) {
		t.Errorf("failed! ids = %v; want %v", got, want)
	}
}
