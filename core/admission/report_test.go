package admission_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/backoffice/core/admission"
	"github.com/trezcool/backoffice/core/admission/admissiontest"
)

func TestWriteCSV(t *testing.T) {
	apps := []admission.Application{
		admissiontest.NewApplication(admissiontest.WithFees(20000, 50000)),
		admissiontest.NewApplication(
			admissiontest.WithID("app-2"),
			admissiontest.WithReference("FAB-2026-0002"),
			admissiontest.WithApplicant("Kabila, Aline", "aline@example.com"),
			admissiontest.WithProgram("fablab", "FabLab \"Kin\"", admission.ProgramFablab),
			admissiontest.WithStatus(admission.StatusWaitlisted),
		),
	}

	var buf bytes.Buffer
	require.NoError(t, admission.WriteCSV(&buf, apps))

	want := "ID,Nom Candidat,Email,Téléphone,Formation,Type,Année Académique,Statut,Date Candidature,Frais Payés,Frais Totaux\n" +
		"UNI-2026-0001,Jean Mukendi,jean.mukendi@example.com,+243 810 000 001,Licence Informatique,university,2026-2027,pending,2026-03-02,20000,50000\n" +
		"FAB-2026-0002,\"Kabila, Aline\",aline@example.com,+243 810 000 001,\"FabLab \"\"Kin\"\"\",fablab,2026-2027,waitlisted,2026-03-02,0,50000\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSV_empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, admission.WriteCSV(&buf, nil))
	assert.Equal(t, "ID,Nom Candidat,Email,Téléphone,Formation,Type,Année Académique,Statut,Date Candidature,Frais Payés,Frais Totaux\n", buf.String())
}

func TestToTabular(t *testing.T) {
	app := admissiontest.NewApplication(admissiontest.WithSubmittedAt(admissiontest.Epoch.Add(20 * time.Hour)))

	rows := admission.ToTabular([]admission.Application{app})
	require.Len(t, rows, 1)
	assert.Len(t, rows[0], len(admission.ExportHeader))
	assert.Equal(t, "2026-03-03", rows[0][8])
	assert.Empty(t, admission.ToTabular(nil))
}

func TestAcceptanceRate(t *testing.T) {
	tests := []struct {
		approved, total int
		want            float64
	}{
		{0, 0, 0},
		{0, 5, 0},
		{1, 3, 33.3},
		{2, 3, 66.7},
		{1, 8, 12.5},
		{5, 5, 100},
	}
	for _, tt := range tests {
		if got := admission.AcceptanceRate(tt.approved, tt.total); got != tt.want {
			t.Errorf("failed! AcceptanceRate(%d, %d) = %v; want %v", tt.approved, tt.total, got, tt.want)
		}
	}
}

func TestAggregate(t *testing.T) {
	apps := fixtures()
	apps = append(apps,
		admissiontest.NewApplication(
			admissiontest.WithID("a4"),
			admissiontest.WithStatus(admission.StatusUnderReview),
			admissiontest.WithFees(50000, 50000),
		),
		admissiontest.NewApplication(
			admissiontest.WithID("a5"),
			admissiontest.WithStatus(admission.StatusRejected),
		),
	)

	stats := admission.Aggregate(apps)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 2, stats.Approved)
	assert.Equal(t, 1, stats.Rejected)
	assert.Equal(t, 0, stats.Waitlisted)
	assert.Equal(t, 2, stats.Pending)
	assert.Equal(t, 40.0, stats.AcceptanceRate)
	assert.Equal(t, int64(50000), stats.FeesPaid)
	assert.Equal(t, int64(250000), stats.FeesTotal)
	assert.Equal(t, map[admission.Status]int{
		admission.StatusPending:     1,
		admission.StatusUnderReview: 1,
		admission.StatusApproved:    2,
		admission.StatusRejected:    1,
		admission.StatusWaitlisted:  0,
		admission.StatusArchived:    0,
	}, stats.ByStatus)

	assert.Equal(t, []admission.ProgramStatistics{
		{ProgramID: "prog-info", ProgramName: "Licence Informatique", ProgramType: "university", Total: 4, Approved: 1, AcceptanceRate: 25},
		{ProgramID: "prog-web", ProgramName: "Développement Web", ProgramType: "formation", Total: 1, Approved: 1, AcceptanceRate: 100},
	}, stats.ByProgram)
}

func TestAggregate_empty(t *testing.T) {
	stats := admission.Aggregate(nil)
	assert.Equal(t, 0, stats.Total)
	assert.Equal(t, 0.0, stats.AcceptanceRate)
	assert.Empty(t, stats.ByProgram)
	assert.Len(t, stats.ByStatus, len(admission.Statuses))
}
