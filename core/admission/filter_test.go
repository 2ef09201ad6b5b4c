package admission_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/backoffice/core"
	"github.com/trezcool/backoffice/core/admission"
	"github.com/trezcool/backoffice/core/admission/admissiontest"
)

func fixtures() []admission.Application {
	return []admission.Application{
		admissiontest.NewApplication(
			admissiontest.WithID("a1"),
			admissiontest.WithReference("UNI-2026-0001"),
			admissiontest.WithApplicant("Jean Mukendi", "jean@example.com"),
			admissiontest.WithSubmittedAt(admissiontest.Epoch.Add(2*time.Hour)),
		),
		admissiontest.NewApplication(
			admissiontest.WithID("a2"),
			admissiontest.WithReference("FOR-2025-0002"),
			admissiontest.WithApplicant("aline Kabila", "aline@mail.cd"),
			admissiontest.WithProgram("prog-web", "Développement Web", admission.ProgramFormation),
			admissiontest.WithYear("2025-2026"),
			admissiontest.WithStatus(admission.StatusApproved),
			admissiontest.WithSubmittedAt(admissiontest.Epoch),
		),
		admissiontest.NewApplication(
			admissiontest.WithID("a3"),
			admissiontest.WithReference("UNI-2026-0003"),
			admissiontest.WithApplicant("Benoît Tshisekedi", "benoit@example.com"),
			admissiontest.WithStatus(admission.StatusApproved),
			admissiontest.WithSubmittedAt(admissiontest.Epoch.Add(time.Hour)),
		),
	}
}

func appIDs(apps []admission.Application) []string {
	ids := make([]string, 0, len(apps))
	for _, app := range apps {
		ids = append(ids, app.ID)
	}
	return ids
}

func TestQueryFilter_Predicate(t *testing.T) {
	apps := fixtures()

	tests := []struct {
		name   string
		filter admission.QueryFilter
		want   []string
	}{
		{name: "empty filter", filter: admission.QueryFilter{}, want: []string{"a1", "a2", "a3"}},
		{name: "status", filter: admission.QueryFilter{Status: admission.StatusApproved}, want: []string{"a2", "a3"}},
		{name: "program id", filter: admission.QueryFilter{ProgramID: "prog-web"}, want: []string{"a2"}},
		{name: "program type", filter: admission.QueryFilter{ProgramType: admission.ProgramUniversity}, want: []string{"a1", "a3"}},
		{name: "academic year", filter: admission.QueryFilter{AcademicYear: "2025-2026"}, want: []string{"a2"}},
		{name: "search name, case insensitive", filter: admission.QueryFilter{Search: "ALINE"}, want: []string{"a2"}},
		{name: "search email", filter: admission.QueryFilter{Search: "@example.com"}, want: []string{"a1", "a3"}},
		{name: "search reference", filter: admission.QueryFilter{Search: "uni-2026"}, want: []string{"a1", "a3"}},
		{name: "search id", filter: admission.QueryFilter{Search: "a3"}, want: []string{"a3"}},
		{name: "search accents", filter: admission.QueryFilter{Search: "benoît"}, want: []string{"a3"}},
		{
			name:   "combined",
			filter: admission.QueryFilter{Status: admission.StatusApproved, ProgramType: admission.ProgramUniversity},
			want:   []string{"a3"},
		},
		{
			name:   "no match",
			filter: admission.QueryFilter{Status: admission.StatusRejected, Search: "jean"},
			want:   []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := admission.Filter(apps, tt.filter.Predicate())
			assert.Equal(t, tt.want, appIDs(got))

			// filtering is idempotent
			assert.Equal(t, got, admission.Filter(got, tt.filter.Predicate()))
		})
	}
}

func TestFilter_composition(t *testing.T) {
	apps := fixtures()

	tests := []struct {
		name   string
		p1, p2 admission.QueryFilter
	}{
		{
			name: "status then search",
			p1:   admission.QueryFilter{Status: admission.StatusApproved},
			p2:   admission.QueryFilter{Search: "benoît"},
		},
		{
			name: "program id then year",
			p1:   admission.QueryFilter{ProgramID: "prog-info"},
			p2:   admission.QueryFilter{AcademicYear: "2026-2027"},
		},
		{
			name: "program type then status",
			p1:   admission.QueryFilter{ProgramType: admission.ProgramFormation},
			p2:   admission.QueryFilter{Status: admission.StatusPending},
		},
		{
			name: "search then program type",
			p1:   admission.QueryFilter{Search: "example.com"},
			p2:   admission.QueryFilter{ProgramType: admission.ProgramUniversity},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p1, p2 := tt.p1.Predicate(), tt.p2.Predicate()
			chained := admission.Filter(admission.Filter(apps, p1), p2)
			combined := admission.Filter(apps, admission.And(p1, p2))
			if !assert.Equal(t, appIDs(combined), appIDs(chained)) {
				t.Errorf("failed! chained = %v; want %v", appIDs(chained), appIDs(combined))
			}
			assert.Equal(t, appIDs(combined), appIDs(admission.Filter(apps, p2, p1)), "predicate order")
		})
	}
}

func TestFilter_statusAndProgram(t *testing.T) {
	apps := make([]admission.Application, 0, 10)
	for i := 1; i <= 10; i++ {
		status := admission.StatusPending
		if i <= 4 {
			status = admission.StatusApproved
		}
		programID := "prog-2"
		if i >= 3 && i <= 6 {
			programID = "prog-1"
		}
		apps = append(apps, admissiontest.NewApplication(
			admissiontest.WithID(fmt.Sprintf("c%02d", i)),
			admissiontest.WithStatus(status),
			admissiontest.WithProgram(programID, "Licence Informatique", admission.ProgramUniversity),
		))
	}

	got := admission.Filter(apps, admission.QueryFilter{Status: admission.StatusApproved, ProgramID: "prog-1"}.Predicate())
	assert.Equal(t, []string{"c03", "c04"}, appIDs(got))
	assert.Len(t, admission.Filter(apps, admission.QueryFilter{Status: admission.StatusApproved}.Predicate()), 4)
	assert.Len(t, admission.Filter(apps, admission.QueryFilter{ProgramID: "prog-1"}.Predicate()), 4)
}

func TestQueryFilter_Clean(t *testing.T) {
	qf := admission.QueryFilter{
		Status:      " Approved ",
		ProgramType: "FabLab",
		Search:      "  jean ",
	}
	qf.Clean()
	assert.Equal(t, admission.QueryFilter{Status: admission.StatusApproved, ProgramType: admission.ProgramFablab, Search: "jean"}, qf)
	assert.False(t, qf.IsEmpty())
	assert.True(t, (&admission.QueryFilter{}).IsEmpty())
}

func TestAnd(t *testing.T) {
	yes := func(admission.Application) bool { return true }
	no := func(admission.Application) bool { return false }
	app := admissiontest.NewApplication()

	assert.True(t, admission.And()(app))
	assert.True(t, admission.And(yes, nil)(app))
	assert.False(t, admission.And(yes, no)(app))
}

func TestSort(t *testing.T) {
	tests := []struct {
		name     string
		ordering []core.DBOrdering
		want     []string
	}{
		{name: "no ordering keeps input", ordering: nil, want: []string{"a1", "a2", "a3"}},
		{name: "submitted asc", ordering: []core.DBOrdering{{Field: admission.OrderSubmittedAt, Ascending: true}}, want: []string{"a2", "a3", "a1"}},
		{name: "submitted desc", ordering: []core.DBOrdering{{Field: admission.OrderSubmittedAt}}, want: []string{"a1", "a3", "a2"}},
		{name: "id desc", ordering: []core.DBOrdering{{Field: admission.OrderID}}, want: []string{"a3", "a2", "a1"}},
		{name: "name, case insensitive", ordering: []core.DBOrdering{{Field: admission.OrderName, Ascending: true}}, want: []string{"a2", "a3", "a1"}},
		{
			name: "status then reference desc",
			ordering: []core.DBOrdering{
				{Field: admission.OrderStatus, Ascending: true},
				{Field: admission.OrderReferenceNumber},
			},
			want: []string{"a3", "a2", "a1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apps := fixtures()
			admission.Sort(apps, tt.ordering)
			assert.Equal(t, tt.want, appIDs(apps))
		})
	}
}

func TestValidateOrdering(t *testing.T) {
	assert.NoError(t, admission.ValidateOrdering(core.ParseOrdering("-submitted_at,name,program_name")))

	err := admission.ValidateOrdering(core.ParseOrdering("name,-password"))
	assert.True(t, core.IsValidation(err))
	assert.EqualError(t, err, "cannot order by password")
}
