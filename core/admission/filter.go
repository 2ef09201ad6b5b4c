package admission

import (
	"sort"
	"strings"

	"github.com/trezcool/backoffice/core"
)

// Predicate selects applications.
type Predicate func(Application) bool

// And combines predicates; nil predicates are skipped and an empty And matches everything.
func And(preds ...Predicate) Predicate {
	return func(app Application) bool {
		for _, p := range preds {
			if p != nil && !p(app) {
				return false
			}
		}
		return true
	}
}

type QueryFilter struct {
	Status       Status      `query:"status"`
	ProgramID    string      `query:"program_id"`
	ProgramType  ProgramType `query:"program_type"`
	AcademicYear string      `query:"academic_year"`
	Search       string      `query:"search"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Status == "" && qf.ProgramID == "" && qf.ProgramType == "" && qf.AcademicYear == "" && qf.Search == ""
}

func (qf *QueryFilter) Clean() {
	qf.Status = Status(core.CleanString(string(qf.Status), true /* lower */))
	qf.ProgramID = core.CleanString(qf.ProgramID)
	qf.ProgramType = ProgramType(core.CleanString(string(qf.ProgramType), true /* lower */))
	qf.AcademicYear = core.CleanString(qf.AcademicYear)
	qf.Search = core.CleanString(qf.Search)
}

// Predicate AND-combines the set fields of the filter.
// Search does a case-insensitive substring match on the applicant's name and email, the reference number and the ID.
func (qf QueryFilter) Predicate() Predicate {
	var preds []Predicate
	if qf.Status != "" {
		status := qf.Status
		preds = append(preds, func(app Application) bool { return app.Status == status })
	}
	if qf.ProgramID != "" {
		id := qf.ProgramID
		preds = append(preds, func(app Application) bool { return app.ProgramID == id })
	}
	if qf.ProgramType != "" {
		pt := qf.ProgramType
		preds = append(preds, func(app Application) bool { return app.ProgramType == pt })
	}
	if qf.AcademicYear != "" {
		year := qf.AcademicYear
		preds = append(preds, func(app Application) bool { return app.AcademicYear == year })
	}
	if qf.Search != "" {
		preds = append(preds, SearchPredicate(qf.Search))
	}
	return And(preds...)
}

func SearchPredicate(search string) Predicate {
	needle := strings.ToLower(search)
	return func(app Application) bool {
		return strings.Contains(strings.ToLower(app.Applicant.Name), needle) ||
			strings.Contains(strings.ToLower(app.Applicant.Email), needle) ||
			strings.Contains(strings.ToLower(app.ReferenceNumber), needle) ||
			strings.Contains(strings.ToLower(app.ID), needle)
	}
}

// Filter returns the applications matching every predicate, in input order.
func Filter(apps []Application, preds ...Predicate) []Application {
	match := And(preds...)
	filtered := make([]Application, 0, len(apps))
	for _, app := range apps {
		if match(app) {
			filtered = append(filtered, app)
		}
	}
	return filtered
}

// Ordering fields
const (
	OrderSubmittedAt     = "submitted_at"
	OrderLastModified    = "last_modified"
	OrderName            = "name"
	OrderReferenceNumber = "reference_number"
	OrderStatus          = "status"
	OrderProgramName     = "program_name"
	OrderID              = "id"
)

// DefaultOrdering is used when a query names no ordering: oldest submissions first, then by ID.
var DefaultOrdering = []core.DBOrdering{
	{Field: OrderSubmittedAt, Ascending: true},
	{Field: OrderID, Ascending: true},
}

var orderingFields = map[string]func(a, b Application) int{
	OrderSubmittedAt:     func(a, b Application) int { return a.SubmittedAt.Compare(b.SubmittedAt) },
	OrderLastModified:    func(a, b Application) int { return a.LastModified.Compare(b.LastModified) },
	OrderName:            func(a, b Application) int { return compareFold(a.Applicant.Name, b.Applicant.Name) },
	OrderReferenceNumber: func(a, b Application) int { return strings.Compare(a.ReferenceNumber, b.ReferenceNumber) },
	OrderStatus:          func(a, b Application) int { return strings.Compare(string(a.Status), string(b.Status)) },
	OrderProgramName:     func(a, b Application) int { return compareFold(a.ProgramName, b.ProgramName) },
	OrderID:              func(a, b Application) int { return strings.Compare(a.ID, b.ID) },
}

// IsOrderingField reports whether applications can be sorted by field.
func IsOrderingField(field string) bool {
	_, ok := orderingFields[field]
	return ok
}

// ValidateOrdering rejects unknown ordering fields.
func ValidateOrdering(ordering []core.DBOrdering) error {
	for _, ord := range ordering {
		if !IsOrderingField(ord.Field) {
			return core.NewFieldValidationError("ordering", "cannot order by "+ord.Field)
		}
	}
	return nil
}

// Sort orders apps in place by the given fields; ties keep their input order.
func Sort(apps []Application, ordering []core.DBOrdering) {
	if len(ordering) == 0 {
		return
	}
	sort.SliceStable(apps, func(i, j int) bool {
		for _, ord := range ordering {
			cmp, ok := orderingFields[ord.Field]
			if !ok {
				continue
			}
			c := cmp(apps[i], apps[j])
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

func compareFold(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}
