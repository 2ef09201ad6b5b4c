package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/backoffice/core"
	"github.com/trezcool/backoffice/core/admission"
)

type applicationRepository struct {
	db *applicationTable
}

var _ admission.Repository = (*applicationRepository)(nil) // interface compliance check

func NewApplicationRepository(db *DB) admission.Repository {
	return &applicationRepository{db: db.applications}
}

func (repo *applicationRepository) query() []admission.Application {
	apps := make([]admission.Application, 0, len(repo.db.order))
	for _, id := range repo.db.order {
		apps = append(apps, repo.db.table[id].Clone())
	}
	return apps
}

func (repo *applicationRepository) QueryApplications(ctx context.Context, filter *admission.QueryFilter, ordering []core.DBOrdering) ([]admission.Application, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	repo.db.RLock()
	apps := repo.query()
	repo.db.RUnlock()

	if filter != nil && !filter.IsEmpty() {
		apps = admission.Filter(apps, filter.Predicate())
	}
	if len(ordering) == 0 {
		ordering = admission.DefaultOrdering
	}
	admission.Sort(apps, ordering)
	return apps, nil
}

func (repo *applicationRepository) GetApplication(ctx context.Context, id string) (admission.Application, error) {
	if err := ctx.Err(); err != nil {
		return admission.Application{}, err
	}
	repo.db.RLock()
	defer repo.db.RUnlock()

	if app, ok := repo.db.table[id]; ok {
		return app.Clone(), nil
	}
	return admission.Application{}, core.NewNotFoundError("application", id)
}

func (repo *applicationRepository) SaveApplication(ctx context.Context, app admission.Application) (admission.Application, error) {
	if err := ctx.Err(); err != nil {
		return admission.Application{}, err
	}
	repo.db.Lock()
	defer repo.db.Unlock()

	if app.Version == 0 {
		return repo.insert(app)
	}

	stored, ok := repo.db.table[app.ID]
	if !ok {
		return admission.Application{}, core.NewNotFoundError("application", app.ID)
	}
	if stored.Version != app.Version {
		return admission.Application{}, core.ErrConflict
	}
	saved := app.Clone()
	saved.Version++
	repo.db.table[app.ID] = &saved
	return saved.Clone(), nil
}

func (repo *applicationRepository) insert(app admission.Application) (admission.Application, error) {
	if app.ID == "" {
		app.ID = uuid.New().String()
	}
	if _, exists := repo.db.table[app.ID]; exists {
		return admission.Application{}, core.ErrConflict
	}
	for _, other := range repo.db.table {
		if other.ReferenceNumber == app.ReferenceNumber {
			return admission.Application{}, core.NewFieldValidationError("reference_number", "an application with this reference number already exists")
		}
	}

	saved := app.Clone()
	saved.Version = 1
	repo.db.table[saved.ID] = &saved
	repo.db.order = append(repo.db.order, saved.ID)
	return saved.Clone(), nil
}
