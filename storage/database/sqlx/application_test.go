package sqlxrepos_test

import (
	"testing"

	"github.com/pressly/goose/v3"

	"github.com/trezcool/backoffice/core/admission"
	"github.com/trezcool/backoffice/storage/database"
	"github.com/trezcool/backoffice/storage/database/repotest"
	"github.com/trezcool/backoffice/storage/database/sqlx"
)

func newRepo(t *testing.T) admission.Repository {
	goose.SetLogger(goose.NopLogger())

	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	return sqlxrepos.NewApplicationRepository(db)
}

func TestApplicationRepository(t *testing.T) {
	repotest.Run(t, newRepo)
}
