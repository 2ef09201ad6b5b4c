package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/backoffice/apps/shared"
	"github.com/trezcool/backoffice/core"
	"github.com/trezcool/backoffice/core/admission"
	"github.com/trezcool/backoffice/storage/database"
	sqlxrepos "github.com/trezcool/backoffice/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := shared.NewLogger(conf, "ADMIN")
	closers := new(shared.Closers)

	// set up DB; migrations are left to the migrate command
	var db *sqlx.DB
	var repo admission.Repository
	var err error
	switch conf.Database.Engine {
	case database.EnginePostgres, database.EngineSQLite:
		if err = database.CreateIfNotExist(conf); err == nil {
			db, err = database.Open(conf)
		}
		if err == nil {
			closers.Add(db.Close)
			repo = sqlxrepos.NewApplicationRepository(db)
		}
	default:
		repo, err = shared.OpenRepository(context.Background(), conf, closers)
	}
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}

	svc, err := shared.NewAdmissionService(conf, repo, nil, nil, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up admission service: %v", err), err)
	}

	// start CLI
	cli := commandLine{
		conf: conf,
		db:   db,
		svc:  svc,
		out:  os.Stdout,
	}
	err = cli.run(os.Args)
	if cErr := closers.Close(); cErr != nil {
		logger.Error("closing resources", cErr)
	}
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %s", err), err)
		}
		os.Exit(1)
	}
}
