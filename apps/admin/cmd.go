package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/trezcool/backoffice/core"
	"github.com/trezcool/backoffice/core/admission"
	"github.com/trezcool/backoffice/core/auth"
	"github.com/trezcool/backoffice/storage/database"
)

var (
	gooseRunFunc   = database.RunMigrations // mockable
	isTerminalFunc = term.IsTerminal        // mockable

	errHelp  = errors.New("help provided")
	errNoSQL = errors.New("migrations only apply to the postgres and sqlite engines")
)

type commandLine struct {
	conf *core.Config
	db   *sqlx.DB // nil unless the engine is a SQL database
	svc  admission.Service
	out  io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, up-to, down, down-to, redo, reset, status, version, create, fix)")
	fmt.Fprintln(cli.out, "  export [FILTERS] [-out FILE] [-ordering FIELDS] - export applications as CSV")
	fmt.Fprintln(cli.out, "  stats [FILTERS] [-json] - print application statistics")
	fmt.Fprintln(cli.out, "  token -id ID [-name NAME] [-email EMAIL] [-admin] - issue a reviewer token")
	fmt.Fprintln(cli.out, "Filters: -status, -program-id, -program-type, -year, -search")
}

// filterFlags registers the QueryFilter flags on fs.
func filterFlags(fs *flag.FlagSet) *admission.QueryFilter {
	filter := new(admission.QueryFilter)
	fs.Var((*statusFlag)(&filter.Status), "status", "Only applications with this status.")
	fs.StringVar(&filter.ProgramID, "program-id", "", "Only applications to this program.")
	fs.Var((*programTypeFlag)(&filter.ProgramType), "program-type", "Only applications to this type of program.")
	fs.StringVar(&filter.AcademicYear, "year", "", "Only applications for this academic year.")
	fs.StringVar(&filter.Search, "search", "", "Case-insensitive search on the applicant's name and email, and the reference.")
	return filter
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	exportCmd := flag.NewFlagSet("export", flag.ContinueOnError)
	exportCmd.SetOutput(cli.out)
	exportFilter := filterFlags(exportCmd)
	exportOut := exportCmd.String("out", "", "The file to write to (default: stdout).")
	exportOrdering := exportCmd.String("ordering", "", "Comma separated ordering fields, \"-\" prefixed for descending order.")

	statsCmd := flag.NewFlagSet("stats", flag.ContinueOnError)
	statsCmd.SetOutput(cli.out)
	statsFilter := filterFlags(statsCmd)
	statsJSON := statsCmd.Bool("json", false, "Print JSON even on a terminal.")

	tokenCmd := flag.NewFlagSet("token", flag.ContinueOnError)
	tokenCmd.SetOutput(cli.out)
	tokenID := tokenCmd.String("id", "", "The reviewer's ID.")
	tokenName := tokenCmd.String("name", "", "The reviewer's name.")
	tokenEmail := tokenCmd.String("email", "", "The reviewer's email.")
	tokenAdmin := tokenCmd.Bool("admin", false, "Grant the admin role.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "export":
		if err := exportCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.export(exportFilter, core.ParseOrdering(*exportOrdering), *exportOut)

	case "stats":
		if err := statsCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.stats(statsFilter, *statsJSON)

	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if core.CleanString(*tokenID) == "" {
			tokenCmd.Usage()
			return errHelp
		}
		reviewer := admission.Reviewer{
			ID:    core.CleanString(*tokenID),
			Name:  core.CleanString(*tokenName),
			Email: core.CleanString(*tokenEmail, true /* lower */),
		}
		return cli.token(reviewer, *tokenAdmin)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errNoSQL
	}
	return gooseRunFunc(cli.db, args[0], args[1:]...)
}

func (cli *commandLine) export(filter *admission.QueryFilter, ordering []core.DBOrdering, path string) (err error) {
	w := cli.out
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer func() {
			if cErr := f.Close(); cErr != nil && err == nil {
				err = cErr
			}
		}()
		w = f
	}

	filter.Clean()
	n, err := cli.svc.Export(context.Background(), w, filter, ordering)
	if err != nil {
		return err
	}
	if path != "" {
		fmt.Fprintf(cli.out, "%d applications exported to %s\n", n, path)
	}
	return nil
}

func (cli *commandLine) stats(filter *admission.QueryFilter, asJSON bool) error {
	filter.Clean()
	stats, err := cli.svc.Statistics(context.Background(), filter)
	if err != nil {
		return err
	}

	if asJSON || !cli.isTerminal() {
		enc := json.NewEncoder(cli.out)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	tw := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Total\t%d\n", stats.Total)
	for _, s := range admission.Statuses {
		fmt.Fprintf(tw, "%s\t%d\n", s, stats.ByStatus[s])
	}
	fmt.Fprintf(tw, "Acceptance rate\t%.1f%%\n", stats.AcceptanceRate)
	fmt.Fprintf(tw, "Fees\t%d / %d\n", stats.FeesPaid, stats.FeesTotal)
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "PROGRAM\tTYPE\tTOTAL\tAPPROVED\tRATE")
	for _, p := range stats.ByProgram {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%.1f%%\n", p.ProgramName, p.ProgramType, p.Total, p.Approved, p.AcceptanceRate)
	}
	return tw.Flush()
}

func (cli *commandLine) isTerminal() bool {
	f, ok := cli.out.(*os.File)
	return ok && isTerminalFunc(int(f.Fd()))
}

func (cli *commandLine) token(reviewer admission.Reviewer, isAdmin bool) error {
	roles := []string{auth.RoleReviewer}
	if isAdmin {
		roles = append(roles, auth.RoleAdmin)
	}
	token, err := auth.GenerateToken(auth.NewClaims(cli.conf, reviewer, roles...), cli.conf.SecretKey)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, token)
	return nil
}
