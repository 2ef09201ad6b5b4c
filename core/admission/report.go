package admission

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"

	"github.com/pkg/errors"
)

// ExportHeader is the header row of the CSV export.
var ExportHeader = []string{
	"ID",
	"Nom Candidat",
	"Email",
	"Téléphone",
	"Formation",
	"Type",
	"Année Académique",
	"Statut",
	"Date Candidature",
	"Frais Payés",
	"Frais Totaux",
}

const exportDateLayout = "2006-01-02"

// ToTabular flattens applications into export rows, one per application, in input order.
func ToTabular(apps []Application) [][]string {
	rows := make([][]string, 0, len(apps))
	for _, app := range apps {
		var submitted string
		if !app.SubmittedAt.IsZero() {
			submitted = app.SubmittedAt.UTC().Format(exportDateLayout)
		}
		rows = append(rows, []string{
			app.ReferenceNumber,
			app.Applicant.Name,
			app.Applicant.Email,
			app.Applicant.Phone,
			app.ProgramName,
			string(app.ProgramType),
			app.AcademicYear,
			string(app.Status),
			submitted,
			strconv.FormatInt(app.FeePaid, 10),
			strconv.FormatInt(app.FeeTotal, 10),
		})
	}
	return rows
}

// WriteCSV writes the header and one row per application to w.
func WriteCSV(w io.Writer, apps []Application) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return errors.Wrap(err, "writing header")
	}
	if err := cw.WriteAll(ToTabular(apps)); err != nil {
		return errors.Wrap(err, "writing rows")
	}
	return nil
}

type ProgramStatistics struct {
	ProgramID      string  `json:"program_id"`
	ProgramName    string  `json:"program_name"`
	ProgramType    string  `json:"program_type"`
	Total          int     `json:"total"`
	Approved       int     `json:"approved"`
	AcceptanceRate float64 `json:"acceptance_rate"`
}

type Statistics struct {
	Total          int                 `json:"total"`
	Approved       int                 `json:"approved"`
	Rejected       int                 `json:"rejected"`
	Waitlisted     int                 `json:"waitlisted"`
	Pending        int                 `json:"pending"`
	AcceptanceRate float64             `json:"acceptance_rate"`
	ByStatus       map[Status]int      `json:"by_status"`
	ByProgram      []ProgramStatistics `json:"by_program"`
	FeesPaid       int64               `json:"fees_paid"`
	FeesTotal      int64               `json:"fees_total"`
}

// Aggregate computes counts over apps. ByProgram follows the order programs first appear in.
func Aggregate(apps []Application) Statistics {
	stats := Statistics{
		Total:     len(apps),
		ByStatus:  make(map[Status]int, len(Statuses)),
		ByProgram: []ProgramStatistics{},
	}
	for _, s := range Statuses {
		stats.ByStatus[s] = 0
	}

	programIdx := make(map[string]int)
	for _, app := range apps {
		stats.ByStatus[app.Status]++
		stats.FeesPaid += app.FeePaid
		stats.FeesTotal += app.FeeTotal

		idx, ok := programIdx[app.ProgramID]
		if !ok {
			idx = len(stats.ByProgram)
			programIdx[app.ProgramID] = idx
			stats.ByProgram = append(stats.ByProgram, ProgramStatistics{
				ProgramID:   app.ProgramID,
				ProgramName: app.ProgramName,
				ProgramType: string(app.ProgramType),
			})
		}
		stats.ByProgram[idx].Total++
		if app.Status == StatusApproved {
			stats.ByProgram[idx].Approved++
		}
	}

	stats.Approved = stats.ByStatus[StatusApproved]
	stats.Rejected = stats.ByStatus[StatusRejected]
	stats.Waitlisted = stats.ByStatus[StatusWaitlisted]
	stats.Pending = stats.ByStatus[StatusPending] + stats.ByStatus[StatusUnderReview]
	stats.AcceptanceRate = AcceptanceRate(stats.Approved, stats.Total)
	for i := range stats.ByProgram {
		p := &stats.ByProgram[i]
		p.AcceptanceRate = AcceptanceRate(p.Approved, p.Total)
	}
	return stats
}

// AcceptanceRate is approved/total as a percentage rounded to one decimal; 0 when total is 0.
func AcceptanceRate(approved, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(approved)/float64(total)*1000) / 10
}
