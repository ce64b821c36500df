package roster

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"text/template"
	"time"

	"github.com/okian/apas/internal/domain/model"
)

var csvHeader = []string{
	"ID", "Name", "Sport", "State", "District", "Status",
	"Excellence Score", "Fitness Score", "Video Score", "Overall Score", "Tier", "Health Status",
}

// CSVFilename is the export name for the given day.
func CSVFilename(day time.Time) string {
	return fmt.Sprintf("athletes_report_%s.csv", day.Format(time.DateOnly))
}

// ReportFilename is the per-athlete report name.
func ReportFilename(a model.Athlete) string {
	return fmt.Sprintf("%s_%s_report.txt", a.FirstName, a.LastName)
}

// WriteCSV writes athletes with the export header.
func WriteCSV(w io.Writer, athletes []model.Athlete) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, a := range athletes {
		row := []string{
			a.ID,
			a.FirstName + " " + a.LastName,
			a.Sport,
			a.State,
			a.District,
			string(a.ValidationStatus),
			strconv.Itoa(a.ExcellenceScore),
			strconv.Itoa(a.FitnessScore),
			strconv.Itoa(a.VideoAnalysisScore),
			strconv.Itoa(a.OverallScore),
			a.Tier,
			string(a.HealthStatus),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

var reportTmpl = template.Must(template.New("report").Parse(`ATHLETE PERFORMANCE REPORT
==========================

Athlete ID:        {{.ID}}
Name:              {{.FirstName}} {{.LastName}}
Sport:             {{.Sport}}
Location:          {{.District}}, {{.State}}
Registered:        {{.RegistrationDate.Format "2006-01-02"}}
{{- if .Age}}
Age:               {{.Age}}
{{- end}}

ASSESSMENT SCORES
-----------------
Excellence Score:  {{.ExcellenceScore}}
Fitness Score:     {{.FitnessScore}}
Video Analysis:    {{.VideoAnalysisScore}}
Overall Score:     {{.OverallScore}}
Tier:              {{.Tier}}

STATUS
------
Validation:        {{.ValidationStatus}}
Health:            {{.HealthStatus}}

CONTACT
-------
Phone:             {{.Phone}}
{{- if .Email}}
Email:             {{.Email}}
{{- end}}
`))

// WriteReport renders the plain-text report of one athlete.
func WriteReport(w io.Writer, a model.Athlete) error {
	return reportTmpl.Execute(w, a)
}
