// Package export builds the flat row projection consumed by report downloads and
// the text block used when sharing a complaint.
package export

import (
	"complaintdesk/backend/internal/duration"
	"complaintdesk/backend/internal/models"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// TimeLayout formats timestamps in exported rows (UTC).
const TimeLayout = "2006-01-02 15:04"

var (
	leadingColumns  = []string{"ID", "Customer Name", "Customer Number", "Type", "Status"}
	trailingColumns = []string{"Created At", "Resolved At", "Duration", "Reminders"}
)

// Table is a column-labeled projection of complaints.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// OutputName is the download name for an export produced on day.
func OutputName(day time.Time) string {
	return "complaints-" + day.UTC().Format("2006-01-02")
}

// Project flattens complaints into rows. Every input field of the complaints' types
// becomes a column named by its label, in order of first appearance; form_data
// values land under the label of their field definition.
func Project(complaints []models.Complaint, tr duration.Translator, lang string, now time.Time) Table {
	labels := fieldColumns(complaints)

	header := make([]string, 0, len(leadingColumns)+len(labels)+len(trailingColumns))
	header = append(header, leadingColumns...)
	header = append(header, labels...)
	header = append(header, trailingColumns...)

	rows := make([][]string, 0, len(complaints))
	for i := range complaints {
		c := &complaints[i]

		byLabel := labeledValues(c)
		row := []string{
			c.ID,
			c.CustomerName,
			c.CustomerNumber,
			c.TypeName(),
			StatusLabel(tr, lang, c.Status),
		}
		for _, label := range labels {
			row = append(row, byLabel[label])
		}

		created := c.CreatedAt
		resolvedAt := ""
		if c.ResolvedAt != nil {
			resolvedAt = c.ResolvedAt.UTC().Format(TimeLayout)
		}
		row = append(row,
			created.UTC().Format(TimeLayout),
			resolvedAt,
			duration.Format(tr, lang, &created, c.ResolvedAt),
			strconv.Itoa(c.ReminderCount),
		)
		rows = append(rows, row)
	}

	return Table{Name: OutputName(now), Header: header, Rows: rows}
}

// WriteCSV writes t with a header line.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("write export header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write export rows: %w", err)
	}
	return nil
}

// StatusLabel returns the display label of a status.
func StatusLabel(tr duration.Translator, lang string, s models.Status) string {
	return tr.GetString(lang, "status."+string(s))
}

func fieldColumns(complaints []models.Complaint) []string {
	seen := map[string]struct{}{}
	var labels []string
	for i := range complaints {
		t := complaints[i].Type
		if t == nil {
			continue
		}
		for _, f := range t.Fields.All() {
			if !f.CollectsInput() {
				continue
			}
			if _, ok := seen[f.Label()]; ok {
				continue
			}
			seen[f.Label()] = struct{}{}
			labels = append(labels, f.Label())
		}
	}
	return labels
}

func labeledValues(c *models.Complaint) map[string]string {
	out := map[string]string{}
	if c.Type == nil {
		return out
	}
	for _, f := range c.Type.Fields.All() {
		if v, ok := c.FormData[f.ID()]; ok && f.CollectsInput() {
			out[f.Label()] = v
		}
	}
	return out
}
