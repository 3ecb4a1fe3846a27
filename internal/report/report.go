// Package report renders screening results for the terminal and for files.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/spigell/resume-screener/internal/features"
	"github.com/spigell/resume-screener/internal/screening"
	"github.com/spigell/resume-screener/internal/scoring"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Padding(0, 1)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

// Ranking writes the ranked candidates as a table.
func Ranking(w io.Writer, r scoring.Ranking) error {
	t := newTable("#", "Document", "Score", "Predicted", "Experience", "Education", "Skills", "Certifications")

	for i, c := range r {
		t.Row(
			strconv.Itoa(i+1),
			c.DocumentID,
			formatFloat(c.Score),
			formatPredicted(c.Predicted),
			strconv.Itoa(c.Record.ExperienceYears),
			string(c.Record.Education),
			strings.Join(c.Record.Skills, ", "),
			strconv.Itoa(c.Record.Certifications),
		)
	}

	_, err := fmt.Fprintln(w, t.String())
	return err
}

// Warnings writes documents that were not scored or whose text was short.
// Nothing is written when every document is clean.
func Warnings(w io.Writer, outcomes []screening.Outcome) error {
	t := newTable("Document", "Status", "Reason").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return warnStyle
		})

	rows := 0
	for _, o := range outcomes {
		switch {
		case o.Err != nil:
			t.Row(o.DocumentID, string(o.Status()), o.Err.Error())
		case o.Warning != nil:
			t.Row(o.DocumentID, string(o.Status()), o.Warning.Error())
		default:
			continue
		}
		rows++
	}

	if rows == 0 {
		return nil
	}

	_, err := fmt.Fprintln(w, t.String())
	return err
}

// Breakdown writes the weighted contribution of each feature to a candidate's score.
func Breakdown(w io.Writer, c scoring.Scored, weights scoring.Weights) error {
	contrib := scoring.Contribute(c.Record, weights)

	t := newTable("Feature", "Value", "Weight", "Contribution").
		Row("experience", strconv.Itoa(c.Record.ExperienceYears), formatFloat(weights.Experience), formatFloat(contrib.Experience/100)).
		Row("education", string(c.Record.Education), formatFloat(weights.Education), formatFloat(contrib.Education/100)).
		Row("skills", strconv.Itoa(len(c.Record.Skills)), formatFloat(weights.Skills), formatFloat(contrib.Skills/100)).
		Row("certifications", strconv.Itoa(c.Record.Certifications), formatFloat(weights.Certifications), formatFloat(contrib.Certifications/100)).
		Row("total", "", "", formatFloat(c.Score))

	_, err := fmt.Fprintf(w, "%s\n%s\n", c.DocumentID, t.String())
	return err
}

// ByEducation groups the ranked candidates by education level, keeping rank order inside a group.
func ByEducation(r scoring.Ranking) map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for i, c := range r {
		key := fmt.Sprintf("%s (%d)", c.Record.Education, c.Record.Education.Rank())
		report[key] = append(report[key], map[string]string{
			"rank":             strconv.Itoa(i + 1),
			"document":         c.DocumentID,
			"score":            formatFloat(c.Score),
			"experience_years": strconv.Itoa(c.Record.ExperienceYears),
			"skills":           strings.Join(c.Record.Skills, ", "),
		})
	}
	return report
}

// Dump is the file form of a screening run.
type Dump struct {
	RunID    string          `json:"run_id"`
	Ranking  scoring.Ranking `json:"ranking"`
	Outcomes []OutcomeEntry  `json:"outcomes"`
}

type OutcomeEntry struct {
	DocumentID     string           `json:"document_id"`
	Kind           string           `json:"kind"`
	Status         screening.Status `json:"status"`
	Method         string           `json:"method,omitempty"`
	TextLength     int              `json:"text_length,omitempty"`
	SecondaryOCR   bool             `json:"secondary_ocr,omitempty"`
	Record         *features.Record `json:"record,omitempty"`
	Error          string           `json:"error,omitempty"`
	Warning        string           `json:"warning,omitempty"`
	DurationMillis int64            `json:"duration_ms"`
}

func NewDump(result *screening.Result) *Dump {
	d := &Dump{RunID: result.RunID, Ranking: result.Ranking}
	for _, o := range result.Outcomes {
		entry := OutcomeEntry{
			DocumentID:     o.DocumentID,
			Kind:           string(o.Kind),
			Status:         o.Status(),
			SecondaryOCR:   o.SecondaryOCR,
			Record:         o.Record,
			DurationMillis: o.Duration.Milliseconds(),
		}
		if o.Text != nil {
			entry.Method = string(o.Text.Method)
			entry.TextLength = o.Text.Len()
		}
		if o.Err != nil {
			entry.Error = o.Err.Error()
		}
		if o.Warning != nil {
			entry.Warning = o.Warning.Error()
		}
		d.Outcomes = append(d.Outcomes, entry)
	}
	return d
}

// DumpToTmpFile writes the run as indented JSON to a new temporary file and returns its name.
func DumpToTmpFile(result *screening.Result) (string, error) {
	file, err := os.CreateTemp("", "screening_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewDump(result)); err != nil {
		return "", err
	}
	return file.Name(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatPredicted(p *float64) string {
	if p == nil {
		return "-"
	}
	return formatFloat(*p)
}
