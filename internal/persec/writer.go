package persec

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"time"
)

// The per-second payload is CSV text with a header row, a units row, then
// one measurement row per second, e.g.
//
//	JOB TIME,STAGE NUMBER,TREATING PRESSURE,SLURRY RATE
//	(datetime),(none),(psi),(bpm)
//	06/17/18 04:15:08,1,-16.31,0.48
//
// Not every job exposes the same columns, so nothing here assumes a fixed
// schema beyond the JOB TIME column required by WriteFormatted.

const (
	jobTimeColumn  = "job_time"
	jobTimeInputs  = "01/02/06 15:04:05"
	jobTimeOutputs = "2006-01-02 15:04:05"
)

// RawFilename returns the file name for the verbatim payload of jobID.
func RawFilename(jobID string) string {
	return fmt.Sprintf("original_%s.csv", jobID)
}

// FormattedFilename returns the file name for the formatted CSV of jobID.
func FormattedFilename(jobID string) string {
	return fmt.Sprintf("formatted_%s.csv", jobID)
}

// UnitsFilename returns the file name for the units CSV of jobID.
func UnitsFilename(jobID string) string {
	return fmt.Sprintf("units_%s.csv", jobID)
}

// formatColumnLabel converts a payload column label to snake case.
func formatColumnLabel(label string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(label)), " ", "_")
}

// stripParentheses removes the parentheses wrapping a unit label.
func stripParentheses(unit string) string {
	return strings.NewReplacer("(", "", ")", "").Replace(unit)
}

// parsePayload splits the payload into header, units row and data rows.
func parsePayload(payload string) (header []string, units []string, rows [][]string, err error) {
	reader := csv.NewReader(strings.NewReader(payload))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parse per-second payload: %w", err)
	}
	if len(records) < 2 {
		return nil, nil, nil, fmt.Errorf("per-second payload has %d rows, expected header and units rows", len(records))
	}
	return records[0], records[1], records[2:], nil
}

// WriteRaw saves the payload verbatim.
func WriteRaw(path string, payload string) error {
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		return fmt.Errorf("write raw csv: %w", err)
	}
	return nil
}

// WriteFormatted saves a mildly formatted version of the payload: snake_case
// header, units row dropped so readers can infer column types, and the
// job_time column re-rendered as "2006-01-02 15:04:05". Row order and all
// other cells are preserved.
func WriteFormatted(path string, payload string) error {
	header, _, rows, err := parsePayload(payload)
	if err != nil {
		return err
	}

	formattedHeader := make([]string, len(header))
	jobTimeIdx := -1
	for i, label := range header {
		formattedHeader[i] = formatColumnLabel(label)
		if formattedHeader[i] == jobTimeColumn {
			jobTimeIdx = i
		}
	}
	if jobTimeIdx < 0 {
		return fmt.Errorf("per-second payload has no JOB TIME column")
	}

	out := make([][]string, 0, len(rows)+1)
	out = append(out, formattedHeader)
	for _, row := range rows {
		formatted := make([]string, len(row))
		copy(formatted, row)
		if jobTimeIdx < len(formatted) && formatted[jobTimeIdx] != "" {
			ts, err := time.Parse(jobTimeInputs, formatted[jobTimeIdx])
			if err != nil {
				return fmt.Errorf("parse job_time %q: %w", formatted[jobTimeIdx], err)
			}
			formatted[jobTimeIdx] = ts.Format(jobTimeOutputs)
		}
		out = append(out, formatted)
	}

	return writeCSV(path, out, "write formatted csv")
}

// WriteUnits saves a two-row CSV: the snake_case header and the units row
// with parentheses stripped ("(psi)" becomes "psi").
func WriteUnits(path string, payload string) error {
	header, units, _, err := parsePayload(payload)
	if err != nil {
		return err
	}

	formattedHeader := make([]string, len(header))
	for i, label := range header {
		formattedHeader[i] = formatColumnLabel(label)
	}
	formattedUnits := make([]string, len(units))
	for i, unit := range units {
		formattedUnits[i] = stripParentheses(unit)
	}

	return writeCSV(path, [][]string{formattedHeader, formattedUnits}, "write units csv")
}

func writeCSV(path string, records [][]string, action string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}

	writer := csv.NewWriter(f)
	if err := writer.WriteAll(records); err != nil {
		_ = f.Close()
		return fmt.Errorf("%s: %w", action, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	return nil
}
