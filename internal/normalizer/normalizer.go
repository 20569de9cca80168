// Package normalizer turns delimiter-ambiguous CSV text into ordered RawRows
// keyed by canonical column name.
package normalizer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"preorderimport/internal/model"
)

// SchemaError reports a header that cannot be trusted. It is fatal to the
// whole run.
type SchemaError struct {
	Missing []string
	Reason  string
}

func (e *SchemaError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("csv schema: missing required columns: %s", strings.Join(e.Missing, ", "))
	}
	return "csv schema: " + e.Reason
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse reads the whole input, detects the separator once from the header line
// and returns the data rows in input order.
func Parse(r io.Reader) ([]model.RawRow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	headerLine, _, _ := bytes.Cut(data, []byte("\n"))
	if len(bytes.TrimSpace(headerLine)) == 0 {
		return nil, &SchemaError{Reason: "empty input or blank header line"}
	}
	sep := DetectSeparator(string(headerLine))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = sep
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, &SchemaError{Reason: fmt.Sprintf("read header: %v", err)}
	}

	columns, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	slog.Debug("csv header mapped", "separator", string(sep), "columns", len(header))

	var rows []model.RawRow
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record: %w", err)
		}
		line, _ := cr.FieldPos(0)

		values := make(map[string]string, len(Required))
		blank := true
		for i, col := range columns {
			if col == "" {
				continue
			}
			v := ""
			if i < len(record) {
				v = strings.TrimSpace(record[i])
			}
			if prev := values[col]; prev != "" {
				continue
			}
			values[col] = v
			if v != "" {
				blank = false
			}
		}
		if blank {
			continue
		}
		rows = append(rows, model.RawRow{Line: line, Values: values})
	}

	return rows, nil
}

// DetectSeparator picks ';' or ',' by counting how many header fields map to a
// canonical column under each separator. Ties go to ';'.
func DetectSeparator(headerLine string) rune {
	best, bestScore := ';', -1
	for _, sep := range []rune{';', ','} {
		score := scoreHeader(headerLine, sep)
		if score > bestScore {
			best, bestScore = sep, score
		}
	}
	return best
}

func scoreHeader(headerLine string, sep rune) int {
	cr := csv.NewReader(strings.NewReader(headerLine))
	cr.Comma = sep
	cr.LazyQuotes = true
	fields, err := cr.Read()
	if err != nil {
		return 0
	}
	score := 0
	for _, f := range fields {
		if _, ok := Canonical(f); ok {
			score++
		}
	}
	return score
}

// mapHeader returns, per header position, the canonical column it feeds or "".
func mapHeader(header []string) ([]string, error) {
	columns := make([]string, len(header))
	present := make(map[string]bool, len(header))
	for i, h := range header {
		col, ok := Canonical(h)
		if !ok {
			continue
		}
		columns[i] = col
		present[col] = true
	}

	var missing []string
	for _, col := range Required {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}
	return columns, nil
}
