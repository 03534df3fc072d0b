package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hrlens-org/hrlens/schema"
)

// ============================================================================
// CSV PARSING — Source tables into []Record
// ============================================================================
// Headers are matched against declared fields by normalized name, so
// "EmployeeID", "Employee ID", and "employee_id" all map to the same key.
// Unparseable or empty cells are left absent (null), never zeroed.
// ============================================================================

// ParseCSV parses a source table against a declared field list. It returns
// the records and the set of field keys actually found in the header —
// the merge uses the latter to detect a missing join key.
func ParseCSV(data []byte, fields []schema.Field) ([]Record, map[string]bool, error) {
	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}

	// Build column index → field mapping by normalized header name.
	byNorm := make(map[string]schema.Field, len(fields))
	for _, f := range fields {
		byNorm[normalizeHeader(f.Key)] = f
		byNorm[normalizeHeader(f.DisplayName)] = f
	}

	mapped := make([]*schema.Field, len(headers))
	found := make(map[string]bool)
	for i, h := range headers {
		if f, ok := byNorm[normalizeHeader(h)]; ok {
			fcopy := f
			mapped[i] = &fcopy
			found[f.Key] = true
		}
		// Unmapped columns are silently skipped.
	}

	var records []Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // skip malformed rows
		}

		rec := NewRecord()
		for i, raw := range row {
			if i >= len(mapped) || mapped[i] == nil {
				continue
			}
			setCell(&rec, *mapped[i], strings.TrimSpace(raw))
		}
		records = append(records, rec)
	}

	return records, found, nil
}

// setCell stores one parsed cell according to the field kind. Empty and
// unparseable values leave the cell absent.
func setCell(rec *Record, f schema.Field, val string) {
	if val == "" {
		return
	}
	switch f.Kind {
	case schema.KindNumeric:
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			rec.Nums[f.Key] = v
		}
	case schema.KindOrdinal:
		// Ordinal source cells are integer codes, resolved to labels
		// during the merge.
		if v, err := strconv.ParseFloat(val, 64); err == nil {
			rec.Nums[f.Key] = v
		}
	case schema.KindBinary:
		// Canonicalize against the declared levels so "yes"/"YES"
		// collapse onto one level.
		for _, lvl := range f.Levels {
			if strings.EqualFold(val, lvl) {
				rec.Labels[f.Key] = lvl
				return
			}
		}
		rec.Labels[f.Key] = val
	default:
		rec.Labels[f.Key] = val
	}
}

// normalizeHeader lowercases and strips separators: "Years With Curr
// Manager" → "yearswithcurrmanager".
func normalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "_", "")
	s = strings.ReplaceAll(s, "-", "")
	return s
}

// ParseEmployees parses the employee table against the schema's
// employee-level fields.
func ParseEmployees(data []byte, sch *schema.Schema) ([]Record, map[string]bool, error) {
	return ParseCSV(data, sch.EmployeeFields())
}

// ParseReviews parses the performance table against the schema's
// review-level fields plus the employee_id join key.
func ParseReviews(data []byte, sch *schema.Schema) ([]Record, map[string]bool, error) {
	fields := sch.ReviewFields()
	if id, ok := sch.Field("employee_id"); ok {
		fields = append(fields, id)
	}
	return ParseCSV(data, fields)
}
