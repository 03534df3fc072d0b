package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ============================================================================
// LOOKUP RESOLVER — Integer codes to human-readable labels
// ============================================================================
// Lookup tables are static (code,label) pairs loaded once and read-only.
// A missing code is a LookupMiss: the merge leaves the label null and
// keeps going — it never aborts the join.
//
// Label ORDER is deliberately not taken from these tables. Ordinal order
// is declared in the schema; the lookup only maps code → name.
// ============================================================================

// Lookup maps integer codes to labels for one coded field family.
type Lookup struct {
	Name   string
	labels map[int]string
}

// Label resolves a code, reporting a miss via ok=false.
func (l *Lookup) Label(code int) (string, bool) {
	v, ok := l.labels[code]
	return v, ok
}

// Len returns the number of codes in the table.
func (l *Lookup) Len() int { return len(l.labels) }

// Lookups indexes lookup tables by the schema's Field.Lookup name.
type Lookups map[string]*Lookup

// ParseLookup parses a two-column (code,label) CSV. The first row is
// treated as a header. Duplicate codes are a configuration error.
func ParseLookup(name string, data []byte) (*Lookup, error) {
	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("lookup %q: failed to read header: %w", name, err)
	}

	l := &Lookup{Name: name, labels: make(map[int]string)}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if len(row) < 2 {
			continue
		}
		code, err := strconv.Atoi(strings.TrimSpace(row[0]))
		if err != nil {
			return nil, fmt.Errorf("lookup %q: non-integer code %q", name, row[0])
		}
		label := strings.TrimSpace(row[1])
		if _, dup := l.labels[code]; dup {
			return nil, fmt.Errorf("lookup %q: duplicate code %d", name, code)
		}
		l.labels[code] = label
	}

	if len(l.labels) == 0 {
		return nil, fmt.Errorf("lookup %q: no rows", name)
	}
	return l, nil
}
