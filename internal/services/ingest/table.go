// File: internal/services/ingest/table.go
package ingest

import (
    "fmt"
    "regexp"
    "strconv"
    "strings"
)

// Table is a parsed sheet: a header row plus data rows, all as strings.
// Column affinities are inferred from the data before loading.
type Table struct {
    Name    string
    Columns []string
    Rows    [][]string
}

const (
    affinityInteger = "INTEGER"
    affinityReal    = "REAL"
    affinityText    = "TEXT"
)

var identifierCleaner = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// sanitizeIdentifier maps arbitrary header text onto a safe SQL identifier.
// Empty or all-symbol names get a positional fallback.
func sanitizeIdentifier(raw string, position int) string {
    name := identifierCleaner.ReplaceAllString(strings.TrimSpace(raw), "_")
    name = strings.Trim(name, "_")
    if name == "" {
        return fmt.Sprintf("column_%d", position+1)
    }
    if name[0] >= '0' && name[0] <= '9' {
        name = "c_" + name
    }
    return name
}

// inferAffinity picks the narrowest SQLite affinity that fits every non-empty
// value in the column. An empty column stays TEXT.
func inferAffinity(values []string) string {
    affinity := affinityInteger
    seen := false

    for _, v := range values {
        v = strings.TrimSpace(v)
        if v == "" {
            continue
        }
        seen = true

        if affinity == affinityInteger {
            if _, err := strconv.ParseInt(v, 10, 64); err == nil {
                continue
            }
            affinity = affinityReal
        }
        if affinity == affinityReal {
            if _, err := strconv.ParseFloat(v, 64); err == nil {
                continue
            }
            affinity = affinityText
            break
        }
    }

    if !seen {
        return affinityText
    }
    return affinity
}

// columnAffinities infers one affinity per column of the table.
func (t *Table) columnAffinities() []string {
    affinities := make([]string, len(t.Columns))
    for i := range t.Columns {
        values := make([]string, 0, len(t.Rows))
        for _, row := range t.Rows {
            if i < len(row) {
                values = append(values, row[i])
            }
        }
        affinities[i] = inferAffinity(values)
    }
    return affinities
}
