// File: internal/services/ingest/table_test.go
package ingest

import (
    "testing"

    "github.com/stretchr/testify/assert"
)

func TestSanitizeIdentifier(t *testing.T) {
    tests := []struct {
        raw      string
        position int
        want     string
    }{
        {"amount", 0, "amount"},
        {"Total Sales (KRW)", 0, "Total_Sales_KRW"},
        {"  day  ", 0, "day"},
        {"2024_sales", 0, "c_2024_sales"},
        {"", 2, "column_3"},
        {"???", 4, "column_5"},
    }

    for _, tt := range tests {
        assert.Equal(t, tt.want, sanitizeIdentifier(tt.raw, tt.position), "raw=%q", tt.raw)
    }
}

func TestInferAffinity(t *testing.T) {
    tests := []struct {
        name   string
        values []string
        want   string
    }{
        {"integers", []string{"1", "42", "-7"}, affinityInteger},
        {"integers with blanks", []string{"1", "", "3"}, affinityInteger},
        {"reals", []string{"1.5", "2", "3.25"}, affinityReal},
        {"mixed text", []string{"1", "two", "3"}, affinityText},
        {"dates stay text", []string{"2024-05-15", "2024-05-16"}, affinityText},
        {"all empty", []string{"", "  "}, affinityText},
        {"empty slice", nil, affinityText},
    }

    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            assert.Equal(t, tt.want, inferAffinity(tt.values))
        })
    }
}

func TestColumnAffinitiesHandlesRaggedRows(t *testing.T) {
    table := Table{
        Columns: []string{"a", "b", "c"},
        Rows: [][]string{
            {"1", "x"},
            {"2", "y", "3.5"},
        },
    }

    affinities := table.columnAffinities()
    assert.Equal(t, []string{affinityInteger, affinityText, affinityReal}, affinities)
}
