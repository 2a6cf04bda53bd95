// File: internal/services/ingest/ingestor.go
package ingest

import (
    "context"
    "encoding/csv"
    "fmt"
    "os"
    "path/filepath"
    "strconv"
    "strings"

    "github.com/glebarez/sqlite"
    "github.com/xuri/excelize/v2"
    "gorm.io/gorm"
    "gorm.io/gorm/logger"
)

// insertBatchSize bounds the number of rows per INSERT statement so the
// parameter count stays under SQLite's limit.
const insertBatchSize = 200

// Logger is the key/value logging interface the ingestor reports through.
// Declared locally so the package stays a leaf below the service layer.
type Logger interface {
    Info(msg string, keysAndValues ...interface{})
    Error(msg string, keysAndValues ...interface{})
    Debug(msg string, keysAndValues ...interface{})
    Warn(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}

// Ingestor converts an uploaded tabular file (CSV or XLSX) into a standalone
// SQLite store, one table per sheet, and produces the schema description the
// SQL synthesizer is prompted with.
type Ingestor struct {
    logger Logger
}

func NewIngestor(log Logger) *Ingestor {
    if log == nil {
        log = nopLogger{}
    }
    return &Ingestor{logger: log}
}

// Ingest parses sourcePath, loads it into a fresh store at storePath and
// returns the schema text. A pre-existing file at storePath is replaced.
func (in *Ingestor) Ingest(ctx context.Context, sourcePath, storePath string) (string, error) {
    if sourcePath == "" || storePath == "" {
        return "", NewValidationError("ingest", "source and store paths are required")
    }

    tables, err := parseFile(sourcePath)
    if err != nil {
        return "", err
    }
    if len(tables) == 0 {
        return "", NewParseError("ingest", "file contains no tabular data", nil)
    }

    if err := os.MkdirAll(filepath.Dir(storePath), 0o755); err != nil {
        return "", NewStoreError("ingest", "failed to create store directory", err)
    }
    if err := os.Remove(storePath); err != nil && !os.IsNotExist(err) {
        return "", NewStoreError("ingest", "failed to replace existing store", err)
    }

    db, err := gorm.Open(sqlite.Open(storePath), &gorm.Config{
        Logger: logger.Default.LogMode(logger.Silent),
    })
    if err != nil {
        return "", NewStoreError("ingest", "failed to open store", err)
    }
    sqlDB, err := db.DB()
    if err != nil {
        return "", NewStoreError("ingest", "failed to access store connection", err)
    }
    defer sqlDB.Close()

    for _, table := range tables {
        if err := loadTable(ctx, db, table); err != nil {
            return "", err
        }
        in.logger.Info("table loaded",
            "table", table.Name, "columns", len(table.Columns), "rows", len(table.Rows))
    }

    return schemaText(storePath, tables), nil
}

// parseFile dispatches on the file extension. CSV yields one table named
// after the file; XLSX yields one table per non-empty sheet.
func parseFile(sourcePath string) ([]Table, error) {
    switch strings.ToLower(filepath.Ext(sourcePath)) {
    case ".csv":
        return parseCSV(sourcePath)
    case ".xlsx":
        return parseXLSX(sourcePath)
    default:
        return nil, NewValidationError("parse",
            fmt.Sprintf("unsupported file type %q, expected .csv or .xlsx", filepath.Ext(sourcePath)))
    }
}

func parseCSV(sourcePath string) ([]Table, error) {
    f, err := os.Open(sourcePath)
    if err != nil {
        return nil, NewParseError("parse_csv", "failed to open file", err)
    }
    defer f.Close()

    reader := csv.NewReader(f)
    reader.FieldsPerRecord = -1
    records, err := reader.ReadAll()
    if err != nil {
        return nil, NewParseError("parse_csv", "malformed CSV", err)
    }
    if len(records) < 1 {
        return nil, NewParseError("parse_csv", "file is empty", nil)
    }

    base := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
    table := buildTable(sanitizeIdentifier(base, 0), records)
    return []Table{table}, nil
}

func parseXLSX(sourcePath string) ([]Table, error) {
    f, err := excelize.OpenFile(sourcePath)
    if err != nil {
        return nil, NewParseError("parse_xlsx", "failed to open workbook", err)
    }
    defer f.Close()

    var tables []Table
    for i, sheet := range f.GetSheetList() {
        rows, err := f.GetRows(sheet)
        if err != nil {
            return nil, NewParseError("parse_xlsx",
                fmt.Sprintf("failed to read sheet %q", sheet), err)
        }
        if len(rows) < 1 {
            continue
        }
        tables = append(tables, buildTable(sanitizeIdentifier(sheet, i), rows))
    }
    return tables, nil
}

// buildTable splits raw records into header and data, normalising ragged rows
// to the header width.
func buildTable(name string, records [][]string) Table {
    header := records[0]
    columns := make([]string, len(header))
    for i, h := range header {
        columns[i] = sanitizeIdentifier(h, i)
    }

    rows := make([][]string, 0, len(records)-1)
    for _, record := range records[1:] {
        row := make([]string, len(columns))
        copy(row, record)
        rows = append(rows, row)
    }

    return Table{Name: name, Columns: columns, Rows: rows}
}

// loadTable creates the table and inserts its rows in batches.
func loadTable(ctx context.Context, db *gorm.DB, table Table) error {
    affinities := table.columnAffinities()

    defs := make([]string, len(table.Columns))
    for i, col := range table.Columns {
        defs[i] = fmt.Sprintf("%q %s", col, affinities[i])
    }
    createSQL := fmt.Sprintf("CREATE TABLE %q (%s)", table.Name, strings.Join(defs, ", "))
    if err := db.WithContext(ctx).Exec(createSQL).Error; err != nil {
        return NewStoreError("load_table",
            fmt.Sprintf("failed to create table %q", table.Name), err)
    }

    quoted := make([]string, len(table.Columns))
    for i, col := range table.Columns {
        quoted[i] = strconv.Quote(col)
    }
    rowPlaceholder := "(" + strings.TrimSuffix(strings.Repeat("?,", len(table.Columns)), ",") + ")"

    for start := 0; start < len(table.Rows); start += insertBatchSize {
        end := start + insertBatchSize
        if end > len(table.Rows) {
            end = len(table.Rows)
        }
        batch := table.Rows[start:end]

        placeholders := make([]string, len(batch))
        args := make([]interface{}, 0, len(batch)*len(table.Columns))
        for i, row := range batch {
            placeholders[i] = rowPlaceholder
            for col := range table.Columns {
                args = append(args, coerceValue(row[col], affinities[col]))
            }
        }

        insertSQL := fmt.Sprintf("INSERT INTO %q (%s) VALUES %s",
            table.Name, strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
        if err := db.WithContext(ctx).Exec(insertSQL, args...).Error; err != nil {
            return NewStoreError("load_table",
                fmt.Sprintf("failed to insert rows into %q", table.Name), err)
        }
    }

    return nil
}

// coerceValue converts a cell to the Go type matching the column affinity.
// Empty cells become NULL regardless of affinity.
func coerceValue(raw, affinity string) interface{} {
    raw = strings.TrimSpace(raw)
    if raw == "" {
        return nil
    }
    switch affinity {
    case affinityInteger:
        if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
            return v
        }
    case affinityReal:
        if v, err := strconv.ParseFloat(raw, 64); err == nil {
            return v
        }
    }
    return raw
}

// schemaText renders the store description fed to the SQL synthesizer:
//
//	Database: sales.db
//	Tables:
//	- sales: day TEXT, store TEXT, amount REAL
func schemaText(storePath string, tables []Table) string {
    var b strings.Builder
    fmt.Fprintf(&b, "Database: %s\n", filepath.Base(storePath))
    b.WriteString("Tables:\n")
    for _, table := range tables {
        affinities := table.columnAffinities()
        cols := make([]string, len(table.Columns))
        for i, col := range table.Columns {
            cols[i] = col + " " + affinities[i]
        }
        fmt.Fprintf(&b, "- %s: %s\n", table.Name, strings.Join(cols, ", "))
    }
    return strings.TrimRight(b.String(), "\n")
}
