// File: internal/services/query/executor.go
package query

import (
    "context"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/glebarez/sqlite"
    "gorm.io/gorm"
    "gorm.io/gorm/logger"
)

// Result is the typed outcome of one statement: a row-set for SELECT-shaped
// statements, an affected-row count for everything else.
type Result struct {
    Select       bool
    Columns      []string
    Rows         [][]string
    RowsAffected int64
}

// Empty reports the distinguished "no rows" case the agent loop
// short-circuits on.
func (r *Result) Empty() bool {
    return r.Select && len(r.Rows) == 0
}

// Preview renders the first n rows as a markdown-style table, or the affected
// count for mutations.
func (r *Result) Preview(n int) string {
    if !r.Select {
        return fmt.Sprintf("%d row(s) affected", r.RowsAffected)
    }

    var b strings.Builder
    b.WriteString("| " + strings.Join(r.Columns, " | ") + " |\n")
    sep := make([]string, len(r.Columns))
    for i := range sep {
        sep[i] = "---"
    }
    b.WriteString("| " + strings.Join(sep, " | ") + " |\n")

    rows := r.Rows
    if n > 0 && len(rows) > n {
        rows = rows[:n]
    }
    for _, row := range rows {
        b.WriteString("| " + strings.Join(row, " | ") + " |\n")
    }
    if len(r.Rows) > len(rows) {
        b.WriteString(fmt.Sprintf("(%d more rows)\n", len(r.Rows)-len(rows)))
    }
    return b.String()
}

// Executor runs SQL statements against per-dataset SQLite stores. Each call
// opens the store fresh; datasets are small single-table files and the store
// handle must not outlive the request.
type Executor struct{}

func NewExecutor() *Executor {
    return &Executor{}
}

// Execute runs one statement against the store at storePath. SELECT-shaped
// statements (case-insensitive, leading-whitespace-tolerant) return a row-set
// with column names; anything else is executed and committed, returning the
// affected-row count.
func (e *Executor) Execute(ctx context.Context, storePath, sqlText string) (*Result, error) {
    if strings.TrimSpace(sqlText) == "" {
        return nil, &QueryError{Type: ErrTypeValidation, Operation: "execute", Message: "empty SQL statement"}
    }
    if storePath == "" {
        return nil, &QueryError{Type: ErrTypeValidation, Operation: "execute", Message: "empty store path"}
    }

    db, err := gorm.Open(sqlite.Open(storePath), &gorm.Config{
        Logger: logger.Default.LogMode(logger.Silent),
    })
    if err != nil {
        return nil, NewStoreError("open", "failed to open dataset store", err)
    }
    sqlDB, err := db.DB()
    if err != nil {
        return nil, NewStoreError("open", "failed to access dataset store", err)
    }
    defer sqlDB.Close()

    if isSelect(sqlText) {
        return e.executeSelect(ctx, db, sqlText)
    }
    return e.executeMutation(ctx, db, sqlText)
}

func (e *Executor) executeSelect(ctx context.Context, db *gorm.DB, sqlText string) (*Result, error) {
    rows, err := db.WithContext(ctx).Raw(sqlText).Rows()
    if err != nil {
        return nil, NewExecutionError("select", "query execution failed", err)
    }
    defer rows.Close()

    columns, err := rows.Columns()
    if err != nil {
        return nil, NewExecutionError("select", "failed to read result columns", err)
    }

    result := &Result{Select: true, Columns: columns}
    for rows.Next() {
        values := make([]interface{}, len(columns))
        ptrs := make([]interface{}, len(columns))
        for i := range values {
            ptrs[i] = &values[i]
        }
        if err := rows.Scan(ptrs...); err != nil {
            return nil, NewExecutionError("select", "failed to scan result row", err)
        }

        rendered := make([]string, len(columns))
        for i, v := range values {
            rendered[i] = formatValue(v)
        }
        result.Rows = append(result.Rows, rendered)
    }
    if err := rows.Err(); err != nil {
        return nil, NewExecutionError("select", "row iteration failed", err)
    }

    return result, nil
}

func (e *Executor) executeMutation(ctx context.Context, db *gorm.DB, sqlText string) (*Result, error) {
    res := db.WithContext(ctx).Exec(sqlText)
    if res.Error != nil {
        return nil, NewExecutionError("exec", "statement execution failed", res.Error)
    }
    return &Result{RowsAffected: res.RowsAffected}, nil
}

func isSelect(sqlText string) bool {
    return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(sqlText)), "SELECT")
}

func formatValue(v interface{}) string {
    switch val := v.(type) {
    case nil:
        return ""
    case []byte:
        return string(val)
    case time.Time:
        return val.Format("2006-01-02 15:04:05")
    case string:
        return val
    default:
        return fmt.Sprintf("%v", val)
    }
}

// IsQueryError reports whether err is a *QueryError.
func IsQueryError(err error) bool {
    var qe *QueryError
    return errors.As(err, &qe)
}
