package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fleet-analytics-service/internal/ports"
	"fmt"
	"strconv"
	"strings"
)

// Placeholder style of the underlying driver.
type Dialect int

const (
	// "?" placeholders (SQLite).
	DialectQuestion Dialect = iota
	// "$1, $2, ..." placeholders (Postgres via pgx).
	DialectDollar
)

// DialectFor maps a database/sql driver name to its placeholder style.
func DialectFor(driver string) Dialect {
	if driver == "pgx" || driver == "postgres" {
		return DialectDollar
	}
	return DialectQuestion
}

// SQL-backed implementation of the Repository port.
// Queries are written with "?" placeholders and rebound for the driver.
type SqlRepository struct {
	DB      *sql.DB
	Dialect Dialect
}

func NewSqlRepository(db *sql.DB, dialect Dialect) *SqlRepository {
	return &SqlRepository{DB: db, Dialect: dialect}
}

// Run a query and return every row keyed by lower-cased column name.
func (s *SqlRepository) FetchAll(ctx context.Context, query string, args ...any) ([]ports.Row, error) {
	if s.DB == nil {
		return nil, errors.New("fetch all: DB is nil")
	}

	rows, err := s.DB.QueryContext(ctx, Rebind(s.Dialect, query), args...)
	if err != nil {
		return nil, fmt.Errorf("fetch all: query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("fetch all: columns: %w", err)
	}
	for i := range cols {
		cols[i] = strings.ToLower(cols[i])
	}

	out := make([]ports.Row, 0, 64)
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("fetch all: scan row: %w", err)
		}

		row := make(ports.Row, len(cols))
		for i, c := range cols {
			if b, ok := values[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = values[i]
		}
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch all: row iteration: %w", err)
	}

	return out, nil
}

// Run a statement and return the number of affected rows.
func (s *SqlRepository) Execute(ctx context.Context, query string, args ...any) (int64, error) {
	if s.DB == nil {
		return 0, errors.New("execute: DB is nil")
	}

	res, err := s.DB.ExecContext(ctx, Rebind(s.Dialect, query), args...)
	if err != nil {
		return 0, fmt.Errorf("execute: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("execute: rows affected: %w", err)
	}
	return n, nil
}

// Rebind rewrites "?" placeholders for the dialect, leaving quoted literals alone.
func Rebind(d Dialect, query string) string {
	if d != DialectDollar || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
