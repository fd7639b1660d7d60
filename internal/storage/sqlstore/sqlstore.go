// Package sqlstore persists users and predictions through database/sql. The
// same queries serve Postgres (pgx) and SQLite (modernc); placeholders are
// written as ? and rebound per dialect, and timestamps are unix milliseconds.
// Case-insensitive lookups compare against lowercased *_key columns.
package sqlstore

import (
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/loanwise/platform/internal/database"
)

const pgUniqueViolation = "23505"

type queries struct {
	dialect database.Dialect
}

func (q queries) bind(query string) string {
	return database.Rebind(q.dialect, query)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// foldKey is the case folding behind every *_key column and search pattern.
// It is done in Go because SQLite's LOWER only folds ASCII.
func foldKey(s string) string {
	return strings.ToLower(s)
}

// likePattern wraps s for a case-insensitive substring match, escaping LIKE
// metacharacters with backslash.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + foldKey(r.Replace(s)) + "%"
}
