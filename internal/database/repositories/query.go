package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"studyhub/internal/database"
)

var (
	ErrEventFull         = errors.New("event is fully booked")
	ErrIncorrectPassword = errors.New("incorrect password")
	ErrTokenUsed         = errors.New("token already used")
	ErrTokenExpired      = errors.New("token expired")
	ErrCapacityTooLow    = errors.New("capacity is below the number of confirmed bookings")
)

// now stamps created_at/updated_at. Timestamps are set here rather than by
// the database so both drivers store the same UTC values.
var now = func() time.Time { return time.Now().UTC() }

// queryBuilder collects WHERE conditions written with ? placeholders and
// numbers them $1, $2, ... in the order they are added. Both supported
// drivers accept $n, and SQLite binds them by first appearance, so numbers
// must only ever grow left to right.
type queryBuilder struct {
	conds []string
	args  []interface{}
}

func (b *queryBuilder) where(cond string, args ...interface{}) {
	var sb strings.Builder
	i := 0
	for _, r := range cond {
		if r == '?' && i < len(args) {
			sb.WriteString(b.arg(args[i]))
			i++
			continue
		}
		sb.WriteRune(r)
	}
	b.conds = append(b.conds, sb.String())
}

func (b *queryBuilder) arg(v interface{}) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *queryBuilder) clause() string {
	if len(b.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conds, " AND ")
}

// page appends LIMIT/OFFSET placeholders after every WHERE argument.
func (b *queryBuilder) page(limit, offset int) string {
	return fmt.Sprintf(" LIMIT %s OFFSET %s", b.arg(limit), b.arg(offset))
}

// containsPattern builds a case-insensitive LIKE pattern; callers compare it
// against LOWER(column) with ESCAPE '\'.
func containsPattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(strings.TrimSpace(s))) + "%"
}

func direction(order string) string {
	if strings.EqualFold(order, "asc") {
		return "ASC"
	}
	return "DESC"
}

func count(row *sql.Row) (int, error) {
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting rows: %w", err)
	}
	return n, nil
}

// affected turns a zero-row UPDATE or DELETE into database.ErrNotFound.
func affected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if n == 0 {
		return database.ErrNotFound
	}
	return nil
}

// utcPtr keeps a nil time as SQL NULL.
func utcPtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
