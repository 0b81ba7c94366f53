package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/assessd/internal/quiz"
)

// conn implements every repository on top of a pool or a transaction.
type conn struct {
	q       dialect.ExecQuerier
	dialect string
	inTx    bool
}

func (c *conn) builder() *entsql.DialectBuilder {
	return entsql.Dialect(c.dialect)
}

func (c *conn) exec(ctx context.Context, query string, args []any) (sql.Result, error) {
	var res sql.Result
	if err := c.q.Exec(ctx, query, args, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *conn) query(ctx context.Context, query string, args []any) (*entsql.Rows, error) {
	rows := &entsql.Rows{}
	if err := c.q.Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// queryOne runs query and scans the first row into dest. It reports false
// when there is no row.
func (c *conn) queryOne(ctx context.Context, query string, args []any, dest ...any) (bool, error) {
	rows, err := c.query(ctx, query, args)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	if !rows.Next() {
		return false, rows.Err()
	}
	if err := rows.Scan(dest...); err != nil {
		return false, err
	}
	return true, rows.Close()
}

// forUpdate locks the selected rows where the dialect supports it. SQLite
// transactions are already serialized by the single connection.
func (c *conn) forUpdate(s *entsql.Selector) *entsql.Selector {
	if c.inTx && c.dialect == dialect.Postgres {
		return s.ForUpdate()
	}
	return s
}

// affectedOne reports whether res touched exactly one row.
func affectedOne(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// now is replaced in tests.
var now = time.Now

func millis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullMillis(ms sql.NullInt64) *time.Time {
	if !ms.Valid {
		return nil
	}
	t := fromMillis(ms.Int64)
	return &t
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeQuestions re-validates a stored snapshot. A snapshot that no longer
// passes is reported as a store failure rather than graded.
func decodeQuestions(raw string, expected int) ([]quiz.Question, error) {
	qs, serr := quiz.ValidateJSON([]byte(raw), expected)
	if serr != nil {
		return nil, fmt.Errorf("%w: corrupt question snapshot: %v", quiz.ErrStoreUnavailable, serr)
	}
	return qs, nil
}

func decodeAnswers(raw sql.NullString) ([]int, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var out []int
	if err := json.Unmarshal([]byte(raw.String), &out); err != nil {
		return nil, fmt.Errorf("%w: corrupt answers snapshot: %v", quiz.ErrStoreUnavailable, err)
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
