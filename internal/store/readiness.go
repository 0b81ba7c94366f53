package store

import (
	"context"
	"database/sql"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/assessd/internal/readiness"
)

const tableUsers = "users"

// ensureUser creates the user's aggregate row if it is missing.
func (c *conn) ensureUser(ctx context.Context, userID string) error {
	query, args := c.builder().Insert(tableUsers).
		Columns("id", "readiness_score", "readiness_quiz_count").
		Values(userID, 0.0, 0).
		OnConflict(
			entsql.ConflictColumns("id"),
			entsql.DoNothing(),
		).
		Query()
	_, err := c.exec(ctx, query, args)
	return err
}

func (c *conn) LoadReadinessForUpdate(ctx context.Context, userID string) (readiness.Score, error) {
	if err := c.ensureUser(ctx, userID); err != nil {
		return readiness.Score{}, unavailable("ensure user", err)
	}
	s, _, err := c.readReadiness(ctx, userID, true)
	return s, err
}

func (c *conn) SaveReadiness(ctx context.Context, userID string, s readiness.Score) error {
	query, args := c.builder().Update(tableUsers).
		Set("readiness_score", s.Value).
		Set("readiness_quiz_count", s.QuizCount).
		Set("readiness_updated_at", millis(s.UpdatedAt)).
		Where(entsql.EQ("id", userID)).
		Query()
	res, err := c.exec(ctx, query, args)
	if err != nil {
		return unavailable("save readiness", err)
	}
	ok, err := affectedOne(res)
	if err != nil {
		return unavailable("save readiness", err)
	}
	if !ok {
		return unavailable("save readiness", sql.ErrNoRows)
	}
	return nil
}

func (c *conn) GetReadiness(ctx context.Context, userID string) (readiness.Score, error) {
	s, _, err := c.readReadiness(ctx, userID, false)
	return s, err
}

func (c *conn) readReadiness(ctx context.Context, userID string, lock bool) (readiness.Score, bool, error) {
	b := c.builder()
	sel := b.Select("readiness_score", "readiness_quiz_count", "readiness_updated_at").
		From(b.Table(tableUsers)).
		Where(entsql.EQ("id", userID))
	if lock {
		sel = c.forUpdate(sel)
	}
	query, args := sel.Query()

	var (
		s         readiness.Score
		updatedAt sql.NullInt64
	)
	found, err := c.queryOne(ctx, query, args, &s.Value, &s.QuizCount, &updatedAt)
	if err != nil {
		return readiness.Score{}, false, unavailable("load readiness", err)
	}
	if !found {
		return readiness.Score{}, false, nil
	}
	if t := nullMillis(updatedAt); t != nil {
		s.UpdatedAt = *t
	}
	return s, true, nil
}
