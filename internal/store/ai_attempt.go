package store

import (
	"context"
	"database/sql"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/assessd/internal/quiz"
)

const tableAIAttempts = "ai_quiz_attempts"

var aiAttemptColumns = []string{
	"id", "user_id", "topic", "title", "difficulty", "questions_json",
	"answers_json", "score", "feedback", "status", "created_at", "completed_at",
}

func (c *conn) CreateAIAttempt(ctx context.Context, a *quiz.AIAttempt) error {
	questions, err := encodeJSON(a.Questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}

	query, args := c.builder().Insert(tableAIAttempts).
		Columns("id", "user_id", "topic", "title", "difficulty", "questions_json", "status", "created_at").
		Values(a.ID, a.UserID, a.Topic, a.Title, string(a.Difficulty), questions, string(quiz.StatusInProgress), millis(a.CreatedAt)).
		Query()
	if _, err := c.exec(ctx, query, args); err != nil {
		return unavailable("insert ai attempt", err)
	}
	a.Status = quiz.StatusInProgress
	return nil
}

func (c *conn) LoadAIAttemptForSubmission(ctx context.Context, id, userID string) (*quiz.AIAttempt, error) {
	return c.getAIAttempt(ctx, entsql.And(
		entsql.EQ("id", id),
		entsql.EQ("user_id", userID),
		entsql.EQ("status", string(quiz.StatusInProgress)),
	))
}

func (c *conn) GetAIAttempt(ctx context.Context, id, userID string) (*quiz.AIAttempt, error) {
	return c.getAIAttempt(ctx, entsql.And(
		entsql.EQ("id", id),
		entsql.EQ("user_id", userID),
	))
}

func (c *conn) getAIAttempt(ctx context.Context, where *entsql.Predicate) (*quiz.AIAttempt, error) {
	b := c.builder()
	query, args := b.Select(aiAttemptColumns...).
		From(b.Table(tableAIAttempts)).
		Where(where).
		Query()

	var (
		a           quiz.AIAttempt
		difficulty  string
		status      string
		questions   string
		answers     sql.NullString
		score       sql.NullInt64
		feedback    sql.NullString
		createdAt   int64
		completedAt sql.NullInt64
	)
	found, err := c.queryOne(ctx, query, args,
		&a.ID, &a.UserID, &a.Topic, &a.Title, &difficulty, &questions,
		&answers, &score, &feedback, &status, &createdAt, &completedAt)
	if err != nil {
		return nil, unavailable("load ai attempt", err)
	}
	if !found {
		return nil, quiz.ErrAttemptNotFound
	}

	if a.Questions, err = decodeQuestions(questions, quiz.KindLearner.ExpectedCount()); err != nil {
		return nil, err
	}
	if a.Answers, err = decodeAnswers(answers); err != nil {
		return nil, err
	}
	a.Difficulty = quiz.Difficulty(difficulty)
	a.Status = quiz.Status(status)
	a.Score = nullInt(score)
	a.Feedback = feedback.String
	a.CreatedAt = fromMillis(createdAt)
	a.CompletedAt = nullMillis(completedAt)
	return &a, nil
}

func (c *conn) CompleteAIAttempt(ctx context.Context, id, userID string, done quiz.Completion) error {
	answers, err := encodeJSON(done.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}

	query, args := c.builder().Update(tableAIAttempts).
		Set("answers_json", answers).
		Set("score", done.Score).
		Set("status", string(quiz.StatusCompleted)).
		Set("completed_at", millis(done.CompletedAt)).
		Where(entsql.And(
			entsql.EQ("id", id),
			entsql.EQ("user_id", userID),
			entsql.EQ("status", string(quiz.StatusInProgress)),
		)).
		Query()
	res, err := c.exec(ctx, query, args)
	if err != nil {
		return unavailable("complete ai attempt", err)
	}
	ok, err := affectedOne(res)
	if err != nil {
		return unavailable("complete ai attempt", err)
	}
	if !ok {
		return quiz.ErrAttemptNotFound
	}
	return nil
}

func (c *conn) AttachAIFeedback(ctx context.Context, id, userID, feedback string) error {
	query, args := c.builder().Update(tableAIAttempts).
		Set("feedback", feedback).
		Where(entsql.And(
			entsql.EQ("id", id),
			entsql.EQ("user_id", userID),
			entsql.EQ("status", string(quiz.StatusCompleted)),
			entsql.IsNull("feedback"),
		)).
		Query()
	res, err := c.exec(ctx, query, args)
	if err != nil {
		return unavailable("attach feedback", err)
	}
	ok, err := affectedOne(res)
	if err != nil {
		return unavailable("attach feedback", err)
	}
	if !ok {
		return quiz.ErrAttemptNotFound
	}
	return nil
}

func (c *conn) ListAIAttempts(ctx context.Context, userID string, limit int) ([]quiz.AttemptSummary, error) {
	b := c.builder()
	sel := b.Select("id", "title", "difficulty", "status", "score", "created_at", "completed_at").
		From(b.Table(tableAIAttempts)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id"))
	if limit > 0 {
		sel.Limit(limit)
	}
	query, args := sel.Query()

	rows, err := c.query(ctx, query, args)
	if err != nil {
		return nil, unavailable("list ai attempts", err)
	}
	defer rows.Close()

	var out []quiz.AttemptSummary
	for rows.Next() {
		var (
			s                  quiz.AttemptSummary
			difficulty, status string
			score              sql.NullInt64
			createdAt          int64
			completedAt        sql.NullInt64
		)
		if err := rows.Scan(&s.ID, &s.Title, &difficulty, &status, &score, &createdAt, &completedAt); err != nil {
			return nil, unavailable("scan ai attempt", err)
		}
		s.Difficulty = quiz.Difficulty(difficulty)
		s.Status = quiz.Status(status)
		s.Score = nullInt(score)
		s.CreatedAt = fromMillis(createdAt)
		s.CompletedAt = nullMillis(completedAt)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list ai attempts", err)
	}
	return out, nil
}
