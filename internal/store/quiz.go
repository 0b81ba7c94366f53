package store

import (
	"context"
	"database/sql"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/assessd/internal/quiz"
)

const (
	tableQuizzes     = "quizzes"
	tableQuizAttempt = "quiz_attempts"
)

func (c *conn) CreateQuiz(ctx context.Context, q *quiz.Quiz) error {
	questions, err := encodeJSON(q.Questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}
	query, args := c.builder().Insert(tableQuizzes).
		Columns("id", "course_id", "author_id", "title", "questions_json", "created_at").
		Values(q.ID, q.CourseID, q.AuthorID, q.Title, questions, millis(q.CreatedAt)).
		Query()
	if _, err := c.exec(ctx, query, args); err != nil {
		return unavailable("insert quiz", err)
	}
	return nil
}

func (c *conn) GetQuiz(ctx context.Context, id string) (*quiz.Quiz, error) {
	qs, err := c.selectQuizzes(ctx, entsql.EQ("id", id))
	if err != nil {
		return nil, err
	}
	if len(qs) == 0 {
		return nil, quiz.ErrQuizNotFound
	}
	return &qs[0], nil
}

func (c *conn) ListCourseQuizzes(ctx context.Context, courseID string) ([]quiz.Quiz, error) {
	return c.selectQuizzes(ctx, entsql.EQ("course_id", courseID))
}

func (c *conn) selectQuizzes(ctx context.Context, where *entsql.Predicate) ([]quiz.Quiz, error) {
	b := c.builder()
	query, args := b.Select("id", "course_id", "author_id", "title", "questions_json", "created_at").
		From(b.Table(tableQuizzes)).
		Where(where).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id")).
		Query()

	rows, err := c.query(ctx, query, args)
	if err != nil {
		return nil, unavailable("select quizzes", err)
	}
	defer rows.Close()

	var out []quiz.Quiz
	for rows.Next() {
		var (
			q         quiz.Quiz
			questions string
			createdAt int64
		)
		if err := rows.Scan(&q.ID, &q.CourseID, &q.AuthorID, &q.Title, &questions, &createdAt); err != nil {
			return nil, unavailable("scan quiz", err)
		}
		if q.Questions, err = decodeQuestions(questions, quiz.KindInstructor.ExpectedCount()); err != nil {
			return nil, err
		}
		q.CreatedAt = fromMillis(createdAt)
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("select quizzes", err)
	}
	return out, nil
}

func (c *conn) CreateQuizAttempt(ctx context.Context, a *quiz.QuizAttempt) error {
	query, args := c.builder().Insert(tableQuizAttempt).
		Columns("id", "quiz_id", "user_id", "status", "created_at").
		Values(a.ID, a.QuizID, a.UserID, string(quiz.StatusInProgress), millis(a.CreatedAt)).
		Query()
	if _, err := c.exec(ctx, query, args); err != nil {
		return unavailable("insert quiz attempt", err)
	}
	a.Status = quiz.StatusInProgress
	return nil
}

func (c *conn) OpenQuizAttempt(ctx context.Context, quizID, userID string) (*quiz.QuizAttempt, error) {
	b := c.builder()
	sel := b.Select("id", "quiz_id", "user_id", "status", "created_at").
		From(b.Table(tableQuizAttempt)).
		Where(entsql.And(
			entsql.EQ("quiz_id", quizID),
			entsql.EQ("user_id", userID),
			entsql.EQ("status", string(quiz.StatusInProgress)),
		)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id")).
		Limit(1)
	query, args := c.forUpdate(sel).Query()

	var (
		a         quiz.QuizAttempt
		status    string
		createdAt int64
	)
	found, err := c.queryOne(ctx, query, args, &a.ID, &a.QuizID, &a.UserID, &status, &createdAt)
	if err != nil {
		return nil, unavailable("load quiz attempt", err)
	}
	if !found {
		return nil, quiz.ErrAttemptNotFound
	}
	a.Status = quiz.Status(status)
	a.CreatedAt = fromMillis(createdAt)
	return &a, nil
}

func (c *conn) CompleteQuizAttempt(ctx context.Context, id, userID string, done quiz.Completion) error {
	answers, err := encodeJSON(done.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	query, args := c.builder().Update(tableQuizAttempt).
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
		return unavailable("complete quiz attempt", err)
	}
	ok, err := affectedOne(res)
	if err != nil {
		return unavailable("complete quiz attempt", err)
	}
	if !ok {
		return quiz.ErrAttemptNotFound
	}
	return nil
}

// GetQuizAttempt returns an attempt in any state regardless of owner.
func (c *conn) GetQuizAttempt(ctx context.Context, id string) (*quiz.QuizAttempt, error) {
	b := c.builder()
	query, args := b.Select("id", "quiz_id", "user_id", "answers_json", "score", "status", "created_at", "completed_at").
		From(b.Table(tableQuizAttempt)).
		Where(entsql.EQ("id", id)).
		Query()

	var (
		a           quiz.QuizAttempt
		answers     sql.NullString
		score       sql.NullInt64
		status      string
		createdAt   int64
		completedAt sql.NullInt64
	)
	found, err := c.queryOne(ctx, query, args, &a.ID, &a.QuizID, &a.UserID, &answers, &score, &status, &createdAt, &completedAt)
	if err != nil {
		return nil, unavailable("load quiz attempt", err)
	}
	if !found {
		return nil, quiz.ErrAttemptNotFound
	}
	if a.Answers, err = decodeAnswers(answers); err != nil {
		return nil, err
	}
	a.Score = nullInt(score)
	a.Status = quiz.Status(status)
	a.CreatedAt = fromMillis(createdAt)
	a.CompletedAt = nullMillis(completedAt)
	return &a, nil
}
