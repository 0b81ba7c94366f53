package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/assessd/internal/quiz"
)

const (
	tableLessonQuizzes  = "lesson_quizzes"
	tableLessonAttempts = "lesson_quiz_attempts"
)

// PutLessonQuiz stores the lesson's quiz, replacing any previous one and
// bumping its version.
func (c *conn) PutLessonQuiz(ctx context.Context, q *quiz.LessonQuiz) error {
	questions, err := encodeJSON(q.Questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}
	query, args := c.builder().Insert(tableLessonQuizzes).
		Columns("lesson_id", "version", "questions_json", "created_at").
		Values(q.LessonID, 1, questions, millis(q.CreatedAt)).
		OnConflict(
			entsql.ConflictColumns("lesson_id"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("questions_json")
				u.SetExcluded("created_at")
				u.Add("version", 1)
			}),
		).
		Query()
	if _, err := c.exec(ctx, query, args); err != nil {
		return unavailable("put lesson quiz", err)
	}
	return nil
}

// GetLessonQuiz loads the lesson's current quiz. Inside a transaction on
// Postgres the row stays locked until commit.
func (c *conn) GetLessonQuiz(ctx context.Context, lessonID string) (*quiz.LessonQuiz, error) {
	b := c.builder()
	sel := b.Select("lesson_id", "version", "questions_json", "created_at").
		From(b.Table(tableLessonQuizzes)).
		Where(entsql.EQ("lesson_id", lessonID))
	query, args := c.forUpdate(sel).Query()

	var (
		q         quiz.LessonQuiz
		questions string
		createdAt int64
	)
	found, err := c.queryOne(ctx, query, args, &q.LessonID, &q.Version, &questions, &createdAt)
	if err != nil {
		return nil, unavailable("load lesson quiz", err)
	}
	if !found {
		return nil, quiz.ErrQuizNotFound
	}
	if q.Questions, err = decodeQuestions(questions, quiz.KindLesson.ExpectedCount()); err != nil {
		return nil, err
	}
	q.CreatedAt = fromMillis(createdAt)
	return &q, nil
}

func (c *conn) RecordLessonAttempt(ctx context.Context, a *quiz.LessonAttempt) error {
	answers, err := encodeJSON(a.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	query, args := c.builder().Insert(tableLessonAttempts).
		Columns("id", "lesson_id", "quiz_version", "user_id", "answers_json", "correct_count", "total", "percentage", "completed_at").
		Values(a.ID, a.LessonID, a.QuizVersion, a.UserID, answers, a.CorrectCount, a.Total, a.Percentage, millis(a.CompletedAt)).
		Query()
	if _, err := c.exec(ctx, query, args); err != nil {
		return unavailable("insert lesson attempt", err)
	}
	return nil
}

// ListLessonAttempts returns the user's attempts at a lesson quiz, newest first.
func (c *conn) ListLessonAttempts(ctx context.Context, lessonID, userID string) ([]quiz.LessonAttempt, error) {
	b := c.builder()
	query, args := b.Select("id", "lesson_id", "quiz_version", "user_id", "answers_json", "correct_count", "total", "percentage", "completed_at").
		From(b.Table(tableLessonAttempts)).
		Where(entsql.And(
			entsql.EQ("lesson_id", lessonID),
			entsql.EQ("user_id", userID),
		)).
		OrderBy(entsql.Desc("completed_at"), entsql.Desc("id")).
		Query()

	rows, err := c.query(ctx, query, args)
	if err != nil {
		return nil, unavailable("select lesson attempts", err)
	}
	defer rows.Close()

	var out []quiz.LessonAttempt
	for rows.Next() {
		var (
			a           quiz.LessonAttempt
			answers     string
			completedAt int64
		)
		if err := rows.Scan(&a.ID, &a.LessonID, &a.QuizVersion, &a.UserID, &answers, &a.CorrectCount, &a.Total, &a.Percentage, &completedAt); err != nil {
			return nil, unavailable("scan lesson attempt", err)
		}
		if a.Answers, err = decodeAnswers(nullString(answers)); err != nil {
			return nil, err
		}
		a.CompletedAt = fromMillis(completedAt)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("select lesson attempts", err)
	}
	return out, nil
}
