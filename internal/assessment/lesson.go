package assessment

import (
	"context"
	"log/slog"

	"github.com/abhisek/assessd/internal/quiz"
	"github.com/abhisek/assessd/internal/quizgen"
	"github.com/abhisek/assessd/internal/readiness"
	"github.com/abhisek/assessd/internal/store"
)

// GenerateLessonQuiz replaces a lesson's embedded quiz with one generated
// from the lesson title and summary. Only the course instructor may do so.
func (s *Service) GenerateLessonQuiz(ctx context.Context, userID, lessonID string) (*LessonQuizView, error) {
	lesson, err := s.directory.Lesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	course, err := s.directory.Course(ctx, lesson.CourseID)
	if err != nil {
		return nil, err
	}
	if course.InstructorID != userID {
		return nil, quiz.ErrForbidden
	}

	questions, err := s.generator.Generate(ctx, quiz.KindLesson, quizgen.Context{
		CourseTitle:   course.Title,
		LessonTitle:   lesson.Title,
		LessonSummary: lesson.Summary,
	})
	if err != nil {
		s.logGenerationFailure(ctx, "lesson quiz", err)
		return nil, err
	}

	lq := &quiz.LessonQuiz{LessonID: lesson.ID, Questions: questions, CreatedAt: s.now()}
	lessons := s.store.Repos().LessonQuiz
	if err := lessons.PutLessonQuiz(ctx, lq); err != nil {
		return nil, err
	}
	stored, err := lessons.GetLessonQuiz(ctx, lesson.ID)
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "lesson quiz generated",
		slog.String("lesson_id", lesson.ID), slog.Int("version", stored.Version))

	return lessonView(stored), nil
}

// GetLessonQuiz returns a lesson's quiz without answers to an enrolled
// learner or the course instructor.
func (s *Service) GetLessonQuiz(ctx context.Context, userID, lessonID string) (*LessonQuizView, error) {
	lesson, err := s.directory.Lesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorizeCourse(ctx, lesson.CourseID, userID); err != nil {
		return nil, err
	}
	lq, err := s.store.Repos().LessonQuiz.GetLessonQuiz(ctx, lesson.ID)
	if err != nil {
		return nil, err
	}
	return lessonView(lq), nil
}

func lessonView(lq *quiz.LessonQuiz) *LessonQuizView {
	return &LessonQuizView{LessonID: lq.LessonID, Version: lq.Version, Questions: quiz.Public(lq.Questions)}
}

// SubmitLessonQuiz grades a lesson quiz and folds the percentage into the
// learner's readiness score. The attempt and the readiness update commit
// together or not at all. A non-zero version must match the quiz the learner
// loaded; zero grades against the current quiz.
func (s *Service) SubmitLessonQuiz(ctx context.Context, userID, lessonID string, version int, answers []int) (*LessonSubmitResult, error) {
	lesson, err := s.directory.Lesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	ok, err := s.directory.IsEnrolled(ctx, lesson.CourseID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, quiz.ErrNotEnrolled
	}
	if err := quiz.CheckAnswers(answers); err != nil {
		return nil, err
	}

	var (
		attempt quiz.LessonAttempt
		score   readiness.Score
	)
	err = s.store.InTx(ctx, func(r store.Repos) error {
		lq, err := r.LessonQuiz.GetLessonQuiz(ctx, lesson.ID)
		if err != nil {
			return err
		}
		if version != 0 && version != lq.Version {
			return quiz.ErrQuizChanged
		}
		total := len(lq.Questions)
		graded := quiz.NormalizeAnswers(answers, total)
		res := quiz.Grade(lq.Questions, graded)

		attempt = quiz.LessonAttempt{
			ID:           s.newID(),
			LessonID:     lesson.ID,
			QuizVersion:  lq.Version,
			UserID:       userID,
			Answers:      graded,
			CorrectCount: res.Score,
			Total:        total,
			Percentage:   quiz.Percentage(res.Score, total),
			CompletedAt:  s.now(),
		}
		if err := r.LessonQuiz.RecordLessonAttempt(ctx, &attempt); err != nil {
			return err
		}
		score, err = s.observe(ctx, r, userID, attempt.Percentage)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &LessonSubmitResult{
		CorrectCount:            attempt.CorrectCount,
		Total:                   attempt.Total,
		Percentage:              attempt.Percentage,
		QuizVersion:             attempt.QuizVersion,
		ReadinessScore:          score.Value,
		ReadinessScoreQuizCount: score.QuizCount,
	}, nil
}

// ListLessonAttempts returns the caller's attempts at a lesson quiz, newest
// first. The caller must be enrolled in the lesson's course.
func (s *Service) ListLessonAttempts(ctx context.Context, userID, lessonID string) ([]LessonAttemptSummary, error) {
	lesson, err := s.directory.Lesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	ok, err := s.directory.IsEnrolled(ctx, lesson.CourseID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, quiz.ErrNotEnrolled
	}
	attempts, err := s.store.Repos().LessonQuiz.ListLessonAttempts(ctx, lesson.ID, userID)
	if err != nil {
		return nil, err
	}
	out := make([]LessonAttemptSummary, len(attempts))
	for i, a := range attempts {
		out[i] = LessonAttemptSummary{
			ID:           a.ID,
			QuizVersion:  a.QuizVersion,
			CorrectCount: a.CorrectCount,
			Total:        a.Total,
			Percentage:   a.Percentage,
			CompletedAt:  a.CompletedAt,
		}
	}
	return out, nil
}

// GetReadiness returns the user's readiness aggregate, zero if never observed.
func (s *Service) GetReadiness(ctx context.Context, userID string) (readiness.Score, error) {
	return s.store.Repos().Readiness.GetReadiness(ctx, userID)
}
