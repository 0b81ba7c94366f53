package assessment

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/abhisek/assessd/internal/quiz"
	"github.com/abhisek/assessd/internal/quizgen"
	"github.com/abhisek/assessd/internal/store"
)

// CreateInstructorQuiz persists a reusable quiz for a course. Only the
// course's instructor may create one.
func (s *Service) CreateInstructorQuiz(ctx context.Context, userID string, in CreateQuizInput) (*CreatedQuiz, error) {
	title := strings.TrimSpace(in.Title)
	if in.CourseID == "" {
		return nil, quiz.Invalid("courseId is required")
	}
	if title == "" {
		return nil, quiz.Invalid("title is required")
	}

	course, err := s.directory.Course(ctx, in.CourseID)
	if err != nil {
		return nil, err
	}
	if course.InstructorID != userID {
		return nil, quiz.ErrForbidden
	}

	n := quiz.KindInstructor.ExpectedCount()
	var questions []quiz.Question
	switch {
	case in.GenerateWithAI:
		topic := strings.TrimSpace(in.Topic)
		if topic == "" {
			topic = title
		}
		questions, err = s.generator.Generate(ctx, quiz.KindInstructor, quizgen.Context{
			Topic:       topic,
			CourseTitle: course.Title,
		})
		if err != nil {
			s.logGenerationFailure(ctx, "instructor quiz", err)
			return nil, err
		}
	case len(in.Questions) > 0:
		var serr *quiz.SchemaError
		questions, serr = quiz.ValidateQuestions(in.Questions, n)
		if serr != nil {
			return nil, quiz.Invalid("%v", serr)
		}
	default:
		return nil, quiz.Invalid("questions are required unless generateWithAi is set")
	}

	q := &quiz.Quiz{
		ID:        s.newID(),
		CourseID:  course.ID,
		AuthorID:  userID,
		Title:     title,
		Questions: questions,
		CreatedAt: s.now(),
	}
	if err := s.store.Repos().Quizzes.CreateQuiz(ctx, q); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "instructor quiz created",
		slog.String("quiz_id", q.ID),
		slog.String("course_id", q.CourseID),
		slog.Bool("generated", in.GenerateWithAI))

	return &CreatedQuiz{ID: q.ID, CourseID: q.CourseID, Title: q.Title, Questions: len(q.Questions)}, nil
}

// GetInstructorQuiz returns the quiz with answers for the course instructor
// and without answers for enrolled learners.
func (s *Service) GetInstructorQuiz(ctx context.Context, userID, quizID string) (*QuizView, error) {
	q, err := s.store.Repos().Quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	instructor, err := s.authorizeCourse(ctx, q.CourseID, userID)
	if err != nil {
		return nil, err
	}

	v := &QuizView{ID: q.ID, CourseID: q.CourseID, Title: q.Title, CreatedAt: q.CreatedAt}
	if instructor {
		v.Questions = q.Questions
	} else {
		v.PublicQuestions = quiz.Public(q.Questions)
	}
	return v, nil
}

// ListCourseQuizzes lists a course's quizzes newest first.
func (s *Service) ListCourseQuizzes(ctx context.Context, userID, courseID string) ([]QuizSummary, error) {
	if _, err := s.authorizeCourse(ctx, courseID, userID); err != nil {
		return nil, err
	}
	qs, err := s.store.Repos().Quizzes.ListCourseQuizzes(ctx, courseID)
	if err != nil {
		return nil, err
	}
	out := make([]QuizSummary, len(qs))
	for i, q := range qs {
		out[i] = QuizSummary{ID: q.ID, Title: q.Title, CreatedAt: q.CreatedAt}
	}
	return out, nil
}

// StartInstructorQuizAttempt opens an attempt for an enrolled learner, or
// returns the one already open.
func (s *Service) StartInstructorQuizAttempt(ctx context.Context, userID, quizID string) (*StartedAttempt, error) {
	q, err := s.enrolledQuiz(ctx, userID, quizID)
	if err != nil {
		return nil, err
	}

	var attemptID string
	err = s.store.InTx(ctx, func(r store.Repos) error {
		open, err := r.Quizzes.OpenQuizAttempt(ctx, q.ID, userID)
		switch {
		case err == nil:
			attemptID = open.ID
			return nil
		case !errors.Is(err, quiz.ErrAttemptNotFound):
			return err
		}
		a := &quiz.QuizAttempt{ID: s.newID(), QuizID: q.ID, UserID: userID, CreatedAt: s.now()}
		if err := r.Quizzes.CreateQuizAttempt(ctx, a); err != nil {
			return err
		}
		attemptID = a.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &StartedAttempt{AttemptID: attemptID, QuizID: q.ID, Questions: quiz.Public(q.Questions)}, nil
}

// SubmitInstructorQuizAttempt grades the learner's open attempt at a quiz,
// creating it first when none is open. Enrollment is checked before any
// write.
func (s *Service) SubmitInstructorQuizAttempt(ctx context.Context, userID, quizID string, answers []int) (*QuizSubmitResult, error) {
	q, err := s.enrolledQuiz(ctx, userID, quizID)
	if err != nil {
		return nil, err
	}
	if err := quiz.CheckAnswers(answers); err != nil {
		return nil, err
	}
	answers = quiz.NormalizeAnswers(answers, len(q.Questions))

	res := quiz.Grade(q.Questions, answers)
	var attemptID string
	err = s.store.InTx(ctx, func(r store.Repos) error {
		open, err := r.Quizzes.OpenQuizAttempt(ctx, q.ID, userID)
		switch {
		case err == nil:
			attemptID = open.ID
		case errors.Is(err, quiz.ErrAttemptNotFound):
			a := &quiz.QuizAttempt{ID: s.newID(), QuizID: q.ID, UserID: userID, CreatedAt: s.now()}
			if err := r.Quizzes.CreateQuizAttempt(ctx, a); err != nil {
				return err
			}
			attemptID = a.ID
		default:
			return err
		}
		return r.Quizzes.CompleteQuizAttempt(ctx, attemptID, userID, quiz.Completion{
			Answers:     answers,
			Score:       res.Score,
			CompletedAt: s.now(),
		})
	})
	if err != nil {
		return nil, err
	}

	return &QuizSubmitResult{
		AttemptID:      attemptID,
		Score:          res.Score,
		TotalQuestions: len(q.Questions),
		CorrectAnswers: res.CorrectAnswers,
	}, nil
}

// GetInstructorQuizAttempt returns an attempt to the learner who owns it or
// to the course instructor. Anyone else gets ErrAttemptNotFound.
func (s *Service) GetInstructorQuizAttempt(ctx context.Context, userID, attemptID string) (*QuizAttemptView, error) {
	repo := s.store.Repos().Quizzes
	a, err := repo.GetQuizAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	q, err := repo.GetQuiz(ctx, a.QuizID)
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		course, err := s.directory.Course(ctx, q.CourseID)
		if err != nil {
			return nil, err
		}
		if course.InstructorID != userID {
			return nil, quiz.ErrAttemptNotFound
		}
	}

	v := &QuizAttemptView{
		ID:          a.ID,
		QuizID:      a.QuizID,
		UserID:      a.UserID,
		Status:      a.Status,
		Answers:     a.Answers,
		Score:       a.Score,
		CreatedAt:   a.CreatedAt,
		CompletedAt: a.CompletedAt,
	}
	if a.Status == quiz.StatusCompleted {
		v.CorrectAnswers = quiz.Grade(q.Questions, a.Answers).CorrectAnswers
	}
	return v, nil
}

func (s *Service) enrolledQuiz(ctx context.Context, userID, quizID string) (*quiz.Quiz, error) {
	q, err := s.store.Repos().Quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	ok, err := s.directory.IsEnrolled(ctx, q.CourseID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, quiz.ErrNotEnrolled
	}
	return q, nil
}

// authorizeCourse admits the course instructor and enrolled learners. It
// reports whether the caller is the instructor.
func (s *Service) authorizeCourse(ctx context.Context, courseID, userID string) (bool, error) {
	course, err := s.directory.Course(ctx, courseID)
	if err != nil {
		return false, err
	}
	if course.InstructorID == userID {
		return true, nil
	}
	ok, err := s.directory.IsEnrolled(ctx, courseID, userID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, quiz.ErrNotEnrolled
	}
	return false, nil
}
