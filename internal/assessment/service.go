// Package assessment orchestrates quiz generation, attempt submission,
// grading, feedback and readiness tracking.
package assessment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/abhisek/assessd/internal/directory"
	"github.com/abhisek/assessd/internal/quiz"
	"github.com/abhisek/assessd/internal/quizgen"
	"github.com/abhisek/assessd/internal/readiness"
	"github.com/abhisek/assessd/internal/store"
)

// MaxTopicLength bounds the topic a learner may request.
const MaxTopicLength = 200

// Store is the persistence the service needs.
type Store interface {
	Repos() store.Repos
	InTx(ctx context.Context, fn func(store.Repos) error) error
}

// QuizGenerator produces validated question sets.
type QuizGenerator interface {
	Generate(ctx context.Context, kind quiz.Kind, in quizgen.Context) ([]quiz.Question, error)
}

// FeedbackGenerator writes guidance for a graded attempt. It must not fail.
type FeedbackGenerator interface {
	Generate(ctx context.Context, questions []quiz.Question, answers []int, topic string) string
}

// Service implements the assessment operations.
type Service struct {
	store     Store
	directory directory.Directory
	generator QuizGenerator
	feedback  FeedbackGenerator
	log       *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewService wires a Service.
func NewService(st Store, dir directory.Directory, gen QuizGenerator, fb FeedbackGenerator, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:     st,
		directory: dir,
		generator: gen,
		feedback:  fb,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// GenerateQuiz creates an in-progress self-assessment on a topic. Nothing
// is persisted unless generation and validation succeed.
func (s *Service) GenerateQuiz(ctx context.Context, userID string, in GenerateQuizInput) (*GeneratedQuiz, error) {
	topic := strings.TrimSpace(in.Topic)
	if topic == "" {
		return nil, quiz.Invalid("topic is required")
	}
	if utf8.RuneCountInString(topic) > MaxTopicLength {
		return nil, quiz.Invalid("topic exceeds %d characters", MaxTopicLength)
	}
	difficulty, ok := quiz.ParseDifficulty(strings.ToLower(strings.TrimSpace(in.Difficulty)))
	if !ok {
		return nil, quiz.Invalid("difficulty must be easy, medium or hard")
	}

	questions, err := s.generator.Generate(ctx, quiz.KindLearner, quizgen.Context{Topic: topic, Difficulty: difficulty})
	if err != nil {
		s.logGenerationFailure(ctx, "learner quiz", err)
		return nil, err
	}

	a := &quiz.AIAttempt{
		ID:         s.newID(),
		UserID:     userID,
		Topic:      topic,
		Title:      fmt.Sprintf("%s Quiz", topic),
		Difficulty: difficulty,
		Questions:  questions,
		CreatedAt:  s.now(),
	}
	if err := s.store.Repos().Attempts.CreateAIAttempt(ctx, a); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "ai quiz created",
		slog.String("attempt_id", a.ID),
		slog.String("user_id", userID),
		slog.String("difficulty", string(difficulty)))

	return &GeneratedQuiz{
		AttemptID:  a.ID,
		Title:      a.Title,
		Difficulty: difficulty,
		Questions:  quiz.Public(questions),
	}, nil
}

// SubmitQuiz grades a self-assessment. The grade is committed first; the
// feedback is generated and attached afterwards and its failure only
// degrades the feedback text.
func (s *Service) SubmitQuiz(ctx context.Context, userID, attemptID string, answers []int) (*SubmitResult, error) {
	if err := quiz.CheckAnswers(answers); err != nil {
		return nil, err
	}

	repos := s.store.Repos()
	a, err := repos.Attempts.LoadAIAttemptForSubmission(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}
	answers = quiz.NormalizeAnswers(answers, len(a.Questions))

	res := quiz.Grade(a.Questions, answers)
	done := quiz.Completion{Answers: answers, Score: res.Score, CompletedAt: s.now()}
	if err := repos.Attempts.CompleteAIAttempt(ctx, a.ID, userID, done); err != nil {
		return nil, err
	}

	fb := s.feedback.Generate(ctx, a.Questions, answers, a.Topic)
	if err := repos.Attempts.AttachAIFeedback(context.WithoutCancel(ctx), a.ID, userID, fb); err != nil {
		s.log.WarnContext(ctx, "attach feedback failed",
			slog.String("attempt_id", a.ID),
			slog.Any("error", err))
	}

	return &SubmitResult{
		Score:          res.Score,
		TotalQuestions: len(a.Questions),
		Feedback:       fb,
		CorrectAnswers: res.CorrectAnswers,
	}, nil
}

// ListAttempts returns the user's self-assessments newest first.
func (s *Service) ListAttempts(ctx context.Context, userID string, limit int) ([]quiz.AttemptSummary, error) {
	if limit < 0 {
		return nil, quiz.Invalid("limit must not be negative")
	}
	list, err := s.store.Repos().Attempts.ListAIAttempts(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []quiz.AttemptSummary{}
	}
	return list, nil
}

// GetAttempt returns the owner's full view of an attempt. In-progress
// attempts do not reveal correct answers.
func (s *Service) GetAttempt(ctx context.Context, userID, attemptID string) (*AttemptDetail, error) {
	a, err := s.store.Repos().Attempts.GetAIAttempt(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}
	d := &AttemptDetail{
		ID:          a.ID,
		Topic:       a.Topic,
		Title:       a.Title,
		Difficulty:  a.Difficulty,
		Status:      a.Status,
		Answers:     a.Answers,
		Score:       a.Score,
		Feedback:    a.Feedback,
		CreatedAt:   a.CreatedAt,
		CompletedAt: a.CompletedAt,
	}
	if a.Status == quiz.StatusCompleted {
		d.Questions = a.Questions
	} else {
		d.PublicQuestions = quiz.Public(a.Questions)
	}
	return d, nil
}

func (s *Service) logGenerationFailure(ctx context.Context, what string, err error) {
	attrs := []any{slog.String("what", what), slog.Any("error", err)}
	if gerr, ok := quizgen.AsGenerationError(err); ok {
		attrs = append(attrs, slog.String("kind", string(gerr.Kind)))
		if gerr.Kind == quizgen.KindInputInvalid {
			return
		}
	}
	s.log.WarnContext(ctx, "quiz generation failed", attrs...)
}

func (s *Service) observe(ctx context.Context, r store.Repos, userID string, pct float64) (readiness.Score, error) {
	return readiness.Observe(ctx, r.Readiness, userID, pct, s.now())
}
