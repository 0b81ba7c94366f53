package assessment

import (
	"time"

	"github.com/abhisek/assessd/internal/quiz"
)

// GenerateQuizInput is a learner's request for a self-assessment.
type GenerateQuizInput struct {
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
}

// GeneratedQuiz is returned when a self-assessment is created. Correct
// answers are withheld.
type GeneratedQuiz struct {
	AttemptID  string                `json:"attemptId"`
	Title      string                `json:"title"`
	Difficulty quiz.Difficulty       `json:"difficulty"`
	Questions  []quiz.PublicQuestion `json:"questions"`
}

// SubmitResult is the graded outcome of a self-assessment.
type SubmitResult struct {
	Score          int    `json:"score"`
	TotalQuestions int    `json:"totalQuestions"`
	Feedback       string `json:"feedback"`
	CorrectAnswers []int  `json:"correctAnswers"`
}

// AttemptDetail is the owner's full view of a self-assessment. Correct
// answers appear in Questions only once the attempt is completed; before
// that the snapshot is in PublicQuestions.
type AttemptDetail struct {
	ID              string                `json:"id"`
	Topic           string                `json:"topic"`
	Title           string                `json:"title"`
	Difficulty      quiz.Difficulty       `json:"difficulty"`
	Status          quiz.Status           `json:"status"`
	Questions       []quiz.Question       `json:"questions,omitempty"`
	PublicQuestions []quiz.PublicQuestion `json:"publicQuestions,omitempty"`
	Answers         []int                 `json:"answers"`
	Score           *int                  `json:"score"`
	Feedback        string                `json:"feedback,omitempty"`
	CreatedAt       time.Time             `json:"createdAt"`
	CompletedAt     *time.Time            `json:"completedAt"`
}

// CreateQuizInput describes an instructor quiz. Either Questions is set or
// GenerateWithAI asks for a generated set on Topic (the title when empty).
type CreateQuizInput struct {
	CourseID       string          `json:"courseId"`
	Title          string          `json:"title"`
	Questions      []quiz.Question `json:"questions"`
	GenerateWithAI bool            `json:"generateWithAi"`
	Topic          string          `json:"topic"`
}

// CreatedQuiz identifies a persisted instructor quiz.
type CreatedQuiz struct {
	ID        string `json:"id"`
	CourseID  string `json:"courseId"`
	Title     string `json:"title"`
	Questions int    `json:"questionCount"`
}

// QuizView is an instructor quiz as shown to a caller. Learners get
// PublicQuestions; the course instructor gets Questions.
type QuizView struct {
	ID              string                `json:"id"`
	CourseID        string                `json:"courseId"`
	Title           string                `json:"title"`
	Questions       []quiz.Question       `json:"questions,omitempty"`
	PublicQuestions []quiz.PublicQuestion `json:"publicQuestions,omitempty"`
	CreatedAt       time.Time             `json:"createdAt"`
}

// QuizSummary is a list entry for a course's quizzes.
type QuizSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

// StartedAttempt is an open attempt at an instructor quiz.
type StartedAttempt struct {
	AttemptID string                `json:"attemptId"`
	QuizID    string                `json:"quizId"`
	Questions []quiz.PublicQuestion `json:"questions"`
}

// QuizSubmitResult is the graded outcome of an instructor quiz attempt.
type QuizSubmitResult struct {
	AttemptID      string `json:"attemptId"`
	Score          int    `json:"score"`
	TotalQuestions int    `json:"totalQuestions"`
	CorrectAnswers []int  `json:"correctAnswers"`
}

// LessonQuizView is a lesson's embedded quiz without answers.
// Submissions echo Version back so a replaced quiz is detected.
type LessonQuizView struct {
	LessonID  string                `json:"lessonId"`
	Version   int                   `json:"version"`
	Questions []quiz.PublicQuestion `json:"questions"`
}

// LessonSubmitResult is the graded outcome of a lesson quiz, with the
// readiness aggregate after the observation.
type LessonSubmitResult struct {
	CorrectCount            int     `json:"correctCount"`
	Total                   int     `json:"total"`
	Percentage              float64 `json:"percentage"`
	QuizVersion             int     `json:"quizVersion"`
	ReadinessScore          float64 `json:"readinessScore"`
	ReadinessScoreQuizCount int     `json:"readinessScoreQuizCount"`
}

// QuizAttemptView is an instructor quiz attempt as seen by its owner or the
// course instructor. CorrectAnswers is set once the attempt is completed.
type QuizAttemptView struct {
	ID             string      `json:"id"`
	QuizID         string      `json:"quizId"`
	UserID         string      `json:"userId"`
	Status         quiz.Status `json:"status"`
	Answers        []int       `json:"answers"`
	Score          *int        `json:"score"`
	CorrectAnswers []int       `json:"correctAnswers,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
	CompletedAt    *time.Time  `json:"completedAt"`
}

// LessonAttemptSummary is one of the caller's graded lesson quiz attempts.
type LessonAttemptSummary struct {
	ID           string    `json:"id"`
	QuizVersion  int       `json:"quizVersion"`
	CorrectCount int       `json:"correctCount"`
	Total        int       `json:"total"`
	Percentage   float64   `json:"percentage"`
	CompletedAt  time.Time `json:"completedAt"`
}
