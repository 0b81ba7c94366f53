package store

import (
	"context"
	"time"

	"github.com/abhisek/assessd/internal/quiz"
	"github.com/abhisek/assessd/internal/readiness"
)

// AttemptRepo persists ephemeral AI quiz attempts. Each record is both the
// question snapshot and its single attempt.
type AttemptRepo interface {
	// CreateAIAttempt inserts a new in-progress attempt.
	CreateAIAttempt(ctx context.Context, a *quiz.AIAttempt) error

	// LoadAIAttemptForSubmission returns the attempt only if it belongs to
	// userID and is still in progress. Anything else is ErrAttemptNotFound.
	LoadAIAttemptForSubmission(ctx context.Context, id, userID string) (*quiz.AIAttempt, error)

	// CompleteAIAttempt writes answers, score and completion time in one
	// statement guarded on status. A lost race is ErrAttemptNotFound.
	CompleteAIAttempt(ctx context.Context, id, userID string, c quiz.Completion) error

	// AttachAIFeedback sets feedback on a completed attempt that has none.
	AttachAIFeedback(ctx context.Context, id, userID, feedback string) error

	// GetAIAttempt returns an attempt in any state, owner only.
	GetAIAttempt(ctx context.Context, id, userID string) (*quiz.AIAttempt, error)

	// ListAIAttempts returns the user's attempts newest first.
	ListAIAttempts(ctx context.Context, userID string, limit int) ([]quiz.AttemptSummary, error)
}

// QuizRepo persists instructor-authored quizzes and their attempts.
type QuizRepo interface {
	CreateQuiz(ctx context.Context, q *quiz.Quiz) error
	GetQuiz(ctx context.Context, id string) (*quiz.Quiz, error)
	ListCourseQuizzes(ctx context.Context, courseID string) ([]quiz.Quiz, error)

	CreateQuizAttempt(ctx context.Context, a *quiz.QuizAttempt) error

	// OpenQuizAttempt returns the user's latest in-progress attempt at the
	// quiz, or ErrAttemptNotFound.
	OpenQuizAttempt(ctx context.Context, quizID, userID string) (*quiz.QuizAttempt, error)

	// CompleteQuizAttempt has the same guard as CompleteAIAttempt.
	CompleteQuizAttempt(ctx context.Context, id, userID string, c quiz.Completion) error
	GetQuizAttempt(ctx context.Context, id string) (*quiz.QuizAttempt, error)
}

// LessonQuizRepo persists lesson-embedded quizzes and their attempts.
type LessonQuizRepo interface {
	// PutLessonQuiz creates or replaces the quiz embedded in a lesson. Each
	// replacement increments the stored version.
	PutLessonQuiz(ctx context.Context, q *quiz.LessonQuiz) error
	GetLessonQuiz(ctx context.Context, lessonID string) (*quiz.LessonQuiz, error)

	// RecordLessonAttempt inserts an already-completed attempt.
	RecordLessonAttempt(ctx context.Context, a *quiz.LessonAttempt) error
	ListLessonAttempts(ctx context.Context, lessonID, userID string) ([]quiz.LessonAttempt, error)
}

// ReadinessRepo exposes the readiness columns of the users table.
type ReadinessRepo interface {
	readiness.Repo

	// GetReadiness returns the zero Score for users never observed.
	GetReadiness(ctx context.Context, userID string) (readiness.Score, error)
}

// Course is a directory entry for a course.
type Course struct {
	ID           string
	Title        string
	InstructorID string
}

// Lesson is a directory entry for a lesson.
type Lesson struct {
	ID       string
	CourseID string
	Title    string
	Summary  string
}

// DirectoryRepo is the SQL-backed course and enrollment directory.
type DirectoryRepo interface {
	PutCourse(ctx context.Context, c Course) error
	PutLesson(ctx context.Context, l Lesson) error
	Enroll(ctx context.Context, courseID, userID string) error

	Course(ctx context.Context, id string) (Course, error)
	Lesson(ctx context.Context, id string) (Lesson, error)
	IsEnrolled(ctx context.Context, courseID, userID string) (bool, error)
}

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	Before  int64     // id < Before
	From    time.Time // created_at >= From
	To      time.Time // created_at <= To
	Purpose string
}

// LLMRequestEventData captures a single provider call.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEvent is a recorded provider call.
type LLMRequestEvent struct {
	ID        int64
	CreatedAt time.Time
	LLMRequestEventData
}

// LLMUsage aggregates token totals for one group.
type LLMUsage struct {
	Key          string
	Calls        int
	Failures     int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// EventRepo records and reads provider request events.
type EventRepo interface {
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error)
	// GetLLMEvent returns nil without error when id is unknown.
	GetLLMEvent(ctx context.Context, id int64) (*LLMRequestEvent, error)

	// LLMUsageByPurpose and LLMUsageByModel group totals, largest first.
	LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error)
	LLMUsageByModel(ctx context.Context) ([]LLMUsage, error)
}

// Repos bundles the repositories bound to one connection or transaction.
type Repos struct {
	Attempts   AttemptRepo
	Quizzes    QuizRepo
	LessonQuiz LessonQuizRepo
	Readiness  ReadinessRepo
	Directory  DirectoryRepo
	Events     EventRepo
}

func newRepos(c *conn) Repos {
	return Repos{
		Attempts:   c,
		Quizzes:    c,
		LessonQuiz: c,
		Readiness:  c,
		Directory:  c,
		Events:     c,
	}
}
