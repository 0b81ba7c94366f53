package quiz

import "time"

// OptionCount is the number of options every question carries.
const OptionCount = 4

// Question is a single multiple-choice question. It is only ever handled as
// part of a validated set; it is never persisted on its own.
type Question struct {
	QuestionText       string   `json:"questionText"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex"`
}

// PublicQuestion is a Question with the correct answer withheld.
type PublicQuestion struct {
	QuestionText string   `json:"questionText"`
	Options      []string `json:"options"`
}

// Public strips correct answers from a question set.
func Public(questions []Question) []PublicQuestion {
	out := make([]PublicQuestion, len(questions))
	for i, q := range questions {
		out[i] = PublicQuestion{QuestionText: q.QuestionText, Options: q.Options}
	}
	return out
}

// Kind selects the prompt and the expected question count for generation.
type Kind string

const (
	KindLesson     Kind = "lesson"
	KindLearner    Kind = "learner"
	KindInstructor Kind = "instructor"
)

// ExpectedCount returns how many questions a set of this kind must contain.
func (k Kind) ExpectedCount() int {
	switch k {
	case KindLesson:
		return 5
	default:
		return 10
	}
}

// Difficulty is the learner-selected difficulty of a self-assessment.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty validates a difficulty string. An empty string yields medium.
func ParseDifficulty(s string) (Difficulty, bool) {
	switch Difficulty(s) {
	case "":
		return DifficultyMedium, true
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return Difficulty(s), true
	}
	return "", false
}

// Status is the lifecycle state of an attempt.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// AIAttempt is an ephemeral AI-generated quiz: the definition and its single
// attempt live in one record.
type AIAttempt struct {
	ID          string
	UserID      string
	Topic       string
	Title       string
	Difficulty  Difficulty
	Questions   []Question
	Answers     []int
	Score       *int
	Feedback    string
	Status      Status
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// AttemptSummary is the list view of an AIAttempt.
type AttemptSummary struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Difficulty  Difficulty `json:"difficulty"`
	Status      Status     `json:"status"`
	Score       *int       `json:"score"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt"`
}

// Quiz is a reusable instructor-authored quiz scoped to a course.
type Quiz struct {
	ID        string
	CourseID  string
	AuthorID  string
	Title     string
	Questions []Question
	CreatedAt time.Time
}

// QuizAttempt is one learner's attempt at a Quiz.
type QuizAttempt struct {
	ID          string
	QuizID      string
	UserID      string
	Answers     []int
	Score       *int
	Status      Status
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// LessonQuiz is the quiz embedded in a lesson.
// Version starts at 1 and grows by one each time the quiz is replaced.
type LessonQuiz struct {
	LessonID  string
	Version   int
	Questions []Question
	CreatedAt time.Time
}

// LessonAttempt is a completed submission against a lesson's quiz. Lesson
// attempts are written already completed.
type LessonAttempt struct {
	ID           string
	LessonID     string
	QuizVersion  int
	UserID       string
	Answers      []int
	CorrectCount int
	Total        int
	Percentage   float64
	CompletedAt  time.Time
}

// Completion carries the terminal fields of an attempt.
type Completion struct {
	Answers     []int
	Score       int
	CompletedAt time.Time
}
