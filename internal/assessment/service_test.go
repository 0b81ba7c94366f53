package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/abhisek/assessd/internal/feedback"
	"github.com/abhisek/assessd/internal/llm"
	"github.com/abhisek/assessd/internal/quiz"
	"github.com/abhisek/assessd/internal/quizgen"
	"github.com/abhisek/assessd/internal/store"
)

const (
	instructorID = "prof-1"
	learnerID    = "learner-1"
	strangerID   = "stranger-1"
	courseID     = "course-1"
	lessonID     = "lesson-1"
)

type fixture struct {
	svc   *Service
	store *store.Store
	gen   *llm.MockProvider
	fb    *llm.MockProvider
}

func questionsJSON(n int) string {
	qs := make([]map[string]any, n)
	for i := range qs {
		qs[i] = map[string]any{
			"questionText":       fmt.Sprintf("What does statement %d do?", i+1),
			"options":            []string{"Reads", "Writes", "Deletes", "Nothing"},
			"correctAnswerIndex": i % 4,
		}
	}
	b, _ := json.Marshal(qs)
	return string(b)
}

// perfect returns the correct answer vector for questionsJSON(n).
func perfect(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i % 4
	}
	return out
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	st, err := store.Open(ctx, store.DriverSQLite, filepath.Join(t.TempDir(), "assessd.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	dir := st.Repos().Directory
	if err := dir.PutCourse(ctx, store.Course{ID: courseID, Title: "Concurrency in Go", InstructorID: instructorID}); err != nil {
		t.Fatalf("put course: %v", err)
	}
	if err := dir.PutLesson(ctx, store.Lesson{ID: lessonID, CourseID: courseID, Title: "Channels", Summary: "Channels move values between goroutines."}); err != nil {
		t.Fatalf("put lesson: %v", err)
	}
	if err := dir.Enroll(ctx, courseID, learnerID); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	gen := llm.NewMockProvider()
	fb := llm.NewMockProvider()
	svc := NewService(st, dir,
		quizgen.New(gen, quizgen.DefaultConfig()),
		feedback.NewGenerator(fb, feedback.DefaultConfig(), nil),
		nil)
	return &fixture{svc: svc, store: st, gen: gen, fb: fb}
}

func TestGenerateAndSubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gen.AddResponse(llm.MockResponse{Text: questionsJSON(10)})
	f.fb.AddResponse(llm.MockResponse{Text: "Great grasp of channel basics. Review select statements."})

	gq, err := f.svc.GenerateQuiz(ctx, learnerID, GenerateQuizInput{Topic: "Go channels", Difficulty: "hard"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(gq.Questions) != 10 {
		t.Fatalf("expected 10 questions, got %d", len(gq.Questions))
	}
	if gq.Difficulty != quiz.DifficultyHard {
		t.Errorf("difficulty: got %q", gq.Difficulty)
	}

	answers := perfect(10)
	answers[0] = 3
	res, err := f.svc.SubmitQuiz(ctx, learnerID, gq.AttemptID, answers)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Score != 9 || res.TotalQuestions != 10 {
		t.Errorf("unexpected result: %+v", res)
	}
	if res.Feedback != "Great grasp of channel basics. Review select statements." {
		t.Errorf("unexpected feedback: %q", res.Feedback)
	}
	if len(res.CorrectAnswers) != 10 || res.CorrectAnswers[1] != 1 {
		t.Errorf("unexpected correct answers: %v", res.CorrectAnswers)
	}

	detail, err := f.svc.GetAttempt(ctx, learnerID, gq.AttemptID)
	if err != nil {
		t.Fatalf("get attempt: %v", err)
	}
	if detail.Status != quiz.StatusCompleted || detail.Score == nil || *detail.Score != 9 {
		t.Errorf("unexpected detail: %+v", detail)
	}
	if detail.Feedback != res.Feedback {
		t.Errorf("feedback not persisted: %q", detail.Feedback)
	}
	if len(detail.Questions) != 10 {
		t.Errorf("completed attempt should expose questions with answers")
	}
}

func TestDoubleSubmitIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gen.AddResponse(llm.MockResponse{Text: questionsJSON(10)})
	f.fb.AddResponse(llm.MockResponse{Text: "Nice work."})

	gq, err := f.svc.GenerateQuiz(ctx, learnerID, GenerateQuizInput{Topic: "maps"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := f.svc.SubmitQuiz(ctx, learnerID, gq.AttemptID, perfect(10)); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	_, err = f.svc.SubmitQuiz(ctx, learnerID, gq.AttemptID, make([]int, 10))
	if !errors.Is(err, quiz.ErrAttemptNotFound) {
		t.Fatalf("expected ErrAttemptNotFound, got %v", err)
	}

	detail, err := f.svc.GetAttempt(ctx, learnerID, gq.AttemptID)
	if err != nil {
		t.Fatalf("get attempt: %v", err)
	}
	if *detail.Score != 10 {
		t.Errorf("first score overwritten: %d", *detail.Score)
	}
	if f.fb.CallCount() != 1 {
		t.Errorf("feedback should be generated once, got %d calls", f.fb.CallCount())
	}
}

func TestConcurrentSubmitSingleWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gen.AddResponse(llm.MockResponse{Text: questionsJSON(10)})

	gq, err := f.svc.GenerateQuiz(ctx, learnerID, GenerateQuizInput{Topic: "mutexes"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	const n = 5
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.SubmitQuiz(ctx, learnerID, gq.AttemptID, perfect(10))
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, quiz.ErrAttemptNotFound):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one successful submit, got %d", wins)
	}
}

func TestFeedbackFailureStillCompletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gen.AddResponse(llm.MockResponse{Text: questionsJSON(10)})
	f.fb.AddResponse(llm.MockResponse{Err: &llm.ErrProviderUnavailable{}})

	gq, err := f.svc.GenerateQuiz(ctx, learnerID, GenerateQuizInput{Topic: "interfaces"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	res, err := f.svc.SubmitQuiz(ctx, learnerID, gq.AttemptID, make([]int, 10))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Feedback != feedback.Fallback {
		t.Errorf("expected fallback feedback, got %q", res.Feedback)
	}
	if res.Score != 3 {
		t.Errorf("expected score 3 for all-zero answers, got %d", res.Score)
	}

	detail, err := f.svc.GetAttempt(ctx, learnerID, gq.AttemptID)
	if err != nil {
		t.Fatalf("get attempt: %v", err)
	}
	if detail.Status != quiz.StatusCompleted || detail.Feedback != feedback.Fallback {
		t.Errorf("unexpected detail: status=%s feedback=%q", detail.Status, detail.Feedback)
	}
}

func TestGenerateQuizFailuresPersistNothing(t *testing.T) {
	tests := []struct {
		name string
		resp llm.MockResponse
		want error
	}{
		{"prose", llm.MockResponse{Text: "Sorry, I cannot help with that."}, quiz.ErrOutputNotJSON},
		{"nine questions", llm.MockResponse{Text: questionsJSON(9)}, quiz.ErrOutputSchemaMismatch},
		{"provider down", llm.MockResponse{Err: &llm.ErrProviderUnavailable{}}, quiz.ErrProviderUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			f.gen.AddResponse(tt.resp)

			_, err := f.svc.GenerateQuiz(ctx, learnerID, GenerateQuizInput{Topic: "generics"})
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			list, err := f.svc.ListAttempts(ctx, learnerID, 0)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(list) != 0 {
				t.Errorf("expected no attempts, got %d", len(list))
			}
		})
	}
}

func TestGenerateQuizInputValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inputs := []GenerateQuizInput{
		{Topic: "   "},
		{Topic: "loops", Difficulty: "extreme"},
		{Topic: string(make([]byte, MaxTopicLength+1))},
	}
	for _, in := range inputs {
		if _, err := f.svc.GenerateQuiz(ctx, learnerID, in); !errors.Is(err, quiz.ErrInputInvalid) {
			t.Errorf("input %+v: expected ErrInputInvalid, got %v", in, err)
		}
	}
	if f.gen.CallCount() != 0 {
		t.Errorf("provider called for invalid input")
	}
}

func TestSubmitQuizRejectsMissingAnswers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gen.AddResponse(llm.MockResponse{Text: questionsJSON(10)})

	gq, err := f.svc.GenerateQuiz(ctx, learnerID, GenerateQuizInput{Topic: "errors"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	for _, bad := range [][]int{nil, {}} {
		if _, err := f.svc.SubmitQuiz(ctx, learnerID, gq.AttemptID, bad); !errors.Is(err, quiz.ErrInputInvalid) {
			t.Errorf("answers %v: expected ErrInputInvalid, got %v", bad, err)
		}
	}

	// The attempt is still open after rejected submissions.
	if _, err := f.svc.SubmitQuiz(ctx, learnerID, gq.AttemptID, perfect(10)); err != nil {
		t.Fatalf("valid submit after rejections: %v", err)
	}
}

func TestSubmitQuizGradesSkippedAndOutOfRangeAsWrong(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gen.AddResponse(llm.MockResponse{Text: questionsJSON(10)})
	f.fb.AddResponse(llm.MockResponse{Text: "Keep going."})

	gq, err := f.svc.GenerateQuiz(ctx, learnerID, GenerateQuizInput{Topic: "errors"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	// Question 0 has correct index 0, so a skip there must not earn credit.
	answers := []int{quiz.Unanswered, 1, 2, 9, 0}
	res, err := f.svc.SubmitQuiz(ctx, learnerID, gq.AttemptID, answers)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Score != 3 {
		t.Errorf("score: got %d, want 3", res.Score)
	}

	got, err := f.svc.GetAttempt(ctx, learnerID, gq.AttemptID)
	if err != nil {
		t.Fatalf("get attempt: %v", err)
	}
	if len(got.Answers) != 10 {
		t.Fatalf("stored answers: got %v", got.Answers)
	}
	for _, i := range []int{0, 3, 5, 9} {
		if got.Answers[i] != quiz.Unanswered {
			t.Errorf("stored answer %d: got %d, want %d", i, got.Answers[i], quiz.Unanswered)
		}
	}
}

func TestAttemptOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gen.AddResponse(llm.MockResponse{Text: questionsJSON(10)})

	gq, err := f.svc.GenerateQuiz(ctx, learnerID, GenerateQuizInput{Topic: "context"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := f.svc.GetAttempt(ctx, strangerID, gq.AttemptID); !errors.Is(err, quiz.ErrAttemptNotFound) {
		t.Errorf("get by stranger: expected ErrAttemptNotFound, got %v", err)
	}
	if _, err := f.svc.SubmitQuiz(ctx, strangerID, gq.AttemptID, perfect(10)); !errors.Is(err, quiz.ErrAttemptNotFound) {
		t.Errorf("submit by stranger: expected ErrAttemptNotFound, got %v", err)
	}

	detail, err := f.svc.GetAttempt(ctx, learnerID, gq.AttemptID)
	if err != nil {
		t.Fatalf("get attempt: %v", err)
	}
	if len(detail.Questions) != 0 || len(detail.PublicQuestions) != 10 {
		t.Errorf("in-progress attempt must withhold answers")
	}
}

func TestListAttempts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		f.gen.AddResponse(llm.MockResponse{Text: questionsJSON(10)})
		if _, err := f.svc.GenerateQuiz(ctx, learnerID, GenerateQuizInput{Topic: fmt.Sprintf("topic %d", i)}); err != nil {
			t.Fatalf("generate %d: %v", i, err)
		}
	}
	list, err := f.svc.ListAttempts(ctx, learnerID, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(list))
	}
	other, err := f.svc.ListAttempts(ctx, strangerID, 0)
	if err != nil {
		t.Fatalf("list other: %v", err)
	}
	if other == nil || len(other) != 0 {
		t.Errorf("expected empty non-nil list, got %v", other)
	}
}
