package assessment

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/abhisek/assessd/internal/llm"
	"github.com/abhisek/assessd/internal/quiz"
)

func installLessonQuiz(t *testing.T, f *fixture) {
	t.Helper()
	f.gen.AddResponse(llm.MockResponse{Text: questionsJSON(5)})
	view, err := f.svc.GenerateLessonQuiz(context.Background(), instructorID, lessonID)
	if err != nil {
		t.Fatalf("generate lesson quiz: %v", err)
	}
	if len(view.Questions) != 5 {
		t.Fatalf("expected 5 questions, got %d", len(view.Questions))
	}
}

func TestLessonQuizReadinessSequence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	installLessonQuiz(t, f)

	// Correct answers are [0 1 2 3 0].
	steps := []struct {
		answers []int
		pct     float64
		score   float64
		count   int
	}{
		{[]int{0, 1, 2, 3, 1}, 80, 80, 1},
		{[]int{0, 1, 2, 0, 1}, 60, 70, 2},
		{[]int{0, 1, 2, 3, 0}, 100, 80, 3},
	}
	for i, st := range steps {
		res, err := f.svc.SubmitLessonQuiz(ctx, learnerID, lessonID, 0, st.answers)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if res.Percentage != st.pct || res.ReadinessScore != st.score || res.ReadinessScoreQuizCount != st.count {
			t.Errorf("step %d: got pct=%v score=%v count=%d, want %v %v %d",
				i, res.Percentage, res.ReadinessScore, res.ReadinessScoreQuizCount, st.pct, st.score, st.count)
		}
		if res.Total != 5 {
			t.Errorf("step %d: total %d", i, res.Total)
		}
	}

	got, err := f.svc.GetReadiness(ctx, learnerID)
	if err != nil {
		t.Fatalf("get readiness: %v", err)
	}
	if got.Value != 80 || got.QuizCount != 3 {
		t.Errorf("unexpected readiness: %+v", got)
	}
}

func TestLessonQuizRequiresEnrollment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	installLessonQuiz(t, f)

	if _, err := f.svc.SubmitLessonQuiz(ctx, strangerID, lessonID, 0, []int{0, 1, 2, 3, 0}); !errors.Is(err, quiz.ErrNotEnrolled) {
		t.Fatalf("expected ErrNotEnrolled, got %v", err)
	}
	if _, err := f.svc.GetLessonQuiz(ctx, strangerID, lessonID); !errors.Is(err, quiz.ErrNotEnrolled) {
		t.Fatalf("get: expected ErrNotEnrolled, got %v", err)
	}
	got, err := f.svc.GetReadiness(ctx, strangerID)
	if err != nil {
		t.Fatalf("get readiness: %v", err)
	}
	if got.QuizCount != 0 {
		t.Errorf("readiness changed for unenrolled user: %+v", got)
	}
}

func TestLessonQuizRejectsEmptyAnswers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	installLessonQuiz(t, f)

	if _, err := f.svc.SubmitLessonQuiz(ctx, learnerID, lessonID, 0, nil); !errors.Is(err, quiz.ErrInputInvalid) {
		t.Fatalf("expected ErrInputInvalid, got %v", err)
	}
	got, _ := f.svc.GetReadiness(ctx, learnerID)
	if got.QuizCount != 0 {
		t.Errorf("rejected submission counted: %+v", got)
	}
}

func TestLessonQuizGradesOverlongVectorOnQuizLength(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	installLessonQuiz(t, f)

	// Ten answers for a five-question quiz: the extras are ignored.
	res, err := f.svc.SubmitLessonQuiz(ctx, learnerID, lessonID, 0, perfect(10))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Total != 5 || res.CorrectCount != 5 || res.Percentage != 100 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestLessonQuizRejectsStaleVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	installLessonQuiz(t, f)

	view, err := f.svc.GetLessonQuiz(ctx, learnerID, lessonID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if view.Version != 1 {
		t.Fatalf("expected version 1, got %d", view.Version)
	}

	installLessonQuiz(t, f)
	if _, err := f.svc.SubmitLessonQuiz(ctx, learnerID, lessonID, view.Version, []int{0, 1, 2, 3, 0}); !errors.Is(err, quiz.ErrQuizChanged) {
		t.Fatalf("expected ErrQuizChanged, got %v", err)
	}
	attempts, err := f.svc.ListLessonAttempts(ctx, learnerID, lessonID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(attempts) != 0 {
		t.Errorf("stale submission recorded: %+v", attempts)
	}
	if got, _ := f.svc.GetReadiness(ctx, learnerID); got.QuizCount != 0 {
		t.Errorf("stale submission counted: %+v", got)
	}

	res, err := f.svc.SubmitLessonQuiz(ctx, learnerID, lessonID, 2, []int{0, 1, 2, 3, 0})
	if err != nil {
		t.Fatalf("submit current: %v", err)
	}
	if res.QuizVersion != 2 || res.Percentage != 100 {
		t.Errorf("unexpected result: %+v", res)
	}
	attempts, err = f.svc.ListLessonAttempts(ctx, learnerID, lessonID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(attempts) != 1 || attempts[0].QuizVersion != 2 {
		t.Errorf("unexpected attempts: %+v", attempts)
	}
	if _, err := f.svc.ListLessonAttempts(ctx, strangerID, lessonID); !errors.Is(err, quiz.ErrNotEnrolled) {
		t.Errorf("stranger: expected ErrNotEnrolled, got %v", err)
	}
}

func TestLessonQuizMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.SubmitLessonQuiz(ctx, learnerID, lessonID, 0, []int{0, 0, 0, 0, 0}); !errors.Is(err, quiz.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
	if _, err := f.svc.SubmitLessonQuiz(ctx, learnerID, "no-lesson", 0, []int{0, 0, 0, 0, 0}); !errors.Is(err, quiz.ErrLessonNotFound) {
		t.Fatalf("expected ErrLessonNotFound, got %v", err)
	}
}

func TestGenerateLessonQuizInstructorOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.GenerateLessonQuiz(ctx, learnerID, lessonID); !errors.Is(err, quiz.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if f.gen.CallCount() != 0 {
		t.Errorf("provider called for forbidden request")
	}

	installLessonQuiz(t, f)
	req := f.gen.LastCall()
	if req.MaxTokens >= 4096 {
		t.Errorf("lesson quiz should use the reduced token budget, got %d", req.MaxTokens)
	}

	view, err := f.svc.GetLessonQuiz(ctx, learnerID, lessonID)
	if err != nil {
		t.Fatalf("get lesson quiz: %v", err)
	}
	if len(view.Questions) != 5 {
		t.Errorf("expected 5 questions, got %d", len(view.Questions))
	}
}

func TestConcurrentLessonSubmissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	installLessonQuiz(t, f)

	const n = 6
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.SubmitLessonQuiz(ctx, learnerID, lessonID, 0, []int{0, 1, 2, 3, 0}); err != nil {
				t.Errorf("submit: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := f.svc.GetReadiness(ctx, learnerID)
	if err != nil {
		t.Fatalf("get readiness: %v", err)
	}
	if got.QuizCount != n || got.Value != 100 {
		t.Errorf("lost update: %+v", got)
	}
}
