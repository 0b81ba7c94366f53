package assessment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/abhisek/assessd/internal/llm"
	"github.com/abhisek/assessd/internal/quiz"
)

func authoredQuestions(n int) []quiz.Question {
	qs := make([]quiz.Question, n)
	for i := range qs {
		qs[i] = quiz.Question{
			QuestionText:       fmt.Sprintf("  Authored %d?  ", i),
			Options:            []string{"a", "b", "c", "d"},
			CorrectAnswerIndex: i % 4,
		}
	}
	return qs
}

func TestCreateInstructorQuiz(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateInstructorQuiz(ctx, instructorID, CreateQuizInput{
		CourseID:  courseID,
		Title:     "Week 1",
		Questions: authoredQuestions(10),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Questions != 10 {
		t.Errorf("expected 10 questions, got %d", created.Questions)
	}

	view, err := f.svc.GetInstructorQuiz(ctx, instructorID, created.ID)
	if err != nil {
		t.Fatalf("get as instructor: %v", err)
	}
	if len(view.Questions) != 10 || view.Questions[0].QuestionText != "Authored 0?" {
		t.Errorf("instructor view should carry trimmed questions with answers: %+v", view.Questions)
	}

	view, err = f.svc.GetInstructorQuiz(ctx, learnerID, created.ID)
	if err != nil {
		t.Fatalf("get as learner: %v", err)
	}
	if len(view.Questions) != 0 || len(view.PublicQuestions) != 10 {
		t.Errorf("learner view must withhold answers")
	}

	if _, err := f.svc.GetInstructorQuiz(ctx, strangerID, created.ID); !errors.Is(err, quiz.ErrNotEnrolled) {
		t.Errorf("stranger: expected ErrNotEnrolled, got %v", err)
	}
}

func TestCreateInstructorQuizRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		userID string
		in     CreateQuizInput
		want   error
	}{
		{"not instructor", learnerID, CreateQuizInput{CourseID: courseID, Title: "x", Questions: authoredQuestions(10)}, quiz.ErrForbidden},
		{"unknown course", instructorID, CreateQuizInput{CourseID: "nope", Title: "x", Questions: authoredQuestions(10)}, quiz.ErrCourseNotFound},
		{"no title", instructorID, CreateQuizInput{CourseID: courseID, Questions: authoredQuestions(10)}, quiz.ErrInputInvalid},
		{"five questions", instructorID, CreateQuizInput{CourseID: courseID, Title: "x", Questions: authoredQuestions(5)}, quiz.ErrInputInvalid},
		{"no questions", instructorID, CreateQuizInput{CourseID: courseID, Title: "x"}, quiz.ErrInputInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.CreateInstructorQuiz(ctx, tt.userID, tt.in); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	list, err := f.svc.ListCourseQuizzes(ctx, instructorID, courseID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("rejected creates must not persist, got %d quizzes", len(list))
	}
}

func TestCreateInstructorQuizWithAI(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.gen.AddResponse(llm.MockResponse{Text: questionsJSON(10)})

	created, err := f.svc.CreateInstructorQuiz(ctx, instructorID, CreateQuizInput{
		CourseID:       courseID,
		Title:          "Select statements",
		GenerateWithAI: true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Questions != 10 {
		t.Errorf("expected 10 questions, got %d", created.Questions)
	}
	req := f.gen.LastCall()
	if len(req.Messages) == 0 {
		t.Fatal("expected a provider call")
	}
	user := req.Messages[0].Content
	if !strings.Contains(user, "Quiz topic: Select statements") || !strings.Contains(user, "Course: Concurrency in Go") {
		t.Errorf("title should be the topic when none is given: %q", user)
	}
}

func TestSubmitInstructorQuizAttempt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateInstructorQuiz(ctx, instructorID, CreateQuizInput{
		CourseID: courseID, Title: "Week 2", Questions: authoredQuestions(10),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	started, err := f.svc.StartInstructorQuizAttempt(ctx, learnerID, created.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	again, err := f.svc.StartInstructorQuizAttempt(ctx, learnerID, created.ID)
	if err != nil {
		t.Fatalf("start again: %v", err)
	}
	if again.AttemptID != started.AttemptID {
		t.Errorf("expected the open attempt to be reused")
	}

	res, err := f.svc.SubmitInstructorQuizAttempt(ctx, learnerID, created.ID, perfect(10))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.AttemptID != started.AttemptID || res.Score != 10 || res.TotalQuestions != 10 {
		t.Errorf("unexpected result: %+v", res)
	}

	// With no open attempt a new one is created and completed.
	res2, err := f.svc.SubmitInstructorQuizAttempt(ctx, learnerID, created.ID, make([]int, 10))
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if res2.AttemptID == res.AttemptID {
		t.Errorf("expected a fresh attempt")
	}
	if res2.Score != 3 {
		t.Errorf("expected score 3, got %d", res2.Score)
	}

	first, err := f.svc.GetInstructorQuizAttempt(ctx, learnerID, res.AttemptID)
	if err != nil {
		t.Fatalf("load first attempt: %v", err)
	}
	if first.Score == nil || *first.Score != 10 {
		t.Errorf("first attempt changed: %+v", first)
	}
}

func TestGetInstructorQuizAttemptVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateInstructorQuiz(ctx, instructorID, CreateQuizInput{
		CourseID: courseID, Title: "Week 4", Questions: authoredQuestions(10),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	started, err := f.svc.StartInstructorQuizAttempt(ctx, learnerID, created.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	open, err := f.svc.GetInstructorQuizAttempt(ctx, learnerID, started.AttemptID)
	if err != nil {
		t.Fatalf("owner view: %v", err)
	}
	if open.Status != quiz.StatusInProgress || open.CorrectAnswers != nil {
		t.Errorf("open attempt leaked answers: %+v", open)
	}

	if _, err := f.svc.SubmitInstructorQuizAttempt(ctx, learnerID, created.ID, perfect(10)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	done, err := f.svc.GetInstructorQuizAttempt(ctx, instructorID, started.AttemptID)
	if err != nil {
		t.Fatalf("instructor view: %v", err)
	}
	if done.Status != quiz.StatusCompleted || len(done.CorrectAnswers) != 10 || done.UserID != learnerID {
		t.Errorf("unexpected instructor view: %+v", done)
	}

	if _, err := f.svc.GetInstructorQuizAttempt(ctx, strangerID, started.AttemptID); !errors.Is(err, quiz.ErrAttemptNotFound) {
		t.Errorf("stranger: expected ErrAttemptNotFound, got %v", err)
	}
	if _, err := f.svc.GetInstructorQuizAttempt(ctx, learnerID, "missing"); !errors.Is(err, quiz.ErrAttemptNotFound) {
		t.Errorf("missing: expected ErrAttemptNotFound, got %v", err)
	}
}

func TestSubmitInstructorQuizRequiresEnrollment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateInstructorQuiz(ctx, instructorID, CreateQuizInput{
		CourseID: courseID, Title: "Week 3", Questions: authoredQuestions(10),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = f.svc.SubmitInstructorQuizAttempt(ctx, strangerID, created.ID, perfect(10))
	if !errors.Is(err, quiz.ErrNotEnrolled) {
		t.Fatalf("expected ErrNotEnrolled, got %v", err)
	}
	if _, err := f.svc.StartInstructorQuizAttempt(ctx, strangerID, created.ID); !errors.Is(err, quiz.ErrNotEnrolled) {
		t.Fatalf("start: expected ErrNotEnrolled, got %v", err)
	}

	var count int
	if err := f.store.DB().QueryRow(`SELECT COUNT(*) FROM quiz_attempts`).Scan(&count); err != nil {
		t.Fatalf("count attempts: %v", err)
	}
	if count != 0 {
		t.Errorf("expected no attempt rows, got %d", count)
	}

	if _, err := f.svc.SubmitInstructorQuizAttempt(ctx, learnerID, "missing", perfect(10)); !errors.Is(err, quiz.ErrQuizNotFound) {
		t.Errorf("expected ErrQuizNotFound, got %v", err)
	}
}
