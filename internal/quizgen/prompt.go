package quizgen

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/abhisek/assessd/internal/quiz"
)

const systemPromptFormat = `You write multiple-choice assessment questions for an online learning platform.

Respond with ONLY a JSON array of exactly %d objects. No prose, no explanations, no markdown fences.

Each object has exactly these fields:
- "questionText": the question, a non-empty string
- "options": an array of exactly 4 distinct, non-empty answer strings
- "correctAnswerIndex": the integer index (0-3) of the one correct option

Rules:
- Exactly one option is correct. Distractors should be plausible mistakes, not obviously wrong.
- Vary the position of the correct option across questions.
- Questions must be self-contained and answerable from the material or topic given.
- Do not repeat a question.`

func systemPrompt(n int) string {
	return fmt.Sprintf(systemPromptFormat, n)
}

var lessonTemplate = template.Must(template.New("lesson").Parse(`Write a {{.Count}}-question quiz that checks understanding of this lesson.

Course: {{.CourseTitle}}
Lesson: {{.LessonTitle}}

Lesson content:
{{.Summary}}`))

var learnerTemplate = template.Must(template.New("learner").Parse(`Write a {{.Count}}-question self-assessment quiz.

Topic: {{.Topic}}
Difficulty: {{.Difficulty}}
{{- if eq .Difficulty "easy"}}
Focus on definitions and core concepts a beginner should know.
{{- else if eq .Difficulty "hard"}}
Focus on edge cases, trade-offs and applying the topic to unfamiliar problems.
{{- else}}
Mix conceptual questions with practical application.
{{- end}}`))

var instructorTemplate = template.Must(template.New("instructor").Parse(`Write a {{.Count}}-question quiz for students enrolled in a course.

Course: {{.CourseTitle}}
Quiz topic: {{.Topic}}
{{- if .Difficulty}}
Difficulty: {{.Difficulty}}
{{- end}}

Cover the topic broadly, from fundamentals to application.`))

type promptData struct {
	Count       int
	Topic       string
	Difficulty  quiz.Difficulty
	CourseTitle string
	LessonTitle string
	Summary     string
}

func buildUserMessage(kind quiz.Kind, in Context, maxSummary int) (string, error) {
	data := promptData{
		Count:       kind.ExpectedCount(),
		Topic:       in.Topic,
		Difficulty:  in.Difficulty,
		CourseTitle: in.CourseTitle,
		LessonTitle: in.LessonTitle,
		Summary:     truncate(in.LessonSummary, maxSummary),
	}

	var tmpl *template.Template
	switch kind {
	case quiz.KindLesson:
		tmpl = lessonTemplate
	case quiz.KindLearner:
		tmpl = learnerTemplate
	case quiz.KindInstructor:
		tmpl = instructorTemplate
	default:
		return "", fmt.Errorf("unknown quiz kind %q", kind)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// truncate cuts s to at most max runes. max <= 0 disables truncation.
func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
