package quizgen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/abhisek/assessd/internal/llm"
	"github.com/abhisek/assessd/internal/quiz"
)

// Context is the material a quiz is generated from. Lesson quizzes need
// LessonTitle or LessonSummary; learner and instructor quizzes need Topic.
type Context struct {
	Topic         string
	Difficulty    quiz.Difficulty
	CourseTitle   string
	LessonTitle   string
	LessonSummary string
}

// Generator turns a Context into a validated question set with one
// provider call.
type Generator struct {
	provider llm.Provider
	config   Config
}

// New creates a Generator. The provider should not retry on its own.
func New(provider llm.Provider, cfg Config) *Generator {
	return &Generator{provider: provider, config: cfg}
}

// Generate builds the prompt for kind, calls the provider once, and parses
// and validates the reply. Every failure is a *GenerationError.
func (g *Generator) Generate(ctx context.Context, kind quiz.Kind, in Context) ([]quiz.Question, error) {
	if err := checkInput(kind, in); err != nil {
		return nil, &GenerationError{Kind: KindInputInvalid, Err: err}
	}

	userMsg, err := buildUserMessage(kind, in, g.config.MaxSummaryChars)
	if err != nil {
		return nil, &GenerationError{Kind: KindInputInvalid, Err: fmt.Errorf("build prompt: %w", err)}
	}

	n := kind.ExpectedCount()
	maxTokens := g.config.MaxTokens
	if kind == quiz.KindLesson {
		maxTokens /= 2
	}

	ctx = llm.WithPurpose(ctx, purposeFor(kind))
	resp, err := g.provider.Generate(ctx, llm.UserRequest(systemPrompt(n), userMsg, maxTokens, g.config.Temperature))
	if err != nil {
		return nil, classifyProviderError(err, resp)
	}

	parsed, ok := parseLoose(resp.Text)
	if !ok {
		return nil, &GenerationError{Kind: KindOutputNotJSON, Raw: resp.Text, Err: errors.New("no JSON array in response")}
	}

	questions, serr := quiz.Validate(parsed, n)
	if serr != nil {
		return nil, &GenerationError{Kind: KindOutputSchemaMismatch, Raw: resp.Text, Err: serr}
	}
	return questions, nil
}

func checkInput(kind quiz.Kind, in Context) error {
	switch kind {
	case quiz.KindLesson:
		if strings.TrimSpace(in.LessonTitle) == "" && strings.TrimSpace(in.LessonSummary) == "" {
			return errors.New("lesson title or summary is required")
		}
	case quiz.KindLearner, quiz.KindInstructor:
		if strings.TrimSpace(in.Topic) == "" {
			return errors.New("topic is required")
		}
	default:
		return fmt.Errorf("unknown quiz kind %q", kind)
	}
	return nil
}

// classifyProviderError maps provider failures. A truncated reply is
// reported as unparseable output since the text it carries is cut mid-array.
func classifyProviderError(err error, resp *llm.Response) error {
	var maxTok *llm.ErrMaxTokensExceeded
	if errors.As(err, &maxTok) {
		return &GenerationError{Kind: KindOutputNotJSON, Raw: maxTok.Content, Err: err}
	}
	raw := ""
	if resp != nil {
		raw = resp.Text
	}
	return &GenerationError{Kind: KindProviderUnavailable, Raw: raw, Err: err}
}

func purposeFor(kind quiz.Kind) string {
	switch kind {
	case quiz.KindLesson:
		return llm.PurposeLessonQuiz
	case quiz.KindInstructor:
		return llm.PurposeInstructorQuiz
	}
	return llm.PurposeLearnerQuiz
}
