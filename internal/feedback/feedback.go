// Package feedback writes short study guidance for a graded attempt.
package feedback

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"text/template"

	"github.com/abhisek/assessd/internal/llm"
	"github.com/abhisek/assessd/internal/quiz"
)

// Fallback is returned whenever the provider cannot produce feedback.
const Fallback = "Thanks for completing this quiz. Review the questions you missed, revisit the related material, and try another quiz on this topic to reinforce what you learned."

// Config controls feedback generation.
type Config struct {
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{MaxTokens: 300, Temperature: 0.5}
}

// Generator produces feedback text. It never returns an error.
type Generator struct {
	provider llm.Provider
	cfg      Config
	log      *slog.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(provider llm.Provider, cfg Config, log *slog.Logger) *Generator {
	if log == nil {
		log = slog.Default()
	}
	return &Generator{provider: provider, cfg: cfg, log: log}
}

// Generate returns 2-4 sentences of guidance for the attempt. Provider
// failures and empty replies yield Fallback.
func (g *Generator) Generate(ctx context.Context, questions []quiz.Question, answers []int, topic string) string {
	wrong := quiz.WrongIndices(questions, answers)
	userMsg, err := buildMessage(questions, wrong, topic)
	if err != nil {
		g.log.WarnContext(ctx, "build feedback prompt", slog.Any("error", err))
		return Fallback
	}

	ctx = llm.WithPurpose(ctx, llm.PurposeFeedback)
	resp, err := g.provider.Generate(ctx, llm.UserRequest(systemPrompt, userMsg, g.cfg.MaxTokens, g.cfg.Temperature))
	if err != nil {
		g.log.WarnContext(ctx, "feedback generation failed, using fallback", slog.Any("error", err))
		return Fallback
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		g.log.WarnContext(ctx, "empty feedback response, using fallback")
		return Fallback
	}
	return text
}

const systemPrompt = `You are a supportive tutor on an online learning platform. A learner just finished a multiple-choice quiz.

Write 2 to 4 sentences of feedback in plain text:
- Start with what the learner handled well.
- Name the concept areas they should review, based on the material they missed.
- Do not mention question numbers, do not list correct answers, and do not use markdown.`

var messageTemplate = template.Must(template.New("feedback").Parse(`Topic: {{.Topic}}
Score: {{.Correct}} of {{.Total}}

Material answered correctly:
{{range .Strong}}- {{.}}
{{else}}- none
{{end}}
Material missed:
{{range .Missed}}- {{.}}
{{else}}- none
{{end}}`))

type messageData struct {
	Topic   string
	Correct int
	Total   int
	Strong  []string
	Missed  []string
}

// buildMessage describes each question by its option text only, so the
// model sees the material without the question numbering.
func buildMessage(questions []quiz.Question, wrong []int, topic string) (string, error) {
	missed := make(map[int]bool, len(wrong))
	for _, i := range wrong {
		missed[i] = true
	}

	data := messageData{Topic: topic, Total: len(questions), Correct: len(questions) - len(wrong)}
	for i, q := range questions {
		line := strings.Join(q.Options, " / ")
		if missed[i] {
			data.Missed = append(data.Missed, line)
		} else {
			data.Strong = append(data.Strong, line)
		}
	}

	var buf bytes.Buffer
	if err := messageTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
