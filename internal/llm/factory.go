package llm

import (
	"context"
	"fmt"
	"log/slog"
)

// NewProvider creates the configured provider wrapped as
// caller → timeout → logging → base. Retry is left to callers that want it.
func NewProvider(ctx context.Context, cfg Config, events EventRecorder, log *slog.Logger) (Provider, error) {
	var base Provider
	var err error

	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "openrouter":
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case "mock":
		base = NewMockProvider()
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	return WithTimeout(WithLogging(base, cfg.Provider, events, log), cfg.Timeout), nil
}

// Unavailable is a Provider that always fails. It stands in when no
// credentials are configured so the service can still start and report
// generation as unavailable.
type Unavailable struct {
	Reason error
}

func (u Unavailable) Generate(context.Context, Request) (*Response, error) {
	return nil, &ErrProviderUnavailable{Err: u.Reason}
}

func (u Unavailable) ModelID() string { return "unavailable" }
