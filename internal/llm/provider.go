package llm

import "context"

// Provider is a text-generation endpoint. Callers get back free text and
// must treat it as untrusted input.
type Provider interface {
	// Generate sends one system instruction plus conversation and returns
	// the model's raw text.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes what to send to the provider.
type Request struct {
	// System is the system instruction.
	System string

	// Messages is the conversation. Quiz and feedback generation both send
	// a single user message.
	Messages []Message

	// MaxTokens caps the size of the response.
	MaxTokens int

	// Temperature controls randomness. Range: 0.0 - 1.0.
	Temperature float64
}

// UserRequest builds a single-turn request.
func UserRequest(system, user string, maxTokens int, temperature float64) Request {
	return Request{
		System:      system,
		Messages:    []Message{{Role: RoleUser, Content: user}},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
}

// Message represents a single message in the conversation.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Response holds the provider's output.
type Response struct {
	// Text is the raw generated text, unparsed.
	Text string

	Usage Usage

	// Model is the actual model that served the request.
	Model string

	// StopReason is normalized to "end" or "max_tokens".
	StopReason string
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
