package quizgen

// Config controls the Generator.
type Config struct {
	// MaxTokens is the response budget for a ten-question set. Lesson
	// quizzes get half.
	MaxTokens int `yaml:"max_tokens"`

	// Temperature controls output randomness (0.0-1.0).
	Temperature float64 `yaml:"temperature"`

	// MaxSummaryChars truncates lesson summaries placed in the prompt.
	MaxSummaryChars int `yaml:"max_summary_chars"`
}

// DefaultConfig returns a Config with recommended defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens:       4096,
		Temperature:     0.7,
		MaxSummaryChars: 6000,
	}
}
