package quizgen

import (
	"encoding/json"
	"strings"
)

// parseLoose decodes text as JSON. If that fails it retries once on the
// span from the first '[' to the last ']', which strips prose and markdown
// fences around an array.
func parseLoose(text string) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err == nil {
		return v, true
	}

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, false
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &v); err != nil {
		return nil, false
	}
	return v, true
}
