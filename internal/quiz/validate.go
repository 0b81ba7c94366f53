package quiz

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// schemaCache caches compiled question-set schemas by expected count.
var schemaCache sync.Map // map[int]*jsonschema.Schema

// questionSetSchema returns the JSON schema definition for a set of exactly
// n questions. Extra fields on a question are allowed and ignored.
func questionSetSchema(n int) map[string]any {
	return map[string]any{
		"type":     "array",
		"minItems": n,
		"maxItems": n,
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"questionText": map[string]any{"type": "string"},
				"options": map[string]any{
					"type":     "array",
					"minItems": OptionCount,
					"items":    map[string]any{"type": "string"},
				},
				"correctAnswerIndex": map[string]any{
					"type":    "integer",
					"minimum": 0,
					"maximum": OptionCount - 1,
				},
			},
			"required": []any{"questionText", "options", "correctAnswerIndex"},
		},
	}
}

// Validate checks that candidate, a decoded JSON value, is a set of exactly
// expected questions and returns a trimmed copy. Nothing is repaired: an
// out-of-range index or a short option list rejects the whole set.
func Validate(candidate any, expected int) ([]Question, *SchemaError) {
	if expected <= 0 {
		return nil, &SchemaError{Index: -1, Message: fmt.Sprintf("expected count must be positive, got %d", expected)}
	}

	compiled, err := compiledSchema(expected)
	if err != nil {
		return nil, &SchemaError{Index: -1, Message: err.Error()}
	}
	if err := compiled.Validate(candidate); err != nil {
		return nil, schemaErrorFrom(err)
	}

	items, ok := candidate.([]any)
	if !ok {
		return nil, &SchemaError{Index: -1, Message: "must be a decoded JSON array"}
	}
	out := make([]Question, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, &SchemaError{Index: i, Message: "must be an object"}
		}

		text, _ := obj["questionText"].(string)
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, &SchemaError{Index: i, Field: "questionText", Message: "must not be empty"}
		}

		rawOptions, _ := obj["options"].([]any)
		var options []string
		for _, o := range rawOptions {
			str, _ := o.(string)
			if s := strings.TrimSpace(str); s != "" {
				options = append(options, s)
			}
		}
		if len(options) != OptionCount {
			return nil, &SchemaError{Index: i, Field: "options", Message: fmt.Sprintf("want %d non-empty options, got %d", OptionCount, len(options))}
		}
		if dup := duplicateOption(options); dup != "" {
			return nil, &SchemaError{Index: i, Field: "options", Message: fmt.Sprintf("duplicate option %q", dup)}
		}

		idx, ok := answerIndex(obj["correctAnswerIndex"])
		if !ok {
			return nil, &SchemaError{Index: i, Field: "correctAnswerIndex", Message: "must be an integer in [0,3]"}
		}

		out = append(out, Question{QuestionText: text, Options: options, CorrectAnswerIndex: idx})
	}
	return out, nil
}

// ValidateJSON decodes raw and validates it. Decode failures are reported as
// a set-level SchemaError.
func ValidateJSON(raw []byte, expected int) ([]Question, *SchemaError) {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &SchemaError{Index: -1, Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return Validate(parsed, expected)
}

// ValidateQuestions validates an already-typed question set, such as one
// authored by an instructor, through the same pipeline as provider output.
func ValidateQuestions(questions []Question, expected int) ([]Question, *SchemaError) {
	raw, err := json.Marshal(questions)
	if err != nil {
		return nil, &SchemaError{Index: -1, Message: err.Error()}
	}
	return ValidateJSON(raw, expected)
}

func compiledSchema(n int) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(n); ok {
		return cached.(*jsonschema.Schema), nil
	}

	// The compiler wants the definition in decoded-JSON form.
	defBytes, err := json.Marshal(questionSetSchema(n))
	if err != nil {
		return nil, fmt.Errorf("marshal schema definition: %w", err)
	}
	var def any
	if err := json.Unmarshal(defBytes, &def); err != nil {
		return nil, fmt.Errorf("parse schema definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://question-set-%d.json", n)
	if err := c.AddResource(url, def); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	schemaCache.Store(n, compiled)
	return compiled, nil
}

// schemaErrorFrom reduces a jsonschema validation error to its first leaf
// cause, located by question index and field.
func schemaErrorFrom(err error) *SchemaError {
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return &SchemaError{Index: -1, Message: err.Error()}
	}
	for len(verr.Causes) > 0 {
		verr = verr.Causes[0]
	}

	se := &SchemaError{Index: -1, Message: "violates " + strings.Join(verr.ErrorKind.KeywordPath(), "/")}
	loc := verr.InstanceLocation
	if len(loc) > 0 {
		if i, convErr := strconv.Atoi(loc[0]); convErr == nil {
			se.Index = i
		}
	}
	if len(loc) > 1 {
		se.Field = loc[1]
	}
	return se
}

func answerIndex(v any) (int, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case int:
		f = float64(n)
	default:
		return 0, false
	}
	if f != math.Trunc(f) || f < 0 || f > OptionCount-1 {
		return 0, false
	}
	return int(f), true
}

func duplicateOption(options []string) string {
	seen := make(map[string]struct{}, len(options))
	for _, o := range options {
		if _, ok := seen[o]; ok {
			return o
		}
		seen[o] = struct{}{}
	}
	return ""
}
