// Package units provides the model-backed steps of the corrective retrieval
// pipeline: grading retrieved context, refining and expanding queries, and
// generating the final answer. Each unit builds its own prompt and sends it
// through a ports.TextCompleter.
package units

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/go-playground/validator/v10"
)

// Defaults shared by every unit.
const (
	// DefaultTemperature keeps replies close to the textbook wording.
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 1024
)

// ErrNilCompleter is returned when a unit is created without a completer.
var ErrNilCompleter = errors.New("text completer cannot be nil")

// Package-level validator instance for configuration and reply validation.
var validate = validator.New()

// CompletionConfig holds the sampling parameters a unit passes to the
// completer.
type CompletionConfig struct {
	Temperature float64 `yaml:"temperature" json:"temperature" validate:"min=0,max=2"`
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens" validate:"min=1,max=8192"`
}

// DefaultCompletionConfig returns temperature 0.3 and 1024 tokens.
func DefaultCompletionConfig() CompletionConfig {
	return CompletionConfig{Temperature: DefaultTemperature, MaxTokens: DefaultMaxTokens}
}

func (c CompletionConfig) options() map[string]any {
	return map[string]any{
		"temperature": c.Temperature,
		"max_tokens":  c.MaxTokens,
	}
}

func (c CompletionConfig) withDefaults() (CompletionConfig, error) {
	if c.MaxTokens == 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if err := validate.Struct(c); err != nil {
		return c, fmt.Errorf("invalid completion config: %w", err)
	}
	return c, nil
}

// mustParse compiles a built-in prompt template.
func mustParse(name, text string) *template.Template {
	return template.Must(template.New(name).Option("missingkey=error").Parse(text))
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// extractJSON pulls the first JSON object out of a reply that may wrap it
// in markdown code fences or surrounding prose. It returns "" when no
// object is found.
func extractJSON(response string) string {
	response = strings.TrimSpace(response)

	if start := strings.Index(response, "```"); start != -1 {
		body := response[start+3:]
		// Skip a language tag such as ```json.
		if nl := strings.Index(body, "\n"); nl != -1 {
			body = body[nl+1:]
		}
		if end := strings.Index(body, "```"); end != -1 {
			candidate := strings.TrimSpace(body[:end])
			if strings.HasPrefix(candidate, "{") {
				return candidate
			}
		}
	}

	start := strings.Index(response, "{")
	if start == -1 {
		return ""
	}

	// Find the matching closing brace, ignoring braces inside strings.
	depth := 0
	inString := false
	escapeNext := false
	for i := start; i < len(response); i++ {
		char := response[i]
		if escapeNext {
			escapeNext = false
			continue
		}
		if char == '\\' {
			escapeNext = true
			continue
		}
		if char == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch char {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return response[start : i+1]
			}
		}
	}
	return ""
}
