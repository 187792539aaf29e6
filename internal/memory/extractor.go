package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/flemzord/recall/internal/provider"
)

// ErrUnparseableFacts indicates the extraction model did not answer with a
// JSON object.
var ErrUnparseableFacts = errors.New("memory: extraction output is not a JSON object")

// FactExtractor derives labelled facts about a user from one message.
type FactExtractor interface {
	Extract(ctx context.Context, text string) (map[string]any, error)
}

// LLMExtractor asks a text generation provider, normally the chain's
// internal role, to extract facts as JSON.
type LLMExtractor struct {
	provider  provider.Provider
	maxTokens int
}

// Compile-time interface check.
var _ FactExtractor = (*LLMExtractor)(nil)

// NewLLMExtractor creates an extractor backed by p.
func NewLLMExtractor(p provider.Provider) *LLMExtractor {
	return &LLMExtractor{provider: p, maxTokens: 512}
}

const extractionPrompt = `Read the user message below and list durable facts about the user: name, location, occupation, interests, preferences, goals.
Answer with one JSON object only. Keys are short snake_case labels, values are strings or lists of strings.
Example: {"name": "Ada", "interests": ["chess", "astronomy"]}
If the message contains nothing worth remembering, answer {}.

Message:
%s`

// Extract implements FactExtractor.
func (e *LLMExtractor) Extract(ctx context.Context, text string) (map[string]any, error) {
	temp := 0.0
	resp, err := e.provider.Complete(ctx, provider.CompletionRequest{
		Messages: []provider.LLMMessage{
			{Role: provider.MessageRoleUser, Content: fmt.Sprintf(extractionPrompt, text)},
		},
		MaxTokens:   e.maxTokens,
		Temperature: &temp,
	})
	if err != nil {
		return nil, fmt.Errorf("memory: extraction failed: %w", err)
	}
	return ParseFacts(resp.Content)
}

// ParseFacts decodes a model answer into a fact map. Surrounding Markdown
// code fences, with or without a language tag, are stripped first.
func ParseFacts(text string) (map[string]any, error) {
	body := stripFences(strings.TrimSpace(text))
	if body == "" {
		return nil, fmt.Errorf("%w: empty output", ErrUnparseableFacts)
	}

	var facts map[string]any
	if err := json.Unmarshal([]byte(body), &facts); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnparseableFacts, err)
	}
	if facts == nil {
		// The literal "null" decodes without error.
		return nil, fmt.Errorf("%w: null", ErrUnparseableFacts)
	}
	return facts, nil
}

// stripFences removes a leading ``` line (optionally tagged, e.g. ```json)
// and a trailing ``` if present.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		// Single-line fence such as ```json {"a":1}```.
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// NopExtractor never extracts anything. It is used when no provider can
// serve the internal role.
type NopExtractor struct{}

// Compile-time interface check.
var _ FactExtractor = NopExtractor{}

// Extract always returns an empty map.
func (NopExtractor) Extract(context.Context, string) (map[string]any, error) {
	return map[string]any{}, nil
}
