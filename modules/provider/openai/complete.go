package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/flemzord/recall/internal/provider"
	sdkopenai "github.com/openai/openai-go"
)

// errAuth marks rejected credentials. It is never retried.
var errAuth = errors.New("openai: authentication failed")

// Complete implements provider.Provider.
func (p *Provider) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	resp, err := p.client.Chat.Completions.New(ctx, p.buildParams(req))
	if err != nil {
		return provider.CompletionResponse{}, mapError(err)
	}
	if len(resp.Choices) == 0 {
		return provider.CompletionResponse{}, fmt.Errorf("%w: no choices returned", provider.ErrProviderDown)
	}
	choice := resp.Choices[0]
	return provider.CompletionResponse{
		Content:      choice.Message.Content,
		FinishReason: mapFinishReason(choice.FinishReason),
		Usage: provider.TokenUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

// HealthCheck implements provider.HealthChecker by looking up the
// configured model.
func (p *Provider) HealthCheck(ctx context.Context) error {
	_, err := p.client.Models.Get(ctx, p.config.Model)
	return mapError(err)
}

func (p *Provider) buildParams(req provider.CompletionRequest) sdkopenai.ChatCompletionNewParams {
	params := sdkopenai.ChatCompletionNewParams{
		Model:    sdkopenai.ChatModel(p.config.Model),
		Messages: buildMessages(req.Messages),
	}
	if n := req.MaxTokens; n > 0 {
		params.MaxCompletionTokens = sdkopenai.Int(int64(n))
	} else if p.config.MaxTokens > 0 {
		params.MaxCompletionTokens = sdkopenai.Int(int64(p.config.MaxTokens))
	}
	switch {
	case req.Temperature != nil:
		params.Temperature = sdkopenai.Float(*req.Temperature)
	case p.config.Temperature != nil:
		params.Temperature = sdkopenai.Float(*p.config.Temperature)
	}
	return params
}

func buildMessages(msgs []provider.LLMMessage) []sdkopenai.ChatCompletionMessageParamUnion {
	out := make([]sdkopenai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case provider.MessageRoleSystem:
			out = append(out, sdkopenai.SystemMessage(m.Content))
		case provider.MessageRoleAssistant:
			out = append(out, sdkopenai.AssistantMessage(m.Content))
		default:
			out = append(out, sdkopenai.UserMessage(m.Content))
		}
	}
	return out
}

func mapFinishReason(reason string) provider.FinishReason {
	switch reason {
	case "length":
		return provider.FinishReasonLength
	case "content_filter":
		return provider.FinishReasonFiltering
	default:
		return provider.FinishReasonStop
	}
}

// mapError wraps SDK errors with provider sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", provider.ErrTimeout, err)
	}

	var apiErr *sdkopenai.Error
	if !errors.As(err, &apiErr) {
		// Transport failure: the endpoint could not be reached.
		return fmt.Errorf("%w: %w", provider.ErrProviderDown, err)
	}

	msg := apiErr.Message
	switch code := apiErr.StatusCode; {
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", provider.ErrRateLimit, msg)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: %s", errAuth, msg)
	case code == http.StatusBadRequest && (apiErr.Code == "context_length_exceeded" ||
		strings.Contains(strings.ToLower(msg), "context length")):
		return fmt.Errorf("%w: %s", provider.ErrContextLength, msg)
	case code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s", provider.ErrProviderDown, msg)
	default:
		return fmt.Errorf("openai: HTTP %d: %s", code, msg)
	}
}
