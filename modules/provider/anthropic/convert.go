package anthropic

import (
	"log/slog"
	"strings"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/flemzord/recall/internal/provider"
)

// convertRequest builds Messages API parameters from a completion request.
// Leading system messages move to the dedicated System field.
func convertRequest(req provider.CompletionRequest, cfg *Config, logger *slog.Logger) sdkanthropic.MessageNewParams {
	system, rest := splitSystemMessages(req.Messages)

	params := sdkanthropic.MessageNewParams{
		Model:     sdkanthropic.Model(cfg.Model),
		MaxTokens: int64(cfg.MaxTokens),
		Messages:  convertMessages(rest, logger),
		System:    system,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = int64(req.MaxTokens)
	}
	if req.Temperature != nil {
		params.Temperature = sdkanthropic.Float(*req.Temperature)
	}
	return params
}

func splitSystemMessages(msgs []provider.LLMMessage) ([]sdkanthropic.TextBlockParam, []provider.LLMMessage) {
	var system []sdkanthropic.TextBlockParam
	i := 0
	for ; i < len(msgs) && msgs[i].Role == provider.MessageRoleSystem; i++ {
		system = append(system, sdkanthropic.TextBlockParam{Text: msgs[i].Content})
	}
	return system, msgs[i:]
}

// convertMessages maps user and assistant turns. A system message after
// the first turn has no place in the Messages API and is dropped.
func convertMessages(msgs []provider.LLMMessage, logger *slog.Logger) []sdkanthropic.MessageParam {
	out := make([]sdkanthropic.MessageParam, 0, len(msgs))
	for i, msg := range msgs {
		switch msg.Role {
		case provider.MessageRoleUser:
			out = append(out, sdkanthropic.NewUserMessage(sdkanthropic.NewTextBlock(msg.Content)))
		case provider.MessageRoleAssistant:
			out = append(out, sdkanthropic.NewAssistantMessage(sdkanthropic.NewTextBlock(msg.Content)))
		default:
			if logger != nil {
				logger.Warn("dropping message the Messages API cannot carry", "index", i, "role", msg.Role)
			}
		}
	}
	return out
}

// convertResponse joins the text blocks of msg.
func convertResponse(msg *sdkanthropic.Message) provider.CompletionResponse {
	var parts []string
	for _, block := range msg.Content {
		if text, ok := block.AsAny().(sdkanthropic.TextBlock); ok {
			parts = append(parts, text.Text)
		}
	}
	return provider.CompletionResponse{
		Content:      strings.Join(parts, "\n"),
		FinishReason: convertStopReason(msg.StopReason),
		Usage: provider.TokenUsage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}
}

func convertStopReason(reason sdkanthropic.StopReason) provider.FinishReason {
	switch reason {
	case sdkanthropic.StopReasonMaxTokens:
		return provider.FinishReasonLength
	case sdkanthropic.StopReasonRefusal:
		return provider.FinishReasonFiltering
	default:
		return provider.FinishReasonStop
	}
}
