package anthropic

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const okMessage = `{
	"id": "msg_123",
	"type": "message",
	"role": "assistant",
	"content": [{"type": "text", "text": "Hello!"}],
	"model": "claude-sonnet-4-5-20250929",
	"stop_reason": "end_turn",
	"stop_sequence": null,
	"usage": {"input_tokens": 10, "output_tokens": 5}
}`

// newTestProvider creates a provider pointed at an httptest server that
// always answers with status and body.
func newTestProvider(t *testing.T, status int, body string) *Anthropic {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	client := sdkanthropic.NewClient(
		option.WithBaseURL(srv.URL),
		option.WithAPIKey("test-key"),
		option.WithMaxRetries(0),
	)
	cfg := Config{}
	cfg.defaults()
	return &Anthropic{config: cfg, client: &client, logger: slog.New(slog.DiscardHandler)}
}

func textBlock(text string) sdkanthropic.ContentBlockUnion {
	b, _ := json.Marshal(map[string]string{"type": "text", "text": text})
	var block sdkanthropic.ContentBlockUnion
	_ = json.Unmarshal(b, &block)
	return block
}
