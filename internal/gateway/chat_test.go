package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/flemzord/recall/internal/core"
	"github.com/flemzord/recall/internal/provider"
	"github.com/flemzord/recall/internal/provider/providertest"
	"github.com/flemzord/recall/internal/rag"
)

func TestConfig_ChatBudget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		write time.Duration
		want  time.Duration
	}{
		{60 * time.Second, 55 * time.Second},
		{10 * time.Second, 8 * time.Second},
		{500 * time.Millisecond, 400 * time.Millisecond},
	}
	for _, tt := range tests {
		c := Config{WriteTimeout: tt.write}
		if got := c.chatBudget(); got != tt.want {
			t.Errorf("chatBudget(%v) = %v, want %v", tt.write, got, tt.want)
		}
	}
}

// TestChat_StalledProviderGetsApology runs a real server whose provider
// never answers and ignores its context. The turn must still end with
// the apology before the server's write deadline.
func TestChat_StalledProviderGetsApology(t *testing.T) {
	t.Parallel()

	stalled := make(chan struct{})
	t.Cleanup(func() { close(stalled) })
	llm := &providertest.MockProvider{
		CompleteFunc: func(context.Context, provider.CompletionRequest) (provider.CompletionResponse, error) {
			<-stalled
			return provider.CompletionResponse{}, nil
		},
	}

	env := newTestEnv(t)
	env.backend.Agent = rag.NewAgent(env.kb, env.mem, provider.WithTimeout(llm, time.Minute), rag.Config{})

	appCtx := core.NewAppContext(slog.New(slog.DiscardHandler))
	appCtx.RegisterService(BackendService, env.backend)

	addr := freeAddr(t)
	g := &Gateway{}
	g.config = Config{Bind: addr, WriteTimeout: 500 * time.Millisecond, ShutdownTimeout: time.Second}
	if err := g.Provision(appCtx); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = g.Stop(context.Background()) })

	body := strings.NewReader(`{"user_id":"u1","message":"what is a vector database?"}`)
	req, err := http.NewRequestWithContext(t.Context(), http.MethodPost, "http://"+addr+"/api/chat", body)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("client got a transport error instead of an answer: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var got chatResponse
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("reading body: %v", err)
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if !got.Degraded || got.Text != rag.Apology {
		t.Fatalf("answer = %+v, want the degraded apology", got.Answer)
	}
}
