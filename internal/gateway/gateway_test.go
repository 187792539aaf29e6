package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/flemzord/recall/internal/core"
	"gopkg.in/yaml.v3"
)

func TestGateway_ModuleInfo(t *testing.T) {
	t.Parallel()

	g := &Gateway{}
	info := g.ModuleInfo()

	if info.ID != "gateway.http" {
		t.Errorf("ID = %q, want %q", info.ID, "gateway.http")
	}
	if info.New == nil {
		t.Fatal("New func is nil")
	}
	if _, ok := info.New().(*Gateway); !ok {
		t.Error("New() should return *Gateway")
	}
}

func TestGateway_ConfigureDefaults(t *testing.T) {
	t.Parallel()

	g := &Gateway{}
	if err := g.Configure(mustYAMLNode(t, "{}")); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	if g.config.Bind != "127.0.0.1:8080" {
		t.Errorf("Bind = %q, want default", g.config.Bind)
	}
	if g.config.ReadTimeout != 10*time.Second {
		t.Errorf("ReadTimeout = %v, want 10s", g.config.ReadTimeout)
	}
	if g.config.WriteTimeout != 60*time.Second {
		t.Errorf("WriteTimeout = %v, want 60s", g.config.WriteTimeout)
	}
	if g.config.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 5s", g.config.ShutdownTimeout)
	}
	if g.config.MaxBodyBytes != 1<<20 {
		t.Errorf("MaxBodyBytes = %d, want 1MiB", g.config.MaxBodyBytes)
	}
	if g.config.RateLimit.Enabled() {
		t.Error("rate limiting should be off by default")
	}
}

func TestGateway_ConfigureCustom(t *testing.T) {
	t.Parallel()

	g := &Gateway{}
	node := mustYAMLNode(t, `
bind: "0.0.0.0:9090"
read_timeout: 5s
write_timeout: 15s
shutdown_timeout: 10s
auth:
  bearer_token: "my-token"
rate_limit:
  requests_per_second: 5
  burst: 10
ws_origins: ["example.com"]
`)
	if err := g.Configure(node); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	if g.config.Bind != "0.0.0.0:9090" {
		t.Errorf("Bind = %q, want custom", g.config.Bind)
	}
	if g.config.WriteTimeout != 15*time.Second {
		t.Errorf("WriteTimeout = %v, want 15s", g.config.WriteTimeout)
	}
	if g.config.Auth.BearerToken != "my-token" {
		t.Errorf("BearerToken = %q", g.config.Auth.BearerToken)
	}
	if g.config.RateLimit.RequestsPerSecond != 5 || g.config.RateLimit.Burst != 10 {
		t.Errorf("RateLimit = %+v", g.config.RateLimit)
	}
	if len(g.config.WSOrigins) != 1 || g.config.WSOrigins[0] != "example.com" {
		t.Errorf("WSOrigins = %v", g.config.WSOrigins)
	}
}

func TestGateway_ProvisionRateLimiter(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	g := &Gateway{}
	if err := g.Provision(core.NewAppContext(logger)); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if g.limiter != nil {
		t.Error("limiter should be nil when rate limiting is off")
	}

	g2 := &Gateway{}
	g2.config.RateLimit.RequestsPerSecond = 2
	if err := g2.Provision(core.NewAppContext(logger)); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if g2.limiter == nil {
		t.Error("limiter should be created when rate limiting is on")
	}
}

func TestGateway_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"good address", Config{Bind: "127.0.0.1:8080"}, false},
		{"bad address", Config{Bind: "not a valid address::"}, true},
		{"negative rate", Config{Bind: "127.0.0.1:8080", RateLimit: rateLimit(-1, 0)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := &Gateway{config: tt.cfg}
			if err := g.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGateway_StartWithoutBackend(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	g := &Gateway{}
	g.config.Bind = freeAddr(t)
	if err := g.Provision(core.NewAppContext(logger)); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if err := g.Start(); err == nil {
		_ = g.Stop(context.Background())
		t.Fatal("Start should fail without a registered backend")
	}
}

// freeAddr returns a free TCP address on localhost.
func freeAddr(t *testing.T) string {
	t.Helper()
	var lc net.ListenConfig
	ln, err := lc.Listen(t.Context(), "tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	if err := ln.Close(); err != nil {
		t.Fatal(err)
	}
	return addr
}

func TestGateway_StartStop(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	appCtx := core.NewAppContext(logger)
	appCtx.RegisterService(BackendService, env.backend)

	addr := freeAddr(t)
	g := &Gateway{}
	g.config = Config{Bind: addr, ShutdownTimeout: 2 * time.Second}
	if err := g.Provision(appCtx); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, "http://"+addr+"/health", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status != "healthy" {
		t.Errorf("health.Status = %q, want %q", health.Status, "healthy")
	}

	if err := g.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestGateway_StopNilServer(t *testing.T) {
	t.Parallel()

	g := &Gateway{}
	if err := g.Stop(context.Background()); err != nil {
		t.Errorf("Stop on nil server should not error: %v", err)
	}
}

// mustYAMLNode parses YAML text into a *yaml.Node for Configure calls.
func mustYAMLNode(t *testing.T, text string) *yaml.Node {
	t.Helper()
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(text), &node); err != nil {
		t.Fatalf("YAML parse: %v", err)
	}
	if len(node.Content) > 0 {
		return node.Content[0]
	}
	return &node
}
