package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/flemzord/recall/internal/memory"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recall.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Sections(t *testing.T) {
	t.Setenv("RECALL_TEST_KEY", "sk-test-123")

	path := writeConfig(t, `
version: "1"
log:
  level: debug
embedding:
  module: embedder.openai
  cache_size: 50
memory:
  long_term_scope: user
knowledge:
  seed_samples: true
  seed:
    - id: faq
      content: Recall answers questions.
      metadata: {topic: help}
rag:
  archive_answers: true
telemetry:
  enabled: true
  sample_rate: 0.5
modules:
  provider.anthropic:
    role: primary
    api_key: ${RECALL_TEST_KEY}
    model: ${RECALL_TEST_MODEL:-claude-sonnet-4-5}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.Defaults()

	if cfg.Log.Level != "debug" || cfg.Embedding.Module != "embedder.openai" || cfg.Embedding.CacheSize != 50 {
		t.Errorf("sections = %+v %+v", cfg.Log, cfg.Embedding)
	}
	if cfg.Memory.LongTermScope != memory.ScopeUser {
		t.Errorf("scope = %q", cfg.Memory.LongTermScope)
	}
	if !cfg.Knowledge.SeedSamples || len(cfg.Knowledge.Seed) != 1 || cfg.Knowledge.Seed[0].Metadata["topic"] != "help" {
		t.Errorf("knowledge = %+v", cfg.Knowledge)
	}
	if !cfg.RAG.ArchiveAnswers || cfg.RAG.KnowledgeTopK != 5 {
		t.Errorf("rag = %+v", cfg.RAG)
	}
	if !cfg.Telemetry.Enabled || cfg.Telemetry.SampleRate != 0.5 || cfg.Telemetry.ServiceName != "recall" {
		t.Errorf("telemetry = %+v", cfg.Telemetry)
	}
	if cfg.Generation.Timeout != 30*time.Second {
		t.Errorf("generation timeout = %v", cfg.Generation.Timeout)
	}

	node, ok := cfg.Modules["provider.anthropic"]
	if !ok {
		t.Fatal("provider.anthropic missing")
	}
	var mod struct {
		APIKey string `yaml:"api_key"`
		Model  string `yaml:"model"`
	}
	if err := node.Decode(&mod); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if mod.APIKey != "sk-test-123" || mod.Model != "claude-sonnet-4-5" {
		t.Errorf("module = %+v", mod)
	}
}

func TestLoad_UnresolvedVariables(t *testing.T) {
	path := writeConfig(t, `
version: "1"
modules:
  provider.openai:
    api_key: ${RECALL_TEST_UNSET_A}
    base_url: ${RECALL_TEST_UNSET_B}
`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{
		"modules.provider.openai.api_key (line 5): unresolved variable RECALL_TEST_UNSET_A",
		"modules.provider.openai.base_url (line 6): unresolved variable RECALL_TEST_UNSET_B",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should contain %q: %v", want, err)
		}
	}
}

func TestExpandEnv_SequenceKeyPath(t *testing.T) {
	t.Parallel()
	raw := "knowledge:\n  seed:\n    - id: a\n      content: ${RECALL_TEST_DOC}\n"
	_, err := expandEnv([]byte(raw), func(string) (string, bool) { return "", false })
	if err == nil || !strings.Contains(err.Error(), "knowledge.seed[0].content (line 4)") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := Load(writeConfig(t, "version: \"1\"\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Embedding.Module != DefaultEmbedder || cfg.Generation.Timeout != 30*time.Second || cfg.Log.Level != "info" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestExpandEnv(t *testing.T) {
	t.Parallel()
	env := map[string]string{"RECALL_TEST_SET": "value"}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	tests := []struct {
		in, want string
	}{
		{"a: ${RECALL_TEST_SET}", "a: value"},
		{"a: ${RECALL_TEST_NOPE:-fallback}", "a: fallback"},
		{"a: ${RECALL_TEST_SET:-fallback}", "a: value"},
		{"a: ${RECALL_TEST_NOPE:-}", "a: "},
		{"a: plain", "a: plain"},
	}
	for _, tt := range tests {
		got, err := expandEnv([]byte(tt.in), lookup)
		if err != nil {
			t.Fatalf("expandEnv(%q): %v", tt.in, err)
		}
		if string(got) != tt.want {
			t.Errorf("expandEnv(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDefault(t *testing.T) {
	t.Parallel()
	cfg := Default()

	if cfg.Version != "1" || cfg.Embedding.Module != DefaultEmbedder || !cfg.Knowledge.SeedSamples {
		t.Fatalf("default = %+v", cfg)
	}
	if _, ok := cfg.Modules["gateway.http"]; !ok {
		t.Fatal("default config should enable the gateway")
	}
	if lvl, err := cfg.Log.SlogLevel(); err != nil || lvl.String() != "INFO" {
		t.Fatalf("level = %v, %v", lvl, err)
	}
}
