package hashing

import (
	"context"
	"log/slog"
	"testing"

	"github.com/flemzord/recall/internal/core"
	"gopkg.in/yaml.v3"
)

func configured(t *testing.T, src string) *Module {
	t.Helper()
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(src), &node); err != nil {
		t.Fatal(err)
	}
	m := &Module{}
	if err := m.Configure(node.Content[0]); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := m.Provision(core.NewAppContext(slog.New(slog.DiscardHandler))); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	return m
}

func TestModule_Defaults(t *testing.T) {
	t.Parallel()

	m := configured(t, "{}")
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if m.Dimensions() != DefaultDimensions {
		t.Errorf("Dimensions = %d, want %d", m.Dimensions(), DefaultDimensions)
	}
	vec, err := m.Embed(context.Background(), "vector search with embeddings")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != DefaultDimensions {
		t.Errorf("len(vec) = %d", len(vec))
	}
	if m.Model() != "hashing-bow-1024" {
		t.Errorf("Model = %q", m.Model())
	}
}

func TestModule_CustomDimensions(t *testing.T) {
	t.Parallel()

	m := configured(t, "dimensions: 256")
	if m.Dimensions() != 256 {
		t.Fatalf("Dimensions = %d", m.Dimensions())
	}
}

func TestModule_RejectsNegativeDimensions(t *testing.T) {
	t.Parallel()

	m := configured(t, "dimensions: -3")
	if err := m.Validate(); err == nil {
		t.Fatal("Validate accepted negative dimensions")
	}
}

func TestModule_Registered(t *testing.T) {
	t.Parallel()

	if _, ok := core.GetModule("embedder.hashing"); !ok {
		t.Fatal("embedder.hashing not registered")
	}
}
