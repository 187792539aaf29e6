package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion_ListsModules(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	for _, want := range []string{"recall dev", "embedder.hashing", "gateway.http", "provider.anthropic", "provider.openai"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigCheck(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	body := "version: \"1\"\nmodules:\n  embedder.hashing:\n    dimensions: 128\n"
	if err := os.WriteFile(good, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "config", "check", good)
	if err != nil {
		t.Fatalf("config check: %v", err)
	}
	if !strings.Contains(out, "Configuration OK") || !strings.Contains(out, "embedder.hashing") {
		t.Errorf("output = %s", out)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("version: \"2\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "config", "check", bad); err == nil {
		t.Fatal("config check accepted version 2")
	}
}

func TestSearch_PrintsRankedResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recall.yaml")
	body := `version: "1"
knowledge:
  seed:
    - id: channels
      content: Go channels connect goroutines.
      metadata: {topic: concurrency}
    - id: maps
      content: Maps are hash tables.
      metadata: {topic: data}
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "search", "-c", path, "-k", "1", "goroutines", "channels")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !strings.Contains(out, "1. [concurrency] Go channels connect goroutines.") {
		t.Errorf("output = %q", out)
	}
	if strings.Contains(out, "2.") {
		t.Errorf("top-k ignored: %q", out)
	}
}
