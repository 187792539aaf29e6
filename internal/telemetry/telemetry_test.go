package telemetry

import (
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestSetup_DisabledIsNoop(t *testing.T) {
	t.Parallel()

	shutdown, err := Setup(context.Background(), Config{}, "test", slog.Default())
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestSetup_InvalidSampleRate(t *testing.T) {
	t.Parallel()

	_, err := Setup(context.Background(), Config{Enabled: true, SampleRate: 2}, "test", slog.Default())
	if err == nil || !strings.Contains(err.Error(), "sample_rate") {
		t.Errorf("err = %v, want sample_rate error", err)
	}
}

func TestConfig_Defaults(t *testing.T) {
	t.Parallel()

	var c Config
	c.Defaults()
	if c.Endpoint != "localhost:4318" || c.SampleRate != 1 || c.ServiceName != "recall" || c.BatchTimeout == 0 {
		t.Errorf("defaults = %+v", c)
	}
}

func TestSampler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rate float64
		want string
	}{
		{1, "AlwaysOnSampler"},
		{1.5, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		if got := Sampler(tt.rate).Description(); !strings.Contains(got, tt.want) {
			t.Errorf("Sampler(%v) = %s, want it to contain %s", tt.rate, got, tt.want)
		}
	}
}

func TestExporterOptions(t *testing.T) {
	t.Parallel()

	if n := len(exporterOptions(Config{Endpoint: "collector:4318"})); n != 1 {
		t.Errorf("host:port options = %d, want 1", n)
	}
	if n := len(exporterOptions(Config{Endpoint: "https://collector/v1/traces", Insecure: true})); n != 2 {
		t.Errorf("url + insecure options = %d, want 2", n)
	}
}
