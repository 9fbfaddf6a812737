package tracing

import (
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"

	appconfig "github.com/tair/storefront/pkg/config"
	"github.com/tair/storefront/pkg/logger"
)

func init() {
	logger.Nop()
}

func TestSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{ratio: 1, want: "AlwaysOnSampler"},
		{ratio: 2, want: "AlwaysOnSampler"},
		{ratio: 0, want: "AlwaysOffSampler"},
		{ratio: 0.25, want: "TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		got := Sampler(tt.ratio).Description()
		if !strings.HasPrefix(got, "ParentBased{root:"+tt.want) {
			t.Fatalf("Sampler(%v) = %q, want root %s", tt.ratio, got, tt.want)
		}
	}
}

func TestInitTracerInstallsProvider(t *testing.T) {
	cfg, err := appconfig.Load("", "tracing-test", "0")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tp, err := InitTracer(cfg)
	if err != nil {
		t.Fatalf("InitTracer: %v", err)
	}
	defer func() { _ = Shutdown(context.Background(), tp) }()

	if otel.GetTracerProvider() != tp {
		t.Fatal("global tracer provider was not replaced")
	}
}
