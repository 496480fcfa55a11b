package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/trace/noop"
)

func TestInitProviderDisabled(t *testing.T) {
	ctx := context.Background()
	shutdown, err := InitProvider(ctx, DefaultConfig())
	if err != nil {
		t.Fatalf("InitProvider failed: %v", err)
	}
	if shutdown == nil {
		t.Fatal("expected shutdown function, got nil")
	}
	if _, ok := GetTracerProvider().(noop.TracerProvider); !ok {
		t.Errorf("expected noop provider, got %T", GetTracerProvider())
	}
	if err := shutdown(ctx); err != nil {
		t.Fatalf("shutdown returned error: %v", err)
	}
}

func TestInitProviderEnabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Endpoint = "localhost:4317"
	cfg.Insecure = true
	cfg.SampleRatio = 0.5

	ctx := context.Background()
	shutdown, err := InitProvider(ctx, cfg)
	if err != nil {
		t.Fatalf("InitProvider failed: %v", err)
	}
	if shutdown == nil {
		t.Fatal("expected shutdown function, got nil")
	}
	t.Cleanup(func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_ = shutdown(cctx)
		_, _ = InitProvider(context.Background(), DefaultConfig())
	})
}

func TestConfigEnabled(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Enabled() {
		t.Error("default config should be disabled")
	}
	cfg.Endpoint = "collector:4317"
	if !cfg.Enabled() {
		t.Error("config with endpoint should be enabled")
	}
}

func TestShutdownWithoutProvider(t *testing.T) {
	if err := Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
}
