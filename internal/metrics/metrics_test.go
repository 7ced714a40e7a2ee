package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewMetricProvider_Prometheus(t *testing.T) {
	ctx := context.Background()
	m, err := NewMetricProvider(ctx, WithServiceName("curvearb-test"))
	if err != nil {
		t.Fatalf("NewMetricProvider() error = %v", err)
	}
	t.Cleanup(func() { _ = m.Shutdown(ctx) })

	counter, err := m.Meter("test").Int64Counter("detector_scans")
	if err != nil {
		t.Fatalf("Int64Counter() error = %v", err)
	}
	counter.Add(ctx, 3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(string(body), "detector_scans_total") {
		t.Errorf("metrics output missing counter:\n%s", body)
	}
}

func TestNewMetricProvider_UnknownProvider(t *testing.T) {
	_, err := NewMetricProvider(context.Background(),
		WithProviderConfig(ProviderCfg{Provider: "statsd"}))
	if err == nil {
		t.Error("NewMetricProvider() with unknown provider should fail")
	}
}

func TestNewMetricProvider_PrometheusAndCollector(t *testing.T) {
	ctx := context.Background()
	m, err := NewMetricProvider(ctx,
		WithServiceName("curvearb-test"),
		WithProviderConfig(ProviderCfg{Provider: PrometheusProvider}),
		WithProviderConfig(NewOtelCollectorConfig("http://127.0.0.1:4317", map[string]string{"x-team": "curve"}, InsecureOtel)),
	)
	if err != nil {
		t.Fatalf("NewMetricProvider() error = %v", err)
	}
	t.Cleanup(func() {
		// nothing listens on the collector port; don't wait for the flush
		sctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		defer cancel()
		_ = m.Shutdown(sctx)
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want the Prometheus reader alongside the collector", rec.Code)
	}
}

func TestNewOtelCollectorConfig(t *testing.T) {
	cfg := NewOtelCollectorConfig("http://collector:4317", map[string]string{"k": "v"}, SecureOtel)
	if cfg.Provider != OtelCollector || cfg.Endpoint != "http://collector:4317" || cfg.Insecure || cfg.Headers["k"] != "v" {
		t.Errorf("cfg = %+v", cfg)
	}
}
