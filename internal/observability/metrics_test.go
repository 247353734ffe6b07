package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestInitMetrics(t *testing.T) {
	handler, metrics, shutdown, err := InitMetrics()
	if err != nil {
		t.Fatalf("InitMetrics failed: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = shutdown(shutdownCtx)
	}()

	if handler == nil {
		t.Fatal("expected handler to be non-nil")
	}
	if metrics == nil {
		t.Fatal("expected metrics instrument set to be non-nil")
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
	}
}

func TestMetrics_RecordDeviceAppearsInOutput(t *testing.T) {
	ctx := context.Background()

	handler, metrics, shutdown, err := InitMetrics()
	if err != nil {
		t.Fatalf("InitMetrics failed: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = shutdown(shutdownCtx)
	}()

	metrics.RecordDevice(ctx, "success", 1.25)
	metrics.RecordRun(ctx, "success")
	metrics.RecordValidationScore(ctx, 87.5)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	body := rr.Body.String()
	if !strings.Contains(body, "collector_devices_total") {
		t.Errorf("expected collector_devices_total in output, got:\n%s", body)
	}
	if !strings.Contains(body, "collector_runs_total") {
		t.Errorf("expected collector_runs_total in output, got:\n%s", body)
	}
}

func TestMetrics_NilReceiverIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordDevice(context.Background(), "success", 1)
	m.RecordRun(context.Background(), "success")
	m.RecordValidationScore(context.Background(), 50)
}
