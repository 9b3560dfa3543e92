package health

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/eleven-am/speech-gateway/internal/metrics"
	"github.com/eleven-am/speech-gateway/internal/recognition"
	"github.com/eleven-am/speech-gateway/internal/stream"
)

var testLogger = slog.New(slog.NewTextHandler(new(strings.Builder), nil))

type fakePinger struct {
	err error
}

func (p *fakePinger) Ping(ctx context.Context) error { return p.err }

func newTestManager(t *testing.T) *stream.Manager {
	t.Helper()
	m := stream.NewManager(stream.ManagerConfig{
		Engine:  &recognition.FakeEngine{},
		Metrics: metrics.New(prometheus.NewRegistry()),
		Logger:  testLogger,
	})
	t.Cleanup(func() { m.Close() })
	return m
}

func doRequest(t *testing.T, h *Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	h.RegisterRoutes(e)
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Liveness(t *testing.T) {
	h := NewHandler(&fakePinger{}, nil, newTestManager(t))
	rec := doRequest(t, h, "/health")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestHandler_ReadinessHealthyEngine(t *testing.T) {
	manager := newTestManager(t)
	manager.Create()
	manager.Create()

	h := NewHandler(&fakePinger{}, nil, manager)
	rec := doRequest(t, h, "/health/ready")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.Components["engine"].Status != StatusHealthy {
		t.Errorf("engine status = %q, want healthy", resp.Components["engine"].Status)
	}
	// nil redis degrades the overall status but keeps readiness at 200
	if resp.Status != StatusDegraded {
		t.Errorf("overall status = %q, want degraded", resp.Status)
	}
	if resp.Sessions.ActiveSessions != 2 {
		t.Errorf("active sessions = %d, want 2", resp.Sessions.ActiveSessions)
	}
	if resp.Runtime.Goroutines == 0 {
		t.Error("runtime stats missing goroutine count")
	}
}

func TestHandler_ReadinessEngineDown(t *testing.T) {
	h := NewHandler(&fakePinger{err: errors.New("connection refused")}, nil, newTestManager(t))
	rec := doRequest(t, h, "/health/ready")

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.Status != StatusUnhealthy {
		t.Errorf("overall status = %q, want unhealthy", resp.Status)
	}
	if resp.Components["engine"].Status != StatusUnhealthy {
		t.Errorf("engine status = %q, want unhealthy", resp.Components["engine"].Status)
	}
}
