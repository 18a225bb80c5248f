package server

import (
	"bytes"
	"io"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

func TestRouterSetsRequestIDAndRecordsMetrics(t *testing.T) {
	app, recorder := newTestApp(t)
	app.Get("/api/ping", func(c fiber.Ctx) error {
		if RequestID(c) == "" {
			t.Errorf("request id should be available to handlers")
		}
		return c.SendString("pong")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/ping", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 status, got %d", resp.StatusCode)
	}
	if reqID := resp.Header.Get("X-Request-ID"); reqID == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}

	calls := recorder.snapshot()
	if len(calls) != 1 {
		t.Fatalf("expected one observed request, got %d", len(calls))
	}
	if calls[0] != (observedRequest{method: "GET", route: "/api/ping", status: "200"}) {
		t.Fatalf("unexpected metrics labels: %+v", calls[0])
	}
}

func TestRouterReturnsJSON404ForUnknownRoute(t *testing.T) {
	app, recorder := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/nope", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 status, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte(`"not_found"`)) {
		t.Fatalf("expected not_found error, got %s", string(body))
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatalf("error responses should carry X-Request-ID")
	}

	calls := recorder.snapshot()
	if len(calls) != 1 || calls[0].status != "404" || calls[0].route != "unmatched" {
		t.Fatalf("unexpected metrics: %+v", calls)
	}
}

func TestRouterRendersHandlerErrorsAsJSON(t *testing.T) {
	app, _ := newTestApp(t)
	app.Get("/api/boom", func(c fiber.Ctx) error {
		return io.ErrUnexpectedEOF
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/boom", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("expected 500 status, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte(`"internal_error"`)) {
		t.Fatalf("expected internal_error, got %s", string(body))
	}
}

func TestRouterRecoversFromPanic(t *testing.T) {
	app, recorder := newTestApp(t)
	app.Get("/api/panic", func(c fiber.Ctx) error {
		panic("boom")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/panic", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("expected 500 status, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatalf("panic responses should carry X-Request-ID")
	}

	calls := recorder.snapshot()
	if len(calls) != 1 || calls[0] != (observedRequest{method: "GET", route: "/api/panic", status: "500"}) {
		t.Fatalf("panicking request should be counted as 500, got %+v", calls)
	}
}

func TestNewAppRequiresLogger(t *testing.T) {
	if _, err := NewApp(AppOptions{}); err == nil {
		t.Fatalf("expected error without logger")
	}
}

func newTestApp(t *testing.T) (*fiber.App, *metricsRecorder) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	recorder := &metricsRecorder{}
	app, err := NewApp(AppOptions{
		Logger:  logger,
		Metrics: recorder,
	})
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}
	return app, recorder
}

type observedRequest struct {
	method string
	route  string
	status string
}

type metricsRecorder struct {
	mu    sync.Mutex
	calls []observedRequest
}

func (m *metricsRecorder) ObserveRequest(method, route, status string, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, observedRequest{method: method, route: route, status: status})
}

func (m *metricsRecorder) snapshot() []observedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]observedRequest(nil), m.calls...)
}
