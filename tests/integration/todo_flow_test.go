package integration

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/todopic/todopic/internal/server"
	"github.com/todopic/todopic/internal/server/routes"
	"github.com/todopic/todopic/internal/todo"
)

func TestTodoFlowInMemory(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	app, err := server.NewApp(server.AppOptions{Logger: logger})
	if err != nil {
		t.Fatalf("app init: %v", err)
	}
	routes.RegisterHelloRoutes(app)
	routes.RegisterTodoRoutes(app, todo.NewMemoryRepository(), logger)

	for _, value := range []string{"first", "second"} {
		req := httptest.NewRequest("POST", "/api/todos", strings.NewReader(`{"value":"`+value+`"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test failed: %v", err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("expected 200 creating %s, got %d", value, resp.StatusCode)
		}
	}

	req := httptest.NewRequest("POST", "/api/todos", strings.NewReader(`{"value":"`+strings.Repeat("z", 141)+`"}`))
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/api/todos", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	var items []todo.Todo
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(items) != 2 || items[0].Value != "first" || items[1].Value != "second" {
		t.Fatalf("unexpected todos %+v", items)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID header")
	}
}
