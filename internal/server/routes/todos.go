package routes

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/todopic/todopic/internal/server"
	"github.com/todopic/todopic/internal/todo"
)

type createTodoRequest struct {
	Value string `json:"value"`
}

// RegisterTodoRoutes 暴露 GET/POST /api/todos。
func RegisterTodoRoutes(app *fiber.App, repo todo.Repository, logger *logrus.Logger) {
	if app == nil || repo == nil {
		return
	}

	app.Get("/api/todos", func(c fiber.Ctx) error {
		items, err := repo.List(c.Context())
		if err != nil {
			logTodoError(logger, c, "list", err)
			return server.WriteError(c, fiber.StatusInternalServerError, "todo_list_failed")
		}
		return c.JSON(items)
	})

	app.Post("/api/todos", func(c fiber.Ctx) error {
		var req createTodoRequest
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return server.WriteError(c, fiber.StatusBadRequest, "invalid_body")
		}

		item, err := repo.Create(c.Context(), req.Value)
		if err != nil {
			if errors.Is(err, todo.ErrValueTooLong) {
				return c.Status(fiber.StatusUnprocessableEntity).SendString("Too long value")
			}
			logTodoError(logger, c, "create", err)
			return server.WriteError(c, fiber.StatusInternalServerError, "todo_create_failed")
		}
		return c.JSON(item)
	})
}

func logTodoError(logger *logrus.Logger, c fiber.Ctx, op string, err error) {
	logger.WithFields(logrus.Fields{
		"action":     "todo",
		"op":         op,
		"request_id": server.RequestID(c),
	}).WithError(err).Error("todo request failed")
}
