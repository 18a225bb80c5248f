package routes

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/todopic/todopic/internal/pic"
	"github.com/todopic/todopic/internal/server"
)

// PicSource 是 /api/pic 依赖的最小接口，由 *pic.Cache 实现。
type PicSource interface {
	Get(ctx context.Context) (*pic.Artifact, error)
}

// RegisterPicRoutes 暴露 GET /api/pic。
func RegisterPicRoutes(app *fiber.App, source PicSource, logger *logrus.Logger) {
	if app == nil || source == nil {
		return
	}

	app.Get("/api/pic", func(c fiber.Ctx) error {
		artifact, err := source.Get(c.Context())
		if err != nil {
			code := picErrorCode(err)
			logger.WithFields(logrus.Fields{
				"action":     "pic",
				"request_id": server.RequestID(c),
				"error_code": code,
			}).WithError(err).Error("pic request failed")
			return server.WriteError(c, fiber.StatusInternalServerError, code)
		}

		c.Set(fiber.HeaderContentType, artifact.ContentType)
		c.Set("X-Todopic-Cache", string(artifact.Source))
		return c.Send(artifact.Body)
	})
}

func picErrorCode(err error) string {
	var fetchErr *pic.FetchError
	if errors.As(err, &fetchErr) {
		return "origin_fetch_failed"
	}
	var writeErr *pic.StoreWriteError
	if errors.As(err, &writeErr) {
		return "cache_write_failed"
	}
	return "internal_error"
}
