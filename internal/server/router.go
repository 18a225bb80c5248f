package server

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/todopic/todopic/internal/logging"
	"github.com/todopic/todopic/internal/metrics"
)

// AppOptions controls how the Fiber application should behave.
type AppOptions struct {
	Logger  *logrus.Logger
	Metrics metrics.HTTPMetrics
}

const contextKeyRequestID = "_todopic_request_id"

// NewApp builds a Fiber application with request ID, access log and metrics
// middlewares plus structured JSON error handling. Routes are attached by the
// routes package.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Noop{}
	}

	handleError := errorHandler(opts.Logger)
	app := fiber.New(fiber.Config{
		CaseSensitive: true,
		ErrorHandler:  handleError,
	})

	// recover 位于请求中间件之内，panic 产生的 500 同样进入访问日志与指标。
	app.Use(requestContextMiddleware(opts, handleError))
	app.Use(recover.New())

	return app, nil
}

// requestContextMiddleware 生成请求 ID，并在请求结束后记录访问日志与指标。
func requestContextMiddleware(opts AppOptions, handleError fiber.ErrorHandler) fiber.Handler {
	return func(c fiber.Ctx) error {
		started := time.Now()
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)

		if err := c.Next(); err != nil {
			// 先渲染错误响应，日志与指标才能拿到最终状态码。
			if herr := handleError(c, err); herr != nil {
				return herr
			}
		}

		elapsed := time.Since(started)
		status := c.Response().StatusCode()
		route := routePattern(c)
		opts.Metrics.ObserveRequest(c.Method(), route, strconv.Itoa(status), elapsed.Seconds())

		entry := opts.Logger.WithFields(logging.RequestFields(c.Method(), c.Path(), reqID, status, elapsed.Milliseconds()))
		if status >= fiber.StatusInternalServerError {
			entry.Warn("request completed")
		} else {
			entry.Info("request completed")
		}
		return nil
	}
}

func errorHandler(logger *logrus.Logger) fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			code = fiberErr.Code
		}

		if code >= fiber.StatusInternalServerError {
			logger.WithFields(logrus.Fields{
				"action":     "request_error",
				"path":       c.Path(),
				"request_id": RequestID(c),
			}).WithError(err).Error("unhandled request error")
		}

		return c.Status(code).JSON(fiber.Map{
			"error": errorCode(code),
		})
	}
}

func errorCode(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return "not_found"
	case fiber.StatusMethodNotAllowed:
		return "method_not_allowed"
	case fiber.StatusBadRequest:
		return "bad_request"
	default:
		return "internal_error"
	}
}

// routePattern 返回匹配到的路由模板，避免把原始路径当作指标标签。
func routePattern(c fiber.Ctx) string {
	if route := c.Route(); route != nil && route.Path != "" && route.Path != "/" {
		return route.Path
	}
	return "unmatched"
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

// WriteError renders the JSON error envelope used by every handler.
func WriteError(c fiber.Ctx, status int, code string) error {
	return c.Status(status).JSON(fiber.Map{"error": code})
}
