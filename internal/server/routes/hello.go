package routes

import "github.com/gofiber/fiber/v3"

// RegisterHelloRoutes 暴露存活探针 GET /api/hello-world。
func RegisterHelloRoutes(app *fiber.App) {
	if app == nil {
		return
	}
	app.Get("/api/hello-world", func(c fiber.Ctx) error {
		return c.SendString("Hello World!")
	})
}
