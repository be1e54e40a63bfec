package api

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
)

func (s *Server) SetupRoutes(app *fiber.App) {
	app.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
	}))

	api := app.Group("/api/v1", s.AuthMiddleware())

	api.Post("/projects/:project_id/deployments", s.HandleCreateDeployment)
	api.Get("/projects/:project_id/deployments", s.HandleListDeployments)
	api.Get("/deployments/:id", s.HandleGetDeployment)
	api.Patch("/deployments/:id/scale", s.HandleScaleDeployment)
	api.Delete("/deployments/:id", s.HandleDeleteDeployment)
	api.Get("/deployments/:id/events", s.HandleListDeploymentEvents)
	api.Get("/deployments/:id/watch", s.HandleWatchDeployment)

	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})
}
