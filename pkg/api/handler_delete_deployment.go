package api

import (
	"github.com/gofiber/fiber/v3"
)

func (s *Server) HandleDeleteDeployment(c fiber.Ctx) error {
	owner := ownerFromCtx(c)

	id, err := parseID(c, "id")

	if err != nil {
		return s.respondError(c, err)
	}

	if err := s.svc.Delete(c.Context(), owner, id); err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(MessageResponse{Message: "Deployment deleted successfully"})
}
