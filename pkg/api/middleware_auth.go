package api

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/KAMRON-DEVELOPER/cloud-compute/pkg/auth"
)

const ownerLocalKey = "owner_id"

// AuthMiddleware verifies the bearer token and stashes the caller's
// owner id for the handlers. Token issuance is the identity service's
// job; anything unverifiable is a plain 401.
func (s *Server) AuthMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		header := c.Get("Authorization")

		token, ok := strings.CutPrefix(header, "Bearer ")

		if !ok || token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "missing bearer token"})
		}

		owner, err := auth.ParseOwner(token, s.jwtSecret)

		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "invalid token"})
		}

		c.Locals(ownerLocalKey, owner)

		return c.Next()
	}
}

func ownerFromCtx(c fiber.Ctx) uuid.UUID {
	owner, _ := c.Locals(ownerLocalKey).(uuid.UUID)
	return owner
}
