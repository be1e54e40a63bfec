package api

import (
	"github.com/gofiber/fiber/v3"

	"github.com/KAMRON-DEVELOPER/cloud-compute/pkg/apperrors"
)

type ScaleDeploymentRequest struct {
	Replicas int32 `json:"replicas" validate:"required,min=1,max=20"`
}

func (s *Server) HandleScaleDeployment(c fiber.Ctx) error {
	owner := ownerFromCtx(c)

	id, err := parseID(c, "id")

	if err != nil {
		return s.respondError(c, err)
	}

	var req ScaleDeploymentRequest

	if err := c.Bind().JSON(&req); err != nil {
		return s.respondError(c, apperrors.Validation("invalid request body"))
	}

	if err := s.validate.Struct(req); err != nil {
		return s.respondError(c, apperrors.Validation("%v", err))
	}

	deployment, err := s.svc.Scale(c.Context(), owner, id, req.Replicas)

	if err != nil {
		return s.respondError(c, err)
	}

	resp, err := deploymentResponse(deployment)

	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(resp)
}
