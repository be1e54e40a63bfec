package api

import (
	"github.com/gofiber/fiber/v3"

	"github.com/KAMRON-DEVELOPER/cloud-compute/pkg/apperrors"
	"github.com/KAMRON-DEVELOPER/cloud-compute/pkg/models"
	"github.com/KAMRON-DEVELOPER/cloud-compute/pkg/orchestrator"
)

type CreateDeploymentRequest struct {
	Name         string               `json:"name" validate:"required,max=100"`
	Image        string               `json:"image" validate:"required,max=512"`
	Replicas     int32                `json:"replicas" validate:"required,min=1,max=20"`
	Port         int32                `json:"port" validate:"required,min=1,max=65535"`
	EnvVars      map[string]string    `json:"envVars"`
	Secrets      map[string]string    `json:"secrets"`
	Resources    *models.ResourceSpec `json:"resources"`
	Labels       map[string]string    `json:"labels"`
	NodeSelector map[string]string    `json:"nodeSelector"`
	Subdomain    string               `json:"subdomain" validate:"omitempty,hostname_rfc1123"`
}

func (s *Server) HandleCreateDeployment(c fiber.Ctx) error {
	owner := ownerFromCtx(c)

	projectID, err := parseID(c, "project_id")

	if err != nil {
		return s.respondError(c, err)
	}

	var req CreateDeploymentRequest

	if err := c.Bind().JSON(&req); err != nil {
		return s.respondError(c, apperrors.Validation("invalid request body"))
	}

	if err := s.validate.Struct(req); err != nil {
		return s.respondError(c, apperrors.Validation("%v", err))
	}

	deployment, err := s.svc.Create(c.Context(), owner, projectID, orchestrator.CreateInput{
		Name:         req.Name,
		Image:        req.Image,
		Replicas:     req.Replicas,
		Port:         req.Port,
		EnvVars:      req.EnvVars,
		Secrets:      req.Secrets,
		Resources:    req.Resources,
		Labels:       req.Labels,
		NodeSelector: req.NodeSelector,
		Subdomain:    req.Subdomain,
	})

	if err != nil {
		return s.respondError(c, err)
	}

	resp, err := deploymentResponse(deployment)

	if err != nil {
		return s.respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}
