package api

import (
	"github.com/gofiber/fiber/v3"
)

func (s *Server) HandleListDeployments(c fiber.Ctx) error {
	owner := ownerFromCtx(c)

	projectID, err := parseID(c, "project_id")

	if err != nil {
		return s.respondError(c, err)
	}

	deployments, err := s.svc.List(c.Context(), owner, projectID)

	if err != nil {
		return s.respondError(c, err)
	}

	data := make([]DeploymentResponse, 0, len(deployments))

	for i := range deployments {
		resp, err := deploymentResponse(&deployments[i])

		if err != nil {
			return s.respondError(c, err)
		}

		data = append(data, resp)
	}

	return c.JSON(ListResponse[DeploymentResponse]{Total: len(data), Data: data})
}
