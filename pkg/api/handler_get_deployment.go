package api

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/KAMRON-DEVELOPER/cloud-compute/pkg/apperrors"
	"github.com/KAMRON-DEVELOPER/cloud-compute/pkg/models"
)

type DeploymentDetailResponse struct {
	ID               uuid.UUID               `json:"id"`
	ProjectID        uuid.UUID               `json:"projectId"`
	Name             string                  `json:"name"`
	Image            string                  `json:"image"`
	Status           models.DeploymentStatus `json:"status"`
	Replicas         int32                   `json:"replicas"`
	ReadyReplicas    *int32                  `json:"readyReplicas,omitempty"`
	Resources        models.ResourceSpec     `json:"resources"`
	EnvVars          map[string]string       `json:"envVars"`
	SecretKeys       []string                `json:"secretKeys"`
	Labels           map[string]string       `json:"labels,omitempty"`
	ExternalURL      *string                 `json:"externalUrl"`
	ClusterNamespace string                  `json:"clusterNamespace"`
	CreatedAt        time.Time               `json:"createdAt"`
	UpdatedAt        time.Time               `json:"updatedAt"`
}

func (s *Server) HandleGetDeployment(c fiber.Ctx) error {
	owner := ownerFromCtx(c)

	id, err := parseID(c, "id")

	if err != nil {
		return s.respondError(c, err)
	}

	detail, err := s.svc.Detail(c.Context(), owner, id)

	if err != nil {
		return s.respondError(c, err)
	}

	d := detail.Deployment

	spec, err := d.ResourceSpec()

	if err != nil {
		return s.respondError(c, apperrors.Ledger("corrupt resource spec", err))
	}

	envVars, err := d.EnvVarMap()

	if err != nil {
		return s.respondError(c, apperrors.Ledger("corrupt env vars", err))
	}

	var labels map[string]string
	if len(d.Labels) > 0 {
		if err := json.Unmarshal(d.Labels, &labels); err != nil {
			return s.respondError(c, apperrors.Ledger("corrupt labels", err))
		}
	}

	return c.JSON(DeploymentDetailResponse{
		ID:               d.ID,
		ProjectID:        d.ProjectID,
		Name:             d.Name,
		Image:            d.Image,
		Status:           d.Status,
		Replicas:         d.Replicas,
		ReadyReplicas:    detail.ReadyReplicas,
		Resources:        spec,
		EnvVars:          envVars,
		SecretKeys:       detail.SecretKeys,
		Labels:           labels,
		ExternalURL:      d.ExternalURL,
		ClusterNamespace: d.ClusterNamespace,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	})
}
