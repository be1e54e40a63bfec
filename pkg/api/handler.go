package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/KAMRON-DEVELOPER/cloud-compute/pkg/apperrors"
	"github.com/KAMRON-DEVELOPER/cloud-compute/pkg/models"
	"github.com/KAMRON-DEVELOPER/cloud-compute/pkg/orchestrator"
	"github.com/KAMRON-DEVELOPER/cloud-compute/pkg/streamer"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ListResponse[T any] struct {
	Total int `json:"total"`
	Data  []T `json:"data"`
}

// DeploymentService is the orchestrator surface the handlers call.
type DeploymentService interface {
	Create(ctx context.Context, owner, projectID uuid.UUID, in orchestrator.CreateInput) (*models.Deployment, error)
	Scale(ctx context.Context, owner, id uuid.UUID, replicas int32) (*models.Deployment, error)
	Delete(ctx context.Context, owner, id uuid.UUID) error
	Get(ctx context.Context, owner, id uuid.UUID) (*models.Deployment, error)
	Detail(ctx context.Context, owner, id uuid.UUID) (*orchestrator.Detail, error)
	List(ctx context.Context, owner, projectID uuid.UUID) ([]models.Deployment, error)
	Events(ctx context.Context, owner, id uuid.UUID, limit int) ([]models.DeploymentEvent, error)
}

// StatusStreamer services one upgraded live-status connection.
type StatusStreamer interface {
	Run(ctx context.Context, conn streamer.Conn, namespace, resourceName string)
}

type Server struct {
	svc       DeploymentService
	stream    StatusStreamer
	jwtSecret string
	validate  *validator.Validate
	log       *slog.Logger
}

func NewServer(svc DeploymentService, stream StatusStreamer, jwtSecret string, log *slog.Logger) *Server {
	return &Server{
		svc:       svc,
		stream:    stream,
		jwtSecret: jwtSecret,
		validate:  validator.New(),
		log:       log,
	}
}

func (s *Server) respondError(c fiber.Ctx, err error) error {
	status := apperrors.HTTPStatus(err)

	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "path", c.Path(), "error", err)
	}

	return c.Status(status).JSON(ErrorResponse{Error: apperrors.MessageOf(err)})
}

func parseID(c fiber.Ctx, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(param))

	if err != nil {
		return uuid.Nil, apperrors.Validation("invalid %s", param)
	}

	return id, nil
}

type DeploymentResponse struct {
	ID          uuid.UUID               `json:"id"`
	ProjectID   uuid.UUID               `json:"projectId"`
	Name        string                  `json:"name"`
	Image       string                  `json:"image"`
	Status      models.DeploymentStatus `json:"status"`
	Replicas    int32                   `json:"replicas"`
	Resources   models.ResourceSpec     `json:"resources"`
	ExternalURL *string                 `json:"externalUrl,omitempty"`
	CreatedAt   time.Time               `json:"createdAt"`
	UpdatedAt   time.Time               `json:"updatedAt"`
}

func deploymentResponse(d *models.Deployment) (DeploymentResponse, error) {
	spec, err := d.ResourceSpec()

	if err != nil {
		return DeploymentResponse{}, apperrors.Ledger("corrupt resource spec", err)
	}

	return DeploymentResponse{
		ID:          d.ID,
		ProjectID:   d.ProjectID,
		Name:        d.Name,
		Image:       d.Image,
		Status:      d.Status,
		Replicas:    d.Replicas,
		Resources:   spec,
		ExternalURL: d.ExternalURL,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}
