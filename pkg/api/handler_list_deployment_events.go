package api

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

const defaultEventLimit = 50

type DeploymentEventResponse struct {
	ID        uuid.UUID `json:"id"`
	EventType string    `json:"eventType"`
	Message   *string   `json:"message,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Server) HandleListDeploymentEvents(c fiber.Ctx) error {
	owner := ownerFromCtx(c)

	id, err := parseID(c, "id")

	if err != nil {
		return s.respondError(c, err)
	}

	events, err := s.svc.Events(c.Context(), owner, id, defaultEventLimit)

	if err != nil {
		return s.respondError(c, err)
	}

	data := make([]DeploymentEventResponse, 0, len(events))

	for _, event := range events {
		data = append(data, DeploymentEventResponse{
			ID:        event.ID,
			EventType: event.EventType,
			Message:   event.Message,
			CreatedAt: event.CreatedAt,
		})
	}

	return c.JSON(ListResponse[DeploymentEventResponse]{Total: len(data), Data: data})
}
