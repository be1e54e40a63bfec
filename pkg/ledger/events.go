package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/KAMRON-DEVELOPER/cloud-compute/pkg/apperrors"
	"github.com/KAMRON-DEVELOPER/cloud-compute/pkg/models"
)

type EventRepo struct {
	db *gorm.DB
}

func NewEventRepo(db *gorm.DB) *EventRepo {
	return &EventRepo{db: db}
}

// Append records an audit event. Events are observational; they are
// never updated and only disappear by cascade with their deployment.
func (r *EventRepo) Append(ctx context.Context, deploymentID uuid.UUID, eventType string, message *string) error {
	event := models.DeploymentEvent{
		ID:           uuid.New(),
		DeploymentID: deploymentID,
		EventType:    eventType,
		Message:      message,
	}

	if err := r.db.WithContext(ctx).Create(&event).Error; err != nil {
		return apperrors.Ledger("failed to append event", err)
	}

	return nil
}

func (r *EventRepo) ListRecent(ctx context.Context, deploymentID uuid.UUID, limit int) ([]models.DeploymentEvent, error) {
	var events []models.DeploymentEvent

	err := r.db.
		WithContext(ctx).
		Where("deployment_id = ?", deploymentID).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).
		Error

	if err != nil {
		return nil, apperrors.Ledger("failed to list events", err)
	}

	return events, nil
}
