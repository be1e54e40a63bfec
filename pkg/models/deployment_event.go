package models

import (
	"time"

	"github.com/google/uuid"
)

// Event types appended by the orchestrator.
const (
	EventDeploymentCreated = "deployment_created"
	EventDeploymentScaled  = "deployment_scaled"
	EventDeploymentFailed  = "deployment_failed"
)

// DeploymentEvent is an append-only audit record. Rows are only ever
// removed by cascade when the owning deployment is deleted.
type DeploymentEvent struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	DeploymentID uuid.UUID `gorm:"type:uuid;not null;index" json:"deployment_id"`
	EventType    string    `gorm:"type:varchar(100);not null" json:"event_type"`
	Message      *string   `gorm:"type:text" json:"message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`

	Deployment *Deployment `gorm:"foreignKey:DeploymentID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (DeploymentEvent) TableName() string {
	return "deployment_events"
}
