package models

import (
	"time"

	"github.com/google/uuid"
)

// DeploymentSecret holds one encrypted key/value pair. The value is
// ciphertext at rest and is never serialized back to callers.
type DeploymentSecret struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	DeploymentID   uuid.UUID `gorm:"type:uuid;not null;index" json:"deployment_id"`
	Key            string    `gorm:"type:varchar(255);not null" json:"key"`
	EncryptedValue []byte    `gorm:"type:bytea;not null" json:"-"`
	CreatedAt      time.Time `json:"created_at"`

	Deployment *Deployment `gorm:"foreignKey:DeploymentID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (DeploymentSecret) TableName() string {
	return "deployment_secrets"
}
