package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/KAMRON-DEVELOPER/cloud-compute/pkg/apperrors"
	"github.com/KAMRON-DEVELOPER/cloud-compute/pkg/models"
)

type SecretRepo struct {
	db *gorm.DB
}

func NewSecretRepo(db *gorm.DB) *SecretRepo {
	return &SecretRepo{db: db}
}

// ListKeys returns the secret key names for a deployment. Values never
// leave the database through this repository; decryption happens only
// when a value is injected into a cluster secret object.
func (r *SecretRepo) ListKeys(ctx context.Context, deploymentID uuid.UUID) ([]string, error) {
	var keys []string

	err := r.db.
		WithContext(ctx).
		Model(&models.DeploymentSecret{}).
		Where("deployment_id = ?", deploymentID).
		Order("key ASC").
		Pluck("key", &keys).
		Error

	if err != nil {
		return nil, apperrors.Ledger("failed to list secret keys", err)
	}

	return keys, nil
}
