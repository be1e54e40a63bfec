package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/KAMRON-DEVELOPER/cloud-compute/pkg/apperrors"
	"github.com/KAMRON-DEVELOPER/cloud-compute/pkg/models"
)

type DeploymentRepo struct {
	db *gorm.DB
}

func NewDeploymentRepo(db *gorm.DB) *DeploymentRepo {
	return &DeploymentRepo{db: db}
}

// CreateWithSecrets inserts the deployment row and its encrypted
// secrets in a single transaction. The commit here strictly precedes
// any cluster call made for this deployment.
func (r *DeploymentRepo) CreateWithSecrets(ctx context.Context, deployment *models.Deployment, secrets []models.DeploymentSecret) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(deployment).Error; err != nil {
			return err
		}

		for i := range secrets {
			secrets[i].DeploymentID = deployment.ID

			if err := tx.Create(&secrets[i]).Error; err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		return apperrors.Ledger("failed to create deployment", err)
	}

	return nil
}

func (r *DeploymentRepo) GetByID(ctx context.Context, id, owner uuid.UUID) (*models.Deployment, error) {
	var deployment models.Deployment

	err := r.db.
		WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, owner).
		First(&deployment).
		Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("deployment %s not found", id)
	}

	if err != nil {
		return nil, apperrors.Ledger("failed to fetch deployment", err)
	}

	return &deployment, nil
}

func (r *DeploymentRepo) ListByProject(ctx context.Context, projectID, owner uuid.UUID) ([]models.Deployment, error) {
	var deployments []models.Deployment

	err := r.db.
		WithContext(ctx).
		Where("project_id = ? AND owner_id = ?", projectID, owner).
		Order("created_at DESC").
		Find(&deployments).
		Error

	if err != nil {
		return nil, apperrors.Ledger("failed to list deployments", err)
	}

	return deployments, nil
}

func (r *DeploymentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.DeploymentStatus) error {
	err := r.db.
		WithContext(ctx).
		Model(&models.Deployment{}).
		Where("id = ?", id).
		Update("status", status).
		Error

	if err != nil {
		return apperrors.Ledger("failed to update deployment status", err)
	}

	return nil
}

// UpdateReplicas sets the desired replica count and returns the
// updated row. Ownership is enforced by the row predicate, so a
// foreign deployment is indistinguishable from a missing one.
func (r *DeploymentRepo) UpdateReplicas(ctx context.Context, id, owner uuid.UUID, replicas int32) (*models.Deployment, error) {
	result := r.db.
		WithContext(ctx).
		Model(&models.Deployment{}).
		Where("id = ? AND owner_id = ?", id, owner).
		Update("replicas", replicas)

	if result.Error != nil {
		return nil, apperrors.Ledger("failed to update replicas", result.Error)
	}

	if result.RowsAffected == 0 {
		return nil, apperrors.NotFound("deployment %s not found", id)
	}

	return r.GetByID(ctx, id, owner)
}

// Delete removes the deployment row; secrets and events go with it via
// the cascade constraints.
func (r *DeploymentRepo) Delete(ctx context.Context, id, owner uuid.UUID) error {
	result := r.db.
		WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, owner).
		Delete(&models.Deployment{})

	if result.Error != nil {
		return apperrors.Ledger("failed to delete deployment", result.Error)
	}

	if result.RowsAffected == 0 {
		return apperrors.NotFound("deployment %s not found", id)
	}

	return nil
}
