// Package ledger is the relational source of truth for deployment
// ownership, configuration, secrets, and audit history. Every read and
// write that takes an owner id is scoped to it; a row owned by someone
// else reports not-found rather than forbidden.
package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/KAMRON-DEVELOPER/cloud-compute/pkg/apperrors"
	"github.com/KAMRON-DEVELOPER/cloud-compute/pkg/models"
)

type ProjectRepo struct {
	db *gorm.DB
}

func NewProjectRepo(db *gorm.DB) *ProjectRepo {
	return &ProjectRepo{db: db}
}

func (r *ProjectRepo) GetByID(ctx context.Context, id, owner uuid.UUID) (*models.Project, error) {
	var project models.Project

	err := r.db.
		WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, owner).
		First(&project).
		Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("project %s not found", id)
	}

	if err != nil {
		return nil, apperrors.Ledger("failed to fetch project", err)
	}

	return &project, nil
}
