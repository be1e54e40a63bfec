package database

import (
	"gorm.io/gorm"
)

// RunMigrations applies the raw SQL that gorm's auto migration cannot
// express: the deployment status value constraint.
func RunMigrations(db *gorm.DB) error {
	return createStatusConstraint(db)
}

func createStatusConstraint(db *gorm.DB) error {
	constraintSQL := `
ALTER TABLE deployments
    DROP CONSTRAINT IF EXISTS deployments_status_check;
ALTER TABLE deployments
    ADD CONSTRAINT deployments_status_check
    CHECK (status IN ('pending', 'running', 'succeeded', 'failed', 'terminated'));
`

	return db.Exec(constraintSQL).Error
}
