package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DeploymentStatus values match the ledger CHECK constraint. A
// deployment only moves forward through these states; the row is
// removed entirely on delete.
type DeploymentStatus string

const (
	StatusPending    DeploymentStatus = "pending"
	StatusRunning    DeploymentStatus = "running"
	StatusSucceeded  DeploymentStatus = "succeeded"
	StatusFailed     DeploymentStatus = "failed"
	StatusTerminated DeploymentStatus = "terminated"
)

// ResourceSpec describes per-container compute in millicores and
// megabytes; the composer translates it into cluster quantities.
type ResourceSpec struct {
	CPURequestMillicores int `json:"cpuRequestMillicores" validate:"min=0"`
	CPULimitMillicores   int `json:"cpuLimitMillicores" validate:"min=0"`
	MemoryRequestMB      int `json:"memoryRequestMb" validate:"min=0"`
	MemoryLimitMB        int `json:"memoryLimitMb" validate:"min=0"`
}

// DefaultResourceSpec applies when a create request omits resources.
func DefaultResourceSpec() ResourceSpec {
	return ResourceSpec{
		CPURequestMillicores: 100,
		CPULimitMillicores:   500,
		MemoryRequestMB:      128,
		MemoryLimitMB:        512,
	}
}

type Deployment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID   uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`

	Name     string `gorm:"type:varchar(255);not null" json:"name"`
	Image    string `gorm:"type:varchar(512);not null" json:"image"`
	Replicas int32  `gorm:"not null;default:1" json:"replicas"`

	Resources    json.RawMessage `gorm:"type:jsonb;not null" json:"resources"`
	EnvVars      json.RawMessage `gorm:"type:jsonb;not null" json:"env_vars"`
	Labels       json.RawMessage `gorm:"type:jsonb" json:"labels,omitempty"`
	NodeSelector json.RawMessage `gorm:"type:jsonb" json:"node_selector,omitempty"`

	Status DeploymentStatus `gorm:"type:varchar(20);not null;default:pending" json:"status"`

	ClusterNamespace    string  `gorm:"type:varchar(255);not null" json:"cluster_namespace"`
	ClusterResourceName string  `gorm:"type:varchar(255);not null" json:"cluster_resource_name"`
	ExternalURL         *string `gorm:"type:varchar(512)" json:"external_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Deployment) TableName() string {
	return "deployments"
}

// ResourceSpec decodes the jsonb resources column.
func (d *Deployment) ResourceSpec() (ResourceSpec, error) {
	var spec ResourceSpec
	err := json.Unmarshal(d.Resources, &spec)
	return spec, err
}

// EnvVarMap decodes the jsonb env_vars column.
func (d *Deployment) EnvVarMap() (map[string]string, error) {
	env := map[string]string{}
	if len(d.EnvVars) == 0 {
		return env, nil
	}
	err := json.Unmarshal(d.EnvVars, &env)
	return env, err
}

// NodeSelectorMap decodes the optional node_selector column.
func (d *Deployment) NodeSelectorMap() (map[string]string, error) {
	if len(d.NodeSelector) == 0 {
		return nil, nil
	}
	selector := map[string]string{}
	err := json.Unmarshal(d.NodeSelector, &selector)
	return selector, err
}
