// Package orchestrator sequences ledger and cluster operations for
// deployment create, scale, and delete.
//
// Ordering contract: the ledger row is committed strictly before any
// cluster object exists for it. Scale and delete update the two sides
// best-effort without cross-system transactions; concurrent operations
// on the same deployment serialize on the ledger row only, the last
// cluster call wins.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/KAMRON-DEVELOPER/cloud-compute/pkg/apperrors"
	"github.com/KAMRON-DEVELOPER/cloud-compute/pkg/composer"
	"github.com/KAMRON-DEVELOPER/cloud-compute/pkg/models"
)

type DeploymentStore interface {
	CreateWithSecrets(ctx context.Context, deployment *models.Deployment, secrets []models.DeploymentSecret) error
	GetByID(ctx context.Context, id, owner uuid.UUID) (*models.Deployment, error)
	ListByProject(ctx context.Context, projectID, owner uuid.UUID) ([]models.Deployment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.DeploymentStatus) error
	UpdateReplicas(ctx context.Context, id, owner uuid.UUID, replicas int32) (*models.Deployment, error)
	Delete(ctx context.Context, id, owner uuid.UUID) error
}

type ProjectStore interface {
	GetByID(ctx context.Context, id, owner uuid.UUID) (*models.Project, error)
}

type SecretStore interface {
	ListKeys(ctx context.Context, deploymentID uuid.UUID) ([]string, error)
}

type EventStore interface {
	Append(ctx context.Context, deploymentID uuid.UUID, eventType string, message *string) error
	ListRecent(ctx context.Context, deploymentID uuid.UUID, limit int) ([]models.DeploymentEvent, error)
}

type ClusterComposer interface {
	Compose(ctx context.Context, in composer.ComposeInput) error
	ScaleWorkload(ctx context.Context, namespace, name string, replicas int32) error
	Teardown(ctx context.Context, namespace, name string)
	ReadyReplicas(ctx context.Context, namespace, name string) (int32, error)
}

type SecretSealer interface {
	Encrypt(plaintext []byte) ([]byte, error)
}

type Orchestrator struct {
	deployments DeploymentStore
	projects    ProjectStore
	secrets     SecretStore
	events      EventStore
	cluster     ClusterComposer
	vault       SecretSealer

	namespace  string
	baseDomain string
	log        *slog.Logger
}

func New(
	deployments DeploymentStore,
	projects ProjectStore,
	secrets SecretStore,
	events EventStore,
	cluster ClusterComposer,
	vault SecretSealer,
	namespace, baseDomain string,
	log *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		deployments: deployments,
		projects:    projects,
		secrets:     secrets,
		events:      events,
		cluster:     cluster,
		vault:       vault,
		namespace:   namespace,
		baseDomain:  baseDomain,
		log:         log,
	}
}

type CreateInput struct {
	Name         string
	Image        string
	Replicas     int32
	Port         int32
	EnvVars      map[string]string
	Secrets      map[string]string
	Resources    *models.ResourceSpec
	Labels       map[string]string
	NodeSelector map[string]string
	Subdomain    string
}

// Create provisions a deployment: ledger transaction first (row plus
// encrypted secrets), then cluster composition, then status and audit
// updates. If composition fails the row stays pending and the error is
// recorded; no automatic rollback is attempted.
func (o *Orchestrator) Create(ctx context.Context, owner, projectID uuid.UUID, in CreateInput) (*models.Deployment, error) {
	if _, err := o.projects.GetByID(ctx, projectID, owner); err != nil {
		return nil, err
	}

	resourceName := composer.ResourceName(projectID, in.Name)

	subdomain := in.Subdomain
	if subdomain == "" {
		subdomain = composer.Subdomain(in.Name, owner)
	}
	externalURL := subdomain + "." + o.baseDomain

	spec := models.DefaultResourceSpec()
	if in.Resources != nil {
		spec = *in.Resources
	}

	deployment, err := o.buildRow(owner, projectID, resourceName, externalURL, spec, in)

	if err != nil {
		return nil, err
	}

	secrets, err := o.sealSecrets(deployment.ID, in.Secrets)

	if err != nil {
		return nil, err
	}

	// Ledger commit happens here; nothing exists in the cluster yet,
	// so a failure needs no compensation.
	if err := o.deployments.CreateWithSecrets(ctx, deployment, secrets); err != nil {
		return nil, err
	}

	err = o.cluster.Compose(ctx, composer.ComposeInput{
		Deployment: deployment,
		Port:       in.Port,
		Hostname:   externalURL,
		EnvVars:    in.EnvVars,
		Secrets:    in.Secrets,
	})

	if err != nil {
		o.appendEvent(ctx, deployment.ID, models.EventDeploymentFailed, err.Error())
		return nil, apperrors.ClusterAPI("failed to create cluster resources", err)
	}

	if err := o.deployments.UpdateStatus(ctx, deployment.ID, models.StatusRunning); err != nil {
		return nil, err
	}
	deployment.Status = models.StatusRunning

	o.appendEvent(ctx, deployment.ID, models.EventDeploymentCreated, "Deployment created successfully")

	o.log.Info("deployment created",
		"deployment", deployment.ID, "project", projectID, "resource", resourceName)

	return deployment, nil
}

// Scale updates the desired replica count in the ledger and patches
// the cluster workload. The two writes are not transactional with each
// other; if the patch fails, the ledger holds the desired state until
// a retry lands it.
func (o *Orchestrator) Scale(ctx context.Context, owner, id uuid.UUID, replicas int32) (*models.Deployment, error) {
	deployment, err := o.deployments.UpdateReplicas(ctx, id, owner, replicas)

	if err != nil {
		return nil, err
	}

	err = o.cluster.ScaleWorkload(ctx, deployment.ClusterNamespace, deployment.ClusterResourceName, replicas)

	if err != nil {
		o.appendEvent(ctx, id, models.EventDeploymentFailed, err.Error())
		return nil, apperrors.ClusterAPI("failed to scale cluster workload", err)
	}

	o.appendEvent(ctx, id, models.EventDeploymentScaled, fmt.Sprintf("Scaled to %d replicas", replicas))

	return deployment, nil
}

// Delete removes the cluster footprint best-effort, then the ledger
// row. Cluster objects go first so a mid-sequence failure leaves the
// ledger record available for inspection and retry.
func (o *Orchestrator) Delete(ctx context.Context, owner, id uuid.UUID) error {
	deployment, err := o.deployments.GetByID(ctx, id, owner)

	if err != nil {
		return err
	}

	o.cluster.Teardown(ctx, deployment.ClusterNamespace, deployment.ClusterResourceName)

	if err := o.deployments.Delete(ctx, id, owner); err != nil {
		return err
	}

	o.log.Info("deployment deleted", "deployment", id)

	return nil
}

type Detail struct {
	Deployment    *models.Deployment
	SecretKeys    []string
	ReadyReplicas *int32
}

// Detail returns the ledger view of a deployment plus its secret key
// names (never values) and, when the cluster answers, the observed
// ready replica count.
func (o *Orchestrator) Detail(ctx context.Context, owner, id uuid.UUID) (*Detail, error) {
	deployment, err := o.deployments.GetByID(ctx, id, owner)

	if err != nil {
		return nil, err
	}

	keys, err := o.secrets.ListKeys(ctx, id)

	if err != nil {
		return nil, err
	}

	detail := &Detail{Deployment: deployment, SecretKeys: keys}

	ready, err := o.cluster.ReadyReplicas(ctx, deployment.ClusterNamespace, deployment.ClusterResourceName)

	if err != nil {
		o.log.Debug("ready replicas unavailable", "deployment", id, "error", err)
	} else {
		detail.ReadyReplicas = &ready
	}

	return detail, nil
}

// Get returns the ledger row for an owned deployment.
func (o *Orchestrator) Get(ctx context.Context, owner, id uuid.UUID) (*models.Deployment, error) {
	return o.deployments.GetByID(ctx, id, owner)
}

func (o *Orchestrator) List(ctx context.Context, owner, projectID uuid.UUID) ([]models.Deployment, error) {
	return o.deployments.ListByProject(ctx, projectID, owner)
}

// Events lists recent audit events for an owned deployment.
func (o *Orchestrator) Events(ctx context.Context, owner, id uuid.UUID, limit int) ([]models.DeploymentEvent, error) {
	if _, err := o.deployments.GetByID(ctx, id, owner); err != nil {
		return nil, err
	}

	return o.events.ListRecent(ctx, id, limit)
}

func (o *Orchestrator) buildRow(owner, projectID uuid.UUID, resourceName, externalURL string, spec models.ResourceSpec, in CreateInput) (*models.Deployment, error) {
	envVars := in.EnvVars
	if envVars == nil {
		envVars = map[string]string{}
	}

	envJSON, err := json.Marshal(envVars)

	if err != nil {
		return nil, apperrors.Validation("invalid env vars: %v", err)
	}

	specJSON, err := json.Marshal(spec)

	if err != nil {
		return nil, apperrors.Validation("invalid resource spec: %v", err)
	}

	deployment := &models.Deployment{
		ID:                  uuid.New(),
		OwnerID:             owner,
		ProjectID:           projectID,
		Name:                in.Name,
		Image:               in.Image,
		Replicas:            in.Replicas,
		Resources:           specJSON,
		EnvVars:             envJSON,
		Status:              models.StatusPending,
		ClusterNamespace:    o.namespace,
		ClusterResourceName: resourceName,
		ExternalURL:         &externalURL,
	}

	if in.Labels != nil {
		deployment.Labels, err = json.Marshal(in.Labels)
		if err != nil {
			return nil, apperrors.Validation("invalid labels: %v", err)
		}
	}

	if in.NodeSelector != nil {
		deployment.NodeSelector, err = json.Marshal(in.NodeSelector)
		if err != nil {
			return nil, apperrors.Validation("invalid node selector: %v", err)
		}
	}

	return deployment, nil
}

// sealSecrets encrypts each plaintext secret value for storage. The
// plaintext map itself is only held for the duration of the create
// call.
func (o *Orchestrator) sealSecrets(deploymentID uuid.UUID, secrets map[string]string) ([]models.DeploymentSecret, error) {
	if len(secrets) == 0 {
		return nil, nil
	}

	rows := make([]models.DeploymentSecret, 0, len(secrets))

	for key, value := range secrets {
		encrypted, err := o.vault.Encrypt([]byte(value))

		if err != nil {
			return nil, err
		}

		rows = append(rows, models.DeploymentSecret{
			ID:             uuid.New(),
			DeploymentID:   deploymentID,
			Key:            key,
			EncryptedValue: encrypted,
		})
	}

	return rows, nil
}

func (o *Orchestrator) appendEvent(ctx context.Context, deploymentID uuid.UUID, eventType, message string) {
	if err := o.events.Append(ctx, deploymentID, eventType, &message); err != nil {
		o.log.Warn("failed to append event",
			"deployment", deploymentID, "type", eventType, "error", err)
	}
}
