package orchestrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"github.com/KAMRON-DEVELOPER/cloud-compute/pkg/apperrors"
	"github.com/KAMRON-DEVELOPER/cloud-compute/pkg/composer"
	"github.com/KAMRON-DEVELOPER/cloud-compute/pkg/models"
)

var (
	testOwner   = uuid.MustParse("f47ac10b-58cc-4372-a567-0e02b2c3d479")
	testProject = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
)

// calls is shared between the stubs so tests can assert the order of
// ledger and cluster operations.
type calls struct {
	seq []string
}

func (c *calls) record(name string) {
	c.seq = append(c.seq, name)
}

type stubDeployments struct {
	calls *calls

	row     *models.Deployment
	secrets []models.DeploymentSecret

	statuses []models.DeploymentStatus
	deleted  bool
}

func (s *stubDeployments) CreateWithSecrets(_ context.Context, d *models.Deployment, secrets []models.DeploymentSecret) error {
	s.calls.record("ledger-create")
	s.row = d
	s.secrets = secrets
	return nil
}

func (s *stubDeployments) GetByID(_ context.Context, id, owner uuid.UUID) (*models.Deployment, error) {
	if s.row == nil || id != s.row.ID || owner != s.row.OwnerID {
		return nil, apperrors.NotFound("deployment %s not found", id)
	}
	return s.row, nil
}

func (s *stubDeployments) ListByProject(_ context.Context, projectID, owner uuid.UUID) ([]models.Deployment, error) {
	if s.row == nil || projectID != s.row.ProjectID || owner != s.row.OwnerID {
		return nil, nil
	}
	return []models.Deployment{*s.row}, nil
}

func (s *stubDeployments) UpdateStatus(_ context.Context, _ uuid.UUID, status models.DeploymentStatus) error {
	s.statuses = append(s.statuses, status)
	if s.row != nil {
		s.row.Status = status
	}
	return nil
}

func (s *stubDeployments) UpdateReplicas(_ context.Context, id, owner uuid.UUID, replicas int32) (*models.Deployment, error) {
	if s.row == nil || id != s.row.ID || owner != s.row.OwnerID {
		return nil, apperrors.NotFound("deployment %s not found", id)
	}
	s.calls.record("ledger-scale")
	s.row.Replicas = replicas
	return s.row, nil
}

func (s *stubDeployments) Delete(_ context.Context, id, owner uuid.UUID) error {
	if s.row == nil || id != s.row.ID || owner != s.row.OwnerID {
		return apperrors.NotFound("deployment %s not found", id)
	}
	s.calls.record("ledger-delete")
	s.deleted = true
	return nil
}

type stubProjects struct {
	id    uuid.UUID
	owner uuid.UUID
}

func (s *stubProjects) GetByID(_ context.Context, id, owner uuid.UUID) (*models.Project, error) {
	if id != s.id || owner != s.owner {
		return nil, apperrors.NotFound("project %s not found", id)
	}
	return &models.Project{ID: id, OwnerID: owner, Name: "demo"}, nil
}

type stubSecrets struct {
	keys []string
}

func (s *stubSecrets) ListKeys(context.Context, uuid.UUID) ([]string, error) {
	return s.keys, nil
}

type event struct {
	eventType string
	message   string
}

type stubEvents struct {
	appended []event
}

func (s *stubEvents) Append(_ context.Context, _ uuid.UUID, eventType string, message *string) error {
	e := event{eventType: eventType}
	if message != nil {
		e.message = *message
	}
	s.appended = append(s.appended, e)
	return nil
}

func (s *stubEvents) ListRecent(context.Context, uuid.UUID, int) ([]models.DeploymentEvent, error) {
	return nil, nil
}

type stubComposer struct {
	calls *calls

	composeErr error
	scaleErr   error

	composed      *composer.ComposeInput
	scaledTo      int32
	tornDown      bool
	readyReplicas int32
	readyErr      error
}

func (s *stubComposer) Compose(_ context.Context, in composer.ComposeInput) error {
	s.calls.record("compose")
	if s.composeErr != nil {
		return s.composeErr
	}
	s.composed = &in
	return nil
}

func (s *stubComposer) ScaleWorkload(_ context.Context, _, _ string, replicas int32) error {
	s.calls.record("cluster-scale")
	if s.scaleErr != nil {
		return s.scaleErr
	}
	s.scaledTo = replicas
	return nil
}

func (s *stubComposer) Teardown(context.Context, string, string) {
	s.calls.record("teardown")
	s.tornDown = true
}

func (s *stubComposer) ReadyReplicas(context.Context, string, string) (int32, error) {
	return s.readyReplicas, s.readyErr
}

type stubSealer struct{}

func (stubSealer) Encrypt(plaintext []byte) ([]byte, error) {
	return append([]byte("sealed:"), plaintext...), nil
}

type fixture struct {
	orch        *Orchestrator
	deployments *stubDeployments
	events      *stubEvents
	cluster     *stubComposer
	secrets     *stubSecrets
	calls       *calls
}

func newFixture() *fixture {
	shared := &calls{}
	deployments := &stubDeployments{calls: shared}
	events := &stubEvents{}
	cluster := &stubComposer{calls: shared}
	secrets := &stubSecrets{}
	projects := &stubProjects{id: testProject, owner: testOwner}

	orch := New(
		deployments, projects, secrets, events, cluster, stubSealer{},
		"default", "apps.localhost",
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	return &fixture{
		orch:        orch,
		deployments: deployments,
		events:      events,
		cluster:     cluster,
		secrets:     secrets,
		calls:       shared,
	}
}

func createInput() CreateInput {
	return CreateInput{
		Name:     "web",
		Image:    "nginx:1.27",
		Replicas: 2,
		Port:     8080,
		EnvVars:  map[string]string{"MODE": "production"},
		Secrets:  map[string]string{"DB_PASSWORD": "hunter2"},
	}
}

func TestCreateCommitsLedgerBeforeCluster(t *testing.T) {
	f := newFixture()

	deployment, err := f.orch.Create(context.Background(), testOwner, testProject, createInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	wantSeq := []string{"ledger-create", "compose"}
	if len(f.calls.seq) != 2 || f.calls.seq[0] != wantSeq[0] || f.calls.seq[1] != wantSeq[1] {
		t.Errorf("call order = %v, want %v", f.calls.seq, wantSeq)
	}

	if deployment.Status != models.StatusRunning {
		t.Errorf("status = %q, want running", deployment.Status)
	}

	if deployment.ExternalURL == nil || *deployment.ExternalURL != "web-f47ac10b.apps.localhost" {
		t.Errorf("external URL = %v", deployment.ExternalURL)
	}

	if f.cluster.composed == nil || f.cluster.composed.Hostname != *deployment.ExternalURL {
		t.Errorf("compose hostname should match external URL")
	}

	if len(f.events.appended) != 1 || f.events.appended[0].eventType != models.EventDeploymentCreated {
		t.Errorf("events = %+v, want one deployment_created", f.events.appended)
	}
}

func TestCreateStoresSealedSecrets(t *testing.T) {
	f := newFixture()

	_, err := f.orch.Create(context.Background(), testOwner, testProject, createInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if len(f.deployments.secrets) != 1 {
		t.Fatalf("secret rows = %d, want 1", len(f.deployments.secrets))
	}

	row := f.deployments.secrets[0]
	if row.Key != "DB_PASSWORD" {
		t.Errorf("secret key = %q", row.Key)
	}
	if string(row.EncryptedValue) == "hunter2" {
		t.Error("secret value stored in plaintext")
	}
}

func TestCreateHonorsCustomSubdomain(t *testing.T) {
	f := newFixture()

	in := createInput()
	in.Subdomain = "shop"

	deployment, err := f.orch.Create(context.Background(), testOwner, testProject, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if deployment.ExternalURL == nil || *deployment.ExternalURL != "shop.apps.localhost" {
		t.Errorf("external URL = %v, want shop.apps.localhost", deployment.ExternalURL)
	}
}

func TestCreateComposeFailureLeavesRowPending(t *testing.T) {
	f := newFixture()
	f.cluster.composeErr = errors.New("apiserver unreachable")

	_, err := f.orch.Create(context.Background(), testOwner, testProject, createInput())
	if err == nil {
		t.Fatal("expected error")
	}
	if apperrors.KindOf(err) != apperrors.KindClusterAPI {
		t.Errorf("error kind = %q, want %q", apperrors.KindOf(err), apperrors.KindClusterAPI)
	}

	if f.deployments.row == nil {
		t.Fatal("ledger row should have been committed before composition")
	}
	if len(f.deployments.statuses) != 0 {
		t.Errorf("status updates = %v, row should stay pending", f.deployments.statuses)
	}

	if len(f.events.appended) != 1 || f.events.appended[0].eventType != models.EventDeploymentFailed {
		t.Errorf("events = %+v, want one deployment_failed", f.events.appended)
	}
}

func TestCreateRejectsForeignProject(t *testing.T) {
	f := newFixture()

	stranger := uuid.New()
	_, err := f.orch.Create(context.Background(), stranger, testProject, createInput())

	if apperrors.KindOf(err) != apperrors.KindNotFound {
		t.Errorf("error kind = %q, want %q", apperrors.KindOf(err), apperrors.KindNotFound)
	}
}

func TestScaleUpdatesLedgerThenCluster(t *testing.T) {
	f := newFixture()

	deployment, err := f.orch.Create(context.Background(), testOwner, testProject, createInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	f.calls.seq = nil
	f.events.appended = nil

	scaled, err := f.orch.Scale(context.Background(), testOwner, deployment.ID, 5)
	if err != nil {
		t.Fatalf("Scale: %v", err)
	}

	if scaled.Replicas != 5 {
		t.Errorf("ledger replicas = %d, want 5", scaled.Replicas)
	}
	if f.cluster.scaledTo != 5 {
		t.Errorf("cluster replicas = %d, want 5", f.cluster.scaledTo)
	}

	wantSeq := []string{"ledger-scale", "cluster-scale"}
	if len(f.calls.seq) != 2 || f.calls.seq[0] != wantSeq[0] || f.calls.seq[1] != wantSeq[1] {
		t.Errorf("call order = %v, want %v", f.calls.seq, wantSeq)
	}

	if len(f.events.appended) != 1 || f.events.appended[0].eventType != models.EventDeploymentScaled {
		t.Errorf("events = %+v, want one deployment_scaled", f.events.appended)
	}
	if got := f.events.appended[0].message; got != "Scaled to 5 replicas" {
		t.Errorf("event message = %q", got)
	}
}

func TestScaleClusterFailureKeepsLedgerIntent(t *testing.T) {
	f := newFixture()

	deployment, err := f.orch.Create(context.Background(), testOwner, testProject, createInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	f.events.appended = nil
	f.cluster.scaleErr = errors.New("patch timed out")

	_, err = f.orch.Scale(context.Background(), testOwner, deployment.ID, 5)
	if apperrors.KindOf(err) != apperrors.KindClusterAPI {
		t.Errorf("error kind = %q, want %q", apperrors.KindOf(err), apperrors.KindClusterAPI)
	}

	// The ledger keeps the desired count; a later retry converges the
	// cluster onto it.
	if f.deployments.row.Replicas != 5 {
		t.Errorf("ledger replicas = %d, want 5", f.deployments.row.Replicas)
	}

	if len(f.events.appended) != 1 || f.events.appended[0].eventType != models.EventDeploymentFailed {
		t.Errorf("events = %+v, want one deployment_failed", f.events.appended)
	}
}

func TestScaleForeignDeploymentIsNotFound(t *testing.T) {
	f := newFixture()

	deployment, err := f.orch.Create(context.Background(), testOwner, testProject, createInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = f.orch.Scale(context.Background(), uuid.New(), deployment.ID, 5)
	if apperrors.KindOf(err) != apperrors.KindNotFound {
		t.Errorf("error kind = %q, want %q", apperrors.KindOf(err), apperrors.KindNotFound)
	}
}

func TestDeleteTearsDownClusterBeforeLedger(t *testing.T) {
	f := newFixture()

	deployment, err := f.orch.Create(context.Background(), testOwner, testProject, createInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	f.calls.seq = nil

	if err := f.orch.Delete(context.Background(), testOwner, deployment.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	wantSeq := []string{"teardown", "ledger-delete"}
	if len(f.calls.seq) != 2 || f.calls.seq[0] != wantSeq[0] || f.calls.seq[1] != wantSeq[1] {
		t.Errorf("call order = %v, want %v", f.calls.seq, wantSeq)
	}

	if !f.deployments.deleted {
		t.Error("ledger row not deleted")
	}
}

func TestDeleteForeignDeploymentIsNotFound(t *testing.T) {
	f := newFixture()

	deployment, err := f.orch.Create(context.Background(), testOwner, testProject, createInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	err = f.orch.Delete(context.Background(), uuid.New(), deployment.ID)
	if apperrors.KindOf(err) != apperrors.KindNotFound {
		t.Errorf("error kind = %q, want %q", apperrors.KindOf(err), apperrors.KindNotFound)
	}
	if f.cluster.tornDown {
		t.Error("teardown ran for a deployment the caller does not own")
	}
}

func TestDetailIncludesSecretKeysAndReadyReplicas(t *testing.T) {
	f := newFixture()
	f.secrets.keys = []string{"API_KEY", "DB_PASSWORD"}
	f.cluster.readyReplicas = 2

	deployment, err := f.orch.Create(context.Background(), testOwner, testProject, createInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	detail, err := f.orch.Detail(context.Background(), testOwner, deployment.ID)
	if err != nil {
		t.Fatalf("Detail: %v", err)
	}

	if len(detail.SecretKeys) != 2 {
		t.Errorf("secret keys = %v", detail.SecretKeys)
	}
	if detail.ReadyReplicas == nil || *detail.ReadyReplicas != 2 {
		t.Errorf("ready replicas = %v, want 2", detail.ReadyReplicas)
	}
}

func TestDetailToleratesClusterOutage(t *testing.T) {
	f := newFixture()
	f.cluster.readyErr = errors.New("apiserver unreachable")

	deployment, err := f.orch.Create(context.Background(), testOwner, testProject, createInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	detail, err := f.orch.Detail(context.Background(), testOwner, deployment.ID)
	if err != nil {
		t.Fatalf("Detail: %v", err)
	}

	if detail.ReadyReplicas != nil {
		t.Errorf("ready replicas = %v, want nil when the cluster is unreachable", detail.ReadyReplicas)
	}
}
