package streamer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

// fakeConn records written messages and blocks reads until closed,
// mirroring how a real websocket read behaves for an idle client.
type fakeConn struct {
	mu     sync.Mutex
	writes []any

	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{closed: make(chan struct{})}
}

func (c *fakeConn) WriteJSON(v any) error {
	select {
	case <-c.closed:
		return errors.New("connection closed")
	default:
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, v)
	return nil
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	<-c.closed
	return 0, nil, errors.New("connection closed")
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) snapshot() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]any(nil), c.writes...)
}

func (c *fakeConn) waitForWrites(t *testing.T, n int) []any {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		writes := c.snapshot()
		if len(writes) >= n {
			return writes
		}

		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %d writes, got %d", n, len(c.snapshot()))
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func testClient() *fake.Clientset {
	workload := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: "proj-web", Namespace: "default"},
		Status: appsv1.DeploymentStatus{
			Replicas:          2,
			ReadyReplicas:     1,
			AvailableReplicas: 1,
			Conditions: []appsv1.DeploymentCondition{
				{Type: appsv1.DeploymentAvailable, Status: corev1.ConditionTrue, Reason: "MinimumReplicasAvailable"},
			},
		},
	}

	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "proj-web-abc123",
			Namespace: "default",
			Labels:    map[string]string{"app": "proj-web"},
		},
		Status: corev1.PodStatus{
			Phase:  corev1.PodRunning,
			HostIP: "10.0.0.1",
			ContainerStatuses: []corev1.ContainerStatus{
				{Ready: true, RestartCount: 3},
			},
		},
	}

	return fake.NewSimpleClientset(workload, pod)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunSendsStatusThenPodStatus(t *testing.T) {
	conn := newFakeConn()
	s := New(testClient(), 10*time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, conn, "default", "proj-web")
		close(done)
	}()

	writes := conn.waitForWrites(t, 2)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	status, ok := writes[0].(StatusMessage)
	if !ok {
		t.Fatalf("writes[0] = %T, want StatusMessage", writes[0])
	}
	if status.Type != MessageTypeStatus {
		t.Errorf("status type = %q", status.Type)
	}
	if status.Replicas != 2 || status.ReadyReplicas != 1 {
		t.Errorf("status = %+v", status)
	}
	if len(status.Conditions) != 1 || status.Conditions[0].ConditionType != "Available" {
		t.Errorf("conditions = %+v", status.Conditions)
	}

	pods, ok := writes[1].(PodStatusMessage)
	if !ok {
		t.Fatalf("writes[1] = %T, want PodStatusMessage", writes[1])
	}
	if pods.Type != MessageTypePodStatus {
		t.Errorf("pod status type = %q", pods.Type)
	}
	if len(pods.Pods) != 1 {
		t.Fatalf("pods = %+v", pods.Pods)
	}
	if p := pods.Pods[0]; p.Name != "proj-web-abc123" || !p.Ready || p.Restarts != 3 || p.Node != "10.0.0.1" {
		t.Errorf("pod info = %+v", p)
	}
}

func TestPodWithNoContainerStatusesIsReady(t *testing.T) {
	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "proj-web-pending",
			Namespace: "default",
			Labels:    map[string]string{"app": "proj-web"},
		},
		Status: corev1.PodStatus{Phase: corev1.PodPending},
	}

	s := New(fake.NewSimpleClientset(pod), time.Second, discardLogger())

	msg, err := s.podStatus(context.Background(), "default", "proj-web")
	if err != nil {
		t.Fatalf("podStatus: %v", err)
	}

	if len(msg.Pods) != 1 {
		t.Fatalf("pods = %+v", msg.Pods)
	}
	if !msg.Pods[0].Ready {
		t.Error("pod without container statuses should report ready")
	}
}

func TestRunReportsMissingWorkloadAsError(t *testing.T) {
	conn := newFakeConn()
	s := New(fake.NewSimpleClientset(), 10*time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.Run(ctx, conn, "default", "gone")
		close(done)
	}()

	writes := conn.waitForWrites(t, 1)
	cancel()
	<-done

	errMsg, ok := writes[0].(ErrorMessage)
	if !ok {
		t.Fatalf("writes[0] = %T, want ErrorMessage", writes[0])
	}
	if errMsg.Type != MessageTypeError {
		t.Errorf("error type = %q", errMsg.Type)
	}
}

func TestRunStopsWhenClientDisconnects(t *testing.T) {
	conn := newFakeConn()
	s := New(testClient(), 10*time.Millisecond, discardLogger())

	done := make(chan struct{})
	go func() {
		s.Run(context.Background(), conn, "default", "proj-web")
		close(done)
	}()

	conn.waitForWrites(t, 2)
	conn.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the client disconnected")
	}
}

func TestNewDefaultsInterval(t *testing.T) {
	s := New(fake.NewSimpleClientset(), 0, discardLogger())

	if s.interval != DefaultInterval {
		t.Errorf("interval = %v, want %v", s.interval, DefaultInterval)
	}
}
