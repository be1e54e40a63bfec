// Package streamer pushes live cluster status for one deployment over
// a websocket connection until the client goes away.
package streamer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

const DefaultInterval = 5 * time.Second

// Conn is the slice of the websocket connection the streamer needs;
// *websocket.Conn satisfies it.
type Conn interface {
	WriteJSON(v any) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

type Streamer struct {
	client   kubernetes.Interface
	interval time.Duration
	log      *slog.Logger
}

func New(client kubernetes.Interface, interval time.Duration, log *slog.Logger) *Streamer {
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Streamer{client: client, interval: interval, log: log}
}

// Run services one connection with two units racing on a shared
// cancellation: a poller that pushes Status then PodStatus every tick,
// and a listener that drains inbound frames (reserved for future
// client commands). Whichever unit stops first cancels the context;
// closing the connection unblocks the other, so both stop within one
// interval of a disconnect.
func (s *Streamer) Run(ctx context.Context, conn Conn, namespace, resourceName string) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		defer cancel()
		s.poll(ctx, conn, namespace, resourceName)
	}()

	go func() {
		defer wg.Done()
		defer cancel()
		listen(conn)
	}()

	wg.Wait()
}

func (s *Streamer) poll(ctx context.Context, conn Conn, namespace, resourceName string) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if !s.tick(ctx, conn, namespace, resourceName) {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// tick sends one Status message followed by one PodStatus message.
// Query errors become Error messages; only a failed send, meaning a
// gone client, stops the poller.
func (s *Streamer) tick(ctx context.Context, conn Conn, namespace, resourceName string) bool {
	status, err := s.workloadStatus(ctx, namespace, resourceName)

	if err != nil {
		if !s.sendError(conn, fmt.Sprintf("failed to get status: %v", err)) {
			return false
		}
	} else if err := conn.WriteJSON(status); err != nil {
		return false
	}

	pods, err := s.podStatus(ctx, namespace, resourceName)

	if err != nil {
		if !s.sendError(conn, fmt.Sprintf("failed to get pods: %v", err)) {
			return false
		}
	} else if err := conn.WriteJSON(pods); err != nil {
		return false
	}

	return true
}

func (s *Streamer) sendError(conn Conn, message string) bool {
	return conn.WriteJSON(ErrorMessage{Type: MessageTypeError, Message: message}) == nil
}

// listen drains inbound frames until the connection errors out, which
// also covers the poller closing it on cancellation.
func listen(conn Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Streamer) workloadStatus(ctx context.Context, namespace, resourceName string) (StatusMessage, error) {
	workload, err := s.client.AppsV1().Deployments(namespace).Get(ctx, resourceName, metav1.GetOptions{})

	if err != nil {
		return StatusMessage{}, err
	}

	conditions := make([]Condition, 0, len(workload.Status.Conditions))
	for _, c := range workload.Status.Conditions {
		conditions = append(conditions, Condition{
			ConditionType: string(c.Type),
			Status:        string(c.Status),
			Reason:        c.Reason,
			Message:       c.Message,
		})
	}

	return StatusMessage{
		Type:              MessageTypeStatus,
		Replicas:          workload.Status.Replicas,
		ReadyReplicas:     workload.Status.ReadyReplicas,
		AvailableReplicas: workload.Status.AvailableReplicas,
		Conditions:        conditions,
	}, nil
}

func (s *Streamer) podStatus(ctx context.Context, namespace, resourceName string) (PodStatusMessage, error) {
	pods, err := s.client.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: "app=" + resourceName,
	})

	if err != nil {
		return PodStatusMessage{}, err
	}

	infos := make([]PodInfo, 0, len(pods.Items))

	for _, pod := range pods.Items {
		// Vacuously ready when no container has reported yet.
		ready := true
		var restarts int32

		for _, cs := range pod.Status.ContainerStatuses {
			if !cs.Ready {
				ready = false
			}
			restarts += cs.RestartCount
		}

		infos = append(infos, PodInfo{
			Name:     pod.Name,
			Phase:    string(pod.Status.Phase),
			Ready:    ready,
			Restarts: restarts,
			Node:     pod.Status.HostIP,
		})
	}

	return PodStatusMessage{Type: MessageTypePodStatus, Pods: infos}, nil
}
