// Package composer translates a ledger deployment into the concrete
// set of cluster objects that realize it: a secret, a workload
// controller, a service, and an ingress route.
package composer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	k8serrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/client-go/kubernetes"

	"github.com/KAMRON-DEVELOPER/cloud-compute/pkg/models"
)

const (
	containerName = "app"
	servicePort   = 80
)

type Composer struct {
	client      kubernetes.Interface
	log         *slog.Logger
	callTimeout time.Duration
}

func New(client kubernetes.Interface, log *slog.Logger) *Composer {
	return &Composer{
		client:      client,
		log:         log,
		callTimeout: defaultCallTimeout,
	}
}

// ComposeInput carries everything needed to materialize one
// deployment's cluster objects. Secrets arrive in plaintext here and
// exist only for the duration of the call.
type ComposeInput struct {
	Deployment *models.Deployment
	Port       int32
	Hostname   string
	EnvVars    map[string]string
	Secrets    map[string]string
}

// Compose creates the cluster objects for a deployment in order:
// secret, workload, service, ingress. The ledger row for the
// deployment is already committed by the time this runs. A failure
// partway leaves earlier objects in place; the caller surfaces the
// error and records it, cleanup is administrative.
func (c *Composer) Compose(ctx context.Context, in ComposeInput) error {
	d := in.Deployment
	name := d.ClusterResourceName
	namespace := d.ClusterNamespace
	labels := objectLabels(d)

	if len(in.Secrets) > 0 {
		secret := buildSecret(name, namespace, labels, in.Secrets)

		err := c.do(ctx, "create secret", func(ctx context.Context) error {
			_, err := c.client.CoreV1().Secrets(namespace).Create(ctx, secret, metav1.CreateOptions{})
			return err
		})

		if err != nil {
			return fmt.Errorf("create secret %s: %w", secret.Name, err)
		}
	}

	workload, err := c.buildWorkload(in, labels)

	if err != nil {
		return err
	}

	err = c.do(ctx, "create workload", func(ctx context.Context) error {
		_, err := c.client.AppsV1().Deployments(namespace).Create(ctx, workload, metav1.CreateOptions{})
		return err
	})

	if err != nil {
		return fmt.Errorf("create workload %s: %w", name, err)
	}

	service := buildService(name, namespace, labels, in.Port)

	err = c.do(ctx, "create service", func(ctx context.Context) error {
		_, err := c.client.CoreV1().Services(namespace).Create(ctx, service, metav1.CreateOptions{})
		return err
	})

	if err != nil {
		return fmt.Errorf("create service %s: %w", name, err)
	}

	ingress := buildIngress(name, namespace, labels, in.Hostname)

	err = c.do(ctx, "create ingress", func(ctx context.Context) error {
		_, err := c.client.NetworkingV1().Ingresses(namespace).Create(ctx, ingress, metav1.CreateOptions{})
		return err
	})

	if err != nil {
		return fmt.Errorf("create ingress %s: %w", name, err)
	}

	c.log.Info("composed cluster objects",
		"deployment", d.ID, "resource", name, "namespace", namespace)

	return nil
}

// ScaleWorkload issues a single replica patch against the workload
// controller. Networking objects are untouched.
func (c *Composer) ScaleWorkload(ctx context.Context, namespace, name string, replicas int32) error {
	patch := fmt.Sprintf(`{"spec":{"replicas":%d}}`, replicas)

	err := c.do(ctx, "scale workload", func(ctx context.Context) error {
		_, err := c.client.AppsV1().Deployments(namespace).Patch(
			ctx, name, types.StrategicMergePatchType, []byte(patch), metav1.PatchOptions{})
		return err
	})

	if err != nil {
		return fmt.Errorf("scale workload %s: %w", name, err)
	}

	return nil
}

// Teardown removes a deployment's cluster footprint in reverse
// composition order. Each delete is best-effort: a failure is logged
// and the remaining objects are still attempted, so a retry of the
// whole delete converges.
func (c *Composer) Teardown(ctx context.Context, namespace, name string) {
	deletes := []struct {
		kind string
		fn   func(ctx context.Context) error
	}{
		{"ingress", func(ctx context.Context) error {
			return c.client.NetworkingV1().Ingresses(namespace).Delete(ctx, name, metav1.DeleteOptions{})
		}},
		{"service", func(ctx context.Context) error {
			return c.client.CoreV1().Services(namespace).Delete(ctx, name, metav1.DeleteOptions{})
		}},
		{"workload", func(ctx context.Context) error {
			return c.client.AppsV1().Deployments(namespace).Delete(ctx, name, metav1.DeleteOptions{})
		}},
		{"secret", func(ctx context.Context) error {
			return c.client.CoreV1().Secrets(namespace).Delete(ctx, SecretObjectName(name), metav1.DeleteOptions{})
		}},
	}

	for _, del := range deletes {
		err := c.do(ctx, "delete "+del.kind, del.fn)

		if err != nil && !k8serrors.IsNotFound(err) {
			c.log.Warn("failed to delete cluster object",
				"kind", del.kind, "resource", name, "namespace", namespace, "error", err)
		}
	}
}

// ReadyReplicas reports the cluster-observed ready replica count for a
// workload.
func (c *Composer) ReadyReplicas(ctx context.Context, namespace, name string) (int32, error) {
	var ready int32

	err := c.do(ctx, "get workload", func(ctx context.Context) error {
		workload, err := c.client.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return err
		}
		ready = workload.Status.ReadyReplicas
		return nil
	})

	if err != nil {
		return 0, fmt.Errorf("get workload %s: %w", name, err)
	}

	return ready, nil
}

func objectLabels(d *models.Deployment) map[string]string {
	return map[string]string{
		"app":           d.ClusterResourceName,
		"deployment-id": d.ID.String(),
	}
}

func buildSecret(name, namespace string, labels map[string]string, secrets map[string]string) *corev1.Secret {
	data := make(map[string][]byte, len(secrets))
	for key, value := range secrets {
		data[key] = []byte(value)
	}

	return &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      SecretObjectName(name),
			Namespace: namespace,
			Labels:    labels,
		},
		Data: data,
	}
}

func (c *Composer) buildWorkload(in ComposeInput, labels map[string]string) (*appsv1.Deployment, error) {
	d := in.Deployment

	spec, err := d.ResourceSpec()

	if err != nil {
		return nil, fmt.Errorf("decode resource spec: %w", err)
	}

	nodeSelector, err := d.NodeSelectorMap()

	if err != nil {
		return nil, fmt.Errorf("decode node selector: %w", err)
	}

	replicas := d.Replicas

	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:      d.ClusterResourceName,
			Namespace: d.ClusterNamespace,
			Labels:    labels,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: &replicas,
			Selector: &metav1.LabelSelector{MatchLabels: labels},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec: corev1.PodSpec{
					NodeSelector: nodeSelector,
					Containers: []corev1.Container{
						{
							Name:  containerName,
							Image: d.Image,
							Ports: []corev1.ContainerPort{
								{ContainerPort: in.Port},
							},
							Env:       containerEnv(d.ClusterResourceName, in.EnvVars, in.Secrets),
							Resources: resourceRequirements(spec),
						},
					},
				},
			},
		},
	}, nil
}

// containerEnv builds the container environment: literal variables
// first, then variables sourced from the deployment's secret object.
// Secret values are never inlined. Keys are sorted so composition is
// deterministic.
func containerEnv(resourceName string, envVars, secrets map[string]string) []corev1.EnvVar {
	env := make([]corev1.EnvVar, 0, len(envVars)+len(secrets))

	for _, key := range sortedKeys(envVars) {
		env = append(env, corev1.EnvVar{Name: key, Value: envVars[key]})
	}

	secretName := SecretObjectName(resourceName)
	for _, key := range sortedKeys(secrets) {
		env = append(env, corev1.EnvVar{
			Name: key,
			ValueFrom: &corev1.EnvVarSource{
				SecretKeyRef: &corev1.SecretKeySelector{
					LocalObjectReference: corev1.LocalObjectReference{Name: secretName},
					Key:                  key,
				},
			},
		})
	}

	return env
}

func resourceRequirements(spec models.ResourceSpec) corev1.ResourceRequirements {
	return corev1.ResourceRequirements{
		Requests: corev1.ResourceList{
			corev1.ResourceCPU:    resource.MustParse(fmt.Sprintf("%dm", spec.CPURequestMillicores)),
			corev1.ResourceMemory: resource.MustParse(fmt.Sprintf("%dMi", spec.MemoryRequestMB)),
		},
		Limits: corev1.ResourceList{
			corev1.ResourceCPU:    resource.MustParse(fmt.Sprintf("%dm", spec.CPULimitMillicores)),
			corev1.ResourceMemory: resource.MustParse(fmt.Sprintf("%dMi", spec.MemoryLimitMB)),
		},
	}
}

func buildService(name, namespace string, labels map[string]string, port int32) *corev1.Service {
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels:    labels,
		},
		Spec: corev1.ServiceSpec{
			Selector: labels,
			Ports: []corev1.ServicePort{
				{
					Port:       servicePort,
					TargetPort: intstr.FromInt32(port),
					Protocol:   corev1.ProtocolTCP,
				},
			},
		},
	}
}

func buildIngress(name, namespace string, labels map[string]string, hostname string) *networkingv1.Ingress {
	pathType := networkingv1.PathTypePrefix

	return &networkingv1.Ingress{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels:    labels,
			Annotations: map[string]string{
				"kubernetes.io/ingress.class":                      "traefik",
				"traefik.ingress.kubernetes.io/router.entrypoints": "websecure",
				"cert-manager.io/cluster-issuer":                   "letsencrypt-prod",
			},
		},
		Spec: networkingv1.IngressSpec{
			Rules: []networkingv1.IngressRule{
				{
					Host: hostname,
					IngressRuleValue: networkingv1.IngressRuleValue{
						HTTP: &networkingv1.HTTPIngressRuleValue{
							Paths: []networkingv1.HTTPIngressPath{
								{
									Path:     "/",
									PathType: &pathType,
									Backend: networkingv1.IngressBackend{
										Service: &networkingv1.IngressServiceBackend{
											Name: name,
											Port: networkingv1.ServiceBackendPort{Number: servicePort},
										},
									},
								},
							},
						},
					},
				},
			},
			TLS: []networkingv1.IngressTLS{
				{
					Hosts:      []string{hostname},
					SecretName: TLSSecretName(name),
				},
			},
		},
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
