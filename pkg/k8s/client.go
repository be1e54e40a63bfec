package k8s

import (
	"fmt"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// BuildConfig creates a Kubernetes client configuration.
// If kubeconfig is provided, it uses that file.
// If kubeconfig is empty, it attempts to use in-cluster configuration.
func BuildConfig(kubeconfig string) (*rest.Config, error) {
	if kubeconfig != "" {
		config, err := clientcmd.BuildConfigFromFlags("", kubeconfig)
		if err != nil {
			return nil, fmt.Errorf("failed to build config from kubeconfig: %w", err)
		}
		return config, nil
	}

	config, err := rest.InClusterConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to build in-cluster config (not running in K8s or kubeconfig not provided): %w", err)
	}

	return config, nil
}

// NewClientset builds a typed clientset from kubeconfig or the
// in-cluster environment.
func NewClientset(kubeconfig string) (kubernetes.Interface, error) {
	config, err := BuildConfig(kubeconfig)

	if err != nil {
		return nil, err
	}

	client, err := kubernetes.NewForConfig(config)

	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	return client, nil
}
