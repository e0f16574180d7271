package cluster

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"

	"github.com/catherinevee/stateops/internal/logger"
)

// HealthChecker runs read-only troubleshooting checks against the cluster an
// environment deploys into. Strictly outside the state write path: it never
// creates, mutates, or deletes cluster objects.
type HealthChecker struct {
	client kubernetes.Interface
	log    logger.Logger
}

// CheckResult is one health check outcome
type CheckResult struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail"`
}

// NewHealthChecker creates a health checker from in-cluster config or the
// local kubeconfig
func NewHealthChecker() (*HealthChecker, error) {
	cfg, err := getKubeConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubernetes config: %w", err)
	}
	client, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}
	return &HealthChecker{client: client, log: logger.Get()}, nil
}

// NewHealthCheckerWithClient creates a health checker around an existing client
func NewHealthCheckerWithClient(client kubernetes.Interface) *HealthChecker {
	return &HealthChecker{client: client, log: logger.Get()}
}

func getKubeConfig() (*rest.Config, error) {
	if cfg, err := rest.InClusterConfig(); err == nil {
		return cfg, nil
	}

	kubeconfig := os.Getenv("KUBECONFIG")
	if kubeconfig == "" {
		if home := homedir.HomeDir(); home != "" {
			kubeconfig = filepath.Join(home, ".kube", "config")
		}
	}
	return clientcmd.BuildConfigFromFlags("", kubeconfig)
}

// Check runs all read-only checks. Namespace scopes the pod check; empty
// means all namespaces.
func (h *HealthChecker) Check(ctx context.Context, namespace string) ([]CheckResult, error) {
	results := []CheckResult{
		h.checkNodes(ctx),
		h.checkPods(ctx, namespace),
	}
	return results, nil
}

func (h *HealthChecker) checkNodes(ctx context.Context) CheckResult {
	result := CheckResult{Name: "nodes-ready"}

	nodes, err := h.client.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		result.Detail = fmt.Sprintf("failed to list nodes: %v", err)
		return result
	}

	notReady := 0
	for _, node := range nodes.Items {
		ready := false
		for _, cond := range node.Status.Conditions {
			if cond.Type == corev1.NodeReady && cond.Status == corev1.ConditionTrue {
				ready = true
				break
			}
		}
		if !ready {
			notReady++
		}
	}

	result.Healthy = notReady == 0 && len(nodes.Items) > 0
	result.Detail = fmt.Sprintf("%d/%d nodes ready", len(nodes.Items)-notReady, len(nodes.Items))
	return result
}

func (h *HealthChecker) checkPods(ctx context.Context, namespace string) CheckResult {
	result := CheckResult{Name: "pods-running"}

	pods, err := h.client.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		result.Detail = fmt.Sprintf("failed to list pods: %v", err)
		return result
	}

	failing := 0
	for _, pod := range pods.Items {
		switch pod.Status.Phase {
		case corev1.PodRunning, corev1.PodSucceeded:
		default:
			failing++
		}
	}

	result.Healthy = failing == 0
	result.Detail = fmt.Sprintf("%d/%d pods running or completed", len(pods.Items)-failing, len(pods.Items))
	return result
}
