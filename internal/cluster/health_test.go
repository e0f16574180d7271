package cluster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
)

func node(name string, ready corev1.ConditionStatus) *corev1.Node {
	return &corev1.Node{
		ObjectMeta: metav1.ObjectMeta{Name: name},
		Status: corev1.NodeStatus{
			Conditions: []corev1.NodeCondition{
				{Type: corev1.NodeReady, Status: ready},
			},
		},
	}
}

func pod(name, namespace string, phase corev1.PodPhase) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
		Status:     corev1.PodStatus{Phase: phase},
	}
}

func resultByName(t *testing.T, results []CheckResult, name string) CheckResult {
	t.Helper()
	for _, r := range results {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("no check result named %q", name)
	return CheckResult{}
}

func TestCheckHealthyCluster(t *testing.T) {
	client := fake.NewSimpleClientset(
		node("worker-1", corev1.ConditionTrue),
		node("worker-2", corev1.ConditionTrue),
		pod("coder-0", "coder", corev1.PodRunning),
		pod("migrate-job", "coder", corev1.PodSucceeded),
	)

	results, err := NewHealthCheckerWithClient(client).Check(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, results, 2)

	nodes := resultByName(t, results, "nodes-ready")
	assert.True(t, nodes.Healthy)
	assert.Equal(t, "2/2 nodes ready", nodes.Detail)

	pods := resultByName(t, results, "pods-running")
	assert.True(t, pods.Healthy)
}

func TestCheckNotReadyNode(t *testing.T) {
	client := fake.NewSimpleClientset(
		node("worker-1", corev1.ConditionTrue),
		node("worker-2", corev1.ConditionFalse),
	)

	results, err := NewHealthCheckerWithClient(client).Check(context.Background(), "")
	require.NoError(t, err)

	nodes := resultByName(t, results, "nodes-ready")
	assert.False(t, nodes.Healthy)
	assert.Equal(t, "1/2 nodes ready", nodes.Detail)
}

func TestCheckEmptyClusterIsUnhealthy(t *testing.T) {
	client := fake.NewSimpleClientset()

	results, err := NewHealthCheckerWithClient(client).Check(context.Background(), "")
	require.NoError(t, err)

	// No nodes at all is a failure, not a vacuous pass
	nodes := resultByName(t, results, "nodes-ready")
	assert.False(t, nodes.Healthy)
}

func TestCheckFailingPodsScopedByNamespace(t *testing.T) {
	objects := []runtime.Object{
		node("worker-1", corev1.ConditionTrue),
		pod("coder-0", "coder", corev1.PodRunning),
		pod("stuck", "coder", corev1.PodPending),
		pod("broken", "other", corev1.PodFailed),
	}
	client := fake.NewSimpleClientset(objects...)
	checker := NewHealthCheckerWithClient(client)

	results, err := checker.Check(context.Background(), "coder")
	require.NoError(t, err)

	pods := resultByName(t, results, "pods-running")
	assert.False(t, pods.Healthy)
	assert.Equal(t, "1/2 pods running or completed", pods.Detail)
}
