package collectors

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/emirozbir/incident-triage/internal/config"
)

// ProjectInfoAnnotation carries repository metadata on deployments.
const ProjectInfoAnnotation = "project.info/metadata"

type KubernetesCollector struct {
	clientset kubernetes.Interface
}

func NewKubernetesCollector(cfg config.KubernetesConfig) (*KubernetesCollector, error) {
	var k8sConfig *rest.Config
	var err error

	if cfg.Kubeconfig != "" {
		// Use kubeconfig file
		k8sConfig, err = clientcmd.BuildConfigFromFlags("", cfg.Kubeconfig)
	} else {
		// Use in-cluster config
		k8sConfig, err = rest.InClusterConfig()
		if err != nil {
			// Fallback to default kubeconfig
			loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
			configOverrides := &clientcmd.ConfigOverrides{}
			if cfg.Context != "" {
				configOverrides.CurrentContext = cfg.Context
			}
			k8sConfig, err = clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
				loadingRules, configOverrides).ClientConfig()
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes config: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(k8sConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	return NewKubernetesCollectorWithClient(clientset), nil
}

// NewKubernetesCollectorWithClient wraps an existing clientset.
func NewKubernetesCollectorWithClient(clientset kubernetes.Interface) *KubernetesCollector {
	return &KubernetesCollector{clientset: clientset}
}

type EventSummary struct {
	Type          string `json:"type,omitempty"`
	Reason        string `json:"reason,omitempty"`
	Message       string `json:"message,omitempty"`
	LastTimestamp string `json:"lastTimestamp,omitempty"`
}

type ContainerStatusSummary struct {
	Name         string                 `json:"name"`
	Ready        bool                   `json:"ready"`
	RestartCount int32                  `json:"restartCount"`
	State        *corev1.ContainerState `json:"state,omitempty"`
}

type PodDescription struct {
	Name              string                   `json:"name,omitempty"`
	Namespace         string                   `json:"namespace,omitempty"`
	Status            string                   `json:"status,omitempty"`
	NodeName          string                   `json:"nodeName,omitempty"`
	StartTime         string                   `json:"startTime,omitempty"`
	Conditions        []corev1.PodCondition    `json:"conditions"`
	ContainerStatuses []ContainerStatusSummary `json:"containerStatuses"`
	Events            []EventSummary           `json:"events"`
}

type DeploymentSummary struct {
	Name                string            `json:"name,omitempty"`
	Namespace           string            `json:"namespace,omitempty"`
	Annotations         map[string]string `json:"annotations"`
	ProjectInfoMetadata string            `json:"projectInfoMetadata,omitempty"`
	Replicas            int32             `json:"replicas"`
	AvailableReplicas   int32             `json:"availableReplicas"`
	UpdatedReplicas     int32             `json:"updatedReplicas"`
}

// DescribePod returns the pod state together with the events that reference it.
func (k *KubernetesCollector) DescribePod(ctx context.Context, namespace, podName string) (*PodDescription, error) {
	pod, err := k.clientset.CoreV1().Pods(namespace).Get(ctx, podName, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get pod: %w", err)
	}

	events, err := k.GetEvents(ctx, namespace, podName)
	if err != nil {
		return nil, err
	}

	desc := &PodDescription{
		Name:              pod.Name,
		Namespace:         pod.Namespace,
		Status:            string(pod.Status.Phase),
		NodeName:          pod.Spec.NodeName,
		Conditions:        pod.Status.Conditions,
		ContainerStatuses: []ContainerStatusSummary{},
		Events:            events,
	}
	if desc.Conditions == nil {
		desc.Conditions = []corev1.PodCondition{}
	}
	if pod.Status.StartTime != nil {
		desc.StartTime = formatTime(pod.Status.StartTime.Time)
	}
	for _, cs := range pod.Status.ContainerStatuses {
		state := cs.State
		desc.ContainerStatuses = append(desc.ContainerStatuses, ContainerStatusSummary{
			Name:         cs.Name,
			Ready:        cs.Ready,
			RestartCount: cs.RestartCount,
			State:        &state,
		})
	}

	return desc, nil
}

// GetEvents lists namespace events, optionally only those about podName.
func (k *KubernetesCollector) GetEvents(ctx context.Context, namespace, podName string) ([]EventSummary, error) {
	opts := metav1.ListOptions{}
	if podName != "" {
		opts.FieldSelector = fmt.Sprintf("involvedObject.name=%s", podName)
	}

	eventList, err := k.clientset.CoreV1().Events(namespace).List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}

	events := make([]EventSummary, 0, len(eventList.Items))
	for _, event := range eventList.Items {
		// Field selectors are not applied by every client, filter again
		if podName != "" && event.InvolvedObject.Name != podName {
			continue
		}
		events = append(events, summarizeEvent(event))
	}

	return events, nil
}

func (k *KubernetesCollector) GetDeployment(ctx context.Context, namespace, deploymentName string) (*DeploymentSummary, error) {
	deployment, err := k.clientset.AppsV1().Deployments(namespace).Get(ctx, deploymentName, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get deployment: %w", err)
	}

	annotations := deployment.Annotations
	if annotations == nil {
		annotations = map[string]string{}
	}

	return &DeploymentSummary{
		Name:                deployment.Name,
		Namespace:           deployment.Namespace,
		Annotations:         annotations,
		ProjectInfoMetadata: annotations[ProjectInfoAnnotation],
		Replicas:            deployment.Status.Replicas,
		AvailableReplicas:   deployment.Status.AvailableReplicas,
		UpdatedReplicas:     deployment.Status.UpdatedReplicas,
	}, nil
}

// GetConfigMapKeys returns the sorted keys of data and binaryData.
func (k *KubernetesCollector) GetConfigMapKeys(ctx context.Context, namespace, configMapName string) ([]string, error) {
	cm, err := k.clientset.CoreV1().ConfigMaps(namespace).Get(ctx, configMapName, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get configmap: %w", err)
	}
	return sortedKeys(cm.Data, cm.BinaryData), nil
}

// GetSecretKeys returns the sorted keys of data and stringData. Values never leave this function.
func (k *KubernetesCollector) GetSecretKeys(ctx context.Context, namespace, secretName string) ([]string, error) {
	secret, err := k.clientset.CoreV1().Secrets(namespace).Get(ctx, secretName, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get secret: %w", err)
	}
	return sortedKeys(secret.Data, secret.StringData), nil
}

// GetPodLogs returns the last tailLines log lines of a container.
func (k *KubernetesCollector) GetPodLogs(ctx context.Context, namespace, podName, container string, tailLines int64, previous bool) (string, error) {
	opts := &corev1.PodLogOptions{
		Container:  container,
		Previous:   previous,
		Timestamps: true,
	}
	if tailLines > 0 {
		opts.TailLines = &tailLines
	}

	req := k.clientset.CoreV1().Pods(namespace).GetLogs(podName, opts)
	podLogs, err := req.Stream(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get pod logs: %w", err)
	}
	defer podLogs.Close()

	logs, err := io.ReadAll(podLogs)
	if err != nil {
		return "", fmt.Errorf("failed to read pod logs: %w", err)
	}

	return string(logs), nil
}

func summarizeEvent(event corev1.Event) EventSummary {
	summary := EventSummary{
		Type:    event.Type,
		Reason:  event.Reason,
		Message: event.Message,
	}
	if !event.LastTimestamp.IsZero() {
		summary.LastTimestamp = formatTime(event.LastTimestamp.Time)
	}
	return summary
}

func sortedKeys[A, B any](a map[string]A, b map[string]B) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for key := range a {
		seen[key] = struct{}{}
	}
	for key := range b {
		seen[key] = struct{}{}
	}

	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
