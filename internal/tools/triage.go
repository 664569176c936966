package tools

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/emirozbir/incident-triage/internal/collectors"
	"github.com/emirozbir/incident-triage/internal/report"
)

var errKubernetesUnavailable = errors.New("kubernetes client not configured")

// Dependencies are the collaborators behind the triage tools. A nil Kubernetes
// collector makes the cluster tools return error results.
type Dependencies struct {
	Kubernetes *collectors.KubernetesCollector
	Git        *collectors.GitCollector
	Network    *collectors.NetworkCollector
	Renderer   *report.Renderer
}

// NewTriageRegistry registers every triage tool.
func NewTriageRegistry(deps Dependencies, logger *zap.Logger) (*Registry, error) {
	r := NewRegistry(logger)
	t := &triageTools{deps: deps}

	specs := []ToolSpec{
		{
			Name:        "describePod",
			Description: "Describe a pod: phase, conditions, container statuses and recent events",
			InputSchema: objectSchema([]string{"namespace", "podName"}, map[string]any{
				"namespace": stringProp("Pod namespace"),
				"podName":   stringProp("Pod name"),
			}),
			Handler: t.describePod,
		},
		{
			Name:        "getEvents",
			Description: "List events in a namespace, optionally only those for one pod",
			InputSchema: objectSchema([]string{"namespace"}, map[string]any{
				"namespace": stringProp("Namespace"),
				"podName":   stringProp("Only events involving this pod"),
			}),
			Handler: t.getEvents,
		},
		{
			Name:        "getDeployment",
			Description: "Get deployment replicas and annotations, including project.info/metadata",
			InputSchema: objectSchema([]string{"namespace", "deploymentName"}, map[string]any{
				"namespace":      stringProp("Deployment namespace"),
				"deploymentName": stringProp("Deployment name"),
			}),
			Handler: t.getDeployment,
		},
		{
			Name:        "getConfigMapKeys",
			Description: "List the keys of a ConfigMap",
			InputSchema: objectSchema([]string{"namespace", "configMapName"}, map[string]any{
				"namespace":     stringProp("ConfigMap namespace"),
				"configMapName": stringProp("ConfigMap name"),
			}),
			Handler: t.getConfigMapKeys,
		},
		{
			Name:        "getSecretKeys",
			Description: "List the keys of a Secret without its values",
			InputSchema: objectSchema([]string{"namespace", "secretName"}, map[string]any{
				"namespace":  stringProp("Secret namespace"),
				"secretName": stringProp("Secret name"),
			}),
			Handler: t.getSecretKeys,
		},
		{
			Name:        "getPodLogs",
			Description: "Fetch the tail of a pod's container logs",
			InputSchema: objectSchema([]string{"namespace", "podName"}, map[string]any{
				"namespace": stringProp("Pod namespace"),
				"podName":   stringProp("Pod name"),
				"container": stringProp("Container name, required for multi-container pods"),
				"tailLines": map[string]any{"type": "integer", "description": "Number of lines from the end (default 100)"},
				"previous":  map[string]any{"type": "boolean", "description": "Logs of the previous container instance"},
			}),
			Handler: t.getPodLogs,
		},
		{
			Name:        "cloneRepo",
			Description: "Shallow clone one branch of a repository into a temporary directory",
			InputSchema: objectSchema([]string{"repoUrl", "branch"}, map[string]any{
				"repoUrl": stringProp("Repository URL (https or ssh)"),
				"branch":  stringProp("Branch to clone"),
			}),
			Handler: t.cloneRepo,
		},
		{
			Name:        "readFile",
			Description: "Read a file from a cloned repository",
			InputSchema: objectSchema([]string{"repoPath", "filePath"}, map[string]any{
				"repoPath": stringProp("Path returned by cloneRepo"),
				"filePath": stringProp("File path relative to the repository root"),
			}),
			Handler: t.readFile,
		},
		{
			Name:        "listFiles",
			Description: "List a directory of a cloned repository; directories end with /",
			InputSchema: objectSchema([]string{"repoPath"}, map[string]any{
				"repoPath":  stringProp("Path returned by cloneRepo"),
				"directory": stringProp("Directory relative to the repository root"),
			}),
			Handler: t.listFiles,
		},
		{
			Name:        "cleanupRepo",
			Description: "Remove a repository cloned by cloneRepo",
			InputSchema: objectSchema([]string{"repoPath"}, map[string]any{
				"repoPath": stringProp("Path returned by cloneRepo"),
			}),
			Handler: t.cleanupRepo,
		},
		{
			Name:        "httpRequest",
			Description: "Probe an HTTP endpoint and report status, latency and connection errors",
			InputSchema: objectSchema([]string{"url"}, map[string]any{
				"url":     stringProp("Target URL"),
				"method":  map[string]any{"type": "string", "enum": []string{"GET", "POST", "HEAD"}},
				"timeout": map[string]any{"type": "integer", "description": "Timeout in milliseconds (default 10000)"},
			}),
			Handler: t.httpRequest,
		},
		{
			Name:        "renderReport",
			Description: "Render a Markdown diagnostic report from a diagnosis object",
			InputSchema: objectSchema([]string{"diagnosis"}, map[string]any{
				"diagnosis": map[string]any{"type": "object", "description": "Diagnosis fields and collected evidence"},
			}),
			Handler: t.renderReport,
		},
	}

	for _, spec := range specs {
		if err := r.Add(spec); err != nil {
			return nil, err
		}
	}
	return r, nil
}

type triageTools struct {
	deps Dependencies
}

func (t *triageTools) kube() (*collectors.KubernetesCollector, error) {
	if t.deps.Kubernetes == nil {
		return nil, errKubernetesUnavailable
	}
	return t.deps.Kubernetes, nil
}

func (t *triageTools) describePod(ctx context.Context, args Arguments) (any, error) {
	namespace, podName, err := requiredPair(args, "namespace", "podName")
	if err != nil {
		return nil, err
	}
	kube, err := t.kube()
	if err != nil {
		return nil, err
	}
	return kube.DescribePod(ctx, namespace, podName)
}

func (t *triageTools) getEvents(ctx context.Context, args Arguments) (any, error) {
	namespace, err := args.RequiredString("namespace")
	if err != nil {
		return nil, err
	}
	podName, err := args.String("podName")
	if err != nil {
		return nil, err
	}
	kube, err := t.kube()
	if err != nil {
		return nil, err
	}
	return kube.GetEvents(ctx, namespace, podName)
}

func (t *triageTools) getDeployment(ctx context.Context, args Arguments) (any, error) {
	namespace, name, err := requiredPair(args, "namespace", "deploymentName")
	if err != nil {
		return nil, err
	}
	kube, err := t.kube()
	if err != nil {
		return nil, err
	}
	return kube.GetDeployment(ctx, namespace, name)
}

func (t *triageTools) getConfigMapKeys(ctx context.Context, args Arguments) (any, error) {
	namespace, name, err := requiredPair(args, "namespace", "configMapName")
	if err != nil {
		return nil, err
	}
	kube, err := t.kube()
	if err != nil {
		return nil, err
	}
	return kube.GetConfigMapKeys(ctx, namespace, name)
}

func (t *triageTools) getSecretKeys(ctx context.Context, args Arguments) (any, error) {
	namespace, name, err := requiredPair(args, "namespace", "secretName")
	if err != nil {
		return nil, err
	}
	kube, err := t.kube()
	if err != nil {
		return nil, err
	}
	return kube.GetSecretKeys(ctx, namespace, name)
}

func (t *triageTools) getPodLogs(ctx context.Context, args Arguments) (any, error) {
	namespace, podName, err := requiredPair(args, "namespace", "podName")
	if err != nil {
		return nil, err
	}
	container, err := args.String("container")
	if err != nil {
		return nil, err
	}
	tailLines, err := args.Int("tailLines", 100)
	if err != nil {
		return nil, err
	}
	previous, err := args.Bool("previous")
	if err != nil {
		return nil, err
	}
	kube, err := t.kube()
	if err != nil {
		return nil, err
	}
	logs, err := kube.GetPodLogs(ctx, namespace, podName, container, tailLines, previous)
	if err != nil {
		return nil, err
	}
	return map[string]string{"logs": logs}, nil
}

func (t *triageTools) cloneRepo(ctx context.Context, args Arguments) (any, error) {
	repoURL, branch, err := requiredPair(args, "repoUrl", "branch")
	if err != nil {
		return nil, err
	}
	repoPath, err := t.deps.Git.CloneRepo(ctx, repoURL, branch)
	if err != nil {
		return nil, err
	}
	return map[string]string{"repoPath": repoPath}, nil
}

func (t *triageTools) readFile(_ context.Context, args Arguments) (any, error) {
	repoPath, filePath, err := requiredPair(args, "repoPath", "filePath")
	if err != nil {
		return nil, err
	}
	content, err := t.deps.Git.ReadFile(repoPath, filePath)
	if err != nil {
		return nil, err
	}
	return map[string]string{"content": content}, nil
}

func (t *triageTools) listFiles(_ context.Context, args Arguments) (any, error) {
	repoPath, err := args.RequiredString("repoPath")
	if err != nil {
		return nil, err
	}
	directory, err := args.String("directory")
	if err != nil {
		return nil, err
	}
	return t.deps.Git.ListFiles(repoPath, directory)
}

func (t *triageTools) cleanupRepo(_ context.Context, args Arguments) (any, error) {
	repoPath, err := args.RequiredString("repoPath")
	if err != nil {
		return nil, err
	}
	if err := t.deps.Git.CleanupRepo(repoPath); err != nil {
		return nil, err
	}
	return map[string]any{"removed": true, "repoPath": repoPath}, nil
}

func (t *triageTools) httpRequest(ctx context.Context, args Arguments) (any, error) {
	url, err := args.RequiredString("url")
	if err != nil {
		return nil, err
	}
	method, err := args.String("method")
	if err != nil {
		return nil, err
	}
	timeoutMs, err := args.Int("timeout", 0)
	if err != nil {
		return nil, err
	}
	return t.deps.Network.HTTPRequest(ctx, url, method, time.Duration(timeoutMs)*time.Millisecond), nil
}

func (t *triageTools) renderReport(_ context.Context, args Arguments) (any, error) {
	diagnosis, err := args.Object("diagnosis")
	if err != nil {
		return nil, err
	}
	if diagnosis == nil {
		diagnosis = map[string]any(args)
	}
	result, err := t.deps.Renderer.Render(diagnosis)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func requiredPair(args Arguments, first, second string) (string, string, error) {
	a, err := args.RequiredString(first)
	if err != nil {
		return "", "", err
	}
	b, err := args.RequiredString(second)
	if err != nil {
		return "", "", err
	}
	return a, b, nil
}

func objectSchema(required []string, properties map[string]any) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}
