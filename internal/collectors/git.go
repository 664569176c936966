package collectors

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/emirozbir/incident-triage/internal/config"
)

// TempDirPrefix names every clone directory created by CloneRepo.
const TempDirPrefix = "troubleshooting-"

const defaultCloneTimeout = 30 * time.Second

var (
	ErrPathTraversal     = errors.New("path traversal detected")
	ErrCleanupNotAllowed = errors.New("cleanup only allowed for temporary clone directories")
)

type GitCollector struct {
	timeout time.Duration
	ssh     *SSHConfig
}

func NewGitCollector(cfg config.GitConfig) *GitCollector {
	timeout := cfg.CloneTimeout
	if timeout <= 0 {
		timeout = defaultCloneTimeout
	}
	return &GitCollector{
		timeout: timeout,
		ssh:     NewSSHConfig(cfg),
	}
}

// SSH exposes the ssh configuration used for clones.
func (g *GitCollector) SSH() *SSHConfig {
	return g.ssh
}

// CloneRepo makes a shallow single-branch clone into a new temporary directory.
// The directory is removed when the clone fails.
func (g *GitCollector) CloneRepo(ctx context.Context, repoURL, branch string) (string, error) {
	tempDir, err := os.MkdirTemp("", TempDirPrefix)
	if err != nil {
		return "", fmt.Errorf("failed to create clone directory: %w", err)
	}

	sshCommand, err := g.ssh.Command()
	if err != nil {
		os.RemoveAll(tempDir)
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "clone",
		"--depth", "1",
		"--branch", branch,
		"--single-branch",
		"--", repoURL, tempDir,
	)
	cmd.Env = append(os.Environ(),
		"GIT_SSH_COMMAND="+sshCommand,
		"GIT_TERMINAL_PROMPT=0",
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		os.RemoveAll(tempDir)
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("failed to clone repository: timeout after %v", g.timeout)
		}
		return "", fmt.Errorf("failed to clone repository: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return tempDir, nil
}

// ReadFile reads a file inside repoPath.
func (g *GitCollector) ReadFile(repoPath, filePath string) (string, error) {
	fullPath, err := resolveInsideRoot(repoPath, filePath)
	if err != nil {
		return "", err
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return string(content), nil
}

// ListFiles lists a directory inside repoPath. Directories carry a trailing slash.
func (g *GitCollector) ListFiles(repoPath, directory string) ([]string, error) {
	if directory == "" {
		directory = "."
	}
	target, err := resolveInsideRoot(repoPath, directory)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(target)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		files = append(files, name)
	}
	return files, nil
}

// CleanupRepo removes a directory created by CloneRepo. Any other path is refused.
func (g *GitCollector) CleanupRepo(repoPath string) error {
	if !isTempRepoPath(repoPath) {
		return fmt.Errorf("%w: %s", ErrCleanupNotAllowed, repoPath)
	}
	if err := os.RemoveAll(repoPath); err != nil {
		return fmt.Errorf("failed to remove repository: %w", err)
	}
	return nil
}

func resolveInsideRoot(rootPath, targetPath string) (string, error) {
	root, err := filepath.Abs(rootPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve repository path: %w", err)
	}

	target := targetPath
	if !filepath.IsAbs(target) {
		target = filepath.Join(root, target)
	}
	target = filepath.Clean(target)

	if target != root && !strings.HasPrefix(target, root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, targetPath)
	}
	return target, nil
}

func isTempRepoPath(repoPath string) bool {
	resolved, err := filepath.Abs(repoPath)
	if err != nil {
		return false
	}
	tmp, err := filepath.Abs(os.TempDir())
	if err != nil {
		return false
	}
	return strings.HasPrefix(filepath.Base(resolved), TempDirPrefix) &&
		strings.HasPrefix(resolved, tmp+string(filepath.Separator))
}
