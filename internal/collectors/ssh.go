package collectors

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/emirozbir/incident-triage/internal/config"
)

// SSHConfig manages the ssh client configuration used for private clones.
type SSHConfig struct {
	GitHubKeyPath string
	AzureKeyPath  string
	ConfigPath    string

	mu sync.Mutex
}

func NewSSHConfig(cfg config.GitConfig) *SSHConfig {
	return &SSHConfig{
		GitHubKeyPath: expandHome(cfg.GitHubKeyPath),
		AzureKeyPath:  expandHome(cfg.AzureKeyPath),
		ConfigPath:    expandHome(cfg.SSHConfigPath),
	}
}

// Content renders host entries for GitHub and Azure DevOps.
func (s *SSHConfig) Content() string {
	return fmt.Sprintf(`Host github.com
  IdentityFile %s
  StrictHostKeyChecking no

Host ssh.dev.azure.com
  IdentityFile %s
  StrictHostKeyChecking no
`, s.GitHubKeyPath, s.AzureKeyPath)
}

// Ensure writes the config file unless it already exists and returns its path.
func (s *SSHConfig) Ensure() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.ConfigPath), 0o700); err != nil {
		return "", fmt.Errorf("failed to create ssh config directory: %w", err)
	}

	f, err := os.OpenFile(s.ConfigPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, os.ErrExist) {
		return s.ConfigPath, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to create ssh config: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(s.Content()); err != nil {
		return "", fmt.Errorf("failed to write ssh config: %w", err)
	}
	return s.ConfigPath, nil
}

// Command returns the GIT_SSH_COMMAND value pointing at the managed config.
func (s *SSHConfig) Command() (string, error) {
	path, err := s.Ensure()
	if err != nil {
		return "", err
	}
	return "ssh -F " + path, nil
}

// SetupAgent adds the configured keys that exist on disk to the running ssh-agent.
// Failures are returned per key and do not stop the remaining keys.
func (s *SSHConfig) SetupAgent(ctx context.Context) []error {
	var errs []error
	for _, key := range []string{s.GitHubKeyPath, s.AzureKeyPath} {
		if _, err := os.Stat(key); err != nil {
			continue
		}
		if out, err := exec.CommandContext(ctx, "ssh-add", key).CombinedOutput(); err != nil {
			errs = append(errs, fmt.Errorf("failed to add ssh key %s: %w: %s", key, err, strings.TrimSpace(string(out))))
		}
	}
	return errs
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}
