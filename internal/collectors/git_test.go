package collectors

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emirozbir/incident-triage/internal/config"
)

func newTestGitCollector(t *testing.T) *GitCollector {
	t.Helper()
	dir := t.TempDir()
	return NewGitCollector(config.GitConfig{
		CloneTimeout:  30 * time.Second,
		GitHubKeyPath: filepath.Join(dir, "github_key"),
		AzureKeyPath:  filepath.Join(dir, "azure_key"),
		SSHConfigPath: filepath.Join(dir, "ssh", "config"),
	})
}

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=triage", "GIT_AUTHOR_EMAIL=triage@example.com",
		"GIT_COMMITTER_NAME=triage", "GIT_COMMITTER_EMAIL=triage@example.com",
	)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
}

// newSourceRepo creates a repository with one commit on branch main.
func newSourceRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := t.TempDir()
	runGit(t, dir, "init", "-q")
	runGit(t, dir, "symbolic-ref", "HEAD", "refs/heads/main")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# payment-service\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "main.go"), []byte("package main\n"), 0o644))
	runGit(t, dir, "add", ".")
	runGit(t, dir, "-c", "commit.gpgsign=false", "commit", "-q", "-m", "initial")
	return dir
}

func TestCloneReadListCleanup(t *testing.T) {
	source := newSourceRepo(t)
	g := newTestGitCollector(t)

	repoPath, err := g.CloneRepo(context.Background(), "file://"+source, "main")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(repoPath) })

	assert.True(t, strings.HasPrefix(filepath.Base(repoPath), TempDirPrefix))

	content, err := g.ReadFile(repoPath, "README.md")
	require.NoError(t, err)
	assert.Equal(t, "# payment-service\n", content)

	files, err := g.ListFiles(repoPath, "")
	require.NoError(t, err)
	assert.Contains(t, files, "README.md")
	assert.Contains(t, files, "src/")
	assert.Contains(t, files, ".git/")

	files, err = g.ListFiles(repoPath, "src")
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go"}, files)

	require.NoError(t, g.CleanupRepo(repoPath))
	_, err = os.Stat(repoPath)
	assert.True(t, os.IsNotExist(err))
}

func TestCloneRepoFailureRemovesTempDir(t *testing.T) {
	source := newSourceRepo(t)
	g := newTestGitCollector(t)

	before, err := filepath.Glob(filepath.Join(os.TempDir(), TempDirPrefix+"*"))
	require.NoError(t, err)

	_, err = g.CloneRepo(context.Background(), "file://"+source, "does-not-exist")
	assert.ErrorContains(t, err, "failed to clone repository")

	after, err := filepath.Glob(filepath.Join(os.TempDir(), TempDirPrefix+"*"))
	require.NoError(t, err)
	assert.ElementsMatch(t, before, after)
}

func TestCloneRepoWritesSSHConfig(t *testing.T) {
	source := newSourceRepo(t)
	g := newTestGitCollector(t)

	repoPath, err := g.CloneRepo(context.Background(), "file://"+source, "main")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(repoPath) })

	info, err := os.Stat(g.SSH().ConfigPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestReadFileRejectsTraversal(t *testing.T) {
	g := newTestGitCollector(t)
	root := t.TempDir()

	for _, path := range []string{"../etc/passwd", "src/../../secret", "/etc/passwd"} {
		_, err := g.ReadFile(root, path)
		assert.ErrorIs(t, err, ErrPathTraversal, path)
	}

	_, err := g.ListFiles(root, "..")
	assert.ErrorIs(t, err, ErrPathTraversal)
}

func TestReadFileAllowsNestedPaths(t *testing.T) {
	g := newTestGitCollector(t)
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "b.txt"), []byte("ok"), 0o644))

	content, err := g.ReadFile(root, "a/../a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "ok", content)
}

func TestCleanupRepoRestrictions(t *testing.T) {
	g := newTestGitCollector(t)

	outside := t.TempDir()
	assert.ErrorIs(t, g.CleanupRepo(outside), ErrCleanupNotAllowed)
	assert.DirExists(t, outside)

	assert.ErrorIs(t, g.CleanupRepo("/"+TempDirPrefix+"root"), ErrCleanupNotAllowed)

	dir, err := os.MkdirTemp("", TempDirPrefix)
	require.NoError(t, err)
	require.NoError(t, g.CleanupRepo(dir))
	assert.NoDirExists(t, dir)
}

func TestSSHConfigEnsure(t *testing.T) {
	dir := t.TempDir()
	s := NewSSHConfig(config.GitConfig{
		GitHubKeyPath: "/keys/github",
		AzureKeyPath:  "/keys/azure",
		SSHConfigPath: filepath.Join(dir, "ssh", "config"),
	})

	path, err := s.Ensure()
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Host github.com\n  IdentityFile /keys/github\n")
	assert.Contains(t, string(content), "Host ssh.dev.azure.com\n  IdentityFile /keys/azure\n")
	assert.Contains(t, string(content), "StrictHostKeyChecking no")

	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())

	require.NoError(t, os.WriteFile(path, []byte("custom"), 0o600))
	cmd, err := s.Command()
	require.NoError(t, err)
	assert.Equal(t, "ssh -F "+path, cmd)

	content, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "custom", string(content))
}

func TestSSHConfigSetupAgentWithoutKeys(t *testing.T) {
	s := NewSSHConfig(config.GitConfig{
		GitHubKeyPath: filepath.Join(t.TempDir(), "missing"),
		AzureKeyPath:  filepath.Join(t.TempDir(), "missing"),
	})
	assert.Empty(t, s.SetupAgent(context.Background()))
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".ssh", "config"), expandHome("~/.ssh/config"))
	assert.Equal(t, home, expandHome("~"))
	assert.Equal(t, "/etc/ssh/config", expandHome("/etc/ssh/config"))
}
