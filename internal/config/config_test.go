package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "./triage.db", cfg.Database.DSN())
	assert.Equal(t, 30*time.Second, cfg.Git.CloneTimeout)
	assert.Equal(t, 10*time.Second, cfg.Network.DefaultTimeout)
	assert.Equal(t, "incident-triage/1.0", cfg.Network.UserAgent)
	assert.Equal(t, "https://feedback.local/diagnosis", cfg.Report.FeedbackBaseURL)
	assert.Equal(t, "http://localhost:9093", cfg.AlertManager.URL)
	assert.Equal(t, 10*time.Second, cfg.AlertManager.Timeout)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
database:
  driver: pgx
  host: db.internal
  name: tickets
  user: triage
  password: pw
report:
  template_path: /etc/triage/report.md.tmpl
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, "host=db.internal port=5432 dbname=tickets user=triage password=pw sslmode=disable", cfg.Database.DSN())
	assert.Equal(t, "/etc/triage/report.md.tmpl", cfg.Report.TemplatePath)
}

func TestLoadLegacyEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("API_PORT", "4000")
	t.Setenv("POSTGRES_HOST", "pg")
	t.Setenv("POSTGRES_DB", "diagnosis")
	t.Setenv("POSTGRES_USER", "svc")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("SSH_PRIVATE_KEY_PATH", "/keys/id_ed25519")
	t.Setenv("SSH_CONFIG_PATH", "/tmp/ssh/config")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, "pg", cfg.Database.Host)
	assert.Equal(t, "diagnosis", cfg.Database.Name)
	assert.Equal(t, "svc", cfg.Database.User)
	assert.Equal(t, "secret", cfg.Database.Password)
	assert.Equal(t, "/keys/id_ed25519", cfg.Git.GitHubKeyPath)
	assert.Equal(t, "/tmp/ssh/config", cfg.Git.SSHConfigPath)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
