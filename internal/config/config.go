package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Kubernetes KubernetesConfig `mapstructure:"kubernetes"`
	Git        GitConfig        `mapstructure:"git"`
	Network    NetworkConfig    `mapstructure:"network"`
	Report     ReportConfig     `mapstructure:"report"`
	// AlertManager is polled by the CLI; the server receives webhooks instead.
	AlertManager AlertManagerConfig `mapstructure:"alertmanager"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
	// MaxParallelAlerts bounds concurrent ticket creation from one webhook call.
	MaxParallelAlerts int `mapstructure:"max_parallel_alerts"`
}

type DatabaseConfig struct {
	// Driver is "sqlite3" or "pgx".
	Driver string `mapstructure:"driver"`
	// Path is the sqlite file.
	Path     string `mapstructure:"path"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN returns the data source name for the configured driver.
func (c DatabaseConfig) DSN() string {
	if c.Driver == "pgx" {
		return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
			c.Host, c.Port, c.Name, c.User, c.Password, c.SSLMode)
	}
	return c.Path
}

type KubernetesConfig struct {
	Kubeconfig string `mapstructure:"kubeconfig"`
	Context    string `mapstructure:"context"`
}

type GitConfig struct {
	CloneTimeout  time.Duration `mapstructure:"clone_timeout"`
	GitHubKeyPath string        `mapstructure:"github_key_path"`
	AzureKeyPath  string        `mapstructure:"azure_key_path"`
	SSHConfigPath string        `mapstructure:"ssh_config_path"`
}

type NetworkConfig struct {
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

type AlertManagerConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ReportConfig struct {
	// TemplatePath overrides the built-in Markdown template when set.
	TemplatePath    string `mapstructure:"template_path"`
	FeedbackBaseURL string `mapstructure:"feedback_base_url"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.max_parallel_alerts", 5)
	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.path", "./triage.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "triage")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("git.clone_timeout", "30s")
	v.SetDefault("git.github_key_path", "~/.ssh/github_deploy_key")
	v.SetDefault("git.azure_key_path", "~/.ssh/azure_deploy_key")
	v.SetDefault("git.ssh_config_path", "~/.ssh/config")
	v.SetDefault("network.default_timeout", "10s")
	v.SetDefault("network.user_agent", "incident-triage/1.0")
	v.SetDefault("report.feedback_base_url", "https://feedback.local/diagnosis")
	v.SetDefault("alertmanager.url", "http://localhost:9093")
	v.SetDefault("alertmanager.timeout", "10s")

	// Read from environment variables, e.g. DATABASE_DRIVER
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	applyEnvOverrides(&config)

	return &config, nil
}

// applyEnvOverrides honours the variable names used by existing deployments.
func applyEnvOverrides(config *Config) {
	if port, err := strconv.Atoi(os.Getenv("API_PORT")); err == nil && port > 0 {
		config.Server.Port = port
	}

	if host := os.Getenv("POSTGRES_HOST"); host != "" {
		config.Database.Driver = "pgx"
		config.Database.Host = host
	}
	if port, err := strconv.Atoi(os.Getenv("POSTGRES_PORT")); err == nil && port > 0 {
		config.Database.Port = port
	}
	if name := os.Getenv("POSTGRES_DB"); name != "" {
		config.Database.Name = name
	}
	if user := os.Getenv("POSTGRES_USER"); user != "" {
		config.Database.User = user
	}
	if password := os.Getenv("POSTGRES_PASSWORD"); password != "" {
		config.Database.Password = password
	}

	if kubeconfig := os.Getenv("KUBECONFIG"); kubeconfig != "" && config.Kubernetes.Kubeconfig == "" {
		config.Kubernetes.Kubeconfig = kubeconfig
	}

	if key := firstEnv("GITHUB_SSH_KEY_PATH", "SSH_PRIVATE_KEY_PATH"); key != "" {
		config.Git.GitHubKeyPath = key
	}
	if key := os.Getenv("AZURE_SSH_KEY_PATH"); key != "" {
		config.Git.AzureKeyPath = key
	}
	if path := os.Getenv("SSH_CONFIG_PATH"); path != "" {
		config.Git.SSHConfigPath = path
	}
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}
