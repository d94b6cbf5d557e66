// Package config loads the server configuration from an optional YAML file
// with environment variable overrides for the deployment-specific values
// (port, credentials, Redis address).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	Server      Server      `yaml:"server"`
	GitHub      GitHub      `yaml:"github"`
	Redis       Redis       `yaml:"redis"`
	RepoContext RepoContext `yaml:"repo_context"`
	Summarizer  Summarizer  `yaml:"summarizer"`
	Newswire    Newswire    `yaml:"newswire"`
	Ollama      Ollama      `yaml:"ollama"`
}

// Server configures the HTTP listener.
type Server struct {
	Port string `yaml:"port"`
}

// GitHub configures API access. Token auth is used when Token is set; GitHub
// App auth when AppID is set; unauthenticated otherwise. BaseURL points the
// client at a GitHub Enterprise or mock server.
type GitHub struct {
	Token          string `yaml:"token"`
	BaseURL        string `yaml:"base_url"`
	AppID          int64  `yaml:"app_id"`
	InstallationID int64  `yaml:"installation_id"`
	PrivateKeyPath string `yaml:"private_key_path"`
}

// Redis configures the optional persistent snapshot cache. An empty Addr
// selects the in-memory store.
type Redis struct {
	Addr          string `yaml:"addr"`
	ExpirySeconds int    `yaml:"expiry_seconds"`
}

// RepoContext configures the repository-context filter.
type RepoContext struct {
	Repo               string   `yaml:"repo"` // "owner/name"
	Branch             string   `yaml:"branch"`
	CacheTTLSeconds    int      `yaml:"cache_ttl_seconds"`
	MaxFileSize        int64    `yaml:"max_file_size"`
	MaxContextChars    int      `yaml:"max_context_chars"`
	Workers            int      `yaml:"workers"`
	ExcludedDirs       []string `yaml:"excluded_dirs"`
	ExcludedExtensions []string `yaml:"excluded_extensions"`
}

// CacheTTL returns the snapshot TTL as a duration.
func (r RepoContext) CacheTTL() time.Duration {
	return time.Duration(r.CacheTTLSeconds) * time.Second
}

// Summarizer configures the on-demand summarizer filter.
type Summarizer struct {
	Prefix    string `yaml:"prefix"`
	Keyword   string `yaml:"keyword"`
	PastTurns int    `yaml:"past_turns"`
}

// Newswire configures the RSS headlines filter. No feeds disables it.
type Newswire struct {
	Feeds           []string `yaml:"feeds"`
	CacheTTLSeconds int      `yaml:"cache_ttl_seconds"`
	MaxArticles     int      `yaml:"max_articles"`
	MaxAgeHours     int      `yaml:"max_age_hours"`
}

// Ollama configures the model unloader action. An empty Hosts list selects
// the built-in defaults.
type Ollama struct {
	Hosts []string `yaml:"hosts"`
}

// Default returns the configuration used when no file is present. The
// exclusion lists cover the directories and extensions that never carry
// useful context (dependency trees, build output, binaries, archives).
func Default() Config {
	return Config{
		Server: Server{Port: "8080"},
		RepoContext: RepoContext{
			Branch:          "main",
			CacheTTLSeconds: 7200,
			MaxFileSize:     2 * 1024 * 1024,
			MaxContextChars: 150000,
			Workers:         4,
			ExcludedDirs: []string{
				"node_modules", ".git", ".vscode", ".idea", "dist", "build", "target",
				"__pycache__", ".pytest_cache", "vendor", "logs", "tmp", ".next",
				"coverage", "bin", "obj", "Pods", "DerivedData",
			},
			ExcludedExtensions: []string{
				".png", ".jpg", ".jpeg", ".gif", ".ico", ".svg", ".pdf",
				".zip", ".tar", ".gz", ".bz2", ".xz", ".7z", ".rar",
				".exe", ".bin", ".dll", ".so", ".dylib", ".class", ".jar",
				".lock", ".log", ".cache", ".tmp", ".bak", ".swp",
				".pyc", ".pyo", ".o", ".obj", ".a",
			},
		},
		Redis:      Redis{ExpirySeconds: 24 * 3600},
		Summarizer: Summarizer{Prefix: "!", Keyword: "summarize", PastTurns: 5},
		Newswire: Newswire{
			CacheTTLSeconds: 180,
			MaxArticles:     20,
			MaxAgeHours:     48,
		},
	}
}

// Load reads the config file at path (when it exists) over the defaults and
// then applies environment overrides. A missing file is not an error; a
// malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Defaults plus env only.
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.Server.Port = envOr("PORT", cfg.Server.Port)
	cfg.GitHub.Token = envOr("GITHUB_TOKEN", cfg.GitHub.Token)
	cfg.GitHub.BaseURL = envOr("GITHUB_BASE_URL", cfg.GitHub.BaseURL)
	cfg.Redis.Addr = envOr("REDIS_ADDR", cfg.Redis.Addr)
	cfg.RepoContext.Repo = envOr("GITHUB_REPO", cfg.RepoContext.Repo)
	cfg.RepoContext.Branch = envOr("GITHUB_BRANCH", cfg.RepoContext.Branch)

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
