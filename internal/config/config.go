package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// WorkspaceDirName is the directory name for project-level config.
	WorkspaceDirName = ".sitefinity-mcp"
	// WorkspaceConfigFile is the config file name inside the workspace directory.
	WorkspaceConfigFile = "config.yaml"
	// MaxSearchDepth limits how many parent directories to walk when discovering a workspace.
	MaxSearchDepth = 10
)

// Supported authentication modes for the Sitefinity API.
const (
	AuthAnonymous = "anonymous"
	AuthAPIKey    = "apikey"
	AuthBearer    = "bearer"
	AuthBasic     = "basic"
)

// WorkspaceOptions controls workspace discovery behavior.
type WorkspaceOptions struct {
	// Disable skips workspace discovery entirely (--no-workspace flag).
	Disable bool
	// ExplicitDir uses this directory as workspace root instead of walking up (--workspace-dir flag).
	ExplicitDir string
}

// Config captures all tunable settings for the Sitefinity MCP server.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Sitefinity SitefinityConfig `yaml:"sitefinity"`
	MCP        MCPConfig        `yaml:"mcp"`
	Inspector  InspectorConfig  `yaml:"inspector"`
	Recorder   RecorderConfig   `yaml:"recorder"`
}

type ServerConfig struct {
	Name     string `yaml:"name"`
	Version  string `yaml:"version"`
	LogFile  string `yaml:"log_file"`
	LogLevel string `yaml:"log_level"`
}

// SitefinityConfig points the client at a Sitefinity site.
type SitefinityConfig struct {
	// Site root, e.g. https://www.example.com.
	SitePrefix string `yaml:"site_prefix"`
	// Path of the published content OData service (default: api/default).
	ContentService string `yaml:"content_service"`
	// Path of the management OData service used for drafts (default: sf/system).
	ManagementService string     `yaml:"management_service"`
	Auth              AuthConfig `yaml:"auth"`
	// Per-request timeout (e.g., "30s").
	Timeout string      `yaml:"timeout"`
	Retry   RetryConfig `yaml:"retry"`
}

type AuthConfig struct {
	// anonymous | apikey | bearer | basic
	Type         string `yaml:"type"`
	APIKey       string `yaml:"api_key"`
	APIKeyHeader string `yaml:"api_key_header"`
	Token        string `yaml:"token"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
}

// RetryConfig drives exponential backoff for transient API failures.
type RetryConfig struct {
	MaxAttempts int    `yaml:"max_attempts"`
	MinWait     string `yaml:"min_wait"`
	MaxWait     string `yaml:"max_wait"`
}

type MCPConfig struct {
	// When set, starts an SSE server on this port instead of stdio-only.
	SSEPort int `yaml:"sse_port"`
	// Mount the streamable HTTP transport on the inspector router.
	HTTPEnabled bool   `yaml:"http_enabled"`
	HTTPPath    string `yaml:"http_path"`
}

// InspectorConfig configures the browser-facing tool runner.
type InspectorConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	// Optional key required on /api routes via X-API-Key or a bearer token.
	APIKey      string   `yaml:"api_key"`
	CORSOrigins []string `yaml:"cors_origins"`
	// IANA zone used when rendering dates (default: UTC).
	Timezone string `yaml:"timezone"`
}

// RecorderConfig controls the JSONL trace of tool runs.
type RecorderConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Dir        string `yaml:"dir"`
	MaxRotated int    `yaml:"max_rotated"`
}

// DefaultConfig provides reasonable defaults for local development.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Name:     "sitefinity-mcp",
			Version:  "0.3.0",
			LogFile:  "sitefinity-mcp.log",
			LogLevel: "info",
		},
		Sitefinity: SitefinityConfig{
			SitePrefix:        "http://localhost",
			ContentService:    "api/default",
			ManagementService: "sf/system",
			Auth: AuthConfig{
				Type:         AuthAnonymous,
				APIKeyHeader: "X-SF-APIKEY",
			},
			Timeout: "30s",
			Retry: RetryConfig{
				MaxAttempts: 3,
				MinWait:     "1s",
				MaxWait:     "5s",
			},
		},
		MCP: MCPConfig{
			SSEPort:     0,
			HTTPEnabled: true,
			HTTPPath:    "/mcp",
		},
		Inspector: InspectorConfig{
			Enabled:     true,
			Addr:        ":8000",
			CORSOrigins: []string{"*"},
			Timezone:    "UTC",
		},
		Recorder: RecorderConfig{
			Enabled:    false,
			Dir:        "traces",
			MaxRotated: 3,
		},
	}
}

// Load reads YAML config from disk and overlays defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, errors.New("config path is required")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

// DiscoverWorkspace walks up from startDir looking for a .sitefinity-mcp/config.yaml file.
// Returns the workspace root directory (parent of .sitefinity-mcp/) or empty string if not found.
func DiscoverWorkspace(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving start directory: %w", err)
	}

	for i := 0; i < MaxSearchDepth; i++ {
		candidate := filepath.Join(dir, WorkspaceDirName, WorkspaceConfigFile)
		if _, err := os.Stat(candidate); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", nil
}

// LoadWithWorkspace implements multi-layer config merge:
//
//	DefaultConfig() <- .sitefinity-mcp/config.yaml <- explicit --config <- environment
//
// CLI flags are applied by the caller afterwards. Returns the merged config and
// the workspace directory (empty if none found).
func LoadWithWorkspace(explicitConfig string, opts WorkspaceOptions) (Config, string, error) {
	cfg := DefaultConfig()
	wsDir := ""

	if !opts.Disable {
		var err error
		if opts.ExplicitDir != "" {
			candidate := filepath.Join(opts.ExplicitDir, WorkspaceDirName, WorkspaceConfigFile)
			if _, statErr := os.Stat(candidate); statErr == nil {
				wsDir = opts.ExplicitDir
			}
		} else {
			cwd, cwdErr := os.Getwd()
			if cwdErr != nil {
				return cfg, "", fmt.Errorf("getting working directory: %w", cwdErr)
			}
			wsDir, err = DiscoverWorkspace(cwd)
			if err != nil {
				return cfg, "", fmt.Errorf("discovering workspace: %w", err)
			}
		}

		if wsDir != "" {
			wsConfigPath := filepath.Join(wsDir, WorkspaceDirName, WorkspaceConfigFile)
			raw, err := os.ReadFile(wsConfigPath)
			if err != nil {
				return cfg, "", fmt.Errorf("reading workspace config %s: %w", wsConfigPath, err)
			}
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return cfg, "", fmt.Errorf("parsing workspace config %s: %w", wsConfigPath, err)
			}
			cfg = resolveWorkspacePaths(cfg, wsDir)
		}
	}

	if explicitConfig != "" {
		raw, err := os.ReadFile(explicitConfig)
		if err != nil {
			return cfg, wsDir, fmt.Errorf("reading explicit config %s: %w", explicitConfig, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, wsDir, fmt.Errorf("parsing explicit config %s: %w", explicitConfig, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, wsDir, err
	}

	return cfg, wsDir, cfg.Validate()
}

// ApplyEnv overlays environment variables. lookup is os.LookupEnv outside tests.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("SITEFINITY_SITE_PREFIX", &c.Sitefinity.SitePrefix)
	str("SITEFINITY_AUTH_TYPE", &c.Sitefinity.Auth.Type)
	str("SITEFINITY_API_KEY", &c.Sitefinity.Auth.APIKey)
	str("SITEFINITY_TOKEN", &c.Sitefinity.Auth.Token)
	str("SITEFINITY_USERNAME", &c.Sitefinity.Auth.Username)
	str("SITEFINITY_PASSWORD", &c.Sitefinity.Auth.Password)
	str("INSPECTOR_API_KEY", &c.Inspector.APIKey)

	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Inspector.Addr = fmt.Sprintf(":%d", port)
	}
	if v, ok := lookup("RETRY_MAX_ATTEMPTS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RETRY_MAX_ATTEMPTS %q: %w", v, err)
		}
		c.Sitefinity.Retry.MaxAttempts = n
	}
	seconds := func(key string, dst *string) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		*dst = time.Duration(n * float64(time.Second)).String()
		return nil
	}
	if err := seconds("RETRY_MIN_SECONDS", &c.Sitefinity.Retry.MinWait); err != nil {
		return err
	}
	return seconds("RETRY_MAX_SECONDS", &c.Sitefinity.Retry.MaxWait)
}

// InitWorkspace creates a .sitefinity-mcp/ directory with template files at root.
func InitWorkspace(root string) error {
	wsDir := filepath.Join(root, WorkspaceDirName)

	if _, err := os.Stat(wsDir); err == nil {
		return fmt.Errorf("workspace directory already exists: %s", wsDir)
	}

	dirs := []string{
		wsDir,
		filepath.Join(wsDir, "traces"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	templateConfig := `# Sitefinity MCP project-level configuration
# Values here override defaults but are overridden by --config, environment and CLI flags.

# sitefinity:
#   site_prefix: "https://www.example.com"
#   auth:
#     type: apikey
#     api_key: "..."
#   retry:
#     max_attempts: 3
#     min_wait: "1s"
#     max_wait: "5s"

# inspector:
#   addr: ":8000"
#   timezone: "Europe/London"

# recorder:
#   enabled: true
#   dir: "traces"
`
	configPath := filepath.Join(wsDir, WorkspaceConfigFile)
	if err := os.WriteFile(configPath, []byte(templateConfig), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	gitignoreContent := "# Runtime data (logs, traces) - do not version control\ntraces/\n*.log\n"
	gitignorePath := filepath.Join(wsDir, ".gitignore")
	if err := os.WriteFile(gitignorePath, []byte(gitignoreContent), 0644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	return nil
}

// resolveWorkspacePaths resolves relative paths in the config against the workspace directory.
func resolveWorkspacePaths(cfg Config, wsDir string) Config {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(wsDir, WorkspaceDirName, p)
	}

	cfg.Server.LogFile = resolve(cfg.Server.LogFile)
	cfg.Recorder.Dir = resolve(cfg.Recorder.Dir)
	return cfg
}

// Validate ensures required fields exist so the server can start deterministically.
func (c *Config) Validate() error {
	if c.Server.Name == "" {
		return errors.New("server.name is required")
	}
	u, err := url.Parse(c.Sitefinity.SitePrefix)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("sitefinity.site_prefix must be an http(s) URL, got %q", c.Sitefinity.SitePrefix)
	}
	a := c.Sitefinity.Auth
	switch strings.ToLower(a.Type) {
	case "", AuthAnonymous:
	case AuthAPIKey:
		if a.APIKey == "" {
			return errors.New("sitefinity.auth.api_key is required for apikey auth")
		}
	case AuthBearer:
		if a.Token == "" {
			return errors.New("sitefinity.auth.token is required for bearer auth")
		}
	case AuthBasic:
		if a.Username == "" || a.Password == "" {
			return errors.New("sitefinity.auth.username and password are required for basic auth")
		}
	default:
		return fmt.Errorf("unknown sitefinity.auth.type %q", a.Type)
	}
	if c.Sitefinity.Retry.MaxAttempts < 0 {
		return errors.New("sitefinity.retry.max_attempts must not be negative")
	}
	if c.Inspector.Timezone != "" {
		if _, err := time.LoadLocation(c.Inspector.Timezone); err != nil {
			return fmt.Errorf("inspector.timezone: %w", err)
		}
	}
	return nil
}

// ContentURL returns the base URL of the published content service.
func (s SitefinityConfig) ContentURL() string {
	return joinURL(s.SitePrefix, s.ContentService, "api/default")
}

// ManagementURL returns the base URL of the management service used for drafts.
func (s SitefinityConfig) ManagementURL() string {
	return joinURL(s.SitePrefix, s.ManagementService, "sf/system")
}

func joinURL(prefix, service, fallback string) string {
	if service == "" {
		service = fallback
	}
	return strings.TrimRight(prefix, "/") + "/" + strings.Trim(service, "/")
}

// RequestTimeout returns the parsed per-request timeout with a sane default.
func (s SitefinityConfig) RequestTimeout() time.Duration {
	return parseDuration(s.Timeout, 30*time.Second)
}

// Attempts returns the total number of attempts per request (at least 1).
func (r RetryConfig) Attempts() int {
	if r.MaxAttempts <= 0 {
		return 1
	}
	return r.MaxAttempts
}

// MinBackoff returns the first backoff delay with a sane default.
func (r RetryConfig) MinBackoff() time.Duration {
	return parseDuration(r.MinWait, time.Second)
}

// MaxBackoff returns the backoff ceiling with a sane default.
func (r RetryConfig) MaxBackoff() time.Duration {
	return parseDuration(r.MaxWait, 5*time.Second)
}

// Location returns the configured rendering zone, UTC when unset or invalid.
func (i InspectorConfig) Location() *time.Location {
	if i.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(i.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// GetHTTPPath returns the streamable HTTP mount path (default: /mcp).
func (m MCPConfig) GetHTTPPath() string {
	if m.HTTPPath == "" {
		return "/mcp"
	}
	return "/" + strings.TrimLeft(m.HTTPPath, "/")
}

// GetMaxRotated returns how many rotated trace files to keep (default: 3).
func (r RecorderConfig) GetMaxRotated() int {
	if r.MaxRotated <= 0 {
		return 3
	}
	return r.MaxRotated
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
