package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func writeWorkspace(t *testing.T, root, content string) {
	t.Helper()
	wsDir := filepath.Join(root, WorkspaceDirName)
	if err := os.MkdirAll(wsDir, 0755); err != nil {
		t.Fatalf("failed to create workspace dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(wsDir, WorkspaceConfigFile), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write workspace config: %v", err)
	}
}

func TestDiscoverWorkspace_Found(t *testing.T) {
	tmpDir := t.TempDir()
	writeWorkspace(t, tmpDir, "server:\n  name: test\n")

	result, err := DiscoverWorkspace(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != tmpDir {
		t.Errorf("expected %q, got %q", tmpDir, result)
	}
}

func TestDiscoverWorkspace_WalkUp(t *testing.T) {
	tmpDir := t.TempDir()
	writeWorkspace(t, tmpDir, "server:\n  name: test\n")

	nested := filepath.Join(tmpDir, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("failed to create nested dirs: %v", err)
	}

	result, err := DiscoverWorkspace(nested)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != tmpDir {
		t.Errorf("expected %q, got %q", tmpDir, result)
	}
}

func TestDiscoverWorkspace_NotFound(t *testing.T) {
	tmpDir := t.TempDir()

	result, err := DiscoverWorkspace(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "" {
		t.Errorf("expected empty string, got %q", result)
	}
}

func TestDiscoverWorkspace_MaxDepth(t *testing.T) {
	tmpDir := t.TempDir()
	writeWorkspace(t, tmpDir, "server:\n  name: test\n")

	parts := make([]string, MaxSearchDepth+2)
	parts[0] = tmpDir
	for i := 1; i <= MaxSearchDepth+1; i++ {
		parts[i] = "d"
	}
	deepPath := filepath.Join(parts...)
	if err := os.MkdirAll(deepPath, 0755); err != nil {
		t.Fatalf("failed to create deep path: %v", err)
	}

	result, err := DiscoverWorkspace(deepPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "" {
		t.Errorf("expected empty string (beyond max depth), got %q", result)
	}
}

func TestLoadWithWorkspace_DefaultsOnly(t *testing.T) {
	cfg, wsDir, err := LoadWithWorkspace("", WorkspaceOptions{Disable: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wsDir != "" {
		t.Errorf("expected empty workspace dir, got %q", wsDir)
	}
	if cfg.Server.Name != "sitefinity-mcp" {
		t.Errorf("expected default server name, got %q", cfg.Server.Name)
	}
	if cfg.Recorder.Enabled {
		t.Error("expected Recorder.Enabled to be false by default")
	}
}

func TestLoadWithWorkspace_WorkspaceOverridesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	writeWorkspace(t, tmpDir, `
sitefinity:
  site_prefix: "https://cms.example.com"
  auth:
    type: basic
    username: editor
    password: secret
inspector:
  cors_origins:
    - https://a.example.com
    - https://b.example.com
`)

	cfg, resultDir, err := LoadWithWorkspace("", WorkspaceOptions{ExplicitDir: tmpDir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resultDir != tmpDir {
		t.Errorf("expected workspace dir %q, got %q", tmpDir, resultDir)
	}
	if cfg.Sitefinity.SitePrefix != "https://cms.example.com" {
		t.Errorf("expected site prefix from workspace, got %q", cfg.Sitefinity.SitePrefix)
	}
	if cfg.Sitefinity.Auth.Type != AuthBasic || cfg.Sitefinity.Auth.Username != "editor" {
		t.Errorf("expected basic auth from workspace, got %+v", cfg.Sitefinity.Auth)
	}
	if len(cfg.Inspector.CORSOrigins) != 2 || cfg.Inspector.CORSOrigins[0] != "https://a.example.com" {
		t.Errorf("expected two CORS origins, got %v", cfg.Inspector.CORSOrigins)
	}
	// Defaults for unset fields should remain
	if cfg.Sitefinity.ContentService != "api/default" {
		t.Errorf("expected default content service, got %q", cfg.Sitefinity.ContentService)
	}
}

func TestLoadWithWorkspace_ExplicitOverridesWorkspace(t *testing.T) {
	tmpDir := t.TempDir()
	writeWorkspace(t, tmpDir, `
inspector:
  cors_origins:
    - https://workspace.example.com
`)

	explicitPath := filepath.Join(tmpDir, "explicit.yaml")
	explicitConfig := `
inspector:
  cors_origins:
    - https://explicit.example.com
    - https://other.example.com
`
	if err := os.WriteFile(explicitPath, []byte(explicitConfig), 0644); err != nil {
		t.Fatalf("failed to write explicit config: %v", err)
	}

	cfg, _, err := LoadWithWorkspace(explicitPath, WorkspaceOptions{ExplicitDir: tmpDir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Inspector.CORSOrigins) != 2 || cfg.Inspector.CORSOrigins[0] != "https://explicit.example.com" {
		t.Errorf("expected explicit origins to override workspace, got %v", cfg.Inspector.CORSOrigins)
	}
}

func TestLoadWithWorkspace_EnvOverridesFiles(t *testing.T) {
	tmpDir := t.TempDir()
	writeWorkspace(t, tmpDir, `
sitefinity:
  site_prefix: "https://workspace.example.com"
`)
	t.Setenv("SITEFINITY_SITE_PREFIX", "https://env.example.com")
	t.Setenv("PORT", "9090")

	cfg, _, err := LoadWithWorkspace("", WorkspaceOptions{ExplicitDir: tmpDir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Sitefinity.SitePrefix != "https://env.example.com" {
		t.Errorf("expected env site prefix, got %q", cfg.Sitefinity.SitePrefix)
	}
	if cfg.Inspector.Addr != ":9090" {
		t.Errorf("expected addr :9090, got %q", cfg.Inspector.Addr)
	}
}

func TestLoadWithWorkspace_PartialYAML(t *testing.T) {
	tmpDir := t.TempDir()
	writeWorkspace(t, tmpDir, `
sitefinity:
  retry:
    max_attempts: 5
`)

	cfg, _, err := LoadWithWorkspace("", WorkspaceOptions{ExplicitDir: tmpDir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Sitefinity.Retry.MaxAttempts != 5 {
		t.Errorf("expected max attempts 5, got %d", cfg.Sitefinity.Retry.MaxAttempts)
	}
	if cfg.Sitefinity.Retry.MinWait != "1s" {
		t.Errorf("expected default min wait 1s, got %q", cfg.Sitefinity.Retry.MinWait)
	}
	if cfg.Server.Name != "sitefinity-mcp" {
		t.Errorf("expected default server name, got %q", cfg.Server.Name)
	}
}

func TestLoadWithWorkspace_Disabled(t *testing.T) {
	tmpDir := t.TempDir()
	writeWorkspace(t, tmpDir, `
recorder:
  enabled: true
`)

	cfg, resultDir, err := LoadWithWorkspace("", WorkspaceOptions{Disable: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resultDir != "" {
		t.Errorf("expected empty workspace dir with Disable, got %q", resultDir)
	}
	if cfg.Recorder.Enabled {
		t.Error("expected Recorder.Enabled to be false when workspace disabled")
	}
}

func TestLoadWithWorkspace_InvalidWorkspaceYAML(t *testing.T) {
	tmpDir := t.TempDir()
	writeWorkspace(t, tmpDir, "sitefinity: [unclosed")

	if _, _, err := LoadWithWorkspace("", WorkspaceOptions{ExplicitDir: tmpDir}); err == nil {
		t.Error("expected error for invalid workspace YAML")
	}
}

func TestResolveWorkspacePaths_Relative(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := Config{
		Server:   ServerConfig{LogFile: "sitefinity-mcp.log"},
		Recorder: RecorderConfig{Dir: "traces"},
	}

	resolved := resolveWorkspacePaths(cfg, tmpDir)

	expected := filepath.Join(tmpDir, WorkspaceDirName, "sitefinity-mcp.log")
	if resolved.Server.LogFile != expected {
		t.Errorf("expected log file %q, got %q", expected, resolved.Server.LogFile)
	}
	expected = filepath.Join(tmpDir, WorkspaceDirName, "traces")
	if resolved.Recorder.Dir != expected {
		t.Errorf("expected recorder dir %q, got %q", expected, resolved.Recorder.Dir)
	}
}

func TestResolveWorkspacePaths_AbsoluteUntouched(t *testing.T) {
	wsDir := t.TempDir()

	var absLog, absTraces string
	if runtime.GOOS == "windows" {
		absLog = `C:\var\log\sitefinity.log`
		absTraces = `C:\tmp\traces`
	} else {
		absLog = "/var/log/sitefinity.log"
		absTraces = "/tmp/traces"
	}

	cfg := Config{
		Server:   ServerConfig{LogFile: absLog},
		Recorder: RecorderConfig{Dir: absTraces},
	}

	resolved := resolveWorkspacePaths(cfg, wsDir)

	if resolved.Server.LogFile != absLog {
		t.Errorf("expected absolute log file untouched %q, got %q", absLog, resolved.Server.LogFile)
	}
	if resolved.Recorder.Dir != absTraces {
		t.Errorf("expected absolute recorder dir untouched %q, got %q", absTraces, resolved.Recorder.Dir)
	}
}

func TestInitWorkspace_Creates(t *testing.T) {
	tmpDir := t.TempDir()

	if err := InitWorkspace(tmpDir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wsDir := filepath.Join(tmpDir, WorkspaceDirName)
	for _, path := range []string{wsDir, filepath.Join(wsDir, "traces")} {
		info, err := os.Stat(path)
		if err != nil {
			t.Errorf("expected directory %q to exist: %v", path, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("expected %q to be a directory", path)
		}
	}

	data, err := os.ReadFile(filepath.Join(wsDir, WorkspaceConfigFile))
	if err != nil {
		t.Fatalf("failed to read config template: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected non-empty config template")
	}

	data, err = os.ReadFile(filepath.Join(wsDir, ".gitignore"))
	if err != nil {
		t.Fatalf("failed to read .gitignore: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected non-empty .gitignore")
	}

	// The template is entirely commented out, so it loads as defaults.
	if _, _, err := LoadWithWorkspace("", WorkspaceOptions{ExplicitDir: tmpDir}); err != nil {
		t.Errorf("expected template workspace to load, got %v", err)
	}
}

func TestInitWorkspace_AlreadyExists(t *testing.T) {
	tmpDir := t.TempDir()

	if err := InitWorkspace(tmpDir); err != nil {
		t.Fatalf("first init failed: %v", err)
	}

	if err := InitWorkspace(tmpDir); err == nil {
		t.Error("expected error when workspace already exists")
	}
}
