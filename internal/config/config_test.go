package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadProjectConfigDefaultsWhenMissing(t *testing.T) {
	projectDir := t.TempDir()
	appDir := filepath.Join(projectDir, AppDir)
	if err := os.MkdirAll(appDir, 0755); err != nil {
		t.Fatal(err)
	}
	c := &Config{ProjectDir: projectDir, AppProjectDir: appDir, Project: defaultProjectConfig()}
	if err := c.loadProjectConfig(); err != nil {
		t.Fatalf("loadProjectConfig returned error: %v", err)
	}
	if c.Project.Version != 1 {
		t.Fatalf("expected default version == 1, got %d", c.Project.Version)
	}
	if c.Project.Storage.Backend != BackendFile {
		t.Fatalf("expected file backend, got %q", c.Project.Storage.Backend)
	}
	if c.FallbackAdmin() != defaultFallbackAdmin {
		t.Fatalf("expected fallback admin %q, got %q", defaultFallbackAdmin, c.FallbackAdmin())
	}
}

func TestInitDirWritesDefaultConfig(t *testing.T) {
	projectDir := t.TempDir()
	if err := InitDir(projectDir); err != nil {
		t.Fatalf("init dir: %v", err)
	}
	for _, sub := range []string{"state", "logs", "exports", "backups"} {
		if info, err := os.Stat(filepath.Join(projectDir, AppDir, sub)); err != nil || !info.IsDir() {
			t.Fatalf("expected %s directory, err=%v", sub, err)
		}
	}
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("new config: %v", err)
	}
	if cfg.Project.Generator.ReportModel != defaultReportModel {
		t.Fatalf("report model = %q, want %q", cfg.Project.Generator.ReportModel, defaultReportModel)
	}
	if cfg.Project.Organization != defaultOrganization {
		t.Fatalf("organization = %q", cfg.Project.Organization)
	}
}

func TestLoadProjectConfigParsesYaml(t *testing.T) {
	projectDir := t.TempDir()
	appDir := filepath.Join(projectDir, AppDir)
	if err := os.MkdirAll(appDir, 0755); err != nil {
		t.Fatal(err)
	}
	configYAML := strings.TrimSpace(`
version: 1
organization: "  Acme Audit  "
generator:
  report_model: custom-flash
  max_image_px: 800
storage:
  backend: Redis
backup:
  sink: gcs
  bucket: audit-backups
  credentials_file: keys/sa.json
auth:
  fallback_admin: " Boss@Corp.com "
`)
	if err := os.WriteFile(filepath.Join(appDir, "config.yaml"), []byte(configYAML), 0644); err != nil {
		t.Fatal(err)
	}
	c := &Config{ProjectDir: projectDir, AppProjectDir: appDir, Project: defaultProjectConfig()}
	if err := c.loadProjectConfig(); err != nil {
		t.Fatalf("loadProjectConfig returned error: %v", err)
	}
	if c.Project.Organization != "Acme Audit" {
		t.Fatalf("organization not trimmed: %q", c.Project.Organization)
	}
	if c.Project.Generator.PlanModel != defaultPlanModel {
		t.Fatalf("plan model should default, got %q", c.Project.Generator.PlanModel)
	}
	if c.Project.Generator.MaxImagePx != 800 {
		t.Fatalf("max image px = %d", c.Project.Generator.MaxImagePx)
	}
	if c.Project.Storage.Backend != BackendRedis || c.Project.Storage.RedisAddr != defaultRedisAddr {
		t.Fatalf("redis defaults not applied: %+v", c.Project.Storage)
	}
	if !strings.HasPrefix(c.Project.Backup.CredentialsFile, projectDir) {
		t.Fatalf("expected credentials path to be resolved, got %s", c.Project.Backup.CredentialsFile)
	}
	if c.FallbackAdmin() != "boss@corp.com" {
		t.Fatalf("fallback admin = %q", c.FallbackAdmin())
	}
}

func TestLoadProjectConfigValidation(t *testing.T) {
	projectDir := t.TempDir()
	appDir := filepath.Join(projectDir, AppDir)
	if err := os.MkdirAll(appDir, 0755); err != nil {
		t.Fatal(err)
	}
	configYAML := strings.TrimSpace(`
version: 1
backup:
  sink: gcs
`)
	if err := os.WriteFile(filepath.Join(appDir, "config.yaml"), []byte(configYAML), 0644); err != nil {
		t.Fatal(err)
	}
	c := &Config{ProjectDir: projectDir, AppProjectDir: appDir, Project: defaultProjectConfig()}
	if err := c.loadProjectConfig(); err == nil {
		t.Fatalf("expected validation error but got none")
	}
}

func TestAPIKeyFromEnvFile(t *testing.T) {
	projectDir := t.TempDir()
	if err := InitDir(projectDir); err != nil {
		t.Fatalf("init dir: %v", err)
	}
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "")
	envPath := filepath.Join(projectDir, AppDir, ".env")
	if err := os.WriteFile(envPath, []byte("API_KEY=from-dotenv\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	// godotenv does not override variables that are already set, even when empty.
	os.Unsetenv("API_KEY")
	os.Unsetenv("GEMINI_API_KEY")
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("new config: %v", err)
	}
	if got := cfg.APIKey(); got != "from-dotenv" {
		t.Fatalf("api key = %q, want from-dotenv", got)
	}
}
