// internal/config/config.go
//
// This package handles configuration and the .fieldaudit directory structure.
// Every project directory fieldaudit runs in gets a .fieldaudit/ folder that
// holds the local store, logs, exports and backups.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// AppDir is the name of the directory we create in each project
	AppDir = ".fieldaudit"

	defaultOrganization  = "PESQUERA EXALMAR S.A.A."
	defaultReportModel   = "gemini-3-flash-preview"
	defaultPlanModel     = "gemini-3-pro-preview"
	defaultMaxImagePx    = 1600
	defaultRedisAddr     = "localhost:6379"
	defaultRedisPrefix   = "fieldaudit:"
	defaultBackupPrefix  = "backups/"
	defaultFallbackAdmin = "admin@admin.com"
	defaultLogLevel      = "info"
)

// Storage backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// Backup sinks.
const (
	SinkDir = "dir"
	SinkGCS = "gcs"
)

const defaultProjectConfigYAML = `# fieldaudit project configuration
version: 1

# Organisation name printed on exported memos.
organization: "PESQUERA EXALMAR S.A.A."

generator:
  report_model: gemini-3-flash-preview
  plan_model: gemini-3-pro-preview
  # Longest edge, in pixels, photos are scaled down to before upload. 0 disables.
  max_image_px: 1600

storage:
  backend: file
  # redis_addr: localhost:6379
  # redis_prefix: "fieldaudit:"

backup:
  sink: dir
  # Use sink: gcs with a bucket to keep backups in Cloud Storage.
  # bucket: my-audit-backups
  # prefix: backups/
  # credentials_file: /path/to/service-account.json

auth:
  fallback_admin: admin@admin.com

log:
  level: info
`

// GeneratorConfig selects the models used for report and plan drafting.
type GeneratorConfig struct {
	ReportModel string `yaml:"report_model"`
	PlanModel   string `yaml:"plan_model"`
	MaxImagePx  int    `yaml:"max_image_px"`
}

// StorageConfig selects the key/value backend behind the local store.
type StorageConfig struct {
	Backend     string `yaml:"backend"`
	RedisAddr   string `yaml:"redis_addr,omitempty"`
	RedisPrefix string `yaml:"redis_prefix,omitempty"`
}

// BackupConfig selects where backup bundles are written.
type BackupConfig struct {
	Sink            string `yaml:"sink"`
	Bucket          string `yaml:"bucket,omitempty"`
	Prefix          string `yaml:"prefix,omitempty"`
	CredentialsFile string `yaml:"credentials_file,omitempty"`
}

// AuthConfig holds the local login settings.
type AuthConfig struct {
	FallbackAdmin string `yaml:"fallback_admin"`
}

// LogConfig controls the diagnostic log.
type LogConfig struct {
	Level string `yaml:"level"`
}

// ProjectConfig models .fieldaudit/config.yaml.
type ProjectConfig struct {
	Version      int             `yaml:"version"`
	Organization string          `yaml:"organization"`
	Generator    GeneratorConfig `yaml:"generator"`
	Storage      StorageConfig   `yaml:"storage"`
	Backup       BackupConfig    `yaml:"backup"`
	Auth         AuthConfig      `yaml:"auth"`
	Log          LogConfig       `yaml:"log"`
}

// Config holds the runtime configuration for fieldaudit.
type Config struct {
	// ProjectDir is the directory where the user ran `fieldaudit` from
	ProjectDir string

	// AppProjectDir is ProjectDir/.fieldaudit
	AppProjectDir string

	Project ProjectConfig
}

// InitDir creates the .fieldaudit directory structure in the given project directory.
//
// Structure created:
// .fieldaudit/
// ├── state/     <- local store records (one JSON file per key)
// ├── logs/      <- diagnostic log and journey logbook
// ├── exports/   <- spreadsheet and document exports
// ├── backups/   <- backup bundles written by the dir sink
// └── config.yaml
func InitDir(projectDir string) error {
	appDir := filepath.Join(projectDir, AppDir)
	dirs := []string{
		filepath.Join(appDir, "state"),
		filepath.Join(appDir, "logs"),
		filepath.Join(appDir, "exports"),
		filepath.Join(appDir, "backups"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return ensureProjectConfig(filepath.Join(appDir, "config.yaml"))
}

// NewConfig creates a new Config populated with project settings. Any .env
// file in the project or .fieldaudit directory is loaded into the process
// environment without overriding variables that are already set.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:    projectDir,
		AppProjectDir: filepath.Join(projectDir, AppDir),
		Project:       defaultProjectConfig(),
	}
	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// StateDir returns the path to the local store directory
func (c *Config) StateDir() string {
	return filepath.Join(c.AppProjectDir, "state")
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.AppProjectDir, "logs")
}

// ExportsDir returns the path where report exports are written
func (c *Config) ExportsDir() string {
	return filepath.Join(c.AppProjectDir, "exports")
}

// BackupsDir returns the path used by the directory backup sink
func (c *Config) BackupsDir() string {
	return filepath.Join(c.AppProjectDir, "backups")
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.AppProjectDir, "config.yaml")
}

// APIKey returns the generative-AI credential, or "" when none is configured.
func (c *Config) APIKey() string {
	for _, name := range []string{"GEMINI_API_KEY", "API_KEY"} {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}

// FallbackAdmin returns the email that may always log in as an audit manager.
func (c *Config) FallbackAdmin() string {
	return c.Project.Auth.FallbackAdmin
}

func (c *Config) loadEnv() error {
	for _, path := range []string{
		filepath.Join(c.AppProjectDir, ".env"),
		filepath.Join(c.ProjectDir, ".env"),
	} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("config: load %s: %w", path, err)
		}
	}
	return nil
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	parsed := defaultProjectConfig()
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize(c.ProjectDir)
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version:      1,
		Organization: defaultOrganization,
		Generator: GeneratorConfig{
			ReportModel: defaultReportModel,
			PlanModel:   defaultPlanModel,
			MaxImagePx:  defaultMaxImagePx,
		},
		Storage: StorageConfig{Backend: BackendFile},
		Backup:  BackupConfig{Sink: SinkDir, Prefix: defaultBackupPrefix},
		Auth:    AuthConfig{FallbackAdmin: defaultFallbackAdmin},
		Log:     LogConfig{Level: defaultLogLevel},
	}
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if strings.TrimSpace(pc.Generator.ReportModel) == "" {
		pc.Generator.ReportModel = defaultReportModel
	}
	if strings.TrimSpace(pc.Generator.PlanModel) == "" {
		pc.Generator.PlanModel = defaultPlanModel
	}
	if pc.Storage.Backend == "" {
		pc.Storage.Backend = BackendFile
	}
	if normalizeChoice(pc.Storage.Backend) == BackendRedis {
		if pc.Storage.RedisAddr == "" {
			pc.Storage.RedisAddr = defaultRedisAddr
		}
		if pc.Storage.RedisPrefix == "" {
			pc.Storage.RedisPrefix = defaultRedisPrefix
		}
	}
	if pc.Backup.Sink == "" {
		pc.Backup.Sink = SinkDir
	}
	if pc.Log.Level == "" {
		pc.Log.Level = defaultLogLevel
	}
}

func (pc *ProjectConfig) normalize(base string) {
	pc.Organization = strings.TrimSpace(pc.Organization)
	pc.Storage.Backend = normalizeChoice(pc.Storage.Backend)
	pc.Storage.RedisAddr = strings.TrimSpace(pc.Storage.RedisAddr)
	pc.Backup.Sink = normalizeChoice(pc.Backup.Sink)
	pc.Backup.Bucket = strings.TrimSpace(pc.Backup.Bucket)
	pc.Backup.CredentialsFile = resolvePath(base, pc.Backup.CredentialsFile)
	pc.Auth.FallbackAdmin = strings.ToLower(strings.TrimSpace(pc.Auth.FallbackAdmin))
	pc.Log.Level = normalizeChoice(pc.Log.Level)
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if pc.Generator.MaxImagePx < 0 {
		return fmt.Errorf("generator.max_image_px must be >= 0")
	}
	switch pc.Storage.Backend {
	case BackendFile:
	case BackendRedis:
		if pc.Storage.RedisAddr == "" {
			return fmt.Errorf("storage.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("storage.backend must be 'file' or 'redis'")
	}
	switch pc.Backup.Sink {
	case SinkDir:
	case SinkGCS:
		if pc.Backup.Bucket == "" {
			return fmt.Errorf("backup.bucket is required for the gcs sink")
		}
	default:
		return fmt.Errorf("backup.sink must be 'dir' or 'gcs'")
	}
	return nil
}

func normalizeChoice(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644)
}
