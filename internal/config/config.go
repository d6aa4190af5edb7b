// Package config loads tool configuration from a YAML file with
// environment variable overrides, creating a commented default file on
// first run.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/medalizaidi/nifi-jar-automation-option2/pkg/logging"
)

// Config is the full tool configuration.
type Config struct {
	NiFi     NiFiConfig     `yaml:"nifi"`
	Backup   BackupConfig   `yaml:"backup"`
	Logging  LoggingConfig  `yaml:"logging"`
	CircleCI CircleCIConfig `yaml:"circleci"`
}

// NiFiConfig locates and authenticates against the server.
type NiFiConfig struct {
	Host        string `yaml:"host" validate:"required,url"`
	Username    string `yaml:"username" validate:"required"`
	Password    string `yaml:"password"`
	InsecureTLS bool   `yaml:"insecure_tls"`
}

// BackupConfig controls where snapshots are stored. Bucket selects the
// GCS backend; LocalDir selects the filesystem backend. Exactly one
// should be set.
type BackupConfig struct {
	Bucket            string `yaml:"bucket"`
	Prefix            string `yaml:"prefix" validate:"required"`
	LocalDir          string `yaml:"local_dir"`
	RetentionDays     int    `yaml:"retention_days" validate:"gte=0"`
	ServiceAccountKey string `yaml:"service_account_key"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Dir   string `yaml:"dir"`
	JSON  bool   `yaml:"json"`
}

// CircleCIConfig holds the pipeline trigger settings.
type CircleCIConfig struct {
	Token       string `yaml:"token"`
	ProjectSlug string `yaml:"project_slug"`
	Branch      string `yaml:"branch"`
}

// Default returns the configuration used when no file exists yet.
func Default() Config {
	return Config{
		NiFi: NiFiConfig{
			Host:     "https://localhost:8443",
			Username: "admin",
		},
		Backup: BackupConfig{
			Prefix:        "nifi_backups",
			RetentionDays: 15,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		CircleCI: CircleCIConfig{
			Branch: "main",
		},
	}
}

// Load reads the config file, creating it with defaults if missing,
// then applies environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		if writeErr := WriteDefault(path); writeErr != nil {
			return cfg, writeErr
		}
	default:
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()

	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// WriteDefault writes a commented default config file.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	cfg := Default()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}

	header := "# nifictl configuration. Credentials are better supplied via\n" +
		"# NIFI_USERNAME / NIFI_PASSWORD than stored here.\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0o600); err != nil {
		return fmt.Errorf("write default config %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays the environment variables the scheduled jobs set.
func (c *Config) applyEnv() {
	setString(&c.NiFi.Host, "NIFI_HOST")
	setString(&c.NiFi.Username, "NIFI_USERNAME")
	setString(&c.NiFi.Password, "NIFI_PASSWORD")
	setBool(&c.NiFi.InsecureTLS, "NIFI_INSECURE_TLS")

	setString(&c.Backup.Bucket, "BACKUP_BUCKET")
	setString(&c.Backup.Prefix, "BACKUP_FOLDER")
	setString(&c.Backup.LocalDir, "BACKUP_LOCAL_DIR")
	setString(&c.Backup.ServiceAccountKey, "GOOGLE_APPLICATION_CREDENTIALS_FILE")
	setInt(&c.Backup.RetentionDays, "RETENTION_DAYS")

	setString(&c.Logging.Level, "LOG_LEVEL")

	setString(&c.CircleCI.Token, "CIRCLECI_TOKEN")
	setString(&c.CircleCI.ProjectSlug, "CIRCLECI_PROJECT_SLUG")
	setString(&c.CircleCI.Branch, "CIRCLECI_BRANCH")
}

// LoggerConfig translates the logging section for pkg/logging.
func (c Config) LoggerConfig(service string) logging.Config {
	level := logging.LevelInfo
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		level = logging.LevelDebug
	case "warn":
		level = logging.LevelWarn
	case "error":
		level = logging.LevelError
	}
	return logging.Config{
		Level:   level,
		LogDir:  c.Logging.Dir,
		Service: service,
		JSON:    c.Logging.JSON,
	}
}

// DefaultPath returns the per-user config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "nifictl.yaml"
	}
	return filepath.Join(home, ".config", "nifictl", "config.yaml")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			*dst = parsed
		}
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}
