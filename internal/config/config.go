package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/catherinevee/stateops/internal/apperrors"
	"github.com/catherinevee/stateops/internal/logger"
)

// Config represents the application configuration
type Config struct {
	EnvironmentsRoot string            `yaml:"environments_root" validate:"required"`
	Phases           []string          `yaml:"phases" validate:"required,min=1,dive,required,excludesall=/\\"`
	Storage          StorageConfig     `yaml:"storage"`
	Backup           BackupConfig      `yaml:"backup"`
	Engine           EngineConfig      `yaml:"engine"`
	Credentials      CredentialsConfig `yaml:"credentials"`
	Logging          logger.Config     `yaml:"logging"`
}

// StorageConfig addresses the object-storage service holding remote state
type StorageConfig struct {
	Region        string `yaml:"region" validate:"required"`
	Endpoint      string `yaml:"endpoint" validate:"omitempty,url"`
	RetentionDays int    `yaml:"retention_days" validate:"gte=1"`
}

// BackupConfig controls where state snapshots are written
type BackupConfig struct {
	Root string `yaml:"root" validate:"required"`
}

// EngineConfig describes the provisioning engine binary
type EngineConfig struct {
	Binary     string        `yaml:"binary" validate:"required"`
	MinVersion string        `yaml:"min_version"`
	Timeout    time.Duration `yaml:"timeout"`
}

// CredentialsConfig names the environment variables carrying storage credentials.
// Mutating operations refuse to run when these are unset.
type CredentialsConfig struct {
	AccessKeyEnv string `yaml:"access_key_env"`
	SecretKeyEnv string `yaml:"secret_key_env"`
	ProjectIDEnv string `yaml:"project_id_env"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		EnvironmentsRoot: "environments",
		Phases:           []string{"infra", "coder"},
		Storage: StorageConfig{
			Region:        "us-east-1",
			RetentionDays: 90,
		},
		Backup: BackupConfig{
			Root: "backups",
		},
		Engine: EngineConfig{
			Binary:     "terraform",
			MinVersion: "1.3.0",
			Timeout:    15 * time.Minute,
		},
		Credentials: CredentialsConfig{
			AccessKeyEnv: "AWS_ACCESS_KEY_ID",
			SecretKeyEnv: "AWS_SECRET_ACCESS_KEY",
		},
		Logging: logger.Config{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
	}
}

// Load reads configuration from path, falling back to defaults when the file
// does not exist. Environment overrides are applied after the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides lets region and endpoint be overridden without editing the file
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STATEOPS_REGION"); v != "" {
		cfg.Storage.Region = v
	}
	if v := os.Getenv("STATEOPS_ENDPOINT"); v != "" {
		cfg.Storage.Endpoint = v
	}
	if v := os.Getenv("STATEOPS_ENGINE"); v != "" {
		cfg.Engine.Binary = v
	}
}

// Validate checks the configuration for structural problems
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return apperrors.Wrap(err, apperrors.ErrorTypeValidation, "invalid configuration")
	}
	return nil
}

// CheckCredentials verifies that the storage credentials required for
// mutating operations are present in the process environment.
func (c *Config) CheckCredentials() error {
	required := []string{c.Credentials.AccessKeyEnv, c.Credentials.SecretKeyEnv}
	if c.Credentials.ProjectIDEnv != "" {
		required = append(required, c.Credentials.ProjectIDEnv)
	}

	var missing []string
	for _, name := range required {
		if os.Getenv(name) == "" {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		return apperrors.NewPrerequisiteError("missing storage credentials: %v", missing).
			WithRemediation("export the listed environment variables and re-run")
	}
	return nil
}
