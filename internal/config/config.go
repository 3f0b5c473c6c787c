package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port          string `yaml:"port" env:"SERVER_PORT"`
		Mode          string `yaml:"mode" env:"SERVER_MODE"`
		StoragePath   string `yaml:"storage_path" env:"SERVER_STORAGE_PATH"`
		PublicURL     string `yaml:"public_url" env:"SERVER_PUBLIC_URL"`
		MigrationsDir string `yaml:"migrations_dir" env:"SERVER_MIGRATIONS_DIR"`
	} `yaml:"server"`

	Database struct {
		Driver          string `yaml:"driver" env:"DB_DRIVER"`
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
		TxRetries       int    `yaml:"tx_retries" env:"DB_TX_RETRIES"`
	} `yaml:"database"`

	JWT struct {
		Secret                string `yaml:"secret" env:"JWT_SECRET"`
		AccessTokenExpiration string `yaml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION"`
		Issuer                string `yaml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"jwt"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	Workflow struct {
		SeparateCoordinatorGate            bool   `yaml:"separate_coordinator_gate" env:"WORKFLOW_SEPARATE_COORDINATOR_GATE"`
		AllowRetrieveFromCoordinatorReview bool   `yaml:"allow_retrieve_from_coordinator_review" env:"WORKFLOW_ALLOW_RETRIEVE_FROM_COORDINATOR_REVIEW"`
		Timezone                           string `yaml:"timezone" env:"WORKFLOW_TIMEZONE"`
		DefaultDuration                    string `yaml:"default_duration" env:"WORKFLOW_DEFAULT_DURATION"`
	} `yaml:"workflow"`

	Scheduler struct {
		Enabled    bool   `yaml:"enabled" env:"SCHEDULER_ENABLED"`
		SweepCron  string `yaml:"sweep_cron" env:"SCHEDULER_SWEEP_CRON"`
		ResyncCron string `yaml:"resync_cron" env:"SCHEDULER_RESYNC_CRON"`
		DryRun     bool   `yaml:"dry_run" env:"SCHEDULER_DRY_RUN"`
	} `yaml:"scheduler"`

	Sync struct {
		OnReadyForFinance bool   `yaml:"on_ready_for_finance" env:"SYNC_ON_READY_FOR_FINANCE"`
		RatesFile         string `yaml:"rates_file" env:"SYNC_RATES_FILE"`
	} `yaml:"sync"`

	SMTP struct {
		Enabled    bool   `yaml:"enabled" env:"SMTP_ENABLED"`
		Host       string `yaml:"host" env:"SMTP_HOST"`
		Port       int    `yaml:"port" env:"SMTP_PORT"`
		Username   string `yaml:"username" env:"SMTP_USERNAME"`
		Password   string `yaml:"password" env:"SMTP_PASSWORD"`
		From       string `yaml:"from" env:"SMTP_FROM"`
		Recipients string `yaml:"recipients" env:"SMTP_RECIPIENTS"`
	} `yaml:"smtp"`

	Seed struct {
		FacultyFile string `yaml:"faculty_file" env:"SEED_FACULTY_FILE"`
	} `yaml:"seed"`
}

// LoadConfig loads configuration from a file and environment variables.
// A .env file in the working directory, when present, is loaded first.
func LoadConfig(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config := &Config{}
	setDefaults(config)

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	// Server defaults
	config.Server.Port = "8080"
	config.Server.Mode = "development"
	config.Server.StoragePath = "./storage"
	config.Server.PublicURL = "http://localhost:8080/files"
	config.Server.MigrationsDir = "./migrations"

	// Database defaults
	config.Database.Driver = "postgres"
	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "thesisflow"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"
	config.Database.TxRetries = 3

	// JWT defaults
	config.JWT.AccessTokenExpiration = "12h"
	config.JWT.Issuer = "thesisflow"

	// Logging defaults
	config.Logging.Level = "info"
	config.Logging.Format = "json"

	// Workflow defaults
	config.Workflow.Timezone = "Local"
	config.Workflow.DefaultDuration = "60m"

	// Scheduler defaults
	config.Scheduler.Enabled = true
	config.Scheduler.SweepCron = "*/15 * * * *"
	config.Scheduler.ResyncCron = "0 * * * *"

	// Sync defaults
	config.Sync.RatesFile = "./configs/honorarium_rates.yaml"

	config.SMTP.Port = 587
	config.Seed.FacultyFile = "./configs/faculty.yaml"
}

// loadFromEnv overrides configuration with environment variables
func loadFromEnv(config *Config) error {
	_, err := applyEnv(config)
	return err
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	switch config.Database.Driver {
	case "postgres":
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported database driver %q (want postgres or memory)", config.Database.Driver)
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if _, err := time.ParseDuration(config.JWT.AccessTokenExpiration); err != nil {
		return fmt.Errorf("invalid JWT access token expiration format: %w", err)
	}

	d, err := time.ParseDuration(config.Workflow.DefaultDuration)
	if err != nil {
		return fmt.Errorf("invalid workflow default duration: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("workflow default duration must be positive")
	}
	if _, err := time.LoadLocation(config.Workflow.Timezone); err != nil {
		return fmt.Errorf("invalid workflow timezone: %w", err)
	}

	if config.SMTP.Enabled && (config.SMTP.Host == "" || config.SMTP.From == "") {
		return fmt.Errorf("smtp host and from address are required when smtp is enabled")
	}

	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// Location returns the workflow timezone. validateConfig has already checked it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Workflow.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// DefaultDuration returns the assumed length of a defense with no end time.
func (c *Config) DefaultDuration() time.Duration {
	d, err := time.ParseDuration(c.Workflow.DefaultDuration)
	if err != nil || d <= 0 {
		return 60 * time.Minute
	}
	return d
}

// SMTPRecipients splits the comma separated recipient list.
func (c *Config) SMTPRecipients() []string {
	return splitList(c.SMTP.Recipients)
}
