package config

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v4"
)

// Config is the top-level application configuration.
type Config struct {
	LogLevel        string  `yaml:"log_level"`
	IntervalMinutes int     `yaml:"interval_minutes"`
	DBPath          string  `yaml:"db_path"`
	Source          Source  `yaml:"source"`
	Storage         Storage `yaml:"storage"`
}

// Source describes the mail account the archiver polls.
type Source struct {
	Protocol   string `yaml:"protocol"` // "imap" or "pop3"
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	UseTLS     bool   `yaml:"use_tls"`
	IMAPFolder string `yaml:"imap_folder"`
}

// Storage selects and configures the object-storage backend.
type Storage struct {
	Provider string `yaml:"provider"` // "s3", "gcs" or "azure"
	S3       S3     `yaml:"s3"`
	GCS      GCS    `yaml:"gcs"`
	Azure    Azure  `yaml:"azure"`
}

// S3 holds AWS S3 (or S3-compatible) connection parameters. When the
// access keys are empty the SDK's default credential chain is used.
type S3 struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Endpoint        string `yaml:"endpoint"`
}

// GCS holds Google Cloud Storage connection parameters. Credentials come
// from GOOGLE_APPLICATION_CREDENTIALS or the ambient service account.
type GCS struct {
	Bucket    string `yaml:"bucket"`
	ProjectID string `yaml:"project_id"`
}

// Azure holds Azure Blob Storage connection parameters.
type Azure struct {
	Container        string `yaml:"container"`
	ConnectionString string `yaml:"connection_string"`
}

// Interval returns the polling interval as a time.Duration.
func (c *Config) Interval() time.Duration {
	if c.IntervalMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// Lookback returns the listing window for one run. It equals the polling
// interval so consecutive runs have contiguous, slightly overlapping
// coverage; the ledger makes the overlap safe.
func (c *Config) Lookback() time.Duration {
	return c.Interval()
}

// GetDBPath returns the ledger database path, defaulting to metadata.db.
func (c *Config) GetDBPath() string {
	if c.DBPath == "" {
		return "metadata.db"
	}
	return c.DBPath
}

// GetIMAPFolder returns the IMAP folder name, defaulting to "INBOX".
func (s *Source) GetIMAPFolder() string {
	if s.IMAPFolder == "" {
		return "INBOX"
	}
	return s.IMAPFolder
}

// GetRegion returns the AWS region, defaulting to us-east-1.
func (s *S3) GetRegion() string {
	if s.Region == "" {
		return "us-east-1"
	}
	return s.Region
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{
		LogLevel: "info",
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.IntervalMinutes < 0 {
		return fmt.Errorf("interval_minutes must be >= 1")
	}
	if c.Source.Protocol != "imap" && c.Source.Protocol != "pop3" {
		return fmt.Errorf("source.protocol must be imap or pop3")
	}
	if c.Source.Host == "" {
		return fmt.Errorf("source.host is required")
	}
	if c.Source.Port == 0 {
		return fmt.Errorf("source.port is required")
	}
	switch c.Storage.Provider {
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required")
		}
	case "gcs":
		if c.Storage.GCS.Bucket == "" {
			return fmt.Errorf("storage.gcs.bucket is required")
		}
	case "azure":
		if c.Storage.Azure.Container == "" {
			return fmt.Errorf("storage.azure.container is required")
		}
		if c.Storage.Azure.ConnectionString == "" {
			return fmt.Errorf("storage.azure.connection_string is required")
		}
	default:
		return fmt.Errorf("storage.provider must be s3, gcs or azure")
	}
	return nil
}
