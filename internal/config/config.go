package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the application configuration shared by the app and admin services
type Config struct {
	Server     ServerConfig     `json:"server"`
	Database   DatabaseConfig   `json:"database"`
	Security   SecurityConfig   `json:"security"`
	Authz      AuthzConfig      `json:"authz"`
	Compliance ComplianceConfig `json:"compliance"`
	Storage    StorageConfig    `json:"storage"`
	Cache      CacheConfig      `json:"cache"`
	Dashboard  DashboardConfig  `json:"dashboard"`
	Notify     NotifyConfig     `json:"notify"`
	Logging    LoggingConfig    `json:"logging"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	ReadTimeout    time.Duration `json:"read_timeout"`
	WriteTimeout   time.Duration `json:"write_timeout"`
	IdleTimeout    time.Duration `json:"idle_timeout"`
	AllowedOrigins []string      `json:"allowed_origins"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	User           string        `json:"user"`
	Password       string        `json:"password"`
	DBName         string        `json:"db_name"`
	SSLMode        string        `json:"ssl_mode"`
	MaxConnections int           `json:"max_connections"`
	MaxIdleConns   int           `json:"max_idle_conns"`
	MaxLifetime    time.Duration `json:"max_lifetime"`
	// ReportingURL points dashboard queries at a read replica. Empty means the primary.
	ReportingURL string `json:"reporting_url"`
}

// SecurityConfig holds session validation settings
type SecurityConfig struct {
	SessionSecret    string        `json:"session_secret"`
	SessionIssuer    string        `json:"session_issuer"`
	SessionCookie    string        `json:"session_cookie"`
	ImpersonationTTL time.Duration `json:"impersonation_ttl"`
}

// AuthzConfig selects how permission rows are applied
type AuthzConfig struct {
	Mode string `json:"mode"` // enforced | permissive
}

// ComplianceConfig holds the verification workflow settings
type ComplianceConfig struct {
	MaxDocumentBytes  int  `json:"max_document_bytes"`
	EnforceSuspension bool `json:"enforce_suspension"`
}

// StorageConfig configures the optional S3 document store
type StorageConfig struct {
	S3Bucket    string `json:"s3_bucket"`
	S3Region    string `json:"s3_region"`
	S3Endpoint  string `json:"s3_endpoint"`
	S3AccessKey string `json:"s3_access_key"`
	S3SecretKey string `json:"s3_secret_key"`
}

// CacheConfig configures the route cache
type CacheConfig struct {
	TTL      time.Duration `json:"ttl"`
	RedisURL string        `json:"redis_url"`
}

// DashboardConfig configures the admin dashboard aggregates
type DashboardConfig struct {
	RefreshCron string `json:"refresh_cron"`
}

// NotifyConfig configures review outcome email and events. Without a sender
// address notices are only logged; without a topic no event is published.
type NotifyConfig struct {
	SESFromAddress string `json:"ses_from_address"`
	Region         string `json:"region"`
	SNSTopicARN    string `json:"sns_topic_arn"`
}

// LoggingConfig
type LoggingConfig struct {
	Level       string `json:"level"`
	Development bool   `json:"development"`
}

// Default returns the configuration used when no file or environment overrides are present
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Host:           "localhost",
			Port:           5432,
			User:           os.Getenv("USER"),
			DBName:         "taxdesk",
			SSLMode:        "disable",
			MaxConnections: 25,
			MaxIdleConns:   5,
			MaxLifetime:    30 * time.Minute,
		},
		Security: SecurityConfig{
			SessionIssuer:    "taxdesk",
			SessionCookie:    "session",
			ImpersonationTTL: 15 * time.Minute,
		},
		Authz: AuthzConfig{
			Mode: "enforced",
		},
		Compliance: ComplianceConfig{
			MaxDocumentBytes: 5 << 20,
		},
		Storage: StorageConfig{
			S3Region: "us-east-1",
		},
		Cache: CacheConfig{
			TTL: 5 * time.Minute,
		},
		Dashboard: DashboardConfig{
			RefreshCron: "*/5 * * * *",
		},
		Notify: NotifyConfig{
			Region: "us-east-1",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from file and environment variables.
// A .env file in the working directory is read first when present.
func LoadConfig(configPath string) (*Config, error) {
	_ = godotenv.Load()

	config := Default()

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if err := overrideWithEnv(config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func overrideWithEnv(config *Config) error {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid SERVER_PORT: %w", err)
		}
		config.Server.Port = p
	}
	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbPort := os.Getenv("DATABASE_PORT"); dbPort != "" {
		p, err := strconv.Atoi(dbPort)
		if err != nil {
			return fmt.Errorf("invalid DATABASE_PORT: %w", err)
		}
		config.Database.Port = p
	}
	if dbUser := os.Getenv("DATABASE_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPass := os.Getenv("DATABASE_PASSWORD"); dbPass != "" {
		config.Database.Password = dbPass
	}
	if dbName := os.Getenv("DATABASE_DBNAME"); dbName != "" {
		config.Database.DBName = dbName
	}
	if sslMode := os.Getenv("DATABASE_SSLMODE"); sslMode != "" {
		config.Database.SSLMode = sslMode
	}
	if url := os.Getenv("DATABASE_REPORTING_URL"); url != "" {
		config.Database.ReportingURL = url
	}
	if secret := os.Getenv("SESSION_SECRET"); secret != "" {
		config.Security.SessionSecret = secret
	}
	if cookie := os.Getenv("SESSION_COOKIE"); cookie != "" {
		config.Security.SessionCookie = cookie
	}
	if mode := os.Getenv("AUTHZ_MODE"); mode != "" {
		config.Authz.Mode = mode
	}
	if enforce := os.Getenv("COMPLIANCE_ENFORCE_SUSPENSION"); enforce != "" {
		b, err := strconv.ParseBool(enforce)
		if err != nil {
			return fmt.Errorf("invalid COMPLIANCE_ENFORCE_SUSPENSION: %w", err)
		}
		config.Compliance.EnforceSuspension = b
	}
	if bucket := os.Getenv("S3_BUCKET"); bucket != "" {
		config.Storage.S3Bucket = bucket
	}
	if region := os.Getenv("S3_REGION"); region != "" {
		config.Storage.S3Region = region
	}
	if endpoint := os.Getenv("S3_ENDPOINT"); endpoint != "" {
		config.Storage.S3Endpoint = endpoint
	}
	if ak := os.Getenv("S3_ACCESS_KEY"); ak != "" {
		config.Storage.S3AccessKey = ak
	}
	if sk := os.Getenv("S3_SECRET_KEY"); sk != "" {
		config.Storage.S3SecretKey = sk
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		config.Cache.RedisURL = redisURL
	}
	if from := os.Getenv("SES_FROM_ADDRESS"); from != "" {
		config.Notify.SESFromAddress = from
	}
	if region := os.Getenv("NOTIFY_REGION"); region != "" {
		config.Notify.Region = region
	}
	if arn := os.Getenv("SNS_TOPIC_ARN"); arn != "" {
		config.Notify.SNSTopicARN = arn
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if dev := os.Getenv("LOG_DEVELOPMENT"); dev != "" {
		b, err := strconv.ParseBool(dev)
		if err != nil {
			return fmt.Errorf("invalid LOG_DEVELOPMENT: %w", err)
		}
		config.Logging.Development = b
	}
	return nil
}

// Validate checks settings that cannot be defaulted safely
func (c *Config) Validate() error {
	if c.Security.SessionSecret == "" {
		return fmt.Errorf("session secret is required")
	}
	if c.Authz.Mode != "enforced" && c.Authz.Mode != "permissive" {
		return fmt.Errorf("authz mode must be enforced or permissive, got %q", c.Authz.Mode)
	}
	if c.Compliance.MaxDocumentBytes <= 0 {
		return fmt.Errorf("compliance max_document_bytes must be positive")
	}
	return nil
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetReportingURL returns the read replica URL, falling back to the primary
func (c *DatabaseConfig) GetReportingURL() string {
	if c.ReportingURL != "" {
		return c.ReportingURL
	}
	return c.GetDatabaseURL()
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
