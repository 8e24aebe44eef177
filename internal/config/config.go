package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration.
// It is built once at startup and passed to the components that need it.
type Config struct {
	Server struct {
		Host    string `yaml:"host" env:"SERVER_HOST"`
		Port    string `yaml:"port" env:"SERVER_PORT"`
		Mode    string `yaml:"mode" env:"SERVER_MODE"`
		Debug   bool   `yaml:"debug" env:"DEBUG"`
		BaseURL string `yaml:"base_url" env:"SERVER_BASE_URL"`
	} `yaml:"server"`

	Database struct {
		Driver          string `yaml:"driver" env:"DB_DRIVER"`
		Path            string `yaml:"path" env:"DB_PATH"`
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
	} `yaml:"database"`

	Session struct {
		Secret     string `yaml:"secret" env:"SECRET_KEY"`
		Expiration string `yaml:"expiration" env:"SESSION_EXPIRATION"`
		CookieName string `yaml:"cookie_name" env:"SESSION_COOKIE_NAME"`
		Issuer     string `yaml:"issuer" env:"SESSION_ISSUER"`
		Secure     bool   `yaml:"secure" env:"SESSION_SECURE"`
	} `yaml:"session"`

	Upload struct {
		Dir          string `yaml:"dir" env:"UPLOAD_DIR"`
		PublicPrefix string `yaml:"public_prefix" env:"UPLOAD_PUBLIC_PREFIX"`
		MaxSize      int64  `yaml:"max_size" env:"UPLOAD_MAX_SIZE"`
	} `yaml:"upload"`

	Credential struct {
		TemplatePath    string  `yaml:"template_path" env:"CREDENTIAL_TEMPLATE"`
		FontPath        string  `yaml:"font_path" env:"CREDENTIAL_FONT"`
		FontSize        float64 `yaml:"font_size" env:"CREDENTIAL_FONT_SIZE"`
		InstitutionCode string  `yaml:"institution_code" env:"CREDENTIAL_INSTITUTION_CODE"`
		EducationLevel  string  `yaml:"education_level" env:"CREDENTIAL_EDUCATION_LEVEL"`
		TrainingLevel   string  `yaml:"training_level" env:"CREDENTIAL_TRAINING_LEVEL"`
	} `yaml:"credential"`

	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
	} `yaml:"redis"`

	RateLimit struct {
		LoginPerMinute  int `yaml:"login_per_minute" env:"RATE_LIMIT_LOGIN"`
		SubmitPerMinute int `yaml:"submit_per_minute" env:"RATE_LIMIT_SUBMIT"`
	} `yaml:"rate_limit"`

	Search struct {
		Limit int `yaml:"limit" env:"SEARCH_LIMIT"`
	} `yaml:"search"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`
}

// Overrides holds values supplied on the command line. Nil fields are unset.
type Overrides struct {
	Host  *string
	Port  *int
	Debug *bool
}

// LoadConfig loads configuration from defaults, an optional .env file, an optional
// YAML or JSON config file and environment variables, in that order.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	// A missing .env file is not an error
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			file, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}

			// JSON is a subset of YAML, so config.json files parse here as well
			if err := yaml.Unmarshal(file, config); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	return config, nil
}

// Apply copies command line overrides onto the config and validates the result.
// Flags take precedence over every other source.
func (c *Config) Apply(o Overrides) error {
	if o.Host != nil {
		c.Server.Host = *o.Host
	}
	if o.Port != nil {
		c.Server.Port = strconv.Itoa(*o.Port)
	}
	if o.Debug != nil {
		c.Server.Debug = *o.Debug
	}

	if err := validateConfig(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	// Server defaults
	config.Server.Host = "0.0.0.0"
	config.Server.Port = "48088"
	config.Server.Mode = "development"

	// Database defaults
	config.Database.Driver = "sqlite3"
	config.Database.Path = "data/students.db"
	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.DBName = "xuexin"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"

	// Session defaults
	config.Session.Expiration = "2h"
	config.Session.CookieName = "xuexin_admin"
	config.Session.Issuer = "xuexinwang"

	// Upload defaults
	config.Upload.Dir = "uploads"
	config.Upload.PublicPrefix = "/uploads"
	config.Upload.MaxSize = 5 * 1024 * 1024

	// Credential image defaults
	config.Credential.TemplatePath = "static/collection_template.png"
	config.Credential.FontSize = 28
	config.Credential.InstitutionCode = "10460"
	config.Credential.EducationLevel = "本科"
	config.Credential.TrainingLevel = "普通全日制"

	config.RateLimit.LoginPerMinute = 10
	config.RateLimit.SubmitPerMinute = 30

	config.Search.Limit = 100

	// Logging defaults
	config.Logging.Level = "info"
	config.Logging.Format = "text"
}

// loadFromEnv overrides configuration with environment variables
func loadFromEnv(config *Config) error {
	return processStructFields(config)
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	if _, err := strconv.Atoi(config.Server.Port); err != nil {
		return fmt.Errorf("server port must be numeric: %q", config.Server.Port)
	}

	switch config.Database.Driver {
	case "sqlite3":
		if config.Database.Path == "" {
			return fmt.Errorf("database path is required for sqlite3")
		}
	case "postgres":
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", config.Database.Driver)
	}

	if config.Session.Secret == "" {
		if config.IsProduction() {
			return fmt.Errorf("session secret is required in production")
		}
		// Development only: sessions do not survive a restart
		config.Session.Secret = randomSecret()
	}

	if _, err := time.ParseDuration(config.Session.Expiration); err != nil {
		return fmt.Errorf("invalid session expiration format: %w", err)
	}

	if config.Upload.MaxSize <= 0 {
		return fmt.Errorf("upload max size must be positive")
	}

	if config.Search.Limit <= 0 {
		return fmt.Errorf("search limit must be positive")
	}

	return nil
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.ToLower(c.Server.Mode) == "production"
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, c.Server.Port)
}

// PublicBaseURL returns the configured external base URL without a trailing slash.
// Empty means lookup URLs are built from the incoming request.
func (c *Config) PublicBaseURL() string {
	return strings.TrimRight(c.Server.BaseURL, "/")
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

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 16)
	}
	return hex.EncodeToString(b)
}
