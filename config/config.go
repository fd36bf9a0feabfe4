// Package config loads service settings from config.yml, a .env file and the
// environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// DefaultJWTSecret is the placeholder signing key. serve refuses to start with it.
const DefaultJWTSecret = "your-default-secret-key-change-in-production"

const (
	BackendSQLite = "sqlite"
	BackendS3     = "s3"
	BackendFile   = "file"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Auth    AuthConfig    `yaml:"auth"`
	SMTP    SMTPConfig    `yaml:"smtp"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	Port           string   `yaml:"port" env:"PORT"`
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ORIGINS"`
	StaticDir      string   `yaml:"static_dir" env:"STATIC_DIR"`
}

type AuthConfig struct {
	JWTSecret    string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	TokenTTL     time.Duration `yaml:"token_ttl" env:"TOKEN_TTL"`
	MagicLinkTTL time.Duration `yaml:"magic_link_ttl" env:"MAGIC_LINK_TTL"`

	// ExposeMagicLink returns the login link in the API response. Development only.
	ExposeMagicLink bool `yaml:"expose_magic_link" env:"EXPOSE_MAGIC_LINK"`
}

type SMTPConfig struct {
	Host     string `yaml:"host" env:"SMTP_HOST"`
	Port     string `yaml:"port" env:"SMTP_PORT"`
	Username string `yaml:"username" env:"SMTP_USERNAME"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
	From     string `yaml:"from" env:"SMTP_FROM"`
}

// StorageConfig selects where board documents live. Users always live in sqlite.
type StorageConfig struct {
	Backend     string   `yaml:"backend" env:"STORAGE_BACKEND"`
	SQLitePath  string   `yaml:"sqlite_path" env:"DATABASE_PATH"`
	LocalDir    string   `yaml:"local_dir" env:"LOCAL_STORAGE_DIR"`
	LocalMirror bool     `yaml:"local_mirror" env:"LOCAL_MIRROR"`
	S3          S3Config `yaml:"s3"`
}

// S3Config works with AWS and S3-compatible services such as MinIO.
type S3Config struct {
	Endpoint     string `yaml:"endpoint" env:"S3_ENDPOINT"`
	Bucket       string `yaml:"bucket" env:"S3_BUCKET"`
	Region       string `yaml:"region" env:"S3_REGION"`
	AccessKey    string `yaml:"access_key" env:"S3_ACCESS_KEY"`
	SecretKey    string `yaml:"secret_key" env:"S3_SECRET_KEY"`
	Prefix       string `yaml:"prefix" env:"S3_PREFIX"`
	UsePathStyle bool   `yaml:"use_path_style" env:"S3_USE_PATH_STYLE"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:           "3001",
			AllowedOrigins: []string{"*"},
			StaticDir:      "",
		},
		Auth: AuthConfig{
			JWTSecret:    DefaultJWTSecret,
			TokenTTL:     7 * 24 * time.Hour,
			MagicLinkTTL: 15 * time.Minute,
		},
		Storage: StorageConfig{
			Backend:    BackendSQLite,
			SQLitePath: "./kanban.db",
			LocalDir:   "./data",
			S3:         S3Config{Region: "us-east-1", UsePathStyle: true},
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration. path may point at a missing file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	if err := LoadEnv(".env"); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendSQLite, BackendFile:
	case BackendS3:
		if c.Storage.S3.Bucket == "" {
			return errors.New("storage.s3.bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret cannot be empty")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.token_ttl must be positive")
	}
	return nil
}
