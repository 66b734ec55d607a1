package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
)

// AppGroup holds HTTP server and process settings.
type AppGroup struct {
	Port       string `env:"PORT" env-default:"8080" validate:"required"`
	Env        string `env:"APP_ENV" env-default:"production" validate:"oneof=production development test"`
	LogLevel   string `env:"LOG_LEVEL" env-default:"info" validate:"oneof=debug info warn error"`
	BodyLimit  int    `env:"BODY_LIMIT_BYTES" env-default:"104857600" validate:"gt=0"`
	StagingDir string `env:"STAGING_DIR" env-default:"uploads"`
}

// AuthConfig holds identity-provider token verification settings.
// Exactly one of KeysURL or HMACSecret selects the signing key source.
type AuthConfig struct {
	Issuer       string        `env:"AUTH_ISSUER"`
	Audience     string        `env:"AUTH_AUDIENCE"`
	KeysURL      string        `env:"AUTH_KEYS_URL" validate:"omitempty,url"`
	HMACSecret   string        `env:"AUTH_HMAC_SECRET"`
	Leeway       time.Duration `env:"AUTH_LEEWAY" env-default:"30s"`
	KeyRefresh   time.Duration `env:"AUTH_KEY_REFRESH" env-default:"1h" validate:"gt=0"`
	FetchTimeout time.Duration `env:"AUTH_KEY_FETCH_TIMEOUT" env-default:"5s" validate:"gt=0"`
}

// BlobConfig holds object storage settings. Backend "minio" talks to any S3-compatible endpoint
// through minio-go; "s3" uses the AWS SDK.
type BlobConfig struct {
	Backend   string `env:"BLOB_BACKEND" env-default:"minio" validate:"oneof=minio s3"`
	Endpoint  string `env:"BLOB_ENDPOINT"`
	Region    string `env:"BLOB_REGION" env-default:"us-east-1"`
	AccessKey string `env:"BLOB_ACCESS_KEY"`
	SecretKey string `env:"BLOB_SECRET_KEY"`
	Bucket    string `env:"BLOB_BUCKET" validate:"required"`
	UseSSL    bool   `env:"BLOB_USE_SSL" env-default:"false"`
	PathStyle bool   `env:"BLOB_PATH_STYLE" env-default:"false"`
}

// MetadataConfig selects and configures the file metadata store.
type MetadataConfig struct {
	Backend    string `env:"METADATA_BACKEND" env-default:"postgres" validate:"oneof=postgres dynamodb"`
	Table      string `env:"METADATA_TABLE" env-default:"files" validate:"required"`
	OwnerIndex string `env:"METADATA_OWNER_INDEX"`
	Region     string `env:"METADATA_REGION" env-default:"us-east-1"`
	Endpoint   string `env:"METADATA_ENDPOINT"`
}

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string `env:"DB_HOST"`
	Port               string `env:"DB_PORT" env-default:"5432"`
	User               string `env:"DB_USER"`
	Password           string `env:"DB_PASSWORD"`
	Name               string `env:"DB_NAME"`
	SSLMode            string `env:"DB_SSLMODE" env-default:"disable"`
	MaxOpenConns       int    `env:"DB_MAX_OPEN_CONNS" env-default:"10"`
	MaxIdleConns       int    `env:"DB_MAX_IDLE_CONNS" env-default:"5"`
	ConnMaxLifetimeSec int    `env:"DB_CONN_MAX_LIFETIME_SEC" env-default:"300"`
}

// RedisConfig is optional; an empty Addr disables the metadata cache and token revocation.
type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" env-default:"0"`
	CacheTTL time.Duration `env:"REDIS_CACHE_TTL" env-default:"5m"`
}

// ConsistencyConfig controls presigned URL lifetime and how blob/metadata divergence is handled.
type ConsistencyConfig struct {
	PresignTTL        time.Duration `env:"PRESIGN_TTL" validate:"required,gt=0"`
	Compensate        bool          `env:"CONSISTENCY_COMPENSATE" env-default:"false"`
	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" env-default:"0s"`
	ReconcileGrace    time.Duration `env:"RECONCILE_GRACE" env-default:"0s"`
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	App         AppGroup
	Auth        AuthConfig
	Blob        BlobConfig
	Metadata    MetadataConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Consistency ConsistencyConfig
}

// Load reads configuration from environment variables and validates it.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
func Load() (*AppConfig, error) {
	var cfg AppConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and cross-field rules.
func (c *AppConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if (c.Auth.KeysURL == "") == (c.Auth.HMACSecret == "") {
		return errors.New("invalid config: exactly one of AUTH_KEYS_URL or AUTH_HMAC_SECRET is required")
	}
	if c.Auth.KeysURL != "" && c.Auth.Audience == "" {
		return errors.New("invalid config: AUTH_AUDIENCE is required with AUTH_KEYS_URL")
	}
	if c.Blob.Backend == "minio" && (c.Blob.Endpoint == "" || c.Blob.AccessKey == "" || c.Blob.SecretKey == "") {
		return errors.New("invalid config: minio backend requires BLOB_ENDPOINT, BLOB_ACCESS_KEY and BLOB_SECRET_KEY")
	}
	if c.Metadata.Backend == "postgres" && (c.Database.Host == "" || c.Database.User == "" || c.Database.Name == "") {
		return errors.New("invalid config: postgres backend requires DB_HOST, DB_USER and DB_NAME")
	}
	if c.Consistency.ReconcileInterval < 0 {
		return errors.New("invalid config: RECONCILE_INTERVAL must not be negative")
	}
	if c.Consistency.ReconcileInterval > 0 && c.Consistency.ReconcileGrace <= 0 {
		return errors.New("invalid config: RECONCILE_GRACE is required when reconciliation is enabled")
	}
	return nil
}
