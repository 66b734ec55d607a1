package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Setenv("AUTH_HMAC_SECRET", "secret")
	t.Setenv("BLOB_ENDPOINT", "localhost:9000")
	t.Setenv("BLOB_ACCESS_KEY", "minio")
	t.Setenv("BLOB_SECRET_KEY", "minio123")
	t.Setenv("BLOB_BUCKET", "files")
	t.Setenv("DB_HOST", "test-host")
	t.Setenv("DB_USER", "filevault")
	t.Setenv("DB_NAME", "filevault")
	t.Setenv("PRESIGN_TTL", "15m")
}

func TestLoad(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DB_MAX_OPEN_CONNS", "20")
	t.Setenv("BLOB_USE_SSL", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.True(t, cfg.Blob.UseSSL)
	assert.Equal(t, 15*time.Minute, cfg.Consistency.PresignTTL)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "minio", cfg.Blob.Backend)
	assert.Equal(t, "postgres", cfg.Metadata.Backend)
	assert.Equal(t, "files", cfg.Metadata.Table)
	assert.Equal(t, time.Hour, cfg.Auth.KeyRefresh)
	assert.Zero(t, cfg.Consistency.ReconcileInterval)
}

func TestLoad_PresignTTLRequired(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("PRESIGN_TTL", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *AppConfig)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *AppConfig) {},
		},
		{
			name: "both key sources",
			mutate: func(c *AppConfig) {
				c.Auth.KeysURL = "https://keys.example.com/certs"
				c.Auth.Audience = "project"
			},
			wantErr: "exactly one of",
		},
		{
			name:    "no key source",
			mutate:  func(c *AppConfig) { c.Auth.HMACSecret = "" },
			wantErr: "exactly one of",
		},
		{
			name: "keys url without audience",
			mutate: func(c *AppConfig) {
				c.Auth.HMACSecret = ""
				c.Auth.KeysURL = "https://keys.example.com/certs"
			},
			wantErr: "AUTH_AUDIENCE",
		},
		{
			name:    "unknown blob backend",
			mutate:  func(c *AppConfig) { c.Blob.Backend = "gcs" },
			wantErr: "Backend",
		},
		{
			name:    "minio without endpoint",
			mutate:  func(c *AppConfig) { c.Blob.Endpoint = "" },
			wantErr: "BLOB_ENDPOINT",
		},
		{
			name: "s3 without endpoint is fine",
			mutate: func(c *AppConfig) {
				c.Blob.Backend = "s3"
				c.Blob.Endpoint = ""
			},
		},
		{
			name: "dynamodb does not need postgres",
			mutate: func(c *AppConfig) {
				c.Metadata.Backend = "dynamodb"
				c.Database = DatabaseConfig{}
			},
		},
		{
			name:    "reconcile without grace",
			mutate:  func(c *AppConfig) { c.Consistency.ReconcileInterval = time.Minute },
			wantErr: "RECONCILE_GRACE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func validConfig() *AppConfig {
	return &AppConfig{
		App: AppGroup{Port: "8080", Env: "test", LogLevel: "info", BodyLimit: 1024},
		Auth: AuthConfig{
			HMACSecret:   "secret",
			KeyRefresh:   time.Hour,
			FetchTimeout: time.Second,
		},
		Blob: BlobConfig{
			Backend:   "minio",
			Endpoint:  "localhost:9000",
			AccessKey: "a",
			SecretKey: "b",
			Bucket:    "files",
		},
		Metadata:    MetadataConfig{Backend: "postgres", Table: "files"},
		Database:    DatabaseConfig{Host: "h", Port: "5432", User: "u", Name: "n"},
		Consistency: ConsistencyConfig{PresignTTL: time.Minute},
	}
}
