package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "issuehub.audit", cfg.Kafka.Topic)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, 1024, cfg.Audit.Buffer)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.UsesDevSigningKey())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ISSUEHUB_ADDR", ":9090")
	t.Setenv("ISSUEHUB_STORE_TIMEOUT", "250ms")
	t.Setenv("ISSUEHUB_DATABASE_DRIVER", "postgres")
	t.Setenv("ISSUEHUB_DATABASE_DSN", "postgres://localhost/issuehub")
	t.Setenv("ISSUEHUB_KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("ISSUEHUB_JWT_SIGNING_KEY", "s3cret")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 250*time.Millisecond, cfg.StoreTimeout)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.UsesDevSigningKey())
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":7000"
token_ttl: 1h
redis:
  url: redis://localhost:6379/0
  pool_size: 4
admin:
  email: root@example.com
  password: changeme
log:
  format: text
`), 0o600))

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Addr)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, 4, cfg.Redis.PoolSize)
	assert.Equal(t, "root@example.com", cfg.Admin.Email)
	assert.Equal(t, "admin", cfg.Admin.Username)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Server{
		JWTSigningKey:  "k",
		TokenTTL:       time.Hour,
		StoreTimeout:   time.Second,
		RequestTimeout: time.Second,
		Database:       DatabaseConfig{Driver: "sqlite", DSN: "x.db"},
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Server)
		want   string
	}{
		{"empty key", func(s *Server) { s.JWTSigningKey = " " }, "jwt_signing_key"},
		{"zero ttl", func(s *Server) { s.TokenTTL = 0 }, "token_ttl"},
		{"zero store timeout", func(s *Server) { s.StoreTimeout = 0 }, "store_timeout"},
		{"bad driver", func(s *Server) { s.Database.Driver = "oracle" }, "unsupported database driver"},
		{"kafka without topic", func(s *Server) { s.Kafka = KafkaConfig{Brokers: []string{"b:9092"}} }, "kafka.topic"},
		{"admin half set", func(s *Server) { s.Admin.Email = "a@b.c" }, "admin.email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
