package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SECRET_KEY", "s3cret")
	t.Setenv("DATABASE_URL", "sqlite:///./styleguard.db")
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "30")
	t.Setenv("MODEL_TIMEOUT", "20")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.SecretKey)
	assert.Equal(t, DriverSQLite, cfg.DatabaseDriver)
	assert.Equal(t, "./styleguard.db", cfg.DatabaseURL)
	assert.Equal(t, 30*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, 20*time.Second, cfg.ModelTimeout)
	assert.Equal(t, "HS256", cfg.Algorithm)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("SECRET_KEY", "")
	t.Setenv("CONFIG_FILE", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SECRET_KEY")
}

func TestLoad_TOMLFileThenEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "styleguard.toml")
	body := `
secret_key = "from-file"
model_name = "llama3"
model_timeout = "5s"
database_url = "postgres://u:p@db:5432/styleguard"
kafka_brokers = ["kafka:9092"]
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SECRET_KEY", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("MODEL_NAME", "phi3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.SecretKey)
	assert.Equal(t, "phi3", cfg.ModelName)
	assert.Equal(t, 5*time.Second, cfg.ModelTimeout)
	assert.Equal(t, DriverPostgres, cfg.DatabaseDriver)
	assert.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
}

func TestNormalizeDatabase(t *testing.T) {
	t.Parallel()

	tests := []struct {
		driver, url       string
		wantDrv, wantPath string
	}{
		{"", "postgresql://x", DriverPostgres, "postgresql://x"},
		{"sqlite", "sqlite:///data/app.db", DriverSQLite, "data/app.db"},
		{"SQLITE", ":memory:", DriverSQLite, ":memory:"},
		{"mysql", "tcp://x", "mysql", "tcp://x"},
	}
	for _, tt := range tests {
		drv, path := NormalizeDatabase(tt.driver, tt.url)
		assert.Equal(t, tt.wantDrv, drv)
		assert.Equal(t, tt.wantPath, path)
	}
}

func TestValidate_UnsupportedDriver(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.SecretKey = "x"
	cfg.DatabaseDriver = "mysql"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mysql")
}

func TestEnvDurationDefault(t *testing.T) {
	t.Setenv("SG_TEST_DUR", "1m")
	assert.Equal(t, time.Minute, EnvDurationDefault("SG_TEST_DUR", time.Second))

	t.Setenv("SG_TEST_DUR", "bogus")
	assert.Equal(t, time.Second, EnvDurationDefault("SG_TEST_DUR", time.Second))
}
