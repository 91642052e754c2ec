package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	HTTPAddr string `toml:"http_addr"`
	LogLevel string `toml:"log_level"`

	DatabaseDriver string `toml:"database_driver"`
	DatabaseURL    string `toml:"database_url"`

	SecretKey       string        `toml:"secret_key"`
	Algorithm       string        `toml:"algorithm"`
	AccessTokenTTL  time.Duration `toml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `toml:"refresh_token_ttl"`
	BcryptCost      int           `toml:"bcrypt_cost"`

	OllamaURL        string        `toml:"ollama_api_url"`
	ModelName        string        `toml:"model_name"`
	ModelTemperature float64       `toml:"model_temperature"`
	ModelTimeout     time.Duration `toml:"model_timeout"`

	KafkaBrokers []string `toml:"kafka_brokers"`

	ESURL      string `toml:"es_url"`
	ESUser     string `toml:"es_user"`
	ESPassword string `toml:"es_password"`
	ESIndex    string `toml:"es_index"`

	// AuthRateLimit is requests per second per client on /auth endpoints.
	AuthRateLimit float64 `toml:"auth_rate_limit"`
	AuthRateBurst int     `toml:"auth_rate_burst"`
}

func Default() Config {
	return Config{
		HTTPAddr:         ":8000",
		LogLevel:         "info",
		DatabaseDriver:   DriverSQLite,
		DatabaseURL:      "styleguard.db",
		Algorithm:        "HS256",
		AccessTokenTTL:   24 * time.Hour,
		RefreshTokenTTL:  7 * 24 * time.Hour,
		BcryptCost:       10,
		OllamaURL:        "http://localhost:11434/api/generate",
		ModelName:        "mistral",
		ModelTemperature: 0.1,
		ModelTimeout:     15 * time.Second,
		ESIndex:          "corrections",
		AuthRateLimit:    5.0 / 60.0,
		AuthRateBurst:    5,
	}
}

// Load builds the config from defaults, an optional TOML file named by
// CONFIG_FILE, and then the environment (.env included).
func Load() (Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		slog.Debug("config_notice", "reason", ".env file not found, using system environment")
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := LoadTOML(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("config: decode %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.HTTPAddr = EnvDefault("HTTP_ADDR", cfg.HTTPAddr)
	cfg.LogLevel = EnvDefault("LOG_LEVEL", cfg.LogLevel)

	cfg.DatabaseURL = EnvDefault("DATABASE_URL", cfg.DatabaseURL)
	cfg.DatabaseDriver = EnvDefault("DATABASE_DRIVER", cfg.DatabaseDriver)
	cfg.DatabaseDriver, cfg.DatabaseURL = NormalizeDatabase(cfg.DatabaseDriver, cfg.DatabaseURL)

	cfg.SecretKey = EnvDefault("SECRET_KEY", cfg.SecretKey)
	cfg.Algorithm = EnvDefault("ALGORITHM", cfg.Algorithm)
	if n := EnvIntDefault("ACCESS_TOKEN_EXPIRE_MINUTES", 0); n > 0 {
		cfg.AccessTokenTTL = time.Duration(n) * time.Minute
	}
	if n := EnvIntDefault("REFRESH_TOKEN_EXPIRE_DAYS", 0); n > 0 {
		cfg.RefreshTokenTTL = time.Duration(n) * 24 * time.Hour
	}
	cfg.BcryptCost = EnvIntDefault("BCRYPT_COST", cfg.BcryptCost)

	cfg.OllamaURL = EnvDefault("OLLAMA_API_URL", cfg.OllamaURL)
	cfg.ModelName = EnvDefault("MODEL_NAME", cfg.ModelName)
	cfg.ModelTemperature = EnvFloatDefault("MODEL_TEMPERATURE", cfg.ModelTemperature)
	cfg.ModelTimeout = EnvDurationDefault("MODEL_TIMEOUT", cfg.ModelTimeout)

	if brokers := CSV(os.Getenv("KAFKA_BROKERS")); len(brokers) > 0 {
		cfg.KafkaBrokers = brokers
	}

	cfg.ESURL = EnvDefault("ES_URL", cfg.ESURL)
	cfg.ESUser = EnvDefault("ES_USER", cfg.ESUser)
	cfg.ESPassword = EnvDefault("ES_PASSWORD", cfg.ESPassword)
	cfg.ESIndex = EnvDefault("ES_INDEX", cfg.ESIndex)

	cfg.AuthRateLimit = EnvFloatDefault("AUTH_RATE_LIMIT", cfg.AuthRateLimit)
	cfg.AuthRateBurst = EnvIntDefault("AUTH_RATE_BURST", cfg.AuthRateBurst)
}

// NormalizeDatabase infers the driver from a URL scheme and strips the
// sqlite:/// prefix so the path can be handed to the driver directly.
func NormalizeDatabase(driver, url string) (string, string) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return DriverPostgres, url
	case strings.HasPrefix(url, "sqlite:///"):
		return DriverSQLite, strings.TrimPrefix(url, "sqlite:///")
	}
	return strings.ToLower(driver), url
}

func (c Config) Validate() error {
	var errs []error
	if c.SecretKey == "" {
		errs = append(errs, errors.New("SECRET_KEY is required"))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.DatabaseDriver != DriverPostgres && c.DatabaseDriver != DriverSQLite {
		errs = append(errs, fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver))
	}
	if c.OllamaURL == "" {
		errs = append(errs, errors.New("OLLAMA_API_URL is required"))
	}
	if c.ModelName == "" {
		errs = append(errs, errors.New("MODEL_NAME is required"))
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}
	if c.ModelTimeout <= 0 {
		errs = append(errs, errors.New("MODEL_TIMEOUT must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvFloatDefault(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// EnvDurationDefault accepts Go durations ("15s") or bare seconds ("15").
func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}
