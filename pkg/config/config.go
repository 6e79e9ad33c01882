package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Store backends accepted by STORE_BACKEND.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Remote        RemoteConfig
	Store         StoreConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Records       RecordsConfig
	Session       SessionConfig
	Security      SecurityConfig
	Notifications NotificationConfig
	CORS          CORSConfig
	Log           LogConfig
}

// RemoteConfig points the panel at the municipal REST API and its side services.
type RemoteConfig struct {
	BaseURL     string
	Timeout     time.Duration
	LoginPath   string
	RefreshPath string
	RecordsPath string
	UsersPath   string
	RegistryURL string
	WebhookURL  string
}

// StoreConfig selects the persistent key-value backend for tokens and caches.
type StoreConfig struct {
	Backend   string
	Namespace string
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RecordsConfig tunes the record cache and its reconciliation triggers.
type RecordsConfig struct {
	CacheKey            string
	SectorialCacheKey   string
	SectorialStructures []string
	CacheTTL            time.Duration
	ReconcileInterval   time.Duration
	ReconcileTimeout    time.Duration
}

// SessionConfig controls the proactive token refresh loop.
type SessionConfig struct {
	RefreshInterval time.Duration
}

// SecurityConfig carries the shared PIN used for sensitive actions.
type SecurityConfig struct {
	PIN      string
	PINHash  string
	GrantTTL time.Duration
}

// NotificationConfig sets how long transient alerts stay visible.
type NotificationConfig struct {
	TTL time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Remote = RemoteConfig{
		BaseURL:     strings.TrimRight(v.GetString("REMOTE_BASE_URL"), "/"),
		Timeout:     parseDuration(v.GetString("REMOTE_TIMEOUT"), 15*time.Second),
		LoginPath:   v.GetString("REMOTE_LOGIN_PATH"),
		RefreshPath: v.GetString("REMOTE_REFRESH_PATH"),
		RecordsPath: v.GetString("REMOTE_RECORDS_PATH"),
		UsersPath:   v.GetString("REMOTE_USERS_PATH"),
		RegistryURL: strings.TrimRight(v.GetString("REGISTRY_URL"), "/"),
		WebhookURL:  v.GetString("WEBHOOK_URL"),
	}

	cfg.Store = StoreConfig{
		Backend:   strings.ToLower(v.GetString("STORE_BACKEND")),
		Namespace: v.GetString("STORE_NAMESPACE"),
	}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Records = RecordsConfig{
		CacheKey:            v.GetString("CACHE_KEY"),
		SectorialCacheKey:   v.GetString("SECTORIAL_CACHE_KEY"),
		SectorialStructures: splitAndTrim(v.GetString("SECTORIAL_STRUCTURES")),
		CacheTTL:            parseDuration(v.GetString("CACHE_TTL"), 24*time.Hour),
		ReconcileInterval:   parseDuration(v.GetString("RECONCILE_INTERVAL"), 5*time.Minute),
		ReconcileTimeout:    parseDuration(v.GetString("RECONCILE_TIMEOUT"), 5*time.Second),
	}

	cfg.Session = SessionConfig{
		RefreshInterval: parseDuration(v.GetString("SESSION_REFRESH_INTERVAL"), 15*time.Minute),
	}

	cfg.Security = SecurityConfig{
		PIN:      v.GetString("SECURITY_PIN"),
		PINHash:  v.GetString("SECURITY_PIN_HASH"),
		GrantTTL: parseDuration(v.GetString("PIN_GRANT_TTL"), 2*time.Minute),
	}

	cfg.Notifications = NotificationConfig{
		TTL: clampDuration(parseDuration(v.GetString("NOTIFICATION_TTL"), 6*time.Second), 5*time.Second, 7*time.Second),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("REMOTE_BASE_URL", "http://localhost:8000")
	v.SetDefault("REMOTE_TIMEOUT", "15s")
	v.SetDefault("REMOTE_LOGIN_PATH", "/auth/login/")
	v.SetDefault("REMOTE_REFRESH_PATH", "/auth/refresh/")
	v.SetDefault("REMOTE_RECORDS_PATH", "/api/")
	v.SetDefault("REMOTE_USERS_PATH", "/usuarios/")
	v.SetDefault("REGISTRY_URL", "")
	v.SetDefault("WEBHOOK_URL", "")

	v.SetDefault("STORE_BACKEND", StoreMemory)
	v.SetDefault("STORE_NAMESPACE", "ayudas:")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "ayudas_panel")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 5)
	v.SetDefault("DB_MAX_IDLE_CONNS", 2)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("CACHE_KEY", "ayudas_cache")
	v.SetDefault("SECTORIAL_CACHE_KEY", "ayudas_sectorial_cache")
	v.SetDefault("SECTORIAL_STRUCTURES", "")
	v.SetDefault("CACHE_TTL", "24h")
	v.SetDefault("RECONCILE_INTERVAL", "5m")
	v.SetDefault("RECONCILE_TIMEOUT", "5s")

	v.SetDefault("SESSION_REFRESH_INTERVAL", "15m")

	v.SetDefault("SECURITY_PIN", "")
	v.SetDefault("SECURITY_PIN_HASH", "")
	v.SetDefault("PIN_GRANT_TTL", "2m")

	v.SetDefault("NOTIFICATION_TTL", "6s")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func clampDuration(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
