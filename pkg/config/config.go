package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	StoreMemory = "memory"
	StoreRedis  = "redis"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Redis   RedisConfig
	CORS    CORSConfig
	Log     LogConfig
	Sheets  SheetsConfig
	Metrics MetricsConfig
	Export  ExportConfig
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SheetsConfig governs sheet storage and row behaviour.
type SheetsConfig struct {
	Store              string
	TTL                time.Duration
	Subjects           []string
	DefaultSubject     string
	TransitionDuration time.Duration
	SettleDelay        time.Duration
	SweepInterval      time.Duration
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
}

// ExportConfig tunes rendered exports.
type ExportConfig struct {
	Title string
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
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	store := strings.ToLower(strings.TrimSpace(v.GetString("SHEET_STORE")))
	if store != StoreRedis {
		store = StoreMemory
	}
	cfg.Sheets = SheetsConfig{
		Store:              store,
		TTL:                parseDuration(v.GetString("SHEET_TTL"), 2*time.Hour),
		Subjects:           splitAndTrim(v.GetString("SUBJECTS")),
		DefaultSubject:     strings.TrimSpace(v.GetString("DEFAULT_SUBJECT")),
		TransitionDuration: parseDuration(v.GetString("TRANSITION_DURATION"), 400*time.Millisecond),
		SettleDelay:        parseDuration(v.GetString("SETTLE_DELAY"), 10*time.Millisecond),
		SweepInterval:      parseDuration(v.GetString("SHEET_SWEEP_INTERVAL"), time.Minute),
	}

	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}

	cfg.Export = ExportConfig{Title: v.GetString("EXPORT_TITLE")}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SHEET_STORE", StoreMemory)
	v.SetDefault("SHEET_TTL", "2h")
	v.SetDefault("SUBJECTS", "")
	v.SetDefault("DEFAULT_SUBJECT", "Matemática")
	v.SetDefault("TRANSITION_DURATION", "400ms")
	v.SetDefault("SETTLE_DELAY", "10ms")
	v.SetDefault("SHEET_SWEEP_INTERVAL", "1m")

	v.SetDefault("ENABLE_METRICS", true)
	v.SetDefault("EXPORT_TITLE", "Grade sheet")
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
