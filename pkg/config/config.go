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

const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	CORS        CORSConfig
	Log         LogConfig
	Validation  ValidationConfig
	Remediation RemediationConfig
	DryRun      DryRunConfig
	Sessions    SessionsConfig
	Adaptive    AdaptiveConfig
	Reports     ReportsConfig
}

type DatabaseConfig struct {
	Enabled      bool
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

type JWTConfig struct {
	Required   bool
	Secret     string
	Issuer     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ValidationConfig holds orchestrator defaults used when a request omits its own configuration.
type ValidationConfig struct {
	DefaultValidators    []string
	ReadabilityThreshold float64
	Parallel             bool
	PresetsFile          string
	ReportCacheTTL       time.Duration
	ReportCacheEnabled   bool
}

// RemediationConfig governs suggestion generation and approval policy.
type RemediationConfig struct {
	MaxSuggestions            int
	AutoApplicable            []string
	RequireStructuralApproval bool
	SessionTTL                time.Duration
	CleanupInterval           time.Duration
}

// DryRunConfig governs the preview cache.
type DryRunConfig struct {
	CacheDuration     time.Duration
	MaxCachedSessions int
	CleanupInterval   time.Duration
}

// SessionsConfig selects the backing store for remediation and dry-run sessions.
type SessionsConfig struct {
	Store     string
	KeyPrefix string
}

// AdaptiveConfig toggles persistence of learned user preferences.
type AdaptiveConfig struct {
	PersistenceEnabled bool
}

// ReportsConfig configures asynchronous validation report generation.
type ReportsConfig struct {
	Enabled           bool
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	CleanupInterval   time.Duration
	WorkerConcurrency int
	WorkerRetries     int
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Enabled:      v.GetBool("ENABLE_DATABASE"),
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

	cfg.JWT = JWTConfig{
		Required:   v.GetBool("JWT_REQUIRED"),
		Secret:     v.GetString("JWT_SECRET"),
		Issuer:     v.GetString("JWT_ISSUER"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Validation = ValidationConfig{
		DefaultValidators:    splitAndTrim(v.GetString("VALIDATION_DEFAULT_VALIDATORS")),
		ReadabilityThreshold: v.GetFloat64("VALIDATION_READABILITY_THRESHOLD"),
		Parallel:             v.GetBool("VALIDATION_PARALLEL"),
		PresetsFile:          v.GetString("VALIDATION_PRESETS_FILE"),
		ReportCacheTTL:       parseDuration(v.GetString("VALIDATION_REPORT_CACHE_TTL"), 10*time.Minute),
		ReportCacheEnabled:   v.GetBool("ENABLE_VALIDATION_REPORT_CACHE"),
	}

	cfg.Remediation = RemediationConfig{
		MaxSuggestions:            v.GetInt("REMEDIATION_MAX_SUGGESTIONS"),
		AutoApplicable:            splitAndTrim(v.GetString("REMEDIATION_AUTO_APPLICABLE")),
		RequireStructuralApproval: v.GetBool("REMEDIATION_REQUIRE_STRUCTURAL_APPROVAL"),
		SessionTTL:                parseDuration(v.GetString("REMEDIATION_SESSION_TTL"), 2*time.Hour),
		CleanupInterval:           parseDuration(v.GetString("REMEDIATION_CLEANUP_INTERVAL"), 10*time.Minute),
	}

	cfg.DryRun = DryRunConfig{
		CacheDuration:     parseDuration(v.GetString("DRYRUN_CACHE_DURATION"), 30*time.Minute),
		MaxCachedSessions: v.GetInt("DRYRUN_MAX_CACHED_SESSIONS"),
		CleanupInterval:   parseDuration(v.GetString("DRYRUN_CLEANUP_INTERVAL"), 5*time.Minute),
	}

	cfg.Sessions = SessionsConfig{
		Store:     strings.ToLower(v.GetString("SESSION_STORE")),
		KeyPrefix: v.GetString("SESSION_KEY_PREFIX"),
	}

	cfg.Adaptive = AdaptiveConfig{
		PersistenceEnabled: v.GetBool("ENABLE_ADAPTIVE_PERSISTENCE"),
	}

	cfg.Reports = ReportsConfig{
		Enabled:           v.GetBool("ENABLE_REPORTS"),
		StorageDir:        v.GetString("REPORTS_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("REPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("REPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		CleanupInterval:   parseDuration(v.GetString("REPORTS_CLEANUP_INTERVAL"), time.Hour),
		WorkerConcurrency: v.GetInt("REPORTS_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("REPORTS_WORKER_RETRIES"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("ENABLE_DATABASE", false)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "curriculum_qa")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_REQUIRED", false)
	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "curriculum-qa-api")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("VALIDATION_DEFAULT_VALIDATORS", "structure,readability,completeness,grammar")
	v.SetDefault("VALIDATION_READABILITY_THRESHOLD", 3.0)
	v.SetDefault("VALIDATION_PARALLEL", true)
	v.SetDefault("VALIDATION_PRESETS_FILE", "")
	v.SetDefault("ENABLE_VALIDATION_REPORT_CACHE", false)
	v.SetDefault("VALIDATION_REPORT_CACHE_TTL", "10m")

	v.SetDefault("REMEDIATION_MAX_SUGGESTIONS", 20)
	v.SetDefault("REMEDIATION_AUTO_APPLICABLE", "FIX_TYPOS,CORRECT_CAPITALIZATION,FIX_GRAMMAR_ERROR,FORMAT_TEXT")
	v.SetDefault("REMEDIATION_REQUIRE_STRUCTURAL_APPROVAL", true)
	v.SetDefault("REMEDIATION_SESSION_TTL", "2h")
	v.SetDefault("REMEDIATION_CLEANUP_INTERVAL", "10m")

	v.SetDefault("DRYRUN_CACHE_DURATION", "30m")
	v.SetDefault("DRYRUN_MAX_CACHED_SESSIONS", 50)
	v.SetDefault("DRYRUN_CLEANUP_INTERVAL", "5m")

	v.SetDefault("SESSION_STORE", SessionStoreMemory)
	v.SetDefault("SESSION_KEY_PREFIX", "cqa")

	v.SetDefault("ENABLE_ADAPTIVE_PERSISTENCE", false)

	v.SetDefault("ENABLE_REPORTS", false)
	v.SetDefault("REPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("REPORTS_SIGNED_URL_SECRET", "dev_reports_secret")
	v.SetDefault("REPORTS_SIGNED_URL_TTL", "24h")
	v.SetDefault("REPORTS_CLEANUP_INTERVAL", "1h")
	v.SetDefault("REPORTS_WORKER_CONCURRENCY", 1)
	v.SetDefault("REPORTS_WORKER_RETRIES", 3)
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

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
