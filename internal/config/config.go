package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPAddr          = ":8080"
	defaultJWTSecret         = "change-me-jwt-secret"
	defaultJWTTTL            = "24h"
	defaultStatusCacheTTL    = "5m"
	defaultStorageBackend    = "local"
	defaultStorageLocalDir   = "./storage"
	defaultStoragePublicBase = "/files"
	defaultSigningKey        = "change-me-storage-signing-key"
	defaultSignedURLTTL      = "1h"
	defaultAttestLabel       = "INSTITUTION VERIFIED"
	defaultStampTimeout      = "30s"
	defaultMinioBucket       = "documents"
)

type Config struct {
	AppEnv   string
	HTTPAddr string
	LogLevel string

	DatabaseURL    string
	DBMaxOpenConns int
	DBMaxIdleConns int
	RedisURL       string

	JWTSecret string
	JWTTTL    time.Duration

	StatusCacheTTL time.Duration

	Storage StorageConfig
	Attest  AttestConfig

	ReconcileOnStart   bool
	CORSAllowedOrigins []string
}

type StorageConfig struct {
	Backend      string
	LocalDir     string
	PublicBase   string
	SigningKey   string
	SignedURLTTL time.Duration

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

type AttestConfig struct {
	LogoPath        string
	Label           string
	ReplaceOriginal bool
	StampTimeout    time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.HTTPAddr = strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr))
	cfg.LogLevel = strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))

	var err error
	if cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", defaultJWTTTL); err != nil {
		return nil, err
	}
	if cfg.StatusCacheTTL, err = parseDurationEnv("STATUS_CACHE_TTL", defaultStatusCacheTTL); err != nil {
		return nil, err
	}
	if cfg.DBMaxOpenConns, err = parseIntEnv("DB_MAX_OPEN_CONNS", 25); err != nil {
		return nil, err
	}
	if cfg.DBMaxIdleConns, err = parseIntEnv("DB_MAX_IDLE_CONNS", 10); err != nil {
		return nil, err
	}

	cfg.Storage = StorageConfig{
		Backend:        strings.ToLower(strings.TrimSpace(getEnv("STORAGE_BACKEND", defaultStorageBackend))),
		LocalDir:       strings.TrimSpace(getEnv("STORAGE_LOCAL_DIR", defaultStorageLocalDir)),
		PublicBase:     strings.TrimRight(strings.TrimSpace(getEnv("STORAGE_PUBLIC_BASE", defaultStoragePublicBase)), "/"),
		SigningKey:     strings.TrimSpace(getEnv("STORAGE_SIGNING_KEY", defaultSigningKey)),
		MinioEndpoint:  strings.TrimSpace(os.Getenv("MINIO_ENDPOINT")),
		MinioAccessKey: strings.TrimSpace(os.Getenv("MINIO_ACCESS_KEY")),
		MinioSecretKey: strings.TrimSpace(os.Getenv("MINIO_SECRET_KEY")),
		MinioBucket:    strings.TrimSpace(getEnv("MINIO_BUCKET", defaultMinioBucket)),
		MinioUseSSL:    parseBoolEnv("MINIO_USE_SSL", "false"),
	}
	if cfg.Storage.SignedURLTTL, err = parseDurationEnv("SIGNED_URL_TTL", defaultSignedURLTTL); err != nil {
		return nil, err
	}

	cfg.Attest = AttestConfig{
		LogoPath:        strings.TrimSpace(os.Getenv("ATTEST_LOGO_PATH")),
		Label:           strings.TrimSpace(getEnv("ATTEST_LABEL", defaultAttestLabel)),
		ReplaceOriginal: parseBoolEnv("ATTEST_REPLACE_ORIGINAL", "true"),
	}
	if cfg.Attest.StampTimeout, err = parseDurationEnv("STAMP_TIMEOUT", defaultStampTimeout); err != nil {
		return nil, err
	}

	cfg.ReconcileOnStart = parseBoolEnv("RECONCILE_ON_START", "false")

	if extra := os.Getenv("CORS_ALLOWED_ORIGINS"); extra != "" {
		for _, o := range strings.Split(extra, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
			}
		}
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsProd() bool {
	return isProdLike(c.AppEnv)
}

func validateConfig(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set")
	}
	if cfg.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	if cfg.StatusCacheTTL <= 0 {
		return fmt.Errorf("STATUS_CACHE_TTL must be > 0")
	}
	if cfg.Storage.SignedURLTTL <= 0 {
		return fmt.Errorf("SIGNED_URL_TTL must be > 0")
	}
	if cfg.Attest.StampTimeout <= 0 {
		return fmt.Errorf("STAMP_TIMEOUT must be > 0")
	}
	if cfg.Attest.Label == "" {
		return fmt.Errorf("ATTEST_LABEL must not be empty")
	}

	switch cfg.Storage.Backend {
	case "local":
		if cfg.Storage.LocalDir == "" {
			return fmt.Errorf("STORAGE_LOCAL_DIR must not be empty")
		}
	case "minio":
		if cfg.Storage.MinioEndpoint == "" || cfg.Storage.MinioBucket == "" {
			return fmt.Errorf("MINIO_ENDPOINT and MINIO_BUCKET must be set when STORAGE_BACKEND=minio")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of: local, minio")
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if cfg.Storage.Backend == "local" && isEmptyOrDefault(cfg.Storage.SigningKey, defaultSigningKey) {
			return fmt.Errorf("in prod/release STORAGE_SIGNING_KEY must be set and not default")
		}
	}

	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func parseIntEnv(name string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
