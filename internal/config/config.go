package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Cache      CacheConfig
	Embedding  EmbeddingConfig
	GoogleMaps GoogleMapsConfig
	Sync       SyncConfig
	Search     SearchConfig
	Auth       AuthConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
}

func (a AppConfig) IsProduction() bool { return a.Environment == "production" }

type DatabaseConfig struct {
	PostgresURL string
	AutoMigrate bool
}

type CacheConfig struct {
	Driver   string // "memory" or "redis"
	RedisURL string
	TTL      time.Duration
}

type EmbeddingConfig struct {
	Provider   string // "openai", "gemini" or "hash"
	APIKey     string
	Model      string
	Dimensions int
}

type GoogleMapsConfig struct {
	APIKey            string
	BaseURL           string
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
	Language          string
}

type SyncConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
	Enabled    bool
}

type SearchConfig struct {
	RequestTimeout        time.Duration
	EnrichmentTimeout     time.Duration
	EnrichmentConcurrency int
	MinScore              float64
	DefaultRadiusKm       float64
}

type AuthConfig struct {
	JWTSecret string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("PORT", "8080"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Database: DatabaseConfig{
			PostgresURL: getEnv("POSTGRES_URL", ""),
			AutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Cache: CacheConfig{
			Driver:   getEnv("CACHE_DRIVER", "memory"),
			RedisURL: getEnv("REDIS_URL", "redis://localhost:6379"),
			TTL:      getEnvAsDuration("CACHE_TTL", 5*time.Minute),
		},
		Embedding: loadEmbeddingConfig(),
		GoogleMaps: GoogleMapsConfig{
			APIKey:            getEnv("GOOGLE_MAPS_API_KEY", ""),
			BaseURL:           getEnv("GOOGLE_MAPS_BASE_URL", "https://maps.googleapis.com"),
			RequestsPerSecond: getEnvAsFloat("GOOGLE_MAPS_RPS", 5),
			Burst:             getEnvAsInt("GOOGLE_MAPS_BURST", 5),
			Timeout:           getEnvAsDuration("GOOGLE_MAPS_TIMEOUT", 5*time.Second),
			Language:          getEnv("GOOGLE_MAPS_LANGUAGE", "vi"),
		},
		Sync: SyncConfig{
			Interval:   getEnvAsDuration("SYNC_INTERVAL", time.Minute),
			BatchSize:  getEnvAsInt("SYNC_BATCH_SIZE", 10),
			MaxRetries: getEnvAsInt("SYNC_MAX_RETRIES", 5),
			Enabled:    getEnvAsBool("SYNC_WORKER_ENABLED", true),
		},
		Search: SearchConfig{
			RequestTimeout:        getEnvAsDuration("SEARCH_REQUEST_TIMEOUT", 8*time.Second),
			EnrichmentTimeout:     getEnvAsDuration("SEARCH_ENRICHMENT_TIMEOUT", 4*time.Second),
			EnrichmentConcurrency: getEnvAsInt("SEARCH_ENRICHMENT_CONCURRENCY", 5),
			MinScore:              getEnvAsFloat("SEARCH_MIN_SCORE", 0),
			DefaultRadiusKm:       getEnvAsFloat("SEARCH_DEFAULT_RADIUS_KM", 10),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
	}
}

func loadEmbeddingConfig() EmbeddingConfig {
	provider := getEnv("EMBEDDING_PROVIDER", "gemini")

	cfg := EmbeddingConfig{
		Provider:   provider,
		Dimensions: getEnvAsInt("EMBEDDING_DIMENSIONS", 768),
	}

	switch provider {
	case "openai":
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		cfg.Model = getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small")
	case "gemini":
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
		cfg.Model = getEnv("GEMINI_EMBEDDING_MODEL", "text-embedding-004")
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}
