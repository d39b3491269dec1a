package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Key store backends accepted in KEY_STORE.
const (
	KeyStoreMemory = "memory"
	KeyStoreSQLite = "sqlite"
	KeyStoreBadger = "badger"
)

// AppConfig holds all configuration for the application.
// The values are loaded from environment variables.
type AppConfig struct {
	// Core settings
	Port     string
	LogLevel string

	// Dataset settings
	DataPath   string
	DataSheet  int
	DatasetTTL time.Duration

	// API key storage
	KeyStore     string
	DatabasePath string
	BadgerPath   string

	// Security settings
	JWTSecret          string
	AdminTokenExpiry   time.Duration
	MaxUploadSizeBytes int64

	// Rate limiting for the whole router
	RateLimitRPS   float64
	RateLimitBurst int

	// Public base URL of the data endpoint, used for example URLs
	APIBaseURL string
}

// Cfg is a global instance of the AppConfig.
var Cfg *AppConfig

// LoadConfig loads configuration from environment variables or a .env file.
func LoadConfig() *AppConfig {
	errEnv := godotenv.Load()
	if errEnv != nil {
		errEnv = godotenv.Load("../.env")
	}

	if errEnv != nil {
		if os.IsNotExist(errEnv) {
			log.Println("Info: No .env file found in current or parent directory. Relying on OS environment variables.")
		} else {
			log.Printf("Warning: Error loading .env file: %v. Relying on OS environment variables.", errEnv)
		}
	} else {
		log.Println(".env file loaded successfully.")
	}

	keyStore := strings.ToLower(getEnv("KEY_STORE", KeyStoreMemory))
	switch keyStore {
	case KeyStoreMemory, KeyStoreSQLite, KeyStoreBadger:
	default:
		log.Printf("WARNING: Unknown KEY_STORE '%s'. Falling back to %s.", keyStore, KeyStoreMemory)
		keyStore = KeyStoreMemory
	}

	Cfg = &AppConfig{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataPath:   getEnv("DATA_PATH", "data/dataset.xlsx"),
		DataSheet:  getEnvAsInt("DATA_SHEET", 2),
		DatasetTTL: getEnvAsDuration("DATASET_TTL", 0),

		KeyStore:     keyStore,
		DatabasePath: getEnv("DATABASE_PATH", "./datadissem.db"),
		BadgerPath:   getEnv("BADGER_PATH", "./data/keys"),

		JWTSecret:          getEnv("JWT_SECRET", ""),
		AdminTokenExpiry:   getEnvAsDuration("ADMIN_TOKEN_EXPIRY", 12*time.Hour),
		MaxUploadSizeBytes: getEnvAsInt64("MAX_UPLOAD_SIZE_BYTES", 10*1024*1024),

		RateLimitRPS:   getEnvAsFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 30),

		APIBaseURL: getEnv("API_BASE_URL", "https://yourdomain.com/api/data"),
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DataPath=%s, KeyStore=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DataPath, Cfg.KeyStore)
	return Cfg
}

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	log.Printf("Invalid float value for %s ('%s'), using default: %g", key, valueStr, fallback)
	return fallback
}

// getEnvAsDuration retrieves an environment variable as a time.Duration or returns a fallback.
// A zero duration is valid and means "never expire" where durations are used as TTLs.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}
