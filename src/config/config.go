package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port               string
	LogLevel           string
	DatabasePath       string
	AllowedOrigin      string
	MaxUploadSizeBytes int64

	AlphaVantageAPIKey  string
	AlphaVantageBaseURL string

	PriceFetchTimeout     time.Duration
	PriceFetchConcurrency int
	PriceRefreshSchedule  string
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	maxUploadSizeBytesStr := getEnv("MAX_UPLOAD_SIZE_BYTES", "10485760")
	maxUploadSizeBytes, err := strconv.ParseInt(maxUploadSizeBytesStr, 10, 64)
	if err != nil {
		log.Printf("WARNING: Invalid MAX_UPLOAD_SIZE_BYTES format '%s'. Using default 10MB. Error: %v", maxUploadSizeBytesStr, err)
		maxUploadSizeBytes = 10 * 1024 * 1024
	}

	apiKey := getEnv("ALPHA_VANTAGE_API_KEY", "")
	if apiKey == "" {
		log.Println("WARNING: ALPHA_VANTAGE_API_KEY is not set. Price lookups will return no data and equity will fall back to transaction prices.")
	}

	concurrency := getEnvAsInt("PRICE_FETCH_CONCURRENCY", 3)
	if concurrency < 1 {
		log.Printf("WARNING: PRICE_FETCH_CONCURRENCY must be at least 1, got %d. Using 1.", concurrency)
		concurrency = 1
	}

	Cfg = &AppConfig{
		Port:               getEnv("PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabasePath:       getEnv("DATABASE_PATH", "./equitytracker.db"),
		AllowedOrigin:      getEnv("ALLOWED_ORIGIN", "http://localhost:3000"),
		MaxUploadSizeBytes: maxUploadSizeBytes,

		AlphaVantageAPIKey:  apiKey,
		AlphaVantageBaseURL: getEnv("ALPHA_VANTAGE_BASE_URL", "https://www.alphavantage.co"),

		PriceFetchTimeout:     getEnvAsDuration("PRICE_FETCH_TIMEOUT", 20*time.Second),
		PriceFetchConcurrency: concurrency,
		PriceRefreshSchedule:  getEnv("PRICE_REFRESH_SCHEDULE", "30 22 * * *"),
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, FetchConcurrency=%d",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.PriceFetchConcurrency)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Integer value for %s not set or empty, using default: %d", key, fallback)
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Duration value for %s not set or empty, using default: %s", key, fallback.String())
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}
