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
	Clerk      ClerkConfig
	OpenRouter OpenRouterConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

// ClerkConfig holds the external JWT issuer settings. Tokens are verified
// against the issuer's JWKS endpoint.
type ClerkConfig struct {
	Issuer   string
	Audience string
}

type OpenRouterConfig struct {
	APIKey    string
	BaseURL   string
	SiteURL   string
	AppName   string
	Timeout   time.Duration
	RetryBase time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:8000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Clerk: ClerkConfig{
			Issuer:   getEnv("CLERK_ISSUER", ""),
			Audience: getEnv("CLERK_AUDIENCE", ""),
		},
		OpenRouter: OpenRouterConfig{
			APIKey:    getEnv("OPENROUTER_API_KEY", ""),
			BaseURL:   getEnv("OPENROUTER_URL", "https://openrouter.ai/api/v1"),
			SiteURL:   getEnv("OPENROUTER_SITE_URL", "http://localhost:3000"),
			AppName:   getEnv("OPENROUTER_APP_NAME", "Madlen AI"),
			Timeout:   time.Duration(getEnvAsInt("OPENROUTER_TIMEOUT_SECONDS", 60)) * time.Second,
			RetryBase: time.Duration(getEnvAsInt("OPENROUTER_RETRY_BASE_SECONDS", 2)) * time.Second,
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
