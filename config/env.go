package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv        string
	Port          string
	EngineURL     string
	OriginURL     string
	RedisURL      string
	RedisAddr     string
	RedisPassword string
	SessionTTL    time.Duration
}

var AppConfig *Config

func LoadConfig() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	sessionTTL, err := time.ParseDuration(getEnv("ENGINE_SESSION_TTL", "168h"))
	if err != nil || sessionTTL <= 0 {
		sessionTTL = 168 * time.Hour
	}

	AppConfig = &Config{
		AppEnv:        getEnv("APP_ENV", "development"),
		Port:          getEnv("APP_PORT", getEnv("PORT", "8082")),
		EngineURL:     os.Getenv("ENGINE_URL"),
		OriginURL:     os.Getenv("ORIGIN_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		SessionTTL:    sessionTTL,
	}

	log.Println("Configuration loaded successfully")
	log.Printf("Environment: %s", AppConfig.AppEnv)
	log.Printf("Server will run on port: %s", AppConfig.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
