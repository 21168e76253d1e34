package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Provider credentials - passed into adapter constructors, never read
	// from the environment anywhere else.
	CohereAPIKey string
	GroqAPIKey   string
	CohereURL    string
	GroqURL      string

	// External job search (JobSpy-compatible API)
	JobSearchURL string

	ServerPort string
	ServerHost string

	// File storage
	UploadDir   string
	MaxFileSize int64

	// Embedding worker pool
	EmbeddingWorkers   int
	EmbeddingQueueSize int

	// Weekly job digest; zero disables the ticker
	DigestInterval time.Duration

	// Observability
	JaegerEndpoint string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "pdf_rag"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		CohereAPIKey: getEnv("COHERE_API_KEY", ""),
		GroqAPIKey:   getEnv("GROQ_API_KEY", ""),
		CohereURL:    getEnv("COHERE_URL", "https://api.cohere.com/v1"),
		GroqURL:      getEnv("GROQ_URL", "https://api.groq.com/openai/v1"),

		JobSearchURL: getEnv("JOBSPY_URL", "http://localhost:9423/api"),

		ServerPort: getEnv("SERVER_PORT", "8080"),
		ServerHost: getEnv("SERVER_HOST", "localhost"),

		UploadDir:   getEnv("UPLOAD_DIR", "uploads"),
		MaxFileSize: getEnvInt64("MAX_FILE_SIZE", 10*1024*1024),

		EmbeddingWorkers:   getEnvInt("EMBEDDING_WORKERS", 5),
		EmbeddingQueueSize: getEnvInt("EMBEDDING_QUEUE_SIZE", 100),

		DigestInterval: getEnvDuration("DIGEST_INTERVAL", 0),

		JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
	}

	if cfg.CohereAPIKey == "" {
		return nil, fmt.Errorf("COHERE_API_KEY is required")
	}
	if cfg.GroqAPIKey == "" {
		return nil, fmt.Errorf("GROQ_API_KEY is required")
	}

	return cfg, nil
}

func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
