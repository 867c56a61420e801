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
	SMTP       SMTPConfig
	Collectors CollectorConfig
	Cache      CacheConfig
	Ai         AIConfig
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
	ProgressTopic      string
}

type DatabaseConfig struct {
	Connection string
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
}

// CollectorConfig carries one base URL + key pair per external evidence
// collaborator, plus a shared requests-per-second budget.
type CollectorConfig struct {
	LiteratureBaseURL  string
	LiteratureKey      string
	RegulatoryBaseURL  string
	RegulatoryKey      string
	TrialsBaseURL      string
	CompetitiveBaseURL string
	CompetitiveKey     string
	RequestsPerSecond  float64
}

type CacheConfig struct {
	MaxSessions int
	SessionTTL  time.Duration
}

type AIConfig struct {
	LLMProvider   string // "ollama"
	LLMModel      string // e.g. "llama3", "qwen2.5"
	OllamaBaseURL string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			ProgressTopic:      getEnv("RESEARCH_PROGRESS_TOPIC_NAME", "RESEARCH_PROGRESS"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "EvidenceIntel"),
		},
		Collectors: CollectorConfig{
			LiteratureBaseURL:  getEnv("LITERATURE_BASE_URL", "https://api.semanticscholar.org"),
			LiteratureKey:      getEnv("LITERATURE_API_KEY", ""),
			RegulatoryBaseURL:  getEnv("REGULATORY_BASE_URL", "https://api.fda.gov"),
			RegulatoryKey:      getEnv("REGULATORY_API_KEY", ""),
			TrialsBaseURL:      getEnv("TRIALS_BASE_URL", "https://clinicaltrials.gov/api/v2"),
			CompetitiveBaseURL: getEnv("COMPETITIVE_BASE_URL", ""),
			CompetitiveKey:     getEnv("COMPETITIVE_API_KEY", ""),
			RequestsPerSecond:  getEnvAsFloat("COLLECTOR_RPS", 3),
		},
		Cache: CacheConfig{
			MaxSessions: getEnvAsInt("SESSION_CACHE_MAX", 512),
			SessionTTL:  time.Duration(getEnvAsInt("SESSION_CACHE_TTL_MINUTES", 30)) * time.Minute,
		},
		Ai: AIConfig{
			LLMProvider:   getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:      getEnv("LLM_MODEL", "llama3"),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
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

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}
