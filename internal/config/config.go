package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	Storage StorageConfig
	Stream  StreamConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
}

type StorageConfig struct {
	PolicyDir string
	FactsDir  string
	DocsDir   string
	FilesDir  string
}

type StreamConfig struct {
	NatsURL      string
	NatsSubject  string
	MaxClients   int
	OtlpEndpoint string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:8000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		},
		Storage: StorageConfig{
			PolicyDir: getEnv("POLICY_DIR", "policy"),
			FactsDir:  getEnv("FACTS_DIR", "facts"),
			DocsDir:   getEnv("DOCS_DIR", "docs"),
			FilesDir:  getEnv("FILES_DIR", "files"),
		},
		Stream: StreamConfig{
			NatsURL:      getEnv("NATS_URL", ""),
			NatsSubject:  getEnv("NATS_SUBJECT", "agui.stream"),
			MaxClients:   getEnvAsInt("WS_MAX_CLIENTS", 256),
			OtlpEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
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
