package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string

	// Master key for the credential vault. Never persisted; process env only.
	MasterEncryptionKey string

	// Chroma vector index
	ChromaAPIKey   string
	ChromaTenant   string
	ChromaDatabase string

	// Gemini API key used for embeddings (and the gemini provider when configured)
	GeminiAPIKey string

	// Ollama defaults for locally configured providers
	OllamaBaseURL string

	// Pub/Sub mail-event ingestion
	GoogleProjectID   string
	GoogleCredentials string
	MailEventsTopic   string

	// Job queue
	EmailWorkerCount int
	ToneWorkerCount  int
	QueueMaxAttempts int
	QueueBaseBackoff time.Duration
	QueueMaxBackoff  time.Duration

	// Pipeline tuning
	RetrievalK         int
	ProfileWindowSize  int
	LLMTimeout         time.Duration
	VectorQueryTimeout time.Duration

	// Connection pool sizing
	DBMaxOpenConns int
	DBMaxIdleConns int
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	masterKey := os.Getenv("MASTER_ENCRYPTION_KEY")
	if masterKey == "" {
		log.Fatal("MASTER_ENCRYPTION_KEY is required")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	return &Config{
		Port:                getEnv("PORT", "8080"),
		DatabaseURL:         dbURL,
		MasterEncryptionKey: masterKey,
		ChromaAPIKey:        getEnv("CHROMA_API_KEY", ""),
		ChromaTenant:        getEnv("CHROMA_TENANT", ""),
		ChromaDatabase:      getEnv("CHROMA_DATABASE", ""),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		OllamaBaseURL:       getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		GoogleProjectID:     getEnv("GOOGLE_PROJECT_ID", ""),
		GoogleCredentials:   getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		MailEventsTopic:     getEnv("MAIL_EVENTS_TOPIC", "mail-events"),
		EmailWorkerCount:    getEnvInt("EMAIL_WORKER_COUNT", 3),
		ToneWorkerCount:     getEnvInt("TONE_WORKER_COUNT", 2),
		QueueMaxAttempts:    getEnvInt("QUEUE_MAX_ATTEMPTS", 3),
		QueueBaseBackoff:    getEnvDuration("QUEUE_BASE_BACKOFF", 2*time.Second),
		QueueMaxBackoff:     getEnvDuration("QUEUE_MAX_BACKOFF", 1*time.Minute),
		RetrievalK:          getEnvInt("RETRIEVAL_K", 5),
		ProfileWindowSize:   getEnvInt("PROFILE_WINDOW_SIZE", 50),
		LLMTimeout:          getEnvDuration("LLM_TIMEOUT", 90*time.Second),
		VectorQueryTimeout:  getEnvDuration("VECTOR_QUERY_TIMEOUT", 10*time.Second),
		DBMaxOpenConns:      getEnvInt("DB_MAX_OPEN_CONNS", 10),
		DBMaxIdleConns:      getEnvInt("DB_MAX_IDLE_CONNS", 2),
	}
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
