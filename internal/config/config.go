package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Keys     APIKeys
	Ai       AIConfig
	Rag      RagConfig
	Persona  PersonaConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	RagLogFilePath     string
	RealtimeLogPath    string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JwtSecret          string
	OtelEnabled        bool
	OtelEndpoint       string
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	GoogleGemini string
	TitleTopic   string // watermill topic for async title jobs
}

type AIConfig struct {
	EmbeddingProvider string // "gemini" or "ollama"
	EmbeddingModel    string
	OllamaBaseURL     string
	OllamaModel       string
	LLMProvider       string // "gemini" or "ollama"
	LLMModel          string
	RerankModel       string
	TitleModel        string
	Temperature       float64
	MaxOutputTokens   int
	RequestsPerMinute int
}

type RagConfig struct {
	VectorBackend string // "pgvector" or "chromem"
	ChromemPath   string
	ChromemName   string
	TopK          int
	HistoryWindow int
}

type PersonaConfig struct {
	AssistantName string
	SchoolName    string
	SupportEmail  string
	RetentionDays int
}

const (
	MinTopK          = 35
	MaxTopK          = 50
	MinHistoryWindow = 10
	MaxHistoryWindow = 30
)

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			RagLogFilePath:     getEnv("RAG_LOG_FILE_PATH", "logs/llm_rag.log"),
			RealtimeLogPath:    getEnv("REALTIME_LOG_FILE_PATH", "logs/realtime.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3001"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			JwtSecret:          getEnv("JWT_SECRET", ""),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
			OtelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			TitleTopic:   getEnv("SESSION_TITLE_TOPIC_NAME", "GENERATE_SESSION_TITLE"),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "gemini"),
			EmbeddingModel:    getEnv("EMBEDDING_MODEL", "text-embedding-004"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:       getEnv("LLM_PROVIDER", "gemini"),
			LLMModel:          getEnv("LLM_MODEL", "gemini-2.0-flash"),
			RerankModel:       getEnv("RERANK_MODEL", "gemini-2.0-flash"),
			TitleModel:        getEnv("TITLE_MODEL", "gemini-1.5-flash"),
			Temperature:       getEnvAsFloat("LLM_TEMPERATURE", 0.2),
			MaxOutputTokens:   getEnvAsInt("LLM_MAX_OUTPUT_TOKENS", 2048),
			RequestsPerMinute: getEnvAsInt("LLM_REQUESTS_PER_MINUTE", 60),
		},
		Rag: RagConfig{
			VectorBackend: getEnv("VECTOR_BACKEND", "pgvector"),
			ChromemPath:   getEnv("CHROMEM_PATH", "data/vectors"),
			ChromemName:   getEnv("CHROMEM_COLLECTION", "documents"),
			TopK:          clamp(getEnvAsInt("RAG_TOP_K", MaxTopK), MinTopK, MaxTopK),
			HistoryWindow: clamp(getEnvAsInt("RAG_HISTORY_WINDOW", MaxHistoryWindow), MinHistoryWindow, MaxHistoryWindow),
		},
		Persona: PersonaConfig{
			AssistantName: getEnv("PERSONA_NAME", "SkalGPT"),
			SchoolName:    getEnv("PERSONA_SCHOOL", "Sezai Karakoç Anadolu Lisesi"),
			SupportEmail:  getEnv("PERSONA_SUPPORT_EMAIL", "skalgpt.official@gmail.com"),
			RetentionDays: getEnvAsInt("PERSONA_RETENTION_DAYS", 30),
		},
	}
}

// Validate reports the missing settings that make the chat pipeline unusable.
func (c *Config) Validate() []string {
	var missing []string
	if c.Database.Connection == "" {
		missing = append(missing, "DB_CONNECTION_STRING")
	}
	if c.App.JwtSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.Keys.GoogleGemini == "" && (c.Ai.LLMProvider == "gemini" || c.Ai.EmbeddingProvider == "gemini") {
		missing = append(missing, "GOOGLE_GEMINI_API_KEY")
	}
	return missing
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

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
