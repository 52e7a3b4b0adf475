package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds the environment configuration for the application
type Config struct {
	// Addr is the HTTP listen address
	Addr string
	// DeepseekAPIKey authenticates against the completion provider
	DeepseekAPIKey string
	// DeepseekBaseURL is the provider's API base URL
	DeepseekBaseURL string
	// KVURL is the redis URL of the primary record store
	KVURL string
	// KVToken overrides the password in KVURL when set
	KVToken string
	// DatabaseURL selects the relational fallback store: a postgres://
	// URL or a sqlite file path
	DatabaseURL string
}

// Load reads configuration from a .env file (if present) and the process
// environment. Missing provider credentials are not fatal here; the chat
// endpoint reports them per request.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[WARN] No .env file found, using system environment variables")
	}

	return &Config{
		Addr:            getenvDefault("ADDR", ":8000"),
		DeepseekAPIKey:  os.Getenv("DEEPSEEK_API_KEY"),
		DeepseekBaseURL: os.Getenv("DEEPSEEK_BASE_URL"),
		KVURL:           os.Getenv("KV_URL"),
		KVToken:         os.Getenv("KV_TOKEN"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
	}
}

func getenvDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
