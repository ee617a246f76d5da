package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Gemini AI
	GeminiAPIKey string

	// Static page
	StaticDir string

	// CORS
	AllowedOrigin string

	// Logging
	LogVerbosity int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:          getEnvOrDefault("PORT", "3000"),
		Env:           getEnvOrDefault("ENV", "development"),
		GeminiAPIKey:  mustGetEnv("GEMINI_API_KEY"),
		StaticDir:     getEnvOrDefault("STATIC_DIR", "public"),
		AllowedOrigin: getEnvOrDefault("ALLOWED_ORIGIN", "*"),
		LogVerbosity:  getEnvAsIntOrDefault("LOG_VERBOSITY", 0),
	}

	return cfg
}

// ClientConfig holds what the terminal chat client needs.
type ClientConfig struct {
	ServerURL string
}

func LoadClient() *ClientConfig {
	godotenv.Load()

	return &ClientConfig{
		ServerURL: getEnvOrDefault("CHAT_SERVER_URL", "http://localhost:3000"),
	}
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
