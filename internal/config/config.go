package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// AIConfig holds the default AI provider settings. It is passed explicitly to
// the curation engine; a project may override the model per row.
type AIConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Enabled reports whether the default AI capability is configured at all.
func (c AIConfig) Enabled() bool {
	return c.APIKey != ""
}

type Config struct {
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	HTTPAddr string
	GinMode  string

	AI AIConfig

	// CurationHour is the UTC hour of day the scheduler fans out daily runs.
	CurationHour int
	// CurationWorkers bounds how many user runs execute concurrently.
	CurationWorkers int
}

func Load() *Config {
	// Best effort; a missing .env is not an error.
	_ = godotenv.Load()

	return &Config{
		DBDriver:   getEnv("DB_DRIVER", "mysql"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "curator"),
		DBPassword: getEnv("DB_PASSWORD", "curator"),
		DBName:     getEnv("DB_NAME", "task_curation"),

		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		GinMode:  getEnv("GIN_MODE", "debug"),

		AI: AIConfig{
			APIKey:  getEnv("OPENAI_API_KEY", ""),
			Model:   getEnv("OPENAI_MODEL", "gpt-4o"),
			Timeout: getDurationEnv("OPENAI_TIMEOUT", 30*time.Second),
		},

		CurationHour:    getIntEnv("CURATION_HOUR", 5),
		CurationWorkers: getIntEnv("CURATION_WORKERS", 4),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
