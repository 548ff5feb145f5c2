package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	Database DatabaseConfig
	GitHub   GitHubConfig
	LLM      LLMConfig
	Deploy   DeployConfig
	App      AppConfig
}

type ServerConfig struct {
	Port string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// DatabaseConfig holds the optional Postgres archive settings.
// The deploy path never requires it; leave DSN empty to disable.
type DatabaseConfig struct {
	DSN string
}

type GitHubConfig struct {
	User  string
	Token string
}

type LLMConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type DeployConfig struct {
	APISecret     string
	WorkDir       string
	PagesWait     time.Duration
	NotifyRetries int
}

type AppConfig struct {
	Environment string
	LogLevel    string
	Version     string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Database: DatabaseConfig{
			DSN: getEnv("DB_DSN", ""),
		},
		GitHub: GitHubConfig{
			User:  getEnv("GITHUB_USER", ""),
			Token: getEnv("GITHUB_TOKEN", ""),
		},
		LLM: LLMConfig{
			APIKey:  getEnv("GEMINI_API_KEY", ""),
			Model:   getEnv("GEMINI_MODEL", "gemini-flash-lite-latest"),
			BaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		},
		Deploy: DeployConfig{
			APISecret:     getEnv("API_SECRET", ""),
			WorkDir:       getEnv("WORK_DIR", os.TempDir()),
			PagesWait:     getEnvAsDuration("PAGES_WAIT", 60*time.Second),
			NotifyRetries: getEnvAsInt("NOTIFY_RETRIES", 5),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Deploy.APISecret == "" {
		return fmt.Errorf("API_SECRET is required")
	}

	if c.GitHub.User == "" {
		return fmt.Errorf("GITHUB_USER is required")
	}

	if c.GitHub.Token == "" {
		return fmt.Errorf("GITHUB_TOKEN is required")
	}

	if c.LLM.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration for %s, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}
