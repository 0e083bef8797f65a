package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendGenerativeAI = "generative-ai"
	BackendGenAI        = "genai"
)

type Config struct {
	GeminiAPIKey      string
	CompletionBackend string
	CompletionModel   string
	CompletionTimeout time.Duration
	DatabaseURL       string
	HTTPPort          string
	LogLevel          string
	JWTSecret         string
	JWTTTL            time.Duration
	AssistantTimezone string
	ClientURL         string
}

// Load reads the .env file (if any) and the environment. The returned error
// lists every invalid setting at once.
func Load() (*Config, error) {
	// A missing .env is normal in containers.
	_ = godotenv.Load()

	cfg := &Config{
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		CompletionBackend: strings.ToLower(getEnv("COMPLETION_BACKEND", BackendGenerativeAI)),
		CompletionModel:   getEnv("COMPLETION_MODEL", "gemini-1.5-flash-latest"),
		CompletionTimeout: getEnvAsDuration("COMPLETION_TIMEOUT", 20*time.Second),
		DatabaseURL:       getEnv("DATABASE_URL", "tracko.db"),
		HTTPPort:          getEnv("HTTP_PORT", "8080"),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", "info")),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		JWTTTL:            getEnvAsDuration("JWT_TTL", 24*time.Hour),
		AssistantTimezone: getEnv("ASSISTANT_TIMEZONE", "UTC"),
		ClientURL:         getEnv("CLIENT_URL", "*"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var problems []string

	if c.GeminiAPIKey == "" {
		problems = append(problems, "GEMINI_API_KEY is required")
	}
	if c.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is required")
	}
	if c.CompletionBackend != BackendGenerativeAI && c.CompletionBackend != BackendGenAI {
		problems = append(problems, fmt.Sprintf("COMPLETION_BACKEND %q must be %q or %q", c.CompletionBackend, BackendGenerativeAI, BackendGenAI))
	}
	if c.CompletionTimeout <= 0 {
		problems = append(problems, "COMPLETION_TIMEOUT must be positive")
	}
	if port, err := strconv.Atoi(c.HTTPPort); err != nil || port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("HTTP_PORT %q is not a valid port", c.HTTPPort))
	}
	if _, err := time.LoadLocation(c.AssistantTimezone); err != nil {
		problems = append(problems, fmt.Sprintf("ASSISTANT_TIMEZONE %q: %v", c.AssistantTimezone, err))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// Location returns the timezone calendar windows are computed in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.AssistantTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
