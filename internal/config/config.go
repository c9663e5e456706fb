package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	defaultOpenAIModel = "gpt-3.5-turbo-0613"
	defaultGeminiModel = "gemini-1.5-flash"
	defaultRecipeURL   = "http://data.haoma-health.com/api/v1/recipes"
)

// Config holds the configuration for the application.
type Config struct {
	LLMProvider       string
	LLMModel          string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	GeminiAPIKey      string
	CompletionTimeout time.Duration

	RecipeSourceURL   string
	RecipePageSize    int
	RecipeShuffleSeed uint64

	Port             string
	DatabasePath     string
	APIJWTSecret     string
	CORSAllowOrigins []string

	LogLevel  string
	LogFormat string

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
	AdminTelegramID        int64
}

// ErrEnvFileMissing is returned when the .env file cannot be found.
var ErrEnvFileMissing = errors.New("there is no .env file, copy .env.example to .env")

// NewFromEnv creates a new Config from the .env file and the process environment.
// The file named by ENV_FILE (default ".env") must exist; process environment
// variables take precedence over values in the file.
func NewFromEnv() (*Config, error) {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = ".env"
	}

	fileValues, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrEnvFileMissing, path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	env := func(key, def string) string {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
		if v := strings.TrimSpace(fileValues[key]); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		LLMProvider:     strings.ToLower(env("LLM_PROVIDER", ProviderOpenAI)),
		OpenAIAPIKey:    env("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   env("OPENAI_BASE_URL", ""),
		GeminiAPIKey:    env("GEMINI_API_KEY", ""),
		RecipeSourceURL: env("RECIPE_SOURCE_URL", defaultRecipeURL),
		Port:            env("PORT", "8000"),
		DatabasePath:    env("DATABASE_PATH", "data/meal-planner.db"),
		APIJWTSecret:    env("API_JWT_SECRET", ""),
		LogLevel:        env("LOG_LEVEL", "info"),
		LogFormat:       env("LOG_FORMAT", "json"),

		TelegramBotToken:   env("TELEGRAM_BOT_TOKEN", ""),
		TelegramWebhookURL: env("TELEGRAM_WEBHOOK_URL", ""),
	}

	switch cfg.LLMProvider {
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
		cfg.LLMModel = env("LLM_MODEL", defaultOpenAIModel)
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
		}
		cfg.LLMModel = env("LLM_MODEL", defaultGeminiModel)
	default:
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q", cfg.LLMProvider)
	}

	if cfg.CompletionTimeout, err = time.ParseDuration(env("COMPLETION_TIMEOUT", "120s")); err != nil {
		return nil, fmt.Errorf("invalid COMPLETION_TIMEOUT: %w", err)
	}
	if cfg.RecipePageSize, err = strconv.Atoi(env("RECIPE_PAGE_SIZE", "300")); err != nil || cfg.RecipePageSize <= 0 {
		return nil, fmt.Errorf("invalid RECIPE_PAGE_SIZE %q", env("RECIPE_PAGE_SIZE", ""))
	}
	if cfg.RecipeShuffleSeed, err = strconv.ParseUint(env("RECIPE_SHUFFLE_SEED", "50"), 10, 64); err != nil {
		return nil, fmt.Errorf("invalid RECIPE_SHUFFLE_SEED: %w", err)
	}

	cfg.CORSAllowOrigins = splitAndTrim(env("CORS_ALLOW_ORIGINS", "*"))

	// Telegram Config (optional for the API, required for the bot)
	for _, raw := range splitAndTrim(env("TELEGRAM_ALLOW_USER_IDS", "")) {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_ALLOW_USER_IDS entry %q: %w", raw, err)
		}
		cfg.TelegramAllowedUserIDs = append(cfg.TelegramAllowedUserIDs, id)
	}
	if raw := env("ADMIN_TELEGRAM_ID", ""); raw != "" {
		if cfg.AdminTelegramID, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
	}

	return cfg, nil
}

func splitAndTrim(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
