package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write env file: %v", err)
	}
	return path
}

// clearEnv blanks every key NewFromEnv reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LLM_PROVIDER", "LLM_MODEL", "OPENAI_API_KEY", "OPENAI_BASE_URL", "GEMINI_API_KEY",
		"COMPLETION_TIMEOUT", "RECIPE_SOURCE_URL", "RECIPE_PAGE_SIZE", "RECIPE_SHUFFLE_SEED",
		"PORT", "DATABASE_PATH", "API_JWT_SECRET", "CORS_ALLOW_ORIGINS", "LOG_LEVEL", "LOG_FORMAT",
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_WEBHOOK_URL", "TELEGRAM_ALLOW_USER_IDS", "ADMIN_TELEGRAM_ID",
	} {
		t.Setenv(key, "")
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ENV_FILE", writeEnvFile(t, "OPENAI_API_KEY=sk-test\n"))

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.OpenAIAPIKey != "sk-test" {
			t.Errorf("Expected OpenAIAPIKey 'sk-test', got '%s'", cfg.OpenAIAPIKey)
		}
		if cfg.LLMProvider != ProviderOpenAI {
			t.Errorf("Expected provider '%s', got '%s'", ProviderOpenAI, cfg.LLMProvider)
		}
		if cfg.LLMModel != "gpt-3.5-turbo-0613" {
			t.Errorf("Expected default model, got '%s'", cfg.LLMModel)
		}
		if cfg.RecipeSourceURL != "http://data.haoma-health.com/api/v1/recipes" {
			t.Errorf("Unexpected RecipeSourceURL '%s'", cfg.RecipeSourceURL)
		}
		if cfg.RecipePageSize != 300 {
			t.Errorf("Expected page size 300, got %d", cfg.RecipePageSize)
		}
		if cfg.RecipeShuffleSeed != 50 {
			t.Errorf("Expected seed 50, got %d", cfg.RecipeShuffleSeed)
		}
		if cfg.CompletionTimeout != 120*time.Second {
			t.Errorf("Expected 120s timeout, got %s", cfg.CompletionTimeout)
		}
		if len(cfg.CORSAllowOrigins) != 1 || cfg.CORSAllowOrigins[0] != "*" {
			t.Errorf("Expected CORS origins [*], got %v", cfg.CORSAllowOrigins)
		}
	})

	t.Run("EnvironmentOverridesFile", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ENV_FILE", writeEnvFile(t, "OPENAI_API_KEY=from-file\nPORT=9000\n"))
		t.Setenv("OPENAI_API_KEY", "from-env")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.OpenAIAPIKey != "from-env" {
			t.Errorf("Expected environment to win, got '%s'", cfg.OpenAIAPIKey)
		}
		if cfg.Port != "9000" {
			t.Errorf("Expected port from file '9000', got '%s'", cfg.Port)
		}
	})

	t.Run("MissingEnvFile", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
		t.Setenv("OPENAI_API_KEY", "sk-test")

		_, err := NewFromEnv()
		if !errors.Is(err, ErrEnvFileMissing) {
			t.Fatalf("Expected ErrEnvFileMissing, got %v", err)
		}
	})

	t.Run("EmptyOpenAIKey", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ENV_FILE", writeEnvFile(t, "OPENAI_API_KEY=\n"))

		_, err := NewFromEnv()
		if err == nil {
			t.Fatal("Expected an error for empty OPENAI_API_KEY, got nil")
		}
		expectedError := "OPENAI_API_KEY environment variable not set"
		if err.Error() != expectedError {
			t.Errorf("Expected error '%s', got '%s'", expectedError, err.Error())
		}
	})

	t.Run("GeminiProvider", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ENV_FILE", writeEnvFile(t, "LLM_PROVIDER=gemini\nGEMINI_API_KEY=g-key\n"))

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.LLMModel != "gemini-1.5-flash" {
			t.Errorf("Expected gemini default model, got '%s'", cfg.LLMModel)
		}
	})

	t.Run("MissingGeminiKey", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ENV_FILE", writeEnvFile(t, "LLM_PROVIDER=gemini\n"))

		_, err := NewFromEnv()
		if err == nil || err.Error() != "GEMINI_API_KEY environment variable not set" {
			t.Errorf("Expected missing GEMINI_API_KEY error, got %v", err)
		}
	})

	t.Run("TelegramUsers", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ENV_FILE", writeEnvFile(t, "OPENAI_API_KEY=k\nTELEGRAM_ALLOW_USER_IDS=1, 2 ,3\nADMIN_TELEGRAM_ID=2\n"))

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if len(cfg.TelegramAllowedUserIDs) != 3 || cfg.TelegramAllowedUserIDs[1] != 2 {
			t.Errorf("Unexpected allowed users %v", cfg.TelegramAllowedUserIDs)
		}
		if cfg.AdminTelegramID != 2 {
			t.Errorf("Expected admin 2, got %d", cfg.AdminTelegramID)
		}
	})

	t.Run("InvalidSeed", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ENV_FILE", writeEnvFile(t, "OPENAI_API_KEY=k\nRECIPE_SHUFFLE_SEED=abc\n"))

		if _, err := NewFromEnv(); err == nil {
			t.Fatal("Expected an error for invalid seed, got nil")
		}
	})
}
