package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/launchkit-studio/site-assistant/internal/agent/model"
	"github.com/launchkit-studio/site-assistant/internal/content"
	"github.com/launchkit-studio/site-assistant/internal/core"
	logx "github.com/launchkit-studio/site-assistant/pkg/logger"
	pkgredis "github.com/launchkit-studio/site-assistant/pkg/redis"
)

// AppConfig defines all configurable parameters for the assistant,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment core.Environment `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string           `envconfig:"LOG_LEVEL"`

	// Infrastructure
	Redis pkgredis.Config

	// LLM provider; only the chat command needs a key.
	APIKey  string `envconfig:"GEMINI_API_KEY"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Response     model.ResponseModelConfig
	Prompt       model.ResponsePromptConfig
	Conversation model.ConversationConfig
	Pricing      model.PricingConfig
	Content      model.ContentConfig
}

// loadConfig reads envFile when it exists, then the process environment, and
// initialises logging from the result.
func loadConfig(envFile string) (*AppConfig, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}

	logx.Init(logx.LoggerOpts{Environment: cfg.Environment, Level: cfg.LogLevel})
	return &cfg, nil
}

// loadLibrary loads the legal and company collections from the content root.
func loadLibrary(cfg model.ContentConfig) (*content.Library, error) {
	lib, err := content.LoadLibrary(os.DirFS(cfg.Root), content.DefaultCollections(cfg.LegalDir, cfg.CompanyDir)...)
	if err != nil {
		return nil, fmt.Errorf("load content from %s: %w", cfg.Root, err)
	}
	return lib, nil
}
