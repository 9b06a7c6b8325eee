package translate

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// EngineType selects the translation backend.
type EngineType string

const (
	EngineLibreTranslate EngineType = "libretranslate"
	EngineOpenAI         EngineType = "openai"
	EngineNone           EngineType = "none"
)

// Config holds everything NewTranslator needs.
type Config struct {
	Engine     EngineType
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	OpenAI     OpenAIConfig
	Logger     *zap.Logger
}

// NewTranslator builds the configured backend and wraps it with metrics and the
// same-language short circuit.
func NewTranslator(cfg Config) (Translator, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	cfg.Logger.Info("Creating translator",
		zap.String("engine", string(cfg.Engine)),
		zap.String("base_url", cfg.BaseURL))

	var backend Translator
	switch cfg.Engine {
	case EngineLibreTranslate:
		backend = NewLibreTranslateClient(cfg.BaseURL, cfg.APIKey, cfg.Timeout, cfg.MaxRetries, cfg.Logger)
	case EngineOpenAI:
		if cfg.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("openai engine requires an API key")
		}
		backend = NewOpenAITranslator(cfg.OpenAI, cfg.Logger)
	case EngineNone:
		backend = Passthrough{}
	default:
		return nil, fmt.Errorf("unknown translation engine: %s", cfg.Engine)
	}

	return NewInstrumented(backend, cfg.Engine), nil
}

// ParseEngineType parses an engine name case-insensitively. An empty name is an
// error: disabling translation has to be asked for with "none".
func ParseEngineType(s string) (EngineType, error) {
	switch EngineType(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return "", fmt.Errorf("translation engine not set (supported: libretranslate, openai, none)")
	case EngineLibreTranslate:
		return EngineLibreTranslate, nil
	case EngineOpenAI:
		return EngineOpenAI, nil
	case EngineNone:
		return EngineNone, nil
	default:
		return "", fmt.Errorf("unknown engine type: %s (supported: libretranslate, openai, none)", s)
	}
}
