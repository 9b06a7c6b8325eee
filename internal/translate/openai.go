package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIConfig configures the chat-completion translator.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
}

// OpenAITranslator translates through a chat-completion model.
type OpenAITranslator struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float64
	mapper      *LanguageMapper
	logger      *zap.Logger
}

func NewOpenAITranslator(cfg OpenAIConfig, logger *zap.Logger) *OpenAITranslator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT3Dot5Turbo
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAITranslator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		mapper:      NewLanguageMapper(),
		logger:      logger,
	}
}

const translatePrompt = `You are a translation engine. Translate the user's message from %s to %s.
Reply with the translation only, without quotes, notes or explanations.`

func (t *OpenAITranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	source := LanguageName(strings.ToLower(sourceLang))
	target := LanguageName(strings.ToLower(targetLang))

	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf(translatePrompt, source, target),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
		MaxTokens:   t.maxTokens,
		Temperature: float32(t.temperature),
	})
	if err != nil {
		t.logger.Error("Failed to get translation from OpenAI", zap.Error(err))
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// CheckHealth lists models, which needs a valid key and a reachable API.
func (t *OpenAITranslator) CheckHealth(ctx context.Context) error {
	if _, err := t.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// SupportedLanguages returns the advertised list; the model itself has no fixed set.
func (t *OpenAITranslator) SupportedLanguages(ctx context.Context) ([]string, error) {
	codes := make([]string, 0, len(supported))
	for _, l := range supported {
		codes = append(codes, t.mapper.ToBackendCode(l.Code))
	}
	return codes, nil
}
