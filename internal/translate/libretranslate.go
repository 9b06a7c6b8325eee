package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

const (
	DefaultLibreTranslateURL     = "http://localhost:5000"
	DefaultLibreTranslateTimeout = 30 * time.Second
)

// LibreTranslateClient implements Translator against a LibreTranslate server.
type LibreTranslateClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	mapper     *LanguageMapper
	logger     *zap.Logger
}

// NewLibreTranslateClient builds a client. maxRetries of zero means a failed call
// is reported straight back to the caller.
func NewLibreTranslateClient(baseURL, apiKey string, timeout time.Duration, maxRetries int, logger *zap.Logger) *LibreTranslateClient {
	if baseURL == "" {
		baseURL = DefaultLibreTranslateURL
	}
	if timeout <= 0 {
		timeout = DefaultLibreTranslateTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = maxRetries
	rc.HTTPClient.Timeout = timeout
	rc.Backoff = retryablehttp.DefaultBackoff
	rc.CheckRetry = retryablehttp.DefaultRetryPolicy
	rc.Logger = zapLeveledLogger{s: logger.Sugar()}

	return &LibreTranslateClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: rc.StandardClient(),
		mapper:     NewLanguageMapper(),
		logger:     logger,
	}
}

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
}

type languagesResponse struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Translate translates text from sourceLang to targetLang.
func (c *LibreTranslateClient) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	reqPayload := translateRequest{
		Q:      text,
		Source: c.mapper.ToBackendCode(sourceLang),
		Target: c.mapper.ToBackendCode(targetLang),
		Format: "text",
		APIKey: c.apiKey,
	}

	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(&reqPayload); err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	url := c.baseURL + "/translate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Translation request failed", zap.Error(err), zap.String("url", url))
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("Translation request returned non-OK status",
			zap.Int("status_code", resp.StatusCode),
			zap.String("response", string(body)))
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var ltResp translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&ltResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	c.logger.Debug("Translation completed",
		zap.String("source_lang", reqPayload.Source),
		zap.String("target_lang", reqPayload.Target),
		zap.Duration("duration", time.Since(start)))

	return ltResp.TranslatedText, nil
}

// CheckHealth uses the /languages endpoint as a readiness probe.
func (c *LibreTranslateClient) CheckHealth(ctx context.Context) error {
	_, err := c.languages(ctx)
	return err
}

func (c *LibreTranslateClient) SupportedLanguages(ctx context.Context) ([]string, error) {
	languages, err := c.languages(ctx)
	if err != nil {
		return nil, err
	}
	codes := make([]string, 0, len(languages))
	for _, lang := range languages {
		codes = append(codes, lang.Code)
	}
	return codes, nil
}

func (c *LibreTranslateClient) languages(ctx context.Context) ([]languagesResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/languages", nil)
	if err != nil {
		return nil, fmt.Errorf("create languages request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("languages request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var languages []languagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&languages); err != nil {
		return nil, fmt.Errorf("decode languages response: %w", err)
	}
	return languages, nil
}
