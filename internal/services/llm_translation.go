package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hoaportal/backend/internal/config"
	"github.com/hoaportal/backend/internal/metrics"
	"github.com/hoaportal/backend/internal/models"
)

const (
	defaultLLMTimeout     = 60 * time.Second
	defaultLLMTemperature = 0.3
	defaultLLMMaxTokens   = 4000
)

// TextTranslator translates plain text between languages
type TextTranslator interface {
	Translate(ctx context.Context, text string, source, target models.Language) (string, error)
}

// LLMTranslationService translates text with an OpenAI-compatible chat
// completion API, consulting the translation cache first.
// It never retries; callers decide what to do with a TranslationError.
type LLMTranslationService struct {
	cache       *TranslationCache
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

const translationSystemPrompt = `You are a professional translator for a homeowners association community portal. You translate official community documents accurately and return only the translated text.`

const translationPrompt = `Translate the following text from %s to %s.

RULES:
- Preserve the original structure: paragraphs, line breaks, headings and bullet points
- Preserve special characters, numbers, dates, amounts and proper names
- Do not add explanations, notes or quotation marks around the result

TEXT:
%s`

// NewLLMTranslationService creates a translation service from configuration
func NewLLMTranslationService(cfg config.TranslationConfig, cache *TranslationCache) *LLMTranslationService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultLLMTimeout
	}
	// Zero is a valid temperature; only negative values fall back to the default
	temperature := cfg.Temperature
	if temperature < 0 {
		temperature = defaultLLMTemperature
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultLLMMaxTokens
	}

	svc := &LLMTranslationService{
		cache:       cache,
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}

	if svc.IsEnabled() {
		keyPreview := svc.apiKey
		if len(keyPreview) > 6 {
			keyPreview = keyPreview[:6] + "..."
		}
		infoLog("LLM translation service: enabled (model=%s, key=%s)", svc.model, keyPreview)
	} else {
		infoLog("LLM translation service: disabled (no LLM_API_KEY)")
	}

	return svc
}

// IsEnabled returns whether the model API is configured
func (s *LLMTranslationService) IsEnabled() bool {
	return s.apiKey != "" && s.baseURL != ""
}

// Translate returns text translated from source to target.
// Cache hits return without calling the model. Any failure is a *TranslationError.
func (s *LLMTranslationService) Translate(ctx context.Context, text string, source, target models.Language) (string, error) {
	if text == "" {
		return "", &TranslationError{Message: "empty input text"}
	}

	if cached, ok := s.cache.Get(text, target); ok {
		return cached, nil
	}

	if !s.IsEnabled() {
		return "", &TranslationError{Message: "translation service not configured"}
	}

	translated, err := s.complete(ctx, text, source, target)
	if err != nil {
		infoLog("LLM translation error (%s -> %s, %d chars): %v", source, target, len([]rune(text)), err)
		return "", err
	}

	s.cache.Put(text, target, translated)
	return translated, nil
}

func (s *LLMTranslationService) complete(ctx context.Context, text string, source, target models.Language) (string, error) {
	startTime := time.Now()

	req := chatCompletionRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: translationSystemPrompt},
			{Role: "user", Content: fmt.Sprintf(translationPrompt, source.DisplayName(), target.DisplayName(), text)},
		},
		Temperature: s.temperature, // Low temperature favors faithful, repeatable output
		MaxTokens:   s.maxTokens,
	}

	reqJSON, err := json.Marshal(req)
	if err != nil {
		return "", newTranslationError(err, "failed to marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(reqJSON))
	if err != nil {
		return "", newTranslationError(err, "failed to create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)

	debugLog("LLM request: model=%s, %s -> %s, input_len=%d", s.model, source, target, len([]rune(text)))

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		metrics.LLMErrorsTotal.WithLabelValues("network").Inc()
		return "", newTranslationError(err, "request failed")
	}
	defer resp.Body.Close()

	latency := time.Since(startTime)
	metrics.LLMAPILatency.Observe(latency.Seconds())

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.LLMErrorsTotal.WithLabelValues("read").Inc()
		return "", newTranslationError(err, "failed to read response")
	}

	if resp.StatusCode != http.StatusOK {
		metrics.LLMErrorsTotal.WithLabelValues("api").Inc()
		debugLog("LLM API error: status=%d body=%s", resp.StatusCode, string(body))
		return "", &TranslationError{Message: fmt.Sprintf("API returned status %d: %s", resp.StatusCode, truncateText(string(body), 500))}
	}

	var apiResp chatCompletionResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		metrics.LLMErrorsTotal.WithLabelValues("parse").Inc()
		return "", newTranslationError(err, "failed to parse API response")
	}

	if apiResp.Error != nil {
		metrics.LLMErrorsTotal.WithLabelValues("api").Inc()
		return "", &TranslationError{Message: "API error: " + apiResp.Error.Message}
	}

	if len(apiResp.Choices) == 0 || apiResp.Choices[0].Message.Content == "" {
		metrics.LLMErrorsTotal.WithLabelValues("empty").Inc()
		return "", &TranslationError{Message: "no response from translation model"}
	}

	if apiResp.Choices[0].FinishReason == "length" {
		metrics.LLMErrorsTotal.WithLabelValues("truncated").Inc()
		infoLog("LLM reply truncated at %d max tokens for %d chars of input", s.maxTokens, len([]rune(text)))
		return "", &TranslationError{Message: "translation model reply was truncated"}
	}

	metrics.LLMRequestsTotal.Inc()
	debugLog("LLM translated %d chars in %v (finish=%s)", len([]rune(text)), latency, apiResp.Choices[0].FinishReason)

	// The model output is trusted as-is; nothing checks it is in the target language
	return apiResp.Choices[0].Message.Content, nil
}
