package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/clide7029/MagicProxyAPp/internal/metrics"
	"github.com/clide7029/MagicProxyAPp/internal/models"
)

const (
	DefaultOpenRouterModel   = "openai/gpt-5-mini"
	DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

	openRouterTimeout        = 30 * time.Second
	openRouterMaxRetries     = 2
	openRouterInitialBackoff = 2 * time.Second
	openRouterMaxBackoff     = 8 * time.Second
	openRouterTemperature    = 0.8
	openRouterAppTitle       = "Magic Proxy App"
)

type OpenRouterConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	AppURL  string // sent as HTTP-Referer when set
}

// OpenRouterService generates ideas through an OpenAI-compatible chat
// completions endpoint
type OpenRouterService struct {
	apiKey         string
	baseURL        string
	model          string
	appURL         string
	client         *http.Client
	logger         *zap.Logger
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

func NewOpenRouterService(cfg OpenRouterConfig, logger *zap.Logger) (*OpenRouterService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OPENROUTER_API_KEY is not set")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenRouterBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenRouterModel
	}
	return &OpenRouterService{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		appURL:  cfg.AppURL,
		client: &http.Client{
			Timeout: openRouterTimeout,
		},
		logger:         logger,
		maxRetries:     openRouterMaxRetries,
		initialBackoff: openRouterInitialBackoff,
		maxBackoff:     openRouterMaxBackoff,
	}, nil
}

func (s *OpenRouterService) ModelName() string {
	return s.model
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponseFormat struct {
	Type string `json:"type"`
}

type chatCompletionRequest struct {
	Model          string             `json:"model"`
	Messages       []chatMessage      `json:"messages"`
	Temperature    float64            `json:"temperature"`
	ResponseFormat chatResponseFormat `json:"response_format"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// GenerateBatch sends one batch prompt and parses the JSON answer
func (s *OpenRouterService) GenerateBatch(ctx context.Context, req GenerationRequest) ([]models.CardIdea, error) {
	start := time.Now()
	metrics.LLMRequestsTotal.WithLabelValues("openrouter").Inc()

	body, err := json.Marshal(chatCompletionRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: BuildBatchPrompt(req.Theme, req.DeckIdea, req.Cards)},
		},
		Temperature:    openRouterTemperature,
		ResponseFormat: chatResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	respBody, err := s.post(ctx, body)
	metrics.LLMLatency.WithLabelValues("openrouter").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		metrics.LLMErrorsTotal.WithLabelValues("openrouter", "parse").Inc()
		return nil, fmt.Errorf("failed to parse OpenRouter response: %w", err)
	}

	content := "{}"
	if len(completion.Choices) > 0 && completion.Choices[0].Message.Content != "" {
		content = completion.Choices[0].Message.Content
	}

	ideas, err := ParseBatchResponse(content, req.Theme)
	if err != nil {
		metrics.LLMErrorsTotal.WithLabelValues("openrouter", "schema").Inc()
		s.logger.Warn("openrouter returned malformed batch",
			zap.Int("cards", len(req.Cards)),
			zap.String("preview", truncateBody([]byte(content))))
		return nil, err
	}
	return ideas, nil
}

// post retries 429 and 5xx responses with exponential backoff. Network
// errors and other statuses fail at once.
func (s *OpenRouterService) post(ctx context.Context, body []byte) ([]byte, error) {
	backoff := s.initialBackoff

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Title", openRouterAppTitle)
		if s.appURL != "" {
			req.Header.Set("HTTP-Referer", s.appURL)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			metrics.LLMErrorsTotal.WithLabelValues("openrouter", "network").Inc()
			return nil, fmt.Errorf("OpenRouter request failed: %w", err)
		}
		respBody, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			metrics.LLMErrorsTotal.WithLabelValues("openrouter", "read").Inc()
			return nil, fmt.Errorf("failed to read OpenRouter response: %w", err)
		}

		if resp.StatusCode == http.StatusOK {
			return respBody, nil
		}

		upErr := &UpstreamError{Service: "OpenRouter", StatusCode: resp.StatusCode, Body: truncateBody(respBody)}
		if !upErr.Retryable() || attempt >= s.maxRetries {
			metrics.LLMErrorsTotal.WithLabelValues("openrouter", "api").Inc()
			return nil, upErr
		}

		s.logger.Warn("openrouter request failed, retrying",
			zap.Int("status", resp.StatusCode),
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", backoff))
		if err := sleepCtx(ctx, backoff); err != nil {
			return nil, err
		}
		backoff = min(backoff*2, s.maxBackoff)
	}
}
