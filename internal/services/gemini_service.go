package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/clide7029/MagicProxyAPp/internal/metrics"
	"github.com/clide7029/MagicProxyAPp/internal/models"
)

const (
	DefaultGeminiModel = "gemini-2.0-flash"
	geminiTimeout      = 60 * time.Second
)

type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string // overrides the Gemini API endpoint, used by tests
}

// GeminiService generates ideas with the Gemini API in JSON response mode
type GeminiService struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

func NewGeminiService(ctx context.Context, cfg GeminiConfig, logger *zap.Logger) (*GeminiService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("GOOGLE_API_KEY is not set")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	logger.Info("gemini idea generator enabled", zap.String("model", cfg.Model))
	return &GeminiService{client: client, model: cfg.Model, logger: logger}, nil
}

func (s *GeminiService) ModelName() string {
	return s.model
}

// GenerateBatch sends one batch prompt and parses the JSON answer
func (s *GeminiService) GenerateBatch(ctx context.Context, req GenerationRequest) ([]models.CardIdea, error) {
	start := time.Now()
	metrics.LLMRequestsTotal.WithLabelValues("gemini").Inc()

	ctx, cancel := context.WithTimeout(ctx, geminiTimeout)
	defer cancel()

	prompt := BuildBatchPrompt(req.Theme, req.DeckIdea, req.Cards)
	resp, err := s.client.Models.GenerateContent(ctx, s.model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		Temperature:       genai.Ptr[float32](openRouterTemperature),
	})
	metrics.LLMLatency.WithLabelValues("gemini").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.LLMErrorsTotal.WithLabelValues("gemini", "api").Inc()
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		metrics.LLMErrorsTotal.WithLabelValues("gemini", "empty").Inc()
		return nil, fmt.Errorf("%w: empty response from Gemini", ErrModelOutput)
	}

	ideas, err := ParseBatchResponse(text, req.Theme)
	if err != nil {
		metrics.LLMErrorsTotal.WithLabelValues("gemini", "schema").Inc()
		s.logger.Warn("gemini returned malformed batch",
			zap.Int("cards", len(req.Cards)),
			zap.String("preview", truncateBody([]byte(text))))
		return nil, err
	}
	return ideas, nil
}
