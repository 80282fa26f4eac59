package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/clide7029/MagicProxyAPp/internal/metrics"
	"github.com/clide7029/MagicProxyAPp/internal/models"
)

const (
	scryfallBaseURL   = "https://api.scryfall.com"
	scryfallUserAgent = "MagicProxy/1.0"
	scryfallTimeout   = 10 * time.Second
	scryfallPacing    = 100 * time.Millisecond // Scryfall asks for at most 10 req/s

	// MaxCollectionBatch is the most identifiers /cards/collection accepts per call
	MaxCollectionBatch = 75

	scryfallMaxRetries     = 3
	scryfallInitialBackoff = 1 * time.Second
	scryfallMaxBackoff     = 8 * time.Second
)

// CardIdentifier selects one card in a collection lookup. Set exactly one of
// ID, OracleID, Name, or Set together with CollectorNumber.
type CardIdentifier struct {
	ID              string `json:"id,omitempty"`
	OracleID        string `json:"oracle_id,omitempty"`
	Name            string `json:"name,omitempty"`
	Set             string `json:"set,omitempty"`
	CollectorNumber string `json:"collector_number,omitempty"`
}

// CollectionResult holds the cards found by a collection lookup and the
// identifiers Scryfall could not match
type CollectionResult struct {
	Cards    []models.CardRecord
	NotFound []CardIdentifier
}

type scryfallCollectionRequest struct {
	Identifiers []CardIdentifier `json:"identifiers"`
}

type scryfallCollectionResponse struct {
	Object   string              `json:"object"`
	NotFound []CardIdentifier    `json:"not_found"`
	Data     []models.CardRecord `json:"data"`
}

// scryfallObject peeks at the object field; fuzzy misses come back as "error"
type scryfallObject struct {
	Object  string `json:"object"`
	Details string `json:"details"`
}

type ScryfallService struct {
	client         *http.Client
	baseURL        string
	limiter        *rate.Limiter
	logger         *zap.Logger
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewScryfallService creates a paced Scryfall client. An empty baseURL uses
// the public API.
func NewScryfallService(baseURL string, logger *zap.Logger) *ScryfallService {
	if baseURL == "" {
		baseURL = scryfallBaseURL
	}
	return &ScryfallService{
		client: &http.Client{
			Timeout: scryfallTimeout,
		},
		baseURL:        baseURL,
		limiter:        rate.NewLimiter(rate.Every(scryfallPacing), 1),
		logger:         logger,
		maxRetries:     scryfallMaxRetries,
		initialBackoff: scryfallInitialBackoff,
		maxBackoff:     scryfallMaxBackoff,
	}
}

// FetchCollection looks cards up in batches of MaxCollectionBatch
// identifiers. Any failed batch fails the whole lookup.
func (s *ScryfallService) FetchCollection(ctx context.Context, identifiers []CardIdentifier) (*CollectionResult, error) {
	result := &CollectionResult{}
	for start := 0; start < len(identifiers); start += MaxCollectionBatch {
		end := min(start+MaxCollectionBatch, len(identifiers))

		body, err := json.Marshal(scryfallCollectionRequest{Identifiers: identifiers[start:end]})
		if err != nil {
			return nil, fmt.Errorf("failed to encode collection request: %w", err)
		}

		var resp scryfallCollectionResponse
		if err := s.doJSON(ctx, "collection", http.MethodPost, s.baseURL+"/cards/collection", body, &resp); err != nil {
			return nil, fmt.Errorf("failed to fetch card collection: %w", err)
		}
		result.Cards = append(result.Cards, resp.Data...)
		result.NotFound = append(result.NotFound, resp.NotFound...)
	}
	return result, nil
}

// GetCardByFuzzyName resolves a possibly misspelled name.
// Returns nil, nil when Scryfall has no single match.
func (s *ScryfallService) GetCardByFuzzyName(ctx context.Context, name string) (*models.CardRecord, error) {
	reqURL := fmt.Sprintf("%s/cards/named?fuzzy=%s", s.baseURL, url.QueryEscape(name))

	var raw json.RawMessage
	if err := s.doJSON(ctx, "named", http.MethodGet, reqURL, nil, &raw); err != nil {
		var upErr *UpstreamError
		if errors.As(err, &upErr) && !upErr.Retryable() {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fuzzy match %q: %w", name, err)
	}

	var obj scryfallObject
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Object == "error" {
		return nil, nil
	}
	var card models.CardRecord
	if err := json.Unmarshal(raw, &card); err != nil {
		metrics.ScryfallErrorsTotal.WithLabelValues("decode").Inc()
		return nil, fmt.Errorf("failed to decode scryfall card: %w", err)
	}
	return &card, nil
}

// GetCard fetches a card by Scryfall id. Returns nil, nil on 404.
func (s *ScryfallService) GetCard(ctx context.Context, id string) (*models.CardRecord, error) {
	reqURL := fmt.Sprintf("%s/cards/%s", s.baseURL, url.PathEscape(id))

	var card models.CardRecord
	if err := s.doJSON(ctx, "card", http.MethodGet, reqURL, nil, &card); err != nil {
		var upErr *UpstreamError
		if errors.As(err, &upErr) && upErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get card %s: %w", id, err)
	}
	return &card, nil
}

// doJSON sends one request, retrying 429 and 5xx responses with capped
// exponential backoff. Other statuses come back as *UpstreamError at once.
func (s *ScryfallService) doJSON(ctx context.Context, endpoint, method, reqURL string, body []byte, out any) error {
	backoff := s.initialBackoff

	for attempt := 0; ; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter error: %w", err)
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", scryfallUserAgent)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		metrics.ScryfallRequestsTotal.WithLabelValues(endpoint).Inc()
		resp, err := s.client.Do(req)
		if err != nil {
			metrics.ScryfallErrorsTotal.WithLabelValues("network").Inc()
			return fmt.Errorf("scryfall request failed: %w", err)
		}

		respBody, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			metrics.ScryfallErrorsTotal.WithLabelValues("network").Inc()
			return fmt.Errorf("failed to read scryfall response: %w", err)
		}

		if resp.StatusCode == http.StatusOK {
			if err := json.Unmarshal(respBody, out); err != nil {
				metrics.ScryfallErrorsTotal.WithLabelValues("decode").Inc()
				return fmt.Errorf("failed to decode scryfall response: %w", err)
			}
			return nil
		}

		upErr := &UpstreamError{Service: "Scryfall", StatusCode: resp.StatusCode, Body: truncateBody(respBody)}
		if !upErr.Retryable() || attempt >= s.maxRetries {
			metrics.ScryfallErrorsTotal.WithLabelValues("status").Inc()
			return upErr
		}

		wait := backoff
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if secs, err := strconv.Atoi(retryAfter); err == nil && secs >= 0 {
				wait = min(time.Duration(secs)*time.Second, s.maxBackoff)
			}
		}
		metrics.ScryfallErrorsTotal.WithLabelValues("retry").Inc()
		s.logger.Warn("scryfall request throttled, retrying",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait))

		if err := sleepCtx(ctx, wait); err != nil {
			return err
		}
		backoff = min(backoff*2, s.maxBackoff)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
