// Package metrics provides Prometheus metrics for the proxy generator.
// Scrape these at /metrics for Grafana dashboards and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxy_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "proxy_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
		},
		[]string{"method", "path"},
	)

	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "proxy_rate_limited_total",
			Help: "Requests rejected by the per-caller rate limiter",
		},
	)

	// Scryfall API Metrics
	ScryfallRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxy_scryfall_requests_total",
			Help: "Total Scryfall API requests by endpoint",
		},
		[]string{"endpoint"}, // "collection", "named", "card"
	)

	ScryfallErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxy_scryfall_errors_total",
			Help: "Scryfall API errors by type",
		},
		[]string{"type"}, // "network", "status", "decode", "retry"
	)

	// Card Cache Metrics
	CardCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "proxy_card_cache_hits_total",
			Help: "Card lookups served from the database cache",
		},
	)

	CardCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "proxy_card_cache_misses_total",
			Help: "Card lookups that went to Scryfall",
		},
	)

	CardsNotFoundTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "proxy_cards_not_found_total",
			Help: "Deck-list names that could not be resolved even by fuzzy lookup",
		},
	)

	// Language Model Metrics
	LLMRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxy_llm_requests_total",
			Help: "Total language model batch requests by provider",
		},
		[]string{"provider"},
	)

	LLMLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "proxy_llm_latency_seconds",
			Help:    "Language model batch call latency",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"provider"},
	)

	LLMErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxy_llm_errors_total",
			Help: "Language model errors by provider and type",
		},
		[]string{"provider", "type"}, // type: "network", "status", "read", "parse", "schema", "empty"
	)

	IdeasGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxy_ideas_generated_total",
			Help: "Proxy ideas persisted",
		},
		[]string{"source"}, // "generate", "reroll"
	)

	DecksCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "proxy_decks_created_total",
			Help: "Decks created by generation requests",
		},
	)
)
