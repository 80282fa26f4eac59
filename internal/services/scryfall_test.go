package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func newTestScryfall(t *testing.T, handler http.HandlerFunc) *ScryfallService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	s := NewScryfallService(server.URL, zap.NewNop())
	s.limiter = rate.NewLimiter(rate.Inf, 1)
	s.initialBackoff = time.Millisecond
	s.maxBackoff = 4 * time.Millisecond
	return s
}

func TestScryfallFetchCollection_Batches(t *testing.T) {
	var calls int32
	s := newTestScryfall(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/cards/collection", r.URL.Path)

		var req scryfallCollectionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.LessOrEqual(t, len(req.Identifiers), MaxCollectionBatch)

		data := []map[string]any{}
		notFound := []CardIdentifier{}
		for _, id := range req.Identifiers {
			if id.Name == "Missing Card" {
				notFound = append(notFound, id)
				continue
			}
			data = append(data, scryfallTestCard(id.Name))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "not_found": notFound, "data": data})
	})

	ids := make([]CardIdentifier, 0, 80)
	for i := 0; i < 79; i++ {
		ids = append(ids, CardIdentifier{Name: fmt.Sprintf("Card %d", i)})
	}
	ids = append(ids, CardIdentifier{Name: "Missing Card"})

	result, err := s.FetchCollection(context.Background(), ids)

	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Len(t, result.Cards, 79)
	assert.Equal(t, []CardIdentifier{{Name: "Missing Card"}}, result.NotFound)
	assert.Equal(t, "Card 0", result.Cards[0].Name)
}

func TestScryfallFetchCollection_RetriesServerErrors(t *testing.T) {
	var calls int32
	s := newTestScryfall(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(scryfallCollectionResponse{Data: nil})
	})

	_, err := s.FetchCollection(context.Background(), []CardIdentifier{{Name: "Sol Ring"}})

	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestScryfallFetchCollection_GivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	s := newTestScryfall(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	})

	_, err := s.FetchCollection(context.Background(), []CardIdentifier{{Name: "Sol Ring"}})

	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, http.StatusBadGateway, upErr.StatusCode)
	assert.Contains(t, err.Error(), "upstream down")
	assert.Equal(t, int32(scryfallMaxRetries+1), atomic.LoadInt32(&calls))
}

func TestScryfallFetchCollection_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	s := newTestScryfall(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := s.FetchCollection(context.Background(), []CardIdentifier{{Name: "Sol Ring"}})

	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, http.StatusBadRequest, upErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestScryfallGetCardByFuzzyName(t *testing.T) {
	s := newTestScryfall(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cards/named", r.URL.Path)
		switch r.URL.Query().Get("fuzzy") {
		case "sol rng":
			_ = json.NewEncoder(w).Encode(scryfallTestCard("Sol Ring"))
		case "error object":
			_, _ = w.Write([]byte(`{"object":"error","details":"too many matches"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"object":"error","code":"not_found"}`))
		}
	})

	card, err := s.GetCardByFuzzyName(context.Background(), "sol rng")
	require.NoError(t, err)
	require.NotNil(t, card)
	assert.Equal(t, "Sol Ring", card.Name)

	card, err = s.GetCardByFuzzyName(context.Background(), "nothing like it")
	assert.NoError(t, err)
	assert.Nil(t, card)

	card, err = s.GetCardByFuzzyName(context.Background(), "error object")
	assert.NoError(t, err)
	assert.Nil(t, card)
}

func TestScryfallGetCard(t *testing.T) {
	s := newTestScryfall(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/cards/abc" {
			_ = json.NewEncoder(w).Encode(scryfallTestCard("Llanowar Elves"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	card, err := s.GetCard(context.Background(), "abc")
	require.NoError(t, err)
	require.NotNil(t, card)
	assert.Equal(t, "Llanowar Elves", card.Name)
	assert.Equal(t, "1", card.Power)

	card, err = s.GetCard(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, card)
}

func TestScryfallCancelledDuringBackoff(t *testing.T) {
	s := newTestScryfall(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	s.initialBackoff = time.Hour
	s.maxBackoff = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := s.GetCard(ctx, "abc")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func scryfallTestCard(name string) map[string]any {
	return map[string]any{
		"object":         "card",
		"id":             "id-" + name,
		"oracle_id":      "oracle-" + name,
		"name":           name,
		"type_line":      "Creature — Elf Druid",
		"mana_cost":      "{G}",
		"cmc":            1.0,
		"color_identity": []string{"G"},
		"oracle_text":    "{T}: Add {G}.",
		"power":          "1",
		"toughness":      "1",
	}
}
