package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/clide7029/MagicProxyAPp/internal/metrics"
	"github.com/clide7029/MagicProxyAPp/internal/models"
)

// CardCacheFreshness is how long a cached Scryfall record is preferred over a re-fetch
const CardCacheFreshness = 7 * 24 * time.Hour

// CardFetcher is the upstream card database (implemented by ScryfallService)
type CardFetcher interface {
	FetchCollection(ctx context.Context, identifiers []CardIdentifier) (*CollectionResult, error)
	GetCardByFuzzyName(ctx context.Context, name string) (*models.CardRecord, error)
	GetCard(ctx context.Context, id string) (*models.CardRecord, error)
}

// CardCache serves card lookups from the database when a fresh record exists
// and falls through to Scryfall otherwise
type CardCache struct {
	fetcher CardFetcher
	db      *gorm.DB
	logger  *zap.Logger
	now     func() time.Time
}

func NewCardCache(fetcher CardFetcher, db *gorm.DB, logger *zap.Logger) *CardCache {
	return &CardCache{
		fetcher: fetcher,
		db:      db,
		logger:  logger,
		now:     time.Now,
	}
}

// FetchCards resolves identifiers, fetching only those without a fresh cache
// row. Fetched cards are written back to the cache; write failures are logged
// and do not fail the lookup.
func (c *CardCache) FetchCards(ctx context.Context, identifiers []CardIdentifier) (*CollectionResult, error) {
	hits, misses := c.lookup(ctx, identifiers)
	metrics.CardCacheHits.Add(float64(len(identifiers) - len(misses)))
	metrics.CardCacheMisses.Add(float64(len(misses)))

	result := &CollectionResult{Cards: hits}
	if len(misses) == 0 {
		return result, nil
	}

	fetched, err := c.fetcher.FetchCollection(ctx, misses)
	if err != nil {
		return nil, err
	}
	if err := c.Remember(ctx, fetched.Cards...); err != nil {
		c.logger.Warn("failed to cache scryfall cards", zap.Error(err))
	}
	result.Cards = append(result.Cards, fetched.Cards...)
	result.NotFound = fetched.NotFound
	return result, nil
}

// FuzzyCard resolves a misspelled name upstream and caches the match.
// Returns nil, nil when nothing matched.
func (c *CardCache) FuzzyCard(ctx context.Context, name string) (*models.CardRecord, error) {
	card, err := c.fetcher.GetCardByFuzzyName(ctx, name)
	if err != nil || card == nil {
		return nil, err
	}
	if err := c.Remember(ctx, *card); err != nil {
		c.logger.Warn("failed to cache fuzzy match", zap.String("name", name), zap.Error(err))
	}
	return card, nil
}

// CardByID returns the card with the given Scryfall id, from cache when fresh.
// Returns nil, nil when Scryfall does not know the id.
func (c *CardCache) CardByID(ctx context.Context, id string) (*models.CardRecord, error) {
	var row models.CacheCard
	err := c.db.WithContext(ctx).Where("scryfall_id = ?", id).Limit(1).Find(&row).Error
	if err == nil && row.OracleID != "" && c.isFresh(row.UpdatedAt) {
		metrics.CardCacheHits.Inc()
		card := row.JSONBlob
		return &card, nil
	}

	metrics.CardCacheMisses.Inc()
	card, err := c.fetcher.GetCard(ctx, id)
	if err != nil || card == nil {
		return nil, err
	}
	if err := c.Remember(ctx, *card); err != nil {
		c.logger.Warn("failed to cache card", zap.String("id", id), zap.Error(err))
	}
	return card, nil
}

// Remember upserts cards by oracle id. Cards without an oracle id are skipped.
// A failure only means later lookups go upstream again, so callers may ignore it.
func (c *CardCache) Remember(ctx context.Context, cards ...models.CardRecord) error {
	now := c.now()
	rows := make([]models.CacheCard, 0, len(cards))
	seen := make(map[string]bool, len(cards))
	for _, card := range cards {
		if card.OracleID == "" || seen[card.OracleID] {
			continue
		}
		seen[card.OracleID] = true
		rows = append(rows, models.CacheCard{
			OracleID:   card.OracleID,
			NameKey:    nameKey(card.Name),
			ScryfallID: card.ID,
			JSONBlob:   card,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}
	if len(rows) == 0 {
		return nil
	}

	err := c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "oracle_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name_key", "scryfall_id", "json_blob", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to upsert %d cache cards: %w", len(rows), err)
	}
	return nil
}

// lookup splits identifiers into cached fresh records and identifiers that
// need an upstream call. Set+collector number lookups are never cached.
func (c *CardCache) lookup(ctx context.Context, identifiers []CardIdentifier) ([]models.CardRecord, []CardIdentifier) {
	var oracleIDs, scryfallIDs, names []string
	for _, id := range identifiers {
		switch {
		case id.OracleID != "":
			oracleIDs = append(oracleIDs, id.OracleID)
		case id.ID != "":
			scryfallIDs = append(scryfallIDs, id.ID)
		case id.Name != "":
			names = append(names, nameKey(id.Name))
		}
	}

	byOracle := make(map[string]models.CardRecord)
	byID := make(map[string]models.CardRecord)
	byName := make(map[string]models.CardRecord)
	if len(oracleIDs)+len(scryfallIDs)+len(names) > 0 {
		var rows []models.CacheCard
		err := c.db.WithContext(ctx).
			Where("oracle_id IN ? OR scryfall_id IN ? OR name_key IN ?", oracleIDs, scryfallIDs, names).
			Find(&rows).Error
		if err != nil {
			c.logger.Warn("card cache read failed", zap.Error(err))
			return nil, identifiers
		}
		for _, row := range rows {
			if !c.isFresh(row.UpdatedAt) {
				continue
			}
			byOracle[row.OracleID] = row.JSONBlob
			if row.ScryfallID != "" {
				byID[row.ScryfallID] = row.JSONBlob
			}
			if row.NameKey != "" {
				byName[row.NameKey] = row.JSONBlob
			}
		}
	}

	var hits []models.CardRecord
	var misses []CardIdentifier
	for _, id := range identifiers {
		var card models.CardRecord
		var ok bool
		switch {
		case id.OracleID != "":
			card, ok = byOracle[id.OracleID]
		case id.ID != "":
			card, ok = byID[id.ID]
		case id.Name != "":
			card, ok = byName[nameKey(id.Name)]
		}
		if ok {
			hits = append(hits, card)
		} else {
			misses = append(misses, id)
		}
	}
	return hits, misses
}

// isFresh checks if a cache row is within the freshness window
func (c *CardCache) isFresh(updatedAt time.Time) bool {
	if updatedAt.IsZero() {
		return false
	}
	return c.now().Sub(updatedAt) < CardCacheFreshness
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
