package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"gorm.io/gorm"

	"github.com/clide7029/MagicProxyAPp/internal/models"
)

// ErrVersionTaken is returned by CreateIdea when another idea already holds
// the same version for the card
var ErrVersionTaken = errors.New("idea version already exists")

// DeckStore persists decks, their cards and idea versions
type DeckStore struct {
	db *gorm.DB
}

func NewDeckStore(db *gorm.DB) *DeckStore {
	return &DeckStore{db: db}
}

// CreateDeck assigns a short public id when the deck has none
func (s *DeckStore) CreateDeck(ctx context.Context, deck *models.Deck) error {
	if deck.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate deck id: %w", err)
		}
		deck.ID = id
	}
	if err := s.db.WithContext(ctx).Omit("Cards").Create(deck).Error; err != nil {
		return fmt.Errorf("failed to create deck: %w", err)
	}
	return nil
}

func (s *DeckStore) CreateDeckCard(ctx context.Context, card *models.DeckCard) error {
	if card.ID == "" {
		card.ID = uuid.New().String()
	}
	if err := s.db.WithContext(ctx).Omit("ProxyIdeas").Create(card).Error; err != nil {
		return fmt.Errorf("failed to create deck card: %w", err)
	}
	return nil
}

// GetDeckCard returns ErrNotFound for unknown ids
func (s *DeckStore) GetDeckCard(ctx context.Context, id string) (*models.DeckCard, error) {
	var card models.DeckCard
	err := s.db.WithContext(ctx).First(&card, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("deck card %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load deck card: %w", err)
	}
	return &card, nil
}

// GetDeck returns the deck row without cards, or ErrNotFound
func (s *DeckStore) GetDeck(ctx context.Context, id string) (*models.Deck, error) {
	var deck models.Deck
	err := s.db.WithContext(ctx).First(&deck, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("deck %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load deck: %w", err)
	}
	return &deck, nil
}

// CreateIdea inserts an idea version. A duplicate (card, version) pair gives ErrVersionTaken.
func (s *DeckStore) CreateIdea(ctx context.Context, idea *models.ProxyIdea) error {
	if idea.ID == "" {
		idea.ID = uuid.New().String()
	}
	err := s.db.WithContext(ctx).Create(idea).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("card %s version %d: %w", idea.DeckCardID, idea.Version, ErrVersionTaken)
	}
	if err != nil {
		return fmt.Errorf("failed to create proxy idea: %w", err)
	}
	return nil
}

// NextVersion is one more than the card's highest idea version, or 1
func (s *DeckStore) NextVersion(ctx context.Context, deckCardID string) (int, error) {
	var maxVersion int
	err := s.db.WithContext(ctx).Model(&models.ProxyIdea{}).
		Where("deck_card_id = ?", deckCardID).
		Select("COALESCE(MAX(version), 0)").
		Scan(&maxVersion).Error
	if err != nil {
		return 0, fmt.Errorf("failed to read idea versions: %w", err)
	}
	return maxVersion + 1, nil
}

// LatestIdea returns the highest version for a card, or nil when it has none
func (s *DeckStore) LatestIdea(ctx context.Context, deckCardID string) (*models.ProxyIdea, error) {
	var ideas []models.ProxyIdea
	err := s.db.WithContext(ctx).
		Where("deck_card_id = ?", deckCardID).
		Order("version DESC").
		Limit(1).
		Find(&ideas).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load latest idea: %w", err)
	}
	if len(ideas) == 0 {
		return nil, nil
	}
	return &ideas[0], nil
}

// LoadDeck returns the deck with cards in insertion order and each card's
// ideas newest first
func (s *DeckStore) LoadDeck(ctx context.Context, id string) (*models.Deck, error) {
	var deck models.Deck
	err := s.db.WithContext(ctx).
		Preload("Cards", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC").Order("created_at ASC")
		}).
		Preload("Cards.ProxyIdeas", func(db *gorm.DB) *gorm.DB {
			return db.Order("version DESC")
		}).
		First(&deck, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("deck %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load deck: %w", err)
	}
	return &deck, nil
}
