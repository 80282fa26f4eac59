package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clide7029/MagicProxyAPp/internal/models"
)

func TestDeckStore_Versions(t *testing.T) {
	ctx := context.Background()
	store := NewDeckStore(newTestDB(t))

	deck := &models.Deck{Name: "Crew", Theme: "Pirates"}
	require.NoError(t, store.CreateDeck(ctx, deck))
	assert.NotEmpty(t, deck.ID)

	card := &models.DeckCard{DeckID: deck.ID, Quantity: 1, OriginalName: "Sol Ring"}
	require.NoError(t, store.CreateDeckCard(ctx, card))

	next, err := store.NextVersion(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, next)

	latest, err := store.LatestIdea(ctx, card.ID)
	require.NoError(t, err)
	assert.Nil(t, latest)

	require.NoError(t, store.CreateIdea(ctx, &models.ProxyIdea{DeckCardID: card.ID, Version: 1, ThematicName: "First"}))
	require.NoError(t, store.CreateIdea(ctx, &models.ProxyIdea{DeckCardID: card.ID, Version: 2, ThematicName: "Second"}))

	err = store.CreateIdea(ctx, &models.ProxyIdea{DeckCardID: card.ID, Version: 2, ThematicName: "Clash"})
	assert.ErrorIs(t, err, ErrVersionTaken)

	next, err = store.NextVersion(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, next)

	latest, err = store.LatestIdea(ctx, card.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "Second", latest.ThematicName)
}

func TestDeckStore_LoadDeck(t *testing.T) {
	ctx := context.Background()
	store := NewDeckStore(newTestDB(t))

	deck := &models.Deck{Name: "Crew", Theme: "Pirates"}
	require.NoError(t, store.CreateDeck(ctx, deck))

	// inserted out of order on purpose
	for _, pos := range []int{2, 0, 1} {
		card := &models.DeckCard{DeckID: deck.ID, Position: pos, Quantity: 1, OriginalName: []string{"A", "B", "C"}[pos]}
		require.NoError(t, store.CreateDeckCard(ctx, card))
		for v := 1; v <= 2; v++ {
			require.NoError(t, store.CreateIdea(ctx, &models.ProxyIdea{DeckCardID: card.ID, Version: v}))
		}
	}

	loaded, err := store.LoadDeck(ctx, deck.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Cards, 3)
	for i, want := range []string{"A", "B", "C"} {
		assert.Equal(t, want, loaded.Cards[i].OriginalName)
		require.Len(t, loaded.Cards[i].ProxyIdeas, 2)
		assert.Equal(t, 2, loaded.Cards[i].ProxyIdeas[0].Version)
	}

	_, err = store.LoadDeck(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetDeckCard(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetDeck(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
