package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clide7029/MagicProxyAPp/internal/models"
)

type fakeCardLookup struct {
	mu    sync.Mutex
	cards map[string]*models.CardRecord
	calls []string
}

func (f *fakeCardLookup) CardByID(_ context.Context, id string) (*models.CardRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	if id == "broken" {
		return nil, errors.New("scryfall down")
	}
	return f.cards[id], nil
}

func TestEnrich(t *testing.T) {
	lookup := &fakeCardLookup{cards: map[string]*models.CardRecord{
		"bear": {Power: "2", Toughness: "2"},
		"delver": {CardFaces: []models.CardRecordFace{
			{Power: "1", Toughness: "1"},
			{Power: "3", Toughness: "2"},
		}},
	}}
	soldier := models.TokenType{Name: "Soldier", TypeLine: "Token Creature — Soldier", PowerToughness: "1/1"}
	spirit := models.TokenType{Name: "Spirit", TypeLine: "Token Creature — Spirit", PowerToughness: "1/1"}

	deck := &models.Deck{
		ID:    "d1",
		Name:  "Test",
		Theme: "Pirates",
		Cards: []models.DeckCard{
			{ID: "c1", ScryfallID: "bear", OriginalName: "Grizzly Bears", TypeLine: "Creature — Bear"},
			{ID: "c2", ScryfallID: "bolt", OriginalName: "Lightning Bolt", TypeLine: "Instant"},
			{
				ID: "c3", ScryfallID: "delver", OriginalName: "Delver of Secrets // Insectile Aberration",
				IsDoubleFaced: true,
				CardFaces: []models.CardFace{
					{Name: "Delver of Secrets", TypeLine: "Creature — Human Wizard"},
					{Name: "Insectile Aberration", TypeLine: "Creature — Human Insect"},
				},
			},
			{ID: "c4", ScryfallID: "broken", OriginalName: "Wall", TypeLine: "Creature — Wall"},
			{
				ID: "c5", OriginalName: "Spectral Procession",
				ProducesTokens: true,
				TokenTypes:     []models.TokenType{soldier, spirit},
				ProxyIdeas: []models.ProxyIdea{
					{ID: "i1", Version: 1, ThematicName: "Old"},
					{
						ID: "i2", Version: 2, ThematicName: "New",
						Tokens: []models.PartIdea{
							{ThematicName: "Ghost crew", ThematicFlavorText: "a spirit of the deep"},
							{ThematicName: "Deckhand"},
							{ThematicName: "Extra"},
						},
					},
				},
			},
		},
	}

	view := NewDeckEnricher(lookup, zap.NewNop()).Enrich(context.Background(), deck)

	require.Len(t, view.Cards, 5)
	assert.Equal(t, "2/2", view.Cards[0].PowerToughness)
	assert.Empty(t, view.Cards[1].PowerToughness)
	assert.Equal(t, "1/1", view.Cards[2].CardFaces[0].PowerToughness)
	assert.Equal(t, "3/2", view.Cards[2].CardFaces[1].PowerToughness)
	assert.Empty(t, view.Cards[3].PowerToughness)
	assert.Empty(t, deck.Cards[2].CardFaces[0].PowerToughness, "stored rows are not modified")
	assert.NotContains(t, lookup.calls, "bolt")

	procession := view.Cards[4]
	require.Len(t, procession.ProxyIdeas, 2)
	assert.Equal(t, 2, procession.ProxyIdeas[0].Version)
	tokens := procession.ProxyIdeas[0].Tokens
	require.Len(t, tokens, 3)
	assert.Equal(t, "Spirit", tokens[0].TokenType.Name)
	assert.Equal(t, "Soldier", tokens[1].TokenType.Name)
	assert.Nil(t, tokens[2].TokenType)
}

func TestEnrich_NoLookup(t *testing.T) {
	deck := &models.Deck{Cards: []models.DeckCard{{ID: "c1", TypeLine: "Creature — Bear", ScryfallID: "bear"}}}
	view := NewDeckEnricher(nil, zap.NewNop()).Enrich(context.Background(), deck)
	require.Len(t, view.Cards, 1)
	assert.Empty(t, view.Cards[0].PowerToughness)
	assert.NotNil(t, view.Cards[0].ProxyIdeas)
}

func TestAlignTokens_KeepsOrderWithoutMatches(t *testing.T) {
	types := []models.TokenType{
		{Name: "Treasure", TypeLine: "Token Artifact — Treasure"},
		{Name: "Clue", TypeLine: "Token Artifact — Clue"},
	}
	ideas := []models.PartIdea{{ThematicName: "Gold coin"}, {ThematicName: "Map scrap"}}

	aligned := alignTokens(ideas, types)

	require.Len(t, aligned, 2)
	assert.Equal(t, "Treasure", aligned[0].TokenType.Name)
	assert.Equal(t, "Clue", aligned[1].TokenType.Name)
}

func sortableCards() []models.DeckCardView {
	return []models.DeckCardView{
		{ID: "a", OriginalName: "Zombie Horde", TypeLine: "Sorcery", CMC: 3,
			ProxyIdeas: []models.IdeaView{{Version: 2, ThematicName: "apple"}, {Version: 1, ThematicName: "zebra"}}},
		{ID: "b", OriginalName: "Angel", TypeLine: "Creature — Angel", CMC: 5,
			ProxyIdeas: []models.IdeaView{{Version: 1, ThematicName: "Mango"}}},
		{ID: "c", OriginalName: "bolt", TypeLine: "Instant", CMC: 3},
	}
}

func cardIDs(cards []models.DeckCardView) []string {
	ids := make([]string, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	return ids
}

func TestSortCards(t *testing.T) {
	tests := []struct {
		by       string
		selected map[string]int
		want     []string
	}{
		{SortByType, nil, []string{"b", "c", "a"}},
		{SortByCMC, nil, []string{"c", "a", "b"}},
		{SortByName, nil, []string{"b", "c", "a"}},
		{SortByNickname, nil, []string{"c", "a", "b"}},
		{SortByNickname, map[string]int{"a": 1}, []string{"c", "b", "a"}},
		{"unknown", nil, []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.by, func(t *testing.T) {
			cards := sortableCards()
			SortCards(cards, tt.by, tt.selected)
			assert.Equal(t, tt.want, cardIDs(cards))
		})
	}
}
