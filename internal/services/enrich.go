package services

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/clide7029/MagicProxyAPp/internal/cardtext"
	"github.com/clide7029/MagicProxyAPp/internal/models"
)

const backfillConcurrency = 4

// Sort orders accepted by SortCards
const (
	SortByType     = "type"
	SortByCMC      = "cmc"
	SortByName     = "name"
	SortByNickname = "nickname"
)

// CardLookup fetches a card by Scryfall id (implemented by CardCache)
type CardLookup interface {
	CardByID(ctx context.Context, id string) (*models.CardRecord, error)
}

// DeckEnricher builds the client view of a stored deck
type DeckEnricher struct {
	cards  CardLookup
	logger *zap.Logger
}

func NewDeckEnricher(cards CardLookup, logger *zap.Logger) *DeckEnricher {
	return &DeckEnricher{cards: cards, logger: logger}
}

// Enrich converts a loaded deck into its view. Power/toughness missing from
// stored rows is looked up by Scryfall id; lookup failures leave it blank.
// Token writeups are paired with token types by AlignTokenIdeas.
func (e *DeckEnricher) Enrich(ctx context.Context, deck *models.Deck) *models.DeckView {
	view := &models.DeckView{
		ID:        deck.ID,
		Name:      deck.Name,
		Theme:     deck.Theme,
		CreatedAt: deck.CreatedAt,
		Cards:     make([]models.DeckCardView, len(deck.Cards)),
	}
	for i := range deck.Cards {
		view.Cards[i] = cardView(&deck.Cards[i])
	}

	if e.cards != nil {
		e.backfillStats(ctx, view.Cards)
	}
	return view
}

func cardView(dc *models.DeckCard) models.DeckCardView {
	v := models.DeckCardView{
		ID:             dc.ID,
		Quantity:       dc.Quantity,
		InputLine:      dc.InputLine,
		OriginalName:   dc.OriginalName,
		ManaCost:       dc.ManaCost,
		TypeLine:       dc.TypeLine,
		RulesText:      dc.RulesText,
		ColorIdentity:  dc.ColorIdentity,
		CMC:            dc.CMC,
		IsCommander:    dc.IsCommander,
		ScryfallID:     dc.ScryfallID,
		IsDoubleFaced:  dc.IsDoubleFaced,
		CardFaces:      slices.Clone(dc.CardFaces),
		ProducesTokens: dc.ProducesTokens,
		TokenTypes:     dc.TokenTypes,
		ProxyIdeas:     make([]models.IdeaView, 0, len(dc.ProxyIdeas)),
	}
	for _, idea := range dc.ProxyIdeas {
		v.ProxyIdeas = append(v.ProxyIdeas, models.IdeaView{
			ID:                 idea.ID,
			Version:            idea.Version,
			ThematicName:       idea.ThematicName,
			ThematicFlavorText: idea.ThematicFlavorText,
			MediaReference:     idea.MediaReference,
			MidjourneyPrompt:   idea.MidjourneyPrompt,
			CardFaces:          idea.CardFaces,
			Tokens:             alignTokens(idea.Tokens, dc.TokenTypes),
			ModelUsed:          idea.ModelUsed,
			CreatedAt:          idea.CreatedAt,
		})
	}
	// newest first, whatever order the rows were loaded in
	slices.SortStableFunc(v.ProxyIdeas, func(a, b models.IdeaView) int {
		return cmp.Compare(b.Version, a.Version)
	})
	return v
}

func alignTokens(ideas []models.PartIdea, types []models.TokenType) []models.AlignedToken {
	if len(ideas) == 0 {
		return nil
	}
	aligned := cardtext.AlignTokenIdeas(ideas, types)
	out := make([]models.AlignedToken, len(ideas))
	for i, idea := range ideas {
		out[i] = models.AlignedToken{PartIdea: idea, TokenType: aligned[i]}
	}
	return out
}

// backfillStats fills power/toughness for creature-like cards and faces
func (e *DeckEnricher) backfillStats(ctx context.Context, views []models.DeckCardView) {
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(backfillConcurrency)
	for i := range views {
		v := &views[i]
		if v.ScryfallID == "" || !needsStats(v) {
			continue
		}
		eg.Go(func() error {
			record, err := e.cards.CardByID(egCtx, v.ScryfallID)
			if err != nil {
				e.logger.Debug("stat backfill failed", zap.String("scryfall_id", v.ScryfallID), zap.Error(err))
				return nil
			}
			if record == nil {
				return nil
			}
			applyStats(v, record)
			return nil
		})
	}
	_ = eg.Wait()
}

func needsStats(v *models.DeckCardView) bool {
	if len(v.CardFaces) > 0 {
		for _, f := range v.CardFaces {
			if f.PowerToughness == "" && hasStats(f.TypeLine) {
				return true
			}
		}
		return false
	}
	return v.PowerToughness == "" && hasStats(v.TypeLine)
}

func hasStats(typeLine string) bool {
	return strings.Contains(typeLine, "Creature") || strings.Contains(typeLine, "Vehicle")
}

func applyStats(v *models.DeckCardView, record *models.CardRecord) {
	if len(v.CardFaces) == 0 {
		v.PowerToughness = models.PowerToughness(record.Power, record.Toughness)
		return
	}
	for i := range v.CardFaces {
		if v.CardFaces[i].PowerToughness != "" || i >= len(record.CardFaces) {
			continue
		}
		rf := record.CardFaces[i]
		v.CardFaces[i].PowerToughness = models.PowerToughness(rf.Power, rf.Toughness)
	}
}

// SortCards orders cards in place. selected maps card ids to the chosen idea
// version and only matters for SortByNickname. Unknown orders leave the
// cards as they are.
func SortCards(cards []models.DeckCardView, by string, selected map[string]int) {
	byName := func(a, b models.DeckCardView) int {
		return cmp.Compare(strings.ToLower(a.OriginalName), strings.ToLower(b.OriginalName))
	}

	var less func(a, b models.DeckCardView) int
	switch by {
	case SortByType:
		less = func(a, b models.DeckCardView) int {
			return cmp.Or(cmp.Compare(strings.ToLower(a.TypeLine), strings.ToLower(b.TypeLine)), byName(a, b))
		}
	case SortByCMC:
		less = func(a, b models.DeckCardView) int {
			return cmp.Or(cmp.Compare(a.CMC, b.CMC), byName(a, b))
		}
	case SortByName:
		less = byName
	case SortByNickname:
		nick := func(c models.DeckCardView) string {
			if idea := c.Idea(selected[c.ID]); idea != nil {
				return strings.ToLower(idea.ThematicName)
			}
			return ""
		}
		less = func(a, b models.DeckCardView) int {
			return cmp.Or(cmp.Compare(nick(a), nick(b)), byName(a, b))
		}
	default:
		return
	}
	slices.SortStableFunc(cards, less)
}
