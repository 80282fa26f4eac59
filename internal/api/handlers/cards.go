package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/clide7029/MagicProxyAPp/internal/cardtext"
	"github.com/clide7029/MagicProxyAPp/internal/models"
)

// CardResolver finds a card by approximate name (implemented by services.CardCache)
type CardResolver interface {
	FuzzyCard(ctx context.Context, name string) (*models.CardRecord, error)
}

type CardHandler struct {
	cards  CardResolver
	logger *zap.Logger
}

func NewCardHandler(cards CardResolver, logger *zap.Logger) *CardHandler {
	return &CardHandler{cards: cards, logger: logger}
}

// CardPreview is a resolved card with the text and tokens a deck card would get
type CardPreview struct {
	Name           string             `json:"name"`
	ScryfallID     string             `json:"scryfall_id"`
	TypeLine       string             `json:"type_line"`
	ManaCost       string             `json:"mana_cost"`
	RulesText      string             `json:"rules_text"`
	ColorIdentity  string             `json:"color_identity"`
	CMC            float64            `json:"cmc"`
	PowerToughness string             `json:"power_toughness,omitempty"`
	IsDoubleFaced  bool               `json:"is_double_faced"`
	CardFaces      []models.CardFace  `json:"card_faces,omitempty"`
	ProducesTokens bool               `json:"produces_tokens"`
	TokenTypes     []models.TokenType `json:"token_types,omitempty"`
}

// SearchCard resolves ?q= with a fuzzy name lookup
func (h *CardHandler) SearchCard(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'q' is required"})
		return
	}

	card, err := h.cards.FuzzyCard(c.Request.Context(), query)
	if err != nil {
		h.logger.Error("card search failed", zap.String("query", query), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if card == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	c.JSON(http.StatusOK, PreviewCard(*card))
}

// PreviewCard normalizes a card record for display
func PreviewCard(card models.CardRecord) CardPreview {
	n := cardtext.Normalize(card)
	return CardPreview{
		Name:           card.Name,
		ScryfallID:     card.ID,
		TypeLine:       n.TypeLine,
		ManaCost:       n.ManaCost,
		RulesText:      n.RulesText,
		ColorIdentity:  cardtext.ColorIdentity(card.ColorIdentity),
		CMC:            n.CMC,
		PowerToughness: n.PowerToughness,
		IsDoubleFaced:  n.IsDoubleFaced,
		CardFaces:      n.Faces,
		ProducesTokens: n.ProducesTokens,
		TokenTypes:     n.TokenTypes,
	}
}
