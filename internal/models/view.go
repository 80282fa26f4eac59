package models

import (
	"encoding/json"
	"time"
)

// DeckView is a deck as served to clients and exporters: stored rows plus
// backfilled stats and token writeups aligned to their token types.
type DeckView struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Theme     string         `json:"theme"`
	CreatedAt time.Time      `json:"created_at"`
	Cards     []DeckCardView `json:"cards"`
}

type DeckCardView struct {
	ID             string      `json:"id"`
	Quantity       int         `json:"quantity"`
	InputLine      string      `json:"input_line"`
	OriginalName   string      `json:"original_name"`
	ManaCost       string      `json:"mana_cost"`
	TypeLine       string      `json:"type_line"`
	RulesText      string      `json:"rules_text"`
	ColorIdentity  string      `json:"color_identity"`
	CMC            float64     `json:"cmc"`
	IsCommander    bool        `json:"is_commander"`
	ScryfallID     string      `json:"scryfall_id"`
	IsDoubleFaced  bool        `json:"is_double_faced"`
	PowerToughness string      `json:"power_toughness,omitempty"`
	CardFaces      []CardFace  `json:"card_faces,omitempty"`
	ProducesTokens bool        `json:"produces_tokens"`
	TokenTypes     []TokenType `json:"token_types,omitempty"`
	ProxyIdeas     []IdeaView  `json:"proxy_ideas"` // newest version first
}

// Idea returns the idea with the given version, or the newest one when the
// version is unknown or zero. It returns nil if the card has no ideas.
func (c *DeckCardView) Idea(version int) *IdeaView {
	if len(c.ProxyIdeas) == 0 {
		return nil
	}
	for i := range c.ProxyIdeas {
		if c.ProxyIdeas[i].Version == version {
			return &c.ProxyIdeas[i]
		}
	}
	return &c.ProxyIdeas[0]
}

type IdeaView struct {
	ID                 string         `json:"id"`
	Version            int            `json:"version"`
	ThematicName       string         `json:"thematic_name"`
	ThematicFlavorText string         `json:"thematic_flavor_text"`
	MediaReference     string         `json:"media_reference"`
	MidjourneyPrompt   string         `json:"midjourney_prompt"`
	CardFaces          []PartIdea     `json:"card_faces,omitempty"`
	Tokens             []AlignedToken `json:"tokens,omitempty"`
	ModelUsed          string         `json:"model_used"`
	CreatedAt          time.Time      `json:"created_at"`
}

// AlignedToken pairs a token writeup with the token type it describes.
// TokenType is nil when no token type was left to pair with.
type AlignedToken struct {
	PartIdea
	TokenType *TokenType `json:"token_type,omitempty"`
}

// UnmarshalJSON decodes the writeup with PartIdea's key handling, which the
// embedding would otherwise apply to the whole object and drop token_type.
func (a *AlignedToken) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &a.PartIdea); err != nil {
		return err
	}
	var rest struct {
		TokenType *TokenType `json:"token_type"`
	}
	if err := json.Unmarshal(data, &rest); err != nil {
		return err
	}
	a.TokenType = rest.TokenType
	return nil
}
