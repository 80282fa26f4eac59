package models

import (
	"time"
)

type Deck struct {
	ID        string     `json:"id" gorm:"primaryKey"`
	Name      string     `json:"name" gorm:"not null"`
	Theme     string     `json:"theme" gorm:"not null"`
	Cards     []DeckCard `json:"cards" gorm:"foreignKey:DeckID"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// DeckCard is one resolved deck-list line. Rows are never updated after
// generation; CardFaces and TokenTypes are NULL when the card has none.
type DeckCard struct {
	ID             string      `json:"id" gorm:"primaryKey"`
	DeckID         string      `json:"deck_id" gorm:"not null;index"`
	Position       int         `json:"position" gorm:"not null;default:0"`
	Quantity       int         `json:"quantity" gorm:"not null;default:1"`
	InputLine      string      `json:"input_line"`
	UserNote       string      `json:"user_note,omitempty"`
	OriginalName   string      `json:"original_name" gorm:"not null;index"`
	ManaCost       string      `json:"mana_cost"`
	TypeLine       string      `json:"type_line"`
	RulesText      string      `json:"rules_text"`
	ColorIdentity  string      `json:"color_identity"` // "WUB" style, no braces
	CMC            float64     `json:"cmc"`
	IsCommander    bool        `json:"is_commander"`
	OracleID       string      `json:"oracle_id" gorm:"index"`
	ScryfallID     string      `json:"scryfall_id"`
	IsDoubleFaced  bool        `json:"is_double_faced"`
	CardFaces      []CardFace  `json:"card_faces,omitempty" gorm:"serializer:json;type:text"`
	ProducesTokens bool        `json:"produces_tokens"`
	TokenTypes     []TokenType `json:"token_types,omitempty" gorm:"serializer:json;type:text"`
	ProxyIdeas     []ProxyIdea `json:"proxy_ideas,omitempty" gorm:"foreignKey:DeckCardID"`
	CreatedAt      time.Time   `json:"created_at"`
}

// ProxyIdea is one immutable, versioned thematic reinterpretation of a DeckCard
type ProxyIdea struct {
	ID                 string     `json:"id" gorm:"primaryKey"`
	DeckCardID         string     `json:"deck_card_id" gorm:"not null;uniqueIndex:idx_card_version"`
	Version            int        `json:"version" gorm:"not null;uniqueIndex:idx_card_version"`
	ThematicName       string     `json:"thematic_name"`
	ThematicFlavorText string     `json:"thematic_flavor_text"`
	MediaReference     string     `json:"media_reference"`
	ArtConcept         string     `json:"art_concept"`
	MidjourneyPrompt   string     `json:"midjourney_prompt"`
	CardFaces          []PartIdea `json:"card_faces,omitempty" gorm:"serializer:json;type:text"`
	Tokens             []PartIdea `json:"tokens,omitempty" gorm:"serializer:json;type:text"`
	ModelUsed          string     `json:"model_used"`
	CreatedAt          time.Time  `json:"created_at"`
}

// CacheCard stores the last Scryfall record fetched for an oracle id.
// NameKey (lowercased name) and ScryfallID let name and id lookups hit the cache too.
type CacheCard struct {
	OracleID   string     `json:"oracle_id" gorm:"primaryKey"`
	NameKey    string     `json:"name_key" gorm:"index"`
	ScryfallID string     `json:"scryfall_id" gorm:"index"`
	JSONBlob   CardRecord `json:"json_blob" gorm:"serializer:json;type:text;not null"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// GenerateRequest is the body of POST /api/generate. Either ParsedLines or
// DeckText must be supplied; DeckText is parsed server side.
type GenerateRequest struct {
	DeckName    string       `json:"deckName"`
	Theme       string       `json:"theme"`
	DeckIdea    string       `json:"deckIdea"`
	ParsedLines []ParsedLine `json:"parsedLines"`
	DeckText    string       `json:"deckText"`
}

// GenerateResult is returned by a successful generation
type GenerateResult struct {
	DeckID   string   `json:"deckId"`
	NotFound []string `json:"not_found"`
}

// RerollRequest is the body of POST /api/reroll
type RerollRequest struct {
	DeckCardID string `json:"deckCardId" binding:"required"`
	Theme      string `json:"theme"`
	UserNote   string `json:"userNote"`
}
