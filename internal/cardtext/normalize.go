// Package cardtext turns Scryfall card records into the flattened text the
// rest of the service works with, and resolves the tokens a card creates.
package cardtext

import (
	"strings"

	"github.com/clide7029/MagicProxyAPp/internal/models"
)

// FaceDivider separates face texts and face mana costs of multi-faced cards
const FaceDivider = " // "

// Normalized is the flattened description of one card
type Normalized struct {
	RulesText      string
	TypeLine       string
	ManaCost       string
	CMC            float64
	IsDoubleFaced  bool
	PowerToughness string // single-faced cards only
	Faces          []models.CardFace
	ProducesTokens bool
	TokenTypes     []models.TokenType
}

// Normalize flattens a card record. It does no I/O and never fails: missing
// optional fields come back as "", 0 or nil.
func Normalize(card models.CardRecord) Normalized {
	n := Normalized{
		TypeLine: card.TypeLine,
	}
	if card.CMC != nil {
		n.CMC = *card.CMC
	}

	if len(card.CardFaces) > 0 {
		texts := make([]string, 0, len(card.CardFaces))
		costs := make([]string, 0, len(card.CardFaces))
		faces := make([]models.CardFace, 0, len(card.CardFaces))
		for _, f := range card.CardFaces {
			if f.OracleText != "" {
				texts = append(texts, f.OracleText)
			}
			if f.ManaCost != "" {
				costs = append(costs, f.ManaCost)
			}
			faces = append(faces, models.CardFace{
				Name:           f.Name,
				TypeLine:       f.TypeLine,
				RulesText:      f.OracleText,
				ManaCost:       f.ManaCost,
				PowerToughness: models.PowerToughness(f.Power, f.Toughness),
			})
		}
		n.RulesText = strings.Join(texts, FaceDivider)
		n.ManaCost = strings.Join(costs, FaceDivider)
		n.IsDoubleFaced = len(card.CardFaces) > 1
		n.Faces = faces
		if n.TypeLine == "" {
			n.TypeLine = joinFaceTypeLines(card.CardFaces)
		}
	} else {
		n.RulesText = card.OracleText
		n.ManaCost = card.ManaCost
		n.PowerToughness = models.PowerToughness(card.Power, card.Toughness)
	}

	for _, p := range card.AllParts {
		if p.Component == models.ComponentToken {
			n.ProducesTokens = true
			break
		}
	}
	n.TokenTypes = ResolveTokenTypes(n.RulesText, card.Name, card.AllParts)
	return n
}

// TokenHints lists name and type line of every token part, before any
// self-copy filtering. The model sees these as raw hints.
func TokenHints(card models.CardRecord) []models.RelatedPart {
	var hints []models.RelatedPart
	for _, p := range card.AllParts {
		if p.Component == models.ComponentToken {
			hints = append(hints, models.RelatedPart{Name: p.Name, TypeLine: p.TypeLine})
		}
	}
	return hints
}

// ColorIdentity joins Scryfall color symbols without braces, e.g. "WUB"
func ColorIdentity(colors []string) string {
	return strings.Join(colors, "")
}

func joinFaceTypeLines(faces []models.CardRecordFace) string {
	lines := make([]string, 0, len(faces))
	for _, f := range faces {
		if f.TypeLine != "" {
			lines = append(lines, f.TypeLine)
		}
	}
	return strings.Join(lines, FaceDivider)
}
