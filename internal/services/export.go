package services

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/clide7029/MagicProxyAPp/internal/models"
)

// CSVHeader is the column layout of deck CSV exports. Every row carries the
// card columns; the Part columns describe one face or token, or are empty.
var CSVHeader = []string{
	"Original Name",
	"Thematic Name",
	"Mana Cost",
	"Type",
	"Rules Text",
	"Thematic Flavor Text",
	"Media Reference (artist credit)",
	"Midjourney Prompt",
	"Is Double-Faced",
	"Produces Tokens",
	"Part Type",
	"Part Index",
	"Part Thematic Name",
	"Part Flavor",
	"Part Reference",
	"Part Prompt",
	"Part TypeLine",
	"Part P/T",
	"Part Token Rules",
	"Part Token Color",
}

const (
	partTypeFace  = "DFC Face"
	partTypeToken = "Token"
)

var (
	formulaPrefix = regexp.MustCompile(`^[=+\-@]`)
	nonWordRun    = regexp.MustCompile(`\W+`)
)

// SanitizeCSVCell flattens a cell to one line and defuses spreadsheet
// formulas by prefixing a quote to cells starting with = + - or @
func SanitizeCSVCell(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", " ")
	if formulaPrefix.MatchString(s) {
		return "'" + s
	}
	return s
}

// ExportCSV writes one row per card, or one row per face and per token when
// the idea has any. selected maps card ids to the idea version to export;
// cards missing from it use their newest idea.
func ExportCSV(deck *models.DeckView, selected map[string]int) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	write := func(row []string) error {
		for i := range row {
			row[i] = SanitizeCSVCell(row[i])
		}
		return w.Write(row)
	}

	if err := write(append([]string(nil), CSVHeader...)); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}

	for i := range deck.Cards {
		card := &deck.Cards[i]
		for _, row := range cardRows(card, card.Idea(selected[card.ID])) {
			if err := write(row); err != nil {
				return nil, fmt.Errorf("failed to write csv row: %w", err)
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func cardRows(c *models.DeckCardView, idea *models.IdeaView) [][]string {
	if idea == nil {
		idea = &models.IdeaView{}
	}
	base := []string{
		c.OriginalName,
		idea.ThematicName,
		c.ManaCost,
		c.TypeLine,
		c.RulesText,
		idea.ThematicFlavorText,
		idea.MediaReference,
		idea.MidjourneyPrompt,
		yesNo(c.IsDoubleFaced),
		yesNo(c.ProducesTokens),
	}
	row := func(part ...string) []string {
		return append(append(make([]string, 0, len(CSVHeader)), base...), part...)
	}

	if len(idea.CardFaces) == 0 && len(idea.Tokens) == 0 {
		return [][]string{row(make([]string, len(CSVHeader)-len(base))...)}
	}

	var rows [][]string
	for i, face := range idea.CardFaces {
		var typeLine, pt string
		if i < len(c.CardFaces) {
			typeLine = c.CardFaces[i].TypeLine
			pt = c.CardFaces[i].PowerToughness
		}
		rows = append(rows, row(partTypeFace, strconv.Itoa(i+1),
			face.ThematicName, face.ThematicFlavorText, face.MediaReference, face.MidjourneyPrompt,
			typeLine, pt, "", ""))
	}
	for i, token := range idea.Tokens {
		tt := token.TokenType
		if tt == nil {
			tt = &models.TokenType{}
		}
		rows = append(rows, row(partTypeToken, strconv.Itoa(i+1),
			token.ThematicName, token.ThematicFlavorText, token.MediaReference, token.MidjourneyPrompt,
			tt.TypeLine, tt.PowerToughness, tt.RulesText, tt.ColorIdentity))
	}
	return rows
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// ExportJSON renders the enriched deck as indented JSON
func ExportJSON(deck *models.DeckView) ([]byte, error) {
	data, err := json.MarshalIndent(deck, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode deck: %w", err)
	}
	return data, nil
}

// ExportFilename turns a deck name into an attachment filename
func ExportFilename(deckName, ext string) string {
	return nonWordRun.ReplaceAllString(deckName, "-") + "." + ext
}
