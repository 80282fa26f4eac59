package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/clide7029/MagicProxyAPp/internal/models"
)

// ErrModelOutput means the model answered with JSON that does not fit the batch schema
var ErrModelOutput = errors.New("malformed model output")

const systemPrompt = "You are a careful JSON generator that strictly follows schemas."

// IdeaGenerator turns a batch of cards into thematic reinterpretations.
// Results are not guaranteed to be in input order or one per input.
type IdeaGenerator interface {
	GenerateBatch(ctx context.Context, req GenerationRequest) ([]models.CardIdea, error)
	ModelName() string
}

type GenerationRequest struct {
	Theme    string
	DeckIdea string
	Cards    []LLMCardInput
}

// LLMCardInput is everything the model is told about one card
type LLMCardInput struct {
	OriginalName   string               `json:"original_name"`
	TypeLine       string               `json:"type_line"`
	ManaCost       string               `json:"mana_cost"`
	RulesText      string               `json:"rules_text"`
	IsLegendary    bool                 `json:"is_legendary"`
	IsCommander    bool                 `json:"is_commander"`
	ColorIdentity  []string             `json:"color_identity"`
	TokenHints     []models.RelatedPart `json:"token_hints,omitempty"`
	UserNote       string               `json:"user_note,omitempty"`
	IsDoubleFaced  bool                 `json:"is_double_faced,omitempty"`
	CardFaces      []models.CardFace    `json:"card_faces,omitempty"`
	ProducesTokens bool                 `json:"produces_tokens,omitempty"`
	TokenTypes     []models.TokenType   `json:"token_types,omitempty"`
}

var (
	aspectRatioParam = regexp.MustCompile(`--ar\s*3:5`)
	version6Param    = regexp.MustCompile(`--v\s*6`)
	version7Param    = regexp.MustCompile(`--v\s*7`)
)

// EnsurePromptParams appends "--ar 3:5" and "--v 6" to an image prompt when
// they are missing. A prompt already asking for v7 keeps it.
func EnsurePromptParams(prompt string) string {
	out := strings.TrimSpace(prompt)
	if !aspectRatioParam.MatchString(out) {
		out += " --ar 3:5"
	}
	if !version6Param.MatchString(out) && !version7Param.MatchString(out) {
		out += " --v 6"
	}
	return strings.TrimSpace(out)
}

type rawBatch struct {
	Cards *[]rawCardIdea `json:"cards"`
}

type rawCardIdea struct {
	OriginalName       *string           `json:"original_name"`
	ThematicName       string            `json:"thematic_name"`
	ManaCost           string            `json:"mana_cost"`
	TypeLine           string            `json:"type_line"`
	RulesText          string            `json:"rules_text"`
	ThematicFlavorText string            `json:"thematic_flavor_text"`
	MediaReference     string            `json:"media_reference"`
	MidjourneyPrompt   string            `json:"midjourney_prompt"`
	CardFaces          []models.PartIdea `json:"card_faces"`
	Tokens             []models.PartIdea `json:"tokens"`
}

// ParseBatchResponse decodes a model answer of the form {"cards": [...]}.
// Markdown code fences are tolerated. Every card must carry original_name;
// other missing strings become "". Blank thematic names become
// "Untitled <theme> Concept" and every image prompt gets its required
// parameters.
func ParseBatchResponse(text, theme string) ([]models.CardIdea, error) {
	text = stripCodeFence(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", ErrModelOutput)
	}

	var batch rawBatch
	if err := json.Unmarshal([]byte(text), &batch); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelOutput, err)
	}
	if batch.Cards == nil {
		return nil, fmt.Errorf("%w: missing cards array", ErrModelOutput)
	}

	ideas := make([]models.CardIdea, 0, len(*batch.Cards))
	for i, c := range *batch.Cards {
		if c.OriginalName == nil {
			return nil, fmt.Errorf("%w: card %d has no original_name", ErrModelOutput, i)
		}
		name := strings.TrimSpace(c.ThematicName)
		if name == "" {
			name = fmt.Sprintf("Untitled %s Concept", theme)
		}
		ideas = append(ideas, models.CardIdea{
			OriginalName:       *c.OriginalName,
			ThematicName:       name,
			ManaCost:           c.ManaCost,
			TypeLine:           c.TypeLine,
			RulesText:          c.RulesText,
			ThematicFlavorText: c.ThematicFlavorText,
			MediaReference:     c.MediaReference,
			MidjourneyPrompt:   EnsurePromptParams(c.MidjourneyPrompt),
			CardFaces:          withPromptParams(c.CardFaces),
			Tokens:             withPromptParams(c.Tokens),
		})
	}
	return ideas, nil
}

func withPromptParams(parts []models.PartIdea) []models.PartIdea {
	if len(parts) == 0 {
		return nil
	}
	for i := range parts {
		parts[i].MidjourneyPrompt = EnsurePromptParams(parts[i].MidjourneyPrompt)
	}
	return parts
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimSuffix(text, "```")
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
	}
	return strings.TrimSpace(text)
}

// BuildBatchPrompt renders the instructions, output schema and card list
// for one model call
func BuildBatchPrompt(theme, deckIdea string, cards []LLMCardInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are designing themed proxy cards for Magic: The Gathering.\nTheme: %q.\n", theme)
	if deckIdea != "" {
		fmt.Fprintf(&b, "\nAdditional thematic guidance (apply across all cards):\n%s\n", deckIdea)
	}
	b.WriteString(promptInstructions)
	b.WriteString("\n\n")
	b.WriteString(promptSchema)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Return JSON ONLY for the following %d cards in a single object: { \"cards\": [...] }", len(cards))
	b.WriteString("\n\n")
	for i, c := range cards {
		if i > 0 {
			b.WriteString("\n")
		}
		writePromptItem(&b, c)
	}
	return b.String()
}

func writePromptItem(b *strings.Builder, c LLMCardInput) {
	fmt.Fprintf(b, "- original_name: %s\n", c.OriginalName)
	fmt.Fprintf(b, "  type_line: %s\n", c.TypeLine)
	fmt.Fprintf(b, "  mana_cost: %s\n", c.ManaCost)
	fmt.Fprintf(b, "  rules_text: %s\n", c.RulesText)
	fmt.Fprintf(b, "  is_legendary: %t\n", c.IsLegendary)
	fmt.Fprintf(b, "  is_commander: %t\n", c.IsCommander)
	fmt.Fprintf(b, "  color_identity: [%s]", strings.Join(c.ColorIdentity, ", "))

	if len(c.TokenHints) > 0 {
		hints := make([]string, len(c.TokenHints))
		for i, t := range c.TokenHints {
			hints[i] = describePart(t.Name, t.TypeLine, t.OracleText)
		}
		fmt.Fprintf(b, "\n  token_hints: %s", strings.Join(hints, ", "))
	}
	if c.IsDoubleFaced {
		faces := make([]string, len(c.CardFaces))
		for i, f := range c.CardFaces {
			faces[i] = describePart(f.Name, f.TypeLine, "")
		}
		fmt.Fprintf(b, "\n  is_double_faced: true\n  card_faces: %s", strings.Join(faces, ", "))
	}
	if c.ProducesTokens {
		types := make([]string, len(c.TokenTypes))
		for i, t := range c.TokenTypes {
			types[i] = describePart(t.Name, t.TypeLine, t.RulesText)
		}
		fmt.Fprintf(b, "\n  produces_tokens: true\n  token_types: %s", strings.Join(types, ", "))
	}
	if c.UserNote != "" {
		fmt.Fprintf(b, "\n  user_note: %s", c.UserNote)
	}
}

func describePart(name, typeLine, rules string) string {
	if rules == "" {
		return fmt.Sprintf("%s (%s)", name, typeLine)
	}
	return fmt.Sprintf("%s (%s) - %s", name, typeLine, rules)
}

const promptInstructions = `
## PRIMARY GOAL
Transform each original card into a new, self-contained thematic version that fits the chosen theme. Keep it mechanically equivalent while names, flavor and visuals feel native to the theme's world.

## STEP 1 - BUILD AN INTERNAL STYLE_BIBLE
(Do not output the STYLE_BIBLE; use it to guide every decision.)
STYLE_BIBLE must contain:
- CAST: 6-10 recurring characters or archetypes from the theme
- PROPS_MOTIFS: 10-15 signature props, locations or running gags
- ART_STYLE_ANCHOR: 6-12 word description of the franchise's visual look
- TONE: 5-8 adjectives describing the humor and style of flavor text
Use the STYLE_BIBLE consistently across the batch. Reuse CAST and PROPS_MOTIFS for cohesion but avoid exact repetition.

## STEP 2 - THEMATIC CONVERSION RULES
- Never reuse any part, sound or spelling of the original card name.
- Legendary cards use the "Name, Role" format. Both parts must be unique, concise and thematic.
- Type alignment:
  * Creatures become characters or thematic beings
  * Artifacts become objects or thematic items
  * Spells become actions or events
  * Lands and enchantments may be anything that fits the theme
- Keep the original rules text structure but rephrase names and flavor elements for the theme.

## STEP 3 - SPECIAL CARD HANDLING
- Double-faced cards: each face gets its own name, flavor text, media reference and Midjourney prompt. The two faces escalate the same gag or story (for example disguise, then reveal).
- Tokens:
  * Always generate thematic tokens for tokens that are not copies.
  * Give each token a unique thematic name, flavor text, media reference and Midjourney prompt.
  * Translate mechanics into visuals using the keyword mapping below.
  * Tokens must feel like natural extensions of the parent card.

## STEP 4 - FLAVOR TEXT
- Every flavor text is a gag, pun or witty punchline consistent with TONE.
- Avoid solemn lore unless TONE allows it.

## STEP 5 - MIDJOURNEY PROMPTS
- Describe the scene vividly with no game mechanics.
- Start with subject, action and a prop-driven gag, then the environment from PROPS_MOTIFS and visual details from the STYLE_BIBLE.
- Include ART_STYLE_ANCHOR verbatim.
- Never use "photorealistic", "cinematic still", "3D render", logos or text.
- End with "--ar 3:5 --v 6" or "--ar 3:5 --v 7".

Keyword to visual mapping:
Flying: soaring above, winged, aerial
Vigilance: alert stance, watchful
First strike: quick reflexes, swift, precise
Haste: energetic, dynamic, burst of speed
Deathtouch: deadly, venomous, lethal
Lifelink: radiant, glowing, life-giving

## STEP 6 - MEDIA REFERENCES
- Always give a specific, accurate media reference that fits the theme.
- Prefer official artwork, comics, animation, illustrated books, concept art, trading cards or other visually rich media matching the style and tone.
- Format: "Title by Artist, Publisher, Year" (for example "Avengers Reunited by Adi Granov, Marvel Comics, 2015").
- References must be real and verifiable. Only when no legitimate match exists, use "Publisher (or IP owner), Year".
- Never invent credits, merge unrelated works or use placeholders.

## STEP 7 - OUTPUT RULES
Return only valid JSON with the fields original_name, thematic_name, mana_cost, type_line, rules_text, thematic_flavor_text, media_reference and midjourney_prompt.
- Double-faced cards add a "card_faces" array with those fields for each face.
- Token-producing cards add a "tokens" array with those fields for each token.`

const promptSchema = `JSON Schema (conceptual):
{
  "cards": [
    {
      "original_name": "string",
      "thematic_name": "string",
      "mana_cost": "string",
      "type_line": "string",
      "rules_text": "string",
      "thematic_flavor_text": "string",
      "media_reference": "string",
      "midjourney_prompt": "string",
      "card_faces": [
        {
          "thematic_name": "string",
          "thematic_flavor_text": "string",
          "media_reference": "string",
          "midjourney_prompt": "string"
        }
      ],
      "tokens": [
        {
          "thematic_name": "string",
          "thematic_flavor_text": "string",
          "media_reference": "string",
          "midjourney_prompt": "string"
        }
      ]
    }
  ]
}`
