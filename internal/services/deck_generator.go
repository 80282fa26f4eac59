package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/clide7029/MagicProxyAPp/internal/cardtext"
	"github.com/clide7029/MagicProxyAPp/internal/deckparse"
	"github.com/clide7029/MagicProxyAPp/internal/metrics"
	"github.com/clide7029/MagicProxyAPp/internal/models"
)

const (
	DefaultDeckName = "Untitled Deck"

	MinThemeLength  = 2
	MaxThemeLength  = 100
	MaxDeckIdeaSize = 2000

	generationChunkSize   = 30
	generationConcurrency = 2
	fuzzyConcurrency      = 8
	rerollVersionAttempts = 3
)

var legendaryType = regexp.MustCompile(`Legendary`)

// CardSource resolves card names to Scryfall records (implemented by CardCache)
type CardSource interface {
	FetchCards(ctx context.Context, identifiers []CardIdentifier) (*CollectionResult, error)
	FuzzyCard(ctx context.Context, name string) (*models.CardRecord, error)
}

// DeckGenerator turns deck lists into stored decks with a first idea per card
type DeckGenerator struct {
	cards     CardSource
	store     *DeckStore
	generator IdeaGenerator
	logger    *zap.Logger
}

func NewDeckGenerator(cards CardSource, store *DeckStore, generator IdeaGenerator, logger *zap.Logger) *DeckGenerator {
	return &DeckGenerator{
		cards:     cards,
		store:     store,
		generator: generator,
		logger:    logger,
	}
}

// Generate validates the request, resolves every card, stores the deck and
// asks the model for version 1 of each card's idea. Names that could not be
// resolved are reported in NotFound and do not fail the request.
func (g *DeckGenerator) Generate(ctx context.Context, req models.GenerateRequest) (*models.GenerateResult, error) {
	lines, err := validateGenerateRequest(&req)
	if err != nil {
		return nil, err
	}

	deck := &models.Deck{Name: req.DeckName, Theme: req.Theme}
	if err := g.store.CreateDeck(ctx, deck); err != nil {
		return nil, err
	}
	metrics.DecksCreatedTotal.Inc()

	names := uniqueNames(lines)
	byName, err := g.resolveNames(ctx, names)
	if err != nil {
		return nil, err
	}

	var deckCards []*models.DeckCard
	var inputs []LLMCardInput
	for i, line := range lines {
		card, ok := byName[nameKey(line.Name)]
		if !ok {
			continue
		}
		n := cardtext.Normalize(card)
		dc := &models.DeckCard{
			DeckID:         deck.ID,
			Position:       i,
			Quantity:       line.Quantity,
			InputLine:      line.Name,
			UserNote:       line.Note,
			OriginalName:   card.Name,
			ManaCost:       n.ManaCost,
			TypeLine:       n.TypeLine,
			RulesText:      n.RulesText,
			ColorIdentity:  cardtext.ColorIdentity(card.ColorIdentity),
			CMC:            n.CMC,
			IsCommander:    line.IsCommander,
			OracleID:       card.OracleID,
			ScryfallID:     card.ID,
			IsDoubleFaced:  n.IsDoubleFaced,
			CardFaces:      n.Faces,
			ProducesTokens: n.ProducesTokens,
			TokenTypes:     n.TokenTypes,
		}
		if err := g.store.CreateDeckCard(ctx, dc); err != nil {
			return nil, err
		}
		deckCards = append(deckCards, dc)

		input := cardInput(dc, line.Note)
		input.ColorIdentity = card.ColorIdentity
		input.TokenHints = cardtext.TokenHints(card)
		inputs = append(inputs, input)
	}

	var notFound []string
	for _, name := range names {
		if _, ok := byName[nameKey(name)]; !ok {
			notFound = append(notFound, name)
		}
	}
	metrics.CardsNotFoundTotal.Add(float64(len(notFound)))

	ideas, err := g.generateChunks(ctx, req.Theme, req.DeckIdea, inputs)
	if err != nil {
		return nil, err
	}
	if err := g.saveFirstIdeas(ctx, deckCards, ideas); err != nil {
		return nil, err
	}

	g.logger.Info("deck generated",
		zap.String("deck_id", deck.ID),
		zap.Int("lines", len(lines)),
		zap.Int("cards", len(deckCards)),
		zap.Int("ideas", len(ideas)),
		zap.Int("not_found", len(notFound)))

	if notFound == nil {
		notFound = []string{}
	}
	return &models.GenerateResult{DeckID: deck.ID, NotFound: notFound}, nil
}

// Reroll asks the model for a new idea for one stored card and saves it as
// the next version
func (g *DeckGenerator) Reroll(ctx context.Context, req models.RerollRequest) (*models.ProxyIdea, error) {
	if strings.TrimSpace(req.DeckCardID) == "" {
		return nil, fmt.Errorf("%w: deckCardId is required", ErrInvalidInput)
	}
	card, err := g.store.GetDeckCard(ctx, req.DeckCardID)
	if err != nil {
		return nil, err
	}

	theme := strings.TrimSpace(req.Theme)
	if theme == "" {
		deck, err := g.store.GetDeck(ctx, card.DeckID)
		if err != nil {
			return nil, err
		}
		theme = deck.Theme
	}
	note := req.UserNote
	if note == "" {
		note = card.UserNote
	}

	input := cardInput(card, note)
	input.ColorIdentity = splitColorIdentity(card.ColorIdentity)
	for _, t := range card.TokenTypes {
		input.TokenHints = append(input.TokenHints, models.RelatedPart{Name: t.Name, TypeLine: t.TypeLine})
	}

	ideas, err := g.generator.GenerateBatch(ctx, GenerationRequest{Theme: theme, Cards: []LLMCardInput{input}})
	if err != nil {
		return nil, fmt.Errorf("failed to reroll %s: %w", card.OriginalName, err)
	}
	if len(ideas) == 0 {
		return nil, fmt.Errorf("%w: no idea returned for %s", ErrModelOutput, card.OriginalName)
	}
	out := ideas[0]
	for _, idea := range ideas {
		if idea.OriginalName == card.OriginalName {
			out = idea
			break
		}
	}

	for attempt := 1; ; attempt++ {
		version, err := g.store.NextVersion(ctx, card.ID)
		if err != nil {
			return nil, err
		}
		idea := newProxyIdea(card.ID, version, out, g.generator.ModelName())
		err = g.store.CreateIdea(ctx, idea)
		if err == nil {
			metrics.IdeasGeneratedTotal.WithLabelValues("reroll").Inc()
			return idea, nil
		}
		if !errors.Is(err, ErrVersionTaken) || attempt >= rerollVersionAttempts {
			return nil, err
		}
		g.logger.Debug("idea version taken, retrying", zap.String("deck_card_id", card.ID), zap.Int("version", version))
	}
}

// resolveNames looks names up in one collection call, then fuzzy matches the
// misses in parallel. Keys are lowercased input names; front-face names of
// multi-faced cards are indexed too.
func (g *DeckGenerator) resolveNames(ctx context.Context, names []string) (map[string]models.CardRecord, error) {
	identifiers := make([]CardIdentifier, len(names))
	for i, name := range names {
		identifiers[i] = CardIdentifier{Name: name}
	}

	result, err := g.cards.FetchCards(ctx, identifiers)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cards: %w", err)
	}

	byName := make(map[string]models.CardRecord, len(names))
	for _, card := range result.Cards {
		indexCard(byName, card)
	}

	var missing []string
	for _, name := range names {
		if _, ok := byName[nameKey(name)]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return byName, nil
	}

	matches := make([]*models.CardRecord, len(missing))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(fuzzyConcurrency)
	for i, name := range missing {
		eg.Go(func() error {
			card, err := g.cards.FuzzyCard(egCtx, name)
			if err != nil {
				g.logger.Warn("fuzzy lookup failed", zap.String("name", name), zap.Error(err))
				return nil
			}
			matches[i] = card
			return nil
		})
	}
	_ = eg.Wait()

	for i, card := range matches {
		if card == nil {
			continue
		}
		byName[nameKey(missing[i])] = *card
		indexCard(byName, *card)
	}
	return byName, nil
}

// generateChunks sends inputs in chunks, a bounded number at a time. Results
// keep chunk order.
func (g *DeckGenerator) generateChunks(ctx context.Context, theme, deckIdea string, inputs []LLMCardInput) ([]models.CardIdea, error) {
	var chunks [][]LLMCardInput
	for start := 0; start < len(inputs); start += generationChunkSize {
		chunks = append(chunks, inputs[start:min(start+generationChunkSize, len(inputs))])
	}

	var ideas []models.CardIdea
	for start := 0; start < len(chunks); start += generationConcurrency {
		group := chunks[start:min(start+generationConcurrency, len(chunks))]
		results := make([][]models.CardIdea, len(group))

		eg, egCtx := errgroup.WithContext(ctx)
		for i, chunk := range group {
			eg.Go(func() error {
				out, err := g.generator.GenerateBatch(egCtx, GenerationRequest{
					Theme:    theme,
					DeckIdea: deckIdea,
					Cards:    chunk,
				})
				if err != nil {
					return fmt.Errorf("failed to generate ideas for %d cards: %w", len(chunk), err)
				}
				results[i] = out
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}
		for _, out := range results {
			ideas = append(ideas, out...)
		}
	}
	return ideas, nil
}

// saveFirstIdeas stores each output against the first card with the same
// original name. Outputs naming no card, or a card that already got one,
// are dropped.
func (g *DeckGenerator) saveFirstIdeas(ctx context.Context, cards []*models.DeckCard, ideas []models.CardIdea) error {
	saved := make(map[string]bool, len(cards))
	for _, out := range ideas {
		var target *models.DeckCard
		for _, dc := range cards {
			if dc.OriginalName == out.OriginalName {
				target = dc
				break
			}
		}
		if target == nil {
			g.logger.Debug("model output matches no card", zap.String("original_name", out.OriginalName))
			continue
		}
		if saved[target.ID] {
			continue
		}
		if err := g.store.CreateIdea(ctx, newProxyIdea(target.ID, 1, out, g.generator.ModelName())); err != nil {
			return err
		}
		saved[target.ID] = true
		metrics.IdeasGeneratedTotal.WithLabelValues("generate").Inc()
	}
	return nil
}

func validateGenerateRequest(req *models.GenerateRequest) ([]models.ParsedLine, error) {
	req.Theme = strings.TrimSpace(req.Theme)
	if n := utf8.RuneCountInString(req.Theme); n < MinThemeLength || n > MaxThemeLength {
		return nil, fmt.Errorf("%w: theme must be %d-%d characters", ErrInvalidInput, MinThemeLength, MaxThemeLength)
	}
	if utf8.RuneCountInString(req.DeckIdea) > MaxDeckIdeaSize {
		return nil, fmt.Errorf("%w: deckIdea must be at most %d characters", ErrInvalidInput, MaxDeckIdeaSize)
	}
	req.DeckName = strings.TrimSpace(req.DeckName)
	if req.DeckName == "" {
		req.DeckName = DefaultDeckName
	}

	lines := req.ParsedLines
	if len(lines) == 0 && req.DeckText != "" {
		lines = deckparse.Parse(req.DeckText)
	}
	for i := range lines {
		lines[i].Name = strings.TrimSpace(lines[i].Name)
	}
	if err := deckparse.Validate(lines); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return lines, nil
}

func cardInput(dc *models.DeckCard, note string) LLMCardInput {
	return LLMCardInput{
		OriginalName:   dc.OriginalName,
		TypeLine:       dc.TypeLine,
		ManaCost:       dc.ManaCost,
		RulesText:      dc.RulesText,
		IsLegendary:    legendaryType.MatchString(dc.TypeLine),
		IsCommander:    dc.IsCommander,
		UserNote:       note,
		IsDoubleFaced:  dc.IsDoubleFaced,
		CardFaces:      dc.CardFaces,
		ProducesTokens: dc.ProducesTokens,
		TokenTypes:     dc.TokenTypes,
	}
}

func newProxyIdea(deckCardID string, version int, out models.CardIdea, model string) *models.ProxyIdea {
	return &models.ProxyIdea{
		DeckCardID:         deckCardID,
		Version:            version,
		ThematicName:       out.ThematicName,
		ThematicFlavorText: out.ThematicFlavorText,
		MediaReference:     out.MediaReference,
		MidjourneyPrompt:   out.MidjourneyPrompt,
		CardFaces:          out.CardFaces,
		Tokens:             out.Tokens,
		ModelUsed:          model,
	}
}

func uniqueNames(lines []models.ParsedLine) []string {
	seen := make(map[string]bool, len(lines))
	var names []string
	for _, l := range lines {
		if seen[l.Name] {
			continue
		}
		seen[l.Name] = true
		names = append(names, l.Name)
	}
	return names
}

func indexCard(byName map[string]models.CardRecord, card models.CardRecord) {
	byName[nameKey(card.Name)] = card
	if front, _, ok := strings.Cut(card.Name, cardtext.FaceDivider); ok {
		if _, exists := byName[nameKey(front)]; !exists {
			byName[nameKey(front)] = card
		}
	}
}

// splitColorIdentity turns a stored "WU" string back into symbols
func splitColorIdentity(s string) []string {
	if s == "" {
		return nil
	}
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
