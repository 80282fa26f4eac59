package cardtext

import (
	"strings"

	"github.com/clide7029/MagicProxyAPp/internal/models"
)

// subtypeSynonyms widens a subtype to the words a themed writeup tends to use
// instead. Subtypes missing here only match themselves.
var subtypeSynonyms = map[string][]string{
	"angel":   {"angel", "seraph", "seraphim", "archangel"},
	"soldier": {"soldier", "trooper", "guard", "marshal", "legionnaire", "sentinel"},
	"goblin":  {"goblin"},
	"zombie":  {"zombie"},
	"spirit":  {"spirit"},
	"elf":     {"elf", "elven"},
	"merfolk": {"merfolk"},
	"vampire": {"vampire"},
	"dragon":  {"dragon"},
	"eldrazi": {"eldrazi"},
	"spawn":   {"spawn"},
}

// AlignTokenIdeas pairs each token writeup, in order, with the remaining token
// type that scores highest against it. Ties go to the earliest type. When
// types run out the remaining writeups get nil. With no writeups the types
// are returned as is.
func AlignTokenIdeas(ideas []models.PartIdea, types []models.TokenType) []*models.TokenType {
	if len(ideas) == 0 {
		out := make([]*models.TokenType, len(types))
		for i := range types {
			out[i] = &types[i]
		}
		return out
	}

	remaining := make([]*models.TokenType, len(types))
	for i := range types {
		remaining[i] = &types[i]
	}

	out := make([]*models.TokenType, len(ideas))
	for i, idea := range ideas {
		if len(remaining) == 0 {
			continue
		}
		haystack := idea.SearchText()
		best, bestScore := 0, -1
		for j, t := range remaining {
			if s := alignmentScore(haystack, t); s > bestScore {
				best, bestScore = j, s
			}
		}
		out[i] = remaining[best]
		remaining = append(remaining[:best:best], remaining[best+1:]...)
	}
	return out
}

func alignmentScore(haystack string, t *models.TokenType) int {
	score := 0
	for _, word := range SubtypeWords(t.TypeLine) {
		synonyms, ok := subtypeSynonyms[word]
		if !ok {
			synonyms = []string{word}
		}
		for _, syn := range synonyms {
			if strings.Contains(haystack, syn) {
				score += 3
				break
			}
		}
		if strings.Contains(haystack, word) {
			score += 2
		}
	}
	if t.PowerToughness != "" && strings.Contains(haystack, t.PowerToughness) {
		score++
	}
	if name := strings.ToLower(t.Name); name != "" && strings.Contains(haystack, name) {
		score++
	}
	return score
}
