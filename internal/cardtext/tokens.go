package cardtext

import (
	"regexp"
	"strings"

	"github.com/clide7029/MagicProxyAPp/internal/models"
)

var (
	copyItselfPattern   = regexp.MustCompile(`(?i)\bcop(?:y|ies)\b[^.]*\bitself\b`)
	copyThisCardPattern = regexp.MustCompile(`(?i)\bcop(?:y|ies)\b[^.]*\bthis (?:card|creature|permanent)\b`)
	populatePattern     = regexp.MustCompile(`(?i)\bpopulate\b`)
	copyWordPattern     = regexp.MustCompile(`(?i)\bcopy\b`)
	nonAlnumRun         = regexp.MustCompile(`[^a-z0-9]+`)
	nonLetterRun        = regexp.MustCompile(`[^a-z]+`)

	clauseBoundary  = regexp.MustCompile(`[.!?\n]+`)
	quotedText      = regexp.MustCompile(`["“]([^"”]+)["”]`)
	statLine        = regexp.MustCompile(`\b\d+/\d+\b`)
	colorWord       = regexp.MustCompile(`(?i)\b(white|blue|black|red|green|colorless)\b`)
	andJoin         = regexp.MustCompile(`(?i)\s+and\s+`)
	doubleComma     = regexp.MustCompile(`,\s*,+`)
	temporalSuffix  = regexp.MustCompile(`(?i)[\s,]*\b(?:until end of turn|this turn|permanently)\s*$`)
	grantedKeywords = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bwith\s+(.+)$`),
		regexp.MustCompile(`(?i)\bthat has\s+(.+)$`),
		regexp.MustCompile(`(?i)\bgains\s+(.+)$`),
		regexp.MustCompile(`(?i)\bgets\s+(.+)$`),
		regexp.MustCompile(`(?i)\bhas\s+(.+)$`),
	}
)

// quoted text only overrides the derived rules when it reads like granted rules
var grantedRulesMarkers = []string{"token", "sacrifice", "add", "{", "}", ":", "this", "they"}

var copySynonyms = []string{"copy", "clone", "duplicate", "replica", "mirror"}

var colorSymbols = map[string]string{
	"white":     "{W}",
	"blue":      "{U}",
	"black":     "{B}",
	"red":       "{R}",
	"green":     "{G}",
	"colorless": "{C}",
}

// ResolveTokenTypes describes every token part of a card. Self-copies and
// tokens named "copy" are dropped, duplicates (same name and type line)
// collapse to one entry. It returns nil when no token survives.
func ResolveTokenTypes(rulesText, cardName string, parts []models.RelatedPart) []models.TokenType {
	selfCopy := HasSelfCopyMechanics(rulesText, cardName)
	clauses := splitClauses(rulesText)

	var out []models.TokenType
	seen := make(map[string]bool)
	for _, p := range parts {
		if p.Component != models.ComponentToken {
			continue
		}
		if copyWordPattern.MatchString(p.Name) {
			continue
		}
		if selfCopy && IsSelfCopyToken(p.Name, cardName) {
			continue
		}
		key := strings.ToLower(p.Name) + "|" + strings.ToLower(p.TypeLine)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, describeToken(p, rulesText, clauses))
	}
	return out
}

// HasSelfCopyMechanics reports whether rules text makes copies of the card itself
func HasSelfCopyMechanics(rulesText, cardName string) bool {
	if rulesText == "" {
		return false
	}
	if copyItselfPattern.MatchString(rulesText) ||
		copyThisCardPattern.MatchString(rulesText) ||
		populatePattern.MatchString(rulesText) {
		return true
	}
	namePattern := wildcardName(cardName)
	if namePattern == "" {
		return false
	}
	re, err := regexp.Compile(`(?i)\bcop(?:y|ies)\b[^.]*` + namePattern)
	if err != nil {
		return false
	}
	return re.MatchString(rulesText)
}

// IsSelfCopyToken reports whether a token looks like a copy of its parent card
func IsSelfCopyToken(tokenName, cardName string) bool {
	token := strings.ToLower(strings.TrimSpace(tokenName))
	parent := strings.ToLower(strings.TrimSpace(cardName))
	if token == "" {
		return false
	}
	if parent != "" && (strings.Contains(token, parent) || strings.Contains(parent, token)) {
		return true
	}
	if sharedSignificantWords(token, parent) >= 2 {
		return true
	}
	for _, syn := range copySynonyms {
		if strings.Contains(token, syn) {
			return true
		}
	}
	return false
}

// SubtypeWords returns the lowercased phrase after the type line's "—" plus
// each of its words of three letters or more, without duplicates.
// "Token Creature — Eldrazi Spawn" gives ["eldrazi spawn", "eldrazi", "spawn"].
func SubtypeWords(typeLine string) []string {
	_, after, ok := strings.Cut(typeLine, "—")
	if !ok {
		return nil
	}
	phrase := strings.ToLower(strings.TrimSpace(after))
	if phrase == "" {
		return nil
	}
	words := []string{phrase}
	seen := map[string]bool{phrase: true}
	for _, w := range nonLetterRun.Split(phrase, -1) {
		if len(w) >= 3 && !seen[w] {
			seen[w] = true
			words = append(words, w)
		}
	}
	return words
}

func describeToken(p models.RelatedPart, rulesText string, clauses []string) models.TokenType {
	clause := findCreationClause(clauses, p.Name, SubtypeWords(p.TypeLine))

	searchSpace := clause
	if searchSpace == "" {
		searchSpace = rulesText
	}

	rules := p.OracleText
	if rules == "" {
		rules = deriveRules(extractionInput{rulesText: rulesText, clause: clause})
	}
	return models.TokenType{
		Name:           p.Name,
		RulesText:      rules,
		PowerToughness: statLine.FindString(searchSpace),
		ColorIdentity:  colorIdentity(searchSpace),
		TypeLine:       p.TypeLine,
	}
}

func splitClauses(text string) []string {
	var clauses []string
	for _, c := range clauseBoundary.Split(text, -1) {
		if c = strings.TrimSpace(c); c != "" {
			clauses = append(clauses, c)
		}
	}
	return clauses
}

// findCreationClause returns the first clause that says "create" and names
// the token or one of its type phrases, or "" when none does.
func findCreationClause(clauses []string, tokenName string, phrases []string) string {
	name := strings.ToLower(strings.TrimSpace(tokenName))
	for _, c := range clauses {
		lc := strings.ToLower(c)
		if !strings.Contains(lc, "create") {
			continue
		}
		if name != "" && strings.Contains(lc, name) {
			return c
		}
		for _, phrase := range phrases {
			if strings.Contains(lc, phrase) {
				return c
			}
		}
	}
	return ""
}

type extractionInput struct {
	rulesText string
	clause    string
}

// ruleExtractor returns ok=true when it decides the token's rules text
type ruleExtractor func(in extractionInput) (string, bool)

// ruleExtractors run in priority order; the first decisive one wins
var ruleExtractors = []ruleExtractor{
	quotedGrantedRules,
	keywordGrantedRules,
	bareStatLine,
}

func deriveRules(in extractionInput) string {
	for _, extract := range ruleExtractors {
		if rules, ok := extract(in); ok {
			return rules
		}
	}
	return ""
}

func quotedGrantedRules(in extractionInput) (string, bool) {
	for _, m := range quotedText.FindAllStringSubmatch(in.rulesText, -1) {
		quoted := strings.TrimSpace(m[1])
		lq := strings.ToLower(quoted)
		for _, marker := range grantedRulesMarkers {
			if strings.Contains(lq, marker) {
				return quoted, true
			}
		}
	}
	return "", false
}

func keywordGrantedRules(in extractionInput) (string, bool) {
	if in.clause == "" {
		return "", false
	}
	tail := in.clause
	if i := strings.Index(strings.ToLower(tail), "create"); i >= 0 {
		tail = tail[i:]
	}
	for _, re := range grantedKeywords {
		m := re.FindStringSubmatch(tail)
		if m == nil {
			continue
		}
		if rules := cleanGrantedList(m[1]); rules != "" {
			return rules, true
		}
	}
	return "", false
}

func bareStatLine(in extractionInput) (string, bool) {
	if in.clause != "" && statLine.MatchString(in.clause) {
		return "", true
	}
	return "", false
}

func cleanGrantedList(s string) string {
	s = strings.TrimSpace(s)
	for {
		trimmed := temporalSuffix.ReplaceAllString(s, "")
		if trimmed == s {
			break
		}
		s = strings.TrimSpace(trimmed)
	}
	s = andJoin.ReplaceAllString(s, ", ")
	s = doubleComma.ReplaceAllString(s, ",")
	return strings.Trim(s, " ,;")
}

func colorIdentity(text string) string {
	var b strings.Builder
	seen := make(map[string]bool)
	for _, w := range colorWord.FindAllString(text, -1) {
		sym := colorSymbols[strings.ToLower(w)]
		if !seen[sym] {
			seen[sym] = true
			b.WriteString(sym)
		}
	}
	return b.String()
}

// wildcardName turns "Scute Swarm" into a pattern tolerant to punctuation
// and spacing differences between the words of the name.
func wildcardName(name string) string {
	var words []string
	for _, w := range nonAlnumRun.Split(strings.ToLower(name), -1) {
		if w != "" {
			words = append(words, regexp.QuoteMeta(w))
		}
	}
	return strings.Join(words, `\W*`)
}

func sharedSignificantWords(a, b string) int {
	words := make(map[string]bool)
	for _, w := range strings.Fields(b) {
		if len(w) > 2 {
			words[w] = true
		}
	}
	shared := 0
	for _, w := range strings.Fields(a) {
		if words[w] {
			shared++
			delete(words, w)
		}
	}
	return shared
}
