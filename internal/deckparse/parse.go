// Package deckparse reads plaintext deck lists such as
//
//	Commander: Atraxa, Praetors' Voice
//	3 Lightning Bolt
//	Kenrith, the Returned King // make him a space pirate
package deckparse

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/clide7029/MagicProxyAPp/internal/models"
)

const (
	MaxLines    = 150
	MaxQuantity = 99

	noteJoin = " // "
)

// ErrInvalidDeck is wrapped by every Validate failure
var ErrInvalidDeck = errors.New("invalid deck list")

var (
	lineBreak       = regexp.MustCompile(`\r?\n`)
	commanderPrefix = regexp.MustCompile(`(?i)^commander\s*:\s*(.+)$`)
	quantityPrefix  = regexp.MustCompile(`^(\d+)\s+(.+)$`)
	noteSeparator   = regexp.MustCompile(`\s*//\s*`)
)

// Parse turns deck text into lines. Blank lines and lines starting with "#"
// are skipped. A missing or zero quantity counts as 1.
func Parse(input string) []models.ParsedLine {
	var out []models.ParsedLine
	for _, raw := range lineBreak.Split(input, -1) {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if m := commanderPrefix.FindStringSubmatch(line); m != nil {
			name, note := splitNote(strings.TrimSpace(m[1]))
			out = append(out, models.ParsedLine{Quantity: 1, Name: name, Note: note, IsCommander: true})
			continue
		}

		quantity := 1
		rest := line
		if m := quantityPrefix.FindStringSubmatch(line); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				quantity = n
			}
			rest = m[2]
		}
		name, note := splitNote(rest)
		out = append(out, models.ParsedLine{Quantity: quantity, Name: name, Note: note})
	}
	return out
}

func splitNote(s string) (name, note string) {
	parts := noteSeparator.Split(s, -1)
	if len(parts) > 1 {
		return strings.TrimSpace(parts[0]), strings.Join(parts[1:], noteJoin)
	}
	return strings.TrimSpace(s), ""
}

// Validate checks the limits a generation request puts on parsed lines
func Validate(lines []models.ParsedLine) error {
	if len(lines) == 0 {
		return fmt.Errorf("%w: no cards", ErrInvalidDeck)
	}
	if len(lines) > MaxLines {
		return fmt.Errorf("%w: %d lines, at most %d allowed", ErrInvalidDeck, len(lines), MaxLines)
	}
	for i, l := range lines {
		if strings.TrimSpace(l.Name) == "" {
			return fmt.Errorf("%w: line %d has no card name", ErrInvalidDeck, i+1)
		}
		if l.Quantity < 1 || l.Quantity > MaxQuantity {
			return fmt.Errorf("%w: line %d quantity %d out of range 1-%d", ErrInvalidDeck, i+1, l.Quantity, MaxQuantity)
		}
	}
	return nil
}
