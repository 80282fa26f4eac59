package models

import (
	"encoding/json"
	"strings"
)

// PartIdea is the thematic writeup for one face or one token of a card.
//
// Model output and ideas stored by older versions use camelCase keys
// (thematicName) while current ones use snake_case (thematic_name).
// UnmarshalJSON accepts both; encoding always writes snake_case.
type PartIdea struct {
	ThematicName       string `json:"thematic_name"`
	ThematicFlavorText string `json:"thematic_flavor_text"`
	MediaReference     string `json:"media_reference"`
	MidjourneyPrompt   string `json:"midjourney_prompt"`
}

func (p *PartIdea) UnmarshalJSON(data []byte) error {
	var raw struct {
		ThematicName            string `json:"thematic_name"`
		ThematicNameCamel       string `json:"thematicName"`
		ThematicFlavorText      string `json:"thematic_flavor_text"`
		ThematicFlavorTextCamel string `json:"thematicFlavorText"`
		MediaReference          string `json:"media_reference"`
		MediaReferenceCamel     string `json:"mediaReference"`
		MidjourneyPrompt        string `json:"midjourney_prompt"`
		MidjourneyPromptCamel   string `json:"midjourneyPrompt"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.ThematicName = firstNonEmpty(raw.ThematicName, raw.ThematicNameCamel)
	p.ThematicFlavorText = firstNonEmpty(raw.ThematicFlavorText, raw.ThematicFlavorTextCamel)
	p.MediaReference = firstNonEmpty(raw.MediaReference, raw.MediaReferenceCamel)
	p.MidjourneyPrompt = firstNonEmpty(raw.MidjourneyPrompt, raw.MidjourneyPromptCamel)
	return nil
}

// SearchText returns the lowercased name, flavor and prompt joined by spaces
func (p PartIdea) SearchText() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.ThematicName, p.ThematicFlavorText, p.MidjourneyPrompt} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// CardIdea is one card of a model batch response
type CardIdea struct {
	OriginalName       string     `json:"original_name"`
	ThematicName       string     `json:"thematic_name"`
	ManaCost           string     `json:"mana_cost"`
	TypeLine           string     `json:"type_line"`
	RulesText          string     `json:"rules_text"`
	ThematicFlavorText string     `json:"thematic_flavor_text"`
	MediaReference     string     `json:"media_reference"`
	MidjourneyPrompt   string     `json:"midjourney_prompt"`
	CardFaces          []PartIdea `json:"card_faces,omitempty"`
	Tokens             []PartIdea `json:"tokens,omitempty"`
}

// ParsedLine is one line of a plaintext deck list
type ParsedLine struct {
	Quantity    int    `json:"quantity" yaml:"quantity"`
	Name        string `json:"name" yaml:"name"`
	Note        string `json:"note,omitempty" yaml:"note,omitempty"`
	IsCommander bool   `json:"is_commander" yaml:"is_commander"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
