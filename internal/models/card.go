package models

// CardRecord is a snapshot of one card as returned by Scryfall. Field names
// follow the Scryfall JSON so a record can be cached and replayed verbatim.
type CardRecord struct {
	ID            string           `json:"id"`
	OracleID      string           `json:"oracle_id"`
	Name          string           `json:"name"`
	TypeLine      string           `json:"type_line"`
	ManaCost      string           `json:"mana_cost,omitempty"`
	CMC           *float64         `json:"cmc,omitempty"`
	ColorIdentity []string         `json:"color_identity,omitempty"`
	OracleText    string           `json:"oracle_text,omitempty"`
	Power         string           `json:"power,omitempty"`
	Toughness     string           `json:"toughness,omitempty"`
	CardFaces     []CardRecordFace `json:"card_faces,omitempty"`
	AllParts      []RelatedPart    `json:"all_parts,omitempty"`
}

// CardRecordFace is one face of a multi-faced Scryfall card.
type CardRecordFace struct {
	Name       string `json:"name"`
	TypeLine   string `json:"type_line"`
	ManaCost   string `json:"mana_cost,omitempty"`
	OracleText string `json:"oracle_text,omitempty"`
	Power      string `json:"power,omitempty"`
	Toughness  string `json:"toughness,omitempty"`
}

// RelatedPart is an entry of Scryfall's all_parts list.
// OracleText is rarely present; Scryfall only sends it for some token printings.
type RelatedPart struct {
	ID         string `json:"id"`
	Component  string `json:"component"` // "token", "combo_piece", "meld_part", "meld_result"
	Name       string `json:"name"`
	TypeLine   string `json:"type_line"`
	OracleText string `json:"oracle_text,omitempty"`
}

// ComponentToken is the all_parts component for created tokens
const ComponentToken = "token"

// CardFace is the normalized description of one face of a double-faced card
type CardFace struct {
	Name           string `json:"name"`
	TypeLine       string `json:"type_line"`
	RulesText      string `json:"rules_text"`
	ManaCost       string `json:"mana_cost"`
	PowerToughness string `json:"power_toughness,omitempty"`
}

// TokenType is a resolved description of one kind of token a card creates.
// Only name and type line come from Scryfall; the rest is inferred from the
// parent card's rules text.
type TokenType struct {
	Name           string `json:"name"`
	RulesText      string `json:"rules_text"`
	PowerToughness string `json:"power_toughness"`
	ColorIdentity  string `json:"color_identity"`
	TypeLine       string `json:"type_line"`
}

// PowerToughness joins power and toughness as "P/T", or returns "" unless both are set
func PowerToughness(power, toughness string) string {
	if power == "" || toughness == "" {
		return ""
	}
	return power + "/" + toughness
}
