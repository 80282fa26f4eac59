package cardtext

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/clide7029/MagicProxyAPp/internal/models"
)

func tokenPart(name, typeLine string) models.RelatedPart {
	return models.RelatedPart{ID: name + "-id", Component: models.ComponentToken, Name: name, TypeLine: typeLine}
}

func TestResolveTokenTypes_ZombieWithDecayed(t *testing.T) {
	got := ResolveTokenTypes(
		"Create a 2/2 black Zombie token with decayed.",
		"Tainted Adversary",
		[]models.RelatedPart{tokenPart("Zombie", "Token Creature — Zombie")},
	)

	want := []models.TokenType{{
		Name:           "Zombie",
		RulesText:      "decayed",
		PowerToughness: "2/2",
		ColorIdentity:  "{B}",
		TypeLine:       "Token Creature — Zombie",
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ResolveTokenTypes mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveTokenTypes_SelfCopySuppressed(t *testing.T) {
	rules := "Landfall — Whenever a land you control enters, create a 1/1 green Insect creature token. " +
		"If you control six or more lands, create a token that's a copy of Scute Swarm instead."

	t.Run("only the self copy", func(t *testing.T) {
		got := ResolveTokenTypes(rules, "Scute Swarm", []models.RelatedPart{
			tokenPart("Scute Swarm", "Creature — Insect"),
		})
		assert.Empty(t, got)
	})

	t.Run("real token survives", func(t *testing.T) {
		got := ResolveTokenTypes(rules, "Scute Swarm", []models.RelatedPart{
			tokenPart("Insect", "Token Creature — Insect"),
			tokenPart("Scute Swarm", "Creature — Insect"),
		})
		want := []models.TokenType{{
			Name:           "Insect",
			RulesText:      "",
			PowerToughness: "1/1",
			ColorIdentity:  "{G}",
			TypeLine:       "Token Creature — Insect",
		}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("ResolveTokenTypes mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestResolveTokenTypes_CopyNamedTokenAlwaysDropped(t *testing.T) {
	rules := "Create a 1/1 white Spirit creature token with flying."
	assert.False(t, HasSelfCopyMechanics(rules, "Spectral Procession"))

	got := ResolveTokenTypes(rules, "Spectral Procession", []models.RelatedPart{
		tokenPart("Spirit", "Token Creature — Spirit"),
		tokenPart("Copy", "Token"),
		tokenPart("Spirit Copy", "Token Creature — Spirit"),
	})

	want := []models.TokenType{{
		Name:           "Spirit",
		RulesText:      "flying",
		PowerToughness: "1/1",
		ColorIdentity:  "{W}",
		TypeLine:       "Token Creature — Spirit",
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ResolveTokenTypes mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveTokenTypes_EveryTokenOnceWithoutSelfCopy(t *testing.T) {
	rules := "When this enters, create a 1/1 white Soldier creature token. " +
		"At the beginning of your end step, create a 4/4 white Angel creature token with flying."
	parts := []models.RelatedPart{
		tokenPart("Soldier", "Token Creature — Soldier"),
		tokenPart("Angel", "Token Creature — Angel"),
		tokenPart("Soldier", "Token Creature — Soldier"),
		{Component: "combo_piece", Name: "Some Card", TypeLine: "Creature — Human"},
	}

	got := ResolveTokenTypes(rules, "Resplendent Host", parts)

	if assert.Len(t, got, 2) {
		assert.Equal(t, "Soldier", got[0].Name)
		assert.Equal(t, "1/1", got[0].PowerToughness)
		assert.Equal(t, "", got[0].RulesText)
		assert.Equal(t, "Angel", got[1].Name)
		assert.Equal(t, "4/4", got[1].PowerToughness)
		assert.Equal(t, "flying", got[1].RulesText)
	}
}

func TestResolveTokenTypes_RulesExtractors(t *testing.T) {
	tests := []struct {
		name      string
		rules     string
		part      models.RelatedPart
		wantRules string
		wantPT    string
		wantColor string
	}{
		{
			name:      "quoted granted rules win",
			rules:     `Create a Treasure token. (It's an artifact with "{T}, Sacrifice this artifact: Add one mana of any color.")`,
			part:      tokenPart("Treasure", "Token Artifact — Treasure"),
			wantRules: "{T}, Sacrifice this artifact: Add one mana of any color.",
		},
		{
			name:      "and list with temporal qualifier",
			rules:     "Create a 1/1 red Goblin creature token with haste and menace until end of turn.",
			part:      tokenPart("Goblin", "Token Creature — Goblin"),
			wantRules: "haste, menace",
			wantPT:    "1/1",
			wantColor: "{R}",
		},
		{
			name:      "that has keyword",
			rules:     "Create a 3/3 colorless Golem artifact creature token that has trample.",
			part:      tokenPart("Golem", "Token Artifact Creature — Golem"),
			wantRules: "trample",
			wantPT:    "3/3",
			wantColor: "{C}",
		},
		{
			name:      "keyword before create is ignored",
			rules:     "For each creature with flying you control, create a 1/1 blue Bird creature token.",
			part:      tokenPart("Bird", "Token Creature — Bird"),
			wantRules: "",
			wantPT:    "1/1",
			wantColor: "{U}",
		},
		{
			name:      "multicolor in first seen order",
			rules:     "Create a 2/2 green and white Elf Knight creature token with vigilance.",
			part:      tokenPart("Elf Knight", "Token Creature — Elf Knight"),
			wantRules: "vigilance",
			wantPT:    "2/2",
			wantColor: "{G}{W}",
		},
		{
			name:      "upstream oracle text preferred",
			rules:     "Create a 1/1 colorless Thopter artifact creature token with flying.",
			part:      models.RelatedPart{Component: models.ComponentToken, Name: "Thopter", TypeLine: "Token Artifact Creature — Thopter", OracleText: "Flying"},
			wantRules: "Flying",
			wantPT:    "1/1",
			wantColor: "{C}",
		},
		{
			name:      "no creation clause degrades to empty",
			rules:     "Whenever you cast a spell, you may pay {1}.",
			part:      tokenPart("Thopter", "Token Artifact Creature — Thopter"),
			wantRules: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveTokenTypes(tt.rules, "Parent Card", []models.RelatedPart{tt.part})
			if !assert.Len(t, got, 1) {
				return
			}
			assert.Equal(t, tt.wantRules, got[0].RulesText)
			assert.Equal(t, tt.wantPT, got[0].PowerToughness)
			assert.Equal(t, tt.wantColor, got[0].ColorIdentity)
			assert.Equal(t, tt.part.TypeLine, got[0].TypeLine)
		})
	}
}

func TestHasSelfCopyMechanics(t *testing.T) {
	tests := []struct {
		rules string
		name  string
		want  bool
	}{
		{"Populate.", "Growing Ranks", true},
		{"Create a token that's a copy of Scute Swarm instead.", "Scute Swarm", true},
		{"Create a token that's a copy of Saw Blade Swarm.", "Saw-Blade Swarm", true},
		{"Create a token that's a copy of this creature.", "Splinter Twin Host", true},
		{"At the beginning of combat, it creates a copy of itself.", "Mirror Box Thing", true},
		{"Create a token that's a copy of target artifact you control.", "Saheeli's Directive", false},
		{"Draw a card.", "Divination", false},
		{"", "Anything", false},
	}

	for _, tt := range tests {
		if got := HasSelfCopyMechanics(tt.rules, tt.name); got != tt.want {
			t.Errorf("HasSelfCopyMechanics(%q, %q) = %v, want %v", tt.rules, tt.name, got, tt.want)
		}
	}
}

func TestIsSelfCopyToken(t *testing.T) {
	tests := []struct {
		token  string
		parent string
		want   bool
	}{
		{"Scute Swarm", "Scute Swarm", true},
		{"Swarm", "Scute Swarm", true},
		{"Elder Swarm Hydra", "Swarm of the Elder", true},
		{"Mirror Knight", "Some Card", true},
		{"Clone Soldier", "Some Card", true},
		{"Insect", "Scute Swarm", false},
		{"", "Scute Swarm", false},
	}

	for _, tt := range tests {
		if got := IsSelfCopyToken(tt.token, tt.parent); got != tt.want {
			t.Errorf("IsSelfCopyToken(%q, %q) = %v, want %v", tt.token, tt.parent, got, tt.want)
		}
	}
}

func TestSubtypeWords(t *testing.T) {
	tests := []struct {
		typeLine string
		want     []string
	}{
		{"Token Creature — Eldrazi Spawn", []string{"eldrazi spawn", "eldrazi", "spawn"}},
		{"Token Creature — Zombie", []string{"zombie"}},
		{"Token Creature — Elf Warrior", []string{"elf warrior", "elf", "warrior"}},
		{"Token Artifact", nil},
	}

	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, SubtypeWords(tt.typeLine)); diff != "" {
			t.Errorf("SubtypeWords(%q) mismatch (-want +got):\n%s", tt.typeLine, diff)
		}
	}
}
