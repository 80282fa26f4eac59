package models

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlignedTokenUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want AlignedToken
	}{
		{
			name: "snake case with token type",
			in:   `{"thematic_name":"Deckhand","midjourney_prompt":"a sailor","token_type":{"name":"Goblin","power_toughness":"1/1","type_line":"Token Creature — Goblin"}}`,
			want: AlignedToken{
				PartIdea:  PartIdea{ThematicName: "Deckhand", MidjourneyPrompt: "a sailor"},
				TokenType: &TokenType{Name: "Goblin", PowerToughness: "1/1", TypeLine: "Token Creature — Goblin"},
			},
		},
		{
			name: "camel case writeup",
			in:   `{"thematicName":"Stowaway","token_type":{"name":"Treasure"}}`,
			want: AlignedToken{
				PartIdea:  PartIdea{ThematicName: "Stowaway"},
				TokenType: &TokenType{Name: "Treasure"},
			},
		},
		{
			name: "unmatched",
			in:   `{"thematic_name":"Ghost"}`,
			want: AlignedToken{PartIdea: PartIdea{ThematicName: "Ghost"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got AlignedToken
			require.NoError(t, json.Unmarshal([]byte(tt.in), &got))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("AlignedToken mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDeckViewRoundTripKeepsTokenTypes(t *testing.T) {
	view := DeckView{
		ID: "deck1",
		Cards: []DeckCardView{{
			ID: "c1",
			ProxyIdeas: []IdeaView{{
				Version: 1,
				Tokens: []AlignedToken{{
					PartIdea:  PartIdea{ThematicName: "Deckhand"},
					TokenType: &TokenType{Name: "Goblin", ColorIdentity: "{R}"},
				}},
			}},
		}},
	}

	data, err := json.Marshal(view)
	require.NoError(t, err)

	var decoded DeckView
	require.NoError(t, json.Unmarshal(data, &decoded))
	token := decoded.Cards[0].ProxyIdeas[0].Tokens[0]
	assert.Equal(t, "Deckhand", token.ThematicName)
	require.NotNil(t, token.TokenType)
	assert.Equal(t, "{R}", token.TokenType.ColorIdentity)
}
