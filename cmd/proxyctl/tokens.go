package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/clide7029/MagicProxyAPp/internal/cardtext"
	"github.com/clide7029/MagicProxyAPp/internal/services"
)

var scryfallURL string

var tokensCmd = &cobra.Command{
	Use:   "tokens <card name>",
	Short: "Show the tokens a card creates",
	Long:  `Looks the card up on Scryfall by fuzzy name and prints the token types resolved from its rules text.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTokens,
}

func init() {
	tokensCmd.Flags().StringVar(&scryfallURL, "scryfall-url", "", "Scryfall API base URL")
}

func runTokens(cmd *cobra.Command, args []string) error {
	name := strings.Join(args, " ")
	scryfall := services.NewScryfallService(scryfallURL, logger)

	card, err := scryfall.GetCardByFuzzyName(cmd.Context(), name)
	if err != nil {
		return err
	}
	if card == nil {
		return fmt.Errorf("no card matches %q", name)
	}

	n := cardtext.Normalize(*card)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s)\n", card.Name, n.TypeLine)
	if len(n.TokenTypes) == 0 {
		fmt.Fprintln(out, "creates no tokens")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tP/T\tCOLOR\tRULES")
	for _, t := range n.TokenTypes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.Name, t.TypeLine, t.PowerToughness, t.ColorIdentity, t.RulesText)
	}
	return tw.Flush()
}
