package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/clide7029/MagicProxyAPp/internal/deckparse"
)

var parseFormat string

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse a deck list into lines",
	Long:  `Reads a plaintext deck list from a file, or stdin when no file is given, and prints the parsed lines.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runParse,
}

func init() {
	parseCmd.Flags().StringVarP(&parseFormat, "output", "o", "json", "output format: json or yaml")
}

func runParse(cmd *cobra.Command, args []string) error {
	var input []byte
	var err error
	if len(args) == 1 {
		input, err = os.ReadFile(args[0])
	} else {
		input, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("failed to read deck list: %w", err)
	}

	lines := deckparse.Parse(string(input))
	if err := deckparse.Validate(lines); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning:", err)
	}

	out := cmd.OutOrStdout()
	switch parseFormat {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(lines)
	case "yaml":
		enc := yaml.NewEncoder(out)
		defer enc.Close()
		return enc.Encode(lines)
	default:
		return fmt.Errorf("unknown output format %q", parseFormat)
	}
}
