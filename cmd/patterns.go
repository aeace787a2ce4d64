package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/leadscore/internal/scoring"
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List the known high-conversion signal patterns",
	RunE: func(cmd *cobra.Command, args []string) error {
		book := scoring.NewPatternBook(scoring.SeedPatterns()...)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(book.Snapshot())
	},
}

func init() {
	rootCmd.AddCommand(patternsCmd)
}
