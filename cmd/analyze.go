package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadscore/internal/engine"
	"github.com/sells-group/leadscore/internal/model"
)

var (
	analyzeTenant  string
	analyzeRefresh bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <lead.json>",
	Short: "Analyze a single lead and print the score result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read lead file %s", args[0])
		}
		var lead model.LeadRecord
		if err := json.Unmarshal(data, &lead); err != nil {
			return eris.Wrap(err, "parse lead file")
		}

		result, err := env.Engine.Analyze(ctx, lead, analyzeTenant, engine.AnalyzeOptions{
			IncludeOptimization: true,
			ForceRefresh:        analyzeRefresh,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeTenant, "tenant", "", "tenant identifier")
	analyzeCmd.Flags().BoolVar(&analyzeRefresh, "refresh", false, "bypass the result cache")
	_ = analyzeCmd.MarkFlagRequired("tenant")
	rootCmd.AddCommand(analyzeCmd)
}
