package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadscore/internal/model"
)

var (
	batchTenant string
	batchSize   int
)

var batchCmd = &cobra.Command{
	Use:   "batch <leads.json>",
	Short: "Analyze a batch of leads and print results ranked by conversion probability",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read leads file %s", args[0])
		}
		var leads []model.LeadRecord
		if err := json.Unmarshal(data, &leads); err != nil {
			return eris.Wrap(err, "parse leads file")
		}

		results, err := env.Engine.DetectBatch(ctx, leads, batchTenant, batchSize)
		if err != nil {
			return err
		}

		report := env.Engine.PerformanceMetrics()
		zap.L().Info("batch scored",
			zap.Int("leads", len(leads)),
			zap.Int("results", len(results)),
			zap.Float64("cache_hit_rate", report.Detection.CacheHitRate),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchTenant, "tenant", "", "tenant identifier")
	batchCmd.Flags().IntVar(&batchSize, "batch-size", 0, "sub-batch size (default from config)")
	_ = batchCmd.MarkFlagRequired("tenant")
	rootCmd.AddCommand(batchCmd)
}
