package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadscore/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "leadscore",
	Short: "Lead conversion scoring engine",
	Long:  "Ranks inbound leads by estimated conversion likelihood using behavioral signal extraction, pattern matching and a probability model, then emits priority tiers and contact recommendations.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		mode := "cli"
		if cmd.Name() == "serve" {
			mode = "serve"
		}
		if err := cfg.Validate(mode); err != nil {
			return err
		}

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
