package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/docimpact/internal/config"
	"github.com/bryanwahyu/docimpact/internal/logger"
	"github.com/bryanwahyu/docimpact/internal/metrics"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "docimpact",
	Short: "Document impact analysis and chat API",
	// tanpa subcommand langsung serve
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
	SilenceUsage: true,
}

func init() {
	// path config.yaml; CONFIG_PATH masih dihormati
	def := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		def = v
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", def, "path to config.yaml (optional)")
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// bootstrap loads config and sets up logging and metrics.
func bootstrap() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("config load error: %w", err)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath); err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}
	metrics.Init()
	return cfg, nil
}
