package cmd

import (
	"context"
	"log/slog"

	"github.com/minterscan/mint-indexer/internal/config"
	"github.com/minterscan/mint-indexer/pkg/logger"
	"github.com/minterscan/mint-indexer/pkg/logger/slogx"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:  "mint-indexer",
	Long: `NFT mint indexer: discovers open mint stages on supported marketplace protocols and serves ready-to-sign mint calldata templates`,
}

func init() {
	var configFile string

	// Add global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file, E.g. `./config.yaml`")

	// Initialize configuration and logger on start command
	cobra.OnInitialize(func() {
		conf := config.Parse(configFile)

		if err := logger.Init(conf.Logger); err != nil {
			logger.Panic("Failed to initialize logger", slogx.Error(err), slog.Any("config", conf.Logger))
		}
	})
}

func Execute(ctx context.Context) {
	rootCmd.AddCommand(
		NewRunCommand(),
		NewMigrateCommand(),
		NewExportCommand(),
		NewVersionCommand(),
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Panic("Failed to execute root command", slogx.Error(err))
	}
}
