package cmd

import (
	"context"
	"log/slog"

	"github.com/carbon-ledger/token-sync/internal/config"
	"github.com/carbon-ledger/token-sync/pkg/logger"
	"github.com/carbon-ledger/token-sync/pkg/logger/slogx"
	"github.com/spf13/cobra"
)

func NewRootCommand() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:          "tokensync",
		Long:         `Mirrors an emissions token ledger contract into a local balance ledger`,
		SilenceUsage: true,
	}

	// Add global flags
	flags := cmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file, E.g.  `./config.yaml`")
	flags.String("network", "", "ledger network, E.g. `hardhat`, `bsctestnet` or `mainnet`")

	// Bind flags to configuration
	config.BindPFlag("ledger.network", flags.Lookup("network"))

	// Initialize configuration and logger on start command
	cobra.OnInitialize(func() {
		// Initialize configuration
		config := config.Parse(configFile)

		// Initialize logger
		if err := logger.Init(config.Logger); err != nil {
			logger.Panic("Failed to initialize logger", slogx.Error(err), slog.Any("config", config.Logger))
		}
	})

	cmd.AddCommand(
		NewRunCommand(),
		NewSyncCommand(),
		NewVersionCommand(),
		NewMigrateCommand(),
		NewArchiveCommand(),
	)
	return cmd
}

func Execute(ctx context.Context) {
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		logger.Panic("Failed to execute root command", slogx.Error(err))
	}
}
