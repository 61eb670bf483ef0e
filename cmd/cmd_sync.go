package cmd

import (
	"github.com/carbon-ledger/token-sync/internal/config"
	"github.com/carbon-ledger/token-sync/modules/tokensync"
	"github.com/carbon-ledger/token-sync/pkg/logger"
	"github.com/carbon-ledger/token-sync/pkg/logger/slogx"
	"github.com/cockroachdb/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

type syncCmdOptions struct {
	NoProgress bool
}

func NewSyncCommand() *cobra.Command {
	opts := &syncCmdOptions{}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run a single startup sync up to the current ledger head and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return syncHandler(opts, cmd)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.NoProgress, "no-progress", false, "Disable the progress bar")

	return cmd
}

func syncHandler(opts *syncCmdOptions, cmd *cobra.Command) (err error) {
	conf := config.Load()
	if err := validateLedgerConfig(conf.Ledger); err != nil {
		return errors.WithStack(err)
	}
	ctx := logger.WithContext(cmd.Context(), slogx.Stringer("network", conf.Ledger.Network), slogx.String("command", "sync"))

	node, err := dialLedger(ctx, conf.Ledger)
	if err != nil {
		return errors.WithStack(err)
	}
	defer node.Close()

	tokenSyncDg, cleanupFuncs, err := tokensync.NewDataGateway(ctx, conf.Modules.TokenSync)
	if err != nil {
		return errors.WithStack(err)
	}
	reader, err := tokensync.NewLedgerReader(ctx, conf.Ledger, node)
	if err != nil {
		return errors.WithStack(err)
	}

	processor := tokensync.NewProcessor(conf, reader, nil, tokenSyncDg, cleanupFuncs)
	defer func() {
		if shutdownErr := processor.Shutdown(ctx); shutdownErr != nil && err == nil {
			err = errors.WithStack(shutdownErr)
		}
	}()

	var bar *progressbar.ProgressBar
	if !opts.NoProgress {
		processor.OnProgress(func(progress tokensync.ScanProgress) {
			if bar == nil {
				bar = progressbar.Default(int64(progress.Head-progress.From+1), "Syncing ledger events")
			}
			if err := bar.Add64(int64(progress.To - progress.From + 1)); err != nil {
				logger.WarnContext(ctx, "Failed to update progress bar", slogx.Error(err))
			}
		})
	}

	head, err := processor.StartupSync(ctx)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return errors.Wrap(err, "sync failed")
	}
	logger.InfoContext(ctx, "Synced up to the ledger head", slogx.Uint64("head", head))
	return nil
}
