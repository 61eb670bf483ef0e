package cmd

import (
	"github.com/carbon-ledger/token-sync/common/errs"
	"github.com/carbon-ledger/token-sync/core/ledger/archive"
	"github.com/carbon-ledger/token-sync/internal/config"
	"github.com/carbon-ledger/token-sync/pkg/logger"
	"github.com/carbon-ledger/token-sync/pkg/logger/slogx"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

func NewArchiveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Manage the ledger log archive",
	}
	cmd.AddCommand(
		newArchiveExportCommand(),
	)
	return cmd
}

type archiveExportCmdOptions struct {
	From        uint64
	To          uint64
	SegmentSize uint64
}

func newArchiveExportCommand() *cobra.Command {
	opts := &archiveExportCmdOptions{}

	cmd := &cobra.Command{
		Use:     "export",
		Short:   "Export contract logs of a block range to the archive bucket",
		Example: `tokensync archive export --from 1000000 --to 2000000 --segment-size 100000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return archiveExportHandler(opts, cmd)
		},
	}

	flags := cmd.Flags()
	flags.Uint64Var(&opts.From, "from", 0, "First block to export. Default is the configured first block")
	flags.Uint64Var(&opts.To, "to", 0, "Last block to export. Default is the current ledger head")
	flags.Uint64Var(&opts.SegmentSize, "segment-size", 100_000, "Number of blocks per archive segment")

	return cmd
}

func archiveExportHandler(opts *archiveExportCmdOptions, cmd *cobra.Command) error {
	conf := config.Load()
	if err := validateLedgerConfig(conf.Ledger); err != nil {
		return errors.WithStack(err)
	}
	if conf.Ledger.Archive.Bucket == "" {
		return errors.Wrap(errs.InvalidArgument, "ledger.archive.bucket is required")
	}
	if opts.SegmentSize == 0 {
		return errors.Wrap(errs.InvalidArgument, "segment size must be positive")
	}
	ctx := logger.WithContext(cmd.Context(), slogx.String("command", "archive_export"))

	node, err := dialLedger(ctx, conf.Ledger)
	if err != nil {
		return errors.WithStack(err)
	}
	defer node.Close()

	store, err := archive.NewS3Store(ctx, archive.S3Config{
		Bucket:    conf.Ledger.Archive.Bucket,
		Region:    conf.Ledger.Archive.Region,
		Endpoint:  conf.Ledger.Archive.Endpoint,
		Anonymous: conf.Ledger.Archive.Anonymous,
	})
	if err != nil {
		return errors.Wrap(err, "can't create archive store")
	}

	from := opts.From
	if from == 0 {
		from = conf.Ledger.Network.FirstBlock(conf.Ledger.FirstBlock)
	}
	to := opts.To
	if to == 0 {
		head, err := node.GetCurrentHeight(ctx)
		if err != nil {
			return errors.Wrap(err, "can't get current height")
		}
		to = head
	}
	if from > to {
		return errors.Wrapf(errs.InvalidArgument, "from block %d is after to block %d", from, to)
	}

	exporter := archive.NewExporter(node, store, conf.Ledger.Archive.Prefix, node.Contract())
	total := 0
	for start := from; start <= to; {
		end := min(start+opts.SegmentSize-1, to)
		_, n, err := exporter.Export(ctx, start, end)
		if err != nil {
			return errors.Wrapf(err, "failed to export blocks %d to %d", start, end)
		}
		total += n
		if end == to {
			break
		}
		start = end + 1
	}
	logger.InfoContext(ctx, "Archive export completed", slogx.Uint64("from", from), slogx.Uint64("to", to), slogx.Int("logs", total))
	return nil
}
