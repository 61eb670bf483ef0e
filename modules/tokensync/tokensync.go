package tokensync

import (
	"context"
	"strings"

	"github.com/carbon-ledger/token-sync/common/errs"
	"github.com/carbon-ledger/token-sync/core/indexer"
	"github.com/carbon-ledger/token-sync/core/ledger"
	"github.com/carbon-ledger/token-sync/core/ledger/archive"
	"github.com/carbon-ledger/token-sync/core/ledger/evm"
	"github.com/carbon-ledger/token-sync/internal/config"
	"github.com/carbon-ledger/token-sync/internal/postgres"
	tokensyncapi "github.com/carbon-ledger/token-sync/modules/tokensync/api"
	tokensyncconfig "github.com/carbon-ledger/token-sync/modules/tokensync/config"
	"github.com/carbon-ledger/token-sync/modules/tokensync/datagateway"
	tokensyncmemory "github.com/carbon-ledger/token-sync/modules/tokensync/repository/memory"
	tokensyncpostgres "github.com/carbon-ledger/token-sync/modules/tokensync/repository/postgres"
	tokensyncusecase "github.com/carbon-ledger/token-sync/modules/tokensync/usecase"
	"github.com/carbon-ledger/token-sync/pkg/logger"
	"github.com/carbon-ledger/token-sync/pkg/logger/slogx"
	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/do/v2"
	"github.com/samber/lo"
)

func New(injector do.Injector) (indexer.IndexerWorker, error) {
	ctx := do.MustInvoke[context.Context](injector)
	conf := do.MustInvoke[config.Config](injector)
	node := do.MustInvoke[*evm.Reader](injector)

	tokenSyncDg, cleanupFuncs, err := NewDataGateway(ctx, conf.Modules.TokenSync)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	reader, err := NewLedgerReader(ctx, conf.Ledger, node)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var subscriber ledger.Subscriber
	if conf.Ledger.UseSubscription() {
		subscriber = node
	} else {
		logger.InfoContext(ctx, "Live subscriptions are disabled for this network, relying on catch-up scans")
	}

	processor := NewProcessor(conf, reader, subscriber, tokenSyncDg, cleanupFuncs)

	// Mount API
	apiHandlers := lo.Uniq(conf.Modules.TokenSync.APIHandlers)
	for _, handler := range apiHandlers {
		switch handler {
		case "http":
			httpServer := do.MustInvoke[*fiber.App](injector)
			tokenSyncUsecase := tokensyncusecase.New(tokenSyncDg, processor, processor.Network(), processor.Contract())
			tokenSyncHTTPHandler := tokensyncapi.NewHTTPHandler(tokenSyncUsecase, conf.Modules.TokenSync.AmountDecimals)
			if err := tokenSyncHTTPHandler.Mount(httpServer); err != nil {
				return nil, errors.Wrap(err, "can't mount TokenSync API")
			}
			logger.InfoContext(ctx, "Mounted HTTP handler")
		default:
			return nil, errors.Wrapf(errs.Unsupported, "%q API handler is not supported", handler)
		}
	}

	return indexer.New(processor), nil
}

// NewDataGateway opens the configured storage. The returned cleanup functions
// release it.
func NewDataGateway(ctx context.Context, conf tokensyncconfig.Config) (datagateway.TokenSyncDataGateway, []func(context.Context) error, error) {
	var cleanupFuncs []func(context.Context) error
	switch strings.ToLower(conf.Database) {
	case "postgresql", "postgres", "pg":
		pg, err := postgres.NewPool(ctx, conf.Postgres)
		if err != nil {
			if errors.Is(err, errs.InvalidArgument) {
				return nil, nil, errors.Wrap(err, "Invalid Postgres configuration for token sync")
			}
			return nil, nil, errors.Wrap(err, "can't create Postgres connection pool")
		}
		cleanupFuncs = append(cleanupFuncs, func(ctx context.Context) error {
			pg.Close()
			return nil
		})
		return tokensyncpostgres.NewRepository(pg), cleanupFuncs, nil
	case "memory", "":
		logger.WarnContext(ctx, "Using in-memory storage, synced data is lost on restart")
		return tokensyncmemory.NewRepository(), cleanupFuncs, nil
	default:
		return nil, nil, errors.Wrapf(errs.Unsupported, "%q database for token sync is not supported", conf.Database)
	}
}

// NewLedgerReader returns the node reader, served from the log archive when it is enabled.
func NewLedgerReader(ctx context.Context, conf config.LedgerConfig, node *evm.Reader) (ledger.Reader, error) {
	if !conf.Archive.Enabled {
		return node, nil
	}
	store, err := archive.NewS3Store(ctx, archive.S3Config{
		Bucket:    conf.Archive.Bucket,
		Region:    conf.Archive.Region,
		Endpoint:  conf.Archive.Endpoint,
		Anonymous: conf.Archive.Anonymous,
	})
	if err != nil {
		return nil, errors.Wrap(err, "can't create archive store")
	}
	logger.InfoContext(ctx, "Using ledger log archive", slogx.String("bucket", conf.Archive.Bucket), slogx.String("prefix", conf.Archive.Prefix))
	return archive.NewReader(node, store, conf.Archive.Prefix, node.Contract()), nil
}
