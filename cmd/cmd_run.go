package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/carbon-ledger/token-sync/common"
	"github.com/carbon-ledger/token-sync/common/errs"
	"github.com/carbon-ledger/token-sync/core/indexer"
	"github.com/carbon-ledger/token-sync/core/ledger/evm"
	"github.com/carbon-ledger/token-sync/internal/config"
	"github.com/carbon-ledger/token-sync/modules/tokensync"
	"github.com/carbon-ledger/token-sync/pkg/automaxprocs"
	"github.com/carbon-ledger/token-sync/pkg/errorhandler"
	"github.com/carbon-ledger/token-sync/pkg/logger"
	"github.com/carbon-ledger/token-sync/pkg/logger/slogx"
	"github.com/carbon-ledger/token-sync/pkg/middleware/requestcontext"
	"github.com/carbon-ledger/token-sync/pkg/middleware/requestlogger"
	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/favicon"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/do/v2"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/sugawarayuuta/sonnet"
)

// Register Modules
var Modules = do.Package(
	do.LazyNamed(common.ModuleTokenSync.String(), tokensync.New),
)

func NewRunCommand() *cobra.Command {
	// Create command
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start tokensync service",
		RunE: func(cmd *cobra.Command, args []string) error {
			undo, err := automaxprocs.Init(cmd.Context())
			if err != nil {
				logger.ErrorContext(cmd.Context(), "Failed to set GOMAXPROCS", err)
			}
			defer undo()
			return runHandler(cmd, args)
		},
	}

	// Add local flags
	flags := runCmd.Flags()
	flags.Bool("api-only", false, "Run only API server")
	flags.String("modules", "tokensync", "Enable specific modules to run. E.g. `tokensync`")

	// Bind flags to configuration
	config.BindPFlag("api_only", flags.Lookup("api-only"))
	config.BindPFlag("enable_modules", flags.Lookup("modules"))

	return runCmd
}

const (
	shutdownTimeout = 60 * time.Second
)

// validateLedgerConfig checks the settings every command talking to the ledger needs.
func validateLedgerConfig(conf config.LedgerConfig) error {
	if !conf.Network.IsSupported() {
		return errors.Wrapf(errs.Unsupported, "%q network is not supported", conf.Network.String())
	}
	if !common.IsValidAddress(conf.ContractAddress) {
		return errors.Wrapf(errs.InvalidArgument, "invalid contract address %q", conf.ContractAddress)
	}
	return nil
}

// dialLedger connects to the ledger node.
func dialLedger(ctx context.Context, conf config.LedgerConfig) (*evm.Reader, error) {
	start := time.Now()
	logger.InfoContext(ctx, "Connecting to ledger node...", slogx.String("rpc_url", conf.RPCURL), slogx.String("ws_url", conf.WSURL))
	reader, err := evm.Dial(ctx, evm.Config{
		RPCURL:          conf.RPCURL,
		WSURL:           conf.WSURL,
		ContractAddress: conf.ContractAddress,
		RequestTimeout:  conf.RequestTimeout,
	})
	if err != nil {
		return nil, errors.Wrap(err, "invalid ledger node configuration")
	}

	// Check ledger connection
	head, err := reader.GetCurrentHeight(ctx)
	if err != nil {
		reader.Close()
		return nil, errors.Wrap(err, "can't connect to ledger node")
	}
	logger.InfoContext(ctx, "Connected to ledger node", slogx.Uint64("head", head), slog.Duration("latency", time.Since(start)))
	return reader, nil
}

func runHandler(cmd *cobra.Command, _ []string) error {
	conf := config.Load()

	// Validate inputs and configurations
	if err := validateLedgerConfig(conf.Ledger); err != nil {
		return errors.WithStack(err)
	}

	// Initialize application process context
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	injector := do.New(Modules)
	do.ProvideValue(injector, conf)
	do.ProvideValue(injector, ctx)

	// Initialize ledger reader
	do.Provide(injector, func(i do.Injector) (*evm.Reader, error) {
		conf := do.MustInvoke[config.Config](i)
		return dialLedger(ctx, conf.Ledger)
	})

	// Initialize HTTP server
	do.Provide(injector, func(i do.Injector) (*fiber.App, error) {
		app := fiber.New(fiber.Config{
			AppName:      "Token Sync",
			ErrorHandler: errorhandler.NewHTTPErrorHandler(),
			JSONEncoder:  sonnet.Marshal,
			JSONDecoder:  sonnet.Unmarshal,
		})
		app.
			Use(favicon.New()).
			Use(cors.New()).
			Use(requestid.New()).
			Use(requestcontext.New(
				requestcontext.WithRequestId(),
			)).
			Use(requestlogger.New(conf.HTTPServer.Logger)).
			Use(fiberrecover.New(fiberrecover.Config{
				EnableStackTrace: true,
				StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
					buf := make([]byte, 1024) // bufLen = 1024
					buf = buf[:runtime.Stack(buf, false)]
					logger.ErrorContext(c.UserContext(), "Something went wrong, panic in http handler", errors.Errorf("panic: %v", e), slog.String("stacktrace", string(buf)))
				},
			})).
			Use(compress.New(compress.Config{
				Level: compress.LevelDefault,
			}))

		// Health check
		app.Get("/", func(c *fiber.Ctx) error {
			return errors.WithStack(c.SendStatus(http.StatusOK))
		})

		// Prometheus metrics
		if conf.Metrics.Enabled {
			app.Get(conf.Metrics.Path, adaptor.HTTPHandler(promhttp.Handler()))
		}

		return app, nil
	})

	// Initialize worker context to separate worker's lifecycle from main process
	ctxWorker, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()

	// Add logger context
	ctxWorker = logger.WithContext(ctxWorker,
		slogx.Stringer("network", conf.Ledger.Network),
		slogx.String("contract", common.NormalizeAddress(conf.Ledger.ContractAddress)),
	)

	// Run modules
	{
		modules := lo.Uniq(conf.EnableModules)
		modules = lo.Map(modules, func(item string, _ int) string { return strings.TrimSpace(item) })
		modules = lo.Filter(modules, func(item string, _ int) bool { return item != "" })
		for _, module := range modules {
			ctx := logger.WithContext(ctxWorker, slogx.String("module", module))

			worker, err := do.InvokeNamed[indexer.IndexerWorker](injector, module)
			if err != nil {
				if errors.Is(err, do.ErrServiceNotFound) {
					return errors.Errorf("Module %q is not supported", module)
				}
				return errors.Wrapf(err, "can't init module %q", module)
			}

			// Run sync engine
			if !conf.APIOnly {
				go func() {
					// stop main process if the sync engine stopped
					defer stop()

					logger.InfoContext(ctx, "Starting token sync")
					if err := worker.Run(ctx); err != nil {
						logger.PanicContext(ctx, "Something went wrong, error during running token sync", slogx.Error(err))
					}
				}()
			}
		}
	}

	// Run API server
	httpServer := do.MustInvoke[*fiber.App](injector)
	go func() {
		// stop main process if API stopped
		defer stop()

		logger.InfoContext(ctx, "Started HTTP server", slog.Int("port", conf.HTTPServer.Port))
		if err := httpServer.Listen(fmt.Sprintf(":%d", conf.HTTPServer.Port)); err != nil {
			logger.PanicContext(ctx, "Something went wrong, error during running HTTP server", slogx.Error(err))
		}
	}()

	// Stop application if worker context is done
	go func() {
		<-ctxWorker.Done()
		defer stop()

		logger.InfoContext(ctx, "Token sync worker is stopped. Stopping application...")
	}()

	logger.InfoContext(ctxWorker, "Token sync started")

	// Wait for interrupt signal to gracefully stop the server
	<-ctx.Done()

	// Force shutdown if timeout exceeded or got signal again
	go func() {
		defer os.Exit(1)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		select {
		case <-ctx.Done():
			logger.FatalContext(ctx, "Received exit signal again. Force shutdown...")
		case <-time.After(shutdownTimeout + 15*time.Second):
			logger.FatalContext(ctx, "Shutdown timeout exceeded. Force shutdown...")
		}
	}()

	if err := httpServer.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.ErrorContext(ctx, "Failed to shutdown HTTP server", err)
	}
	if err := injector.Shutdown(); err != nil {
		logger.PanicContext(ctx, "Failed while gracefully shutting down", slogx.Error(err))
	}

	return nil
}
