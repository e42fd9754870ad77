package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/minterscan/mint-indexer/core"
	"github.com/minterscan/mint-indexer/internal/config"
	"github.com/minterscan/mint-indexer/modules/mints"
	"github.com/minterscan/mint-indexer/pkg/automaxprocs"
	"github.com/minterscan/mint-indexer/pkg/evmclient"
	"github.com/minterscan/mint-indexer/pkg/logger"
	"github.com/minterscan/mint-indexer/pkg/logger/slogx"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

// Register Modules
var Modules = do.Package(
	do.LazyNamed("mints", mints.New),
)

func NewRunCommand() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start mint-indexer service",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := automaxprocs.Init(); err != nil {
				logger.Error("Failed to set GOMAXPROCS", slogx.Error(err))
			}
			return runHandler(cmd, args)
		},
	}

	// Add local flags
	flags := runCmd.Flags()
	flags.String("evm-node", "", "EVM JSON-RPC endpoint url")
	flags.String("database", "", "Database to store mint descriptors. E.g. `postgres` or `memory`")

	// Bind flags to configuration
	config.BindPFlag("evm_node.url", flags.Lookup("evm-node"))
	config.BindPFlag("modules.mints.database", flags.Lookup("database"))

	return runCmd
}

const shutdownTimeout = 60 * time.Second

func runHandler(cmd *cobra.Command, _ []string) error {
	conf := config.Load()

	// Initialize application process context
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	injector := do.New(Modules)
	do.ProvideValue(injector, conf)
	do.ProvideValue(injector, ctx)

	// Initialize EVM RPC client
	do.Provide(injector, func(i do.Injector) (*ethclient.Client, error) {
		conf := do.MustInvoke[config.Config](i)

		client, err := evmclient.Dial(ctx, conf.EvmNode)
		if err != nil {
			return nil, errors.Wrap(err, "invalid EVM node configuration")
		}
		return client, nil
	})

	// Initialize worker context to separate worker's lifecycle from main process
	ctxWorker, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()

	worker, err := do.InvokeNamed[core.Worker](injector, "mints")
	if err != nil {
		return errors.Wrap(err, "can't init mints module")
	}

	go func() {
		// stop main process if worker stopped
		defer stop()

		logger.InfoContext(ctxWorker, "Starting mints worker")
		if err := worker.Run(ctxWorker); err != nil {
			logger.PanicContext(ctxWorker, "Something went wrong, error during running worker", slogx.Error(err))
		}
	}()

	logger.InfoContext(ctx, "Mint indexer started")

	// Wait for interrupt signal to gracefully stop the service
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

	stopWorker()
	if err := injector.Shutdown(); err != nil {
		logger.PanicContext(ctx, "Failed while gracefully shutting down", slogx.Error(err))
	}

	return nil
}
