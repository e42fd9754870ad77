package mints

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/minterscan/mint-indexer/common/errs"
	"github.com/minterscan/mint-indexer/core"
	"github.com/minterscan/mint-indexer/internal/config"
	"github.com/minterscan/mint-indexer/internal/postgres"
	"github.com/minterscan/mint-indexer/modules/mints/allowlist"
	"github.com/minterscan/mint-indexer/modules/mints/datagateway"
	"github.com/minterscan/mint-indexer/modules/mints/datagateway/memory"
	"github.com/minterscan/mint-indexer/modules/mints/extractor"
	"github.com/minterscan/mint-indexer/modules/mints/reconcile"
	mintspostgres "github.com/minterscan/mint-indexer/modules/mints/repository/postgres"
	"github.com/minterscan/mint-indexer/modules/mints/txbuilder"
	"github.com/minterscan/mint-indexer/modules/mints/usecase"
	"github.com/samber/do/v2"
)

func New(injector do.Injector) (core.Worker, error) {
	ctx := do.MustInvoke[context.Context](injector)
	conf := do.MustInvoke[config.Config](injector)
	client := do.MustInvoke[*ethclient.Client](injector)
	mintsConf := conf.Modules.Mints

	var (
		mintsDg     datagateway.MintsDataGateway
		allowlistDg datagateway.AllowlistDataGateway
		jobsDg      datagateway.JobsDataGateway
	)
	var cleanupFuncs []func(context.Context) error
	switch strings.ToLower(mintsConf.Database) {
	case "postgresql", "postgres", "pg":
		pg, err := postgres.NewPool(ctx, mintsConf.Postgres)
		if err != nil {
			if errors.Is(err, errs.InvalidArgument) {
				return nil, errors.Wrap(err, "Invalid Postgres configuration for mints module")
			}
			return nil, errors.Wrap(err, "can't create Postgres connection pool")
		}
		cleanupFuncs = append(cleanupFuncs, func(ctx context.Context) error {
			pg.Close()
			return nil
		})
		repo := mintspostgres.NewRepository(pg)
		mintsDg = repo
		allowlistDg = repo
		jobsDg = repo
	case "memory":
		repo := memory.NewRepository()
		mintsDg = repo
		allowlistDg = repo
		jobsDg = repo
	default:
		return nil, errors.Wrapf(errs.Unsupported, "%q database for mints module is not supported", mintsConf.Database)
	}

	allowlists := allowlist.NewStore(allowlistDg)
	fetcher := extractor.NewUriFetcher(mintsConf.IpfsGateway)

	foundation := extractor.NewFoundationExtractor(client, allowlists, fetcher, mintsConf.Foundation)
	zora, err := extractor.NewZoraExtractor(client, allowlists, mintsConf.Zora)
	if err != nil {
		return nil, errors.Wrap(err, "can't create zora extractor")
	}
	extractors := []extractor.Extractor{foundation, zora}

	reconciler := reconcile.NewReconciler(mintsDg, client, extractors)
	builder := txbuilder.NewBuilder(allowlists, mintsConf.TxBuilder)
	uc := usecase.New(mintsDg, jobsDg, client, extractors, reconciler, builder)

	worker := NewWorker(uc, mintsConf.PollInterval, mintsConf.RefreshInterval, mintsConf.JobBatchSize, cleanupFuncs)
	return worker, nil
}
