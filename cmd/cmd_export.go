package cmd

import (
	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/minterscan/mint-indexer/internal/config"
	"github.com/minterscan/mint-indexer/internal/postgres"
	"github.com/minterscan/mint-indexer/modules/mints/export"
	mintspostgres "github.com/minterscan/mint-indexer/modules/mints/repository/postgres"
	"github.com/minterscan/mint-indexer/pkg/logger"
	"github.com/minterscan/mint-indexer/pkg/logger/slogx"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

const exportCollectionsLimit = 1000

func NewExportCommand() *cobra.Command {
	exportCmd := &cobra.Command{
		Use:     "export [collections...]",
		Short:   "Export stored mint descriptors to S3 as parquet",
		Long:    "Export stored mint descriptors to S3 as parquet. Exports the given collections, or every collection with open mints when none are given.",
		Example: `mint-indexer export 0x62037b26fff91929655aa3a060f327b47d1e2b3e`,
		RunE:    exportHandler,
	}

	flags := exportCmd.Flags()
	flags.String("bucket", "", "S3 bucket to export to")

	config.BindPFlag("modules.mints.export.bucket", flags.Lookup("bucket"))

	return exportCmd
}

func exportHandler(cmd *cobra.Command, args []string) error {
	conf := config.Load()
	ctx := cmd.Context()

	collections := make([]common.Address, 0, len(args))
	for _, arg := range args {
		if !common.IsHexAddress(arg) {
			return errors.Errorf("%q is not a valid collection address", arg)
		}
		collections = append(collections, common.HexToAddress(arg))
	}

	pg, err := postgres.NewPool(ctx, conf.Modules.Mints.Postgres)
	if err != nil {
		return errors.Wrap(err, "can't create Postgres connection pool")
	}
	defer pg.Close()
	repo := mintspostgres.NewRepository(pg)

	exporter, err := export.New(ctx, repo, conf.Modules.Mints.Export)
	if err != nil {
		return errors.Wrap(err, "can't create exporter")
	}

	if len(collections) == 0 {
		collections, err = repo.GetCollectionsWithOpenMints(ctx, exportCollectionsLimit)
		if err != nil {
			return errors.Wrap(err, "can't list collections with open mints")
		}
	}
	collections = lo.Uniq(collections)

	for _, collection := range collections {
		key, err := exporter.ExportCollection(ctx, collection)
		if err != nil {
			return errors.Wrapf(err, "can't export collection %s", collection)
		}
		logger.InfoContext(ctx, "Export finished", slogx.Stringer("collection", collection), slogx.String("key", key))
	}
	return nil
}
