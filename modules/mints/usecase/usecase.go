// Package usecase wires the mints module's components behind one facade, the
// surface the cli commands and background workers call into.
package usecase

import (
	"context"
	"math/big"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/minterscan/mint-indexer/modules/mints/datagateway"
	"github.com/minterscan/mint-indexer/modules/mints/entity"
	"github.com/minterscan/mint-indexer/modules/mints/extractor"
	"github.com/minterscan/mint-indexer/modules/mints/reconcile"
	"github.com/minterscan/mint-indexer/modules/mints/txbuilder"
	"github.com/minterscan/mint-indexer/pkg/evmclient"
	"github.com/minterscan/mint-indexer/pkg/logger"
	"github.com/minterscan/mint-indexer/pkg/logger/slogx"
)

type Usecase struct {
	dg         datagateway.MintsDataGateway
	jobs       datagateway.JobsDataGateway
	client     evmclient.Contract
	extractors []extractor.Extractor
	reconciler *reconcile.Reconciler
	builder    *txbuilder.Builder
}

func New(
	dg datagateway.MintsDataGateway,
	jobs datagateway.JobsDataGateway,
	client evmclient.Contract,
	extractors []extractor.Extractor,
	reconciler *reconcile.Reconciler,
	builder *txbuilder.Builder,
) *Usecase {
	return &Usecase{
		dg:         dg,
		jobs:       jobs,
		client:     client,
		extractors: extractors,
		reconciler: reconciler,
		builder:    builder,
	}
}

// ExtractByCollection unions live extraction results across every supported
// standard without touching storage.
func (u *Usecase) ExtractByCollection(ctx context.Context, collection common.Address, tokenId *big.Int) ([]*entity.MintDescriptor, error) {
	var out []*entity.MintDescriptor
	for _, ext := range u.extractors {
		descriptors, err := ext.ExtractByCollection(ctx, collection, tokenId)
		if err != nil {
			return nil, errors.Wrapf(err, "can't extract %s stages for %s", ext.Standard(), collection)
		}
		out = append(out, descriptors...)
	}
	return out, nil
}

// ExtractByTx unions each standard's reading of the transaction's calldata.
func (u *Usecase) ExtractByTx(ctx context.Context, collection common.Address, tx entity.Transaction) ([]*entity.MintDescriptor, error) {
	var out []*entity.MintDescriptor
	for _, ext := range u.extractors {
		descriptors, err := ext.ExtractByTx(ctx, collection, tx)
		if err != nil {
			return nil, errors.Wrapf(err, "can't extract %s stages from tx %s", ext.Standard(), tx.Hash)
		}
		out = append(out, descriptors...)
	}
	return out, nil
}

// ExtractByTxHash loads the transaction from the chain and extracts from its
// calldata. Contract creations carry no target and yield nothing.
func (u *Usecase) ExtractByTxHash(ctx context.Context, collection common.Address, hash common.Hash) ([]*entity.MintDescriptor, error) {
	tx, _, err := u.client.TransactionByHash(ctx, hash)
	if err != nil {
		return nil, errors.Wrapf(err, "can't load transaction %s", hash)
	}
	if tx.To() == nil {
		return nil, nil
	}
	return u.ExtractByTx(ctx, collection, entity.Transaction{Hash: hash, To: *tx.To(), Data: tx.Data()})
}

// GetMintDescriptors returns stored descriptors for the collection across all
// standards, optionally filtered by status and token scope.
func (u *Usecase) GetMintDescriptors(ctx context.Context, collection common.Address, status *entity.MintStatus, tokenId *big.Int) ([]*entity.MintDescriptor, error) {
	var out []*entity.MintDescriptor
	for _, ext := range u.extractors {
		descriptors, err := u.dg.GetMintDescriptors(ctx, collection, ext.Standard(), status, tokenId)
		if err != nil {
			return nil, errors.Wrapf(err, "can't load %s descriptors for %s", ext.Standard(), collection)
		}
		out = append(out, descriptors...)
	}
	return out, nil
}

// RefreshByCollection reconciles stored state with live chain state.
func (u *Usecase) RefreshByCollection(ctx context.Context, collection common.Address) (*reconcile.Result, error) {
	return u.reconciler.RefreshByCollection(ctx, collection)
}

// EnqueueRefresh schedules an asynchronous refresh. Duplicate requests for
// the same collection collapse into one pending job.
func (u *Usecase) EnqueueRefresh(ctx context.Context, collection common.Address, runAt time.Time) error {
	if err := u.jobs.EnqueueRefreshJob(ctx, collection, runAt); err != nil {
		return errors.Wrapf(err, "can't enqueue refresh for %s", collection)
	}
	return nil
}

// ProcessDueRefreshJobs claims due jobs and refreshes their collections. A
// failed refresh is logged and requeued with a delay rather than failing the
// whole batch.
func (u *Usecase) ProcessDueRefreshJobs(ctx context.Context, limit int32) (int, error) {
	jobs, err := u.jobs.PollDueRefreshJobs(ctx, limit)
	if err != nil {
		return 0, errors.Wrap(err, "can't poll refresh jobs")
	}
	processed := 0
	for _, job := range jobs {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		if _, err := u.reconciler.RefreshByCollection(ctx, job.Collection); err != nil {
			logger.ErrorContext(ctx, "Refresh job failed",
				slogx.Stringer("collection", job.Collection),
				slogx.Error(err),
			)
			if err := u.jobs.EnqueueRefreshJob(ctx, job.Collection, time.Now().Add(time.Minute)); err != nil {
				logger.ErrorContext(ctx, "Can't requeue failed refresh job",
					slogx.Stringer("collection", job.Collection),
					slogx.Error(err),
				)
			}
			continue
		}
		processed++
	}
	return processed, nil
}

// RefreshOpenCollections enqueues refreshes for every collection that still
// has an open stage. Driven by the periodic refresh loop.
func (u *Usecase) RefreshOpenCollections(ctx context.Context, limit int32) error {
	collections, err := u.dg.GetCollectionsWithOpenMints(ctx, limit)
	if err != nil {
		return errors.Wrap(err, "can't list collections with open mints")
	}
	for _, collection := range collections {
		if err := u.EnqueueRefresh(ctx, collection, time.Now()); err != nil {
			return err
		}
	}
	return nil
}

// GenerateTxData fills the descriptor's template into ready-to-send calldata.
func (u *Usecase) GenerateTxData(ctx context.Context, d *entity.MintDescriptor, req txbuilder.MintRequest) (*entity.GeneratedTx, error) {
	return u.builder.GenerateTxData(ctx, d, req)
}

// GenerateProofValue returns the merkle proof for address against an allowlist.
func (u *Usecase) GenerateProofValue(ctx context.Context, allowlistId common.Hash, address common.Address) ([]common.Hash, error) {
	return u.builder.GenerateProofValue(ctx, allowlistId, address)
}
