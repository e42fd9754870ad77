// Package reconcile re-derives a collection's mint availability from chain
// state and converges the stored descriptor set towards it. It is the only
// place descriptors transition to closed: a stage that a previous extraction
// found but the latest one did not is no longer mintable through us.
package reconcile

import (
	"context"
	"math/big"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/minterscan/mint-indexer/modules/mints/datagateway"
	"github.com/minterscan/mint-indexer/modules/mints/entity"
	"github.com/minterscan/mint-indexer/modules/mints/extractor"
	"github.com/minterscan/mint-indexer/pkg/evmclient"
	"github.com/minterscan/mint-indexer/pkg/logger"
	"github.com/minterscan/mint-indexer/pkg/logger/slogx"
	cstream "github.com/planxnx/concurrent-stream"
	"github.com/samber/lo"
)

// StatusReasonNoLongerFindable marks descriptors closed by reconciliation.
const StatusReasonNoLongerFindable = "no-longer-findable"

const (
	tokenExtractConcurrency = 8
	tokenIdLimit            = 1000
)

type Reconciler struct {
	dg         datagateway.MintsDataGateway
	client     evmclient.Contract
	extractors []extractor.Extractor
}

func NewReconciler(dg datagateway.MintsDataGateway, client evmclient.Contract, extractors []extractor.Extractor) *Reconciler {
	return &Reconciler{dg: dg, client: client, extractors: extractors}
}

// Result summarizes one reconciliation run.
type Result struct {
	Extracted int
	Closed    int
}

// RefreshByCollection re-extracts every standard's stages for the collection,
// upserts what was found and closes stored descriptors that are no longer
// findable. Token scopes whose extraction failed are exempt from closing, so a
// transient failure never masks a live stage as closed.
func (r *Reconciler) RefreshByCollection(ctx context.Context, collection common.Address) (*Result, error) {
	total := &Result{}
	for _, ext := range r.extractors {
		result, err := r.refreshStandard(ctx, collection, ext)
		if err != nil {
			return nil, errors.Wrapf(err, "can't refresh %s stages for %s", ext.Standard(), collection)
		}
		total.Extracted += result.Extracted
		total.Closed += result.Closed
	}
	return total, nil
}

type tokenResult struct {
	tokenId     *big.Int
	descriptors []*entity.MintDescriptor
	err         error
}

func (r *Reconciler) refreshStandard(ctx context.Context, collection common.Address, ext extractor.Extractor) (*Result, error) {
	stored, err := r.dg.GetMintDescriptors(ctx, collection, ext.Standard(), nil, nil)
	if err != nil {
		return nil, errors.Wrap(err, "can't load stored descriptors")
	}

	var (
		found        []*entity.MintDescriptor
		failedScopes []*big.Int
	)
	if extractor.DetectTokenStandard(ctx, r.client, collection).IsMultiToken() {
		found, failedScopes, err = r.extractPerToken(ctx, collection, ext, stored)
	} else {
		found, err = ext.ExtractByCollection(ctx, collection, nil)
	}
	if err != nil {
		return nil, err
	}

	if discoverer, ok := ext.(extractor.PremintDiscoverer); ok {
		premints, err := discoverer.DiscoverPremints(ctx, collection)
		if err != nil {
			// premints enrich the result, their discovery never fails the run
			logger.WarnContext(ctx, "Premint discovery failed",
				slogx.Stringer("collection", collection),
				slogx.Error(err),
			)
		} else {
			found = mergePremints(found, premints)
		}
	}

	newIdentities := make(map[string]struct{}, len(found))
	for _, d := range found {
		newIdentities[d.IdentityKey()] = struct{}{}
		if err := r.dg.UpsertMintDescriptor(ctx, d); err != nil {
			return nil, errors.Wrapf(err, "can't upsert descriptor %s", d.IdentityKey())
		}
	}

	closed := 0
	for _, d := range stored {
		if d.Status == entity.MintStatusClosed {
			continue
		}
		if _, stillFindable := newIdentities[d.IdentityKey()]; stillFindable {
			continue
		}
		if scopeFailed(d, failedScopes) {
			continue
		}
		d.Status = entity.MintStatusClosed
		d.StatusReason = StatusReasonNoLongerFindable
		d.UpdatedAt = time.Now()
		if err := r.dg.UpsertMintDescriptor(ctx, d); err != nil {
			return nil, errors.Wrapf(err, "can't close descriptor %s", d.IdentityKey())
		}
		closed++
	}

	logger.DebugContext(ctx, "Reconciled collection stages",
		slogx.Stringer("collection", collection),
		slogx.String("standard", ext.Standard().String()),
		slogx.Int("extracted", len(found)),
		slogx.Int("closed", closed),
	)
	return &Result{Extracted: len(found), Closed: closed}, nil
}

// extractPerToken fans extraction out over the collection's known token ids.
// Failures are isolated per token: the failed scopes are reported so the
// caller can exempt their stored descriptors from closing.
func (r *Reconciler) extractPerToken(ctx context.Context, collection common.Address, ext extractor.Extractor, stored []*entity.MintDescriptor) ([]*entity.MintDescriptor, []*big.Int, error) {
	tokenIds, err := r.dg.GetTokenIdsByCollection(ctx, collection, tokenIdLimit)
	if err != nil {
		return nil, nil, errors.Wrap(err, "can't load token ids")
	}
	// stored descriptors can reference tokens the id index no longer returns
	for _, d := range stored {
		if d.TokenId != nil {
			tokenIds = append(tokenIds, d.TokenId)
		}
	}
	tokenIds = lo.UniqBy(tokenIds, func(id *big.Int) string { return id.String() })

	out := make(chan tokenResult)
	stream := cstream.NewStream(ctx, tokenExtractConcurrency, out)
	go func() {
		defer stream.Close()
		for _, tokenId := range tokenIds {
			tokenId := tokenId
			stream.Go(func() tokenResult {
				descriptors, err := ext.ExtractByCollection(ctx, collection, tokenId)
				return tokenResult{tokenId: tokenId, descriptors: descriptors, err: err}
			})
		}
	}()
	go func() {
		defer close(out)
		_ = stream.Wait()
	}()

	var (
		found        []*entity.MintDescriptor
		failedScopes []*big.Int
	)
	for result := range out {
		if result.err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			logger.WarnContext(ctx, "Token extraction failed, scope exempt from closing",
				slogx.Stringer("collection", collection),
				slogx.Stringer("token_id", result.tokenId),
				slogx.Error(result.err),
			)
			failedScopes = append(failedScopes, result.tokenId)
			continue
		}
		found = append(found, result.descriptors...)
	}
	return found, failedScopes, nil
}

// mergePremints unions premint descriptors into the on-chain result set.
// On-chain state wins on identity collisions: a premint that has been brought
// on-chain is already covered by extraction.
func mergePremints(found, premints []*entity.MintDescriptor) []*entity.MintDescriptor {
	onchain := make(map[string]struct{}, len(found))
	for _, d := range found {
		onchain[d.IdentityKey()] = struct{}{}
	}
	for _, d := range premints {
		if _, exists := onchain[d.IdentityKey()]; !exists {
			found = append(found, d)
		}
	}
	return found
}

func scopeFailed(d *entity.MintDescriptor, failedScopes []*big.Int) bool {
	for _, tokenId := range failedScopes {
		if d.SameTokenScope(tokenId) {
			return true
		}
	}
	return false
}
