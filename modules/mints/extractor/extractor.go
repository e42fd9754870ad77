// Package extractor discovers currently configured mint stages by inspecting
// on-chain sale contracts, one extractor per supported minting protocol. Each
// discovered stage is encoded as a protocol-agnostic transaction template with
// typed parameter slots, consumed at fill time by the txbuilder package.
package extractor

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/minterscan/mint-indexer/modules/mints/entity"
	"github.com/minterscan/mint-indexer/pkg/evmclient"
)

type Extractor interface {
	Standard() entity.MintStandard

	// ExtractByCollection performs read-only on-chain calls to discover
	// currently configured stages. tokenId is nil for collection-scoped
	// extraction; token-scoped protocols return nothing without it.
	// A protocol version not present on the contract is not an error, only
	// absence of that version's config.
	ExtractByCollection(ctx context.Context, collection common.Address, tokenId *big.Int) ([]*entity.MintDescriptor, error)

	// ExtractByTx decodes a historical transaction's calldata to recover
	// parameters the by-collection path cannot infer (token id, minter
	// variant), then delegates to ExtractByCollection. Malformed or
	// unrecognized calldata yields an empty result, not an error.
	ExtractByTx(ctx context.Context, collection common.Address, tx entity.Transaction) ([]*entity.MintDescriptor, error)
}

// PremintDiscoverer is implemented by extractors whose protocol supports
// offline-signed mint configs not yet materialized on-chain.
type PremintDiscoverer interface {
	DiscoverPremints(ctx context.Context, collection common.Address) ([]*entity.MintDescriptor, error)
}

// DetectTokenStandard probes the collection's ERC165 interface support.
// Defaults to ERC721 when the probe fails or neither interface is claimed.
func DetectTokenStandard(ctx context.Context, client evmclient.Contract, collection common.Address) entity.TokenStandard {
	if supportsInterface(ctx, client, collection, erc1155InterfaceId) {
		return entity.TokenStandardERC1155
	}
	return entity.TokenStandardERC721
}

func supportsInterface(ctx context.Context, client evmclient.Contract, collection common.Address, interfaceId [4]byte) bool {
	results, err := evmclient.Call(ctx, client, collection, erc165Abi, "supportsInterface", interfaceId)
	if err != nil || len(results) != 1 {
		return false
	}
	supported, ok := results[0].(bool)
	return ok && supported
}

func timeFromUnix(ts *big.Int) *time.Time {
	if ts == nil || ts.Sign() <= 0 {
		return nil
	}
	t := time.Unix(ts.Int64(), 0)
	return &t
}

func timeFromUnixU64(ts uint64) *time.Time {
	if ts == 0 {
		return nil
	}
	t := time.Unix(int64(ts), 0)
	return &t
}

// capOrNil maps a zero on-chain cap to nil: absence of a cap, never "zero".
func capOrNil(v *big.Int) *big.Int {
	if v == nil || v.Sign() <= 0 {
		return nil
	}
	return new(big.Int).Set(v)
}

func capOrNilU64(v uint64) *big.Int {
	if v == 0 {
		return nil
	}
	return new(big.Int).SetUint64(v)
}
