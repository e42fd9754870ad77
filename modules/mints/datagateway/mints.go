package datagateway

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/minterscan/mint-indexer/modules/mints/entity"
)

type MintsDataGateway interface {
	MintsReaderDataGateway
	MintsWriterDataGateway
}

type MintsReaderDataGateway interface {
	// GetMintDescriptors returns the stored descriptors for the given
	// collection and standard. If status or tokenId is non-nil, that filter is
	// applied.
	GetMintDescriptors(ctx context.Context, collection common.Address, standard entity.MintStandard, status *entity.MintStatus, tokenId *big.Int) ([]*entity.MintDescriptor, error)

	// GetTokenIdsByCollection returns known token ids for the collection,
	// bounded by limit, in ascending order.
	GetTokenIdsByCollection(ctx context.Context, collection common.Address, limit int32) ([]*big.Int, error)

	// GetCollectionsWithOpenMints returns collections that currently have at
	// least one open descriptor, bounded by limit. Used by the periodic
	// refresh loop.
	GetCollectionsWithOpenMints(ctx context.Context, limit int32) ([]common.Address, error)
}

type MintsWriterDataGateway interface {
	// UpsertMintDescriptor creates the descriptor or updates the existing row
	// matched by the identity tuple (collection, stage, tokenId, kind).
	// Descriptors are never deleted.
	UpsertMintDescriptor(ctx context.Context, descriptor *entity.MintDescriptor) error
}

type AllowlistDataGateway interface {
	// AllowlistExists reports whether an allowlist for the merkle root is
	// already stored.
	AllowlistExists(ctx context.Context, root common.Hash) (bool, error)

	// CreateAllowlist persists the items under the given root. It is a no-op
	// (not an error) if the root already exists; concurrent creations of the
	// same root must be idempotent.
	CreateAllowlist(ctx context.Context, root common.Hash, items []*entity.AllowlistItem) error

	// GetAllowlistItems returns the stored items for the given root.
	// Returns errs.NotFound if the root is unknown.
	GetAllowlistItems(ctx context.Context, root common.Hash) ([]*entity.AllowlistItem, error)
}
