package entity

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// AllowlistItem is a single entry of a merkle-gated presale allowlist.
// Allowlists are immutable once created and keyed by merkle root.
type AllowlistItem struct {
	Address common.Address

	// Price is the on-chain unit price for this entry, ActualPrice is the
	// price inclusive of the protocol fee. nil means "use the stage price".
	Price       *big.Int
	ActualPrice *big.Int

	// MaxMints is the per-entry mint cap. nil means uncapped.
	MaxMints *big.Int
}
