package entity

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// NativeCurrency is the sentinel currency address for the chain's gas currency.
var NativeCurrency = common.Address{}

type MintStandard string

const (
	MintStandardFoundation MintStandard = "foundation"
	MintStandardZora       MintStandard = "zora"
)

func (s MintStandard) String() string {
	return string(s)
}

type MintStage string

const (
	MintStagePublicSale MintStage = "public-sale"
	MintStagePresale    MintStage = "presale"
)

type MintKind string

const (
	MintKindPublic    MintKind = "public"
	MintKindAllowlist MintKind = "allowlist"
)

type MintStatus string

const (
	MintStatusOpen    MintStatus = "open"
	MintStatusPending MintStatus = "pending"
	MintStatusEnded   MintStatus = "ended"

	// MintStatusClosed is reserved for descriptors that were findable by a
	// previous extraction but are no longer returned by the latest one. It is
	// assigned only by reconciliation, never by an extractor.
	MintStatusClosed MintStatus = "closed"
)

// MintDetails carries the transaction template and protocol-specific
// auxiliary data needed to reconstruct state later (e.g. which minter
// contract variant produced the descriptor).
type MintDetails struct {
	Tx   TxTemplate        `json:"tx"`
	Info map[string]string `json:"info,omitempty"`
}

// MintDescriptor is the canonical unit of discovered sale availability.
type MintDescriptor struct {
	Collection common.Address
	Contract   common.Address
	TokenId    *big.Int // nil for collection-scoped stages; set for ERC1155-style token-scoped stages
	Stage      MintStage
	Kind       MintKind
	Standard   MintStandard

	Status       MintStatus
	StatusReason string

	// Price is denominated in Currency's smallest unit and includes the
	// protocol fee for quantity = 1. PriceDecimal is the same amount shifted
	// by CurrencyDecimals, kept for display.
	Currency         common.Address
	Price            *big.Int
	CurrencyDecimals int32
	PriceDecimal     decimal.Decimal

	// nil caps mean "uncapped", never "zero".
	MaxMintsPerWallet *big.Int
	MaxSupply         *big.Int

	// Inclusive unix-second bounds. nil means unbounded on that side.
	StartTime *time.Time
	EndTime   *time.Time

	// AllowlistId is the merkle root of the associated allowlist.
	// Present iff Kind == MintKindAllowlist.
	AllowlistId *common.Hash

	Details MintDetails

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IdentityKey returns the identity tuple used by reconciliation to match old
// and new descriptors. Two descriptors with equal identity keys refer to the
// same sale stage.
func (d *MintDescriptor) IdentityKey() string {
	tokenId := ""
	if d.TokenId != nil {
		tokenId = d.TokenId.String()
	}
	return fmt.Sprintf("%s|%s|%s|%s", d.Collection.Hex(), d.Stage, tokenId, d.Kind)
}

// IsNativeCurrency reports whether the stage is priced in the chain's gas currency.
func (d *MintDescriptor) IsNativeCurrency() bool {
	return d.Currency == NativeCurrency
}

// IsOpen reports whether the stage is currently fillable.
func (d *MintDescriptor) IsOpen() bool {
	return d.Status == MintStatusOpen
}

// SameTokenScope reports whether the descriptor belongs to the given token id
// scope. A nil tokenId matches collection-scoped descriptors only.
func (d *MintDescriptor) SameTokenScope(tokenId *big.Int) bool {
	if d.TokenId == nil || tokenId == nil {
		return d.TokenId == nil && tokenId == nil
	}
	return d.TokenId.Cmp(tokenId) == 0
}
