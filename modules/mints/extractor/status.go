package extractor

import (
	"math/big"
	"time"

	"github.com/minterscan/mint-indexer/modules/mints/entity"
)

// Counters carries the on-chain state a status decision depends on beyond the
// descriptor itself.
type Counters struct {
	// SaleDisabled is the protocol's explicit "sale cannot mint" flag.
	// It overrides every other rule.
	SaleDisabled bool

	// Minted is the current supply counter, compared against the descriptor's
	// MaxSupply. nil means unknown, which never ends a sale.
	Minted *big.Int
}

const (
	StatusReasonSaleDisabled     = "sale-disabled"
	StatusReasonEndTimePassed    = "end-time-passed"
	StatusReasonStartTimePending = "start-time-not-reached"
	StatusReasonSupplyExhausted  = "max-supply-reached"
)

// Classify maps a descriptor's time bounds, supply counters and sale flags
// into a lifecycle state. It never returns MintStatusClosed: closed is
// reserved for reconciliation's "was findable before, is not findable now"
// determination, while this classification reflects live on-chain readability.
func Classify(d *entity.MintDescriptor, now time.Time, counters Counters) (entity.MintStatus, string) {
	if counters.SaleDisabled {
		return entity.MintStatusEnded, StatusReasonSaleDisabled
	}
	if d.EndTime != nil && d.EndTime.Before(now) {
		return entity.MintStatusEnded, StatusReasonEndTimePassed
	}
	if d.StartTime != nil && d.StartTime.After(now) {
		return entity.MintStatusPending, StatusReasonStartTimePending
	}
	if d.MaxSupply != nil && counters.Minted != nil && counters.Minted.Cmp(d.MaxSupply) >= 0 {
		return entity.MintStatusEnded, StatusReasonSupplyExhausted
	}
	return entity.MintStatusOpen, ""
}
