package extractor

import (
	"math/big"
	"testing"
	"time"

	"github.com/minterscan/mint-indexer/modules/mints/entity"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	testcases := []struct {
		name       string
		descriptor entity.MintDescriptor
		counters   Counters
		status     entity.MintStatus
		reason     string
	}{
		{
			name:       "unbounded sale is open",
			descriptor: entity.MintDescriptor{},
			status:     entity.MintStatusOpen,
		},
		{
			name:       "sale disabled flag wins over everything",
			descriptor: entity.MintDescriptor{StartTime: &future, EndTime: &past},
			counters:   Counters{SaleDisabled: true},
			status:     entity.MintStatusEnded,
			reason:     StatusReasonSaleDisabled,
		},
		{
			name:       "end time passed beats start time pending",
			descriptor: entity.MintDescriptor{StartTime: &future, EndTime: &past},
			status:     entity.MintStatusEnded,
			reason:     StatusReasonEndTimePassed,
		},
		{
			name:       "start time in the future is pending",
			descriptor: entity.MintDescriptor{StartTime: &future},
			status:     entity.MintStatusPending,
			reason:     StatusReasonStartTimePending,
		},
		{
			name:       "minted at max supply is ended",
			descriptor: entity.MintDescriptor{MaxSupply: big.NewInt(100)},
			counters:   Counters{Minted: big.NewInt(100)},
			status:     entity.MintStatusEnded,
			reason:     StatusReasonSupplyExhausted,
		},
		{
			name:       "minted below max supply is open",
			descriptor: entity.MintDescriptor{MaxSupply: big.NewInt(100)},
			counters:   Counters{Minted: big.NewInt(99)},
			status:     entity.MintStatusOpen,
		},
		{
			name:       "unknown minted counter never ends a sale",
			descriptor: entity.MintDescriptor{MaxSupply: big.NewInt(0)},
			status:     entity.MintStatusOpen,
		},
		{
			name:       "started bounded sale is open",
			descriptor: entity.MintDescriptor{StartTime: &past, EndTime: &future},
			status:     entity.MintStatusOpen,
		},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			status, reason := Classify(&tc.descriptor, now, tc.counters)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.reason, reason)
		})
	}
}
