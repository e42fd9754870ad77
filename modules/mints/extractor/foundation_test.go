package extractor

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/minterscan/mint-indexer/modules/mints/allowlist"
	"github.com/minterscan/mint-indexer/modules/mints/datagateway/memory"
	"github.com/minterscan/mint-indexer/modules/mints/entity"
	"github.com/minterscan/mint-indexer/modules/mints/merkle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testCollection = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testSeller     = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func newFoundationExtractor(chain *fakeChain, fetcher AddressListFetcher) *FoundationExtractor {
	return NewFoundationExtractor(chain, allowlist.NewStore(memory.NewRepository()), fetcher, FoundationConfig{})
}

func registerFoundationSaleV2(chain *fakeChain, price, available int64, canMint bool, gaStart, eaStart int64, fee int64) {
	chain.ret(FoundationMainnetMarket, foundationMarketAbi, "getFixedPriceSaleV2",
		testSeller, big.NewInt(price), big.NewInt(3), big.NewInt(available), canMint,
		big.NewInt(gaStart), big.NewInt(eaStart), big.NewInt(fee))
}

func TestFoundationPublicSaleV2(t *testing.T) {
	chain := newFakeChain()
	gaStart := time.Now().Add(-time.Hour).Unix()
	registerFoundationSaleV2(chain, 1_000_000, 50, true, gaStart, 0, 777)

	e := newFoundationExtractor(chain, &fakeFetcher{})
	descriptors, err := e.ExtractByCollection(context.Background(), testCollection, nil)
	require.NoError(t, err)
	require.Len(t, descriptors, 1)

	d := descriptors[0]
	assert.Equal(t, entity.MintStagePublicSale, d.Stage)
	assert.Equal(t, entity.MintKindPublic, d.Kind)
	assert.Equal(t, entity.MintStatusOpen, d.Status)
	assert.Equal(t, entity.MintStandardFoundation, d.Standard)
	assert.Equal(t, FoundationMainnetMarket, d.Contract)
	assert.True(t, d.IsNativeCurrency())
	assert.Equal(t, big.NewInt(1_000_777), d.Price, "price must include the per-nft mint fee")
	assert.Equal(t, big.NewInt(3), d.MaxMintsPerWallet)
	assert.Equal(t, big.NewInt(50), d.MaxSupply)
	require.NotNil(t, d.StartTime)
	assert.Equal(t, gaStart, d.StartTime.Unix())
	assert.Nil(t, d.AllowlistId)

	tmpl := d.Details.Tx
	assert.Equal(t, FoundationMainnetMarket, tmpl.To)
	assert.Equal(t, selectorHex(foundationMarketAbi, "mintFromFixedPriceSaleV2"), tmpl.Data.Signature)
	require.Len(t, tmpl.Data.Params, 4)
	assert.Equal(t, entity.ParamKindUnknown, tmpl.Data.Params[0].Kind)
	assert.Equal(t, testCollection.Hex(), tmpl.Data.Params[0].AbiValue)
	assert.Equal(t, entity.ParamKindQuantity, tmpl.Data.Params[1].Kind)
	assert.Equal(t, "uint16", tmpl.Data.Params[1].AbiType)
	assert.Equal(t, entity.ParamKindReferrer, tmpl.Data.Params[2].Kind)
	assert.Equal(t, entity.ParamKindRecipient, tmpl.Data.Params[3].Kind)
}

func TestFoundationFallsBackToV1(t *testing.T) {
	chain := newFakeChain()
	chain.ret(FoundationMainnetMarket, foundationMarketAbi, "getFixedPriceSale",
		testSeller, big.NewInt(500), big.NewInt(0), big.NewInt(10), true,
		big.NewInt(0), big.NewInt(0))

	e := newFoundationExtractor(chain, &fakeFetcher{})
	descriptors, err := e.ExtractByCollection(context.Background(), testCollection, nil)
	require.NoError(t, err)
	require.Len(t, descriptors, 1)

	d := descriptors[0]
	assert.Equal(t, entity.MintStatusOpen, d.Status)
	assert.Equal(t, big.NewInt(500), d.Price, "v1 markets have no separate mint fee")
	assert.Nil(t, d.MaxMintsPerWallet, "zero per-account limit means uncapped")
	assert.Nil(t, d.StartTime)

	tmpl := d.Details.Tx
	assert.Equal(t, selectorHex(foundationMarketAbi, "mintFromFixedPriceSale"), tmpl.Data.Signature)
	require.Len(t, tmpl.Data.Params, 3, "v1 mint has no payee argument")
}

func TestFoundationStatusRules(t *testing.T) {
	t.Run("market cannot mint", func(t *testing.T) {
		chain := newFakeChain()
		registerFoundationSaleV2(chain, 100, 10, false, time.Now().Add(-time.Hour).Unix(), 0, 0)
		descriptors, err := newFoundationExtractor(chain, &fakeFetcher{}).ExtractByCollection(context.Background(), testCollection, nil)
		require.NoError(t, err)
		require.Len(t, descriptors, 1)
		assert.Equal(t, entity.MintStatusEnded, descriptors[0].Status)
		assert.Equal(t, StatusReasonSaleDisabled, descriptors[0].StatusReason)
	})

	t.Run("sold out", func(t *testing.T) {
		chain := newFakeChain()
		registerFoundationSaleV2(chain, 100, 0, true, time.Now().Add(-time.Hour).Unix(), 0, 0)
		descriptors, err := newFoundationExtractor(chain, &fakeFetcher{}).ExtractByCollection(context.Background(), testCollection, nil)
		require.NoError(t, err)
		require.Len(t, descriptors, 1)
		assert.Equal(t, entity.MintStatusEnded, descriptors[0].Status)
		assert.Equal(t, StatusReasonSupplyExhausted, descriptors[0].StatusReason)
	})

	t.Run("not started", func(t *testing.T) {
		chain := newFakeChain()
		registerFoundationSaleV2(chain, 100, 10, true, time.Now().Add(time.Hour).Unix(), 0, 0)
		descriptors, err := newFoundationExtractor(chain, &fakeFetcher{}).ExtractByCollection(context.Background(), testCollection, nil)
		require.NoError(t, err)
		require.Len(t, descriptors, 1)
		assert.Equal(t, entity.MintStatusPending, descriptors[0].Status)
		assert.Equal(t, StatusReasonStartTimePending, descriptors[0].StatusReason)
	})

	t.Run("no sale configured", func(t *testing.T) {
		chain := newFakeChain()
		chain.ret(FoundationMainnetMarket, foundationMarketAbi, "getFixedPriceSaleV2",
			common.Address{}, big.NewInt(0), big.NewInt(0), big.NewInt(0), false,
			big.NewInt(0), big.NewInt(0), big.NewInt(0))
		descriptors, err := newFoundationExtractor(chain, &fakeFetcher{}).ExtractByCollection(context.Background(), testCollection, nil)
		require.NoError(t, err)
		assert.Empty(t, descriptors)
	})
}

func TestFoundationEarlyAccessStage(t *testing.T) {
	addresses := testAddresses(6)
	items := make([]*entity.AllowlistItem, 0, len(addresses))
	for _, addr := range addresses {
		items = append(items, &entity.AllowlistItem{Address: addr})
	}
	root := merkle.Root(items)

	gaStart := time.Now().Add(time.Hour)
	eaStart := time.Now().Add(-time.Hour)

	chain := newFakeChain()
	registerFoundationSaleV2(chain, 1000, 10, true, gaStart.Unix(), eaStart.Unix(), 0)
	event := foundationMarketAbi.Events["CreateFixedPriceSale"]
	eventData := utils.Must(event.Inputs.NonIndexed().Pack(
		big.NewInt(1000), big.NewInt(3), big.NewInt(gaStart.Unix()), big.NewInt(eaStart.Unix()),
		[32]byte(root), "ipfs://bafytestallowlist"))
	chain.logs = []types.Log{{
		Address: FoundationMainnetMarket,
		Topics:  []common.Hash{event.ID, common.BytesToHash(testCollection.Bytes()), common.BytesToHash(testSeller.Bytes())},
		Data:    eventData,
	}}

	fetcher := &fakeFetcher{addresses: addresses}
	store := allowlist.NewStore(memory.NewRepository())
	e := NewFoundationExtractor(chain, store, fetcher, FoundationConfig{})

	descriptors, err := e.ExtractByCollection(context.Background(), testCollection, nil)
	require.NoError(t, err)
	require.Len(t, descriptors, 2)

	earlyAccess := descriptors[1]
	assert.Equal(t, entity.MintStagePresale, earlyAccess.Stage)
	assert.Equal(t, entity.MintKindAllowlist, earlyAccess.Kind)
	assert.Equal(t, entity.MintStatusOpen, earlyAccess.Status)
	require.NotNil(t, earlyAccess.AllowlistId)
	assert.Equal(t, root, *earlyAccess.AllowlistId)
	require.NotNil(t, earlyAccess.EndTime)
	assert.Equal(t, gaStart.Unix(), earlyAccess.EndTime.Unix(), "early access ends when general availability opens")
	assert.Equal(t, "ipfs://bafytestallowlist", fetcher.lastUri)

	tmpl := earlyAccess.Details.Tx
	assert.Equal(t, selectorHex(foundationMarketAbi, "mintFromFixedPriceSaleWithEarlyAccessAllowlist"), tmpl.Data.Signature)
	require.Len(t, tmpl.Data.Params, 4)
	assert.Equal(t, entity.ParamKindAllowlist, tmpl.Data.Params[3].Kind)
	assert.Equal(t, "bytes32[]", tmpl.Data.Params[3].AbiType)

	// the fetched allowlist must have been persisted and verified
	exists, err := store.Exists(context.Background(), root)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestFoundationEarlyAccessBadAllowlistSkipsStage(t *testing.T) {
	addresses := testAddresses(4)
	var wrongRoot common.Hash
	wrongRoot[0] = 0xbe

	gaStart := time.Now().Add(time.Hour)
	chain := newFakeChain()
	registerFoundationSaleV2(chain, 1000, 10, true, gaStart.Unix(), time.Now().Add(-time.Hour).Unix(), 0)
	event := foundationMarketAbi.Events["CreateFixedPriceSale"]
	eventData := utils.Must(event.Inputs.NonIndexed().Pack(
		big.NewInt(1000), big.NewInt(3), big.NewInt(gaStart.Unix()), big.NewInt(0),
		[32]byte(wrongRoot), "https://example.invalid/allowlist.json"))
	chain.logs = []types.Log{{
		Address: FoundationMainnetMarket,
		Topics:  []common.Hash{event.ID, common.BytesToHash(testCollection.Bytes()), common.BytesToHash(testSeller.Bytes())},
		Data:    eventData,
	}}

	e := newFoundationExtractor(chain, &fakeFetcher{addresses: addresses})
	descriptors, err := e.ExtractByCollection(context.Background(), testCollection, nil)
	require.NoError(t, err)
	require.Len(t, descriptors, 1, "stage with unverifiable allowlist is skipped, public stage survives")
	assert.Equal(t, entity.MintStagePublicSale, descriptors[0].Stage)
}

func TestFoundationTokenScopedRequestReturnsNothing(t *testing.T) {
	chain := newFakeChain()
	registerFoundationSaleV2(chain, 100, 10, true, 0, 0, 0)
	descriptors, err := newFoundationExtractor(chain, &fakeFetcher{}).ExtractByCollection(context.Background(), testCollection, big.NewInt(1))
	require.NoError(t, err)
	assert.Empty(t, descriptors)
}

func TestFoundationExtractByTx(t *testing.T) {
	chain := newFakeChain()
	registerFoundationSaleV2(chain, 100, 10, true, time.Now().Add(-time.Hour).Unix(), 0, 0)
	e := newFoundationExtractor(chain, &fakeFetcher{})

	method := foundationMarketAbi.Methods["mintFromFixedPriceSaleV2"]
	args := utils.Must(method.Inputs.Pack(testCollection, uint16(1), common.Address{}, testSeller))

	t.Run("recognized calldata", func(t *testing.T) {
		descriptors, err := e.ExtractByTx(context.Background(), common.Address{}, entity.Transaction{
			To:   FoundationMainnetMarket,
			Data: append(append([]byte{}, method.ID...), args...),
		})
		require.NoError(t, err)
		require.Len(t, descriptors, 1)
		assert.Equal(t, testCollection, descriptors[0].Collection, "collection comes from calldata, not the caller hint")
	})

	t.Run("wrong target contract", func(t *testing.T) {
		descriptors, err := e.ExtractByTx(context.Background(), testCollection, entity.Transaction{
			To:   testCollection,
			Data: append(append([]byte{}, method.ID...), args...),
		})
		require.NoError(t, err)
		assert.Empty(t, descriptors)
	})

	t.Run("malformed calldata", func(t *testing.T) {
		descriptors, err := e.ExtractByTx(context.Background(), testCollection, entity.Transaction{
			To:   FoundationMainnetMarket,
			Data: append(append([]byte{}, method.ID...), 0xde, 0xad),
		})
		require.NoError(t, err)
		assert.Empty(t, descriptors)
	})

	t.Run("unrelated selector", func(t *testing.T) {
		descriptors, err := e.ExtractByTx(context.Background(), testCollection, entity.Transaction{
			To:   FoundationMainnetMarket,
			Data: []byte{0x01, 0x02, 0x03, 0x04},
		})
		require.NoError(t, err)
		assert.Empty(t, descriptors)
	})
}
