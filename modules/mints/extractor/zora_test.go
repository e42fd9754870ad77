package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/ethereum/go-ethereum/common"
	"github.com/minterscan/mint-indexer/modules/mints/allowlist"
	"github.com/minterscan/mint-indexer/modules/mints/datagateway/memory"
	"github.com/minterscan/mint-indexer/modules/mints/entity"
	"github.com/minterscan/mint-indexer/modules/mints/merkle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newZoraExtractor(t *testing.T, chain *fakeChain, conf ZoraConfig) *ZoraExtractor {
	t.Helper()
	e, err := NewZoraExtractor(chain, allowlist.NewStore(memory.NewRepository()), conf)
	require.NoError(t, err)
	return e
}

func registerZora721SaleDetails(chain *fakeChain, sale zora721SaleDetails) {
	for _, field := range []**big.Int{&sale.publicSalePrice, &sale.maxSalePurchasePerAddress, &sale.totalMinted, &sale.maxSupply} {
		if *field == nil {
			*field = big.NewInt(0)
		}
	}
	chain.ret(testCollection, zora721DropAbi, "saleDetails",
		sale.publicSaleActive, sale.presaleActive, sale.publicSalePrice,
		sale.publicSaleStart, sale.publicSaleEnd, sale.presaleStart, sale.presaleEnd,
		[32]byte(sale.presaleMerkleRoot), sale.maxSalePurchasePerAddress,
		sale.totalMinted, sale.maxSupply)
}

func allowlistServer(t *testing.T, entries []map[string]any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"entries": entries}))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestZora721PublicSaleWithRewards(t *testing.T) {
	chain := newFakeChain()
	registerZora721SaleDetails(chain, zora721SaleDetails{
		publicSaleActive:          true,
		publicSalePrice:           big.NewInt(50_000),
		publicSaleStart:           uint64(time.Now().Add(-time.Hour).Unix()),
		maxSalePurchasePerAddress: big.NewInt(5),
		totalMinted:               big.NewInt(10),
		maxSupply:                 big.NewInt(100),
	})
	chain.ret(testCollection, zora721DropAbi, "computeTotalReward", big.NewInt(777))

	e := newZoraExtractor(t, chain, ZoraConfig{})
	descriptors, err := e.ExtractByCollection(context.Background(), testCollection, nil)
	require.NoError(t, err)
	require.Len(t, descriptors, 1)

	d := descriptors[0]
	assert.Equal(t, entity.MintStagePublicSale, d.Stage)
	assert.Equal(t, entity.MintKindPublic, d.Kind)
	assert.Equal(t, entity.MintStatusOpen, d.Status)
	assert.Equal(t, entity.MintStandardZora, d.Standard)
	assert.Nil(t, d.TokenId)
	assert.Equal(t, big.NewInt(50_777), d.Price, "price must include the protocol reward")
	assert.Equal(t, big.NewInt(5), d.MaxMintsPerWallet)
	assert.Equal(t, big.NewInt(100), d.MaxSupply)

	tmpl := d.Details.Tx
	assert.Equal(t, testCollection, tmpl.To)
	assert.Equal(t, selectorHex(zora721DropAbi, "mintWithRewards"), tmpl.Data.Signature)
	require.Len(t, tmpl.Data.Params, 4)
	assert.Equal(t, entity.ParamKindRecipient, tmpl.Data.Params[0].Kind)
	assert.Equal(t, entity.ParamKindQuantity, tmpl.Data.Params[1].Kind)
	assert.Equal(t, entity.ParamKindComment, tmpl.Data.Params[2].Kind)
	assert.Equal(t, entity.ParamKindReferrer, tmpl.Data.Params[3].Kind)
}

func TestZora721PurchaseFallback(t *testing.T) {
	chain := newFakeChain()
	registerZora721SaleDetails(chain, zora721SaleDetails{
		publicSaleActive: true,
		publicSalePrice:  big.NewInt(1000),
		totalMinted:      big.NewInt(0),
		maxSupply:        big.NewInt(10),
	})
	chain.ret(testCollection, zora721DropAbi, "zoraFeeForAmount", testSeller, big.NewInt(250))

	e := newZoraExtractor(t, chain, ZoraConfig{})
	descriptors, err := e.ExtractByCollection(context.Background(), testCollection, nil)
	require.NoError(t, err)
	require.Len(t, descriptors, 1)

	d := descriptors[0]
	assert.Equal(t, big.NewInt(1250), d.Price)
	assert.Equal(t, selectorHex(zora721DropAbi, "purchase"), d.Details.Tx.Data.Signature)
	require.Len(t, d.Details.Tx.Data.Params, 1, "legacy drops only take a quantity")
	assert.Equal(t, entity.ParamKindQuantity, d.Details.Tx.Data.Params[0].Kind)
}

func TestZora721SoldOut(t *testing.T) {
	chain := newFakeChain()
	registerZora721SaleDetails(chain, zora721SaleDetails{
		publicSaleActive: true,
		publicSalePrice:  big.NewInt(1000),
		totalMinted:      big.NewInt(100),
		maxSupply:        big.NewInt(100),
	})

	e := newZoraExtractor(t, chain, ZoraConfig{})
	descriptors, err := e.ExtractByCollection(context.Background(), testCollection, nil)
	require.NoError(t, err)
	require.Len(t, descriptors, 1)
	assert.Equal(t, entity.MintStatusEnded, descriptors[0].Status)
	assert.Equal(t, StatusReasonSupplyExhausted, descriptors[0].StatusReason)
}

func TestZora721Presale(t *testing.T) {
	addresses := testAddresses(4)
	items := make([]*entity.AllowlistItem, 0, len(addresses))
	entries := make([]map[string]any, 0, len(addresses))
	for _, addr := range addresses {
		items = append(items, &entity.AllowlistItem{Address: addr, Price: big.NewInt(2000), MaxMints: big.NewInt(3)})
		entries = append(entries, map[string]any{"user": addr.Hex(), "price": "2000", "maxCanMint": 3})
	}
	root := merkle.Root(items)
	server := allowlistServer(t, entries)

	chain := newFakeChain()
	registerZora721SaleDetails(chain, zora721SaleDetails{
		presaleActive:     true,
		publicSalePrice:   big.NewInt(5000),
		presaleStart:      uint64(time.Now().Add(-time.Hour).Unix()),
		presaleEnd:        uint64(time.Now().Add(time.Hour).Unix()),
		presaleMerkleRoot: root,
		totalMinted:       big.NewInt(0),
		maxSupply:         big.NewInt(100),
	})

	e := newZoraExtractor(t, chain, ZoraConfig{AllowlistApiUrl: server.URL})
	descriptors, err := e.ExtractByCollection(context.Background(), testCollection, nil)
	require.NoError(t, err)
	require.Len(t, descriptors, 2)

	presale := descriptors[1]
	assert.Equal(t, entity.MintStagePresale, presale.Stage)
	assert.Equal(t, entity.MintKindAllowlist, presale.Kind)
	assert.Equal(t, entity.MintStatusOpen, presale.Status)
	require.NotNil(t, presale.AllowlistId)
	assert.Equal(t, root, *presale.AllowlistId)
	assert.Equal(t, big.NewInt(2000), presale.Price, "presale price comes from the allowlist entry")
	assert.Equal(t, big.NewInt(3), presale.MaxMintsPerWallet)

	tmpl := presale.Details.Tx
	assert.Equal(t, selectorHex(zora721DropAbi, "purchasePresale"), tmpl.Data.Signature)
	require.Len(t, tmpl.Data.Params, 4)
	assert.Equal(t, entity.ParamKindQuantity, tmpl.Data.Params[0].Kind)
	assert.Equal(t, "3", tmpl.Data.Params[1].AbiValue, "per-entry mint cap baked as a literal")
	assert.Equal(t, "2000", tmpl.Data.Params[2].AbiValue, "per-entry price baked as a literal")
	assert.Equal(t, entity.ParamKindAllowlist, tmpl.Data.Params[3].Kind)
}

func TestZora721PresaleAllowlistActualPrice(t *testing.T) {
	addresses := testAddresses(2)
	items := make([]*entity.AllowlistItem, 0, len(addresses))
	entries := make([]map[string]any, 0, len(addresses))
	for _, addr := range addresses {
		items = append(items, &entity.AllowlistItem{Address: addr, Price: big.NewInt(2000), MaxMints: big.NewInt(3)})
		entries = append(entries, map[string]any{"user": addr.Hex(), "price": "2000", "maxCanMint": 3})
	}
	root := merkle.Root(items)
	server := allowlistServer(t, entries)

	chain := newFakeChain()
	registerZora721SaleDetails(chain, zora721SaleDetails{
		presaleActive:     true,
		publicSalePrice:   big.NewInt(5000),
		presaleMerkleRoot: root,
		totalMinted:       big.NewInt(0),
		maxSupply:         big.NewInt(100),
	})
	chain.ret(testCollection, zora721DropAbi, "zoraFeeForAmount", testSeller, big.NewInt(250))

	store := allowlist.NewStore(memory.NewRepository())
	e, err := NewZoraExtractor(chain, store, ZoraConfig{AllowlistApiUrl: server.URL})
	require.NoError(t, err)

	descriptors, err := e.ExtractByCollection(context.Background(), testCollection, nil)
	require.NoError(t, err)
	require.Len(t, descriptors, 2)
	assert.Equal(t, big.NewInt(2250), descriptors[1].Price, "presale price includes the protocol fee")

	stored, err := store.Get(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, stored, len(addresses))
	for _, item := range stored {
		assert.Equal(t, big.NewInt(2000), item.Price)
		assert.Equal(t, big.NewInt(2250), item.ActualPrice, "stored entries carry the fee-inclusive price")
	}
}

func TestZora721PresaleNonUniformEntriesSkipsStage(t *testing.T) {
	addresses := testAddresses(2)
	items := []*entity.AllowlistItem{
		{Address: addresses[0], Price: big.NewInt(1000), MaxMints: big.NewInt(1)},
		{Address: addresses[1], Price: big.NewInt(9999), MaxMints: big.NewInt(7)},
	}
	root := merkle.Root(items)
	server := allowlistServer(t, []map[string]any{
		{"user": addresses[0].Hex(), "price": "1000", "maxCanMint": 1},
		{"user": addresses[1].Hex(), "price": "9999", "maxCanMint": 7},
	})

	chain := newFakeChain()
	registerZora721SaleDetails(chain, zora721SaleDetails{
		presaleActive:     true,
		publicSalePrice:   big.NewInt(5000),
		presaleMerkleRoot: root,
		totalMinted:       big.NewInt(0),
		maxSupply:         big.NewInt(100),
	})

	e := newZoraExtractor(t, chain, ZoraConfig{AllowlistApiUrl: server.URL})
	descriptors, err := e.ExtractByCollection(context.Background(), testCollection, nil)
	require.NoError(t, err)
	require.Len(t, descriptors, 1, "non-uniform entry terms cannot be templated, public stage survives")
	assert.Equal(t, entity.MintStagePublicSale, descriptors[0].Stage)
}

func registerErc1155(chain *fakeChain, collection common.Address) {
	chain.ret(collection, erc165Abi, "supportsInterface", true)
}

func TestZora1155FixedPriceSale(t *testing.T) {
	tokenId := big.NewInt(7)
	chain := newFakeChain()
	registerErc1155(chain, testCollection)
	chain.ret(testCollection, zora1155Abi, "mintFee", big.NewInt(111))
	chain.ret(ZoraMainnetFixedPriceMinter, zoraFixedPriceMinterAbi, "sale",
		uint64(time.Now().Add(-time.Hour).Unix()), uint64(time.Now().Add(time.Hour).Unix()),
		uint64(4), big.NewInt(5000), testSeller)

	e := newZoraExtractor(t, chain, ZoraConfig{})
	descriptors, err := e.ExtractByCollection(context.Background(), testCollection, tokenId)
	require.NoError(t, err)
	require.Len(t, descriptors, 1)

	d := descriptors[0]
	require.NotNil(t, d.TokenId)
	assert.Equal(t, tokenId, d.TokenId)
	assert.Equal(t, entity.MintStatusOpen, d.Status)
	assert.Equal(t, big.NewInt(5111), d.Price, "price must include the flat mint fee")
	assert.Equal(t, big.NewInt(4), d.MaxMintsPerWallet)
	assert.Equal(t, strategyFixedPrice, d.Details.Info[infoKeyStrategy])
	assert.Equal(t, ZoraMainnetFixedPriceMinter.Hex(), d.Details.Info[infoKeyMinter])

	tmpl := d.Details.Tx
	assert.Equal(t, testCollection, tmpl.To)
	assert.Equal(t, selectorHex(zora1155Abi, "mintWithRewards"), tmpl.Data.Signature)
	require.Len(t, tmpl.Data.Params, 5)
	assert.Equal(t, ZoraMainnetFixedPriceMinter.Hex(), tmpl.Data.Params[0].AbiValue)
	assert.Equal(t, tokenId.String(), tmpl.Data.Params[1].AbiValue)
	assert.Equal(t, entity.ParamKindQuantity, tmpl.Data.Params[2].Kind)
	custom := tmpl.Data.Params[3]
	assert.Equal(t, entity.ParamKindCustom, custom.Kind)
	assert.Equal(t, "bytes", custom.AbiType)
	require.Len(t, custom.Params, 1)
	assert.Equal(t, entity.ParamKindRecipient, custom.Params[0].Kind)
	assert.Equal(t, entity.ParamKindReferrer, tmpl.Data.Params[4].Kind)
}

func TestZora1155WithoutTokenIdReturnsNothing(t *testing.T) {
	chain := newFakeChain()
	registerErc1155(chain, testCollection)

	e := newZoraExtractor(t, chain, ZoraConfig{})
	descriptors, err := e.ExtractByCollection(context.Background(), testCollection, nil)
	require.NoError(t, err)
	assert.Empty(t, descriptors)
}

func TestZora1155Erc20MinterSale(t *testing.T) {
	tokenId := big.NewInt(3)
	currency := common.HexToAddress("0x5555555555555555555555555555555555555555")

	chain := newFakeChain()
	registerErc1155(chain, testCollection)
	chain.ret(ZoraMainnetErc20Minter, zoraERC20MinterAbi, "sale",
		uint64(time.Now().Add(-time.Hour).Unix()), uint64(0),
		uint64(0), big.NewInt(1_000_000), testSeller, currency)
	chain.ret(currency, erc20Abi, "decimals", uint8(6))

	e := newZoraExtractor(t, chain, ZoraConfig{})
	descriptors, err := e.ExtractByCollection(context.Background(), testCollection, tokenId)
	require.NoError(t, err)
	require.Len(t, descriptors, 1)

	d := descriptors[0]
	assert.Equal(t, currency, d.Currency)
	assert.False(t, d.IsNativeCurrency())
	assert.Equal(t, big.NewInt(1_000_000), d.Price)
	assert.Equal(t, int32(6), d.CurrencyDecimals)
	assert.Equal(t, "1", d.PriceDecimal.String())
	assert.Nil(t, d.MaxMintsPerWallet)
	assert.Equal(t, strategyErc20, d.Details.Info[infoKeyStrategy])

	tmpl := d.Details.Tx
	assert.Equal(t, ZoraMainnetErc20Minter, tmpl.To, "erc20 mints go to the minter, not the collection")
	assert.Equal(t, selectorHex(zoraERC20MinterAbi, "mint"), tmpl.Data.Signature)
	require.Len(t, tmpl.Data.Params, 8)
	kinds := make([]entity.ParamKind, 0, len(tmpl.Data.Params))
	for _, p := range tmpl.Data.Params {
		kinds = append(kinds, p.Kind)
	}
	assert.Equal(t, []entity.ParamKind{
		entity.ParamKindRecipient, entity.ParamKindQuantity,
		entity.ParamKindUnknown, entity.ParamKindUnknown,
		entity.ParamKindPrice, entity.ParamKindUnknown,
		entity.ParamKindReferrer, entity.ParamKindComment,
	}, kinds)
	assert.Equal(t, testCollection.Hex(), tmpl.Data.Params[2].AbiValue)
	assert.Equal(t, tokenId.String(), tmpl.Data.Params[3].AbiValue)
	assert.Equal(t, currency.Hex(), tmpl.Data.Params[5].AbiValue)
}

func TestZoraExtractByTx(t *testing.T) {
	tokenId := big.NewInt(9)
	chain := newFakeChain()
	registerErc1155(chain, testCollection)
	chain.ret(testCollection, zora1155Abi, "mintFee", big.NewInt(0))
	chain.ret(ZoraMainnetFixedPriceMinter, zoraFixedPriceMinterAbi, "sale",
		uint64(time.Now().Add(-time.Hour).Unix()), uint64(0), uint64(0), big.NewInt(5000), testSeller)

	e := newZoraExtractor(t, chain, ZoraConfig{})

	method := zora1155Abi.Methods["mintWithRewards"]
	minterArgs := []byte{0x01}
	calldata := append(append([]byte{}, method.ID...),
		utils.Must(method.Inputs.Pack(ZoraMainnetFixedPriceMinter, tokenId, big.NewInt(1), minterArgs, common.Address{}))...)

	t.Run("1155 mint calldata recovers token id", func(t *testing.T) {
		descriptors, err := e.ExtractByTx(context.Background(), testCollection, entity.Transaction{To: testCollection, Data: calldata})
		require.NoError(t, err)
		require.Len(t, descriptors, 1)
		assert.Equal(t, tokenId, descriptors[0].TokenId)
	})

	t.Run("multicall unwraps and dedupes", func(t *testing.T) {
		multicall := zora1155Abi.Methods["multicall"]
		batch := append(append([]byte{}, multicall.ID...),
			utils.Must(multicall.Inputs.Pack([][]byte{calldata, calldata}))...)
		descriptors, err := e.ExtractByTx(context.Background(), testCollection, entity.Transaction{To: testCollection, Data: batch})
		require.NoError(t, err)
		require.Len(t, descriptors, 1, "identical inner calls collapse to one descriptor")
	})

	t.Run("malformed calldata yields nothing", func(t *testing.T) {
		descriptors, err := e.ExtractByTx(context.Background(), testCollection, entity.Transaction{
			To:   testCollection,
			Data: append(append([]byte{}, method.ID...), 0x01, 0x02),
		})
		require.NoError(t, err)
		assert.Empty(t, descriptors)
	})
}

func TestZoraDiscoverPremints(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"premints":[{"tokenId":"12","price":"777000","saleStart":0,"saleEnd":0}]}`)
	}))
	t.Cleanup(server.Close)

	chain := newFakeChain()
	e := newZoraExtractor(t, chain, ZoraConfig{PremintApiUrl: server.URL})

	descriptors, err := e.DiscoverPremints(context.Background(), testCollection)
	require.NoError(t, err)
	require.Len(t, descriptors, 1)

	d := descriptors[0]
	assert.Equal(t, big.NewInt(12), d.TokenId)
	assert.Equal(t, big.NewInt(777000), d.Price)
	assert.Equal(t, entity.MintStatusOpen, d.Status)
	assert.Equal(t, infoValuePremint, d.Details.Info[infoKeyStrategy])
}

func TestZoraPremintsDisabledWithoutApi(t *testing.T) {
	e := newZoraExtractor(t, newFakeChain(), ZoraConfig{})
	descriptors, err := e.DiscoverPremints(context.Background(), testCollection)
	require.NoError(t, err)
	assert.Empty(t, descriptors)
}
