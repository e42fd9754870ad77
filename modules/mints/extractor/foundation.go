package extractor

import (
	"context"
	"math/big"
	"time"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/minterscan/mint-indexer/modules/mints/allowlist"
	"github.com/minterscan/mint-indexer/modules/mints/entity"
	"github.com/minterscan/mint-indexer/pkg/decimals"
	"github.com/minterscan/mint-indexer/pkg/evmclient"
	"github.com/minterscan/mint-indexer/pkg/logger"
	"github.com/minterscan/mint-indexer/pkg/logger/slogx"
)

// FoundationMainnetMarket is the canonical fixed-price sale market proxy on
// Ethereum mainnet. All Foundation drops sell through this single contract.
var FoundationMainnetMarket = common.HexToAddress("0x62037b26fff91929655aa3a060f327b47d1e2b3e")

// defaultSaleEventScanBlocks bounds the CreateFixedPriceSale log scan. Sale
// creation happens once per drop, shortly before minting opens, so a generous
// fixed window is cheaper than tracking creation block numbers.
const defaultSaleEventScanBlocks = 2_000_000

type FoundationConfig struct {
	Market common.Address `mapstructure:"market"`
	// EventScanBlocks is how far back to scan for the sale creation event that
	// carries the allowlist merkle root and uri.
	EventScanBlocks uint64 `mapstructure:"event_scan_blocks"`
}

// FoundationExtractor discovers fixed-price sale stages on the Foundation
// market. Sales are collection-scoped: the market keys its sale config by nft
// contract, and every mint goes through the market rather than the collection.
type FoundationExtractor struct {
	client     evmclient.Contract
	allowlists *allowlist.Store
	fetcher    AddressListFetcher
	market     common.Address
	scanBlocks uint64
}

func NewFoundationExtractor(client evmclient.Contract, allowlists *allowlist.Store, fetcher AddressListFetcher, conf FoundationConfig) *FoundationExtractor {
	return &FoundationExtractor{
		client:     client,
		allowlists: allowlists,
		fetcher:    fetcher,
		market:     utils.Default(conf.Market, FoundationMainnetMarket),
		scanBlocks: utils.Default(conf.EventScanBlocks, uint64(defaultSaleEventScanBlocks)),
	}
}

func (e *FoundationExtractor) Standard() entity.MintStandard {
	return entity.MintStandardFoundation
}

type foundationSale struct {
	seller          common.Address
	price           *big.Int
	limitPerAccount *big.Int
	available       *big.Int
	marketCanMint   bool
	gaStart         *big.Int
	eaStart         *big.Int
	mintFee         *big.Int
	v2              bool
}

func (e *FoundationExtractor) getSale(ctx context.Context, collection common.Address) (*foundationSale, error) {
	// The V2 accessor only exists on the upgraded market and additionally
	// returns the separate mint fee. Fall back to V1 where it reverts.
	results, err := evmclient.Call(ctx, e.client, e.market, foundationMarketAbi, "getFixedPriceSaleV2", collection)
	if err == nil {
		sale := unpackFoundationSale(results)
		sale.mintFee = results[7].(*big.Int)
		sale.v2 = true
		return sale, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	results, err = evmclient.Call(ctx, e.client, e.market, foundationMarketAbi, "getFixedPriceSale", collection)
	if err != nil {
		return nil, errors.Wrapf(err, "no fixed price sale readable for %s", collection)
	}
	sale := unpackFoundationSale(results)
	sale.mintFee = big.NewInt(0)
	return sale, nil
}

func unpackFoundationSale(results []any) *foundationSale {
	return &foundationSale{
		seller:          results[0].(common.Address),
		price:           results[1].(*big.Int),
		limitPerAccount: results[2].(*big.Int),
		available:       results[3].(*big.Int),
		marketCanMint:   results[4].(bool),
		gaStart:         results[5].(*big.Int),
		eaStart:         results[6].(*big.Int),
	}
}

func (e *FoundationExtractor) ExtractByCollection(ctx context.Context, collection common.Address, tokenId *big.Int) ([]*entity.MintDescriptor, error) {
	if tokenId != nil {
		// fixed-price sales are collection-scoped
		return nil, nil
	}
	sale, err := e.getSale(ctx, collection)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		logger.DebugContext(ctx, "No Foundation fixed price sale found",
			slogx.Stringer("collection", collection),
			slogx.Error(err),
		)
		return nil, nil
	}
	if sale.seller == (common.Address{}) {
		return nil, nil
	}

	now := time.Now()
	descriptors := []*entity.MintDescriptor{e.publicDescriptor(collection, sale, now)}

	if sale.eaStart.Sign() > 0 && (sale.gaStart.Sign() == 0 || sale.eaStart.Cmp(sale.gaStart) < 0) {
		earlyAccess, err := e.earlyAccessDescriptor(ctx, collection, sale, now)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			logger.WarnContext(ctx, "Skipping Foundation early access stage",
				slogx.Stringer("collection", collection),
				slogx.Error(err),
			)
		} else if earlyAccess != nil {
			descriptors = append(descriptors, earlyAccess)
		}
	}
	return descriptors, nil
}

func (e *FoundationExtractor) publicDescriptor(collection common.Address, sale *foundationSale, now time.Time) *entity.MintDescriptor {
	var params []entity.TxParam
	var signature string
	if sale.v2 {
		signature = selectorHex(foundationMarketAbi, "mintFromFixedPriceSaleV2")
		params = []entity.TxParam{
			litAddress(collection),
			slot(entity.ParamKindQuantity, "uint16"),
			slot(entity.ParamKindReferrer, "address"),
			slot(entity.ParamKindRecipient, "address"),
		}
	} else {
		signature = selectorHex(foundationMarketAbi, "mintFromFixedPriceSale")
		params = []entity.TxParam{
			litAddress(collection),
			slot(entity.ParamKindQuantity, "uint16"),
			slot(entity.ParamKindReferrer, "address"),
		}
	}

	d := e.baseDescriptor(collection, sale, entity.MintStagePublicSale, entity.MintKindPublic, now)
	d.StartTime = timeFromUnix(sale.gaStart)
	d.Details = entity.MintDetails{
		Tx: entity.TxTemplate{
			To:   e.market,
			Data: entity.TxTemplateData{Signature: signature, Params: params},
		},
	}
	d.Status, d.StatusReason = e.classify(d, sale, now)
	return d
}

func (e *FoundationExtractor) earlyAccessDescriptor(ctx context.Context, collection common.Address, sale *foundationSale, now time.Time) (*entity.MintDescriptor, error) {
	root, uri, err := e.findSaleCreationEvent(ctx, collection)
	if err != nil {
		return nil, err
	}
	if root == (common.Hash{}) {
		// early access without an allowlist root is seller-only access,
		// not fillable by third parties
		return nil, nil
	}
	if err := e.ensureAllowlist(ctx, root, uri); err != nil {
		return nil, err
	}

	d := e.baseDescriptor(collection, sale, entity.MintStagePresale, entity.MintKindAllowlist, now)
	d.StartTime = timeFromUnix(sale.eaStart)
	d.EndTime = timeFromUnix(sale.gaStart)
	d.AllowlistId = &root
	d.Details = entity.MintDetails{
		Tx: entity.TxTemplate{
			To: e.market,
			Data: entity.TxTemplateData{
				Signature: selectorHex(foundationMarketAbi, "mintFromFixedPriceSaleWithEarlyAccessAllowlist"),
				Params: []entity.TxParam{
					litAddress(collection),
					slot(entity.ParamKindQuantity, "uint256"),
					slot(entity.ParamKindReferrer, "address"),
					slot(entity.ParamKindAllowlist, "bytes32[]"),
				},
			},
		},
	}
	d.Status, d.StatusReason = e.classify(d, sale, now)
	return d, nil
}

func (e *FoundationExtractor) baseDescriptor(collection common.Address, sale *foundationSale, stage entity.MintStage, kind entity.MintKind, now time.Time) *entity.MintDescriptor {
	price := new(big.Int).Add(sale.price, sale.mintFee)
	return &entity.MintDescriptor{
		Collection:       collection,
		Contract:         e.market,
		Stage:            stage,
		Kind:             kind,
		Standard:         entity.MintStandardFoundation,
		Currency:         entity.NativeCurrency,
		Price:            price,
		CurrencyDecimals: decimals.NativeDecimals,
		PriceDecimal:     decimals.FromBaseUnits(price, decimals.NativeDecimals),
		// the market exposes remaining supply, not a total cap
		MaxSupply:         new(big.Int).Set(sale.available),
		MaxMintsPerWallet: capOrNil(sale.limitPerAccount),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// classify feeds the market's remaining-supply counter into the generic
// classifier: remaining supply is MaxSupply with zero minted, so a sold-out
// sale trips the supply rule.
func (e *FoundationExtractor) classify(d *entity.MintDescriptor, sale *foundationSale, now time.Time) (entity.MintStatus, string) {
	return Classify(d, now, Counters{
		SaleDisabled: !sale.marketCanMint,
		Minted:       big.NewInt(0),
	})
}

// findSaleCreationEvent scans market logs for the latest CreateFixedPriceSale
// emitted for collection and returns its merkle root and allowlist uri.
func (e *FoundationExtractor) findSaleCreationEvent(ctx context.Context, collection common.Address) (common.Hash, string, error) {
	head, err := e.client.BlockNumber(ctx)
	if err != nil {
		return common.Hash{}, "", errors.Wrap(err, "can't get chain head")
	}
	fromBlock := uint64(0)
	if head > e.scanBlocks {
		fromBlock = head - e.scanBlocks
	}

	event := foundationMarketAbi.Events["CreateFixedPriceSale"]
	logs, err := e.client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		Addresses: []common.Address{e.market},
		Topics: [][]common.Hash{
			{event.ID},
			{common.BytesToHash(collection.Bytes())},
		},
	})
	if err != nil {
		return common.Hash{}, "", errors.Wrapf(err, "can't filter sale creation logs for %s", collection)
	}
	if len(logs) == 0 {
		return common.Hash{}, "", errors.Errorf("no sale creation event found for %s within %d blocks", collection, e.scanBlocks)
	}

	// the sale can be recreated; only the latest config is live
	last := logs[len(logs)-1]
	values, err := event.Inputs.NonIndexed().Unpack(last.Data)
	if err != nil {
		return common.Hash{}, "", errors.Wrap(err, "can't unpack sale creation event")
	}
	root := common.Hash(values[4].([32]byte))
	uri := values[5].(string)
	return root, uri, nil
}

// ensureAllowlist makes the allowlist behind root available locally, fetching
// and verifying it against the on-chain root on first sight.
func (e *FoundationExtractor) ensureAllowlist(ctx context.Context, root common.Hash, uri string) error {
	exists, err := e.allowlists.Exists(ctx, root)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	addresses, err := e.fetcher.FetchAddresses(ctx, uri)
	if err != nil {
		return err
	}
	items := make([]*entity.AllowlistItem, 0, len(addresses))
	for _, addr := range addresses {
		items = append(items, &entity.AllowlistItem{Address: addr})
	}
	return e.allowlists.Create(ctx, root, items)
}

// ExtractByTx recognizes calldata of the market's mint entrypoints, recovers
// the nft contract argument and re-extracts that collection's live state.
func (e *FoundationExtractor) ExtractByTx(ctx context.Context, collection common.Address, tx entity.Transaction) ([]*entity.MintDescriptor, error) {
	selector, ok := tx.Selector()
	if !ok || tx.To != e.market {
		return nil, nil
	}
	method, err := foundationMarketAbi.MethodById(selector[:])
	if err != nil {
		return nil, nil
	}
	switch method.Name {
	case "mintFromFixedPriceSale", "mintFromFixedPriceSaleV2", "mintFromFixedPriceSaleWithEarlyAccessAllowlist":
	default:
		return nil, nil
	}

	args, err := method.Inputs.Unpack(tx.Data[4:])
	if err != nil {
		return nil, nil
	}
	// trust calldata over the caller's hint; the first argument is always
	// the nft contract
	nftContract := args[0].(common.Address)
	return e.ExtractByCollection(ctx, nftContract, nil)
}
