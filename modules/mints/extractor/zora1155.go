package extractor

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/minterscan/mint-indexer/modules/mints/entity"
	"github.com/minterscan/mint-indexer/pkg/decimals"
	"github.com/minterscan/mint-indexer/pkg/evmclient"
	"github.com/minterscan/mint-indexer/pkg/logger"
	"github.com/minterscan/mint-indexer/pkg/logger/slogx"
)

// info keys recorded on 1155 descriptors so the sale strategy can be
// reconstructed without re-probing every minter.
const (
	infoKeyMinter   = "minter"
	infoKeyStrategy = "strategy"

	strategyFixedPrice = "fixed-price"
	strategyMerkle     = "merkle"
	strategyErc20      = "erc20"
)

// extract1155 probes each configured sale strategy for the token's sale
// config. A token can have at most one live config per strategy.
func (e *ZoraExtractor) extract1155(ctx context.Context, collection common.Address, tokenId *big.Int) ([]*entity.MintDescriptor, error) {
	mintFee := e.mintFee1155(ctx, collection)
	now := time.Now()

	var descriptors []*entity.MintDescriptor
	appendStage := func(d *entity.MintDescriptor, err error, strategy string) error {
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			logger.WarnContext(ctx, "Skipping Zora 1155 sale stage",
				slogx.Stringer("collection", collection),
				slogx.Stringer("token_id", tokenId),
				slogx.String("strategy", strategy),
				slogx.Error(err),
			)
			return nil
		}
		if d != nil {
			descriptors = append(descriptors, d)
		}
		return nil
	}

	d, err := e.fixedPrice1155Descriptor(ctx, collection, tokenId, mintFee, now)
	if err := appendStage(d, err, strategyFixedPrice); err != nil {
		return nil, err
	}
	d, err = e.merkle1155Descriptor(ctx, collection, tokenId, mintFee, now)
	if err := appendStage(d, err, strategyMerkle); err != nil {
		return nil, err
	}
	d, err = e.erc20Minter1155Descriptor(ctx, collection, tokenId, now)
	if err := appendStage(d, err, strategyErc20); err != nil {
		return nil, err
	}
	return descriptors, nil
}

// mintFee1155 reads the collection's flat per-token protocol fee. Missing on
// some deployments, in which case minting is fee-free.
func (e *ZoraExtractor) mintFee1155(ctx context.Context, collection common.Address) *big.Int {
	results, err := evmclient.Call(ctx, e.client, collection, zora1155Abi, "mintFee")
	if err != nil {
		return big.NewInt(0)
	}
	return results[0].(*big.Int)
}

func (e *ZoraExtractor) fixedPrice1155Descriptor(ctx context.Context, collection common.Address, tokenId *big.Int, mintFee *big.Int, now time.Time) (*entity.MintDescriptor, error) {
	results, err := evmclient.Call(ctx, e.client, e.fixedPriceMinter, zoraFixedPriceMinterAbi, "sale", collection, tokenId)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, nil
	}
	saleStart := results[0].(uint64)
	saleEnd := results[1].(uint64)
	maxPerAddress := results[2].(uint64)
	pricePerToken := results[3].(*big.Int)
	if saleStart == 0 && saleEnd == 0 && pricePerToken.Sign() == 0 {
		// zero value struct, no sale configured on this strategy
		return nil, nil
	}

	d := e.base1155Descriptor(collection, tokenId, entity.MintStagePublicSale, entity.MintKindPublic, now)
	d.Price = new(big.Int).Add(pricePerToken, mintFee)
	d.PriceDecimal = decimals.FromBaseUnits(d.Price, decimals.NativeDecimals)
	d.MaxMintsPerWallet = capOrNilU64(maxPerAddress)
	d.StartTime = timeFromUnixU64(saleStart)
	d.EndTime = timeFromUnixU64(saleEnd)
	d.Details = entity.MintDetails{
		Tx: entity.TxTemplate{
			To: collection,
			Data: entity.TxTemplateData{
				Signature: selectorHex(zora1155Abi, "mintWithRewards"),
				Params: []entity.TxParam{
					litAddress(e.fixedPriceMinter),
					litUint256(tokenId),
					slot(entity.ParamKindQuantity, "uint256"),
					{
						Kind:    entity.ParamKindCustom,
						AbiType: "bytes",
						Params: []entity.TxParam{
							slot(entity.ParamKindRecipient, "address"),
						},
					},
					slot(entity.ParamKindReferrer, "address"),
				},
			},
		},
		Info: map[string]string{
			infoKeyMinter:   e.fixedPriceMinter.Hex(),
			infoKeyStrategy: strategyFixedPrice,
		},
	}
	d.Status, d.StatusReason = Classify(d, now, Counters{})
	return d, nil
}

func (e *ZoraExtractor) merkle1155Descriptor(ctx context.Context, collection common.Address, tokenId *big.Int, mintFee *big.Int, now time.Time) (*entity.MintDescriptor, error) {
	results, err := evmclient.Call(ctx, e.client, e.merkleMinter, zoraMerkleMinterAbi, "sale", collection, tokenId)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, nil
	}
	presaleStart := results[0].(uint64)
	presaleEnd := results[1].(uint64)
	root := common.Hash(results[3].([32]byte))
	if root == (common.Hash{}) {
		return nil, nil
	}

	items, err := e.fetchAllowlist(ctx, root, mintFee)
	if err != nil {
		return nil, err
	}
	entryPrice, entryMax, ok := uniformEntryValues(items)
	if !ok {
		logger.WarnContext(ctx, "Zora 1155 presale allowlist has non-uniform entry terms, stage not templatable",
			slogx.Stringer("collection", collection),
			slogx.Stringer("root", root),
		)
		return nil, nil
	}

	d := e.base1155Descriptor(collection, tokenId, entity.MintStagePresale, entity.MintKindAllowlist, now)
	d.Price = new(big.Int).Add(entryPrice, mintFee)
	d.PriceDecimal = decimals.FromBaseUnits(d.Price, decimals.NativeDecimals)
	d.MaxMintsPerWallet = capOrNil(entryMax)
	d.StartTime = timeFromUnixU64(presaleStart)
	d.EndTime = timeFromUnixU64(presaleEnd)
	d.AllowlistId = &root
	d.Details = entity.MintDetails{
		Tx: entity.TxTemplate{
			To: collection,
			Data: entity.TxTemplateData{
				Signature: selectorHex(zora1155Abi, "mintWithRewards"),
				Params: []entity.TxParam{
					litAddress(e.merkleMinter),
					litUint256(tokenId),
					slot(entity.ParamKindQuantity, "uint256"),
					{
						Kind:    entity.ParamKindCustom,
						AbiType: "bytes",
						Params: []entity.TxParam{
							slot(entity.ParamKindRecipient, "address"),
							litUint256(entryMax),
							litUint256(entryPrice),
							slot(entity.ParamKindAllowlist, "bytes32[]"),
						},
					},
					slot(entity.ParamKindReferrer, "address"),
				},
			},
		},
		Info: map[string]string{
			infoKeyMinter:   e.merkleMinter.Hex(),
			infoKeyStrategy: strategyMerkle,
		},
	}
	d.Status, d.StatusReason = Classify(d, now, Counters{})
	return d, nil
}

// erc20Minter1155Descriptor handles the erc20-priced strategy. The mint call
// goes to the minter contract itself and no native value is attached, the
// minter pulls the erc20 via allowance instead.
func (e *ZoraExtractor) erc20Minter1155Descriptor(ctx context.Context, collection common.Address, tokenId *big.Int, now time.Time) (*entity.MintDescriptor, error) {
	results, err := evmclient.Call(ctx, e.client, e.erc20Minter, zoraERC20MinterAbi, "sale", collection, tokenId)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, nil
	}
	saleStart := results[0].(uint64)
	saleEnd := results[1].(uint64)
	maxPerAddress := results[2].(uint64)
	pricePerToken := results[3].(*big.Int)
	currency := results[5].(common.Address)
	if currency == (common.Address{}) {
		return nil, nil
	}

	currencyDecimals := e.erc20Decimals(ctx, currency)

	d := e.base1155Descriptor(collection, tokenId, entity.MintStagePublicSale, entity.MintKindPublic, now)
	d.Currency = currency
	d.Price = new(big.Int).Set(pricePerToken)
	d.CurrencyDecimals = currencyDecimals
	d.PriceDecimal = decimals.FromBaseUnits(d.Price, currencyDecimals)
	d.MaxMintsPerWallet = capOrNilU64(maxPerAddress)
	d.StartTime = timeFromUnixU64(saleStart)
	d.EndTime = timeFromUnixU64(saleEnd)
	d.Details = entity.MintDetails{
		Tx: entity.TxTemplate{
			To: e.erc20Minter,
			Data: entity.TxTemplateData{
				Signature: selectorHex(zoraERC20MinterAbi, "mint"),
				Params: []entity.TxParam{
					slot(entity.ParamKindRecipient, "address"),
					slot(entity.ParamKindQuantity, "uint256"),
					litAddress(collection),
					litUint256(tokenId),
					slot(entity.ParamKindPrice, "uint256"),
					litAddress(currency),
					slot(entity.ParamKindReferrer, "address"),
					slot(entity.ParamKindComment, "string"),
				},
			},
		},
		Info: map[string]string{
			infoKeyMinter:   e.erc20Minter.Hex(),
			infoKeyStrategy: strategyErc20,
		},
	}
	d.Status, d.StatusReason = Classify(d, now, Counters{})
	return d, nil
}

func (e *ZoraExtractor) erc20Decimals(ctx context.Context, token common.Address) int32 {
	results, err := evmclient.Call(ctx, e.client, token, erc20Abi, "decimals")
	if err != nil {
		return decimals.NativeDecimals
	}
	return int32(results[0].(uint8))
}

func (e *ZoraExtractor) base1155Descriptor(collection common.Address, tokenId *big.Int, stage entity.MintStage, kind entity.MintKind, now time.Time) *entity.MintDescriptor {
	return &entity.MintDescriptor{
		Collection:       collection,
		Contract:         collection,
		TokenId:          new(big.Int).Set(tokenId),
		Stage:            stage,
		Kind:             kind,
		Standard:         entity.MintStandardZora,
		Currency:         entity.NativeCurrency,
		CurrencyDecimals: decimals.NativeDecimals,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}
