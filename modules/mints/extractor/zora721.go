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

type zora721SaleDetails struct {
	publicSaleActive          bool
	presaleActive             bool
	publicSalePrice           *big.Int
	publicSaleStart           uint64
	publicSaleEnd             uint64
	presaleStart              uint64
	presaleEnd                uint64
	presaleMerkleRoot         common.Hash
	maxSalePurchasePerAddress *big.Int
	totalMinted               *big.Int
	maxSupply                 *big.Int
}

func (e *ZoraExtractor) extract721(ctx context.Context, collection common.Address) ([]*entity.MintDescriptor, error) {
	results, err := evmclient.Call(ctx, e.client, collection, zora721DropAbi, "saleDetails")
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		logger.DebugContext(ctx, "No Zora drop sale details found",
			slogx.Stringer("collection", collection),
			slogx.Error(err),
		)
		return nil, nil
	}
	sale := &zora721SaleDetails{
		publicSaleActive:          results[0].(bool),
		presaleActive:             results[1].(bool),
		publicSalePrice:           results[2].(*big.Int),
		publicSaleStart:           results[3].(uint64),
		publicSaleEnd:             results[4].(uint64),
		presaleStart:              results[5].(uint64),
		presaleEnd:                results[6].(uint64),
		presaleMerkleRoot:         common.Hash(results[7].([32]byte)),
		maxSalePurchasePerAddress: results[8].(*big.Int),
		totalMinted:               results[9].(*big.Int),
		maxSupply:                 results[10].(*big.Int),
	}

	fee, rewards := e.mintFee721(ctx, collection, sale.publicSalePrice)
	now := time.Now()

	descriptors := []*entity.MintDescriptor{e.public721Descriptor(collection, sale, fee, rewards, now)}
	if sale.presaleMerkleRoot != (common.Hash{}) {
		presale, err := e.presale721Descriptor(ctx, collection, sale, fee, now)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			logger.WarnContext(ctx, "Skipping Zora drop presale stage",
				slogx.Stringer("collection", collection),
				slogx.Error(err),
			)
		} else if presale != nil {
			descriptors = append(descriptors, presale)
		}
	}
	return descriptors, nil
}

// mintFee721 probes the drop's protocol fee for a single token. Newer drops
// expose reward accounting (and the mintWithRewards entrypoint), older ones
// only the flat zora fee, the oldest neither.
func (e *ZoraExtractor) mintFee721(ctx context.Context, collection common.Address, price *big.Int) (fee *big.Int, rewards bool) {
	one := big.NewInt(1)
	if results, err := evmclient.Call(ctx, e.client, collection, zora721RewardsV2Abi, "computeTotalReward", price, one); err == nil {
		return results[0].(*big.Int), true
	}
	if results, err := evmclient.Call(ctx, e.client, collection, zora721DropAbi, "computeTotalReward", one); err == nil {
		return results[0].(*big.Int), true
	}
	if results, err := evmclient.Call(ctx, e.client, collection, zora721DropAbi, "zoraFeeForAmount", one); err == nil {
		return results[1].(*big.Int), false
	}
	return big.NewInt(0), false
}

func (e *ZoraExtractor) public721Descriptor(collection common.Address, sale *zora721SaleDetails, fee *big.Int, rewards bool, now time.Time) *entity.MintDescriptor {
	var data entity.TxTemplateData
	if rewards {
		data = entity.TxTemplateData{
			Signature: selectorHex(zora721DropAbi, "mintWithRewards"),
			Params: []entity.TxParam{
				slot(entity.ParamKindRecipient, "address"),
				slot(entity.ParamKindQuantity, "uint256"),
				slot(entity.ParamKindComment, "string"),
				slot(entity.ParamKindReferrer, "address"),
			},
		}
	} else {
		data = entity.TxTemplateData{
			Signature: selectorHex(zora721DropAbi, "purchase"),
			Params: []entity.TxParam{
				slot(entity.ParamKindQuantity, "uint256"),
			},
		}
	}

	d := e.base721Descriptor(collection, sale, sale.publicSalePrice, fee, entity.MintStagePublicSale, entity.MintKindPublic, now)
	d.StartTime = timeFromUnixU64(sale.publicSaleStart)
	d.EndTime = timeFromUnixU64(sale.publicSaleEnd)
	d.Details = entity.MintDetails{Tx: entity.TxTemplate{To: collection, Data: data}}
	d.Status, d.StatusReason = Classify(d, now, Counters{
		SaleDisabled: !sale.publicSaleActive,
		Minted:       sale.totalMinted,
	})
	return d
}

func (e *ZoraExtractor) presale721Descriptor(ctx context.Context, collection common.Address, sale *zora721SaleDetails, fee *big.Int, now time.Time) (*entity.MintDescriptor, error) {
	items, err := e.fetchAllowlist(ctx, sale.presaleMerkleRoot, fee)
	if err != nil {
		return nil, err
	}
	entryPrice, entryMax, ok := uniformEntryValues(items)
	if !ok {
		logger.WarnContext(ctx, "Zora presale allowlist has non-uniform entry terms, stage not templatable",
			slogx.Stringer("collection", collection),
			slogx.Stringer("root", sale.presaleMerkleRoot),
		)
		return nil, nil
	}

	root := sale.presaleMerkleRoot
	d := e.base721Descriptor(collection, sale, entryPrice, fee, entity.MintStagePresale, entity.MintKindAllowlist, now)
	d.StartTime = timeFromUnixU64(sale.presaleStart)
	d.EndTime = timeFromUnixU64(sale.presaleEnd)
	d.AllowlistId = &root
	d.MaxMintsPerWallet = capOrNil(entryMax)
	d.Details = entity.MintDetails{
		Tx: entity.TxTemplate{
			To: collection,
			Data: entity.TxTemplateData{
				Signature: selectorHex(zora721DropAbi, "purchasePresale"),
				Params: []entity.TxParam{
					slot(entity.ParamKindQuantity, "uint256"),
					litUint256(entryMax),
					litUint256(entryPrice),
					slot(entity.ParamKindAllowlist, "bytes32[]"),
				},
			},
		},
	}
	d.Status, d.StatusReason = Classify(d, now, Counters{
		SaleDisabled: !sale.presaleActive,
		Minted:       sale.totalMinted,
	})
	return d, nil
}

func (e *ZoraExtractor) base721Descriptor(collection common.Address, sale *zora721SaleDetails, basePrice, fee *big.Int, stage entity.MintStage, kind entity.MintKind, now time.Time) *entity.MintDescriptor {
	price := new(big.Int).Add(basePrice, fee)
	return &entity.MintDescriptor{
		Collection:        collection,
		Contract:          collection,
		Stage:             stage,
		Kind:              kind,
		Standard:          entity.MintStandardZora,
		Currency:          entity.NativeCurrency,
		Price:             price,
		CurrencyDecimals:  decimals.NativeDecimals,
		PriceDecimal:      decimals.FromBaseUnits(price, decimals.NativeDecimals),
		MaxMintsPerWallet: capOrNil(sale.maxSalePurchasePerAddress),
		MaxSupply:         capOrNil(sale.maxSupply),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}
