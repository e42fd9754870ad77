package extractor

import (
	"context"
	"math/big"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/minterscan/mint-indexer/modules/mints/allowlist"
	"github.com/minterscan/mint-indexer/modules/mints/entity"
	"github.com/minterscan/mint-indexer/pkg/evmclient"
	"github.com/minterscan/mint-indexer/pkg/httpclient"
)

// Zora mainnet deployments. The 1155 sale strategies are shared singleton
// contracts; collections reference them as approved minters.
var (
	ZoraMainnetFixedPriceMinter = common.HexToAddress("0x04E2516A2c207E84a1839755675dfd8eF6302F0a")
	ZoraMainnetMerkleMinter     = common.HexToAddress("0xf48172CA3B6068B20eE4917Eb27b5472f1f272C7")
	ZoraMainnetErc20Minter      = common.HexToAddress("0x777777E8850d8D6d98De2B5f64fae401F96eFF31")
)

const DefaultZoraAllowlistApiUrl = "https://allowlist.zora.co"

type ZoraConfig struct {
	FixedPriceMinter common.Address `mapstructure:"fixed_price_minter"`
	MerkleMinter     common.Address `mapstructure:"merkle_minter"`
	Erc20Minter      common.Address `mapstructure:"erc20_minter"`

	// AllowlistApiUrl serves merkle allowlist contents by root.
	AllowlistApiUrl string `mapstructure:"allowlist_api_url"`

	// PremintApiUrl serves offline-signed mint configs not yet on-chain.
	// Premint discovery is disabled when empty.
	PremintApiUrl string `mapstructure:"premint_api_url"`
}

// ZoraExtractor discovers sale stages on Zora creator contracts. 721 drops
// carry their sale config on the collection itself; 1155 collections delegate
// per-token sale config to shared minter strategy contracts.
type ZoraExtractor struct {
	client     evmclient.Contract
	allowlists *allowlist.Store

	allowlistApi *httpclient.Client
	premintApi   *httpclient.Client

	fixedPriceMinter common.Address
	merkleMinter     common.Address
	erc20Minter      common.Address
}

func NewZoraExtractor(client evmclient.Contract, allowlists *allowlist.Store, conf ZoraConfig) (*ZoraExtractor, error) {
	allowlistApi, err := httpclient.New(utils.Default(conf.AllowlistApiUrl, DefaultZoraAllowlistApiUrl))
	if err != nil {
		return nil, errors.Wrap(err, "invalid zora allowlist api url")
	}
	var premintApi *httpclient.Client
	if conf.PremintApiUrl != "" {
		premintApi, err = httpclient.New(conf.PremintApiUrl)
		if err != nil {
			return nil, errors.Wrap(err, "invalid zora premint api url")
		}
	}
	return &ZoraExtractor{
		client:           client,
		allowlists:       allowlists,
		allowlistApi:     allowlistApi,
		premintApi:       premintApi,
		fixedPriceMinter: utils.Default(conf.FixedPriceMinter, ZoraMainnetFixedPriceMinter),
		merkleMinter:     utils.Default(conf.MerkleMinter, ZoraMainnetMerkleMinter),
		erc20Minter:      utils.Default(conf.Erc20Minter, ZoraMainnetErc20Minter),
	}, nil
}

func (e *ZoraExtractor) Standard() entity.MintStandard {
	return entity.MintStandardZora
}

func (e *ZoraExtractor) ExtractByCollection(ctx context.Context, collection common.Address, tokenId *big.Int) ([]*entity.MintDescriptor, error) {
	if DetectTokenStandard(ctx, e.client, collection).IsMultiToken() {
		if tokenId == nil {
			// 1155 sale config is token-scoped; nothing to extract without a token
			return nil, nil
		}
		return e.extract1155(ctx, collection, tokenId)
	}
	if tokenId != nil {
		return nil, nil
	}
	return e.extract721(ctx, collection)
}

// ExtractByTx recognizes Zora mint calldata, recovers the token id and minter
// strategy the by-collection path cannot guess, then re-extracts live state.
// multicall batches are unwrapped and each inner call handled independently.
func (e *ZoraExtractor) ExtractByTx(ctx context.Context, collection common.Address, tx entity.Transaction) ([]*entity.MintDescriptor, error) {
	selector, ok := tx.Selector()
	if !ok {
		return nil, nil
	}

	if method, err := zora1155Abi.MethodById(selector[:]); err == nil {
		switch method.Name {
		case "multicall":
			return e.extractFromMulticall(ctx, tx, method)
		case "mint", "mintWithRewards":
			args, err := method.Inputs.Unpack(tx.Data[4:])
			if err != nil {
				return nil, nil
			}
			return e.extract1155(ctx, tx.To, args[1].(*big.Int))
		}
	}

	if method, err := zoraERC20MinterAbi.MethodById(selector[:]); err == nil && method.Name == "mint" {
		args, err := method.Inputs.Unpack(tx.Data[4:])
		if err != nil {
			return nil, nil
		}
		return e.extract1155(ctx, args[2].(common.Address), args[3].(*big.Int))
	}

	if method, err := zora721DropAbi.MethodById(selector[:]); err == nil {
		switch method.Name {
		case "purchase", "mintWithRewards", "purchasePresale", "purchasePresaleWithRewards":
			return e.extract721(ctx, tx.To)
		}
	}
	return nil, nil
}

func (e *ZoraExtractor) extractFromMulticall(ctx context.Context, tx entity.Transaction, multicall *abi.Method) ([]*entity.MintDescriptor, error) {
	args, err := multicall.Inputs.Unpack(tx.Data[4:])
	if err != nil {
		return nil, nil
	}
	inner, ok := args[0].([][]byte)
	if !ok {
		return nil, nil
	}

	var out []*entity.MintDescriptor
	seen := make(map[string]struct{})
	for _, calldata := range inner {
		descriptors, err := e.ExtractByTx(ctx, tx.To, entity.Transaction{Hash: tx.Hash, To: tx.To, Data: calldata})
		if err != nil {
			return nil, err
		}
		for _, d := range descriptors {
			if _, dup := seen[d.IdentityKey()]; dup {
				continue
			}
			seen[d.IdentityKey()] = struct{}{}
			out = append(out, d)
		}
	}
	return out, nil
}
