package extractor

import (
	"strings"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ERC165 interface identifiers, per EIP-721 and EIP-1155.
var (
	erc721InterfaceId  = [4]byte{0x80, 0xac, 0x58, 0xcd}
	erc1155InterfaceId = [4]byte{0xd9, 0xb6, 0x7a, 0x26}
)

func mustAbi(definition string) abi.ABI {
	return utils.Must(abi.JSON(strings.NewReader(definition)))
}

var erc165Abi = mustAbi(`[
	{"type":"function","name":"supportsInterface","stateMutability":"view",
		"inputs":[{"name":"interfaceId","type":"bytes4"}],
		"outputs":[{"name":"","type":"bool"}]}
]`)

var erc20Abi = mustAbi(`[
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]}
]`)

// Foundation fixed-price sale market. getFixedPriceSaleV2 exists only on the
// upgraded market and additionally exposes the per-nft mint fee.
var foundationMarketAbi = mustAbi(`[
	{"type":"function","name":"getFixedPriceSale","stateMutability":"view",
		"inputs":[{"name":"nftContract","type":"address"}],
		"outputs":[
			{"name":"seller","type":"address"},
			{"name":"price","type":"uint256"},
			{"name":"limitPerAccount","type":"uint256"},
			{"name":"numberOfTokensAvailableToMint","type":"uint256"},
			{"name":"marketCanMint","type":"bool"},
			{"name":"generalAvailabilityStartTime","type":"uint256"},
			{"name":"earlyAccessStartTime","type":"uint256"}]},
	{"type":"function","name":"getFixedPriceSaleV2","stateMutability":"view",
		"inputs":[{"name":"nftContract","type":"address"}],
		"outputs":[
			{"name":"seller","type":"address"},
			{"name":"price","type":"uint256"},
			{"name":"limitPerAccount","type":"uint256"},
			{"name":"numberOfTokensAvailableToMint","type":"uint256"},
			{"name":"marketCanMint","type":"bool"},
			{"name":"generalAvailabilityStartTime","type":"uint256"},
			{"name":"earlyAccessStartTime","type":"uint256"},
			{"name":"mintFeePerNftInWei","type":"uint256"}]},
	{"type":"function","name":"mintFromFixedPriceSale","stateMutability":"payable",
		"inputs":[
			{"name":"nftContract","type":"address"},
			{"name":"count","type":"uint16"},
			{"name":"buyReferrer","type":"address"}],
		"outputs":[{"name":"firstTokenId","type":"uint256"}]},
	{"type":"function","name":"mintFromFixedPriceSaleV2","stateMutability":"payable",
		"inputs":[
			{"name":"nftContract","type":"address"},
			{"name":"count","type":"uint16"},
			{"name":"buyReferrer","type":"address"},
			{"name":"payee","type":"address"}],
		"outputs":[{"name":"firstTokenId","type":"uint256"}]},
	{"type":"function","name":"mintFromFixedPriceSaleWithEarlyAccessAllowlist","stateMutability":"payable",
		"inputs":[
			{"name":"nftContract","type":"address"},
			{"name":"count","type":"uint256"},
			{"name":"buyReferrer","type":"address"},
			{"name":"proof","type":"bytes32[]"}],
		"outputs":[{"name":"firstTokenId","type":"uint256"}]},
	{"type":"event","name":"CreateFixedPriceSale","anonymous":false,
		"inputs":[
			{"name":"nftContract","type":"address","indexed":true},
			{"name":"seller","type":"address","indexed":true},
			{"name":"price","type":"uint256","indexed":false},
			{"name":"limitPerAccount","type":"uint256","indexed":false},
			{"name":"generalAvailabilityStartTime","type":"uint256","indexed":false},
			{"name":"earlyAccessStartTime","type":"uint256","indexed":false},
			{"name":"merkleRoot","type":"bytes32","indexed":false},
			{"name":"merkleTreeUri","type":"string","indexed":false}]}
]`)

// Zora ERC721 drop contract. saleDetails returns a fully static struct, so it
// is declared flat here; the wire encoding is identical.
var zora721DropAbi = mustAbi(`[
	{"type":"function","name":"saleDetails","stateMutability":"view","inputs":[],
		"outputs":[
			{"name":"publicSaleActive","type":"bool"},
			{"name":"presaleActive","type":"bool"},
			{"name":"publicSalePrice","type":"uint256"},
			{"name":"publicSaleStart","type":"uint64"},
			{"name":"publicSaleEnd","type":"uint64"},
			{"name":"presaleStart","type":"uint64"},
			{"name":"presaleEnd","type":"uint64"},
			{"name":"presaleMerkleRoot","type":"bytes32"},
			{"name":"maxSalePurchasePerAddress","type":"uint256"},
			{"name":"totalMinted","type":"uint256"},
			{"name":"maxSupply","type":"uint256"}]},
	{"type":"function","name":"zoraFeeForAmount","stateMutability":"view",
		"inputs":[{"name":"quantity","type":"uint256"}],
		"outputs":[{"name":"recipient","type":"address"},{"name":"fee","type":"uint256"}]},
	{"type":"function","name":"computeTotalReward","stateMutability":"view",
		"inputs":[{"name":"numTokens","type":"uint256"}],
		"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"purchase","stateMutability":"payable",
		"inputs":[{"name":"quantity","type":"uint256"}],
		"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"mintWithRewards","stateMutability":"payable",
		"inputs":[
			{"name":"recipient","type":"address"},
			{"name":"quantity","type":"uint256"},
			{"name":"comment","type":"string"},
			{"name":"mintReferral","type":"address"}],
		"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"purchasePresale","stateMutability":"payable",
		"inputs":[
			{"name":"quantity","type":"uint256"},
			{"name":"maxQuantity","type":"uint256"},
			{"name":"pricePerToken","type":"uint256"},
			{"name":"merkleProof","type":"bytes32[]"}],
		"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"purchasePresaleWithRewards","stateMutability":"payable",
		"inputs":[
			{"name":"quantity","type":"uint256"},
			{"name":"maxQuantity","type":"uint256"},
			{"name":"pricePerToken","type":"uint256"},
			{"name":"merkleProof","type":"bytes32[]"},
			{"name":"comment","type":"string"},
			{"name":"mintReferral","type":"address"}],
		"outputs":[{"name":"","type":"uint256"}]}
]`)

// Newer drop deployments changed the reward accessor to take the mint price
// explicitly. Kept as a separate ABI because go-ethereum renames overloads.
var zora721RewardsV2Abi = mustAbi(`[
	{"type":"function","name":"computeTotalReward","stateMutability":"view",
		"inputs":[{"name":"mintPrice","type":"uint256"},{"name":"numTokens","type":"uint256"}],
		"outputs":[{"name":"","type":"uint256"}]}
]`)

var zora1155Abi = mustAbi(`[
	{"type":"function","name":"mintFee","stateMutability":"view","inputs":[],
		"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"mint","stateMutability":"payable",
		"inputs":[
			{"name":"minter","type":"address"},
			{"name":"tokenId","type":"uint256"},
			{"name":"quantity","type":"uint256"},
			{"name":"minterArguments","type":"bytes"}],
		"outputs":[]},
	{"type":"function","name":"mintWithRewards","stateMutability":"payable",
		"inputs":[
			{"name":"minter","type":"address"},
			{"name":"tokenId","type":"uint256"},
			{"name":"quantity","type":"uint256"},
			{"name":"minterArguments","type":"bytes"},
			{"name":"mintReferral","type":"address"}],
		"outputs":[]},
	{"type":"function","name":"multicall","stateMutability":"payable",
		"inputs":[{"name":"data","type":"bytes[]"}],
		"outputs":[{"name":"results","type":"bytes[]"}]}
]`)

var zoraFixedPriceMinterAbi = mustAbi(`[
	{"type":"function","name":"sale","stateMutability":"view",
		"inputs":[{"name":"tokenContract","type":"address"},{"name":"tokenId","type":"uint256"}],
		"outputs":[
			{"name":"saleStart","type":"uint64"},
			{"name":"saleEnd","type":"uint64"},
			{"name":"maxTokensPerAddress","type":"uint64"},
			{"name":"pricePerToken","type":"uint96"},
			{"name":"fundsRecipient","type":"address"}]}
]`)

var zoraMerkleMinterAbi = mustAbi(`[
	{"type":"function","name":"sale","stateMutability":"view",
		"inputs":[{"name":"tokenContract","type":"address"},{"name":"tokenId","type":"uint256"}],
		"outputs":[
			{"name":"presaleStart","type":"uint64"},
			{"name":"presaleEnd","type":"uint64"},
			{"name":"fundsRecipient","type":"address"},
			{"name":"merkleRoot","type":"bytes32"}]}
]`)

var zoraERC20MinterAbi = mustAbi(`[
	{"type":"function","name":"sale","stateMutability":"view",
		"inputs":[{"name":"tokenContract","type":"address"},{"name":"tokenId","type":"uint256"}],
		"outputs":[
			{"name":"saleStart","type":"uint64"},
			{"name":"saleEnd","type":"uint64"},
			{"name":"maxTokensPerAddress","type":"uint64"},
			{"name":"pricePerToken","type":"uint256"},
			{"name":"fundsRecipient","type":"address"},
			{"name":"currency","type":"address"}]},
	{"type":"function","name":"mint","stateMutability":"nonpayable",
		"inputs":[
			{"name":"mintTo","type":"address"},
			{"name":"quantity","type":"uint256"},
			{"name":"tokenAddress","type":"address"},
			{"name":"tokenId","type":"uint256"},
			{"name":"totalValue","type":"uint256"},
			{"name":"currency","type":"address"},
			{"name":"mintReferral","type":"address"},
			{"name":"comment","type":"string"}],
		"outputs":[]}
]`)

func selectorHex(contractAbi abi.ABI, method string) string {
	return hexutil.Encode(contractAbi.Methods[method].ID)
}
