package extractor

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/minterscan/mint-indexer/modules/mints/entity"
)

func slot(kind entity.ParamKind, abiType string) entity.TxParam {
	return entity.TxParam{Kind: kind, AbiType: abiType}
}

func litAddress(addr common.Address) entity.TxParam {
	return entity.TxParam{Kind: entity.ParamKindUnknown, AbiType: "address", AbiValue: addr.Hex()}
}

func litUint256(v *big.Int) entity.TxParam {
	return entity.TxParam{Kind: entity.ParamKindUnknown, AbiType: "uint256", AbiValue: v.String()}
}

