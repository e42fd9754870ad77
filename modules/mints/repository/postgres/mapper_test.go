package postgres

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/minterscan/mint-indexer/modules/mints/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintDescriptorModelRoundtrip(t *testing.T) {
	start := time.Now().Add(-time.Hour).Truncate(time.Second)
	root := common.HexToHash("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	d := &entity.MintDescriptor{
		Collection:        common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Contract:          common.HexToAddress("0x2222222222222222222222222222222222222222"),
		TokenId:           big.NewInt(42),
		Stage:             entity.MintStagePresale,
		Kind:              entity.MintKindAllowlist,
		Standard:          entity.MintStandardZora,
		Status:            entity.MintStatusOpen,
		Currency:          entity.NativeCurrency,
		Price:             big.NewInt(1_000_777),
		CurrencyDecimals:  18,
		MaxMintsPerWallet: big.NewInt(3),
		StartTime:         &start,
		AllowlistId:       &root,
		Details: entity.MintDetails{
			Tx: entity.TxTemplate{
				To: common.HexToAddress("0x2222222222222222222222222222222222222222"),
				Data: entity.TxTemplateData{
					Signature: "0xdeadbeef",
					Params: []entity.TxParam{
						{Kind: entity.ParamKindQuantity, AbiType: "uint256"},
						{Kind: entity.ParamKindAllowlist, AbiType: "bytes32[]"},
					},
				},
			},
			Info: map[string]string{"strategy": "merkle"},
		},
	}

	model, err := mapMintDescriptorToModel(d)
	require.NoError(t, err)
	assert.Equal(t, "42", model.TokenId)
	assert.Equal(t, "0x1111111111111111111111111111111111111111", model.Collection)

	back, err := mapModelToMintDescriptor(model)
	require.NoError(t, err)
	assert.Equal(t, d.Collection, back.Collection)
	assert.Equal(t, d.TokenId, back.TokenId)
	assert.Equal(t, d.Stage, back.Stage)
	assert.Equal(t, d.Kind, back.Kind)
	assert.Equal(t, d.Price, back.Price)
	assert.Equal(t, d.MaxMintsPerWallet, back.MaxMintsPerWallet)
	assert.Nil(t, back.MaxSupply)
	require.NotNil(t, back.StartTime)
	assert.True(t, start.Equal(*back.StartTime))
	assert.Nil(t, back.EndTime)
	require.NotNil(t, back.AllowlistId)
	assert.Equal(t, root, *back.AllowlistId)
	assert.Equal(t, d.Details.Tx.Data.Signature, back.Details.Tx.Data.Signature)
	require.Len(t, back.Details.Tx.Data.Params, 2)
	assert.Equal(t, entity.ParamKindAllowlist, back.Details.Tx.Data.Params[1].Kind)
	assert.Equal(t, "0.000000000001000777", back.PriceDecimal.String())
}

func TestCollectionScopedTokenIdMapsToEmptyString(t *testing.T) {
	d := &entity.MintDescriptor{
		Collection: common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Contract:   common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Stage:      entity.MintStagePublicSale,
		Kind:       entity.MintKindPublic,
		Standard:   entity.MintStandardFoundation,
		Status:     entity.MintStatusOpen,
	}
	model, err := mapMintDescriptorToModel(d)
	require.NoError(t, err)
	assert.Equal(t, "", model.TokenId)

	back, err := mapModelToMintDescriptor(model)
	require.NoError(t, err)
	assert.Nil(t, back.TokenId)
	assert.Nil(t, back.Price)
}

func TestNumericRoundtrip(t *testing.T) {
	huge, ok := new(big.Int).SetString("115792089237316195423570985008687907853269984665640564039457584007913129639935", 10)
	require.True(t, ok)

	n := numericFromBig(huge)
	back, err := bigFromNumeric(n)
	require.NoError(t, err)
	assert.Equal(t, huge, back)

	back, err = bigFromNumeric(pgtype.Numeric{})
	require.NoError(t, err)
	assert.Nil(t, back)

	// postgres may return trailing-zero values with a positive exponent
	back, err = bigFromNumeric(pgtype.Numeric{Int: big.NewInt(5), Exp: 3, Valid: true})
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(5000), back)
}
