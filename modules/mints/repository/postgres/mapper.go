package postgres

import (
	"encoding/json"
	"math/big"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/minterscan/mint-indexer/modules/mints/entity"
	"github.com/minterscan/mint-indexer/pkg/decimals"
)

// Addresses and hashes are stored as lowercase 0x-prefixed hex so equality
// comparisons in SQL behave regardless of how the caller checksummed them.

func addressToDb(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

func hashToDb(hash common.Hash) string {
	return strings.ToLower(hash.Hex())
}

// Token ids are stored as decimal strings, empty for collection-scoped rows,
// so the identity tuple's uniqueness constraint stays a plain column tuple.
func tokenIdToDb(tokenId *big.Int) string {
	if tokenId == nil {
		return ""
	}
	return tokenId.String()
}

func tokenIdFromDb(raw string) (*big.Int, error) {
	if raw == "" {
		return nil, nil
	}
	tokenId, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, errors.Errorf("malformed token id %q", raw)
	}
	return tokenId, nil
}

func numericFromBig(v *big.Int) pgtype.Numeric {
	if v == nil {
		return pgtype.Numeric{}
	}
	return pgtype.Numeric{Int: new(big.Int).Set(v), Valid: true}
}

func bigFromNumeric(n pgtype.Numeric) (*big.Int, error) {
	if !n.Valid || n.Int == nil {
		return nil, nil
	}
	v := new(big.Int).Set(n.Int)
	if n.Exp > 0 {
		v.Mul(v, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n.Exp)), nil))
	} else if n.Exp < 0 {
		return nil, errors.Errorf("unexpected fractional numeric with exp %d", n.Exp)
	}
	return v, nil
}

func timestamptzFromTime(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func timeFromTimestamptz(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}

type mintDescriptorModel struct {
	Collection        string
	Contract          string
	TokenId           string
	Stage             string
	Kind              string
	Standard          string
	Status            string
	StatusReason      string
	Currency          string
	Price             pgtype.Numeric
	CurrencyDecimals  int32
	MaxMintsPerWallet pgtype.Numeric
	MaxSupply         pgtype.Numeric
	StartTime         pgtype.Timestamptz
	EndTime           pgtype.Timestamptz
	AllowlistId       pgtype.Text
	Details           []byte
	CreatedAt         pgtype.Timestamptz
	UpdatedAt         pgtype.Timestamptz
}

func mapMintDescriptorToModel(d *entity.MintDescriptor) (*mintDescriptorModel, error) {
	details, err := json.Marshal(d.Details)
	if err != nil {
		return nil, errors.Wrap(err, "can't marshal descriptor details")
	}
	model := &mintDescriptorModel{
		Collection:        addressToDb(d.Collection),
		Contract:          addressToDb(d.Contract),
		TokenId:           tokenIdToDb(d.TokenId),
		Stage:             string(d.Stage),
		Kind:              string(d.Kind),
		Standard:          string(d.Standard),
		Status:            string(d.Status),
		StatusReason:      d.StatusReason,
		Currency:          addressToDb(d.Currency),
		Price:             numericFromBig(d.Price),
		CurrencyDecimals:  d.CurrencyDecimals,
		MaxMintsPerWallet: numericFromBig(d.MaxMintsPerWallet),
		MaxSupply:         numericFromBig(d.MaxSupply),
		StartTime:         timestamptzFromTime(d.StartTime),
		EndTime:           timestamptzFromTime(d.EndTime),
		Details:           details,
	}
	if d.AllowlistId != nil {
		model.AllowlistId = pgtype.Text{String: hashToDb(*d.AllowlistId), Valid: true}
	}
	return model, nil
}

func mapModelToMintDescriptor(m *mintDescriptorModel) (*entity.MintDescriptor, error) {
	tokenId, err := tokenIdFromDb(m.TokenId)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	price, err := bigFromNumeric(m.Price)
	if err != nil {
		return nil, errors.Wrap(err, "malformed price")
	}
	maxMints, err := bigFromNumeric(m.MaxMintsPerWallet)
	if err != nil {
		return nil, errors.Wrap(err, "malformed max mints per wallet")
	}
	maxSupply, err := bigFromNumeric(m.MaxSupply)
	if err != nil {
		return nil, errors.Wrap(err, "malformed max supply")
	}
	var details entity.MintDetails
	if len(m.Details) > 0 {
		if err := json.Unmarshal(m.Details, &details); err != nil {
			return nil, errors.Wrap(err, "can't unmarshal descriptor details")
		}
	}

	d := &entity.MintDescriptor{
		Collection:        common.HexToAddress(m.Collection),
		Contract:          common.HexToAddress(m.Contract),
		TokenId:           tokenId,
		Stage:             entity.MintStage(m.Stage),
		Kind:              entity.MintKind(m.Kind),
		Standard:          entity.MintStandard(m.Standard),
		Status:            entity.MintStatus(m.Status),
		StatusReason:      m.StatusReason,
		Currency:          common.HexToAddress(m.Currency),
		Price:             price,
		CurrencyDecimals:  m.CurrencyDecimals,
		PriceDecimal:      decimals.FromBaseUnits(price, m.CurrencyDecimals),
		MaxMintsPerWallet: maxMints,
		MaxSupply:         maxSupply,
		StartTime:         timeFromTimestamptz(m.StartTime),
		EndTime:           timeFromTimestamptz(m.EndTime),
		Details:           details,
		CreatedAt:         m.CreatedAt.Time,
		UpdatedAt:         m.UpdatedAt.Time,
	}
	if m.AllowlistId.Valid {
		allowlistId := common.HexToHash(m.AllowlistId.String)
		d.AllowlistId = &allowlistId
	}
	return d, nil
}
