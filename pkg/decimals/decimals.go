package decimals

import (
	"math/big"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/shopspring/decimal"
)

const (
	DefaultDivPrecision = 36

	// NativeDecimals is the number of decimals of the chain's gas currency.
	NativeDecimals = 18
)

func init() {
	decimal.DivisionPrecision = DefaultDivPrecision
}

// MustFromString convert string to decimal.Decimal. Panic if error
// string must be a valid number, not NaN, Inf or empty string.
func MustFromString(s string) decimal.Decimal {
	return utils.Must(decimal.NewFromString(s))
}

// FromBaseUnits converts an integer amount in a token's smallest unit into a
// human-readable decimal using the token's decimals.
func FromBaseUnits(amount *big.Int, decimalsCount int32) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -decimalsCount)
}

// ToBaseUnits converts a human-readable decimal amount into an integer amount
// in the token's smallest unit.
func ToBaseUnits(amount decimal.Decimal, decimalsCount int32) *big.Int {
	return amount.Shift(decimalsCount).BigInt()
}
