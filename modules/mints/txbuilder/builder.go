// Package txbuilder fills transaction templates into ready-to-send calldata.
// It is the single consumer of the typed parameter slots that extractors
// produce: every slot kind is resolved here, recursively for nested tuple and
// custom slots.
package txbuilder

import (
	"context"
	"fmt"
	"math/big"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/minterscan/mint-indexer/common/errs"
	"github.com/minterscan/mint-indexer/modules/mints/allowlist"
	"github.com/minterscan/mint-indexer/modules/mints/entity"
)

type Config struct {
	// DefaultReferrer fills referrer slots. The zero address disables
	// referral attribution.
	DefaultReferrer common.Address `mapstructure:"default_referrer"`
}

type Builder struct {
	allowlists *allowlist.Store
	referrer   common.Address
}

func NewBuilder(allowlists *allowlist.Store, conf Config) *Builder {
	return &Builder{allowlists: allowlists, referrer: conf.DefaultReferrer}
}

// MintRequest carries the caller-supplied values for a template fill.
type MintRequest struct {
	// Quantity defaults to 1 when nil.
	Quantity  *big.Int
	Recipient common.Address
	Comment   string
}

// GenerateTxData resolves every parameter slot of the descriptor's template
// and abi-encodes the call. The attached native value is price * quantity for
// native-priced stages and zero otherwise.
//
// Allowlist slots fail loudly: a missing allowlist id or a recipient without
// an entry is an error, never a silently empty proof.
func (b *Builder) GenerateTxData(ctx context.Context, d *entity.MintDescriptor, req MintRequest) (*entity.GeneratedTx, error) {
	if req.Recipient == (common.Address{}) {
		return nil, errors.Wrap(errs.InvalidArgument, "recipient is required")
	}
	if req.Quantity == nil {
		req.Quantity = big.NewInt(1)
	}
	if req.Quantity.Sign() <= 0 {
		return nil, errors.Wrap(errs.InvalidArgument, "quantity must be positive")
	}

	template := d.Details.Tx
	if template.Data.Signature == "" {
		return nil, errors.Wrapf(errs.Unsupported, "descriptor %s has no transaction template", d.IdentityKey())
	}
	selector, err := hexutil.Decode(template.Data.Signature)
	if err != nil || len(selector) != 4 {
		return nil, errors.Wrapf(errs.InvalidState, "malformed template selector %q", template.Data.Signature)
	}

	arguments, values, err := b.resolveParams(ctx, d, req, template.Data.Params)
	if err != nil {
		return nil, err
	}
	packed, err := arguments.Pack(values...)
	if err != nil {
		return nil, errors.Wrapf(err, "can't abi-encode arguments for %s", d.IdentityKey())
	}

	value := big.NewInt(0)
	if d.IsNativeCurrency() && d.Price != nil {
		value = new(big.Int).Mul(d.Price, req.Quantity)
	}
	return &entity.GeneratedTx{
		To:    template.To,
		Data:  append(selector, packed...),
		Value: value,
	}, nil
}

// GenerateProofValue returns the merkle proof for address against the given
// allowlist, for callers that assemble calldata themselves.
func (b *Builder) GenerateProofValue(ctx context.Context, allowlistId common.Hash, address common.Address) ([]common.Hash, error) {
	return b.allowlists.GetProof(ctx, allowlistId, address)
}

func (b *Builder) resolveParams(ctx context.Context, d *entity.MintDescriptor, req MintRequest, params []entity.TxParam) (abi.Arguments, []any, error) {
	arguments := make(abi.Arguments, 0, len(params))
	values := make([]any, 0, len(params))
	for i, p := range params {
		typ, value, err := b.resolveParam(ctx, d, req, p)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "can't resolve parameter %d (%s %s)", i, p.Kind, p.AbiType)
		}
		arguments = append(arguments, abi.Argument{Type: typ})
		values = append(values, value)
	}
	return arguments, values, nil
}

func (b *Builder) resolveParam(ctx context.Context, d *entity.MintDescriptor, req MintRequest, p entity.TxParam) (abi.Type, any, error) {
	switch p.Kind {
	case entity.ParamKindTuple:
		return b.resolveTuple(ctx, d, req, p)
	case entity.ParamKindCustom:
		return b.resolveCustom(ctx, d, req, p)
	}

	typ, err := abi.NewType(p.AbiType, "", nil)
	if err != nil {
		return abi.Type{}, nil, errors.Wrapf(err, "invalid abi type %q", p.AbiType)
	}

	switch p.Kind {
	case entity.ParamKindContract:
		return typ, d.Contract, nil
	case entity.ParamKindQuantity:
		value, err := castInteger(req.Quantity, typ)
		return typ, value, err
	case entity.ParamKindRecipient:
		return typ, req.Recipient, nil
	case entity.ParamKindReferrer:
		return typ, b.referrer, nil
	case entity.ParamKindPrice:
		if d.Price == nil {
			return abi.Type{}, nil, errors.Wrap(errs.InvalidState, "descriptor has no price for a price slot")
		}
		value, err := castInteger(d.Price, typ)
		return typ, value, err
	case entity.ParamKindComment:
		return typ, req.Comment, nil
	case entity.ParamKindAllowlist:
		value, err := b.resolveProof(ctx, d, req.Recipient)
		return typ, value, err
	case entity.ParamKindUnknown:
		value, err := parseLiteral(p.AbiValue, typ)
		return typ, value, err
	default:
		return abi.Type{}, nil, errors.Wrapf(errs.Unsupported, "unknown parameter kind %q", p.Kind)
	}
}

func (b *Builder) resolveProof(ctx context.Context, d *entity.MintDescriptor, recipient common.Address) ([][32]byte, error) {
	if d.AllowlistId == nil {
		return nil, errors.Wrap(errs.InvalidState, "descriptor has an allowlist slot but no allowlist id")
	}
	proof, err := b.allowlists.GetProof(ctx, *d.AllowlistId, recipient)
	if err != nil {
		return nil, errors.Wrapf(err, "can't prove %s against allowlist %s", recipient, d.AllowlistId)
	}
	out := make([][32]byte, len(proof))
	for i, h := range proof {
		out[i] = h
	}
	return out, nil
}

// resolveTuple builds a struct-shaped argument. The tuple's go representation
// is synthesized by abi.NewType, so values are assigned via reflection.
func (b *Builder) resolveTuple(ctx context.Context, d *entity.MintDescriptor, req MintRequest, p entity.TxParam) (abi.Type, any, error) {
	components := make([]abi.ArgumentMarshaling, 0, len(p.Params))
	childValues := make([]any, 0, len(p.Params))
	for i, child := range p.Params {
		_, value, err := b.resolveParam(ctx, d, req, child)
		if err != nil {
			return abi.Type{}, nil, errors.Wrapf(err, "can't resolve tuple component %d", i)
		}
		components = append(components, abi.ArgumentMarshaling{
			Name: fmt.Sprintf("field%d", i),
			Type: child.AbiType,
		})
		childValues = append(childValues, value)
	}
	typ, err := abi.NewType("tuple", "", components)
	if err != nil {
		return abi.Type{}, nil, errors.Wrap(err, "invalid tuple type")
	}

	value := reflect.New(typ.TupleType).Elem()
	for i, child := range childValues {
		value.Field(i).Set(reflect.ValueOf(child))
	}
	return typ, value.Interface(), nil
}

// resolveCustom abi-encodes the nested slot list into a single dynamic bytes
// value, the shape strategy-minter contracts expect for minterArguments.
func (b *Builder) resolveCustom(ctx context.Context, d *entity.MintDescriptor, req MintRequest, p entity.TxParam) (abi.Type, any, error) {
	arguments, values, err := b.resolveParams(ctx, d, req, p.Params)
	if err != nil {
		return abi.Type{}, nil, err
	}
	packed, err := arguments.Pack(values...)
	if err != nil {
		return abi.Type{}, nil, errors.Wrap(err, "can't abi-encode custom slot")
	}
	typ, err := abi.NewType("bytes", "", nil)
	if err != nil {
		return abi.Type{}, nil, err
	}
	return typ, packed, nil
}

// castInteger converts a big integer into the go value abi encoding expects
// for the slot's declared width.
func castInteger(v *big.Int, typ abi.Type) (any, error) {
	if typ.T != abi.UintTy && typ.T != abi.IntTy {
		return nil, errors.Wrapf(errs.InvalidState, "integer value for non-integer abi type %s", typ)
	}
	if typ.T == abi.UintTy {
		if v.Sign() < 0 || v.BitLen() > typ.Size {
			return nil, errors.Wrapf(errs.InvalidArgument, "value %s overflows %s", v, typ)
		}
		switch typ.Size {
		case 8:
			return uint8(v.Uint64()), nil
		case 16:
			return uint16(v.Uint64()), nil
		case 32:
			return uint32(v.Uint64()), nil
		case 64:
			return v.Uint64(), nil
		}
	} else {
		// a signed width n holds [-2^(n-1), 2^(n-1)-1]; a bare bit-length check
		// would admit values up to 2^n-1 and silently flip them negative
		bound := new(big.Int).Lsh(big.NewInt(1), uint(typ.Size-1))
		if v.Cmp(bound) >= 0 || v.Cmp(new(big.Int).Neg(bound)) < 0 {
			return nil, errors.Wrapf(errs.InvalidArgument, "value %s overflows %s", v, typ)
		}
		switch typ.Size {
		case 8:
			return int8(v.Int64()), nil
		case 16:
			return int16(v.Int64()), nil
		case 32:
			return int32(v.Int64()), nil
		case 64:
			return v.Int64(), nil
		}
	}
	return new(big.Int).Set(v), nil
}

// parseLiteral decodes a baked-in literal slot value. The string encodings
// mirror how extractors write them: hex for address/bytes kinds, decimal for
// integers, true/false for bool.
func parseLiteral(raw string, typ abi.Type) (any, error) {
	switch typ.T {
	case abi.AddressTy:
		if !common.IsHexAddress(raw) {
			return nil, errors.Wrapf(errs.InvalidState, "invalid address literal %q", raw)
		}
		return common.HexToAddress(raw), nil
	case abi.FixedBytesTy:
		decoded, err := hexutil.Decode(raw)
		if err != nil || len(decoded) != typ.Size {
			return nil, errors.Wrapf(errs.InvalidState, "invalid bytes%d literal %q", typ.Size, raw)
		}
		if typ.Size == 32 {
			var out [32]byte
			copy(out[:], decoded)
			return out, nil
		}
		return nil, errors.Wrapf(errs.Unsupported, "unsupported fixed bytes width %d", typ.Size)
	case abi.BytesTy:
		decoded, err := hexutil.Decode(raw)
		if err != nil {
			return nil, errors.Wrapf(errs.InvalidState, "invalid bytes literal %q", raw)
		}
		return decoded, nil
	case abi.UintTy, abi.IntTy:
		v, ok := new(big.Int).SetString(raw, 10)
		if !ok {
			return nil, errors.Wrapf(errs.InvalidState, "invalid integer literal %q", raw)
		}
		return castInteger(v, typ)
	case abi.BoolTy:
		switch strings.ToLower(raw) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, errors.Wrapf(errs.InvalidState, "invalid bool literal %q", raw)
	case abi.StringTy:
		return raw, nil
	default:
		return nil, errors.Wrapf(errs.Unsupported, "unsupported literal abi type %s", typ)
	}
}
