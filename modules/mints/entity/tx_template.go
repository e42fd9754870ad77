package entity

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ParamKind determines how a parameter slot is resolved at fill time.
type ParamKind string

const (
	// ParamKindContract resolves to the descriptor's minter contract address.
	ParamKindContract ParamKind = "contract"
	// ParamKindQuantity resolves to the caller-supplied quantity.
	ParamKindQuantity ParamKind = "quantity"
	// ParamKindRecipient resolves to the caller-supplied recipient address.
	ParamKindRecipient ParamKind = "recipient"
	// ParamKindReferrer resolves to the configured default referrer, or the
	// zero address when none is configured.
	ParamKindReferrer ParamKind = "referrer"
	// ParamKindPrice resolves to the descriptor's price. Used by ERC20-minter
	// variants that pass the price explicitly.
	ParamKindPrice ParamKind = "price"
	// ParamKindComment resolves to the caller-supplied comment, empty by default.
	ParamKindComment ParamKind = "comment"
	// ParamKindAllowlist resolves to the recipient's merkle proof against the
	// descriptor's allowlist.
	ParamKindAllowlist ParamKind = "allowlist"
	// ParamKindUnknown carries a literal AbiValue baked in at descriptor
	// creation time.
	ParamKindUnknown ParamKind = "unknown"
	// ParamKindTuple nests an ordered slot list for struct-shaped parameters.
	ParamKindTuple ParamKind = "tuple"
	// ParamKindCustom nests an ordered slot list that is abi-encoded into a
	// single dynamic bytes value (e.g. zora minterArguments).
	ParamKindCustom ParamKind = "custom"
)

// TxParam is a typed parameter slot of a transaction template.
//
// The ordered slot list for a given signature must exactly match the target
// contract's ABI ordering; this is the contract between extractors (producers)
// and the template builder (consumer).
type TxParam struct {
	Kind    ParamKind `json:"kind"`
	AbiType string    `json:"abiType"`

	// AbiValue is the literal value for ParamKindUnknown slots, encoded as a
	// string: "0x"-prefixed hex for address/bytes types, decimal for integer
	// types, "true"/"false" for bool.
	AbiValue string `json:"abiValue,omitempty"`

	// Params nests the ordered slot list for tuple and custom kinds.
	Params []TxParam `json:"params,omitempty"`
}

type TxTemplateData struct {
	// Signature is the 4-byte function selector, "0x"-prefixed hex.
	Signature string    `json:"signature"`
	Params    []TxParam `json:"params"`
}

// TxTemplate is an immutable, protocol-agnostic transaction template.
// Extractors regenerate (not mutate) templates when on-chain parameters change.
type TxTemplate struct {
	To   common.Address `json:"to"`
	Data TxTemplateData `json:"data"`
}

// GeneratedTx is ready-to-send transaction data produced by the template builder.
type GeneratedTx struct {
	To common.Address `json:"to"`
	// Data is the full calldata: selector followed by abi-encoded arguments.
	Data hexutil.Bytes `json:"data"`
	// Value is the native currency amount to attach. Zero for ERC20-priced
	// stages even when the price is non-zero.
	Value *big.Int `json:"value"`
}
