package entity

import (
	"github.com/ethereum/go-ethereum/common"
)

// Transaction is the subset of a historical transaction needed to reconstruct
// which sale configuration it exercised. Calldata is untrusted input.
type Transaction struct {
	Hash common.Hash
	To   common.Address
	Data []byte
}

// Selector returns the 4-byte function selector of the calldata, or false if
// the calldata is too short to contain one.
func (t Transaction) Selector() ([4]byte, bool) {
	if len(t.Data) < 4 {
		return [4]byte{}, false
	}
	var selector [4]byte
	copy(selector[:], t.Data[:4])
	return selector, true
}
