// Package merkle builds the allowlist merkle trees used by mint gating
// contracts: leaves are keccak256 of the abi-encoded address, internal nodes
// are keccak256 of the byte-wise sorted pair. Leaves are sorted before the
// tree is built, so the root depends only on the address set: re-adding the
// same addresses in a different order reproduces the same root and previously
// generated proofs stay valid.
package merkle

import (
	"bytes"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/minterscan/mint-indexer/common/errs"
	"github.com/minterscan/mint-indexer/modules/mints/entity"
)

// Leaf computes the leaf hash for an allowlist address:
// keccak256(abi.encode(address)), i.e. the address left-padded to 32 bytes.
func Leaf(address common.Address) common.Hash {
	return crypto.Keccak256Hash(common.LeftPadBytes(address.Bytes(), 32))
}

// Root computes the merkle root over the given allowlist items. The zero hash
// is returned for an empty item list.
func Root(items []*entity.AllowlistItem) common.Hash {
	if len(items) == 0 {
		return common.Hash{}
	}
	level := leaves(items)
	for len(level) > 1 {
		level = nextLevel(level)
	}
	return level[0]
}

// Proof computes the merkle proof for the given address against the tree built
// from items. Returns errs.NotFound if the address is not present.
func Proof(items []*entity.AllowlistItem, address common.Address) ([]common.Hash, error) {
	target := Leaf(address)
	level := leaves(items)

	index := -1
	for i, leaf := range level {
		if leaf == target {
			index = i
			break
		}
	}
	if index == -1 {
		return nil, errors.Wrapf(errs.NotFound, "address %s is not in the allowlist", address)
	}

	proof := make([]common.Hash, 0)
	for len(level) > 1 {
		sibling := index ^ 1
		if sibling < len(level) {
			proof = append(proof, level[sibling])
		}
		level = nextLevel(level)
		index /= 2
	}
	return proof, nil
}

// Verify folds the proof over the address leaf with sorted-pair hashing and
// compares the result to root.
func Verify(root common.Hash, address common.Address, proof []common.Hash) bool {
	node := Leaf(address)
	for _, sibling := range proof {
		node = hashPair(node, sibling)
	}
	return node == root
}

func leaves(items []*entity.AllowlistItem) []common.Hash {
	hashes := make([]common.Hash, len(items))
	for i, item := range items {
		hashes[i] = Leaf(item.Address)
	}
	// sorted-pair hashing alone is not enough for order independence: the odd
	// node of a level is promoted as-is, so which leaf ends up unpaired must
	// not depend on input order either
	slices.SortFunc(hashes, func(a, b common.Hash) int {
		return bytes.Compare(a[:], b[:])
	})
	return hashes
}

func nextLevel(level []common.Hash) []common.Hash {
	next := make([]common.Hash, 0, (len(level)+1)/2)
	for i := 0; i < len(level); i += 2 {
		if i+1 == len(level) {
			// odd node is promoted unchanged
			next = append(next, level[i])
			continue
		}
		next = append(next, hashPair(level[i], level[i+1]))
	}
	return next
}

func hashPair(a, b common.Hash) common.Hash {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return crypto.Keccak256Hash(a[:], b[:])
}
