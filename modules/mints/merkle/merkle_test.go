package merkle

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/minterscan/mint-indexer/common/errs"
	"github.com/minterscan/mint-indexer/modules/mints/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testItems(n int) []*entity.AllowlistItem {
	items := make([]*entity.AllowlistItem, 0, n)
	for i := 0; i < n; i++ {
		var addr common.Address
		addr[19] = byte(i + 1)
		addr[0] = byte(i * 7)
		items = append(items, &entity.AllowlistItem{Address: addr})
	}
	return items
}

func TestRootDeterministicOverPermutations(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5, 8, 33} {
		t.Run(fmt.Sprintf("size_%d", n), func(t *testing.T) {
			t.Parallel()
			items := testItems(n)
			expected := Root(items)
			require.NotEqual(t, common.Hash{}, expected)

			rng := rand.New(rand.NewSource(42))
			for i := 0; i < 10; i++ {
				shuffled := append([]*entity.AllowlistItem{}, items...)
				rng.Shuffle(len(shuffled), func(a, b int) {
					shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
				})
				assert.Equal(t, expected, Root(shuffled))
			}
		})
	}
}

func TestProofVerifiesForEveryAddress(t *testing.T) {
	for _, n := range []int{1, 2, 3, 6, 17} {
		t.Run(fmt.Sprintf("size_%d", n), func(t *testing.T) {
			t.Parallel()
			items := testItems(n)
			root := Root(items)
			for _, item := range items {
				proof, err := Proof(items, item.Address)
				require.NoError(t, err)
				assert.True(t, Verify(root, item.Address, proof), "proof must verify for %s", item.Address)
			}
		})
	}
}

func TestProofVerifiesAgainstPermutedRoot(t *testing.T) {
	items := testItems(9)
	root := Root(items)

	shuffled := append([]*entity.AllowlistItem{}, items...)
	shuffled[0], shuffled[8] = shuffled[8], shuffled[0]
	shuffled[2], shuffled[5] = shuffled[5], shuffled[2]

	// proofs generated from a permuted item list still verify against the
	// original root
	for _, item := range items {
		proof, err := Proof(shuffled, item.Address)
		require.NoError(t, err)
		assert.True(t, Verify(root, item.Address, proof))
	}
}

func TestProofNotFound(t *testing.T) {
	items := testItems(4)
	var stranger common.Address
	stranger[19] = 0xff

	_, err := Proof(items, stranger)
	assert.ErrorIs(t, err, errs.NotFound)
}

func TestEmptyRootIsZero(t *testing.T) {
	assert.Equal(t, common.Hash{}, Root(nil))
}

func TestSingleLeafRootEqualsLeaf(t *testing.T) {
	items := testItems(1)
	assert.Equal(t, Leaf(items[0].Address), Root(items))

	proof, err := Proof(items, items[0].Address)
	require.NoError(t, err)
	assert.Empty(t, proof)
}
