// Package allowlist persists per-merkle-root allowlists and answers
// membership/proof queries. Allowlists are immutable once created: recomputing
// the tree over the same item set always reproduces the same root, so root
// existence is a safe check before expensive recomputation.
package allowlist

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/minterscan/mint-indexer/common/errs"
	"github.com/minterscan/mint-indexer/modules/mints/datagateway"
	"github.com/minterscan/mint-indexer/modules/mints/entity"
	"github.com/minterscan/mint-indexer/modules/mints/merkle"
)

// DefaultProofTTL bounds how long a computed proof is served from cache.
// Allowlist content is immutable, so the TTL only bounds memory, not staleness.
const DefaultProofTTL = time.Hour

type Store struct {
	dg datagateway.AllowlistDataGateway

	proofTTL   time.Duration
	mu         sync.Mutex
	proofCache map[proofKey]cachedProof
}

type proofKey struct {
	root    common.Hash
	address common.Address
}

type cachedProof struct {
	proof     []common.Hash
	expiresAt time.Time
}

func NewStore(dg datagateway.AllowlistDataGateway) *Store {
	return &Store{
		dg:         dg,
		proofTTL:   DefaultProofTTL,
		proofCache: make(map[proofKey]cachedProof),
	}
}

// Exists reports whether an allowlist for the given merkle root is already stored.
func (s *Store) Exists(ctx context.Context, root common.Hash) (bool, error) {
	exists, err := s.dg.AllowlistExists(ctx, root)
	if err != nil {
		return false, errors.Wrap(err, "failed to check allowlist existence")
	}
	return exists, nil
}

// Create persists the items under root. The recomputed merkle root of items
// must equal root, otherwise the store would hold items inconsistent with the
// root asserted on-chain. Creating an already existing root is a no-op.
func (s *Store) Create(ctx context.Context, root common.Hash, items []*entity.AllowlistItem) error {
	if computed := merkle.Root(items); computed != root {
		return errors.Wrapf(errs.InvalidState, "recomputed merkle root %s does not match %s", computed, root)
	}
	if err := s.dg.CreateAllowlist(ctx, root, items); err != nil {
		return errors.Wrap(err, "failed to create allowlist")
	}
	return nil
}

// Get returns the stored items for root. Returns errs.NotFound if unknown.
func (s *Store) Get(ctx context.Context, root common.Hash) ([]*entity.AllowlistItem, error) {
	items, err := s.dg.GetAllowlistItems(ctx, root)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get allowlist items")
	}
	return items, nil
}

// GetProof computes the merkle proof for address against the allowlist stored
// under root. Proofs are cached per (root, address) with a short TTL since
// proof computation over large allowlists is O(n).
func (s *Store) GetProof(ctx context.Context, root common.Hash, address common.Address) ([]common.Hash, error) {
	key := proofKey{root: root, address: address}

	s.mu.Lock()
	if cached, ok := s.proofCache[key]; ok && time.Now().Before(cached.expiresAt) {
		s.mu.Unlock()
		return cached.proof, nil
	}
	s.mu.Unlock()

	items, err := s.dg.GetAllowlistItems(ctx, root)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get allowlist items for root %s", root)
	}
	proof, err := merkle.Proof(items, address)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to compute proof for %s", address)
	}

	s.mu.Lock()
	s.proofCache[key] = cachedProof{proof: proof, expiresAt: time.Now().Add(s.proofTTL)}
	s.mu.Unlock()
	return proof, nil
}

// GetItem returns the allowlist entry for address under root.
// Returns errs.NotFound if the address has no entry.
func (s *Store) GetItem(ctx context.Context, root common.Hash, address common.Address) (*entity.AllowlistItem, error) {
	items, err := s.dg.GetAllowlistItems(ctx, root)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get allowlist items")
	}
	for _, item := range items {
		if item.Address == address {
			return item, nil
		}
	}
	return nil, errors.Wrapf(errs.NotFound, "address %s has no allowlist entry", address)
}
