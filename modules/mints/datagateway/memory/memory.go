// Package memory provides in-memory datagateway implementations, used by
// tests and by deployments that do not need persistence across restarts.
package memory

import (
	"context"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/minterscan/mint-indexer/common/errs"
	"github.com/minterscan/mint-indexer/modules/mints/datagateway"
	"github.com/minterscan/mint-indexer/modules/mints/entity"
)

var (
	_ datagateway.MintsDataGateway     = (*Repository)(nil)
	_ datagateway.AllowlistDataGateway = (*Repository)(nil)
	_ datagateway.JobsDataGateway      = (*Repository)(nil)
)

type Repository struct {
	mu          sync.Mutex
	descriptors map[string]*entity.MintDescriptor // keyed by the identity tuple
	allowlists  map[common.Hash][]*entity.AllowlistItem
	tokenIds    map[common.Address][]*big.Int
	jobs        map[common.Address]*datagateway.RefreshJob
	nextJobId   int64
}

func NewRepository() *Repository {
	return &Repository{
		descriptors: make(map[string]*entity.MintDescriptor),
		allowlists:  make(map[common.Hash][]*entity.AllowlistItem),
		tokenIds:    make(map[common.Address][]*big.Int),
		jobs:        make(map[common.Address]*datagateway.RefreshJob),
	}
}

func descriptorKey(d *entity.MintDescriptor) string {
	return d.IdentityKey()
}

func (r *Repository) UpsertMintDescriptor(ctx context.Context, descriptor *entity.MintDescriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *descriptor
	now := time.Now()
	key := descriptorKey(descriptor)
	if existing, ok := r.descriptors[key]; ok {
		clone.CreatedAt = existing.CreatedAt
	} else {
		clone.CreatedAt = now
	}
	clone.UpdatedAt = now
	r.descriptors[key] = &clone
	return nil
}

func (r *Repository) GetMintDescriptors(ctx context.Context, collection common.Address, standard entity.MintStandard, status *entity.MintStatus, tokenId *big.Int) ([]*entity.MintDescriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]*entity.MintDescriptor, 0)
	for _, d := range r.descriptors {
		if d.Collection != collection || d.Standard != standard {
			continue
		}
		if status != nil && d.Status != *status {
			continue
		}
		if tokenId != nil && !d.SameTokenScope(tokenId) {
			continue
		}
		clone := *d
		result = append(result, &clone)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].IdentityKey() < result[j].IdentityKey() })
	return result, nil
}

func (r *Repository) GetTokenIdsByCollection(ctx context.Context, collection common.Address, limit int32) ([]*big.Int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := r.tokenIds[collection]
	if limit > 0 && int32(len(ids)) > limit {
		ids = ids[:limit]
	}
	result := make([]*big.Int, 0, len(ids))
	for _, id := range ids {
		result = append(result, new(big.Int).Set(id))
	}
	return result, nil
}

// SetTokenIds seeds known token ids for a collection.
func (r *Repository) SetTokenIds(collection common.Address, ids []*big.Int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokenIds[collection] = ids
}

func (r *Repository) GetCollectionsWithOpenMints(ctx context.Context, limit int32) ([]common.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[common.Address]struct{})
	result := make([]common.Address, 0)
	for _, d := range r.descriptors {
		if d.Status != entity.MintStatusOpen {
			continue
		}
		if _, ok := seen[d.Collection]; ok {
			continue
		}
		seen[d.Collection] = struct{}{}
		result = append(result, d.Collection)
		if limit > 0 && int32(len(result)) >= limit {
			break
		}
	}
	return result, nil
}

func (r *Repository) AllowlistExists(ctx context.Context, root common.Hash) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.allowlists[root]
	return ok, nil
}

func (r *Repository) CreateAllowlist(ctx context.Context, root common.Hash, items []*entity.AllowlistItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.allowlists[root]; ok {
		// immutable once created
		return nil
	}
	clones := make([]*entity.AllowlistItem, 0, len(items))
	for _, item := range items {
		clone := *item
		clones = append(clones, &clone)
	}
	r.allowlists[root] = clones
	return nil
}

func (r *Repository) GetAllowlistItems(ctx context.Context, root common.Hash) ([]*entity.AllowlistItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items, ok := r.allowlists[root]
	if !ok {
		return nil, errors.Wrapf(errs.NotFound, "allowlist %s does not exist", root)
	}
	result := make([]*entity.AllowlistItem, 0, len(items))
	for _, item := range items {
		clone := *item
		result = append(result, &clone)
	}
	return result, nil
}

func (r *Repository) EnqueueRefreshJob(ctx context.Context, collection common.Address, runAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.jobs[collection]; ok {
		if runAt.Before(existing.RunAt) {
			existing.RunAt = runAt
		}
		return nil
	}
	r.nextJobId++
	r.jobs[collection] = &datagateway.RefreshJob{
		Id:         r.nextJobId,
		Collection: collection,
		RunAt:      runAt,
		CreatedAt:  time.Now(),
	}
	return nil
}

func (r *Repository) PollDueRefreshJobs(ctx context.Context, limit int32) ([]*datagateway.RefreshJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	due := make([]*datagateway.RefreshJob, 0)
	for collection, job := range r.jobs {
		if job.RunAt.After(now) {
			continue
		}
		due = append(due, job)
		delete(r.jobs, collection)
		if limit > 0 && int32(len(due)) >= limit {
			break
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].Id < due[j].Id })
	return due, nil
}
