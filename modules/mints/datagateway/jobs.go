package datagateway

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// RefreshJob is a pending request to re-derive mint availability for a collection.
type RefreshJob struct {
	Id         int64
	Collection common.Address
	RunAt      time.Time
	CreatedAt  time.Time
}

// JobsDataGateway is the "schedule async work" collaborator. Enqueueing the
// same collection twice before it runs is collapsed into one job.
type JobsDataGateway interface {
	EnqueueRefreshJob(ctx context.Context, collection common.Address, runAt time.Time) error

	// PollDueRefreshJobs claims and removes up to limit jobs whose runAt has
	// passed. Claimed jobs are not visible to concurrent pollers.
	PollDueRefreshJobs(ctx context.Context, limit int32) ([]*RefreshJob, error)
}
