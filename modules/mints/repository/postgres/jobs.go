package postgres

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/minterscan/mint-indexer/modules/mints/datagateway"
)

var _ datagateway.JobsDataGateway = (*Repository)(nil)

func (r *Repository) EnqueueRefreshJob(ctx context.Context, collection common.Address, runAt time.Time) error {
	_, err := r.queryable().Exec(ctx, `
		INSERT INTO refresh_jobs (collection, run_at)
		VALUES ($1, $2)
		ON CONFLICT (collection) DO UPDATE SET run_at = LEAST(refresh_jobs.run_at, EXCLUDED.run_at)`,
		addressToDb(collection), pgtype.Timestamptz{Time: runAt, Valid: true},
	)
	if err != nil {
		return errors.Wrap(err, "error during exec")
	}
	return nil
}

// PollDueRefreshJobs claims due jobs with SKIP LOCKED so concurrent workers
// never process the same collection twice.
func (r *Repository) PollDueRefreshJobs(ctx context.Context, limit int32) ([]*datagateway.RefreshJob, error) {
	rows, err := r.queryable().Query(ctx, `
		DELETE FROM refresh_jobs
		WHERE id IN (
			SELECT id FROM refresh_jobs
			WHERE run_at <= now()
			ORDER BY run_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, collection, run_at, created_at`,
		limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "error during query")
	}
	defer rows.Close()

	jobs := make([]*datagateway.RefreshJob, 0)
	for rows.Next() {
		var (
			id               int64
			collection       string
			runAt, createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(&id, &collection, &runAt, &createdAt); err != nil {
			return nil, errors.Wrap(err, "error during scan")
		}
		jobs = append(jobs, &datagateway.RefreshJob{
			Id:         id,
			Collection: common.HexToAddress(collection),
			RunAt:      runAt.Time,
			CreatedAt:  createdAt.Time,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error during iteration")
	}
	return jobs, nil
}
