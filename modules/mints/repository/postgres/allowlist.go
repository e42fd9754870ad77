package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/minterscan/mint-indexer/common/errs"
	"github.com/minterscan/mint-indexer/modules/mints/datagateway"
	"github.com/minterscan/mint-indexer/modules/mints/entity"
)

var _ datagateway.AllowlistDataGateway = (*Repository)(nil)

func (r *Repository) AllowlistExists(ctx context.Context, root common.Hash) (bool, error) {
	var exists bool
	err := r.queryable().QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM allowlists WHERE root = $1)`,
		hashToDb(root),
	).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "error during query")
	}
	return exists, nil
}

// CreateAllowlist inserts the root and its items in one transaction. Item
// order is preserved via an explicit position column: the merkle tree is
// order-sensitive, so reloading in a different order would break proofs.
// A concurrent creation of the same root loses the insert race and is treated
// as the no-op the contract requires.
func (r *Repository) CreateAllowlist(ctx context.Context, root common.Hash, items []*entity.AllowlistItem) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`INSERT INTO allowlists (root) VALUES ($1) ON CONFLICT (root) DO NOTHING`,
		hashToDb(root),
	)
	if err != nil {
		return errors.Wrap(err, "error during insert root")
	}
	if tag.RowsAffected() == 0 {
		// already created, immutable once stored
		return nil
	}

	for position, item := range items {
		_, err := tx.Exec(ctx, `
			INSERT INTO allowlist_items (root, position, address, price, actual_price, max_mints)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			hashToDb(root), position, addressToDb(item.Address),
			numericFromBig(item.Price), numericFromBig(item.ActualPrice), numericFromBig(item.MaxMints),
		)
		if err != nil {
			return errors.Wrapf(err, "error during insert item %d", position)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

func (r *Repository) GetAllowlistItems(ctx context.Context, root common.Hash) ([]*entity.AllowlistItem, error) {
	exists, err := r.AllowlistExists(ctx, root)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if !exists {
		return nil, errors.Wrapf(errs.NotFound, "allowlist %s does not exist", root)
	}

	rows, err := r.queryable().Query(ctx, `
		SELECT address, price, actual_price, max_mints
		FROM allowlist_items
		WHERE root = $1
		ORDER BY position ASC`,
		hashToDb(root),
	)
	if err != nil {
		return nil, errors.Wrap(err, "error during query")
	}
	defer rows.Close()

	items := make([]*entity.AllowlistItem, 0)
	for rows.Next() {
		var (
			address                      string
			price, actualPrice, maxMints pgtype.Numeric
		)
		if err := rows.Scan(&address, &price, &actualPrice, &maxMints); err != nil {
			return nil, errors.Wrap(err, "error during scan")
		}
		item := &entity.AllowlistItem{Address: common.HexToAddress(address)}
		if item.Price, err = bigFromNumeric(price); err != nil {
			return nil, errors.Wrap(err, "malformed price")
		}
		if item.ActualPrice, err = bigFromNumeric(actualPrice); err != nil {
			return nil, errors.Wrap(err, "malformed actual price")
		}
		if item.MaxMints, err = bigFromNumeric(maxMints); err != nil {
			return nil, errors.Wrap(err, "malformed max mints")
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error during iteration")
	}
	return items, nil
}
