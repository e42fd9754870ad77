package postgres

import (
	"context"
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/minterscan/mint-indexer/modules/mints/datagateway"
	"github.com/minterscan/mint-indexer/modules/mints/entity"
)

var _ datagateway.MintsDataGateway = (*Repository)(nil)

const mintDescriptorColumns = `collection, contract, token_id, stage, kind, standard, status, status_reason,
	currency, price, currency_decimals, max_mints_per_wallet, max_supply,
	start_time, end_time, allowlist_id, details, created_at, updated_at`

const upsertMintDescriptorSQL = `
INSERT INTO mint_descriptors (collection, contract, token_id, stage, kind, standard, status, status_reason,
	currency, price, currency_decimals, max_mints_per_wallet, max_supply,
	start_time, end_time, allowlist_id, details)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
ON CONFLICT (collection, stage, token_id, kind) DO UPDATE SET
	contract = EXCLUDED.contract,
	standard = EXCLUDED.standard,
	status = EXCLUDED.status,
	status_reason = EXCLUDED.status_reason,
	currency = EXCLUDED.currency,
	price = EXCLUDED.price,
	currency_decimals = EXCLUDED.currency_decimals,
	max_mints_per_wallet = EXCLUDED.max_mints_per_wallet,
	max_supply = EXCLUDED.max_supply,
	start_time = EXCLUDED.start_time,
	end_time = EXCLUDED.end_time,
	allowlist_id = EXCLUDED.allowlist_id,
	details = EXCLUDED.details,
	updated_at = now()`

func (r *Repository) UpsertMintDescriptor(ctx context.Context, descriptor *entity.MintDescriptor) error {
	model, err := mapMintDescriptorToModel(descriptor)
	if err != nil {
		return errors.WithStack(err)
	}
	_, err = r.queryable().Exec(ctx, upsertMintDescriptorSQL,
		model.Collection, model.Contract, model.TokenId, model.Stage, model.Kind, model.Standard,
		model.Status, model.StatusReason, model.Currency, model.Price, model.CurrencyDecimals,
		model.MaxMintsPerWallet, model.MaxSupply, model.StartTime, model.EndTime,
		model.AllowlistId, model.Details,
	)
	if err != nil {
		return errors.Wrap(err, "error during exec")
	}
	return nil
}

func (r *Repository) GetMintDescriptors(ctx context.Context, collection common.Address, standard entity.MintStandard, status *entity.MintStatus, tokenId *big.Int) ([]*entity.MintDescriptor, error) {
	query := `SELECT ` + mintDescriptorColumns + `
		FROM mint_descriptors
		WHERE collection = $1 AND standard = $2`
	args := []any{addressToDb(collection), string(standard)}
	if status != nil {
		args = append(args, string(*status))
		query += ` AND status = $` + itoa(len(args))
	}
	if tokenId != nil {
		args = append(args, tokenIdToDb(tokenId))
		query += ` AND token_id = $` + itoa(len(args))
	}
	query += ` ORDER BY collection, stage, token_id, kind`

	rows, err := r.queryable().Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "error during query")
	}
	defer rows.Close()

	descriptors := make([]*entity.MintDescriptor, 0)
	for rows.Next() {
		var m mintDescriptorModel
		if err := rows.Scan(
			&m.Collection, &m.Contract, &m.TokenId, &m.Stage, &m.Kind, &m.Standard,
			&m.Status, &m.StatusReason, &m.Currency, &m.Price, &m.CurrencyDecimals,
			&m.MaxMintsPerWallet, &m.MaxSupply, &m.StartTime, &m.EndTime,
			&m.AllowlistId, &m.Details, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "error during scan")
		}
		descriptor, err := mapModelToMintDescriptor(&m)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		descriptors = append(descriptors, descriptor)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error during iteration")
	}
	return descriptors, nil
}

func (r *Repository) GetTokenIdsByCollection(ctx context.Context, collection common.Address, limit int32) ([]*big.Int, error) {
	rows, err := r.queryable().Query(ctx, `
		SELECT DISTINCT token_id
		FROM mint_descriptors
		WHERE collection = $1 AND token_id <> ''
		ORDER BY token_id::numeric ASC
		LIMIT $2`,
		addressToDb(collection), limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "error during query")
	}
	defer rows.Close()

	tokenIds := make([]*big.Int, 0)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, errors.Wrap(err, "error during scan")
		}
		tokenId, err := tokenIdFromDb(raw)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		tokenIds = append(tokenIds, tokenId)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error during iteration")
	}
	return tokenIds, nil
}

func (r *Repository) GetCollectionsWithOpenMints(ctx context.Context, limit int32) ([]common.Address, error) {
	rows, err := r.queryable().Query(ctx, `
		SELECT DISTINCT collection
		FROM mint_descriptors
		WHERE status = $1
		LIMIT $2`,
		string(entity.MintStatusOpen), limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "error during query")
	}
	defer rows.Close()

	collections, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, errors.Wrap(err, "error during collect")
	}
	out := make([]common.Address, 0, len(collections))
	for _, raw := range collections {
		out = append(out, common.HexToAddress(raw))
	}
	return out, nil
}

// itoa numbers the dynamically appended placeholders; the filter list is
// short so two digits suffice.
func itoa(n int) string {
	if n < 10 {
		return string(rune('0' + n))
	}
	return string(rune('0'+n/10)) + string(rune('0'+n%10))
}
