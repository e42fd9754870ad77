package extractor

import (
	"context"
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/minterscan/mint-indexer/modules/mints/entity"
	"github.com/minterscan/mint-indexer/pkg/httpclient"
)

type zoraAllowlistResponse struct {
	Entries []struct {
		User       string `json:"user"`
		Price      string `json:"price"`
		MaxCanMint int64  `json:"maxCanMint"`
	} `json:"entries"`
}

// fetchAllowlist loads the allowlist behind root from the allowlist api,
// verifies it against the on-chain root, persists it on first sight and
// returns the items. mintFee is the protocol fee charged on top of each
// entry's price and is baked into the stored ActualPrice.
func (e *ZoraExtractor) fetchAllowlist(ctx context.Context, root common.Hash, mintFee *big.Int) ([]*entity.AllowlistItem, error) {
	exists, err := e.allowlists.Exists(ctx, root)
	if err != nil {
		return nil, err
	}
	if exists {
		return e.allowlists.Get(ctx, root)
	}

	resp, err := e.allowlistApi.Get(ctx, "/allowlist/"+root.Hex(), httpclient.RequestOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "can't fetch allowlist %s", root)
	}
	if resp.StatusCode() != 200 {
		return nil, errors.Errorf("unexpected status %d fetching allowlist %s", resp.StatusCode(), root)
	}
	var payload zoraAllowlistResponse
	if err := resp.UnmarshalBody(&payload); err != nil {
		return nil, errors.Wrapf(err, "unrecognized allowlist payload for %s", root)
	}

	items := make([]*entity.AllowlistItem, 0, len(payload.Entries))
	for _, entry := range payload.Entries {
		if !common.IsHexAddress(entry.User) {
			return nil, errors.Errorf("invalid address %q in allowlist %s", entry.User, root)
		}
		price, ok := new(big.Int).SetString(entry.Price, 10)
		if !ok {
			return nil, errors.Errorf("invalid price %q in allowlist %s", entry.Price, root)
		}
		actualPrice := new(big.Int).Set(price)
		if mintFee != nil {
			actualPrice.Add(actualPrice, mintFee)
		}
		items = append(items, &entity.AllowlistItem{
			Address:     common.HexToAddress(entry.User),
			Price:       price,
			ActualPrice: actualPrice,
			MaxMints:    big.NewInt(entry.MaxCanMint),
		})
	}

	if err := e.allowlists.Create(ctx, root, items); err != nil {
		return nil, err
	}
	return items, nil
}

// uniformEntryValues reports the per-entry price and mint cap when every entry
// shares them. The mint calldata passes these values next to the proof, so a
// template can only be prepared when they are uniform across the list.
func uniformEntryValues(items []*entity.AllowlistItem) (price, maxMints *big.Int, ok bool) {
	if len(items) == 0 {
		return nil, nil, false
	}
	price, maxMints = items[0].Price, items[0].MaxMints
	if price == nil || maxMints == nil {
		return nil, nil, false
	}
	for _, item := range items[1:] {
		if item.Price == nil || item.Price.Cmp(price) != 0 {
			return nil, nil, false
		}
		if item.MaxMints == nil || item.MaxMints.Cmp(maxMints) != 0 {
			return nil, nil, false
		}
	}
	return price, maxMints, true
}
