package extractor

import (
	"context"
	"math/big"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/minterscan/mint-indexer/modules/mints/entity"
	"github.com/minterscan/mint-indexer/pkg/decimals"
	"github.com/minterscan/mint-indexer/pkg/httpclient"
)

const infoValuePremint = "premint"

type zoraPremintResponse struct {
	Premints []struct {
		TokenId   string `json:"tokenId"`
		Price     string `json:"price"`
		SaleStart int64  `json:"saleStart"`
		SaleEnd   int64  `json:"saleEnd"`
	} `json:"premints"`
}

var _ PremintDiscoverer = (*ZoraExtractor)(nil)

// DiscoverPremints queries the premint api for offline-signed mint configs of
// the collection that have not been brought on-chain yet. Premint descriptors
// carry no transaction template: the first mint requires the signed premint
// payload itself, which only the premint api holds.
func (e *ZoraExtractor) DiscoverPremints(ctx context.Context, collection common.Address) ([]*entity.MintDescriptor, error) {
	if e.premintApi == nil {
		return nil, nil
	}
	resp, err := e.premintApi.Get(ctx, "/premints/"+collection.Hex(), httpclient.RequestOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "can't fetch premints for %s", collection)
	}
	if resp.StatusCode() == 404 {
		return nil, nil
	}
	if resp.StatusCode() != 200 {
		return nil, errors.Errorf("unexpected status %d fetching premints for %s", resp.StatusCode(), collection)
	}
	var payload zoraPremintResponse
	if err := resp.UnmarshalBody(&payload); err != nil {
		return nil, errors.Wrapf(err, "unrecognized premint payload for %s", collection)
	}

	now := time.Now()
	descriptors := make([]*entity.MintDescriptor, 0, len(payload.Premints))
	for _, premint := range payload.Premints {
		tokenId, ok := new(big.Int).SetString(premint.TokenId, 10)
		if !ok {
			return nil, errors.Errorf("invalid premint token id %q for %s", premint.TokenId, collection)
		}
		price, ok := new(big.Int).SetString(premint.Price, 10)
		if !ok {
			return nil, errors.Errorf("invalid premint price %q for %s", premint.Price, collection)
		}

		d := e.base1155Descriptor(collection, tokenId, entity.MintStagePublicSale, entity.MintKindPublic, now)
		d.Price = price
		d.PriceDecimal = decimals.FromBaseUnits(price, decimals.NativeDecimals)
		if premint.SaleStart > 0 {
			start := time.Unix(premint.SaleStart, 0)
			d.StartTime = &start
		}
		if premint.SaleEnd > 0 {
			end := time.Unix(premint.SaleEnd, 0)
			d.EndTime = &end
		}
		d.Details = entity.MintDetails{
			Info: map[string]string{infoKeyStrategy: infoValuePremint},
		}
		d.Status, d.StatusReason = Classify(d, now, Counters{})
		descriptors = append(descriptors, d)
	}
	return descriptors, nil
}
