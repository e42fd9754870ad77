package extractor

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/minterscan/mint-indexer/pkg/httpclient"
)

// AddressListFetcher resolves an off-chain allowlist URI (as published by the
// sale contract) into the list of allowlisted addresses.
type AddressListFetcher interface {
	FetchAddresses(ctx context.Context, uri string) ([]common.Address, error)
}

const DefaultIpfsGateway = "https://ipfs.io"

type UriFetcher struct {
	ipfsGateway string
}

func NewUriFetcher(ipfsGateway string) *UriFetcher {
	if ipfsGateway == "" {
		ipfsGateway = DefaultIpfsGateway
	}
	return &UriFetcher{ipfsGateway: strings.TrimSuffix(ipfsGateway, "/")}
}

// FetchAddresses fetches the allowlist payload behind uri and parses it.
// Accepts either a bare JSON array of addresses or an object with an
// "addresses" field, both formats seen in the wild. Entries that are not
// valid hex addresses fail the whole fetch rather than being skipped, since a
// partial list would recompute to a different merkle root anyway.
func (f *UriFetcher) FetchAddresses(ctx context.Context, uri string) ([]common.Address, error) {
	if cid, ok := strings.CutPrefix(uri, "ipfs://"); ok {
		uri = f.ipfsGateway + "/ipfs/" + cid
	}
	client, err := httpclient.New(uri)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid allowlist uri %q", uri)
	}
	resp, err := client.Get(ctx, "", httpclient.RequestOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "can't fetch allowlist from %q", uri)
	}
	if resp.StatusCode() != 200 {
		return nil, errors.Errorf("unexpected status %d fetching allowlist from %q", resp.StatusCode(), uri)
	}

	var raw []string
	if err := resp.UnmarshalBody(&raw); err != nil {
		var wrapped struct {
			Addresses []string `json:"addresses"`
		}
		if err := resp.UnmarshalBody(&wrapped); err != nil {
			return nil, errors.Wrapf(err, "unrecognized allowlist payload from %q", uri)
		}
		raw = wrapped.Addresses
	}

	addresses := make([]common.Address, 0, len(raw))
	for _, s := range raw {
		if !common.IsHexAddress(s) {
			return nil, errors.Errorf("invalid address %q in allowlist from %q", s, uri)
		}
		addresses = append(addresses, common.HexToAddress(s))
	}
	return addresses, nil
}
