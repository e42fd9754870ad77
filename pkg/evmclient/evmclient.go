package evmclient

import (
	"context"
	"math/big"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/minterscan/mint-indexer/pkg/logger"
	"github.com/minterscan/mint-indexer/pkg/logger/slogx"
)

// Contract is the read-only chain access required by the mints module.
// *ethclient.Client satisfies it; tests provide fakes.
type Contract interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	BlockNumber(ctx context.Context) (uint64, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
}

var _ Contract = (*ethclient.Client)(nil)

type Config struct {
	URL string `mapstructure:"url"`
}

// Dial connects to an EVM JSON-RPC endpoint and verifies the connection.
func Dial(ctx context.Context, conf Config) (*ethclient.Client, error) {
	if conf.URL == "" {
		return nil, errors.New("evm node url is required")
	}

	start := time.Now()
	client, err := ethclient.DialContext(ctx, conf.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "can't connect to EVM node %q", conf.URL)
	}
	chainId, err := client.ChainID(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "can't query chain id from EVM node %q", conf.URL)
	}
	logger.InfoContext(ctx, "Connected to EVM node",
		slogx.String("url", conf.URL),
		slogx.Stringer("chain_id", chainId),
		slogx.Duration("latency", time.Since(start)),
	)
	return client, nil
}
