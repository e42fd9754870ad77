package extractor

import (
	"context"
	"math/big"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// fakeChain serves canned eth_call responses keyed by target address and
// 4-byte selector. Unregistered calls return 0x, which is what a node returns
// for a call against an address without the method's code path.
type fakeChain struct {
	head     uint64
	handlers map[string]func(input []byte) ([]byte, error)
	logs     []types.Log
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		head:     20_000_000,
		handlers: make(map[string]func(input []byte) ([]byte, error)),
	}
}

func callKey(to common.Address, selector []byte) string {
	return to.Hex() + "|" + hexutil.Encode(selector)
}

// ret registers a fixed return value for a contract method.
func (f *fakeChain) ret(to common.Address, contractAbi abi.ABI, method string, outputs ...any) {
	data := utils.Must(contractAbi.Methods[method].Outputs.Pack(outputs...))
	f.handlers[callKey(to, contractAbi.Methods[method].ID)] = func([]byte) ([]byte, error) {
		return data, nil
	}
}

func (f *fakeChain) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if msg.To == nil || len(msg.Data) < 4 {
		return nil, errors.New("malformed call")
	}
	handler, ok := f.handlers[callKey(*msg.To, msg.Data[:4])]
	if !ok {
		return []byte{}, nil
	}
	return handler(msg.Data[4:])
}

func (f *fakeChain) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return []byte{0x60}, nil
}

func (f *fakeChain) FilterLogs(context.Context, ethereum.FilterQuery) ([]types.Log, error) {
	return f.logs, nil
}

func (f *fakeChain) BlockNumber(context.Context) (uint64, error) {
	return f.head, nil
}

func (f *fakeChain) TransactionByHash(context.Context, common.Hash) (*types.Transaction, bool, error) {
	return nil, false, errors.New("not found")
}

type fakeFetcher struct {
	addresses []common.Address
	err       error

	lastUri string
}

func (f *fakeFetcher) FetchAddresses(_ context.Context, uri string) ([]common.Address, error) {
	f.lastUri = uri
	return f.addresses, f.err
}

func testAddresses(n int) []common.Address {
	addresses := make([]common.Address, n)
	for i := range addresses {
		addresses[i][19] = byte(i + 1)
	}
	return addresses
}
