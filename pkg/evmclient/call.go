package evmclient

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Call performs a read-only contract call against the given ABI method and
// returns the decoded outputs. A revert or a decode failure is returned as an
// error; callers probing for optional protocol surfaces are expected to treat
// it as absence of that surface.
func Call(ctx context.Context, client Contract, to common.Address, contractAbi abi.ABI, method string, args ...any) ([]any, error) {
	m, ok := contractAbi.Methods[method]
	if !ok {
		return nil, errors.Errorf("method %q not found in abi", method)
	}
	input, err := contractAbi.Pack(method, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to pack %q call", method)
	}
	output, err := client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "%q call to %s failed", method, to)
	}
	if len(output) == 0 {
		// eth_call against an address with no code returns 0x, not an error
		return nil, errors.Errorf("%q call to %s returned no data", method, to)
	}
	results, err := m.Outputs.Unpack(output)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to unpack %q output", method)
	}
	return results, nil
}
