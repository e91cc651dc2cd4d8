package chain

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

// Well-known throwaway test key.
const testKeyHex = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"

const testChainID = 8996

// fakeBackend satisfies Backend for unit tests. eth_call responses are keyed
// by the 4-byte method selector; transactions are recorded and confirmed
// immediately with a configurable status.
type fakeBackend struct {
	mu sync.Mutex

	callResults map[string][]byte
	callErrs    map[string]error

	sent          []*types.Transaction
	receiptStatus uint64
	receiptLogs   []*types.Log

	// revertReason is returned when a failed tx is replayed as a call
	// (the replay carries a From address, plain reads do not).
	revertReason string

	nativeBalance *big.Int
	blockNumber   uint64
	logs          []types.Log
	filterErr     error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		callResults:   make(map[string][]byte),
		callErrs:      make(map[string]error),
		receiptStatus: types.ReceiptStatusSuccessful,
		nativeBalance: new(big.Int).Exp(big.NewInt(10), big.NewInt(20), nil),
		blockNumber:   1,
	}
}

func selectorKey(data []byte) string {
	if len(data) < 4 {
		return ""
	}
	return hex.EncodeToString(data[:4])
}

// stub registers the packed outputs of one method as the eth_call response,
// regardless of target address.
func (b *fakeBackend) stub(t *testing.T, cabi *abi.ABI, method string, outputs ...interface{}) {
	t.Helper()
	b.register(t, "", cabi, method, outputs...)
}

// stubAt registers a response for one method on one contract address. It
// takes precedence over address-agnostic stubs, which matters when two
// contracts share a selector (every ERC20 read does).
func (b *fakeBackend) stubAt(t *testing.T, addr common.Address, cabi *abi.ABI, method string, outputs ...interface{}) {
	t.Helper()
	b.register(t, addr.Hex()+":", cabi, method, outputs...)
}

func (b *fakeBackend) register(t *testing.T, prefix string, cabi *abi.ABI, method string, outputs ...interface{}) {
	t.Helper()
	m, ok := cabi.Methods[method]
	require.True(t, ok, "method %s not in ABI", method)

	packed, err := m.Outputs.Pack(outputs...)
	require.NoError(t, err, "pack outputs of %s", method)

	b.mu.Lock()
	b.callResults[prefix+hex.EncodeToString(m.ID)] = packed
	b.mu.Unlock()
}

func (b *fakeBackend) stubErr(cabi *abi.ABI, method string, err error) {
	m := cabi.Methods[method]
	b.mu.Lock()
	b.callErrs[hex.EncodeToString(m.ID)] = err
	b.mu.Unlock()
}

func (b *fakeBackend) sentTxs() []*types.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*types.Transaction(nil), b.sent...)
}

func (b *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if msg.From != (common.Address{}) && b.revertReason != "" {
		return nil, fmt.Errorf("execution reverted: %s", b.revertReason)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	key := selectorKey(msg.Data)
	if err, ok := b.callErrs[key]; ok {
		return nil, err
	}
	if msg.To != nil {
		if result, ok := b.callResults[msg.To.Hex()+":"+key]; ok {
			return result, nil
		}
	}
	if result, ok := b.callResults[key]; ok {
		return result, nil
	}
	return nil, fmt.Errorf("no stub for selector %s", key)
}

func (b *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return uint64(len(b.sent)), nil
}

func (b *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (b *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, tx)
	return nil
}

func (b *fakeBackend) TransactionReceipt(_ context.Context, txHash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &types.Receipt{
		Status:      b.receiptStatus,
		TxHash:      txHash,
		BlockNumber: big.NewInt(int64(b.blockNumber)),
		Logs:        b.receiptLogs,
	}, nil
}

func (b *fakeBackend) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return new(big.Int).Set(b.nativeBalance), nil
}

func (b *fakeBackend) FilterLogs(context.Context, ethereum.FilterQuery) ([]types.Log, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.filterErr != nil {
		return nil, b.filterErr
	}
	return append([]types.Log(nil), b.logs...), nil
}

func (b *fakeBackend) BlockNumber(context.Context) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.blockNumber, nil
}

func newTestCaller(t *testing.T, backend Backend) *ContractCaller {
	t.Helper()
	key, err := crypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)
	return NewContractCallerWithBackend(backend, key, big.NewInt(testChainID), 2*time.Second, nil)
}
