package oceansdk

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanprotocol/ocean-sdk-go/chain"
)

// monitorBackend is a minimal chain.Backend for monitor tests: only the log
// filtering half is exercised.
type monitorBackend struct {
	mu       sync.Mutex
	blockNum uint64
	logs     []types.Log
}

func (b *monitorBackend) advance(logs ...types.Log) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blockNum++
	b.logs = logs
}

func (b *monitorBackend) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	return nil, nil
}

func (b *monitorBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return 0, nil
}

func (b *monitorBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (b *monitorBackend) SendTransaction(context.Context, *types.Transaction) error {
	return nil
}

func (b *monitorBackend) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	return nil, nil
}

func (b *monitorBackend) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (b *monitorBackend) FilterLogs(context.Context, ethereum.FilterQuery) ([]types.Log, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]types.Log(nil), b.logs...), nil
}

func (b *monitorBackend) BlockNumber(context.Context) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.blockNum, nil
}

func orderStartedLog(t *testing.T, datatoken, consumer common.Address) types.Log {
	t.Helper()
	event := chain.DatatokenABI().Events["OrderStarted"]
	data, err := event.Inputs.NonIndexed().Pack(
		consumer, big.NewInt(1), big.NewInt(0), big.NewInt(1_700_000_000), big.NewInt(5))
	require.NoError(t, err)
	return types.Log{
		Address: datatoken,
		Topics: []common.Hash{
			event.ID,
			common.BytesToHash(consumer.Bytes()),
			common.BytesToHash(common.Address{}.Bytes()),
		},
		Data:        data,
		TxHash:      common.HexToHash("0xfeed"),
		BlockNumber: 2,
	}
}

func newMonitorCaller(t *testing.T, backend chain.Backend) *chain.ContractCaller {
	t.Helper()
	key, err := crypto.HexToECDSA("59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d")
	require.NoError(t, err)
	return chain.NewContractCallerWithBackend(backend, key, big.NewInt(8996), time.Second, nil)
}

func TestEventMonitorDeliversOrderStarted(t *testing.T) {
	datatoken := common.HexToAddress("0x1111111111111111111111111111111111111111")
	consumer := common.HexToAddress("0x2222222222222222222222222222222222222222")

	backend := &monitorBackend{blockNum: 1}
	monitor := NewEventMonitor(newMonitorCaller(t, backend), 10*time.Millisecond, nil)

	events, cancel, err := monitor.Subscribe(EventOrderStarted, datatoken)
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, monitor.Start(context.Background()))
	defer monitor.Stop()

	// Let the poll loop record its starting block before new logs appear.
	time.Sleep(50 * time.Millisecond)
	backend.advance(orderStartedLog(t, datatoken, consumer))

	select {
	case ev := <-events:
		assert.Equal(t, EventOrderStarted, ev.Kind)
		assert.Equal(t, datatoken, ev.Contract)
		assert.Equal(t, consumer, ev.Args["consumer"])
		assert.Equal(t, 0, ev.Args["amount"].(*big.Int).Cmp(big.NewInt(1)))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event delivery")
	}
}

func TestEventMonitorUnknownKind(t *testing.T) {
	monitor := NewEventMonitor(newMonitorCaller(t, &monitorBackend{}), time.Millisecond, nil)
	_, _, err := monitor.Subscribe("NoSuchEvent")
	require.Error(t, err)
}

func TestEventMonitorCancelClosesChannel(t *testing.T) {
	monitor := NewEventMonitor(newMonitorCaller(t, &monitorBackend{blockNum: 1}), 10*time.Millisecond, nil)

	events, cancel, err := monitor.Subscribe(EventSwapped)
	require.NoError(t, err)

	cancel()
	_, open := <-events
	assert.False(t, open)
}

// blockingFilterBackend parks FilterLogs until released, so a test can stop
// the monitor while a poll is in flight.
type blockingFilterBackend struct {
	monitorBackend
	entered chan struct{}
	release chan struct{}
	result  []types.Log
}

func (b *blockingFilterBackend) FilterLogs(context.Context, ethereum.FilterQuery) ([]types.Log, error) {
	select {
	case b.entered <- struct{}{}:
	default:
	}
	<-b.release
	return append([]types.Log(nil), b.result...), nil
}

func TestEventMonitorStopDuringInFlightPoll(t *testing.T) {
	datatoken := common.HexToAddress("0x1111111111111111111111111111111111111111")
	consumer := common.HexToAddress("0x2222222222222222222222222222222222222222")

	backend := &blockingFilterBackend{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
		result:  []types.Log{orderStartedLog(t, datatoken, consumer)},
	}
	monitor := NewEventMonitor(newMonitorCaller(t, backend), 10*time.Millisecond, nil)

	events, _, err := monitor.Subscribe(EventOrderStarted, datatoken)
	require.NoError(t, err)
	require.NoError(t, monitor.Start(context.Background()))

	// Let the poll loop record its starting block before new logs appear.
	time.Sleep(50 * time.Millisecond)
	backend.advance()
	<-backend.entered

	// The subscription channel is closed while the poll is parked inside
	// FilterLogs; releasing the poll must not send on the closed channel.
	stopped := make(chan struct{})
	go func() {
		monitor.Stop()
		close(stopped)
	}()
	time.Sleep(50 * time.Millisecond)
	close(backend.release)

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Stop to return")
	}
	_, open := <-events
	assert.False(t, open)
}

func TestEventMonitorStopClosesSubscriptions(t *testing.T) {
	monitor := NewEventMonitor(newMonitorCaller(t, &monitorBackend{blockNum: 1}), 10*time.Millisecond, nil)

	events, _, err := monitor.Subscribe(EventOrderReused)
	require.NoError(t, err)

	require.NoError(t, monitor.Start(context.Background()))
	monitor.Stop()

	_, open := <-events
	assert.False(t, open)
}
