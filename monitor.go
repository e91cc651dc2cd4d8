package oceansdk

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/oceanprotocol/ocean-sdk-go/chain"
)

const (
	defaultPollInterval = 5 * time.Second
	eventBufferSize     = 64
)

// Event kinds the monitor can watch.
const (
	EventOrderStarted = "OrderStarted"
	EventOrderReused  = "OrderReused"
	EventSwapped      = "Swapped"
)

// MonitoredEvent is one decoded contract event delivered to a subscriber.
type MonitoredEvent struct {
	Kind        string
	Contract    common.Address
	TxHash      common.Hash
	BlockNumber uint64
	// Args hold the decoded event arguments keyed by ABI name.
	Args map[string]interface{}
}

type subscription struct {
	kind      string
	contracts []common.Address
	ch        chan MonitoredEvent
	// closed is guarded by the monitor mutex; once set, ch is closed and
	// must never be sent on again.
	closed bool
}

// EventMonitor polls the chain's logs for order and swap events on
// registered contracts and fans decoded events out to subscribers. Each
// subscription owns a buffered channel; a slow consumer drops events rather
// than stalling the poll loop.
type EventMonitor struct {
	caller   *chain.ContractCaller
	interval time.Duration
	log      *zap.Logger

	mu        sync.RWMutex
	subs      map[int]*subscription
	nextSubID int
	running   bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewEventMonitor creates a monitor; Start begins polling.
func NewEventMonitor(caller *chain.ContractCaller, interval time.Duration, log *zap.Logger) *EventMonitor {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &EventMonitor{
		caller:   caller,
		interval: interval,
		log:      log,
		subs:     make(map[int]*subscription),
	}
}

// Subscribe registers interest in one event kind on the given contracts and
// returns the delivery channel plus a cancel function. The channel closes
// when the subscription is cancelled or the monitor stops.
func (m *EventMonitor) Subscribe(kind string, contracts ...common.Address) (<-chan MonitoredEvent, func(), error) {
	if _, _, err := eventABI(kind); err != nil {
		return nil, nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSubID
	m.nextSubID++
	sub := &subscription{
		kind:      kind,
		contracts: contracts,
		ch:        make(chan MonitoredEvent, eventBufferSize),
	}
	m.subs[id] = sub

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if s, ok := m.subs[id]; ok {
			delete(m.subs, id)
			s.closed = true
			close(s.ch)
		}
	}
	return sub.ch, cancel, nil
}

// Start launches the poll loop. It returns immediately; the loop stops when
// ctx is cancelled or Stop is called.
func (m *EventMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("event monitor already running")
	}
	loopCtx, cancel := context.WithCancel(ctx)
	m.running = true
	m.cancel = cancel
	m.done = make(chan struct{})
	m.mu.Unlock()

	go m.pollLoop(loopCtx)
	return nil
}

// Stop halts polling and closes every subscription channel.
func (m *EventMonitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.cancel()
	done := m.done
	for id, sub := range m.subs {
		delete(m.subs, id)
		sub.closed = true
		close(sub.ch)
	}
	m.mu.Unlock()

	<-done
}

func (m *EventMonitor) pollLoop(ctx context.Context) {
	defer close(m.done)

	lastBlock, err := m.caller.BlockNumber(ctx)
	if err != nil {
		m.log.Warn("failed to read head block, starting from zero", zap.Error(err))
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		head, err := m.caller.BlockNumber(ctx)
		if err != nil {
			m.log.Warn("failed to read head block", zap.Error(err))
			continue
		}
		if head <= lastBlock {
			continue
		}

		m.poll(ctx, lastBlock+1, head)
		lastBlock = head
	}
}

// poll fetches and dispatches logs for every live subscription in one block
// window.
func (m *EventMonitor) poll(ctx context.Context, from, to uint64) {
	m.mu.RLock()
	subs := make([]*subscription, 0, len(m.subs))
	for _, sub := range m.subs {
		subs = append(subs, sub)
	}
	m.mu.RUnlock()

	for _, sub := range subs {
		event, cabi, err := eventABI(sub.kind)
		if err != nil {
			continue
		}

		logs, err := m.caller.FilterLogs(ctx, ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(from),
			ToBlock:   new(big.Int).SetUint64(to),
			Addresses: sub.contracts,
			Topics:    [][]common.Hash{{event.ID}},
		})
		if err != nil {
			m.log.Warn("log filter failed",
				zap.String("event", sub.kind),
				zap.Error(err))
			continue
		}

		for i := range logs {
			m.dispatch(sub, cabi, &logs[i])
		}
	}
}

func (m *EventMonitor) dispatch(sub *subscription, cabi *abi.ABI, lg *types.Log) {
	receipt := &types.Receipt{TxHash: lg.TxHash, Logs: []*types.Log{lg}}
	args, err := m.caller.DecodeEvent(cabi, receipt, sub.kind)
	if err != nil {
		m.log.Warn("failed to decode event",
			zap.String("event", sub.kind),
			zap.String("tx", lg.TxHash.Hex()),
			zap.Error(err))
		return
	}

	ev := MonitoredEvent{
		Kind:        sub.kind,
		Contract:    lg.Address,
		TxHash:      lg.TxHash,
		BlockNumber: lg.BlockNumber,
		Args:        args,
	}

	// The send must hold the lock: Stop and cancel close sub.ch under the
	// write lock after setting closed, so checking closed here makes a send
	// on a closed channel impossible.
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sub.closed {
		return
	}

	select {
	case sub.ch <- ev:
	default:
		m.log.Warn("subscriber buffer full, dropping event",
			zap.String("event", sub.kind),
			zap.String("tx", lg.TxHash.Hex()))
	}
}

// eventABI maps an event kind to its defining ABI.
func eventABI(kind string) (*abi.Event, *abi.ABI, error) {
	var cabi *abi.ABI
	switch kind {
	case EventOrderStarted, EventOrderReused:
		cabi = chain.DatatokenABI()
	case EventSwapped:
		cabi = chain.FixedRateABI()
	default:
		return nil, nil, fmt.Errorf("unknown event kind %q", kind)
	}
	event, ok := cabi.Events[kind]
	if !ok {
		return nil, nil, fmt.Errorf("event %s not in ABI", kind)
	}
	return &event, cabi, nil
}
