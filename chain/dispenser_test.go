package chain

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispenserStatusParsing(t *testing.T) {
	backend := newFakeBackend()
	backend.stub(t, DispenserABI(), "status",
		true, ownAddr, true, oneWholeToken, big.NewInt(500), big.NewInt(7), common.Address{})

	d := NewDispenser(newTestCaller(t, backend), dispAddr, nil)
	status, err := d.Status(context.Background(), dtAddr)
	require.NoError(t, err)

	assert.True(t, status.Active)
	assert.Equal(t, ownAddr, status.Owner)
	assert.True(t, status.IsMinter)
	assert.Equal(t, 0, status.MaxTokens.Cmp(oneWholeToken))
	assert.Equal(t, int64(500), status.MaxBalance.Int64())
	assert.Equal(t, int64(7), status.Balance.Int64())
	assert.True(t, status.Configured())
	assert.True(t, status.AllowsAnyone())
}

func TestDispenserAllowedSwapperSentinel(t *testing.T) {
	// The zero address is the "anyone" sentinel and must be compared by
	// address equality.
	status := DispenserStatus{AllowedSwapper: common.Address{}}
	assert.True(t, status.AllowsAnyone())

	status.AllowedSwapper = ownAddr
	assert.False(t, status.AllowsAnyone())
}

func TestDispenserUnconfigured(t *testing.T) {
	status := DispenserStatus{}
	assert.False(t, status.Configured())
}

func TestDispenseSubmitsTransaction(t *testing.T) {
	backend := newFakeBackend()

	d := NewDispenser(newTestCaller(t, backend), dispAddr, nil)
	receipt, err := d.Dispense(context.Background(), dtAddr, oneWholeToken, ownAddr, TxOpts{})
	require.NoError(t, err)
	require.NotNil(t, receipt)

	sent := backend.sentTxs()
	require.Len(t, sent, 1)
	assert.Equal(t, dispAddr, *sent[0].To())
	assert.Equal(t, selectorOf(t, "dispense", "dispenser"), selectorKey(sent[0].Data()))
}
