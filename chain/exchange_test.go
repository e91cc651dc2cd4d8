package chain

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testExchangeID = [32]byte{0xab, 0xcd}

func newTestExchange(t *testing.T, backend *fakeBackend) *OneExchange {
	t.Helper()
	return NewOneExchange(newTestCaller(t, backend), frAddr, testExchangeID, nil)
}

func TestExchangeDetailsParsing(t *testing.T) {
	rate := new(big.Int).Mul(oneWholeToken, big.NewInt(3))

	backend := newFakeBackend()
	backend.stubAt(t, frAddr, FixedRateABI(), "getExchange",
		ownAddr, dtAddr, uint8(18), btAddr, uint8(6), rate, true,
		oneWholeToken, big.NewInt(500), big.NewInt(7), big.NewInt(8), true)

	details, err := newTestExchange(t, backend).Details(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ownAddr, details.Owner)
	assert.Equal(t, dtAddr, details.Datatoken)
	assert.Equal(t, uint8(18), details.DtDecimals)
	assert.Equal(t, btAddr, details.BaseToken)
	assert.Equal(t, uint8(6), details.BtDecimals)
	assert.Equal(t, 0, details.FixedRate.Cmp(rate))
	assert.True(t, details.Active)
	assert.True(t, details.WithMint)
}

func TestExchangeFeesInfoParsing(t *testing.T) {
	backend := newFakeBackend()
	backend.stubAt(t, frAddr, FixedRateABI(), "getFeesInfo",
		big.NewInt(100), ownAddr, big.NewInt(10), big.NewInt(7), big.NewInt(3))

	fees, err := newTestExchange(t, backend).FeesInfo(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(100), fees.MarketFee.Int64())
	assert.Equal(t, ownAddr, fees.MarketFeeCollector)
	assert.Equal(t, int64(10), fees.OpcFee.Int64())
	assert.Equal(t, int64(7), fees.MarketFeeAvailable.Int64())
	assert.Equal(t, int64(3), fees.OceanFeeAvailable.Int64())
}

func TestQuoteBreakdownComposition(t *testing.T) {
	// The contract's total already includes every fee component; the
	// breakdown lets callers verify the composition.
	total := big.NewInt(1_060)
	ocean := big.NewInt(10)
	publish := big.NewInt(20)
	consume := big.NewInt(30)
	net := big.NewInt(1_000)

	backend := newFakeBackend()
	backend.stubAt(t, frAddr, FixedRateABI(), "calcBaseInGivenOutDT", total, ocean, publish, consume)

	q, err := newTestExchange(t, backend).BtNeededBreakdown(context.Background(), oneWholeToken, consume)
	require.NoError(t, err)

	sum := new(big.Int).Add(net, ocean)
	sum.Add(sum, publish)
	sum.Add(sum, consume)
	assert.Equal(t, 0, q.BaseTokenAmount.Cmp(sum))
	assert.Equal(t, 0, q.OceanFeeAmount.Cmp(ocean))
	assert.Equal(t, 0, q.PublishMarketFeeAmount.Cmp(publish))
	assert.Equal(t, 0, q.ConsumeMarketFeeAmount.Cmp(consume))
}

func TestBuyDtPacksSlippageCeiling(t *testing.T) {
	needed := big.NewInt(5_000)
	ceiling := big.NewInt(6_000)

	backend := newFakeBackend()
	backend.stubAt(t, frAddr, FixedRateABI(), "getExchange",
		ownAddr, dtAddr, uint8(18), btAddr, uint8(18), oneWholeToken, true,
		oneWholeToken, big.NewInt(0), big.NewInt(0), big.NewInt(0), false)
	backend.stubAt(t, frAddr, FixedRateABI(), "calcBaseInGivenOutDT",
		needed, big.NewInt(0), big.NewInt(0), big.NewInt(0))
	backend.stubAt(t, btAddr, ERC20ABI(), "balanceOf", big.NewInt(10_000))

	_, err := newTestExchange(t, backend).BuyDt(context.Background(), oneWholeToken, SwapOpts{
		MaxBaseTokenAmount: ceiling,
	})
	require.NoError(t, err)

	sent := backend.sentTxs()
	require.Len(t, sent, 1)

	method := FixedRateABI().Methods["buyDT"]
	args, err := method.Inputs.Unpack(sent[0].Data()[4:])
	require.NoError(t, err)
	require.Len(t, args, 5)
	assert.Equal(t, testExchangeID, args[0].([32]byte))
	assert.Equal(t, 0, args[1].(*big.Int).Cmp(oneWholeToken))
	assert.Equal(t, 0, args[2].(*big.Int).Cmp(ceiling))
}

func TestBuyDtInsufficientBaseBalance(t *testing.T) {
	backend := newFakeBackend()
	backend.stubAt(t, frAddr, FixedRateABI(), "getExchange",
		ownAddr, dtAddr, uint8(18), btAddr, uint8(18), oneWholeToken, true,
		oneWholeToken, big.NewInt(0), big.NewInt(0), big.NewInt(0), false)
	backend.stubAt(t, frAddr, FixedRateABI(), "calcBaseInGivenOutDT",
		big.NewInt(5_000), big.NewInt(0), big.NewInt(0), big.NewInt(0))
	backend.stubAt(t, btAddr, ERC20ABI(), "balanceOf", big.NewInt(100))

	_, err := newTestExchange(t, backend).BuyDt(context.Background(), oneWholeToken, SwapOpts{})

	var balErr *InsufficientBalanceError
	require.ErrorAs(t, err, &balErr)
	assert.Empty(t, backend.sentTxs())
}

func TestSellDtDefaultsFloorToZero(t *testing.T) {
	backend := newFakeBackend()
	backend.stubAt(t, frAddr, FixedRateABI(), "getExchange",
		ownAddr, dtAddr, uint8(18), btAddr, uint8(18), oneWholeToken, true,
		oneWholeToken, big.NewInt(0), big.NewInt(0), big.NewInt(0), false)
	backend.stubAt(t, dtAddr, ERC20ABI(), "balanceOf", oneWholeToken)

	_, err := newTestExchange(t, backend).SellDt(context.Background(), oneWholeToken, SwapOpts{})
	require.NoError(t, err)

	sent := backend.sentTxs()
	require.Len(t, sent, 1)

	method := FixedRateABI().Methods["sellDT"]
	args, err := method.Inputs.Unpack(sent[0].Data()[4:])
	require.NoError(t, err)
	assert.Equal(t, 0, args[2].(*big.Int).Sign())
}

func TestOwnerGuardRejectsNonOwnerLocally(t *testing.T) {
	backend := newFakeBackend()
	// ownAddr differs from the test signer.
	backend.stubAt(t, frAddr, FixedRateABI(), "getExchange",
		ownAddr, dtAddr, uint8(18), btAddr, uint8(18), oneWholeToken, true,
		oneWholeToken, big.NewInt(0), big.NewInt(0), big.NewInt(0), false)

	ex := newTestExchange(t, backend)
	_, err := ex.SetRate(context.Background(), big.NewInt(42), TxOpts{})

	var permErr *PermissionDeniedError
	require.ErrorAs(t, err, &permErr)
	assert.Equal(t, "setRate", permErr.Op)
	assert.Equal(t, ownAddr, permErr.Owner)
	assert.Empty(t, backend.sentTxs())
}

func TestCollectOperationsNeedNoOwner(t *testing.T) {
	backend := newFakeBackend()

	ex := newTestExchange(t, backend)
	_, err := ex.CollectBt(context.Background(), big.NewInt(100), TxOpts{})
	require.NoError(t, err)
	require.Len(t, backend.sentTxs(), 1)
}

func TestDecodeSwappedEvent(t *testing.T) {
	cabi := FixedRateABI()
	event := cabi.Events["Swapped"]

	data, err := event.Inputs.NonIndexed().Pack(
		btAddr, big.NewInt(3_000), oneWholeToken, big.NewInt(30), big.NewInt(15), big.NewInt(5))
	require.NoError(t, err)

	lg := &types.Log{
		Address: frAddr,
		Topics: []common.Hash{
			event.ID,
			common.Hash(testExchangeID),
			common.BytesToHash(ownAddr.Bytes()),
		},
		Data: data,
	}
	receipt := &types.Receipt{TxHash: common.HexToHash("0xdead"), Logs: []*types.Log{lg}}

	caller := newTestCaller(t, newFakeBackend())
	decoded, err := caller.DecodeEvent(cabi, receipt, "Swapped")
	require.NoError(t, err)

	assert.Equal(t, ownAddr, decoded["by"])
	assert.Equal(t, btAddr, decoded["tokenOutAddress"])
	assert.Equal(t, 0, decoded["baseTokenSwappedAmount"].(*big.Int).Cmp(big.NewInt(3_000)))
	assert.Equal(t, 0, decoded["datatokenSwappedAmount"].(*big.Int).Cmp(oneWholeToken))
}
