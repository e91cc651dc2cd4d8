package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// ExchangeDetails is a point-in-time snapshot of one exchange. It is
// re-fetched on every read, never cached: the on-chain state may change
// between calls.
type ExchangeDetails struct {
	Owner      common.Address
	Datatoken  common.Address
	DtDecimals uint8
	BaseToken  common.Address
	BtDecimals uint8
	FixedRate  *big.Int
	Active     bool
	DtSupply   *big.Int
	BtSupply   *big.Int
	DtBalance  *big.Int
	BtBalance  *big.Int
	WithMint   bool
}

// ExchangeFeeInfo is the fee-side snapshot, same re-fetch-on-access rule.
type ExchangeFeeInfo struct {
	MarketFee          *big.Int
	MarketFeeCollector common.Address
	OpcFee             *big.Int
	MarketFeeAvailable *big.Int
	OceanFeeAvailable  *big.Int
}

// QuoteBreakdown is the on-chain quote for a swap, fee components included.
// The contract computes all of it; no client-side fee arithmetic is
// authoritative.
type QuoteBreakdown struct {
	BaseTokenAmount        *big.Int
	OceanFeeAmount         *big.Int
	PublishMarketFeeAmount *big.Int
	ConsumeMarketFeeAmount *big.Int
}

// SwapOpts carries the optional knobs of buy/sell operations.
type SwapOpts struct {
	// MaxBaseTokenAmount is the slippage ceiling for buys. Nil means
	// unbounded (MaxUint256).
	MaxBaseTokenAmount *big.Int
	// MinBaseTokenAmount is the slippage floor for sells. Nil means 0.
	MinBaseTokenAmount *big.Int
	// ConsumeMarketFeeAddress receives the consume-market swap fee.
	ConsumeMarketFeeAddress common.Address
	// ConsumeMarketSwapFee in base units of the base token.
	ConsumeMarketSwapFee *big.Int
	Tx                   TxOpts
}

func (o SwapOpts) swapFee() *big.Int {
	if o.ConsumeMarketSwapFee == nil {
		return big.NewInt(0)
	}
	return o.ConsumeMarketSwapFee
}

// OneExchange is one fixed-rate exchange instance. Its durable identity is
// the (exchange contract, 32-byte exchange id) pair; the id is derived
// on-chain at creation and only ever read back from the NewFixedRate event.
type OneExchange struct {
	caller       *ContractCaller
	exchangeAddr common.Address
	id           [32]byte
	log          *zap.Logger
}

// NewOneExchange binds an exchange instance.
func NewOneExchange(caller *ContractCaller, exchangeAddr common.Address, id [32]byte, log *zap.Logger) *OneExchange {
	if log == nil {
		log = zap.NewNop()
	}
	return &OneExchange{caller: caller, exchangeAddr: exchangeAddr, id: id, log: log}
}

// ID returns the 32-byte exchange id.
func (e *OneExchange) ID() [32]byte { return e.id }

// Address returns the FixedRateExchange contract address.
func (e *OneExchange) Address() common.Address { return e.exchangeAddr }

// Details fetches the current exchange snapshot.
func (e *OneExchange) Details(ctx context.Context) (*ExchangeDetails, error) {
	out, err := e.caller.Call(ctx, e.exchangeAddr, FixedRateABI(), "getExchange", e.id)
	if err != nil {
		return nil, err
	}
	return parseExchangeDetails(out)
}

func parseExchangeDetails(out []interface{}) (*ExchangeDetails, error) {
	if len(out) != 12 {
		return nil, fmt.Errorf("getExchange: expected 12 outputs, got %d", len(out))
	}
	return &ExchangeDetails{
		Owner:      out[0].(common.Address),
		Datatoken:  out[1].(common.Address),
		DtDecimals: out[2].(uint8),
		BaseToken:  out[3].(common.Address),
		BtDecimals: out[4].(uint8),
		FixedRate:  out[5].(*big.Int),
		Active:     out[6].(bool),
		DtSupply:   out[7].(*big.Int),
		BtSupply:   out[8].(*big.Int),
		DtBalance:  out[9].(*big.Int),
		BtBalance:  out[10].(*big.Int),
		WithMint:   out[11].(bool),
	}, nil
}

// FeesInfo fetches the current fee snapshot.
func (e *OneExchange) FeesInfo(ctx context.Context) (*ExchangeFeeInfo, error) {
	out, err := e.caller.Call(ctx, e.exchangeAddr, FixedRateABI(), "getFeesInfo", e.id)
	if err != nil {
		return nil, err
	}
	return parseExchangeFeeInfo(out)
}

func parseExchangeFeeInfo(out []interface{}) (*ExchangeFeeInfo, error) {
	if len(out) != 5 {
		return nil, fmt.Errorf("getFeesInfo: expected 5 outputs, got %d", len(out))
	}
	return &ExchangeFeeInfo{
		MarketFee:          out[0].(*big.Int),
		MarketFeeCollector: out[1].(common.Address),
		OpcFee:             out[2].(*big.Int),
		MarketFeeAvailable: out[3].(*big.Int),
		OceanFeeAvailable:  out[4].(*big.Int),
	}, nil
}

// AllowedSwapper returns the configured swapper restriction; the zero address
// means anyone may swap. Compare by address equality, not truthiness.
func (e *OneExchange) AllowedSwapper(ctx context.Context) (common.Address, error) {
	var swapper common.Address
	err := e.caller.CallInto(ctx, e.exchangeAddr, FixedRateABI(), &swapper, "getAllowedSwapper", e.id)
	return swapper, err
}

// BtNeeded quotes how many base-token units a buyer must supply for
// dtAmount datatokens, inclusive of protocol, publish-market and
// consume-market fees. The on-chain value is ground truth.
func (e *OneExchange) BtNeeded(ctx context.Context, dtAmount, consumeMarketSwapFee *big.Int) (*big.Int, error) {
	q, err := e.BtNeededBreakdown(ctx, dtAmount, consumeMarketSwapFee)
	if err != nil {
		return nil, err
	}
	return q.BaseTokenAmount, nil
}

// BtNeededBreakdown is BtNeeded with the full fee composition.
func (e *OneExchange) BtNeededBreakdown(ctx context.Context, dtAmount, consumeMarketSwapFee *big.Int) (*QuoteBreakdown, error) {
	return e.quote(ctx, "calcBaseInGivenOutDT", dtAmount, consumeMarketSwapFee)
}

// BtReceived quotes the base-token amount a seller receives for dtAmount
// datatokens, net of fees.
func (e *OneExchange) BtReceived(ctx context.Context, dtAmount, consumeMarketSwapFee *big.Int) (*big.Int, error) {
	q, err := e.BtReceivedBreakdown(ctx, dtAmount, consumeMarketSwapFee)
	if err != nil {
		return nil, err
	}
	return q.BaseTokenAmount, nil
}

// BtReceivedBreakdown is BtReceived with the full fee composition.
func (e *OneExchange) BtReceivedBreakdown(ctx context.Context, dtAmount, consumeMarketSwapFee *big.Int) (*QuoteBreakdown, error) {
	return e.quote(ctx, "calcBaseOutGivenInDT", dtAmount, consumeMarketSwapFee)
}

func (e *OneExchange) quote(ctx context.Context, method string, dtAmount, consumeMarketSwapFee *big.Int) (*QuoteBreakdown, error) {
	if consumeMarketSwapFee == nil {
		consumeMarketSwapFee = big.NewInt(0)
	}
	out, err := e.caller.Call(ctx, e.exchangeAddr, FixedRateABI(), method, e.id, dtAmount, consumeMarketSwapFee)
	if err != nil {
		return nil, err
	}
	return parseQuoteBreakdown(out)
}

func parseQuoteBreakdown(out []interface{}) (*QuoteBreakdown, error) {
	if len(out) != 4 {
		return nil, fmt.Errorf("swap quote: expected 4 outputs, got %d", len(out))
	}
	return &QuoteBreakdown{
		BaseTokenAmount:        out[0].(*big.Int),
		OceanFeeAmount:         out[1].(*big.Int),
		PublishMarketFeeAmount: out[2].(*big.Int),
		ConsumeMarketFeeAmount: out[3].(*big.Int),
	}, nil
}

// BuyDt swaps base tokens for dtAmount datatokens. The buyer's base-token
// balance is checked against the on-chain quote before submitting, so an
// underfunded buy fails locally instead of as an opaque revert. The
// MaxBaseTokenAmount ceiling protects against the rate moving between quote
// and submission.
func (e *OneExchange) BuyDt(ctx context.Context, dtAmount *big.Int, opts SwapOpts) (*types.Receipt, error) {
	details, err := e.Details(ctx)
	if err != nil {
		return nil, err
	}

	needed, err := e.BtNeeded(ctx, dtAmount, opts.swapFee())
	if err != nil {
		return nil, err
	}

	buyer := e.caller.SignerAddress()
	balance, err := NewERC20(e.caller, details.BaseToken).BalanceOf(ctx, buyer)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(needed) < 0 {
		return nil, &InsufficientBalanceError{
			Token:     details.BaseToken,
			Holder:    buyer,
			Needed:    needed,
			Available: balance,
		}
	}

	ceiling := opts.MaxBaseTokenAmount
	if ceiling == nil {
		ceiling = MaxUint256
	}

	e.log.Debug("buying datatokens",
		zap.String("exchange", common.Hash(e.id).Hex()),
		zap.String("dtAmount", dtAmount.String()),
		zap.String("btNeeded", needed.String()))

	return e.caller.Transact(ctx, e.exchangeAddr, FixedRateABI(), "buyDT", opts.Tx,
		e.id, dtAmount, ceiling, opts.ConsumeMarketFeeAddress, opts.swapFee())
}

// SellDt swaps dtAmount datatokens for base tokens, with the
// MinBaseTokenAmount floor as slippage protection.
func (e *OneExchange) SellDt(ctx context.Context, dtAmount *big.Int, opts SwapOpts) (*types.Receipt, error) {
	details, err := e.Details(ctx)
	if err != nil {
		return nil, err
	}

	seller := e.caller.SignerAddress()
	balance, err := NewERC20(e.caller, details.Datatoken).BalanceOf(ctx, seller)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(dtAmount) < 0 {
		return nil, &InsufficientBalanceError{
			Token:     details.Datatoken,
			Holder:    seller,
			Needed:    dtAmount,
			Available: balance,
		}
	}

	floor := opts.MinBaseTokenAmount
	if floor == nil {
		floor = big.NewInt(0)
	}

	return e.caller.Transact(ctx, e.exchangeAddr, FixedRateABI(), "sellDT", opts.Tx,
		e.id, dtAmount, floor, opts.ConsumeMarketFeeAddress, opts.swapFee())
}

// CollectBt sweeps accumulated base tokens to the datatoken's payment
// collector. The destination is fixed by contract state, so anyone may call.
// Collecting from an already-zero balance collects zero without error.
func (e *OneExchange) CollectBt(ctx context.Context, amount *big.Int, opts TxOpts) (*types.Receipt, error) {
	return e.caller.Transact(ctx, e.exchangeAddr, FixedRateABI(), "collectBT", opts, e.id, amount)
}

// CollectDt sweeps accumulated datatokens to the payment collector.
func (e *OneExchange) CollectDt(ctx context.Context, amount *big.Int, opts TxOpts) (*types.Receipt, error) {
	return e.caller.Transact(ctx, e.exchangeAddr, FixedRateABI(), "collectDT", opts, e.id, amount)
}

// CollectMarketFee sweeps the publish-market fee balance to its collector.
func (e *OneExchange) CollectMarketFee(ctx context.Context, opts TxOpts) (*types.Receipt, error) {
	return e.caller.Transact(ctx, e.exchangeAddr, FixedRateABI(), "collectMarketFee", opts, e.id)
}

// CollectOceanFee sweeps the protocol (OPC) fee balance to its collector.
func (e *OneExchange) CollectOceanFee(ctx context.Context, opts TxOpts) (*types.Receipt, error) {
	return e.caller.Transact(ctx, e.exchangeAddr, FixedRateABI(), "collectOceanFee", opts, e.id)
}

// SetRate changes the fixed rate. Owner only.
func (e *OneExchange) SetRate(ctx context.Context, newRate *big.Int, opts TxOpts) (*types.Receipt, error) {
	if err := e.requireOwner(ctx, "setRate"); err != nil {
		return nil, err
	}
	return e.caller.Transact(ctx, e.exchangeAddr, FixedRateABI(), "setRate", opts, e.id, newRate)
}

// ToggleActive flips the exchange's active flag. Owner only.
func (e *OneExchange) ToggleActive(ctx context.Context, opts TxOpts) (*types.Receipt, error) {
	if err := e.requireOwner(ctx, "toggleExchangeState"); err != nil {
		return nil, err
	}
	return e.caller.Transact(ctx, e.exchangeAddr, FixedRateABI(), "toggleExchangeState", opts, e.id)
}

// ToggleMintState enables or disables minting-backed supply. Owner only.
func (e *OneExchange) ToggleMintState(ctx context.Context, withMint bool, opts TxOpts) (*types.Receipt, error) {
	if err := e.requireOwner(ctx, "toggleMintState"); err != nil {
		return nil, err
	}
	return e.caller.Transact(ctx, e.exchangeAddr, FixedRateABI(), "toggleMintState", opts, e.id, withMint)
}

// SetAllowedSwapper restricts swaps to one address; the zero address lifts
// the restriction. Owner only.
func (e *OneExchange) SetAllowedSwapper(ctx context.Context, swapper common.Address, opts TxOpts) (*types.Receipt, error) {
	if err := e.requireOwner(ctx, "setAllowedSwapper"); err != nil {
		return nil, err
	}
	return e.caller.Transact(ctx, e.exchangeAddr, FixedRateABI(), "setAllowedSwapper", opts, e.id, swapper)
}

// UpdateMarketFee changes the publish-market fee. Owner only.
func (e *OneExchange) UpdateMarketFee(ctx context.Context, newFee *big.Int, opts TxOpts) (*types.Receipt, error) {
	if err := e.requireOwner(ctx, "updateMarketFee"); err != nil {
		return nil, err
	}
	return e.caller.Transact(ctx, e.exchangeAddr, FixedRateABI(), "updateMarketFee", opts, e.id, newFee)
}

// UpdateMarketFeeCollector changes the publish-market fee collector. Owner only.
func (e *OneExchange) UpdateMarketFeeCollector(ctx context.Context, collector common.Address, opts TxOpts) (*types.Receipt, error) {
	if err := e.requireOwner(ctx, "updateMarketFeeCollector"); err != nil {
		return nil, err
	}
	return e.caller.Transact(ctx, e.exchangeAddr, FixedRateABI(), "updateMarketFeeCollector", opts, e.id, collector)
}

func (e *OneExchange) requireOwner(ctx context.Context, op string) error {
	details, err := e.Details(ctx)
	if err != nil {
		return err
	}
	caller := e.caller.SignerAddress()
	if details.Owner != caller {
		return &PermissionDeniedError{Op: op, Caller: caller, Owner: details.Owner}
	}
	return nil
}
