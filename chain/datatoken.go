package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// TemplateKind identifies the datatoken contract template. The two variants
// share most behavior but diverge in how combined buy/dispense-and-order
// operations pull funds.
type TemplateKind uint8

const (
	// TemplateClassic is the mintable template-1 datatoken.
	TemplateClassic TemplateKind = 1
	// TemplateEnterprise is the capped template-2 datatoken. Its combined
	// order operations run on the token contract itself, so base-token
	// approvals target the token, not the exchange.
	TemplateEnterprise TemplateKind = 2
)

// FixedRateInfo identifies one exchange bound to a datatoken.
type FixedRateInfo struct {
	ContractAddress common.Address
	Id              [32]byte
}

// OrderParams packs the startOrder argument block for the combined
// buy-and-order operations. Field order matches the ABI tuple.
type OrderParams struct {
	Consumer         common.Address
	ServiceIndex     *big.Int
	ProviderFee      ProviderFees
	ConsumeMarketFee TokenFeeInfo
}

// FreParams packs the exchange half of buyFromFreAndOrder.
type FreParams struct {
	ExchangeContract   common.Address
	ExchangeId         [32]byte
	MaxBaseTokenAmount *big.Int
	SwapMarketFee      *big.Int
	MarketFeeAddress   common.Address
}

// Datatoken wraps one deployed datatoken contract of either template.
type Datatoken struct {
	*ERC20
	caller   *ContractCaller
	registry *AddressRegistry
	template TemplateKind // 0 until resolved
	log      *zap.Logger
}

// NewDatatoken binds a datatoken. The template kind is read from the
// contract on first use.
func NewDatatoken(caller *ContractCaller, addr common.Address, registry *AddressRegistry, log *zap.Logger) *Datatoken {
	if log == nil {
		log = zap.NewNop()
	}
	return &Datatoken{
		ERC20:    NewERC20(caller, addr),
		caller:   caller,
		registry: registry,
		log:      log,
	}
}

// Template resolves the template kind via the contract's getId.
func (t *Datatoken) Template(ctx context.Context) (TemplateKind, error) {
	if t.template != 0 {
		return t.template, nil
	}
	var id uint8
	if err := t.caller.CallInto(ctx, t.Address(), DatatokenABI(), &id, "getId"); err != nil {
		return 0, err
	}
	switch TemplateKind(id) {
	case TemplateClassic, TemplateEnterprise:
		t.template = TemplateKind(id)
		return t.template, nil
	default:
		return 0, fmt.Errorf("datatoken %s: unknown template id %d", t.Address().Hex(), id)
	}
}

// Cap returns the maximum mintable supply. Classic tokens default to
// MaxUint256, Enterprise tokens carry a finite cap.
func (t *Datatoken) Cap(ctx context.Context) (*big.Int, error) {
	var cap *big.Int
	err := t.caller.CallInto(ctx, t.Address(), DatatokenABI(), &cap, "cap")
	return cap, err
}

// Mint issues value tokens to account. Requires the MINTER role on chain.
func (t *Datatoken) Mint(ctx context.Context, account common.Address, value *big.Int, opts TxOpts) (*types.Receipt, error) {
	return t.caller.Transact(ctx, t.Address(), DatatokenABI(), "mint", opts, account, value)
}

// Permissions returns the caller-relevant role flags for user.
func (t *Datatoken) Permissions(ctx context.Context, user common.Address) (minter, paymentManager bool, err error) {
	out, err := t.caller.Call(ctx, t.Address(), DatatokenABI(), "permissions", user)
	if err != nil {
		return false, false, err
	}
	if len(out) != 2 {
		return false, false, fmt.Errorf("permissions: expected 2 outputs, got %d", len(out))
	}
	return out[0].(bool), out[1].(bool), nil
}

func (t *Datatoken) AddMinter(ctx context.Context, minter common.Address, opts TxOpts) (*types.Receipt, error) {
	return t.caller.Transact(ctx, t.Address(), DatatokenABI(), "addMinter", opts, minter)
}

func (t *Datatoken) RemoveMinter(ctx context.Context, minter common.Address, opts TxOpts) (*types.Receipt, error) {
	return t.caller.Transact(ctx, t.Address(), DatatokenABI(), "removeMinter", opts, minter)
}

func (t *Datatoken) CleanPermissions(ctx context.Context, opts TxOpts) (*types.Receipt, error) {
	return t.caller.Transact(ctx, t.Address(), DatatokenABI(), "cleanPermissions", opts)
}

// GetPaymentCollector returns the address receiving order payments.
func (t *Datatoken) GetPaymentCollector(ctx context.Context) (common.Address, error) {
	var collector common.Address
	err := t.caller.CallInto(ctx, t.Address(), DatatokenABI(), &collector, "getPaymentCollector")
	return collector, err
}

func (t *Datatoken) SetPaymentCollector(ctx context.Context, collector common.Address, opts TxOpts) (*types.Receipt, error) {
	return t.caller.Transact(ctx, t.Address(), DatatokenABI(), "setPaymentCollector", opts, collector)
}

// FixedRateArgs configures a new fixed-rate exchange for this datatoken.
type FixedRateArgs struct {
	BaseToken common.Address
	// Rate in base units of base token per whole datatoken, 1e18 scale.
	Rate *big.Int
	// Owner defaults to the signer.
	Owner              common.Address
	MarketFee          *big.Int
	MarketFeeCollector common.Address
	AllowedSwapper     common.Address
	WithMint           bool
}

// CreateFixedRate deploys a fixed-rate exchange bound to this datatoken and
// returns its facade. The exchange id is derived on chain and read back from
// the NewFixedRate event, never computed locally.
func (t *Datatoken) CreateFixedRate(ctx context.Context, args FixedRateArgs, opts TxOpts) (*OneExchange, error) {
	fixedPriceAddr, err := t.registry.Address(ContractFixedPrice)
	if err != nil {
		return nil, err
	}

	owner := args.Owner
	if owner == (common.Address{}) {
		owner = t.caller.SignerAddress()
	}
	marketFee := args.MarketFee
	if marketFee == nil {
		marketFee = big.NewInt(0)
	}
	marketFeeCollector := args.MarketFeeCollector
	if marketFeeCollector == (common.Address{}) {
		marketFeeCollector = owner
	}

	btDecimals, err := t.caller.Decimals(ctx, args.BaseToken)
	if err != nil {
		return nil, err
	}
	dtDecimals, err := t.Decimals(ctx)
	if err != nil {
		return nil, err
	}

	withMint := big.NewInt(0)
	if args.WithMint {
		withMint = big.NewInt(1)
	}

	addresses := []common.Address{args.BaseToken, owner, marketFeeCollector, args.AllowedSwapper}
	uints := []*big.Int{
		new(big.Int).SetUint64(uint64(btDecimals)),
		new(big.Int).SetUint64(uint64(dtDecimals)),
		args.Rate,
		marketFee,
		withMint,
	}

	receipt, err := t.caller.Transact(ctx, t.Address(), DatatokenABI(), "createFixedRate", opts,
		fixedPriceAddr, addresses, uints)
	if err != nil {
		return nil, err
	}

	event, err := t.caller.DecodeEvent(DatatokenABI(), receipt, "NewFixedRate")
	if err != nil {
		return nil, err
	}
	exchangeID, ok := event["exchangeId"].([32]byte)
	if !ok {
		return nil, fmt.Errorf("NewFixedRate: unexpected exchangeId type %T", event["exchangeId"])
	}
	exchangeContract, ok := event["exchangeContract"].(common.Address)
	if !ok {
		exchangeContract = fixedPriceAddr
	}

	t.log.Info("fixed-rate exchange created",
		zap.String("datatoken", t.Address().Hex()),
		zap.String("exchangeId", common.Hash(exchangeID).Hex()))

	return NewOneExchange(t.caller, exchangeContract, exchangeID, t.log), nil
}

// DispenserArgs configures a faucet for this datatoken.
type DispenserArgs struct {
	MaxTokens  *big.Int
	MaxBalance *big.Int
	WithMint   bool
	// AllowedSwapper zero means anyone may request.
	AllowedSwapper common.Address
}

// CreateDispenser registers this datatoken with the shared dispenser
// contract and returns the dispenser facade.
func (t *Datatoken) CreateDispenser(ctx context.Context, args DispenserArgs, opts TxOpts) (*Dispenser, error) {
	dispenserAddr, err := t.registry.Address(ContractDispenser)
	if err != nil {
		return nil, err
	}

	receipt, err := t.caller.Transact(ctx, t.Address(), DatatokenABI(), "createDispenser", opts,
		dispenserAddr, args.MaxTokens, args.MaxBalance, args.WithMint, args.AllowedSwapper)
	if err != nil {
		return nil, err
	}

	t.log.Info("dispenser created",
		zap.String("datatoken", t.Address().Hex()),
		zap.String("tx", receipt.TxHash.Hex()))

	return NewDispenser(t.caller, dispenserAddr, t.log), nil
}

// GetFixedRates lists the exchanges bound to this datatoken.
func (t *Datatoken) GetFixedRates(ctx context.Context) ([]FixedRateInfo, error) {
	var rates []FixedRateInfo
	err := t.caller.CallInto(ctx, t.Address(), DatatokenABI(), &rates, "getFixedRates")
	return rates, err
}

// GetDispensers lists the dispenser contracts bound to this datatoken.
func (t *Datatoken) GetDispensers(ctx context.Context) ([]common.Address, error) {
	var dispensers []common.Address
	err := t.caller.CallInto(ctx, t.Address(), DatatokenABI(), &dispensers, "getDispensers")
	return dispensers, err
}

// OrderArgs drive order placement and the pricing dispatcher.
type OrderArgs struct {
	// Consumer defaults to the signer.
	Consumer     common.Address
	ServiceIndex uint64
	ProviderFee  ProviderFees
	// ConsumeMarketFee is the order-level market fee triple.
	ConsumeMarketFee TokenFeeInfo
	// ConsumeMarketSwapFee applies on the exchange path only.
	ConsumeMarketSwapFee        *big.Int
	ConsumeMarketSwapFeeAddress common.Address
	Tx                          TxOpts
}

func (a OrderArgs) consumer(signer common.Address) common.Address {
	if a.Consumer == (common.Address{}) {
		return signer
	}
	return a.Consumer
}

func (a OrderArgs) swapFee() *big.Int {
	if a.ConsumeMarketSwapFee == nil {
		return big.NewInt(0)
	}
	return a.ConsumeMarketSwapFee
}

// StartOrder places an order carrying the provider-fee authorization and the
// consume-market fee. The emitted OrderStarted event is what the provider
// service consumes to authorize the download; the order's capability token is
// the transaction hash.
func (t *Datatoken) StartOrder(ctx context.Context, args OrderArgs) (*types.Receipt, error) {
	if args.ProviderFee.Expired(time.Now()) {
		return nil, fmt.Errorf("provider fee authorization expired at %s", args.ProviderFee.ValidUntil.String())
	}
	consumer := args.consumer(t.caller.SignerAddress())
	return t.caller.Transact(ctx, t.Address(), DatatokenABI(), "startOrder", args.Tx,
		consumer, new(big.Int).SetUint64(args.ServiceIndex), args.ProviderFee, args.ConsumeMarketFee.normalized())
}

// ReuseOrder re-validates a previous order with a fresh provider-fee
// authorization. This is the documented re-use path, not a retry of a failed
// order.
func (t *Datatoken) ReuseOrder(ctx context.Context, orderTxID common.Hash, providerFee ProviderFees, opts TxOpts) (*types.Receipt, error) {
	if providerFee.Expired(time.Now()) {
		return nil, fmt.Errorf("provider fee authorization expired at %s", providerFee.ValidUntil.String())
	}
	return t.caller.Transact(ctx, t.Address(), DatatokenABI(), "reuseOrder", opts,
		[32]byte(orderTxID), providerFee)
}

// BuyFromFreAndOrder buys exactly one access token from an exchange and
// places the order in a single transaction (Enterprise template).
func (t *Datatoken) BuyFromFreAndOrder(ctx context.Context, order OrderParams, fre FreParams, opts TxOpts) (*types.Receipt, error) {
	return t.caller.Transact(ctx, t.Address(), DatatokenABI(), "buyFromFreAndOrder", opts, order, fre)
}

// BuyFromDispenserAndOrder dispenses one access token and places the order in
// a single transaction (Enterprise template).
func (t *Datatoken) BuyFromDispenserAndOrder(ctx context.Context, order OrderParams, dispenser common.Address, opts TxOpts) (*types.Receipt, error) {
	return t.caller.Transact(ctx, t.Address(), DatatokenABI(), "buyFromDispenserAndOrder", opts, order, dispenser)
}

// OneToken returns one whole datatoken in base units.
func (t *Datatoken) OneToken(ctx context.Context) (*big.Int, error) {
	decimals, err := t.Decimals(ctx)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil), nil
}

// OrderFromPricingSchema resolves how the signer obtains one access token and
// places the order. Paths are evaluated strictly in this sequence:
//
//  1. a balance of at least one whole datatoken skips payment entirely;
//  2. an active dispenser whose allowedSwapper admits the caller dispenses
//     one token — an inactive dispenser or disallowed swapper is a hard,
//     descriptive error, never a silent fallthrough;
//  3. the first fixed-rate exchange quotes BtNeeded for one token, the base
//     balance is checked locally, the approval targets the exchange (Classic)
//     or the token itself (Enterprise), and the buy and order are executed;
//  4. with no schema at all the dispatch fails before any transaction.
//
// Every read here is point-in-time; a concurrent state change between check
// and submit surfaces as the resulting revert.
func (t *Datatoken) OrderFromPricingSchema(ctx context.Context, args OrderArgs) (*types.Receipt, error) {
	signer := t.caller.SignerAddress()

	oneToken, err := t.OneToken(ctx)
	if err != nil {
		return nil, err
	}

	balance, err := t.BalanceOf(ctx, signer)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(oneToken) >= 0 {
		t.log.Debug("datatoken balance sufficient, ordering directly",
			zap.String("datatoken", t.Address().Hex()),
			zap.String("balance", balance.String()))
		return t.StartOrder(ctx, args)
	}

	template, err := t.Template(ctx)
	if err != nil {
		return nil, err
	}

	dispensers, err := t.GetDispensers(ctx)
	if err != nil {
		return nil, err
	}
	if len(dispensers) > 0 {
		return t.orderViaDispenser(ctx, dispensers[0], template, oneToken, args)
	}

	fixedRates, err := t.GetFixedRates(ctx)
	if err != nil {
		return nil, err
	}
	if len(fixedRates) == 0 {
		return nil, &NoPricingSchemaError{Datatoken: t.Address()}
	}
	return t.orderViaExchange(ctx, fixedRates[0], template, oneToken, args)
}

func (t *Datatoken) orderViaDispenser(ctx context.Context, dispenserAddr common.Address, template TemplateKind, oneToken *big.Int, args OrderArgs) (*types.Receipt, error) {
	signer := t.caller.SignerAddress()
	dispenser := NewDispenser(t.caller, dispenserAddr, t.log)

	status, err := dispenser.Status(ctx, t.Address())
	if err != nil {
		return nil, err
	}
	if !status.Active {
		return nil, &DispenserError{Datatoken: t.Address(), Message: "dispenser is not active"}
	}
	if !status.AllowsAnyone() && status.AllowedSwapper != signer {
		return nil, &DispenserError{Datatoken: t.Address(), Message: "this address is not allowed to request datatokens"}
	}

	if template == TemplateEnterprise {
		// The enterprise template still rejects non-owner callers even with
		// a zero-address allowedSwapper; the contract enforces it and the
		// revert reason passes through verbatim.
		order := OrderParams{
			Consumer:         args.consumer(signer),
			ServiceIndex:     new(big.Int).SetUint64(args.ServiceIndex),
			ProviderFee:      args.ProviderFee,
			ConsumeMarketFee: args.ConsumeMarketFee.normalized(),
		}
		return t.BuyFromDispenserAndOrder(ctx, order, dispenserAddr, args.Tx)
	}

	if _, err := dispenser.Dispense(ctx, t.Address(), oneToken, signer, args.Tx); err != nil {
		return nil, err
	}
	return t.StartOrder(ctx, args)
}

func (t *Datatoken) orderViaExchange(ctx context.Context, rate FixedRateInfo, template TemplateKind, oneToken *big.Int, args OrderArgs) (*types.Receipt, error) {
	signer := t.caller.SignerAddress()
	exchange := NewOneExchange(t.caller, rate.ContractAddress, rate.Id, t.log)

	details, err := exchange.Details(ctx)
	if err != nil {
		return nil, err
	}

	needed, err := exchange.BtNeeded(ctx, oneToken, args.swapFee())
	if err != nil {
		return nil, err
	}

	baseToken := NewERC20(t.caller, details.BaseToken)
	balance, err := baseToken.BalanceOf(ctx, signer)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(needed) < 0 {
		return nil, &InsufficientBalanceError{
			Token:     details.BaseToken,
			Holder:    signer,
			Needed:    needed,
			Available: balance,
		}
	}

	if template == TemplateEnterprise {
		// Enterprise tokens pull base tokens themselves during
		// buyFromFreAndOrder, so the approval targets the token contract.
		if err := baseToken.EnsureAllowance(ctx, t.Address(), needed, args.Tx); err != nil {
			return nil, err
		}
		order := OrderParams{
			Consumer:         args.consumer(signer),
			ServiceIndex:     new(big.Int).SetUint64(args.ServiceIndex),
			ProviderFee:      args.ProviderFee,
			ConsumeMarketFee: args.ConsumeMarketFee.normalized(),
		}
		fre := FreParams{
			ExchangeContract:   rate.ContractAddress,
			ExchangeId:         rate.Id,
			MaxBaseTokenAmount: needed,
			SwapMarketFee:      args.swapFee(),
			MarketFeeAddress:   args.ConsumeMarketSwapFeeAddress,
		}
		return t.BuyFromFreAndOrder(ctx, order, fre, args.Tx)
	}

	if err := baseToken.EnsureAllowance(ctx, rate.ContractAddress, needed, args.Tx); err != nil {
		return nil, err
	}
	if _, err := exchange.BuyDt(ctx, oneToken, SwapOpts{
		ConsumeMarketFeeAddress: args.ConsumeMarketSwapFeeAddress,
		ConsumeMarketSwapFee:    args.swapFee(),
		Tx:                      args.Tx,
	}); err != nil {
		return nil, err
	}
	return t.StartOrder(ctx, args)
}
