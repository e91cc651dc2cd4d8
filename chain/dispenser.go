package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// DispenserStatus is the faucet configuration for one datatoken. An
// AllowedSwapper equal to the zero address means anyone may request tokens;
// the sentinel must be checked by address equality.
type DispenserStatus struct {
	Active         bool
	Owner          common.Address
	IsMinter       bool
	MaxTokens      *big.Int
	MaxBalance     *big.Int
	Balance        *big.Int
	AllowedSwapper common.Address
}

// Configured reports whether a dispenser has been set up for the datatoken.
func (s *DispenserStatus) Configured() bool {
	return s.Owner != (common.Address{})
}

// AllowsAnyone reports whether the swapper restriction is lifted.
func (s *DispenserStatus) AllowsAnyone() bool {
	return s.AllowedSwapper == (common.Address{})
}

// Dispenser wraps the shared faucet contract. Per-datatoken configuration is
// keyed by the datatoken address.
type Dispenser struct {
	caller *ContractCaller
	addr   common.Address
	log    *zap.Logger
}

// NewDispenser binds the dispenser contract.
func NewDispenser(caller *ContractCaller, addr common.Address, log *zap.Logger) *Dispenser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispenser{caller: caller, addr: addr, log: log}
}

// Address returns the dispenser contract address.
func (d *Dispenser) Address() common.Address { return d.addr }

// Status fetches the faucet configuration for a datatoken.
func (d *Dispenser) Status(ctx context.Context, datatoken common.Address) (*DispenserStatus, error) {
	out, err := d.caller.Call(ctx, d.addr, DispenserABI(), "status", datatoken)
	if err != nil {
		return nil, err
	}
	if len(out) != 7 {
		return nil, fmt.Errorf("status: expected 7 outputs, got %d", len(out))
	}
	return &DispenserStatus{
		Active:         out[0].(bool),
		Owner:          out[1].(common.Address),
		IsMinter:       out[2].(bool),
		MaxTokens:      out[3].(*big.Int),
		MaxBalance:     out[4].(*big.Int),
		Balance:        out[5].(*big.Int),
		AllowedSwapper: out[6].(common.Address),
	}, nil
}

// Dispense requests amount datatokens for destination. Cap violations revert
// on chain with contract-defined reasons ("Caller balance too high" and the
// like), surfaced verbatim.
func (d *Dispenser) Dispense(ctx context.Context, datatoken common.Address, amount *big.Int, destination common.Address, opts TxOpts) (*types.Receipt, error) {
	d.log.Debug("dispensing datatokens",
		zap.String("datatoken", datatoken.Hex()),
		zap.String("amount", amount.String()),
		zap.String("destination", destination.Hex()))
	return d.caller.Transact(ctx, d.addr, DispenserABI(), "dispense", opts, datatoken, amount, destination)
}

// Activate enables the faucet for a datatoken with the given caps.
func (d *Dispenser) Activate(ctx context.Context, datatoken common.Address, maxTokens, maxBalance *big.Int, opts TxOpts) (*types.Receipt, error) {
	return d.caller.Transact(ctx, d.addr, DispenserABI(), "activate", opts, datatoken, maxTokens, maxBalance)
}

// Deactivate disables the faucet for a datatoken.
func (d *Dispenser) Deactivate(ctx context.Context, datatoken common.Address, opts TxOpts) (*types.Receipt, error) {
	return d.caller.Transact(ctx, d.addr, DispenserABI(), "deactivate", opts, datatoken)
}

// SetAllowedSwapper restricts dispensing to one address; the zero address
// lifts the restriction.
func (d *Dispenser) SetAllowedSwapper(ctx context.Context, datatoken, swapper common.Address, opts TxOpts) (*types.Receipt, error) {
	return d.caller.Transact(ctx, d.addr, DispenserABI(), "setAllowedSwapper", opts, datatoken, swapper)
}
