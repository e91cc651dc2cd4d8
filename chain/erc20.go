package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// MaxUint256 is the unlimited-approval amount.
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// ERC20 wraps a plain fungible token contract.
type ERC20 struct {
	caller *ContractCaller
	addr   common.Address
}

// NewERC20 binds the caller to a token address.
func NewERC20(caller *ContractCaller, addr common.Address) *ERC20 {
	return &ERC20{caller: caller, addr: addr}
}

// Address returns the checksummed token address.
func (t *ERC20) Address() common.Address { return t.addr }

func (t *ERC20) Symbol(ctx context.Context) (string, error) {
	var symbol string
	err := t.caller.CallInto(ctx, t.addr, ERC20ABI(), &symbol, "symbol")
	return symbol, err
}

func (t *ERC20) Name(ctx context.Context) (string, error) {
	var name string
	err := t.caller.CallInto(ctx, t.addr, ERC20ABI(), &name, "name")
	return name, err
}

func (t *ERC20) Decimals(ctx context.Context) (uint8, error) {
	return t.caller.Decimals(ctx, t.addr)
}

func (t *ERC20) TotalSupply(ctx context.Context) (*big.Int, error) {
	var supply *big.Int
	err := t.caller.CallInto(ctx, t.addr, ERC20ABI(), &supply, "totalSupply")
	return supply, err
}

func (t *ERC20) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	var balance *big.Int
	err := t.caller.CallInto(ctx, t.addr, ERC20ABI(), &balance, "balanceOf", account)
	return balance, err
}

func (t *ERC20) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	var allowance *big.Int
	err := t.caller.CallInto(ctx, t.addr, ERC20ABI(), &allowance, "allowance", owner, spender)
	return allowance, err
}

// Approve sets the spender allowance.
func (t *ERC20) Approve(ctx context.Context, spender common.Address, amount *big.Int, opts TxOpts) (*types.Receipt, error) {
	return t.caller.Transact(ctx, t.addr, ERC20ABI(), "approve", opts, spender, amount)
}

// Transfer moves tokens from the signer to another account.
func (t *ERC20) Transfer(ctx context.Context, to common.Address, amount *big.Int, opts TxOpts) (*types.Receipt, error) {
	return t.caller.Transact(ctx, t.addr, ERC20ABI(), "transfer", opts, to, amount)
}

// EnsureAllowance raises the signer's allowance for spender to at least
// needed. Allowances are never lowered here; tokens with reset-to-zero
// semantics get the zero approve first.
func (t *ERC20) EnsureAllowance(ctx context.Context, spender common.Address, needed *big.Int, opts TxOpts) error {
	owner := t.caller.SignerAddress()
	current, err := t.Allowance(ctx, owner, spender)
	if err != nil {
		return err
	}
	if current.Cmp(needed) >= 0 {
		return nil
	}

	if current.Sign() > 0 {
		if _, err := t.Approve(ctx, spender, big.NewInt(0), opts); err != nil {
			return err
		}
	}
	_, err = t.Approve(ctx, spender, needed, opts)
	return err
}
