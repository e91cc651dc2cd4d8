package chain

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrUnknownContract is returned when an address registry lookup fails.
	ErrUnknownContract = errors.New("unknown contract")

	// ErrUnknownChain is returned when no addresses are known for a chain id.
	ErrUnknownChain = errors.New("unknown chain")

	// ErrNoPricingSchema is returned when a datatoken has neither a dispenser
	// nor a fixed-rate exchange configured.
	ErrNoPricingSchema = errors.New("no pricing schema configured")
)

// ContractRevertError carries the revert reason of a failed transaction.
// The reason string is contract-defined and passed through verbatim.
type ContractRevertError struct {
	TxHash common.Hash
	Reason string
}

func (e *ContractRevertError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("transaction %s reverted", e.TxHash.Hex())
	}
	return fmt.Sprintf("transaction %s reverted: %s", e.TxHash.Hex(), e.Reason)
}

// ReceiptTimeoutError indicates that waiting for a transaction receipt
// exceeded the configured bound. The on-chain effect of the transaction is
// indeterminate; callers must reconcile by re-querying state rather than
// resubmitting blindly.
type ReceiptTimeoutError struct {
	TxHash common.Hash
}

func (e *ReceiptTimeoutError) Error() string {
	return fmt.Sprintf("timeout waiting for transaction receipt: %s", e.TxHash.Hex())
}

// InsufficientBalanceError is a local precondition failure raised before any
// transaction is submitted.
type InsufficientBalanceError struct {
	Token     common.Address
	Holder    common.Address
	Needed    *big.Int
	Available *big.Int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance of token %s for %s: needs %s, has %s",
		e.Token.Hex(), e.Holder.Hex(), e.Needed.String(), e.Available.String())
}

// PermissionDeniedError is raised locally when an owner-gated operation is
// attempted by a non-owner, before wasting gas on a doomed transaction.
type PermissionDeniedError struct {
	Op     string
	Caller common.Address
	Owner  common.Address
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("%s: caller %s is not the owner (%s)", e.Op, e.Caller.Hex(), e.Owner.Hex())
}

// NoPricingSchemaError is raised when neither a dispenser nor a fixed-rate
// exchange is bound to a datatoken. It wraps ErrNoPricingSchema for
// errors.Is matching.
type NoPricingSchemaError struct {
	Datatoken common.Address
}

func (e *NoPricingSchemaError) Error() string {
	return fmt.Sprintf("datatoken %s has no pricing schema configured (no dispenser, no fixed-rate exchange)", e.Datatoken.Hex())
}

func (e *NoPricingSchemaError) Unwrap() error { return ErrNoPricingSchema }

// DispenserError is a local precondition failure on the dispense path: the
// dispenser exists but is inactive, or the caller is not the allowed swapper.
type DispenserError struct {
	Datatoken common.Address
	Message   string
}

func (e *DispenserError) Error() string {
	return fmt.Sprintf("dispenser for datatoken %s: %s", e.Datatoken.Hex(), e.Message)
}

// InsufficientGasError indicates the signer cannot cover estimated gas.
type InsufficientGasError struct {
	Signer   common.Address
	Balance  *big.Int
	Required *big.Int
}

func (e *InsufficientGasError) Error() string {
	return fmt.Sprintf("insufficient gas balance: signer %s has %s wei, needs approximately %s wei",
		e.Signer.Hex(), e.Balance.String(), e.Required.String())
}
