package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jpillora/backoff"
	"go.uber.org/zap"
)

const (
	defaultGasLimit       = 1_000_000
	defaultReceiptTimeout = 120 * time.Second
	decimalsCacheSize     = 256
	decimalsCacheTTL      = time.Hour
)

// Backend is the subset of the RPC client the caller needs. *ethclient.Client
// satisfies it; tests substitute a fake.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// TxOpts carries optional per-transaction overrides.
type TxOpts struct {
	GasLimit uint64   // 0 means defaultGasLimit
	Value    *big.Int // nil means 0
}

// ContractCaller submits typed calls and transactions against deployed
// contracts, normalizes revert reasons into typed errors, and decodes event
// logs from receipts.
type ContractCaller struct {
	backend        Backend
	privateKey     *ecdsa.PrivateKey
	chainID        *big.Int
	receiptTimeout time.Duration
	decimalsCache  *expirable.LRU[string, uint8]
	log            *zap.Logger
}

// NewContractCaller dials the RPC endpoint and prepares a signing caller.
func NewContractCaller(rpcURL, privateKeyHex string, receiptTimeout time.Duration, log *zap.Logger) (*ContractCaller, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	chainID, err := client.ChainID(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}

	return NewContractCallerWithBackend(client, privateKey, chainID, receiptTimeout, log), nil
}

// NewContractCallerWithBackend wires a caller on top of an existing backend.
func NewContractCallerWithBackend(backend Backend, key *ecdsa.PrivateKey, chainID *big.Int, receiptTimeout time.Duration, log *zap.Logger) *ContractCaller {
	if receiptTimeout <= 0 {
		receiptTimeout = defaultReceiptTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ContractCaller{
		backend:        backend,
		privateKey:     key,
		chainID:        chainID,
		receiptTimeout: receiptTimeout,
		decimalsCache:  expirable.NewLRU[string, uint8](decimalsCacheSize, nil, decimalsCacheTTL),
		log:            log,
	}
}

// SignerAddress returns the address of the transaction signer.
func (cc *ContractCaller) SignerAddress() common.Address {
	publicKey, _ := cc.privateKey.Public().(*ecdsa.PublicKey)
	return crypto.PubkeyToAddress(*publicKey)
}

// ChainID returns the chain id transactions are signed for.
func (cc *ContractCaller) ChainID() *big.Int {
	return new(big.Int).Set(cc.chainID)
}

// CallRaw performs an eth_call with pre-packed calldata.
func (cc *ContractCaller) CallRaw(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return cc.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
}

// Call packs the method arguments, performs an eth_call and returns the
// decoded outputs in declaration order.
func (cc *ContractCaller) Call(ctx context.Context, to common.Address, cabi *abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := cabi.Pack(method, args...)
	if err != nil {
		cc.log.Error("failed to pack call", zap.String("method", method), zap.Error(err))
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	result, err := cc.CallRaw(ctx, to, data)
	if err != nil {
		cc.log.Warn("contract call failed", zap.String("method", method), zap.String("to", to.Hex()), zap.Error(err))
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	out, err := cabi.Unpack(method, result)
	if err != nil {
		cc.log.Error("failed to unpack result", zap.String("method", method), zap.Error(err))
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return out, nil
}

// CallInto performs an eth_call and unpacks the result into out.
func (cc *ContractCaller) CallInto(ctx context.Context, to common.Address, cabi *abi.ABI, out interface{}, method string, args ...interface{}) error {
	data, err := cabi.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("pack %s: %w", method, err)
	}
	result, err := cc.CallRaw(ctx, to, data)
	if err != nil {
		return fmt.Errorf("call %s: %w", method, err)
	}
	if err := cabi.UnpackIntoInterface(out, method, result); err != nil {
		return fmt.Errorf("unpack %s: %w", method, err)
	}
	return nil
}

// CheckGasBalance verifies the signer can cover estimatedGas at the current
// gas price, with a 20% margin.
func (cc *ContractCaller) CheckGasBalance(ctx context.Context, estimatedGas uint64) error {
	signer := cc.SignerAddress()
	balance, err := cc.backend.BalanceAt(ctx, signer, nil)
	if err != nil {
		return fmt.Errorf("failed to get balance: %w", err)
	}

	gasPrice, err := cc.backend.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("failed to get gas price: %w", err)
	}

	withMargin := new(big.Int).Mul(new(big.Int).SetUint64(estimatedGas), big.NewInt(120))
	withMargin.Div(withMargin, big.NewInt(100))
	required := new(big.Int).Mul(withMargin, gasPrice)

	if balance.Cmp(required) < 0 {
		return &InsufficientGasError{Signer: signer, Balance: balance, Required: required}
	}
	return nil
}

// Transact packs, signs and submits a transaction, then blocks until the
// receipt is available. A reverted transaction is replayed as a call at the
// mined block to recover the reason string.
func (cc *ContractCaller) Transact(ctx context.Context, to common.Address, cabi *abi.ABI, method string, opts TxOpts, args ...interface{}) (*types.Receipt, error) {
	data, err := cabi.Pack(method, args...)
	if err != nil {
		cc.log.Error("failed to pack transaction", zap.String("method", method), zap.Error(err))
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	return cc.TransactRaw(ctx, to, data, opts)
}

// TransactRaw submits pre-packed calldata as a transaction.
func (cc *ContractCaller) TransactRaw(ctx context.Context, to common.Address, data []byte, opts TxOpts) (*types.Receipt, error) {
	gasLimit := opts.GasLimit
	if gasLimit == 0 {
		gasLimit = defaultGasLimit
	}
	value := opts.Value
	if value == nil {
		value = big.NewInt(0)
	}

	if err := cc.CheckGasBalance(ctx, gasLimit); err != nil {
		return nil, err
	}

	signer := cc.SignerAddress()
	nonce, err := cc.backend.PendingNonceAt(ctx, signer)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := cc.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}

	tx := types.NewTransaction(nonce, to, value, gasLimit, gasPrice, data)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(cc.chainID), cc.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := cc.backend.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}

	cc.log.Debug("transaction submitted",
		zap.String("to", to.Hex()),
		zap.String("tx", signedTx.Hash().Hex()),
		zap.Uint64("nonce", nonce))

	receipt, err := cc.waitForReceipt(ctx, signedTx.Hash())
	if err != nil {
		return nil, err
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		reason := cc.revertReason(ctx, signer, to, data, value, receipt.BlockNumber)
		cc.log.Warn("transaction reverted",
			zap.String("tx", signedTx.Hash().Hex()),
			zap.String("reason", reason))
		return nil, &ContractRevertError{TxHash: signedTx.Hash(), Reason: reason}
	}
	return receipt, nil
}

// waitForReceipt polls for the receipt with exponential backoff until the
// receipt timeout elapses.
func (cc *ContractCaller) waitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, cc.receiptTimeout)
	defer cancel()

	b := &backoff.Backoff{Min: 500 * time.Millisecond, Max: 5 * time.Second, Factor: 2, Jitter: true}
	for {
		receipt, err := cc.backend.TransactionReceipt(waitCtx, txHash)
		if err == nil {
			return receipt, nil
		}

		select {
		case <-waitCtx.Done():
			return nil, &ReceiptTimeoutError{TxHash: txHash}
		case <-time.After(b.Duration()):
		}
	}
}

// revertReason replays the failed transaction as a call at the mined block.
// The contract-defined reason string is returned verbatim.
func (cc *ContractCaller) revertReason(ctx context.Context, from, to common.Address, data []byte, value, blockNumber *big.Int) string {
	msg := ethereum.CallMsg{From: from, To: &to, Value: value, Data: data}
	_, err := cc.backend.CallContract(ctx, msg, blockNumber)
	if err == nil {
		return ""
	}
	reason := err.Error()
	if idx := strings.Index(reason, "execution reverted: "); idx >= 0 {
		reason = reason[idx+len("execution reverted: "):]
	}
	return reason
}

// DecodeEvent finds the named event in the receipt logs and returns its
// decoded arguments, indexed and non-indexed alike.
func (cc *ContractCaller) DecodeEvent(cabi *abi.ABI, receipt *types.Receipt, name string) (map[string]interface{}, error) {
	event, ok := cabi.Events[name]
	if !ok {
		return nil, fmt.Errorf("event %s not in ABI", name)
	}

	for _, lg := range receipt.Logs {
		if len(lg.Topics) == 0 || lg.Topics[0] != event.ID {
			continue
		}
		return decodeLog(&event, lg)
	}
	return nil, fmt.Errorf("event %s not found in receipt %s", name, receipt.TxHash.Hex())
}

func decodeLog(event *abi.Event, lg *types.Log) (map[string]interface{}, error) {
	out := make(map[string]interface{})

	if err := abi.ParseTopicsIntoMap(out, indexedArgs(event), lg.Topics[1:]); err != nil {
		return nil, fmt.Errorf("decode %s topics: %w", event.Name, err)
	}

	nonIndexed := event.Inputs.NonIndexed()
	if len(nonIndexed) > 0 {
		values, err := nonIndexed.Unpack(lg.Data)
		if err != nil {
			return nil, fmt.Errorf("decode %s data: %w", event.Name, err)
		}
		for i, arg := range nonIndexed {
			out[arg.Name] = values[i]
		}
	}
	return out, nil
}

func indexedArgs(event *abi.Event) abi.Arguments {
	var indexed abi.Arguments
	for _, arg := range event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

// Decimals reads a token's decimals, with a TTL cache. Decimals never change
// after deployment, the TTL just bounds memory for long-lived processes.
func (cc *ContractCaller) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	if d, ok := cc.decimalsCache.Get(token.Hex()); ok {
		return d, nil
	}

	var decimals uint8
	if err := cc.CallInto(ctx, token, ERC20ABI(), &decimals, "decimals"); err != nil {
		return 0, err
	}
	cc.decimalsCache.Add(token.Hex(), decimals)
	return decimals, nil
}

// NativeBalance returns the signer's gas-token balance.
func (cc *ContractCaller) NativeBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	return cc.backend.BalanceAt(ctx, account, nil)
}

// FilterLogs exposes log filtering for the event monitor.
func (cc *ContractCaller) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	return cc.backend.FilterLogs(ctx, q)
}

// BlockNumber returns the current head block number.
func (cc *ContractCaller) BlockNumber(ctx context.Context) (uint64, error) {
	return cc.backend.BlockNumber(ctx)
}

// Sign signs a 32-byte digest with the client key. Used for provider
// authentication, not for transactions.
func (cc *ContractCaller) Sign(digest []byte) ([]byte, error) {
	return crypto.Sign(digest, cc.privateKey)
}
