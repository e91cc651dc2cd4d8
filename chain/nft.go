package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// Metadata states stored on the NFT.
const (
	MetadataStateActive     uint8 = 0
	MetadataStateEndOfLife  uint8 = 1
	MetadataStateDeprecated uint8 = 2
	MetadataStateRevoked    uint8 = 3
)

// NFTPermissions are the role flags of one user on a data NFT.
type NFTPermissions struct {
	Manager        bool
	DeployERC20    bool
	UpdateMetadata bool
	Store          bool
}

// MetadataInfo is the on-chain metadata slot state.
type MetadataInfo struct {
	DecryptorURL     string
	DecryptorAddress string
	State            uint8
	Validated        bool
}

// DataNFT wraps one deployed ERC721 data NFT.
type DataNFT struct {
	caller   *ContractCaller
	addr     common.Address
	registry *AddressRegistry
	log      *zap.Logger
}

// NewDataNFT binds a data NFT contract.
func NewDataNFT(caller *ContractCaller, addr common.Address, registry *AddressRegistry, log *zap.Logger) *DataNFT {
	if log == nil {
		log = zap.NewNop()
	}
	return &DataNFT{caller: caller, addr: addr, registry: registry, log: log}
}

// Address returns the checksummed NFT contract address.
func (n *DataNFT) Address() common.Address { return n.addr }

func (n *DataNFT) Name(ctx context.Context) (string, error) {
	var name string
	err := n.caller.CallInto(ctx, n.addr, NFTABI(), &name, "name")
	return name, err
}

func (n *DataNFT) Symbol(ctx context.Context) (string, error) {
	var symbol string
	err := n.caller.CallInto(ctx, n.addr, NFTABI(), &symbol, "symbol")
	return symbol, err
}

// Owner returns the holder of the singleton token id 1.
func (n *DataNFT) Owner(ctx context.Context) (common.Address, error) {
	var owner common.Address
	err := n.caller.CallInto(ctx, n.addr, NFTABI(), &owner, "ownerOf", big.NewInt(1))
	return owner, err
}

func (n *DataNFT) TokenURI(ctx context.Context) (string, error) {
	var uri string
	err := n.caller.CallInto(ctx, n.addr, NFTABI(), &uri, "tokenURI", big.NewInt(1))
	return uri, err
}

func (n *DataNFT) SetTokenURI(ctx context.Context, uri string, opts TxOpts) (*types.Receipt, error) {
	return n.caller.Transact(ctx, n.addr, NFTABI(), "setTokenURI", opts, big.NewInt(1), uri)
}

// DatatokenArguments configure datatoken deployment from a data NFT.
type DatatokenArguments struct {
	// TemplateIndex selects the template; 0 defaults to 1 (Classic).
	TemplateIndex int
	Name          string
	Symbol        string
	// Minter defaults to the signer.
	Minter common.Address
	// PaymentCollector defaults to the signer.
	PaymentCollector common.Address
	// FeeManager defaults to the signer.
	FeeManager common.Address
	// PublishMarketOrderFee is charged on every order.
	PublishMarketOrderFeeToken   common.Address
	PublishMarketOrderFeeAmount  *big.Int
	PublishMarketOrderFeeAddress common.Address
	// Cap is required for the Enterprise template; Classic ignores it and
	// caps at MaxUint256.
	Cap *big.Int
}

func (a *DatatokenArguments) withDefaults(signer common.Address) error {
	if a.TemplateIndex == 0 {
		a.TemplateIndex = int(TemplateClassic)
	}
	if a.Minter == (common.Address{}) {
		a.Minter = signer
	}
	if a.PaymentCollector == (common.Address{}) {
		a.PaymentCollector = signer
	}
	if a.FeeManager == (common.Address{}) {
		a.FeeManager = signer
	}
	if a.PublishMarketOrderFeeAmount == nil {
		a.PublishMarketOrderFeeAmount = big.NewInt(0)
	}
	if a.TemplateIndex == int(TemplateEnterprise) && a.Cap == nil {
		return fmt.Errorf("cap is required for datatoken template %d deployment", TemplateEnterprise)
	}
	if a.TemplateIndex != int(TemplateClassic) && a.TemplateIndex != int(TemplateEnterprise) {
		return fmt.Errorf("unknown datatoken template index %d", a.TemplateIndex)
	}
	return nil
}

// CreateDatatoken deploys a datatoken bound to this NFT. The generated
// address is read back from the TokenCreated event.
func (n *DataNFT) CreateDatatoken(ctx context.Context, args DatatokenArguments, opts TxOpts) (*Datatoken, error) {
	signer := n.caller.SignerAddress()
	if err := args.withDefaults(signer); err != nil {
		return nil, err
	}

	strings := []string{args.Name, args.Symbol}
	addresses := []common.Address{
		args.Minter,
		args.PaymentCollector,
		args.PublishMarketOrderFeeAddress,
		args.PublishMarketOrderFeeToken,
	}
	uints := []*big.Int{args.PublishMarketOrderFeeAmount}
	if args.Cap != nil {
		uints = append(uints, args.Cap)
	}

	receipt, err := n.caller.Transact(ctx, n.addr, NFTABI(), "createERC20", opts,
		big.NewInt(int64(args.TemplateIndex)), strings, addresses, uints, [][]byte{})
	if err != nil {
		return nil, err
	}

	event, err := n.caller.DecodeEvent(NFTABI(), receipt, "TokenCreated")
	if err != nil {
		return nil, err
	}
	tokenAddr, ok := event["newTokenAddress"].(common.Address)
	if !ok {
		return nil, fmt.Errorf("TokenCreated: unexpected newTokenAddress type %T", event["newTokenAddress"])
	}

	n.log.Info("datatoken deployed",
		zap.String("nft", n.addr.Hex()),
		zap.String("datatoken", tokenAddr.Hex()),
		zap.Int("template", args.TemplateIndex))

	dt := NewDatatoken(n.caller, tokenAddr, n.registry, n.log)
	dt.template = TemplateKind(args.TemplateIndex)
	return dt, nil
}

// SetMetadata writes the (possibly encrypted and compressed) DDO blob plus
// its hash proof into the NFT's metadata slot.
func (n *DataNFT) SetMetadata(ctx context.Context, state uint8, decryptorURL, decryptorAddress string, flags []byte, data []byte, dataHash [32]byte, opts TxOpts) (*types.Receipt, error) {
	return n.caller.Transact(ctx, n.addr, NFTABI(), "setMetaData", opts,
		state, decryptorURL, decryptorAddress, flags, data, dataHash)
}

// SetMetadataState flips the lifecycle state without rewriting the document.
func (n *DataNFT) SetMetadataState(ctx context.Context, state uint8, opts TxOpts) (*types.Receipt, error) {
	return n.caller.Transact(ctx, n.addr, NFTABI(), "setMetaDataState", opts, state)
}

// GetMetadata reads the metadata slot state.
func (n *DataNFT) GetMetadata(ctx context.Context) (*MetadataInfo, error) {
	out, err := n.caller.Call(ctx, n.addr, NFTABI(), "getMetaData")
	if err != nil {
		return nil, err
	}
	if len(out) != 4 {
		return nil, fmt.Errorf("getMetaData: expected 4 outputs, got %d", len(out))
	}
	return &MetadataInfo{
		DecryptorURL:     out[0].(string),
		DecryptorAddress: out[1].(string),
		State:            out[2].(uint8),
		Validated:        out[3].(bool),
	}, nil
}

// GetPermissions reads the role flags for user.
func (n *DataNFT) GetPermissions(ctx context.Context, user common.Address) (*NFTPermissions, error) {
	out, err := n.caller.Call(ctx, n.addr, NFTABI(), "getPermissions", user)
	if err != nil {
		return nil, err
	}
	if len(out) != 4 {
		return nil, fmt.Errorf("getPermissions: expected 4 outputs, got %d", len(out))
	}
	return &NFTPermissions{
		Manager:        out[0].(bool),
		DeployERC20:    out[1].(bool),
		UpdateMetadata: out[2].(bool),
		Store:          out[3].(bool),
	}, nil
}

func (n *DataNFT) AddManager(ctx context.Context, manager common.Address, opts TxOpts) (*types.Receipt, error) {
	return n.caller.Transact(ctx, n.addr, NFTABI(), "addManager", opts, manager)
}

func (n *DataNFT) AddToCreateERC20List(ctx context.Context, allowed common.Address, opts TxOpts) (*types.Receipt, error) {
	return n.caller.Transact(ctx, n.addr, NFTABI(), "addToCreateERC20List", opts, allowed)
}

func (n *DataNFT) AddToMetadataList(ctx context.Context, allowed common.Address, opts TxOpts) (*types.Receipt, error) {
	return n.caller.Transact(ctx, n.addr, NFTABI(), "addToMetadataList", opts, allowed)
}

func (n *DataNFT) AddTo725StoreList(ctx context.Context, allowed common.Address, opts TxOpts) (*types.Receipt, error) {
	return n.caller.Transact(ctx, n.addr, NFTABI(), "addTo725StoreList", opts, allowed)
}
