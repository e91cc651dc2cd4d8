package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// DataNFTArguments configure data NFT deployment. Zero values take the
// documented defaults when passed through the factory.
type DataNFTArguments struct {
	Name   string
	Symbol string
	// TemplateIndex selects the ERC721 template; 0 defaults to 1.
	TemplateIndex int
	TokenURI      string
	// Transferable defaults to true when nil. The explicit pointer keeps
	// false expressible, which an or-style default would swallow.
	Transferable *bool
	// Owner defaults to the signer.
	Owner common.Address
}

// nftCreateData packs the createNFT tuple argument.
type nftCreateData struct {
	Name          string
	Symbol        string
	TemplateIndex *big.Int
	TokenURI      string
	Transferable  bool
	Owner         common.Address
}

func (a DataNFTArguments) createData(signer common.Address) (nftCreateData, error) {
	if a.Name == "" || a.Symbol == "" {
		return nftCreateData{}, fmt.Errorf("data NFT name and symbol are required")
	}
	templateIndex := a.TemplateIndex
	if templateIndex == 0 {
		templateIndex = 1
	}
	transferable := true
	if a.Transferable != nil {
		transferable = *a.Transferable
	}
	owner := a.Owner
	if owner == (common.Address{}) {
		owner = signer
	}
	return nftCreateData{
		Name:          a.Name,
		Symbol:        a.Symbol,
		TemplateIndex: big.NewInt(int64(templateIndex)),
		TokenURI:      a.TokenURI,
		Transferable:  transferable,
		Owner:         owner,
	}, nil
}

// DataNFTFactory deploys data NFTs through the ERC721Factory contract.
type DataNFTFactory struct {
	caller   *ContractCaller
	addr     common.Address
	registry *AddressRegistry
	log      *zap.Logger
}

// NewDataNFTFactory resolves the factory address through the registry.
func NewDataNFTFactory(caller *ContractCaller, registry *AddressRegistry, log *zap.Logger) (*DataNFTFactory, error) {
	addr, err := registry.Address(ContractERC721Factory)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &DataNFTFactory{caller: caller, addr: addr, registry: registry, log: log}, nil
}

// Address returns the factory contract address.
func (f *DataNFTFactory) Address() common.Address { return f.addr }

// CreateNFT deploys a data NFT and returns its facade. The generated address
// is recovered from the NFTCreated event.
func (f *DataNFTFactory) CreateNFT(ctx context.Context, args DataNFTArguments, opts TxOpts) (*DataNFT, error) {
	data, err := args.createData(f.caller.SignerAddress())
	if err != nil {
		return nil, err
	}

	receipt, err := f.caller.Transact(ctx, f.addr, FactoryABI(), "createNFT", opts, data)
	if err != nil {
		return nil, err
	}

	event, err := f.caller.DecodeEvent(FactoryABI(), receipt, "NFTCreated")
	if err != nil {
		return nil, err
	}
	nftAddr, ok := event["newTokenAddress"].(common.Address)
	if !ok {
		return nil, fmt.Errorf("NFTCreated: unexpected newTokenAddress type %T", event["newTokenAddress"])
	}

	f.log.Info("data NFT deployed",
		zap.String("nft", nftAddr.Hex()),
		zap.String("name", args.Name),
		zap.String("tx", receipt.TxHash.Hex()))

	return NewDataNFT(f.caller, nftAddr, f.registry, f.log), nil
}
