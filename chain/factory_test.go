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

func newTestFactory(t *testing.T, backend *fakeBackend) *DataNFTFactory {
	t.Helper()
	caller := newTestCaller(t, backend)
	registry, err := NewAddressRegistry(testChainID)
	require.NoError(t, err)
	factory, err := NewDataNFTFactory(caller, registry, nil)
	require.NoError(t, err)
	return factory
}

func nftCreatedLog(t *testing.T, factoryAddr, tokenAddr, admin common.Address) *types.Log {
	t.Helper()
	event := FactoryABI().Events["NFTCreated"]
	data, err := event.Inputs.NonIndexed().Pack(
		tokenAddr, "My NFT", "NFT-1", "https://example.com/1", true)
	require.NoError(t, err)
	return &types.Log{
		Address: factoryAddr,
		Topics:  []common.Hash{event.ID, common.BytesToHash(admin.Bytes())},
		Data:    data,
	}
}

func TestCreateNFTDefaults(t *testing.T) {
	backend := newFakeBackend()
	factory := newTestFactory(t, backend)
	signer := factory.caller.SignerAddress()
	backend.receiptLogs = []*types.Log{nftCreatedLog(t, factory.Address(), nftAddr, signer)}

	nft, err := factory.CreateNFT(context.Background(), DataNFTArguments{
		Name:   "My NFT",
		Symbol: "NFT-1",
	}, TxOpts{})
	require.NoError(t, err)
	assert.Equal(t, nftAddr, nft.Address())

	sent := backend.sentTxs()
	require.Len(t, sent, 1)
	assert.Equal(t, factory.Address(), *sent[0].To())

	method := FactoryABI().Methods["createNFT"]
	args, err := method.Inputs.Unpack(sent[0].Data()[4:])
	require.NoError(t, err)

	tuple := args[0].(struct {
		Name          string         `json:"name"`
		Symbol        string         `json:"symbol"`
		TemplateIndex *big.Int       `json:"templateIndex"`
		TokenURI      string         `json:"tokenURI"`
		Transferable  bool           `json:"transferable"`
		Owner         common.Address `json:"owner"`
	})
	assert.Equal(t, "My NFT", tuple.Name)
	assert.Equal(t, int64(1), tuple.TemplateIndex.Int64())
	assert.True(t, tuple.Transferable, "transferable defaults to true")
	assert.Equal(t, signer, tuple.Owner, "owner defaults to the signer")
}

func TestCreateNFTExplicitNonTransferable(t *testing.T) {
	backend := newFakeBackend()
	factory := newTestFactory(t, backend)
	backend.receiptLogs = []*types.Log{nftCreatedLog(t, factory.Address(), nftAddr, factory.caller.SignerAddress())}

	transferable := false
	_, err := factory.CreateNFT(context.Background(), DataNFTArguments{
		Name:         "Soulbound NFT",
		Symbol:       "SB-1",
		Transferable: &transferable,
	}, TxOpts{})
	require.NoError(t, err)

	sent := backend.sentTxs()
	require.Len(t, sent, 1)

	method := FactoryABI().Methods["createNFT"]
	args, err := method.Inputs.Unpack(sent[0].Data()[4:])
	require.NoError(t, err)

	tuple := args[0].(struct {
		Name          string         `json:"name"`
		Symbol        string         `json:"symbol"`
		TemplateIndex *big.Int       `json:"templateIndex"`
		TokenURI      string         `json:"tokenURI"`
		Transferable  bool           `json:"transferable"`
		Owner         common.Address `json:"owner"`
	})
	assert.False(t, tuple.Transferable, "explicit false must survive the defaulting")
}

func TestCreateNFTRequiresNameAndSymbol(t *testing.T) {
	backend := newFakeBackend()
	factory := newTestFactory(t, backend)

	_, err := factory.CreateNFT(context.Background(), DataNFTArguments{}, TxOpts{})
	require.Error(t, err)
	assert.Empty(t, backend.sentTxs())
}
