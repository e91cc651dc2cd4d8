package chain

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinRegistry(t *testing.T) {
	reg, err := NewAddressRegistry(8996)
	require.NoError(t, err)

	assert.Equal(t, int64(8996), reg.ChainID())
	assert.Equal(t, "development", reg.Network())

	addr, err := reg.Address(ContractERC721Factory)
	require.NoError(t, err)
	assert.NotEqual(t, common.Address{}, addr)

	_, err = reg.Address("NoSuchContract")
	assert.True(t, errors.Is(err, ErrUnknownContract))
}

func TestBuiltinRegistryUnknownChain(t *testing.T) {
	_, err := NewAddressRegistry(424242)
	assert.True(t, errors.Is(err, ErrUnknownChain))
}

func TestHasBuiltinAddresses(t *testing.T) {
	assert.True(t, HasBuiltinAddresses(8996))
	// Public networks ship no built-in table; they need an address file.
	assert.False(t, HasBuiltinAddresses(1))
	assert.False(t, HasBuiltinAddresses(137))
	assert.False(t, HasBuiltinAddresses(80001))
}

func TestBuiltinRegistryTemplates(t *testing.T) {
	reg, err := NewAddressRegistry(8996)
	require.NoError(t, err)

	t1, err := reg.TemplateAddress(ContractERC20Template, 1)
	require.NoError(t, err)
	t2, err := reg.TemplateAddress(ContractERC20Template, 2)
	require.NoError(t, err)
	assert.NotEqual(t, t1, t2)

	_, err = reg.TemplateAddress(ContractERC20Template, 3)
	assert.True(t, errors.Is(err, ErrUnknownContract))
}

func TestLoadAddressRegistryChecksumsAddresses(t *testing.T) {
	// Addresses enter lowercase and must come out checksummed.
	content := `{
		"testnet": {
			"chainId": 1337,
			"ERC721Factory": "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
			"Ocean": "0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359",
			"ERC20Template": {
				"1": "0xdbf03b407c01e7cd3cbea99509d93f8dddc8c6fb"
			}
		}
	}`
	path := filepath.Join(t.TempDir(), "addresses.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	reg, err := LoadAddressRegistry(path, 1337)
	require.NoError(t, err)
	assert.Equal(t, "testnet", reg.Network())

	factory, err := reg.Address(ContractERC721Factory)
	require.NoError(t, err)
	assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", factory.Hex())

	tmpl, err := reg.TemplateAddress(ContractERC20Template, 1)
	require.NoError(t, err)
	assert.Equal(t, "0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB", tmpl.Hex())
}

func TestLoadAddressRegistryChainNotInFile(t *testing.T) {
	content := `{"testnet": {"chainId": 1337}}`
	path := filepath.Join(t.TempDir(), "addresses.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadAddressRegistry(path, 8996)
	assert.True(t, errors.Is(err, ErrUnknownChain))
}

func TestLoadAddressRegistryMissingChainID(t *testing.T) {
	content := `{"broken": {"Ocean": "0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359"}}`
	path := filepath.Join(t.TempDir(), "addresses.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadAddressRegistry(path, 1337)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing chainId")
}
