package oceansdk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidateFillsDefaults(t *testing.T) {
	cfg := &Config{
		ChainID:    ChainIDDevelopment,
		RPCURL:     "http://localhost:8545",
		PrivateKey: "0xabc",
	}
	require.NoError(t, cfg.validate())

	assert.Equal(t, "http://172.15.0.5:5000", cfg.AquariusURL)
	assert.Equal(t, "http://172.15.0.4:8030", cfg.ProviderURL)
	assert.Equal(t, 2*time.Minute, cfg.ReceiptTimeout)
	assert.Equal(t, 30*time.Second, cfg.IndexTimeout)
	assert.NotNil(t, cfg.Logger)
}

func TestConfigValidateKeepsOverrides(t *testing.T) {
	cfg := &Config{
		ChainID:        ChainIDPolygon,
		RPCURL:         "http://localhost:8545",
		PrivateKey:     "0xabc",
		AddressFile:    "address.json",
		AquariusURL:    "http://aquarius.internal",
		ProviderURL:    "http://provider.internal",
		ReceiptTimeout: time.Minute,
	}
	require.NoError(t, cfg.validate())

	assert.Equal(t, "http://aquarius.internal", cfg.AquariusURL)
	assert.Equal(t, "http://provider.internal", cfg.ProviderURL)
	assert.Equal(t, time.Minute, cfg.ReceiptTimeout)
}

func TestConfigValidateMainnetWithAddressFile(t *testing.T) {
	cfg := &Config{
		ChainID:     ChainIDMainnet,
		RPCURL:      "http://localhost:8545",
		PrivateKey:  "0xabc",
		AddressFile: "address.json",
	}
	require.NoError(t, cfg.validate())
	assert.Equal(t, "https://v4.aquarius.oceanprotocol.com", cfg.AquariusURL)
}

func TestConfigValidateRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"unsupported chain", Config{ChainID: 99999, RPCURL: "x", PrivateKey: "y"}},
		{"missing rpc url", Config{ChainID: ChainIDDevelopment, PrivateKey: "y"}},
		{"missing private key", Config{ChainID: ChainIDDevelopment, RPCURL: "x"}},
		{"mainnet without address file", Config{ChainID: ChainIDMainnet, RPCURL: "x", PrivateKey: "y"}},
		{"polygon without address file", Config{ChainID: ChainIDPolygon, RPCURL: "x", PrivateKey: "y"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.validate()
			var invalid *InvalidParamError
			require.ErrorAs(t, err, &invalid)
		})
	}
}
