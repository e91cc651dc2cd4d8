package oceansdk

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/oceanprotocol/ocean-sdk-go/chain"
)

// ChainID identifies a supported network.
type ChainID int64

const (
	ChainIDMainnet     ChainID = 1
	ChainIDPolygon     ChainID = 137
	ChainIDMumbai      ChainID = 80001
	ChainIDDevelopment ChainID = 8996
)

// SupportedChainIDs lists the networks with built-in deployments.
var SupportedChainIDs = []ChainID{ChainIDMainnet, ChainIDPolygon, ChainIDMumbai, ChainIDDevelopment}

// serviceEndpoints are the default off-chain collaborators per chain.
type serviceEndpoints struct {
	Aquarius string
	Provider string
}

var defaultEndpoints = map[ChainID]serviceEndpoints{
	ChainIDMainnet:     {Aquarius: "https://v4.aquarius.oceanprotocol.com", Provider: "https://v4.provider.mainnet.oceanprotocol.com"},
	ChainIDPolygon:     {Aquarius: "https://v4.aquarius.oceanprotocol.com", Provider: "https://v4.provider.polygon.oceanprotocol.com"},
	ChainIDMumbai:      {Aquarius: "https://v4.aquarius.oceanprotocol.com", Provider: "https://v4.provider.mumbai.oceanprotocol.com"},
	ChainIDDevelopment: {Aquarius: "http://172.15.0.5:5000", Provider: "http://172.15.0.4:8030"},
}

// Config holds everything needed to construct a Client.
type Config struct {
	ChainID    ChainID
	RPCURL     string
	PrivateKey string

	// AquariusURL and ProviderURL default per chain when empty.
	AquariusURL string
	ProviderURL string

	// AddressFile overrides the built-in contract address table.
	AddressFile string

	// ReceiptTimeout bounds waiting for transaction confirmation.
	ReceiptTimeout time.Duration
	// IndexTimeout bounds waiting for metadata-index convergence.
	IndexTimeout time.Duration
	// ResolveCacheTTL bounds DDO cache staleness; 0 disables the cache.
	ResolveCacheTTL time.Duration

	Logger *zap.Logger
}

func (c *Config) validate() error {
	supported := false
	for _, id := range SupportedChainIDs {
		if c.ChainID == id {
			supported = true
			break
		}
	}
	if !supported {
		return &InvalidParamError{Message: fmt.Sprintf("chain id must be one of %v, got %d", SupportedChainIDs, c.ChainID)}
	}
	if c.RPCURL == "" {
		return &InvalidParamError{Message: "RPC URL is required"}
	}
	if c.PrivateKey == "" {
		return &InvalidParamError{Message: "private key is required"}
	}
	// Only the development deployment ships a built-in address table; other
	// networks must point at their deployment artifacts.
	if c.AddressFile == "" && !chain.HasBuiltinAddresses(int64(c.ChainID)) {
		return &InvalidParamError{Message: fmt.Sprintf("chain id %d has no built-in contract addresses, an address file is required", c.ChainID)}
	}

	endpoints := defaultEndpoints[c.ChainID]
	if c.AquariusURL == "" {
		c.AquariusURL = endpoints.Aquarius
	}
	if c.ProviderURL == "" {
		c.ProviderURL = endpoints.Provider
	}
	if c.ReceiptTimeout == 0 {
		c.ReceiptTimeout = 2 * time.Minute
	}
	if c.IndexTimeout == 0 {
		c.IndexTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return nil
}
