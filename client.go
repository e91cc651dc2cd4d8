package oceansdk

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/oceanprotocol/ocean-sdk-go/chain"
)

const resolveCacheSize = 128

// Client is the top-level entry point. It wires the contract caller, the
// address registry, and the off-chain collaborators, and exposes typed
// wrappers per deployed contract.
type Client struct {
	config   *Config
	caller   *chain.ContractCaller
	registry *chain.AddressRegistry
	factory  *chain.DataNFTFactory
	aquarius *Aquarius
	provider *Provider
	assets   *OceanAssets

	// resolveCache holds recently resolved DDOs. Chain state is never
	// cached; this only spares repeat index round-trips.
	resolveCache *expirable.LRU[string, *DDO]
	log          *zap.Logger
}

// NewClient validates the config, dials the RPC endpoint, and loads the
// contract address table for the chain.
func NewClient(config *Config) (*Client, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	log := config.Logger

	caller, err := chain.NewContractCaller(config.RPCURL, config.PrivateKey, config.ReceiptTimeout, log)
	if err != nil {
		return nil, err
	}
	if got := caller.ChainID().Int64(); got != int64(config.ChainID) {
		return nil, &InvalidParamError{Message: fmt.Sprintf("RPC endpoint reports chain id %d, config says %d", got, config.ChainID)}
	}

	var registry *chain.AddressRegistry
	if config.AddressFile != "" {
		registry, err = chain.LoadAddressRegistry(config.AddressFile, int64(config.ChainID))
	} else {
		registry, err = chain.NewAddressRegistry(int64(config.ChainID))
	}
	if err != nil {
		return nil, err
	}

	factory, err := chain.NewDataNFTFactory(caller, registry, log)
	if err != nil {
		return nil, err
	}

	c := &Client{
		config:   config,
		caller:   caller,
		registry: registry,
		factory:  factory,
		aquarius: NewAquarius(config.AquariusURL, log),
		provider: NewProvider(config.ProviderURL, caller, log),
		log:      log,
	}
	if config.ResolveCacheTTL > 0 {
		c.resolveCache = expirable.NewLRU[string, *DDO](resolveCacheSize, nil, config.ResolveCacheTTL)
	}
	c.assets = newOceanAssets(c)
	return c, nil
}

// Caller exposes the low-level contract caller.
func (c *Client) Caller() *chain.ContractCaller { return c.caller }

// Registry exposes the contract address table.
func (c *Client) Registry() *chain.AddressRegistry { return c.registry }

// Factory returns the data NFT factory wrapper.
func (c *Client) Factory() *chain.DataNFTFactory { return c.factory }

// Aquarius returns the metadata index client.
func (c *Client) Aquarius() *Aquarius { return c.aquarius }

// Provider returns the access controller client.
func (c *Client) Provider() *Provider { return c.provider }

// Assets returns the publish/consume orchestration surface.
func (c *Client) Assets() *OceanAssets { return c.assets }

// SignerAddress returns the wallet address behind the configured key.
func (c *Client) SignerAddress() common.Address { return c.caller.SignerAddress() }

// DataNFT wraps a deployed data NFT contract.
func (c *Client) DataNFT(addr common.Address) *chain.DataNFT {
	return chain.NewDataNFT(c.caller, addr, c.registry, c.log)
}

// Datatoken wraps a deployed datatoken contract.
func (c *Client) Datatoken(addr common.Address) *chain.Datatoken {
	return chain.NewDatatoken(c.caller, addr, c.registry, c.log)
}

// Dispenser returns the chain-wide dispenser wrapper.
func (c *Client) Dispenser() (*chain.Dispenser, error) {
	addr, err := c.registry.Address(chain.ContractDispenser)
	if err != nil {
		return nil, err
	}
	return chain.NewDispenser(c.caller, addr, c.log), nil
}

// Exchange wraps one exchange id on the fixed-rate contract.
func (c *Client) Exchange(exchangeContract common.Address, id [32]byte) *chain.OneExchange {
	return chain.NewOneExchange(c.caller, exchangeContract, id, c.log)
}

// OceanToken wraps the chain's OCEAN deployment.
func (c *Client) OceanToken() (*chain.ERC20, error) {
	addr, err := c.registry.Address(chain.ContractOceanToken)
	if err != nil {
		return nil, err
	}
	return chain.NewERC20(c.caller, addr), nil
}

// Monitor creates an event monitor polling at the given interval.
func (c *Client) Monitor(interval time.Duration) *EventMonitor {
	return NewEventMonitor(c.caller, interval, c.log)
}

func (c *Client) cachedDDO(did string) (*DDO, bool) {
	if c.resolveCache == nil {
		return nil, false
	}
	return c.resolveCache.Get(did)
}

func (c *Client) cacheDDO(ddo *DDO) {
	if c.resolveCache != nil && ddo != nil {
		c.resolveCache.Add(ddo.ID, ddo)
	}
}

func (c *Client) invalidateDDO(did string) {
	if c.resolveCache != nil {
		c.resolveCache.Remove(did)
	}
}
