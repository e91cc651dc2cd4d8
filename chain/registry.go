package chain

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
)

// Logical contract names resolvable through the registry.
const (
	ContractERC721Factory  = "ERC721Factory"
	ContractERC721Template = "ERC721Template"
	ContractERC20Template  = "ERC20Template"
	ContractFixedPrice     = "FixedPrice"
	ContractDispenser      = "Dispenser"
	ContractRouter         = "Router"
	ContractOceanToken     = "Ocean"
	ContractVeOcean        = "veOCEAN"
)

// AddressRegistry resolves a logical contract name plus chain id to a
// deployed, checksummed address. Entries are either a plain address or a
// template-index map ({"1": addr, "2": addr}).
type AddressRegistry struct {
	chainID   int64
	network   string
	addresses map[string]common.Address         // plain entries
	templates map[string]map[int]common.Address // indexed entries
}

type networkEntry struct {
	ChainID   int64
	Addresses map[string]common.Address
	Templates map[string]map[int]common.Address
}

// NewAddressRegistry builds a registry from the built-in address table for
// the given chain id.
func NewAddressRegistry(chainID int64) (*AddressRegistry, error) {
	for name, entry := range builtinNetworks {
		if entry.ChainID == chainID {
			return registryFromEntry(name, entry), nil
		}
	}
	return nil, fmt.Errorf("%w: no built-in addresses for chain id %d", ErrUnknownChain, chainID)
}

// HasBuiltinAddresses reports whether a built-in address table exists for the
// chain id. Chains without one need an address file.
func HasBuiltinAddresses(chainID int64) bool {
	for _, entry := range builtinNetworks {
		if entry.ChainID == chainID {
			return true
		}
	}
	return false
}

// LoadAddressRegistry reads an address file, a JSON mapping of
// {network_name: {"chainId": n, contract_name: address | {index: address}}},
// and returns the registry for the requested chain id.
func LoadAddressRegistry(path string, chainID int64) (*AddressRegistry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read address file: %w", err)
	}

	var networks map[string]map[string]json.RawMessage
	if err := json.Unmarshal(raw, &networks); err != nil {
		return nil, fmt.Errorf("parse address file: %w", err)
	}

	for name, contracts := range networks {
		entry, err := parseNetwork(contracts)
		if err != nil {
			return nil, fmt.Errorf("network %q: %w", name, err)
		}
		if entry.ChainID == chainID {
			return registryFromEntry(name, entry), nil
		}
	}
	return nil, fmt.Errorf("%w: chain id %d not in address file %s", ErrUnknownChain, chainID, path)
}

func parseNetwork(contracts map[string]json.RawMessage) (networkEntry, error) {
	entry := networkEntry{
		Addresses: make(map[string]common.Address),
		Templates: make(map[string]map[int]common.Address),
	}

	for key, raw := range contracts {
		if key == "chainId" {
			if err := json.Unmarshal(raw, &entry.ChainID); err != nil {
				return entry, fmt.Errorf("invalid chainId: %w", err)
			}
			continue
		}

		var addr string
		if err := json.Unmarshal(raw, &addr); err == nil {
			// Normalize to checksummed form on read.
			entry.Addresses[key] = common.HexToAddress(addr)
			continue
		}

		var indexed map[string]string
		if err := json.Unmarshal(raw, &indexed); err != nil {
			return entry, fmt.Errorf("contract %q: expected address or template map", key)
		}
		entry.Templates[key] = make(map[int]common.Address, len(indexed))
		for idxStr, a := range indexed {
			idx, err := strconv.Atoi(idxStr)
			if err != nil {
				return entry, fmt.Errorf("contract %q: bad template index %q", key, idxStr)
			}
			entry.Templates[key][idx] = common.HexToAddress(a)
		}
	}

	if entry.ChainID == 0 {
		return entry, fmt.Errorf("missing chainId")
	}
	return entry, nil
}

func registryFromEntry(name string, entry networkEntry) *AddressRegistry {
	return &AddressRegistry{
		chainID:   entry.ChainID,
		network:   name,
		addresses: entry.Addresses,
		templates: entry.Templates,
	}
}

// ChainID returns the chain id this registry serves.
func (r *AddressRegistry) ChainID() int64 { return r.chainID }

// Network returns the configured network name.
func (r *AddressRegistry) Network() string { return r.network }

// Address resolves a plain contract name.
func (r *AddressRegistry) Address(name string) (common.Address, error) {
	if addr, ok := r.addresses[name]; ok {
		return addr, nil
	}
	return common.Address{}, fmt.Errorf("%w: %q on %s (chain %d)", ErrUnknownContract, name, r.network, r.chainID)
}

// TemplateAddress resolves an indexed contract entry, e.g. ERC20Template
// template 1 vs template 2.
func (r *AddressRegistry) TemplateAddress(name string, index int) (common.Address, error) {
	indexed, ok := r.templates[name]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %q on %s (chain %d)", ErrUnknownContract, name, r.network, r.chainID)
	}
	addr, ok := indexed[index]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %q template index %d on %s", ErrUnknownContract, name, index, r.network)
	}
	return addr, nil
}

// builtinNetworks mirrors the deployment artifacts shipped with the protocol.
var builtinNetworks = map[string]networkEntry{
	"development": {
		ChainID: 8996,
		Addresses: map[string]common.Address{
			ContractERC721Factory: common.HexToAddress("0x7d46d74023507D30ccc2d3868129fbE4e400e40B"),
			ContractFixedPrice:    common.HexToAddress("0x2112Eb973af1DBf83a4f11eda82f7a7527D7Fde5"),
			ContractDispenser:     common.HexToAddress("0x5461b629E01f72E0A468931A36e039Eea394f9eA"),
			ContractRouter:        common.HexToAddress("0xC5aA375AB59F19DDB4cb5fD8E3d1bE4E65926c1e"),
			ContractOceanToken:    common.HexToAddress("0x2473f4F7bf40ed9310838edFCA6262C17A59DF64"),
			ContractVeOcean:       common.HexToAddress("0x79E55B1f9C6D78d7d5C3a20a1bc4d91bB70f0ed6"),
		},
		Templates: map[string]map[int]common.Address{
			ContractERC721Template: {
				1: common.HexToAddress("0x6A1bfd0a472cFC57f0c94a09a4bd2BA92e02c392"),
			},
			ContractERC20Template: {
				1: common.HexToAddress("0x4C2Af164bfAc1e7b2a2a1BE2f95de05d947b031D"),
				2: common.HexToAddress("0x9b39a17CC72C8be4813d890172eFF746470994AC"),
			},
		},
	},
}
