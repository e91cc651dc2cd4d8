package oceansdk

import (
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// DDO metadata flags stored alongside the on-chain blob.
const (
	MetadataFlagPlain      byte = 0x0
	MetadataFlagCompressed byte = 0x1
	MetadataFlagEncrypted  byte = 0x2
)

// Credential address types supported in allow/deny lists.
const CredentialTypeAddress = "address"

// Metadata is the descriptive half of a DDO.
type Metadata struct {
	Created     string `json:"created"`
	Updated     string `json:"updated"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Author      string `json:"author"`
	License     string `json:"license"`
}

// File describes one downloadable resource behind a service. The URL is only
// ever sent to the provider for encryption, never published in the clear.
type File struct {
	Type   string `json:"type"`
	URL    string `json:"url"`
	Method string `json:"method,omitempty"`
}

// Service is one access offering of an asset, gated by a datatoken.
type Service struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	Name            string `json:"name,omitempty"`
	Description     string `json:"description,omitempty"`
	Datatoken       string `json:"datatokenAddress"`
	ServiceEndpoint string `json:"serviceEndpoint"`
	Timeout         int64  `json:"timeout"`
	// Files is the provider-encrypted files blob.
	Files string `json:"files"`
}

// DatatokenAddress returns the service's datatoken in checksummed form.
func (s *Service) DatatokenAddress() common.Address {
	return common.HexToAddress(s.Datatoken)
}

// Credential is one allow or deny rule.
type Credential struct {
	Type   string   `json:"type"`
	Values []string `json:"values"`
}

// Credentials hold the asset's allow and deny lists. An empty allow list
// admits everyone not denied.
type Credentials struct {
	Allow []Credential `json:"allow,omitempty"`
	Deny  []Credential `json:"deny,omitempty"`
}

// DDO is the metadata document mirroring one data NFT in the search index.
type DDO struct {
	Context     []string     `json:"@context"`
	ID          string       `json:"id"`
	Version     string       `json:"version"`
	ChainID     int64        `json:"chainId"`
	NFTAddress  string       `json:"nftAddress"`
	Metadata    Metadata     `json:"metadata"`
	Services    []Service    `json:"services"`
	Credentials *Credentials `json:"credentials,omitempty"`
}

// ServiceByID finds a service; an empty id selects the first one.
func (d *DDO) ServiceByID(id string) *Service {
	if len(d.Services) == 0 {
		return nil
	}
	if id == "" {
		return &d.Services[0]
	}
	for i := range d.Services {
		if d.Services[i].ID == id {
			return &d.Services[i]
		}
	}
	return nil
}

// ServiceIndex returns the positional index of a service, or -1.
func (d *DDO) ServiceIndex(id string) int {
	for i := range d.Services {
		if d.Services[i].ID == id {
			return i
		}
	}
	return -1
}

// IsConsumable applies the credential rules to a consumer address. Deny
// wins over allow; matching is on checksummed address equality, never on
// raw string comparison.
func (d *DDO) IsConsumable(consumer common.Address) bool {
	if d.Credentials == nil {
		return true
	}
	if matchAddressCredential(d.Credentials.Deny, consumer) {
		return false
	}
	if len(addressCredentials(d.Credentials.Allow)) == 0 {
		return true
	}
	return matchAddressCredential(d.Credentials.Allow, consumer)
}

func addressCredentials(rules []Credential) []Credential {
	var out []Credential
	for _, rule := range rules {
		if strings.EqualFold(rule.Type, CredentialTypeAddress) {
			out = append(out, rule)
		}
	}
	return out
}

func matchAddressCredential(rules []Credential, consumer common.Address) bool {
	for _, rule := range addressCredentials(rules) {
		for _, value := range rule.Values {
			if common.HexToAddress(value) == consumer {
				return true
			}
		}
	}
	return false
}

// nowUTC is the timestamp format used in DDO metadata.
func nowUTC() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}
