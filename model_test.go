package oceansdk

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	allowedConsumer = common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	deniedConsumer  = common.HexToAddress("0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB")
	otherConsumer   = common.HexToAddress("0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb")
)

func TestIsConsumableNoCredentials(t *testing.T) {
	ddo := &DDO{}
	assert.True(t, ddo.IsConsumable(otherConsumer))
}

func TestIsConsumableDenyWins(t *testing.T) {
	ddo := &DDO{Credentials: &Credentials{
		Allow: []Credential{{Type: CredentialTypeAddress, Values: []string{deniedConsumer.Hex()}}},
		Deny:  []Credential{{Type: CredentialTypeAddress, Values: []string{deniedConsumer.Hex()}}},
	}}
	assert.False(t, ddo.IsConsumable(deniedConsumer), "deny beats allow for the same address")
}

func TestIsConsumableEmptyAllowAdmitsEveryone(t *testing.T) {
	ddo := &DDO{Credentials: &Credentials{
		Deny: []Credential{{Type: CredentialTypeAddress, Values: []string{deniedConsumer.Hex()}}},
	}}
	assert.True(t, ddo.IsConsumable(otherConsumer))
	assert.False(t, ddo.IsConsumable(deniedConsumer))
}

func TestIsConsumableAllowListRestricts(t *testing.T) {
	ddo := &DDO{Credentials: &Credentials{
		Allow: []Credential{{Type: CredentialTypeAddress, Values: []string{allowedConsumer.Hex()}}},
	}}
	assert.True(t, ddo.IsConsumable(allowedConsumer))
	assert.False(t, ddo.IsConsumable(otherConsumer))
}

func TestIsConsumableMatchesChecksummedEquality(t *testing.T) {
	// Lowercase list entries must still match: comparison is on parsed
	// addresses, never raw strings.
	ddo := &DDO{Credentials: &Credentials{
		Allow: []Credential{{Type: CredentialTypeAddress, Values: []string{"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"}}},
	}}
	assert.True(t, ddo.IsConsumable(allowedConsumer))
}

func TestIsConsumableIgnoresUnknownCredentialTypes(t *testing.T) {
	// A non-address allow rule alone must not lock everyone out.
	ddo := &DDO{Credentials: &Credentials{
		Allow: []Credential{{Type: "accessList", Values: []string{"something"}}},
	}}
	assert.True(t, ddo.IsConsumable(otherConsumer))
}

func TestServiceByID(t *testing.T) {
	ddo := &DDO{Services: []Service{
		{ID: "first", Type: "access"},
		{ID: "second", Type: "compute"},
	}}

	assert.Equal(t, "first", ddo.ServiceByID("").ID, "empty id selects the first service")
	assert.Equal(t, "second", ddo.ServiceByID("second").ID)
	assert.Nil(t, ddo.ServiceByID("missing"))

	empty := &DDO{}
	assert.Nil(t, empty.ServiceByID(""))
}

func TestServiceIndex(t *testing.T) {
	ddo := &DDO{Services: []Service{{ID: "a"}, {ID: "b"}}}
	assert.Equal(t, 0, ddo.ServiceIndex("a"))
	assert.Equal(t, 1, ddo.ServiceIndex("b"))
	assert.Equal(t, -1, ddo.ServiceIndex("c"))
}

func TestDDOJSONShape(t *testing.T) {
	ddo := &DDO{
		Context:    []string{"https://w3id.org/did/v1"},
		ID:         "did:op:abc",
		Version:    "4.1.0",
		ChainID:    8996,
		NFTAddress: allowedConsumer.Hex(),
		Services: []Service{{
			ID:        "0",
			Type:      "access",
			Datatoken: deniedConsumer.Hex(),
		}},
	}

	raw, err := json.Marshal(ddo)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Contains(t, decoded, "@context")
	assert.Contains(t, decoded, "chainId")
	assert.Contains(t, decoded, "nftAddress")

	svc := decoded["services"].([]interface{})[0].(map[string]interface{})
	assert.Contains(t, svc, "datatokenAddress")

	var back DDO
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, deniedConsumer, back.Services[0].DatatokenAddress())
}
