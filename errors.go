package oceansdk

import (
	"errors"
	"fmt"
)

var (
	// ErrAssetNotFound is returned when the metadata index has no document
	// for a DID.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrConsumerNotAllowed is returned when an asset's credentials deny the
	// consumer.
	ErrConsumerNotAllowed = errors.New("consumer not allowed")
)

// InvalidParamError reports a rejected input before any network call.
type InvalidParamError struct {
	Message string
}

func (e *InvalidParamError) Error() string {
	return e.Message
}

// DIDAlreadyRegisteredError guards against double-publishing the same NFT:
// the DID is derived from the NFT address, so a second publish would shadow
// the first document.
type DIDAlreadyRegisteredError struct {
	DID string
}

func (e *DIDAlreadyRegisteredError) Error() string {
	return fmt.Sprintf("DID %s is already registered in the metadata index", e.DID)
}

// ValidationError reports a DDO rejected by the metadata index schema check.
type ValidationError struct {
	DID    string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("DDO validation failed for %s: %s", e.DID, e.Detail)
}

// AquariusError wraps a metadata-index request failure.
type AquariusError struct {
	Endpoint string
	Message  string
}

func (e *AquariusError) Error() string {
	return fmt.Sprintf("aquarius %s: %s", e.Endpoint, e.Message)
}

// AquariusTimeoutError indicates the index did not converge within the bound.
// Distinct from a validation failure: the on-chain write may still be
// propagating.
type AquariusTimeoutError struct {
	DID string
}

func (e *AquariusTimeoutError) Error() string {
	return fmt.Sprintf("timeout waiting for DID %s to appear in the metadata index", e.DID)
}

// ProviderError wraps a provider-service request failure.
type ProviderError struct {
	Endpoint string
	Message  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s", e.Endpoint, e.Message)
}

// ConsumableError reports an asset whose credentials deny the consumer. It
// wraps ErrConsumerNotAllowed for errors.Is matching.
type ConsumableError struct {
	DID      string
	Consumer string
}

func (e *ConsumableError) Error() string {
	return fmt.Sprintf("asset %s does not allow consumer %s", e.DID, e.Consumer)
}

func (e *ConsumableError) Unwrap() error { return ErrConsumerNotAllowed }
