package chain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// TokenFeeInfo is the (collector, token, amount) triple used for publish- and
// consume-market fees. A zero amount means "no fee", with collector and token
// defaulting to the zero address. Field names follow the ABI tuple components
// so the struct packs directly.
type TokenFeeInfo struct {
	ConsumeMarketFeeAddress common.Address
	ConsumeMarketFeeToken   common.Address
	ConsumeMarketFeeAmount  *big.Int
}

// NewTokenFeeInfo builds a fee triple, normalizing the no-fee case.
func NewTokenFeeInfo(collector, token common.Address, amount *big.Int) TokenFeeInfo {
	if amount == nil || amount.Sign() == 0 {
		return ZeroTokenFeeInfo()
	}
	return TokenFeeInfo{
		ConsumeMarketFeeAddress: collector,
		ConsumeMarketFeeToken:   token,
		ConsumeMarketFeeAmount:  new(big.Int).Set(amount),
	}
}

// ZeroTokenFeeInfo is the "no fee" value.
func ZeroTokenFeeInfo() TokenFeeInfo {
	return TokenFeeInfo{ConsumeMarketFeeAmount: big.NewInt(0)}
}

// IsZero reports whether no fee is charged.
func (f TokenFeeInfo) IsZero() bool {
	return f.ConsumeMarketFeeAmount == nil || f.ConsumeMarketFeeAmount.Sign() == 0
}

// Amount returns the fee amount, never nil.
func (f TokenFeeInfo) Amount() *big.Int {
	if f.ConsumeMarketFeeAmount == nil {
		return big.NewInt(0)
	}
	return f.ConsumeMarketFeeAmount
}

// normalized returns a copy safe to ABI-pack: a nil amount becomes zero.
func (f TokenFeeInfo) normalized() TokenFeeInfo {
	if f.ConsumeMarketFeeAmount == nil {
		f.ConsumeMarketFeeAmount = big.NewInt(0)
	}
	return f
}

// ProviderFees is the signed, time-bounded provider-fee authorization returned
// by the provider's initialize endpoint. It is consumed exactly once per
// startOrder/reuseOrder call and must not be replayed past ValidUntil; the
// signature is verified by the contract, the client only forwards it.
type ProviderFees struct {
	ProviderFeeAddress common.Address
	ProviderFeeToken   common.Address
	ProviderFeeAmount  *big.Int
	V                  uint8
	R                  [32]byte
	S                  [32]byte
	ValidUntil         *big.Int
	ProviderData       []byte
}

// Expired reports whether the authorization is past its validity window.
// A zero ValidUntil means no bound.
func (p ProviderFees) Expired(now time.Time) bool {
	if p.ValidUntil == nil || p.ValidUntil.Sign() == 0 {
		return false
	}
	return p.ValidUntil.Cmp(big.NewInt(now.Unix())) < 0
}
