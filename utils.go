package oceansdk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// MaxDecimals bounds supported token precision.
	MaxDecimals = 18

	// DIDPrefix is the protocol's decentralized-identifier scheme.
	DIDPrefix = "did:op:"
)

// DeriveDID computes the deterministic identifier of a data NFT: the sha256
// of the checksummed NFT address concatenated with the decimal chain id.
func DeriveDID(nftAddress common.Address, chainID int64) string {
	sum := sha256.Sum256([]byte(nftAddress.Hex() + strconv.FormatInt(chainID, 10)))
	return DIDPrefix + hex.EncodeToString(sum[:])
}

// ToBaseUnits converts a human-readable decimal string ("1.5") to base units
// using the token's own decimals. String input avoids float rounding on
// amounts that must match on-chain integers exactly.
func ToBaseUnits(amount string, decimals int) (*big.Int, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return nil, &InvalidParamError{Message: fmt.Sprintf("decimals must be between 0 and %d, got: %d", MaxDecimals, decimals)}
	}

	parts := strings.Split(amount, ".")
	if len(parts) > 2 {
		return nil, &InvalidParamError{Message: fmt.Sprintf("invalid amount format: %q", amount)}
	}

	integerPart := parts[0]
	decimalPart := ""
	if len(parts) == 2 {
		decimalPart = parts[1]
	}
	if integerPart == "" && decimalPart == "" {
		return nil, &InvalidParamError{Message: "empty amount"}
	}
	if integerPart == "" {
		integerPart = "0"
	}

	if len(decimalPart) > decimals {
		return nil, &InvalidParamError{Message: fmt.Sprintf("amount %q has more than %d decimal places", amount, decimals)}
	}
	decimalPart += strings.Repeat("0", decimals-len(decimalPart))

	result, ok := new(big.Int).SetString(integerPart+decimalPart, 10)
	if !ok {
		return nil, &InvalidParamError{Message: fmt.Sprintf("invalid amount: %q", amount)}
	}
	if result.Sign() < 0 {
		return nil, &InvalidParamError{Message: "amount must not be negative"}
	}
	return result, nil
}

// FromBaseUnits renders base units as a decimal string using the token's own
// decimals, trimming trailing zeros.
func FromBaseUnits(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0"
	}
	s := amount.String()
	if decimals == 0 {
		return s
	}

	negative := strings.HasPrefix(s, "-")
	if negative {
		s = s[1:]
	}
	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}

	integerPart := s[:len(s)-decimals]
	decimalPart := strings.TrimRight(s[len(s)-decimals:], "0")

	out := integerPart
	if decimalPart != "" {
		out += "." + decimalPart
	}
	if negative {
		out = "-" + out
	}
	return out
}

// checksumHash is the sha256 hex digest used for metadata proofs.
func checksumHash(data []byte) [32]byte {
	return sha256.Sum256(data)
}
