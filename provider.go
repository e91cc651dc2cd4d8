package oceansdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"github.com/oceanprotocol/ocean-sdk-go/chain"
)

// signer is the piece of the contract caller the provider client needs:
// personal-message signatures proving control of the consumer address.
type signer interface {
	SignerAddress() common.Address
	Sign(digest []byte) ([]byte, error)
}

// Provider is a client for the access controller service. The provider holds
// the decrypted file URLs, quotes provider fees for orders, and streams asset
// contents to consumers who hold a valid order.
type Provider struct {
	baseURL string
	signer  signer
	client  *http.Client
	log     *zap.Logger
}

// NewProvider creates an access controller client.
func NewProvider(baseURL string, signer signer, log *zap.Logger) *Provider {
	if log == nil {
		log = zap.NewNop()
	}
	return &Provider{
		baseURL: strings.TrimRight(baseURL, "/"),
		signer:  signer,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		log: log,
	}
}

// BaseURL returns the configured service root.
func (p *Provider) BaseURL() string {
	return p.baseURL
}

// initializeResponse is the provider's quote for starting an order.
type initializeResponse struct {
	DatatokenAddress string `json:"datatoken"`
	Nonce            string `json:"nonce"`
	ProviderFee      struct {
		ProviderFeeAddress string `json:"providerFeeAddress"`
		ProviderFeeToken   string `json:"providerFeeToken"`
		ProviderFeeAmount  string `json:"providerFeeAmount"`
		V                  uint8  `json:"v"`
		R                  string `json:"r"`
		S                  string `json:"s"`
		ValidUntil         int64  `json:"validUntil"`
		ProviderData       string `json:"providerData"`
	} `json:"providerFee"`
}

// Initialize asks the provider for the signed fee quote required to start an
// order on the given service. The returned fee tuple is passed to startOrder
// verbatim; the contract verifies the provider's signature over it.
func (p *Provider) Initialize(ctx context.Context, did string, svc *Service, consumer common.Address) (*chain.ProviderFees, error) {
	endpoint := "/api/services/initialize"
	query := url.Values{}
	query.Set("documentId", did)
	query.Set("serviceId", svc.ID)
	query.Set("consumerAddress", consumer.Hex())

	resp, err := p.get(ctx, endpoint, query)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result initializeResponse
	if err := p.decodeJSONResponse(resp, endpoint, &result); err != nil {
		return nil, err
	}
	return parseProviderFees(&result)
}

func parseProviderFees(resp *initializeResponse) (*chain.ProviderFees, error) {
	fee := resp.ProviderFee

	amount := big.NewInt(0)
	if fee.ProviderFeeAmount != "" {
		var ok bool
		amount, ok = new(big.Int).SetString(fee.ProviderFeeAmount, 10)
		if !ok {
			return nil, fmt.Errorf("invalid provider fee amount %q", fee.ProviderFeeAmount)
		}
	}

	r, err := hexWord(fee.R)
	if err != nil {
		return nil, fmt.Errorf("invalid provider fee r: %w", err)
	}
	s, err := hexWord(fee.S)
	if err != nil {
		return nil, fmt.Errorf("invalid provider fee s: %w", err)
	}

	providerData := []byte{}
	if fee.ProviderData != "" {
		providerData, err = hexutil.Decode(fee.ProviderData)
		if err != nil {
			return nil, fmt.Errorf("invalid provider data: %w", err)
		}
	}

	return &chain.ProviderFees{
		ProviderFeeAddress: common.HexToAddress(fee.ProviderFeeAddress),
		ProviderFeeToken:   common.HexToAddress(fee.ProviderFeeToken),
		ProviderFeeAmount:  amount,
		V:                  fee.V,
		R:                  r,
		S:                  s,
		ValidUntil:         big.NewInt(fee.ValidUntil),
		ProviderData:       providerData,
	}, nil
}

func hexWord(value string) ([32]byte, error) {
	var word [32]byte
	if value == "" {
		return word, nil
	}
	raw, err := hexutil.Decode(value)
	if err != nil {
		return word, err
	}
	if len(raw) != 32 {
		return word, fmt.Errorf("expected 32 bytes, got %d", len(raw))
	}
	copy(word[:], raw)
	return word, nil
}

// Encrypt sends the plaintext files document to the provider and returns the
// opaque encrypted blob published in the DDO service. The provider alone can
// decrypt it at download time.
func (p *Provider) Encrypt(ctx context.Context, plaintext []byte, chainID int64) (string, error) {
	endpoint := fmt.Sprintf("/api/services/encrypt?chainId=%d", chainID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+endpoint, bytes.NewReader(plaintext))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", &ProviderError{Endpoint: endpoint, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", &ProviderError{Endpoint: endpoint, Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body))}
	}
	return string(body), nil
}

// nonce fetches the provider's monotonic nonce for the consumer. Each signed
// download request must carry a nonce above the last accepted one.
func (p *Provider) nonce(ctx context.Context, consumer common.Address) (string, error) {
	endpoint := "/api/services/nonce"
	query := url.Values{}
	query.Set("userAddress", consumer.Hex())

	resp, err := p.get(ctx, endpoint, query)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result struct {
		Nonce json.Number `json:"nonce"`
	}
	if err := p.decodeJSONResponse(resp, endpoint, &result); err != nil {
		return "", err
	}
	return result.Nonce.String(), nil
}

// Download streams one file of an ordered service. orderTxID is the hash of
// the confirmed startOrder transaction; the provider verifies it on chain
// before releasing the content. The caller owns the returned reader.
func (p *Provider) Download(ctx context.Context, did string, svc *Service, orderTxID common.Hash, fileIndex int) (io.ReadCloser, error) {
	consumer := p.signer.SignerAddress()

	nonce, err := p.nonce(ctx, consumer)
	if err != nil {
		return nil, err
	}

	// The provider authenticates the consumer with a personal-message
	// signature over did+nonce.
	digest := accounts.TextHash([]byte(did + nonce))
	signature, err := p.signer.Sign(digest)
	if err != nil {
		return nil, fmt.Errorf("failed to sign download request: %w", err)
	}

	endpoint := "/api/services/download"
	query := url.Values{}
	query.Set("documentId", did)
	query.Set("serviceId", svc.ID)
	query.Set("transferTxId", orderTxID.Hex())
	query.Set("consumerAddress", consumer.Hex())
	query.Set("fileIndex", fmt.Sprintf("%d", fileIndex))
	query.Set("nonce", nonce)
	query.Set("signature", hexutil.Encode(signature))

	resp, err := p.get(ctx, endpoint, query)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &ProviderError{Endpoint: endpoint, Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body))}
	}
	return resp.Body, nil
}

func (p *Provider) get(ctx context.Context, endpoint string, query url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s%s?%s", p.baseURL, endpoint, query.Encode()), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Endpoint: endpoint, Message: err.Error()}
	}
	return resp, nil
}

func (p *Provider) decodeJSONResponse(resp *http.Response, endpoint string, result interface{}) error {
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		bodyStr := string(bodyBytes)
		if bodyStr == "" {
			bodyStr = resp.Status
		}
		return &ProviderError{Endpoint: endpoint, Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, bodyStr)}
	}

	if err := json.Unmarshal(bodyBytes, result); err != nil {
		bodyStr := string(bodyBytes)
		if len(bodyStr) > 200 {
			bodyStr = bodyStr[:200] + "..."
		}
		return fmt.Errorf("failed to decode JSON response: %w (body: %s)", err, bodyStr)
	}
	return nil
}
