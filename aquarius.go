package oceansdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jpillora/backoff"
	"go.uber.org/zap"
)

// Aquarius is a client for the metadata cache service. Aquarius indexes
// MetadataCreated/MetadataUpdated events and serves resolved DDO documents.
type Aquarius struct {
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

// NewAquarius creates a metadata cache client. The trailing slash on
// baseURL is optional.
func NewAquarius(baseURL string, log *zap.Logger) *Aquarius {
	if log == nil {
		log = zap.NewNop()
	}
	return &Aquarius{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// BaseURL returns the configured service root.
func (a *Aquarius) BaseURL() string {
	return a.baseURL
}

func (a *Aquarius) doRequest(ctx context.Context, method, endpoint string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	url := fmt.Sprintf("%s%s", a.baseURL, endpoint)
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &AquariusError{Endpoint: endpoint, Message: err.Error()}
	}
	return resp, nil
}

func (a *Aquarius) decodeJSONResponse(resp *http.Response, endpoint string, result interface{}) error {
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		bodyStr := string(bodyBytes)
		if bodyStr == "" {
			bodyStr = resp.Status
		}
		return &AquariusError{Endpoint: endpoint, Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, bodyStr)}
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

// ValidationResult is the outcome of a remote DDO validation.
type ValidationResult struct {
	Valid  bool
	Errors string
}

// ValidateDDO submits a DDO to the service-side validator. A non-conforming
// document returns Valid=false with the validator's error payload; transport
// and server failures return an error.
func (a *Aquarius) ValidateDDO(ctx context.Context, ddo *DDO) (*ValidationResult, error) {
	endpoint := "/api/aquarius/assets/ddo/validate"
	resp, err := a.doRequest(ctx, "POST", endpoint, ddo)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return &ValidationResult{Valid: true}, nil
	case http.StatusBadRequest:
		return &ValidationResult{Valid: false, Errors: string(bodyBytes)}, nil
	default:
		return nil, &AquariusError{Endpoint: endpoint, Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(bodyBytes))}
	}
}

// DDOExists reports whether the cache already holds a document for the DID.
func (a *Aquarius) DDOExists(ctx context.Context, did string) (bool, error) {
	endpoint := fmt.Sprintf("/api/aquarius/assets/ddo/%s", did)
	resp, err := a.doRequest(ctx, "GET", endpoint, nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, &AquariusError{Endpoint: endpoint, Message: resp.Status}
	}
}

// Resolve fetches the indexed DDO for a DID. An unindexed DID returns
// ErrAssetNotFound.
func (a *Aquarius) Resolve(ctx context.Context, did string) (*DDO, error) {
	endpoint := fmt.Sprintf("/api/aquarius/assets/ddo/%s", did)
	resp, err := a.doRequest(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("resolve %s: %w", did, ErrAssetNotFound)
	}

	var ddo DDO
	if err := a.decodeJSONResponse(resp, endpoint, &ddo); err != nil {
		return nil, err
	}
	return &ddo, nil
}

// WaitForDDO polls until the cache has indexed the DID or ctx expires.
// Publication flows call this after SetMetaData confirms, since indexing
// lags the chain by a few blocks.
func (a *Aquarius) WaitForDDO(ctx context.Context, did string) (*DDO, error) {
	b := &backoff.Backoff{
		Min:    time.Second,
		Max:    10 * time.Second,
		Factor: 2,
		Jitter: true,
	}
	for {
		ddo, err := a.Resolve(ctx, did)
		if err == nil {
			return ddo, nil
		}
		a.log.Debug("asset not indexed yet, retrying",
			zap.String("did", did),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, &AquariusTimeoutError{DID: did}
		case <-time.After(b.Duration()):
		}
	}
}

// QuerySearch runs an Elasticsearch-style query against the cache and
// returns the matching documents.
func (a *Aquarius) QuerySearch(ctx context.Context, query map[string]interface{}) ([]*DDO, error) {
	endpoint := "/api/aquarius/assets/query"
	resp, err := a.doRequest(ctx, "POST", endpoint, query)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result struct {
		Hits struct {
			Hits []struct {
				Source *DDO `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := a.decodeJSONResponse(resp, endpoint, &result); err != nil {
		return nil, err
	}

	ddos := make([]*DDO, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		if hit.Source != nil {
			ddos = append(ddos, hit.Source)
		}
	}
	return ddos, nil
}
