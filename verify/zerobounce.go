package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"mailgate/config"
)

// ZeroBounceProvider calls the ZeroBounce validate API. Each successful call
// spends one credit, which is why callers cache and dedup around it.
type ZeroBounceProvider struct {
	APIKey string
	APIURL string
	Client *http.Client
}

func NewZeroBounceProvider(cfg *config.Config) *ZeroBounceProvider {
	return &ZeroBounceProvider{
		APIKey: cfg.ZeroBounceAPIKey,
		APIURL: cfg.ZeroBounceAPIURL,
		Client: &http.Client{Timeout: cfg.ProviderTimeout},
	}
}

func (p *ZeroBounceProvider) Name() string { return "zerobounce" }

func (p *ZeroBounceProvider) Verify(ctx context.Context, email, clientIP string) (*ProviderResult, error) {
	if p.APIKey == "" {
		return nil, fmt.Errorf("zerobounce: missing API key")
	}

	params := url.Values{}
	params.Set("api_key", p.APIKey)
	params.Set("email", email)
	if clientIP != "" {
		// Optional caller origin improves the provider's scoring context.
		params.Set("ip_address", clientIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.APIURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("zerobounce: build request: %w", err)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("zerobounce: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("zerobounce: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("zerobounce: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("zerobounce: unmarshal response: %w", err)
	}
	if payload.Status == "" {
		return nil, fmt.Errorf("zerobounce: response missing status")
	}

	return &ProviderResult{Status: payload.Status, Raw: body}, nil
}
