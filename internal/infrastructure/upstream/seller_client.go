package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/shopsphere/session-gateway/internal/core/domain"
)

// SellerStatusClient reads a seller's onboarding status from the backend.
// The raw status string is normalized at this boundary so that nothing
// outside ever sees an open-ended status value.
type SellerStatusClient struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// NewSellerStatusClient creates a client against baseURL.
func NewSellerStatusClient(baseURL string, client *http.Client, log zerolog.Logger) *SellerStatusClient {
	if client == nil {
		client = &http.Client{Timeout: defaultRequestTimeout}
	}
	return &SellerStatusClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    client,
		log:     log,
	}
}

// statusResponse mirrors the backend's seller status payload. The status
// field name is inconsistent upstream (status vs accountStatus); both are
// consumed.
type statusResponse struct {
	Success bool            `json:"success"`
	Seller  json.RawMessage `json:"seller"`
}

// FetchStatus returns the normalized onboarding status plus the refreshed
// seller profile from the response.
func (c *SellerStatusClient) FetchStatus(ctx context.Context, token string) (domain.OnboardingStatus, json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/seller/status", nil)
	if err != nil {
		return domain.StatusUnknown, nil, fmt.Errorf("status request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.StatusUnknown, nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.StatusUnknown, nil, fmt.Errorf("%w: status endpoint returned %d", domain.ErrUpstream, resp.StatusCode)
	}

	var decoded statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.StatusUnknown, nil, fmt.Errorf("%w: decode status response: %v", domain.ErrUpstream, err)
	}
	if !decoded.Success || len(decoded.Seller) == 0 {
		return domain.StatusUnknown, nil, fmt.Errorf("%w: empty status response", domain.ErrUpstream)
	}

	status := domain.StatusFromProfile(decoded.Seller)
	if status == domain.StatusUnknown {
		return domain.StatusUnknown, nil, fmt.Errorf("%w: response missing status field", domain.ErrUpstream)
	}

	return status, decoded.Seller, nil
}
