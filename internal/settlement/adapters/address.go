package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"settlement/internal/settlement/domain"
	apperrors "settlement/pkg/errors"
)

// HTTPAddressProvider resolves address references against the customer
// profile service.
type HTTPAddressProvider struct {
	client  *http.Client
	baseURL string
}

// NewHTTPAddressProvider creates a new address provider client
func NewHTTPAddressProvider(baseURL string, timeout time.Duration) *HTTPAddressProvider {
	return &HTTPAddressProvider{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

type addressResponse struct {
	Name           string `json:"name"`
	Building       string `json:"building"`
	Area           string `json:"area"`
	Landmark       string `json:"landmark"`
	City           string `json:"city"`
	State          string `json:"state"`
	Pincode        string `json:"pincode"`
	Phone          string `json:"phone"`
	AlternatePhone string `json:"alternatePhone"`
}

// Resolve fetches the address and returns it as a flat snapshot
func (p *HTTPAddressProvider) Resolve(ctx context.Context, addressID string) (domain.AddressSnapshot, error) {
	url := fmt.Sprintf("%s/v1/addresses/%s", p.baseURL, addressID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.AddressSnapshot{}, apperrors.NewInternal("failed to build address request", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return domain.AddressSnapshot{}, apperrors.NewInternal("address service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.AddressSnapshot{}, apperrors.NewNotFound("address", addressID)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.AddressSnapshot{}, apperrors.NewInternal(
			fmt.Sprintf("address service returned status %d", resp.StatusCode), nil)
	}

	var parsed addressResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.AddressSnapshot{}, apperrors.NewInternal("failed to decode address response", err)
	}

	return domain.AddressSnapshot{
		Name:           parsed.Name,
		Building:       parsed.Building,
		Area:           parsed.Area,
		Landmark:       parsed.Landmark,
		City:           parsed.City,
		State:          parsed.State,
		Pincode:        parsed.Pincode,
		Phone:          parsed.Phone,
		AlternatePhone: parsed.AlternatePhone,
	}, nil
}
