package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"fleet-locator/internal/models"
)

// Nominatim's usage policy requires a client-identifying User-Agent.
const defaultUserAgent = "fleet-locator/1.0"

// NominatimClient reverse-geocodes through an OpenStreetMap Nominatim
// endpoint. It is the fallback provider when Google returns nothing.
type NominatimClient struct {
	httpClient HTTPClient
	baseURL    string
	userAgent  string
}

// NewNominatimClient creates a Nominatim client for the given /reverse
// endpoint.
func NewNominatimClient(httpClient HTTPClient, baseURL string) *NominatimClient {
	return &NominatimClient{httpClient: httpClient, baseURL: baseURL, userAgent: defaultUserAgent}
}

type nominatimResponse struct {
	Error       string `json:"error"`
	DisplayName string `json:"display_name"`
	Address     struct {
		HouseNumber string `json:"house_number"`
		Road        string `json:"road"`
		City        string `json:"city"`
		Town        string `json:"town"`
		Village     string `json:"village"`
		State       string `json:"state"`
		Country     string `json:"country"`
		Postcode    string `json:"postcode"`
	} `json:"address"`
}

// ReverseGeocode resolves coordinates through Nominatim. The city field is
// filled from city, town, or village, in that order.
func (n *NominatimClient) ReverseGeocode(ctx context.Context, lat, lon float64) (models.Address, error) {
	query := url.Values{}
	query.Set("lat", formatCoordinate(lat))
	query.Set("lon", formatCoordinate(lon))
	query.Set("format", "jsonv2")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return models.Address{}, fmt.Errorf("geocode: build nominatim request: %w", err)
	}
	req.Header.Set("User-Agent", n.userAgent)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return models.Address{}, fmt.Errorf("geocode: nominatim request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.Address{}, fmt.Errorf("geocode: nominatim returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Address{}, fmt.Errorf("geocode: read nominatim response: %w", err)
	}

	var payload nominatimResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return models.Address{}, fmt.Errorf("geocode: invalid nominatim response: %w", err)
	}

	if payload.Error != "" || payload.DisplayName == "" {
		return models.Address{}, ErrNoResults
	}

	addr := models.Address{
		FormattedAddress: payload.DisplayName,
		StreetNumber:     payload.Address.HouseNumber,
		Street:           payload.Address.Road,
		State:            payload.Address.State,
		Country:          payload.Address.Country,
		PostalCode:       payload.Address.Postcode,
	}
	for _, candidate := range []string{payload.Address.City, payload.Address.Town, payload.Address.Village} {
		if candidate != "" {
			addr.City = candidate
			break
		}
	}

	return addr, nil
}
