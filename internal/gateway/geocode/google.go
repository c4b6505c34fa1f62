package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"fleet-locator/internal/models"
)

// GoogleClient reverse-geocodes through the Google Maps Geocoding API.
type GoogleClient struct {
	httpClient HTTPClient
	baseURL    string
	apiKey     string
}

// NewGoogleClient creates a Google Maps geocoding client. baseURL is the
// geocode endpoint without query parameters.
func NewGoogleClient(httpClient HTTPClient, baseURL, apiKey string) *GoogleClient {
	return &GoogleClient{httpClient: httpClient, baseURL: baseURL, apiKey: apiKey}
}

type googleComponent struct {
	LongName string   `json:"long_name"`
	Types    []string `json:"types"`
}

type googleResult struct {
	FormattedAddress  string            `json:"formatted_address"`
	AddressComponents []googleComponent `json:"address_components"`
	PlusCode          struct {
		GlobalCode string `json:"global_code"`
	} `json:"plus_code"`
}

type googleResponse struct {
	Status  string         `json:"status"`
	Results []googleResult `json:"results"`
}

// componentSetters maps Google component type tags onto Address fields.
// Unmapped types are ignored. When a type appears on multiple components the
// last occurrence wins.
var componentSetters = map[string]func(*models.Address, string){
	"street_number":               func(a *models.Address, v string) { a.StreetNumber = v },
	"route":                       func(a *models.Address, v string) { a.Street = v },
	"locality":                    func(a *models.Address, v string) { a.City = v },
	"administrative_area_level_1": func(a *models.Address, v string) { a.State = v },
	"country":                     func(a *models.Address, v string) { a.Country = v },
	"postal_code":                 func(a *models.Address, v string) { a.PostalCode = v },
	"plus_code":                   func(a *models.Address, v string) { a.PlusCode = v },
}

// ReverseGeocode resolves coordinates through Google Maps. The API key never
// appears in returned errors.
func (g *GoogleClient) ReverseGeocode(ctx context.Context, lat, lon float64) (models.Address, error) {
	query := url.Values{}
	query.Set("latlng", formatCoordinate(lat)+","+formatCoordinate(lon))
	query.Set("key", g.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return models.Address{}, fmt.Errorf("geocode: build google request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return models.Address{}, fmt.Errorf("geocode: google request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.Address{}, fmt.Errorf("geocode: google returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Address{}, fmt.Errorf("geocode: read google response: %w", err)
	}

	var payload googleResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return models.Address{}, fmt.Errorf("geocode: invalid google response: %w", err)
	}

	if payload.Status == "ZERO_RESULTS" || len(payload.Results) == 0 {
		return models.Address{}, ErrNoResults
	}
	if payload.Status != "OK" {
		return models.Address{}, fmt.Errorf("geocode: google status %s", payload.Status)
	}

	return decodeGoogleResult(payload.Results[0]), nil
}

func decodeGoogleResult(result googleResult) models.Address {
	addr := models.Address{
		FormattedAddress: result.FormattedAddress,
		PlusCode:         result.PlusCode.GlobalCode,
	}
	for _, component := range result.AddressComponents {
		for _, typ := range component.Types {
			if set, ok := componentSetters[typ]; ok {
				set(&addr, component.LongName)
			}
		}
	}
	return addr
}

func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
