package geocode

import (
	"context"
	"errors"
	"net/http"

	"fleet-locator/internal/models"
)

// Geocoder converts coordinates into a human-readable address.
type Geocoder interface {
	// ReverseGeocode resolves lat/lon to an Address. Implementations return
	// ErrNoResults when the provider responded but had nothing for the
	// coordinates; any other error is a transport/HTTP failure.
	ReverseGeocode(ctx context.Context, lat, lon float64) (models.Address, error)
}

// ErrNoResults indicates the provider answered but knows no address for the
// coordinates.
var ErrNoResults = errors.New("geocode: no results")

// ErrUnavailable indicates every configured provider failed with a
// transport error, so not even a degraded result could be produced.
var ErrUnavailable = errors.New("geocode: all providers unavailable")

// HTTPClient is implemented by http.Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
