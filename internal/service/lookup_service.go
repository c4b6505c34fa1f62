package service

import (
	"context"
	"fmt"

	"fleet-locator/internal/models"
)

// LookupService drives the per-request pipeline: authenticate once, then for
// each license number fetch its last position and reverse-geocode it.
type LookupService struct {
	auth     Authenticator
	fleet    PositionFetcher
	geocoder ReverseGeocoder
}

// Authenticator yields a valid fleet-tracking session token, reusing a cached
// one when possible.
type Authenticator interface {
	Authenticate(ctx context.Context) (string, error)
}

// PositionFetcher queries the fleet-tracking API for a vehicle's last-known
// coordinates.
type PositionFetcher interface {
	LastPosition(ctx context.Context, token, licenseNmbr string) (models.Coordinates, error)
}

// ReverseGeocoder converts coordinates to an address.
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (models.Address, error)
}

// NewLookupService creates a new lookup service.
func NewLookupService(auth Authenticator, fleet PositionFetcher, geocoder ReverseGeocoder) *LookupService {
	return &LookupService{auth: auth, fleet: fleet, geocoder: geocoder}
}

// Locate resolves each license number to an address. Authentication happens
// once for the whole batch and an authentication failure aborts it; after
// that, each license number is processed independently and its failure is
// recorded in its own result. A fetch failure short-circuits that vehicle's
// geocode step. Results keep the request order, duplicates included.
func (s *LookupService) Locate(ctx context.Context, licenseNmbrs []string) ([]models.VehicleLookup, error) {
	if len(licenseNmbrs) == 0 {
		return nil, fmt.Errorf("service: at least one license number required")
	}

	token, err := s.auth.Authenticate(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to authenticate: %w", err)
	}

	results := make([]models.VehicleLookup, 0, len(licenseNmbrs))
	for _, licenseNmbr := range licenseNmbrs {
		coords, err := s.fleet.LastPosition(ctx, token, licenseNmbr)
		if err != nil {
			results = append(results, models.VehicleLookup{
				LicenseNmbr: licenseNmbr,
				Err:         fmt.Errorf("service: failed to fetch position: %w", err),
			})
			continue
		}

		addr, err := s.geocoder.ReverseGeocode(ctx, coords.Latitude, coords.Longitude)
		if err != nil {
			results = append(results, models.VehicleLookup{
				LicenseNmbr: licenseNmbr,
				Err:         fmt.Errorf("service: failed to reverse geocode: %w", err),
			})
			continue
		}

		results = append(results, models.VehicleLookup{LicenseNmbr: licenseNmbr, Address: addr})
	}

	return results, nil
}
