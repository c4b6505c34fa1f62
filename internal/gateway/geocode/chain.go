package geocode

import (
	"context"
	"errors"
	"fmt"

	"fleet-locator/internal/models"

	"github.com/rs/zerolog"
)

// Chain tries geocoding providers in order. A provider that answers "no
// results" or fails outright falls through to the next one. When no provider
// produced an address but at least one of them actually answered, the raw
// coordinate string is returned as a degraded result; only when every
// provider failed with a transport error does the chain return an error.
type Chain struct {
	providers []Geocoder
	logger    zerolog.Logger
}

// NewChain creates a provider chain tried in the given order.
func NewChain(logger zerolog.Logger, providers ...Geocoder) *Chain {
	return &Chain{providers: providers, logger: logger}
}

// ReverseGeocode implements Geocoder.
func (c *Chain) ReverseGeocode(ctx context.Context, lat, lon float64) (models.Address, error) {
	var transportErrs []error

	for _, provider := range c.providers {
		addr, err := provider.ReverseGeocode(ctx, lat, lon)
		if err == nil {
			return addr, nil
		}
		if errors.Is(err, ErrNoResults) {
			c.logger.Debug().Float64("lat", lat).Float64("lon", lon).Msg("geocode provider returned no results")
			continue
		}
		c.logger.Warn().Err(err).Msg("geocode provider failed")
		transportErrs = append(transportErrs, err)
	}

	if len(c.providers) > 0 && len(transportErrs) == len(c.providers) {
		return models.Address{}, fmt.Errorf("%w: %w", ErrUnavailable, errors.Join(transportErrs...))
	}

	return models.RawAddress(lat, lon), nil
}
