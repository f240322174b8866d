package domain

import (
	"context"
	"errors"
)

// ErrAddressNotFound is returned by a Geocoder when the provider has no match.
var ErrAddressNotFound = errors.New("address not found")

// GeocodingResult contains the location a geocoding provider resolved.
type GeocodingResult struct {
	Coordinates
	DisplayName string
}

// Geocoder resolves free-text addresses to coordinates.
type Geocoder interface {
	// Geocode returns ErrAddressNotFound when the provider finds no match.
	// Any other error means the provider could not be asked.
	Geocode(ctx context.Context, address string) (GeocodingResult, error)
}
