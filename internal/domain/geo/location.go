package geo

import "errors"

// Location is a last known position.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

var (
	ErrInvalidLatitude  = errors.New("latitude must be between -90 and 90")
	ErrInvalidLongitude = errors.New("longitude must be between -180 and 180")
)

// NewLocation validates ranges and returns the location.
func NewLocation(latitude, longitude float64) (Location, error) {
	loc := Location{Latitude: latitude, Longitude: longitude}
	return loc, loc.Validate()
}

// Validate checks coordinate ranges.
func (loc Location) Validate() error {
	if loc.Latitude < -90 || loc.Latitude > 90 {
		return ErrInvalidLatitude
	}
	if loc.Longitude < -180 || loc.Longitude > 180 {
		return ErrInvalidLongitude
	}
	return nil
}
