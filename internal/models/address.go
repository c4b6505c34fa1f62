package models

import "strconv"

// Coordinates is a latitude/longitude pair reported by the fleet-tracking API.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Address is a reverse-geocoded location. FormattedAddress is always set;
// the component fields are filled only when a provider returned them.
type Address struct {
	FormattedAddress string `json:"formatted_address"`
	StreetNumber     string `json:"street_number,omitempty"`
	Street           string `json:"street,omitempty"`
	City             string `json:"city,omitempty"`
	State            string `json:"state,omitempty"`
	Country          string `json:"country,omitempty"`
	PostalCode       string `json:"postal_code,omitempty"`
	PlusCode         string `json:"plus_code,omitempty"`
}

// RawAddress builds the degraded "lat,lon" address used when no geocoding
// provider returned a usable result.
func RawAddress(lat, lon float64) Address {
	return Address{
		FormattedAddress: strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lon, 'f', -1, 64),
	}
}

// VehicleLookup is the outcome of resolving a single license number: either
// an Address or the error that stopped that vehicle's pipeline.
type VehicleLookup struct {
	LicenseNmbr string
	Address     Address
	Err         error
}

// Failed reports whether this vehicle's lookup ended in an error.
func (v VehicleLookup) Failed() bool {
	return v.Err != nil
}
