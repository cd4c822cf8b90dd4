package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNoVehicles is returned when the account lists no vehicle.
	ErrNoVehicles = errors.New("no vehicles found")
	// ErrNoFuelLevel is returned when a vehicle carries no fuel_level_percent value.
	ErrNoFuelLevel = errors.New("vehicle has no fuel level")
	// ErrUnsupportedFuelLevel is returned when fuel_level_percent is neither a
	// number nor a string.
	ErrUnsupportedFuelLevel = errors.New("unsupported fuel level value")
)

// Vehicle is one entry of the vehicle list returned by the Automatic API.
// Only FuelLevelPercent is consumed by the bot; the other fields are kept for
// logging and metrics tags.
type Vehicle struct {
	ID               string    `json:"id"`
	URL              string    `json:"url"`
	VIN              string    `json:"vin"`
	Make             string    `json:"make"`
	Model            string    `json:"model"`
	Year             int       `json:"year"`
	DisplayName      string    `json:"display_name"`
	FuelLevelPercent FuelLevel `json:"fuel_level_percent"`
}

// Name returns a human readable label for the vehicle.
func (v Vehicle) Name() string {
	if v.DisplayName != "" {
		return v.DisplayName
	}
	if v.Make != "" || v.Model != "" {
		return fmt.Sprintf("%d %s %s", v.Year, v.Make, v.Model)
	}
	return v.ID
}

// ListMetadata is the pagination block of a list response.
type ListMetadata struct {
	Count    int    `json:"count"`
	Next     string `json:"next"`
	Previous string `json:"previous"`
}

// VehicleList is the body of GET /vehicle.
type VehicleList struct {
	Metadata ListMetadata `json:"_metadata"`
	Results  []Vehicle    `json:"results"`
}

// First returns the first listed vehicle.
func (l VehicleList) First() (Vehicle, error) {
	if len(l.Results) == 0 {
		return Vehicle{}, ErrNoVehicles
	}
	return l.Results[0], nil
}

// FuelLevel keeps fuel_level_percent exactly as the API sent it. The API has
// returned both numbers and numeric strings for this field, so no coercion is
// applied.
type FuelLevel struct {
	raw json.RawMessage
}

// UnmarshalJSON stores the raw value.
func (f *FuelLevel) UnmarshalJSON(b []byte) error {
	f.raw = append(f.raw[:0], b...)
	return nil
}

// MarshalJSON writes the raw value back, or null when unset.
func (f FuelLevel) MarshalJSON() ([]byte, error) {
	if len(f.raw) == 0 {
		return []byte("null"), nil
	}
	return f.raw, nil
}

// IsSet reports whether the field was present and not null.
func (f FuelLevel) IsSet() bool {
	v := bytes.TrimSpace(f.raw)
	return len(v) > 0 && !bytes.Equal(v, []byte("null"))
}

// Text renders the value verbatim: string contents for JSON strings and the
// literal for JSON numbers. A missing or null value returns ErrNoFuelLevel;
// booleans, objects and arrays return ErrUnsupportedFuelLevel.
func (f FuelLevel) Text() (string, error) {
	if !f.IsSet() {
		return "", ErrNoFuelLevel
	}
	v := bytes.TrimSpace(f.raw)
	switch c := v[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return "", fmt.Errorf("decode fuel level: %w", err)
		}
		return s, nil
	case c == '-' || (c >= '0' && c <= '9'):
		return string(v), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFuelLevel, v)
	}
}

// String implements fmt.Stringer. Unset or unsupported values render empty.
func (f FuelLevel) String() string {
	s, _ := f.Text()
	return s
}
