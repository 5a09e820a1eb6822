package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultRadiusKm is used when a proximity query omits the radius
const DefaultRadiusKm = 10.0

// ProximityQuery is a validated "what is near this point" request
type ProximityQuery struct {
	Origin   Coordinate
	RadiusKm float64
}

// ParseProximityQuery converts raw query-string values into a ProximityQuery.
// An empty radius falls back to defaultRadius. Any non-numeric, non-finite or
// out-of-range value fails with ErrInvalidParameters.
func ParseProximityQuery(latStr, lonStr, radiusStr string, defaultRadius, maxRadius float64) (ProximityQuery, error) {
	if strings.TrimSpace(latStr) == "" || strings.TrimSpace(lonStr) == "" {
		return ProximityQuery{}, fmt.Errorf("%w: lat and lon are required", ErrInvalidParameters)
	}

	lat, err := parseFloat("lat", latStr)
	if err != nil {
		return ProximityQuery{}, err
	}

	lon, err := parseFloat("lon", lonStr)
	if err != nil {
		return ProximityQuery{}, err
	}

	radius := defaultRadius
	if strings.TrimSpace(radiusStr) != "" {
		radius, err = parseFloat("radius", radiusStr)
		if err != nil {
			return ProximityQuery{}, err
		}
	}

	return NewProximityQuery(Coordinate{Latitude: lat, Longitude: lon}, radius, maxRadius)
}

// NewProximityQuery validates an already-typed query. maxRadius <= 0 means no upper bound.
func NewProximityQuery(origin Coordinate, radiusKm, maxRadius float64) (ProximityQuery, error) {
	if err := origin.Validate(); err != nil {
		return ProximityQuery{}, err
	}
	if radiusKm < 0 {
		return ProximityQuery{}, fmt.Errorf("%w: radius must not be negative", ErrInvalidParameters)
	}
	if maxRadius > 0 && radiusKm > maxRadius {
		return ProximityQuery{}, fmt.Errorf("%w: radius exceeds %v km", ErrInvalidParameters, maxRadius)
	}

	return ProximityQuery{Origin: origin, RadiusKm: radiusKm}, nil
}

func parseFloat(name, raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s is not a number", ErrInvalidParameters, name)
	}
	// ParseFloat accepts "NaN" and "Inf"
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s is not finite", ErrInvalidParameters, name)
	}
	return v, nil
}
