// internal/domain/geo/location.go

package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances
const EarthRadiusKm = 6371.0

// ErrInvalidParameters is returned for malformed or out-of-range coordinate input
var ErrInvalidParameters = errors.New("invalid parameters")

// Coordinate represents a geographic point in decimal degrees
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks that the coordinate is finite and within range
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || math.IsInf(c.Latitude, 0) || c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrInvalidParameters, c.Latitude)
	}
	if math.IsNaN(c.Longitude) || math.IsInf(c.Longitude, 0) || c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrInvalidParameters, c.Longitude)
	}
	return nil
}

// Distance returns the great-circle distance in kilometers between a and b
// using the haversine formula.
func Distance(a, b Coordinate) float64 {
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLat := toRadians(b.Latitude - a.Latitude)
	dLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	// Rounding can push h marginally outside [0, 1] for antipodal points
	h = math.Min(1, math.Max(0, h))

	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func toDegrees(rad float64) float64 {
	return rad * 180.0 / math.Pi
}

// BoundingBox is a latitude/longitude rectangle
type BoundingBox struct {
	MinLatitude  float64
	MaxLatitude  float64
	MinLongitude float64
	MaxLongitude float64
}

// Contains reports whether c lies inside the box, edges included
func (b BoundingBox) Contains(c Coordinate) bool {
	return c.Latitude >= b.MinLatitude && c.Latitude <= b.MaxLatitude &&
		c.Longitude >= b.MinLongitude && c.Longitude <= b.MaxLongitude
}

// boxMarginDeg widens boxes slightly so floating point error never excludes
// a point that the exact distance check would accept.
const boxMarginDeg = 1e-6

// BoundingBoxAround returns a rectangle enclosing every point within radiusKm
// of center. ok is false when the rectangle would cross a pole or the
// antimeridian; callers must then skip box pre-filtering.
func BoundingBoxAround(center Coordinate, radiusKm float64) (box BoundingBox, ok bool) {
	if radiusKm < 0 {
		return BoundingBox{}, false
	}

	angular := radiusKm / EarthRadiusKm
	dLat := toDegrees(angular)

	minLat := center.Latitude - dLat - boxMarginDeg
	maxLat := center.Latitude + dLat + boxMarginDeg
	if minLat <= -90 || maxLat >= 90 {
		return BoundingBox{}, false
	}

	ratio := math.Sin(angular) / math.Cos(toRadians(center.Latitude))
	if angular >= math.Pi/2 || ratio >= 1 {
		return BoundingBox{}, false
	}
	dLon := toDegrees(math.Asin(ratio))

	minLon := center.Longitude - dLon - boxMarginDeg
	maxLon := center.Longitude + dLon + boxMarginDeg
	if minLon < -180 || maxLon > 180 {
		return BoundingBox{}, false
	}

	return BoundingBox{
		MinLatitude:  minLat,
		MaxLatitude:  maxLat,
		MinLongitude: minLon,
		MaxLongitude: maxLon,
	}, true
}

// Polygon is an ordered ring of vertices. Closure is implicit: the last vertex
// connects back to the first whether or not it is repeated.
type Polygon []Coordinate

// Validate checks the vertex count and every vertex range
func (p Polygon) Validate() error {
	if len(p) < 3 {
		return fmt.Errorf("%w: polygon needs at least 3 vertices, got %d", ErrInvalidParameters, len(p))
	}
	for i, c := range p {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("vertex %d: %w", i, err)
		}
	}
	return nil
}

// Contains reports whether point lies inside the polygon using ray casting.
// Longitude is treated as x and latitude as y, which is adequate for
// venue-sized shapes that do not span the antimeridian.
func (p Polygon) Contains(point Coordinate) bool {
	if len(p) < 3 {
		return false
	}

	inside := false
	j := len(p) - 1
	for i := 0; i < len(p); i++ {
		xi, yi := p[i].Longitude, p[i].Latitude
		xj, yj := p[j].Longitude, p[j].Latitude

		if (yi > point.Latitude) != (yj > point.Latitude) {
			crossX := (xj-xi)*(point.Latitude-yi)/(yj-yi) + xi
			if point.Longitude < crossX {
				inside = !inside
			}
		}
		j = i
	}

	return inside
}

// MarshalJSON encodes the polygon as a list of [lat, lng] pairs, the shape
// map clients draw directly.
func (p Polygon) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("null"), nil
	}
	pairs := make([][2]float64, len(p))
	for i, c := range p {
		pairs[i] = [2]float64{c.Latitude, c.Longitude}
	}
	return json.Marshal(pairs)
}

// UnmarshalJSON decodes a list of [lat, lng] pairs
func (p *Polygon) UnmarshalJSON(data []byte) error {
	var pairs [][]float64
	if err := json.Unmarshal(data, &pairs); err != nil {
		return fmt.Errorf("%w: boundary must be a list of [lat, lng] pairs", ErrInvalidParameters)
	}
	if pairs == nil {
		*p = nil
		return nil
	}

	out := make(Polygon, len(pairs))
	for i, pair := range pairs {
		if len(pair) != 2 {
			return fmt.Errorf("%w: boundary vertex %d must have exactly 2 values", ErrInvalidParameters, i)
		}
		out[i] = Coordinate{Latitude: pair[0], Longitude: pair[1]}
	}
	*p = out
	return nil
}
