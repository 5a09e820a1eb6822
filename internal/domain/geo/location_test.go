package geo

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	sanFrancisco = Coordinate{Latitude: 37.7749, Longitude: -122.4194}
	losAngeles   = Coordinate{Latitude: 34.0522, Longitude: -118.2437}
)

func TestDistance_SanFranciscoToLosAngeles(t *testing.T) {
	d := Distance(sanFrancisco, losAngeles)
	assert.InDelta(t, 559, d, 2)
}

func TestDistance_Symmetric(t *testing.T) {
	points := []Coordinate{
		sanFrancisco,
		losAngeles,
		{Latitude: 0, Longitude: 0},
		{Latitude: -33.8688, Longitude: 151.2093},
		{Latitude: 89.9, Longitude: 179.9},
		{Latitude: -90, Longitude: -180},
	}

	for _, a := range points {
		for _, b := range points {
			assert.InDelta(t, Distance(a, b), Distance(b, a), 1e-9)
		}
	}
}

func TestDistance_IdenticalPointsIsZero(t *testing.T) {
	for _, c := range []Coordinate{sanFrancisco, {Latitude: 90, Longitude: 0}, {Latitude: -12.5, Longitude: 179.99}} {
		assert.Equal(t, 0.0, Distance(c, c))
	}
}

func TestDistance_Antipodal(t *testing.T) {
	d := Distance(Coordinate{Latitude: 0, Longitude: 0}, Coordinate{Latitude: 0, Longitude: 180})
	assert.False(t, math.IsNaN(d))
	assert.InDelta(t, math.Pi*EarthRadiusKm, d, 1e-6)
}

func TestCoordinate_Validate(t *testing.T) {
	assert.NoError(t, Coordinate{Latitude: 90, Longitude: -180}.Validate())

	invalid := []Coordinate{
		{Latitude: 90.1, Longitude: 0},
		{Latitude: -91, Longitude: 0},
		{Latitude: 0, Longitude: 180.5},
		{Latitude: math.NaN(), Longitude: 0},
		{Latitude: 0, Longitude: math.Inf(1)},
	}
	for _, c := range invalid {
		err := c.Validate()
		assert.True(t, errors.Is(err, ErrInvalidParameters), "expected invalid parameters for %+v", c)
	}
}

func TestBoundingBoxAround_EnclosesRadius(t *testing.T) {
	box, ok := BoundingBoxAround(sanFrancisco, 50)
	require.True(t, ok)
	assert.True(t, box.Contains(sanFrancisco))

	// Points exactly on the circle in the four cardinal directions stay inside
	for _, bearing := range []float64{0, 90, 180, 270} {
		p := destination(sanFrancisco, bearing, 50)
		assert.True(t, box.Contains(p), "bearing %v", bearing)
	}

	assert.False(t, box.Contains(losAngeles))
}

func TestBoundingBoxAround_SkipsPolesAndAntimeridian(t *testing.T) {
	_, ok := BoundingBoxAround(Coordinate{Latitude: 89.95, Longitude: 0}, 20)
	assert.False(t, ok)

	_, ok = BoundingBoxAround(Coordinate{Latitude: 0, Longitude: 179.99}, 20)
	assert.False(t, ok)

	_, ok = BoundingBoxAround(sanFrancisco, 20000)
	assert.False(t, ok)
}

func TestPolygon_Contains(t *testing.T) {
	square := Polygon{
		{Latitude: 0, Longitude: 0},
		{Latitude: 0, Longitude: 1},
		{Latitude: 1, Longitude: 1},
		{Latitude: 1, Longitude: 0},
	}

	assert.True(t, square.Contains(Coordinate{Latitude: 0.5, Longitude: 0.5}))
	assert.False(t, square.Contains(Coordinate{Latitude: 1.5, Longitude: 0.5}))
	assert.False(t, square.Contains(Coordinate{Latitude: 0.5, Longitude: -0.1}))

	closed := append(Polygon{}, square...)
	closed = append(closed, square[0])
	assert.True(t, closed.Contains(Coordinate{Latitude: 0.25, Longitude: 0.75}))

	assert.False(t, Polygon{{Latitude: 0, Longitude: 0}}.Contains(Coordinate{}))
}

func TestPolygon_Validate(t *testing.T) {
	assert.Error(t, Polygon{{Latitude: 0, Longitude: 0}, {Latitude: 1, Longitude: 1}}.Validate())
	assert.Error(t, Polygon{{Latitude: 0, Longitude: 0}, {Latitude: 1, Longitude: 1}, {Latitude: 95, Longitude: 0}}.Validate())
	assert.NoError(t, Polygon{{Latitude: 0, Longitude: 0}, {Latitude: 1, Longitude: 1}, {Latitude: 1, Longitude: 0}}.Validate())
}

func TestPolygon_JSON(t *testing.T) {
	var p Polygon
	require.NoError(t, json.Unmarshal([]byte(`[[51.5,-0.12],[51.6,-0.11],[51.55,-0.1]]`), &p))
	require.Len(t, p, 3)
	assert.Equal(t, Coordinate{Latitude: 51.5, Longitude: -0.12}, p[0])

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `[[51.5,-0.12],[51.6,-0.11],[51.55,-0.1]]`, string(out))

	var empty Polygon
	out, err = json.Marshal(empty)
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))

	assert.Error(t, json.Unmarshal([]byte(`[[1,2,3]]`), &p))
	assert.Error(t, json.Unmarshal([]byte(`"nope"`), &p))
}

// destination returns the point distanceKm away from origin along bearing degrees
func destination(origin Coordinate, bearingDeg, distanceKm float64) Coordinate {
	lat1 := toRadians(origin.Latitude)
	lon1 := toRadians(origin.Longitude)
	brng := toRadians(bearingDeg)
	ang := distanceKm / EarthRadiusKm

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(ang) + math.Cos(lat1)*math.Sin(ang)*math.Cos(brng))
	lon2 := lon1 + math.Atan2(math.Sin(brng)*math.Sin(ang)*math.Cos(lat1), math.Cos(ang)-math.Sin(lat1)*math.Sin(lat2))

	return Coordinate{Latitude: toDegrees(lat2), Longitude: toDegrees(lon2)}
}
