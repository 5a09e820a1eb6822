// internal/service/geo/proximity.go

package geo

import (
	"sort"

	"stagemap/internal/domain/event"
	"stagemap/internal/domain/geo"
)

// ProximityConfig contains configuration for proximity queries
type ProximityConfig struct {
	DefaultRadius float64
	MaxRadius     float64
}

// ProximityService turns raw request parameters into validated queries and
// ranks candidate events by distance
type ProximityService struct {
	config ProximityConfig
}

// NewProximityService creates a new proximity service
func NewProximityService(config ProximityConfig) *ProximityService {
	if config.DefaultRadius <= 0 {
		config.DefaultRadius = geo.DefaultRadiusKm
	}
	return &ProximityService{config: config}
}

// ParseQuery validates the lat, lon and radius query-string values
func (s *ProximityService) ParseQuery(lat, lon, radius string) (geo.ProximityQuery, error) {
	return geo.ParseProximityQuery(lat, lon, radius, s.config.DefaultRadius, s.config.MaxRadius)
}

// SearchBox returns the bounding box that prefilters candidates for query.
// ok is false when no box can safely bound the circle.
func (s *ProximityService) SearchBox(query geo.ProximityQuery) (*geo.BoundingBox, bool) {
	box, ok := geo.BoundingBoxAround(query.Origin, query.RadiusKm)
	if !ok {
		return nil, false
	}
	return &box, true
}

// FilterNearby keeps the events whose great-circle distance from origin is
// within radiusKm and orders them closest first. Ties keep input order.
func FilterNearby(events []event.Event, origin geo.Coordinate, radiusKm float64) []event.NearbyEvent {
	nearby := make([]event.NearbyEvent, 0, len(events))

	for _, e := range events {
		d := geo.Distance(origin, e.Location)
		if d <= radiusKm {
			nearby = append(nearby, event.NearbyEvent{Event: e, DistanceKm: d})
		}
	}

	sort.SliceStable(nearby, func(i, j int) bool {
		return nearby[i].DistanceKm < nearby[j].DistanceKm
	})

	return nearby
}
