// Package geofence computes the on-site confirmation verdict: how far an
// actor's live position is from a target coordinate, and whether that falls
// inside the configured radius. Pure computation, no I/O.
package geofence

import (
	"math"

	dErrors "fieldproof/pkg/domain-errors"
)

// earthRadiusMeters is the spherical Earth approximation used by the
// great-circle distance.
const earthRadiusMeters = 6371000.0

// DefaultRadiusMeters applies when deployment configuration does not override
// the geofence radius.
const DefaultRadiusMeters = 100.0

// Result is the verdict for a single evaluation.
type Result struct {
	DistanceMeters float64
	WithinRange    bool
}

// Evaluator holds the configured radius. The radius comes from deployment
// configuration only; request input never changes it.
type Evaluator struct {
	radiusMeters float64
}

// New builds an Evaluator. A non-positive radius falls back to the default.
func New(radiusMeters float64) *Evaluator {
	if radiusMeters <= 0 {
		radiusMeters = DefaultRadiusMeters
	}
	return &Evaluator{radiusMeters: radiusMeters}
}

// RadiusMeters reports the configured radius.
func (e *Evaluator) RadiusMeters() float64 { return e.radiusMeters }

// Evaluate computes the great-circle distance between the actor and the target
// and checks it against the radius. Invalid coordinates fail with
// invalid_input; callers must treat that as a hard stop before any mutation.
func (e *Evaluator) Evaluate(actorLat, actorLng, targetLat, targetLng float64) (Result, error) {
	if err := validateCoordinates(actorLat, actorLng); err != nil {
		return Result{}, err
	}
	if err := validateCoordinates(targetLat, targetLng); err != nil {
		return Result{}, err
	}

	distance := haversine(actorLat, actorLng, targetLat, targetLng)
	return Result{
		DistanceMeters: distance,
		WithinRange:    distance <= e.radiusMeters,
	}, nil
}

func validateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return dErrors.New(dErrors.CodeInvalidInput, "coordinates must be finite numbers")
	}
	if lat < -90 || lat > 90 {
		return dErrors.Newf(dErrors.CodeInvalidInput, "latitude %v out of range [-90,90]", lat)
	}
	if lng < -180 || lng > 180 {
		return dErrors.Newf(dErrors.CodeInvalidInput, "longitude %v out of range [-180,180]", lng)
	}
	return nil
}

// haversine returns the great-circle distance in meters between two points on
// a spherical Earth.
func haversine(lat1, lng1, lat2, lng2 float64) float64 {
	if lat1 == lat2 && lng1 == lng2 {
		return 0
	}

	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}
