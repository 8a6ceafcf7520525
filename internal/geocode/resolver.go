// Package geocode integrates the external geocoding collaborator that turns a
// free-text address into coordinates and a region identifier.
package geocode

import "context"

// Result is a successful resolution.
type Result struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Region    string  `json:"region"`
}

// Resolver resolves free-text addresses. Implementations must respect the
// caller's context deadline; a timeout surfaces as an error, never as a
// verdict.
type Resolver interface {
	Resolve(ctx context.Context, addressText string) (Result, error)
}
