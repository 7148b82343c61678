// README: Google Maps routing for trip planning estimates.
package maps

import (
	"context"
	"fmt"
	"time"

	"googlemaps.github.io/maps"

	"convoy/internal/types"
)

// RouteService handles interactions with the Google Maps Directions API.
type RouteService struct {
	client *maps.Client
}

// NewRouteService creates a new RouteService with the given API key.
func NewRouteService(apiKey string) (*RouteService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &RouteService{client: client}, nil
}

// RouteEstimate is the driving estimate between two trip endpoints.
type RouteEstimate struct {
	Duration time.Duration
	Distance string
}

// GetTravelEstimate returns the driving duration and distance between the
// trip's origin and destination.
func (s *RouteService) GetTravelEstimate(ctx context.Context, origin, destination types.Place) (RouteEstimate, error) {
	r := &maps.DirectionsRequest{
		Origin:      formatPlace(origin),
		Destination: formatPlace(destination),
		Mode:        maps.TravelModeDriving,
		Language:    "es",
		Region:      "MX", // Bias results to the operating region
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return RouteEstimate{}, fmt.Errorf("maps api error: %w", err)
	}

	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return RouteEstimate{}, fmt.Errorf("no route found")
	}

	leg := routes[0].Legs[0]
	return RouteEstimate{Duration: leg.Duration, Distance: leg.Distance.HumanReadable}, nil
}

func formatPlace(p types.Place) string {
	if p.Locality == "" {
		return p.Region
	}
	return p.Locality + ", " + p.Region
}
