package geocoding

import (
	"context"
	"fmt"

	"github.com/Eursukkul/rental-marketplace/pkg/logger"
	"github.com/sirupsen/logrus"
	"googlemaps.github.io/maps"
)

type GoogleGeocoder struct {
	client *maps.Client
}

func NewGoogleGeocoder(apiKey string) (*GoogleGeocoder, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("google maps client: %w", err)
	}
	return &GoogleGeocoder{client: client}, nil
}

func (g *GoogleGeocoder) Geocode(ctx context.Context, address string) (float64, float64, error) {
	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		logger.Log.WithError(err).WithField("address", address).Error("Geocoding request failed")
		return 0, 0, fmt.Errorf("google geocode: %w", err)
	}
	if len(results) == 0 {
		return 0, 0, fmt.Errorf("%w for address: %s", ErrNoResults, address)
	}

	loc := results[0].Geometry.Location
	logger.Log.WithFields(logrus.Fields{
		"address":   address,
		"latitude":  loc.Lat,
		"longitude": loc.Lng,
		"source":    "google",
	}).Info("Successfully geocoded address")
	return loc.Lat, loc.Lng, nil
}
