package geocoding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Eursukkul/rental-marketplace/pkg/logger"
	"github.com/sirupsen/logrus"
)

var (
	ErrGeocodingDisabled = errors.New("geocoding is disabled")
	ErrNoResults         = errors.New("no geocoding results")
)

// Geocoder resolves a free-form address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (lat, lng float64, err error)
}

// New picks a provider by name: google, nominatim or none.
func New(provider, googleAPIKey, nominatimURL string) (Geocoder, error) {
	switch strings.ToLower(provider) {
	case "google":
		g, err := NewGoogleGeocoder(googleAPIKey)
		if err != nil {
			return nil, err
		}
		return NewCached(g), nil
	case "nominatim", "":
		return NewCached(NewNominatimGeocoder(nominatimURL)), nil
	case "none":
		return Disabled{}, nil
	default:
		return nil, fmt.Errorf("unknown geocoder %q", provider)
	}
}

type Disabled struct{}

func (Disabled) Geocode(context.Context, string) (float64, float64, error) {
	return 0, 0, ErrGeocodingDisabled
}

// Cached wraps a Geocoder with an in-process read-through cache keyed by the
// normalised address. Failures are not cached.
type Cached struct {
	next  Geocoder
	mu    sync.RWMutex
	cache map[string][2]float64
}

func NewCached(next Geocoder) *Cached {
	return &Cached{next: next, cache: make(map[string][2]float64)}
}

func (c *Cached) Geocode(ctx context.Context, address string) (float64, float64, error) {
	key := strings.ToLower(strings.Join(strings.Fields(address), " "))

	c.mu.RLock()
	coords, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		logger.Log.WithFields(logrus.Fields{
			"address": address,
			"source":  "cache",
		}).Debug("Found coordinates in cache")
		return coords[0], coords[1], nil
	}

	lat, lng, err := c.next.Geocode(ctx, address)
	if err != nil {
		return 0, 0, err
	}

	c.mu.Lock()
	c.cache[key] = [2]float64{lat, lng}
	c.mu.Unlock()
	return lat, lng, nil
}
