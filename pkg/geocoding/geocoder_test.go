package geocoding

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNominatimGeocoder_Success(t *testing.T) {
	var gotQuery, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat":"52.3676","lon":"4.9041"}]`))
	}))
	defer srv.Close()

	g := NewNominatimGeocoder(srv.URL + "/")
	lat, lng, err := g.Geocode(context.Background(), "Damrak 1, Amsterdam")

	require.NoError(t, err)
	assert.InDelta(t, 52.3676, lat, 1e-9)
	assert.InDelta(t, 4.9041, lng, 1e-9)
	assert.Equal(t, "Damrak 1, Amsterdam", gotQuery)
	assert.Equal(t, nominatimUserAgent, gotUA)
}

func TestNominatimGeocoder_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, _, err := NewNominatimGeocoder(srv.URL).Geocode(context.Background(), "nowhere")

	assert.ErrorIs(t, err, ErrNoResults)
}

func TestNominatimGeocoder_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, _, err := NewNominatimGeocoder(srv.URL).Geocode(context.Background(), "x")

	assert.Error(t, err)
}

type countingGeocoder struct {
	calls int
	err   error
}

func (c *countingGeocoder) Geocode(ctx context.Context, address string) (float64, float64, error) {
	c.calls++
	if c.err != nil {
		return 0, 0, c.err
	}
	return 1.5, 2.5, nil
}

func TestCached_HitsUnderlyingOnce(t *testing.T) {
	inner := &countingGeocoder{}
	g := NewCached(inner)

	for _, addr := range []string{"Main St 1,  Springfield", "main st 1, springfield"} {
		lat, lng, err := g.Geocode(context.Background(), addr)
		require.NoError(t, err)
		assert.Equal(t, 1.5, lat)
		assert.Equal(t, 2.5, lng)
	}
	assert.Equal(t, 1, inner.calls)
}

func TestCached_DoesNotCacheFailures(t *testing.T) {
	inner := &countingGeocoder{err: ErrNoResults}
	g := NewCached(inner)

	_, _, err1 := g.Geocode(context.Background(), "a")
	_, _, err2 := g.Geocode(context.Background(), "a")

	assert.ErrorIs(t, err1, ErrNoResults)
	assert.ErrorIs(t, err2, ErrNoResults)
	assert.Equal(t, 2, inner.calls)
}

func TestNew_Providers(t *testing.T) {
	g, err := New("none", "", "")
	require.NoError(t, err)
	_, _, err = g.Geocode(context.Background(), "x")
	assert.ErrorIs(t, err, ErrGeocodingDisabled)

	g, err = New("nominatim", "", "http://localhost")
	require.NoError(t, err)
	assert.IsType(t, &Cached{}, g)

	_, err = New("bing", "", "")
	assert.Error(t, err)
}
