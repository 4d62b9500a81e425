package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/config"
)

func testGeocoder(handler http.HandlerFunc) (Geocoder, *httptest.Server) {
	server := httptest.NewServer(handler)
	geocoder := NewNominatim(&config.GeocoderConfig{
		BaseURL:   server.URL,
		UserAgent: "EmergencyResponseApp/1.0",
	})
	return geocoder, server
}

func TestReverseGeocodeAssemblesAddress(t *testing.T) {
	geocoder, server := testGeocoder(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "1", r.URL.Query().Get("addressdetails"))
		assert.Equal(t, "EmergencyResponseApp/1.0", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"display_name":"full name","address":{"road":"NH48","city":"Gurugram","state":"Haryana","country":"India"}}`))
	})
	defer server.Close()

	address := geocoder.ReverseGeocode(context.Background(), 28.4595, 77.0266)
	assert.Equal(t, "NH48, Gurugram, Haryana, India", address)
}

func TestReverseGeocodeFallsBackThroughLocalityFields(t *testing.T) {
	geocoder, server := testGeocoder(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"address":{"suburb":"Whitefield","village":"Kadugodi","state":"Karnataka","country":"India"}}`))
	})
	defer server.Close()

	address := geocoder.ReverseGeocode(context.Background(), 12.98, 77.75)
	assert.Equal(t, "Whitefield, Kadugodi, Karnataka, India", address)
}

func TestReverseGeocodeUsesDisplayNameWhenPartsMissing(t *testing.T) {
	geocoder, server := testGeocoder(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"display_name":"Somewhere remote"}`))
	})
	defer server.Close()

	address := geocoder.ReverseGeocode(context.Background(), 0, 0)
	assert.Equal(t, "Somewhere remote", address)
}

func TestReverseGeocodeDegradesOnServerError(t *testing.T) {
	geocoder, server := testGeocoder(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	defer server.Close()

	address := geocoder.ReverseGeocode(context.Background(), 12.98, 77.75)
	assert.Equal(t, AddressUnavailable, address)
}

func TestReverseGeocodeDegradesWhenUnreachable(t *testing.T) {
	geocoder, server := testGeocoder(func(w http.ResponseWriter, r *http.Request) {})
	server.Close() // down before the call

	address := geocoder.ReverseGeocode(context.Background(), 12.98, 77.75)
	assert.Equal(t, AddressUnavailable, address)
}
