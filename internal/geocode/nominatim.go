package geocode

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/urmilavishwakarma612-art/rahi-guardian/internal/config"
)

// AddressUnavailable is the placeholder shown whenever reverse
// geocoding fails. Address resolution is advisory and must never block
// a location-dependent flow.
const AddressUnavailable = "Address not available"

// Geocoder resolves coordinates to a human-readable address.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) string
}

type nominatimResponse struct {
	DisplayName string `json:"display_name"`
	Address     struct {
		Road          string `json:"road"`
		Suburb        string `json:"suburb"`
		Neighbourhood string `json:"neighbourhood"`
		City          string `json:"city"`
		Town          string `json:"town"`
		Village       string `json:"village"`
		State         string `json:"state"`
		Country       string `json:"country"`
	} `json:"address"`
}

type nominatimGeocoder struct {
	client *resty.Client
}

func NewNominatim(cfg *config.GeocoderConfig) Geocoder {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("User-Agent", cfg.UserAgent)
	return &nominatimGeocoder{client: client}
}

// ReverseGeocode is total: any failure degrades to AddressUnavailable.
func (g *nominatimGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) string {
	var parsed nominatimResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"format":         "json",
			"lat":            fmt.Sprintf("%f", lat),
			"lon":            fmt.Sprintf("%f", lng),
			"addressdetails": "1",
		}).
		SetResult(&parsed).
		Get("/reverse")
	if err != nil || !resp.IsSuccess() {
		return AddressUnavailable
	}

	a := parsed.Address
	parts := make([]string, 0, 4)
	for _, p := range []string{
		firstNonEmpty(a.Road, a.Suburb, a.Neighbourhood),
		firstNonEmpty(a.City, a.Town, a.Village),
		a.State,
		a.Country,
	} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, ", ")
	}
	if parsed.DisplayName != "" {
		return parsed.DisplayName
	}
	return AddressUnavailable
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
