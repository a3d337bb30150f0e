// Package geocode resolves place names to coordinates through a
// Nominatim-compatible service.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yberrad/newsgraph/internal/httpx"
)

// ErrNotFound reports that the service has no match for the name. Callers
// degrade to the sentinel coordinates instead of failing.
var ErrNotFound = errors.New("location not found")

// Point is a resolved coordinate pair.
type Point struct {
	Latitude  float64
	Longitude float64
}

// Geocoder is the geocoding capability consumed by the location job.
type Geocoder interface {
	Resolve(ctx context.Context, name string) (Point, error)
}

// NominatimClient queries the Nominatim search endpoint.
type NominatimClient struct {
	base      string
	userAgent string
	client    *http.Client
	retries   int
}

// NewNominatimClient builds a client for the geocoding service at addr.
// Nominatim's usage policy requires an identifying User-Agent.
func NewNominatimClient(addr, userAgent string, retries int) *NominatimClient {
	return &NominatimClient{
		base:      strings.TrimRight(addr, "/"),
		userAgent: userAgent,
		client:    &http.Client{Timeout: 10 * time.Second},
		retries:   retries,
	}
}

// Resolve returns the best-ranked coordinates for name, or ErrNotFound.
func (c *NominatimClient) Resolve(ctx context.Context, name string) (Point, error) {
	params := url.Values{
		"q":      {name},
		"format": {"json"},
		"limit":  {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/search?"+params.Encode(), nil)
	if err != nil {
		return Point{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	res, err := httpx.DoWithRetry(ctx, c.client, req, c.retries)
	if err != nil {
		return Point{}, fmt.Errorf("geocode %q: %w", name, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(res.Body)
		return Point{}, fmt.Errorf("geocode %q returned HTTP %d: %s", name, res.StatusCode, strings.TrimSpace(string(data)))
	}

	// Nominatim serializes coordinates as strings.
	var parsed []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return Point{}, fmt.Errorf("decode geocode response: %w", err)
	}

	if len(parsed) == 0 {
		return Point{}, ErrNotFound
	}

	lat, err := strconv.ParseFloat(parsed[0].Lat, 64)
	if err != nil {
		return Point{}, fmt.Errorf("parse latitude %q: %w", parsed[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(parsed[0].Lon, 64)
	if err != nil {
		return Point{}, fmt.Errorf("parse longitude %q: %w", parsed[0].Lon, err)
	}

	return Point{Latitude: lat, Longitude: lon}, nil
}
