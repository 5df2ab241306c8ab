package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/tripscope/tripscope/internal/geo"
	"github.com/tripscope/tripscope/internal/provider/resilience"
)

const (
	// ProviderName identifies this geocoding provider.
	ProviderName = "nominatim"

	// DefaultBaseURL is the public Nominatim instance. Its usage policy
	// requires at most one request per second; the resilience caller's
	// MinInterval enforces that.
	DefaultBaseURL = "https://nominatim.openstreetmap.org"

	userAgent = "tripscope/1.0 (travel history analyzer)"

	// defaultConfidence is used when Nominatim returns no importance score.
	defaultConfidence = 0.8
)

// ClientConfig holds configuration for the Nominatim client.
type ClientConfig struct {
	// BaseURL overrides the Nominatim endpoint (useful for self-hosted
	// instances and tests).
	BaseURL string

	// Caller is the resilient HTTP executor. If nil, a caller with
	// defaults (1s spacing, breaker threshold 3) is created.
	Caller *resilience.Caller

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a Nominatim geocoding client.
type Client struct {
	baseURL string
	caller  *resilience.Caller
	logger  zerolog.Logger
}

// NewClient creates a new Nominatim client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	caller := cfg.Caller
	if caller == nil {
		caller = resilience.NewCaller(resilience.DefaultCallerConfig(ProviderName))
	}
	return &Client{baseURL: baseURL, caller: caller, logger: cfg.Logger}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// ReverseGeocode resolves a coordinate to a place.
func (c *Client) ReverseGeocode(ctx context.Context, coord geo.Coordinate) (*Place, error) {
	if err := coord.Validate(); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/reverse?lat=%.6f&lon=%.6f&format=jsonv2&accept-language=en",
		c.baseURL, coord.Latitude, coord.Longitude)

	var result nominatimResult
	if err := c.getJSON(ctx, endpoint, &result); err != nil {
		return nil, err
	}
	if result.DisplayName == "" {
		return nil, ErrNoResult
	}
	return result.toPlace(), nil
}

// ForwardGeocode resolves a free-text query to a place.
func (c *Client) ForwardGeocode(ctx context.Context, query string) (*Place, error) {
	endpoint := fmt.Sprintf("%s/search?q=%s&format=jsonv2&limit=1&addressdetails=1&accept-language=en",
		c.baseURL, url.QueryEscape(query))

	var results []nominatimResult
	if err := c.getJSON(ctx, endpoint, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNoResult
	}
	return results[0].toPlace(), nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.caller.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Nominatim API response structure.

type nominatimResult struct {
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	Importance  float64 `json:"importance"`
	Address     struct {
		City         string `json:"city"`
		Town         string `json:"town"`
		Village      string `json:"village"`
		Municipality string `json:"municipality"`
		Country      string `json:"country"`
		CountryCode  string `json:"country_code"`
	} `json:"address"`
}

func (r *nominatimResult) toPlace() *Place {
	confidence := r.Importance
	if confidence <= 0 || confidence > 1 {
		confidence = defaultConfidence
	}

	place := &Place{
		Name:        r.Name,
		Address:     r.DisplayName,
		City:        r.city(),
		Country:     r.Address.Country,
		CountryCode: r.Address.CountryCode,
		Confidence:  confidence,
	}

	if coord, err := geo.ParseLatLng(r.Lat + "°, " + r.Lon + "°"); err == nil {
		place.Location = &coord
	}
	return place
}

// city picks the most specific populated-place field Nominatim filled in.
func (r *nominatimResult) city() string {
	for _, candidate := range []string{
		r.Address.City,
		r.Address.Town,
		r.Address.Village,
		r.Address.Municipality,
	} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}
