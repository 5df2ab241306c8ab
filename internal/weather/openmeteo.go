package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/tripscope/tripscope/internal/geo"
	"github.com/tripscope/tripscope/internal/provider/resilience"
)

const (
	// ProviderName identifies this weather provider.
	ProviderName = "openmeteo"

	// DefaultBaseURL is the Open-Meteo historical weather archive.
	DefaultBaseURL = "https://archive-api.open-meteo.com"
)

// ClientConfig holds configuration for the Open-Meteo client.
type ClientConfig struct {
	// BaseURL overrides the archive endpoint (for tests).
	BaseURL string

	// Caller is the resilient HTTP executor. If nil, a caller with
	// defaults is created.
	Caller *resilience.Caller

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client fetches historical daily weather from the Open-Meteo archive API.
type Client struct {
	baseURL string
	caller  *resilience.Caller
	logger  zerolog.Logger
}

// NewClient creates a new Open-Meteo client.
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

// GetWeatherForDate fetches the daily mean temperature and weather code for a
// coordinate on the given calendar day.
func (c *Client) GetWeatherForDate(ctx context.Context, coord geo.Coordinate, date time.Time) (*Observation, error) {
	if err := coord.Validate(); err != nil {
		return nil, err
	}

	day := date.UTC().Format("2006-01-02")
	endpoint := fmt.Sprintf(
		"%s/v1/archive?latitude=%.4f&longitude=%.4f&start_date=%s&end_date=%s&daily=temperature_2m_mean,weather_code&timezone=UTC",
		c.baseURL, coord.Latitude, coord.Longitude, day, day)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.caller.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	var archive archiveResponse
	if err := json.NewDecoder(resp.Body).Decode(&archive); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if len(archive.Daily.Temperature) == 0 || archive.Daily.Temperature[0] == nil {
		return nil, ErrNoDataForDate
	}

	code := 0
	if len(archive.Daily.WeatherCode) > 0 && archive.Daily.WeatherCode[0] != nil {
		code = *archive.Daily.WeatherCode[0]
	}

	return &Observation{
		Temperature: *archive.Daily.Temperature[0],
		WeatherCode: code,
		Description: describeWMOCode(code),
	}, nil
}

// Open-Meteo archive API response structure. Values arrive as nullable
// arrays aligned with the time array.
type archiveResponse struct {
	Daily struct {
		Time        []string   `json:"time"`
		Temperature []*float64 `json:"temperature_2m_mean"`
		WeatherCode []*int     `json:"weather_code"`
	} `json:"daily"`
}
