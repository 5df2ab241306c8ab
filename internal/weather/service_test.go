package weather_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripscope/tripscope/internal/cache"
	"github.com/tripscope/tripscope/internal/geo"
	"github.com/tripscope/tripscope/internal/provider/resilience"
	"github.com/tripscope/tripscope/internal/weather"
)

var (
	amsterdam = geo.Coordinate{Latitude: 52.3676, Longitude: 4.9041}
	testDate  = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
)

type fakeProvider struct {
	calls atomic.Int32
	obs   *weather.Observation
	err   error
}

func (f *fakeProvider) GetWeatherForDate(context.Context, geo.Coordinate, time.Time) (*weather.Observation, error) {
	f.calls.Add(1)
	return f.obs, f.err
}

func (f *fakeProvider) Name() string { return "fake" }

func TestService_WeatherForDate(t *testing.T) {
	fake := &fakeProvider{obs: &weather.Observation{Temperature: -3.5, WeatherCode: 71, Description: "snow"}}
	svc := weather.NewService(weather.ServiceConfig{Provider: fake, Logger: zerolog.Nop()})

	obs := svc.WeatherForDate(context.Background(), amsterdam, testDate)
	require.NotNil(t, obs)
	assert.InDelta(t, -3.5, obs.Temperature, 1e-9)
	assert.Equal(t, "snow", obs.Description)
}

func TestService_CachesByCoordinateAndDate(t *testing.T) {
	fake := &fakeProvider{obs: &weather.Observation{Temperature: 20}}
	svc := weather.NewService(weather.ServiceConfig{Provider: fake, Logger: zerolog.Nop()})

	ctx := context.Background()
	svc.WeatherForDate(ctx, amsterdam, testDate)
	svc.WeatherForDate(ctx, amsterdam, testDate)
	assert.Equal(t, int32(1), fake.calls.Load())

	// A different day is a different identity.
	svc.WeatherForDate(ctx, amsterdam, testDate.AddDate(0, 0, 1))
	assert.Equal(t, int32(2), fake.calls.Load())
}

func TestService_PersistentCacheSharedAcrossInstances(t *testing.T) {
	fake := &fakeProvider{obs: &weather.Observation{Temperature: 20}}
	persistent := cache.NewMemoryStore()
	ctx := context.Background()

	first := weather.NewService(weather.ServiceConfig{Provider: fake, Persistent: persistent, Logger: zerolog.Nop()})
	first.WeatherForDate(ctx, amsterdam, testDate)

	second := weather.NewService(weather.ServiceConfig{Provider: fake, Persistent: persistent, Logger: zerolog.Nop()})
	obs := second.WeatherForDate(ctx, amsterdam, testDate)

	require.NotNil(t, obs)
	assert.Equal(t, int32(1), fake.calls.Load())
}

func TestService_NilOnProviderFailure(t *testing.T) {
	fake := &fakeProvider{err: weather.ErrProviderUnavailable}
	svc := weather.NewService(weather.ServiceConfig{Provider: fake, Logger: zerolog.Nop()})

	assert.Nil(t, svc.WeatherForDate(context.Background(), amsterdam, testDate))
}

func TestClient_GetWeatherForDate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2024-01-15", r.URL.Query().Get("start_date"))
		assert.Equal(t, "2024-01-15", r.URL.Query().Get("end_date"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"daily":{"time":["2024-01-15"],"temperature_2m_mean":[-3.5],"weather_code":[71]}}`))
	}))
	defer server.Close()

	client := weather.NewClient(weather.ClientConfig{
		BaseURL: server.URL,
		Caller: resilience.NewCaller(resilience.CallerConfig{
			Name:        "openmeteo-test",
			MinInterval: -1,
		}),
		Logger: zerolog.Nop(),
	})

	obs, err := client.GetWeatherForDate(context.Background(), amsterdam, testDate)
	require.NoError(t, err)
	assert.InDelta(t, -3.5, obs.Temperature, 1e-9)
	assert.Equal(t, 71, obs.WeatherCode)
	assert.Equal(t, "snow", obs.Description)
}

func TestClient_NoDataForDate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"daily":{"time":["2024-01-15"],"temperature_2m_mean":[null],"weather_code":[null]}}`))
	}))
	defer server.Close()

	client := weather.NewClient(weather.ClientConfig{
		BaseURL: server.URL,
		Caller:  resilience.NewCaller(resilience.CallerConfig{Name: "openmeteo-test", MinInterval: -1}),
		Logger:  zerolog.Nop(),
	})

	_, err := client.GetWeatherForDate(context.Background(), amsterdam, testDate)
	assert.ErrorIs(t, err, weather.ErrNoDataForDate)
}
