package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/levenlabs/go-lflag"

	"github.com/homewatts/homewatts/pkg/types"
)

var (
	ErrUserNotFound = errors.New("user not found")
	// ErrNoSamples is returned by the latest-sample getters when the user
	// has no telemetry yet.
	ErrNoSamples = errors.New("no samples recorded")
)

// Database defines the persistence contract for the simulation and insight
// pipelines. Every write the simulation makes is best-effort from the
// caller's perspective; retries belong to the caller, not the provider.
type Database interface {
	// Profile & Devices
	GetProfile(ctx context.Context, userID string) (types.Profile, int, error)
	SetProfile(ctx context.Context, userID string, profile types.Profile, version int) error
	ListDevices(ctx context.Context, userID string) ([]types.DeviceState, error)
	UpsertDevice(ctx context.Context, userID string, device types.DeviceState) error

	// Raw high-frequency samples (one of each per simulation tick)
	InsertEnergySample(ctx context.Context, userID string, sample types.EnergySample) error
	InsertWeatherSample(ctx context.Context, userID string, sample types.WeatherSample) error
	InsertPriceSample(ctx context.Context, userID string, sample types.PriceSample) error
	GetEnergySamples(ctx context.Context, userID string, start, end time.Time) ([]types.EnergySample, error)
	GetLatestWeatherSample(ctx context.Context, userID string) (types.WeatherSample, error)
	GetLatestPriceSample(ctx context.Context, userID string) (types.PriceSample, error)
	// DeleteSamplesBefore removes raw energy/weather/price samples older
	// than cutoff. Used by the retention pass.
	DeleteSamplesBefore(ctx context.Context, userID string, cutoff time.Time) error

	// Aggregated logs (flushed periodically by the simulation clock)
	InsertEnergyLog(ctx context.Context, userID string, entry types.EnergyLogEntry) error
	InsertSolarLog(ctx context.Context, userID string, entry types.SolarLogEntry) error
	GetEnergyLog(ctx context.Context, userID string, start, end time.Time) ([]types.EnergyLogEntry, error)
	GetSolarLog(ctx context.Context, userID string, start, end time.Time) ([]types.SolarLogEntry, error)

	// Insight results. Replace semantics: all prior rows for the user are
	// deleted, then the new set is inserted. Never a merge.
	ReplaceRecommendations(ctx context.Context, userID string, recs []types.Recommendation) error
	GetRecommendations(ctx context.Context, userID string) ([]types.Recommendation, error)
	ReplaceForecasts(ctx context.Context, userID string, forecasts []types.Forecast) error
	GetForecasts(ctx context.Context, userID string) ([]types.Forecast, error)
	// GetLatestForecastTime returns when the most recent forecast set was
	// stored, or the zero time when none exists.
	GetLatestForecastTime(ctx context.Context, userID string) (time.Time, error)

	// Lifecycle
	Close() error
}

// Configured sets up the Storage provider based on flags.
func Configured() Database {
	provider := lflag.String("storage-provider", "firestore", "Storage provider to use (available: firestore)")

	var p struct{ Database }

	fs := configuredFirestore()

	lflag.Do(func() {
		switch *provider {
		case "firestore":
			if err := fs.Validate(); err != nil {
				panic(fmt.Sprintf("firestore validation failed: %v", err))
			}
			p.Database = fs
			if err := fs.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("firestore init failed: %v", err))
			}
		default:
			panic(fmt.Sprintf("unknown storage provider: %s", *provider))
		}
	})

	return &p
}
