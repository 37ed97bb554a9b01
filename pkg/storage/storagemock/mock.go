package storagemock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/homewatts/homewatts/pkg/storage"
	"github.com/homewatts/homewatts/pkg/types"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) GetProfile(ctx context.Context, userID string) (types.Profile, int, error) {
	args := m.Called(ctx, userID)
	if len(args) > 0 {
		return args.Get(0).(types.Profile), args.Int(1), args.Error(2)
	}
	return types.Profile{}, 0, nil
}

func (m *MockDatabase) SetProfile(ctx context.Context, userID string, profile types.Profile, version int) error {
	args := m.Called(ctx, userID, profile, version)
	return args.Error(0)
}

func (m *MockDatabase) ListDevices(ctx context.Context, userID string) ([]types.DeviceState, error) {
	args := m.Called(ctx, userID)
	if len(args) > 0 {
		return args.Get(0).([]types.DeviceState), args.Error(1)
	}
	return nil, nil
}

func (m *MockDatabase) UpsertDevice(ctx context.Context, userID string, device types.DeviceState) error {
	args := m.Called(ctx, userID, device)
	return args.Error(0)
}

func (m *MockDatabase) InsertEnergySample(ctx context.Context, userID string, sample types.EnergySample) error {
	args := m.Called(ctx, userID, sample)
	return args.Error(0)
}

func (m *MockDatabase) InsertWeatherSample(ctx context.Context, userID string, sample types.WeatherSample) error {
	args := m.Called(ctx, userID, sample)
	return args.Error(0)
}

func (m *MockDatabase) InsertPriceSample(ctx context.Context, userID string, sample types.PriceSample) error {
	args := m.Called(ctx, userID, sample)
	return args.Error(0)
}

func (m *MockDatabase) GetEnergySamples(ctx context.Context, userID string, start, end time.Time) ([]types.EnergySample, error) {
	args := m.Called(ctx, userID, start, end)
	if len(args) > 0 {
		return args.Get(0).([]types.EnergySample), args.Error(1)
	}
	return nil, nil
}

func (m *MockDatabase) GetLatestWeatherSample(ctx context.Context, userID string) (types.WeatherSample, error) {
	args := m.Called(ctx, userID)
	if len(args) > 0 {
		return args.Get(0).(types.WeatherSample), args.Error(1)
	}
	return types.WeatherSample{}, nil
}

func (m *MockDatabase) GetLatestPriceSample(ctx context.Context, userID string) (types.PriceSample, error) {
	args := m.Called(ctx, userID)
	if len(args) > 0 {
		return args.Get(0).(types.PriceSample), args.Error(1)
	}
	return types.PriceSample{}, nil
}

func (m *MockDatabase) DeleteSamplesBefore(ctx context.Context, userID string, cutoff time.Time) error {
	args := m.Called(ctx, userID, cutoff)
	return args.Error(0)
}

func (m *MockDatabase) InsertEnergyLog(ctx context.Context, userID string, entry types.EnergyLogEntry) error {
	args := m.Called(ctx, userID, entry)
	return args.Error(0)
}

func (m *MockDatabase) InsertSolarLog(ctx context.Context, userID string, entry types.SolarLogEntry) error {
	args := m.Called(ctx, userID, entry)
	return args.Error(0)
}

func (m *MockDatabase) GetEnergyLog(ctx context.Context, userID string, start, end time.Time) ([]types.EnergyLogEntry, error) {
	args := m.Called(ctx, userID, start, end)
	if len(args) > 0 {
		return args.Get(0).([]types.EnergyLogEntry), args.Error(1)
	}
	return nil, nil
}

func (m *MockDatabase) GetSolarLog(ctx context.Context, userID string, start, end time.Time) ([]types.SolarLogEntry, error) {
	args := m.Called(ctx, userID, start, end)
	if len(args) > 0 {
		return args.Get(0).([]types.SolarLogEntry), args.Error(1)
	}
	return nil, nil
}

func (m *MockDatabase) ReplaceRecommendations(ctx context.Context, userID string, recs []types.Recommendation) error {
	args := m.Called(ctx, userID, recs)
	return args.Error(0)
}

func (m *MockDatabase) GetRecommendations(ctx context.Context, userID string) ([]types.Recommendation, error) {
	args := m.Called(ctx, userID)
	if len(args) > 0 {
		return args.Get(0).([]types.Recommendation), args.Error(1)
	}
	return nil, nil
}

func (m *MockDatabase) ReplaceForecasts(ctx context.Context, userID string, forecasts []types.Forecast) error {
	args := m.Called(ctx, userID, forecasts)
	return args.Error(0)
}

func (m *MockDatabase) GetForecasts(ctx context.Context, userID string) ([]types.Forecast, error) {
	args := m.Called(ctx, userID)
	if len(args) > 0 {
		return args.Get(0).([]types.Forecast), args.Error(1)
	}
	return nil, nil
}

func (m *MockDatabase) GetLatestForecastTime(ctx context.Context, userID string) (time.Time, error) {
	args := m.Called(ctx, userID)
	if len(args) > 0 {
		return args.Get(0).(time.Time), args.Error(1)
	}
	return time.Time{}, nil
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}
