package simulation

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/homewatts/homewatts/pkg/storage/storagemock"
	"github.com/homewatts/homewatts/pkg/types"
)

func testSimulator(cfg Config, at time.Time) *Simulator {
	s := New("user-1", nil, cfg)
	s.weather = NewWeatherModelWithJitter(fixedJitter(0.5))
	s.rng = rand.New(rand.NewSource(1))
	s.profile = types.Profile{
		ElectricityRate: 0.12,
		Occupants:       1,
		CurrencySymbol:  "$",
		DataSource:      types.DataSourceSimulation,
	}
	s.simTime = at
	s.windowStart = at
	s.batterySOC = 50
	return s
}

func TestTick(t *testing.T) {
	night := time.Date(2026, 3, 10, 22, 0, 0, 0, time.UTC)
	devices := []types.DeviceState{
		{ID: "hvac", PowerRatingW: 1500, Status: types.DeviceOn},
		{ID: "oven", PowerRatingW: 2000, Status: types.DeviceOn},
	}

	t.Run("Advances Clock And Accumulates", func(t *testing.T) {
		s := testSimulator(BackgroundConfig(), night)
		res := s.tick(devices)

		assert.Equal(t, night.Add(10*time.Minute), s.simTime)
		assert.InDelta(t, 3.5, res.energy.ConsumptionKW, 1e-9)
		assert.Zero(t, res.energy.SolarKW)
		assert.InDelta(t, 3.5, res.energy.GridKW, 1e-9)
		assert.Equal(t, 2, res.energy.ActiveDevices)
		assert.Equal(t, s.simTime.Add(-24*time.Hour), res.retentionCutoff)
	})

	t.Run("Background Flushes Every Window", func(t *testing.T) {
		s := testSimulator(BackgroundConfig(), night)
		res := s.tick(devices)

		// a 10 minute delta fills the 10 minute window immediately
		require.NotNil(t, res.energyLog)
		assert.InDelta(t, 3.5/6.0, res.energyLog.ConsumptionKWH, 1e-9)
		assert.Equal(t, s.simTime, res.energyLog.LoggedAt)

		// no solar at night means no solar row
		assert.Nil(t, res.solarLog)

		// accumulators reset and the window moved forward
		assert.Zero(t, s.accConsumption)
		assert.Zero(t, s.accSolar)
		assert.Equal(t, s.simTime, s.windowStart)
	})

	t.Run("Zero Value Flush Is Skipped", func(t *testing.T) {
		s := testSimulator(BackgroundConfig(), night)
		res := s.tick(nil)

		assert.Nil(t, res.energyLog)
		assert.Nil(t, res.solarLog)
		// the window still advances
		assert.Equal(t, s.simTime, s.windowStart)
	})

	t.Run("Interactive Flushes On Tick Count", func(t *testing.T) {
		morning := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
		s := testSimulator(InteractiveConfig(), morning)

		for i := 0; i < 5; i++ {
			res := s.tick(devices)
			assert.Nil(t, res.energyLog, "tick %d should not flush", i+1)
		}
		res := s.tick(devices)
		require.NotNil(t, res.energyLog)
		// 6 ticks of 30 simulated seconds at 3.5 kW
		assert.InDelta(t, 3.5*6*30.0/3600.0, res.energyLog.ConsumptionKWH, 1e-9)
		// mid-morning interactive solar generates as well
		require.NotNil(t, res.solarLog)
		assert.Greater(t, res.solarLog.GenerationKWH, 0.0)
		assert.Zero(t, s.ticksSinceFlush)
	})

	t.Run("Interactive Uses Flat Pricing", func(t *testing.T) {
		evening := time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC)
		s := testSimulator(InteractiveConfig(), evening)
		res := s.tick(nil)

		assert.Equal(t, types.TierPeak, res.price.Tier)
		assert.InDelta(t, 0.25, res.price.DollarsPerKWH, 1e-9)
	})

	t.Run("Battery Drains On Deficit", func(t *testing.T) {
		s := testSimulator(BackgroundConfig(), night)
		s.profile.BatteryCapacityKWH = 10
		res := s.tick(devices)

		assert.Less(t, res.energy.BatteryLevel, 50.0)
		assert.GreaterOrEqual(t, res.energy.BatteryLevel, 0.0)
	})
}

func TestStartStop(t *testing.T) {
	t.Run("Start Twice Fails", func(t *testing.T) {
		db := &storagemock.MockDatabase{}
		db.On("GetProfile", mock.Anything, "user-1").Return(types.Profile{
			ElectricityRate: 0.12,
			Occupants:       1,
			CurrencySymbol:  "$",
			DataSource:      types.DataSourceSimulation,
		}, types.CurrentProfileVersion, nil)
		db.On("ListDevices", mock.Anything, "user-1").Return([]types.DeviceState{}, nil)

		s := New("user-1", db, BackgroundConfig())
		require.NoError(t, s.Start(context.Background()))
		assert.True(t, s.Running())

		err := s.Start(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already running")

		s.Stop()
		assert.False(t, s.Running())
	})

	t.Run("Requires Simulation Data Source", func(t *testing.T) {
		db := &storagemock.MockDatabase{}
		db.On("GetProfile", mock.Anything, "user-1").Return(types.Profile{
			DataSource: types.DataSourceNone,
		}, types.CurrentProfileVersion, nil)

		s := New("user-1", db, BackgroundConfig())
		err := s.Start(context.Background())
		require.Error(t, err)
		assert.False(t, s.Running())
	})

	t.Run("Stop Without Start Is A Noop", func(t *testing.T) {
		s := New("user-1", nil, BackgroundConfig())
		s.Stop()
		assert.False(t, s.Running())
	})
}
