package insight

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/homewatts/homewatts/pkg/types"
)

var testProfile = types.Profile{
	ElectricityRate: 0.12,
	Occupants:       2,
	HomeSizeSqft:    1800,
	CurrencySymbol:  "$",
	DataSource:      types.DataSourceSimulation,
}

func entryAt(daysAgo int, hour int, kwh float64, now time.Time) types.EnergyLogEntry {
	at := now.AddDate(0, 0, -daysAgo)
	return types.EnergyLogEntry{
		LoggedAt:       time.Date(at.Year(), at.Month(), at.Day(), hour, 0, 0, 0, time.UTC),
		ConsumptionKWH: kwh,
	}
}

func TestBuildContext(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC) // a Monday

	t.Run("Averages Over Window Days", func(t *testing.T) {
		energy := []types.EnergyLogEntry{
			entryAt(5, 10, 150, now),
			entryAt(20, 10, 150, now),
		}
		solar := []types.SolarLogEntry{
			{LoggedAt: now.AddDate(0, 0, -3), GenerationKWH: 60},
		}

		fc := BuildContext(now, energy, solar, testProfile)
		assert.InDelta(t, 10.0, fc.AvgDailyConsumptionKWH, 1e-9)
		assert.InDelta(t, 2.0, fc.AvgDailySolarKWH, 1e-9)
		assert.InDelta(t, 240.0, fc.NetUsageKWH, 1e-9)
		assert.Equal(t, 6, fc.Month)
		assert.False(t, fc.Weekend)
		assert.Equal(t, 2, fc.Occupants)
	})

	t.Run("Empty History Yields Zeroes And No Peak", func(t *testing.T) {
		fc := BuildContext(now, nil, nil, testProfile)
		assert.Zero(t, fc.AvgDailyConsumptionKWH)
		assert.Zero(t, fc.AvgDailySolarKWH)
		assert.Equal(t, -1, fc.PeakHour)
		assert.Zero(t, fc.GrowthRate)
	})

	t.Run("Weekend Flag", func(t *testing.T) {
		saturday := time.Date(2026, 6, 13, 12, 0, 0, 0, time.UTC)
		fc := BuildContext(saturday, nil, nil, testProfile)
		assert.True(t, fc.Weekend)
	})
}

func TestPeakHour(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("Highest Summed Hour Wins", func(t *testing.T) {
		energy := []types.EnergyLogEntry{
			entryAt(1, 9, 2, now),
			entryAt(1, 19, 5, now),
			entryAt(2, 19, 5, now),
			entryAt(2, 9, 3, now),
		}
		assert.Equal(t, 19, peakHour(energy))
	})

	t.Run("Ties Break To Smallest Hour", func(t *testing.T) {
		energy := []types.EnergyLogEntry{
			entryAt(1, 21, 5, now),
			entryAt(1, 8, 5, now),
		}
		assert.Equal(t, 8, peakHour(energy))
	})

	t.Run("No History Is Sentinel", func(t *testing.T) {
		assert.Equal(t, -1, peakHour(nil))
	})
}

func TestGrowthRate(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("Half Over Half", func(t *testing.T) {
		energy := []types.EnergyLogEntry{
			entryAt(20, 10, 100, now), // first half
			entryAt(5, 10, 110, now),  // second half
		}
		assert.InDelta(t, 0.10, growthRate(now, energy), 1e-9)
	})

	t.Run("Clamped High", func(t *testing.T) {
		energy := []types.EnergyLogEntry{
			entryAt(20, 10, 100, now),
			entryAt(5, 10, 200, now),
		}
		assert.InDelta(t, growthRateClamp, growthRate(now, energy), 1e-9)
	})

	t.Run("Clamped Low", func(t *testing.T) {
		energy := []types.EnergyLogEntry{
			entryAt(20, 10, 200, now),
			entryAt(5, 10, 50, now),
		}
		assert.InDelta(t, -growthRateClamp, growthRate(now, energy), 1e-9)
	})

	t.Run("Zero First Half Is Zero", func(t *testing.T) {
		energy := []types.EnergyLogEntry{
			entryAt(5, 10, 100, now),
		}
		assert.Zero(t, growthRate(now, energy))
	})
}
