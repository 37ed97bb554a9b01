package insight

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homewatts/homewatts/pkg/types"
)

func middayConditions() Conditions {
	return Conditions{
		Weather: types.WeatherSample{
			Timestamp:  time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC),
			Irradiance: 850,
			Condition:  types.ConditionSunny,
		},
		Price: types.PriceSample{
			Timestamp:     time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC),
			DollarsPerKWH: 0.12,
			Tier:          types.TierStandard,
		},
	}
}

func findCategory(recs []types.Recommendation, category string) *types.Recommendation {
	for i := range recs {
		if recs[i].Category == category {
			return &recs[i]
		}
	}
	return nil
}

func TestRecommend(t *testing.T) {
	e := NewEngine(nil)
	ctx := context.Background()

	t.Run("No Heavy Device Means No Upgrade Rec", func(t *testing.T) {
		fc := types.FeatureContext{
			AvgDailyConsumptionKWH: 30,
			ElectricityRate:        0.12,
			PeakHour:               -1,
			CurrencySymbol:         "$",
		}
		cond := middayConditions()
		cond.Devices = []types.DeviceState{
			{ID: "lamp", PowerRatingW: 60, Status: types.DeviceOn},
			{ID: "tv", PowerRatingW: 400, Status: types.DeviceOn},
		}

		recs := e.Recommend(ctx, fc, cond)
		assert.Nil(t, findCategory(recs, "appliance-upgrade"))
	})

	t.Run("Heavy Device Triggers Upgrade Rec", func(t *testing.T) {
		fc := types.FeatureContext{
			AvgDailyConsumptionKWH: 30,
			ElectricityRate:        0.12,
			PeakHour:               -1,
			CurrencySymbol:         "$",
		}
		cond := middayConditions()
		cond.Devices = []types.DeviceState{
			{ID: "dryer", PowerRatingW: 3000, Status: types.DeviceOff},
		}

		recs := e.Recommend(ctx, fc, cond)
		rec := findCategory(recs, "appliance-upgrade")
		require.NotNil(t, rec)
		// 30 kWh/day * 12% * 30 days
		assert.InDelta(t, 108.0, rec.ExpectedSavingsKWH, 1e-9)
	})

	t.Run("Evening Peak Triggers Load Shifting", func(t *testing.T) {
		fc := types.FeatureContext{
			AvgDailyConsumptionKWH: 20,
			ElectricityRate:        0.12,
			PeakHour:               19,
			CurrencySymbol:         "$",
		}

		recs := e.Recommend(ctx, fc, middayConditions())
		rec := findCategory(recs, "load-shifting")
		require.NotNil(t, rec)
		assert.InDelta(t, 90.0, rec.ExpectedSavingsKWH, 1e-9)

		fc.PeakHour = 14
		recs = e.Recommend(ctx, fc, middayConditions())
		assert.Nil(t, findCategory(recs, "load-shifting"))
	})

	t.Run("Solar Install Needs Sun And No Panels", func(t *testing.T) {
		fc := types.FeatureContext{
			AvgDailyConsumptionKWH: 25,
			ElectricityRate:        0.12,
			PeakHour:               -1,
			CurrencySymbol:         "$",
		}

		recs := e.Recommend(ctx, fc, middayConditions())
		rec := findCategory(recs, "solar-install")
		require.NotNil(t, rec)
		assert.Equal(t, types.PriorityHigh, rec.Priority)

		cloudy := middayConditions()
		cloudy.Weather.Condition = types.ConditionCloudy
		recs = e.Recommend(ctx, fc, cloudy)
		assert.Nil(t, findCategory(recs, "solar-install"))

		fc.SolarCapacityKW = 5
		recs = e.Recommend(ctx, fc, middayConditions())
		assert.Nil(t, findCategory(recs, "solar-install"))
	})

	t.Run("Peak Prices Trigger Rescheduling", func(t *testing.T) {
		fc := types.FeatureContext{
			AvgDailyConsumptionKWH: 20,
			ElectricityRate:        0.12,
			PeakHour:               -1,
			CurrencySymbol:         "$",
		}
		cond := middayConditions()
		cond.Price.Tier = types.TierPeak

		recs := e.Recommend(ctx, fc, cond)
		require.NotNil(t, findCategory(recs, "off-peak"))

		cond.Price.Tier = types.TierStandard
		recs = e.Recommend(ctx, fc, cond)
		assert.Nil(t, findCategory(recs, "off-peak"))
	})

	t.Run("Sub Threshold Savings Are Dropped", func(t *testing.T) {
		// 1 kWh/day * 5% * 30 days = 1.5 kWh, under every floor
		fc := types.FeatureContext{
			AvgDailyConsumptionKWH: 1,
			ElectricityRate:        0.12,
			PeakHour:               -1,
			CurrencySymbol:         "$",
		}
		recs := e.Recommend(ctx, fc, middayConditions())
		assert.Empty(t, recs)
	})

	t.Run("Sorted And Capped At Five", func(t *testing.T) {
		fc := types.FeatureContext{
			AvgDailyConsumptionKWH: 60,
			AvgDailySolarKWH:       10,
			SolarCapacityKW:        6,
			ElectricityRate:        0.30,
			PeakHour:               20,
			CurrencySymbol:         "$",
		}
		cond := middayConditions()
		cond.Price.Tier = types.TierPeak
		cond.Devices = []types.DeviceState{
			{ID: "dryer", PowerRatingW: 3000, Status: types.DeviceOn},
		}

		recs := e.Recommend(ctx, fc, cond)
		require.NotEmpty(t, recs)
		assert.LessOrEqual(t, len(recs), MaxRecommendations)

		for i := 1; i < len(recs); i++ {
			prev, cur := recs[i-1], recs[i]
			if prev.Priority == cur.Priority {
				assert.GreaterOrEqual(t, prev.ExpectedSavingsCurrency, cur.ExpectedSavingsCurrency)
			} else {
				assert.Less(t, priorityRank(prev.Priority), priorityRank(cur.Priority))
			}
		}
	})

	t.Run("Larger Reductions Save More", func(t *testing.T) {
		fc := types.FeatureContext{
			AvgDailyConsumptionKWH: 40,
			ElectricityRate:        0.12,
			PeakHour:               19,
			CurrencySymbol:         "$",
		}
		recs := e.Recommend(ctx, fc, middayConditions())
		shift := findCategory(recs, "load-shifting")
		nudge := findCategory(recs, "behavior")
		require.NotNil(t, shift)
		require.NotNil(t, nudge)
		assert.Greater(t, shift.ExpectedSavingsKWH, nudge.ExpectedSavingsKWH)
	})
}
