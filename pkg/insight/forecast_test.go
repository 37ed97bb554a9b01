package insight

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homewatts/homewatts/pkg/types"
)

func TestForecast(t *testing.T) {
	fc := types.FeatureContext{
		AvgDailyConsumptionKWH: 10,
		AvgDailySolarKWH:       2,
		GrowthRate:             0.10,
		ElectricityRate:        0.12,
		PeakHour:               -1,
	}

	t.Run("Trend Fallback Without A Model", func(t *testing.T) {
		e := NewEngine(nil)
		res := e.Forecast(context.Background(), fc)

		assert.InDelta(t, 330.0, res.ConsumptionKWH, 1e-9)
		// solar growth is damped to half the consumption trend
		assert.InDelta(t, 63.0, res.SolarKWH, 1e-9)
		assert.InDelta(t, 39.6, res.CostDollars, 1e-9)
		assert.Equal(t, types.ConfidenceMedium, res.Confidence)
		assert.Equal(t, FallbackModelName, res.Model)
	})

	t.Run("Model Path Has High Confidence", func(t *testing.T) {
		weights := make([]float64, FeatureVectorWidth)
		weights[0] = 1
		e := NewEngine(&LinearModel{Weights: weights})

		res := e.Forecast(context.Background(), fc)
		assert.InDelta(t, 300.0, res.ConsumptionKWH, 1e-9)
		assert.Equal(t, types.ConfidenceHigh, res.Confidence)
		assert.Equal(t, "linear-v1", res.Model)
	})

	t.Run("Model Error Falls Back Quietly", func(t *testing.T) {
		e := NewEngine(&LinearModel{Weights: []float64{1, 2}})

		res := e.Forecast(context.Background(), fc)
		assert.InDelta(t, 330.0, res.ConsumptionKWH, 1e-9)
		assert.Equal(t, types.ConfidenceMedium, res.Confidence)
		assert.Equal(t, FallbackModelName, res.Model)
	})

	t.Run("Values Are Rounded To Cents", func(t *testing.T) {
		e := NewEngine(nil)
		res := e.Forecast(context.Background(), types.FeatureContext{
			AvgDailyConsumptionKWH: 10.12345,
			ElectricityRate:        0.13,
		})
		assert.Equal(t, 303.7, res.ConsumptionKWH)
		assert.Equal(t, 39.48, res.CostDollars)
	})
}

func TestForecastRows(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	res := ForecastResult{
		ConsumptionKWH: 300,
		SolarKWH:       60,
		Confidence:     types.ConfidenceMedium,
		Model:          FallbackModelName,
	}

	rows := res.Rows(now)
	require.Len(t, rows, 2)
	assert.Equal(t, types.ForecastConsumption, rows[0].Target)
	assert.Equal(t, 300.0, rows[0].ValueKWH)
	assert.Equal(t, types.ForecastGeneration, rows[1].Target)
	assert.Equal(t, 60.0, rows[1].ValueKWH)
	for _, row := range rows {
		assert.Equal(t, now, row.PeriodStart)
		assert.Equal(t, now.AddDate(0, 0, ForecastDays), row.PeriodEnd)
		assert.Equal(t, types.ConfidenceMedium, row.Confidence)
	}
}
