package insight

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/levenlabs/go-lflag"

	"github.com/homewatts/homewatts/pkg/log"
	"github.com/homewatts/homewatts/pkg/types"
)

const (
	// ForecastDays is the length of the predicted period.
	ForecastDays = 30

	// FallbackModelName labels forecasts produced by the trend formula.
	FallbackModelName = "trend-v1"

	// solarGrowthDamping halves the growth rate's effect on solar output;
	// generation tracks the weather, not the household trend.
	solarGrowthDamping = 0.5
)

// Engine turns a feature context into next-period predictions. It holds no
// per-call state: the recommendation engine invokes it once per scenario
// with perturbed contexts and results never leak between calls.
type Engine struct {
	model Model
}

// NewEngine creates an Engine. A nil model forces the trend fallback.
func NewEngine(model Model) *Engine {
	return &Engine{model: model}
}

// ConfiguredEngine sets up the Engine with the flag-supplied model weights.
// With no weights configured every forecast takes the fallback path.
func ConfiguredEngine() *Engine {
	var cfg LinearModel
	lflag.JSON(&cfg, "forecast-model", cfg, "JSON forecast model ({name, weights, bias}); empty disables the primary model")

	e := &Engine{}
	lflag.Do(func() {
		if len(cfg.Weights) > 0 {
			e.model = &cfg
		}
	})
	return e
}

// ForecastResult is the prediction for the next period.
type ForecastResult struct {
	ConsumptionKWH float64                  `json:"consumptionKWH"`
	SolarKWH       float64                  `json:"solarKWH"`
	CostDollars    float64                  `json:"costDollars"`
	Confidence     types.ForecastConfidence `json:"confidence"`
	Model          string                   `json:"model"`
}

// DailyConsumptionKWH predicts the daily consumption for a context. The
// primary model path yields high confidence; any model error degrades to
// the trend fallback with medium confidence, logged but never propagated.
func (e *Engine) DailyConsumptionKWH(ctx context.Context, fc types.FeatureContext) (float64, types.ForecastConfidence, string) {
	if e.model != nil {
		daily, err := e.model.PredictDailyKWH(ctx, VectorFromContext(fc))
		if err == nil {
			return daily, types.ConfidenceHigh, e.model.Name()
		}
		log.Ctx(ctx).WarnContext(ctx, "forecast model unavailable, using trend fallback",
			slog.String("model", e.model.Name()),
			slog.Any("error", err),
		)
	}
	return fc.AvgDailyConsumptionKWH * (1 + fc.GrowthRate), types.ConfidenceMedium, FallbackModelName
}

// Forecast predicts the next period's consumption, generation, and cost.
func (e *Engine) Forecast(ctx context.Context, fc types.FeatureContext) ForecastResult {
	daily, confidence, model := e.DailyConsumptionKWH(ctx, fc)

	consumption := round2(daily * ForecastDays)
	solar := round2(fc.AvgDailySolarKWH * ForecastDays * (1 + fc.GrowthRate*solarGrowthDamping))

	return ForecastResult{
		ConsumptionKWH: consumption,
		SolarKWH:       solar,
		CostDollars:    round2(consumption * fc.ElectricityRate),
		Confidence:     confidence,
		Model:          model,
	}
}

// Rows converts a result into the persisted forecast rows, one per target.
func (r ForecastResult) Rows(now time.Time) []types.Forecast {
	start := now
	end := now.AddDate(0, 0, ForecastDays)
	return []types.Forecast{
		{
			Target:      types.ForecastConsumption,
			ValueKWH:    r.ConsumptionKWH,
			PeriodStart: start,
			PeriodEnd:   end,
			Model:       r.Model,
			Confidence:  r.Confidence,
		},
		{
			Target:      types.ForecastGeneration,
			ValueKWH:    r.SolarKWH,
			PeriodStart: start,
			PeriodEnd:   end,
			Model:       r.Model,
			Confidence:  r.Confidence,
		},
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
