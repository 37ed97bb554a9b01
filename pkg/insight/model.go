package insight

import (
	"context"
	"fmt"

	"github.com/homewatts/homewatts/pkg/types"
)

// FeatureVectorWidth is the exact number of inputs the forecast model
// expects. The vector is a typed struct rather than a bare slice so a
// shape mismatch is a loud configuration error, never a silent truncation.
const FeatureVectorWidth = 12

// Normalization divisors for the vector's bounded fields.
const (
	peakHourDivisor = 23.0
	homeSizeDivisor = 5000.0
	monthDivisor    = 12.0
)

// FeatureVector is the typed, fixed-width input to the forecast model.
type FeatureVector struct {
	AvgDailyConsumptionKWH float64
	AvgDailySolarKWH       float64
	NetUsageKWH            float64
	PeakHourNorm           float64 // peak hour / 23, 0 when unknown
	Occupants              float64
	HomeSizeNorm           float64 // sqft / 5000, 0 when unknown
	SolarCapacityKW        float64
	BatteryCapacityKWH     float64
	ElectricityRate        float64
	GrowthRate             float64
	MonthNorm              float64 // month / 12
	WeekendFlag            float64 // 1 on weekends
}

// Values returns the vector in its canonical field order.
func (v FeatureVector) Values() [FeatureVectorWidth]float64 {
	return [FeatureVectorWidth]float64{
		v.AvgDailyConsumptionKWH,
		v.AvgDailySolarKWH,
		v.NetUsageKWH,
		v.PeakHourNorm,
		v.Occupants,
		v.HomeSizeNorm,
		v.SolarCapacityKW,
		v.BatteryCapacityKWH,
		v.ElectricityRate,
		v.GrowthRate,
		v.MonthNorm,
		v.WeekendFlag,
	}
}

// VectorFromContext projects a feature context into the model's input.
func VectorFromContext(fc types.FeatureContext) FeatureVector {
	var peakNorm float64
	if fc.PeakHour >= 0 {
		peakNorm = float64(fc.PeakHour) / peakHourDivisor
	}
	var weekend float64
	if fc.Weekend {
		weekend = 1
	}
	return FeatureVector{
		AvgDailyConsumptionKWH: fc.AvgDailyConsumptionKWH,
		AvgDailySolarKWH:       fc.AvgDailySolarKWH,
		NetUsageKWH:            fc.NetUsageKWH,
		PeakHourNorm:           peakNorm,
		Occupants:              float64(fc.Occupants),
		HomeSizeNorm:           fc.HomeSizeSqft / homeSizeDivisor,
		SolarCapacityKW:        fc.SolarCapacityKW,
		BatteryCapacityKWH:     fc.BatteryCapacity,
		ElectricityRate:        fc.ElectricityRate,
		GrowthRate:             fc.GrowthRate,
		MonthNorm:              float64(fc.Month) / monthDivisor,
		WeekendFlag:            weekend,
	}
}

// Model predicts daily consumption from a feature vector. Implementations
// must be stateless across calls: the recommendation engine calls Predict
// once per scenario with modified vectors.
type Model interface {
	// Name identifies the model in stored forecasts.
	Name() string
	// PredictDailyKWH returns the predicted daily consumption in kWh.
	PredictDailyKWH(ctx context.Context, vec FeatureVector) (float64, error)
}

// LinearModel is a pretrained linear regression over the feature vector.
// Its weights come from offline training and are supplied as configuration.
type LinearModel struct {
	ModelName string    `json:"name"`
	Weights   []float64 `json:"weights"`
	Bias      float64   `json:"bias"`
}

func (m *LinearModel) Name() string {
	if m.ModelName == "" {
		return "linear-v1"
	}
	return m.ModelName
}

// PredictDailyKWH evaluates the regression. A weight count that doesn't
// match the vector width is an explicit error; the caller falls back to
// the trend formula rather than silently projecting.
func (m *LinearModel) PredictDailyKWH(_ context.Context, vec FeatureVector) (float64, error) {
	if len(m.Weights) != FeatureVectorWidth {
		return 0, fmt.Errorf("model %s expects %d weights, got %d", m.Name(), FeatureVectorWidth, len(m.Weights))
	}
	sum := m.Bias
	for i, v := range vec.Values() {
		sum += m.Weights[i] * v
	}
	if sum < 0 {
		sum = 0
	}
	return sum, nil
}

