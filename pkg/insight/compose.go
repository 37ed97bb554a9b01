package insight

import (
	"fmt"

	"github.com/homewatts/homewatts/pkg/types"
)

// Irradiance buckets for the solar condition insight.
const (
	excellentIrradiance = 700.0
	goodIrradiance      = 400.0
)

// ComposeInsights renders the feature context and latest conditions into
// short human-readable observations. Order is stable: usage pattern, cost,
// solar contribution, sky conditions, grid price.
func ComposeInsights(fc types.FeatureContext, weather types.WeatherSample, price types.PriceSample) []string {
	var out []string

	if fc.PeakHour >= 0 {
		out = append(out, fmt.Sprintf("Your energy usage typically peaks around %d:00.", fc.PeakHour))
	}

	monthlyCost := fc.AvgDailyConsumptionKWH * ForecastDays * fc.ElectricityRate
	out = append(out, fmt.Sprintf("At your current rate you're on track to spend about %s%.2f on electricity this month.", fc.CurrencySymbol, monthlyCost))

	if fc.SolarCapacityKW > 0 && fc.AvgDailyConsumptionKWH > 0 {
		pct := fc.AvgDailySolarKWH / fc.AvgDailyConsumptionKWH * 100
		if pct > 100 {
			pct = 100
		}
		out = append(out, fmt.Sprintf("Solar covers roughly %.0f%% of your daily consumption.", pct))
	}

	switch {
	case weather.Irradiance >= excellentIrradiance:
		out = append(out, "Solar conditions are excellent right now; it's a great time to run heavy appliances.")
	case weather.Irradiance >= goodIrradiance:
		out = append(out, "Solar conditions are good right now.")
	default:
		out = append(out, "Solar conditions are moderate; generation will be limited for a while.")
	}

	out = append(out, fmt.Sprintf("Grid electricity is currently %s%.2f/kWh in the %s tier.", fc.CurrencySymbol, price.DollarsPerKWH, price.Tier))

	return out
}
