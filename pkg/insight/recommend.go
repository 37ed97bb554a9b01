package insight

import (
	"context"
	"fmt"
	"sort"

	"github.com/homewatts/homewatts/pkg/types"
)

// MaxRecommendations caps the list a single evaluation returns.
const MaxRecommendations = 5

// Scenario tuning. Each scenario perturbs the baseline consumption by a
// fixed reduction, drops results under its kWh floor, and promotes to high
// priority past its dollar cutoff.
const (
	peakShiftReduction   = 0.15
	peakShiftMinKWH      = 10.0
	peakShiftHighDollars = 25.0

	applianceReduction    = 0.12
	applianceMinKWH       = 15.0
	applianceHighDollars  = 30.0
	applianceHeavyLoadW   = 1000.0
	eveningPeakStartHour  = 18
	solarViableIrradiance = 400.0

	selfUseReduction   = 0.10
	selfUseMinKWH      = 5.0
	selfUseHighDollars = 20.0

	solarInstallReduction = 0.40
	solarInstallMinKWH    = 50.0
	solarInstallMinDaily  = 20.0

	nudgeReduction   = 0.05
	nudgeMinKWH      = 5.0
	nudgeHighDollars = 40.0

	offPeakReduction   = 0.08
	offPeakMinKWH      = 5.0
	offPeakHighDollars = 20.0
)

// Conditions carries the latest telemetry the recommendation gates read.
// Either sample may be zero-valued when no telemetry exists yet.
type Conditions struct {
	Weather types.WeatherSample
	Price   types.PriceSample
	Devices []types.DeviceState
}

// scenario is one candidate recommendation: a gate deciding whether it
// applies, a consumption reduction fed back through the forecast engine,
// and thresholds shaping its priority.
type scenario struct {
	category    string
	title       string
	description func(fc types.FeatureContext, savingsCurrency float64) string
	applies     func(fc types.FeatureContext, cond Conditions) bool
	reduction   float64
	minKWH      float64
	// priority decides the tier from the dollar savings.
	priority func(savingsCurrency float64) types.RecommendationPriority
}

func tieredPriority(highDollars float64) func(float64) types.RecommendationPriority {
	return func(savings float64) types.RecommendationPriority {
		if savings > highDollars {
			return types.PriorityHigh
		}
		return types.PriorityMedium
	}
}

func hasHeavyDevice(devices []types.DeviceState) bool {
	for _, d := range devices {
		if d.PowerRatingW >= applianceHeavyLoadW {
			return true
		}
	}
	return false
}

var scenarios = []scenario{
	{
		category: "load-shifting",
		title:    "Shift usage away from evening peak hours",
		description: func(fc types.FeatureContext, savings float64) string {
			return fmt.Sprintf("Your heaviest usage falls around %d:00, inside the evening peak window. Moving flexible loads like laundry and dishwashing to earlier in the day could save about %s%.2f per month.", fc.PeakHour, fc.CurrencySymbol, savings)
		},
		applies: func(fc types.FeatureContext, _ Conditions) bool {
			return fc.PeakHour >= eveningPeakStartHour
		},
		reduction: peakShiftReduction,
		minKWH:    peakShiftMinKWH,
		priority:  tieredPriority(peakShiftHighDollars),
	},
	{
		category: "appliance-upgrade",
		title:    "Upgrade high-draw appliances",
		description: func(fc types.FeatureContext, savings float64) string {
			return fmt.Sprintf("One or more of your appliances draws over %d watts. Replacing the heaviest with an efficient model could save about %s%.2f per month.", int(applianceHeavyLoadW), fc.CurrencySymbol, savings)
		},
		applies: func(_ types.FeatureContext, cond Conditions) bool {
			return hasHeavyDevice(cond.Devices)
		},
		reduction: applianceReduction,
		minKWH:    applianceMinKWH,
		priority:  tieredPriority(applianceHighDollars),
	},
	{
		category: "solar-self-consumption",
		title:    "Use more of your solar generation directly",
		description: func(fc types.FeatureContext, savings float64) string {
			return fmt.Sprintf("You generate about %.1f kWh of solar per day. Running appliances while the sun is up instead of exporting could save about %s%.2f per month.", fc.AvgDailySolarKWH, fc.CurrencySymbol, savings)
		},
		applies: func(fc types.FeatureContext, _ Conditions) bool {
			return fc.SolarCapacityKW > 0 && fc.AvgDailySolarKWH > 0
		},
		reduction: selfUseReduction,
		minKWH:    selfUseMinKWH,
		priority:  tieredPriority(selfUseHighDollars),
	},
	{
		category: "solar-install",
		title:    "Consider installing solar panels",
		description: func(fc types.FeatureContext, savings float64) string {
			return fmt.Sprintf("Your home uses about %.1f kWh per day with no solar offset, and current conditions show strong irradiance. A rooftop system could offset roughly %s%.2f per month of grid usage.", fc.AvgDailyConsumptionKWH, fc.CurrencySymbol, savings)
		},
		applies: func(fc types.FeatureContext, cond Conditions) bool {
			hour := cond.Weather.Timestamp.Hour()
			return fc.SolarCapacityKW == 0 &&
				fc.AvgDailyConsumptionKWH > solarInstallMinDaily &&
				cond.Weather.Irradiance > solarViableIrradiance &&
				hour >= 6 && hour < 18 &&
				cond.Weather.Condition != types.ConditionCloudy
		},
		reduction: solarInstallReduction,
		minKWH:    solarInstallMinKWH,
		priority: func(float64) types.RecommendationPriority {
			return types.PriorityHigh
		},
	},
	{
		category: "behavior",
		title:    "Trim everyday standby and idle usage",
		description: func(fc types.FeatureContext, savings float64) string {
			return fmt.Sprintf("Small habits add up: powering down idle electronics and unused lights could save about %s%.2f per month.", fc.CurrencySymbol, savings)
		},
		applies: func(types.FeatureContext, Conditions) bool {
			return true
		},
		reduction: nudgeReduction,
		minKWH:    nudgeMinKWH,
		priority:  tieredPriority(nudgeHighDollars),
	},
	{
		category: "off-peak",
		title:    "Reschedule flexible loads to off-peak rates",
		description: func(fc types.FeatureContext, savings float64) string {
			return fmt.Sprintf("Grid prices are currently in the peak tier. Shifting deferrable loads to off-peak hours could save about %s%.2f per month.", fc.CurrencySymbol, savings)
		},
		applies: func(_ types.FeatureContext, cond Conditions) bool {
			return cond.Price.Tier == types.TierPeak
		},
		reduction: offPeakReduction,
		minKWH:    offPeakMinKWH,
		priority:  tieredPriority(offPeakHighDollars),
	},
}

// Recommend evaluates every scenario against the context and current
// conditions. Each applicable scenario re-runs the forecast with its
// consumption perturbed and keeps the difference as the estimated savings;
// results under the scenario's floor are dropped silently. The survivors
// are sorted by priority then dollar savings and capped at
// MaxRecommendations.
func (e *Engine) Recommend(ctx context.Context, fc types.FeatureContext, cond Conditions) []types.Recommendation {
	baselineDaily, _, _ := e.DailyConsumptionKWH(ctx, fc)

	var out []types.Recommendation
	for _, sc := range scenarios {
		if !sc.applies(fc, cond) {
			continue
		}

		perturbed := fc
		perturbed.AvgDailyConsumptionKWH = fc.AvgDailyConsumptionKWH * (1 - sc.reduction)
		modifiedDaily, _, _ := e.DailyConsumptionKWH(ctx, perturbed)

		savingsKWH := (baselineDaily - modifiedDaily) * ForecastDays
		if savingsKWH < 0 {
			savingsKWH = 0
		}
		if savingsKWH < sc.minKWH {
			continue
		}
		savingsCurrency := round2(savingsKWH * fc.ElectricityRate)

		out = append(out, types.Recommendation{
			Title:                   sc.title,
			Description:             sc.description(fc, savingsCurrency),
			ExpectedSavingsKWH:      round2(savingsKWH),
			ExpectedSavingsCurrency: savingsCurrency,
			Priority:                sc.priority(savingsCurrency),
			Category:                sc.category,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := priorityRank(out[i].Priority), priorityRank(out[j].Priority)
		if pi != pj {
			return pi < pj
		}
		return out[i].ExpectedSavingsCurrency > out[j].ExpectedSavingsCurrency
	})

	if len(out) > MaxRecommendations {
		out = out[:MaxRecommendations]
	}
	return out
}

func priorityRank(p types.RecommendationPriority) int {
	switch p {
	case types.PriorityHigh:
		return 0
	case types.PriorityMedium:
		return 1
	default:
		return 2
	}
}
