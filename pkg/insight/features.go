package insight

import (
	"time"

	"github.com/homewatts/homewatts/pkg/types"
)

const (
	// WindowDays is the trailing history window the aggregation reads.
	WindowDays = 30

	// growthRateClamp bounds the half-over-half growth rate.
	growthRateClamp = 0.15
)

// BuildContext reduces the trailing history into the fixed feature context
// every forecast and recommendation call consumes. Missing history is fine:
// averages come out zero and the peak hour is -1. The profile is expected
// to already carry defaults (see types.MigrateProfile).
func BuildContext(
	now time.Time,
	energyLog []types.EnergyLogEntry,
	solarLog []types.SolarLogEntry,
	profile types.Profile,
) types.FeatureContext {
	var totalConsumption, totalSolar float64
	for _, e := range energyLog {
		totalConsumption += e.ConsumptionKWH
	}
	for _, s := range solarLog {
		totalSolar += s.GenerationKWH
	}

	return types.FeatureContext{
		AvgDailyConsumptionKWH: totalConsumption / WindowDays,
		AvgDailySolarKWH:       totalSolar / WindowDays,
		NetUsageKWH:            totalConsumption - totalSolar,
		PeakHour:               peakHour(energyLog),
		Occupants:              profile.Occupants,
		HomeSizeSqft:           profile.HomeSizeSqft,
		SolarCapacityKW:        profile.SolarPanelCapacity,
		BatteryCapacity:        profile.BatteryCapacityKWH,
		ElectricityRate:        profile.ElectricityRate,
		GrowthRate:             growthRate(now, energyLog),
		Month:                  int(now.Month()),
		Weekend:                now.Weekday() == time.Saturday || now.Weekday() == time.Sunday,
		CurrencySymbol:         profile.CurrencySymbol,
	}
}

// peakHour returns the hour of day with the highest summed consumption, or
// -1 when there is no history. Ties break to the smallest hour.
func peakHour(energyLog []types.EnergyLogEntry) int {
	if len(energyLog) == 0 {
		return -1
	}

	var byHour [24]float64
	for _, e := range energyLog {
		byHour[e.LoggedAt.Hour()] += e.ConsumptionKWH
	}

	peak := 0
	for h := 1; h < 24; h++ {
		if byHour[h] > byHour[peak] {
			peak = h
		}
	}
	return peak
}

// growthRate splits the window into two equal halves around the midpoint
// and returns (second-first)/first, clamped to [-growthRateClamp,
// growthRateClamp]. A zero first half yields 0, never a division blowup.
func growthRate(now time.Time, energyLog []types.EnergyLogEntry) float64 {
	midpoint := now.AddDate(0, 0, -WindowDays/2)

	var firstHalf, secondHalf float64
	for _, e := range energyLog {
		if e.LoggedAt.Before(midpoint) {
			firstHalf += e.ConsumptionKWH
		} else {
			secondHalf += e.ConsumptionKWH
		}
	}

	if firstHalf == 0 {
		return 0
	}

	rate := (secondHalf - firstHalf) / firstHalf
	if rate > growthRateClamp {
		return growthRateClamp
	}
	if rate < -growthRateClamp {
		return -growthRateClamp
	}
	return rate
}
