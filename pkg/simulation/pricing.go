package simulation

import (
	"time"

	"github.com/homewatts/homewatts/pkg/types"
)

// Background tier multipliers applied to the profile's base rate.
const (
	offPeakMultiplier  = 0.90
	standardMultiplier = 1.00
	peakMultiplier     = 1.17
)

// Interactive demo flat prices in dollars per kWh. These bands and values
// are intentionally distinct from the background policy; they belong to a
// separate display surface and must not be unified with it.
const (
	interactiveOffPeakRate = 0.12
	interactiveMidPeakRate = 0.15
	interactivePeakRate    = 0.25
)

// BackgroundPrice computes the tiered grid price for the background
// simulation: off-peak before 06:00, peak from 18:00, standard otherwise.
// Exactly one tier applies to any hour.
func BackgroundPrice(ts time.Time, baseRate float64) types.PriceSample {
	hour := ts.Hour()

	var tier types.PriceTier
	var mult float64
	switch {
	case hour < 6:
		tier = types.TierOffPeak
		mult = offPeakMultiplier
	case hour >= 18:
		tier = types.TierPeak
		mult = peakMultiplier
	default:
		tier = types.TierStandard
		mult = standardMultiplier
	}

	return types.PriceSample{
		Timestamp:     ts,
		DollarsPerKWH: baseRate * mult,
		Tier:          tier,
	}
}

// InteractivePrice computes the interactive demo's flat-banded price:
// peak 16:00-20:00, mid-peak 09:00-16:00, off-peak otherwise. The base
// rate is ignored; the demo shows fixed illustrative values.
func InteractivePrice(ts time.Time) types.PriceSample {
	hour := ts.Hour()

	var tier types.PriceTier
	var rate float64
	switch {
	case hour >= 16 && hour < 20:
		tier = types.TierPeak
		rate = interactivePeakRate
	case hour >= 9 && hour < 16:
		tier = types.TierMidPeak
		rate = interactiveMidPeakRate
	default:
		tier = types.TierOffPeak
		rate = interactiveOffPeakRate
	}

	return types.PriceSample{
		Timestamp:     ts,
		DollarsPerKWH: rate,
		Tier:          tier,
	}
}
