package simulation

import "github.com/homewatts/homewatts/pkg/types"

// ConsumptionKW sums the rated power of every device that is on, in kW.
// It never mutates the device list.
func ConsumptionKW(devices []types.DeviceState) float64 {
	var watts float64
	for _, d := range devices {
		if d.On() {
			watts += d.PowerRatingW
		}
	}
	return watts / 1000.0
}

// CountActive returns how many of the devices are on.
func CountActive(devices []types.DeviceState) int {
	var n int
	for _, d := range devices {
		if d.On() {
			n++
		}
	}
	return n
}
