package simulation

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/homewatts/homewatts/pkg/types"
)

const (
	// PanelEfficiency converts irradiance-scaled panel capacity into output.
	PanelEfficiency = 0.17

	sunriseHour = 6.0
	sunsetHour  = 18.0

	rampIrradiance = 800.0  // W/m^2 at the top of the morning ramp
	maxIrradiance  = 1000.0 // W/m^2 midday upper bound

	// interactiveSolarCapKW caps the interactive demo's synthetic solar
	// output. The interactive path deliberately ignores the profile's panel
	// capacity; it is a display policy distinct from the background one.
	interactiveSolarCapKW = 5.0
	interactiveCloudLoss  = 0.7
)

// WeatherModel synthesizes weather readings and solar output for a simulated
// time of day. The midday jitter source is injectable so tests can pin it.
type WeatherModel struct {
	mu sync.Mutex
	// jitter returns a value in [0,1) used to pick the midday irradiance
	// within [rampIrradiance, maxIrradiance].
	jitter func() float64
}

// NewWeatherModel returns a WeatherModel seeded from the clock.
func NewWeatherModel() *WeatherModel {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &WeatherModel{jitter: rng.Float64}
}

// NewWeatherModelWithJitter returns a WeatherModel with a fixed jitter
// source, used by tests and anywhere deterministic output is needed.
func NewWeatherModelWithJitter(jitter func() float64) *WeatherModel {
	return &WeatherModel{jitter: jitter}
}

// clampCloud bounds cloud cover to [0,1] before any use.
func clampCloud(cloud float64) float64 {
	if cloud < 0 {
		return 0
	}
	if cloud > 1 {
		return 1
	}
	return cloud
}

// Irradiance returns the solar irradiance in W/m^2 for the given fractional
// hour of day and cloud cover ratio. It is zero outside the 06:00-18:00
// window and bounded by the diurnal envelope scaled by (1 - cloud).
func (m *WeatherModel) Irradiance(hour, cloud float64) float64 {
	cloud = clampCloud(cloud)
	if hour < sunriseHour || hour > sunsetHour {
		return 0
	}

	scale := 1.0 - cloud
	switch {
	case hour < 11:
		// morning ramp 0 -> 800
		return rampIrradiance * (hour - sunriseHour) / (11 - sunriseHour) * scale
	case hour < 14:
		// midday plateau 800-1000 with jitter
		m.mu.Lock()
		j := m.jitter()
		m.mu.Unlock()
		return (rampIrradiance + j*(maxIrradiance-rampIrradiance)) * scale
	default:
		// afternoon ramp 800 -> 0
		return rampIrradiance * (sunsetHour - hour) / (sunsetHour - 14) * scale
	}
}

// SolarPowerKW converts irradiance into instantaneous panel output.
// A zero capacity always produces zero power.
func SolarPowerKW(irradiance, capacityKW float64) float64 {
	if capacityKW <= 0 {
		return 0
	}
	return capacityKW * (irradiance / 1000.0) * PanelEfficiency
}

// InteractiveSolarKW is the interactive demo's solar curve: a sinusoidal
// day-progress shape capped at 5 kW and derated by cloud cover. It shares
// nothing with the background irradiance model on purpose.
func InteractiveSolarKW(hour, cloud float64) float64 {
	cloud = clampCloud(cloud)
	if hour < sunriseHour || hour > sunsetHour {
		return 0
	}
	progress := (hour - sunriseHour) / (sunsetHour - sunriseHour)
	return interactiveSolarCapKW * math.Sin(progress*math.Pi) * (1 - interactiveCloudLoss*cloud)
}

// condition buckets cloud cover into the categorical sky condition.
func condition(cloud float64) types.WeatherCondition {
	switch {
	case cloud < 0.25:
		return types.ConditionSunny
	case cloud < 0.6:
		return types.ConditionPartlyCloudy
	default:
		return types.ConditionCloudy
	}
}

// Sample produces a full weather reading for the simulated time.
func (m *WeatherModel) Sample(ts time.Time, cloud float64) types.WeatherSample {
	cloud = clampCloud(cloud)
	hour := float64(ts.Hour()) + float64(ts.Minute())/60.0

	// temperature follows a simple diurnal curve peaking mid-afternoon
	tempC := 15.0 + 8.0*math.Sin((hour-9)/24.0*2*math.Pi) - 3.0*cloud

	return types.WeatherSample{
		Timestamp:   ts,
		TempC:       tempC,
		CloudCover:  cloud,
		Irradiance:  m.Irradiance(hour, cloud),
		Humidity:    45 + 40*cloud,
		WindSpeedMS: 2 + 6*cloud,
		Condition:   condition(cloud),
	}
}
