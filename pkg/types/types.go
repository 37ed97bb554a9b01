package types

import "time"

const (
	CurrentEnergyLogVersion = 1
	CurrentForecastVersion  = 1
)

// DeviceStatus is the on/off state of a device.
type DeviceStatus string

const (
	DeviceOn  DeviceStatus = "on"
	DeviceOff DeviceStatus = "off"
)

// DeviceState represents a single appliance managed by the user.
// The simulation only reads these; the device UI owns their lifecycle.
type DeviceState struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	PowerRatingW float64      `json:"powerRatingW"`
	Status       DeviceStatus `json:"status"`
}

// On reports whether the device is currently drawing power.
func (d DeviceState) On() bool {
	return d.Status == DeviceOn
}

// WeatherCondition is a coarse sky bucket derived from cloud cover.
type WeatherCondition string

const (
	ConditionSunny        WeatherCondition = "sunny"
	ConditionPartlyCloudy WeatherCondition = "partly-cloudy"
	ConditionCloudy       WeatherCondition = "cloudy"
)

// WeatherSample represents one simulated weather reading.
type WeatherSample struct {
	Timestamp   time.Time        `json:"timestamp"`
	TempC       float64          `json:"tempC"`
	CloudCover  float64          `json:"cloudCover"` // 0-1
	Irradiance  float64          `json:"irradiance"` // W/m^2
	Humidity    float64          `json:"humidity"`   // 0-100
	WindSpeedMS float64          `json:"windSpeedMS"`
	Condition   WeatherCondition `json:"condition"`
}

// PriceTier identifies the time-of-use band a price belongs to.
type PriceTier string

const (
	TierOffPeak  PriceTier = "off-peak"
	TierStandard PriceTier = "standard"
	TierMidPeak  PriceTier = "mid-peak"
	TierPeak     PriceTier = "peak"
)

// PriceSample represents one simulated grid price reading.
type PriceSample struct {
	Timestamp     time.Time `json:"timestamp"`
	DollarsPerKWH float64   `json:"dollarsPerKWH"`
	Tier          PriceTier `json:"tier"`
}

// EnergySample is a raw high-frequency telemetry point, one per tick.
// GridKW is always max(0, ConsumptionKW - SolarKW).
type EnergySample struct {
	Timestamp     time.Time `json:"timestamp"`
	ConsumptionKW float64   `json:"consumptionKW"`
	SolarKW       float64   `json:"solarKW"`
	GridKW        float64   `json:"gridKW"`
	BatteryLevel  float64   `json:"batteryLevel"` // 0-100
	ActiveDevices int       `json:"activeDevices"`
	TotalDevices  int       `json:"totalDevices"`
}

// EnergyLogEntry is an aggregated consumption row produced on flush.
type EnergyLogEntry struct {
	LoggedAt       time.Time `json:"loggedAt"`
	ConsumptionKWH float64   `json:"consumptionKWH"`
}

// SolarLogEntry is an aggregated generation row produced on flush.
type SolarLogEntry struct {
	LoggedAt      time.Time `json:"loggedAt"`
	GenerationKWH float64   `json:"generationKWH"`
}

// RecommendationPriority orders recommendations for display.
type RecommendationPriority string

const (
	PriorityHigh   RecommendationPriority = "high"
	PriorityMedium RecommendationPriority = "medium"
	PriorityLow    RecommendationPriority = "low"
)

// Recommendation is a single actionable nudge with its estimated impact.
type Recommendation struct {
	ID                      string                 `json:"id,omitempty"`
	Title                   string                 `json:"title"`
	Description             string                 `json:"description"`
	ExpectedSavingsKWH      float64                `json:"expectedSavingsKWH"`
	ExpectedSavingsCurrency float64                `json:"expectedSavingsCurrency"`
	Priority                RecommendationPriority `json:"priority"`
	Category                string                 `json:"category"`
}

// ForecastTarget identifies what a forecast predicts.
type ForecastTarget string

const (
	ForecastConsumption ForecastTarget = "consumption"
	ForecastGeneration  ForecastTarget = "generation"
)

// ForecastConfidence labels how the forecast value was produced.
type ForecastConfidence string

const (
	ConfidenceHigh   ForecastConfidence = "high"
	ConfidenceMedium ForecastConfidence = "medium"
	ConfidenceLow    ForecastConfidence = "low"
)

// Forecast is a predicted next-period total for one target.
type Forecast struct {
	Target      ForecastTarget     `json:"target"`
	ValueKWH    float64            `json:"valueKWH"`
	PeriodStart time.Time          `json:"periodStart"`
	PeriodEnd   time.Time          `json:"periodEnd"`
	Model       string             `json:"model"`
	Confidence  ForecastConfidence `json:"confidence"`
}

// FeatureContext is the fixed numeric context derived from a user's history.
// It is ephemeral: recomputed per forecast call and immutable once built.
type FeatureContext struct {
	AvgDailyConsumptionKWH float64 `json:"avgDailyConsumptionKWH"`
	AvgDailySolarKWH       float64 `json:"avgDailySolarKWH"`
	NetUsageKWH            float64 `json:"netUsageKWH"`
	// PeakHour is 0-23, or -1 when no history exists.
	PeakHour        int     `json:"peakHour"`
	Occupants       int     `json:"occupants"`
	HomeSizeSqft    float64 `json:"homeSizeSqft"` // 0 means unknown
	SolarCapacityKW float64 `json:"solarCapacityKW"`
	BatteryCapacity float64 `json:"batteryCapacityKWH"`
	ElectricityRate float64 `json:"electricityRate"`
	GrowthRate      float64 `json:"growthRate"` // clamped to [-0.15, 0.15]
	Month           int     `json:"month"`      // 1-12
	Weekend         bool    `json:"weekend"`
	CurrencySymbol  string  `json:"currencySymbol"`
}

// User represents an authenticated user of the system.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
