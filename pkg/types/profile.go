package types

import "fmt"

// CurrentProfileVersion is the current version of the profile struct.
// Increment this value when adding new fields that require default values.
const CurrentProfileVersion = 2

// DataSource selects where a user's telemetry comes from.
type DataSource string

const (
	// DataSourceSimulation runs the built-in simulated meter.
	DataSourceSimulation DataSource = "simulation"
	// DataSourceNone disables telemetry generation entirely.
	DataSourceNone DataSource = "none"
)

// Default values applied when a profile is missing or incomplete.
const (
	DefaultElectricityRate = 0.12
	DefaultOccupants       = 1
	DefaultCurrencySymbol  = "$"
)

// Profile represents the per-user household configuration.
// These are dynamic settings that can be changed without redeploying.
type Profile struct {
	ElectricityRate     float64    `json:"electricityRate"` // currency per kWh
	SolarPanelCapacity  float64    `json:"solarPanelCapacityKW"`
	BatteryCapacityKWH  float64    `json:"batteryCapacityKWH"`
	Occupants           int        `json:"occupants"`
	HomeSizeSqft        float64    `json:"homeSizeSqft"` // 0 means unknown
	CurrencySymbol      string     `json:"currencySymbol"`
	DataSource          DataSource `json:"dataSource"`
	InteractiveDemoMode bool       `json:"interactiveDemoMode"`
}

// MigrateProfile migrates a stored profile to the current version, filling
// documented defaults for fields added since it was written.
// It returns the migrated profile, a boolean indicating if changes were made,
// and an error if migration failed.
func MigrateProfile(p Profile, currentVersion int) (Profile, bool, error) {
	if currentVersion >= CurrentProfileVersion {
		return p, false, nil
	}

	migrated := false
	// Loop through versions to apply migrations sequentially
	for version := currentVersion + 1; version <= CurrentProfileVersion; version++ {
		switch version {
		case 1:
			// version 1: initial defaults
			if p.ElectricityRate == 0 {
				p.ElectricityRate = DefaultElectricityRate
				migrated = true
			}
			if p.Occupants == 0 {
				p.Occupants = DefaultOccupants
				migrated = true
			}
			if p.CurrencySymbol == "" {
				p.CurrencySymbol = DefaultCurrencySymbol
				migrated = true
			}
		case 2:
			// version 2: add data source
			if p.DataSource == "" {
				p.DataSource = DataSourceNone
				migrated = true
			}
		default:
			return p, false, fmt.Errorf("unknown profile version: %d", version)
		}
	}

	return p, migrated, nil
}
