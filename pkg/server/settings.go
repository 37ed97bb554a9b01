package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/homewatts/homewatts/pkg/log"
	"github.com/homewatts/homewatts/pkg/types"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := s.getUser(r)
	if user.ID == "" {
		writeJSONError(w, "user id required", http.StatusBadRequest)
		return
	}

	profile, version, err := s.storage.GetProfile(ctx, user.ID)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get profile", slog.Any("error", err))
		writeJSONError(w, "failed to get settings", http.StatusInternalServerError)
		return
	}
	profile, migrated, err := types.MigrateProfile(profile, version)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to migrate profile", slog.Any("error", err))
		writeJSONError(w, "failed to get settings", http.StatusInternalServerError)
		return
	}
	// persist the migrated shape so the next read skips the migration
	if migrated {
		if err := s.storage.SetProfile(ctx, user.ID, profile, types.CurrentProfileVersion); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to persist migrated profile", slog.Any("error", err))
		}
	}

	writeJSON(w, profile)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := s.getUser(r)
	if user.ID == "" {
		writeJSONError(w, "user id required", http.StatusBadRequest)
		return
	}

	var profile types.Profile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		writeJSONError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if profile.ElectricityRate < 0 || profile.SolarPanelCapacity < 0 || profile.BatteryCapacityKWH < 0 {
		writeJSONError(w, "rates and capacities must be non-negative", http.StatusBadRequest)
		return
	}
	if profile.Occupants < 1 {
		profile.Occupants = types.DefaultOccupants
	}
	if profile.ElectricityRate == 0 {
		profile.ElectricityRate = types.DefaultElectricityRate
	}
	if profile.CurrencySymbol == "" {
		profile.CurrencySymbol = types.DefaultCurrencySymbol
	}

	if err := s.storage.SetProfile(ctx, user.ID, profile, types.CurrentProfileVersion); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to save profile", slog.Any("error", err))
		writeJSONError(w, "failed to save settings", http.StatusInternalServerError)
		return
	}

	writeJSON(w, profile)
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := s.getUser(r)
	if user.ID == "" {
		writeJSONError(w, "user id required", http.StatusBadRequest)
		return
	}

	devices, err := s.storage.ListDevices(ctx, user.ID)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to list devices", slog.Any("error", err))
		writeJSONError(w, "failed to list devices", http.StatusInternalServerError)
		return
	}
	writeJSON(w, devices)
}

func (s *Server) handleUpsertDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := s.getUser(r)
	if user.ID == "" {
		writeJSONError(w, "user id required", http.StatusBadRequest)
		return
	}

	var device types.DeviceState
	if err := json.NewDecoder(r.Body).Decode(&device); err != nil {
		writeJSONError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if device.ID == "" || device.Name == "" {
		writeJSONError(w, "device id and name are required", http.StatusBadRequest)
		return
	}
	if device.PowerRatingW < 0 {
		writeJSONError(w, "power rating must be non-negative", http.StatusBadRequest)
		return
	}
	if device.Status != types.DeviceOn && device.Status != types.DeviceOff {
		writeJSONError(w, "status must be on or off", http.StatusBadRequest)
		return
	}

	if err := s.storage.UpsertDevice(ctx, user.ID, device); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to save device", slog.Any("error", err))
		writeJSONError(w, "failed to save device", http.StatusInternalServerError)
		return
	}

	writeJSON(w, device)
}
