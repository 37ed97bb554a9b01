package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/homewatts/homewatts/pkg/insight"
	"github.com/homewatts/homewatts/pkg/log"
	"github.com/homewatts/homewatts/pkg/storage"
	"github.com/homewatts/homewatts/pkg/types"
)

// insightStaleness is how long a stored forecast set stays fresh. Requests
// inside the window get the stored results back without recomputation.
const insightStaleness = time.Hour

type insightsResponse struct {
	Insights        []string               `json:"insights"`
	Recommendations []types.Recommendation `json:"recommendations"`
	Forecasts       []types.Forecast       `json:"forecasts"`
	Cached          bool                   `json:"cached"`
}

func (s *Server) handleGenerateInsights(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := s.getUser(r)
	if user.ID == "" {
		writeJSONError(w, "user id required", http.StatusBadRequest)
		return
	}

	now := time.Now()

	// serve the stored results while they're fresh
	lastRun, err := s.storage.GetLatestForecastTime(ctx, user.ID)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to get last forecast time", slog.Any("error", err))
	} else if !lastRun.IsZero() && now.Sub(lastRun) < insightStaleness {
		s.serveStoredInsights(w, r, user.ID)
		return
	}

	profile, version, err := s.storage.GetProfile(ctx, user.ID)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get profile", slog.Any("error", err))
		writeJSONError(w, "failed to get profile", http.StatusInternalServerError)
		return
	}
	profile, _, err = types.MigrateProfile(profile, version)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to migrate profile", slog.Any("error", err))
		writeJSONError(w, "failed to get profile", http.StatusInternalServerError)
		return
	}

	windowStart := now.AddDate(0, 0, -insight.WindowDays)
	energyLog, err := s.storage.GetEnergyLog(ctx, user.ID, windowStart, now)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get energy log", slog.Any("error", err))
		writeJSONError(w, "failed to get history", http.StatusInternalServerError)
		return
	}
	solarLog, err := s.storage.GetSolarLog(ctx, user.ID, windowStart, now)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get solar log", slog.Any("error", err))
		writeJSONError(w, "failed to get history", http.StatusInternalServerError)
		return
	}

	fc := insight.BuildContext(now, energyLog, solarLog, profile)
	cond := s.currentConditions(ctx, user.ID)

	forecast := s.engine.Forecast(ctx, fc)
	forecasts := forecast.Rows(now)
	recommendations := s.engine.Recommend(ctx, fc, cond)
	insights := insight.ComposeInsights(fc, cond.Weather, cond.Price)

	// persistence is best-effort; the computed response goes back either way
	if err := s.storage.ReplaceForecasts(ctx, user.ID, forecasts); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to store forecasts", slog.Any("error", err))
	}
	if err := s.storage.ReplaceRecommendations(ctx, user.ID, recommendations); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to store recommendations", slog.Any("error", err))
	}

	writeJSON(w, insightsResponse{
		Insights:        insights,
		Recommendations: recommendations,
		Forecasts:       forecasts,
	})
}

// currentConditions collects the latest telemetry for the recommendation
// gates. Users without telemetry get zero-valued samples; only the gates
// that require conditions are affected.
func (s *Server) currentConditions(ctx context.Context, userID string) insight.Conditions {
	var cond insight.Conditions

	weather, err := s.storage.GetLatestWeatherSample(ctx, userID)
	if err != nil && !errors.Is(err, storage.ErrNoSamples) {
		log.Ctx(ctx).WarnContext(ctx, "failed to get latest weather", slog.Any("error", err))
	} else if err == nil {
		cond.Weather = weather
	}

	price, err := s.storage.GetLatestPriceSample(ctx, userID)
	if err != nil && !errors.Is(err, storage.ErrNoSamples) {
		log.Ctx(ctx).WarnContext(ctx, "failed to get latest price", slog.Any("error", err))
	} else if err == nil {
		cond.Price = price
	}

	devices, err := s.storage.ListDevices(ctx, userID)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to list devices", slog.Any("error", err))
	} else {
		cond.Devices = devices
	}

	return cond
}

// serveStoredInsights returns the persisted results from the last run,
// recomposing only the cheap textual insights from current telemetry.
func (s *Server) serveStoredInsights(w http.ResponseWriter, r *http.Request, userID string) {
	ctx := r.Context()

	forecasts, err := s.storage.GetForecasts(ctx, userID)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get stored forecasts", slog.Any("error", err))
		writeJSONError(w, "failed to get forecasts", http.StatusInternalServerError)
		return
	}
	recommendations, err := s.storage.GetRecommendations(ctx, userID)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get stored recommendations", slog.Any("error", err))
		writeJSONError(w, "failed to get recommendations", http.StatusInternalServerError)
		return
	}

	profile, version, err := s.storage.GetProfile(ctx, userID)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get profile", slog.Any("error", err))
		writeJSONError(w, "failed to get profile", http.StatusInternalServerError)
		return
	}
	profile, _, err = types.MigrateProfile(profile, version)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to migrate profile", slog.Any("error", err))
		writeJSONError(w, "failed to get profile", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	windowStart := now.AddDate(0, 0, -insight.WindowDays)
	energyLog, err := s.storage.GetEnergyLog(ctx, userID, windowStart, now)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get energy log", slog.Any("error", err))
		writeJSONError(w, "failed to get history", http.StatusInternalServerError)
		return
	}
	solarLog, err := s.storage.GetSolarLog(ctx, userID, windowStart, now)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get solar log", slog.Any("error", err))
		writeJSONError(w, "failed to get history", http.StatusInternalServerError)
		return
	}

	fc := insight.BuildContext(now, energyLog, solarLog, profile)
	cond := s.currentConditions(ctx, userID)

	writeJSON(w, insightsResponse{
		Insights:        insight.ComposeInsights(fc, cond.Weather, cond.Price),
		Recommendations: recommendations,
		Forecasts:       forecasts,
		Cached:          true,
	})
}

func (s *Server) handleGetRecommendations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := s.getUser(r)
	if user.ID == "" {
		writeJSONError(w, "user id required", http.StatusBadRequest)
		return
	}

	recommendations, err := s.storage.GetRecommendations(ctx, user.ID)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get recommendations", slog.Any("error", err))
		writeJSONError(w, "failed to get recommendations", http.StatusInternalServerError)
		return
	}
	writeJSON(w, recommendations)
}

func (s *Server) handleGetForecasts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := s.getUser(r)
	if user.ID == "" {
		writeJSONError(w, "user id required", http.StatusBadRequest)
		return
	}

	forecasts, err := s.storage.GetForecasts(ctx, user.ID)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get forecasts", slog.Any("error", err))
		writeJSONError(w, "failed to get forecasts", http.StatusInternalServerError)
		return
	}
	writeJSON(w, forecasts)
}
