package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/homewatts/homewatts/pkg/storage/storagemock"
	"github.com/homewatts/homewatts/pkg/types"
)

func postJSON(target, userID string, v any) *http.Request {
	body, _ := json.Marshal(v)
	req := httptest.NewRequest("POST", target, bytes.NewReader(body))
	return req.WithContext(requestAs("POST", target, userID).Context())
}

func TestHandleGetSettings(t *testing.T) {
	t.Run("Migrates Old Profiles", func(t *testing.T) {
		db := &storagemock.MockDatabase{}
		// a version 0 profile picks up rate/occupant defaults
		db.On("GetProfile", mock.Anything, "user-1").Return(types.Profile{}, 0, nil)
		db.On("SetProfile", mock.Anything, "user-1", mock.Anything, types.CurrentProfileVersion).Return(nil)

		srv := testServer(db)
		w := httptest.NewRecorder()
		srv.handleGetSettings(w, requestAs("GET", "/api/settings", "user-1"))

		resp := w.Result()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var profile types.Profile
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&profile))
		assert.Equal(t, types.DefaultElectricityRate, profile.ElectricityRate)
		assert.Equal(t, types.DefaultOccupants, profile.Occupants)
		assert.Equal(t, types.DataSourceNone, profile.DataSource)

		// the migrated shape gets written back
		db.AssertCalled(t, "SetProfile", mock.Anything, "user-1", mock.Anything, types.CurrentProfileVersion)
	})

	t.Run("Current Profiles Skip The Write Back", func(t *testing.T) {
		db := &storagemock.MockDatabase{}
		db.On("GetProfile", mock.Anything, "user-1").Return(simProfile(), types.CurrentProfileVersion, nil)

		srv := testServer(db)
		w := httptest.NewRecorder()
		srv.handleGetSettings(w, requestAs("GET", "/api/settings", "user-1"))

		require.Equal(t, http.StatusOK, w.Result().StatusCode)
		db.AssertNotCalled(t, "SetProfile", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestHandleUpdateSettings(t *testing.T) {
	t.Run("Saves With Defaults Filled", func(t *testing.T) {
		db := &storagemock.MockDatabase{}
		db.On("SetProfile", mock.Anything, "user-1", mock.MatchedBy(func(p types.Profile) bool {
			return p.ElectricityRate == types.DefaultElectricityRate && p.Occupants == types.DefaultOccupants
		}), types.CurrentProfileVersion).Return(nil)

		srv := testServer(db)
		w := httptest.NewRecorder()
		srv.handleUpdateSettings(w, postJSON("/api/settings", "user-1", types.Profile{
			DataSource: types.DataSourceSimulation,
		}))

		require.Equal(t, http.StatusOK, w.Result().StatusCode)
	})

	t.Run("Negative Rate Is Rejected", func(t *testing.T) {
		srv := testServer(&storagemock.MockDatabase{})
		w := httptest.NewRecorder()
		srv.handleUpdateSettings(w, postJSON("/api/settings", "user-1", types.Profile{
			ElectricityRate: -1,
		}))
		require.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
	})
}

func TestHandleUpsertDevice(t *testing.T) {
	t.Run("Valid Device Is Saved", func(t *testing.T) {
		device := types.DeviceState{ID: "hvac", Name: "HVAC", PowerRatingW: 1500, Status: types.DeviceOn}

		db := &storagemock.MockDatabase{}
		db.On("UpsertDevice", mock.Anything, "user-1", device).Return(nil)

		srv := testServer(db)
		w := httptest.NewRecorder()
		srv.handleUpsertDevice(w, postJSON("/api/devices", "user-1", device))

		require.Equal(t, http.StatusOK, w.Result().StatusCode)
		db.AssertCalled(t, "UpsertDevice", mock.Anything, "user-1", device)
	})

	t.Run("Unknown Status Is Rejected", func(t *testing.T) {
		srv := testServer(&storagemock.MockDatabase{})
		w := httptest.NewRecorder()
		srv.handleUpsertDevice(w, postJSON("/api/devices", "user-1", types.DeviceState{
			ID: "x", Name: "X", Status: "standby",
		}))
		require.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
	})
}
