package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarlsen/equiploan/internal/adapters/http/dto"
	"github.com/mkarlsen/equiploan/internal/domain"
)

func reserveBody(equipmentID string, start, end time.Time) string {
	return fmt.Sprintf(`{"equipmentId":%q,"startAt":%q,"endAt":%q}`,
		equipmentID, start.Format(time.RFC3339), end.Format(time.RFC3339))
}

func TestReservationHandler_Reserve(t *testing.T) {
	f := newFixture(t)
	f.seedEquipment(camera("eq-1"))
	start := time.Now().Add(24 * time.Hour)

	w := f.do(http.MethodPost, "/api/v1/reservations", "u-1", "",
		reserveBody("eq-1", start, start.Add(48*time.Hour)))

	require.Equal(t, http.StatusCreated, w.Code)

	var resp ReservationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "u-1", resp.BorrowerID)
	assert.Equal(t, string(domain.ReservationPending), resp.Status)
}

func TestReservationHandler_Reserve_Overlap(t *testing.T) {
	f := newFixture(t)
	f.seedEquipment(camera("eq-1"))
	start := time.Now().Add(24 * time.Hour)

	w := f.do(http.MethodPost, "/api/v1/reservations", "u-1", "",
		reserveBody("eq-1", start, start.Add(48*time.Hour)))
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.do(http.MethodPost, "/api/v1/reservations", "u-2", "",
		reserveBody("eq-1", start.Add(24*time.Hour), start.Add(72*time.Hour)))

	require.Equal(t, http.StatusConflict, w.Code)

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrorCodeConflict, resp.Error.Code)
}

func TestReservationHandler_Cancel(t *testing.T) {
	f := newFixture(t)
	f.seedEquipment(camera("eq-1"))
	start := time.Now().Add(24 * time.Hour)

	w := f.do(http.MethodPost, "/api/v1/reservations", "u-1", "",
		reserveBody("eq-1", start, start.Add(time.Hour)))
	require.Equal(t, http.StatusCreated, w.Code)

	var created ReservationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	t.Run("owner only", func(t *testing.T) {
		w := f.do(http.MethodDelete, "/api/v1/reservations/"+created.ID, "u-2", "", "")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("owner cancels", func(t *testing.T) {
		w := f.do(http.MethodDelete, "/api/v1/reservations/"+created.ID, "u-1", "", "")
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestReservationHandler_ListForEquipment(t *testing.T) {
	f := newFixture(t)
	f.seedEquipment(camera("eq-1"))
	start := time.Now().Add(24 * time.Hour)

	w := f.do(http.MethodPost, "/api/v1/reservations", "u-1", "",
		reserveBody("eq-1", start, start.Add(time.Hour)))
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.do(http.MethodGet, "/api/v1/equipment/eq-1/reservations", "u-1", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var out []ReservationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "eq-1", out[0].EquipmentID)
}

func TestProfileHandler(t *testing.T) {
	f := newFixture(t)

	t.Run("empty profile before first save", func(t *testing.T) {
		w := f.do(http.MethodGet, "/api/v1/profiles/me", "u-1", "", "")
		require.Equal(t, http.StatusOK, w.Code)

		var resp ProfileResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "u-1", resp.ID)
		assert.False(t, resp.Complete)
		assert.Equal(t, []string{"name", "email", "department"}, resp.MissingFields)
	})

	t.Run("save and read back", func(t *testing.T) {
		body := `{"name":"Mia Chen","email":"mia@campus.edu","department":"Media Lab"}`
		w := f.do(http.MethodPut, "/api/v1/profiles/me", "u-1", "", body)
		require.Equal(t, http.StatusOK, w.Code)

		w = f.do(http.MethodGet, "/api/v1/profiles/me", "u-1", "", "")
		require.Equal(t, http.StatusOK, w.Code)

		var resp ProfileResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Complete)
		assert.Empty(t, resp.MissingFields)
	})

	t.Run("partial save reports missing fields", func(t *testing.T) {
		w := f.do(http.MethodPut, "/api/v1/profiles/me", "u-2", "", `{"name":"Sam Ortiz"}`)
		require.Equal(t, http.StatusOK, w.Code)

		var resp ProfileResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Complete)
		assert.Equal(t, []string{"email", "department"}, resp.MissingFields)
	})

	t.Run("bad email is rejected", func(t *testing.T) {
		w := f.do(http.MethodPut, "/api/v1/profiles/me", "u-3", "", `{"email":"not-an-address"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		w := f.do(http.MethodGet, "/api/v1/profiles/me", "", "", "")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
