package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"zakat_flow_go/models"
	"zakat_flow_go/services"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShareProfileHandlers(t *testing.T) {
	database := setupTestDB(t)
	from := createTestMasjid(t, database, "Masjid A")
	to := createTestMasjid(t, database, "Masjid B")
	admin := createTestStaff(t, database, from.ID, "Amira", models.RoleAdmin, "pass123456789")
	applicant := createTestApplicant(t, database, from.ID, "Yusuf")

	var shareID string

	t.Run("Share a case", func(t *testing.T) {
		body := `{"caseId": "` + applicant.CaseID + `", "toMasjidId": "` + to.ID + `"}`
		_, c, rec := setupEcho(http.MethodPost, "/api/shared-profiles", strings.NewReader(body))
		c.Request().Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		setIdentity(c, services.StaffIdentity(admin))

		require.NoError(t, ShareProfileHandler(c))
		assert.Equal(t, http.StatusCreated, rec.Code)

		var resp struct {
			Share models.SharedProfile `json:"share"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		shareID = resp.Share.ID
		assert.True(t, resp.Share.IsActive)

		// The grant lands in the audit trail
		time.Sleep(50 * time.Millisecond)
		var count int64
		database.Model(&models.AuditLog{}).Where("action = ?", models.AuditActionShare).Count(&count)
		assert.Equal(t, int64(1), count)
	})

	t.Run("Duplicate share conflicts", func(t *testing.T) {
		body := `{"caseId": "` + applicant.CaseID + `", "toMasjidId": "` + to.ID + `"}`
		_, c, _ := setupEcho(http.MethodPost, "/api/shared-profiles", strings.NewReader(body))
		c.Request().Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		setIdentity(c, services.StaffIdentity(admin))

		err := ShareProfileHandler(c)
		he, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusConflict, he.Code)
	})

	t.Run("Anonymous view by link id", func(t *testing.T) {
		_, c, rec := setupEcho(http.MethodGet, "/api/shared-profiles/"+shareID, nil)
		c.SetParamNames("id")
		c.SetParamValues(shareID)

		require.NoError(t, ViewSharedProfileHandler(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Share models.SharedProfile `json:"share"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, applicant.ID, resp.Share.ApplicantID)
		assert.Nil(t, resp.Share.ViewedBy)
	})

	t.Run("Revoke", func(t *testing.T) {
		_, c, rec := setupEcho(http.MethodDelete, "/api/shared-profiles/"+shareID, nil)
		c.SetParamNames("id")
		c.SetParamValues(shareID)
		setIdentity(c, services.StaffIdentity(admin))

		require.NoError(t, RevokeShareHandler(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		var fresh models.SharedProfile
		require.NoError(t, database.First(&fresh, "id = ?", shareID).Error)
		assert.False(t, fresh.IsActive)
	})

	t.Run("Revoked link is gone", func(t *testing.T) {
		_, c, _ := setupEcho(http.MethodGet, "/api/shared-profiles/"+shareID, nil)
		c.SetParamNames("id")
		c.SetParamValues(shareID)

		err := ViewSharedProfileHandler(c)
		he, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusNotFound, he.Code)
	})
}
