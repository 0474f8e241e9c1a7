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

func operatorIdentity() services.Identity {
	return services.Identity{ID: "operator-1", Name: "Operator", Role: models.RoleAdmin}
}

func TestCreateMasjidHandler(t *testing.T) {
	database := setupTestDB(t)

	t.Run("Operator registers a masjid", func(t *testing.T) {
		body := `{"name": "Masjid As-Salam", "city": "Dearborn", "country": "US", "contactEmail": "Office@As-Salam.org"}`
		_, c, rec := setupEcho(http.MethodPost, "/api/masjids", strings.NewReader(body))
		c.Request().Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		setIdentity(c, operatorIdentity())

		require.NoError(t, CreateMasjidHandler(c))
		assert.Equal(t, http.StatusCreated, rec.Code)

		var created models.Masjid
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
		assert.NotEmpty(t, created.Slug)
		assert.Equal(t, "office@as-salam.org", created.ContactEmail)

		time.Sleep(50 * time.Millisecond)
		var audits int64
		database.Model(&models.AuditLog{}).
			Where("resource_type = ? AND action = ?", "masjid", models.AuditActionCreate).
			Count(&audits)
		assert.Equal(t, int64(1), audits)
	})

	t.Run("Tenant admin cannot register masjids", func(t *testing.T) {
		masjid := createTestMasjid(t, database, "Masjid Al-Huda")
		admin := createTestStaff(t, database, masjid.ID, "Bilal", models.RoleAdmin, "pass123456789")

		body := `{"name": "Another Masjid"}`
		_, c, _ := setupEcho(http.MethodPost, "/api/masjids", strings.NewReader(body))
		c.Request().Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		setIdentity(c, services.StaffIdentity(admin))

		err := CreateMasjidHandler(c)
		he, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusForbidden, he.Code)
	})

	t.Run("Name is required", func(t *testing.T) {
		_, c, _ := setupEcho(http.MethodPost, "/api/masjids", strings.NewReader(`{"city": "Chicago"}`))
		c.Request().Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		setIdentity(c, operatorIdentity())

		err := CreateMasjidHandler(c)
		he, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, he.Code)
	})
}

func TestGetMasjidBySlugHandler(t *testing.T) {
	database := setupTestDB(t)
	masjid := createTestMasjid(t, database, "Masjid Al-Falah")

	t.Run("Public profile by slug", func(t *testing.T) {
		_, c, rec := setupEcho(http.MethodGet, "/api/masjids/"+masjid.Slug, nil)
		c.SetParamNames("slug")
		c.SetParamValues(masjid.Slug)

		require.NoError(t, GetMasjidBySlugHandler(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Masjid Al-Falah", resp["name"])
		// Only the public fields are exposed
		assert.NotContains(t, resp, "contact_email")
	})

	t.Run("Unknown slug", func(t *testing.T) {
		_, c, _ := setupEcho(http.MethodGet, "/api/masjids/nowhere", nil)
		c.SetParamNames("slug")
		c.SetParamValues("nowhere")

		err := GetMasjidBySlugHandler(c)
		he, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusNotFound, he.Code)
	})
}

func TestDeleteMasjidHandler(t *testing.T) {
	database := setupTestDB(t)
	masjid := createTestMasjid(t, database, "Masjid An-Nur")
	other := createTestMasjid(t, database, "Masjid Al-Iman")
	admin := createTestStaff(t, database, masjid.ID, "Hafsa", models.RoleAdmin, "pass123456789")
	createTestApplicant(t, database, masjid.ID, "Zayd")

	t.Run("Admin of another masjid is rejected", func(t *testing.T) {
		_, c, _ := setupEcho(http.MethodDelete, "/api/masjids/"+other.ID, nil)
		c.SetParamNames("id")
		c.SetParamValues(other.ID)
		setIdentity(c, services.StaffIdentity(admin))

		err := DeleteMasjidHandler(c)
		he, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusForbidden, he.Code)
	})

	t.Run("Admin deletes their own masjid with everything scoped to it", func(t *testing.T) {
		_, c, rec := setupEcho(http.MethodDelete, "/api/masjids/"+masjid.ID, nil)
		c.SetParamNames("id")
		c.SetParamValues(masjid.ID)
		setIdentity(c, services.StaffIdentity(admin))

		require.NoError(t, DeleteMasjidHandler(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		var masjids int64
		database.Model(&models.Masjid{}).Where("id = ?", masjid.ID).Count(&masjids)
		assert.Equal(t, int64(0), masjids)

		var applicants int64
		database.Unscoped().Model(&models.Applicant{}).Where("masjid_id = ?", masjid.ID).Count(&applicants)
		assert.Equal(t, int64(0), applicants)

		// The other masjid is untouched
		var remaining models.Masjid
		assert.NoError(t, database.First(&remaining, "id = ?", other.ID).Error)
	})

	t.Run("Unknown masjid", func(t *testing.T) {
		_, c, _ := setupEcho(http.MethodDelete, "/api/masjids/missing", nil)
		c.SetParamNames("id")
		c.SetParamValues("missing")
		setIdentity(c, operatorIdentity())

		err := DeleteMasjidHandler(c)
		he, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusNotFound, he.Code)
	})
}
