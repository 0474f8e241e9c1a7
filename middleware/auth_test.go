package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"zakat_flow_go/config"
	"zakat_flow_go/db"
	"zakat_flow_go/models"
	"zakat_flow_go/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupMiddlewareTest(t *testing.T) (*gorm.DB, *config.Config) {
	t.Helper()
	dbName := "mem_" + uuid.New().String()
	testDB, err := gorm.Open(sqlite.Open("file:"+dbName+"?mode=memory&cache=shared&_busy_timeout=5000"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, testDB.AutoMigrate(&models.Masjid{}, &models.User{}, &models.Applicant{}))
	db.DB = testDB

	cfg := &config.Config{
		StaffJWTSecret:  "test-staff-secret-test-staff-secret",
		StaffTokenHours: 1,
		MagicLinkSecret: "test-magic-secret-test-magic-secret",
	}
	return testDB, cfg
}

func invoke(mw echo.MiddlewareFunc, authHeader string) (echo.Context, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set(echo.HeaderAuthorization, authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	return c, handler(c)
}

func TestRequireAuth(t *testing.T) {
	testDB, cfg := setupMiddlewareTest(t)

	masjid := &models.Masjid{Name: "Masjid Al-Noor", Country: "US", Timezone: "America/Chicago"}
	require.NoError(t, testDB.Create(masjid).Error)
	user := &models.User{
		Name: "Amira", Email: "amira@example.org", Password: "x",
		MasjidID: &masjid.ID, Role: models.RoleCaseworker, IsActive: true,
	}
	require.NoError(t, testDB.Create(user).Error)

	token, err := services.GenerateStaffToken(user, cfg.StaffJWTSecret, time.Hour)
	require.NoError(t, err)

	t.Run("valid staff token resolves an identity", func(t *testing.T) {
		c, err := invoke(RequireAuth(cfg), "Bearer "+token)
		require.NoError(t, err)

		identity := GetCurrentIdentity(c)
		require.NotNil(t, identity)
		assert.Equal(t, user.ID, identity.ID)
		assert.True(t, identity.IsStaff())
	})

	t.Run("missing header", func(t *testing.T) {
		_, err := invoke(RequireAuth(cfg), "")
		he, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusUnauthorized, he.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		_, err := invoke(RequireAuth(cfg), "Token "+token)
		he, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusUnauthorized, he.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := invoke(RequireAuth(cfg), "Bearer not-a-jwt")
		he, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusUnauthorized, he.Code)
	})

	t.Run("deactivated user is rejected even with a valid token", func(t *testing.T) {
		testDB.Model(user).Update("is_active", false)
		defer testDB.Model(user).Update("is_active", true)

		_, err := invoke(RequireAuth(cfg), "Bearer "+token)
		he, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusUnauthorized, he.Code)
	})

	t.Run("applicant token resolves an applicant identity", func(t *testing.T) {
		applicant := &models.Applicant{
			MasjidID: masjid.ID, Name: "Yusuf", Email: "yusuf@example.org",
			Reason: "rent", Status: models.StatusPending,
		}
		require.NoError(t, testDB.Create(applicant).Error)

		token, err := services.GenerateApplicantToken(applicant, cfg.MagicLinkSecret)
		require.NoError(t, err)

		c, err := invoke(RequireAuth(cfg), "Bearer "+token)
		require.NoError(t, err)

		identity := GetCurrentIdentity(c)
		require.NotNil(t, identity)
		assert.True(t, identity.IsApplicant)
		assert.Equal(t, applicant.ID, identity.ID)
	})
}

func TestRequireAuthAfterMasjidDeletion(t *testing.T) {
	testDB, cfg := setupMiddlewareTest(t)
	require.NoError(t, testDB.AutoMigrate(
		&models.CaseDocument{}, &models.Conversation{}, &models.Participant{},
		&models.Message{}, &models.MessageRead{}, &models.SharedProfile{},
		&models.Notification{},
	))

	masjid := &models.Masjid{Name: "Masjid An-Nur", Country: "US", Timezone: "America/Chicago"}
	require.NoError(t, testDB.Create(masjid).Error)
	other := &models.Masjid{Name: "Masjid Al-Iman", Country: "US", Timezone: "America/Chicago"}
	require.NoError(t, testDB.Create(other).Error)
	require.NoError(t, testDB.Create(&models.Conversation{
		MasjidID: other.ID, Title: "General", CreatedBy: "someone",
	}).Error)

	admin := &models.User{
		Name: "Bilal", Email: "bilal@example.org", Password: "x",
		MasjidID: &masjid.ID, Role: models.RoleAdmin, IsActive: true,
	}
	require.NoError(t, testDB.Create(admin).Error)

	token, err := services.GenerateStaffToken(admin, cfg.StaffJWTSecret, time.Hour)
	require.NoError(t, err)

	c, err := invoke(RequireAuth(cfg), "Bearer "+token)
	require.NoError(t, err)
	require.NotNil(t, GetCurrentIdentity(c))

	require.NoError(t, services.CascadeDeleteMasjid(testDB, masjid.ID))

	// The other masjid's data survives, but the deleted masjid's admin can no
	// longer authenticate, so nothing reads as the cross-tenant operator
	var convs int64
	testDB.Model(&models.Conversation{}).Where("masjid_id = ?", other.ID).Count(&convs)
	assert.Equal(t, int64(1), convs)

	_, err = invoke(RequireAuth(cfg), "Bearer "+token)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestOptionalAuth(t *testing.T) {
	_, cfg := setupMiddlewareTest(t)

	t.Run("anonymous request passes with no identity", func(t *testing.T) {
		c, err := invoke(OptionalAuth(cfg), "")
		require.NoError(t, err)
		assert.Nil(t, GetCurrentIdentity(c))
	})

	t.Run("bad token is ignored, not fatal", func(t *testing.T) {
		c, err := invoke(OptionalAuth(cfg), "Bearer junk")
		require.NoError(t, err)
		assert.Nil(t, GetCurrentIdentity(c))
	})
}

func TestRequireRole(t *testing.T) {
	run := func(identity *services.Identity, roles ...string) error {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		c := e.NewContext(req, httptest.NewRecorder())
		if identity != nil {
			c.Set(ContextKeyIdentity, identity)
		}
		handler := RequireRole(roles...)(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
		return handler(c)
	}

	t.Run("matching role passes", func(t *testing.T) {
		err := run(&services.Identity{ID: "u1", Role: models.RoleApprover}, models.RoleAdmin, models.RoleApprover)
		assert.NoError(t, err)
	})

	t.Run("other staff role is forbidden", func(t *testing.T) {
		err := run(&services.Identity{ID: "u1", Role: models.RoleCaseworker}, models.RoleAdmin)
		he, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusForbidden, he.Code)
	})

	t.Run("applicants are forbidden regardless of role list", func(t *testing.T) {
		err := run(&services.Identity{ID: "a1", Role: models.RoleApplicant, IsApplicant: true}, models.RoleAdmin)
		he, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusForbidden, he.Code)
	})

	t.Run("no identity is unauthorized", func(t *testing.T) {
		err := run(nil, models.RoleAdmin)
		he, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusUnauthorized, he.Code)
	})
}

func TestGetMasjidScopedQuery(t *testing.T) {
	testDB, _ := setupMiddlewareTest(t)

	m1 := &models.Masjid{Name: "Masjid A", Country: "US", Timezone: "America/Chicago"}
	m2 := &models.Masjid{Name: "Masjid B", Country: "US", Timezone: "America/Chicago"}
	require.NoError(t, testDB.Create(m1).Error)
	require.NoError(t, testDB.Create(m2).Error)
	for _, m := range []*models.Masjid{m1, m2} {
		applicant := &models.Applicant{MasjidID: m.ID, Name: "A", Email: uuid.New().String() + "@example.org", Reason: "r", Status: models.StatusPending}
		require.NoError(t, testDB.Create(applicant).Error)
	}

	newCtx := func(identity *services.Identity) echo.Context {
		e := echo.New()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		if identity != nil {
			c.Set(ContextKeyIdentity, identity)
		}
		return c
	}

	count := func(c echo.Context) int64 {
		var n int64
		GetMasjidScopedQuery(c, testDB.Model(&models.Applicant{})).Count(&n)
		return n
	}

	t.Run("staff see their masjid only", func(t *testing.T) {
		c := newCtx(&services.Identity{ID: "u1", Role: models.RoleAdmin, MasjidID: m1.ID})
		assert.Equal(t, int64(1), count(c))
	})

	t.Run("cross-tenant operator sees all", func(t *testing.T) {
		c := newCtx(&services.Identity{ID: "u2", Role: models.RoleAdmin})
		assert.Equal(t, int64(2), count(c))
	})

	t.Run("no identity matches nothing", func(t *testing.T) {
		assert.Equal(t, int64(0), count(newCtx(nil)))
	})
}
