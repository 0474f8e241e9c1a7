package handlers

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"zakat_flow_go/config"
	"zakat_flow_go/db"
	"zakat_flow_go/middleware"
	"zakat_flow_go/models"
	"zakat_flow_go/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	// Use unique shared memory name to isolate tests while allowing shared cache for async tasks
	dbName := "mem_" + uuid.New().String()
	testDB, err := gorm.Open(sqlite.Open("file:"+dbName+"?mode=memory&cache=shared&_busy_timeout=5000"), &gorm.Config{})
	assert.NoError(t, err)

	// Initialize Storage for tests if not already set
	if services.Storage == nil {
		services.Storage = services.NewLocalStorage(t.TempDir())
	}

	err = testDB.AutoMigrate(
		&models.Masjid{},
		&models.User{},
		&models.Applicant{},
		&models.CaseDocument{},
		&models.Conversation{},
		&models.Participant{},
		&models.Message{},
		&models.MessageRead{},
		&models.SharedProfile{},
		&models.Notification{},
		&models.AuditLog{},
		&models.MagicLinkToken{},
	)
	assert.NoError(t, err)

	// Set global DB
	db.DB = testDB

	return testDB
}

func testConfig() *config.Config {
	return &config.Config{
		Environment:         "test",
		EmailTestMode:       true,
		StaffJWTSecret:      "test-staff-secret-test-staff-secret",
		StaffTokenHours:     1,
		MagicLinkSecret:     "test-magic-secret-test-magic-secret",
		MagicLinkExpiryMins: 60,
		AppURL:              "http://localhost:8080",
	}
}

func setupEcho(method, path string, body io.Reader) (*echo.Echo, echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, body)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	// Add config to context
	c.Set("config", testConfig())

	return e, c, rec
}

func setIdentity(c echo.Context, identity services.Identity) {
	c.Set(middleware.ContextKeyIdentity, &identity)
}

func createTestMasjid(t *testing.T, database *gorm.DB, name string) *models.Masjid {
	t.Helper()
	masjid := &models.Masjid{Name: name, Country: "US", Timezone: "America/Chicago"}
	assert.NoError(t, database.Create(masjid).Error)
	return masjid
}

func createTestStaff(t *testing.T, database *gorm.DB, masjidID, name, role, password string) *models.User {
	t.Helper()
	hash, err := services.HashPassword(password)
	assert.NoError(t, err)
	user := &models.User{
		Name:     name,
		Email:    strings.ToLower(name) + "-" + uuid.New().String()[:8] + "@example.org",
		Password: hash,
		MasjidID: &masjidID,
		Role:     role,
		IsActive: true,
	}
	assert.NoError(t, database.Create(user).Error)
	return user
}

func createTestApplicant(t *testing.T, database *gorm.DB, masjidID, name string) *models.Applicant {
	t.Helper()
	applicant := &models.Applicant{
		MasjidID:        masjidID,
		Name:            name,
		Email:           name + "-" + uuid.New().String()[:8] + "@example.org",
		Reason:          "Assistance with rent",
		AmountRequested: 500,
		Status:          models.StatusPending,
	}
	assert.NoError(t, database.Create(applicant).Error)
	return applicant
}
