package services

import (
	"testing"
	"time"

	"zakat_flow_go/config"
	"zakat_flow_go/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Unique shared memory name isolates tests while keeping the database
	// visible to goroutines using the same connection pool
	dbName := "mem_" + uuid.New().String()
	db, err := gorm.Open(sqlite.Open("file:"+dbName+"?mode=memory&cache=shared&_busy_timeout=5000"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
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
	require.NoError(t, err)

	if Storage == nil {
		Storage = NewLocalStorage(t.TempDir())
	}

	return db
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

func createTestMasjid(t *testing.T, db *gorm.DB, name string) *models.Masjid {
	t.Helper()
	masjid := &models.Masjid{Name: name, Country: "US", Timezone: "America/Chicago"}
	require.NoError(t, db.Create(masjid).Error)
	return masjid
}

func createTestStaff(t *testing.T, db *gorm.DB, masjidID, name, role string) *models.User {
	t.Helper()
	user := &models.User{
		Name:     name,
		Email:    name + "-" + uuid.New().String()[:8] + "@example.org",
		Password: "not-a-real-hash",
		MasjidID: &masjidID,
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestApplicant(t *testing.T, db *gorm.DB, masjidID, name string) *models.Applicant {
	t.Helper()
	applicant := &models.Applicant{
		MasjidID:        masjidID,
		Name:            name,
		Email:           name + "-" + uuid.New().String()[:8] + "@example.org",
		Reason:          "Assistance with rent",
		AmountRequested: 500,
		Status:          models.StatusPending,
	}
	require.NoError(t, db.Create(applicant).Error)
	return applicant
}

func waitForAsync() {
	// Notification fan-out runs in goroutines; a short pause lets them land
	time.Sleep(50 * time.Millisecond)
}
