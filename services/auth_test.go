package services

import (
	"testing"
	"time"

	"zakat_flow_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, CheckPassword("correct horse battery staple", hash))
	assert.False(t, CheckPassword("wrong password", hash))
	assert.False(t, CheckPassword("", hash))
}

func TestStaffToken(t *testing.T) {
	masjidID := "masjid-1"
	user := &models.User{
		ID:       "user-1",
		MasjidID: &masjidID,
		Role:     models.RoleApprover,
	}

	token, err := GenerateStaffToken(user, "test-secret-for-staff-tokens-0123456789", time.Hour)
	require.NoError(t, err)

	claims, err := ParseStaffToken(token, "test-secret-for-staff-tokens-0123456789")
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "masjid-1", claims.MasjidID)
	assert.Equal(t, models.RoleApprover, claims.Role)

	t.Run("wrong secret is rejected", func(t *testing.T) {
		_, err := ParseStaffToken(token, "a-different-secret-entirely-0123456789")
		assert.Error(t, err)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		expired, err := GenerateStaffToken(user, "test-secret-for-staff-tokens-0123456789", -time.Minute)
		require.NoError(t, err)
		_, err = ParseStaffToken(expired, "test-secret-for-staff-tokens-0123456789")
		assert.Error(t, err)
	})

	t.Run("unknown roles are coerced in the claims", func(t *testing.T) {
		odd := &models.User{ID: "user-2", MasjidID: &masjidID, Role: "superuser"}
		token, err := GenerateStaffToken(odd, "test-secret-for-staff-tokens-0123456789", time.Hour)
		require.NoError(t, err)
		claims, err := ParseStaffToken(token, "test-secret-for-staff-tokens-0123456789")
		require.NoError(t, err)
		assert.Equal(t, models.RoleCaseworker, claims.Role)
	})

	t.Run("applicant secret does not verify a staff token", func(t *testing.T) {
		_, err := ParseApplicantToken(token, "a-different-secret-entirely-0123456789")
		assert.Error(t, err)
	})
}

func TestApplicantToken(t *testing.T) {
	applicant := &models.Applicant{
		ID:       "applicant-1",
		CaseID:   "ZKT-2026-000001",
		MasjidID: "masjid-1",
	}

	token, err := GenerateApplicantToken(applicant, "test-secret-for-magic-links-0123456789")
	require.NoError(t, err)

	claims, err := ParseApplicantToken(token, "test-secret-for-magic-links-0123456789")
	require.NoError(t, err)
	assert.Equal(t, "applicant-1", claims.ApplicantID)
	assert.Equal(t, "ZKT-2026-000001", claims.CaseID)
	assert.Equal(t, "masjid-1", claims.MasjidID)
}

func TestMagicLinkLifecycle(t *testing.T) {
	db := setupServiceTestDB(t)

	masjid := createTestMasjid(t, db, "Masjid Al-Noor")
	applicant := createTestApplicant(t, db, masjid.ID, "Yusuf")

	link, err := CreateMagicLink(db, applicant.ID, 15*time.Minute)
	require.NoError(t, err)
	assert.Len(t, link.Token, 64)

	redeemed, err := RedeemMagicLink(db, link.Token)
	require.NoError(t, err)
	assert.Equal(t, applicant.ID, redeemed.ID)

	t.Run("a token redeems exactly once", func(t *testing.T) {
		_, err := RedeemMagicLink(db, link.Token)
		assert.Error(t, err)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := RedeemMagicLink(db, "deadbeef")
		assert.Error(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		stale, err := CreateMagicLink(db, applicant.ID, -time.Minute)
		require.NoError(t, err)
		_, err = RedeemMagicLink(db, stale.Token)
		assert.Error(t, err)
	})

	t.Run("cleanup removes expired rows", func(t *testing.T) {
		_, err := CreateMagicLink(db, applicant.ID, -time.Hour)
		require.NoError(t, err)
		require.NoError(t, CleanupExpiredMagicLinks(db))

		var count int64
		db.Model(&models.MagicLinkToken{}).
			Where("applicant_id = ? AND expires_at < ?", applicant.ID, time.Now()).
			Count(&count)
		assert.Equal(t, int64(0), count)
	})
}
