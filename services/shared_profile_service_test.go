package services

import (
	"testing"

	"zakat_flow_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShareProfile(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := NewSharedProfileService(db)

	from := createTestMasjid(t, db, "Masjid A")
	to := createTestMasjid(t, db, "Masjid B")
	admin := createTestStaff(t, db, from.ID, "Amira", models.RoleAdmin)
	applicant := createTestApplicant(t, db, from.ID, "Yusuf")

	share, err := svc.Share(applicant.CaseID, to.ID, "relocation case", StaffIdentity(admin))
	require.NoError(t, err)
	assert.Equal(t, applicant.ID, share.ApplicantID)
	assert.Equal(t, from.ID, share.FromMasjidID)
	assert.Equal(t, to.ID, share.ToMasjidID)
	assert.Equal(t, models.SharePermissionReadOnly, share.Permissions)
	assert.True(t, share.IsActive)

	t.Run("duplicate active share conflicts", func(t *testing.T) {
		_, err := svc.Share(applicant.CaseID, to.ID, "", StaffIdentity(admin))
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("revoke then share again is allowed", func(t *testing.T) {
		revoked, err := svc.Revoke(share.ID, StaffIdentity(admin))
		require.NoError(t, err)
		assert.False(t, revoked.IsActive)

		again, err := svc.Share(applicant.CaseID, to.ID, "second attempt", StaffIdentity(admin))
		require.NoError(t, err)
		assert.NotEqual(t, share.ID, again.ID)
	})

	t.Run("sharing to own masjid is rejected", func(t *testing.T) {
		_, err := svc.Share(applicant.CaseID, from.ID, "", StaffIdentity(admin))
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("unknown target masjid", func(t *testing.T) {
		_, err := svc.Share(applicant.CaseID, "00000000-0000-0000-0000-000000000000", "", StaffIdentity(admin))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("staff of a third masjid cannot share the case", func(t *testing.T) {
		third := createTestMasjid(t, db, "Masjid C")
		outsider := createTestStaff(t, db, third.ID, "Omar", models.RoleAdmin)
		_, err := svc.Share(applicant.CaseID, to.ID, "", StaffIdentity(outsider))
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("applicants cannot share", func(t *testing.T) {
		_, err := svc.Share(applicant.CaseID, to.ID, "", ApplicantIdentity(applicant))
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestRevokeShareAuthorization(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := NewSharedProfileService(db)

	from := createTestMasjid(t, db, "Masjid A")
	to := createTestMasjid(t, db, "Masjid B")
	admin := createTestStaff(t, db, from.ID, "Amira", models.RoleAdmin)
	applicant := createTestApplicant(t, db, from.ID, "Yusuf")

	share, err := svc.Share(applicant.CaseID, to.ID, "", StaffIdentity(admin))
	require.NoError(t, err)

	t.Run("caseworker of the sharing masjid cannot revoke", func(t *testing.T) {
		caseworker := createTestStaff(t, db, from.ID, "Bilal", models.RoleCaseworker)
		_, err := svc.Revoke(share.ID, StaffIdentity(caseworker))
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("admin of the receiving masjid cannot revoke", func(t *testing.T) {
		receiver := createTestStaff(t, db, to.ID, "Dina", models.RoleAdmin)
		_, err := svc.Revoke(share.ID, StaffIdentity(receiver))
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("unknown share", func(t *testing.T) {
		_, err := svc.Revoke("no-such-share", StaffIdentity(admin))
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestViewSharedProfile(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := NewSharedProfileService(db)

	from := createTestMasjid(t, db, "Masjid A")
	to := createTestMasjid(t, db, "Masjid B")
	admin := createTestStaff(t, db, from.ID, "Amira", models.RoleAdmin)
	applicant := createTestApplicant(t, db, from.ID, "Yusuf")

	share, err := svc.Share(applicant.CaseID, to.ID, "", StaffIdentity(admin))
	require.NoError(t, err)

	t.Run("anonymous view by opaque id never marks the share", func(t *testing.T) {
		got, err := svc.View(share.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, applicant.Name, got.Applicant.Name)
		assert.Nil(t, got.ViewedAt)
		assert.Nil(t, got.ViewedBy)
	})

	t.Run("receiving staff view is recorded", func(t *testing.T) {
		receiver := createTestStaff(t, db, to.ID, "Dina", models.RoleCaseworker)
		identity := StaffIdentity(receiver)
		got, err := svc.View(share.ID, &identity)
		require.NoError(t, err)
		require.NotNil(t, got.ViewedAt)
		require.NotNil(t, got.ViewedBy)
		assert.Equal(t, receiver.ID, *got.ViewedBy)
	})

	t.Run("sharing staff view is allowed but not recorded as receipt", func(t *testing.T) {
		var fresh models.SharedProfile
		require.NoError(t, db.Where("id = ?", share.ID).First(&fresh).Error)
		before := fresh.ViewedBy

		identity := StaffIdentity(admin)
		_, err := svc.View(share.ID, &identity)
		require.NoError(t, err)

		require.NoError(t, db.Where("id = ?", share.ID).First(&fresh).Error)
		assert.Equal(t, before, fresh.ViewedBy)
	})

	t.Run("staff of an unrelated masjid is rejected", func(t *testing.T) {
		third := createTestMasjid(t, db, "Masjid C")
		outsider := createTestStaff(t, db, third.ID, "Omar", models.RoleCaseworker)
		identity := StaffIdentity(outsider)
		_, err := svc.View(share.ID, &identity)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("revoked share reads as missing", func(t *testing.T) {
		_, err := svc.Revoke(share.ID, StaffIdentity(admin))
		require.NoError(t, err)
		_, err = svc.View(share.ID, nil)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestListSharesForMasjid(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := NewSharedProfileService(db)

	from := createTestMasjid(t, db, "Masjid A")
	to := createTestMasjid(t, db, "Masjid B")
	admin := createTestStaff(t, db, from.ID, "Amira", models.RoleAdmin)
	applicant := createTestApplicant(t, db, from.ID, "Yusuf")

	_, err := svc.Share(applicant.CaseID, to.ID, "", StaffIdentity(admin))
	require.NoError(t, err)

	t.Run("sender and receiver both see the share", func(t *testing.T) {
		sent, err := svc.ListForMasjid(StaffIdentity(admin))
		require.NoError(t, err)
		assert.Len(t, sent, 1)

		receiver := createTestStaff(t, db, to.ID, "Dina", models.RoleCaseworker)
		received, err := svc.ListForMasjid(StaffIdentity(receiver))
		require.NoError(t, err)
		assert.Len(t, received, 1)
	})

	t.Run("an unrelated masjid sees nothing", func(t *testing.T) {
		third := createTestMasjid(t, db, "Masjid C")
		outsider := createTestStaff(t, db, third.ID, "Omar", models.RoleAdmin)
		list, err := svc.ListForMasjid(StaffIdentity(outsider))
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}
