package services

import "zakat_flow_go/models"

// Identity is the resolved caller of a request: either a staff user or an
// applicant holding a redeemed magic link. Role is always a member of the
// closed enum by the time an Identity exists.
type Identity struct {
	ID            string
	Name          string
	Email         string
	InternalEmail string
	Role          string
	MasjidID      string
	IsApplicant   bool
}

// IsStaff reports whether the identity belongs to a staff user
func (i Identity) IsStaff() bool {
	return !i.IsApplicant
}

// IsSuperRole reports whether the identity may read across masjids.
// An admin without a masjid assignment is the cross-tenant operator account.
func (i Identity) IsSuperRole() bool {
	return i.IsStaff() && i.Role == models.RoleAdmin && i.MasjidID == ""
}

// StaffIdentity builds an Identity from a staff user row
func StaffIdentity(user *models.User) Identity {
	masjidID := ""
	if user.MasjidID != nil {
		masjidID = *user.MasjidID
	}
	return Identity{
		ID:            user.ID,
		Name:          user.Name,
		Email:         user.Email,
		InternalEmail: user.InternalEmail,
		Role:          models.NormalizeStaffRole(user.Role),
		MasjidID:      masjidID,
	}
}

// ApplicantIdentity builds an Identity from an applicant row
func ApplicantIdentity(applicant *models.Applicant) Identity {
	return Identity{
		ID:          applicant.ID,
		Name:        applicant.Name,
		Email:       applicant.Email,
		Role:        models.RoleApplicant,
		MasjidID:    applicant.MasjidID,
		IsApplicant: true,
	}
}
