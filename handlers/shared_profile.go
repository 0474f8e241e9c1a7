package handlers

import (
	"net/http"

	"zakat_flow_go/db"
	"zakat_flow_go/middleware"
	"zakat_flow_go/models"
	"zakat_flow_go/services"

	"github.com/labstack/echo/v4"
)

type shareRequest struct {
	CaseID     string `json:"caseId"`
	ToMasjidID string `json:"toMasjidId"`
	Note       string `json:"note"`
}

// ShareProfileHandler grants another masjid read access to a case profile
func ShareProfileHandler(c echo.Context) error {
	identity := middleware.GetCurrentIdentity(c)

	var req shareRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.CaseID == "" || req.ToMasjidID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "caseId and toMasjidId are required")
	}

	svc := services.NewSharedProfileService(db.DB)
	share, err := svc.Share(req.CaseID, req.ToMasjidID, req.Note, *identity)
	if err != nil {
		return httpError(err)
	}

	// The share itself is the audit-worthy event
	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c),
		models.AuditActionShare, "shared_profile", share.ID, req.CaseID,
		"Shared applicant profile with another masjid", nil, share)

	return c.JSON(http.StatusCreated, echo.Map{"share": share})
}

// RevokeShareHandler deactivates a share grant
func RevokeShareHandler(c echo.Context) error {
	identity := middleware.GetCurrentIdentity(c)

	svc := services.NewSharedProfileService(db.DB)
	share, err := svc.Revoke(c.Param("id"), *identity)
	if err != nil {
		return httpError(err)
	}

	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c),
		models.AuditActionRevoke, "shared_profile", share.ID, share.ApplicantID,
		"Revoked shared applicant profile", nil, share)

	return c.JSON(http.StatusOK, echo.Map{"share": share})
}

// ViewSharedProfileHandler reads a shared profile. Works both for
// authenticated staff of either masjid and anonymously via the opaque link id.
func ViewSharedProfileHandler(c echo.Context) error {
	identity := middleware.GetCurrentIdentity(c)

	svc := services.NewSharedProfileService(db.DB)
	share, err := svc.View(c.Param("id"), identity)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"share": share})
}

// ListSharesHandler lists share grants involving the caller's masjid
func ListSharesHandler(c echo.Context) error {
	identity := middleware.GetCurrentIdentity(c)

	svc := services.NewSharedProfileService(db.DB)
	shares, err := svc.ListForMasjid(*identity)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"shares": shares})
}
