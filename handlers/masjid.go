package handlers

import (
	"net/http"
	"strings"

	"zakat_flow_go/db"
	"zakat_flow_go/middleware"
	"zakat_flow_go/models"
	"zakat_flow_go/services"

	"github.com/labstack/echo/v4"
)

type createMasjidRequest struct {
	Name         string `json:"name"`
	Country      string `json:"country"`
	Timezone     string `json:"timezone"`
	Address      string `json:"address"`
	City         string `json:"city"`
	Phone        string `json:"phone"`
	ContactEmail string `json:"contactEmail"`
}

// CreateMasjidHandler registers a new masjid (cross-tenant operator only)
func CreateMasjidHandler(c echo.Context) error {
	identity := middleware.GetCurrentIdentity(c)
	if !identity.IsSuperRole() {
		return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
	}

	var req createMasjidRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Name is required")
	}

	masjid := models.Masjid{
		Name:         req.Name,
		Country:      strings.TrimSpace(req.Country),
		Timezone:     strings.TrimSpace(req.Timezone),
		Address:      strings.TrimSpace(req.Address),
		City:         strings.TrimSpace(req.City),
		Phone:        strings.TrimSpace(req.Phone),
		ContactEmail: strings.TrimSpace(strings.ToLower(req.ContactEmail)),
	}

	if err := db.DB.Create(&masjid).Error; err != nil {
		c.Logger().Errorf("Failed to create masjid: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create masjid")
	}

	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c),
		models.AuditActionCreate, "masjid", masjid.ID, masjid.Name,
		"Registered masjid", nil, masjid)

	return c.JSON(http.StatusCreated, masjid)
}

// GetMasjidBySlugHandler returns the public profile of a masjid, used by the
// application form
func GetMasjidBySlugHandler(c echo.Context) error {
	var masjid models.Masjid
	if err := db.DB.Where("slug = ?", c.Param("slug")).First(&masjid).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Masjid not found")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"id":      masjid.ID,
		"name":    masjid.Name,
		"slug":    masjid.Slug,
		"city":    masjid.City,
		"country": masjid.Country,
	})
}

// DeleteMasjidHandler removes a masjid and everything scoped to it:
// cases, conversations, messages, notifications, shares. Cross-tenant
// operator only.
func DeleteMasjidHandler(c echo.Context) error {
	identity := middleware.GetCurrentIdentity(c)

	var masjid models.Masjid
	if err := db.DB.First(&masjid, "id = ?", c.Param("id")).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Masjid not found")
	}

	// An admin may delete their own masjid; only the cross-tenant operator may
	// delete any other
	if !identity.IsSuperRole() && identity.MasjidID != masjid.ID {
		return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
	}

	if err := services.CascadeDeleteMasjid(db.DB, masjid.ID); err != nil {
		c.Logger().Errorf("Failed to delete masjid %s: %v", masjid.ID, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete masjid")
	}

	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c),
		models.AuditActionDelete, "masjid", masjid.ID, masjid.Name,
		"Deleted masjid and all scoped data", masjid, nil)

	return c.JSON(http.StatusOK, echo.Map{"message": "Masjid deleted"})
}
