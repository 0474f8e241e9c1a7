package handlers

import (
	"fmt"
	"net/http"

	"zakat_flow_go/config"
	"zakat_flow_go/db"
	"zakat_flow_go/middleware"
	"zakat_flow_go/models"
	"zakat_flow_go/services"

	"github.com/labstack/echo/v4"
)

// ExportCasesHandler streams an XLSX export of the masjid's cases
func ExportCasesHandler(c echo.Context) error {
	identity := middleware.GetCurrentIdentity(c)

	buf, err := services.GenerateCaseExport(db.DB, identity.MasjidID, c.QueryParam("status"))
	if err != nil {
		if err == services.ErrInvalidArgument {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid status filter")
		}
		c.Logger().Errorf("Failed to export cases for %s: %v", identity.MasjidID, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate export")
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="cases.xlsx"`)
	return c.Blob(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		buf.Bytes())
}

// CaseSummaryPDFHandler renders a printable case summary as PDF
func CaseSummaryPDFHandler(c echo.Context) error {
	cfg := c.Get("config").(*config.Config)
	identity := middleware.GetCurrentIdentity(c)

	svc := services.NewCaseService(db.DB, cfg)
	applicant, err := svc.Get(c.Param("id"), *identity)
	if err != nil {
		return httpError(err)
	}

	var masjid models.Masjid
	if err := db.DB.First(&masjid, "id = ?", applicant.MasjidID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Masjid not found")
	}

	html := services.BuildCaseSummaryHTML(&masjid, applicant)
	pdf, err := services.GeneratePDF(html, services.DefaultPDFOptions())
	if err != nil {
		c.Logger().Errorf("Failed to render summary PDF for %s: %v", applicant.CaseID, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate PDF")
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="%s.pdf"`, applicant.CaseID))
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}
