package handlers

import (
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"zakat_flow_go/config"
	"zakat_flow_go/db"
	"zakat_flow_go/middleware"
	"zakat_flow_go/models"
	"zakat_flow_go/services"

	"github.com/labstack/echo/v4"
)

// PublicApplyHandler handles the public zakat application form for a masjid
func PublicApplyHandler(c echo.Context) error {
	cfg := c.Get("config").(*config.Config)
	slug := c.Param("slug")

	var masjid models.Masjid
	if err := db.DB.Where("slug = ?", slug).First(&masjid).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Masjid not found")
	}

	input := services.ApplicationInput{
		Name:    c.FormValue("name"),
		Email:   c.FormValue("email"),
		Phone:   c.FormValue("phone"),
		Address: c.FormValue("address"),
		Reason:  c.FormValue("reason"),
	}
	input.MonthlyIncome, _ = strconv.ParseFloat(c.FormValue("monthly_income"), 64)
	input.MonthlyExpenses, _ = strconv.ParseFloat(c.FormValue("monthly_expenses"), 64)
	input.HouseholdSize, _ = strconv.Atoi(c.FormValue("household_size"))
	input.AmountRequested, _ = strconv.ParseFloat(c.FormValue("amount_requested"), 64)

	var documents []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil && form != nil {
		documents = form.File["documents"]
	}

	svc := services.NewCaseService(db.DB, cfg)
	applicant, failed, err := svc.SubmitApplication(&masjid, input, documents)
	if err != nil {
		if err == services.ErrInvalidArgument {
			return echo.NewHTTPError(http.StatusBadRequest, "Name, email and reason are required")
		}
		c.Logger().Errorf("Failed to submit application for %s: %v", slug, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to submit application")
	}

	// Email the applicant a magic link so they can follow their case
	go func() {
		link, err := services.CreateMagicLink(db.DB, applicant.ID, time.Duration(cfg.MagicLinkExpiryMins)*time.Minute)
		if err != nil {
			log.Printf("[CASE] Failed to create magic link for %s: %v", applicant.ID, err)
			return
		}
		email := services.BuildMagicLinkEmail(cfg, applicant.Email, applicant.Name, applicant.CaseID, link.Token)
		if err := services.SendEmail(cfg, email); err != nil {
			log.Printf("[CASE] Failed to send confirmation email for %s: %v", applicant.ID, err)
		}
	}()

	resp := echo.Map{
		"applicant": applicant,
		"caseId":    applicant.CaseID,
	}
	if len(failed) > 0 {
		resp["failedDocuments"] = failed
	}
	return c.JSON(http.StatusCreated, resp)
}

// ListCasesHandler lists a masjid's cases for staff
func ListCasesHandler(c echo.Context) error {
	cfg := c.Get("config").(*config.Config)
	identity := middleware.GetCurrentIdentity(c)

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	status := strings.TrimSpace(c.QueryParam("status"))

	svc := services.NewCaseService(db.DB, cfg)
	cases, total, err := svc.List(*identity, status, page, limit)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"cases": cases,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// GetCaseHandler returns a single case with its documents
func GetCaseHandler(c echo.Context) error {
	cfg := c.Get("config").(*config.Config)
	identity := middleware.GetCurrentIdentity(c)

	svc := services.NewCaseService(db.DB, cfg)
	applicant, err := svc.Get(c.Param("id"), *identity)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, applicant)
}

type statusUpdateRequest struct {
	Status string `json:"status"`
}

// UpdateCaseStatusHandler transitions a case's status (staff only)
func UpdateCaseStatusHandler(c echo.Context) error {
	cfg := c.Get("config").(*config.Config)
	identity := middleware.GetCurrentIdentity(c)

	var req statusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	svc := services.NewCaseService(db.DB, cfg)
	applicant, err := svc.UpdateStatus(c.Param("id"), req.Status, *identity, middleware.GetAuditContext(c))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, applicant)
}

type assignRequest struct {
	AssigneeID string `json:"assigneeId"`
}

// AssignCaseHandler assigns a case to a staff member
func AssignCaseHandler(c echo.Context) error {
	cfg := c.Get("config").(*config.Config)
	identity := middleware.GetCurrentIdentity(c)

	var req assignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	svc := services.NewCaseService(db.DB, cfg)
	applicant, err := svc.Assign(c.Param("id"), req.AssigneeID, *identity)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, applicant)
}

// DownloadDocumentHandler streams a case document to an authorized caller
func DownloadDocumentHandler(c echo.Context) error {
	identity := middleware.GetCurrentIdentity(c)
	docID := c.Param("docId")

	var doc models.CaseDocument
	if err := db.DB.First(&doc, "id = ?", docID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Document not found")
	}

	// Applicants can only fetch documents on their own case
	if identity.IsApplicant {
		if doc.ApplicantID == nil || *doc.ApplicantID != identity.ID {
			return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
		}
	} else if !identity.IsSuperRole() && doc.MasjidID != identity.MasjidID {
		return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
	}

	reader, contentType, err := services.Storage.Get(c.Request().Context(), doc.StorageKey)
	if err != nil {
		c.Logger().Errorf("Failed to fetch document %s: %v", docID, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch document")
	}
	defer reader.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", doc.FileOriginalName))
	return c.Stream(http.StatusOK, contentType, reader)
}
