package handlers

import (
	"net/http"
	"strings"
	"time"

	"zakat_flow_go/config"
	"zakat_flow_go/db"
	"zakat_flow_go/middleware"
	"zakat_flow_go/models"
	"zakat_flow_go/services"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginHandler authenticates a staff member and issues a bearer token
func LoginHandler(c echo.Context) error {
	cfg := c.Get("config").(*config.Config)

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Email and password are required")
	}

	var user models.User
	if err := db.DB.Where("email = ?", email).First(&user).Error; err != nil {
		// Same response as a bad password so accounts cannot be enumerated
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}

	if !services.CheckPassword(req.Password, user.Password) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}

	if !user.IsActive {
		return echo.NewHTTPError(http.StatusUnauthorized, "Account is deactivated")
	}

	token, err := services.GenerateStaffToken(&user, cfg.StaffJWTSecret, time.Duration(cfg.StaffTokenHours)*time.Hour)
	if err != nil {
		c.Logger().Errorf("Failed to generate token for %s: %v", user.ID, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token")
	}

	now := time.Now()
	if err := db.DB.Model(&user).Update("last_login_at", &now).Error; err != nil {
		c.Logger().Warnf("Failed to record login time for %s: %v", user.ID, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"token": token,
		"user":  user,
	})
}

// MeHandler returns the authenticated identity
func MeHandler(c echo.Context) error {
	identity := middleware.GetCurrentIdentity(c)
	if identity == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
	}
	return c.JSON(http.StatusOK, identity)
}

type magicLinkRequest struct {
	CaseID string `json:"caseId"`
	Email  string `json:"email"`
}

// RequestMagicLinkHandler emails a one-time access link after verifying the
// applicant's case number and email pair. The response is identical whether
// or not the pair matched, so case numbers cannot be probed.
func RequestMagicLinkHandler(c echo.Context) error {
	cfg := c.Get("config").(*config.Config)

	var req magicLinkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	caseID := strings.TrimSpace(req.CaseID)
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if caseID == "" || email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Case number and email are required")
	}

	neutral := echo.Map{"message": "If the case exists, an access link has been sent"}

	var applicant models.Applicant
	err := db.DB.Where("case_id = ?", caseID).First(&applicant).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			c.Logger().Errorf("Magic link lookup failed for %s: %v", caseID, err)
		}
		return c.JSON(http.StatusOK, neutral)
	}

	if !strings.EqualFold(applicant.Email, email) {
		return c.JSON(http.StatusOK, neutral)
	}

	link, err := services.CreateMagicLink(db.DB, applicant.ID, time.Duration(cfg.MagicLinkExpiryMins)*time.Minute)
	if err != nil {
		c.Logger().Errorf("Failed to create magic link for %s: %v", applicant.ID, err)
		return c.JSON(http.StatusOK, neutral)
	}

	go func() {
		emailMsg := services.BuildMagicLinkEmail(cfg, applicant.Email, applicant.Name, applicant.CaseID, link.Token)
		if err := services.SendEmail(cfg, emailMsg); err != nil {
			// Logged only; the caller already got a neutral response
			c.Logger().Errorf("Failed to send magic link email for %s: %v", applicant.ID, err)
		}
	}()

	return c.JSON(http.StatusOK, neutral)
}

// VerifyMagicLinkHandler exchanges a one-time emailed token for an applicant
// bearer token
func VerifyMagicLinkHandler(c echo.Context) error {
	cfg := c.Get("config").(*config.Config)

	token := strings.TrimSpace(c.QueryParam("token"))
	if token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing token")
	}

	applicant, err := services.RedeemMagicLink(db.DB, token)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired access link")
	}

	bearer, err := services.GenerateApplicantToken(applicant, cfg.MagicLinkSecret)
	if err != nil {
		c.Logger().Errorf("Failed to generate applicant token for %s: %v", applicant.ID, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"token":     bearer,
		"applicant": applicant,
	})
}
