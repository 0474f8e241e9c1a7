package middleware

import (
	"net/http"
	"strings"

	"zakat_flow_go/config"
	"zakat_flow_go/db"
	"zakat_flow_go/models"
	"zakat_flow_go/services"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

const (
	// ContextKeyIdentity is the context key for the authenticated identity
	ContextKeyIdentity = "identity"
	// ContextKeyMasjid is the context key for the identity's masjid
	ContextKeyMasjid = "masjid"
)

// extractBearerToken pulls the token out of the Authorization header
func extractBearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// resolveIdentity validates a bearer token against both token domains and
// loads the backing record. Staff tokens are tried first.
func resolveIdentity(token string, cfg *config.Config) (*services.Identity, error) {
	if claims, err := services.ParseStaffToken(token, cfg.StaffJWTSecret); err == nil {
		var user models.User
		if err := db.DB.First(&user, "id = ?", claims.UserID).Error; err != nil {
			return nil, echo.NewHTTPError(http.StatusUnauthorized, "Unknown user")
		}
		if !user.IsActive {
			return nil, echo.NewHTTPError(http.StatusUnauthorized, "Account is deactivated")
		}
		identity := services.StaffIdentity(&user)
		return &identity, nil
	}

	if claims, err := services.ParseApplicantToken(token, cfg.MagicLinkSecret); err == nil {
		var applicant models.Applicant
		if err := db.DB.First(&applicant, "id = ?", claims.ApplicantID).Error; err != nil {
			return nil, echo.NewHTTPError(http.StatusUnauthorized, "Unknown applicant")
		}
		identity := services.ApplicantIdentity(&applicant)
		return &identity, nil
	}

	return nil, echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
}

// RequireAuth is middleware that requires a valid bearer token (staff or
// applicant)
func RequireAuth(cfg *config.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extractBearerToken(c)
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing authorization token")
			}

			identity, err := resolveIdentity(token, cfg)
			if err != nil {
				return err
			}

			c.Set(ContextKeyIdentity, identity)
			return next(c)
		}
	}
}

// OptionalAuth resolves an identity when a bearer token is present but lets
// anonymous requests through. Used for endpoints with public variants, like
// shared profile links.
func OptionalAuth(cfg *config.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extractBearerToken(c)
			if token != "" {
				if identity, err := resolveIdentity(token, cfg); err == nil {
					c.Set(ContextKeyIdentity, identity)
				}
			}
			return next(c)
		}
	}
}

// RequireStaff is middleware that rejects applicant identities
func RequireStaff() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity := GetCurrentIdentity(c)
			if identity == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
			}
			if !identity.IsStaff() {
				return echo.NewHTTPError(http.StatusForbidden, "Staff access required")
			}
			return next(c)
		}
	}
}

// RequireRole is middleware that requires specific staff roles
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity := GetCurrentIdentity(c)
			if identity == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
			}
			if !identity.IsStaff() {
				return echo.NewHTTPError(http.StatusForbidden, "Staff access required")
			}

			hasRole := false
			for _, role := range roles {
				if identity.Role == role {
					hasRole = true
					break
				}
			}

			if !hasRole {
				return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
			}

			return next(c)
		}
	}
}

// GetCurrentIdentity retrieves the authenticated identity from context
func GetCurrentIdentity(c echo.Context) *services.Identity {
	identity, ok := c.Get(ContextKeyIdentity).(*services.Identity)
	if !ok {
		return nil
	}
	return identity
}

// GetMasjidScopedQuery returns a GORM query scoped to the identity's masjid.
// Super admins see everything.
func GetMasjidScopedQuery(c echo.Context, db *gorm.DB) *gorm.DB {
	identity := GetCurrentIdentity(c)
	if identity == nil {
		// Return query that matches nothing
		return db.Where("1 = 0")
	}
	if identity.IsSuperRole() {
		return db
	}
	return db.Where("masjid_id = ?", identity.MasjidID)
}
