package handlers

import (
	"net/http"
	"strings"

	"zakat_flow_go/db"
	"zakat_flow_go/middleware"
	"zakat_flow_go/models"
	"zakat_flow_go/services"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type createUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// CreateUserHandler creates a staff member in the admin's masjid
func CreateUserHandler(c echo.Context) error {
	identity := middleware.GetCurrentIdentity(c)

	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Name, email and password are required")
	}
	if len(req.Password) < 8 {
		return echo.NewHTTPError(http.StatusBadRequest, "Password must be at least 8 characters")
	}

	var existing models.User
	if err := db.DB.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return echo.NewHTTPError(http.StatusConflict, "A user with this email already exists")
	} else if err != gorm.ErrRecordNotFound {
		c.Logger().Errorf("Failed to check email uniqueness: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create user")
	}

	hash, err := services.HashPassword(req.Password)
	if err != nil {
		c.Logger().Errorf("Failed to hash password: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create user")
	}

	masjidID := identity.MasjidID
	user := models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: hash,
		MasjidID: &masjidID,
		Role:     models.NormalizeStaffRole(req.Role),
		IsActive: true,
	}

	if err := db.DB.Create(&user).Error; err != nil {
		c.Logger().Errorf("Failed to create user: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create user")
	}

	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c),
		models.AuditActionCreate, "user", user.ID, user.Name,
		"Created staff account", nil, user)

	return c.JSON(http.StatusCreated, user)
}

// ListUsersHandler lists the masjid's staff
func ListUsersHandler(c echo.Context) error {
	var users []models.User
	if err := middleware.GetMasjidScopedQuery(c, db.DB).
		Order("created_at ASC").
		Find(&users).Error; err != nil {
		c.Logger().Errorf("Failed to list users: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list users")
	}
	return c.JSON(http.StatusOK, echo.Map{"users": users})
}

type updateUserRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// UpdateUserHandler updates a staff member's name or role
func UpdateUserHandler(c echo.Context) error {
	identity := middleware.GetCurrentIdentity(c)

	var user models.User
	if err := db.DB.First(&user, "id = ?", c.Param("id")).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}
	if !identity.IsSuperRole() && (user.MasjidID == nil || *user.MasjidID != identity.MasjidID) {
		return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
	}

	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	oldUser := user
	updates := map[string]interface{}{}
	if name := strings.TrimSpace(req.Name); name != "" {
		updates["name"] = name
	}
	if req.Role != "" {
		updates["role"] = models.NormalizeStaffRole(req.Role)
	}
	if len(updates) == 0 {
		return c.JSON(http.StatusOK, user)
	}

	if err := db.DB.Model(&user).Updates(updates).Error; err != nil {
		c.Logger().Errorf("Failed to update user %s: %v", user.ID, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update user")
	}

	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c),
		models.AuditActionUpdate, "user", user.ID, user.Name,
		"Updated staff account", oldUser, user)

	return c.JSON(http.StatusOK, user)
}

// DeactivateUserHandler disables a staff account. Accounts are never deleted
// so audit history stays attributable.
func DeactivateUserHandler(c echo.Context) error {
	identity := middleware.GetCurrentIdentity(c)

	if c.Param("id") == identity.ID {
		return echo.NewHTTPError(http.StatusBadRequest, "You cannot deactivate your own account")
	}

	var user models.User
	if err := db.DB.First(&user, "id = ?", c.Param("id")).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}
	if !identity.IsSuperRole() && (user.MasjidID == nil || *user.MasjidID != identity.MasjidID) {
		return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
	}

	if err := db.DB.Model(&user).Update("is_active", false).Error; err != nil {
		c.Logger().Errorf("Failed to deactivate user %s: %v", user.ID, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to deactivate user")
	}

	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c),
		models.AuditActionUpdate, "user", user.ID, user.Name,
		"Deactivated staff account", nil, nil)

	return c.JSON(http.StatusOK, echo.Map{"message": "User deactivated"})
}
