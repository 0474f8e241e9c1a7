package handlers

import (
	"net/http"

	"zakat_flow_go/db"
	"zakat_flow_go/middleware"
	"zakat_flow_go/services"

	"github.com/labstack/echo/v4"
)

// ListNotificationsHandler returns the caller's unread notifications
func ListNotificationsHandler(c echo.Context) error {
	identity := middleware.GetCurrentIdentity(c)

	svc := services.NewNotificationService(db.DB)
	notifications, err := svc.GetUnreadNotifications(identity.MasjidID, identity.ID)
	if err != nil {
		c.Logger().Errorf("Failed to load notifications for %s: %v", identity.ID, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load notifications")
	}

	count, err := svc.GetNotificationCount(identity.MasjidID, identity.ID)
	if err != nil {
		c.Logger().Errorf("Failed to count notifications for %s: %v", identity.ID, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load notifications")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"notifications": notifications,
		"unreadCount":   count,
	})
}

// MarkNotificationReadHandler marks one notification as read
func MarkNotificationReadHandler(c echo.Context) error {
	identity := middleware.GetCurrentIdentity(c)

	svc := services.NewNotificationService(db.DB)
	if err := svc.MarkAsRead(c.Param("id"), identity.ID, identity.MasjidID); err != nil {
		c.Logger().Errorf("Failed to mark notification %s read: %v", c.Param("id"), err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update notification")
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Notification marked as read"})
}

// MarkAllNotificationsReadHandler marks all of the caller's notifications read
func MarkAllNotificationsReadHandler(c echo.Context) error {
	identity := middleware.GetCurrentIdentity(c)

	svc := services.NewNotificationService(db.DB)
	if err := svc.MarkAllAsRead(identity.MasjidID, identity.ID); err != nil {
		c.Logger().Errorf("Failed to mark notifications read for %s: %v", identity.ID, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update notifications")
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "All notifications marked as read"})
}
