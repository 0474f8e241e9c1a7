package handlers

import (
	"mime/multipart"
	"net/http"
	"strings"

	"zakat_flow_go/config"
	"zakat_flow_go/db"
	"zakat_flow_go/middleware"
	"zakat_flow_go/models"
	"zakat_flow_go/services"

	"github.com/labstack/echo/v4"
)

// SendMessageHandler appends a message to a conversation. The request is
// multipart so attachments can ride along with the body.
func SendMessageHandler(c echo.Context) error {
	cfg := c.Get("config").(*config.Config)
	identity := middleware.GetCurrentIdentity(c)

	conversationID := strings.TrimSpace(c.FormValue("conversationId"))
	if conversationID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "conversationId is required")
	}

	body := c.FormValue("body")
	messageType := c.FormValue("messageType")
	if messageType == "" {
		messageType = models.MessageTypeText
	}

	var recipientIDs []string
	var attachments []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil && form != nil {
		recipientIDs = form.Value["recipientIds"]
		attachments = form.File["attachments"]
	}

	svc := services.NewMessageService(db.DB, cfg)
	result, err := svc.Send(conversationID, *identity, body, messageType, attachments, recipientIDs)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Message sent",
		"data":    result,
	})
}

// DeleteMessageHandler soft deletes the caller's own message
func DeleteMessageHandler(c echo.Context) error {
	cfg := c.Get("config").(*config.Config)
	identity := middleware.GetCurrentIdentity(c)

	svc := services.NewMessageService(db.DB, cfg)
	if err := svc.SoftDelete(c.Param("id"), *identity); err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Message deleted"})
}
